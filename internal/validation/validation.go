// Package validation holds the server-side checks applied to a submitted enquiry form.
// They are authoritative: the storefront script runs the same checks only to spare a round trip.
package validation

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const (
	MsgFirstNameInvalid = "First name is either empty or invalid."
	MsgLastNameInvalid  = "Last name is either empty or invalid."
	MsgEmailInvalid     = "Email address is either empty or invalid."
	MsgPhoneInvalid     = "Phone number is either empty or invalid."
	MsgCaptchaInvalid   = "Captcha answer is incorrect."
)

// PhoneDigits is the number of digits a phone number must carry once formatting is stripped.
const PhoneDigits = 10

// Patterns embedded into the storefront script so the client pre-check matches the server.
const (
	ClientEmailPattern = `^([a-zA-Z0-9_\.\-\+])+\@(([a-zA-Z0-9\-])+\.)+([a-zA-Z0-9]{2,4})+$`
	ClientPhonePattern = `^[0-9\-\(\)\s]+$`
)

var (
	validate   = validator.New()
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	tagRegex   = regexp.MustCompile(`<[^>]*>`)
)

// ContactForm is the enquirer's contact block.
type ContactForm struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// Result is the outcome of validating a form. An empty Errors slice means valid.
type Result struct {
	Errors []string
}

func (r Result) Valid() bool {
	return len(r.Errors) == 0
}

// Add appends a message to the result.
func (r *Result) Add(msg string) {
	r.Errors = append(r.Errors, msg)
}

// HTML renders the messages as the ordered list shown in the storefront notification.
func (r Result) HTML() string {
	return ErrorListHTML(r.Errors)
}

// ValidateContact checks every field and reports all failures, in form order.
func ValidateContact(f ContactForm) Result {
	var res Result
	if NormalizeName(f.FirstName) == "" {
		res.Add(MsgFirstNameInvalid)
	}
	if NormalizeName(f.LastName) == "" {
		res.Add(MsgLastNameInvalid)
	}
	if !ValidEmail(f.Email) {
		res.Add(MsgEmailInvalid)
	}
	if !ValidPhone(f.Phone) {
		res.Add(MsgPhoneInvalid)
	}
	return res
}

// NormalizeName reduces a name to a lower-case slug: tags removed, runs of
// anything but letters and digits collapsed into single hyphens.
func NormalizeName(name string) string {
	name = strings.ToLower(tagRegex.ReplaceAllString(name, ""))
	var sb strings.Builder
	pendingHyphen := false
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			pendingHyphen = false
			sb.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return sb.String()
}

// ValidEmail reports whether email is a plausible local@domain.tld address.
func ValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" || !emailRegex.MatchString(email) {
		return false
	}
	return validate.Var(email, "required,email") == nil
}

// SanitizeText strips markup and surrounding whitespace from a free-text field.
func SanitizeText(s string) string {
	return strings.TrimSpace(tagRegex.ReplaceAllString(s, ""))
}

// NormalizePhone strips every non-digit.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
}

func ValidPhone(phone string) bool {
	return len(NormalizePhone(phone)) == PhoneDigits
}

// ErrorListHTML renders messages as an escaped ordered list.
func ErrorListHTML(msgs []string) string {
	var sb strings.Builder
	sb.WriteString("<ol type='1' style='margin: 0 0 0 10px;'>")
	for _, m := range msgs {
		sb.WriteString("<li>")
		sb.WriteString(html.EscapeString(m))
		sb.WriteString("</li>")
	}
	sb.WriteString("</ol>")
	return sb.String()
}
