package models

import "strings"

// Option keys as stored in the configuration collection.
const (
	OptionEnableProductEnquiry     = "wcpe_enable_product_enquiry"
	OptionButtonOnArchive          = "wcpe_enquiry_button_on_archive"
	OptionButtonOnSingleProduct    = "wcpe_enquiry_button_on_single_product"
	OptionButtonLabel              = "wcpe_product_enquiry_button_label"
	OptionEnableFloatingButton     = "wcpe_enable_enquiry_floating_button"
	OptionFloatingButtonIcon       = "wcpe_product_enquiry_floating_button_icon"
	OptionEnquiryPage              = "wcpe_enquiry_page"
	OptionEmailSubject             = "wcpe_product_enquiry_email_subject"
	OptionExtraEmailRecipients     = "wcpe_extra_email_recipients"
	OptionSendEmailToAdmin         = "wcpe_send_email_to_admin"
	OptionSendEmailToProductAuthor = "wcpe_send_email_to_product_author"
	OptionPrivacyPolicyMessage     = "wcpe_privacy_policy_message"
	OptionEnableCaptcha            = "wcpe_enable_captcha"
)

const (
	DefaultButtonLabel        = "Add for Enquiry"
	DefaultFloatingButtonIcon = `<i class="fa fa-wpforms"></i>`
	DefaultEmailSubject       = "Product Enquiry"
)

// Settings is the typed view of the plugin options.
type Settings struct {
	Enabled                  bool   `json:"enable_product_enquiry"`
	ButtonOnArchive          bool   `json:"enquiry_button_on_archive"`
	ButtonOnSingleProduct    bool   `json:"enquiry_button_on_single_product"`
	ButtonLabel              string `json:"button_label"`
	FloatingButtonEnabled    bool   `json:"enable_floating_button"`
	FloatingButtonIcon       string `json:"floating_button_icon"`
	EnquiryPage              string `json:"enquiry_page"`
	EmailSubject             string `json:"email_subject"`
	ExtraEmailRecipients     string `json:"extra_email_recipients"`
	SendEmailToAdmin         bool   `json:"send_email_to_admin"`
	SendEmailToProductAuthor bool   `json:"send_email_to_product_author"`
	PrivacyPolicyMessage     string `json:"privacy_policy_message"`
	CaptchaEnabled           bool   `json:"enable_captcha"`
}

// DefaultSettings mirrors what a fresh install reports before any option is saved.
func DefaultSettings() Settings {
	return Settings{
		ButtonLabel:        DefaultButtonLabel,
		FloatingButtonIcon: DefaultFloatingButtonIcon,
		EmailSubject:       DefaultEmailSubject,
		CaptchaEnabled:     true,
	}
}

// ExtraRecipients splits the free-text recipients option, one address per line.
// Lines are trimmed and blank lines dropped; addresses are not validated.
func (s Settings) ExtraRecipients() []string {
	var out []string
	for _, line := range strings.Split(s.ExtraEmailRecipients, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// Options flattens the settings back into option key/value pairs, booleans as "yes"/"no".
func (s Settings) Options() map[string]interface{} {
	return map[string]interface{}{
		OptionEnableProductEnquiry:     YesNo(s.Enabled),
		OptionButtonOnArchive:          YesNo(s.ButtonOnArchive),
		OptionButtonOnSingleProduct:    YesNo(s.ButtonOnSingleProduct),
		OptionButtonLabel:              s.ButtonLabel,
		OptionEnableFloatingButton:     YesNo(s.FloatingButtonEnabled),
		OptionFloatingButtonIcon:       s.FloatingButtonIcon,
		OptionEnquiryPage:              s.EnquiryPage,
		OptionEmailSubject:             s.EmailSubject,
		OptionExtraEmailRecipients:     s.ExtraEmailRecipients,
		OptionSendEmailToAdmin:         YesNo(s.SendEmailToAdmin),
		OptionSendEmailToProductAuthor: YesNo(s.SendEmailToProductAuthor),
		OptionPrivacyPolicyMessage:     s.PrivacyPolicyMessage,
		OptionEnableCaptcha:            YesNo(s.CaptchaEnabled),
	}
}

// YesNo encodes a boolean option.
func YesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// ParseYesNo decodes a stored boolean option. Accepts real booleans too.
func ParseYesNo(v interface{}, def bool) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "yes", "true", "1", "on":
			return true
		case "no", "false", "0", "off", "":
			return false
		}
	}
	return def
}
