package email

import (
	"bufio"
	"bytes"
	"fmt"
	"mime"
	"strings"
	"time"
)

// TemplateHeader names the template a message was rendered from.
// Mock senders key captured messages by it.
const TemplateHeader = "X-Template-Id"

// Message is a plain-text notification before serialisation.
type Message struct {
	From       string
	To         []string
	Subject    string
	Body       string
	TemplateID string
	Date       time.Time
}

// Bytes serialises the message with CRLF line endings. Non-ASCII subjects are Q-encoded.
func (m Message) Bytes() []byte {
	date := m.Date
	if date.IsZero() {
		date = time.Now()
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", m.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(m.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", date.Format(time.RFC1123Z))
	if m.TemplateID != "" {
		fmt.Fprintf(&b, "%s: %s\r\n", TemplateHeader, m.TemplateID)
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")

	body := strings.ReplaceAll(m.Body, "\r\n", "\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\r\n")
	}
	return b.Bytes()
}

// headerValue returns the first value of a header in a raw message, or "".
func headerValue(rawMessage []byte, name string) string {
	scanner := bufio.NewScanner(bytes.NewReader(rawMessage))
	prefix := strings.ToLower(name) + ":"
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			break
		}
		if strings.HasPrefix(strings.ToLower(line), prefix) {
			return strings.TrimSpace(line[len(prefix):])
		}
	}
	return ""
}

// BuildMessage serialises a plain-text message dated now.
func BuildMessage(from string, to []string, subject, body, templateID string) []byte {
	return Message{From: from, To: to, Subject: subject, Body: body, TemplateID: templateID}.Bytes()
}
