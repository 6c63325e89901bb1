package models

// EmailTemplate is a notification template stored in the DB.
// Subject and Body are text/template sources.
type EmailTemplate struct {
	TemplateID string `bson:"template_id" json:"template_id"` // e.g. "new_enquiry"
	Locale     string `bson:"locale" json:"locale"`           // e.g. "en-US"
	Subject    string `bson:"subject" json:"subject"`
	Body       string `bson:"body" json:"body"`
}
