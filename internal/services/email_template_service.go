package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"greendrake/productenquiry/internal/models"
)

const (
	TemplateNewEnquiry = "new_enquiry"
	DefaultLocale      = "en-US"
)

var ErrTemplateNotFound = errors.New("email template not found")

// Built-in templates used when the DB has no override. Sources are text/template.
var defaultEmailTemplates = map[string]models.EmailTemplate{
	TemplateNewEnquiry: {
		TemplateID: TemplateNewEnquiry,
		Locale:     DefaultLocale,
		Subject:    "{{.Subject}} {{.Title}}",
		Body: `A new product enquiry has been submitted.

Name:  {{.Enquirer.FirstName}} {{.Enquirer.LastName}}
Email: {{.Enquirer.Email}}
Phone: {{.Enquirer.Phone}}
{{if .Comment}}
Comment:
{{.Comment}}
{{end}}
Items:
{{range .Items}}- {{.Name}} x {{.Quantity}}{{if .Remarks}} ({{.Remarks}}){{end}}
{{end}}`,
	},
}

// IEmailTemplateService defines the interface for email template operations.
type IEmailTemplateService interface {
	GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error)
	SaveTemplate(ctx context.Context, template *models.EmailTemplate) error
}

const emailTemplatesCollection = "email_templates"

type emailTemplateService struct {
	db *mongo.Database
}

// NewEmailTemplateService creates a new instance of EmailTemplateService
func NewEmailTemplateService(db *mongo.Database) IEmailTemplateService {
	return &emailTemplateService{db: db}
}

// GetTemplate looks up a template by ID and locale, falling back to the built-in default.
func (s *emailTemplateService) GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error) {
	if locale == "" {
		locale = DefaultLocale
	}
	filter := bson.M{"template_id": templateID, "locale": locale}

	var template models.EmailTemplate
	err := s.db.Collection(emailTemplatesCollection).FindOne(ctx, filter).Decode(&template)
	if err == nil {
		return &template, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("error retrieving template: %w", err)
	}
	if def, ok := defaultEmailTemplates[templateID]; ok {
		return &def, nil
	}
	return nil, fmt.Errorf("%w: %s (locale: %s)", ErrTemplateNotFound, templateID, locale)
}

// SaveTemplate upserts a template keyed by ID and locale.
func (s *emailTemplateService) SaveTemplate(ctx context.Context, template *models.EmailTemplate) error {
	filter := bson.M{"template_id": template.TemplateID, "locale": template.Locale}
	_, err := s.db.Collection(emailTemplatesCollection).UpdateOne(ctx, filter, bson.M{"$set": template}, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("error saving template: %w", err)
	}
	return nil
}
