package services

import (
	"context"
	"log"

	"greendrake/productenquiry/internal/models"
)

// AuthorEmailLookup resolves the owning author's email for a catalog item.
type AuthorEmailLookup interface {
	ProductAuthorEmail(ctx context.Context, itemID int64) (string, error)
}

// RecipientRequest carries everything recipient resolution depends on.
type RecipientRequest struct {
	SendCustomerCopy bool
	SubmitterEmail   string
	List             models.EnquiryList
	Settings         models.Settings
}

// IRecipientResolver computes who is notified about a submitted enquiry.
type IRecipientResolver interface {
	Resolve(ctx context.Context, req RecipientRequest) []string
}

type recipientResolver struct {
	authors    AuthorEmailLookup
	adminEmail string
}

// NewRecipientResolver creates a resolver. adminEmail is the site admin address and the fallback recipient.
func NewRecipientResolver(authors AuthorEmailLookup, adminEmail string) IRecipientResolver {
	return &recipientResolver{authors: authors, adminEmail: adminEmail}
}

// Resolve never returns an empty slice.
// Order: extra recipients, customer copy, admin, product authors; duplicates keep their first position.
func (r *recipientResolver) Resolve(ctx context.Context, req RecipientRequest) []string {
	var recipients []string

	if req.SendCustomerCopy {
		recipients = append(recipients, req.SubmitterEmail)
	}
	if req.Settings.SendEmailToAdmin {
		recipients = append(recipients, r.adminEmail)
	}
	if req.Settings.SendEmailToProductAuthor && r.authors != nil {
		for _, itemID := range req.List.ItemIDs() {
			email, err := r.authors.ProductAuthorEmail(ctx, itemID)
			if err != nil {
				log.Printf("DEBUG: Skipping author of item %d for enquiry recipients: %v", itemID, err)
				continue
			}
			recipients = append(recipients, email)
		}
	}

	if extra := req.Settings.ExtraRecipients(); len(extra) > 0 {
		recipients = append(extra, recipients...)
	}

	recipients = dedupe(recipients)
	if len(recipients) == 0 {
		recipients = []string{r.adminEmail}
	}
	return recipients
}

// dedupe keeps the first occurrence of each exact string; empty strings are dropped.
func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
