package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"greendrake/productenquiry/internal/auth"
	"greendrake/productenquiry/internal/captcha"
	"greendrake/productenquiry/internal/models"
	"greendrake/productenquiry/internal/validation"
)

// SubmissionState is the terminal state of one submit request.
type SubmissionState int

const (
	SubmissionAccepted SubmissionState = iota
	SubmissionRejected
	SubmissionSecurityRejected
)

func (s SubmissionState) String() string {
	switch s {
	case SubmissionAccepted:
		return "accepted"
	case SubmissionRejected:
		return "rejected"
	case SubmissionSecurityRejected:
		return "security_rejected"
	}
	return "unknown"
}

// SubmissionRequest is the submit_enquiry form, already extracted from the request.
type SubmissionRequest struct {
	SessionID        string
	Nonce            string
	AuthorID         string // Empty for guests
	FirstName        string
	LastName         string
	Email            string
	Phone            string
	Comment          string
	SendCustomerCopy bool
	CaptchaAnswer    string
}

// SubmissionResult describes what a submit request ended in.
// Record and Recipients are set only when State is SubmissionAccepted.
type SubmissionResult struct {
	State      SubmissionState
	Validation validation.Result
	Record     *models.EnquiryRecord
	Recipients []string
}

// EnquiryNotification is the work handed to the background mailer for an accepted enquiry.
type EnquiryNotification struct {
	EnquiryID  int64    `json:"enquiry_id"`
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
}

// INotificationQueue schedules enquiry notifications.
type INotificationQueue interface {
	EnqueueEnquiryNotification(ctx context.Context, n EnquiryNotification) error
}

// SettingsProvider supplies the current plugin settings.
type SettingsProvider interface {
	GetSettings(ctx context.Context) models.Settings
}

// ISubmissionService turns a visitor's enquiry list into a stored enquiry.
type ISubmissionService interface {
	Submit(ctx context.Context, req SubmissionRequest) (*SubmissionResult, error)
}

type submissionService struct {
	nonces     auth.INonceManager
	lists      IEnquiryListService
	captchas   captcha.IChallenger
	settings   SettingsProvider
	recipients IRecipientResolver
	enquiries  IEnquiryService
	queue      INotificationQueue
	now        func() time.Time
}

// NewSubmissionService wires the submission workflow. queue may be nil, in which case no notification is scheduled.
func NewSubmissionService(
	nonces auth.INonceManager,
	lists IEnquiryListService,
	captchas captcha.IChallenger,
	settings SettingsProvider,
	recipients IRecipientResolver,
	enquiries IEnquiryService,
	queue INotificationQueue,
) ISubmissionService {
	return &submissionService{
		nonces:     nonces,
		lists:      lists,
		captchas:   captchas,
		settings:   settings,
		recipients: recipients,
		enquiries:  enquiries,
		queue:      queue,
		now:        time.Now,
	}
}

// Submit runs the workflow. A returned error means storage failed part way;
// rejections are reported through the result, not as errors.
func (s *submissionService) Submit(ctx context.Context, req SubmissionRequest) (*SubmissionResult, error) {
	if err := s.nonces.Verify(req.Nonce, req.SessionID, auth.AjaxNonceAction); err != nil {
		if errors.Is(err, auth.ErrInvalidNonce) {
			return &SubmissionResult{State: SubmissionSecurityRejected}, nil
		}
		return nil, err
	}

	settings := s.settings.GetSettings(ctx)

	contact := validation.ContactForm{
		FirstName: validation.SanitizeText(req.FirstName),
		LastName:  validation.SanitizeText(req.LastName),
		Email:     validation.SanitizeText(req.Email),
		Phone:     validation.SanitizeText(req.Phone),
	}
	res := validation.ValidateContact(contact)
	if settings.CaptchaEnabled {
		ok, err := s.captchas.Verify(ctx, req.SessionID, req.CaptchaAnswer)
		if err != nil {
			return nil, err
		}
		if !ok {
			res.Add(validation.MsgCaptchaInvalid)
		}
	}
	if !res.Valid() {
		return &SubmissionResult{State: SubmissionRejected, Validation: res}, nil
	}

	list, err := s.lists.Get(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	recipients := s.recipients.Resolve(ctx, RecipientRequest{
		SendCustomerCopy: req.SendCustomerCopy,
		SubmitterEmail:   contact.Email,
		List:             list,
		Settings:         settings,
	})

	now := s.now().UTC()
	enquirer := models.Enquirer{
		FirstName: contact.FirstName,
		LastName:  contact.LastName,
		Email:     contact.Email,
		Phone:     contact.Phone,
	}
	rec, err := s.enquiries.Create(ctx, &models.EnquiryRecord{
		Title:      fmt.Sprintf("Enquiry%d", now.Unix()),
		Excerpt:    validation.SanitizeText(req.Comment),
		AuthorID:   req.AuthorID,
		Enquirer:   enquirer,
		Items:      list.Items(),
		Recipients: recipients,
		CreatedAt:  now,
	})
	if err != nil {
		return nil, err
	}

	rec.Title = fmt.Sprintf("#%d @ %s", rec.ID, enquirer.FullName())
	// The record is stored either way, so a rename failure does not fail the submission.
	if err := s.enquiries.SetTitle(ctx, rec.ID, rec.Title); err != nil {
		log.Printf("ERROR: Failed to set title of enquiry %d: %v", rec.ID, err)
	}

	if err := s.lists.Clear(ctx, req.SessionID); err != nil {
		return nil, err
	}
	if settings.CaptchaEnabled {
		if err := s.captchas.Consume(ctx, req.SessionID); err != nil {
			log.Printf("WARNING: %v", err)
		}
	}

	if s.queue != nil {
		n := EnquiryNotification{EnquiryID: rec.ID, Recipients: recipients, Subject: settings.EmailSubject}
		if err := s.queue.EnqueueEnquiryNotification(ctx, n); err != nil {
			log.Printf("ERROR: Failed to enqueue notification for enquiry %d: %v", rec.ID, err)
		}
	}

	return &SubmissionResult{State: SubmissionAccepted, Record: rec, Recipients: recipients}, nil
}
