package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"text/template"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"greendrake/productenquiry/internal/config"
	"greendrake/productenquiry/internal/email"
	"greendrake/productenquiry/internal/models"
	"greendrake/productenquiry/internal/services"
)

// TaskType defines the type of a background task.
const (
	TypeEnquiryNotify = "enquiry:notify"
)

const notifyQueue = "default"

// --- Task Client (Enqueuing tasks) ---

func NewClient(rdb *redis.Client) *asynq.Client {
	opts := rdb.Options()
	return asynq.NewClient(asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
}

// NotificationQueue hands accepted enquiries to the background mailer.
type NotificationQueue struct {
	client *asynq.Client
}

func NewNotificationQueue(client *asynq.Client) *NotificationQueue {
	return &NotificationQueue{client: client}
}

// NewEnquiryNotifyTask builds the task for one accepted enquiry.
func NewEnquiryNotifyTask(n services.EnquiryNotification) (*asynq.Task, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal enquiry notification: %w", err)
	}
	return asynq.NewTask(TypeEnquiryNotify, payload, asynq.Queue(notifyQueue), asynq.MaxRetry(10)), nil
}

func (q *NotificationQueue) EnqueueEnquiryNotification(ctx context.Context, n services.EnquiryNotification) error {
	task, err := NewEnquiryNotifyTask(n)
	if err != nil {
		return err
	}
	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue enquiry notification: %w", err)
	}
	log.Printf("DEBUG: Enqueued %s task %s for enquiry %d", TypeEnquiryNotify, info.ID, n.EnquiryID)
	return nil
}

// --- Task Server (Processing tasks) ---

// EnquiryFinder loads stored enquiries.
type EnquiryFinder interface {
	FindByID(ctx context.Context, id int64) (*models.EnquiryRecord, error)
}

// ProductFinder resolves item names for the notification body.
type ProductFinder interface {
	FindProducts(ctx context.Context, ids []int64) (map[int64]*models.Product, error)
}

// TaskProcessor handles the processing of tasks.
type TaskProcessor struct {
	cfg                  *config.Config
	emailSender          email.Sender
	enquiries            EnquiryFinder
	products             ProductFinder
	emailTemplateService services.IEmailTemplateService
}

func NewTaskProcessor(
	cfg *config.Config,
	emailSender email.Sender,
	enquiries EnquiryFinder,
	products ProductFinder,
	emailTemplateService services.IEmailTemplateService,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:                  cfg,
		emailSender:          emailSender,
		enquiries:            enquiries,
		products:             products,
		emailTemplateService: emailTemplateService,
	}
}

// SetupServer configures the asynq server and its handler mux. The caller runs it.
func SetupServer(rdb *redis.Client, processor *TaskProcessor) (*asynq.Server, *asynq.ServeMux) {
	opts := rdb.Options()
	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: opts.Addr, Password: opts.Password, DB: opts.DB},
		asynq.Config{
			Queues: map[string]int{
				"critical":  6,
				notifyQueue: 3,
				"low":       1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("ERROR: [asynq] task %s failed (payload %s): %v", task.Type(), string(task.Payload()), err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEnquiryNotify, processor.HandleEnquiryNotifyTask)
	fmt.Println("Registered background task handlers.")
	return srv, mux
}

// --- Task Handlers ---

type notificationItem struct {
	ItemID   int64
	Name     string
	Quantity int64
	Remarks  string
}

// notificationData is what new_enquiry templates can reference.
type notificationData struct {
	ID         int64
	Subject    string
	Title      string
	Enquirer   models.Enquirer
	Comment    string
	Items      []notificationItem
	Recipients []string
}

// HandleEnquiryNotifyTask mails the notification for one stored enquiry.
func (p *TaskProcessor) HandleEnquiryNotifyTask(ctx context.Context, t *asynq.Task) error {
	var n services.EnquiryNotification
	if err := json.Unmarshal(t.Payload(), &n); err != nil {
		return fmt.Errorf("failed to unmarshal enquiry notification payload: %v: %w", err, asynq.SkipRetry)
	}
	if len(n.Recipients) == 0 {
		return fmt.Errorf("enquiry %d notification has no recipients: %w", n.EnquiryID, asynq.SkipRetry)
	}

	record, err := p.enquiries.FindByID(ctx, n.EnquiryID)
	if err != nil {
		if errors.Is(err, services.ErrEnquiryNotFound) {
			return fmt.Errorf("enquiry %d not found: %w", n.EnquiryID, asynq.SkipRetry)
		}
		return fmt.Errorf("failed to load enquiry %d: %w", n.EnquiryID, err)
	}

	tmpl, err := p.emailTemplateService.GetTemplate(ctx, services.TemplateNewEnquiry, services.DefaultLocale)
	if err != nil {
		if errors.Is(err, services.ErrTemplateNotFound) {
			return fmt.Errorf("email template %s: %v: %w", services.TemplateNewEnquiry, err, asynq.SkipRetry)
		}
		return err
	}

	data := notificationData{
		ID:         record.ID,
		Subject:    n.Subject,
		Title:      record.Title,
		Enquirer:   record.Enquirer,
		Comment:    record.Excerpt,
		Recipients: n.Recipients,
		Items:      p.itemsFor(ctx, record),
	}

	subject, err := renderText("subject", tmpl.Subject, data)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	body, err := renderText("body", tmpl.Body, data)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	from := p.cfg.SmtpFromAddress
	if from == "" {
		from = "noreply@example.com"
		log.Printf("WARNING: SmtpFromAddress not configured, using fallback %s", from)
	}

	raw := email.BuildMessage(from, n.Recipients, subject, body, tmpl.TemplateID)
	if err := p.emailSender.Send(ctx, n.Recipients, subject, raw); err != nil {
		log.Printf("ERROR: Sending notification for enquiry %d failed: %v", record.ID, err)
		return err
	}

	log.Printf("Enquiry %d notification sent to %v", record.ID, n.Recipients)
	return nil
}

// itemsFor names the record's items. Names fall back to "#<id>" when the catalog is unavailable.
func (p *TaskProcessor) itemsFor(ctx context.Context, record *models.EnquiryRecord) []notificationItem {
	ids := make([]int64, 0, len(record.Items))
	for _, it := range record.Items {
		ids = append(ids, it.ItemID)
	}
	products, err := p.products.FindProducts(ctx, ids)
	if err != nil {
		log.Printf("WARNING: Loading products for enquiry %d notification: %v", record.ID, err)
	}

	items := make([]notificationItem, 0, len(record.Items))
	for _, it := range record.Items {
		name := fmt.Sprintf("#%d", it.ItemID)
		if prod, ok := products[it.ItemID]; ok {
			name = prod.Name
		}
		items = append(items, notificationItem{ItemID: it.ItemID, Name: name, Quantity: it.Quantity, Remarks: it.Remarks})
	}
	return items
}

func renderText(name, src string, data interface{}) (string, error) {
	t, err := template.New(name).Parse(src)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s template: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s template: %w", name, err)
	}
	return buf.String(), nil
}
