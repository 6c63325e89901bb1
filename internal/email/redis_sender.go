package email

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// MockEmailTTL is how long a captured message stays readable.
const MockEmailTTL = 5 * time.Minute

// MockEmailKey is where RedisSender stores the last message for a recipient and template.
func MockEmailKey(to, templateID string) string {
	return fmt.Sprintf("mockemail:%s:%s", to, templateID)
}

// RedisSender captures messages in Redis so integration tests can read them back.
type RedisSender struct {
	client *redis.Client
	from   string
}

func NewRedisSender(client *redis.Client, from string) Sender {
	return &RedisSender{client: client, from: from}
}

// Send stores one copy per recipient under MockEmailKey.
func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	templateID := headerValue(rawMessage, TemplateHeader)
	if templateID == "" {
		templateID = "unknown"
	}

	data, err := json.Marshal(map[string]interface{}{
		"to":          strings.Join(to, ", "),
		"from":        s.from,
		"subject":     subject,
		"body":        string(rawMessage),
		"sent_at":     time.Now().UTC().Format(time.RFC3339Nano),
		"template_id": templateID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}

	pipe := s.client.TxPipeline()
	for _, addr := range to {
		pipe.Set(ctx, MockEmailKey(addr, templateID), data, MockEmailTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store mock email: %w", err)
	}

	log.Printf("Mock email stored in Redis (TTL: %v, To: %s, Template: %s)", MockEmailTTL, strings.Join(to, ", "), templateID)
	return nil
}
