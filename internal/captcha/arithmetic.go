package captcha

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"greendrake/productenquiry/internal/session"
)

// SessionKey holds the visitor's pending challenge.
const SessionKey = "wcpe_captcha"

// operandLimit bounds both operands: each is drawn from [0, operandLimit).
const operandLimit = 100

// IChallenger issues and checks the arithmetic captcha shown with the enquiry form.
type IChallenger interface {
	Generate(ctx context.Context, sessionID string) (Challenge, error)
	Verify(ctx context.Context, sessionID, answer string) (bool, error)
	Consume(ctx context.Context, sessionID string) error
}

// Challenge is an addition question. The expected answer never leaves the server.
type Challenge struct {
	A        int       `json:"a"`
	B        int       `json:"b"`
	IssuedAt time.Time `json:"issued_at"`
}

// Question is the text printed next to the answer field.
func (c Challenge) Question() string {
	return fmt.Sprintf("%d + %d = ?", c.A, c.B)
}

func (c Challenge) answer() int {
	return c.A + c.B
}

type challenger struct {
	store session.Store
	ttl   time.Duration
	intn  func(n int) int
}

// NewChallenger creates a captcha issuer whose challenges expire after ttl.
func NewChallenger(store session.Store, ttl time.Duration) IChallenger {
	return &challenger{store: store, ttl: ttl, intn: rand.IntN}
}

// Generate replaces the session's challenge with a new one.
func (c *challenger) Generate(ctx context.Context, sessionID string) (Challenge, error) {
	ch := Challenge{
		A:        c.intn(operandLimit),
		B:        c.intn(operandLimit),
		IssuedAt: time.Now().UTC(),
	}
	if err := c.store.Set(ctx, sessionID, SessionKey, ch); err != nil {
		return Challenge{}, fmt.Errorf("failed to store captcha challenge: %w", err)
	}
	return ch, nil
}

// Verify compares answer with the pending challenge. A missing or expired
// challenge never verifies. The challenge stays in place either way.
func (c *challenger) Verify(ctx context.Context, sessionID, answer string) (bool, error) {
	var ch Challenge
	found, err := c.store.Get(ctx, sessionID, SessionKey, &ch)
	if err != nil {
		return false, fmt.Errorf("failed to load captcha challenge: %w", err)
	}
	if !found {
		log.Printf("DEBUG: No captcha challenge pending for session %s", sessionID)
		return false, nil
	}
	if c.ttl > 0 && time.Since(ch.IssuedAt) > c.ttl {
		log.Printf("DEBUG: Captcha challenge for session %s expired", sessionID)
		return false, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil {
		return false, nil
	}
	return n == ch.answer(), nil
}

// Consume discards the pending challenge after a successful submission.
func (c *challenger) Consume(ctx context.Context, sessionID string) error {
	if err := c.store.Unset(ctx, sessionID, SessionKey); err != nil {
		return fmt.Errorf("failed to discard captcha challenge: %w", err)
	}
	return nil
}
