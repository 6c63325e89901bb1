// Package cart talks to the storefront cart service that owns carts and the mini-cart widget.
package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
)

var (
	// ErrCartUnavailable is returned when the cart service is unreachable, failing, or not configured.
	ErrCartUnavailable = errors.New("cart service unavailable")
	// ErrCartRejected is returned when the cart service refuses the request (4xx).
	ErrCartRejected = errors.New("cart service rejected request")
)

const maxBodyBytes = 1 << 20

// Item is one product to put in the cart.
type Item struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// IClient is the cart collaborator used by the enquiry handlers.
type IClient interface {
	AddItems(ctx context.Context, sessionID string, items []Item) error
	MiniCart(ctx context.Context, sessionID string) (string, error)
}

// Client calls the cart HTTP API through a circuit breaker.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// NewClient creates a cart client. An empty baseURL yields a client that always reports ErrCartUnavailable.
func NewClient(baseURL string, timeout time.Duration) *Client {
	settings := gobreaker.Settings{
		Name:        "cart-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrCartRejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("WARNING: Circuit breaker %s changed from %s to %s", name, from, to)
		},
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[[]byte](settings),
	}
}

// AddItems adds all items to the visitor's cart in one call.
func (c *Client) AddItems(ctx context.Context, sessionID string, items []Item) error {
	body, err := json.Marshal(struct {
		Items []Item `json:"items"`
	}{items})
	if err != nil {
		return fmt.Errorf("failed to encode cart items: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, c.cartPath(sessionID, "items"), body)
	return err
}

// MiniCart returns the rendered mini-cart fragment for the visitor.
func (c *Client) MiniCart(ctx context.Context, sessionID string) (string, error) {
	body, err := c.do(ctx, http.MethodGet, c.cartPath(sessionID, "mini"), nil)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) cartPath(sessionID, tail string) string {
	return fmt.Sprintf("%s/carts/%s/%s", c.baseURL, url.PathEscape(sessionID), tail)
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	if c.baseURL == "" {
		return nil, ErrCartUnavailable
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, err
		}
		switch {
		case resp.StatusCode >= 500:
			return nil, fmt.Errorf("cart service returned %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			return nil, fmt.Errorf("%w: status %d: %s", ErrCartRejected, resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return data, nil
	})
	if err == nil {
		return body, nil
	}
	if errors.Is(err, ErrCartRejected) {
		return nil, err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCartUnavailable
	}
	log.Printf("ERROR: Cart service %s %s failed: %v", method, endpoint, err)
	return nil, fmt.Errorf("%w: %v", ErrCartUnavailable, err)
}
