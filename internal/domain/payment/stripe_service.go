// internal/domain/payment/stripe_service.go
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/your-org/storefront-backend/internal/config"
)

// Status is the normalized terminal-or-pending state of a payment as
// reported by the payment processor.
type Status string

const (
	StatusSucceeded      Status = "succeeded"
	StatusProcessing     Status = "processing"
	StatusRequiresAction Status = "requires_action"
	StatusCanceled       Status = "canceled"
	StatusFailed         Status = "failed"
)

// ErrGatewayUnavailable is returned when the payment processor cannot be
// reached or answers with a server error. Callers should treat this as
// retryable; it is never a confirmation.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// ErrPaymentNotFound is returned when the payment reference is unknown to
// the processor.
var ErrPaymentNotFound = errors.New("payment not found")

// Gate verifies payment state against the external system of record.
// Implementations perform no local writes.
type Gate interface {
	Confirm(ctx context.Context, paymentIntentID string) (Status, error)
}

// StripeService confirms payment intents against the Stripe API.
type StripeService struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

// NewStripeService creates a new Stripe payment gate
func NewStripeService(cfg *config.Config) *StripeService {
	return &StripeService{
		secretKey: cfg.Stripe.SecretKey,
		baseURL:   cfg.Stripe.BaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type paymentIntent struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount int64  `json:"amount"`
}

type stripeError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Confirm retrieves the payment intent and reports its normalized status.
// Only StatusSucceeded authorizes order finalization.
func (s *StripeService) Confirm(ctx context.Context, paymentIntentID string) (Status, error) {
	if paymentIntentID == "" {
		return StatusFailed, fmt.Errorf("payment intent ID is required")
	}

	url := fmt.Sprintf("%s/v1/payment_intents/%s", s.baseURL, paymentIntentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return StatusFailed, fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return StatusFailed, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return StatusFailed, fmt.Errorf("%w: reading response: %v", ErrGatewayUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return StatusFailed, fmt.Errorf("%w: %s", ErrPaymentNotFound, paymentIntentID)
	case resp.StatusCode >= 500:
		return StatusFailed, fmt.Errorf("%w: gateway returned %d", ErrGatewayUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		var gatewayErr stripeError
		if err := json.Unmarshal(body, &gatewayErr); err == nil && gatewayErr.Error.Message != "" {
			return StatusFailed, fmt.Errorf("gateway rejected request: %s", gatewayErr.Error.Message)
		}
		return StatusFailed, fmt.Errorf("gateway rejected request with status %d", resp.StatusCode)
	}

	var intent paymentIntent
	if err := json.Unmarshal(body, &intent); err != nil {
		return StatusFailed, fmt.Errorf("failed to decode payment intent: %w", err)
	}

	return normalizeStatus(intent.Status), nil
}

// normalizeStatus maps raw processor statuses onto the statuses the
// checkout flow distinguishes. Unknown statuses never confirm a payment.
func normalizeStatus(raw string) Status {
	switch raw {
	case "succeeded":
		return StatusSucceeded
	case "processing":
		return StatusProcessing
	case "requires_action", "requires_confirmation", "requires_payment_method", "requires_capture":
		return StatusRequiresAction
	case "canceled":
		return StatusCanceled
	default:
		return StatusFailed
	}
}
