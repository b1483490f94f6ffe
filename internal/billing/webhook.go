package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// maxWebhookBodySize caps webhook payloads; Stripe events are well under it.
const maxWebhookBodySize = 64 * 1024

var (
	// ErrMissingWebhookSecret means no signing secret is configured.
	ErrMissingWebhookSecret = errors.New("stripe webhook secret not configured")
	// ErrInvalidSignature means the Stripe-Signature header did not verify.
	ErrInvalidSignature = errors.New("invalid stripe signature")
)

// WebhookVerifier defines the interface for verifying webhook signatures.
type WebhookVerifier interface {
	ConstructEvent(payload []byte, header string, secret string) (stripe.Event, error)
}

// DefaultWebhookVerifier uses the real Stripe webhook package.
type DefaultWebhookVerifier struct{}

// ConstructEvent verifies and constructs a Stripe event from webhook payload.
// Events are re-read from the API where it matters, so API version drift is tolerated.
func (v *DefaultWebhookVerifier) ConstructEvent(payload []byte, header string, secret string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, header, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

// SecretFunc returns the current webhook signing secret.
type SecretFunc func() string

// EnvSecret reads the named environment variable on every call.
func EnvSecret(key string) SecretFunc {
	return func() string { return os.Getenv(key) }
}

// StaticSecret always returns secret.
func StaticSecret(secret string) SecretFunc {
	return func() string { return secret }
}

// EventProcessor applies a verified event to the store.
type EventProcessor interface {
	Process(ctx context.Context, event stripe.Event) error
}

// WebhookHandler handles Stripe webhook requests.
type WebhookHandler struct {
	secret    SecretFunc
	verifier  WebhookVerifier
	processor EventProcessor
	logger    *slog.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(secret SecretFunc, processor EventProcessor, logger *slog.Logger) *WebhookHandler {
	return NewWebhookHandlerWithVerifier(secret, &DefaultWebhookVerifier{}, processor, logger)
}

// NewWebhookHandlerWithVerifier creates a webhook handler with a custom verifier (for testing).
func NewWebhookHandlerWithVerifier(secret SecretFunc, verifier WebhookVerifier, processor EventProcessor, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{
		secret:    secret,
		verifier:  verifier,
		processor: processor,
		logger:    logger,
	}
}

// VerifyEvent checks the signature of payload and returns the decoded event.
func (h *WebhookHandler) VerifyEvent(payload []byte, header string) (stripe.Event, error) {
	secret := ""
	if h.secret != nil {
		secret = h.secret()
	}
	if secret == "" {
		return stripe.Event{}, ErrMissingWebhookSecret
	}
	if header == "" {
		return stripe.Event{}, fmt.Errorf("%w: missing header", ErrInvalidSignature)
	}

	event, err := h.verifier.ConstructEvent(payload, header, secret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return event, nil
}

// ServeHTTP handles incoming Stripe webhooks.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	defer func() {
		if rec := recover(); rec != nil {
			h.logger.ErrorContext(ctx, "panic while processing stripe webhook", "panic", rec)
			writeWebhookError(w, http.StatusInternalServerError, "webhook processing failed")
		}
	}()

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to read stripe webhook body", "error", err)
		writeWebhookError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	event, err := h.VerifyEvent(body, r.Header.Get("Stripe-Signature"))
	if errors.Is(err, ErrMissingWebhookSecret) {
		h.logger.ErrorContext(ctx, "stripe webhook secret is not configured")
		writeWebhookError(w, http.StatusInternalServerError, "webhook secret not configured")
		return
	}
	if err != nil {
		h.logger.WarnContext(ctx, "stripe webhook signature verification failed", "error", err)
		writeWebhookError(w, http.StatusBadRequest, "invalid signature")
		return
	}

	h.logger.InfoContext(ctx, "received stripe webhook",
		"event_id", event.ID,
		"event_type", string(event.Type),
	)

	if err := h.processor.Process(ctx, event); err != nil {
		h.logger.ErrorContext(ctx, "failed to process stripe webhook",
			"event_id", event.ID,
			"event_type", string(event.Type),
			"error", err,
		)
		writeWebhookError(w, http.StatusInternalServerError, "webhook processing failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]bool{"received": true})
}

func writeWebhookError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
