package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/burger-alley/api/internal/payments"
	"github.com/burger-alley/api/internal/platform/httpx"
	"github.com/burger-alley/api/internal/services"
)

// Stripe signs events over the raw body, so the payload is read verbatim and
// capped well above any event Stripe actually sends.
const maxWebhookBodySize = 1 << 20

// WebhookEventParser verifies a provider delivery and maps it onto the
// normalised event shape.
type WebhookEventParser interface {
	ParseWebhookEvent(payload []byte, signatureHeader string) (payments.WebhookEvent, error)
}

// WebhookHandlers ingests payment provider callbacks.
type WebhookHandlers struct {
	orders services.OrderService
	parser WebhookEventParser
}

// NewWebhookHandlers constructs the webhook endpoints.
func NewWebhookHandlers(orders services.OrderService, parser WebhookEventParser) *WebhookHandlers {
	return &WebhookHandlers{orders: orders, parser: parser}
}

// Routes registers the webhook endpoints.
func (h *WebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/stripe", h.stripeWebhook)
}

type webhookAckResponse struct {
	Received bool `json:"received"`
}

// stripeWebhook verifies and applies a Stripe event. Deliveries that do not
// concern an order (unknown event types, foreign intents) are acknowledged so
// Stripe stops retrying them; transient failures return 5xx to trigger a retry.
func (h *WebhookHandlers) stripeWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil || h.parser == nil {
		httpx.WriteError(ctx, w, httpx.NewError("webhook_unavailable", "webhook processing unavailable", http.StatusServiceUnavailable))
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize+1))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unable to read request body", http.StatusBadRequest))
		return
	}
	if len(payload) > maxWebhookBodySize {
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		return
	}

	event, err := h.parser.ParseWebhookEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payments.ErrWebhookSignature) {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_signature", "webhook signature verification failed", http.StatusUnauthorized))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unable to parse webhook event", http.StatusBadRequest))
		return
	}

	switch event.Type {
	case payments.WebhookEventPaymentSucceeded:
		if event.OrderID == "" {
			break
		}
		_, err = h.orders.HandlePaymentConfirmed(ctx, services.PaymentConfirmedCommand{
			OrderID:       event.OrderID,
			TransactionID: event.IntentID,
		})
	case payments.WebhookEventPaymentFailed:
		if event.OrderID == "" {
			break
		}
		_, err = h.orders.HandlePaymentFailed(ctx, services.PaymentFailedCommand{
			OrderID: event.OrderID,
			Reason:  event.FailureMessage,
		})
	}

	if err != nil {
		// Intents referencing orders this store never created are terminal,
		// everything else is worth a redelivery.
		if errors.Is(err, services.ErrOrderNotFound) {
			writeJSONResponse(w, http.StatusOK, webhookAckResponse{Received: true})
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("webhook_processing_failed", "unable to apply webhook event", http.StatusInternalServerError))
		return
	}

	writeJSONResponse(w, http.StatusOK, webhookAckResponse{Received: true})
}
