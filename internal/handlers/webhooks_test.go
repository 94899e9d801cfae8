package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/burger-alley/api/internal/payments"
	"github.com/burger-alley/api/internal/services"
)

type stubWebhookParser struct {
	event         payments.WebhookEvent
	err           error
	lastPayload   []byte
	lastSignature string
}

func (s *stubWebhookParser) ParseWebhookEvent(payload []byte, signatureHeader string) (payments.WebhookEvent, error) {
	s.lastPayload = payload
	s.lastSignature = signatureHeader
	return s.event, s.err
}

func newWebhookRouter(svc services.OrderService, parser WebhookEventParser) chi.Router {
	router := chi.NewRouter()
	router.Route("/webhooks", NewWebhookHandlers(svc, parser).Routes)
	return router
}

func postStripeWebhook(router chi.Router, payload, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(payload))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestWebhookHandlersPaymentSucceeded(t *testing.T) {
	var captured services.PaymentConfirmedCommand
	svc := &fakeOrderService{
		confirmFn: func(_ context.Context, cmd services.PaymentConfirmedCommand) (services.Order, error) {
			captured = cmd
			return sampleOrder("ord_001"), nil
		},
	}
	parser := &stubWebhookParser{event: payments.WebhookEvent{
		ID:       "evt_1",
		Type:     payments.WebhookEventPaymentSucceeded,
		IntentID: "pi_123",
		OrderID:  "ord_001",
	}}
	router := newWebhookRouter(svc, parser)

	rr := postStripeWebhook(router, `{"id":"evt_1"}`, "t=1,v1=abc")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.OrderID != "ord_001" || captured.TransactionID != "pi_123" {
		t.Fatalf("unexpected confirm command: %+v", captured)
	}
	if parser.lastSignature != "t=1,v1=abc" {
		t.Fatalf("expected signature header forwarded, got %q", parser.lastSignature)
	}
	if !bytes.Equal(parser.lastPayload, []byte(`{"id":"evt_1"}`)) {
		t.Fatalf("expected raw payload forwarded, got %s", parser.lastPayload)
	}

	var body webhookAckResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if !body.Received {
		t.Fatalf("expected received ack")
	}
}

func TestWebhookHandlersPaymentFailed(t *testing.T) {
	var captured services.PaymentFailedCommand
	svc := &fakeOrderService{
		failFn: func(_ context.Context, cmd services.PaymentFailedCommand) (services.Order, error) {
			captured = cmd
			return sampleOrder("ord_001"), nil
		},
	}
	parser := &stubWebhookParser{event: payments.WebhookEvent{
		Type:           payments.WebhookEventPaymentFailed,
		IntentID:       "pi_123",
		OrderID:        "ord_001",
		FailureMessage: "card declined",
	}}
	router := newWebhookRouter(svc, parser)

	rr := postStripeWebhook(router, `{}`, "sig")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.OrderID != "ord_001" || captured.Reason != "card declined" {
		t.Fatalf("unexpected fail command: %+v", captured)
	}
}

func TestWebhookHandlersInvalidSignature(t *testing.T) {
	parser := &stubWebhookParser{err: payments.ErrWebhookSignature}
	// The service would fail loudly if it were ever reached.
	router := newWebhookRouter(&fakeOrderService{}, parser)

	rr := postStripeWebhook(router, `{}`, "t=1,v1=bogus")

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "invalid_signature") {
		t.Fatalf("expected invalid_signature code, got %s", rr.Body.String())
	}
}

func TestWebhookHandlersUnhandledEventAcked(t *testing.T) {
	parser := &stubWebhookParser{event: payments.WebhookEvent{
		Type: payments.WebhookEventUnhandled,
	}}
	router := newWebhookRouter(&fakeOrderService{}, parser)

	rr := postStripeWebhook(router, `{}`, "sig")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 for an unhandled event, got %d", rr.Code)
	}
}

func TestWebhookHandlersUnknownOrderAcked(t *testing.T) {
	svc := &fakeOrderService{
		confirmFn: func(context.Context, services.PaymentConfirmedCommand) (services.Order, error) {
			return services.Order{}, services.ErrOrderNotFound
		},
	}
	parser := &stubWebhookParser{event: payments.WebhookEvent{
		Type:     payments.WebhookEventPaymentSucceeded,
		IntentID: "pi_foreign",
		OrderID:  "ord_missing",
	}}
	router := newWebhookRouter(svc, parser)

	rr := postStripeWebhook(router, `{}`, "sig")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected unknown orders to be acked, got %d", rr.Code)
	}
}

func TestWebhookHandlersTransientFailureTriggersRetry(t *testing.T) {
	svc := &fakeOrderService{
		confirmFn: func(context.Context, services.PaymentConfirmedCommand) (services.Order, error) {
			return services.Order{}, errors.New("firestore unavailable")
		},
	}
	parser := &stubWebhookParser{event: payments.WebhookEvent{
		Type:     payments.WebhookEventPaymentSucceeded,
		IntentID: "pi_123",
		OrderID:  "ord_001",
	}}
	router := newWebhookRouter(svc, parser)

	rr := postStripeWebhook(router, `{}`, "sig")

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500 for a transient failure, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "webhook_processing_failed") {
		t.Fatalf("expected webhook_processing_failed code, got %s", rr.Body.String())
	}
}

func TestWebhookHandlersOversizedPayload(t *testing.T) {
	router := newWebhookRouter(&fakeOrderService{}, &stubWebhookParser{})

	rr := postStripeWebhook(router, strings.Repeat("a", maxWebhookBodySize+1), "sig")

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d", rr.Code)
	}
}
