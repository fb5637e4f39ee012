package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

type fakeService struct {
	submitUID string
	submitErr error

	sessions map[string]domain.CheckoutSession

	abandonErr         error
	confirmDeliveryErr error

	lastDraft   domain.OrderDraft
	abandonUIDs []string
}

func (s *fakeService) Submit(_ context.Context, draft domain.OrderDraft) (string, error) {
	s.lastDraft = draft
	if s.submitErr != nil {
		return "", s.submitErr
	}
	return s.submitUID, nil
}

func (s *fakeService) Session(merchantUID string) (domain.CheckoutSession, error) {
	session, ok := s.sessions[merchantUID]
	if !ok {
		return domain.CheckoutSession{}, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *fakeService) Abandon(_ context.Context, merchantUID, _ string) error {
	s.abandonUIDs = append(s.abandonUIDs, merchantUID)
	return s.abandonErr
}

func (s *fakeService) ConfirmDelivery(_ context.Context, _ string) error {
	return s.confirmDeliveryErr
}

type fakeDispatcher struct {
	err     error
	results map[string]domain.PaymentResult
}

func (d *fakeDispatcher) Dispatch(merchantUID string, result domain.PaymentResult) error {
	if d.results == nil {
		d.results = make(map[string]domain.PaymentResult)
	}
	d.results[merchantUID] = result
	return d.err
}

type fakeTokens struct {
	set []string
}

func (t *fakeTokens) Set(raw string) { t.set = append(t.set, raw) }

func submitBody() []byte {
	body, _ := json.Marshal(map[string]any{
		"amount":      2000,
		"buyer_name":  "Ivan Petrov",
		"buyer_email": "ivan@example.com",
		"buyer_tel":   "+79001234567",
		"apartment":   "25",
		"city":        "Moscow",
		"street_name": "Lenina 1",
		"post_code":   "101000",
		"country":     "RU",
		"cartItems": []map[string]any{
			{"productId": "42", "quantity": 2, "unitPrice": 1000},
		},
	})
	return body
}

func TestSubmit_Accepted(t *testing.T) {
	service := &fakeService{
		submitUID: "mid_1",
		sessions: map[string]domain.CheckoutSession{
			"mid_1": {MerchantUID: "mid_1", OrderID: "order-77", Status: domain.CheckoutStatusAwaitingPayment},
		},
	}
	tokens := &fakeTokens{}
	api := New(service, &fakeDispatcher{}, tokens, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(submitBody()))
	req.Header.Set("Authorization", "Bearer tok-1")
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}

	var resp submitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.MerchantUID != "mid_1" || resp.OrderID != "order-77" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Status != "awaiting_payment" {
		t.Fatalf("unexpected status: %s", resp.Status)
	}

	if len(tokens.set) != 1 || tokens.set[0] != "Bearer tok-1" {
		t.Fatalf("authorization header must reach token sink, got %v", tokens.set)
	}
	if service.lastDraft.TotalMinor != 2000 || len(service.lastDraft.Items) != 1 {
		t.Fatalf("draft not mapped from body: %+v", service.lastDraft)
	}
	if service.lastDraft.Shipping.Street != "Lenina 1" {
		t.Fatalf("street not mapped: %q", service.lastDraft.Shipping.Street)
	}
}

func TestSubmit_ValidationErrors(t *testing.T) {
	service := &fakeService{
		submitErr: &domain.ValidationError{Errs: []error{domain.ErrBuyerNameRequired, domain.ErrCartEmpty}},
	}
	api := New(service, &fakeDispatcher{}, &fakeTokens{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var body struct {
		Error   string   `json:"error"`
		Details []string `json:"details"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error != "validation_failed" {
		t.Fatalf("unexpected error code: %s", body.Error)
	}
	if len(body.Details) != 2 {
		t.Fatalf("expected 2 details, got %v", body.Details)
	}
}

func TestSubmit_BackendRejection(t *testing.T) {
	service := &fakeService{
		submitErr: &domain.BackendError{Op: "create draft", StatusCode: 409, Message: "out of stock"},
	}
	api := New(service, &fakeDispatcher{}, &fakeTokens{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(submitBody()))
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestSubmit_MissingToken(t *testing.T) {
	service := &fakeService{submitErr: domain.ErrTokenMissing}
	api := New(service, &fakeDispatcher{}, &fakeTokens{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(submitBody()))
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func callbackBody(merchantUID string) []byte {
	body, _ := json.Marshal(map[string]any{
		"merchant_uid": merchantUID,
		"success":      true,
		"imp_uid":      "imp_555",
		"pay_method":   "card",
		"paid_amount":  2000,
		"status":       "paid",
	})
	return body
}

func TestCallback_PaidReturnsRedirect(t *testing.T) {
	service := &fakeService{
		sessions: map[string]domain.CheckoutSession{
			"mid_1": {MerchantUID: "mid_1", OrderID: "order-77", Status: domain.CheckoutStatusPaid},
		},
	}
	dispatcher := &fakeDispatcher{}
	api := New(service, dispatcher, &fakeTokens{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback", bytes.NewReader(callbackBody("mid_1")))
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}

	var resp callbackResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Redirect != "/" {
		t.Fatalf("paid callback must return redirect, got %+v", resp)
	}

	got := dispatcher.results["mid_1"]
	if got.ProviderTxID != "imp_555" || got.PaidAmountMinor != 2000 {
		t.Fatalf("result not mapped: %+v", got)
	}
}

func TestCallback_DeclinedNoRedirect(t *testing.T) {
	service := &fakeService{
		sessions: map[string]domain.CheckoutSession{
			"mid_1": {
				MerchantUID:   "mid_1",
				Status:        domain.CheckoutStatusFailed,
				FailureCode:   domain.FailureCodeDeclined,
				FailureReason: "user cancelled the payment",
			},
		},
	}
	api := New(service, &fakeDispatcher{}, &fakeTokens{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback", bytes.NewReader(callbackBody("mid_1")))
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var resp callbackResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Redirect != "" {
		t.Fatalf("failed callback must not return redirect, got %+v", resp)
	}
	if resp.ErrorMsg != "user cancelled the payment" {
		t.Fatalf("unexpected error_msg: %q", resp.ErrorMsg)
	}
}

func TestCallback_AmountMismatch(t *testing.T) {
	service := &fakeService{
		sessions: map[string]domain.CheckoutSession{
			"mid_1": {
				MerchantUID:   "mid_1",
				Status:        domain.CheckoutStatusFailed,
				FailureCode:   domain.FailureCodeAmountMismatch,
				FailureReason: domain.ErrAmountMismatch.Error(),
			},
		},
	}
	api := New(service, &fakeDispatcher{}, &fakeTokens{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback", bytes.NewReader(callbackBody("mid_1")))
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestCallback_AbandonedSession(t *testing.T) {
	service := &fakeService{
		sessions: map[string]domain.CheckoutSession{
			"mid_1": {MerchantUID: "mid_1", Status: domain.CheckoutStatusAbandoned},
		},
	}
	api := New(service, &fakeDispatcher{}, &fakeTokens{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback", bytes.NewReader(callbackBody("mid_1")))
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestCallback_DuplicateRejected(t *testing.T) {
	api := New(&fakeService{}, &fakeDispatcher{err: domain.ErrUnknownPayment}, &fakeTokens{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback", bytes.NewReader(callbackBody("mid_1")))
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestCallback_MissingMerchantUID(t *testing.T) {
	api := New(&fakeService{}, &fakeDispatcher{}, &fakeTokens{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback", bytes.NewReader([]byte(`{"success":true}`)))
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestSession_NotFound(t *testing.T) {
	api := New(&fakeService{}, &fakeDispatcher{}, &fakeTokens{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/checkout/mid_missing", nil)
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestSession_Found(t *testing.T) {
	service := &fakeService{
		sessions: map[string]domain.CheckoutSession{
			"mid_1": {MerchantUID: "mid_1", OrderID: "order-77", Status: domain.CheckoutStatusAwaitingPayment},
		},
	}
	api := New(service, &fakeDispatcher{}, &fakeTokens{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/checkout/mid_1", nil)
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var resp sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.OrderID != "order-77" || resp.Status != "awaiting_payment" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAbandon(t *testing.T) {
	service := &fakeService{}
	api := New(service, &fakeDispatcher{}, &fakeTokens{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/mid_1/abandon", bytes.NewReader([]byte(`{"reason":"closed widget"}`)))
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if len(service.abandonUIDs) != 1 || service.abandonUIDs[0] != "mid_1" {
		t.Fatalf("abandon not routed: %v", service.abandonUIDs)
	}
}

func TestAbandon_AlreadySettled(t *testing.T) {
	service := &fakeService{abandonErr: domain.ErrDuplicateCallback}
	api := New(service, &fakeDispatcher{}, &fakeTokens{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/mid_1/abandon", nil)
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestConfirmDelivery(t *testing.T) {
	api := New(&fakeService{}, &fakeDispatcher{}, &fakeTokens{}, nil)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/orders/order-77/delivery/confirm", nil)
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestConfirmDelivery_BackendRejects(t *testing.T) {
	service := &fakeService{
		confirmDeliveryErr: &domain.BackendError{Op: "confirm delivery", StatusCode: 404, Message: "order not found"},
	}
	api := New(service, &fakeDispatcher{}, &fakeTokens{}, nil)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/orders/order-77/delivery/confirm", nil)
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}
