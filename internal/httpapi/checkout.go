package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/respond"
)

// CheckoutService — контракт оркестратора, потребляемый HTTP-слоем.
type CheckoutService interface {
	Submit(ctx context.Context, draft domain.OrderDraft) (string, error)
	Session(merchantUID string) (domain.CheckoutSession, error)
	Abandon(ctx context.Context, merchantUID, reason string) error
	ConfirmDelivery(ctx context.Context, orderID string) error
}

// TokenSink принимает bearer-токен, пришедший с запросом пользователя.
type TokenSink interface {
	Set(raw string)
}

// CheckoutAPI — HTTP-интерфейс checkout-потока.
type CheckoutAPI struct {
	service    CheckoutService
	dispatcher domain.ResultDispatcher
	tokens     TokenSink
	logger     *log.Entry
}

// New создаёт HTTP API поверх оркестратора.
func New(service CheckoutService, dispatcher domain.ResultDispatcher, tokens TokenSink, logger *log.Entry) *CheckoutAPI {
	if logger == nil {
		logger = log.New().WithField("component", "httpapi")
	}
	return &CheckoutAPI{
		service:    service,
		dispatcher: dispatcher,
		tokens:     tokens,
		logger:     logger,
	}
}

// Router собирает маршруты API.
func (a *CheckoutAPI) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/checkout", a.handleSubmit)
		r.Get("/checkout/{merchantUID}", a.handleSession)
		r.Post("/checkout/{merchantUID}/abandon", a.handleAbandon)
		r.Post("/payments/callback", a.handleCallback)
		r.Put("/orders/{orderID}/delivery/confirm", a.handleConfirmDelivery)
	})

	return r
}

type submitItem struct {
	ProductID string `json:"productId"`
	Quantity  int32  `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
}

type submitRequest struct {
	Amount            int64        `json:"amount"`
	BuyerName         string       `json:"buyer_name"`
	BuyerEmail        string       `json:"buyer_email"`
	BuyerTel          string       `json:"buyer_tel"`
	Apartment         string       `json:"apartment"`
	City              string       `json:"city"`
	StreetName        string       `json:"street_name"`
	PostCode          string       `json:"post_code"`
	Country           string       `json:"country"`
	AdditionalMessage string       `json:"additional_message"`
	CartItems         []submitItem `json:"cartItems"`
}

type submitResponse struct {
	MerchantUID string `json:"merchant_uid"`
	OrderID     string `json:"order_id"`
	Status      string `json:"status"`
}

// handleSubmit принимает форму checkout и запускает поток.
// Ответ 202: оплата асинхронна, итог сессии определит callback виджета.
func (a *CheckoutAPI) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if auth := r.Header.Get("Authorization"); auth != "" && a.tokens != nil {
		a.tokens.Set(auth)
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "malformed request body")
		return
	}

	draft := domain.OrderDraft{
		TotalMinor: req.Amount,
		Shipping: domain.ShippingInfo{
			BuyerName: req.BuyerName,
			Email:     req.BuyerEmail,
			Phone:     req.BuyerTel,
			Street:    req.StreetName,
			Apartment: req.Apartment,
			PostCode:  req.PostCode,
			City:      req.City,
			Country:   req.Country,
			Note:      req.AdditionalMessage,
		},
	}
	for _, item := range req.CartItems {
		draft.Items = append(draft.Items, domain.CartItem{
			ProductID:  item.ProductID,
			Qty:        item.Quantity,
			PriceMinor: item.UnitPrice,
		})
	}

	merchantUID, err := a.service.Submit(r.Context(), draft)
	if err != nil {
		a.writeSubmitError(w, err)
		return
	}

	session, err := a.service.Session(merchantUID)
	if err != nil {
		a.logger.WithError(err).Error("submitted session is not readable")
		respond.Internal(w, "internal error")
		return
	}

	respond.JSON(w, http.StatusAccepted, submitResponse{
		MerchantUID: merchantUID,
		OrderID:     session.OrderID,
		Status:      string(session.Status),
	})
}

func (a *CheckoutAPI) writeSubmitError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		details := make([]string, 0, len(validationErr.Errs))
		for _, fieldErr := range validationErr.Errs {
			details = append(details, fieldErr.Error())
		}
		respond.ErrorWithDetails(w, http.StatusBadRequest, "validation_failed", "draft validation failed", details)
		return
	}

	if errors.Is(err, domain.ErrTokenMissing) || errors.Is(err, domain.ErrTokenExpired) {
		respond.Error(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	var backendErr *domain.BackendError
	if errors.As(err, &backendErr) {
		respond.BadGateway(w, backendErr.Message)
		return
	}
	if errors.Is(err, domain.ErrWidgetUnavailable) {
		respond.BadGateway(w, err.Error())
		return
	}

	a.logger.WithError(err).Error("checkout submit failed")
	respond.Internal(w, "internal error")
}

type callbackRequest struct {
	MerchantUID string `json:"merchant_uid"`
	Success     bool   `json:"success"`
	ErrorMsg    string `json:"error_msg"`
	ImpUID      string `json:"imp_uid"`
	PayMethod   string `json:"pay_method"`
	PaidAmount  int64  `json:"paid_amount"`
	Status      string `json:"status"`
}

type callbackResponse struct {
	Status   string `json:"status"`
	Redirect string `json:"redirect,omitempty"`
	ErrorMsg string `json:"error_msg,omitempty"`
}

// handleCallback принимает асинхронный результат от платёжного виджета.
// Redirect отдаётся только при подтверждённой backend'ом оплате.
func (a *CheckoutAPI) handleCallback(w http.ResponseWriter, r *http.Request) {
	var req callbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "malformed request body")
		return
	}
	if strings.TrimSpace(req.MerchantUID) == "" {
		respond.BadRequest(w, "merchant_uid is required")
		return
	}

	result := domain.PaymentResult{
		Success:         req.Success,
		ErrorMsg:        req.ErrorMsg,
		ProviderTxID:    req.ImpUID,
		PayMethod:       req.PayMethod,
		PaidAmountMinor: req.PaidAmount,
		Status:          req.Status,
	}
	if err := a.dispatcher.Dispatch(req.MerchantUID, result); err != nil {
		if errors.Is(err, domain.ErrUnknownPayment) {
			respond.Conflict(w, "payment result already consumed or unknown")
			return
		}
		a.logger.WithError(err).Error("payment result dispatch failed")
		respond.Internal(w, "internal error")
		return
	}

	session, err := a.service.Session(req.MerchantUID)
	if err != nil {
		a.logger.WithError(err).Error("session is not readable after callback")
		respond.Internal(w, "internal error")
		return
	}

	switch session.Status {
	case domain.CheckoutStatusPaid:
		respond.JSON(w, http.StatusOK, callbackResponse{Status: string(session.Status), Redirect: "/"})
	case domain.CheckoutStatusAbandoned:
		// Пользователь прервал оплату раньше, чем пришёл результат.
		respond.Conflict(w, "checkout session is already settled")
	case domain.CheckoutStatusFailed:
		if session.FailureCode == domain.FailureCodeAmountMismatch {
			respond.Unprocessable(w, session.FailureReason)
			return
		}
		respond.JSON(w, http.StatusOK, callbackResponse{Status: string(session.Status), ErrorMsg: session.FailureReason})
	default:
		respond.JSON(w, http.StatusAccepted, callbackResponse{Status: string(session.Status)})
	}
}

type sessionResponse struct {
	MerchantUID   string `json:"merchant_uid"`
	OrderID       string `json:"order_id,omitempty"`
	Status        string `json:"status"`
	FailureCode   string `json:"failure_code,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
}

func (a *CheckoutAPI) handleSession(w http.ResponseWriter, r *http.Request) {
	merchantUID := chi.URLParam(r, "merchantUID")

	session, err := a.service.Session(merchantUID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			respond.NotFound(w, "checkout session not found")
			return
		}
		a.logger.WithError(err).Error("session read failed")
		respond.Internal(w, "internal error")
		return
	}

	respond.JSON(w, http.StatusOK, sessionResponse{
		MerchantUID:   session.MerchantUID,
		OrderID:       session.OrderID,
		Status:        string(session.Status),
		FailureCode:   string(session.FailureCode),
		FailureReason: session.FailureReason,
	})
}

type abandonRequest struct {
	Reason string `json:"reason"`
}

func (a *CheckoutAPI) handleAbandon(w http.ResponseWriter, r *http.Request) {
	merchantUID := chi.URLParam(r, "merchantUID")

	var req abandonRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Reason == "" {
		req.Reason = "abandoned by user"
	}

	if err := a.service.Abandon(r.Context(), merchantUID, req.Reason); err != nil {
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			respond.NotFound(w, "checkout session not found")
		case errors.Is(err, domain.ErrDuplicateCallback):
			respond.Conflict(w, "checkout session is already settled")
		default:
			a.logger.WithError(err).Error("abandon failed")
			respond.Internal(w, "internal error")
		}
		return
	}

	respond.NoContent(w)
}

func (a *CheckoutAPI) handleConfirmDelivery(w http.ResponseWriter, r *http.Request) {
	if auth := r.Header.Get("Authorization"); auth != "" && a.tokens != nil {
		a.tokens.Set(auth)
	}

	orderID := chi.URLParam(r, "orderID")

	if err := a.service.ConfirmDelivery(r.Context(), orderID); err != nil {
		var backendErr *domain.BackendError
		if errors.As(err, &backendErr) {
			if backendErr.StatusCode == http.StatusNotFound {
				respond.NotFound(w, "order not found")
				return
			}
			respond.BadGateway(w, backendErr.Message)
			return
		}
		a.logger.WithError(err).Error("delivery confirmation failed")
		respond.Internal(w, "internal error")
		return
	}

	respond.NoContent(w)
}
