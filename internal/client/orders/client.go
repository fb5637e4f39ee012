package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

const defaultTimeout = 10 * time.Second

// Client — HTTP-клиент backend API заказов. Все вызовы авторизуются
// bearer-токеном, читаемым из TokenSource на каждый запрос.
// Клиент никогда не повторяет запросы сам: повторная отправка — это новое
// действие пользователя с новым merchant uid.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     domain.TokenSource
	logger     *log.Entry
}

// New создаёт клиент backend API.
func New(baseURL string, tokens domain.TokenSource, logger *log.Entry) *Client {
	if logger == nil {
		logger = log.New().WithField("component", "orders-client")
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		tokens:     tokens,
		logger:     logger,
	}
}

// NewWithHTTPClient создаёт клиент с кастомным http.Client (для тестов).
func NewWithHTTPClient(baseURL string, tokens domain.TokenSource, httpClient *http.Client, logger *log.Entry) *Client {
	c := New(baseURL, tokens, logger)
	if httpClient != nil {
		c.httpClient = httpClient
	}
	return c
}

type cartItemPayload struct {
	ProductID string `json:"productId"`
	Quantity  int32  `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
}

type createDraftPayload struct {
	MerchantUID       string            `json:"merchant_uid"`
	PayMethod         string            `json:"pay_method"`
	Amount            int64             `json:"amount"`
	Name              string            `json:"name"`
	BuyerName         string            `json:"buyer_name"`
	BuyerEmail        string            `json:"buyer_email"`
	BuyerTel          string            `json:"buyer_tel"`
	Apartment         string            `json:"apartment"`
	City              string            `json:"city"`
	StreetName        string            `json:"street_name"`
	PostCode          string            `json:"post_code"`
	Country           string            `json:"country"`
	AdditionalMessage string            `json:"additional_message,omitempty"`
	CartItems         []cartItemPayload `json:"cartItems"`
}

type createDraftResponse struct {
	OrderID string `json:"order_id"`
}

type confirmPaymentPayload struct {
	OrderID     string `json:"order_id"`
	MerchantUID string `json:"merchant_uid"`
	ImpUID      string `json:"imp_uid"`
	PayMethod   string `json:"pay_method"`
	PaidAmount  int64  `json:"paid_amount"`
	Status      string `json:"status"`
	Success     bool   `json:"success"`
}

type confirmDeliveryPayload struct {
	OrderID string `json:"order_id"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// CreateDraft создаёт pending-заказ и возвращает назначенный backend'ом order id.
// Любой не-2xx ответ останавливает поток: без подтверждённого черновика виджет
// не вызывается, иначе появился бы платёж без заказа.
func (c *Client) CreateDraft(ctx context.Context, draft domain.OrderDraft, merchantUID string) (string, error) {
	items := make([]cartItemPayload, 0, len(draft.Items))
	for _, item := range draft.Items {
		items = append(items, cartItemPayload{
			ProductID: item.ProductID,
			Quantity:  item.Qty,
			UnitPrice: item.PriceMinor,
		})
	}

	payload := createDraftPayload{
		MerchantUID:       merchantUID,
		PayMethod:         "card",
		Amount:            draft.TotalMinor,
		Name:              fmt.Sprintf("%s order payment", draft.Shipping.BuyerName),
		BuyerName:         draft.Shipping.BuyerName,
		BuyerEmail:        draft.Shipping.Email,
		BuyerTel:          draft.Shipping.Phone,
		Apartment:         draft.Shipping.Apartment,
		City:              draft.Shipping.City,
		StreetName:        draft.Shipping.Street,
		PostCode:          draft.Shipping.PostCode,
		Country:           draft.Shipping.Country,
		AdditionalMessage: draft.Shipping.Note,
		CartItems:         items,
	}

	var resp createDraftResponse
	if err := c.do(ctx, http.MethodPost, "/orders/checkout", "create draft", payload, &resp); err != nil {
		return "", err
	}
	if resp.OrderID == "" {
		return "", &domain.BackendError{Op: "create draft", StatusCode: http.StatusOK, Message: "response without order_id"}
	}
	return resp.OrderID, nil
}

// ConfirmPayment отправляет результат callback'а на финальную проверку backend.
// Backend — единственный авторитет: наблюдаемый клиентом успех оплатой не считается.
func (c *Client) ConfirmPayment(ctx context.Context, confirmation domain.PaymentConfirmation) error {
	payload := confirmPaymentPayload{
		OrderID:     confirmation.OrderID,
		MerchantUID: confirmation.MerchantUID,
		ImpUID:      confirmation.ProviderTxID,
		PayMethod:   confirmation.PayMethod,
		PaidAmount:  confirmation.PaidAmountMinor,
		Status:      confirmation.Status,
		Success:     true,
	}
	return c.do(ctx, http.MethodPost, "/orders/checkout/complete", "confirm payment", payload, nil)
}

// ConfirmDelivery помечает заказ доставленным.
func (c *Client) ConfirmDelivery(ctx context.Context, orderID string) error {
	payload := confirmDeliveryPayload{OrderID: orderID}
	return c.do(ctx, http.MethodPut, "/orders/delivery/confirm", "confirm delivery", payload, nil)
}

func (c *Client) do(ctx context.Context, method, path, op string, payload, out interface{}) error {
	token, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: marshal payload: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("path", path).Warn("backend request failed")
		return &domain.BackendError{Op: op, StatusCode: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.BackendError{Op: op, StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// readErrorMessage достаёт message из тела ошибки; тело не обязано быть JSON.
func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}

	var body errorResponse
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return strings.TrimSpace(string(data))
}

var _ domain.OrdersBackend = (*Client)(nil)
