package iamport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

const requestTimeout = 10 * time.Second

// Provider — адаптер внешнего платёжного виджета Iamport-типа.
// RequestPayment передаёт параметры платежа виджету и регистрирует callback;
// результат приходит позже отдельным запросом и маршрутизируется через Dispatch.
// Каждый merchant uid потребляет свой результат ровно один раз.
type Provider struct {
	widgetURL  string
	httpClient *http.Client
	logger     *log.Entry

	mu         sync.Mutex
	merchantID string
	pending    map[string]domain.PaymentCallback
}

// New создаёт адаптер виджета.
func New(widgetURL string, logger *log.Entry) *Provider {
	if logger == nil {
		logger = log.New().WithField("component", "iamport-provider")
	}
	return &Provider{
		widgetURL:  strings.TrimRight(widgetURL, "/"),
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
		pending:    make(map[string]domain.PaymentCallback),
	}
}

// NewWithHTTPClient создаёт адаптер с кастомным http.Client (для тестов).
func NewWithHTTPClient(widgetURL string, httpClient *http.Client, logger *log.Entry) *Provider {
	p := New(widgetURL, logger)
	if httpClient != nil {
		p.httpClient = httpClient
	}
	return p
}

// Init инициализирует виджет идентификатором мерчанта. Идемпотентен:
// повторный вызов с тем же id безопасен.
func (p *Provider) Init(merchantID string) error {
	if strings.TrimSpace(merchantID) == "" {
		return fmt.Errorf("merchant id is required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.merchantID != "" && p.merchantID != merchantID {
		return fmt.Errorf("provider already initialized with another merchant id")
	}
	p.merchantID = merchantID
	return nil
}

type widgetRequest struct {
	MerchantID        string       `json:"merchant_id"`
	MerchantUID       string       `json:"merchant_uid"`
	PayMethod         string       `json:"pay_method"`
	Amount            int64        `json:"amount"`
	Name              string       `json:"name"`
	BuyerName         string       `json:"buyer_name"`
	BuyerEmail        string       `json:"buyer_email"`
	BuyerTel          string       `json:"buyer_tel"`
	Apartment         string       `json:"apartment"`
	City              string       `json:"city"`
	StreetName        string       `json:"street_name"`
	PostCode          string       `json:"post_code"`
	Country           string       `json:"country"`
	AdditionalMessage string       `json:"additional_message,omitempty"`
	CartItems         []widgetItem `json:"cartItems"`
}

type widgetItem struct {
	ProductID string `json:"productId"`
	Quantity  int32  `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
}

// RequestPayment передаёт параметры платежа виджету и регистрирует callback.
// Вызов fire-and-forget: callback может не прийти вовсе, если пользователь
// закрыл виджет; никаких таймаутов и повторов здесь нет.
func (p *Provider) RequestPayment(request domain.PaymentRequest, onResult domain.PaymentCallback) error {
	p.mu.Lock()
	if p.merchantID == "" {
		p.mu.Unlock()
		return domain.ErrProviderNotInitialized
	}
	merchantID := p.merchantID
	p.mu.Unlock()

	items := make([]widgetItem, 0, len(request.Items))
	for _, item := range request.Items {
		items = append(items, widgetItem{ProductID: item.ProductID, Quantity: item.Qty, UnitPrice: item.PriceMinor})
	}
	payload := widgetRequest{
		MerchantID:        merchantID,
		MerchantUID:       request.MerchantUID,
		PayMethod:         request.PayMethod,
		Amount:            request.AmountMinor,
		Name:              request.Name,
		BuyerName:         request.BuyerName,
		BuyerEmail:        request.BuyerEmail,
		BuyerTel:          request.BuyerTel,
		Apartment:         request.Apartment,
		City:              request.City,
		StreetName:        request.StreetName,
		PostCode:          request.PostCode,
		Country:           request.Country,
		AdditionalMessage: request.AdditionalMessage,
		CartItems:         items,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal widget request: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.widgetURL+"/payments/request", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build widget request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// Callback регистрируется до запроса к виджету: результат, присланный
	// пока запрос ещё в полёте, должен найти своего получателя. Если виджет
	// не принял запрос, регистрация снимается.
	p.mu.Lock()
	p.pending[request.MerchantUID] = onResult
	p.mu.Unlock()

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.unregister(request.MerchantUID)
		p.logger.WithError(err).Error("widget is unreachable")
		return domain.ErrWidgetUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.unregister(request.MerchantUID)
		p.logger.WithField("status", resp.StatusCode).Error("widget rejected payment request")
		return domain.ErrWidgetUnavailable
	}

	p.logger.WithField("merchant_uid", request.MerchantUID).Info("payment handed off to widget")
	return nil
}

func (p *Provider) unregister(merchantUID string) {
	p.mu.Lock()
	delete(p.pending, merchantUID)
	p.mu.Unlock()
}

// Dispatch маршрутизирует входящий результат к callback'у его merchant uid.
// Результат потребляется ровно один раз: повтор или неизвестный uid — ErrUnknownPayment.
func (p *Provider) Dispatch(merchantUID string, result domain.PaymentResult) error {
	p.mu.Lock()
	callback, ok := p.pending[merchantUID]
	if ok {
		delete(p.pending, merchantUID)
	}
	p.mu.Unlock()

	if !ok {
		p.logger.WithField("merchant_uid", merchantUID).Warn("payment result for unknown merchant uid")
		return domain.ErrUnknownPayment
	}

	callback(result)
	return nil
}

// Close освобождает ресурсы виджета. Ожидающие callback'и сбрасываются:
// после закрытия результатов уже не будет.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	dropped := len(p.pending)
	p.pending = make(map[string]domain.PaymentCallback)
	p.merchantID = ""
	if dropped > 0 {
		p.logger.WithField("dropped", dropped).Warn("provider closed with pending callbacks")
	}
	return nil
}

var _ domain.PaymentProvider = (*Provider)(nil)
var _ domain.ResultDispatcher = (*Provider)(nil)
