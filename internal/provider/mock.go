package provider

import (
	"sync"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// MockProvider — платёжный провайдер для локальной разработки и тестов.
// Результат конфигурируется; callback доставляется вручную через Dispatch,
// имитируя асинхронный ответ внешнего виджета.
type MockProvider struct {
	mu sync.Mutex

	InitErr    error
	RequestErr error

	initCalls    int
	requestCalls int
	closed       bool

	pending map[string]domain.PaymentCallback
}

// NewMockProvider создаёт mock-провайдер.
func NewMockProvider() *MockProvider {
	return &MockProvider{pending: make(map[string]domain.PaymentCallback)}
}

// Init имитирует инициализацию виджета.
func (m *MockProvider) Init(_ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initCalls++
	return m.InitErr
}

// RequestPayment регистрирует callback, не вызывая его: результат доставляется
// позже через Dispatch, как это делает реальный виджет.
func (m *MockProvider) RequestPayment(request domain.PaymentRequest, onResult domain.PaymentCallback) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requestCalls++
	if m.RequestErr != nil {
		return m.RequestErr
	}
	m.pending[request.MerchantUID] = onResult
	return nil
}

// Dispatch доставляет результат зарегистрированному callback'у ровно один раз.
func (m *MockProvider) Dispatch(merchantUID string, result domain.PaymentResult) error {
	m.mu.Lock()
	callback, ok := m.pending[merchantUID]
	if ok {
		delete(m.pending, merchantUID)
	}
	m.mu.Unlock()

	if !ok {
		return domain.ErrUnknownPayment
	}
	callback(result)
	return nil
}

// Close помечает провайдер закрытым и сбрасывает ожидающие callback'и.
func (m *MockProvider) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.pending = make(map[string]domain.PaymentCallback)
	return nil
}

// RequestCalls возвращает число запросов к виджету (для тестов).
func (m *MockProvider) RequestCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCalls
}

// Closed сообщает, был ли провайдер закрыт (для тестов).
func (m *MockProvider) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ domain.PaymentProvider = (*MockProvider)(nil)
var _ domain.ResultDispatcher = (*MockProvider)(nil)
