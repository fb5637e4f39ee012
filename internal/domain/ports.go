package domain

import "context"

// OrdersBackend описывает контракт backend REST API заказов, как он потребляется
// этим сервисом. Внутренняя логика заказов/склада — вне границ системы.
type OrdersBackend interface {
	// CreateDraft создаёт pending-заказ и возвращает назначенный order id.
	// Ровно одна запись на успешный вызов; молчаливых повторов быть не должно.
	CreateDraft(ctx context.Context, draft OrderDraft, merchantUID string) (string, error)
	// ConfirmPayment передаёт результат callback'а на финальную проверку.
	// Только успешный ответ backend делает заказ оплаченным.
	ConfirmPayment(ctx context.Context, confirmation PaymentConfirmation) error
	// ConfirmDelivery помечает заказ доставленным (история заказов).
	ConfirmDelivery(ctx context.Context, orderID string) error
}

// PaymentCallback вызывается провайдером ровно один раз с результатом платежа.
type PaymentCallback func(result PaymentResult)

// PaymentProvider абстрагирует внешний платёжный виджет, чтобы адаптер можно
// было подменить в тестах без обращения к реальному виджету.
type PaymentProvider interface {
	// Init инициализирует виджет идентификатором мерчанта. Идемпотентен:
	// повторный вызов с тем же id безопасен.
	Init(merchantID string) error
	// RequestPayment передаёт управление внешнему виджету. Вызов fire-and-forget:
	// результат возвращается только через onResult, и callback может не прийти
	// вовсе, если пользователь закрыл виджет.
	RequestPayment(request PaymentRequest, onResult PaymentCallback) error
	// Close освобождает ресурсы виджета на всех путях выхода.
	Close() error
}

// ResultDispatcher маршрутизирует входящий результат платежа к callback'у,
// зарегистрированному при RequestPayment. Повторная доставка по тому же
// merchant uid отклоняется.
type ResultDispatcher interface {
	Dispatch(merchantUID string, result PaymentResult) error
}

// TokenSource отдаёт bearer-токен для авторизации запросов к backend.
// Читается на каждый запрос; обновление токена — забота внешней auth-подсистемы.
type TokenSource interface {
	Token() (string, error)
}

// SessionRepository описывает требования к хранилищу checkout-сессий.
type SessionRepository interface {
	// Create сохраняет новую сессию. Возвращает ErrSessionExists, если
	// merchant uid уже занят (защита от переиспользования uid).
	Create(session CheckoutSession) error
	// Get возвращает сессию или ErrSessionNotFound.
	Get(merchantUID string) (CheckoutSession, error)
	// Save применяет обновления с учётом optimistic locking.
	Save(session CheckoutSession) error
}
