package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Ошибка отсутствующего имени покупателя.
	ErrBuyerNameRequired = errors.New("buyer_name is required")
	// Ошибка отсутствующего email покупателя.
	ErrEmailRequired = errors.New("email is required")
	// Ошибка отсутствующего телефона покупателя.
	ErrPhoneRequired = errors.New("phone is required")
	// Ошибка отсутствующей улицы в адресе доставки.
	ErrStreetRequired = errors.New("street_name is required")
	// Ошибка отсутствующего номера квартиры/дома.
	ErrApartmentRequired = errors.New("apartment is required")
	// Ошибка отсутствующего почтового индекса.
	ErrPostCodeRequired = errors.New("post_code is required")
	// Ошибка отсутствующего города.
	ErrCityRequired = errors.New("city is required")
	// Ошибка отсутствующей страны.
	ErrCountryRequired = errors.New("country is required")
	// Ошибка пустой корзины: без позиций оформлять нечего.
	ErrCartEmpty = errors.New("cart must contain at least one item")
	// Ошибка неположительной итоговой суммы.
	ErrTotalInvalid = errors.New("total_minor must be greater than zero")
	// Ошибка несоответствия итоговой суммы и сумм позиций.
	ErrTotalMismatch = errors.New("total_minor does not match items sum")
	// Ошибка некорректного количества в позиции (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка отрицательной цены позиции.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")

	// ErrSessionNotFound возвращается, если checkout-сессия не найдена в репозитории.
	ErrSessionNotFound = errors.New("checkout session not found")
	// ErrSessionExists сигнализирует о повторном использовании merchant uid.
	ErrSessionExists = errors.New("checkout session already exists")
	// ErrSessionVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrSessionVersionConflict = errors.New("checkout session version conflict")

	// ErrDuplicateCallback — повторный callback по тому же merchant uid; игнорируется.
	ErrDuplicateCallback = errors.New("payment callback already processed")
	// ErrUnknownPayment — callback по merchant uid, для которого платёж не запрашивался.
	ErrUnknownPayment = errors.New("payment result for unknown merchant uid")
	// ErrAmountMismatch — оплаченная сумма не совпадает с суммой черновика; сигнал мошенничества/ошибки.
	ErrAmountMismatch = errors.New("paid amount does not match draft total")

	// ErrProviderNotInitialized — платёжный виджет не инициализирован мерчантом.
	ErrProviderNotInitialized = errors.New("payment provider is not initialized")
	// ErrWidgetUnavailable — внешний виджет недоступен; поток останавливается до оплаты.
	ErrWidgetUnavailable = errors.New("payment widget unavailable")

	// ErrTokenMissing — в хранилище нет bearer-токена для авторизации запросов.
	ErrTokenMissing = errors.New("bearer token is not set")
	// ErrTokenExpired — сохранённый токен просрочен.
	ErrTokenExpired = errors.New("bearer token is expired")
)

// ValidationError агрегирует нарушения инвариантов черновика заказа.
// Ошибка клиентская: сетевых вызовов при ней не происходит.
type ValidationError struct {
	Errs []error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		msgs = append(msgs, err.Error())
	}
	return "draft validation failed: " + strings.Join(msgs, "; ")
}

// Unwrap отдаёт вложенные ошибки для errors.Is по конкретным полям.
func (e *ValidationError) Unwrap() []error {
	return e.Errs
}

// BackendError описывает отказ backend API (создание черновика или reconcile).
type BackendError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s failed: status=%d message=%q", e.Op, e.StatusCode, e.Message)
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий сессии.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrSessionVersionConflict)
}
