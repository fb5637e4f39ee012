package domain

import "time"

// CheckoutStatus описывает жизненный цикл checkout-сессии.
type CheckoutStatus string

const (
	// CheckoutStatusAwaitingPayment — черновик создан на backend, ждём callback виджета.
	// Клиентского таймаута нет: если callback так и не пришёл, сессия остаётся
	// в этом статусе, а истечение брошенных черновиков — забота backend.
	CheckoutStatusAwaitingPayment CheckoutStatus = "awaiting_payment"
	// CheckoutStatusReconciling — callback получен, идёт подтверждение на backend.
	// Переход сюда выполняется ровно один раз на merchant uid.
	CheckoutStatusReconciling CheckoutStatus = "reconciling"
	// CheckoutStatusPaid — backend подтвердил оплату; только после этого можно
	// показывать пользователю успех.
	CheckoutStatusPaid CheckoutStatus = "paid"
	// CheckoutStatusFailed — провайдер отклонил платёж либо backend отверг reconcile.
	CheckoutStatusFailed CheckoutStatus = "failed"
	// CheckoutStatusAbandoned — пользователь явно прервал оплату до callback'а.
	CheckoutStatusAbandoned CheckoutStatus = "abandoned"
)

// FailureCode — машинно-читаемая классификация отказа сессии.
// FailureReason хранит человекочитаемый текст, код — то, на что можно
// ветвиться без сравнения строк ошибок.
type FailureCode string

const (
	// FailureCodeDeclined — провайдер отклонил платёж либо пользователь его отменил.
	FailureCodeDeclined FailureCode = "declined"
	// FailureCodeAmountMismatch — оплаченная сумма не совпала с суммой черновика.
	FailureCodeAmountMismatch FailureCode = "amount_mismatch"
	// FailureCodeReconcileRejected — backend отверг подтверждение оплаты.
	FailureCodeReconcileRejected FailureCode = "reconcile_rejected"
	// FailureCodeWidgetError — виджет не принял запрос на оплату.
	FailureCodeWidgetError FailureCode = "widget_error"
)

// Terminal сообщает, завершён ли жизненный цикл сессии.
func (s CheckoutStatus) Terminal() bool {
	switch s {
	case CheckoutStatusPaid, CheckoutStatusFailed, CheckoutStatusAbandoned:
		return true
	default:
		return false
	}
}

// CheckoutSession связывает merchant uid, черновик, назначенный backend'ом
// order id и текущее состояние потока. Сессия заменяет глобальную переменную
// order_id: состояние передаётся явно и не пересекается между отправками.
type CheckoutSession struct {
	// MerchantUID уникален для каждой попытки отправки и служит ключом
	// корреляции запроса к виджету с его callback'ом.
	MerchantUID string
	// OrderID — идентификатор, выданный backend'ом при создании черновика.
	// После получения клиент хранит его как неизменяемую копию.
	OrderID string
	Draft   OrderDraft
	Status  CheckoutStatus
	// FailureReason заполняется при отказе провайдера или backend.
	FailureReason string
	// FailureCode классифицирует отказ; пустой вне статуса failed.
	FailureCode FailureCode
	// ProviderTxID и PaidAmountMinor фиксируются из callback'а.
	ProviderTxID    string
	PaidAmountMinor int64
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
