package domain

// PaymentRequest описывает запрос к платёжному виджету.
// Поля повторяют wire-формат виджета (merchant_uid, buyer_*, street_name и т.д.).
type PaymentRequest struct {
	MerchantUID string
	PayMethod   string
	AmountMinor int64
	// Name — человекочитаемое описание платежа, показывается в виджете.
	Name       string
	BuyerName  string
	BuyerEmail string
	BuyerTel   string
	Apartment  string
	City       string
	StreetName string
	PostCode   string
	Country    string
	// AdditionalMessage — необязательный комментарий покупателя к заказу.
	AdditionalMessage string
	Items             []CartItem
}

// PaymentResult — асинхронный результат от виджета. Потребляется ровно один раз
// и имеет смысл только в связке со своим merchant uid: применять устаревший
// результат к новому черновику нельзя.
type PaymentResult struct {
	Success bool
	// ErrorMsg заполнен только при Success == false.
	ErrorMsg string
	// ProviderTxID — непрозрачный идентификатор платежа у провайдера (imp_uid).
	ProviderTxID string
	PayMethod    string
	// PaidAmountMinor обязан совпадать с суммой черновика; расхождение —
	// сигнал ошибки или подмены, а не повод молча продолжить.
	PaidAmountMinor int64
	Status          string
}

// PaymentConfirmation — полезная нагрузка reconcile-запроса к backend.
// Backend обязан независимо проверить платёж у провайдера: наблюдаемый клиентом
// PaymentResult доказательством оплаты не считается.
type PaymentConfirmation struct {
	OrderID         string
	MerchantUID     string
	ProviderTxID    string
	PayMethod       string
	PaidAmountMinor int64
	Status          string
}
