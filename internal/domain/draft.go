package domain

import "strings"

// CartItem представляет одну позицию корзины в черновике заказа.
type CartItem struct {
	// ProductID — внешний идентификатор товара.
	ProductID string
	// Qty — количество единиц товара.
	Qty int32
	// PriceMinor — цена за единицу в минимальных денежных единицах.
	PriceMinor int64
}

// ShippingInfo содержит данные покупателя и адрес доставки.
// Все поля, кроме Note, обязательны.
type ShippingInfo struct {
	BuyerName string
	Email     string
	Phone     string
	Street    string
	Apartment string
	PostCode  string
	City      string
	Country   string
	Note      string
}

// OrderDraft — клиентский черновик заказа до его подтверждения backend'ом.
// OrderID назначает backend; до этого момента черновик живёт только в памяти.
type OrderDraft struct {
	Items      []CartItem
	TotalMinor int64
	Shipping   ShippingInfo
}

// ValidateInvariants проверяет инварианты черновика и возвращает список замечаний.
// Проверка чистая, без I/O: любой пустой обязательный атрибут, пустая корзина
// или неположительная сумма блокируют дальнейший поток.
func (d *OrderDraft) ValidateInvariants() []error {
	var errs []error

	if blank(d.Shipping.BuyerName) {
		errs = append(errs, ErrBuyerNameRequired)
	}
	if blank(d.Shipping.Email) {
		errs = append(errs, ErrEmailRequired)
	}
	if blank(d.Shipping.Phone) {
		errs = append(errs, ErrPhoneRequired)
	}
	if blank(d.Shipping.Street) {
		errs = append(errs, ErrStreetRequired)
	}
	if blank(d.Shipping.Apartment) {
		errs = append(errs, ErrApartmentRequired)
	}
	if blank(d.Shipping.PostCode) {
		errs = append(errs, ErrPostCodeRequired)
	}
	if blank(d.Shipping.City) {
		errs = append(errs, ErrCityRequired)
	}
	if blank(d.Shipping.Country) {
		errs = append(errs, ErrCountryRequired)
	}
	if len(d.Items) == 0 {
		errs = append(errs, ErrCartEmpty)
	}
	if d.TotalMinor <= 0 {
		errs = append(errs, ErrTotalInvalid)
	}

	// Сверяем сумму черновика с суммой позиций: qty * price.
	// Клиентское значение совещательное, backend пересчитывает сам.
	var calc int64
	for _, item := range d.Items {
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		calc += int64(item.Qty) * item.PriceMinor
	}
	if len(d.Items) > 0 && calc != d.TotalMinor {
		errs = append(errs, ErrTotalMismatch)
	}

	return errs
}

// Validate сворачивает список нарушений в одну ValidationError (или nil).
func (d *OrderDraft) Validate() error {
	errs := d.ValidateInvariants()
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errs: errs}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
