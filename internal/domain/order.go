package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает этап исполнения заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан и ждёт обработки.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusProcessing — заказ взят в работу.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped — заказ передан в доставку.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered — заказ получен покупателем.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled — заказ отменён.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid проверяет, что значение относится к поддерживаемым статусам.
// Граф переходов намеренно не ограничивается: статус меняет только администратор.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// PaymentStatus описывает состояние оплаты заказа; ось независима от OrderStatus.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Valid проверяет, что значение относится к поддерживаемым статусам оплаты.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	default:
		return false
	}
}

// OrderItem представляет одну позицию заказа.
// Поля копируются из позиции корзины при оформлении и после этого не меняются.
type OrderItem struct {
	ID          string
	OrderID     string
	ProductID   string
	ProductName string
	Qty         int32
	// UnitPrice — снимок цены на момент оформления; история неизменна,
	// даже если цена товара в каталоге потом поменяется.
	UnitPrice decimal.Decimal
	CreatedAt time.Time
}

// Subtotal возвращает стоимость позиции заказа.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt32(i.Qty))
}

// Order агрегирует состояние заказа и его позиции.
// После создания меняются только статусные поля.
type Order struct {
	ID              string
	UserID          string
	Status          OrderStatus
	PaymentStatus   PaymentStatus
	TotalAmount     decimal.Decimal
	ShippingAddress string
	Items           []OrderItem
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.UserID == "" {
		errs = append(errs, ErrOrderUserRequired)
	}
	if o.ShippingAddress == "" {
		errs = append(errs, ErrShippingAddressRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrOrderItemsRequired)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrOrderStatusInvalid)
	}
	if !o.PaymentStatus.Valid() {
		errs = append(errs, ErrPaymentStatusInvalid)
	}

	// Сверяем сумму заказа с суммой позиций: qty * price.
	calc := decimal.Zero
	for _, item := range o.Items {
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.UnitPrice.IsNegative() {
			errs = append(errs, ErrItemPriceInvalid)
		}
		calc = calc.Add(item.Subtotal())
	}
	if !calc.Equal(o.TotalAmount) {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}
