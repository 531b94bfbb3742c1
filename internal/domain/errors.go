package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего имени товара.
	ErrProductNameRequired = errors.New("product name is required")
	// Ошибка отрицательной цены товара.
	ErrProductPriceNegative = errors.New("product price must be non-negative")
	// Ошибка отрицательного складского остатка.
	ErrStockNegative = errors.New("stock quantity must be non-negative")
	// Ошибка отрицательного счётчика отзывов.
	ErrReviewCountNegative = errors.New("review count must be non-negative")
	// Ошибка отсутствующего владельца заказа.
	ErrOrderUserRequired = errors.New("order user_id is required")
	// Ошибка отсутствующего адреса доставки.
	ErrShippingAddressRequired = errors.New("shipping address is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrOrderItemsRequired = errors.New("order must contain at least one item")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrAmountMismatch = errors.New("order amount does not match items sum")
	// Ошибка неизвестного статуса заказа.
	ErrOrderStatusInvalid = errors.New("unknown order status")
	// Ошибка неизвестного статуса оплаты.
	ErrPaymentStatusInvalid = errors.New("unknown payment status")
	// Ошибка отсутствующего товара в отзыве.
	ErrReviewProductRequired = errors.New("review product_id is required")
	// Ошибка отсутствующего автора отзыва.
	ErrReviewUserRequired = errors.New("review user_id is required")
	// Ошибка оценки вне диапазона 1..5.
	ErrRatingOutOfRange = errors.New("rating must be between 1 and 5")

	// ErrProductNotFound возвращается, если товар не найден в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrCartItemNotFound возвращается, если позиции нет в корзине.
	ErrCartItemNotFound = errors.New("product is not in the cart")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrReviewNotFound возвращается, если отзыв не найден.
	ErrReviewNotFound = errors.New("review not found")
	// ErrEmptyCart — попытка оформить заказ из пустой корзины.
	ErrEmptyCart = errors.New("cannot place order for an empty cart")
	// ErrForbidden — субъект аутентифицирован, но не авторизован для целевой сущности.
	ErrForbidden = errors.New("access to the entity is forbidden")
	// ErrReviewExists — у пары (user, product) уже есть отзыв.
	ErrReviewExists = errors.New("review for this product already exists")
	// ErrReviewProductImmutable — попытка перенести отзыв на другой товар.
	ErrReviewProductImmutable = errors.New("review product cannot be changed")
	// ErrProductExists — конфликт уникальности при создании товара.
	ErrProductExists = errors.New("product already exists")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении заказа.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")

	// ErrIdempotencyKeyRequired — не передан idempotency-key.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	// ErrIdempotencyRequestHashRequired — не передан hash запроса.
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	// ErrIdempotencyKeyNotFound — запись по ключу отсутствует.
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
	// ErrIdempotencyKeyAlreadyExists — ключ уже зарегистрирован с тем же запросом.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyHashMismatch — ключ переиспользован с другим телом запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency key request hash mismatch")
)

// InsufficientStockError возвращается, когда запрошенное количество превышает
// доступный остаток. Available несёт остаток для пользовательского сообщения:
// при добавлении в корзину это остаток за вычетом уже лежащего в корзине количества.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Requested   int32
	Available   int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %q: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}

// IsInsufficientStock проверяет, является ли ошибка нехваткой остатка.
func IsInsufficientStock(err error) bool {
	var target *InsufficientStockError
	return errors.As(err, &target)
}

// IsNotFound проверяет, относится ли ошибка к отсутствующей сущности.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrCartItemNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrReviewNotFound)
}

// IsConflict проверяет, является ли ошибка нарушением уникальности.
func IsConflict(err error) bool {
	return errors.Is(err, ErrReviewExists) || errors.Is(err, ErrProductExists)
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}
