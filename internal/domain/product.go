package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product описывает товар каталога вместе со складским остатком
// и агрегатом отзывов.
type Product struct {
	ID          string
	Name        string
	Description string
	// Price — цена за единицу; точная десятичная арифметика, без float.
	Price decimal.Decimal
	// StockQuantity — текущий остаток на складе; никогда не уходит в минус.
	StockQuantity int32
	ImageURL      string
	Category      string
	IsActive      bool
	// AverageRating — средний рейтинг с точностью до одного знака.
	// Valid=false означает, что отзывов у товара пока нет.
	AverageRating decimal.NullDecimal
	ReviewCount   int32
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ValidateInvariants проверяет базовые инварианты товара и возвращает список замечаний.
func (p *Product) ValidateInvariants() []error {
	var errs []error

	if p.Name == "" {
		errs = append(errs, ErrProductNameRequired)
	}
	if p.Price.IsNegative() {
		errs = append(errs, ErrProductPriceNegative)
	}
	if p.StockQuantity < 0 {
		errs = append(errs, ErrStockNegative)
	}
	if p.ReviewCount < 0 {
		errs = append(errs, ErrReviewCountNegative)
	}

	return errs
}

// LowOnStock сообщает, опустился ли остаток до порога уведомления о дозакупке.
func (p *Product) LowOnStock(threshold int32) bool {
	return p.StockQuantity <= threshold
}
