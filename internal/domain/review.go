package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// RatingMin и RatingMax задают допустимый диапазон оценки.
	RatingMin = 1
	RatingMax = 5
)

// Review — отзыв пользователя о товаре.
// Пара (user, product) уникальна: один отзыв на товар от одного пользователя.
type Review struct {
	ID        string
	ProductID string
	UserID    string
	// Rating — целая оценка от 1 до 5.
	Rating    int32
	Comment   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateInvariants проверяет базовые инварианты отзыва.
func (r *Review) ValidateInvariants() []error {
	var errs []error

	if r.ProductID == "" {
		errs = append(errs, ErrReviewProductRequired)
	}
	if r.UserID == "" {
		errs = append(errs, ErrReviewUserRequired)
	}
	if r.Rating < RatingMin || r.Rating > RatingMax {
		errs = append(errs, ErrRatingOutOfRange)
	}

	return errs
}

// RatingAggregate — производная сводка (средний рейтинг, количество),
// хранящаяся на товаре и пересчитываемая при каждой мутации отзывов.
type RatingAggregate struct {
	// Average пуст (Valid=false), если отзывов нет.
	Average decimal.NullDecimal
	Count   int32
}

// AggregateRatings пересчитывает сводку рейтинга по множеству оценок.
// Среднее округляется до одного знака по правилу half-up;
// пустое множество даёт неопределённое среднее и нулевой счётчик.
func AggregateRatings(ratings []int32) RatingAggregate {
	if len(ratings) == 0 {
		return RatingAggregate{}
	}

	sum := decimal.Zero
	for _, r := range ratings {
		sum = sum.Add(decimal.NewFromInt32(r))
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(ratings)))).Round(1)

	return RatingAggregate{
		Average: decimal.NewNullDecimal(avg),
		Count:   int32(len(ratings)),
	}
}
