package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type reviewRepository struct {
	db *sql.DB
}

// NewReviewRepository создаёт PostgreSQL-реализацию ReviewRepository.
func NewReviewRepository(store *Store) domain.ReviewRepository {
	return &reviewRepository{db: store.DB()}
}

// Create сохраняет отзыв и в той же транзакции пересчитывает агрегат
// рейтинга товара. Строка товара блокируется на время пересчёта, чтобы
// конкурирующие изменения отзывов не потеряли друг друга.
func (r *reviewRepository) Create(review domain.Review) (domain.Review, domain.RatingAggregate, error) {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if review.CreatedAt.IsZero() {
		review.CreatedAt = now
	}
	review.UpdatedAt = now

	agg, err := r.mutate(review.ProductID, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO reviews (id, product_id, user_id, rating, comment, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`,
			review.ID, review.ProductID, review.UserID, review.Rating,
			review.Comment, review.CreatedAt, review.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrReviewExists
			}
			return fmt.Errorf("insert review: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Review{}, domain.RatingAggregate{}, err
	}

	return review, agg, nil
}

// Update меняет оценку и текст отзыва, товар и автор неизменяемы.
func (r *reviewRepository) Update(review domain.Review) (domain.Review, domain.RatingAggregate, error) {
	current, err := r.Get(review.ID)
	if err != nil {
		return domain.Review{}, domain.RatingAggregate{}, err
	}
	current.Rating = review.Rating
	current.Comment = review.Comment
	current.UpdatedAt = time.Now().UTC()

	agg, err := r.mutate(current.ProductID, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE reviews
			SET rating = $1, comment = $2, updated_at = $3
			WHERE id = $4
		`, current.Rating, current.Comment, current.UpdatedAt, current.ID)
		if err != nil {
			return fmt.Errorf("update review: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update review rows affected: %w", err)
		}
		if affected == 0 {
			return domain.ErrReviewNotFound
		}
		return nil
	})
	if err != nil {
		return domain.Review{}, domain.RatingAggregate{}, err
	}

	return current, agg, nil
}

// Delete удаляет отзыв и возвращает пересчитанную сводку товара.
func (r *reviewRepository) Delete(id string) (domain.RatingAggregate, error) {
	current, err := r.Get(id)
	if err != nil {
		return domain.RatingAggregate{}, err
	}

	return r.mutate(current.ProductID, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete review: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete review rows affected: %w", err)
		}
		if affected == 0 {
			return domain.ErrReviewNotFound
		}
		return nil
	})
}

func (r *reviewRepository) Get(id string) (domain.Review, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT id, product_id, user_id, rating, comment, created_at, updated_at
		FROM reviews
		WHERE id = $1
	`, id)

	review, err := scanReview(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Review{}, domain.ErrReviewNotFound
		}
		return domain.Review{}, fmt.Errorf("select review: %w", err)
	}

	return review, nil
}

func (r *reviewRepository) ListByProduct(productID string) ([]domain.Review, error) {
	return r.list(`
		SELECT id, product_id, user_id, rating, comment, created_at, updated_at
		FROM reviews
		WHERE product_id = $1
		ORDER BY created_at DESC, id DESC
	`, productID)
}

func (r *reviewRepository) ListByUser(userID string) ([]domain.Review, error) {
	return r.list(`
		SELECT id, product_id, user_id, rating, comment, created_at, updated_at
		FROM reviews
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
}

func (r *reviewRepository) ListAll(limit int) ([]domain.Review, error) {
	return r.list(`
		SELECT id, product_id, user_id, rating, comment, created_at, updated_at
		FROM reviews
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, normalizeLimit(limit))
}

// mutate оборачивает изменение отзывов в транзакцию: блокировка строки
// товара, само изменение, пересчёт и запись агрегата.
func (r *reviewRepository) mutate(productID string, op func(ctx context.Context, tx *sql.Tx) error) (agg domain.RatingAggregate, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.RatingAggregate{}, fmt.Errorf("begin review tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked string
	if err = tx.QueryRowContext(ctx,
		`SELECT id FROM products WHERE id = $1 FOR UPDATE`, productID,
	).Scan(&locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.RatingAggregate{}, domain.ErrProductNotFound
		}
		return domain.RatingAggregate{}, fmt.Errorf("lock product: %w", err)
	}

	if err = op(ctx, tx); err != nil {
		return domain.RatingAggregate{}, err
	}

	ratings, err := selectRatings(ctx, tx, productID)
	if err != nil {
		return domain.RatingAggregate{}, err
	}
	agg = domain.AggregateRatings(ratings)

	if _, err = tx.ExecContext(ctx, `
		UPDATE products
		SET average_rating = $1, review_count = $2, updated_at = $3
		WHERE id = $4
	`, agg.Average, agg.Count, time.Now().UTC(), productID); err != nil {
		return domain.RatingAggregate{}, fmt.Errorf("update rating aggregate: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return domain.RatingAggregate{}, fmt.Errorf("commit review tx: %w", err)
	}

	return agg, nil
}

func selectRatings(ctx context.Context, tx *sql.Tx, productID string) ([]int32, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT rating FROM reviews WHERE product_id = $1`, productID)
	if err != nil {
		return nil, fmt.Errorf("select ratings: %w", err)
	}
	defer rows.Close()

	ratings := make([]int32, 0)
	for rows.Next() {
		var rating int32
		if err := rows.Scan(&rating); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		ratings = append(ratings, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ratings: %w", err)
	}

	return ratings, nil
}

func (r *reviewRepository) list(query string, args ...any) ([]domain.Review, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]domain.Review, 0)
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}

	return reviews, nil
}

func scanReview(row rowScanner) (domain.Review, error) {
	var review domain.Review
	if err := row.Scan(
		&review.ID, &review.ProductID, &review.UserID, &review.Rating,
		&review.Comment, &review.CreatedAt, &review.UpdatedAt,
	); err != nil {
		return domain.Review{}, err
	}
	return review, nil
}

var _ domain.ReviewRepository = (*reviewRepository)(nil)
