package memory

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// reviewRepositoryInMemory — реализация ReviewRepository поверх общего Store.
// Пересчёт агрегата рейтинга выполняется в той же критической секции,
// что и мутация отзыва: конкурирующие отзывы не читают устаревший счётчик.
type reviewRepositoryInMemory struct {
	store *Store
}

// NewReviewRepository возвращает in-memory репозиторий отзывов.
func NewReviewRepository(store *Store) domain.ReviewRepository {
	return &reviewRepositoryInMemory{store: store}
}

// Create сохраняет отзыв, охраняя уникальность пары (user, product),
// и пересчитывает агрегат товара.
func (r *reviewRepositoryInMemory) Create(review domain.Review) (domain.Review, domain.RatingAggregate, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.products[review.ProductID]; !ok {
		return domain.Review{}, domain.RatingAggregate{}, domain.ErrProductNotFound
	}
	for _, existing := range r.store.reviews {
		if existing.UserID == review.UserID && existing.ProductID == review.ProductID {
			return domain.Review{}, domain.RatingAggregate{}, domain.ErrReviewExists
		}
	}

	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if review.CreatedAt.IsZero() {
		review.CreatedAt = now
	}
	review.UpdatedAt = now
	r.store.reviews[review.ID] = review

	agg := r.store.applyRatingAggregate(review.ProductID)
	return review, agg, nil
}

// Update перезаписывает оценку и комментарий и пересчитывает агрегат.
func (r *reviewRepositoryInMemory) Update(review domain.Review) (domain.Review, domain.RatingAggregate, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.reviews[review.ID]
	if !ok {
		return domain.Review{}, domain.RatingAggregate{}, domain.ErrReviewNotFound
	}
	current.Rating = review.Rating
	current.Comment = review.Comment
	current.UpdatedAt = time.Now().UTC()
	r.store.reviews[review.ID] = current

	agg := r.store.applyRatingAggregate(current.ProductID)
	return current, agg, nil
}

// Delete удаляет отзыв и пересчитывает агрегат товара.
func (r *reviewRepositoryInMemory) Delete(id string) (domain.RatingAggregate, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	review, ok := r.store.reviews[id]
	if !ok {
		return domain.RatingAggregate{}, domain.ErrReviewNotFound
	}
	delete(r.store.reviews, id)

	return r.store.applyRatingAggregate(review.ProductID), nil
}

// Get возвращает отзыв или ErrReviewNotFound.
func (r *reviewRepositoryInMemory) Get(id string) (domain.Review, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	review, ok := r.store.reviews[id]
	if !ok {
		return domain.Review{}, domain.ErrReviewNotFound
	}
	return review, nil
}

// ListByProduct возвращает отзывы товара по убыванию времени создания.
func (r *reviewRepositoryInMemory) ListByProduct(productID string) ([]domain.Review, error) {
	return r.list(func(review domain.Review) bool {
		return review.ProductID == productID
	}, 0), nil
}

// ListByUser возвращает отзывы пользователя по убыванию времени создания.
func (r *reviewRepositoryInMemory) ListByUser(userID string) ([]domain.Review, error) {
	return r.list(func(review domain.Review) bool {
		return review.UserID == userID
	}, 0), nil
}

// ListAll возвращает все отзывы.
func (r *reviewRepositoryInMemory) ListAll(limit int) ([]domain.Review, error) {
	return r.list(func(domain.Review) bool { return true }, limit), nil
}

func (r *reviewRepositoryInMemory) list(match func(domain.Review) bool, limit int) []domain.Review {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.Review, 0)
	for _, review := range r.store.reviews {
		if match(review) {
			result = append(result, review)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

var _ domain.ReviewRepository = (*reviewRepositoryInMemory)(nil)
