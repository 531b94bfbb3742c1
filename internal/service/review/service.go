package review

import (
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// Service реализует операции над отзывами.
// Агрегат рейтинга товара пересчитывает хранилище в той же транзакции,
// что и мутацию отзыва; сервис лишь возвращает свежую сводку.
type Service struct {
	reviews domain.ReviewRepository
	logger  *log.Entry
	metrics *metrics.StoreMetrics
}

// NewService создаёт сервис отзывов.
func NewService(reviews domain.ReviewRepository, logger *log.Entry, m *metrics.StoreMetrics) *Service {
	if logger == nil {
		logger = log.WithField("component", "review-service")
	}
	return &Service{
		reviews: reviews,
		logger:  logger,
		metrics: m,
	}
}

// Submit сохраняет новый отзыв от имени субъекта.
// Второй отзыв того же пользователя на тот же товар отклоняется.
func (s *Service) Submit(principal domain.Principal, productID string, rating int32, comment string) (domain.Review, domain.RatingAggregate, error) {
	if rating < domain.RatingMin || rating > domain.RatingMax {
		return domain.Review{}, domain.RatingAggregate{}, domain.ErrRatingOutOfRange
	}
	if productID == "" {
		return domain.Review{}, domain.RatingAggregate{}, domain.ErrReviewProductRequired
	}

	now := time.Now().UTC()
	review := domain.Review{
		ID:        uuid.NewString(),
		ProductID: productID,
		UserID:    principal.UserID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, agg, err := s.reviews.Create(review)
	if err != nil {
		return domain.Review{}, domain.RatingAggregate{}, err
	}

	s.record("create")
	s.logger.WithFields(log.Fields{
		"review_id":  created.ID,
		"product_id": productID,
		"rating":     rating,
	}).Debug("review submitted")

	return created, agg, nil
}

// Update меняет оценку и комментарий собственного отзыва.
// Перенос отзыва на другой товар запрещён: передача productID, отличного
// от исходного, отклоняется.
func (s *Service) Update(principal domain.Principal, reviewID, productID string, rating int32, comment string) (domain.Review, domain.RatingAggregate, error) {
	if rating < domain.RatingMin || rating > domain.RatingMax {
		return domain.Review{}, domain.RatingAggregate{}, domain.ErrRatingOutOfRange
	}

	current, err := s.reviews.Get(reviewID)
	if err != nil {
		return domain.Review{}, domain.RatingAggregate{}, err
	}
	if current.UserID != principal.UserID {
		return domain.Review{}, domain.RatingAggregate{}, domain.ErrForbidden
	}
	if productID != "" && productID != current.ProductID {
		return domain.Review{}, domain.RatingAggregate{}, domain.ErrReviewProductImmutable
	}

	current.Rating = rating
	current.Comment = comment

	updated, agg, err := s.reviews.Update(current)
	if err != nil {
		return domain.Review{}, domain.RatingAggregate{}, err
	}

	s.record("update")
	return updated, agg, nil
}

// Delete удаляет отзыв. Разрешено автору и администратору.
func (s *Service) Delete(principal domain.Principal, reviewID string) (domain.RatingAggregate, error) {
	current, err := s.reviews.Get(reviewID)
	if err != nil {
		return domain.RatingAggregate{}, err
	}
	if current.UserID != principal.UserID && !principal.IsAdmin() {
		return domain.RatingAggregate{}, domain.ErrForbidden
	}

	agg, err := s.reviews.Delete(reviewID)
	if err != nil {
		return domain.RatingAggregate{}, err
	}

	s.record("delete")
	return agg, nil
}

// ListByProduct возвращает отзывы товара по убыванию времени создания.
func (s *Service) ListByProduct(productID string) ([]domain.Review, error) {
	return s.reviews.ListByProduct(productID)
}

// ListOwn возвращает отзывы субъекта.
func (s *Service) ListOwn(principal domain.Principal) ([]domain.Review, error) {
	return s.reviews.ListByUser(principal.UserID)
}

// ListAll возвращает все отзывы; доступно только администратору.
func (s *Service) ListAll(principal domain.Principal, limit int) ([]domain.Review, error) {
	if !principal.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return s.reviews.ListAll(limit)
}

func (s *Service) record(action string) {
	if s.metrics != nil {
		s.metrics.RecordReviewMutation(action)
	}
}
