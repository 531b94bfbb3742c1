package catalog

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Service реализует операции каталога: публичное чтение и
// административное управление ассортиментом.
type Service struct {
	products          domain.ProductRepository
	outbox            domain.OutboxRepository
	logger            *log.Entry
	lowStockThreshold int32
}

// NewService создаёт сервис каталога.
func NewService(products domain.ProductRepository, outbox domain.OutboxRepository, lowStockThreshold int32, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "catalog-service")
	}
	return &Service{
		products:          products,
		outbox:            outbox,
		logger:            logger,
		lowStockThreshold: lowStockThreshold,
	}
}

// List возвращает активные товары каталога.
func (s *Service) List() ([]domain.Product, error) {
	return s.products.List(true)
}

// Get возвращает товар по идентификатору.
func (s *Service) Get(id string) (domain.Product, error) {
	return s.products.Get(id)
}

// CreateInput — атрибуты нового товара.
type CreateInput struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	StockQuantity int32
	ImageURL      string
	Category      string
}

// Create добавляет товар в каталог. Только администратор.
// Новинка анонсируется уведомлением; если стартовый остаток не выше порога,
// сразу уходит и уведомление о дозакупке.
func (s *Service) Create(principal domain.Principal, input CreateInput) (domain.Product, error) {
	if !principal.IsAdmin() {
		return domain.Product{}, domain.ErrForbidden
	}

	now := time.Now().UTC()
	product := domain.Product{
		ID:            uuid.NewString(),
		Name:          input.Name,
		Description:   input.Description,
		Price:         input.Price,
		StockQuantity: input.StockQuantity,
		ImageURL:      input.ImageURL,
		Category:      input.Category,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if errs := product.ValidateInvariants(); len(errs) > 0 {
		return domain.Product{}, errors.Join(errs...)
	}

	if err := s.products.Create(product); err != nil {
		return domain.Product{}, err
	}

	s.logger.WithFields(log.Fields{
		"product_id": product.ID,
		"name":       product.Name,
	}).Info("product created")

	s.notifyNewProduct(product)
	if product.LowOnStock(s.lowStockThreshold) {
		s.notifyLowStock(product)
	}

	return product, nil
}

// Restock увеличивает складской остаток товара. Только администратор.
func (s *Service) Restock(principal domain.Principal, productID string, qty int32) (domain.Product, error) {
	if !principal.IsAdmin() {
		return domain.Product{}, domain.ErrForbidden
	}
	if qty <= 0 {
		return domain.Product{}, domain.ErrItemQtyInvalid
	}

	product, err := s.products.AddStock(productID, qty)
	if err != nil {
		return domain.Product{}, err
	}

	s.logger.WithFields(log.Fields{
		"product_id": product.ID,
		"added":      qty,
		"stock":      product.StockQuantity,
	}).Info("product restocked")

	return product, nil
}

func (s *Service) notifyNewProduct(product domain.Product) {
	payload, err := json.Marshal(map[string]any{
		"product_id":   product.ID,
		"product_name": product.Name,
		"price":        product.Price.String(),
		"category":     product.Category,
	})
	if err != nil {
		s.logger.WithError(err).WithField("product_id", product.ID).Warn("failed to marshal product notification")
		return
	}
	s.enqueue(domain.OutboxMessage{
		AggregateType: "product",
		AggregateID:   product.ID,
		EventType:     string(domain.NotificationNewProduct),
		Payload:       payload,
	})
}

func (s *Service) notifyLowStock(product domain.Product) {
	payload, err := json.Marshal(map[string]any{
		"product_id":   product.ID,
		"product_name": product.Name,
		"stock":        product.StockQuantity,
	})
	if err != nil {
		s.logger.WithError(err).WithField("product_id", product.ID).Warn("failed to marshal low stock notification")
		return
	}
	s.enqueue(domain.OutboxMessage{
		AggregateType: "product",
		AggregateID:   product.ID,
		EventType:     string(domain.NotificationLowStock),
		Payload:       payload,
	})
}

// enqueue кладёт уведомление в outbox; ошибка логируется и не влияет
// на результат операции каталога.
func (s *Service) enqueue(msg domain.OutboxMessage) {
	if s.outbox == nil {
		return
	}
	if _, err := s.outbox.Enqueue(msg); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"aggregate_id": msg.AggregateID,
			"event_type":   msg.EventType,
		}).Warn("failed to enqueue notification")
	}
}
