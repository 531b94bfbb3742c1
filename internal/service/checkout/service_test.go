package checkout_test

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

var customer = domain.Principal{UserID: "user-1", Roles: []domain.Role{domain.RoleCustomer}}

type checkoutEnv struct {
	svc      *checkout.Service
	products domain.ProductRepository
	carts    domain.CartRepository
	orders   domain.OrderRepository
	outbox   domain.OutboxRepository
	timeline domain.TimelineRepository
}

func newEnv(t *testing.T, options ...checkout.Option) checkoutEnv {
	t.Helper()
	store := memory.NewStore()
	env := checkoutEnv{
		products: memory.NewProductRepository(store),
		carts:    memory.NewCartRepository(store),
		orders:   memory.NewOrderRepository(store),
		outbox:   memory.NewOutboxRepository(),
		timeline: memory.NewTimelineRepository(),
	}
	env.svc = checkout.NewService(
		env.carts,
		memory.NewCheckoutRepository(store),
		env.outbox,
		env.timeline,
		nil,
		options...,
	)
	return env
}

func (env checkoutEnv) seedProduct(t *testing.T, id string, stock int32, price string) {
	t.Helper()
	now := time.Now().UTC()
	err := env.products.Create(domain.Product{
		ID:            id,
		Name:          "Product " + id,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		t.Fatalf("seed product failed: %v", err)
	}
}

func (env checkoutEnv) fillCart(t *testing.T, productID string, qty int32, price string) {
	t.Helper()
	cart, err := env.carts.GetOrCreate(customer.UserID)
	if err != nil {
		t.Fatalf("get cart failed: %v", err)
	}
	err = env.carts.UpsertItem(domain.CartItem{
		CartID:      cart.ID,
		ProductID:   productID,
		ProductName: "Product " + productID,
		Quantity:    qty,
		UnitPrice:   decimal.RequireFromString(price),
	})
	if err != nil {
		t.Fatalf("fill cart failed: %v", err)
	}
}

func TestPlaceOrder(t *testing.T) {
	env := newEnv(t)
	env.seedProduct(t, "product-1", 10, "19.99")
	env.fillCart(t, "product-1", 2, "19.99")

	order, err := env.svc.PlaceOrder(customer, "221B Baker Street")
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}

	if order.ID == "" || order.UserID != customer.UserID {
		t.Fatalf("unexpected order: %+v", order)
	}
	if order.Status != domain.OrderStatusPending || order.PaymentStatus != domain.PaymentStatusPending {
		t.Fatalf("unexpected statuses: %s/%s", order.Status, order.PaymentStatus)
	}
	if !order.TotalAmount.Equal(decimal.RequireFromString("39.98")) {
		t.Fatalf("unexpected total: %s", order.TotalAmount)
	}
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("built order violates invariants: %v", errs)
	}

	stored, err := env.orders.Get(order.ID)
	if err != nil {
		t.Fatalf("order not persisted: %v", err)
	}
	if stored.Items[0].UnitPrice.String() != "19.99" {
		t.Fatalf("price snapshot lost: %s", stored.Items[0].UnitPrice)
	}

	// Корзина очищена, остаток списан.
	cart, _ := env.carts.GetOrCreate(customer.UserID)
	if !cart.IsEmpty() {
		t.Fatal("expected cart cleared")
	}
	product, _ := env.products.Get("product-1")
	if product.StockQuantity != 8 {
		t.Fatalf("expected stock 8, got %d", product.StockQuantity)
	}

	history, _ := env.timeline.List(order.ID)
	if len(history) != 1 || history[0].Type != "order.created" {
		t.Fatalf("unexpected timeline: %+v", history)
	}
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	env := newEnv(t)
	if _, err := env.svc.PlaceOrder(customer, "221B Baker Street"); !errors.Is(err, domain.ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}

func TestPlaceOrder_NoShippingAddress(t *testing.T) {
	env := newEnv(t)
	env.seedProduct(t, "product-1", 10, "10.00")
	env.fillCart(t, "product-1", 1, "10.00")

	if _, err := env.svc.PlaceOrder(customer, ""); !errors.Is(err, domain.ErrShippingAddressRequired) {
		t.Fatalf("expected ErrShippingAddressRequired, got %v", err)
	}

	// Отклонённое оформление не трогает корзину.
	cart, _ := env.carts.GetOrCreate(customer.UserID)
	if cart.IsEmpty() {
		t.Fatal("expected cart to survive rejected checkout")
	}
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	env := newEnv(t)
	env.seedProduct(t, "product-1", 1, "10.00")
	env.fillCart(t, "product-1", 5, "10.00")

	_, err := env.svc.PlaceOrder(customer, "221B Baker Street")
	if !domain.IsInsufficientStock(err) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}

	orders, _ := env.orders.ListByUser(customer.UserID, 10)
	if len(orders) != 0 {
		t.Fatalf("expected no orders, got %d", len(orders))
	}
}

func TestPlaceOrder_Notifications(t *testing.T) {
	env := newEnv(t, checkout.WithLowStockThreshold(5))
	env.seedProduct(t, "product-1", 6, "10.00")
	env.fillCart(t, "product-1", 2, "10.00")

	if _, err := env.svc.PlaceOrder(customer, "221B Baker Street"); err != nil {
		t.Fatalf("place order failed: %v", err)
	}

	pending, err := env.outbox.PullPending(10)
	if err != nil {
		t.Fatalf("pull pending failed: %v", err)
	}

	kinds := make(map[string]int)
	for _, msg := range pending {
		kinds[msg.EventType]++
	}
	if kinds[string(domain.NotificationOrderConfirmed)] != 1 {
		t.Fatalf("expected order.confirmed notification, got %+v", kinds)
	}
	// Остаток упал до 4 при пороге 5.
	if kinds[string(domain.NotificationLowStock)] != 1 {
		t.Fatalf("expected low stock notification, got %+v", kinds)
	}
}

// failingOutbox имитирует недоступность outbox-хранилища.
type failingOutbox struct{}

func (failingOutbox) Enqueue(domain.OutboxMessage) (domain.OutboxMessage, error) {
	return domain.OutboxMessage{}, errors.New("outbox is down")
}
func (failingOutbox) PullPending(int) ([]domain.OutboxMessage, error) { return nil, nil }
func (failingOutbox) Stats() (domain.OutboxStats, error)              { return domain.OutboxStats{}, nil }
func (failingOutbox) MarkSent(string) error                           { return nil }
func (failingOutbox) MarkFailed(string) error                         { return nil }

func TestPlaceOrder_NotificationFailureDoesNotFailCheckout(t *testing.T) {
	store := memory.NewStore()
	products := memory.NewProductRepository(store)
	carts := memory.NewCartRepository(store)
	svc := checkout.NewService(
		carts,
		memory.NewCheckoutRepository(store),
		failingOutbox{},
		memory.NewTimelineRepository(),
		nil,
	)

	now := time.Now().UTC()
	if err := products.Create(domain.Product{
		ID: "product-1", Name: "Product", Price: decimal.New(10, 0),
		StockQuantity: 10, IsActive: true, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed product failed: %v", err)
	}
	cart, _ := carts.GetOrCreate(customer.UserID)
	if err := carts.UpsertItem(domain.CartItem{CartID: cart.ID, ProductID: "product-1", Quantity: 1, UnitPrice: decimal.New(10, 0)}); err != nil {
		t.Fatalf("fill cart failed: %v", err)
	}

	if _, err := svc.PlaceOrder(customer, "221B Baker Street"); err != nil {
		t.Fatalf("checkout must not depend on notifications: %v", err)
	}
}

// repoDurationSamples читает количество наблюдений времени операции хранилища
// из default-реестра Prometheus.
func repoDurationSamples(t *testing.T, operation string) uint64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics failed: %v", err)
	}
	for _, family := range families {
		if family.GetName() != "store_repository_duration_seconds" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "operation" && label.GetValue() == operation {
					return metric.GetHistogram().GetSampleCount()
				}
			}
		}
	}
	return 0
}

func TestPlaceOrder_ObservesStorageDuration(t *testing.T) {
	env := newEnv(t, checkout.WithMetrics(metrics.NewStoreMetrics()))
	env.seedProduct(t, "product-1", 10, "19.99")
	env.fillCart(t, "product-1", 1, "19.99")

	before := repoDurationSamples(t, "checkout.place_order")
	if _, err := env.svc.PlaceOrder(customer, "221B Baker Street"); err != nil {
		t.Fatalf("place order failed: %v", err)
	}
	after := repoDurationSamples(t, "checkout.place_order")
	if after != before+1 {
		t.Fatalf("expected one new storage duration sample, got %d -> %d", before, after)
	}
}

// racingCarts добавляет строку в корзину сразу после того, как сервис снял
// её снимок, имитируя конкурентное добавление во время оформления.
type racingCarts struct {
	domain.CartRepository
	late     domain.CartItem
	injected bool
}

func (c *racingCarts) GetOrCreate(userID string) (domain.Cart, error) {
	cart, err := c.CartRepository.GetOrCreate(userID)
	if err != nil {
		return cart, err
	}
	if !c.injected {
		c.injected = true
		item := c.late
		item.CartID = cart.ID
		if err := c.CartRepository.UpsertItem(item); err != nil {
			return cart, err
		}
	}
	return cart, nil
}

var _ domain.CartRepository = (*racingCarts)(nil)

func TestPlaceOrder_ConcurrentCartLineSurvives(t *testing.T) {
	store := memory.NewStore()
	products := memory.NewProductRepository(store)
	baseCarts := memory.NewCartRepository(store)
	carts := &racingCarts{
		CartRepository: baseCarts,
		late: domain.CartItem{
			ProductID:   "product-2",
			ProductName: "Product product-2",
			Quantity:    3,
			UnitPrice:   decimal.RequireFromString("49.99"),
		},
	}
	orders := memory.NewOrderRepository(store)
	svc := checkout.NewService(
		carts,
		memory.NewCheckoutRepository(store),
		memory.NewOutboxRepository(),
		memory.NewTimelineRepository(),
		nil,
	)

	now := time.Now().UTC()
	for _, p := range []domain.Product{
		{ID: "product-1", Name: "Product product-1", Price: decimal.RequireFromString("19.99"), StockQuantity: 10, IsActive: true, CreatedAt: now, UpdatedAt: now},
		{ID: "product-2", Name: "Product product-2", Price: decimal.RequireFromString("49.99"), StockQuantity: 100, IsActive: true, CreatedAt: now, UpdatedAt: now},
	} {
		if err := products.Create(p); err != nil {
			t.Fatalf("seed product failed: %v", err)
		}
	}
	cart, err := baseCarts.GetOrCreate(customer.UserID)
	if err != nil {
		t.Fatalf("get cart failed: %v", err)
	}
	if err := baseCarts.UpsertItem(domain.CartItem{
		CartID: cart.ID, ProductID: "product-1", ProductName: "Product product-1",
		Quantity: 2, UnitPrice: decimal.RequireFromString("19.99"),
	}); err != nil {
		t.Fatalf("fill cart failed: %v", err)
	}

	order, err := svc.PlaceOrder(customer, "221B Baker Street")
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}
	if len(order.Items) != 1 || order.Items[0].ProductID != "product-1" {
		t.Fatalf("order must contain only the snapshot line, got %+v", order.Items)
	}

	stored, err := orders.Get(order.ID)
	if err != nil {
		t.Fatalf("order not persisted: %v", err)
	}
	if !stored.TotalAmount.Equal(decimal.RequireFromString("39.98")) {
		t.Fatalf("unexpected total: %s", stored.TotalAmount)
	}

	// Конкурентно добавленная строка не оформлена, но и не потеряна.
	reloaded, err := baseCarts.GetOrCreate(customer.UserID)
	if err != nil {
		t.Fatalf("reload cart failed: %v", err)
	}
	if len(reloaded.Items) != 1 || reloaded.Items[0].ProductID != "product-2" {
		t.Fatalf("late cart line must survive checkout, got %+v", reloaded.Items)
	}

	untouched, err := products.Get("product-2")
	if err != nil {
		t.Fatalf("get product-2 failed: %v", err)
	}
	if untouched.StockQuantity != 100 {
		t.Fatalf("late product stock must be untouched, got %d", untouched.StockQuantity)
	}
}
