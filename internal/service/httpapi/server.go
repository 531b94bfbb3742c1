package httpapi

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/service/order"
	"github.com/vladislavdragonenkov/storefront/internal/service/review"
)

// Server — JSON HTTP API магазина.
// Аутентификацию выполняет вышестоящий слой (gateway); сюда приходят
// доверенные заголовки X-User-ID и X-User-Roles.
type Server struct {
	catalog     *catalog.Service
	cart        *cart.Service
	checkout    *checkout.Service
	orders      *order.Service
	reviews     *review.Service
	idempotency domain.IdempotencyRepository
	metrics     *metrics.StoreMetrics
	logger      *log.Entry
}

// NewServer создаёт HTTP-сервер API.
func NewServer(
	catalogSvc *catalog.Service,
	cartSvc *cart.Service,
	checkoutSvc *checkout.Service,
	orderSvc *order.Service,
	reviewSvc *review.Service,
	idempotency domain.IdempotencyRepository,
	m *metrics.StoreMetrics,
	logger *log.Entry,
) *Server {
	if logger == nil {
		logger = log.WithField("component", "http-api")
	}
	return &Server{
		catalog:     catalogSvc,
		cart:        cartSvc,
		checkout:    checkoutSvc,
		orders:      orderSvc,
		reviews:     reviewSvc,
		idempotency: idempotency,
		metrics:     m,
		logger:      logger,
	}
}

// Handler собирает маршруты API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Каталог
	mux.HandleFunc("GET /api/products", s.handleListProducts)
	mux.HandleFunc("GET /api/products/{id}", s.handleGetProduct)
	mux.HandleFunc("POST /api/admin/products", s.withPrincipal(s.handleCreateProduct))
	mux.HandleFunc("POST /api/admin/products/{id}/restock", s.withPrincipal(s.handleRestockProduct))

	// Корзина
	mux.HandleFunc("GET /api/cart", s.withPrincipal(s.handleGetCart))
	mux.HandleFunc("POST /api/cart/items", s.withPrincipal(s.handleAddCartItem))
	mux.HandleFunc("PUT /api/cart/items/{productID}", s.withPrincipal(s.handleSetCartItemQuantity))
	mux.HandleFunc("DELETE /api/cart/items/{productID}", s.withPrincipal(s.handleRemoveCartItem))
	mux.HandleFunc("DELETE /api/cart", s.withPrincipal(s.handleClearCart))

	// Заказы
	mux.HandleFunc("POST /api/orders", s.withPrincipal(s.handlePlaceOrder))
	mux.HandleFunc("GET /api/orders", s.withPrincipal(s.handleListOwnOrders))
	mux.HandleFunc("GET /api/orders/{id}", s.withPrincipal(s.handleGetOrder))
	mux.HandleFunc("GET /api/orders/{id}/timeline", s.withPrincipal(s.handleOrderTimeline))
	mux.HandleFunc("GET /api/admin/orders", s.withPrincipal(s.handleListAllOrders))
	mux.HandleFunc("PUT /api/admin/orders/{id}/status", s.withPrincipal(s.handleSetOrderStatus))
	mux.HandleFunc("PUT /api/admin/orders/{id}/payment-status", s.withPrincipal(s.handleSetPaymentStatus))

	// Отзывы
	mux.HandleFunc("POST /api/reviews", s.withPrincipal(s.handleSubmitReview))
	mux.HandleFunc("PUT /api/reviews/{id}", s.withPrincipal(s.handleUpdateReview))
	mux.HandleFunc("DELETE /api/reviews/{id}", s.withPrincipal(s.handleDeleteReview))
	mux.HandleFunc("GET /api/products/{id}/reviews", s.handleListProductReviews)
	mux.HandleFunc("GET /api/my/reviews", s.withPrincipal(s.handleListOwnReviews))
	mux.HandleFunc("GET /api/admin/reviews", s.withPrincipal(s.handleListAllReviews))

	return mux
}
