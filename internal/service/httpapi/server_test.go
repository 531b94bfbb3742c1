package httpapi_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/service/httpapi"
	"github.com/vladislavdragonenkov/storefront/internal/service/order"
	"github.com/vladislavdragonenkov/storefront/internal/service/review"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

type apiEnv struct {
	handler http.Handler
	orders  domain.OrderRepository
}

func newAPI(t *testing.T) apiEnv {
	t.Helper()

	store := memory.NewStore()
	products := memory.NewProductRepository(store)
	carts := memory.NewCartRepository(store)
	orders := memory.NewOrderRepository(store)
	reviews := memory.NewReviewRepository(store)
	outbox := memory.NewOutboxRepository()
	timeline := memory.NewTimelineRepository()
	idempotency := memory.NewIdempotencyRepository()

	server := httpapi.NewServer(
		catalog.NewService(products, outbox, 5, nil),
		cart.NewService(carts, products, nil),
		checkout.NewService(carts, memory.NewCheckoutRepository(store), outbox, timeline, nil),
		order.NewService(orders, outbox, timeline, nil, nil),
		review.NewService(reviews, nil, nil),
		idempotency,
		nil,
		nil,
	)
	return apiEnv{handler: server.Handler(), orders: orders}
}

type call struct {
	method  string
	path    string
	body    any
	userID  string
	roles   string
	headers map[string]string
}

func (env apiEnv) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	if c.body != nil {
		var err error
		payload, err = json.Marshal(c.body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
	}

	req := httptest.NewRequest(c.method, c.path, bytes.NewReader(payload))
	if c.userID != "" {
		req.Header.Set("X-User-ID", c.userID)
	}
	if c.roles != "" {
		req.Header.Set("X-User-Roles", c.roles)
	}
	for name, value := range c.headers {
		req.Header.Set(name, value)
	}

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func (env apiEnv) createProduct(t *testing.T, name, price string, stock int32) string {
	t.Helper()
	rec := env.do(t, call{
		method: http.MethodPost,
		path:   "/api/admin/products",
		body:   map[string]any{"name": name, "price": price, "stock_quantity": stock},
		userID: "admin-1",
		roles:  "admin",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create product: status %d, body %s", rec.Code, rec.Body.String())
	}
	product := decode[map[string]any](t, rec)
	id, _ := product["id"].(string)
	if id == "" {
		t.Fatalf("no product id in response: %s", rec.Body.String())
	}
	return id
}

func (env apiEnv) addToCart(t *testing.T, userID, productID string, qty int32) {
	t.Helper()
	rec := env.do(t, call{
		method: http.MethodPost,
		path:   "/api/cart/items",
		body:   map[string]any{"product_id": productID, "qty": qty},
		userID: userID,
		roles:  "customer",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("add to cart: status %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestAuthenticationRequired(t *testing.T) {
	env := newAPI(t)

	rec := env.do(t, call{method: http.MethodGet, path: "/api/cart"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	// Публичный каталог доступен без заголовков.
	rec = env.do(t, call{method: http.MethodGet, path: "/api/products"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCreateProduct_Authorization(t *testing.T) {
	env := newAPI(t)

	rec := env.do(t, call{
		method: http.MethodPost,
		path:   "/api/admin/products",
		body:   map[string]any{"name": "Gadget", "price": "10.00", "stock_quantity": 5},
		userID: "user-1",
		roles:  "customer",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer, got %d", rec.Code)
	}
}

func TestCreateProduct_InvalidPrice(t *testing.T) {
	env := newAPI(t)

	rec := env.do(t, call{
		method: http.MethodPost,
		path:   "/api/admin/products",
		body:   map[string]any{"name": "Gadget", "price": "ten dollars", "stock_quantity": 5},
		userID: "admin-1",
		roles:  "admin",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	env := newAPI(t)
	rec := env.do(t, call{method: http.MethodGet, path: "/api/products/missing"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCartFlow(t *testing.T) {
	env := newAPI(t)
	productID := env.createProduct(t, "Laptop Pro", "1999.00", 10)

	env.addToCart(t, "user-1", productID, 2)

	rec := env.do(t, call{method: http.MethodGet, path: "/api/cart", userID: "user-1", roles: "customer"})
	view := decode[map[string]any](t, rec)
	if view["grand_total"] != "3998.00" && view["grand_total"] != "3998" {
		t.Fatalf("unexpected grand total: %v", view["grand_total"])
	}

	rec = env.do(t, call{
		method: http.MethodPut,
		path:   "/api/cart/items/" + productID,
		body:   map[string]any{"qty": 1},
		userID: "user-1",
		roles:  "customer",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("set quantity: status %d", rec.Code)
	}

	rec = env.do(t, call{method: http.MethodDelete, path: "/api/cart", userID: "user-1", roles: "customer"})
	if rec.Code != http.StatusOK {
		t.Fatalf("clear cart: status %d", rec.Code)
	}
}

func TestCartInsufficientStockDetails(t *testing.T) {
	env := newAPI(t)
	productID := env.createProduct(t, "Rare Gadget", "10.00", 2)

	rec := env.do(t, call{
		method: http.MethodPost,
		path:   "/api/cart/items",
		body:   map[string]any{"product_id": productID, "qty": 5},
		userID: "user-1",
		roles:  "customer",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	resp := decode[struct {
		Error   string         `json:"error"`
		Details map[string]any `json:"details"`
	}](t, rec)
	if resp.Details["product_id"] != productID {
		t.Fatalf("expected product id in details, got %+v", resp.Details)
	}
	if resp.Details["requested"].(float64) != 5 || resp.Details["available"].(float64) != 2 {
		t.Fatalf("unexpected details: %+v", resp.Details)
	}
}

func TestPlaceOrder(t *testing.T) {
	env := newAPI(t)
	productID := env.createProduct(t, "Laptop Pro", "1999.00", 10)
	env.addToCart(t, "user-1", productID, 1)

	rec := env.do(t, call{
		method: http.MethodPost,
		path:   "/api/orders",
		body:   map[string]any{"shipping_address": "221B Baker Street"},
		userID: "user-1",
		roles:  "customer",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	orderResp := decode[map[string]any](t, rec)
	if orderResp["status"] != "pending" || orderResp["payment_status"] != "pending" {
		t.Fatalf("unexpected statuses: %+v", orderResp)
	}
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	env := newAPI(t)

	rec := env.do(t, call{
		method: http.MethodPost,
		path:   "/api/orders",
		body:   map[string]any{"shipping_address": "221B Baker Street"},
		userID: "user-1",
		roles:  "customer",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestPlaceOrder_Idempotency(t *testing.T) {
	env := newAPI(t)
	productID := env.createProduct(t, "Laptop Pro", "1999.00", 10)
	env.addToCart(t, "user-1", productID, 1)

	place := call{
		method:  http.MethodPost,
		path:    "/api/orders",
		body:    map[string]any{"shipping_address": "221B Baker Street"},
		userID:  "user-1",
		roles:   "customer",
		headers: map[string]string{"Idempotency-Key": "checkout-1"},
	}

	first := env.do(t, place)
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", first.Code, first.Body.String())
	}

	// Повтор с тем же ключом и телом: тот же ответ, второй заказ не создаётся.
	second := env.do(t, place)
	if second.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201, got %d", second.Code)
	}
	firstOrder := decode[map[string]any](t, first)
	secondOrder := decode[map[string]any](t, second)
	if firstOrder["id"] != secondOrder["id"] {
		t.Fatalf("replay must return the original order: %v vs %v", firstOrder["id"], secondOrder["id"])
	}

	orders, err := env.orders.ListByUser("user-1", 10)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected exactly 1 order, got %d", len(orders))
	}

	// Тот же ключ с другим телом отклоняется.
	conflicting := place
	conflicting.body = map[string]any{"shipping_address": "742 Evergreen Terrace"}
	rec := env.do(t, conflicting)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for hash mismatch, got %d", rec.Code)
	}
}

func TestPlaceOrder_IdempotentFailureReplay(t *testing.T) {
	env := newAPI(t)

	place := call{
		method:  http.MethodPost,
		path:    "/api/orders",
		body:    map[string]any{"shipping_address": "221B Baker Street"},
		userID:  "user-1",
		roles:   "customer",
		headers: map[string]string{"Idempotency-Key": "checkout-fail"},
	}

	first := env.do(t, place)
	if first.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", first.Code)
	}
	second := env.do(t, place)
	if second.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected replayed 422, got %d", second.Code)
	}
}

func TestOrderAccess(t *testing.T) {
	env := newAPI(t)
	productID := env.createProduct(t, "Laptop Pro", "1999.00", 10)
	env.addToCart(t, "user-1", productID, 1)

	rec := env.do(t, call{
		method: http.MethodPost,
		path:   "/api/orders",
		body:   map[string]any{"shipping_address": "221B Baker Street"},
		userID: "user-1",
		roles:  "customer",
	})
	orderID := decode[map[string]any](t, rec)["id"].(string)

	for _, tc := range []struct {
		userID string
		roles  string
		want   int
	}{
		{"user-1", "customer", http.StatusOK},
		{"user-2", "customer", http.StatusForbidden},
		{"admin-1", "admin", http.StatusOK},
	} {
		rec := env.do(t, call{method: http.MethodGet, path: "/api/orders/" + orderID, userID: tc.userID, roles: tc.roles})
		if rec.Code != tc.want {
			t.Fatalf("get order as %s: expected %d, got %d", tc.userID, tc.want, rec.Code)
		}
	}
}

func TestAdminSetOrderStatus(t *testing.T) {
	env := newAPI(t)
	productID := env.createProduct(t, "Laptop Pro", "1999.00", 10)
	env.addToCart(t, "user-1", productID, 1)

	rec := env.do(t, call{
		method: http.MethodPost,
		path:   "/api/orders",
		body:   map[string]any{"shipping_address": "221B Baker Street"},
		userID: "user-1",
		roles:  "customer",
	})
	orderID := decode[map[string]any](t, rec)["id"].(string)

	rec = env.do(t, call{
		method: http.MethodPut,
		path:   fmt.Sprintf("/api/admin/orders/%s/status", orderID),
		body:   map[string]any{"status": "processing"},
		userID: "admin-1",
		roles:  "admin",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("set status: %d %s", rec.Code, rec.Body.String())
	}
	if decode[map[string]any](t, rec)["status"] != "processing" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}

	rec = env.do(t, call{
		method: http.MethodPut,
		path:   fmt.Sprintf("/api/admin/orders/%s/status", orderID),
		body:   map[string]any{"status": "teleported"},
		userID: "admin-1",
		roles:  "admin",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rec.Code)
	}

	// История заказа видна владельцу.
	rec = env.do(t, call{method: http.MethodGet, path: "/api/orders/" + orderID + "/timeline", userID: "user-1", roles: "customer"})
	if rec.Code != http.StatusOK {
		t.Fatalf("timeline: %d", rec.Code)
	}
	events := decode[[]map[string]any](t, rec)
	if len(events) != 2 {
		t.Fatalf("expected created + status change events, got %+v", events)
	}
}

func TestReviewFlow(t *testing.T) {
	env := newAPI(t)
	productID := env.createProduct(t, "Laptop Pro", "1999.00", 10)

	rec := env.do(t, call{
		method: http.MethodPost,
		path:   "/api/reviews",
		body:   map[string]any{"product_id": productID, "rating": 4, "comment": "solid"},
		userID: "user-1",
		roles:  "customer",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit review: %d %s", rec.Code, rec.Body.String())
	}
	resp := decode[struct {
		Review struct {
			ID string `json:"id"`
		} `json:"review"`
		Product struct {
			Average *string `json:"average_rating"`
			Count   int32   `json:"review_count"`
		} `json:"product_rating"`
	}](t, rec)
	if resp.Product.Count != 1 || resp.Product.Average == nil || *resp.Product.Average != "4.0" {
		t.Fatalf("unexpected aggregate: %+v", resp.Product)
	}

	// Дубль отзыва отклоняется.
	rec = env.do(t, call{
		method: http.MethodPost,
		path:   "/api/reviews",
		body:   map[string]any{"product_id": productID, "rating": 5},
		userID: "user-1",
		roles:  "customer",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate review, got %d", rec.Code)
	}

	// Средний рейтинг появляется в карточке товара.
	rec = env.do(t, call{method: http.MethodGet, path: "/api/products/" + productID})
	product := decode[map[string]any](t, rec)
	if product["average_rating"] != "4.0" {
		t.Fatalf("unexpected product rating: %v", product["average_rating"])
	}

	// Отзывы товара читаются без аутентификации.
	rec = env.do(t, call{method: http.MethodGet, path: "/api/products/" + productID + "/reviews"})
	if rec.Code != http.StatusOK {
		t.Fatalf("list reviews: %d", rec.Code)
	}
	if reviews := decode[[]map[string]any](t, rec); len(reviews) != 1 {
		t.Fatalf("expected 1 review, got %d", len(reviews))
	}

	// Чужой отзыв нельзя редактировать.
	rec = env.do(t, call{
		method: http.MethodPut,
		path:   "/api/reviews/" + resp.Review.ID,
		body:   map[string]any{"rating": 1},
		userID: "user-2",
		roles:  "customer",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
