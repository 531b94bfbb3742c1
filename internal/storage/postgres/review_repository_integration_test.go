package postgres

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestReviewRepository_PostgresAggregateLifecycle(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	reviews := NewReviewRepository(store)
	products := NewProductRepository(store)

	product := seedProductForIntegrationTest(t, store, "Laptop Pro", "1999.00", 10)

	_, agg, err := reviews.Create(domain.Review{
		ProductID: product.ID,
		UserID:    "customer-1",
		Rating:    4,
		Comment:   "solid",
	})
	if err != nil {
		t.Fatalf("create first review: %v", err)
	}
	if !agg.Average.Valid || agg.Average.Decimal.StringFixed(1) != "4.0" || agg.Count != 1 {
		t.Fatalf("unexpected aggregate after first review: %+v", agg)
	}

	second, agg, err := reviews.Create(domain.Review{
		ProductID: product.ID,
		UserID:    "customer-2",
		Rating:    5,
		Comment:   "great",
	})
	if err != nil {
		t.Fatalf("create second review: %v", err)
	}
	// (4+5)/2 = 4.5
	if agg.Average.Decimal.StringFixed(1) != "4.5" || agg.Count != 2 {
		t.Fatalf("unexpected aggregate after second review: %+v", agg)
	}

	// Агрегат применён к строке товара.
	stored, err := products.Get(product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if !stored.AverageRating.Valid || stored.AverageRating.Decimal.StringFixed(1) != "4.5" {
		t.Fatalf("product aggregate not applied: %+v", stored.AverageRating)
	}
	if stored.ReviewCount != 2 {
		t.Fatalf("expected review count 2 on product, got %d", stored.ReviewCount)
	}

	// Обновление пересчитывает агрегат.
	_, agg, err = reviews.Update(domain.Review{ID: second.ID, Rating: 2, Comment: "changed my mind"})
	if err != nil {
		t.Fatalf("update review: %v", err)
	}
	// (4+2)/2 = 3.0
	if agg.Average.Decimal.StringFixed(1) != "3.0" || agg.Count != 2 {
		t.Fatalf("unexpected aggregate after update: %+v", agg)
	}

	// Удаление последнего отзыва сбрасывает среднее.
	if _, err := reviews.Delete(second.ID); err != nil {
		t.Fatalf("delete second review: %v", err)
	}
	agg, err = reviews.Delete(firstReviewID(t, reviews, product.ID))
	if err != nil {
		t.Fatalf("delete first review: %v", err)
	}
	if agg.Average.Valid || agg.Count != 0 {
		t.Fatalf("expected empty aggregate after deleting all reviews: %+v", agg)
	}

	cleared, err := products.Get(product.ID)
	if err != nil {
		t.Fatalf("get product after deletes: %v", err)
	}
	if cleared.AverageRating.Valid || cleared.ReviewCount != 0 {
		t.Fatalf("product aggregate not reset: %+v count=%d", cleared.AverageRating, cleared.ReviewCount)
	}
}

func firstReviewID(t *testing.T, reviews domain.ReviewRepository, productID string) string {
	t.Helper()

	list, err := reviews.ListByProduct(productID)
	if err != nil {
		t.Fatalf("list reviews: %v", err)
	}
	if len(list) == 0 {
		t.Fatal("expected at least one review")
	}
	return list[0].ID
}

func TestReviewRepository_PostgresPairUniqueness(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	reviews := NewReviewRepository(store)

	product := seedProductForIntegrationTest(t, store, "Gadget", "25.00", 10)

	if _, _, err := reviews.Create(domain.Review{
		ProductID: product.ID,
		UserID:    "customer-1",
		Rating:    5,
	}); err != nil {
		t.Fatalf("create review: %v", err)
	}

	_, _, err := reviews.Create(domain.Review{
		ProductID: product.ID,
		UserID:    "customer-1",
		Rating:    3,
	})
	if !errors.Is(err, domain.ErrReviewExists) {
		t.Fatalf("expected ErrReviewExists, got %v", err)
	}
}

func TestReviewRepository_PostgresUnknownProduct(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	reviews := NewReviewRepository(store)

	_, _, err := reviews.Create(domain.Review{
		ProductID: "missing-product",
		UserID:    "customer-1",
		Rating:    5,
	})
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestReviewRepository_PostgresListings(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	reviews := NewReviewRepository(store)

	first := seedProductForIntegrationTest(t, store, "Gadget A", "25.00", 10)
	second := seedProductForIntegrationTest(t, store, "Gadget B", "35.00", 10)

	for _, r := range []domain.Review{
		{ProductID: first.ID, UserID: "customer-1", Rating: 5},
		{ProductID: first.ID, UserID: "customer-2", Rating: 4},
		{ProductID: second.ID, UserID: "customer-1", Rating: 3},
	} {
		if _, _, err := reviews.Create(r); err != nil {
			t.Fatalf("create review: %v", err)
		}
	}

	byProduct, err := reviews.ListByProduct(first.ID)
	if err != nil {
		t.Fatalf("list by product: %v", err)
	}
	if len(byProduct) != 2 {
		t.Fatalf("expected 2 reviews for first product, got %d", len(byProduct))
	}

	byUser, err := reviews.ListByUser("customer-1")
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(byUser) != 2 {
		t.Fatalf("expected 2 reviews for customer-1, got %d", len(byUser))
	}

	all, err := reviews.ListAll(2)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected limit 2 respected, got %d", len(all))
	}
}
