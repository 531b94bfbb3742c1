package memory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func newProduct(id string) domain.Product {
	now := time.Now().UTC()
	return domain.Product{
		ID:            id,
		Name:          "Laptop Pro",
		Description:   "15 inch, 32GB",
		Price:         decimal.RequireFromString("1999.00"),
		StockQuantity: 10,
		Category:      "electronics",
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestProductRepository_CreateGet(t *testing.T) {
	repo := memory.NewProductRepository(memory.NewStore())
	product := newProduct("product-1")

	if err := repo.Create(product); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stored, err := repo.Get(product.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Name != product.Name || !stored.Price.Equal(product.Price) {
		t.Fatalf("unexpected product: %+v", stored)
	}

	if err := repo.Create(product); !errors.Is(err, domain.ErrProductExists) {
		t.Fatalf("expected ErrProductExists, got %v", err)
	}
}

func TestProductRepository_GetNotFound(t *testing.T) {
	repo := memory.NewProductRepository(memory.NewStore())
	if _, err := repo.Get("missing"); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestProductRepository_ListOnlyActive(t *testing.T) {
	repo := memory.NewProductRepository(memory.NewStore())

	active := newProduct("product-1")
	if err := repo.Create(active); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	hidden := newProduct("product-2")
	hidden.IsActive = false
	if err := repo.Create(hidden); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	products, err := repo.List(true)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(products) != 1 || products[0].ID != "product-1" {
		t.Fatalf("expected only active product, got %+v", products)
	}

	products, err = repo.List(false)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
}

func TestProductRepository_AddStock(t *testing.T) {
	repo := memory.NewProductRepository(memory.NewStore())
	product := newProduct("product-1")
	if err := repo.Create(product); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := repo.AddStock(product.ID, 5)
	if err != nil {
		t.Fatalf("add stock failed: %v", err)
	}
	if updated.StockQuantity != 15 {
		t.Fatalf("expected stock 15, got %d", updated.StockQuantity)
	}

	if _, err := repo.AddStock("missing", 1); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestProductRepository_SaveNotFound(t *testing.T) {
	repo := memory.NewProductRepository(memory.NewStore())
	if err := repo.Save(newProduct("missing")); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}
