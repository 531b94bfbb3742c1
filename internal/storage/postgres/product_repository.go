package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{db: store.DB()}
}

func (r *productRepository) Create(product domain.Product) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (
			id, name, description, price, stock_quantity, image_url, category,
			is_active, average_rating, review_count, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		product.ID, product.Name, product.Description, product.Price,
		product.StockQuantity, product.ImageURL, product.Category,
		product.IsActive, product.AverageRating, product.ReviewCount,
		product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrProductExists
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *productRepository) Get(id string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, price, stock_quantity, image_url, category,
		       is_active, average_rating, review_count, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id)

	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}
	return product, nil
}

func (r *productRepository) List(onlyActive bool) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `
		SELECT id, name, description, price, stock_quantity, image_url, category,
		       is_active, average_rating, review_count, created_at, updated_at
		FROM products
	`
	if onlyActive {
		query += " WHERE is_active"
	}
	query += " ORDER BY created_at, id"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, nil
}

// Save обновляет атрибуты каталога. Остаток и агрегат рейтинга намеренно
// не входят в запрос: их меняют только checkout и агрегатор отзывов.
func (r *productRepository) Save(product domain.Product) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name = $1,
		    description = $2,
		    price = $3,
		    image_url = $4,
		    category = $5,
		    is_active = $6,
		    updated_at = $7
		WHERE id = $8
	`,
		product.Name, product.Description, product.Price, product.ImageURL,
		product.Category, product.IsActive, time.Now().UTC(), product.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *productRepository) AddStock(id string, qty int32) (domain.Product, error) {
	if qty <= 0 {
		return domain.Product{}, domain.ErrItemQtyInvalid
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity + $1,
		    updated_at = $2
		WHERE id = $3
		RETURNING id, name, description, price, stock_quantity, image_url, category,
		          is_active, average_rating, review_count, created_at, updated_at
	`, qty, time.Now().UTC(), id)

	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("add stock: %w", err)
	}
	return product, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var product domain.Product
	err := row.Scan(
		&product.ID, &product.Name, &product.Description, &product.Price,
		&product.StockQuantity, &product.ImageURL, &product.Category,
		&product.IsActive, &product.AverageRating, &product.ReviewCount,
		&product.CreatedAt, &product.UpdatedAt,
	)
	return product, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.ProductRepository = (*productRepository)(nil)
