package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository создаёт PostgreSQL-реализацию CartRepository.
func NewCartRepository(store *Store) domain.CartRepository {
	return &cartRepository{db: store.DB()}
}

// GetOrCreate лениво создаёт корзину. Вместо гонки check-then-create —
// insert-if-absent под уникальным ограничением на user_id.
func (r *cartRepository) GetOrCreate(userID string) (domain.Cart, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO carts (id, user_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
	`, uuid.NewString(), userID, time.Now().UTC()); err != nil {
		return domain.Cart{}, fmt.Errorf("upsert cart: %w", err)
	}

	var cart domain.Cart
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, created_at
		FROM carts
		WHERE user_id = $1
	`, userID).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("select cart: %w", err)
	}

	items, err := r.loadItems(ctx, cart.ID)
	if err != nil {
		return domain.Cart{}, err
	}
	cart.Items = items

	return cart, nil
}

// UpsertItem вставляет позицию либо перезаписывает количество существующей
// пары (cart, product); снимок цены и момент добавления при этом сохраняются.
func (r *cartRepository) UpsertItem(item domain.CartItem) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO cart_items (id, cart_id, product_id, quantity, unit_price, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity
	`,
		item.ID, item.CartID, item.ProductID, item.Quantity, item.UnitPrice, item.CreatedAt,
	); err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}
	return nil
}

func (r *cartRepository) RemoveItem(cartID, productID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		DELETE FROM cart_items
		WHERE cart_id = $1 AND product_id = $2
	`, cartID, productID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrCartItemNotFound
	}
	return nil
}

func (r *cartRepository) Clear(cartID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM cart_items
		WHERE cart_id = $1
	`, cartID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (r *cartRepository) loadItems(ctx context.Context, cartID string) ([]domain.CartItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ci.id, ci.cart_id, ci.product_id, p.name, ci.quantity, ci.unit_price, ci.created_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at ASC, ci.id ASC
	`, cartID)
	if err != nil {
		return nil, fmt.Errorf("load cart items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.CartItem, 0)
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(
			&item.ID, &item.CartID, &item.ProductID, &item.ProductName,
			&item.Quantity, &item.UnitPrice, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}

	return items, nil
}

var _ domain.CartRepository = (*cartRepository)(nil)
