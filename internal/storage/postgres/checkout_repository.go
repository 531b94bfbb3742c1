package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Оформление заказа держит более тяжёлую транзакцию, чем остальные операции.
const checkoutTimeout = 10 * time.Second

type checkoutRepository struct {
	db *sql.DB
}

// NewCheckoutRepository создаёт PostgreSQL-реализацию CheckoutRepository.
func NewCheckoutRepository(store *Store) domain.CheckoutRepository {
	return &checkoutRepository{db: store.DB()}
}

// PlaceOrder исполняет оформление заказа одной транзакцией:
// блокировка строк товара (SELECT ... FOR UPDATE, по возрастанию id во избежание
// дедлоков), перепроверка остатков, заказ с позициями, списание, очистка корзины.
// Либо фиксируются все записи, либо ни одной.
func (r *checkoutRepository) PlaceOrder(order domain.Order, lowStockThreshold int32) (lowStock []domain.Product, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), checkoutTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin checkout tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	productIDs := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	sort.Strings(productIDs)

	locked, err := lockProducts(ctx, tx, productIDs)
	if err != nil {
		return nil, err
	}

	// Перепроверяем остатки по текущему персистентному состоянию под блокировкой.
	for _, item := range order.Items {
		p, ok := locked[item.ProductID]
		if !ok {
			return nil, domain.ErrProductNotFound
		}
		if p.StockQuantity < item.Qty {
			return nil, &domain.InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Requested:   item.Qty,
				Available:   p.StockQuantity,
			}
		}
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, user_id, status, payment_status, total_amount,
			shipping_address, version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		order.ID, order.UserID, string(order.Status), string(order.PaymentStatus),
		order.TotalAmount, order.ShippingAddress, order.Version,
		order.CreatedAt, order.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrOrderVersionConflict
		}
		return nil, fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, product_id, product_name, qty, unit_price, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7)
		`,
			item.ID, order.ID, item.ProductID, item.ProductName,
			item.Qty, item.UnitPrice, item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("insert order item: %w", err)
		}
	}

	now := time.Now().UTC()
	lowStock = make([]domain.Product, 0)
	for _, item := range order.Items {
		var remaining int32
		if err = tx.QueryRowContext(ctx, `
			UPDATE products
			SET stock_quantity = stock_quantity - $1,
			    updated_at = $2
			WHERE id = $3
			RETURNING stock_quantity
		`, item.Qty, now, item.ProductID).Scan(&remaining); err != nil {
			return nil, fmt.Errorf("decrement stock: %w", err)
		}
		if remaining <= lowStockThreshold {
			p := locked[item.ProductID]
			p.StockQuantity = remaining
			lowStock = append(lowStock, p)
		}
	}

	// Удаляются только оформленные позиции: строка, добавленная в корзину
	// после снимка, из которого построен заказ, не должна пропасть молча.
	if _, err = tx.ExecContext(ctx, `
		DELETE FROM cart_items
		WHERE cart_id = (SELECT id FROM carts WHERE user_id = $1)
		  AND product_id = ANY($2)
	`, order.UserID, productIDs); err != nil {
		return nil, fmt.Errorf("clear ordered cart lines: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit checkout: %w", err)
	}

	return lowStock, nil
}

// lockProducts блокирует строки товаров на время транзакции и возвращает
// их текущее состояние. Порядок блокировки фиксирован возрастанием id.
func lockProducts(ctx context.Context, tx *sql.Tx, ids []string) (map[string]domain.Product, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, stock_quantity
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	defer rows.Close()

	result := make(map[string]domain.Product, len(ids))
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.StockQuantity); err != nil {
			return nil, fmt.Errorf("scan locked product: %w", err)
		}
		result[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locked products: %w", err)
	}

	return result, nil
}

var _ domain.CheckoutRepository = (*checkoutRepository)(nil)
