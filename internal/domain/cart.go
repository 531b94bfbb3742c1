package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem представляет одну позицию корзины.
type CartItem struct {
	// ID позиции нужен для однозначной идентификации и аудита.
	ID string
	// CartID — корзина-владелец; позиция живёт ровно в одной корзине.
	CartID string
	// ProductID — товар; в одной корзине не бывает двух позиций с одним товаром.
	ProductID string
	// ProductName дублируется для отображения, источником остаётся каталог.
	ProductName string
	// Quantity — количество единиц товара, всегда >= 1.
	Quantity int32
	// UnitPrice — снимок цены на момент добавления; не обновляется при смене цены в каталоге.
	UnitPrice decimal.Decimal
	// CreatedAt фиксирует момент добавления позиции в корзину.
	CreatedAt time.Time
}

// Subtotal возвращает стоимость позиции: цена за единицу * количество.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt32(i.Quantity))
}

// Cart — корзина пользователя; создаётся лениво при первом обращении,
// у пользователя всегда ровно одна корзина.
type Cart struct {
	ID        string
	UserID    string
	Items     []CartItem
	CreatedAt time.Time
}

// Item возвращает позицию по товару, если она есть в корзине.
func (c *Cart) Item(productID string) (CartItem, bool) {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return CartItem{}, false
}

// IsEmpty сообщает, пуста ли корзина.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// GrandTotal возвращает сумму всех позиций корзины.
func (c *Cart) GrandTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// CartViewLine — строка представления корзины с посчитанной стоимостью.
type CartViewLine struct {
	ProductID   string
	ProductName string
	Quantity    int32
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

// CartView — пересчитанное представление корзины, возвращаемое каждой мутирующей операцией.
type CartView struct {
	CartID     string
	Lines      []CartViewLine
	TotalItems int
	GrandTotal decimal.Decimal
}

// View строит представление корзины. Порядок строк повторяет порядок добавления позиций.
func (c *Cart) View() CartView {
	view := CartView{
		CartID:     c.ID,
		Lines:      make([]CartViewLine, 0, len(c.Items)),
		TotalItems: len(c.Items),
		GrandTotal: decimal.Zero,
	}
	for _, item := range c.Items {
		sub := item.Subtotal()
		view.Lines = append(view.Lines, CartViewLine{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    sub,
		})
		view.GrandTotal = view.GrandTotal.Add(sub)
	}
	return view
}
