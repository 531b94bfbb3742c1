package httpapi

import (
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Суммы и рейтинги сериализуются строками, чтобы не терять точность в JSON.

type productDTO struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	Price         string  `json:"price"`
	StockQuantity int32   `json:"stock_quantity"`
	ImageURL      string  `json:"image_url,omitempty"`
	Category      string  `json:"category,omitempty"`
	IsActive      bool    `json:"is_active"`
	AverageRating *string `json:"average_rating"`
	ReviewCount   int32   `json:"review_count"`
	CreatedAt     string  `json:"created_at"`
}

func toProductDTO(p domain.Product) productDTO {
	dto := productDTO{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price.String(),
		StockQuantity: p.StockQuantity,
		ImageURL:      p.ImageURL,
		Category:      p.Category,
		IsActive:      p.IsActive,
		ReviewCount:   p.ReviewCount,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339Nano),
	}
	if p.AverageRating.Valid {
		rating := p.AverageRating.Decimal.StringFixed(1)
		dto.AverageRating = &rating
	}
	return dto
}

func toProductDTOs(products []domain.Product) []productDTO {
	dtos := make([]productDTO, 0, len(products))
	for _, p := range products {
		dtos = append(dtos, toProductDTO(p))
	}
	return dtos
}

type cartLineDTO struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int32  `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Subtotal    string `json:"subtotal"`
}

type cartViewDTO struct {
	CartID     string        `json:"cart_id"`
	Lines      []cartLineDTO `json:"lines"`
	TotalItems int           `json:"total_items"`
	GrandTotal string        `json:"grand_total"`
}

func toCartViewDTO(view domain.CartView) cartViewDTO {
	dto := cartViewDTO{
		CartID:     view.CartID,
		Lines:      make([]cartLineDTO, 0, len(view.Lines)),
		TotalItems: view.TotalItems,
		GrandTotal: view.GrandTotal.String(),
	}
	for _, line := range view.Lines {
		dto.Lines = append(dto.Lines, cartLineDTO{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice.String(),
			Subtotal:    line.Subtotal.String(),
		})
	}
	return dto
}

type orderItemDTO struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Qty         int32  `json:"qty"`
	UnitPrice   string `json:"unit_price"`
	Subtotal    string `json:"subtotal"`
}

type orderDTO struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	Status          string         `json:"status"`
	PaymentStatus   string         `json:"payment_status"`
	TotalAmount     string         `json:"total_amount"`
	ShippingAddress string         `json:"shipping_address"`
	Items           []orderItemDTO `json:"items"`
	CreatedAt       string         `json:"created_at"`
	UpdatedAt       string         `json:"updated_at"`
}

func toOrderDTO(o domain.Order) orderDTO {
	dto := orderDTO{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          string(o.Status),
		PaymentStatus:   string(o.PaymentStatus),
		TotalAmount:     o.TotalAmount.String(),
		ShippingAddress: o.ShippingAddress,
		Items:           make([]orderItemDTO, 0, len(o.Items)),
		CreatedAt:       o.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:       o.UpdatedAt.Format(time.RFC3339Nano),
	}
	for _, item := range o.Items {
		dto.Items = append(dto.Items, orderItemDTO{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Qty:         item.Qty,
			UnitPrice:   item.UnitPrice.String(),
			Subtotal:    item.Subtotal().String(),
		})
	}
	return dto
}

func toOrderDTOs(orders []domain.Order) []orderDTO {
	dtos := make([]orderDTO, 0, len(orders))
	for _, o := range orders {
		dtos = append(dtos, toOrderDTO(o))
	}
	return dtos
}

type timelineEventDTO struct {
	Type     string `json:"type"`
	Reason   string `json:"reason,omitempty"`
	Occurred string `json:"occurred"`
}

func toTimelineDTOs(events []domain.TimelineEvent) []timelineEventDTO {
	dtos := make([]timelineEventDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, timelineEventDTO{
			Type:     e.Type,
			Reason:   e.Reason,
			Occurred: e.Occurred.Format(time.RFC3339Nano),
		})
	}
	return dtos
}

type reviewDTO struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	UserID    string `json:"user_id"`
	Rating    int32  `json:"rating"`
	Comment   string `json:"comment,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toReviewDTO(r domain.Review) reviewDTO {
	return reviewDTO{
		ID:        r.ID,
		ProductID: r.ProductID,
		UserID:    r.UserID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt: r.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func toReviewDTOs(reviews []domain.Review) []reviewDTO {
	dtos := make([]reviewDTO, 0, len(reviews))
	for _, r := range reviews {
		dtos = append(dtos, toReviewDTO(r))
	}
	return dtos
}

type ratingAggregateDTO struct {
	AverageRating *string `json:"average_rating"`
	ReviewCount   int32   `json:"review_count"`
}

func toRatingAggregateDTO(agg domain.RatingAggregate) ratingAggregateDTO {
	dto := ratingAggregateDTO{ReviewCount: agg.Count}
	if agg.Average.Valid {
		rating := agg.Average.Decimal.StringFixed(1)
		dto.AverageRating = &rating
	}
	return dto
}
