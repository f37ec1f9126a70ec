package events

import (
	"time"

	"github.com/shopspring/decimal"

	"shop-service/internal/models"
)

const OrderCreatedType = "order.created"

type OrderCreatedLine struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type OrderCreated struct {
	Type        string             `json:"type"`
	OrderID     int64              `json:"order_id"`
	UserID      *int64             `json:"user_id,omitempty"`
	Email       string             `json:"email"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
	Lines       []OrderCreatedLine `json:"lines"`
	CreatedAt   time.Time          `json:"created_at"`
}

func NewOrderCreated(o *models.Order) OrderCreated {
	lines := make([]OrderCreatedLine, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, OrderCreatedLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Price:     l.CapturedPrice,
		})
	}
	return OrderCreated{
		Type:        OrderCreatedType,
		OrderID:     o.OrderID,
		UserID:      o.UserID,
		Email:       o.Customer.Email,
		TotalAmount: o.TotalAmount,
		Lines:       lines,
		CreatedAt:   o.CreatedAt.UTC(),
	}
}
