package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

var nextStatus = map[OrderStatus]OrderStatus{
	StatusPending:    StatusConfirmed,
	StatusConfirmed:  StatusProcessing,
	StatusProcessing: StatusShipped,
	StatusShipped:    StatusDelivered,
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo allows one step forward along the fulfilment chain, or
// cancellation from any non-terminal status.
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	if s.Terminal() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	return nextStatus[s] == to
}

type CustomerInfo struct {
	FullName string `json:"full_name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Phone    string `json:"phone" validate:"required,max=20"`
	Address  string `json:"address" validate:"required,max=200"`
	City     string `json:"city" validate:"required,max=100"`
	Notes    string `json:"notes"`
}

type Order struct {
	OrderID     int64           `json:"id"`
	UserID      *int64          `json:"user_id"`
	Customer    CustomerInfo    `json:"customer"`
	Status      OrderStatus     `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Lines       []OrderLine     `json:"lines,omitempty"`
}

// OrderLine keeps the unit price the product had when the order was placed.
// It is written once and never re-read from the catalog.
type OrderLine struct {
	OrderLineID   int64           `json:"id"`
	OrderID       int64           `json:"order_id"`
	ProductID     int64           `json:"product_id"`
	ProductName   string          `json:"product_name"`
	CapturedPrice decimal.Decimal `json:"price"`
	Quantity      int             `json:"quantity"`
}

func (l OrderLine) LineTotal() decimal.Decimal {
	return l.CapturedPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type StatusCount struct {
	Status OrderStatus `json:"status"`
	Count  int64       `json:"count"`
}

type OrderStatistics struct {
	TotalOrders        int64         `json:"total_orders"`
	PendingOrders      int64         `json:"pending_orders"`
	ConfirmedOrders    int64         `json:"confirmed_orders"`
	StatusDistribution []StatusCount `json:"status_distribution"`
	RecentOrders       int64         `json:"recent_orders"`
}

type TopProduct struct {
	ProductID     int64           `json:"product_id"`
	ProductName   string          `json:"product_name"`
	TotalQuantity int64           `json:"total_quantity"`
	TotalSales    decimal.Decimal `json:"total_sales"`
}

type SalesData struct {
	TotalSales        decimal.Decimal `json:"total_sales"`
	RecentSales       decimal.Decimal `json:"recent_sales"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	TopProducts       []TopProduct    `json:"top_products"`
}

type TopCustomer struct {
	Username   *string         `json:"username"`
	FullName   string          `json:"full_name"`
	Email      string          `json:"email"`
	OrderCount int64           `json:"order_count"`
	TotalSpent decimal.Decimal `json:"total_spent"`
}

type CustomerStatistics struct {
	TotalCustomers  int64         `json:"total_customers"`
	RepeatCustomers int64         `json:"repeat_customers"`
	NewCustomers    int64         `json:"new_customers"`
	TopCustomers    []TopCustomer `json:"top_customers"`
}
