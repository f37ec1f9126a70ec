package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	CategoryID  int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Product struct {
	ProductID   int64           `json:"id"`
	CategoryID  int64           `json:"category_id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	Brand       string          `json:"brand"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Available   bool            `json:"available"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Ref returns the live view of the product carried by cart lines.
func (p *Product) Ref() ProductRef {
	return ProductRef{
		ProductID: p.ProductID,
		Name:      p.Name,
		Slug:      p.Slug,
		Price:     p.Price,
		Stock:     p.Stock,
		Available: p.Available,
	}
}

// ProductRef is the product as it currently is in the catalog.
type ProductRef struct {
	ProductID int64           `json:"id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	Available bool            `json:"available"`
}

type ProductOrdering string

const (
	OrderByNewest    ProductOrdering = "-created_at"
	OrderByOldest    ProductOrdering = "created_at"
	OrderByPriceAsc  ProductOrdering = "price"
	OrderByPriceDesc ProductOrdering = "-price"
	OrderByName      ProductOrdering = "name"
)

type ProductFilter struct {
	CategoryID int64
	Brand      string
	Available  *bool
	Search     string
	Ordering   ProductOrdering
}

// IsZero reports whether the filter selects the whole catalog in default order.
func (f ProductFilter) IsZero() bool {
	return f.CategoryID == 0 && f.Brand == "" && f.Available == nil && f.Search == "" &&
		(f.Ordering == "" || f.Ordering == OrderByNewest)
}

type MovementType string

const (
	MovementIncoming   MovementType = "incoming"
	MovementOutgoing   MovementType = "outgoing"
	MovementAdjustment MovementType = "adjustment"
)

type StockMovement struct {
	MovementID  int64        `json:"id"`
	ProductID   int64        `json:"product_id"`
	OrderID     *int64       `json:"order_id,omitempty"`
	Type        MovementType `json:"movement_type"`
	ChangeQuant int          `json:"change_quant"`
	CreatedAt   time.Time    `json:"created_at"`
}
