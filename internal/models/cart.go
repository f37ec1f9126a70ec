package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart belongs to exactly one of a user or an anonymous session.
type Cart struct {
	CartID       int64     `json:"id"`
	UserID       *int64    `json:"user_id,omitempty"`
	SessionToken *string   `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// CartLine prices are never stored: Product is loaded together with the line
// so LineTotal always follows the catalog.
type CartLine struct {
	LineID   int64      `json:"id"`
	CartID   int64      `json:"-"`
	Product  ProductRef `json:"product"`
	Quantity int        `json:"quantity"`
	AddedAt  time.Time  `json:"added_at"`
}

func (l CartLine) LineTotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type CartLineView struct {
	CartLine
	LineTotal decimal.Decimal `json:"line_total"`
}

type CartSnapshot struct {
	CartID    int64           `json:"id"`
	Lines     []CartLineView  `json:"lines"`
	Total     decimal.Decimal `json:"total"`
	LineCount int             `json:"line_count"`
}

// NewCartSnapshot computes totals from the given lines. LineCount is the
// number of units in the cart.
func NewCartSnapshot(cartID int64, lines []CartLine) *CartSnapshot {
	snap := &CartSnapshot{
		CartID: cartID,
		Lines:  make([]CartLineView, 0, len(lines)),
		Total:  decimal.Zero,
	}
	for _, l := range lines {
		total := l.LineTotal()
		snap.Lines = append(snap.Lines, CartLineView{CartLine: l, LineTotal: total})
		snap.Total = snap.Total.Add(total)
		snap.LineCount += l.Quantity
	}
	return snap
}
