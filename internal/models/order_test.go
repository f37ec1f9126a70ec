package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusShipped, false},
		{StatusConfirmed, StatusProcessing, true},
		{StatusProcessing, StatusShipped, true},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusCancelled, true},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusConfirmed, StatusPending, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestOrderLine_LineTotal(t *testing.T) {
	l := OrderLine{CapturedPrice: decimal.RequireFromString("19.99"), Quantity: 3}
	assert.Equal(t, "59.97", l.LineTotal().StringFixed(2))
}

func TestNewCartSnapshot(t *testing.T) {
	lines := []CartLine{
		{LineID: 1, Product: ProductRef{ProductID: 1, Price: decimal.RequireFromString("0.10")}, Quantity: 3},
		{LineID: 2, Product: ProductRef{ProductID: 2, Price: decimal.RequireFromString("0.20")}, Quantity: 1},
	}

	snap := NewCartSnapshot(9, lines)

	assert.Equal(t, int64(9), snap.CartID)
	assert.Equal(t, 4, snap.LineCount)
	assert.Equal(t, "0.50", snap.Total.StringFixed(2))
	assert.Len(t, snap.Lines, 2)

	empty := NewCartSnapshot(9, nil)
	assert.NotNil(t, empty.Lines)
	assert.True(t, empty.Total.IsZero())
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "creme-brulee-set", Slugify("  Crème Brûlée  Set! "))
	assert.Equal(t, "", Slugify("!!!"))
}
