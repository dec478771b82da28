package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderStatus(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    OrderStatus
		wantErr bool
	}{
		{name: "exact match", input: "PENDING", want: OrderStatusPending},
		{name: "lowercase", input: "processing", want: OrderStatusProcessing},
		{name: "mixed case", input: "Paid", want: OrderStatusPaid},
		{name: "failed", input: "FAILED", want: OrderStatusFailed},
		{name: "cancelled", input: "cancelled", want: OrderStatusCancelled},
		{name: "unknown", input: "SHIPPED", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "pending'; DROP TABLE orders", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOrderStatus(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculateTotal(t *testing.T) {
	order := &Order{
		Items: []OrderItem{
			{ProductID: 1, Quantity: 2, UnitPrice: decimal.RequireFromString("19.99")},
			{ProductID: 2, Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")},
		},
	}

	order.CalculateTotal()

	assert.True(t, order.TotalPrice.Equal(decimal.RequireFromString("44.98")),
		"got %s", order.TotalPrice)
}

func TestCalculateTotalEmptyOrder(t *testing.T) {
	order := &Order{}
	order.CalculateTotal()
	assert.True(t, order.TotalPrice.IsZero())
}

func TestCalculateTotalKeepsCents(t *testing.T) {
	// three items at 0.10 must total exactly 0.30
	order := &Order{
		Items: []OrderItem{
			{Quantity: 3, UnitPrice: decimal.RequireFromString("0.10")},
		},
	}

	order.CalculateTotal()

	assert.True(t, order.TotalPrice.Equal(decimal.RequireFromString("0.30")),
		"got %s", order.TotalPrice)
}
