package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusPaid       OrderStatus = "PAID"
	OrderStatusFailed     OrderStatus = "FAILED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// ParseOrderStatus maps a free-form status name to a known status,
// case-insensitively. Unknown names are rejected so that arbitrary strings
// never end up in the orders table.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(strings.ToUpper(s)) {
	case OrderStatusPending:
		return OrderStatusPending, nil
	case OrderStatusProcessing:
		return OrderStatusProcessing, nil
	case OrderStatusPaid:
		return OrderStatusPaid, nil
	case OrderStatusFailed:
		return OrderStatusFailed, nil
	case OrderStatusCancelled:
		return OrderStatusCancelled, nil
	default:
		return "", fmt.Errorf("invalid order status: %s", s)
	}
}

type Order struct {
	ID            int64           `db:"order_id"`
	CustomerID    int64           `db:"customer_id"`
	Status        OrderStatus     `db:"status"`
	TotalPrice    decimal.Decimal `db:"total_price"`
	PaymentID     *string         `db:"payment_id"`
	PaymentStatus string          `db:"payment_status"`
	Items         []OrderItem     `db:"items"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
	UpdatedBy string    `db:"updated_by"`
}

// OrderItem is owned by its Order and references the product by id only.
// UnitPrice is a snapshot taken at purchase time; later catalog price
// changes must not alter it.
type OrderItem struct {
	ID        int64           `db:"item_id"`
	OrderID   int64           `db:"order_id"`
	ProductID int64           `db:"product_id"`
	Name      string          `db:"name"`
	Quantity  int32           `db:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price"`

	// ImageURL is joined from the catalog on reads, never persisted
	// with the item.
	ImageURL string `db:"-"`
}

func (o *Order) CalculateTotal() {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	o.TotalPrice = total
}

// CartItem is a checkout line as submitted by the client. UnitPrice is only
// trusted on the direct (pre-payment) path; settlement re-resolves prices
// from the catalog.
type CartItem struct {
	ProductID int64
	Quantity  int32
	UnitPrice decimal.Decimal
}
