package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a persisted order as the Order Service returns it.
type Order struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	SessionID     int64           `json:"session_id"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	OrderType     Type            `json:"order_type"`
	Status        Status          `json:"status"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	Total         decimal.Decimal `json:"total"`
	Notes         string          `json:"notes"`
	CreatedAt     time.Time       `json:"created_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	Items         []Item          `json:"items"`
}

// Item carries display-name snapshots next to the ids so a terminal can
// rebuild a cart without consulting the live catalog.
type Item struct {
	ID                  int64           `json:"id"`
	ProductID           int64           `json:"product_id"`
	ProductName         string          `json:"product_name"`
	SizeID              *int64          `json:"size_id"`
	SizeName            string          `json:"size_name"`
	ModifierIDs         []int64         `json:"modifier_ids"`
	Modifiers           []ItemModifier  `json:"modifiers"`
	Quantity            int             `json:"quantity"`
	UnitPrice           decimal.Decimal `json:"unit_price"`
	TotalPrice          decimal.Decimal `json:"total_price"`
	SpecialInstructions string          `json:"special_instructions"`
}

type ItemModifier struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	PriceDelta decimal.Decimal `json:"price_modifier"`
}

type Payment struct {
	ID            int64           `json:"id"`
	OrderID       int64           `json:"order_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	TransactionID string          `json:"transaction_id"`
	Status        string          `json:"status"`
}

// Completion is the Order Service response to a complete call.
type Completion struct {
	Order   Order   `json:"order"`
	Payment Payment `json:"payment"`
}

type CreateRequest struct {
	Items         []CreateItem `json:"items"`
	CustomerName  string       `json:"customer_name"`
	CustomerPhone string       `json:"customer_phone"`
	OrderType     Type         `json:"order_type"`
	Notes         string       `json:"notes"`
}

type CreateItem struct {
	ProductID           int64   `json:"product_id"`
	SizeID              *int64  `json:"size_id"`
	ModifierIDs         []int64 `json:"modifier_ids"`
	Quantity            int     `json:"quantity"`
	SpecialInstructions string  `json:"special_instructions"`
}

type CompleteRequest struct {
	PaymentMethod  PaymentMethod   `json:"payment_method"`
	TransactionID  string          `json:"transaction_id"`
	AmountReceived decimal.Decimal `json:"amount_received"`
}
