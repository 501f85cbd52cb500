package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/order"
)

type SaleItem struct {
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	SizeID      *int64          `json:"sizeId,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
}

type SaleCompletedPayload struct {
	OrderID        int64               `json:"orderId"`
	SessionID      string              `json:"sessionId"`
	CashierID      int64               `json:"cashierId"`
	TerminalID     string              `json:"terminalId"`
	PaymentMethod  order.PaymentMethod `json:"paymentMethod"`
	TransactionID  string              `json:"transactionId,omitempty"`
	Items          []SaleItem          `json:"items"`
	Subtotal       decimal.Decimal     `json:"subtotal"`
	Total          decimal.Decimal     `json:"total"`
	AmountReceived decimal.Decimal     `json:"amountReceived"`
	Change         decimal.Decimal     `json:"change"`
	CompletedAt    time.Time           `json:"completedAt"`
}

type SaleCompletedEvent struct {
	EventEnvelope
	Payload SaleCompletedPayload `json:"payload"`
}

type PendingOrderSavedPayload struct {
	OrderID    int64           `json:"orderId"`
	SessionID  string          `json:"sessionId"`
	CashierID  int64           `json:"cashierId"`
	TerminalID string          `json:"terminalId"`
	ItemCount  int             `json:"itemCount"`
	Total      decimal.Decimal `json:"total"`
	SavedAt    time.Time       `json:"savedAt"`
}

type PendingOrderSavedEvent struct {
	EventEnvelope
	Payload PendingOrderSavedPayload `json:"payload"`
}

type CatalogProductChangedPayload struct {
	ProductID int64 `json:"productId"`
}
