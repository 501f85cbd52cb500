// Package journal keeps a local record of every sale the terminal completed.
package journal

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/order"
)

const defaultListLimit = 50

type Receipt struct {
	ID             uuid.UUID           `json:"id"`
	OrderID        int64               `json:"orderId"`
	SessionID      string              `json:"sessionId"`
	CashierID      int64               `json:"cashierId"`
	TerminalID     string              `json:"terminalId"`
	PaymentMethod  order.PaymentMethod `json:"paymentMethod"`
	TransactionID  string              `json:"transactionId,omitempty"`
	Subtotal       decimal.Decimal     `json:"subtotal"`
	Total          decimal.Decimal     `json:"total"`
	AmountReceived decimal.Decimal     `json:"amountReceived"`
	Change         decimal.Decimal     `json:"change"`
	ItemCount      int                 `json:"itemCount"`
	CompletedAt    time.Time           `json:"completedAt"`
}

type Repository interface {
	Record(ctx context.Context, r Receipt) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]Receipt, error)
}

type repo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repo{db: db}
}

func (r *repo) Record(ctx context.Context, rc Receipt) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sale_receipts (id, order_id, session_id, cashier_id, terminal_id, payment_method, transaction_id,
            subtotal, total, amount_received, change_due, item_count, completed_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		rc.ID, rc.OrderID, rc.SessionID, rc.CashierID, rc.TerminalID, string(rc.PaymentMethod), rc.TransactionID,
		rc.Subtotal, rc.Total, rc.AmountReceived, rc.Change, rc.ItemCount, rc.CompletedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "insert receipt for order %d", rc.OrderID)
	}
	return nil
}

// ListBySession returns the session's receipts, newest first. A limit of zero
// or less uses the default page size.
func (r *repo) ListBySession(ctx context.Context, sessionID string, limit int) ([]Receipt, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, session_id, cashier_id, terminal_id, payment_method, transaction_id,
            subtotal, total, amount_received, change_due, item_count, completed_at
         FROM sale_receipts
         WHERE session_id = $1
         ORDER BY completed_at DESC
         LIMIT $2`,
		sessionID, limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query receipts")
	}
	defer rows.Close()

	out := []Receipt{}
	for rows.Next() {
		var rc Receipt
		var method string
		if err := rows.Scan(
			&rc.ID, &rc.OrderID, &rc.SessionID, &rc.CashierID, &rc.TerminalID, &method, &rc.TransactionID,
			&rc.Subtotal, &rc.Total, &rc.AmountReceived, &rc.Change, &rc.ItemCount, &rc.CompletedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan receipt")
		}
		rc.PaymentMethod = order.PaymentMethod(method)
		out = append(out, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate receipts")
	}
	return out, nil
}
