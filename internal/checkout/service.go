// Package checkout turns a session's cart into orders on the remote Order
// Service: paying, parking as pending, and resuming pending orders.
package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/journal"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/session"
)

// Orders is the remote Order Service.
type Orders interface {
	CreateOrder(ctx context.Context, req order.CreateRequest) (*order.Order, error)
	CompleteOrder(ctx context.Context, id int64, req order.CompleteRequest) (*order.Completion, error)
	GetOrder(ctx context.Context, id int64) (*order.Order, error)
	ListPending(ctx context.Context) ([]order.Order, error)
	CancelOrder(ctx context.Context, id int64) error
}

type Recorder interface {
	Record(ctx context.Context, r journal.Receipt) error
}

type PaymentRequest struct {
	Method         order.PaymentMethod
	AmountReceived decimal.Decimal
	TransactionID  string
}

// Receipt describes a completed sale as shown to the cashier.
type Receipt struct {
	ID             uuid.UUID           `json:"id"`
	OrderID        int64               `json:"orderId"`
	Customer       session.Customer    `json:"customer"`
	Items          []cart.LineItem     `json:"items"`
	Subtotal       decimal.Decimal     `json:"subtotal"`
	Total          decimal.Decimal     `json:"total"`
	PaymentMethod  order.PaymentMethod `json:"paymentMethod"`
	TransactionID  string              `json:"transactionId,omitempty"`
	AmountReceived decimal.Decimal     `json:"amountReceived"`
	Change         decimal.Decimal     `json:"change"`
	Payment        order.Payment       `json:"payment"`
	CompletedAt    time.Time           `json:"completedAt"`
}

type Service struct {
	orders     Orders
	journal    Recorder
	publisher  events.Publisher
	logger     logrus.FieldLogger
	terminalID string
	now        func() time.Time
}

func NewService(orders Orders, rec Recorder, pub events.Publisher, terminalID string, logger logrus.FieldLogger) *Service {
	return &Service{
		orders:     orders,
		journal:    rec,
		publisher:  pub,
		logger:     logger,
		terminalID: terminalID,
		now:        time.Now,
	}
}

// Pay settles the session's cart. In create mode the order is created first;
// in complete-existing mode only the completion is sent. The caller holds
// the session lock.
func (s *Service) Pay(ctx context.Context, sess *session.Session, req PaymentRequest) (*Receipt, error) {
	sub, err := sess.Cart.Submission()
	if err != nil {
		return nil, err
	}
	if !req.Method.Valid() {
		return nil, errors.Wrapf(ErrInvalidPaymentMethod, "%q", req.Method)
	}

	log := s.log(ctx, sess)
	total := sub.Totals.Total
	if sub.Mode.Kind == cart.ModeCompleteExisting {
		total, err = s.persistedTotal(ctx, sub.Mode.OrderID, total, log)
		if err != nil {
			return nil, err
		}
	}

	received, change := req.AmountReceived, decimal.Zero
	txn := req.TransactionID
	if req.Method == order.PaymentCash {
		if received.LessThan(total) {
			return nil, errors.Wrapf(ErrInsufficientPayment, "received %s, total %s", received, total)
		}
		change = received.Sub(total)
	} else {
		received = total
		if txn == "" {
			txn = newTransactionID(s.now())
		}
	}

	orderID := sub.Mode.OrderID
	if sub.Mode.Kind == cart.ModeCreate {
		created, err := s.orders.CreateOrder(ctx, createRequest(sub.Items, sess.Customer))
		if err != nil {
			return nil, errors.Wrap(err, "create order")
		}
		orderID = created.ID
		log = log.WithField("order_id", orderID)
		log.Info("order created for payment")

		// Bound to the new order, a retried payment only completes it.
		if len(created.Items) > 0 {
			sess.Cart.LoadFromPersisted(*created)
		} else {
			sess.Cart.Bind(created.ID)
		}
	} else {
		log = log.WithField("order_id", orderID)
	}

	done, err := s.orders.CompleteOrder(ctx, orderID, order.CompleteRequest{
		PaymentMethod:  req.Method,
		TransactionID:  txn,
		AmountReceived: received,
	})
	if err != nil {
		return nil, errors.Wrap(upstream(err, orderID), "complete order")
	}

	completedAt := s.now().UTC()
	if done.Order.CompletedAt != nil {
		completedAt = done.Order.CompletedAt.UTC()
	}
	rc := &Receipt{
		ID:             uuid.New(),
		OrderID:        orderID,
		Customer:       sess.Customer,
		Items:          sub.Items,
		Subtotal:       total,
		Total:          total,
		PaymentMethod:  req.Method,
		TransactionID:  txn,
		AmountReceived: received,
		Change:         change,
		Payment:        done.Payment,
		CompletedAt:    completedAt,
	}

	if err := s.journal.Record(ctx, s.journalEntry(sess, rc)); err != nil {
		log.WithError(err).Warn("record receipt")
	}
	if err := s.publisher.PublishSaleCompleted(ctx, s.meta(ctx), s.salePayload(sess, rc)); err != nil {
		log.WithError(err).Warn("publish SaleCompleted")
	}

	sess.Reset()
	log.WithFields(logrus.Fields{"total": total.String(), "method": req.Method}).Info("sale completed")
	return rc, nil
}

// persistedTotal returns what the Order Service will charge for an order
// the cart mirrors. Completion only settles the persisted record, so local
// edits made after loading are not part of the sale.
func (s *Service) persistedTotal(ctx context.Context, orderID int64, local decimal.Decimal, log logrus.FieldLogger) (decimal.Decimal, error) {
	o, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return decimal.Zero, errors.Wrap(upstream(err, orderID), "get order")
	}
	if o.Status != order.StatusPending {
		return decimal.Zero, errors.Wrapf(ErrOrderNotPending, "order %d is %s", orderID, o.Status)
	}
	if o.Total.IsZero() || o.Total.Equal(local) {
		return local, nil
	}
	log.WithFields(logrus.Fields{
		"order_id":        orderID,
		"persisted_total": o.Total.String(),
		"cart_total":      local.String(),
	}).Warn("cart differs from persisted order, charging persisted total")
	return o.Total, nil
}

// SavePending parks the cart as a pending order and empties it. A cart that
// already mirrors a pending order is not saved again.
func (s *Service) SavePending(ctx context.Context, sess *session.Session) (*order.Order, error) {
	sub, err := sess.Cart.Submission()
	if err != nil {
		return nil, err
	}

	log := s.log(ctx, sess)
	if sub.Mode.Kind == cart.ModeCompleteExisting {
		o, err := s.orders.GetOrder(ctx, sub.Mode.OrderID)
		if err != nil {
			return nil, errors.Wrap(upstream(err, sub.Mode.OrderID), "get order")
		}
		sess.Reset()
		log.WithField("order_id", o.ID).Info("pending order set aside")
		return o, nil
	}

	o, err := s.orders.CreateOrder(ctx, createRequest(sub.Items, sess.Customer))
	if err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	payload := events.PendingOrderSavedPayload{
		OrderID:    o.ID,
		SessionID:  sess.ID,
		CashierID:  sess.Cashier.UserID,
		TerminalID: s.terminalID,
		ItemCount:  itemCount(sub.Items),
		Total:      sub.Totals.Total,
		SavedAt:    s.now().UTC(),
	}
	if err := s.publisher.PublishPendingOrderSaved(ctx, s.meta(ctx), payload); err != nil {
		log.WithError(err).Warn("publish PendingOrderSaved")
	}

	sess.Reset()
	log.WithField("order_id", o.ID).Info("pending order saved")
	return o, nil
}

func (s *Service) ListPending(ctx context.Context) ([]order.Order, error) {
	out, err := s.orders.ListPending(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list pending orders")
	}
	return out, nil
}

// LoadPending replaces the session's cart with a pending order and binds the
// cart to it.
func (s *Service) LoadPending(ctx context.Context, sess *session.Session, orderID int64) (*order.Order, error) {
	o, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(upstream(err, orderID), "get order")
	}
	if o.Status != order.StatusPending {
		return nil, errors.Wrapf(ErrOrderNotPending, "order %d is %s", orderID, o.Status)
	}

	sess.Cart.LoadFromPersisted(*o)
	sess.Customer.Name = o.CustomerName
	sess.Customer.Phone = o.CustomerPhone
	if o.OrderType.Valid() {
		sess.Customer.OrderType = o.OrderType
	}
	sess.Customer.Notes = o.Notes

	s.log(ctx, sess).WithFields(logrus.Fields{"order_id": orderID, "items": len(o.Items)}).Info("pending order loaded")
	return o, nil
}

// CancelPending cancels a pending order. If the session's cart is bound to
// it, the cart is emptied too.
func (s *Service) CancelPending(ctx context.Context, sess *session.Session, orderID int64) error {
	if err := s.orders.CancelOrder(ctx, orderID); err != nil {
		return errors.Wrap(upstream(err, orderID), "cancel order")
	}
	if bound, ok := sess.Cart.BoundOrderID(); ok && bound == orderID {
		sess.Reset()
	}
	s.log(ctx, sess).WithField("order_id", orderID).Info("pending order cancelled")
	return nil
}

func (s *Service) log(ctx context.Context, sess *session.Session) logrus.FieldLogger {
	return s.logger.WithFields(logrus.Fields{
		"session_id":     sess.ID,
		"cashier_id":     sess.Cashier.UserID,
		"correlation_id": middleware.GetCorrelationID(ctx),
	})
}

func (s *Service) meta(ctx context.Context) events.EventMeta {
	return events.EventMeta{CorrelationID: middleware.GetCorrelationID(ctx)}
}

func (s *Service) journalEntry(sess *session.Session, rc *Receipt) journal.Receipt {
	return journal.Receipt{
		ID:             rc.ID,
		OrderID:        rc.OrderID,
		SessionID:      sess.ID,
		CashierID:      sess.Cashier.UserID,
		TerminalID:     s.terminalID,
		PaymentMethod:  rc.PaymentMethod,
		TransactionID:  rc.TransactionID,
		Subtotal:       rc.Subtotal,
		Total:          rc.Total,
		AmountReceived: rc.AmountReceived,
		Change:         rc.Change,
		ItemCount:      itemCount(rc.Items),
		CompletedAt:    rc.CompletedAt,
	}
}

func (s *Service) salePayload(sess *session.Session, rc *Receipt) events.SaleCompletedPayload {
	items := make([]events.SaleItem, 0, len(rc.Items))
	for _, it := range rc.Items {
		items = append(items, events.SaleItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			SizeID:      it.SizeID,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  it.TotalPrice,
		})
	}
	return events.SaleCompletedPayload{
		OrderID:        rc.OrderID,
		SessionID:      sess.ID,
		CashierID:      sess.Cashier.UserID,
		TerminalID:     s.terminalID,
		PaymentMethod:  rc.PaymentMethod,
		TransactionID:  rc.TransactionID,
		Items:          items,
		Subtotal:       rc.Subtotal,
		Total:          rc.Total,
		AmountReceived: rc.AmountReceived,
		Change:         rc.Change,
		CompletedAt:    rc.CompletedAt,
	}
}

func createRequest(items []cart.LineItem, c session.Customer) order.CreateRequest {
	req := order.CreateRequest{
		Items:         make([]order.CreateItem, 0, len(items)),
		CustomerName:  c.Name,
		CustomerPhone: c.Phone,
		OrderType:     c.OrderType,
		Notes:         c.Notes,
	}
	for _, it := range items {
		req.Items = append(req.Items, order.CreateItem{
			ProductID:           it.ProductID,
			SizeID:              it.SizeID,
			ModifierIDs:         it.ModifierIDs,
			Quantity:            it.Quantity,
			SpecialInstructions: it.SpecialInstructions,
		})
	}
	return req
}

func itemCount(items []cart.LineItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}
