// Package session keeps one Cart per open cashier session. Each session is
// locked by its caller for the length of an action, so a cart only ever has
// one writer.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/auth"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/order"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionForbidden = errors.New("session belongs to another cashier")
)

type Customer struct {
	Name      string     `json:"name"`
	Phone     string     `json:"phone"`
	OrderType order.Type `json:"orderType"`
	Notes     string     `json:"notes"`
}

func defaultCustomer() Customer {
	return Customer{OrderType: order.TypeTakeaway}
}

type Session struct {
	sync.Mutex

	ID       string
	Cashier  auth.Identity
	Cart     *cart.Cart
	Customer Customer
	OpenedAt time.Time

	lastSeen time.Time
}

// Reset empties the cart and forgets the customer. Callers hold the lock.
func (s *Session) Reset() {
	s.Cart.Clear()
	s.Customer = defaultCustomer()
}

type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	cartOpts []cart.Option
	idle     time.Duration
	now      func() time.Time
	logger   logrus.FieldLogger
}

// NewRegistry creates a registry whose sessions expire after idle without
// use. A zero idle disables expiry.
func NewRegistry(idle time.Duration, logger logrus.FieldLogger, cartOpts ...cart.Option) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		cartOpts: cartOpts,
		idle:     idle,
		now:      time.Now,
		logger:   logger,
	}
}

func (r *Registry) Open(cashier auth.Identity) *Session {
	now := r.now()
	s := &Session{
		ID:       uuid.NewString(),
		Cashier:  cashier,
		Cart:     cart.New(r.cartOpts...),
		Customer: defaultCustomer(),
		OpenedAt: now,
		lastSeen: now,
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	r.logger.WithFields(logrus.Fields{"session_id": s.ID, "cashier_id": cashier.UserID}).Info("session opened")
	return s
}

// Get returns the session if it exists and belongs to cashierID.
func (r *Registry) Get(id string, cashierID int64) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, errors.Wrapf(ErrSessionNotFound, "session %s", id)
	}
	if s.Cashier.UserID != cashierID {
		return nil, errors.Wrapf(ErrSessionForbidden, "session %s", id)
	}
	s.lastSeen = r.now()
	return s, nil
}

func (r *Registry) Close(id string, cashierID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return errors.Wrapf(ErrSessionNotFound, "session %s", id)
	}
	if s.Cashier.UserID != cashierID {
		return errors.Wrapf(ErrSessionForbidden, "session %s", id)
	}
	delete(r.sessions, id)

	r.logger.WithFields(logrus.Fields{"session_id": id, "cashier_id": cashierID}).Info("session closed")
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions idle since before now-idle and returns how many went.
func (r *Registry) Sweep(now time.Time) int {
	if r.idle <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, s := range r.sessions {
		if now.Sub(s.lastSeen) > r.idle {
			delete(r.sessions, id)
			n++
			r.logger.WithFields(logrus.Fields{"session_id": id, "cashier_id": s.Cashier.UserID}).Info("session expired")
		}
	}
	return n
}

// Run sweeps periodically until ctx is done.
func (r *Registry) Run(ctx context.Context, every time.Duration) {
	if r.idle <= 0 || every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Sweep(r.now())
		}
	}
}
