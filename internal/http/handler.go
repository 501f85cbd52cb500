// Package httpapi is the terminal's JSON API for the browser shell.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/auth"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/journal"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/session"
)

const upstreamTimeout = 15 * time.Second

type Sessions interface {
	Open(cashier auth.Identity) *session.Session
	Get(id string, cashierID int64) (*session.Session, error)
	Close(id string, cashierID int64) error
}

type Catalog interface {
	Products(ctx context.Context) ([]catalog.Product, error)
	Product(ctx context.Context, id int64) (catalog.Product, error)
	Categories(ctx context.Context) ([]catalog.Category, error)
}

type Checkout interface {
	Pay(ctx context.Context, s *session.Session, req checkout.PaymentRequest) (*checkout.Receipt, error)
	SavePending(ctx context.Context, s *session.Session) (*order.Order, error)
	ListPending(ctx context.Context) ([]order.Order, error)
	LoadPending(ctx context.Context, s *session.Session, orderID int64) (*order.Order, error)
	CancelPending(ctx context.Context, s *session.Session, orderID int64) error
}

type Register interface {
	EnsureOpen(ctx context.Context) (bool, error)
}

type Receipts interface {
	ListBySession(ctx context.Context, sessionID string, limit int) ([]journal.Receipt, error)
}

type Settings interface {
	Get(ctx context.Context) (map[string]any, error)
}

// HealthFunc probes the remote services.
type HealthFunc func(ctx context.Context) []clients.HealthResult

type Deps struct {
	Sessions Sessions
	Catalog  Catalog
	Checkout Checkout
	Register Register
	Receipts Receipts
	Settings Settings
	Health   HealthFunc
}

type Handler struct {
	Deps
	logger logrus.FieldLogger
}

func NewHandler(deps Deps, logger logrus.FieldLogger) *Handler {
	return &Handler{Deps: deps, logger: logger}
}

func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "pos-terminal"})
}

func (h *Handler) UpstreamHealth(w http.ResponseWriter, r *http.Request) {
	var results []clients.HealthResult
	if h.Health != nil {
		results = h.Health(r.Context())
	}

	status := http.StatusOK
	for _, res := range results {
		if !res.OK {
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, map[string]any{"upstreams": results})
}

// OpenSession starts a terminal session for the caller. It also makes sure a
// cash register session is open upstream; failing that is logged only.
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())
	s := h.Sessions.Open(id)

	ctx, cancel := context.WithTimeout(r.Context(), upstreamTimeout)
	defer cancel()

	opened, err := h.Register.EnsureOpen(ctx)
	if err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"session_id":     s.ID,
			"cashier_id":     id.UserID,
			"correlation_id": middleware.GetCorrelationID(r.Context()),
		}).Warn("ensure cash register session")
	}

	writeJSON(w, http.StatusCreated, openSessionResponse{SessionID: s.ID, RegisterOpened: opened})
}

func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())
	if err := h.Sessions.Close(chi.URLParam(r, "sessionId"), id.UserID); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(s *session.Session) {
		writeJSON(w, http.StatusOK, newCartView(s))
	})
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(s *session.Session) {
		s.Cart.Clear()
		writeJSON(w, http.StatusOK, newCartView(s))
	})
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var body addItemRequest
	if err := decode(r, &body); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	// ownership is checked before the catalog round trip
	if _, err := h.session(r); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), upstreamTimeout)
	defer cancel()

	p, err := h.Catalog.Product(ctx, body.ProductID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.withSession(w, r, func(s *session.Session) {
		if err := s.Cart.AddItem(p, body.SizeID, body.ModifierIDs, body.quantity(), body.SpecialInstructions); err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newCartView(s))
	})
}

func (h *Handler) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	index, err := pathInt(r, "index")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	var body changeQuantityRequest
	if err := decode(r, &body); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.withSession(w, r, func(s *session.Session) {
		if err := s.Cart.ChangeQuantity(int(index), body.Delta); err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newCartView(s))
	})
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	index, err := pathInt(r, "index")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.withSession(w, r, func(s *session.Session) {
		if err := s.Cart.RemoveItem(int(index)); err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newCartView(s))
	})
}

func (h *Handler) SetCustomer(w http.ResponseWriter, r *http.Request) {
	var body customerRequest
	if err := decode(r, &body); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.withSession(w, r, func(s *session.Session) {
		s.Customer = session.Customer{
			Name:      body.Name,
			Phone:     body.Phone,
			OrderType: order.Type(body.OrderType),
			Notes:     body.Notes,
		}
		if !s.Customer.OrderType.Valid() {
			s.Customer.OrderType = order.TypeTakeaway
		}
		writeJSON(w, http.StatusOK, s.Customer)
	})
}

func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	var body paymentRequest
	if err := decode(r, &body); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.withSession(w, r, func(s *session.Session) {
		ctx, cancel := context.WithTimeout(r.Context(), upstreamTimeout)
		defer cancel()

		rc, err := h.Checkout.Pay(ctx, s, checkout.PaymentRequest{
			Method:         order.PaymentMethod(body.Method),
			AmountReceived: body.AmountReceived,
			TransactionID:  body.TransactionID,
		})
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rc)
	})
}

func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	if _, err := h.session(r); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), upstreamTimeout)
	defer cancel()

	orders, err := h.Checkout.ListPending(ctx)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) SavePending(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(s *session.Session) {
		ctx, cancel := context.WithTimeout(r.Context(), upstreamTimeout)
		defer cancel()

		o, err := h.Checkout.SavePending(ctx, s)
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, o)
	})
}

func (h *Handler) LoadPending(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathInt(r, "orderId")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.withSession(w, r, func(s *session.Session) {
		ctx, cancel := context.WithTimeout(r.Context(), upstreamTimeout)
		defer cancel()

		if _, err := h.Checkout.LoadPending(ctx, s, orderID); err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newCartView(s))
	})
}

func (h *Handler) CancelPending(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathInt(r, "orderId")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.withSession(w, r, func(s *session.Session) {
		ctx, cancel := context.WithTimeout(r.Context(), upstreamTimeout)
		defer cancel()

		if err := h.Checkout.CancelPending(ctx, s, orderID); err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newCartView(s))
	})
}

func (h *Handler) session(r *http.Request) (*session.Session, error) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		return nil, errors.Wrap(session.ErrSessionForbidden, "no identity")
	}
	return h.Sessions.Get(chi.URLParam(r, "sessionId"), id.UserID)
}

// withSession runs fn with the request's session locked.
func (h *Handler) withSession(w http.ResponseWriter, r *http.Request, fn func(s *session.Session)) {
	s, err := h.session(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	s.Lock()
	defer s.Unlock()
	fn(s)
}

func pathInt(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(errBadRequest, "invalid %s %q", name, raw)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
