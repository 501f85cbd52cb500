package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/session"
)

type ScreenKind string

const (
	ScreenProducts      ScreenKind = "products"
	ScreenCart          ScreenKind = "cart"
	ScreenPendingOrders ScreenKind = "pending-orders"
	ScreenReceipts      ScreenKind = "receipts"
	ScreenSettings      ScreenKind = "settings"
)

var ErrUnknownScreen = errors.New("unknown screen")

func ParseScreen(name string) (ScreenKind, error) {
	switch k := ScreenKind(name); k {
	case ScreenProducts, ScreenCart, ScreenPendingOrders, ScreenReceipts, ScreenSettings:
		return k, nil
	default:
		return "", errors.Wrapf(ErrUnknownScreen, "%q", name)
	}
}

type screenQuery struct {
	categoryID int64
	search     string
	limit      int
}

// screenLoader builds one screen's view model. It runs with the session
// locked.
type screenLoader func(ctx context.Context, h *Handler, s *session.Session, q screenQuery) (any, error)

var screenLoaders = map[ScreenKind]screenLoader{
	ScreenProducts:      loadProductsScreen,
	ScreenCart:          loadCartScreen,
	ScreenPendingOrders: loadPendingScreen,
	ScreenReceipts:      loadReceiptsScreen,
	ScreenSettings:      loadSettingsScreen,
}

type productsScreen struct {
	Products   []catalog.Product  `json:"products"`
	Categories []catalog.Category `json:"categories"`
}

func loadProductsScreen(ctx context.Context, h *Handler, _ *session.Session, q screenQuery) (any, error) {
	products, err := h.Catalog.Products(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := h.Catalog.Categories(ctx)
	if err != nil {
		return nil, err
	}
	return productsScreen{
		Products:   catalog.Filter(products, q.categoryID, q.search),
		Categories: categories,
	}, nil
}

func loadCartScreen(_ context.Context, _ *Handler, s *session.Session, _ screenQuery) (any, error) {
	return newCartView(s), nil
}

func loadPendingScreen(ctx context.Context, h *Handler, _ *session.Session, _ screenQuery) (any, error) {
	return h.Checkout.ListPending(ctx)
}

func loadReceiptsScreen(ctx context.Context, h *Handler, s *session.Session, q screenQuery) (any, error) {
	return h.Receipts.ListBySession(ctx, s.ID, q.limit)
}

func loadSettingsScreen(ctx context.Context, h *Handler, _ *session.Session, _ screenQuery) (any, error) {
	return h.Settings.Get(ctx)
}

func (h *Handler) Screen(w http.ResponseWriter, r *http.Request) {
	kind, err := ParseScreen(chi.URLParam(r, "screen"))
	if err != nil {
		h.writeDomainError(w, r, errors.Wrap(errBadRequest, err.Error()))
		return
	}
	q, err := parseScreenQuery(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.withSession(w, r, func(s *session.Session) {
		ctx, cancel := context.WithTimeout(r.Context(), upstreamTimeout)
		defer cancel()

		view, err := screenLoaders[kind](ctx, h, s, q)
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"screen": kind, "data": view})
	})
}

func parseScreenQuery(r *http.Request) (screenQuery, error) {
	values := r.URL.Query()
	q := screenQuery{search: values.Get("q")}
	if raw := values.Get("category"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return q, errors.Wrapf(errBadRequest, "invalid category %q", raw)
		}
		q.categoryID = id
	}
	if raw := values.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return q, errors.Wrapf(errBadRequest, "invalid limit %q", raw)
		}
		q.limit = n
	}
	return q, nil
}
