package httpapi

import (
	"net/http"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/session"
)

// statusFor maps an error to its response status. Order matters: index and
// empty-cart errors are also engine validation errors.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, cart.ErrInvalidLineItemIndex):
		return http.StatusNotFound
	case errors.Is(err, cart.ErrEmptyCartSubmission):
		return http.StatusConflict
	case cart.IsValidation(err),
		errors.Is(err, checkout.ErrInvalidPaymentMethod),
		errors.Is(err, checkout.ErrInsufficientPayment),
		errors.Is(err, checkout.ErrOrderNotPending):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, checkout.ErrOrderNotFound),
		errors.Is(err, catalog.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrSessionForbidden):
		return http.StatusForbidden
	}

	var apiErr *clients.APIError
	if errors.As(err, &apiErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	log := h.logger.WithError(err).WithFields(logrus.Fields{
		"status":         status,
		"path":           r.URL.Path,
		"correlation_id": middleware.GetCorrelationID(r.Context()),
	})

	msg := err.Error()
	switch {
	case status == http.StatusBadGateway:
		var apiErr *clients.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			msg = apiErr.Message
		}
		log.Warn("upstream error")
	case status >= http.StatusInternalServerError:
		msg = "internal server error"
		log.Error("request failed")
	default:
		log.Debug("request rejected")
	}

	middleware.WriteError(w, r, status, msg)
}
