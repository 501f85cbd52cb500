package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/session"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type addItemRequest struct {
	ProductID           int64   `json:"productId" validate:"required,gt=0"`
	SizeID              *int64  `json:"sizeId" validate:"omitempty,gt=0"`
	ModifierIDs         []int64 `json:"modifierIds" validate:"omitempty,dive,gt=0"`
	Quantity            *int    `json:"quantity"`
	SpecialInstructions string  `json:"specialInstructions" validate:"max=500"`
}

// quantity defaults to one when the field is omitted.
func (r addItemRequest) quantity() int {
	if r.Quantity == nil {
		return 1
	}
	return *r.Quantity
}

type changeQuantityRequest struct {
	Delta int `json:"delta"`
}

type customerRequest struct {
	Name      string `json:"name" validate:"max=100"`
	Phone     string `json:"phone" validate:"max=30"`
	OrderType string `json:"orderType" validate:"omitempty,oneof=dine_in takeaway"`
	Notes     string `json:"notes" validate:"max=500"`
}

type paymentRequest struct {
	Method         string          `json:"method" validate:"required"`
	AmountReceived decimal.Decimal `json:"amountReceived"`
	TransactionID  string          `json:"transactionId" validate:"max=100"`
}

type openSessionResponse struct {
	SessionID      string `json:"sessionId"`
	RegisterOpened bool   `json:"registerOpened"`
}

type cartView struct {
	Items        []cart.LineItem  `json:"items"`
	Totals       cart.Totals      `json:"totals"`
	Mode         string           `json:"mode"`
	BoundOrderID *int64           `json:"boundOrderId,omitempty"`
	Customer     session.Customer `json:"customer"`
}

func newCartView(s *session.Session) cartView {
	v := cartView{
		Items:    s.Cart.Items(),
		Totals:   s.Cart.ComputeTotals(),
		Mode:     s.Cart.SubmissionMode().Kind.String(),
		Customer: s.Customer,
	}
	if id, ok := s.Cart.BoundOrderID(); ok {
		v.BoundOrderID = &id
	}
	return v
}

var errBadRequest = errors.New("bad request")

// decode reads a JSON body into dst and validates it.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrapf(errBadRequest, "invalid json: %v", err)
	}
	if err := validate.Struct(dst); err != nil {
		return errors.Wrapf(errBadRequest, "validation failed: %v", err)
	}
	return nil
}
