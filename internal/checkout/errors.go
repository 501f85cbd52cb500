package checkout

import (
	"github.com/pkg/errors"

	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/clients"
)

var (
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInsufficientPayment  = errors.New("amount received is less than the total")
	ErrOrderNotPending      = errors.New("order is not pending")
	ErrOrderNotFound        = errors.New("order not found")
)

// upstream turns a remote 404 into ErrOrderNotFound and leaves other errors
// as they are.
func upstream(err error, orderID int64) error {
	if clients.IsNotFound(err) {
		return errors.Wrapf(ErrOrderNotFound, "order %d: %v", orderID, err)
	}
	return err
}
