package cart

import "github.com/pkg/errors"

var (
	ErrInvalidSizeSelection     = errors.New("invalid size selection")
	ErrInvalidModifierSelection = errors.New("invalid modifier selection")
	ErrInvalidQuantity          = errors.New("invalid quantity")
	ErrEmptyCartSubmission      = errors.New("cart is empty")
	ErrInvalidLineItemIndex     = errors.New("invalid line item index")
)

// IsValidation reports whether err is one of the engine's rejections.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidSizeSelection,
		ErrInvalidModifierSelection,
		ErrInvalidQuantity,
		ErrEmptyCartSubmission,
		ErrInvalidLineItemIndex,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
