package cart

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type ModifierSnapshot struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	PriceDelta decimal.Decimal `json:"priceDelta"`
}

// LineItem is one priced entry in a cart. UnitPrice is fixed when the line is
// created; only Quantity and TotalPrice move afterwards.
type LineItem struct {
	ProductID           int64              `json:"productId"`
	ProductName         string             `json:"productName"`
	SizeID              *int64             `json:"sizeId,omitempty"`
	SizeName            string             `json:"sizeName,omitempty"`
	ModifierIDs         []int64            `json:"modifierIds"`
	Modifiers           []ModifierSnapshot `json:"modifiers"`
	Quantity            int                `json:"quantity"`
	UnitPrice           decimal.Decimal    `json:"unitPrice"`
	TotalPrice          decimal.Decimal    `json:"totalPrice"`
	SpecialInstructions string             `json:"specialInstructions"`

	// stock available for the product when the line was added; 0 = unbounded
	stockLimit int
}

func (li *LineItem) setQuantity(q int) {
	li.Quantity = q
	li.TotalPrice = li.UnitPrice.Mul(decimal.NewFromInt(int64(q)))
}

func (li LineItem) clone() LineItem {
	out := li
	if li.SizeID != nil {
		id := *li.SizeID
		out.SizeID = &id
	}
	out.ModifierIDs = append([]int64(nil), li.ModifierIDs...)
	out.Modifiers = append([]ModifierSnapshot(nil), li.Modifiers...)
	return out
}

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Total    decimal.Decimal `json:"total"`
}

type ModeKind int

const (
	ModeCreate ModeKind = iota
	ModeCompleteExisting
)

func (k ModeKind) String() string {
	switch k {
	case ModeCreate:
		return "create"
	case ModeCompleteExisting:
		return "complete_existing"
	default:
		return fmt.Sprintf("ModeKind(%d)", int(k))
	}
}

// SubmissionMode tells the order collaborator whether to create a new order
// and complete it, or to complete OrderID alone.
type SubmissionMode struct {
	Kind    ModeKind `json:"-"`
	OrderID int64    `json:"orderId,omitempty"`
}

func (m SubmissionMode) String() string {
	if m.Kind == ModeCompleteExisting {
		return fmt.Sprintf("%s(%d)", m.Kind, m.OrderID)
	}
	return m.Kind.String()
}

// Submission is a point-in-time snapshot handed to the order collaborator.
type Submission struct {
	Mode   SubmissionMode
	Items  []LineItem
	Totals Totals
}
