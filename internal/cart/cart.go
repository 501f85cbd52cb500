// Package cart holds the in-progress order of one cashier session: its line
// items, their pricing, and whether it mirrors a pending order that was
// already persisted.
package cart

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/order"
)

// Cart is not safe for concurrent use. The owning session serializes access.
type Cart struct {
	items      []LineItem
	orderID    int64
	bound      bool
	stockBound bool
}

type Option func(*Cart)

// WithStockBound rejects quantities that would exceed the product's stock.
func WithStockBound() Option {
	return func(c *Cart) { c.stockBound = true }
}

func New(opts ...Option) *Cart {
	c := &Cart{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddItem prices a selection of p and either merges it into a line with the
// same product, size, modifier set and instructions, or appends a new line.
// Any bound order id is released.
func (c *Cart) AddItem(p catalog.Product, sizeID *int64, modifierIDs []int64, quantity int, instructions string) error {
	if quantity < 1 {
		return errors.Wrapf(ErrInvalidQuantity, "quantity %d must be at least 1", quantity)
	}

	unit := p.Price
	var sizeName string
	if sizeID != nil {
		s, ok := p.Size(*sizeID)
		if !ok {
			return errors.Wrapf(ErrInvalidSizeSelection, "size %d is not offered for product %d", *sizeID, p.ID)
		}
		unit = unit.Add(s.PriceDelta)
		sizeName = s.Name
	}

	seen := make(map[int64]struct{}, len(modifierIDs))
	mods := make([]ModifierSnapshot, 0, len(modifierIDs))
	for _, id := range modifierIDs {
		if _, dup := seen[id]; dup {
			return errors.Wrapf(ErrInvalidModifierSelection, "modifier %d selected more than once", id)
		}
		seen[id] = struct{}{}

		m, ok := p.Modifier(id)
		if !ok {
			return errors.Wrapf(ErrInvalidModifierSelection, "modifier %d is not offered for product %d", id, p.ID)
		}
		unit = unit.Add(m.PriceDelta)
		mods = append(mods, ModifierSnapshot{ID: m.ID, Name: m.Name, PriceDelta: m.PriceDelta})
	}

	if c.stockBound {
		if inCart := c.productQuantity(p.ID); inCart+quantity > p.Stock {
			return errors.Wrapf(ErrInvalidQuantity, "product %d has %d in stock, %d already in cart", p.ID, p.Stock, inCart)
		}
	}

	key := newMergeKey(p.ID, sizeID, modifierIDs, instructions)
	if idx := c.find(key); idx >= 0 {
		item := &c.items[idx]
		item.setQuantity(item.Quantity + quantity)
		if c.stockBound {
			item.stockLimit = p.Stock
		}
	} else {
		item := LineItem{
			ProductID:           p.ID,
			ProductName:         p.Name,
			SizeName:            sizeName,
			ModifierIDs:         append([]int64{}, modifierIDs...),
			Modifiers:           mods,
			UnitPrice:           unit,
			SpecialInstructions: instructions,
		}
		if sizeID != nil {
			id := *sizeID
			item.SizeID = &id
		}
		if c.stockBound {
			item.stockLimit = p.Stock
		}
		item.setQuantity(quantity)
		c.items = append(c.items, item)
	}

	c.unbind()
	return nil
}

func (c *Cart) RemoveItem(index int) error {
	if err := c.checkIndex(index); err != nil {
		return err
	}
	c.items = append(c.items[:index], c.items[index+1:]...)
	return nil
}

// ChangeQuantity adds delta to the line's quantity. A result of zero or less
// removes the line.
func (c *Cart) ChangeQuantity(index, delta int) error {
	if err := c.checkIndex(index); err != nil {
		return err
	}

	item := &c.items[index]
	next := item.Quantity + delta
	if next <= 0 {
		return c.RemoveItem(index)
	}

	if c.stockBound && delta > 0 && item.stockLimit > 0 {
		if inCart := c.productQuantity(item.ProductID); inCart+delta > item.stockLimit {
			return errors.Wrapf(ErrInvalidQuantity, "product %d has %d in stock, %d already in cart", item.ProductID, item.stockLimit, inCart)
		}
	}

	item.setQuantity(next)
	return nil
}

// ComputeTotals sums line totals. No tax is applied, so Total equals Subtotal.
func (c *Cart) ComputeTotals() Totals {
	sum := decimal.Zero
	for _, it := range c.items {
		sum = sum.Add(it.TotalPrice)
	}
	return Totals{Subtotal: sum, Total: sum}
}

// LoadFromPersisted replaces the cart with a copy of o's items and binds the
// cart to o.ID. Names and prices come from the record, not the live catalog.
// Lines without a positive quantity are dropped.
func (c *Cart) LoadFromPersisted(o order.Order) {
	items := make([]LineItem, 0, len(o.Items))
	for _, it := range o.Items {
		if it.Quantity <= 0 {
			continue
		}
		li := LineItem{
			ProductID:           it.ProductID,
			ProductName:         it.ProductName,
			SizeName:            it.SizeName,
			ModifierIDs:         append([]int64{}, it.ModifierIDs...),
			Modifiers:           make([]ModifierSnapshot, 0, len(it.Modifiers)),
			Quantity:            it.Quantity,
			UnitPrice:           it.UnitPrice,
			TotalPrice:          it.TotalPrice,
			SpecialInstructions: it.SpecialInstructions,
		}
		if it.SizeID != nil {
			id := *it.SizeID
			li.SizeID = &id
		}
		for _, m := range it.Modifiers {
			li.Modifiers = append(li.Modifiers, ModifierSnapshot{ID: m.ID, Name: m.Name, PriceDelta: m.PriceDelta})
		}
		if len(li.ModifierIDs) == 0 {
			for _, m := range it.Modifiers {
				li.ModifierIDs = append(li.ModifierIDs, m.ID)
			}
		}

		// The order service keeps modifier deltas out of unit_price but in
		// total_price. Only exact per-unit prices replace the recorded one.
		q := decimal.NewFromInt(int64(it.Quantity))
		if !li.UnitPrice.Mul(q).Equal(li.TotalPrice) && li.TotalPrice.Mod(q).IsZero() {
			li.UnitPrice = li.TotalPrice.Div(q)
		}
		items = append(items, li)
	}

	c.items = items
	c.orderID = o.ID
	c.bound = true
}

func (c *Cart) Clear() {
	c.items = nil
	c.unbind()
}

func (c *Cart) SubmissionMode() SubmissionMode {
	if c.bound {
		return SubmissionMode{Kind: ModeCompleteExisting, OrderID: c.orderID}
	}
	return SubmissionMode{Kind: ModeCreate}
}

// Submission snapshots the cart for the order collaborator.
func (c *Cart) Submission() (Submission, error) {
	if len(c.items) == 0 {
		return Submission{}, ErrEmptyCartSubmission
	}
	return Submission{
		Mode:   c.SubmissionMode(),
		Items:  c.Items(),
		Totals: c.ComputeTotals(),
	}, nil
}

// Items returns a copy of the line items in display order.
func (c *Cart) Items() []LineItem {
	out := make([]LineItem, len(c.items))
	for i, it := range c.items {
		out[i] = it.clone()
	}
	return out
}

func (c *Cart) Len() int { return len(c.items) }

// Bind ties the current lines to a persisted order without reloading them.
func (c *Cart) Bind(orderID int64) {
	c.orderID = orderID
	c.bound = true
}

func (c *Cart) BoundOrderID() (int64, bool) {
	return c.orderID, c.bound
}

func (c *Cart) unbind() {
	c.orderID = 0
	c.bound = false
}

func (c *Cart) checkIndex(index int) error {
	if index < 0 || index >= len(c.items) {
		return errors.Wrapf(ErrInvalidLineItemIndex, "index %d out of range [0,%d)", index, len(c.items))
	}
	return nil
}

func (c *Cart) productQuantity(productID int64) int {
	n := 0
	for _, it := range c.items {
		if it.ProductID == productID {
			n += it.Quantity
		}
	}
	return n
}

func (c *Cart) find(key mergeKey) int {
	for i := range c.items {
		it := &c.items[i]
		if newMergeKey(it.ProductID, it.SizeID, it.ModifierIDs, it.SpecialInstructions) == key {
			return i
		}
	}
	return -1
}

// mergeKey identifies a merge slot. Modifier ids are compared as a set.
type mergeKey struct {
	productID    int64
	hasSize      bool
	sizeID       int64
	modifiers    string
	instructions string
}

func newMergeKey(productID int64, sizeID *int64, modifierIDs []int64, instructions string) mergeKey {
	k := mergeKey{productID: productID, instructions: instructions}
	if sizeID != nil {
		k.hasSize = true
		k.sizeID = *sizeID
	}

	ids := append([]int64(nil), modifierIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	k.modifiers = strings.Join(parts, ",")
	return k
}
