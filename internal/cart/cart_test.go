package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/order"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func id(v int64) *int64 { return &v }

func latte() catalog.Product {
	return catalog.Product{
		ID:    1,
		Name:  "Latte",
		Price: d(250),
		Stock: 10,
		Sizes: []catalog.Size{
			{ID: 11, Name: "Small", PriceDelta: d(0)},
			{ID: 12, Name: "Large", PriceDelta: d(50)},
		},
		Modifiers: []catalog.Modifier{
			{ID: 21, Name: "Extra Shot", PriceDelta: d(30)},
			{ID: 22, Name: "Decaf", PriceDelta: d(0)},
			{ID: 23, Name: "Oat Milk", PriceDelta: d(40)},
		},
	}
}

func croissant() catalog.Product {
	return catalog.Product{ID: 2, Name: "Croissant", Price: d(150), Stock: 3}
}

func TestAddItem_PricesSelection(t *testing.T) {
	c := New()

	require.NoError(t, c.AddItem(latte(), id(12), []int64{21, 22}, 2, ""))

	items := c.Items()
	require.Len(t, items, 1)
	assert.True(t, items[0].UnitPrice.Equal(d(330)), "unit price %s", items[0].UnitPrice)
	assert.True(t, items[0].TotalPrice.Equal(d(660)), "total price %s", items[0].TotalPrice)
	assert.Equal(t, "Large", items[0].SizeName)
	assert.Equal(t, "Latte", items[0].ProductName)
	require.Len(t, items[0].Modifiers, 2)
	assert.Equal(t, "Extra Shot", items[0].Modifiers[0].Name)
}

func TestAddItem_Validation(t *testing.T) {
	tests := map[string]struct {
		sizeID    *int64
		modifiers []int64
		quantity  int
		want      error
	}{
		"zero quantity":      {quantity: 0, want: ErrInvalidQuantity},
		"negative quantity":  {quantity: -2, want: ErrInvalidQuantity},
		"unknown size":       {sizeID: id(99), quantity: 1, want: ErrInvalidSizeSelection},
		"unknown modifier":   {modifiers: []int64{21, 99}, quantity: 1, want: ErrInvalidModifierSelection},
		"duplicate modifier": {modifiers: []int64{21, 21}, quantity: 1, want: ErrInvalidModifierSelection},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			c := New()
			err := c.AddItem(latte(), tc.sizeID, tc.modifiers, tc.quantity, "")
			require.ErrorIs(t, err, tc.want)
			assert.True(t, IsValidation(err))
			assert.Equal(t, 0, c.Len())
		})
	}
}

func TestAddItem_MergesSameSlot(t *testing.T) {
	c := New()

	require.NoError(t, c.AddItem(latte(), id(12), []int64{21, 23}, 1, "no foam"))
	require.NoError(t, c.AddItem(latte(), id(12), []int64{23, 21}, 3, "no foam"))

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 4, items[0].Quantity)
	assert.True(t, items[0].TotalPrice.Equal(d(4*370)))
}

func TestAddItem_DistinctSlots(t *testing.T) {
	tests := map[string]struct {
		sizeID       *int64
		modifiers    []int64
		instructions string
	}{
		"different size":         {sizeID: id(11), modifiers: []int64{21}},
		"no size":                {modifiers: []int64{21}},
		"different modifiers":    {sizeID: id(12), modifiers: []int64{21, 22}},
		"different instructions": {sizeID: id(12), modifiers: []int64{21}, instructions: "extra hot"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			c := New()
			require.NoError(t, c.AddItem(latte(), id(12), []int64{21}, 1, ""))
			require.NoError(t, c.AddItem(latte(), tc.sizeID, tc.modifiers, 1, tc.instructions))
			assert.Equal(t, 2, c.Len())
		})
	}
}

func TestAddItem_MergeKeepsFrozenUnitPrice(t *testing.T) {
	c := New()
	p := latte()
	require.NoError(t, c.AddItem(p, nil, nil, 1, ""))

	p.Price = d(999)
	require.NoError(t, c.AddItem(p, nil, nil, 2, ""))

	items := c.Items()
	require.Len(t, items, 1)
	assert.True(t, items[0].UnitPrice.Equal(d(250)))
	assert.True(t, items[0].TotalPrice.Equal(d(750)))
}

func TestAddItem_PreservesOrderOnMerge(t *testing.T) {
	c := New()
	require.NoError(t, c.AddItem(latte(), nil, nil, 1, ""))
	require.NoError(t, c.AddItem(croissant(), nil, nil, 1, ""))
	require.NoError(t, c.AddItem(latte(), nil, nil, 1, ""))

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, int64(1), items[0].ProductID)
	assert.Equal(t, int64(2), items[1].ProductID)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestAddItem_ReleasesBoundOrder(t *testing.T) {
	c := New()
	c.LoadFromPersisted(order.Order{ID: 42, Items: []order.Item{
		{ProductID: 2, ProductName: "Croissant", Quantity: 1, UnitPrice: d(150), TotalPrice: d(150)},
	}})
	require.Equal(t, ModeCompleteExisting, c.SubmissionMode().Kind)

	require.NoError(t, c.AddItem(croissant(), nil, nil, 1, ""))

	assert.Equal(t, SubmissionMode{Kind: ModeCreate}, c.SubmissionMode())
	_, bound := c.BoundOrderID()
	assert.False(t, bound)
}

func TestAddItem_RejectedCallKeepsBinding(t *testing.T) {
	c := New()
	c.LoadFromPersisted(order.Order{ID: 7})

	require.Error(t, c.AddItem(latte(), id(99), nil, 1, ""))

	assert.Equal(t, SubmissionMode{Kind: ModeCompleteExisting, OrderID: 7}, c.SubmissionMode())
}

func TestStockBound(t *testing.T) {
	t.Run("add beyond stock", func(t *testing.T) {
		c := New(WithStockBound())
		require.NoError(t, c.AddItem(croissant(), nil, nil, 2, ""))
		err := c.AddItem(croissant(), nil, nil, 2, "")
		require.ErrorIs(t, err, ErrInvalidQuantity)
		assert.Equal(t, 2, c.Items()[0].Quantity)
	})

	t.Run("stock counted across slots", func(t *testing.T) {
		c := New(WithStockBound())
		require.NoError(t, c.AddItem(croissant(), nil, nil, 2, ""))
		err := c.AddItem(croissant(), nil, nil, 2, "warm")
		require.ErrorIs(t, err, ErrInvalidQuantity)
		require.NoError(t, c.AddItem(croissant(), nil, nil, 1, "warm"))
		assert.Equal(t, 2, c.Len())
	})

	t.Run("increment beyond stock", func(t *testing.T) {
		c := New(WithStockBound())
		require.NoError(t, c.AddItem(croissant(), nil, nil, 3, ""))
		require.ErrorIs(t, c.ChangeQuantity(0, 1), ErrInvalidQuantity)
		require.NoError(t, c.ChangeQuantity(0, -1))
		assert.Equal(t, 2, c.Items()[0].Quantity)
	})

	t.Run("disabled by default", func(t *testing.T) {
		c := New()
		require.NoError(t, c.AddItem(croissant(), nil, nil, 50, ""))
		require.NoError(t, c.ChangeQuantity(0, 50))
	})

	t.Run("loaded lines are unbounded", func(t *testing.T) {
		c := New(WithStockBound())
		c.LoadFromPersisted(order.Order{ID: 3, Items: []order.Item{
			{ProductID: 2, Quantity: 5, UnitPrice: d(150), TotalPrice: d(750)},
		}})
		require.NoError(t, c.ChangeQuantity(0, 10))
	})
}

func TestRemoveItem(t *testing.T) {
	c := New()
	require.NoError(t, c.AddItem(latte(), nil, nil, 1, ""))
	require.NoError(t, c.AddItem(croissant(), nil, nil, 1, ""))

	require.ErrorIs(t, c.RemoveItem(2), ErrInvalidLineItemIndex)
	require.ErrorIs(t, c.RemoveItem(-1), ErrInvalidLineItemIndex)

	require.NoError(t, c.RemoveItem(0))
	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int64(2), items[0].ProductID)
}

func TestChangeQuantity(t *testing.T) {
	t.Run("recomputes total", func(t *testing.T) {
		c := New()
		require.NoError(t, c.AddItem(latte(), id(12), nil, 1, ""))
		require.NoError(t, c.ChangeQuantity(0, 2))

		it := c.Items()[0]
		assert.Equal(t, 3, it.Quantity)
		assert.True(t, it.UnitPrice.Equal(d(300)))
		assert.True(t, it.TotalPrice.Equal(d(900)))
	})

	t.Run("to zero removes", func(t *testing.T) {
		c := New()
		require.NoError(t, c.AddItem(latte(), nil, nil, 1, ""))
		require.NoError(t, c.AddItem(croissant(), nil, nil, 2, ""))
		before := c.ComputeTotals().Total

		require.NoError(t, c.ChangeQuantity(1, -2))

		assert.Equal(t, 1, c.Len())
		assert.True(t, c.ComputeTotals().Total.Equal(before.Sub(d(300))))
	})

	t.Run("below zero removes", func(t *testing.T) {
		c := New()
		require.NoError(t, c.AddItem(latte(), nil, nil, 1, ""))
		require.NoError(t, c.ChangeQuantity(0, -5))
		assert.Equal(t, 0, c.Len())
	})

	t.Run("bad index", func(t *testing.T) {
		c := New()
		require.ErrorIs(t, c.ChangeQuantity(0, 1), ErrInvalidLineItemIndex)
	})
}

func TestComputeTotals(t *testing.T) {
	c := New()
	a := catalog.Product{ID: 1, Name: "A", Price: d(100)}
	b := catalog.Product{ID: 2, Name: "B", Price: d(150)}
	require.NoError(t, c.AddItem(a, nil, nil, 3, ""))
	require.NoError(t, c.AddItem(b, nil, nil, 1, ""))

	totals := c.ComputeTotals()
	assert.True(t, totals.Subtotal.Equal(d(450)))
	assert.True(t, totals.Total.Equal(d(450)))

	empty := New().ComputeTotals()
	assert.True(t, empty.Total.IsZero())
}

func TestLoadFromPersisted(t *testing.T) {
	c := New()
	require.NoError(t, c.AddItem(latte(), nil, nil, 1, ""))

	c.LoadFromPersisted(order.Order{
		ID: 17,
		Items: []order.Item{
			{
				ProductID:   1,
				ProductName: "Latte (old name)",
				SizeID:      id(12),
				SizeName:    "Large",
				ModifierIDs: []int64{21},
				Modifiers:   []order.ItemModifier{{ID: 21, Name: "Extra Shot", PriceDelta: d(30)}},
				Quantity:    2,
				// unit price without modifiers, total with them
				UnitPrice:           d(300),
				TotalPrice:          d(660),
				SpecialInstructions: "to go",
			},
			{ProductID: 2, ProductName: "Croissant", Quantity: 1, UnitPrice: d(150), TotalPrice: d(150)},
		},
	})

	assert.Equal(t, SubmissionMode{Kind: ModeCompleteExisting, OrderID: 17}, c.SubmissionMode())
	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "Latte (old name)", items[0].ProductName)
	assert.True(t, items[0].UnitPrice.Equal(d(330)))
	assert.True(t, items[0].TotalPrice.Equal(d(660)))
	assert.Equal(t, "to go", items[0].SpecialInstructions)
	assert.True(t, c.ComputeTotals().Total.Equal(d(810)))

	require.NoError(t, c.ChangeQuantity(0, 1))
	assert.True(t, c.Items()[0].TotalPrice.Equal(d(990)))
	assert.Equal(t, ModeCompleteExisting, c.SubmissionMode().Kind)
}

func TestLoadFromPersisted_OddRecords(t *testing.T) {
	c := New()
	c.LoadFromPersisted(order.Order{ID: 8, Items: []order.Item{
		{ProductID: 1, ProductName: "Latte", Quantity: 0, UnitPrice: d(250), TotalPrice: d(0)},
		{ProductID: 2, ProductName: "Croissant", Quantity: 3, UnitPrice: d(30), TotalPrice: d(100)},
		{ProductID: 3, ProductName: "Tea", Quantity: -1, UnitPrice: d(90), TotalPrice: d(-90)},
	}})

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int64(2), items[0].ProductID)
	// 100 / 3 has no exact unit price, so the record is kept as is
	assert.True(t, items[0].UnitPrice.Equal(d(30)))
	assert.True(t, items[0].TotalPrice.Equal(d(100)))
	assert.True(t, c.ComputeTotals().Total.Equal(d(100)))
	assert.Equal(t, SubmissionMode{Kind: ModeCompleteExisting, OrderID: 8}, c.SubmissionMode())
}

func TestBind(t *testing.T) {
	c := New()
	require.NoError(t, c.AddItem(latte(), id(12), []int64{21}, 2, ""))

	c.Bind(31)

	got, ok := c.BoundOrderID()
	require.True(t, ok)
	assert.Equal(t, int64(31), got)
	assert.Equal(t, 1, c.Len())
	assert.True(t, c.ComputeTotals().Total.Equal(d(660)))

	c.Clear()
	assert.Equal(t, SubmissionMode{Kind: ModeCreate}, c.SubmissionMode())
}

func TestLoadThenClear(t *testing.T) {
	c := New()
	c.LoadFromPersisted(order.Order{ID: 5, Items: []order.Item{
		{ProductID: 2, Quantity: 1, UnitPrice: d(150), TotalPrice: d(150)},
	}})

	c.Clear()

	assert.Equal(t, 0, c.Len())
	assert.Equal(t, SubmissionMode{Kind: ModeCreate}, c.SubmissionMode())
}

func TestSubmission(t *testing.T) {
	c := New()
	_, err := c.Submission()
	require.ErrorIs(t, err, ErrEmptyCartSubmission)

	require.NoError(t, c.AddItem(latte(), nil, []int64{21}, 2, ""))
	sub, err := c.Submission()
	require.NoError(t, err)
	assert.Equal(t, ModeCreate, sub.Mode.Kind)
	assert.True(t, sub.Totals.Total.Equal(d(560)))
	require.Len(t, sub.Items, 1)

	// snapshot is detached from the cart
	sub.Items[0].ModifierIDs[0] = 99
	assert.Equal(t, int64(21), c.Items()[0].ModifierIDs[0])
}

func TestSubmissionModeString(t *testing.T) {
	assert.Equal(t, "create", SubmissionMode{Kind: ModeCreate}.String())
	assert.Equal(t, "complete_existing(9)", SubmissionMode{Kind: ModeCompleteExisting, OrderID: 9}.String())
}
