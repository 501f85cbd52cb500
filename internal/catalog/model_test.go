package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter(t *testing.T) {
	products := []Product{
		{ID: 1, Name: "Latte", CategoryID: 2},
		{ID: 2, Name: "Iced Latte", CategoryID: 3},
		{ID: 3, Name: "Croissant", CategoryID: 4},
	}

	tests := map[string]struct {
		category int64
		query    string
		want     []int64
	}{
		"all":                 {want: []int64{1, 2, 3}},
		"by category":         {category: 3, want: []int64{2}},
		"by name ignore case": {query: "  LATTE ", want: []int64{1, 2}},
		"category and name":   {category: 2, query: "latte", want: []int64{1}},
		"no match":            {query: "tea", want: []int64{}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := Filter(products, tc.category, tc.query)
			ids := make([]int64, 0, len(got))
			for _, p := range got {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tc.want, ids)
		})
	}
}

func TestLookups(t *testing.T) {
	p := latte()
	_, ok := p.Size(12)
	assert.True(t, ok)
	_, ok = p.Size(13)
	assert.False(t, ok)
	_, ok = p.Modifier(1)
	assert.False(t, ok)

	found, ok := FindProduct([]Product{p}, 1)
	assert.True(t, ok)
	assert.Equal(t, "Latte", found.Name)
}
