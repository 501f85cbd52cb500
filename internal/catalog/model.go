package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Product is the catalog record the terminal sells from. Field names follow
// the remote POS API payload.
type Product struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"stock"`
	CategoryID   int64           `json:"category_id"`
	CategoryName string          `json:"category_name,omitempty"`
	Description  string          `json:"description,omitempty"`
	ImageURL     string          `json:"image_url,omitempty"`
	IsActive     bool            `json:"is_active"`
	Sizes        []Size          `json:"sizes"`
	Modifiers    []Modifier      `json:"modifiers"`
}

type Size struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	PriceDelta decimal.Decimal `json:"price_modifier"`
}

type Modifier struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	PriceDelta decimal.Decimal `json:"price_modifier"`
}

type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (p Product) Size(id int64) (Size, bool) {
	for _, s := range p.Sizes {
		if s.ID == id {
			return s, true
		}
	}
	return Size{}, false
}

func (p Product) Modifier(id int64) (Modifier, bool) {
	for _, m := range p.Modifiers {
		if m.ID == id {
			return m, true
		}
	}
	return Modifier{}, false
}

// Filter narrows a product list the way the product grid does: by category
// (0 means all) and by a case-insensitive name search.
func Filter(products []Product, categoryID int64, query string) []Product {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if categoryID != 0 && p.CategoryID != categoryID {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(p.Name), query) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// FindProduct returns the product with the given id.
func FindProduct(products []Product, id int64) (Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}
