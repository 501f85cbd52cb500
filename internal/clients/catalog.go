package clients

import (
	"context"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/catalog"
)

type CatalogClient struct{ c *Client }

func NewCatalogClient(c *Client) *CatalogClient { return &CatalogClient{c: c} }

// ListProducts returns the sellable products with their active sizes and
// modifiers.
func (cc *CatalogClient) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	var out []catalog.Product
	if err := cc.c.do(ctx, http.MethodGet, posPrefix+"/pos/products", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (cc *CatalogClient) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	var out []catalog.Category
	if err := cc.c.do(ctx, http.MethodGet, posPrefix+"/categories", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
