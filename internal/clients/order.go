package clients

import (
	"context"
	"net/http"
	"strconv"

	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/order"
)

type OrderClient struct{ c *Client }

func NewOrderClient(c *Client) *OrderClient { return &OrderClient{c: c} }

func orderPath(id int64, suffix string) string {
	return posPrefix + "/pos/orders/" + strconv.FormatInt(id, 10) + suffix
}

func (oc *OrderClient) CreateOrder(ctx context.Context, req order.CreateRequest) (*order.Order, error) {
	var out order.Order
	if err := oc.c.do(ctx, http.MethodPost, posPrefix+"/pos/orders", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (oc *OrderClient) CompleteOrder(ctx context.Context, id int64, req order.CompleteRequest) (*order.Completion, error) {
	var out order.Completion
	if err := oc.c.do(ctx, http.MethodPost, orderPath(id, "/complete"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (oc *OrderClient) GetOrder(ctx context.Context, id int64) (*order.Order, error) {
	var out order.Order
	if err := oc.c.do(ctx, http.MethodGet, orderPath(id, ""), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPending returns the calling cashier's pending orders, newest first.
func (oc *OrderClient) ListPending(ctx context.Context) ([]order.Order, error) {
	var out []order.Order
	if err := oc.c.do(ctx, http.MethodGet, posPrefix+"/pos/orders/pending", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (oc *OrderClient) CancelOrder(ctx context.Context, id int64) error {
	return oc.c.do(ctx, http.MethodPost, orderPath(id, "/cancel"), struct{}{}, nil)
}
