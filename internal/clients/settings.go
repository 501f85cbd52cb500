package clients

import (
	"context"
	"net/http"
)

type SettingsClient struct{ c *Client }

func NewSettingsClient(c *Client) *SettingsClient { return &SettingsClient{c: c} }

// Get returns the public POS settings (currency, shop name, theme, ...).
func (sc *SettingsClient) Get(ctx context.Context) (map[string]any, error) {
	out := map[string]any{}
	if err := sc.c.do(ctx, http.MethodGet, posPrefix+"/settings", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
