package clients

import (
	"context"
	"net/http"
	"strings"
)

type RegisterClient struct{ c *Client }

func NewRegisterClient(c *Client) *RegisterClient { return &RegisterClient{c: c} }

type registerSession struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// EnsureOpen makes sure the cashier has an open cash register session, which
// the Order Service requires before it accepts orders. It reports whether a
// new session was opened.
func (rc *RegisterClient) EnsureOpen(ctx context.Context) (bool, error) {
	var sessions []registerSession
	if err := rc.c.do(ctx, http.MethodGet, "/cash-register-sessions", nil, &sessions); err == nil {
		for _, s := range sessions {
			if s.Status == "open" {
				return false, nil
			}
		}
	}

	err := rc.c.do(ctx, http.MethodPost, "/cash-register-sessions", map[string]int{"starting_cash": 0}, nil)
	if err == nil {
		return true, nil
	}
	if status, ok := StatusOf(err); ok && status == http.StatusBadRequest && strings.Contains(err.Error(), "already has an open session") {
		return false, nil
	}
	return false, err
}
