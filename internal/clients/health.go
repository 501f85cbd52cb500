package clients

import (
	"context"
	"time"
)

type HealthProbe struct {
	Name   string
	Client *Client
	Path   string
}

type HealthResult struct {
	Name       string `json:"name"`
	OK         bool   `json:"ok"`
	StatusCode int    `json:"statusCode,omitempty"`
	Error      string `json:"error,omitempty"`
}

func CheckHealth(ctx context.Context, probe HealthProbe) HealthResult {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	resp, err := probe.Client.request(ctx).Get(probe.Path)
	if err != nil {
		return HealthResult{Name: probe.Name, OK: false, Error: err.Error()}
	}

	ok := resp.StatusCode() >= 200 && resp.StatusCode() < 300
	return HealthResult{Name: probe.Name, OK: ok, StatusCode: resp.StatusCode()}
}
