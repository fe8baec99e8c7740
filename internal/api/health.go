package api

import (
	"context"
	"net/http"
)

type Health struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// CheckHealth probes the service liveness endpoint without credentials and
// bypassing intermediate caches.
func (c *Client) CheckHealth(ctx context.Context) (*Health, error) {
	header := http.Header{}
	header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	header.Set("Pragma", "no-cache")
	header.Set("Expires", "0")

	h, err := getWithRetry[Health](ctx, c, request{
		method: http.MethodGet,
		path:   pathHealth,
		header: header,
	})
	if err != nil {
		return nil, c.fail(pathHealth, err)
	}

	if h.Status == "" {
		h.Status = "ok"
	}
	return &h, nil
}
