package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// HTTP probes readiness with a minimal GET. Any response counts as ready by
// default; a 5xx can be rejected by setting RejectServerError for services
// that accept connections long before they can serve.
type HTTP struct {
	URL               string
	RejectServerError bool
	client            *http.Client
}

func NewHTTP(url string) *HTTP {
	return &HTTP{URL: url, client: &http.Client{}}
}

func (p *HTTP) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if p.RejectServerError && resp.StatusCode >= 500 {
		return fmt.Errorf("status=%d", resp.StatusCode)
	}
	return nil
}

func (p *HTTP) Target() string { return p.URL }
