package connectivity

import (
	"context"
	"net/http"
	"time"

	"github.com/bookfinder/bookfinder/internal/logger"
)

// Checker reports whether the network is reachable. Offline is a distinct
// condition from a transport failure on an individual request.
type Checker interface {
	Online(ctx context.Context) bool
}

// DefaultProbeTimeout bounds a single connectivity probe
const DefaultProbeTimeout = 3 * time.Second

// HTTPChecker probes a well-known URL with a HEAD request
type HTTPChecker struct {
	probeURL string
	client   *http.Client
	logger   *logger.Logger
}

// NewHTTPChecker creates a checker that probes the given URL
func NewHTTPChecker(probeURL string, log *logger.Logger) *HTTPChecker {
	if log == nil {
		log = logger.Get()
	}
	return &HTTPChecker{
		probeURL: probeURL,
		client: &http.Client{
			Timeout: DefaultProbeTimeout,
		},
		logger: log,
	}
}

// Online reports whether the probe URL answered at all. Any HTTP status
// counts as reachable; only transport-level failures mean offline.
func (c *HTTPChecker) Online(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.probeURL, nil)
	if err != nil {
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("Connectivity probe failed", map[string]interface{}{
			"url":   c.probeURL,
			"error": err.Error(),
		})
		return false
	}
	resp.Body.Close()
	return true
}

var _ Checker = (*HTTPChecker)(nil)
