package bootstrap

import (
	"net/http"
	"time"

	"github.com/webhookd/webhookd/internal/config"
)

// NewHTTPServer constructs the http.Server around the webhookd router.
// These limits are independent of the delivery REQUEST_TIMEOUT: handlers
// never make outbound calls (ingest answers 202 the moment the task is
// queued), so the read timeout only needs to cover a producer streaming
// its payload and the write timeout a large delivery-log listing.
func NewHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}
