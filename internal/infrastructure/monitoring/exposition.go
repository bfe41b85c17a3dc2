package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ExpositionOptions configures the scrape handler
type ExpositionOptions struct {
	// EnableOpenMetrics allows OpenMetrics output when the scraper asks for it
	EnableOpenMetrics bool
	// DisableCompression leaves gzip to an outer handler
	DisableCompression bool
	Logger             *zap.Logger
}

// Handler serves the registry in the text exposition format. Gather errors
// are logged and the remaining families are still served.
func Handler(reg *Registry, opts ExpositionOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return promhttp.HandlerFor(reg.Gatherer(), promhttp.HandlerOpts{
		ErrorLog:           zap.NewStdLog(logger.Named("exposition")),
		ErrorHandling:      promhttp.ContinueOnError,
		EnableOpenMetrics:  opts.EnableOpenMetrics,
		DisableCompression: opts.DisableCompression,
	})
}
