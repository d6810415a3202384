package formctl

import (
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-formctl/pkg/i18n"
	"github.com/goliatone/go-formctl/pkg/markup"
	"github.com/goliatone/go-formctl/pkg/submission"
	"github.com/goliatone/go-formctl/pkg/visibility"
)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger routes diagnostics (rejected files, transport errors, outcomes)
// to logger. The default discards them.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSender replaces the HTTP transport.
func WithSender(sender submission.Sender) Option {
	return func(c *Controller) {
		if sender != nil {
			c.sender = sender
		}
	}
}

// WithMarkup replaces the fragment renderer.
func WithMarkup(renderer *markup.Renderer) Option {
	return func(c *Controller) {
		if renderer != nil {
			c.markup = renderer
		}
	}
}

// WithCatalog replaces the message catalogue.
func WithCatalog(catalog *i18n.Catalog) Option {
	return func(c *Controller) {
		if catalog != nil {
			c.catalog = catalog
		}
	}
}

// WithLocale selects the language of user-facing messages.
func WithLocale(locale string) Option {
	return func(c *Controller) {
		c.locale = strings.TrimSpace(locale)
	}
}

// WithEvaluator replaces the evaluator used by expr rules.
func WithEvaluator(evaluator visibility.Evaluator) Option {
	return func(c *Controller) {
		if evaluator != nil {
			c.evaluator = evaluator
		}
	}
}

// WithExtras exposes caller flags to expr rules under the `extras.` prefix.
func WithExtras(extras map[string]any) Option {
	return func(c *Controller) {
		c.extras = extras
	}
}

// WithScheduler replaces the banner timer source.
func WithScheduler(scheduler Scheduler) Option {
	return func(c *Controller) {
		if scheduler != nil {
			c.scheduler = scheduler
		}
	}
}

// WithMetrics registers submission and upload counters on registerer.
func WithMetrics(registerer prometheus.Registerer) Option {
	return func(c *Controller) {
		c.registerer = registerer
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
