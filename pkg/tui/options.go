package tui

import (
	"log/slog"

	"github.com/goliatone/go-formctl/pkg/i18n"
)

// Option configures a Filler.
type Option func(*Filler)

// WithPromptDriver overrides the prompt driver used by the filler.
func WithPromptDriver(driver PromptDriver) Option {
	return func(f *Filler) {
		if driver != nil {
			f.driver = driver
		}
	}
}

// WithValues presets answers by field name. Preset fields are filled
// without prompting; checkbox groups and multi-selects take every value.
func WithValues(values map[string][]string) Option {
	return func(f *Filler) {
		for name, v := range values {
			f.preset[name] = append([]string(nil), v...)
		}
	}
}

// WithSkip leaves the named fields untouched.
func WithSkip(names ...string) Option {
	return func(f *Filler) {
		for _, name := range names {
			f.skip[name] = struct{}{}
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Filler) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithCatalog sets the message catalogue and locale for prompt hints and
// status lines.
func WithCatalog(catalog *i18n.Catalog, locale string) Option {
	return func(f *Filler) {
		if catalog != nil {
			f.catalog = catalog
		}
		f.locale = locale
	}
}
