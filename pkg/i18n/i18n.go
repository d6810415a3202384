// Package i18n holds the catalogue of every user-facing string the form
// controller and the CLI produce.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// Message identifiers.
const (
	MsgSubmitSuccess       = "submit_success"
	MsgServerError         = "server_error"
	MsgUnexpectedResponse  = "unexpected_response"
	MsgCorrectErrors       = "correct_errors"
	MsgSubmitting          = "submitting"
	MsgRemoveFile          = "remove_file"
	MsgClose               = "close"
	MsgFileTooLarge        = "file_too_large"
	MsgFileTypeNotAllowed  = "file_type_not_allowed"
	MsgNoBoothsAvailable   = "no_booths_available"
	MsgFieldRequired       = "field_required"
	MsgFieldEmail          = "field_email"
	MsgFieldPhone          = "field_phone"
	MsgFieldURL            = "field_url"
	MsgFieldChecked        = "field_checked"
	MsgPromptChoose        = "prompt_choose"
	MsgFilesAttached       = "files_attached"
	defaultCatalogueFolder = "locales"
)

//go:embed locales/*.toml
var builtin embed.FS

// Option configures a Catalog.
type Option func(*Catalog) error

// WithMessageFiles loads additional TOML catalogues (named
// `<anything>.<lang>.toml`) from files, overriding built-in entries.
func WithMessageFiles(files fs.FS, patterns ...string) Option {
	return func(c *Catalog) error {
		if files == nil {
			return nil
		}
		if len(patterns) == 0 {
			patterns = []string{"*.toml"}
		}
		for _, pattern := range patterns {
			matches, err := fs.Glob(files, pattern)
			if err != nil {
				return fmt.Errorf("i18n: glob %q: %w", pattern, err)
			}
			for _, name := range matches {
				data, err := fs.ReadFile(files, name)
				if err != nil {
					return fmt.Errorf("i18n: read %s: %w", name, err)
				}
				if _, err := c.bundle.ParseMessageFileBytes(data, path.Base(name)); err != nil {
					return fmt.Errorf("i18n: parse %s: %w", name, err)
				}
			}
		}
		return nil
	}
}

// WithDefaultLocale sets the locale used when callers pass an empty one.
func WithDefaultLocale(locale string) Option {
	return func(c *Catalog) error {
		trimmed := strings.TrimSpace(locale)
		if trimmed == "" {
			return nil
		}
		tag, err := language.Parse(trimmed)
		if err != nil {
			return fmt.Errorf("i18n: invalid locale %q: %w", locale, err)
		}
		c.defaultLocale = tag.String()
		return nil
	}
}

// Catalog resolves message ids per locale.
type Catalog struct {
	bundle        *i18n.Bundle
	defaultLocale string

	mu         sync.Mutex
	localizers map[string]*i18n.Localizer
}

// New loads the built-in catalogues and applies options.
func New(options ...Option) (*Catalog, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	entries, err := fs.ReadDir(builtin, defaultCatalogueFolder)
	if err != nil {
		return nil, fmt.Errorf("i18n: read builtin catalogues: %w", err)
	}
	for _, entry := range entries {
		data, err := fs.ReadFile(builtin, path.Join(defaultCatalogueFolder, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("i18n: read %s: %w", entry.Name(), err)
		}
		if _, err := bundle.ParseMessageFileBytes(data, entry.Name()); err != nil {
			return nil, fmt.Errorf("i18n: parse %s: %w", entry.Name(), err)
		}
	}

	c := &Catalog{
		bundle:        bundle,
		defaultLocale: language.English.String(),
		localizers:    make(map[string]*i18n.Localizer),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is New for package-level defaults; it panics on a broken built-in
// catalogue.
func MustNew(options ...Option) *Catalog {
	c, err := New(options...)
	if err != nil {
		panic(err)
	}
	return c
}

// Locales lists the languages with at least one message.
func (c *Catalog) Locales() []string {
	tags := c.bundle.LanguageTags()
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		out = append(out, tag.String())
	}
	return out
}

// Translate resolves id for locale. Unknown locales fall back to English.
func (c *Catalog) Translate(locale, id string, data map[string]any) (string, error) {
	return c.localize(locale, id, data, nil)
}

// Plural resolves id with a plural count, exposing it as {{.Count}}.
func (c *Catalog) Plural(locale, id string, count int) string {
	out, err := c.localize(locale, id, map[string]any{"Count": count}, count)
	if err != nil {
		return id
	}
	return out
}

// Message is Translate without the error: a missing id yields the id itself.
func (c *Catalog) Message(locale, id string, data map[string]any) string {
	out, err := c.Translate(locale, id, data)
	if err != nil {
		return id
	}
	return out
}

// For binds a locale, returning a lookup function.
func (c *Catalog) For(locale string) func(id string, data map[string]any) string {
	return func(id string, data map[string]any) string {
		return c.Message(locale, id, data)
	}
}

func (c *Catalog) localize(locale, id string, data map[string]any, count any) (string, error) {
	if c == nil || c.bundle == nil {
		return "", fmt.Errorf("i18n: catalog is nil")
	}
	cfg := &i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: data,
	}
	if count != nil {
		cfg.PluralCount = count
	}
	out, err := c.localizer(locale).Localize(cfg)
	if err != nil {
		return "", fmt.Errorf("i18n: localize %q for %q: %w", id, locale, err)
	}
	return out, nil
}

func (c *Catalog) localizer(locale string) *i18n.Localizer {
	key := strings.TrimSpace(locale)
	if key == "" {
		key = c.defaultLocale
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.localizers[key]; ok {
		return l
	}
	l := i18n.NewLocalizer(c.bundle, key, c.defaultLocale)
	c.localizers[key] = l
	return l
}
