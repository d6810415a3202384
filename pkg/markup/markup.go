// Package markup renders the HTML fragments the form controller inserts into
// the document: banners, inline field errors, file previews, and the busy
// label of the submit control.
package markup

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
)

//go:embed templates/*.tpl
var builtinTemplates embed.FS

// Level is the Bootstrap contextual class of a banner.
type Level string

const (
	LevelSuccess Level = "success"
	LevelDanger  Level = "danger"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Banner describes a dismissible status message. Message may contain markup;
// it is sanitised before rendering.
type Banner struct {
	ID         string
	Level      Level
	Message    string
	CloseLabel string
}

// Preview describes an accepted file attachment.
type Preview struct {
	Name        string
	Size        string
	Image       bool
	Source      string
	RemoveID    string
	RemoveLabel string
}

// Option configures a Renderer.
type Option func(*config)

type config struct {
	templates fs.FS
	extension string
}

// WithTemplates replaces the built-in templates. The FS must provide
// banner, feedback, preview, preview_error, busy and empty_option templates.
func WithTemplates(files fs.FS) Option {
	return func(cfg *config) {
		if files != nil {
			cfg.templates = files
		}
	}
}

// WithExtension overrides the template extension (default ".tpl").
func WithExtension(ext string) Option {
	return func(cfg *config) {
		trimmed := strings.TrimSpace(ext)
		if trimmed == "" {
			return
		}
		if !strings.HasPrefix(trimmed, ".") {
			trimmed = "." + trimmed
		}
		cfg.extension = trimmed
	}
}

// Renderer executes the fragment templates through a pongo2 template set.
type Renderer struct {
	mu        sync.RWMutex
	set       *pongo2.TemplateSet
	templates map[string]*pongo2.Template
	ext       string
}

// New builds a Renderer over the built-in templates unless overridden.
func New(options ...Option) (*Renderer, error) {
	sub, err := fs.Sub(builtinTemplates, "templates")
	if err != nil {
		return nil, fmt.Errorf("markup: open builtin templates: %w", err)
	}
	cfg := &config{templates: sub, extension: ".tpl"}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}
	return &Renderer{
		set:       pongo2.NewSet("formctl", pongo2.NewFSLoader(cfg.templates)),
		templates: make(map[string]*pongo2.Template),
		ext:       cfg.extension,
	}, nil
}

// Banner renders an alert with a close control whose id is `<ID>-close`.
func (r *Renderer) Banner(b Banner) (string, error) {
	if strings.TrimSpace(b.ID) == "" {
		return "", errors.New("markup: banner id required")
	}
	level := b.Level
	if level == "" {
		level = LevelInfo
	}
	closeLabel := b.CloseLabel
	if closeLabel == "" {
		closeLabel = "Close"
	}
	return r.execute("banner", pongo2.Context{
		"id":          b.ID,
		"level":       string(level),
		"message":     Sanitize(b.Message),
		"close_label": closeLabel,
	})
}

// Feedback renders the invalid-feedback element shown after a field.
func (r *Renderer) Feedback(messages []string) (string, error) {
	return r.execute("feedback", pongo2.Context{"messages": messages})
}

// Preview renders an accepted attachment with its caption and remove control.
func (r *Renderer) Preview(p Preview) (string, error) {
	return r.execute("preview", pongo2.Context{
		"name":         p.Name,
		"size":         p.Size,
		"image":        p.Image,
		"source":       p.Source,
		"remove_id":    p.RemoveID,
		"remove_label": p.RemoveLabel,
	})
}

// PreviewError renders the inline rejection message of a file input.
func (r *Renderer) PreviewError(message string) (string, error) {
	return r.execute("preview_error", pongo2.Context{"message": message})
}

// Busy renders the spinner label of a submit control.
func (r *Renderer) Busy(label string) (string, error) {
	return r.execute("busy", pongo2.Context{"label": label})
}

// EmptyOption renders a selected placeholder option for an exhausted select.
func (r *Renderer) EmptyOption(label string) (string, error) {
	return r.execute("empty_option", pongo2.Context{"label": label})
}

func (r *Renderer) execute(name string, data pongo2.Context) (string, error) {
	if r == nil || r.set == nil {
		return "", errors.New("markup: renderer is nil")
	}
	tmpl, err := r.template(name + r.ext)
	if err != nil {
		return "", err
	}
	out, err := tmpl.Execute(data)
	if err != nil {
		return "", fmt.Errorf("markup: execute %q: %w", name, err)
	}
	return strings.TrimSpace(out), nil
}

func (r *Renderer) template(path string) (*pongo2.Template, error) {
	r.mu.RLock()
	tmpl, ok := r.templates[path]
	r.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if tmpl, ok := r.templates[path]; ok {
		return tmpl, nil
	}
	tmpl, err := r.set.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("markup: load template %q: %w", path, err)
	}
	r.templates[path] = tmpl
	return tmpl, nil
}
