// Package formctl drives a conference registration form held in a dom.Document:
// it toggles conditional fields, screens file attachments, runs client
// checks, submits the form asynchronously, and renders the outcome back into
// the page.
package formctl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-formctl/pkg/dom"
	"github.com/goliatone/go-formctl/pkg/i18n"
	"github.com/goliatone/go-formctl/pkg/markup"
	"github.com/goliatone/go-formctl/pkg/submission"
	"github.com/goliatone/go-formctl/pkg/visibility"
	"github.com/goliatone/go-formctl/pkg/visibility/expr"
)

var (
	// ErrAlreadyInitialized is returned by a second Init.
	ErrAlreadyInitialized = errors.New("formctl: already initialized")
	// ErrNotInitialized is returned by Submit before Init.
	ErrNotInitialized = errors.New("formctl: not initialized")
	// ErrSubmitInFlight is returned while a previous submission is pending.
	ErrSubmitInFlight = errors.New("formctl: submission in flight")
	// ErrSubmitDisabled is returned when the page disabled the submit control
	// and no submission of this controller is pending.
	ErrSubmitDisabled = errors.New("formctl: submit control disabled")
	// ErrElementNotFound is returned when a required element is missing.
	ErrElementNotFound = errors.New("formctl: element not found")
)

// FieldState is the derived state of a conditional field.
type FieldState struct {
	Name     string
	Value    string
	Visible  bool
	Required bool
}

// Controller owns one form of a document. Create it with New, then call Init
// once.
type Controller struct {
	doc dom.Document
	cfg Config

	logger     *slog.Logger
	sender     submission.Sender
	markup     *markup.Renderer
	catalog    *i18n.Catalog
	locale     string
	evaluator  visibility.Evaluator
	extras     map[string]any
	scheduler  Scheduler
	registerer prometheus.Registerer
	metrics    *metrics

	// mu serialises controller state and the DOM mutations of one step.
	mu          sync.Mutex
	initialized bool
	inFlight    bool
	submitLabel string
	states      map[string]FieldState
	banner      *bannerState
	bannerSeq   int
}

// New validates cfg and prepares a controller over doc.
func New(doc dom.Document, cfg Config, options ...Option) (*Controller, error) {
	if doc == nil {
		return nil, errors.New("formctl: document is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		doc:       doc,
		cfg:       cfg.withDefaults(),
		logger:    discardLogger(),
		evaluator: expr.New(),
		scheduler: clockScheduler{},
		states:    make(map[string]FieldState),
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}

	if c.markup == nil {
		renderer, err := markup.New()
		if err != nil {
			return nil, fmt.Errorf("formctl: markup: %w", err)
		}
		c.markup = renderer
	}
	if c.catalog == nil {
		catalog, err := i18n.New()
		if err != nil {
			return nil, fmt.Errorf("formctl: catalog: %w", err)
		}
		c.catalog = catalog
	}
	if c.sender == nil {
		c.sender = submission.NewClient(submission.WithLogger(c.logger))
	}
	m, err := newMetrics(c.registerer)
	if err != nil {
		return nil, fmt.Errorf("formctl: metrics: %w", err)
	}
	c.metrics = m
	return c, nil
}

// Config returns the effective configuration (defaults applied).
func (c *Controller) Config() Config {
	return c.cfg
}

// Init binds the event handlers and runs the initial visibility pass.
func (c *Controller) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return ErrAlreadyInitialized
	}

	form := c.doc.ElementByID(c.cfg.FormID)
	if form == nil {
		return fmt.Errorf("%w: form %q", ErrElementNotFound, c.cfg.FormID)
	}
	button := c.doc.ElementByID(c.cfg.SubmitButtonID)
	if button == nil {
		return fmt.Errorf("%w: submit button %q", ErrElementNotFound, c.cfg.SubmitButtonID)
	}
	c.submitLabel = c.cfg.SubmitLabel
	if c.submitLabel == "" {
		c.submitLabel = button.InnerHTML()
	}
	if c.cfg.AlertContainerID != "" && c.doc.ElementByID(c.cfg.AlertContainerID) == nil {
		c.logger.Warn("alert container missing; banners disabled", "id", c.cfg.AlertContainerID)
	}

	c.bindConditionals()
	c.bindUploads()
	c.doc.Bind(dom.Binding{ID: c.cfg.FormID, Kind: dom.EventSubmit, Handler: c.onSubmit})
	if c.cfg.AlertContainerID != "" {
		c.doc.Bind(dom.Binding{ID: c.cfg.AlertContainerID, Kind: dom.EventClick, Handler: c.onBannerClick})
	}

	c.applyAllConditionals()
	c.initialized = true
	c.logger.Debug("form controller initialized",
		"form", c.cfg.FormID,
		"conditionals", len(c.cfg.Conditionals),
		"uploads", len(c.cfg.Uploads),
	)
	return nil
}

// State returns the derived state of the conditional field name.
func (c *Controller) State(name string) (FieldState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.states[name]
	return state, ok
}

// States returns the states of all conditional fields in configuration order.
func (c *Controller) States() []FieldState {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]FieldState, 0, len(c.cfg.Conditionals))
	for _, cond := range c.cfg.Conditionals {
		if state, ok := c.states[cond.Name]; ok {
			out = append(out, state)
		}
	}
	return out
}

func (c *Controller) form() dom.Element {
	return c.doc.ElementByID(c.cfg.FormID)
}

func (c *Controller) msg(id string, data map[string]any) string {
	return c.catalog.Message(c.locale, id, data)
}

func (c *Controller) onSubmit(ctx context.Context, ev *dom.Event) {
	ev.PreventDefault()
	_, err := c.Submit(ctx)
	switch {
	case err == nil, errors.Is(err, ErrSubmitInFlight):
	case errors.Is(err, ErrSubmitDisabled):
		c.logger.Warn("submit ignored, control is disabled", "form", c.cfg.FormID, "button", c.cfg.SubmitButtonID)
	default:
		c.logger.Error("form submission failed", "form", c.cfg.FormID, "error", err)
	}
}
