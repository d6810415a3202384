package formctl

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-formctl/pkg/dom"
	"github.com/goliatone/go-formctl/pkg/feedback"
	"github.com/goliatone/go-formctl/pkg/i18n"
	"github.com/goliatone/go-formctl/pkg/markup"
	"github.com/goliatone/go-formctl/pkg/payload"
	"github.com/goliatone/go-formctl/pkg/submission"
	"github.com/goliatone/go-formctl/pkg/validation"
)

const outcomeClientInvalid = "client_invalid"

// Submit runs one submission: client checks, payload assembly, the POST, and
// rendering of the outcome. While a submission is pending the submit control
// stays disabled and further calls return ErrSubmitInFlight. A control the
// page itself disabled yields ErrSubmitDisabled.
func (c *Controller) Submit(ctx context.Context) (submission.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	req, selections, early, err := c.prepare()
	if err != nil || early != nil {
		return early, err
	}

	started := time.Now()
	result := c.sender.Send(ctx, req)
	if result == nil {
		result = submission.Unexpected{}
	}
	elapsed := time.Since(started)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	c.finish(result, selections)
	c.metrics.submission(c.cfg.FormID, string(result.Kind()))
	c.metrics.roundTrip(c.cfg.FormID, elapsed)
	c.logger.Info("form submitted",
		"form", c.cfg.FormID,
		"url", req.URL,
		"outcome", string(result.Kind()),
		"elapsed", elapsed,
	)
	if failure, ok := result.(submission.TransportFailure); ok {
		c.logger.Error("submission transport failure", "form", c.cfg.FormID, "error", failure)
	}
	return result, nil
}

// prepare performs the synchronous half of Submit under the controller lock.
// It returns either a request to send or an early result.
func (c *Controller) prepare() (submission.Request, map[string]string, submission.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return submission.Request{}, nil, nil, ErrNotInitialized
	}
	form := c.form()
	button := c.doc.ElementByID(c.cfg.SubmitButtonID)
	if form == nil || button == nil {
		return submission.Request{}, nil, nil, ErrElementNotFound
	}
	if c.inFlight {
		return submission.Request{}, nil, nil, ErrSubmitInFlight
	}
	if button.Disabled() {
		return submission.Request{}, nil, nil, ErrSubmitDisabled
	}

	c.clearDecorations(form)
	c.clearBanner()

	if failures := validation.Validate(c.lookup(form), c.cfg.Rules, validation.WithMessages(c.checkMessage)); len(failures) > 0 {
		c.decorate(form, failures, nil)
		c.showBanner(markup.LevelDanger, c.msg(i18n.MsgCorrectErrors, nil))
		c.metrics.submission(c.cfg.FormID, outcomeClientInvalid)
		c.logger.Info("client validation failed", "form", c.cfg.FormID, "fields", len(failures))
		return submission.Request{}, nil, submission.ValidationFailure{FieldErrors: failures}, nil
	}

	c.inFlight = true
	button.SetDisabled(true)
	c.setHTML(button, c.busyLabel())

	p := c.buildPayload(form)
	req := submission.Request{
		URL:     c.targetURL(form),
		Payload: p,
		Header:  http.Header{},
	}
	if token, ok := c.doc.Cookie(c.cfg.CSRFCookie); ok && token != "" {
		req.Header.Set(c.cfg.CSRFHeader, token)
	}

	selections := make(map[string]string, len(c.cfg.AfterSuccess))
	for _, action := range c.cfg.AfterSuccess {
		if sel := c.doc.ElementByID(action.SelectID); sel != nil {
			selections[action.SelectID] = sel.Value()
		}
	}
	return req, selections, nil, nil
}

// buildPayload collects the form and applies the multi-value and boolean
// corrections. Hidden conditional inputs contribute empty values only.
func (c *Controller) buildPayload(form dom.Element) *payload.Payload {
	p := payload.FromForm(form)
	for _, name := range c.cfg.MultiValue {
		p.ApplyMultiValue(name, payload.CheckedValues(form, name))
	}
	for _, name := range c.cfg.Booleans {
		checked := false
		for _, box := range form.FindAll(dom.And(dom.ByType("checkbox"), dom.ByName(name))) {
			if box.Checked() {
				checked = true
				break
			}
		}
		p.ApplyBoolean(name, checked, c.cfg.BooleanValue)
	}
	for id := range c.hiddenInputs() {
		input := c.doc.ElementByID(id)
		if input == nil || input.Name() == "" || !p.Has(input.Name()) {
			continue
		}
		p.Set(input.Name(), "")
	}
	return p
}

func (c *Controller) targetURL(form dom.Element) string {
	base := c.doc.URL()
	action, _ := form.Attr("action")
	action = strings.TrimSpace(action)
	if action == "" {
		return base
	}
	ref, err := url.Parse(action)
	if err != nil {
		return base
	}
	parsed, err := url.Parse(base)
	if err != nil || base == "" {
		return ref.String()
	}
	return parsed.ResolveReference(ref).String()
}

func (c *Controller) busyLabel() string {
	if c.cfg.BusyLabel != "" {
		return c.cfg.BusyLabel
	}
	label, err := c.markup.Busy(c.msg(i18n.MsgSubmitting, nil))
	if err != nil {
		return c.msg(i18n.MsgSubmitting, nil)
	}
	return label
}

func (c *Controller) restoreButton() {
	button := c.doc.ElementByID(c.cfg.SubmitButtonID)
	if button == nil {
		return
	}
	button.SetDisabled(false)
	c.setHTML(button, c.submitLabel)
}

// finish renders the outcome of a completed request. Callers hold c.mu.
func (c *Controller) finish(result submission.Result, selections map[string]string) {
	c.restoreButton()
	form := c.form()

	switch r := result.(type) {
	case submission.TransportFailure:
		c.showBanner(markup.LevelDanger, c.msg(i18n.MsgServerError, nil))
	case submission.Success:
		message := strings.TrimSpace(r.Message)
		if message == "" {
			message = c.msg(i18n.MsgSubmitSuccess, nil)
		}
		c.showBanner(markup.LevelSuccess, message)
		if form != nil {
			c.clearDecorations(form)
			dom.ResetForm(form)
		}
		c.applyAllConditionals()
		c.clearPreviews()
		c.runSuccessActions(selections)
	case submission.ValidationFailure:
		if form != nil {
			c.showServerErrors(form, r.FieldErrors)
		}
	case submission.Advisory:
		c.showBanner(markup.LevelWarning, r.Message)
	default:
		c.showBanner(markup.LevelDanger, c.msg(i18n.MsgUnexpectedResponse, nil))
	}
}

// showServerErrors decorates fields with an element `<prefix><name>` inside
// the form and collects the rest into a banner.
func (c *Controller) showServerErrors(form dom.Element, errs map[string][]string) {
	known := func(name string) bool {
		el := c.doc.ElementByID(c.cfg.FieldIDPrefix + name)
		return el != nil && contains(form, el)
	}
	mapping := feedback.MapErrors(known, errs, c.fieldOrder(form)...)
	c.decorate(form, mapping.Fields, mapping.Order)
	if len(mapping.Order) > 0 {
		c.logger.Info("server rejected fields", "form", c.cfg.FormID, "fields", mapping.Order)
	}
	if len(mapping.Form) > 0 {
		c.showBanner(markup.LevelDanger, markup.JoinLines(mapping.Form))
	}
}

func (c *Controller) fieldOrder(form dom.Element) []string {
	var order []string
	for _, control := range form.FindAll(dom.Controls()) {
		id := control.ID()
		if strings.HasPrefix(id, c.cfg.FieldIDPrefix) {
			order = append(order, strings.TrimPrefix(id, c.cfg.FieldIDPrefix))
		}
	}
	return order
}

func (c *Controller) runSuccessActions(selections map[string]string) {
	for _, action := range c.cfg.AfterSuccess {
		if action.Kind != ActionRemoveSelectedOption {
			continue
		}
		sel := c.doc.ElementByID(action.SelectID)
		if sel == nil {
			continue
		}
		chosen := selections[action.SelectID]
		if strings.TrimSpace(chosen) == "" {
			continue
		}
		for _, option := range sel.FindAll(dom.ByTag("option")) {
			if optionValue(option) == chosen {
				option.Remove()
				break
			}
		}

		remaining := 0
		for _, option := range sel.FindAll(dom.ByTag("option")) {
			if strings.TrimSpace(optionValue(option)) != "" {
				remaining++
			}
		}
		if remaining > 0 {
			continue
		}
		sel.SetDisabled(true)
		fragment, err := c.markup.EmptyOption(c.msg(i18n.MsgNoBoothsAvailable, nil))
		if err != nil {
			c.logger.Error("render empty option", "error", err)
			continue
		}
		c.setHTML(sel, fragment)
	}
}

func optionValue(option dom.Element) string {
	if v, ok := option.Attr("value"); ok {
		return v
	}
	return strings.TrimSpace(option.Text())
}

func contains(root, el dom.Element) bool {
	for node := el; node != nil; node = node.Parent() {
		if node == root {
			return true
		}
	}
	return false
}
