package formctl

import (
	"context"
	"strings"

	"github.com/goliatone/go-formctl/pkg/dom"
	"github.com/goliatone/go-formctl/pkg/payload"
	"github.com/goliatone/go-formctl/pkg/visibility"
)

func (c *Controller) bindConditionals() {
	bound := make(map[string]struct{})
	for _, cond := range c.cfg.Conditionals {
		id := cond.Controller
		if id == "" {
			id = c.cfg.FormID
		}
		if _, ok := bound[id]; ok {
			continue
		}
		bound[id] = struct{}{}

		controllerID := id
		c.doc.Bind(dom.Binding{
			ID:   controllerID,
			Kind: dom.EventChange,
			Handler: func(_ context.Context, _ *dom.Event) {
				c.mu.Lock()
				defer c.mu.Unlock()
				c.applyConditionalsFor(controllerID)
			},
		})
	}
}

// applyConditionalsFor re-evaluates the conditionals listening on id. Expr
// rules without a controller listen on the form, so any change there
// re-evaluates them.
func (c *Controller) applyConditionalsFor(id string) {
	var values map[string]any
	for _, cond := range c.cfg.Conditionals {
		listener := cond.Controller
		if listener == "" {
			listener = c.cfg.FormID
		}
		if listener != id {
			continue
		}
		if cond.Rule == RuleExpr && values == nil {
			values = c.formValues()
		}
		c.applyConditional(cond, values)
	}
}

func (c *Controller) applyAllConditionals() {
	var values map[string]any
	for _, cond := range c.cfg.Conditionals {
		if cond.Rule == RuleExpr && values == nil {
			values = c.formValues()
		}
		c.applyConditional(cond, values)
	}
}

func (c *Controller) applyConditional(cond Conditional, values map[string]any) {
	wrapper := c.doc.ElementByID(cond.WrapperID)
	input := c.doc.ElementByID(cond.InputID)
	if wrapper == nil || input == nil {
		c.logger.Warn("conditional field missing from document",
			"field", cond.Name, "wrapper", cond.WrapperID, "input", cond.InputID)
		return
	}

	visible := c.evaluate(cond, values)
	if visible {
		wrapper.SetDisplay("block")
		input.SetAttr("required", "")
	} else {
		wrapper.SetDisplay("none")
		input.RemoveAttr("required")
		clearControl(input)
	}

	c.states[cond.Name] = FieldState{
		Name:     cond.Name,
		Value:    input.Value(),
		Visible:  visible,
		Required: visible,
	}
}

func (c *Controller) evaluate(cond Conditional, values map[string]any) bool {
	switch cond.Rule {
	case RuleAnyChecked:
		controller := c.doc.ElementByID(cond.Controller)
		if controller == nil {
			return false
		}
		boxes := []dom.Element{controller}
		if controller.Tag() != "input" {
			boxes = controller.FindAll(dom.ByType("checkbox"))
		}
		for _, box := range boxes {
			if box.Checked() && strings.EqualFold(strings.TrimSpace(box.Value()), cond.Sentinel) {
				return true
			}
		}
		return false
	case RuleNonEmpty:
		controller := c.doc.ElementByID(cond.Controller)
		return controller != nil && strings.TrimSpace(controller.Value()) != ""
	case RuleEquals:
		controller := c.doc.ElementByID(cond.Controller)
		return controller != nil && strings.EqualFold(strings.TrimSpace(controller.Value()), cond.Sentinel)
	case RuleExpr:
		ok, err := c.evaluator.Eval(cond.Name, cond.Expr, visibility.Context{Values: values, Extras: c.extras})
		if err != nil {
			c.logger.Error("visibility rule failed", "field", cond.Name, "rule", cond.Expr, "error", err)
			return false
		}
		return ok
	default:
		return false
	}
}

// formValues snapshots the form for expr rules: one string per name, or a
// []string when a name carries several checked values.
func (c *Controller) formValues() map[string]any {
	out := make(map[string]any)
	form := c.form()
	if form == nil {
		return out
	}
	p := payload.FromForm(form)
	for _, entry := range p.Entries() {
		if entry.File != nil {
			out[entry.Name] = entry.File.Name
			continue
		}
		switch existing := out[entry.Name].(type) {
		case nil:
			out[entry.Name] = entry.Value
		case string:
			out[entry.Name] = []string{existing, entry.Value}
		case []string:
			out[entry.Name] = append(existing, entry.Value)
		}
	}
	for _, name := range c.cfg.MultiValue {
		switch v := out[name].(type) {
		case nil:
			out[name] = []string{}
		case string:
			out[name] = []string{v}
		}
	}
	return out
}

func (c *Controller) hiddenInputs() map[string]struct{} {
	hidden := make(map[string]struct{})
	for _, cond := range c.cfg.Conditionals {
		if state, ok := c.states[cond.Name]; ok && !state.Visible {
			hidden[cond.InputID] = struct{}{}
		}
	}
	return hidden
}

func clearControl(el dom.Element) {
	switch {
	case el.Tag() == "input" && (el.Type() == "checkbox" || el.Type() == "radio"):
		el.SetChecked(false)
	case el.Tag() == "input" && el.Type() == "file":
		el.SetFiles(nil)
	default:
		el.SetValue("")
	}
}
