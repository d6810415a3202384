// Package tui fills a parsed registration form from the terminal and submits
// it through a formctl.Controller. Every answer is written into the document
// and followed by a change event, so conditional fields appear and disappear
// exactly as they would in a browser.
package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/goliatone/go-formctl/pkg/dom"
	"github.com/goliatone/go-formctl/pkg/formctl"
	"github.com/goliatone/go-formctl/pkg/i18n"
	"github.com/goliatone/go-formctl/pkg/submission"
)

// Filler prompts for the visible controls of a form.
type Filler struct {
	driver PromptDriver
	logger *slog.Logger
	preset map[string][]string
	skip   map[string]struct{}

	catalog *i18n.Catalog
	locale  string
	msg     func(id string, data map[string]any) string
}

// New constructs a Filler. Without WithPromptDriver it prompts on the
// process terminal.
func New(options ...Option) *Filler {
	f := &Filler{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		preset: make(map[string][]string),
		skip:   make(map[string]struct{}),
	}
	for _, opt := range options {
		if opt != nil {
			opt(f)
		}
	}
	if f.driver == nil {
		f.driver = NewSurveyDriver(nil)
	}
	if f.catalog == nil {
		f.catalog = i18n.MustNew()
	}
	f.msg = f.catalog.For(f.locale)
	return f
}

// Run fills the controller's form, submits it, and reports the banner and
// any inline field errors through the driver.
func (f *Filler) Run(ctx context.Context, doc dom.Document, ctrl *formctl.Controller) (submission.Result, error) {
	cfg := ctrl.Config()
	if err := f.Fill(ctx, doc, cfg); err != nil {
		return nil, err
	}
	result, err := ctrl.Submit(ctx)
	if err != nil {
		return result, err
	}
	if err := f.report(ctx, doc, ctrl); err != nil {
		return result, err
	}
	return result, nil
}

// Fill prompts for every enabled, visible control of the form in document
// order. Visibility is checked when a control is reached, after the change
// events of earlier answers have run.
func (f *Filler) Fill(ctx context.Context, doc dom.Document, cfg formctl.Config) error {
	form := doc.ElementByID(cfg.FormID)
	if form == nil {
		return fmt.Errorf("%w: %q", ErrFormNotFound, cfg.FormID)
	}
	previews := make(map[string]string, len(cfg.Uploads))
	for _, up := range cfg.Uploads {
		previews[up.InputID] = up.PreviewID
	}

	done := make(map[string]struct{})
	for _, el := range form.FindAll(dom.Controls()) {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := el.Name()
		if name == "" || el.Disabled() || skippedType(el) {
			continue
		}
		if _, ok := done[name]; ok {
			continue
		}
		if _, ok := f.skip[name]; ok {
			continue
		}
		if !visible(el, form) {
			f.logger.Debug("skipping hidden field", "field", name)
			continue
		}
		done[name] = struct{}{}

		changed, err := f.fillControl(ctx, doc, form, el, previews)
		if err != nil {
			return fmt.Errorf("tui: field %q: %w", name, err)
		}
		for _, target := range changed {
			dom.FireOn(ctx, doc, target, dom.EventChange)
		}
	}
	return nil
}

func (f *Filler) fillControl(ctx context.Context, doc dom.Document, form, el dom.Element, previews map[string]string) ([]dom.Element, error) {
	name := el.Name()
	preset, hasPreset := f.preset[name]
	label := labelFor(form, el)

	if el.Tag() == "select" {
		return f.fillSelect(ctx, el, label, preset, hasPreset)
	}
	if dom.IsTextual(el) {
		return f.fillText(ctx, el, label, preset, hasPreset)
	}

	switch el.Type() {
	case "checkbox":
		group := form.FindAll(dom.And(dom.ByTag("input"), dom.ByType("checkbox"), dom.ByName(name)))
		if len(group) > 1 {
			return f.fillCheckboxGroup(ctx, group, humanize(name), preset, hasPreset)
		}
		checked := hasPreset && truthy(first(preset), el.Value())
		if !hasPreset {
			var err error
			checked, err = f.driver.Confirm(ctx, ConfirmConfig{Message: label, Default: el.Checked()})
			if err != nil {
				return nil, err
			}
		}
		el.SetChecked(checked)
		return []dom.Element{el}, nil
	case "radio":
		group := form.FindAll(dom.And(dom.ByTag("input"), dom.ByType("radio"), dom.ByName(name)))
		return f.fillRadio(ctx, group, humanize(name), preset, hasPreset)
	case "file":
		return f.fillFile(ctx, doc, el, label, previews[el.ID()], preset, hasPreset)
	default:
		f.logger.Debug("skipping control without a prompt", "field", name, "type", el.Type())
		return nil, nil
	}
}

// fillText prompts for free text: a multi-line editor for textareas, a masked
// prompt for passwords and a plain input otherwise.
func (f *Filler) fillText(ctx context.Context, el dom.Element, label string, preset []string, hasPreset bool) ([]dom.Element, error) {
	value := first(preset)
	if !hasPreset {
		var err error
		switch {
		case el.Tag() == "textarea":
			value, err = f.driver.TextArea(ctx, TextAreaConfig{Message: label, Default: el.Value()})
		case el.Type() == "password":
			value, err = f.driver.Password(ctx, InputConfig{Message: label})
		default:
			value, err = f.driver.Input(ctx, InputConfig{Message: label, Default: el.Value()})
		}
		if err != nil {
			return nil, err
		}
	}
	el.SetValue(value)
	return []dom.Element{el}, nil
}

func (f *Filler) fillSelect(ctx context.Context, el dom.Element, label string, preset []string, hasPreset bool) ([]dom.Element, error) {
	options := el.FindAll(dom.ByTag("option"))
	if len(options) == 0 {
		return nil, nil
	}
	labels := make([]string, len(options))
	values := make([]string, len(options))
	current := 0
	for i, option := range options {
		values[i] = optionValue(option)
		labels[i] = strings.TrimSpace(option.Text())
		if labels[i] == "" {
			labels[i] = values[i]
		}
		if values[i] == el.Value() {
			current = i
		}
	}

	if hasPreset {
		el.SetValue(first(preset))
		return []dom.Element{el}, nil
	}
	idx, err := f.driver.Select(ctx, SelectConfig{
		Message:      label,
		Options:      labels,
		DefaultIndex: current,
		Help:         f.msg(i18n.MsgPromptChoose, map[string]any{"Field": label}),
	})
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(values) {
		return nil, nil
	}
	el.SetValue(values[idx])
	return []dom.Element{el}, nil
}

func (f *Filler) fillCheckboxGroup(ctx context.Context, group []dom.Element, label string, preset []string, hasPreset bool) ([]dom.Element, error) {
	want := make(map[int]bool, len(group))
	if hasPreset {
		for i, box := range group {
			want[i] = containsFold(preset, box.Value())
		}
	} else {
		labels := make([]string, len(group))
		var defaults []int
		for i, box := range group {
			labels[i] = choiceLabel(box)
			if box.Checked() {
				defaults = append(defaults, i)
			}
		}
		picked, err := f.driver.MultiSelect(ctx, SelectConfig{Message: label, Options: labels, Defaults: defaults})
		if err != nil {
			return nil, err
		}
		for _, idx := range picked {
			want[idx] = true
		}
	}

	var changed []dom.Element
	for i, box := range group {
		if box.Checked() != want[i] {
			box.SetChecked(want[i])
			changed = append(changed, box)
		}
	}
	return changed, nil
}

func (f *Filler) fillRadio(ctx context.Context, group []dom.Element, label string, preset []string, hasPreset bool) ([]dom.Element, error) {
	chosen := -1
	if hasPreset {
		for i, radio := range group {
			if radio.Value() == first(preset) {
				chosen = i
			}
		}
	} else {
		labels := make([]string, len(group))
		for i, radio := range group {
			labels[i] = choiceLabel(radio)
			if radio.Checked() {
				chosen = i
			}
		}
		idx, err := f.driver.Select(ctx, SelectConfig{
			Message:      label,
			Options:      labels,
			DefaultIndex: chosen,
			Help:         f.msg(i18n.MsgPromptChoose, map[string]any{"Field": label}),
		})
		if err != nil {
			return nil, err
		}
		chosen = idx
	}
	if chosen < 0 || chosen >= len(group) {
		return nil, nil
	}
	for i, radio := range group {
		radio.SetChecked(i == chosen)
	}
	return []dom.Element{group[chosen]}, nil
}

// fillFile asks for a path until the controller accepts the file or the
// answer is empty. Rejections are read back from the preview area.
func (f *Filler) fillFile(ctx context.Context, doc dom.Document, el dom.Element, label, previewID string, preset []string, hasPreset bool) ([]dom.Element, error) {
	for {
		path := strings.TrimSpace(first(preset))
		if !hasPreset {
			var err error
			path, err = f.driver.Input(ctx, InputConfig{Message: label + " (path, empty to skip)"})
			if err != nil {
				return nil, err
			}
			path = strings.TrimSpace(path)
		}
		if path == "" {
			return nil, nil
		}

		file, err := dom.OpenFile(path)
		if err != nil {
			if hasPreset {
				return nil, err
			}
			if infoErr := f.driver.Info(ctx, err.Error()); infoErr != nil {
				return nil, infoErr
			}
			continue
		}
		el.SetFiles([]dom.File{file})
		dom.FireOn(ctx, doc, el, dom.EventChange)
		if attached := len(el.Files()); attached > 0 {
			return nil, f.driver.Info(ctx, f.catalog.Plural(f.locale, i18n.MsgFilesAttached, attached))
		}

		reason := "file rejected"
		if preview := doc.ElementByID(previewID); preview != nil {
			if text := strings.TrimSpace(preview.Text()); text != "" {
				reason = text
			}
		}
		f.logger.Info("file rejected", "field", el.Name(), "path", path, "reason", reason)
		if err := f.driver.Info(ctx, reason); err != nil {
			return nil, err
		}
		if hasPreset {
			return nil, fmt.Errorf("%s: %s", path, reason)
		}
	}
}

// report prints the banner text followed by every inline field error.
func (f *Filler) report(ctx context.Context, doc dom.Document, ctrl *formctl.Controller) error {
	if id, ok := ctrl.BannerID(); ok {
		if banner := doc.ElementByID(id); banner != nil {
			if text := strings.TrimSpace(banner.Text()); text != "" {
				if err := f.driver.Info(ctx, text); err != nil {
					return err
				}
			}
		}
	}
	form := doc.ElementByID(ctrl.Config().FormID)
	if form == nil {
		return nil
	}
	for _, field := range form.FindAll(dom.ByClass("is-invalid")) {
		next := field.NextElement()
		if next == nil || !next.HasClass("invalid-feedback") {
			continue
		}
		line := fmt.Sprintf("  %s: %s", labelFor(form, field), strings.TrimSpace(next.Text()))
		if err := f.driver.Info(ctx, line); err != nil {
			return err
		}
	}
	return nil
}

func skippedType(el dom.Element) bool {
	if el.Tag() != "input" {
		return false
	}
	switch el.Type() {
	case "hidden", "submit", "button", "reset", "image":
		return true
	default:
		return false
	}
}

// visible reports whether no ancestor up to and including el, within form,
// is hidden with an inline display:none.
func visible(el, form dom.Element) bool {
	for node := el; node != nil; node = node.Parent() {
		if strings.EqualFold(strings.TrimSpace(node.Display()), "none") {
			return false
		}
		if node == form {
			return true
		}
	}
	return true
}

func labelFor(form, el dom.Element) string {
	if id := el.ID(); id != "" {
		label := dom.First(form, dom.And(dom.ByTag("label"), func(candidate dom.Element) bool {
			target, ok := candidate.Attr("for")
			return ok && target == id
		}))
		if label != nil {
			if text := strings.TrimSpace(label.Text()); text != "" {
				return text
			}
		}
	}
	if parent := el.Parent(); parent != nil && parent.Tag() == "label" {
		if text := strings.TrimSpace(parent.Text()); text != "" {
			return text
		}
	}
	return humanize(el.Name())
}

func choiceLabel(el dom.Element) string {
	if parent := el.Parent(); parent != nil && parent.Tag() == "label" {
		if text := strings.TrimSpace(parent.Text()); text != "" {
			return text
		}
	}
	return el.Value()
}

func optionValue(option dom.Element) string {
	if value, ok := option.Attr("value"); ok {
		return value
	}
	return strings.TrimSpace(option.Text())
}

func humanize(name string) string {
	text := strings.ReplaceAll(name, "_", " ")
	if text == "" {
		return text
	}
	return strings.ToUpper(text[:1]) + text[1:]
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func truthy(value, own string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on", "y":
		return true
	}
	return own != "" && value == own
}

func containsFold(values []string, value string) bool {
	for _, v := range values {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}
