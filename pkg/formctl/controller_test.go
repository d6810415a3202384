package formctl_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"pgregory.net/rapid"

	"github.com/goliatone/go-formctl/pkg/dom"
	"github.com/goliatone/go-formctl/pkg/dom/htmldom"
	"github.com/goliatone/go-formctl/pkg/formctl"
)

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	doc := parsePage(t, false)
	cfg := baseConfig()
	cfg.Conditionals = append(cfg.Conditionals, formctl.Conditional{Name: "x", WrapperID: "w", InputID: "i", Rule: "sometimes"})
	_, err := formctl.New(doc, cfg)
	if !errors.Is(err, formctl.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if !strings.Contains(err.Error(), `unknown rule "sometimes"`) {
		t.Fatalf("error does not name the rule: %v", err)
	}

	if _, err := formctl.New(doc, formctl.Config{}); !errors.Is(err, formctl.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for empty config, got %v", err)
	}
}

func TestInitRunsOnceAndRequiresForm(t *testing.T) {
	t.Parallel()

	f := newFixture(t, baseConfig())
	if err := f.ctrl.Init(context.Background()); !errors.Is(err, formctl.ErrAlreadyInitialized) {
		t.Fatalf("second Init = %v, want ErrAlreadyInitialized", err)
	}

	cfg := baseConfig()
	cfg.FormID = "missing-form"
	ctrl, err := formctl.New(parsePage(t, false), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := ctrl.Init(context.Background()); !errors.Is(err, formctl.ErrElementNotFound) {
		t.Fatalf("Init = %v, want ErrElementNotFound", err)
	}
	if _, err := ctrl.Submit(context.Background()); !errors.Is(err, formctl.ErrNotInitialized) {
		t.Fatalf("Submit before Init = %v, want ErrNotInitialized", err)
	}
}

func TestDefaultsApplied(t *testing.T) {
	t.Parallel()

	f := newFixture(t, baseConfig())
	cfg := f.ctrl.Config()
	if cfg.FieldIDPrefix != "id_" || cfg.BooleanValue != "true" || cfg.CSRFCookie != "csrftoken" || cfg.CSRFHeader != "X-CSRFToken" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.BannerTimeout != formctl.DefaultBannerTimeout || cfg.BannerFade != formctl.DefaultBannerFade {
		t.Fatalf("unexpected banner timings: %v %v", cfg.BannerTimeout, cfg.BannerFade)
	}
	if cfg.Conditionals[0].Sentinel != "other" {
		t.Fatalf("sentinel = %q", cfg.Conditionals[0].Sentinel)
	}
	if cfg.Uploads[0].MaxBytes != 5*1024*1024 {
		t.Fatalf("max bytes = %d", cfg.Uploads[0].MaxBytes)
	}
}

func TestInitialVisibilityPass(t *testing.T) {
	t.Parallel()

	f := newFixture(t, baseConfig())
	want := []formctl.FieldState{
		{Name: "how_heard_other"},
		{Name: "interests_other"},
		{Name: "company_role"},
		{Name: "dietary"},
	}
	if diff := cmp.Diff(want, f.ctrl.States()); diff != "" {
		t.Fatalf("initial states mismatch (-want +got):\n%s", diff)
	}
	for _, id := range []string{"how_heard_other_wrapper", "interests_other_wrapper", "company_role_wrapper", "dietary_wrapper"} {
		if got := f.el(t, id).Display(); got != "none" {
			t.Fatalf("%s display = %q", id, got)
		}
	}
}

func TestEqualsRuleTogglesAndClears(t *testing.T) {
	t.Parallel()

	f := newFixture(t, baseConfig())
	sel := f.el(t, "id_how_heard")
	input := f.el(t, "id_how_heard_other")
	wrapper := f.el(t, "how_heard_other_wrapper")

	sel.SetValue("Other")
	f.change(t, "id_how_heard")
	if wrapper.Display() != "block" {
		t.Fatalf("wrapper display = %q, want block", wrapper.Display())
	}
	if _, ok := input.Attr("required"); !ok {
		t.Fatalf("input should be required when shown")
	}

	input.SetValue("A friend")
	sel.SetValue("Twitter")
	f.change(t, "id_how_heard")
	if wrapper.Display() != "none" {
		t.Fatalf("wrapper display = %q, want none", wrapper.Display())
	}
	if _, ok := input.Attr("required"); ok {
		t.Fatalf("hidden input must not be required")
	}
	if input.Value() != "" {
		t.Fatalf("hidden input value = %q, want empty", input.Value())
	}

	state, ok := f.ctrl.State("how_heard_other")
	if !ok {
		t.Fatalf("state missing")
	}
	if diff := cmp.Diff(formctl.FieldState{Name: "how_heard_other"}, state); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}

	// A dependent select without an empty option reports no value once hidden.
	doc, err := htmldom.ParseString(`<div id="alerts"></div>
<form id="f">
  <select id="id_kind" name="kind"><option value="">-</option><option value="other">Other</option></select>
  <div id="sub_wrapper"><select id="id_sub" name="sub"><option value="x">X</option><option value="y" selected>Y</option></select></div>
  <button id="go" type="submit">Go</button>
</form>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ctrl, err := formctl.New(doc, formctl.Config{
		FormID: "f", SubmitButtonID: "go", AlertContainerID: "alerts",
		Conditionals: []formctl.Conditional{
			{Name: "sub", WrapperID: "sub_wrapper", InputID: "id_sub", Controller: "id_kind", Rule: formctl.RuleEquals},
		},
	}, formctl.WithScheduler(&fakeScheduler{}))
	if err != nil {
		t.Fatalf("formctl.New: %v", err)
	}
	if err := ctrl.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	sub, _ := ctrl.State("sub")
	if diff := cmp.Diff(formctl.FieldState{Name: "sub"}, sub); diff != "" {
		t.Fatalf("select state mismatch (-want +got):\n%s", diff)
	}
	if got := doc.ElementByID("id_sub").Value(); got != "" {
		t.Fatalf("hidden select value = %q, want empty", got)
	}
	doc.ElementByID("id_kind").SetValue("other")
	dom.Fire(context.Background(), doc, "id_kind", dom.EventChange)
	doc.ElementByID("id_sub").SetValue("y")
	if got := doc.ElementByID("id_sub").Value(); got != "y" {
		t.Fatalf("select value after choosing = %q", got)
	}
}

func TestNonEmptyAndExprRules(t *testing.T) {
	t.Parallel()

	f := newFixture(t, baseConfig())

	f.el(t, "id_company_size").SetValue("11-50")
	f.change(t, "id_company_size")
	if got := f.el(t, "company_role_wrapper").Display(); got != "block" {
		t.Fatalf("company role display = %q", got)
	}

	f.check(t, "attend_dinner", "yes", true)
	if got := f.el(t, "dietary_wrapper").Display(); got != "block" {
		t.Fatalf("dietary display = %q", got)
	}
	f.el(t, "id_dietary").SetValue("vegan")
	f.check(t, "attend_dinner", "yes", false)
	if got := f.el(t, "dietary_wrapper").Display(); got != "none" {
		t.Fatalf("dietary display = %q", got)
	}
	if got := f.el(t, "id_dietary").Value(); got != "" {
		t.Fatalf("dietary value = %q", got)
	}
}

func TestAnyCheckedVisibilityProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture(t, baseConfig())
		values := []string{"ai", "design", "Other"}
		input := f.el(t, "id_interests_other")

		steps := rapid.IntRange(1, 8).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			value := rapid.SampledFrom(values).Draw(rt, "value")
			checked := rapid.Bool().Draw(rt, "checked")
			text := rapid.StringMatching(`[a-z ]{0,12}`).Draw(rt, "text")

			input.SetValue(text)
			f.check(t, "interests", value, checked)

			otherChecked := false
			for _, box := range f.el(t, "interests-group").FindAll(dom.ByType("checkbox")) {
				if box.Checked() && strings.EqualFold(box.Value(), "other") {
					otherChecked = true
				}
			}

			state, _ := f.ctrl.State("interests_other")
			if state.Visible != otherChecked || state.Required != otherChecked {
				rt.Fatalf("state %+v with other checked = %v", state, otherChecked)
			}
			display := f.el(t, "interests_other_wrapper").Display()
			_, required := input.Attr("required")
			if otherChecked {
				if display != "block" || !required || input.Value() != text {
					rt.Fatalf("shown field: display=%q required=%v value=%q", display, required, input.Value())
				}
			} else if display != "none" || required || input.Value() != "" {
				rt.Fatalf("hidden field: display=%q required=%v value=%q", display, required, input.Value())
			}
		}
	})
}
