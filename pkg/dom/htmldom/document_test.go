package htmldom

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formctl/pkg/dom"
)

const page = `<!doctype html>
<html><body>
<form id="registration-form" action="/register/">
  <input type="hidden" name="csrfmiddlewaretoken" value="tok">
  <input id="id_email" name="email" type="email" value="ada@example.com">
  <select id="id_organization_type" name="organization_type">
    <option value="">Choose</option>
    <option value="ngo">NGO</option>
    <option value="other" selected>Other</option>
  </select>
  <div id="id_interests">
    <label><input type="checkbox" name="interests" value="a" checked> A</label>
    <label><input type="checkbox" name="interests" value="Others"> Others</label>
  </div>
  <div id="other-interest" style="display: none; margin-top: 4px">
    <input id="id_other_interest" name="other_interest">
  </div>
  <textarea id="id_notes" name="notes">hello</textarea>
  <input id="id_logo" name="logo" type="file">
  <button id="submit-btn" type="submit">Send</button>
</form>
</body></html>`

func mustParse(t *testing.T) *Document {
	t.Helper()
	doc, err := ParseString(page,
		WithURL("https://summit.example/register/"),
		WithCookies(&http.Cookie{Name: "csrftoken", Value: "abc"}),
	)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	return doc
}

func TestValuesFollowBrowserSemantics(t *testing.T) {
	t.Parallel()
	doc := mustParse(t)

	if got := doc.ElementByID("id_email").Value(); got != "ada@example.com" {
		t.Fatalf("input value = %q", got)
	}
	if got := doc.ElementByID("id_organization_type").Value(); got != "other" {
		t.Fatalf("select value = %q", got)
	}
	if got := doc.ElementByID("id_notes").Value(); got != "hello" {
		t.Fatalf("textarea value = %q", got)
	}

	sel := doc.ElementByID("id_organization_type")
	sel.SetValue("")
	if got := sel.Value(); got != "" {
		t.Fatalf("select value after clearing = %q, want placeholder", got)
	}
	sel.SetValue("ngo")
	if got := sel.Value(); got != "ngo" {
		t.Fatalf("select value = %q, want ngo", got)
	}
}

func TestElementIdentityAndClasses(t *testing.T) {
	t.Parallel()
	doc := mustParse(t)

	a := doc.ElementByID("id_email")
	b := doc.ElementByID("id_email")
	if a != b {
		t.Fatalf("expected the same element value for the same node")
	}

	a.AddClass("form-control", "is-invalid", "is-invalid")
	if !a.HasClass("is-invalid") {
		t.Fatalf("expected is-invalid class")
	}
	cls, _ := a.Attr("class")
	if cls != "form-control is-invalid" {
		t.Fatalf("class attr = %q", cls)
	}
	a.RemoveClass("is-invalid", "form-control")
	if _, ok := a.Attr("class"); ok {
		t.Fatalf("expected class attribute to be dropped when empty")
	}
}

func TestDisplayPreservesOtherDeclarations(t *testing.T) {
	t.Parallel()
	doc := mustParse(t)

	wrapper := doc.ElementByID("other-interest")
	if got := wrapper.Display(); got != "none" {
		t.Fatalf("display = %q", got)
	}
	wrapper.SetDisplay("block")
	style, _ := wrapper.Attr("style")
	if style != "display: block; margin-top: 4px" {
		t.Fatalf("style = %q", style)
	}
}

func TestInsertAfterAndNextElement(t *testing.T) {
	t.Parallel()
	doc := mustParse(t)

	email := doc.ElementByID("id_email")
	inserted, err := email.InsertAfter(`<div class="invalid-feedback">Invalid</div>`)
	if err != nil {
		t.Fatalf("InsertAfter: %v", err)
	}
	if inserted == nil || !inserted.HasClass("invalid-feedback") {
		t.Fatalf("expected feedback element to be returned")
	}
	if next := email.NextElement(); next != inserted {
		t.Fatalf("expected feedback to follow the input")
	}
	if got := inserted.Text(); got != "Invalid" {
		t.Fatalf("feedback text = %q", got)
	}

	inserted.Remove()
	if next := email.NextElement(); next == inserted {
		t.Fatalf("expected feedback to be removed")
	}
}

func TestFindAllInDocumentOrder(t *testing.T) {
	t.Parallel()
	doc := mustParse(t)

	group := doc.ElementByID("id_interests")
	boxes := group.FindAll(dom.ByType("checkbox"))
	var values []string
	for _, box := range boxes {
		values = append(values, box.Value())
	}
	if diff := cmp.Diff([]string{"a", "Others"}, values); diff != "" {
		t.Fatalf("checkbox values mismatch (-want +got):\n%s", diff)
	}
	if !boxes[0].Checked() || boxes[1].Checked() {
		t.Fatalf("unexpected checked state")
	}
}

func TestResetFormKeepsHiddenInputs(t *testing.T) {
	t.Parallel()
	doc := mustParse(t)

	form := doc.ElementByID("registration-form")
	doc.ElementByID("id_logo").SetFiles([]dom.File{dom.BytesFile("logo.png", []byte("png"))})
	dom.ResetForm(form)

	hidden := dom.First(form, dom.ByName("csrfmiddlewaretoken"))
	if got := hidden.Value(); got != "tok" {
		t.Fatalf("hidden token = %q", got)
	}
	if got := doc.ElementByID("id_email").Value(); got != "" {
		t.Fatalf("email after reset = %q", got)
	}
	if got := doc.ElementByID("id_organization_type").Value(); got != "" {
		t.Fatalf("select after reset = %q", got)
	}
	if got := doc.ElementByID("id_notes").Value(); got != "" {
		t.Fatalf("textarea after reset = %q", got)
	}
	if files := doc.ElementByID("id_logo").Files(); len(files) != 0 {
		t.Fatalf("expected files to be cleared")
	}
	for _, box := range form.FindAll(dom.ByType("checkbox")) {
		if box.Checked() {
			t.Fatalf("checkbox %q still checked", box.Value())
		}
	}
}

func TestDispatchBubblesToAncestors(t *testing.T) {
	t.Parallel()
	doc := mustParse(t)

	var order []string
	doc.Bind(dom.Binding{ID: "id_interests", Kind: dom.EventChange, Handler: func(_ context.Context, ev *dom.Event) {
		order = append(order, "group:"+ev.Target.Value())
	}})
	doc.Bind(dom.Binding{ID: "registration-form", Kind: dom.EventChange, Handler: func(_ context.Context, ev *dom.Event) {
		order = append(order, "form")
		ev.StopPropagation()
	}})
	doc.Bind(dom.Binding{Kind: dom.EventChange, Handler: func(context.Context, *dom.Event) {
		order = append(order, "document")
	}})

	box := doc.ElementByID("id_interests").FindAll(dom.ByType("checkbox"))[1]
	dom.FireOn(context.Background(), doc, box, dom.EventChange)

	if diff := cmp.Diff([]string{"group:Others", "form"}, order); diff != "" {
		t.Fatalf("dispatch order mismatch (-want +got):\n%s", diff)
	}
}

func TestFocusAndCookies(t *testing.T) {
	t.Parallel()
	doc := mustParse(t)

	email := doc.ElementByID("id_email")
	doc.Focus(email)
	doc.ScrollIntoView(email)
	if doc.Focused() != email || doc.ScrolledTo() != email {
		t.Fatalf("expected focus and scroll on email")
	}
	email.Remove()
	if doc.Focused() != nil {
		t.Fatalf("detached element should not report focus")
	}

	if v, ok := doc.Cookie("csrftoken"); !ok || v != "abc" {
		t.Fatalf("cookie = %q, %v", v, ok)
	}
	if !strings.Contains(doc.String(), "registration-form") {
		t.Fatalf("expected rendered document to contain the form")
	}
}

func TestSelectWithoutMatchingOptionHasNoValue(t *testing.T) {
	t.Parallel()

	doc, err := ParseString(`<select id="size"><option value="s">S</option><option value="m" selected>M</option></select>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	sel := doc.ElementByID("size")
	if got := sel.Value(); got != "m" {
		t.Fatalf("initial value = %q", got)
	}
	sel.SetValue("")
	if got := sel.Value(); got != "" {
		t.Fatalf("value after clearing = %q, want empty", got)
	}
	sel.SetValue("xl")
	if got := sel.Value(); got != "" {
		t.Fatalf("value after unknown option = %q, want empty", got)
	}
	sel.SetValue("s")
	if got := sel.Value(); got != "s" {
		t.Fatalf("value after choosing = %q", got)
	}
}
