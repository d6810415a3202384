package markup_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formctl/pkg/dom"
	"github.com/goliatone/go-formctl/pkg/dom/htmldom"
	"github.com/goliatone/go-formctl/pkg/markup"
)

func newRenderer(t *testing.T) *markup.Renderer {
	t.Helper()
	r, err := markup.New()
	if err != nil {
		t.Fatalf("markup.New: %v", err)
	}
	return r
}

func mount(t *testing.T, fragment string) *htmldom.Document {
	t.Helper()
	doc, err := htmldom.ParseString(`<html><body><div id="host">` + fragment + `</div></body></html>`)
	if err != nil {
		t.Fatalf("parse fragment: %v", err)
	}
	return doc
}

func TestBannerMarkup(t *testing.T) {
	t.Parallel()

	out, err := newRenderer(t).Banner(markup.Banner{
		ID:      "formctl-banner-1",
		Level:   markup.LevelDanger,
		Message: `Closed<br><script>alert(1)</script>`,
	})
	if err != nil {
		t.Fatalf("Banner: %v", err)
	}
	if strings.Contains(out, "<script") {
		t.Fatalf("script survived sanitising: %s", out)
	}

	doc := mount(t, out)
	banner := doc.ElementByID("formctl-banner-1")
	if banner == nil {
		t.Fatalf("banner not found in %s", out)
	}
	for _, class := range []string{"alert", "alert-danger", "alert-dismissible", "fade", "show"} {
		if !banner.HasClass(class) {
			t.Fatalf("banner missing class %q", class)
		}
	}
	closeButton := doc.ElementByID("formctl-banner-1-close")
	if closeButton == nil || !closeButton.HasClass("btn-close") {
		t.Fatalf("close control missing")
	}
	if !strings.Contains(banner.Text(), "Closed") {
		t.Fatalf("banner text = %q", banner.Text())
	}
}

func TestBannerRequiresID(t *testing.T) {
	t.Parallel()
	if _, err := newRenderer(t).Banner(markup.Banner{Message: "hi"}); err == nil {
		t.Fatalf("expected error for missing id")
	}
}

func TestFeedbackEscapesAndJoins(t *testing.T) {
	t.Parallel()

	out, err := newRenderer(t).Feedback([]string{"Too short", "<b>bad</b>"})
	if err != nil {
		t.Fatalf("Feedback: %v", err)
	}
	doc := mount(t, out)
	el := dom.First(doc.ElementByID("host"), dom.ByClass("invalid-feedback"))
	if el == nil {
		t.Fatalf("invalid-feedback element missing: %s", out)
	}
	if diff := cmp.Diff("Too short, <b>bad</b>", el.Text()); diff != "" {
		t.Fatalf("feedback text mismatch (-want +got):\n%s", diff)
	}
}

func TestPreviewVariants(t *testing.T) {
	t.Parallel()
	r := newRenderer(t)

	image, err := r.Preview(markup.Preview{
		Name: "logo.png", Size: "0.50 MB", Image: true, Source: "data:image/png;base64,AA==",
		RemoveID: "id_logo-remove", RemoveLabel: "Remove file",
	})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	doc := mount(t, image)
	host := doc.ElementByID("host")
	if dom.First(host, dom.And(dom.ByTag("img"), dom.ByClass("img-thumbnail"))) == nil {
		t.Fatalf("thumbnail missing: %s", image)
	}
	if !strings.Contains(host.Text(), "logo.png (0.50 MB)") {
		t.Fatalf("caption missing: %q", host.Text())
	}
	remove := doc.ElementByID("id_logo-remove")
	if remove == nil || strings.TrimSpace(remove.Text()) != "Remove file" {
		t.Fatalf("remove control missing")
	}

	document, err := r.Preview(markup.Preview{Name: "deck.pdf", Size: "1.00 MB", RemoveID: "x", RemoveLabel: "Remove file"})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	doc = mount(t, document)
	if dom.First(doc.ElementByID("host"), dom.ByTag("img")) != nil {
		t.Fatalf("document preview must not render a thumbnail")
	}
}

func TestJoinLinesAndSanitize(t *testing.T) {
	t.Parallel()

	joined := markup.JoinLines([]string{"Closed", " ", "a < b"})
	if diff := cmp.Diff("Closed<br>a &lt; b", joined); diff != "" {
		t.Fatalf("JoinLines mismatch (-want +got):\n%s", diff)
	}
	if got := markup.Sanitize(`<a href="x">link</a> <strong>ok</strong>`); strings.Contains(got, "<a") || !strings.Contains(got, "<strong>ok</strong>") {
		t.Fatalf("Sanitize = %q", got)
	}
}
