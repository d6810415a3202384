package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formctl/pkg/formspec"
	"github.com/goliatone/go-formctl/pkg/i18n"
)

const page = `<!doctype html>
<html><body>
<div id="alert-container"></div>
<form id="signup" action="/register/" method="post" enctype="multipart/form-data">
  <label for="id_name">Name</label><input id="id_name" name="name" type="text">
  <label for="id_email">Email</label><input id="id_email" name="email" type="email">
  <div id="topics-group">
    <label><input type="checkbox" name="topics" value="go"> Go</label>
    <label><input type="checkbox" name="topics" value="web"> Web</label>
  </div>
  <label><input id="id_terms" name="terms" type="checkbox"> I agree</label>
  <button id="submit-btn" type="submit">Register</button>
</form>
</body></html>`

const definitions = `
forms:
  signup:
    form_id: signup
    submit_button_id: submit-btn
    alert_container_id: alert-container
    multi_value: [topics]
    booleans: [terms]
    rules:
      - field: email
        checks: [required, email]
`

type received struct {
	mu     sync.Mutex
	csrf   string
	marker string
	form   map[string][]string
}

func newBackend(t *testing.T) (*httptest.Server, *received) {
	t.Helper()
	got := &received{}
	mux := http.NewServeMux()
	mux.HandleFunc("/register/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "csrf-abc", Path: "/"})
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(page))
		case http.MethodPost:
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			got.mu.Lock()
			got.csrf = r.Header.Get("X-CSRFToken")
			got.marker = r.Header.Get("X-Requested-With")
			got.form = r.MultipartForm.Value
			got.mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "Welcome aboard!"})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, got
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd(&stdout, &stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestFillSubmitsWithoutPrompting(t *testing.T) {
	srv, got := newBackend(t)
	dir := t.TempDir()
	writeFile(t, dir, "forms.yaml", definitions)

	out, err := execute(t, "fill", srv.URL+"/register/",
		"--forms", dir,
		"--no-input",
		"--set", "name=Ada",
		"--set", "email=ada@example.com",
		"--set", "topics=go",
		"--set", "topics=web",
		"--set", "terms=yes",
		"--metrics",
	)
	if err != nil {
		t.Fatalf("fill: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Welcome aboard!") {
		t.Fatalf("output lacks the success banner:\n%s", out)
	}
	for _, line := range []string{
		`formctl_submissions_total{form="signup",outcome="success"} 1`,
		"# TYPE formctl_submission_duration_seconds histogram",
		`formctl_submission_duration_seconds_count{form="signup"} 1`,
	} {
		if !strings.Contains(out, line) {
			t.Fatalf("metrics output lacks %q:\n%s", line, out)
		}
	}

	got.mu.Lock()
	defer got.mu.Unlock()
	if got.csrf != "csrf-abc" {
		t.Fatalf("csrf header = %q", got.csrf)
	}
	if got.marker != "XMLHttpRequest" {
		t.Fatalf("X-Requested-With = %q", got.marker)
	}
	want := map[string][]string{
		"name":   {"Ada"},
		"email":  {"ada@example.com"},
		"topics": {"go", "web"},
		"terms":  {"true"},
	}
	if diff := cmp.Diff(want, got.form); diff != "" {
		t.Fatalf("posted form mismatch (-want +got):\n%s", diff)
	}
}

func TestFillStopsOnClientValidation(t *testing.T) {
	srv, got := newBackend(t)
	dir := t.TempDir()
	writeFile(t, dir, "forms.yaml", definitions)

	out, err := execute(t, "fill", srv.URL+"/register/", "--forms", dir, "--form", "signup", "--no-input", "--set", "email=nope")
	if err == nil || !strings.Contains(err.Error(), "validation_failure") {
		t.Fatalf("fill error = %v", err)
	}
	if !strings.Contains(out, "Email: Please enter a valid email address.") {
		t.Fatalf("output lacks the field error:\n%s", out)
	}
	got.mu.Lock()
	defer got.mu.Unlock()
	if got.form != nil {
		t.Fatalf("backend received %v", got.form)
	}
}

func TestFillRequiresFormSource(t *testing.T) {
	_, err := execute(t, "fill", "http://127.0.0.1:1/")
	if err == nil || !strings.Contains(err.Error(), "--forms or --openapi") {
		t.Fatalf("error = %v", err)
	}
}

const openapiDoc = `
openapi: 3.0.3
info: {title: Signup, version: 1.0.0}
paths:
  /register/:
    post:
      operationId: signup
      requestBody:
        content:
          multipart/form-data:
            schema:
              type: object
              required: [email]
              properties:
                email: {type: string, format: email}
                terms: {type: boolean}
      responses:
        "200": {description: ok}
`

func TestExportRoundTripsThroughLoader(t *testing.T) {
	dir := t.TempDir()
	spec := writeFile(t, dir, "openapi.yaml", openapiDoc)

	out, err := execute(t, "export", "--openapi", spec, "--operation", "signup")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	store, err := formspec.Decode([]byte(out))
	if err != nil {
		t.Fatalf("exported definition does not load: %v\n%s", err, out)
	}
	cfg, ok := store.Form("signup")
	if !ok {
		t.Fatalf("form missing from:\n%s", out)
	}
	if cfg.FormID != "signup" || cfg.SubmitButtonID != formspec.DefaultSubmitButtonID {
		t.Fatalf("ids = %q %q", cfg.FormID, cfg.SubmitButtonID)
	}
	if diff := cmp.Diff([]string{"terms"}, cfg.Booleans); diff != "" {
		t.Fatalf("booleans mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckFile(t *testing.T) {
	dir := t.TempDir()
	logo := writeFile(t, dir, "logo.png", "png")
	anim := writeFile(t, dir, "anim.gif", "gif")

	out, err := execute(t, "check-file", logo, anim)
	if err == nil || !strings.Contains(err.Error(), "1 of 2 files rejected") {
		t.Fatalf("error = %v", err)
	}
	if !strings.Contains(out, "ok\t"+logo) {
		t.Fatalf("png not accepted:\n%s", out)
	}
	if !strings.Contains(out, "rejected\t"+anim+"\tInvalid file type. Allowed: jpg, jpeg, png") {
		t.Fatalf("gif not rejected:\n%s", out)
	}

	if _, err := execute(t, "check-file", "--mode", "document", writeFile(t, dir, "deck.pdf", "pdf")); err != nil {
		t.Fatalf("document mode: %v", err)
	}
	if _, err := execute(t, "check-file", "--max-bytes", "2", logo); err == nil {
		t.Fatalf("expected size rejection")
	}
}

func TestParseSets(t *testing.T) {
	t.Parallel()

	got, err := parseSets([]string{"a=1", "a=2", "b=x=y", "c="})
	if err != nil {
		t.Fatalf("parseSets: %v", err)
	}
	want := map[string][]string{"a": {"1", "2"}, "b": {"x=y"}, "c": {""}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("sets mismatch (-want +got):\n%s", diff)
	}
	if _, err := parseSets([]string{"novalue"}); err == nil {
		t.Fatalf("expected error for missing '='")
	}
}

func TestHasCatalogue(t *testing.T) {
	t.Parallel()

	catalog := i18n.MustNew()
	for locale, want := range map[string]bool{"en": true, "es-MX": true, "fr": false, "": false} {
		if got := hasCatalogue(catalog, locale); got != want {
			t.Fatalf("hasCatalogue(%q) = %v, want %v", locale, got, want)
		}
	}
}
