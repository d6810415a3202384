package formctl_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-formctl/pkg/dom"
	"github.com/goliatone/go-formctl/pkg/dom/htmldom"
	"github.com/goliatone/go-formctl/pkg/formctl"
	"github.com/goliatone/go-formctl/pkg/submission"
	"github.com/goliatone/go-formctl/pkg/upload"
)

const registrationPage = `<!doctype html>
<html><body>
<div id="alert-container"></div>
<form id="registration-form" action="/register/" method="post" enctype="multipart/form-data">
  <input type="hidden" name="csrfmiddlewaretoken" value="tok">
  <input id="id_first_name" name="first_name" type="text">
  <input id="id_email" name="email" type="email">
  <select id="id_how_heard" name="how_heard">
    <option value="">Choose</option>
    <option value="Twitter">Twitter</option>
    <option value="Other">Other</option>
  </select>
  <div id="how_heard_other_wrapper" style="display: none">
    <input id="id_how_heard_other" name="how_heard_other" type="text">
  </div>
  <div id="interests-group">
    <label><input type="checkbox" name="interests" value="ai"> AI</label>
    <label><input type="checkbox" name="interests" value="design"> Design</label>
    <label><input type="checkbox" name="interests" value="Other"> Other</label>
  </div>
  <div id="interests_other_wrapper" style="display: none">
    <input id="id_interests_other" name="interests_other" type="text">
  </div>
  <select id="id_company_size" name="company_size">
    <option value="">Choose</option>
    <option value="1-10">1-10</option>
    <option value="11-50">11-50</option>
  </select>
  <div id="company_role_wrapper" style="display: none">
    <input id="id_company_role" name="company_role" type="text">
  </div>
  <input id="id_attend_dinner" name="attend_dinner" type="checkbox" value="yes">
  <div id="dietary_wrapper" style="display: none">
    <textarea id="id_dietary" name="dietary"></textarea>
  </div>
  <input id="id_logo" name="logo" type="file">
  <div id="logo_preview"></div>
  <select id="id_booth" name="booth">
    <option value="">Select a booth</option>
    <option value="A1">A1</option>
    <option value="B2">B2</option>
  </select>
  <input id="id_privacy_agreed" name="privacy_agreed" type="checkbox">
  <input id="id_updates_opt_in" name="updates_opt_in" type="checkbox">
  <button id="submit-btn" type="submit"><i class="fa fa-paper-plane me-2"></i> Submit Registration</button>
</form>
</body></html>`

func baseConfig() formctl.Config {
	return formctl.Config{
		FormID:           "registration-form",
		SubmitButtonID:   "submit-btn",
		AlertContainerID: "alert-container",
		Conditionals: []formctl.Conditional{
			{Name: "how_heard_other", WrapperID: "how_heard_other_wrapper", InputID: "id_how_heard_other", Controller: "id_how_heard", Rule: formctl.RuleEquals},
			{Name: "interests_other", WrapperID: "interests_other_wrapper", InputID: "id_interests_other", Controller: "interests-group", Rule: formctl.RuleAnyChecked},
			{Name: "company_role", WrapperID: "company_role_wrapper", InputID: "id_company_role", Controller: "id_company_size", Rule: formctl.RuleNonEmpty},
			{Name: "dietary", WrapperID: "dietary_wrapper", InputID: "id_dietary", Rule: formctl.RuleExpr, Expr: `attend_dinner == "yes"`},
		},
		Uploads: []formctl.Upload{
			{InputID: "id_logo", PreviewID: "logo_preview", Mode: upload.ModeImage},
		},
		MultiValue: []string{"interests"},
		Booleans:   []string{"privacy_agreed", "updates_opt_in"},
		AfterSuccess: []formctl.SuccessAction{
			{Kind: formctl.ActionRemoveSelectedOption, SelectID: "id_booth"},
		},
	}
}

type fakeTimer struct {
	s       *fakeScheduler
	at      time.Duration
	fn      func()
	fired   bool
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// fakeScheduler fires timers only when Advance is called.
type fakeScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	pending []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, fn func()) formctl.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{s: s, at: s.now + d, fn: fn}
	s.pending = append(s.pending, t)
	return t
}

func (s *fakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		var next *fakeTimer
		for _, t := range s.pending {
			if t.fired || t.stopped || t.at > target {
				continue
			}
			if next == nil || t.at < next.at {
				next = t
			}
		}
		if next == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		next.fired = true
		s.now = next.at
		s.mu.Unlock()
		next.fn()
	}
}

// recorder is a Sender replying with a canned result and keeping requests.
type recorder struct {
	mu       sync.Mutex
	reply    submission.Result
	requests []submission.Request
}

func (r *recorder) Send(_ context.Context, req submission.Request) submission.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	return r.reply
}

func (r *recorder) setReply(result submission.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reply = result
}

func (r *recorder) calls() []submission.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]submission.Request(nil), r.requests...)
}

type fixture struct {
	doc   *htmldom.Document
	ctrl  *formctl.Controller
	clock *fakeScheduler
	back  *recorder
}

func parsePage(t testing.TB, withCookie bool) *htmldom.Document {
	t.Helper()
	options := []htmldom.Option{htmldom.WithURL("https://summit.example.com/events/2025/")}
	if withCookie {
		options = append(options, htmldom.WithCookies(&http.Cookie{Name: "csrftoken", Value: "csrf-123"}))
	}
	doc, err := htmldom.ParseString(registrationPage, options...)
	if err != nil {
		t.Fatalf("parse page: %v", err)
	}
	return doc
}

func newFixture(t testing.TB, cfg formctl.Config, options ...formctl.Option) *fixture {
	t.Helper()
	f := &fixture{
		doc:   parsePage(t, true),
		clock: &fakeScheduler{},
		back:  &recorder{reply: submission.Success{Message: "OK"}},
	}
	options = append([]formctl.Option{formctl.WithScheduler(f.clock), formctl.WithSender(f.back)}, options...)
	ctrl, err := formctl.New(f.doc, cfg, options...)
	if err != nil {
		t.Fatalf("formctl.New: %v", err)
	}
	if err := ctrl.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	f.ctrl = ctrl
	return f
}

func (f *fixture) el(t testing.TB, id string) dom.Element {
	t.Helper()
	el := f.doc.ElementByID(id)
	if el == nil {
		t.Fatalf("element %q not found", id)
	}
	return el
}

func (f *fixture) change(t testing.TB, id string) {
	t.Helper()
	if !dom.Fire(context.Background(), f.doc, id, dom.EventChange) {
		t.Fatalf("element %q not found", id)
	}
}

func (f *fixture) check(t testing.TB, name, value string, checked bool) {
	t.Helper()
	for _, box := range f.el(t, "registration-form").FindAll(dom.And(dom.ByName(name), dom.ByType("checkbox"))) {
		if box.Value() == value {
			box.SetChecked(checked)
			dom.FireOn(context.Background(), f.doc, box, dom.EventChange)
			return
		}
	}
	t.Fatalf("checkbox %s=%s not found", name, value)
}

func (f *fixture) banner(t testing.TB) dom.Element {
	t.Helper()
	return dom.First(f.el(t, "alert-container"), dom.ByClass("alert"))
}
