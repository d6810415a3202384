package formspec

import (
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formctl/pkg/formctl"
	"github.com/goliatone/go-formctl/pkg/upload"
	"github.com/goliatone/go-formctl/pkg/validation"
)

const registrationYAML = `
defaults:
  alert_container_id: alert-container
  banner_timeout: 6s
forms:
  registration:
    form_id: registration-form
    submit_button_id: submit-btn
    conditionals:
      - name: how_heard_other
        wrapper_id: how_heard_other_wrapper
        input_id: id_how_heard_other
        controller: id_how_heard
        rule: equals
    uploads:
      - input_id: id_logo
        preview_id: logo_preview
        mode: image
        max_bytes: 1048576
    multi_value: [interests]
    booleans: [privacy_agreed]
    rules:
      - field: email
        checks: [required, email]
    after_success:
      - kind: remove-selected-option
        select_id: id_booth
`

const sponsorJSON = `{
  "forms": {
    "sponsor": {
      "form_id": "sponsor-form",
      "submit_button_id": "sponsor-submit",
      "banner_fade": "250ms",
      "uploads": [{"input_id": "id_deck", "preview_id": "deck_preview", "mode": "document"}]
    }
  }
}`

func TestLoadReadsYAMLAndJSON(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"forms/registration.yaml": {Data: []byte(registrationYAML)},
		"forms/sponsor.json":      {Data: []byte(sponsorJSON)},
		"forms/README.md":         {Data: []byte("ignored")},
	}
	store, err := Load(fsys)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff([]string{"registration", "sponsor"}, store.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	got, ok := store.Form("registration")
	if !ok {
		t.Fatalf("registration form missing")
	}
	want := formctl.Config{
		FormID:           "registration-form",
		SubmitButtonID:   "submit-btn",
		AlertContainerID: "alert-container",
		Conditionals: []formctl.Conditional{{
			Name: "how_heard_other", WrapperID: "how_heard_other_wrapper", InputID: "id_how_heard_other",
			Controller: "id_how_heard", Rule: formctl.RuleEquals,
		}},
		Uploads:    []formctl.Upload{{InputID: "id_logo", PreviewID: "logo_preview", Mode: upload.ModeImage, MaxBytes: 1 << 20}},
		MultiValue: []string{"interests"},
		Booleans:   []string{"privacy_agreed"},
		Rules: []validation.Rule{
			{Field: "email", Checks: []validation.Check{validation.CheckRequired, validation.CheckEmail}},
		},
		AfterSuccess:  []formctl.SuccessAction{{Kind: formctl.ActionRemoveSelectedOption, SelectID: "id_booth"}},
		BannerTimeout: 6 * time.Second,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("registration config mismatch (-want +got):\n%s", diff)
	}

	sponsor, ok := store.Lookup("sponsor")
	if !ok {
		t.Fatalf("sponsor form missing")
	}
	if sponsor.Source != "forms/sponsor.json" {
		t.Fatalf("source = %q", sponsor.Source)
	}
	if sponsor.Config.BannerFade != 250*time.Millisecond {
		t.Fatalf("banner fade = %v", sponsor.Config.BannerFade)
	}
	if sponsor.Config.Uploads[0].Mode != upload.ModeDocument {
		t.Fatalf("upload mode = %q", sponsor.Config.Uploads[0].Mode)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		fsys fstest.MapFS
		want string
	}{
		{
			name: "duplicate form",
			fsys: fstest.MapFS{
				"a.yaml": {Data: []byte(registrationYAML)},
				"b.yaml": {Data: []byte(registrationYAML)},
			},
			want: `duplicate form "registration"`,
		},
		{
			name: "empty file",
			fsys: fstest.MapFS{"empty.yml": {Data: []byte("  \n")}},
			want: "is empty",
		},
		{
			name: "no forms",
			fsys: fstest.MapFS{"other.yaml": {Data: []byte("defaults:\n  form_id: x\n")}},
			want: "defines no forms",
		},
		{
			name: "invalid config",
			fsys: fstest.MapFS{"bad.yaml": {Data: []byte("forms:\n  broken:\n    form_id: f\n")}},
			want: "submit_button_id is required",
		},
		{
			name: "malformed",
			fsys: fstest.MapFS{"bad.json": {Data: []byte(`{"forms": [`)}},
			want: "formspec: parse bad.json",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(tc.fsys)
			if err == nil {
				t.Fatalf("expected error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error = %v, want %q", err, tc.want)
			}
		})
	}
}

func TestLoadNilFS(t *testing.T) {
	t.Parallel()

	store, err := Load(nil)
	if err != nil {
		t.Fatalf("Load(nil): %v", err)
	}
	if !store.Empty() {
		t.Fatalf("expected empty store")
	}
	if _, ok := store.Form("registration"); ok {
		t.Fatalf("unexpected form")
	}
}

func TestDecodeSingleDocument(t *testing.T) {
	t.Parallel()

	store, err := Decode([]byte(sponsorJSON))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	form, ok := store.Lookup("sponsor")
	if !ok || form.Source != "<inline>" {
		t.Fatalf("lookup = %+v, %v", form, ok)
	}
}
