package formctl

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-formctl/pkg/upload"
	"github.com/goliatone/go-formctl/pkg/validation"
)

// Defaults applied by Config.withDefaults.
const (
	DefaultFieldIDPrefix = "id_"
	DefaultBooleanValue  = "true"
	DefaultSentinel      = "other"
	DefaultCSRFCookie    = "csrftoken"
	DefaultCSRFHeader    = "X-CSRFToken"
	DefaultBannerTimeout = 8 * time.Second
	DefaultBannerFade    = 500 * time.Millisecond
)

// Rule selects how a conditional field derives its visibility.
type Rule string

const (
	// RuleAnyChecked shows the field when any checkbox under the controller
	// carries the sentinel value (case-insensitive).
	RuleAnyChecked Rule = "any-checked"
	// RuleNonEmpty shows the field when the controller has a non-empty value.
	RuleNonEmpty Rule = "non-empty"
	// RuleEquals shows the field when the controller value equals the
	// sentinel (case-insensitive).
	RuleEquals Rule = "equals"
	// RuleExpr evaluates Expr over the current form values.
	RuleExpr Rule = "expr"
)

// Conditional describes a dependent field.
type Conditional struct {
	// Name is the dependent input's field name.
	Name      string `json:"name" yaml:"name"`
	WrapperID string `json:"wrapper_id" yaml:"wrapper_id"`
	InputID   string `json:"input_id" yaml:"input_id"`
	// Controller is the id of the select, checkbox, or checkbox-group
	// container the field depends on. Expr rules without a controller
	// listen on the whole form.
	Controller string `json:"controller,omitempty" yaml:"controller,omitempty"`
	Rule       Rule   `json:"rule" yaml:"rule"`
	Sentinel   string `json:"sentinel,omitempty" yaml:"sentinel,omitempty"`
	Expr       string `json:"expr,omitempty" yaml:"expr,omitempty"`
}

// Upload binds a file input to its preview area and acceptance rules.
type Upload struct {
	InputID   string      `json:"input_id" yaml:"input_id"`
	PreviewID string      `json:"preview_id" yaml:"preview_id"`
	Mode      upload.Mode `json:"mode,omitempty" yaml:"mode,omitempty"`
	MaxBytes  int64       `json:"max_bytes,omitempty" yaml:"max_bytes,omitempty"`
	Allowed   []string    `json:"allowed,omitempty" yaml:"allowed,omitempty"`
}

// Rules returns the acceptance rules for the upload.
func (u Upload) Rules() upload.Rules {
	return upload.RulesFor(u.Mode, u.MaxBytes, u.Allowed...)
}

// RemoveID is the id of the remove control rendered in the preview.
func (u Upload) RemoveID() string {
	return u.InputID + "-remove"
}

// ActionKind names a post-success action.
type ActionKind string

// ActionRemoveSelectedOption drops the option that was selected at submit
// time from a select, disabling the select once only placeholders remain.
const ActionRemoveSelectedOption ActionKind = "remove-selected-option"

// SuccessAction runs after a successful submission.
type SuccessAction struct {
	Kind     ActionKind `json:"kind" yaml:"kind"`
	SelectID string     `json:"select_id" yaml:"select_id"`
}

// Config describes one registration form in a document.
type Config struct {
	FormID           string `json:"form_id" yaml:"form_id"`
	SubmitButtonID   string `json:"submit_button_id" yaml:"submit_button_id"`
	AlertContainerID string `json:"alert_container_id" yaml:"alert_container_id"`
	FieldIDPrefix    string `json:"field_id_prefix,omitempty" yaml:"field_id_prefix,omitempty"`

	// SubmitLabel is restored after a submission; empty keeps the markup
	// found at Init.
	SubmitLabel string `json:"submit_label,omitempty" yaml:"submit_label,omitempty"`
	// BusyLabel replaces the submit label while a submission is in flight;
	// empty renders the catalogue's spinner label.
	BusyLabel string `json:"busy_label,omitempty" yaml:"busy_label,omitempty"`

	Conditionals []Conditional `json:"conditionals,omitempty" yaml:"conditionals,omitempty"`
	Uploads      []Upload      `json:"uploads,omitempty" yaml:"uploads,omitempty"`

	MultiValue   []string `json:"multi_value,omitempty" yaml:"multi_value,omitempty"`
	Booleans     []string `json:"booleans,omitempty" yaml:"booleans,omitempty"`
	BooleanValue string   `json:"boolean_value,omitempty" yaml:"boolean_value,omitempty"`

	Rules        []validation.Rule `json:"rules,omitempty" yaml:"rules,omitempty"`
	AfterSuccess []SuccessAction   `json:"after_success,omitempty" yaml:"after_success,omitempty"`

	BannerTimeout time.Duration `json:"banner_timeout,omitempty" yaml:"banner_timeout,omitempty"`
	BannerFade    time.Duration `json:"banner_fade,omitempty" yaml:"banner_fade,omitempty"`

	CSRFCookie string `json:"csrf_cookie,omitempty" yaml:"csrf_cookie,omitempty"`
	CSRFHeader string `json:"csrf_header,omitempty" yaml:"csrf_header,omitempty"`
}

// ErrInvalidConfig wraps configuration problems reported by Validate.
var ErrInvalidConfig = errors.New("formctl: invalid config")

// Validate reports missing ids and unknown rules.
func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.FormID) == "" {
		problems = append(problems, "form_id is required")
	}
	if strings.TrimSpace(c.SubmitButtonID) == "" {
		problems = append(problems, "submit_button_id is required")
	}
	for i, cond := range c.Conditionals {
		if cond.WrapperID == "" || cond.InputID == "" {
			problems = append(problems, fmt.Sprintf("conditionals[%d]: wrapper_id and input_id are required", i))
		}
		switch cond.Rule {
		case RuleAnyChecked, RuleNonEmpty, RuleEquals:
			if cond.Controller == "" {
				problems = append(problems, fmt.Sprintf("conditionals[%d]: rule %q needs a controller", i, cond.Rule))
			}
		case RuleExpr:
			if strings.TrimSpace(cond.Expr) == "" {
				problems = append(problems, fmt.Sprintf("conditionals[%d]: expr rule needs an expression", i))
			}
		default:
			problems = append(problems, fmt.Sprintf("conditionals[%d]: unknown rule %q", i, cond.Rule))
		}
	}
	for i, up := range c.Uploads {
		if up.InputID == "" || up.PreviewID == "" {
			problems = append(problems, fmt.Sprintf("uploads[%d]: input_id and preview_id are required", i))
		}
		switch up.Mode {
		case "", upload.ModeImage, upload.ModeDocument:
		default:
			problems = append(problems, fmt.Sprintf("uploads[%d]: unknown mode %q", i, up.Mode))
		}
		if up.MaxBytes < 0 {
			problems = append(problems, fmt.Sprintf("uploads[%d]: max_bytes must not be negative", i))
		}
	}
	for i, action := range c.AfterSuccess {
		if action.Kind != ActionRemoveSelectedOption {
			problems = append(problems, fmt.Sprintf("after_success[%d]: unknown kind %q", i, action.Kind))
		}
		if action.SelectID == "" {
			problems = append(problems, fmt.Sprintf("after_success[%d]: select_id is required", i))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func (c Config) withDefaults() Config {
	out := c
	if out.FieldIDPrefix == "" {
		out.FieldIDPrefix = DefaultFieldIDPrefix
	}
	if out.BooleanValue == "" {
		out.BooleanValue = DefaultBooleanValue
	}
	if out.BannerTimeout <= 0 {
		out.BannerTimeout = DefaultBannerTimeout
	}
	if out.BannerFade <= 0 {
		out.BannerFade = DefaultBannerFade
	}
	if out.CSRFCookie == "" {
		out.CSRFCookie = DefaultCSRFCookie
	}
	if out.CSRFHeader == "" {
		out.CSRFHeader = DefaultCSRFHeader
	}
	out.Conditionals = append([]Conditional(nil), c.Conditionals...)
	for i := range out.Conditionals {
		cond := &out.Conditionals[i]
		if cond.Sentinel == "" && (cond.Rule == RuleAnyChecked || cond.Rule == RuleEquals) {
			cond.Sentinel = DefaultSentinel
		}
	}
	out.Uploads = append([]Upload(nil), c.Uploads...)
	for i := range out.Uploads {
		if out.Uploads[i].Mode == "" {
			out.Uploads[i].Mode = upload.ModeImage
		}
		if out.Uploads[i].MaxBytes == 0 {
			out.Uploads[i].MaxBytes = upload.DefaultMaxBytes
		}
	}
	return out
}
