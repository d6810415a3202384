// Package validation runs the client-side checks a registration form applies
// before anything is sent to the server.
package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Check names one client-side check.
type Check string

const (
	// CheckRequired fails when the trimmed value is empty.
	CheckRequired Check = "required"
	// CheckEmail fails when a non-empty value is not shaped like an address.
	CheckEmail Check = "email"
	// CheckPhone fails when a non-empty value is not 7-15 digits, spaces, or +-() characters.
	CheckPhone Check = "phone"
	// CheckURL fails when a non-empty value does not parse as an absolute URL.
	CheckURL Check = "url"
	// CheckChecked fails when a consent checkbox is not ticked.
	CheckChecked Check = "checked"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[\d\s+\-()]{7,15}$`)
)

// Rule binds checks to a field name. Checks run in order and stop at the
// first failure so a field reports at most one message.
type Rule struct {
	Field  string  `json:"field" yaml:"field"`
	Checks []Check `json:"checks" yaml:"checks"`
}

// Lookup exposes the current state of the form to the checks.
type Lookup interface {
	// Value returns the field's value and whether the field exists.
	Value(field string) (string, bool)
	// Checked reports whether a checkbox field is ticked.
	Checked(field string) bool
}

// MapLookup is a Lookup over plain maps.
type MapLookup struct {
	Values  map[string]string
	Toggles map[string]bool
}

// Value implements Lookup.
func (m MapLookup) Value(field string) (string, bool) {
	v, ok := m.Values[field]
	if !ok {
		_, ok = m.Toggles[field]
	}
	return v, ok
}

// Checked implements Lookup.
func (m MapLookup) Checked(field string) bool {
	return m.Toggles[field]
}

// Messages resolves the text shown for a failed check.
type Messages func(check Check, field string) string

// DefaultMessages returns the built-in English messages.
func DefaultMessages(check Check, _ string) string {
	switch check {
	case CheckRequired:
		return "This field is required."
	case CheckEmail:
		return "Please enter a valid email address."
	case CheckPhone:
		return "Enter a valid phone number."
	case CheckURL:
		return "Please enter a valid website URL (e.g., https://example.com)"
	case CheckChecked:
		return "Please confirm to continue."
	default:
		return "Invalid value."
	}
}

// Option configures Validate.
type Option func(*settings)

type settings struct {
	messages Messages
}

// WithMessages overrides the message resolver.
func WithMessages(messages Messages) Option {
	return func(s *settings) {
		if messages != nil {
			s.messages = messages
		}
	}
}

// ParseCheck converts a configuration string into a Check.
func ParseCheck(raw string) (Check, error) {
	check := Check(strings.ToLower(strings.TrimSpace(raw)))
	switch check {
	case CheckRequired, CheckEmail, CheckPhone, CheckURL, CheckChecked:
		return check, nil
	default:
		return "", fmt.Errorf("validation: unknown check %q", raw)
	}
}

// Validate runs rules against lookup and returns failures keyed by field.
// Fields missing from the form are skipped. A nil map means every check
// passed.
func Validate(lookup Lookup, rules []Rule, options ...Option) map[string][]string {
	cfg := settings{messages: DefaultMessages}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	var out map[string][]string
	for _, rule := range rules {
		field := strings.TrimSpace(rule.Field)
		if field == "" {
			continue
		}
		value, ok := lookup.Value(field)
		if !ok {
			continue
		}
		for _, check := range rule.Checks {
			if passes(check, strings.TrimSpace(value), lookup.Checked(field)) {
				continue
			}
			if out == nil {
				out = make(map[string][]string)
			}
			out[field] = append(out[field], cfg.messages(check, field))
			break
		}
	}
	return out
}

func passes(check Check, value string, checked bool) bool {
	switch check {
	case CheckRequired:
		return value != ""
	case CheckEmail:
		return value == "" || emailPattern.MatchString(value)
	case CheckPhone:
		return value == "" || phonePattern.MatchString(value)
	case CheckURL:
		return value == "" || isAbsoluteURL(value)
	case CheckChecked:
		return checked
	default:
		return true
	}
}

func isAbsoluteURL(value string) bool {
	parsed, err := url.Parse(value)
	if err != nil {
		return false
	}
	return parsed.Scheme != "" && (parsed.Host != "" || parsed.Opaque != "")
}
