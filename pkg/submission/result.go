// Package submission sends a form payload to the backend and classifies the
// reply into exactly one Result variant.
package submission

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrTransport marks failures where the request did not complete with a
// usable response.
var ErrTransport = errors.New("submission: transport failure")

// Kind names a Result variant.
type Kind string

const (
	KindSuccess           Kind = "success"
	KindValidationFailure Kind = "validation_failure"
	KindTransportFailure  Kind = "transport_failure"
	KindAdvisory          Kind = "advisory"
	KindUnexpected        Kind = "unexpected"
)

// Result is the outcome of one submission attempt. The concrete types below
// are the only implementations.
type Result interface {
	Kind() Kind
	isResult()
}

// Success carries the server's confirmation text (possibly empty).
type Success struct {
	Message string
}

// ValidationFailure maps field names to error messages. Form-wide errors use
// keys that match no field (for example "__all__").
type ValidationFailure struct {
	FieldErrors map[string][]string
}

// TransportFailure reports a request that failed to complete.
type TransportFailure struct {
	Message string
	Err     error
}

// Advisory is a reply with a message but neither success nor errors.
type Advisory struct {
	Message string
}

// Unexpected is a reply with none of the recognised keys.
type Unexpected struct {
	Status int
}

func (Success) Kind() Kind           { return KindSuccess }
func (ValidationFailure) Kind() Kind { return KindValidationFailure }
func (TransportFailure) Kind() Kind  { return KindTransportFailure }
func (Advisory) Kind() Kind          { return KindAdvisory }
func (Unexpected) Kind() Kind        { return KindUnexpected }

func (Success) isResult()           {}
func (ValidationFailure) isResult() {}
func (TransportFailure) isResult()  {}
func (Advisory) isResult()          {}
func (Unexpected) isResult()        {}

// Error satisfies error so transport failures can flow through error returns.
func (f TransportFailure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", ErrTransport, f.Err)
	}
	if f.Message != "" {
		return fmt.Sprintf("%s: %s", ErrTransport, f.Message)
	}
	return ErrTransport.Error()
}

// Unwrap exposes ErrTransport and the cause to errors.Is.
func (f TransportFailure) Unwrap() []error {
	if f.Err != nil {
		return []error{ErrTransport, f.Err}
	}
	return []error{ErrTransport}
}

// Decode classifies a reply body. Each recognised key is read on its own so
// an odd type in one key does not hide the others. A body that is not a JSON
// object is an empty object when the status is 2xx and a transport failure
// otherwise.
func Decode(status int, body []byte) Result {
	var reply map[string]json.RawMessage
	if err := json.Unmarshal(body, &reply); err != nil || reply == nil {
		if err == nil {
			err = errors.New("reply is not an object")
		}
		if status < http.StatusOK || status >= http.StatusMultipleChoices {
			return TransportFailure{
				Message: fmt.Sprintf("unexpected status %d", status),
				Err:     fmt.Errorf("decode reply: %w", err),
			}
		}
		return Unexpected{Status: status}
	}

	message := stringValue(reply["message"])
	if truthy(reply["success"]) {
		return Success{Message: message}
	}
	if errs, ok := decodeErrors(reply["errors"]); ok {
		return ValidationFailure{FieldErrors: errs}
	}
	if strings.TrimSpace(message) != "" {
		return Advisory{Message: message}
	}
	return Unexpected{Status: status}
}

// truthy follows loose boolean semantics: false, null, 0 and "" are false,
// every other present value is true.
func truthy(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

func stringValue(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// decodeErrors accepts `{field: [msg...]}` and the `{field: "msg"}` shorthand
// some views emit.
func decodeErrors(raw json.RawMessage) (map[string][]string, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, false
	}
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, false
	}
	out := make(map[string][]string, len(generic))
	for field, value := range generic {
		var list []string
		if err := json.Unmarshal(value, &list); err == nil {
			out[field] = list
			continue
		}
		var single string
		if err := json.Unmarshal(value, &single); err == nil {
			out[field] = []string{single}
			continue
		}
		var detailed []struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(value, &detailed); err == nil {
			for _, d := range detailed {
				out[field] = append(out[field], d.Message)
			}
		}
	}
	return out, true
}
