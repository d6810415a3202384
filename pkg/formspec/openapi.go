package formspec

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formctl/pkg/formctl"
	"github.com/goliatone/go-formctl/pkg/validation"
)

// Extension keys read by FromOpenAPI.
const (
	// ExtensionForm on an operation holds formctl.Config settings.
	ExtensionForm = "x-formctl"
	// ExtensionUpload on a property holds formctl.Upload settings.
	ExtensionUpload = "x-upload"
	// ExtensionConditional on a property holds formctl.Conditional settings.
	ExtensionConditional = "x-conditional"
)

const multipartMediaType = "multipart/form-data"

// Ids assumed when the operation does not name them.
const (
	DefaultSubmitButtonID   = "submit-btn"
	DefaultAlertContainerID = "alert-container"
)

// ErrOperationNotFound is returned when no operation carries the requested id.
var ErrOperationNotFound = errors.New("formspec: operation not found")

// FromOpenAPI derives a controller configuration from the multipart request
// body of the operation identified by operationID.
func FromOpenAPI(ctx context.Context, raw []byte, operationID string) (formctl.Config, error) {
	if err := ctx.Err(); err != nil {
		return formctl.Config{}, err
	}
	if len(raw) == 0 {
		return formctl.Config{}, errors.New("formspec: openapi document is empty")
	}

	loader := &openapi3.Loader{Context: ctx}
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return formctl.Config{}, fmt.Errorf("formspec: load openapi document: %w", err)
	}

	op := findOperation(spec, operationID)
	if op == nil {
		return formctl.Config{}, fmt.Errorf("%w: %q", ErrOperationNotFound, operationID)
	}

	var cfg formctl.Config
	if ext, ok := op.Extensions[ExtensionForm]; ok {
		if err := decodeExtension(ext, &cfg); err != nil {
			return formctl.Config{}, fmt.Errorf("formspec: operation %q %s: %w", operationID, ExtensionForm, err)
		}
	}
	if cfg.FormID == "" {
		cfg.FormID = operationID
	}
	if cfg.SubmitButtonID == "" {
		cfg.SubmitButtonID = DefaultSubmitButtonID
	}
	if cfg.AlertContainerID == "" {
		cfg.AlertContainerID = DefaultAlertContainerID
	}

	schema, err := multipartSchema(op)
	if err != nil {
		return formctl.Config{}, fmt.Errorf("formspec: operation %q: %w", operationID, err)
	}
	if err := applySchema(&cfg, schema); err != nil {
		return formctl.Config{}, fmt.Errorf("formspec: operation %q: %w", operationID, err)
	}
	if err := cfg.Validate(); err != nil {
		return formctl.Config{}, fmt.Errorf("formspec: operation %q: %w", operationID, err)
	}
	return cfg, nil
}

func findOperation(spec *openapi3.T, operationID string) *openapi3.Operation {
	if spec == nil || spec.Paths == nil {
		return nil
	}
	paths := make([]string, 0, spec.Paths.Len())
	for path := range spec.Paths.Map() {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		item := spec.Paths.Value(path)
		if item == nil {
			continue
		}
		for _, op := range item.Operations() {
			if op != nil && op.OperationID == operationID {
				return op
			}
		}
	}
	return nil
}

func multipartSchema(op *openapi3.Operation) (*openapi3.Schema, error) {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil, errors.New("no request body")
	}
	media := op.RequestBody.Value.Content.Get(multipartMediaType)
	if media == nil || media.Schema == nil || media.Schema.Value == nil {
		return nil, fmt.Errorf("request body has no %s schema", multipartMediaType)
	}
	return media.Schema.Value, nil
}

func applySchema(cfg *formctl.Config, schema *openapi3.Schema) error {
	prefix := cfg.FieldIDPrefix
	if prefix == "" {
		prefix = formctl.DefaultFieldIDPrefix
	}
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ref := schema.Properties[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		prop := ref.Value

		var checks []validation.Check
		switch {
		case prop.Type.Is(openapi3.TypeBoolean):
			cfg.Booleans = appendUnique(cfg.Booleans, name)
			if required[name] {
				checks = append(checks, validation.CheckChecked)
			}
		case prop.Type.Is(openapi3.TypeArray) && isEnumStrings(prop.Items):
			cfg.MultiValue = appendUnique(cfg.MultiValue, name)
		default:
			if required[name] {
				checks = append(checks, validation.CheckRequired)
			}
			if check, ok := formatCheck(prop.Format); ok {
				checks = append(checks, check)
			}
		}
		if len(checks) > 0 {
			cfg.Rules = append(cfg.Rules, validation.Rule{Field: name, Checks: checks})
		}

		ext, hasUpload := prop.Extensions[ExtensionUpload]
		if hasUpload || prop.Format == "binary" {
			up := formctl.Upload{InputID: prefix + name, PreviewID: name + "_preview"}
			if hasUpload {
				if err := decodeExtension(ext, &up); err != nil {
					return fmt.Errorf("property %q %s: %w", name, ExtensionUpload, err)
				}
			}
			cfg.Uploads = append(cfg.Uploads, up)
		}

		if ext, ok := prop.Extensions[ExtensionConditional]; ok {
			cond := formctl.Conditional{Name: name, WrapperID: name + "_wrapper", InputID: prefix + name}
			if err := decodeExtension(ext, &cond); err != nil {
				return fmt.Errorf("property %q %s: %w", name, ExtensionConditional, err)
			}
			cfg.Conditionals = append(cfg.Conditionals, cond)
		}
	}
	return nil
}

func formatCheck(format string) (validation.Check, bool) {
	switch strings.ToLower(format) {
	case "email", "idn-email":
		return validation.CheckEmail, true
	case "uri", "url", "iri":
		return validation.CheckURL, true
	case "phone", "tel":
		return validation.CheckPhone, true
	default:
		return "", false
	}
}

func isEnumStrings(items *openapi3.SchemaRef) bool {
	if items == nil || items.Value == nil || len(items.Value.Enum) == 0 {
		return false
	}
	for _, value := range items.Value.Enum {
		if _, ok := value.(string); !ok {
			return false
		}
	}
	return true
}

// decodeExtension copies an extension value onto target through YAML, so
// the yaml tags of the target type apply and fields already set on target
// survive unless the extension overrides them.
func decodeExtension(value any, target any) error {
	raw, err := yaml.Marshal(integral(value))
	if err != nil {
		return err
	}
	return yaml.Unmarshal(raw, target)
}

// integral turns whole float64 values from the JSON decoder back into
// integers so they land in integer fields.
func integral(value any) any {
	switch v := value.(type) {
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return int64(v)
		}
		return v
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = integral(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = integral(item)
		}
		return out
	default:
		return value
	}
}

func appendUnique(values []string, value string) []string {
	for _, existing := range values {
		if existing == value {
			return values
		}
	}
	return append(values, value)
}
