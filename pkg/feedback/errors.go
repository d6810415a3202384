// Package feedback splits backend error payloads into messages that belong
// next to a form field and messages that belong in the form-wide banner.
package feedback

import (
	"sort"
	"strconv"
	"strings"
)

// Mapping separates field-level and form-level messages.
type Mapping struct {
	// Fields is keyed by the field name as known to the form.
	Fields map[string][]string
	// Order lists the keys of Fields in the order the form declares them when
	// the caller provides that order, otherwise alphabetically.
	Order []string
	// Form holds messages with no matching field.
	Form []string
}

// Known reports whether a field name has a control in the form.
type Known func(name string) bool

// MapErrors normalises a `{field: [messages]}` payload. Keys naming a known
// field (directly or through a JSON pointer / dotted path) become field
// errors; the rest, including `__all__` and `non_field_errors`, fall back to
// form errors so no message is lost. order, when supplied, ranks fields.
func MapErrors(known Known, payload map[string][]string, order ...string) Mapping {
	mapping := Mapping{}
	if len(payload) == 0 {
		return mapping
	}
	if known == nil {
		known = func(string) bool { return false }
	}

	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, rawKey := range keys {
		messages := normalizeMessages(payload[rawKey])
		if len(messages) == 0 {
			continue
		}
		name, formLevel := resolveField(rawKey, known)
		if formLevel {
			mapping.Form = append(mapping.Form, strings.Join(messages, ", "))
			continue
		}
		if mapping.Fields == nil {
			mapping.Fields = make(map[string][]string)
		}
		mapping.Fields[name] = append(mapping.Fields[name], messages...)
	}

	mapping.Form = normalizeMessages(mapping.Form)
	mapping.Order = orderFields(mapping.Fields, order)
	return mapping
}

func resolveField(raw string, known Known) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if isFormLevelKey(trimmed) {
		return "", true
	}
	if known(trimmed) {
		return trimmed, false
	}

	segments := stripNumericSegments(dropWrapperSegments(parsePathSegments(trimmed)))
	for end := len(segments); end > 0; end-- {
		for _, sep := range []string{".", "_"} {
			candidate := strings.Join(segments[:end], sep)
			if known(candidate) {
				return candidate, false
			}
		}
	}
	return "", true
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func orderFields(fields map[string][]string, order []string) []string {
	if len(fields) == 0 {
		return nil
	}
	rank := make(map[string]int, len(order))
	for i, name := range order {
		if _, ok := rank[name]; !ok {
			rank[name] = i
		}
	}
	out := make([]string, 0, len(fields))
	for name := range fields {
		out = append(out, name)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, iok := rank[out[i]]
		rj, jok := rank[out[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return out[i] < out[j]
		}
	})
	return out
}

func parsePathSegments(path string) []string {
	clean := strings.TrimSpace(path)
	for _, prefix := range []string{"#/", "$/", "$."} {
		clean = strings.TrimPrefix(clean, prefix)
	}
	clean = strings.TrimLeft(clean, "#/.$")

	replacer := strings.NewReplacer("[", ".", "]", "", "//", "/")
	clean = strings.Trim(replacer.Replace(clean), "./")
	if clean == "" {
		return nil
	}

	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}

func dropWrapperSegments(segments []string) []string {
	wrappers := map[string]struct{}{
		"body":    {},
		"request": {},
		"payload": {},
		"data":    {},
		"fields":  {},
	}
	out := segments
	for len(out) > 0 {
		if _, ok := wrappers[strings.ToLower(out[0])]; ok {
			out = out[1:]
			continue
		}
		break
	}
	return out
}

func stripNumericSegments(segments []string) []string {
	out := make([]string, 0, len(segments))
	for _, segment := range segments {
		if _, err := strconv.Atoi(segment); err == nil {
			continue
		}
		out = append(out, segment)
	}
	return out
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "__all__", "non_field_errors", "non-field-errors":
		return true
	default:
		return false
	}
}
