// Package upload validates files picked in a form before they are attached to
// a submission: a size bound first, then an extension allow-list.
package upload

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// DefaultMaxBytes bounds attachments when a rule set does not specify a size.
const DefaultMaxBytes int64 = 5 * 1024 * 1024

// Mode selects the default allow-list.
type Mode string

const (
	// ModeImage accepts raster images only.
	ModeImage Mode = "image"
	// ModeDocument accepts images and PDF documents.
	ModeDocument Mode = "document"
)

var (
	imageExtensions    = []string{"jpg", "jpeg", "png"}
	documentExtensions = []string{"jpg", "jpeg", "png", "pdf"}
)

// ErrTooLarge is returned when a file exceeds the size limit.
var ErrTooLarge = errors.New("upload: file too large")

// ErrExtensionNotAllowed is returned when a file's extension is not in the
// allow-list.
var ErrExtensionNotAllowed = errors.New("upload: extension not allowed")

// File describes a picked file.
type File struct {
	Name string
	Size int64
	// Ext is lower-cased and taken from the substring after the final dot.
	Ext string
}

// NewFile derives the extension from name.
func NewFile(name string, size int64) File {
	return File{Name: name, Size: size, Ext: Ext(name)}
}

// Rules bounds accepted files.
type Rules struct {
	MaxBytes int64
	Allowed  []string
}

// RulesFor returns the rules for mode with maxBytes (DefaultMaxBytes when
// maxBytes <= 0). allowed overrides the mode's default allow-list when
// non-empty.
func RulesFor(mode Mode, maxBytes int64, allowed ...string) Rules {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	list := normalizeExtensions(allowed)
	if len(list) == 0 {
		switch mode {
		case ModeDocument:
			list = append([]string(nil), documentExtensions...)
		default:
			list = append([]string(nil), imageExtensions...)
		}
	}
	return Rules{MaxBytes: maxBytes, Allowed: list}
}

// Reason classifies a rejection.
type Reason string

const (
	ReasonTooLarge            Reason = "too_large"
	ReasonExtensionNotAllowed Reason = "extension_not_allowed"
)

// RejectError reports why a file was refused.
type RejectError struct {
	File   File
	Reason Reason
	Rules  Rules
}

func (e *RejectError) Error() string {
	switch e.Reason {
	case ReasonTooLarge:
		return fmt.Sprintf("upload: %s is %s, limit is %s", e.File.Name, FormatMB(e.File.Size), FormatMB(e.Rules.MaxBytes))
	default:
		return fmt.Sprintf("upload: %s has extension %q, allowed: %s", e.File.Name, e.File.Ext, strings.Join(e.Rules.Allowed, ", "))
	}
}

// Unwrap maps the reason onto the package sentinels.
func (e *RejectError) Unwrap() error {
	if e.Reason == ReasonTooLarge {
		return ErrTooLarge
	}
	return ErrExtensionNotAllowed
}

// Validate checks size first and extension second. A nil error means the file
// may be attached.
func (r Rules) Validate(file File) error {
	if file.Ext == "" && file.Name != "" {
		file.Ext = Ext(file.Name)
	}
	maxBytes := r.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if file.Size > maxBytes {
		return &RejectError{File: file, Reason: ReasonTooLarge, Rules: Rules{MaxBytes: maxBytes, Allowed: r.Allowed}}
	}
	if !r.Allows(file.Ext) {
		return &RejectError{File: file, Reason: ReasonExtensionNotAllowed, Rules: Rules{MaxBytes: maxBytes, Allowed: r.Allowed}}
	}
	return nil
}

// Allows reports whether ext (case-insensitive, with or without the dot) is in
// the allow-list.
func (r Rules) Allows(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if ext == "" {
		return false
	}
	for _, allowed := range r.Allowed {
		if strings.EqualFold(strings.TrimPrefix(allowed, "."), ext) {
			return true
		}
	}
	return false
}

// Ext returns the lower-cased substring after the final dot of name. A name
// without a dot yields the whole name, which no allow-list matches in practice.
func Ext(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if idx := strings.LastIndex(base, "."); idx >= 0 {
		return strings.ToLower(base[idx+1:])
	}
	return strings.ToLower(base)
}

// IsImage reports whether ext previews as an inline thumbnail.
func IsImage(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, candidate := range imageExtensions {
		if candidate == ext {
			return true
		}
	}
	return false
}

// FormatMB renders a byte size with two decimals, e.g. "1.50 MB".
func FormatMB(size int64) string {
	return fmt.Sprintf("%.2f MB", float64(size)/1024/1024)
}

func normalizeExtensions(values []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		ext := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(v), "."))
		if ext == "" {
			continue
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	return out
}
