// Package payload builds the body of a form submission. Collection follows
// the browser's FormData rules and two corrections run before transport:
// checkbox groups become repeated entries, and consent checkboxes are either
// omitted or carry a canonical truthy value.
package payload

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/goliatone/go-formctl/pkg/dom"
)

// Entry is one name/value pair. File entries carry File and leave Value empty.
type Entry struct {
	Name  string
	Value string
	File  *dom.File
}

// Payload is an ordered multiset of entries.
type Payload struct {
	entries []Entry
}

// New returns a payload seeded with entries.
func New(entries ...Entry) *Payload {
	return &Payload{entries: append([]Entry(nil), entries...)}
}

// Append adds a string entry.
func (p *Payload) Append(name, value string) {
	p.entries = append(p.entries, Entry{Name: name, Value: value})
}

// AppendFile adds a file entry.
func (p *Payload) AppendFile(name string, file dom.File) {
	f := file
	p.entries = append(p.entries, Entry{Name: name, File: &f})
}

// Delete removes every entry called name.
func (p *Payload) Delete(name string) {
	kept := p.entries[:0]
	for _, entry := range p.entries {
		if entry.Name != name {
			kept = append(kept, entry)
		}
	}
	p.entries = kept
}

// Set replaces every entry called name with a single value, keeping the
// position of the first occurrence.
func (p *Payload) Set(name, value string) {
	idx := -1
	kept := p.entries[:0]
	for _, entry := range p.entries {
		if entry.Name == name {
			if idx < 0 {
				idx = len(kept)
				kept = append(kept, Entry{Name: name, Value: value})
			}
			continue
		}
		kept = append(kept, entry)
	}
	p.entries = kept
	if idx < 0 {
		p.Append(name, value)
	}
}

// Has reports whether any entry is called name.
func (p *Payload) Has(name string) bool {
	for _, entry := range p.entries {
		if entry.Name == name {
			return true
		}
	}
	return false
}

// Get returns the first string value called name.
func (p *Payload) Get(name string) (string, bool) {
	for _, entry := range p.entries {
		if entry.Name == name && entry.File == nil {
			return entry.Value, true
		}
	}
	return "", false
}

// Values returns every string value called name in order.
func (p *Payload) Values(name string) []string {
	var out []string
	for _, entry := range p.entries {
		if entry.Name == name && entry.File == nil {
			out = append(out, entry.Value)
		}
	}
	return out
}

// Entries returns a copy of the entries.
func (p *Payload) Entries() []Entry {
	return append([]Entry(nil), p.entries...)
}

// Len reports the number of entries.
func (p *Payload) Len() int {
	return len(p.entries)
}

// ApplyMultiValue replaces name with one entry per checked value, so a group
// is never sent as a stale single joined value.
func (p *Payload) ApplyMultiValue(name string, checked []string) {
	p.Delete(name)
	for _, value := range checked {
		p.Append(name, value)
	}
}

// ApplyBoolean drops name and, when checked, appends it with value.
func (p *Payload) ApplyBoolean(name string, checked bool, value string) {
	p.Delete(name)
	if checked {
		p.Append(name, value)
	}
}

// FromForm collects the successful controls under form: named, enabled,
// checkboxes and radios only when checked, file inputs only with a selection,
// buttons never.
func FromForm(form dom.Element) *Payload {
	p := New()
	if form == nil {
		return p
	}
	for _, control := range form.FindAll(dom.Controls()) {
		name := control.Name()
		if name == "" || control.Disabled() {
			continue
		}
		switch control.Tag() {
		case "input":
			switch control.Type() {
			case "submit", "button", "reset", "image":
				continue
			case "checkbox", "radio":
				if control.Checked() {
					p.Append(name, control.Value())
				}
			case "file":
				for _, file := range control.Files() {
					p.AppendFile(name, file)
				}
			default:
				p.Append(name, control.Value())
			}
		default:
			p.Append(name, control.Value())
		}
	}
	return p
}

// CheckedValues returns the values of the checked checkboxes named name under
// root, in document order.
func CheckedValues(root dom.Element, name string) []string {
	if root == nil {
		return nil
	}
	var out []string
	for _, box := range root.FindAll(dom.And(dom.ByType("checkbox"), dom.ByName(name))) {
		if box.Checked() {
			out = append(out, box.Value())
		}
	}
	return out
}

// Encode writes the payload as multipart/form-data and returns the content
// type carrying the boundary.
func (p *Payload) Encode(w io.Writer) (string, error) {
	mw := multipart.NewWriter(w)
	for _, entry := range p.entries {
		if entry.File == nil {
			if err := mw.WriteField(entry.Name, entry.Value); err != nil {
				return "", fmt.Errorf("payload: write field %s: %w", entry.Name, err)
			}
			continue
		}
		if err := writeFile(mw, entry.Name, *entry.File); err != nil {
			return "", err
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("payload: close multipart writer: %w", err)
	}
	return mw.FormDataContentType(), nil
}

func writeFile(mw *multipart.Writer, name string, file dom.File) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(name), escapeQuotes(file.Name)))
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("payload: create part %s: %w", name, err)
	}
	if file.Open == nil {
		return nil
	}
	rc, err := file.Open()
	if err != nil {
		return fmt.Errorf("payload: open %s: %w", file.Name, err)
	}
	defer rc.Close()
	if _, err := io.Copy(part, rc); err != nil {
		return fmt.Errorf("payload: copy %s: %w", file.Name, err)
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
