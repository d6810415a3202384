// Package dom describes the slice of a browser document the form controller
// needs: element lookup, attribute and class manipulation, inline display
// toggling, fragment insertion, focus, and typed event dispatch. Concrete
// documents live in subpackages (see dom/htmldom).
package dom

import "context"

// Element is a single node of a Document. Implementations return the same
// Element value for the same underlying node so callers can compare elements
// with ==.
type Element interface {
	ID() string
	Tag() string
	Name() string
	// Type reports the lower-cased type attribute (inputs, buttons).
	Type() string

	// Value follows the browser's value semantics: the value attribute for
	// inputs, the text for textareas, the selected option for selects.
	Value() string
	SetValue(value string)
	Checked() bool
	SetChecked(checked bool)
	Disabled() bool
	SetDisabled(disabled bool)

	Attr(name string) (string, bool)
	SetAttr(name, value string)
	RemoveAttr(name string)

	HasClass(class string) bool
	AddClass(classes ...string)
	RemoveClass(classes ...string)

	// Display reports the inline style display value ("" when unset).
	Display() string
	SetDisplay(value string)

	Text() string
	SetText(text string)
	InnerHTML() string
	SetInnerHTML(markup string) error
	// InsertAfter parses markup and inserts the resulting nodes directly
	// after the element. It returns the first inserted element, if any.
	InsertAfter(markup string) (Element, error)

	NextElement() Element
	Parent() Element
	// FindAll returns descendants matching m in document order.
	FindAll(m Matcher) []Element
	Remove()

	// Files and SetFiles expose the selection of a file input.
	Files() []File
	SetFiles(files []File)
}

// Document is the page owning a form.
type Document interface {
	// ElementByID returns nil when no element carries the id.
	ElementByID(id string) Element
	// URL is the address the document was loaded from.
	URL() string
	Cookie(name string) (string, bool)

	Focus(el Element)
	Focused() Element
	ScrollIntoView(el Element)

	Bind(binding Binding)
	// Dispatch delivers ev to the handlers bound on its target and then on
	// each ancestor. It reports false when a handler prevented the default
	// action.
	Dispatch(ctx context.Context, ev *Event) bool
}

// Fire looks up the element with the supplied id and dispatches an event of
// kind on it. It returns false when the element does not exist.
func Fire(ctx context.Context, doc Document, id string, kind EventKind) bool {
	if doc == nil {
		return false
	}
	target := doc.ElementByID(id)
	if target == nil {
		return false
	}
	doc.Dispatch(ctx, &Event{Kind: kind, Target: target})
	return true
}

// FireOn dispatches an event of kind targeted at el.
func FireOn(ctx context.Context, doc Document, el Element, kind EventKind) bool {
	if doc == nil || el == nil {
		return false
	}
	return doc.Dispatch(ctx, &Event{Kind: kind, Target: el})
}
