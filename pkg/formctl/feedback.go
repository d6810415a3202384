package formctl

import (
	"sort"
	"strings"

	"github.com/goliatone/go-formctl/pkg/dom"
	"github.com/goliatone/go-formctl/pkg/i18n"
	"github.com/goliatone/go-formctl/pkg/validation"
)

const (
	classInvalid  = "is-invalid"
	classFeedback = "invalid-feedback"
)

// clearDecorations drops every is-invalid marker and invalid-feedback
// element under form.
func (c *Controller) clearDecorations(form dom.Element) {
	for _, el := range form.FindAll(dom.ByClass(classInvalid)) {
		el.RemoveClass(classInvalid)
	}
	for _, el := range form.FindAll(dom.ByClass(classFeedback)) {
		el.Remove()
	}
}

// decorate marks each field in errs invalid and places its messages in the
// invalid-feedback element that follows it, then focuses the first invalid
// field in document order. Fields are rendered in order, or by name when
// order is empty.
func (c *Controller) decorate(form dom.Element, errs map[string][]string, order []string) {
	if len(order) == 0 {
		order = make([]string, 0, len(errs))
		for name := range errs {
			order = append(order, name)
		}
		sort.Strings(order)
	}
	var marked []dom.Element
	for _, name := range order {
		messages, ok := errs[name]
		if !ok {
			continue
		}
		el := c.fieldElement(form, name)
		if el == nil {
			continue
		}
		el.AddClass(classInvalid)
		marked = append(marked, el)

		if len(messages) == 0 {
			continue
		}
		fragment, err := c.markup.Feedback(messages)
		if err != nil {
			c.logger.Error("render field feedback", "field", name, "error", err)
			continue
		}
		if next := el.NextElement(); next != nil && next.HasClass(classFeedback) {
			next.Remove()
		}
		if _, err := el.InsertAfter(fragment); err != nil {
			c.logger.Error("insert field feedback", "field", name, "error", err)
		}
	}
	if len(marked) == 0 {
		return
	}

	first := firstInDocumentOrder(form, marked)
	c.doc.ScrollIntoView(first)
	c.doc.Focus(first)
}

func (c *Controller) fieldElement(form dom.Element, name string) dom.Element {
	if el := c.doc.ElementByID(c.cfg.FieldIDPrefix + name); el != nil && contains(form, el) {
		return el
	}
	return dom.First(form, dom.And(dom.Controls(), dom.ByName(name)))
}

func firstInDocumentOrder(form dom.Element, marked []dom.Element) dom.Element {
	set := make(map[dom.Element]struct{}, len(marked))
	for _, el := range marked {
		set[el] = struct{}{}
	}
	found := form.FindAll(func(el dom.Element) bool {
		_, ok := set[el]
		return ok
	})
	if len(found) > 0 {
		return found[0]
	}
	return marked[0]
}

// lookup exposes the form to the client checks. Controls inside hidden
// conditional wrappers do not exist as far as the checks are concerned.
func (c *Controller) lookup(form dom.Element) validation.Lookup {
	return formLookup{c: c, form: form, hidden: c.hiddenInputs()}
}

type formLookup struct {
	c      *Controller
	form   dom.Element
	hidden map[string]struct{}
}

func (l formLookup) element(field string) dom.Element {
	el := l.c.fieldElement(l.form, field)
	if el == nil {
		return nil
	}
	if _, hidden := l.hidden[el.ID()]; hidden {
		return nil
	}
	return el
}

func (l formLookup) Value(field string) (string, bool) {
	el := l.element(field)
	if el == nil {
		return "", false
	}
	if el.Tag() == "input" && el.Type() == "file" {
		files := el.Files()
		if len(files) == 0 {
			return "", true
		}
		return files[0].Name, true
	}
	if el.Tag() == "input" && (el.Type() == "checkbox" || el.Type() == "radio") {
		for _, box := range l.form.FindAll(dom.And(dom.ByTag("input"), dom.ByName(el.Name()))) {
			if box.Checked() {
				return box.Value(), true
			}
		}
		return "", true
	}
	return strings.TrimSpace(el.Value()), true
}

func (l formLookup) Checked(field string) bool {
	el := l.element(field)
	return el != nil && el.Checked()
}

func (c *Controller) checkMessage(check validation.Check, _ string) string {
	switch check {
	case validation.CheckRequired:
		return c.msg(i18n.MsgFieldRequired, nil)
	case validation.CheckEmail:
		return c.msg(i18n.MsgFieldEmail, nil)
	case validation.CheckPhone:
		return c.msg(i18n.MsgFieldPhone, nil)
	case validation.CheckURL:
		return c.msg(i18n.MsgFieldURL, nil)
	case validation.CheckChecked:
		return c.msg(i18n.MsgFieldChecked, nil)
	default:
		return validation.DefaultMessages(check, "")
	}
}
