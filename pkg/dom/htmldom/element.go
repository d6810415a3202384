package htmldom

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/goliatone/go-formctl/pkg/dom"
)

// Element wraps an element node of a Document.
type Element struct {
	doc  *Document
	node *html.Node
}

var _ dom.Element = (*Element)(nil)

func (e *Element) lock() func() {
	e.doc.mu.Lock()
	return e.doc.mu.Unlock
}

func (e *Element) ID() string {
	defer e.lock()()
	return attr(e.node, "id")
}

func (e *Element) Tag() string {
	return strings.ToLower(e.node.Data)
}

func (e *Element) Name() string {
	defer e.lock()()
	return attr(e.node, "name")
}

func (e *Element) Type() string {
	defer e.lock()()
	return inputType(e.node)
}

func (e *Element) Value() string {
	defer e.lock()()
	return e.doc.value(e.node)
}

func (e *Element) SetValue(value string) {
	defer e.lock()()
	switch e.Tag() {
	case "textarea":
		setText(e.node, value)
	case "select":
		if selectOption(e.node, value) {
			delete(e.doc.unselected, e.node)
		} else {
			e.doc.unselected[e.node] = true
		}
	case "input":
		if inputType(e.node) == "file" {
			if value == "" {
				delete(e.doc.files, e.node)
			}
			return
		}
		setAttr(e.node, "value", value)
	default:
		setAttr(e.node, "value", value)
	}
}

func (e *Element) Checked() bool {
	defer e.lock()()
	return hasAttr(e.node, "checked")
}

func (e *Element) SetChecked(checked bool) {
	defer e.lock()()
	toggleAttr(e.node, "checked", checked)
}

func (e *Element) Disabled() bool {
	defer e.lock()()
	return hasAttr(e.node, "disabled")
}

func (e *Element) SetDisabled(disabled bool) {
	defer e.lock()()
	toggleAttr(e.node, "disabled", disabled)
}

func (e *Element) Attr(name string) (string, bool) {
	defer e.lock()()
	for _, a := range e.node.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func (e *Element) SetAttr(name, value string) {
	defer e.lock()()
	setAttr(e.node, name, value)
}

func (e *Element) RemoveAttr(name string) {
	defer e.lock()()
	removeAttr(e.node, name)
}

func (e *Element) HasClass(class string) bool {
	defer e.lock()()
	for _, existing := range classes(e.node) {
		if existing == class {
			return true
		}
	}
	return false
}

func (e *Element) AddClass(add ...string) {
	defer e.lock()()
	current := classes(e.node)
	for _, class := range add {
		class = strings.TrimSpace(class)
		if class == "" || contains(current, class) {
			continue
		}
		current = append(current, class)
	}
	setAttr(e.node, "class", strings.Join(current, " "))
}

func (e *Element) RemoveClass(remove ...string) {
	defer e.lock()()
	current := classes(e.node)
	kept := current[:0]
	for _, class := range current {
		if !contains(remove, class) {
			kept = append(kept, class)
		}
	}
	if len(kept) == 0 {
		removeAttr(e.node, "class")
		return
	}
	setAttr(e.node, "class", strings.Join(kept, " "))
}

func (e *Element) Display() string {
	defer e.lock()()
	return styleProperty(attr(e.node, "style"), "display")
}

func (e *Element) SetDisplay(value string) {
	defer e.lock()()
	style := setStyleProperty(attr(e.node, "style"), "display", value)
	if style == "" {
		removeAttr(e.node, "style")
		return
	}
	setAttr(e.node, "style", style)
}

func (e *Element) Text() string {
	defer e.lock()()
	return textContent(e.node)
}

func (e *Element) SetText(text string) {
	defer e.lock()()
	setText(e.node, text)
}

func (e *Element) InnerHTML() string {
	defer e.lock()()
	var buf bytes.Buffer
	for child := e.node.FirstChild; child != nil; child = child.NextSibling {
		if err := html.Render(&buf, child); err != nil {
			return ""
		}
	}
	return buf.String()
}

func (e *Element) SetInnerHTML(markup string) error {
	defer e.lock()()
	nodes, err := html.ParseFragment(strings.NewReader(markup), e.node)
	if err != nil {
		return fmt.Errorf("htmldom: parse fragment: %w", err)
	}
	removeChildren(e.node)
	for _, n := range nodes {
		e.node.AppendChild(n)
	}
	return nil
}

func (e *Element) InsertAfter(markup string) (dom.Element, error) {
	defer e.lock()()
	parent := e.node.Parent
	if parent == nil {
		return nil, fmt.Errorf("htmldom: insert after detached <%s>", e.node.Data)
	}
	context := parent
	if parent.Type != html.ElementNode {
		context = e.node
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		return nil, fmt.Errorf("htmldom: parse fragment: %w", err)
	}

	next := e.node.NextSibling
	var first *html.Node
	for _, n := range nodes {
		parent.InsertBefore(n, next)
		if first == nil && n.Type == html.ElementNode {
			first = n
		}
	}
	if first == nil {
		return nil, nil
	}
	return e.doc.wrap(first), nil
}

func (e *Element) NextElement() dom.Element {
	defer e.lock()()
	for sib := e.node.NextSibling; sib != nil; sib = sib.NextSibling {
		if sib.Type == html.ElementNode {
			return e.doc.wrap(sib)
		}
	}
	return nil
}

func (e *Element) Parent() dom.Element {
	defer e.lock()()
	parent := e.node.Parent
	if parent == nil || parent.Type != html.ElementNode {
		return nil
	}
	return e.doc.wrap(parent)
}

func (e *Element) FindAll(m dom.Matcher) []dom.Element {
	unlock := e.lock()
	var candidates []*Element
	for child := e.node.FirstChild; child != nil; child = child.NextSibling {
		walk(child, func(n *html.Node) bool {
			if n.Type == html.ElementNode {
				candidates = append(candidates, e.doc.wrap(n))
			}
			return true
		})
	}
	unlock()

	var out []dom.Element
	for _, candidate := range candidates {
		if m == nil || m(candidate) {
			out = append(out, candidate)
		}
	}
	return out
}

func (e *Element) Remove() {
	defer e.lock()()
	if e.node.Parent != nil {
		e.node.Parent.RemoveChild(e.node)
	}
}

func (e *Element) Files() []dom.File {
	defer e.lock()()
	return append([]dom.File(nil), e.doc.files[e.node]...)
}

func (e *Element) SetFiles(files []dom.File) {
	defer e.lock()()
	if len(files) == 0 {
		delete(e.doc.files, e.node)
		return
	}
	e.doc.files[e.node] = append([]dom.File(nil), files...)
}

// value must be called with the document lock held.
func (d *Document) value(n *html.Node) string {
	switch strings.ToLower(n.Data) {
	case "textarea":
		return textContent(n)
	case "select":
		option := selectedOption(n, d.unselected[n])
		if option == nil {
			return ""
		}
		return optionValue(option)
	case "input":
		switch inputType(n) {
		case "file":
			if files := d.files[n]; len(files) > 0 {
				return files[0].Name
			}
			return ""
		case "checkbox", "radio":
			if v, ok := lookupAttr(n, "value"); ok {
				return v
			}
			return "on"
		}
		return attr(n, "value")
	default:
		return attr(n, "value")
	}
}

func inputType(n *html.Node) string {
	kind := strings.ToLower(strings.TrimSpace(attr(n, "type")))
	if kind == "" && strings.EqualFold(n.Data, "input") {
		return "text"
	}
	return kind
}

func attr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasAttr(n *html.Node, key string) bool {
	_, ok := lookupAttr(n, key)
	return ok
}

func setAttr(n *html.Node, key, value string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
}

func removeAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}

func toggleAttr(n *html.Node, key string, on bool) {
	if on {
		if !hasAttr(n, key) {
			setAttr(n, key, "")
		}
		return
	}
	removeAttr(n, key)
}

func classes(n *html.Node) []string {
	return strings.Fields(attr(n, "class"))
}

func contains(values []string, needle string) bool {
	for _, v := range values {
		if v == needle {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	walk(n, func(cur *html.Node) bool {
		if cur.Type == html.TextNode {
			b.WriteString(cur.Data)
		}
		return true
	})
	return b.String()
}

func setText(n *html.Node, text string) {
	removeChildren(n)
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}

func removeChildren(n *html.Node) {
	for child := n.FirstChild; child != nil; {
		next := child.NextSibling
		n.RemoveChild(child)
		child = next
	}
}

func options(selectNode *html.Node) []*html.Node {
	var out []*html.Node
	walk(selectNode, func(n *html.Node) bool {
		if n.Type == html.ElementNode && strings.EqualFold(n.Data, "option") {
			out = append(out, n)
		}
		return true
	})
	return out
}

// selectedOption returns the option a select reports as its value. Without a
// selected attribute a single select falls back to its first option unless it
// was explicitly cleared.
func selectedOption(selectNode *html.Node, cleared bool) *html.Node {
	opts := options(selectNode)
	for _, option := range opts {
		if hasAttr(option, "selected") {
			return option
		}
	}
	if cleared || len(opts) == 0 || hasAttr(selectNode, "multiple") {
		return nil
	}
	return opts[0]
}

func optionValue(option *html.Node) string {
	if v, ok := lookupAttr(option, "value"); ok {
		return v
	}
	return strings.TrimSpace(textContent(option))
}

// selectOption marks the first option carrying value and reports whether one
// matched.
func selectOption(selectNode *html.Node, value string) bool {
	matched := false
	for _, option := range options(selectNode) {
		if !matched && optionValue(option) == value {
			toggleAttr(option, "selected", true)
			matched = true
			continue
		}
		removeAttr(option, "selected")
	}
	return matched
}

func styleProperty(style, property string) string {
	for _, decl := range strings.Split(style, ";") {
		key, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(key), property) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func setStyleProperty(style, property, value string) string {
	var decls []string
	replaced := false
	for _, decl := range strings.Split(style, ";") {
		key, _, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(key), property) {
			if value != "" && !replaced {
				decls = append(decls, property+": "+value)
			}
			replaced = true
			continue
		}
		decls = append(decls, strings.TrimSpace(decl))
	}
	if !replaced && value != "" {
		decls = append(decls, property+": "+value)
	}
	if len(decls) == 0 {
		return ""
	}
	return strings.Join(decls, "; ")
}
