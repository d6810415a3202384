// Package htmldom implements dom.Document over golang.org/x/net/html trees.
// All element operations go through the owning document's lock, so a
// document may be shared between the goroutine driving user events and the
// goroutines completing submissions or firing banner timers.
package htmldom

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/net/html"

	"github.com/goliatone/go-formctl/pkg/dom"
)

// Option configures a Document at parse time.
type Option func(*Document)

// WithURL records the address the page was loaded from. Relative form
// actions resolve against it.
func WithURL(url string) Option {
	return func(d *Document) {
		d.url = strings.TrimSpace(url)
	}
}

// WithCookies seeds the cookies visible to scripts on the page.
func WithCookies(cookies ...*http.Cookie) Option {
	return func(d *Document) {
		for _, cookie := range cookies {
			if cookie == nil || cookie.Name == "" {
				continue
			}
			d.cookies[cookie.Name] = cookie.Value
		}
	}
}

// Document is a parsed HTML page.
type Document struct {
	*dom.Dispatcher

	mu       sync.Mutex
	root     *html.Node
	url      string
	cookies  map[string]string
	elements map[*html.Node]*Element
	files    map[*html.Node][]dom.File
	// selects set to a value no option carries report no selection.
	unselected map[*html.Node]bool
	focused    *html.Node
	scrolled   *html.Node
}

var _ dom.Document = (*Document)(nil)

// Parse reads an HTML page.
func Parse(r io.Reader, options ...Option) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("htmldom: parse: %w", err)
	}
	doc := &Document{
		Dispatcher: dom.NewDispatcher(),
		root:       root,
		cookies:    make(map[string]string),
		elements:   make(map[*html.Node]*Element),
		files:      make(map[*html.Node][]dom.File),
		unselected: make(map[*html.Node]bool),
	}
	for _, opt := range options {
		if opt != nil {
			opt(doc)
		}
	}
	return doc, nil
}

// ParseString is Parse over a string.
func ParseString(markup string, options ...Option) (*Document, error) {
	return Parse(strings.NewReader(markup), options...)
}

// Render writes the current tree as HTML.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return html.Render(w, d.root)
}

// String renders the document, returning an empty string on failure.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// URL reports the page address.
func (d *Document) URL() string {
	return d.url
}

// Cookie returns a cookie value visible to the page.
func (d *Document) Cookie(name string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	value, ok := d.cookies[name]
	return value, ok
}

// SetCookie records or replaces a cookie.
func (d *Document) SetCookie(name, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cookies[name] = value
}

// ElementByID returns the first element carrying id in document order.
func (d *Document) ElementByID(id string) dom.Element {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	var found *html.Node
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && attr(n, "id") == id {
			found = n
			return false
		}
		return true
	})
	if found == nil {
		return nil
	}
	return d.wrap(found)
}

// Focus moves focus to el.
func (d *Document) Focus(el dom.Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.focused = d.nodeOf(el)
}

// Focused returns the focused element or nil.
func (d *Document) Focused() dom.Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.focused == nil || !d.attached(d.focused) {
		return nil
	}
	return d.wrap(d.focused)
}

// ScrollIntoView records el as the element last scrolled to.
func (d *Document) ScrollIntoView(el dom.Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scrolled = d.nodeOf(el)
}

// ScrolledTo returns the element last scrolled into view.
func (d *Document) ScrolledTo() dom.Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.scrolled == nil {
		return nil
	}
	return d.wrap(d.scrolled)
}

// Dispatch delivers ev through the embedded dispatcher. A nil context is
// replaced with context.Background.
func (d *Document) Dispatch(ctx context.Context, ev *dom.Event) bool {
	return d.Dispatcher.Dispatch(ctx, ev)
}

func (d *Document) wrap(n *html.Node) *Element {
	if n == nil {
		return nil
	}
	if el, ok := d.elements[n]; ok {
		return el
	}
	el := &Element{doc: d, node: n}
	d.elements[n] = el
	return el
}

func (d *Document) nodeOf(el dom.Element) *html.Node {
	typed, ok := el.(*Element)
	if !ok || typed == nil || typed.doc != d {
		return nil
	}
	return typed.node
}

func (d *Document) attached(n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == d.root {
			return true
		}
	}
	return false
}

// walk visits n and its descendants depth-first until fn returns false.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if !walk(child, fn) {
			return false
		}
	}
	return true
}
