package dom

import "strings"

// Matcher selects elements in FindAll.
type Matcher func(Element) bool

// ByTag matches elements with the given tag name.
func ByTag(tag string) Matcher {
	tag = strings.ToLower(strings.TrimSpace(tag))
	return func(el Element) bool { return el.Tag() == tag }
}

// ByClass matches elements carrying class.
func ByClass(class string) Matcher {
	return func(el Element) bool { return el.HasClass(class) }
}

// ByName matches elements whose name attribute equals name.
func ByName(name string) Matcher {
	return func(el Element) bool { return el.Name() == name }
}

// ByType matches inputs of the given type.
func ByType(kind string) Matcher {
	kind = strings.ToLower(strings.TrimSpace(kind))
	return func(el Element) bool { return el.Tag() == "input" && el.Type() == kind }
}

// And matches when every matcher matches.
func And(matchers ...Matcher) Matcher {
	return func(el Element) bool {
		for _, m := range matchers {
			if m != nil && !m(el) {
				return false
			}
		}
		return true
	}
}

// Any matches when at least one matcher matches.
func Any(matchers ...Matcher) Matcher {
	return func(el Element) bool {
		for _, m := range matchers {
			if m != nil && m(el) {
				return true
			}
		}
		return false
	}
}

// Controls matches the elements a form submits: input, select, textarea.
func Controls() Matcher {
	return Any(ByTag("input"), ByTag("select"), ByTag("textarea"))
}

// First returns the first descendant of root matching m, or nil.
func First(root Element, m Matcher) Element {
	if root == nil {
		return nil
	}
	found := root.FindAll(m)
	if len(found) == 0 {
		return nil
	}
	return found[0]
}
