// Package visibility defines the contract for rules that decide whether a
// conditional form field is shown.
package visibility

// Evaluator determines whether a field should be visible based on a rule
// string and the current form values.
type Evaluator interface {
	Eval(fieldName, rule string, ctx Context) (bool, error)
}

// Context provides inputs to an Evaluator. Values holds the form's current
// values (a string per single-valued control, []string for checkbox groups);
// Extras carries caller-supplied flags such as the event edition.
type Context struct {
	Values map[string]any
	Extras map[string]any
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(fieldName, rule string, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(fieldName, rule string, ctx Context) (bool, error) {
	return fn(fieldName, rule, ctx)
}
