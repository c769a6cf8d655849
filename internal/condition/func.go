package condition

import "fmt"

// funcCondition wraps an arbitrary user predicate. Name exists solely
// for String()/Equal(): Go funcs carry no identity a scheduler can
// compare structurally, so two FuncCond values are considered equal
// only when given the same name.
type funcCondition struct {
	name string
	fn   func(ctx Context) bool
}

// FuncCond builds a condition from an arbitrary predicate over the
// evaluation Context. name is used for logging and structural
// equality; it has no effect on evaluation.
func FuncCond(name string, fn func(ctx Context) bool) funcCondition {
	return funcCondition{name: name, fn: fn}
}

func (c funcCondition) Eval(ctx Context) bool { return c.fn(ctx) }
func (c funcCondition) String() string        { return fmt.Sprintf("FuncCond(%s)", c.name) }
func (c funcCondition) Equal(other Condition) bool {
	o, ok := other.(funcCondition)
	return ok && o.name == c.name
}
