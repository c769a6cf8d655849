package condition

import "fmt"

type andCond struct{ a, b Condition }

// And builds a short-circuiting, left-to-right conjunction.
func And(a, b Condition) Condition { return andCond{a, b} }

func (c andCond) Eval(ctx Context) bool { return c.a.Eval(ctx) && c.b.Eval(ctx) }
func (c andCond) String() string        { return fmt.Sprintf("(%s) & (%s)", c.a, c.b) }
func (c andCond) Equal(other Condition) bool {
	o, ok := other.(andCond)
	return ok && c.a.Equal(o.a) && c.b.Equal(o.b)
}

type orCond struct{ a, b Condition }

// Or builds a short-circuiting, left-to-right disjunction.
func Or(a, b Condition) Condition { return orCond{a, b} }

func (c orCond) Eval(ctx Context) bool { return c.a.Eval(ctx) || c.b.Eval(ctx) }
func (c orCond) String() string        { return fmt.Sprintf("(%s) | (%s)", c.a, c.b) }
func (c orCond) Equal(other Condition) bool {
	o, ok := other.(orCond)
	return ok && c.a.Equal(o.a) && c.b.Equal(o.b)
}

type notCond struct{ a Condition }

// Not negates a condition.
func Not(a Condition) Condition { return notCond{a} }

func (c notCond) Eval(ctx Context) bool { return !c.a.Eval(ctx) }
func (c notCond) String() string        { return fmt.Sprintf("~(%s)", c.a) }
func (c notCond) Equal(other Condition) bool {
	o, ok := other.(notCond)
	return ok && c.a.Equal(o.a)
}
