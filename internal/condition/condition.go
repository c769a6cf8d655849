package condition

// Condition is a boolean-valued expression over event-log
// projections, time, and live task state. Conditions are evaluated
// lazily on every tick; nothing is memoized across ticks.
type Condition interface {
	// Eval observes and returns the truth value for this tick.
	Eval(ctx Context) bool
	// Equal reports structural equality: same kind, same arguments,
	// same comparators, same period.
	Equal(other Condition) bool
	String() string
}

// constant is TRUE/FALSE.
type constant struct {
	value bool
	name  string
}

func (c constant) Eval(Context) bool { return c.value }
func (c constant) String() string    { return c.name }
func (c constant) Equal(other Condition) bool {
	o, ok := other.(constant)
	return ok && o.value == c.value
}

// True is the constant condition that always holds.
func True() Condition { return constant{value: true, name: "true"} }

// False is the constant condition that never holds. It is the
// default for a task's start_cond/end_cond.
func False() Condition { return constant{value: false, name: "false"} }
