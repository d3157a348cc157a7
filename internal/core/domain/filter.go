package domain

// Condition is one clause of a payload Filter. Exactly one of Value, Any or
// Nested is set: Value is an equality match, Any is a membership (any-of)
// match and Nested embeds a whole sub-filter.
type Condition struct {
	Key    string
	Value  any
	Any    []string
	Nested *Filter
}

// Filter combines conditions with must (all) and should (at least one)
// semantics. The zero value matches everything.
type Filter struct {
	Must   []Condition
	Should []Condition
}

func (f Filter) IsEmpty() bool {
	return len(f.Must) == 0 && len(f.Should) == 0
}

func MatchValue(key string, value any) Condition {
	return Condition{Key: key, Value: value}
}

func MatchAny(key string, values ...string) Condition {
	return Condition{Key: key, Any: values}
}

func NestedFilter(f Filter) Condition {
	return Condition{Nested: &f}
}
