package match

// Result is the outcome of evaluating one message against one Spec.
// The zero value is NoMatch.
type Result struct {
	Matched bool

	// Captures holds regexp groups in order, or condition captures in
	// condition-name order.
	Captures []string

	// Named maps condition names (or named regexp groups) to captured values.
	Named map[string]string
}

// NoMatch is the negative result.
var NoMatch = Result{}

// Capture returns the i-th capture, or "" when out of range.
func (r Result) Capture(i int) string {
	if i < 0 || i >= len(r.Captures) {
		return ""
	}
	return r.Captures[i]
}

// Value returns the named capture, or "" when absent.
func (r Result) Value(name string) string {
	return r.Named[name]
}
