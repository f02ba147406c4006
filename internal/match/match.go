// Package match evaluates inbound messages against branch match
// specifications. A Spec is a tagged variant over four shapes: a regular
// expression, a keyword set, a map of named semantic conditions and a custom
// predicate. Evaluation is a pure function of the message and the Spec.
package match

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/flemzord/sbot/pkg/message"
)

// Kind discriminates the variant held by a Spec.
type Kind int

const (
	// KindInvalid is the zero Kind; a zero Spec never matches and fails validation.
	KindInvalid Kind = iota
	KindRegexp
	KindContains
	KindConditions
	KindPredicate
)

func (k Kind) String() string {
	switch k {
	case KindRegexp:
		return "regexp"
	case KindContains:
		return "contains"
	case KindConditions:
		return "conditions"
	case KindPredicate:
		return "predicate"
	default:
		return "invalid"
	}
}

// PredicateFunc is a custom match condition.
type PredicateFunc func(msg message.Message) bool

// Spec is an immutable match specification.
type Spec struct {
	kind       Kind
	re         *regexp.Regexp
	keywords   []string
	keywordRes []*regexp.Regexp
	conditions []namedCondition
	predicate  PredicateFunc
}

type namedCondition struct {
	name string
	cond compiledCondition
}

// Regexp compiles expr into a regexp Spec.
func Regexp(expr string) (Spec, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Spec{}, fmt.Errorf("%w: %w", ErrInvalidSpec, err)
	}
	return Spec{kind: KindRegexp, re: re}, nil
}

// MustRegexp is like Regexp but panics on an invalid expression.
// Intended for package-level registration of literal patterns.
func MustRegexp(expr string) Spec {
	s, err := Regexp(expr)
	if err != nil {
		panic(err)
	}
	return s
}

// FromRegexp wraps an already compiled expression.
func FromRegexp(re *regexp.Regexp) Spec {
	return Spec{kind: KindRegexp, re: re}
}

// Contains matches when the text contains any of the keywords, ignoring case.
// Keywords match whole words: "hi" matches "hi there" but not "behind".
func Contains(keywords ...string) Spec {
	lowered := make([]string, 0, len(keywords))
	res := make([]*regexp.Regexp, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(k); k != "" {
			lowered = append(lowered, k)
			res = append(res, foldWord(k))
		}
	}
	return Spec{kind: KindContains, keywords: lowered, keywordRes: res}
}

// Conditions matches when every named condition succeeds.
func Conditions(conds map[string]Condition) (Spec, error) {
	if len(conds) == 0 {
		return Spec{}, fmt.Errorf("%w: no conditions", ErrInvalidSpec)
	}
	names := make([]string, 0, len(conds))
	for name := range conds {
		names = append(names, name)
	}
	slices.Sort(names)

	compiled := make([]namedCondition, 0, len(names))
	for _, name := range names {
		c, err := conds[name].compile()
		if err != nil {
			return Spec{}, fmt.Errorf("condition %q: %w", name, err)
		}
		compiled = append(compiled, namedCondition{name: name, cond: c})
	}
	return Spec{kind: KindConditions, conditions: compiled}, nil
}

// MustConditions is like Conditions but panics on an invalid condition.
func MustConditions(conds map[string]Condition) Spec {
	s, err := Conditions(conds)
	if err != nil {
		panic(err)
	}
	return s
}

// When is shorthand for a single unnamed condition. Its capture is stored
// under the empty name.
func When(c Condition) (Spec, error) {
	return Conditions(map[string]Condition{"": c})
}

// MustWhen is like When but panics on an invalid condition.
func MustWhen(c Condition) Spec {
	return MustConditions(map[string]Condition{"": c})
}

// Predicate wraps a custom function.
func Predicate(fn PredicateFunc) Spec {
	return Spec{kind: KindPredicate, predicate: fn}
}

// Kind returns the variant held by the Spec.
func (s Spec) Kind() Kind { return s.kind }

// String describes the Spec for logs.
func (s Spec) String() string {
	switch s.kind {
	case KindRegexp:
		return "/" + s.re.String() + "/"
	case KindContains:
		return "contains " + strings.Join(s.keywords, "|")
	case KindConditions:
		names := make([]string, len(s.conditions))
		for i, nc := range s.conditions {
			names[i] = nc.name
		}
		return "conditions [" + strings.Join(names, ",") + "]"
	case KindPredicate:
		return "predicate"
	default:
		return "invalid"
	}
}

// Validate reports whether the Spec can be evaluated.
func (s Spec) Validate() error {
	switch s.kind {
	case KindRegexp:
		if s.re == nil {
			return fmt.Errorf("%w: nil regexp", ErrInvalidSpec)
		}
	case KindContains:
		if len(s.keywords) == 0 {
			return fmt.Errorf("%w: contains needs at least one keyword", ErrInvalidSpec)
		}
	case KindConditions:
		if len(s.conditions) == 0 {
			return fmt.Errorf("%w: no conditions", ErrInvalidSpec)
		}
	case KindPredicate:
		if s.predicate == nil {
			return fmt.Errorf("%w: nil predicate", ErrInvalidSpec)
		}
	default:
		return fmt.Errorf("%w: unknown kind", ErrInvalidSpec)
	}
	return nil
}

// Evaluate matches msg against the Spec.
func (s Spec) Evaluate(msg message.Message) Result {
	switch s.kind {
	case KindRegexp:
		return s.evalRegexp(msg.Text)
	case KindContains:
		return s.evalContains(msg.Text)
	case KindConditions:
		return s.evalConditions(msg.Text)
	case KindPredicate:
		if s.predicate != nil && s.predicate(msg) {
			return Result{Matched: true}
		}
	}
	return NoMatch
}

func (s Spec) evalRegexp(text string) Result {
	groups := s.re.FindStringSubmatch(text)
	if groups == nil {
		return NoMatch
	}
	r := Result{Matched: true, Captures: groups[1:]}
	for i, name := range s.re.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		if r.Named == nil {
			r.Named = make(map[string]string)
		}
		r.Named[name] = groups[i]
	}
	return r
}

func (s Spec) evalContains(text string) Result {
	for _, re := range s.keywordRes {
		if re.MatchString(text) {
			return Result{Matched: true}
		}
	}
	return NoMatch
}

func (s Spec) evalConditions(text string) Result {
	r := Result{Matched: true, Named: make(map[string]string, len(s.conditions))}
	for _, nc := range s.conditions {
		value, ok := nc.cond.eval(text)
		if !ok {
			return NoMatch
		}
		r.Named[nc.name] = value
		r.Captures = append(r.Captures, value)
	}
	return r
}
