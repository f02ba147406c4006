package match

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Condition is a semantic match rule. Set fields combine with AND. Text
// rules are case-insensitive.
//
// After and Before narrow the text to the segment following (or preceding)
// their keyword; Matches and Range then apply to that segment. The captured
// value is the most specific one produced: the Range number, then the
// Matches group, then the After/Before segment, then the matched keyword.
type Condition struct {
	Is       string `yaml:"is"`
	Starts   string `yaml:"starts"`
	Ends     string `yaml:"ends"`
	Contains string `yaml:"contains"`
	Excludes string `yaml:"excludes"`
	After    string `yaml:"after"`
	Before   string `yaml:"before"`
	Matches  string `yaml:"matches"`

	// Range constrains the first number found in the segment, e.g. "1-3".
	Range string `yaml:"range"`
}

var (
	numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	rangePattern  = regexp.MustCompile(`^\s*(-?\d+(?:\.\d+)?)\s*-\s*(-?\d+(?:\.\d+)?)\s*$`)
)

type compiledCondition struct {
	is, starts, ends, contains, excludes *regexp.Regexp
	after, before, matches               *regexp.Regexp
	hasRange                             bool
	lo, hi                               float64
}

func (c Condition) isEmpty() bool {
	return c == Condition{}
}

func foldLiteral(prefix, literal, suffix string) *regexp.Regexp {
	if literal == "" {
		return nil
	}
	return regexp.MustCompile("(?i)" + prefix + regexp.QuoteMeta(literal) + suffix)
}

// foldWord is foldLiteral bounded by \b on each side that starts or ends
// with a word character.
func foldWord(literal string) *regexp.Regexp {
	if literal == "" {
		return nil
	}
	prefix, suffix := "", ""
	if isWordByte(literal[0]) {
		prefix = `\b`
	}
	if isWordByte(literal[len(literal)-1]) {
		suffix = `\b`
	}
	return foldLiteral(prefix, literal, suffix)
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

func (c Condition) compile() (compiledCondition, error) {
	if c.isEmpty() {
		return compiledCondition{}, fmt.Errorf("%w: empty condition", ErrInvalidSpec)
	}

	cc := compiledCondition{
		is:       foldLiteral(`^[\s\p{P}]*`, c.Is, `[\s\p{P}]*$`),
		starts:   foldLiteral(`^\s*`, c.Starts, ``),
		ends:     foldLiteral(``, c.Ends, `[\s\p{P}]*$`),
		contains: foldWord(c.Contains),
		excludes: foldWord(c.Excludes),
		after:    foldLiteral(``, c.After, ``),
		before:   foldLiteral(``, c.Before, ``),
	}

	if c.Matches != "" {
		re, err := regexp.Compile(c.Matches)
		if err != nil {
			return compiledCondition{}, fmt.Errorf("%w: %w", ErrInvalidSpec, err)
		}
		cc.matches = re
	}

	if c.Range != "" {
		m := rangePattern.FindStringSubmatch(c.Range)
		if m == nil {
			return compiledCondition{}, fmt.Errorf("%w: range %q must look like \"1-3\"", ErrInvalidSpec, c.Range)
		}
		lo, _ := strconv.ParseFloat(m[1], 64)
		hi, _ := strconv.ParseFloat(m[2], 64)
		if lo > hi {
			return compiledCondition{}, fmt.Errorf("%w: range %q is reversed", ErrInvalidSpec, c.Range)
		}
		cc.hasRange, cc.lo, cc.hi = true, lo, hi
	}

	return cc, nil
}

func trimSegment(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
}

// eval returns the captured value and whether the condition holds.
func (cc compiledCondition) eval(text string) (string, bool) {
	var captured string

	for _, re := range []*regexp.Regexp{cc.is, cc.starts, cc.ends, cc.contains} {
		if re == nil {
			continue
		}
		loc := re.FindStringIndex(text)
		if loc == nil {
			return "", false
		}
		captured = trimSegment(text[loc[0]:loc[1]])
	}

	if cc.excludes != nil && cc.excludes.MatchString(text) {
		return "", false
	}

	segment := text
	narrowed := false
	if cc.after != nil {
		loc := cc.after.FindStringIndex(segment)
		if loc == nil {
			return "", false
		}
		segment = segment[loc[1]:]
		narrowed = true
	}
	if cc.before != nil {
		loc := cc.before.FindStringIndex(segment)
		if loc == nil {
			return "", false
		}
		segment = segment[:loc[0]]
		narrowed = true
	}
	if narrowed {
		segment = trimSegment(segment)
		if segment == "" {
			return "", false
		}
		captured = segment
	}

	if cc.matches != nil {
		groups := cc.matches.FindStringSubmatch(segment)
		if groups == nil {
			return "", false
		}
		captured = groups[0]
		if len(groups) > 1 {
			captured = groups[1]
		}
		segment = captured
	}

	if cc.hasRange {
		token := numberPattern.FindString(segment)
		if token == "" {
			return "", false
		}
		n, err := strconv.ParseFloat(token, 64)
		if err != nil || n < cc.lo || n > cc.hi {
			return "", false
		}
		captured = token
	}

	return captured, true
}
