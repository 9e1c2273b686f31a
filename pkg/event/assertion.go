package event

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// AssertionType is the comparison applied by an assertion step.
type AssertionType string

const (
	AssertEquals     AssertionType = "EQUALS"
	AssertContains   AssertionType = "CONTAINS"
	AssertStartsWith AssertionType = "STARTS_WITH"
	AssertEndsWith   AssertionType = "ENDS_WITH"
	AssertRegexMatch AssertionType = "REGEX_MATCH"
	AssertGT         AssertionType = "GREATER_THAN"
	AssertLT         AssertionType = "LESS_THAN"
	AssertGTE        AssertionType = "GREATER_THAN_OR_EQUAL"
	AssertLTE        AssertionType = "LESS_THAN_OR_EQUAL"
)

// Known reports whether t is a supported assertion type.
func (t AssertionType) Known() bool {
	switch t {
	case AssertEquals, AssertContains, AssertStartsWith, AssertEndsWith,
		AssertRegexMatch, AssertGT, AssertLT, AssertGTE, AssertLTE:
		return true
	}
	return false
}

// AssertionStatus is the tri-state outcome of evaluating an assertion.
type AssertionStatus string

const (
	AssertionPending AssertionStatus = "PENDING"
	AssertionPassed  AssertionStatus = "PASSED"
	AssertionFailed  AssertionStatus = "FAILED"
	// AssertionError marks evaluation failures such as a non-numeric actual
	// value fed to a numeric comparator, as opposed to a comparison that ran
	// and came out false.
	AssertionError AssertionStatus = "ERROR"
)

// AssertionPayload carries the assertion configuration plus the two fields
// written back at evaluation time (Status, ActualValue).
type AssertionPayload struct {
	Type          AssertionType `json:"type"`
	Expected      string        `json:"expected"`
	CaseSensitive bool          `json:"caseSensitive,omitempty"`
	Negated       bool          `json:"negated,omitempty"`
	// Tolerance enables approximate numeric equality: |actual-expected| <= tolerance.
	// Opt-in via the explicit field; never inferred from the value shape.
	Tolerance *float64 `json:"tolerance,omitempty"`
	// Soft marks the assertion as non-fatal for an execution engine that
	// supports continuing past failures. This core records the flag only.
	Soft bool `json:"soft,omitempty"`

	Status      AssertionStatus `json:"status,omitempty"`
	ActualValue string          `json:"actualValue,omitempty"`
}

// Evaluate runs the comparison against actual, applies negation to the final
// boolean, and writes Status and ActualValue back onto the payload. The
// result is a pure function of the payload configuration and actual, so
// re-evaluating with identical inputs yields the identical status.
func (a *AssertionPayload) Evaluate(actual string) AssertionStatus {
	a.ActualValue = actual
	result, ok := a.compare(actual)
	if !ok {
		a.Status = AssertionError
		return a.Status
	}

	// Negation inverts the final outcome only, never sub-expressions.
	if a.Negated {
		result = !result
	}
	if result {
		a.Status = AssertionPassed
	} else {
		a.Status = AssertionFailed
	}
	return a.Status
}

// compare returns the base comparison result. ok is false when the inputs
// cannot be compared (numeric parse failure, bad regex).
func (a *AssertionPayload) compare(actual string) (result, ok bool) {
	switch a.Type {
	case AssertEquals:
		// The tolerance path is reachable from the general EQUALS branch as
		// well as from numeric data: with a tolerance set and both sides
		// numeric, compare numerically; otherwise fall back to strings.
		if a.Tolerance != nil {
			if av, ev, numOK := parsePair(actual, a.Expected); numOK {
				return math.Abs(av-ev) <= *a.Tolerance, true
			}
		}
		return stringFold(actual, a.CaseSensitive) == stringFold(a.Expected, a.CaseSensitive), true

	case AssertContains:
		return strings.Contains(stringFold(actual, a.CaseSensitive), stringFold(a.Expected, a.CaseSensitive)), true

	case AssertStartsWith:
		return strings.HasPrefix(stringFold(actual, a.CaseSensitive), stringFold(a.Expected, a.CaseSensitive)), true

	case AssertEndsWith:
		return strings.HasSuffix(stringFold(actual, a.CaseSensitive), stringFold(a.Expected, a.CaseSensitive)), true

	case AssertRegexMatch:
		pattern := a.Expected
		if !a.CaseSensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, false
		}
		return re.MatchString(actual), true

	case AssertGT, AssertLT, AssertGTE, AssertLTE:
		av, ev, numOK := parsePair(actual, a.Expected)
		if !numOK {
			return false, false
		}
		switch a.Type {
		case AssertGT:
			return av > ev, true
		case AssertLT:
			return av < ev, true
		case AssertGTE:
			return av >= ev, true
		default:
			return av <= ev, true
		}
	}

	return false, false
}

func stringFold(s string, caseSensitive bool) string {
	if caseSensitive {
		return s
	}
	return strings.ToLower(s)
}

// parsePair parses both sides as floats, trimming surrounding whitespace.
func parsePair(actual, expected string) (av, ev float64, ok bool) {
	av, errA := strconv.ParseFloat(strings.TrimSpace(actual), 64)
	ev, errE := strconv.ParseFloat(strings.TrimSpace(expected), 64)
	if errA != nil || errE != nil {
		return 0, 0, false
	}
	return av, ev, true
}
