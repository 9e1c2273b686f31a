package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEqualsCaseSensitivity(t *testing.T) {
	a := &AssertionPayload{Type: AssertEquals, Expected: "foo", CaseSensitive: true}
	assert.Equal(t, AssertionFailed, a.Evaluate("Foo"))

	a = &AssertionPayload{Type: AssertEquals, Expected: "foo", CaseSensitive: false}
	assert.Equal(t, AssertionPassed, a.Evaluate("Foo"))
}

func TestNegationAppliedLast(t *testing.T) {
	a := &AssertionPayload{Type: AssertEquals, Expected: "foo", CaseSensitive: true, Negated: true}
	assert.Equal(t, AssertionPassed, a.Evaluate("Foo"), "negation inverts the final result")

	a = &AssertionPayload{Type: AssertEquals, Expected: "foo", CaseSensitive: false, Negated: true}
	assert.Equal(t, AssertionFailed, a.Evaluate("Foo"))
}

func TestStringComparisons(t *testing.T) {
	tests := []struct {
		typ      AssertionType
		expected string
		actual   string
		want     AssertionStatus
	}{
		{AssertContains, "world", "hello world", AssertionPassed},
		{AssertContains, "mars", "hello world", AssertionFailed},
		{AssertStartsWith, "hello", "hello world", AssertionPassed},
		{AssertStartsWith, "world", "hello world", AssertionFailed},
		{AssertEndsWith, "world", "hello world", AssertionPassed},
		{AssertEndsWith, "hello", "hello world", AssertionFailed},
	}
	for _, tt := range tests {
		a := &AssertionPayload{Type: tt.typ, Expected: tt.expected, CaseSensitive: true}
		assert.Equal(t, tt.want, a.Evaluate(tt.actual), "%s %q vs %q", tt.typ, tt.expected, tt.actual)
	}
}

func TestRegexMatch(t *testing.T) {
	a := &AssertionPayload{Type: AssertRegexMatch, Expected: `^\d{3}-\d{4}$`, CaseSensitive: true}
	assert.Equal(t, AssertionPassed, a.Evaluate("555-0199"))
	assert.Equal(t, AssertionFailed, a.Evaluate("phone"))

	// Case-insensitive matching
	a = &AssertionPayload{Type: AssertRegexMatch, Expected: "^ERROR", CaseSensitive: false}
	assert.Equal(t, AssertionPassed, a.Evaluate("error: boom"))

	// Invalid pattern is an evaluation error, not a failure
	a = &AssertionPayload{Type: AssertRegexMatch, Expected: "([", CaseSensitive: true}
	assert.Equal(t, AssertionError, a.Evaluate("anything"))
}

func TestNumericComparisons(t *testing.T) {
	tests := []struct {
		typ      AssertionType
		expected string
		actual   string
		want     AssertionStatus
	}{
		{AssertGT, "10", "11", AssertionPassed},
		{AssertGT, "10", "10", AssertionFailed},
		{AssertLT, "10", "9.5", AssertionPassed},
		{AssertGTE, "10", "10", AssertionPassed},
		{AssertLTE, "10", "10.01", AssertionFailed},
	}
	for _, tt := range tests {
		a := &AssertionPayload{Type: tt.typ, Expected: tt.expected}
		assert.Equal(t, tt.want, a.Evaluate(tt.actual), "%s %s vs %s", tt.typ, tt.expected, tt.actual)
	}
}

func TestNumericComparatorNonNumericInput(t *testing.T) {
	a := &AssertionPayload{Type: AssertGT, Expected: "10"}
	assert.Equal(t, AssertionError, a.Evaluate("fast"))

	// Negation never turns an evaluation error into a pass
	a = &AssertionPayload{Type: AssertGT, Expected: "10", Negated: true}
	assert.Equal(t, AssertionError, a.Evaluate("fast"))
}

func TestEqualsTolerance(t *testing.T) {
	tol := 0.05
	a := &AssertionPayload{Type: AssertEquals, Expected: "3.14", Tolerance: &tol}
	assert.Equal(t, AssertionPassed, a.Evaluate("3.1415"))
	assert.Equal(t, AssertionFailed, a.Evaluate("3.25"))

	// Tolerance set but non-numeric operands: falls back to string equality
	a = &AssertionPayload{Type: AssertEquals, Expected: "pi", Tolerance: &tol, CaseSensitive: true}
	assert.Equal(t, AssertionPassed, a.Evaluate("pi"))

	// Without the explicit tolerance field, numeric-looking strings compare as strings
	a = &AssertionPayload{Type: AssertEquals, Expected: "3.14", CaseSensitive: true}
	assert.Equal(t, AssertionFailed, a.Evaluate("3.140"))
}

func TestEvaluateIdempotent(t *testing.T) {
	a := &AssertionPayload{Type: AssertContains, Expected: "ok", CaseSensitive: true}
	first := a.Evaluate("status ok")
	second := a.Evaluate("status ok")
	assert.Equal(t, first, second)
	assert.Equal(t, "status ok", a.ActualValue)
}
