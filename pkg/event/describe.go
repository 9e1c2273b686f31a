package event

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Describe returns a deterministic, human-readable one-line description of
// the event. The UI displays it, and code generation falls back to it when a
// step cannot be rendered as code.
func (e *Event) Describe() string {
	if e == nil {
		return "empty step"
	}
	if e.Label != "" {
		return e.Label
	}

	switch e.Kind {
	case KindClick:
		target := e.elementLabel()
		if e.Click != nil && e.Click.DoubleClick {
			return fmt.Sprintf("Double-click %s", target)
		}
		if e.Click != nil && e.Click.Button == "right" {
			return fmt.Sprintf("Right-click %s", target)
		}
		return fmt.Sprintf("Click %s", target)

	case KindInput:
		if e.Input != nil && e.Input.Masked {
			return fmt.Sprintf("Type ***** into %s", e.elementLabel())
		}
		value := ""
		if e.Input != nil {
			value = e.Input.Value
		}
		return fmt.Sprintf("Type %q into %s", value, e.elementLabel())

	case KindNavigation:
		if e.Navigation == nil {
			return "Navigate"
		}
		switch e.Navigation.Action {
		case "back":
			return "Navigate back"
		case "forward":
			return "Navigate forward"
		case "refresh":
			return "Refresh the page"
		default:
			return fmt.Sprintf("Navigate to %s", e.Navigation.ToURL)
		}

	case KindAssertion:
		if e.Assertion == nil {
			return "Assert"
		}
		verb := assertionVerb(e.Assertion.Type)
		if e.Assertion.Negated {
			verb = "does not " + verb
		}
		return fmt.Sprintf("Assert %s %s %q", e.elementLabel(), verb, e.Assertion.Expected)

	case KindCapture:
		if e.Capture == nil {
			return "Capture value"
		}
		return fmt.Sprintf("Capture %s into ${%s}", strings.ToLower(string(e.Capture.Source)), e.Capture.TargetVariable)

	case KindCustomJS:
		if e.CustomJS != nil && e.CustomJS.TargetVariable != "" {
			return fmt.Sprintf("Run script into ${%s}", e.CustomJS.TargetVariable)
		}
		return "Run custom script"

	case KindGroup:
		name := ""
		if e.Group != nil {
			name = e.Group.Name
		}
		if name == "" {
			name = "steps"
		}
		return fmt.Sprintf("Group: %s (%d steps)", name, len(flatten(e.Children())))

	case KindLoop:
		if e.Loop == nil {
			return "Loop"
		}
		switch e.Loop.Type {
		case LoopCount:
			return fmt.Sprintf("Repeat %d times as ${%s}", e.Loop.Count, e.Loop.IterationVariable)
		case LoopWhile:
			return fmt.Sprintf("While %s as ${%s}", e.Loop.Condition, e.Loop.IterationVariable)
		case LoopUntil:
			return fmt.Sprintf("Until %s as ${%s}", e.Loop.Condition, e.Loop.IterationVariable)
		case LoopForEach:
			return fmt.Sprintf("For each ${%s} in data source %s", e.Loop.IterationVariable, e.Loop.DataSourceID)
		default:
			return "Loop"
		}

	case KindConditional:
		if e.Conditional == nil {
			return "If"
		}
		return fmt.Sprintf("If %s", e.Conditional.Condition)

	case KindTryCatch:
		if e.TryCatch == nil {
			return "Try/catch"
		}
		return fmt.Sprintf("Try %d steps, catch as ${%s}", len(e.TryCatch.Try), e.TryCatch.ErrorVariable)
	}

	return fmt.Sprintf("Unknown step (%s)", string(e.Kind))
}

// elementLabel names the target element as specifically as the snapshot allows.
func (e *Event) elementLabel() string {
	ei := e.Element
	if ei == nil {
		return "element"
	}
	if ei.Text != "" {
		text := ei.Text
		if utf8.RuneCountInString(text) > 40 {
			text = string([]rune(text)[:40]) + "..."
		}
		return fmt.Sprintf("%q", text)
	}
	if ei.Selector != "" {
		return ei.Selector
	}
	if ei.TagName != "" {
		return "<" + ei.TagName + ">"
	}
	return "element"
}

func assertionVerb(t AssertionType) string {
	switch t {
	case AssertEquals:
		return "equals"
	case AssertContains:
		return "contains"
	case AssertStartsWith:
		return "starts with"
	case AssertEndsWith:
		return "ends with"
	case AssertRegexMatch:
		return "matches"
	case AssertGT:
		return "is greater than"
	case AssertLT:
		return "is less than"
	case AssertGTE:
		return "is at least"
	case AssertLTE:
		return "is at most"
	}
	return "compares to"
}

func flatten(branches [][]*Event) []*Event {
	var out []*Event
	for _, b := range branches {
		out = append(out, b...)
	}
	return out
}
