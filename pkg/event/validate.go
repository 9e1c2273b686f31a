package event

import "strings"

// IsValid reports whether the event is structurally and semantically complete
// enough to execute. Validity is local: a container can be valid while some
// of its children are not. Invalid events are skipped by code generation
// rather than failing the whole render.
func (e *Event) IsValid() bool {
	if e == nil || !e.Kind.Known() {
		return false
	}

	switch e.Kind {
	case KindClick:
		return e.Click != nil && e.hasLocator()

	case KindInput:
		return e.Input != nil && e.hasLocator()

	case KindNavigation:
		if e.Navigation == nil {
			return false
		}
		switch e.Navigation.Action {
		case "back", "forward", "refresh":
			return true
		default:
			return strings.TrimSpace(e.Navigation.ToURL) != ""
		}

	case KindAssertion:
		return e.Assertion != nil && e.Assertion.Type.Known()

	case KindCapture:
		if e.Capture == nil || strings.TrimSpace(e.Capture.TargetVariable) == "" {
			return false
		}
		switch e.Capture.Source {
		case CaptureElement:
			return e.hasLocator()
		case CaptureResponse, CaptureJavaScript, CaptureURL, CaptureCookie, CaptureStorage:
			return true
		default:
			return false
		}

	case KindCustomJS:
		return e.CustomJS != nil && strings.TrimSpace(e.CustomJS.Script) != ""

	case KindGroup:
		return e.Group != nil

	case KindLoop:
		if e.Loop == nil || strings.TrimSpace(e.Loop.IterationVariable) == "" {
			return false
		}
		switch e.Loop.Type {
		case LoopCount:
			return e.Loop.Count >= 0
		case LoopWhile, LoopUntil:
			return strings.TrimSpace(e.Loop.Condition) != ""
		case LoopForEach:
			return strings.TrimSpace(e.Loop.DataSourceID) != ""
		default:
			return false
		}

	case KindConditional:
		return e.Conditional != nil && strings.TrimSpace(e.Conditional.Condition) != ""

	case KindTryCatch:
		return e.TryCatch != nil &&
			len(e.TryCatch.Try) > 0 &&
			strings.TrimSpace(e.TryCatch.ErrorVariable) != ""
	}

	return false
}

// hasLocator reports whether the event carries a usable element locator.
func (e *Event) hasLocator() bool {
	return e.Element != nil && strings.TrimSpace(e.Element.Selector) != ""
}
