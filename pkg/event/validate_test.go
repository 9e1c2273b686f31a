package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func clickEvent() *Event {
	e := New(KindClick, "https://example.com")
	e.Click = &ClickPayload{}
	e.Element = &ElementInfo{Strategy: LocatorCSS, Selector: "#submit"}
	return e
}

func TestClickValidity(t *testing.T) {
	e := clickEvent()
	assert.True(t, e.IsValid())

	e.Element = nil
	assert.False(t, e.IsValid())

	e = clickEvent()
	e.Element.Selector = "  "
	assert.False(t, e.IsValid())
}

func TestLoopValidity(t *testing.T) {
	base := func() *Event {
		e := New(KindLoop, "")
		e.Loop = &LoopPayload{Type: LoopCount, IterationVariable: "i", Count: 3}
		return e
	}

	assert.True(t, base().IsValid())

	e := base()
	e.Loop.Count = -1
	assert.False(t, e.IsValid(), "COUNT with negative count is invalid")

	e = base()
	e.Loop.Count = 0
	assert.True(t, e.IsValid(), "zero-count loop is structurally valid")

	e = base()
	e.Loop.Type = LoopWhile
	e.Loop.Condition = ""
	assert.False(t, e.IsValid(), "WHILE without condition is invalid")

	e = base()
	e.Loop.Type = LoopUntil
	e.Loop.Condition = "${done} == true"
	assert.True(t, e.IsValid())

	e = base()
	e.Loop.Type = LoopForEach
	e.Loop.DataSourceID = ""
	assert.False(t, e.IsValid(), "FOR_EACH without data source is invalid")

	e = base()
	e.Loop.Type = LoopForEach
	e.Loop.DataSourceID = "users.csv"
	assert.True(t, e.IsValid())

	e = base()
	e.Loop.IterationVariable = ""
	assert.False(t, e.IsValid(), "empty iteration variable is always invalid")

	e = base()
	e.Loop.Type = "BROKEN"
	assert.False(t, e.IsValid())
}

func TestTryCatchValidity(t *testing.T) {
	e := New(KindTryCatch, "")
	e.TryCatch = &TryCatchPayload{
		Try:           []*Event{clickEvent()},
		ErrorVariable: "err",
	}
	assert.True(t, e.IsValid())

	e.TryCatch.Try = nil
	assert.False(t, e.IsValid(), "empty try branch is invalid")

	e.TryCatch.Try = []*Event{clickEvent()}
	e.TryCatch.ErrorVariable = ""
	assert.False(t, e.IsValid(), "missing error variable is invalid")
}

func TestNavigationValidity(t *testing.T) {
	e := New(KindNavigation, "https://example.com")
	e.Navigation = &NavigationPayload{ToURL: "https://example.com/next"}
	assert.True(t, e.IsValid())

	e.Navigation.ToURL = ""
	assert.False(t, e.IsValid())

	e.Navigation.Action = "back"
	assert.True(t, e.IsValid(), "history actions need no target URL")
}

func TestCaptureValidity(t *testing.T) {
	e := New(KindCapture, "")
	e.Capture = &CapturePayload{Source: CaptureURL, TargetVariable: "currentUrl"}
	assert.True(t, e.IsValid())

	e.Capture.TargetVariable = ""
	assert.False(t, e.IsValid())

	e.Capture.TargetVariable = "text"
	e.Capture.Source = CaptureElement
	assert.False(t, e.IsValid(), "ELEMENT capture needs a locator")

	e.Element = &ElementInfo{Strategy: LocatorCSS, Selector: ".price"}
	assert.True(t, e.IsValid())

	e.Capture.Source = "CLIPBOARD"
	assert.False(t, e.IsValid(), "unknown capture source is invalid")
}

func TestConditionalAndCustomJSValidity(t *testing.T) {
	cond := New(KindConditional, "")
	cond.Conditional = &ConditionalPayload{Condition: "${count} > 0"}
	assert.True(t, cond.IsValid())
	cond.Conditional.Condition = " "
	assert.False(t, cond.IsValid())

	js := New(KindCustomJS, "")
	js.CustomJS = &CustomJSPayload{Script: "return document.title;"}
	assert.True(t, js.IsValid())
	js.CustomJS.Script = ""
	assert.False(t, js.IsValid())
}

func TestUnknownKindInvalid(t *testing.T) {
	e := &Event{ID: "x", Kind: "TELEPORT"}
	assert.False(t, e.IsValid())
	assert.False(t, (*Event)(nil).IsValid())
}
