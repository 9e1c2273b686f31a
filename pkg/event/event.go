// Package event defines the intermediate representation of a recording: a
// tree of typed interaction events captured from a live page. Leaf kinds
// describe single interactions; container kinds own ordered child lists and
// form the tree structure. Containers never reference their parent, so the
// tree is acyclic by construction.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Kind discriminates the closed set of event variants.
type Kind string

const (
	// Leaf kinds
	KindClick      Kind = "CLICK"
	KindInput      Kind = "INPUT"
	KindNavigation Kind = "NAVIGATION"
	KindAssertion  Kind = "ASSERTION"
	KindCapture    Kind = "CAPTURE"
	KindCustomJS   Kind = "CUSTOM_JS"

	// Container kinds
	KindGroup       Kind = "GROUP"
	KindLoop        Kind = "LOOP"
	KindConditional Kind = "CONDITIONAL"
	KindTryCatch    Kind = "TRY_CATCH"
)

// Known reports whether k is part of the closed variant set.
func (k Kind) Known() bool {
	switch k {
	case KindClick, KindInput, KindNavigation, KindAssertion, KindCapture, KindCustomJS,
		KindGroup, KindLoop, KindConditional, KindTryCatch:
		return true
	}
	return false
}

// Container reports whether k owns nested child event lists.
func (k Kind) Container() bool {
	switch k {
	case KindGroup, KindLoop, KindConditional, KindTryCatch:
		return true
	}
	return false
}

// Event is a single recorded interaction. Exactly one payload pointer is set,
// matching Kind. Events are append-only: once recorded they are not mutated,
// with the sole exception of an Assertion's runtime evaluation result.
type Event struct {
	ID          string `json:"id"`
	Kind        Kind   `json:"kind"`
	TimestampMS int64  `json:"timestamp"`
	URL         string `json:"url,omitempty"`
	Disabled    bool   `json:"disabled,omitempty"`
	Label       string `json:"label,omitempty"`

	Element *ElementInfo `json:"element,omitempty"`

	Click       *ClickPayload       `json:"click,omitempty"`
	Input       *InputPayload       `json:"input,omitempty"`
	Navigation  *NavigationPayload  `json:"navigation,omitempty"`
	Assertion   *AssertionPayload   `json:"assertion,omitempty"`
	Capture     *CapturePayload     `json:"capture,omitempty"`
	CustomJS    *CustomJSPayload    `json:"customJs,omitempty"`
	Group       *GroupPayload       `json:"group,omitempty"`
	Loop        *LoopPayload        `json:"loop,omitempty"`
	Conditional *ConditionalPayload `json:"conditional,omitempty"`
	TryCatch    *TryCatchPayload    `json:"tryCatch,omitempty"`
}

// ClickPayload carries click-specific fields.
type ClickPayload struct {
	Button      string `json:"button,omitempty"` // left, right, middle
	DoubleClick bool   `json:"doubleClick,omitempty"`
}

// InputPayload carries text-entry fields.
type InputPayload struct {
	Value  string `json:"value"`
	Masked bool   `json:"masked,omitempty"` // value was redacted at capture time
	Clear  bool   `json:"clear,omitempty"`  // clear the field before typing
}

// NavigationPayload describes a page transition.
type NavigationPayload struct {
	ToURL  string `json:"toUrl"`
	Action string `json:"action,omitempty"` // navigate, back, forward, refresh
}

// CustomJSPayload holds a user-provided script step.
type CustomJSPayload struct {
	Script         string `json:"script"`
	TargetVariable string `json:"targetVariable,omitempty"`
}

// CaptureSource identifies where a captured value comes from.
type CaptureSource string

const (
	CaptureElement    CaptureSource = "ELEMENT"
	CaptureResponse   CaptureSource = "RESPONSE"
	CaptureJavaScript CaptureSource = "JAVASCRIPT"
	CaptureURL        CaptureSource = "URL"
	CaptureCookie     CaptureSource = "COOKIE"
	CaptureStorage    CaptureSource = "STORAGE"
)

// CapturePayload stores a value from the page into a variable.
type CapturePayload struct {
	Source         CaptureSource `json:"source"`
	Method         string        `json:"method,omitempty"` // e.g. text, attribute:href, json-path
	TargetVariable string        `json:"targetVariable"`
	Global         bool          `json:"global,omitempty"`
}

// GroupPayload is a named sequence of child events.
type GroupPayload struct {
	Name     string   `json:"name,omitempty"`
	Children []*Event `json:"children"`
}

// LoopType selects the loop's iteration mode.
type LoopType string

const (
	LoopCount   LoopType = "COUNT"
	LoopWhile   LoopType = "WHILE"
	LoopUntil   LoopType = "UNTIL"
	LoopForEach LoopType = "FOR_EACH"
)

// LoopPayload repeats its children per the configured mode.
type LoopPayload struct {
	Type              LoopType `json:"type"`
	IterationVariable string   `json:"iterationVariable"`
	Count             int      `json:"count,omitempty"`
	Condition         string   `json:"condition,omitempty"`
	DataSourceID      string   `json:"dataSourceId,omitempty"`
	Children          []*Event `json:"children"`
}

// ConditionalPayload branches on a boolean expression.
type ConditionalPayload struct {
	Condition string   `json:"condition"`
	Then      []*Event `json:"thenEvents"`
	Else      []*Event `json:"elseEvents,omitempty"`
}

// TryCatchPayload guards its try branch, routing failures to catch.
type TryCatchPayload struct {
	Try           []*Event `json:"tryEvents"`
	Catch         []*Event `json:"catchEvents,omitempty"`
	Finally       []*Event `json:"finallyEvents,omitempty"`
	ErrorVariable string   `json:"errorVariable"`
}

// New creates an event of the given kind with a fresh ID and the current
// capture timestamp. The caller fills in the kind payload.
func New(kind Kind, url string) *Event {
	return &Event{
		ID:          uuid.NewString(),
		Kind:        kind,
		TimestampMS: time.Now().UnixMilli(),
		URL:         url,
	}
}

// Children returns the ordered child lists owned by a container event, in
// branch order. Leaf events return nil.
func (e *Event) Children() [][]*Event {
	switch e.Kind {
	case KindGroup:
		if e.Group != nil {
			return [][]*Event{e.Group.Children}
		}
	case KindLoop:
		if e.Loop != nil {
			return [][]*Event{e.Loop.Children}
		}
	case KindConditional:
		if e.Conditional != nil {
			return [][]*Event{e.Conditional.Then, e.Conditional.Else}
		}
	case KindTryCatch:
		if e.TryCatch != nil {
			return [][]*Event{e.TryCatch.Try, e.TryCatch.Catch, e.TryCatch.Finally}
		}
	}
	return nil
}

// Walk visits e and every descendant depth-first, in branch and list order.
// The visitor returning false stops the walk.
func Walk(events []*Event, visit func(*Event) bool) bool {
	for _, e := range events {
		if e == nil {
			continue
		}
		if !visit(e) {
			return false
		}
		for _, branch := range e.Children() {
			if !Walk(branch, visit) {
				return false
			}
		}
	}
	return true
}

// Count returns the total number of events in the tree, containers included.
func Count(events []*Event) int {
	n := 0
	Walk(events, func(*Event) bool {
		n++
		return true
	})
	return n
}
