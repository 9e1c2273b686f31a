package event

import (
	"encoding/json"

	stenoerrors "github.com/stenoweb/steno/pkg/errors"
)

// eventAlias avoids recursing into Event's own UnmarshalJSON.
type eventAlias Event

// UnmarshalJSON decodes an event and enforces the closed variant set: an
// unknown kind or a kind whose payload is missing is rejected rather than
// silently producing a hollow event.
func (e *Event) UnmarshalJSON(data []byte) error {
	var alias eventAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	decoded := Event(alias)
	if !decoded.Kind.Known() {
		return stenoerrors.New(stenoerrors.ErrCodeEventKind, "unknown event kind").
			WithContext("kind", string(decoded.Kind))
	}
	if !decoded.payloadPresent() {
		return stenoerrors.New(stenoerrors.ErrCodeEnvelopeDecode, "event payload missing for kind").
			WithContext("kind", string(decoded.Kind)).
			WithContext("id", decoded.ID)
	}
	*e = decoded
	return nil
}

// payloadPresent checks that the payload matching Kind is set.
func (e *Event) payloadPresent() bool {
	switch e.Kind {
	case KindClick:
		return e.Click != nil
	case KindInput:
		return e.Input != nil
	case KindNavigation:
		return e.Navigation != nil
	case KindAssertion:
		return e.Assertion != nil
	case KindCapture:
		return e.Capture != nil
	case KindCustomJS:
		return e.CustomJS != nil
	case KindGroup:
		return e.Group != nil
	case KindLoop:
		return e.Loop != nil
	case KindConditional:
		return e.Conditional != nil
	case KindTryCatch:
		return e.TryCatch != nil
	}
	return false
}

// DecodeTree reconstructs an event tree from its wire payload shape.
func DecodeTree(data []byte) ([]*Event, error) {
	var events []*Event
	if err := json.Unmarshal(data, &events); err != nil {
		if _, ok := err.(*stenoerrors.Error); ok {
			return nil, err
		}
		return nil, stenoerrors.Wrap(err, stenoerrors.ErrCodeEnvelopeDecode, "failed to decode event tree")
	}
	return events, nil
}

// EncodeTree serializes an event tree to its wire payload shape.
func EncodeTree(events []*Event) ([]byte, error) {
	return json.Marshal(events)
}
