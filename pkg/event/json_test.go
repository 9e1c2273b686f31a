package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stenoerrors "github.com/stenoweb/steno/pkg/errors"
)

// sampleTree builds a tree exercising every container kind and a mix of leaves.
func sampleTree() []*Event {
	click := New(KindClick, "https://shop.example/cart")
	click.Click = &ClickPayload{Button: "left"}
	click.Element = &ElementInfo{
		Strategy: LocatorCSS,
		Selector: "#checkout",
		AltSelectors: map[LocatorStrategy]string{
			LocatorXPath: `//button[@id="checkout"]`,
		},
		TagName:    "button",
		Text:       "Checkout",
		Attributes: map[string]string{"class": "btn primary"},
		Rect:       &Rect{X: 10, Y: 20, Width: 120, Height: 36},
		Visible:    true,
		Enabled:    true,
	}

	input := New(KindInput, "https://shop.example/cart")
	input.Input = &InputPayload{Value: "2", Clear: true}
	input.Element = &ElementInfo{Strategy: LocatorName, Selector: "quantity"}

	assertion := New(KindAssertion, "https://shop.example/cart")
	assertion.Assertion = &AssertionPayload{Type: AssertEquals, Expected: "2", CaseSensitive: true}
	assertion.Element = &ElementInfo{Strategy: LocatorCSS, Selector: ".qty"}

	capture := New(KindCapture, "https://shop.example/cart")
	capture.Capture = &CapturePayload{Source: CaptureURL, TargetVariable: "cartUrl", Global: true}

	loop := New(KindLoop, "")
	loop.Loop = &LoopPayload{
		Type:              LoopCount,
		IterationVariable: "i",
		Count:             3,
		Children:          []*Event{click},
	}

	cond := New(KindConditional, "")
	cond.Conditional = &ConditionalPayload{
		Condition: "${cartUrl} contains 'cart'",
		Then:      []*Event{input},
		Else:      []*Event{capture},
	}

	try := New(KindTryCatch, "")
	js := New(KindCustomJS, "")
	js.CustomJS = &CustomJSPayload{Script: "return window.total;", TargetVariable: "total"}
	try.TryCatch = &TryCatchPayload{
		Try:           []*Event{assertion},
		Catch:         []*Event{js},
		ErrorVariable: "err",
	}

	group := New(KindGroup, "")
	group.Group = &GroupPayload{Name: "checkout flow", Children: []*Event{loop, cond}}

	return []*Event{group, try}
}

func TestTreeRoundTrip(t *testing.T) {
	original := sampleTree()

	data, err := EncodeTree(original)
	require.NoError(t, err)

	decoded, err := DecodeTree(data)
	require.NoError(t, err)

	assert.Equal(t, original, decoded, "reconstructed tree must be structurally and field-wise equal")
}

func TestDecodeUnknownKindRejected(t *testing.T) {
	data := []byte(`[{"id":"e1","kind":"HOVER","timestamp":1}]`)
	_, err := DecodeTree(data)
	require.Error(t, err)
	assert.True(t, stenoerrors.IsCode(err, stenoerrors.ErrCodeEventKind))
}

func TestDecodeMissingPayloadRejected(t *testing.T) {
	data := []byte(`[{"id":"e1","kind":"CLICK","timestamp":1}]`)
	_, err := DecodeTree(data)
	require.Error(t, err)
	assert.True(t, stenoerrors.IsCode(err, stenoerrors.ErrCodeEnvelopeDecode))
}

func TestDecodeNestedChildRejected(t *testing.T) {
	// Bad kind buried inside a container still fails the decode
	data := []byte(`[{"id":"g1","kind":"GROUP","timestamp":1,"group":{"children":[{"id":"e1","kind":"HOVER","timestamp":2}]}}]`)
	_, err := DecodeTree(data)
	require.Error(t, err)
}

func TestWalkDepthFirst(t *testing.T) {
	tree := sampleTree()

	var kinds []Kind
	Walk(tree, func(e *Event) bool {
		kinds = append(kinds, e.Kind)
		return true
	})

	want := []Kind{
		KindGroup,
		KindLoop, KindClick,
		KindConditional, KindInput, KindCapture,
		KindTryCatch, KindAssertion, KindCustomJS,
	}
	assert.Equal(t, want, kinds)
	assert.Equal(t, len(want), Count(tree))
}

func TestWalkEarlyStop(t *testing.T) {
	tree := sampleTree()
	visited := 0
	Walk(tree, func(e *Event) bool {
		visited++
		return visited < 3
	})
	assert.Equal(t, 3, visited)
}
