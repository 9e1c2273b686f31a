package event

// LocatorStrategy is the method used to identify a page element.
type LocatorStrategy string

const (
	LocatorCSS             LocatorStrategy = "CSS"
	LocatorXPath           LocatorStrategy = "XPATH"
	LocatorID              LocatorStrategy = "ID"
	LocatorName            LocatorStrategy = "NAME"
	LocatorTag             LocatorStrategy = "TAG"
	LocatorClass           LocatorStrategy = "CLASS"
	LocatorLinkText        LocatorStrategy = "LINK_TEXT"
	LocatorPartialLinkText LocatorStrategy = "PARTIAL_LINK_TEXT"
	LocatorAccessibilityID LocatorStrategy = "ACCESSIBILITY_ID"
)

// Rect is an element's bounding rectangle at capture time, in CSS pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ElementInfo is a snapshot of the target element taken when the interaction
// was captured. Strategy/Selector is the preferred locator; AltSelectors
// holds fallbacks keyed by strategy.
type ElementInfo struct {
	Strategy     LocatorStrategy            `json:"strategy"`
	Selector     string                     `json:"selector"`
	AltSelectors map[LocatorStrategy]string `json:"altSelectors,omitempty"`
	TagName      string                     `json:"tagName,omitempty"`
	Text         string                     `json:"text,omitempty"`
	Attributes   map[string]string          `json:"attributes,omitempty"`
	Rect         *Rect                      `json:"rect,omitempty"`
	Visible      bool                       `json:"visible,omitempty"`
	Enabled      bool                       `json:"enabled,omitempty"`
	Selected     bool                       `json:"selected,omitempty"`
}

// Locator returns the selector for the given strategy, falling back to the
// primary selector when no alternative is recorded.
func (ei *ElementInfo) Locator(strategy LocatorStrategy) (string, bool) {
	if ei == nil {
		return "", false
	}
	if ei.Strategy == strategy && ei.Selector != "" {
		return ei.Selector, true
	}
	if sel, ok := ei.AltSelectors[strategy]; ok && sel != "" {
		return sel, true
	}
	return "", false
}
