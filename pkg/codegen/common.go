package codegen

import (
	"strconv"

	"github.com/stenoweb/steno/pkg/event"
)

// strategyOf returns the element's locator strategy and selector. Unknown
// strategies default to XPath, treating the recorded selector as an XPath
// expression.
func strategyOf(ei *event.ElementInfo) (event.LocatorStrategy, string) {
	if ei == nil {
		return event.LocatorXPath, ""
	}
	switch ei.Strategy {
	case event.LocatorCSS, event.LocatorXPath, event.LocatorID, event.LocatorName,
		event.LocatorTag, event.LocatorClass, event.LocatorLinkText,
		event.LocatorPartialLinkText, event.LocatorAccessibilityID:
		return ei.Strategy, ei.Selector
	}
	return event.LocatorXPath, ei.Selector
}

// Tmp returns a deterministic temporary variable name, unique within one
// generation run. The first use of a prefix keeps the bare name; later uses
// get a numeric suffix.
func (c *Context) Tmp(prefix string) string {
	if c.g.tmpCounts == nil {
		c.g.tmpCounts = make(map[string]int)
	}
	c.g.tmpCounts[prefix]++
	n := c.g.tmpCounts[prefix]
	if n == 1 {
		return prefix
	}
	return prefix + strconv.Itoa(n)
}
