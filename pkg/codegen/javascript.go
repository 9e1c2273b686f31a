package codegen

import (
	"fmt"

	"github.com/stenoweb/steno/pkg/event"
)

func init() {
	registerFrame(LangJavaScript, FWPlaywright, frame{
		imports: []string{
			"const { test, expect } = require('@playwright/test');",
		},
		setup: []string{
			"test('recorded flow', async ({ page }) => {",
		},
		teardown: []string{
			"});",
		},
		stepDepth: 1,
	})

	registerFrame(LangJavaScript, FWCypress, frame{
		setup: []string{
			"describe('recorded flow', () => {",
			"  it('replays the recording', () => {",
		},
		teardown: []string{
			"  });",
			"});",
		},
		stepDepth: 2,
	})

	register(LangJavaScript, FWPlaywright, event.KindClick, playwrightClick)
	register(LangJavaScript, FWPlaywright, event.KindInput, playwrightInput)
	register(LangJavaScript, FWPlaywright, event.KindNavigation, playwrightNavigation)
	register(LangJavaScript, FWPlaywright, event.KindAssertion, playwrightAssertion)
	register(LangJavaScript, FWPlaywright, event.KindCapture, playwrightCapture)
	register(LangJavaScript, FWPlaywright, event.KindCustomJS, playwrightCustomJS)

	register(LangJavaScript, FWCypress, event.KindClick, cypressClick)
	register(LangJavaScript, FWCypress, event.KindInput, cypressInput)
	register(LangJavaScript, FWCypress, event.KindNavigation, cypressNavigation)
	register(LangJavaScript, FWCypress, event.KindAssertion, cypressAssertion)
	register(LangJavaScript, FWCypress, event.KindCapture, cypressCapture)
	register(LangJavaScript, FWCypress, event.KindCustomJS, cypressCustomJS)

	registerContainers(LangJavaScript, event.KindGroup, cStyleGroup)
	registerContainers(LangJavaScript, event.KindLoop, jsLoop)
	registerContainers(LangJavaScript, event.KindConditional, cStyleConditional)
	registerContainers(LangJavaScript, event.KindTryCatch, jsTryCatch)
}

// playwrightLocator renders a page.locator call. Accessibility IDs use the
// dedicated getByLabel lookup rather than a selector string.
func playwrightLocator(ei *event.ElementInfo) string {
	strategy, selector := strategyOf(ei)
	sel := escapeSingle(selector)
	switch strategy {
	case event.LocatorCSS:
		return fmt.Sprintf("page.locator('%s')", sel)
	case event.LocatorXPath:
		return fmt.Sprintf("page.locator('xpath=%s')", sel)
	case event.LocatorID:
		return fmt.Sprintf("page.locator('#%s')", sel)
	case event.LocatorName:
		return fmt.Sprintf("page.locator('[name=\"%s\"]')", sel)
	case event.LocatorTag:
		return fmt.Sprintf("page.locator('%s')", sel)
	case event.LocatorClass:
		return fmt.Sprintf("page.locator('.%s')", sel)
	case event.LocatorLinkText:
		return fmt.Sprintf("page.getByText('%s', { exact: true })", sel)
	case event.LocatorPartialLinkText:
		return fmt.Sprintf("page.getByText('%s')", sel)
	case event.LocatorAccessibilityID:
		return fmt.Sprintf("page.getByLabel('%s')", sel)
	default:
		return fmt.Sprintf("page.locator('xpath=%s')", sel)
	}
}

func playwrightClick(c *Context, e *event.Event) {
	loc := playwrightLocator(e.Element)
	switch {
	case e.Click.DoubleClick:
		c.Line(fmt.Sprintf("await %s.dblclick();", loc))
	case e.Click.Button == "right":
		c.Line(fmt.Sprintf("await %s.click({ button: 'right' });", loc))
	default:
		c.Line(fmt.Sprintf("await %s.click();", loc))
	}
}

func playwrightInput(c *Context, e *event.Event) {
	loc := playwrightLocator(e.Element)
	value := escapeSingle(e.Input.Value)
	if e.Input.Clear {
		c.Line(fmt.Sprintf("await %s.fill('%s');", loc, value))
		return
	}
	c.Line(fmt.Sprintf("await %s.pressSequentially('%s');", loc, value))
}

func playwrightNavigation(c *Context, e *event.Event) {
	switch e.Navigation.Action {
	case "back":
		c.Line("await page.goBack();")
	case "forward":
		c.Line("await page.goForward();")
	case "refresh":
		c.Line("await page.reload();")
	default:
		c.Line(fmt.Sprintf("await page.goto('%s');", escapeSingle(e.Navigation.ToURL)))
	}
}

func playwrightAssertion(c *Context, e *event.Event) {
	a := e.Assertion
	if e.Element == nil {
		c.Note("assertion has no target element; recorded status: " + string(a.Status))
		return
	}
	actual := c.Tmp("actual")
	c.Line(fmt.Sprintf("const %s = (await %s.textContent()) ?? '';", actual, playwrightLocator(e.Element)))
	jsAssert(c, a, actual, true)
}

// jsAssert emits one expectation line, in jest matcher style for playwright
// and chai style for cypress.
func jsAssert(c *Context, a *event.AssertionPayload, actual string, jest bool) {
	const format = "expect(%s)%s%s;"
	expected := escapeSingle(a.Expected)
	subject, literal := actual, fmt.Sprintf("'%s'", expected)
	if !a.CaseSensitive {
		subject = actual + ".toLowerCase()"
		literal = fmt.Sprintf("'%s'.toLowerCase()", expected)
	}

	not, eq, contain, match := ".not", ".toBe(%s)", ".toContain(%s)", ".toMatch(%s)"
	truthy, falsy := ".toBe(true)", ".toBe(false)"
	greater, less := ".toBeGreaterThan(%s)", ".toBeLessThan(%s)"
	greaterEq, lessEq := ".toBeGreaterThanOrEqual(%s)", ".toBeLessThanOrEqual(%s)"
	if !jest {
		not, eq, contain, match = ".to.not", ".to.equal(%s)", ".to.contain(%s)", ".to.match(%s)"
		truthy, falsy = ".to.be.true", ".to.be.false"
		greater, less = ".to.be.greaterThan(%s)", ".to.be.lessThan(%s)"
		greaterEq, lessEq = ".to.be.at.least(%s)", ".to.be.at.most(%s)"
	}

	link := ""
	if a.Negated {
		link = not
	}
	boolMatcher := truthy
	if a.Negated {
		boolMatcher = falsy
	}

	emit := func(subj, matcher string) {
		c.Line(fmt.Sprintf(format, subj, link, matcher))
	}

	switch a.Type {
	case event.AssertEquals:
		if a.Tolerance != nil {
			expr := fmt.Sprintf("Math.abs(parseFloat(%s) - %s) <= %s",
				actual, numberLiteralOrZero(a.Expected), numberString(*a.Tolerance))
			c.Line(fmt.Sprintf(format, expr, "", boolMatcher))
			return
		}
		emit(subject, fmt.Sprintf(eq, literal))
	case event.AssertContains:
		emit(subject, fmt.Sprintf(contain, literal))
	case event.AssertStartsWith:
		c.Line(fmt.Sprintf(format, fmt.Sprintf("%s.startsWith(%s)", subject, literal), "", boolMatcher))
	case event.AssertEndsWith:
		c.Line(fmt.Sprintf(format, fmt.Sprintf("%s.endsWith(%s)", subject, literal), "", boolMatcher))
	case event.AssertRegexMatch:
		flags := ""
		if !a.CaseSensitive {
			flags = ", 'i'"
		}
		emit(actual, fmt.Sprintf(match, fmt.Sprintf("new RegExp('%s'%s)", expected, flags)))
	case event.AssertGT:
		emit("parseFloat("+actual+")", fmt.Sprintf(greater, numberLiteralOrZero(a.Expected)))
	case event.AssertLT:
		emit("parseFloat("+actual+")", fmt.Sprintf(less, numberLiteralOrZero(a.Expected)))
	case event.AssertGTE:
		emit("parseFloat("+actual+")", fmt.Sprintf(greaterEq, numberLiteralOrZero(a.Expected)))
	case event.AssertLTE:
		emit("parseFloat("+actual+")", fmt.Sprintf(lessEq, numberLiteralOrZero(a.Expected)))
	}
}

func playwrightCapture(c *Context, e *event.Event) {
	cap := e.Capture
	name := cap.TargetVariable
	switch cap.Source {
	case event.CaptureElement:
		c.Line(fmt.Sprintf("const %s = (await %s.textContent()) ?? '';", name, playwrightLocator(e.Element)))
	case event.CaptureURL:
		c.Line(fmt.Sprintf("const %s = page.url();", name))
	case event.CaptureJavaScript:
		c.Line(fmt.Sprintf("const %s = await page.evaluate('%s');", name, escapeSingle(cap.Method)))
	case event.CaptureCookie:
		c.Line(fmt.Sprintf("const %s = (await page.context().cookies()).find((ck) => ck.name === '%s')?.value;",
			name, escapeSingle(cap.Method)))
	case event.CaptureStorage:
		c.Line(fmt.Sprintf("const %s = await page.evaluate(\"window.localStorage.getItem('%s')\");",
			name, escapeSingle(cap.Method)))
	case event.CaptureResponse:
		c.Line(fmt.Sprintf("const %s = await (await page.waitForResponse('%s')).text();",
			name, escapeSingle(cap.Method)))
	}
}

func playwrightCustomJS(c *Context, e *event.Event) {
	js := e.CustomJS
	script := escapeSingle(js.Script)
	if js.TargetVariable != "" {
		c.Line(fmt.Sprintf("const %s = await page.evaluate('%s');", js.TargetVariable, script))
		return
	}
	c.Line(fmt.Sprintf("await page.evaluate('%s');", script))
}

// cypressTarget renders the cy chain that selects the element. XPath requires
// the cypress-xpath plugin.
func cypressTarget(ei *event.ElementInfo) string {
	strategy, selector := strategyOf(ei)
	sel := escapeSingle(selector)
	switch strategy {
	case event.LocatorCSS, event.LocatorTag:
		return fmt.Sprintf("cy.get('%s')", sel)
	case event.LocatorXPath:
		return fmt.Sprintf("cy.xpath('%s')", sel)
	case event.LocatorID:
		return fmt.Sprintf("cy.get('#%s')", sel)
	case event.LocatorName:
		return fmt.Sprintf("cy.get('[name=\"%s\"]')", sel)
	case event.LocatorClass:
		return fmt.Sprintf("cy.get('.%s')", sel)
	case event.LocatorLinkText, event.LocatorPartialLinkText:
		return fmt.Sprintf("cy.contains('%s')", sel)
	case event.LocatorAccessibilityID:
		return fmt.Sprintf("cy.get('[aria-label=\"%s\"]')", sel)
	default:
		return fmt.Sprintf("cy.xpath('%s')", sel)
	}
}

func cypressClick(c *Context, e *event.Event) {
	target := cypressTarget(e.Element)
	switch {
	case e.Click.DoubleClick:
		c.Line(target + ".dblclick();")
	case e.Click.Button == "right":
		c.Line(target + ".rightclick();")
	default:
		c.Line(target + ".click();")
	}
}

func cypressInput(c *Context, e *event.Event) {
	target := cypressTarget(e.Element)
	value := escapeSingle(e.Input.Value)
	if e.Input.Clear {
		c.Line(fmt.Sprintf("%s.clear().type('%s');", target, value))
		return
	}
	c.Line(fmt.Sprintf("%s.type('%s');", target, value))
}

func cypressNavigation(c *Context, e *event.Event) {
	switch e.Navigation.Action {
	case "back":
		c.Line("cy.go('back');")
	case "forward":
		c.Line("cy.go('forward');")
	case "refresh":
		c.Line("cy.reload();")
	default:
		c.Line(fmt.Sprintf("cy.visit('%s');", escapeSingle(e.Navigation.ToURL)))
	}
}

func cypressAssertion(c *Context, e *event.Event) {
	a := e.Assertion
	if e.Element == nil {
		c.Note("assertion has no target element; recorded status: " + string(a.Status))
		return
	}
	actual := c.Tmp("actual")
	c.Line(fmt.Sprintf("%s.invoke('text').then((%s) => {", cypressTarget(e.Element), actual))
	inner := &Context{g: c.g, depth: c.depth + 1}
	jsAssert(inner, a, actual, false)
	c.Line("});")
}

func cypressCapture(c *Context, e *event.Event) {
	cap := e.Capture
	name := escapeSingle(cap.TargetVariable)
	switch cap.Source {
	case event.CaptureElement:
		c.Line(fmt.Sprintf("%s.invoke('text').as('%s');", cypressTarget(e.Element), name))
	case event.CaptureURL:
		c.Line(fmt.Sprintf("cy.url().as('%s');", name))
	case event.CaptureJavaScript:
		c.Line(fmt.Sprintf("cy.window().then((win) => win.eval('%s')).as('%s');", escapeSingle(cap.Method), name))
	case event.CaptureCookie:
		c.Line(fmt.Sprintf("cy.getCookie('%s').its('value').as('%s');", escapeSingle(cap.Method), name))
	case event.CaptureStorage:
		c.Line(fmt.Sprintf("cy.window().its('localStorage').invoke('getItem', '%s').as('%s');",
			escapeSingle(cap.Method), name))
	case event.CaptureResponse:
		c.Line(fmt.Sprintf("cy.intercept('%s').as('%s');", escapeSingle(cap.Method), name))
	}
}

func cypressCustomJS(c *Context, e *event.Event) {
	js := e.CustomJS
	script := escapeSingle(js.Script)
	if js.TargetVariable != "" {
		c.Line(fmt.Sprintf("cy.window().then((win) => win.eval('%s')).as('%s');",
			script, escapeSingle(js.TargetVariable)))
		return
	}
	c.Line(fmt.Sprintf("cy.window().then((win) => win.eval('%s'));", script))
}

func jsLoop(c *Context, e *event.Event) {
	l := e.Loop
	switch l.Type {
	case event.LoopCount:
		c.Line(fmt.Sprintf("for (let %s = 0; %s < %d; %s++) {", l.IterationVariable, l.IterationVariable, l.Count, l.IterationVariable))
	case event.LoopWhile:
		c.Line(fmt.Sprintf("while (%s) {", l.Condition))
	case event.LoopUntil:
		c.Line(fmt.Sprintf("while (!(%s)) {", l.Condition))
	case event.LoopForEach:
		c.Line(fmt.Sprintf("for (const %s of dataSource('%s')) {", l.IterationVariable, escapeSingle(l.DataSourceID)))
	}
	c.Children(l.Children)
	c.Line("}")
}

func jsTryCatch(c *Context, e *event.Event) {
	tc := e.TryCatch
	c.Line("try {")
	c.Children(tc.Try)
	c.Line(fmt.Sprintf("} catch (%s) {", tc.ErrorVariable))
	c.Children(tc.Catch)
	if len(tc.Finally) > 0 {
		c.Line("} finally {")
		c.Children(tc.Finally)
	}
	c.Line("}")
}
