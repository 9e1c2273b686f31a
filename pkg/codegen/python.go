package codegen

import (
	"fmt"

	"github.com/stenoweb/steno/pkg/event"
)

func init() {
	registerFrame(LangPython, FWSelenium, frame{
		imports: []string{
			"import re",
			"",
			"from selenium import webdriver",
			"from selenium.webdriver.common.by import By",
			"from selenium.webdriver.common.action_chains import ActionChains",
		},
		setup: []string{
			"driver = webdriver.Chrome()",
		},
		teardown: []string{
			"driver.quit()",
		},
		stepDepth: 0,
	})

	registerFrame(LangPython, FWPlaywright, frame{
		imports: []string{
			"import re",
			"",
			"from playwright.sync_api import sync_playwright",
		},
		setup: []string{
			"with sync_playwright() as p:",
			"    browser = p.chromium.launch()",
			"    page = browser.new_page()",
		},
		teardown: []string{
			"    browser.close()",
		},
		stepDepth: 1,
	})

	register(LangPython, FWSelenium, event.KindClick, pySeleniumClick)
	register(LangPython, FWSelenium, event.KindInput, pySeleniumInput)
	register(LangPython, FWSelenium, event.KindNavigation, pySeleniumNavigation)
	register(LangPython, FWSelenium, event.KindAssertion, pySeleniumAssertion)
	register(LangPython, FWSelenium, event.KindCapture, pySeleniumCapture)
	register(LangPython, FWSelenium, event.KindCustomJS, pySeleniumCustomJS)

	register(LangPython, FWPlaywright, event.KindClick, pyPlaywrightClick)
	register(LangPython, FWPlaywright, event.KindInput, pyPlaywrightInput)
	register(LangPython, FWPlaywright, event.KindNavigation, pyPlaywrightNavigation)
	register(LangPython, FWPlaywright, event.KindAssertion, pyPlaywrightAssertion)
	register(LangPython, FWPlaywright, event.KindCapture, pyPlaywrightCapture)
	register(LangPython, FWPlaywright, event.KindCustomJS, pyPlaywrightCustomJS)

	registerContainers(LangPython, event.KindGroup, pyGroup)
	registerContainers(LangPython, event.KindLoop, pyLoop)
	registerContainers(LangPython, event.KindConditional, pyConditional)
	registerContainers(LangPython, event.KindTryCatch, pyTryCatch)
}

// pyChildren renders a branch one level deeper, inserting a pass statement
// when no statement was emitted so the enclosing block stays syntactically
// valid. Comment-only branches still need the pass.
func pyChildren(c *Context, events []*event.Event) {
	before := c.g.stmtCount
	c.Children(events)
	if c.g.stmtCount == before {
		child := &Context{g: c.g, depth: c.depth + 1}
		child.Line("pass")
	}
}

func pySeleniumBy(ei *event.ElementInfo) string {
	strategy, selector := strategyOf(ei)
	sel := escapeSingle(selector)
	switch strategy {
	case event.LocatorCSS:
		return fmt.Sprintf("By.CSS_SELECTOR, '%s'", sel)
	case event.LocatorID:
		return fmt.Sprintf("By.ID, '%s'", sel)
	case event.LocatorName:
		return fmt.Sprintf("By.NAME, '%s'", sel)
	case event.LocatorTag:
		return fmt.Sprintf("By.TAG_NAME, '%s'", sel)
	case event.LocatorClass:
		return fmt.Sprintf("By.CLASS_NAME, '%s'", sel)
	case event.LocatorLinkText:
		return fmt.Sprintf("By.LINK_TEXT, '%s'", sel)
	case event.LocatorPartialLinkText:
		return fmt.Sprintf("By.PARTIAL_LINK_TEXT, '%s'", sel)
	case event.LocatorAccessibilityID:
		return fmt.Sprintf(`By.CSS_SELECTOR, '[aria-label="%s"]'`, sel)
	default:
		return fmt.Sprintf("By.XPATH, '%s'", sel)
	}
}

func pySeleniumClick(c *Context, e *event.Event) {
	by := pySeleniumBy(e.Element)
	switch {
	case e.Click.DoubleClick:
		c.Line(fmt.Sprintf("ActionChains(driver).double_click(driver.find_element(%s)).perform()", by))
	case e.Click.Button == "right":
		c.Line(fmt.Sprintf("ActionChains(driver).context_click(driver.find_element(%s)).perform()", by))
	default:
		c.Line(fmt.Sprintf("driver.find_element(%s).click()", by))
	}
}

func pySeleniumInput(c *Context, e *event.Event) {
	by := pySeleniumBy(e.Element)
	if e.Input.Clear {
		c.Line(fmt.Sprintf("driver.find_element(%s).clear()", by))
	}
	c.Line(fmt.Sprintf("driver.find_element(%s).send_keys('%s')", by, escapeSingle(e.Input.Value)))
}

func pySeleniumNavigation(c *Context, e *event.Event) {
	switch e.Navigation.Action {
	case "back":
		c.Line("driver.back()")
	case "forward":
		c.Line("driver.forward()")
	case "refresh":
		c.Line("driver.refresh()")
	default:
		c.Line(fmt.Sprintf("driver.get('%s')", escapeSingle(e.Navigation.ToURL)))
	}
}

func pySeleniumAssertion(c *Context, e *event.Event) {
	a := e.Assertion
	if e.Element == nil {
		c.Note("assertion has no target element; recorded status: " + string(a.Status))
		return
	}
	actual := c.Tmp("actual")
	c.Line(fmt.Sprintf("%s = driver.find_element(%s).text", actual, pySeleniumBy(e.Element)))
	pyAssert(c, a, actual)
}

// pyAssert emits a bare assert statement for the recorded expectation.
func pyAssert(c *Context, a *event.AssertionPayload, actual string) {
	expected := escapeSingle(a.Expected)
	subject, literal := actual, fmt.Sprintf("'%s'", expected)
	if !a.CaseSensitive {
		subject = actual + ".lower()"
		literal = fmt.Sprintf("'%s'.lower()", expected)
	}

	var expr string
	switch a.Type {
	case event.AssertEquals:
		if a.Tolerance != nil {
			expr = fmt.Sprintf("abs(float(%s) - %s) <= %s",
				actual, numberLiteralOrZero(a.Expected), numberString(*a.Tolerance))
		} else {
			expr = fmt.Sprintf("%s == %s", subject, literal)
		}
	case event.AssertContains:
		expr = fmt.Sprintf("%s in %s", literal, subject)
	case event.AssertStartsWith:
		expr = fmt.Sprintf("%s.startswith(%s)", subject, literal)
	case event.AssertEndsWith:
		expr = fmt.Sprintf("%s.endswith(%s)", subject, literal)
	case event.AssertRegexMatch:
		if a.CaseSensitive {
			expr = fmt.Sprintf("re.search('%s', %s)", expected, actual)
		} else {
			expr = fmt.Sprintf("re.search('%s', %s, re.IGNORECASE)", expected, actual)
		}
	case event.AssertGT:
		expr = fmt.Sprintf("float(%s) > %s", actual, numberLiteralOrZero(a.Expected))
	case event.AssertLT:
		expr = fmt.Sprintf("float(%s) < %s", actual, numberLiteralOrZero(a.Expected))
	case event.AssertGTE:
		expr = fmt.Sprintf("float(%s) >= %s", actual, numberLiteralOrZero(a.Expected))
	case event.AssertLTE:
		expr = fmt.Sprintf("float(%s) <= %s", actual, numberLiteralOrZero(a.Expected))
	default:
		return
	}

	if a.Negated {
		c.Line(fmt.Sprintf("assert not (%s)", expr))
		return
	}
	c.Line("assert " + expr)
}

func pySeleniumCapture(c *Context, e *event.Event) {
	cap := e.Capture
	name := cap.TargetVariable
	switch cap.Source {
	case event.CaptureElement:
		c.Line(fmt.Sprintf("%s = driver.find_element(%s).text", name, pySeleniumBy(e.Element)))
	case event.CaptureURL:
		c.Line(fmt.Sprintf("%s = driver.current_url", name))
	case event.CaptureJavaScript:
		c.Line(fmt.Sprintf("%s = driver.execute_script('%s')", name, escapeSingle(cap.Method)))
	case event.CaptureCookie:
		c.Line(fmt.Sprintf("%s = driver.get_cookie('%s')['value']", name, escapeSingle(cap.Method)))
	case event.CaptureStorage:
		c.Line(fmt.Sprintf(`%s = driver.execute_script("return window.localStorage.getItem('%s')")`,
			name, escapeSingle(cap.Method)))
	case event.CaptureResponse:
		c.Note(fmt.Sprintf("network response capture into ${%s} is not supported by selenium", name))
	}
}

func pySeleniumCustomJS(c *Context, e *event.Event) {
	js := e.CustomJS
	script := escapeSingle(js.Script)
	if js.TargetVariable != "" {
		c.Line(fmt.Sprintf("%s = driver.execute_script('%s')", js.TargetVariable, script))
		return
	}
	c.Line(fmt.Sprintf("driver.execute_script('%s')", script))
}

func pyPlaywrightLocator(ei *event.ElementInfo) string {
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
		return fmt.Sprintf(`page.locator('[name="%s"]')`, sel)
	case event.LocatorTag:
		return fmt.Sprintf("page.locator('%s')", sel)
	case event.LocatorClass:
		return fmt.Sprintf("page.locator('.%s')", sel)
	case event.LocatorLinkText:
		return fmt.Sprintf("page.get_by_text('%s', exact=True)", sel)
	case event.LocatorPartialLinkText:
		return fmt.Sprintf("page.get_by_text('%s')", sel)
	case event.LocatorAccessibilityID:
		return fmt.Sprintf("page.get_by_label('%s')", sel)
	default:
		return fmt.Sprintf("page.locator('xpath=%s')", sel)
	}
}

func pyPlaywrightClick(c *Context, e *event.Event) {
	loc := pyPlaywrightLocator(e.Element)
	switch {
	case e.Click.DoubleClick:
		c.Line(loc + ".dblclick()")
	case e.Click.Button == "right":
		c.Line(loc + ".click(button='right')")
	default:
		c.Line(loc + ".click()")
	}
}

func pyPlaywrightInput(c *Context, e *event.Event) {
	loc := pyPlaywrightLocator(e.Element)
	value := escapeSingle(e.Input.Value)
	if e.Input.Clear {
		c.Line(fmt.Sprintf("%s.fill('%s')", loc, value))
		return
	}
	c.Line(fmt.Sprintf("%s.press_sequentially('%s')", loc, value))
}

func pyPlaywrightNavigation(c *Context, e *event.Event) {
	switch e.Navigation.Action {
	case "back":
		c.Line("page.go_back()")
	case "forward":
		c.Line("page.go_forward()")
	case "refresh":
		c.Line("page.reload()")
	default:
		c.Line(fmt.Sprintf("page.goto('%s')", escapeSingle(e.Navigation.ToURL)))
	}
}

func pyPlaywrightAssertion(c *Context, e *event.Event) {
	a := e.Assertion
	if e.Element == nil {
		c.Note("assertion has no target element; recorded status: " + string(a.Status))
		return
	}
	actual := c.Tmp("actual")
	c.Line(fmt.Sprintf("%s = %s.text_content() or ''", actual, pyPlaywrightLocator(e.Element)))
	pyAssert(c, a, actual)
}

func pyPlaywrightCapture(c *Context, e *event.Event) {
	cap := e.Capture
	name := cap.TargetVariable
	switch cap.Source {
	case event.CaptureElement:
		c.Line(fmt.Sprintf("%s = %s.text_content() or ''", name, pyPlaywrightLocator(e.Element)))
	case event.CaptureURL:
		c.Line(fmt.Sprintf("%s = page.url", name))
	case event.CaptureJavaScript:
		c.Line(fmt.Sprintf("%s = page.evaluate('%s')", name, escapeSingle(cap.Method)))
	case event.CaptureCookie:
		c.Line(fmt.Sprintf("%s = next((ck['value'] for ck in page.context.cookies() if ck['name'] == '%s'), None)",
			name, escapeSingle(cap.Method)))
	case event.CaptureStorage:
		c.Line(fmt.Sprintf(`%s = page.evaluate("window.localStorage.getItem('%s')")`,
			name, escapeSingle(cap.Method)))
	case event.CaptureResponse:
		c.Line(fmt.Sprintf("%s = page.wait_for_response('%s').text()", name, escapeSingle(cap.Method)))
	}
}

func pyPlaywrightCustomJS(c *Context, e *event.Event) {
	js := e.CustomJS
	script := escapeSingle(js.Script)
	if js.TargetVariable != "" {
		c.Line(fmt.Sprintf("%s = page.evaluate('%s')", js.TargetVariable, script))
		return
	}
	c.Line(fmt.Sprintf("page.evaluate('%s')", script))
}

func pyGroup(c *Context, e *event.Event) {
	name := e.Group.Name
	if name == "" {
		name = "group"
	}
	c.Comment("--- " + name + " ---")
	c.Inline(e.Group.Children)
}

func pyLoop(c *Context, e *event.Event) {
	l := e.Loop
	switch l.Type {
	case event.LoopCount:
		c.Line(fmt.Sprintf("for %s in range(%d):", l.IterationVariable, l.Count))
	case event.LoopWhile:
		c.Line(fmt.Sprintf("while %s:", l.Condition))
	case event.LoopUntil:
		c.Line(fmt.Sprintf("while not (%s):", l.Condition))
	case event.LoopForEach:
		c.Line(fmt.Sprintf("for %s in data_source('%s'):", l.IterationVariable, escapeSingle(l.DataSourceID)))
	}
	pyChildren(c, l.Children)
}

func pyConditional(c *Context, e *event.Event) {
	cond := e.Conditional
	c.Line(fmt.Sprintf("if %s:", cond.Condition))
	pyChildren(c, cond.Then)
	if len(cond.Else) > 0 {
		c.Line("else:")
		pyChildren(c, cond.Else)
	}
}

func pyTryCatch(c *Context, e *event.Event) {
	tc := e.TryCatch
	c.Line("try:")
	pyChildren(c, tc.Try)
	c.Line(fmt.Sprintf("except Exception as %s:", tc.ErrorVariable))
	pyChildren(c, tc.Catch)
	if len(tc.Finally) > 0 {
		c.Line("finally:")
		pyChildren(c, tc.Finally)
	}
}
