package codegen

import (
	"fmt"

	"github.com/stenoweb/steno/pkg/event"
)

func init() {
	registerFrame(LangJava, FWSelenium, frame{
		imports: []string{
			"import java.util.List;",
			"import java.util.Map;",
			"import org.junit.jupiter.api.Assertions;",
			"import org.junit.jupiter.api.Test;",
			"import org.openqa.selenium.By;",
			"import org.openqa.selenium.JavascriptExecutor;",
			"import org.openqa.selenium.WebDriver;",
			"import org.openqa.selenium.chrome.ChromeDriver;",
			"import org.openqa.selenium.interactions.Actions;",
		},
		setup: []string{
			"public class RecordedTest {",
			"    @Test",
			"    public void run() {",
			"        WebDriver driver = new ChromeDriver();",
		},
		teardown: []string{
			"        driver.quit();",
			"    }",
			"}",
		},
		stepDepth: 2,
	})

	register(LangJava, FWSelenium, event.KindClick, javaSeleniumClick)
	register(LangJava, FWSelenium, event.KindInput, javaSeleniumInput)
	register(LangJava, FWSelenium, event.KindNavigation, javaSeleniumNavigation)
	register(LangJava, FWSelenium, event.KindAssertion, javaSeleniumAssertion)
	register(LangJava, FWSelenium, event.KindCapture, javaSeleniumCapture)
	register(LangJava, FWSelenium, event.KindCustomJS, javaSeleniumCustomJS)

	registerContainers(LangJava, event.KindGroup, cStyleGroup)
	registerContainers(LangJava, event.KindLoop, javaLoop)
	registerContainers(LangJava, event.KindConditional, cStyleConditional)
	registerContainers(LangJava, event.KindTryCatch, javaTryCatch)
}

// javaBy renders the Selenium By call for the element's locator strategy.
func javaBy(ei *event.ElementInfo) string {
	strategy, selector := strategyOf(ei)
	sel := escapeDouble(selector)
	switch strategy {
	case event.LocatorCSS:
		return fmt.Sprintf(`By.cssSelector("%s")`, sel)
	case event.LocatorID:
		return fmt.Sprintf(`By.id("%s")`, sel)
	case event.LocatorName:
		return fmt.Sprintf(`By.name("%s")`, sel)
	case event.LocatorTag:
		return fmt.Sprintf(`By.tagName("%s")`, sel)
	case event.LocatorClass:
		return fmt.Sprintf(`By.className("%s")`, sel)
	case event.LocatorLinkText:
		return fmt.Sprintf(`By.linkText("%s")`, sel)
	case event.LocatorPartialLinkText:
		return fmt.Sprintf(`By.partialLinkText("%s")`, sel)
	case event.LocatorAccessibilityID:
		return fmt.Sprintf(`By.cssSelector("[aria-label='%s']")`, sel)
	default:
		return fmt.Sprintf(`By.xpath("%s")`, sel)
	}
}

func javaSeleniumClick(c *Context, e *event.Event) {
	by := javaBy(e.Element)
	switch {
	case e.Click.DoubleClick:
		c.Line(fmt.Sprintf("new Actions(driver).doubleClick(driver.findElement(%s)).perform();", by))
	case e.Click.Button == "right":
		c.Line(fmt.Sprintf("new Actions(driver).contextClick(driver.findElement(%s)).perform();", by))
	default:
		c.Line(fmt.Sprintf("driver.findElement(%s).click();", by))
	}
}

func javaSeleniumInput(c *Context, e *event.Event) {
	by := javaBy(e.Element)
	if e.Input.Clear {
		c.Line(fmt.Sprintf("driver.findElement(%s).clear();", by))
	}
	c.Line(fmt.Sprintf(`driver.findElement(%s).sendKeys("%s");`, by, escapeDouble(e.Input.Value)))
}

func javaSeleniumNavigation(c *Context, e *event.Event) {
	switch e.Navigation.Action {
	case "back":
		c.Line("driver.navigate().back();")
	case "forward":
		c.Line("driver.navigate().forward();")
	case "refresh":
		c.Line("driver.navigate().refresh();")
	default:
		c.Line(fmt.Sprintf(`driver.get("%s");`, escapeDouble(e.Navigation.ToURL)))
	}
}

func javaSeleniumAssertion(c *Context, e *event.Event) {
	a := e.Assertion
	if e.Element == nil {
		c.Note("assertion has no target element; recorded status: " + string(a.Status))
		return
	}

	actual := c.Tmp("actual")
	c.Line(fmt.Sprintf("String %s = driver.findElement(%s).getText();", actual, javaBy(e.Element)))

	expected := escapeDouble(a.Expected)
	lhs, rhs := actual, fmt.Sprintf(`"%s"`, expected)
	if !a.CaseSensitive {
		lhs = actual + ".toLowerCase()"
		rhs = fmt.Sprintf(`"%s".toLowerCase()`, expected)
	}

	switch a.Type {
	case event.AssertEquals:
		if a.Tolerance != nil {
			if a.Negated {
				c.Line(fmt.Sprintf("Assertions.assertFalse(Math.abs(Double.parseDouble(%s) - %s) <= %s);",
					actual, numberLiteralOrZero(a.Expected), numberString(*a.Tolerance)))
			} else {
				c.Line(fmt.Sprintf("Assertions.assertEquals(%s, Double.parseDouble(%s), %s);",
					numberLiteralOrZero(a.Expected), actual, numberString(*a.Tolerance)))
			}
			return
		}
		if a.Negated {
			c.Line(fmt.Sprintf("Assertions.assertNotEquals(%s, %s);", rhs, lhs))
		} else {
			c.Line(fmt.Sprintf("Assertions.assertEquals(%s, %s);", rhs, lhs))
		}
	case event.AssertContains:
		javaAssertBool(c, fmt.Sprintf("%s.contains(%s)", lhs, rhs), a.Negated)
	case event.AssertStartsWith:
		javaAssertBool(c, fmt.Sprintf("%s.startsWith(%s)", lhs, rhs), a.Negated)
	case event.AssertEndsWith:
		javaAssertBool(c, fmt.Sprintf("%s.endsWith(%s)", lhs, rhs), a.Negated)
	case event.AssertRegexMatch:
		pattern := expected
		if !a.CaseSensitive {
			pattern = "(?i)" + pattern
		}
		javaAssertBool(c, fmt.Sprintf(`%s.matches("%s")`, actual, pattern), a.Negated)
	case event.AssertGT:
		javaAssertBool(c, fmt.Sprintf("Double.parseDouble(%s) > %s", actual, numberLiteralOrZero(a.Expected)), a.Negated)
	case event.AssertLT:
		javaAssertBool(c, fmt.Sprintf("Double.parseDouble(%s) < %s", actual, numberLiteralOrZero(a.Expected)), a.Negated)
	case event.AssertGTE:
		javaAssertBool(c, fmt.Sprintf("Double.parseDouble(%s) >= %s", actual, numberLiteralOrZero(a.Expected)), a.Negated)
	case event.AssertLTE:
		javaAssertBool(c, fmt.Sprintf("Double.parseDouble(%s) <= %s", actual, numberLiteralOrZero(a.Expected)), a.Negated)
	}
}

func javaAssertBool(c *Context, expr string, negated bool) {
	if negated {
		c.Line(fmt.Sprintf("Assertions.assertFalse(%s);", expr))
	} else {
		c.Line(fmt.Sprintf("Assertions.assertTrue(%s);", expr))
	}
}

func javaSeleniumCapture(c *Context, e *event.Event) {
	cap := e.Capture
	switch cap.Source {
	case event.CaptureElement:
		c.Line(fmt.Sprintf("String %s = driver.findElement(%s).getText();", cap.TargetVariable, javaBy(e.Element)))
	case event.CaptureURL:
		c.Line(fmt.Sprintf("String %s = driver.getCurrentUrl();", cap.TargetVariable))
	case event.CaptureJavaScript:
		c.Line(fmt.Sprintf(`Object %s = ((JavascriptExecutor) driver).executeScript("%s");`,
			cap.TargetVariable, escapeDouble(cap.Method)))
	case event.CaptureCookie:
		c.Line(fmt.Sprintf(`String %s = driver.manage().getCookieNamed("%s").getValue();`,
			cap.TargetVariable, escapeDouble(cap.Method)))
	case event.CaptureStorage:
		c.Line(fmt.Sprintf(`Object %s = ((JavascriptExecutor) driver).executeScript("return window.localStorage.getItem('%s');");`,
			cap.TargetVariable, escapeDouble(cap.Method)))
	case event.CaptureResponse:
		c.Note(fmt.Sprintf("network response capture into ${%s} is not supported by selenium", cap.TargetVariable))
	}
}

func javaSeleniumCustomJS(c *Context, e *event.Event) {
	js := e.CustomJS
	if js.TargetVariable != "" {
		c.Line(fmt.Sprintf(`Object %s = ((JavascriptExecutor) driver).executeScript("%s");`,
			js.TargetVariable, escapeDouble(js.Script)))
		return
	}
	c.Line(fmt.Sprintf(`((JavascriptExecutor) driver).executeScript("%s");`, escapeDouble(js.Script)))
}

// javaLoop renders every loop mode with C-style syntax.
func javaLoop(c *Context, e *event.Event) {
	l := e.Loop
	switch l.Type {
	case event.LoopCount:
		c.Line(fmt.Sprintf("for (int %s = 0; %s < %d; %s++) {", l.IterationVariable, l.IterationVariable, l.Count, l.IterationVariable))
	case event.LoopWhile:
		c.Line(fmt.Sprintf("while (%s) {", l.Condition))
	case event.LoopUntil:
		c.Line(fmt.Sprintf("while (!(%s)) {", l.Condition))
	case event.LoopForEach:
		c.Line(fmt.Sprintf(`for (Object %s : dataSource("%s")) {`, l.IterationVariable, escapeDouble(l.DataSourceID)))
	}
	c.Children(l.Children)
	c.Line("}")
}

func javaTryCatch(c *Context, e *event.Event) {
	tc := e.TryCatch
	c.Line("try {")
	c.Children(tc.Try)
	c.Line(fmt.Sprintf("} catch (Exception %s) {", tc.ErrorVariable))
	c.Children(tc.Catch)
	if len(tc.Finally) > 0 {
		c.Line("} finally {")
		c.Children(tc.Finally)
	}
	c.Line("}")
}

// cStyleGroup renders a group as a commented block, children at the same
// depth. Shared by every brace language.
func cStyleGroup(c *Context, e *event.Event) {
	name := e.Group.Name
	if name == "" {
		name = "group"
	}
	c.Comment("--- " + name + " ---")
	c.Inline(e.Group.Children)
}

// cStyleConditional renders if/else with the recorded condition expression
// inserted verbatim. Shared by Java, JavaScript, and C#.
func cStyleConditional(c *Context, e *event.Event) {
	cond := e.Conditional
	c.Line(fmt.Sprintf("if (%s) {", cond.Condition))
	c.Children(cond.Then)
	if len(cond.Else) > 0 {
		c.Line("} else {")
		c.Children(cond.Else)
	}
	c.Line("}")
}

// numberLiteralOrZero passes through a numeric-looking expected value, or
// renders 0 when the recorded expectation is not numeric.
func numberLiteralOrZero(s string) string {
	if _, _, ok := parseNumeric(s); ok {
		return s
	}
	return "0"
}

func parseNumeric(s string) (intPart int64, isInt bool, ok bool) {
	var f float64
	if _, err := fmt.Sscanf(s, "%g", &f); err != nil {
		return 0, false, false
	}
	return int64(f), f == float64(int64(f)), true
}
