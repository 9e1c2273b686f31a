package codegen

import (
	"fmt"

	"github.com/stenoweb/steno/pkg/event"
)

func init() {
	registerFrame(LangCSharp, FWSelenium, frame{
		imports: []string{
			"using System;",
			"using System.Collections.Generic;",
			"using OpenQA.Selenium;",
			"using OpenQA.Selenium.Chrome;",
			"using OpenQA.Selenium.Interactions;",
			"using Xunit;",
		},
		setup: []string{
			"public class RecordedTest",
			"{",
			"    [Fact]",
			"    public void Run()",
			"    {",
			"        IWebDriver driver = new ChromeDriver();",
		},
		teardown: []string{
			"        driver.Quit();",
			"    }",
			"}",
		},
		stepDepth: 2,
	})

	register(LangCSharp, FWSelenium, event.KindClick, csSeleniumClick)
	register(LangCSharp, FWSelenium, event.KindInput, csSeleniumInput)
	register(LangCSharp, FWSelenium, event.KindNavigation, csSeleniumNavigation)
	register(LangCSharp, FWSelenium, event.KindAssertion, csSeleniumAssertion)
	register(LangCSharp, FWSelenium, event.KindCapture, csSeleniumCapture)
	register(LangCSharp, FWSelenium, event.KindCustomJS, csSeleniumCustomJS)

	registerContainers(LangCSharp, event.KindGroup, cStyleGroup)
	registerContainers(LangCSharp, event.KindLoop, csLoop)
	registerContainers(LangCSharp, event.KindConditional, cStyleConditional)
	registerContainers(LangCSharp, event.KindTryCatch, csTryCatch)
}

func csBy(ei *event.ElementInfo) string {
	strategy, selector := strategyOf(ei)
	sel := escapeDouble(selector)
	switch strategy {
	case event.LocatorCSS:
		return fmt.Sprintf(`By.CssSelector("%s")`, sel)
	case event.LocatorID:
		return fmt.Sprintf(`By.Id("%s")`, sel)
	case event.LocatorName:
		return fmt.Sprintf(`By.Name("%s")`, sel)
	case event.LocatorTag:
		return fmt.Sprintf(`By.TagName("%s")`, sel)
	case event.LocatorClass:
		return fmt.Sprintf(`By.ClassName("%s")`, sel)
	case event.LocatorLinkText:
		return fmt.Sprintf(`By.LinkText("%s")`, sel)
	case event.LocatorPartialLinkText:
		return fmt.Sprintf(`By.PartialLinkText("%s")`, sel)
	case event.LocatorAccessibilityID:
		return fmt.Sprintf(`By.CssSelector("[aria-label='%s']")`, sel)
	default:
		return fmt.Sprintf(`By.XPath("%s")`, sel)
	}
}

func csSeleniumClick(c *Context, e *event.Event) {
	by := csBy(e.Element)
	switch {
	case e.Click.DoubleClick:
		c.Line(fmt.Sprintf("new Actions(driver).DoubleClick(driver.FindElement(%s)).Perform();", by))
	case e.Click.Button == "right":
		c.Line(fmt.Sprintf("new Actions(driver).ContextClick(driver.FindElement(%s)).Perform();", by))
	default:
		c.Line(fmt.Sprintf("driver.FindElement(%s).Click();", by))
	}
}

func csSeleniumInput(c *Context, e *event.Event) {
	by := csBy(e.Element)
	if e.Input.Clear {
		c.Line(fmt.Sprintf("driver.FindElement(%s).Clear();", by))
	}
	c.Line(fmt.Sprintf(`driver.FindElement(%s).SendKeys("%s");`, by, escapeDouble(e.Input.Value)))
}

func csSeleniumNavigation(c *Context, e *event.Event) {
	switch e.Navigation.Action {
	case "back":
		c.Line("driver.Navigate().Back();")
	case "forward":
		c.Line("driver.Navigate().Forward();")
	case "refresh":
		c.Line("driver.Navigate().Refresh();")
	default:
		c.Line(fmt.Sprintf(`driver.Navigate().GoToUrl("%s");`, escapeDouble(e.Navigation.ToURL)))
	}
}

func csSeleniumAssertion(c *Context, e *event.Event) {
	a := e.Assertion
	if e.Element == nil {
		c.Note("assertion has no target element; recorded status: " + string(a.Status))
		return
	}

	actual := c.Tmp("actual")
	c.Line(fmt.Sprintf("var %s = driver.FindElement(%s).Text;", actual, csBy(e.Element)))

	expected := escapeDouble(a.Expected)
	lhs, rhs := actual, fmt.Sprintf(`"%s"`, expected)
	if !a.CaseSensitive {
		lhs = actual + ".ToLower()"
		rhs = fmt.Sprintf(`"%s".ToLower()`, expected)
	}

	switch a.Type {
	case event.AssertEquals:
		if a.Tolerance != nil {
			csAssertBool(c, fmt.Sprintf("Math.Abs(double.Parse(%s) - %s) <= %s",
				actual, numberLiteralOrZero(a.Expected), numberString(*a.Tolerance)), a.Negated)
			return
		}
		if a.Negated {
			c.Line(fmt.Sprintf("Assert.NotEqual(%s, %s);", rhs, lhs))
		} else {
			c.Line(fmt.Sprintf("Assert.Equal(%s, %s);", rhs, lhs))
		}
	case event.AssertContains:
		csAssertBool(c, fmt.Sprintf("%s.Contains(%s)", lhs, rhs), a.Negated)
	case event.AssertStartsWith:
		csAssertBool(c, fmt.Sprintf("%s.StartsWith(%s)", lhs, rhs), a.Negated)
	case event.AssertEndsWith:
		csAssertBool(c, fmt.Sprintf("%s.EndsWith(%s)", lhs, rhs), a.Negated)
	case event.AssertRegexMatch:
		pattern := expected
		if !a.CaseSensitive {
			pattern = "(?i)" + pattern
		}
		csAssertBool(c, fmt.Sprintf(`System.Text.RegularExpressions.Regex.IsMatch(%s, "%s")`, actual, pattern), a.Negated)
	case event.AssertGT:
		csAssertBool(c, fmt.Sprintf("double.Parse(%s) > %s", actual, numberLiteralOrZero(a.Expected)), a.Negated)
	case event.AssertLT:
		csAssertBool(c, fmt.Sprintf("double.Parse(%s) < %s", actual, numberLiteralOrZero(a.Expected)), a.Negated)
	case event.AssertGTE:
		csAssertBool(c, fmt.Sprintf("double.Parse(%s) >= %s", actual, numberLiteralOrZero(a.Expected)), a.Negated)
	case event.AssertLTE:
		csAssertBool(c, fmt.Sprintf("double.Parse(%s) <= %s", actual, numberLiteralOrZero(a.Expected)), a.Negated)
	}
}

func csAssertBool(c *Context, expr string, negated bool) {
	if negated {
		c.Line(fmt.Sprintf("Assert.False(%s);", expr))
	} else {
		c.Line(fmt.Sprintf("Assert.True(%s);", expr))
	}
}

func csSeleniumCapture(c *Context, e *event.Event) {
	cap := e.Capture
	name := cap.TargetVariable
	switch cap.Source {
	case event.CaptureElement:
		c.Line(fmt.Sprintf("var %s = driver.FindElement(%s).Text;", name, csBy(e.Element)))
	case event.CaptureURL:
		c.Line(fmt.Sprintf("var %s = driver.Url;", name))
	case event.CaptureJavaScript:
		c.Line(fmt.Sprintf(`var %s = ((IJavaScriptExecutor)driver).ExecuteScript("%s");`,
			name, escapeDouble(cap.Method)))
	case event.CaptureCookie:
		c.Line(fmt.Sprintf(`var %s = driver.Manage().Cookies.GetCookieNamed("%s").Value;`,
			name, escapeDouble(cap.Method)))
	case event.CaptureStorage:
		c.Line(fmt.Sprintf(`var %s = ((IJavaScriptExecutor)driver).ExecuteScript("return window.localStorage.getItem('%s');");`,
			name, escapeDouble(cap.Method)))
	case event.CaptureResponse:
		c.Note(fmt.Sprintf("network response capture into ${%s} is not supported by selenium", name))
	}
}

func csSeleniumCustomJS(c *Context, e *event.Event) {
	js := e.CustomJS
	script := escapeDouble(js.Script)
	if js.TargetVariable != "" {
		c.Line(fmt.Sprintf(`var %s = ((IJavaScriptExecutor)driver).ExecuteScript("%s");`, js.TargetVariable, script))
		return
	}
	c.Line(fmt.Sprintf(`((IJavaScriptExecutor)driver).ExecuteScript("%s");`, script))
}

func csLoop(c *Context, e *event.Event) {
	l := e.Loop
	switch l.Type {
	case event.LoopCount:
		c.Line(fmt.Sprintf("for (int %s = 0; %s < %d; %s++)", l.IterationVariable, l.IterationVariable, l.Count, l.IterationVariable))
	case event.LoopWhile:
		c.Line(fmt.Sprintf("while (%s)", l.Condition))
	case event.LoopUntil:
		c.Line(fmt.Sprintf("while (!(%s))", l.Condition))
	case event.LoopForEach:
		c.Line(fmt.Sprintf(`foreach (var %s in DataSource("%s"))`, l.IterationVariable, escapeDouble(l.DataSourceID)))
	}
	c.Line("{")
	c.Children(l.Children)
	c.Line("}")
}

func csTryCatch(c *Context, e *event.Event) {
	tc := e.TryCatch
	c.Line("try")
	c.Line("{")
	c.Children(tc.Try)
	c.Line("}")
	c.Line(fmt.Sprintf("catch (Exception %s)", tc.ErrorVariable))
	c.Line("{")
	c.Children(tc.Catch)
	c.Line("}")
	if len(tc.Finally) > 0 {
		c.Line("finally")
		c.Line("{")
		c.Children(tc.Finally)
		c.Line("}")
	}
}
