package codegen

import (
	"fmt"
	"strings"

	"github.com/stenoweb/steno/pkg/event"
)

// profile holds per-language surface syntax shared by all frameworks.
type profile struct {
	commentPrefix string
	indent        string
}

var profiles = map[Language]profile{
	LangJava:       {commentPrefix: "// ", indent: "    "},
	LangJavaScript: {commentPrefix: "// ", indent: "  "},
	LangPython:     {commentPrefix: "# ", indent: "    "},
	LangCSharp:     {commentPrefix: "// ", indent: "    "},
}

var defaultProfile = profile{commentPrefix: "// ", indent: "    "}

// frame is the fixed scaffolding around the generated steps for one
// (language, framework) pair: imports, setup, teardown, and how deep the
// step statements sit.
type frame struct {
	imports   []string
	setup     []string
	teardown  []string
	stepDepth int
}

type frameKey struct {
	Language  Language
	Framework Framework
}

var frames = map[frameKey]frame{}

func registerFrame(l Language, f Framework, fr frame) {
	frames[frameKey{Language: l, Framework: f}] = fr
}

// Generate renders the event tree into source text. It never fails for a
// well-formed tree: invalid events are skipped, disabled events become
// comments, and unmapped combinations degrade to explanatory comments.
func Generate(steps []*event.Event, vars []Variable, opts Options) string {
	opts.Language = Language(strings.ToLower(string(opts.Language)))
	opts.Framework = Framework(strings.ToLower(string(opts.Framework)))

	g := &generator{
		opts:    opts,
		profile: profileFor(opts.Language),
	}

	fr := frames[frameKey{Language: opts.Language, Framework: opts.Framework}]

	if opts.IncludeImports && len(fr.imports) > 0 {
		for _, line := range fr.imports {
			g.writeLine(0, line)
		}
		g.blank()
	}

	for _, line := range fr.setup {
		g.writeLine(0, line)
	}

	ctx := &Context{g: g, depth: fr.stepDepth}

	if len(vars) > 0 {
		if opts.IncludeComments {
			ctx.Comment("Variables")
		}
		for _, v := range vars {
			renderVariable(ctx, v)
		}
		if opts.Prettify {
			g.blank()
		}
	}

	for i, step := range steps {
		if opts.Prettify && i > 0 {
			g.blank()
		}
		renderEvent(ctx, step)
	}

	for _, line := range fr.teardown {
		g.writeLine(0, line)
	}

	return g.String()
}

func profileFor(l Language) profile {
	if p, ok := profiles[l]; ok {
		return p
	}
	return defaultProfile
}

// generator accumulates output lines. All writes go through it so the result
// is a deterministic function of the inputs.
type generator struct {
	opts      Options
	profile   profile
	sb        strings.Builder
	stmtCount int
	tmpCounts map[string]int
}

func (g *generator) writeLine(depth int, s string) {
	for i := 0; i < depth; i++ {
		g.sb.WriteString(g.profile.indent)
	}
	g.sb.WriteString(s)
	g.sb.WriteByte('\n')
}

func (g *generator) blank() {
	g.sb.WriteByte('\n')
}

func (g *generator) String() string {
	return g.sb.String()
}

// Context carries the indentation depth through the render tree. Renderers
// emit through it and recurse with Children.
type Context struct {
	g     *generator
	depth int
}

// Opts returns the generation options.
func (c *Context) Opts() Options {
	return c.g.opts
}

// Line emits one statement line at the current depth.
func (c *Context) Line(s string) {
	c.g.stmtCount++
	c.g.writeLine(c.depth, s)
}

// Blank emits an empty line.
func (c *Context) Blank() {
	c.g.blank()
}

// Comment emits a comment line, honoring IncludeComments.
func (c *Context) Comment(s string) {
	if !c.g.opts.IncludeComments {
		return
	}
	c.g.writeLine(c.depth, c.g.profile.commentPrefix+s)
}

// Note emits a comment line unconditionally. Used where the output has to
// explain itself (unsupported combination) regardless of comment settings.
func (c *Context) Note(s string) {
	c.g.writeLine(c.depth, c.g.profile.commentPrefix+s)
}

// Children renders a child branch one level deeper.
func (c *Context) Children(events []*event.Event) {
	child := &Context{g: c.g, depth: c.depth + 1}
	for _, e := range events {
		renderEvent(child, e)
	}
}

// Inline renders events at the current depth (group bodies).
func (c *Context) Inline(events []*event.Event) {
	for _, e := range events {
		renderEvent(c, e)
	}
}

// renderEvent dispatches one event through the lookup table, applying the
// disabled/invalid policies before any renderer runs.
func renderEvent(c *Context, e *event.Event) {
	if e == nil {
		return
	}

	// Disabled steps keep their position as comments and never execute.
	if e.Disabled {
		if c.g.opts.IncludeComments {
			c.Note("[disabled] " + e.Describe())
		}
		return
	}

	// A single invalid event never aborts the render.
	if !e.IsValid() {
		if c.g.opts.IncludeComments {
			c.Note("[skipped: incomplete step] " + e.Describe())
		}
		return
	}

	fn, ok := lookup(c.g.opts.Language, c.g.opts.Framework, e.Kind)
	if !ok {
		c.Note(fmt.Sprintf("unsupported step for %s/%s: %s",
			string(c.g.opts.Language), string(c.g.opts.Framework), e.Describe()))
		return
	}

	if c.g.opts.IncludeComments && !e.Kind.Container() {
		c.Comment(e.Describe())
	}
	fn(c, e)
}
