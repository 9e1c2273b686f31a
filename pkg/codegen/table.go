package codegen

import (
	"github.com/stenoweb/steno/pkg/event"
)

// renderFn emits the statement block for one event. Container renderers call
// ctx.Children to recurse; everything goes through the context so indentation
// stays consistent.
type renderFn func(ctx *Context, e *event.Event)

// tableKey addresses one renderer. Framework may be empty for entries shared
// by every framework of a language (container syntax, comments).
type tableKey struct {
	Language  Language
	Framework Framework
	Kind      event.Kind
}

// registry is the declarative lookup table driving generation. Unmapped
// combinations degrade to a comment, never an error.
var registry = map[tableKey]renderFn{}

// register installs a renderer for a (language, framework, kind) combination.
func register(l Language, f Framework, k event.Kind, fn renderFn) {
	registry[tableKey{Language: l, Framework: f, Kind: k}] = fn
}

// registerContainers installs a language-wide renderer used by every
// framework of that language.
func registerContainers(l Language, k event.Kind, fn renderFn) {
	registry[tableKey{Language: l, Kind: k}] = fn
}

// lookup resolves the renderer for an event, trying the exact framework first
// and then the language-wide entry.
func lookup(l Language, f Framework, k event.Kind) (renderFn, bool) {
	if fn, ok := registry[tableKey{Language: l, Framework: f, Kind: k}]; ok {
		return fn, true
	}
	fn, ok := registry[tableKey{Language: l, Kind: k}]
	return fn, ok
}
