// Package codegen translates a recorded event tree into executable test
// source for a target language/framework pair. Generation is pure and
// deterministic: the same tree, variables, and options always produce
// byte-identical output.
package codegen

import "strings"

// Language is a supported output language.
type Language string

const (
	LangJava       Language = "java"
	LangJavaScript Language = "javascript"
	LangPython     Language = "python"
	LangCSharp     Language = "csharp"
)

// Known reports whether l is a supported language.
func (l Language) Known() bool {
	switch l {
	case LangJava, LangJavaScript, LangPython, LangCSharp:
		return true
	}
	return false
}

// Framework is a supported automation framework.
type Framework string

const (
	FWSelenium   Framework = "selenium"
	FWPlaywright Framework = "playwright"
	FWCypress    Framework = "cypress"
)

// Options controls a generation run.
type Options struct {
	Language        Language  `json:"language"`
	Framework       Framework `json:"framework"`
	IncludeImports  bool      `json:"includeImports"`
	IncludeComments bool      `json:"includeComments"`
	Prettify        bool      `json:"prettify"`
}

// VarType is a variable's declared type.
type VarType string

const (
	VarString  VarType = "string"
	VarNumber  VarType = "number"
	VarBoolean VarType = "boolean"
	VarObject  VarType = "object"
	VarArray   VarType = "array"
)

// Variable is a named value declared at the top of the generated script.
type Variable struct {
	Name  string  `json:"name"`
	Type  VarType `json:"type"`
	Value any     `json:"value"`
}

// FileExtension returns the source file extension for a language. Unknown
// languages fall back to ".txt".
func FileExtension(l Language) string {
	switch Language(strings.ToLower(string(l))) {
	case LangJava:
		return ".java"
	case LangJavaScript:
		return ".js"
	case LangPython:
		return ".py"
	case LangCSharp:
		return ".cs"
	}
	return ".txt"
}
