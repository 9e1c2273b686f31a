package codegen

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// renderVariable emits one typed variable declaration in the target
// language's native syntax.
func renderVariable(c *Context, v Variable) {
	switch c.Opts().Language {
	case LangJava:
		c.Line(javaDeclaration(v))
	case LangJavaScript:
		c.Line(fmt.Sprintf("const %s = %s;", v.Name, jsValue(v.Value)))
	case LangPython:
		c.Line(fmt.Sprintf("%s = %s", v.Name, pyValue(v.Value)))
	case LangCSharp:
		c.Line(csharpDeclaration(v))
	default:
		c.Note(fmt.Sprintf("variable %s = %s", v.Name, jsValue(v.Value)))
	}
}

func javaDeclaration(v Variable) string {
	switch v.Type {
	case VarString:
		return fmt.Sprintf("String %s = %s;", v.Name, javaValue(v.Value))
	case VarNumber:
		return fmt.Sprintf("double %s = %s;", v.Name, numberString(v.Value))
	case VarBoolean:
		return fmt.Sprintf("boolean %s = %s;", v.Name, boolString(v.Value))
	case VarObject:
		return fmt.Sprintf("Map<String, Object> %s = %s;", v.Name, javaMap(v.Value))
	case VarArray:
		return fmt.Sprintf("List<Object> %s = %s;", v.Name, javaList(v.Value))
	}
	return fmt.Sprintf("Object %s = %s;", v.Name, javaValue(v.Value))
}

func csharpDeclaration(v Variable) string {
	switch v.Type {
	case VarObject:
		return fmt.Sprintf("var %s = %s;", v.Name, csharpMap(v.Value))
	case VarArray:
		return fmt.Sprintf("var %s = %s;", v.Name, csharpArray(v.Value))
	default:
		return fmt.Sprintf("var %s = %s;", v.Name, csharpValue(v.Value))
	}
}

// jsValue renders any JSON-shaped value as a JavaScript literal. Map keys are
// sorted so output is deterministic.
func jsValue(val any) string {
	switch v := val.(type) {
	case nil:
		return "null"
	case string:
		return "'" + escapeSingle(v) + "'"
	case bool:
		return boolString(v)
	case float64, int, int64:
		return numberString(v)
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = jsValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		parts := make([]string, 0, len(v))
		for _, k := range sortedKeys(v) {
			parts = append(parts, fmt.Sprintf("'%s': %s", escapeSingle(k), jsValue(v[k])))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprintf("'%v'", val)
}

func pyValue(val any) string {
	switch v := val.(type) {
	case nil:
		return "None"
	case string:
		return "'" + escapeSingle(v) + "'"
	case bool:
		if v {
			return "True"
		}
		return "False"
	case float64, int, int64:
		return numberString(v)
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = pyValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		parts := make([]string, 0, len(v))
		for _, k := range sortedKeys(v) {
			parts = append(parts, fmt.Sprintf("'%s': %s", escapeSingle(k), pyValue(v[k])))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprintf("'%v'", val)
}

func javaValue(val any) string {
	switch v := val.(type) {
	case nil:
		return "null"
	case string:
		return `"` + escapeDouble(v) + `"`
	case bool:
		return boolString(v)
	case float64, int, int64:
		return numberString(v)
	case []any:
		return javaList(v)
	case map[string]any:
		return javaMap(v)
	}
	return fmt.Sprintf(`"%v"`, val)
}

func javaMap(val any) string {
	m, ok := val.(map[string]any)
	if !ok {
		return "Map.of()"
	}
	parts := make([]string, 0, len(m))
	for _, k := range sortedKeys(m) {
		parts = append(parts, fmt.Sprintf(`"%s", %s`, escapeDouble(k), javaValue(m[k])))
	}
	return "Map.of(" + strings.Join(parts, ", ") + ")"
}

func javaList(val any) string {
	list, ok := val.([]any)
	if !ok {
		return "List.of()"
	}
	parts := make([]string, len(list))
	for i, item := range list {
		parts[i] = javaValue(item)
	}
	return "List.of(" + strings.Join(parts, ", ") + ")"
}

func csharpValue(val any) string {
	switch v := val.(type) {
	case nil:
		return "null"
	case string:
		return `"` + escapeDouble(v) + `"`
	case bool:
		return boolString(v)
	case float64, int, int64:
		return numberString(v)
	case []any:
		return csharpArray(v)
	case map[string]any:
		return csharpMap(v)
	}
	return fmt.Sprintf(`"%v"`, val)
}

func csharpMap(val any) string {
	m, ok := val.(map[string]any)
	if !ok {
		return "new Dictionary<string, object>()"
	}
	parts := make([]string, 0, len(m))
	for _, k := range sortedKeys(m) {
		parts = append(parts, fmt.Sprintf(`{ "%s", %s }`, escapeDouble(k), csharpValue(m[k])))
	}
	return "new Dictionary<string, object> { " + strings.Join(parts, ", ") + " }"
}

func csharpArray(val any) string {
	list, ok := val.([]any)
	if !ok {
		return "new object[] { }"
	}
	parts := make([]string, len(list))
	for i, item := range list {
		parts[i] = csharpValue(item)
	}
	return "new object[] { " + strings.Join(parts, ", ") + " }"
}

// numberString renders a numeric value without a trailing ".0" for integral
// values, which matches how the numbers were typed in the recorder UI.
func numberString(val any) string {
	var f float64
	switch v := val.(type) {
	case float64:
		f = v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return "0"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func boolString(val any) string {
	if b, ok := val.(bool); ok && b {
		return "true"
	}
	return "false"
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// escapeSingle escapes a string for single-quoted JS/Python literals.
func escapeSingle(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", `\'`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\r", `\r`)
	return s
}

// escapeDouble escapes a string for double-quoted Java/C# literals.
func escapeDouble(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\r", `\r`)
	return s
}
