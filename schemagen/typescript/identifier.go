package typescript

import (
	"strconv"
	"strings"
	"unicode"
)

// reservedWords cannot be used as TypeScript identifiers.
var reservedWords = map[string]bool{
	"break":      true,
	"case":       true,
	"catch":      true,
	"class":      true,
	"const":      true,
	"continue":   true,
	"debugger":   true,
	"default":    true,
	"delete":     true,
	"do":         true,
	"else":       true,
	"enum":       true,
	"export":     true,
	"extends":    true,
	"false":      true,
	"finally":    true,
	"for":        true,
	"function":   true,
	"if":         true,
	"implements": true,
	"import":     true,
	"in":         true,
	"instanceof": true,
	"interface":  true,
	"let":        true,
	"new":        true,
	"null":       true,
	"package":    true,
	"private":    true,
	"protected":  true,
	"public":     true,
	"return":     true,
	"static":     true,
	"super":      true,
	"switch":     true,
	"this":       true,
	"throw":      true,
	"true":       true,
	"try":        true,
	"type":       true,
	"typeof":     true,
	"var":        true,
	"void":       true,
	"while":      true,
	"with":       true,
	"yield":      true,
}

// escapeReservedWord escapes a reserved word by appending an underscore.
func escapeReservedWord(name string) string {
	if reservedWords[name] {
		return name + "_"
	}
	return name
}

// needsQuoting reports whether name must be quoted as a property key.
func needsQuoting(name string) bool {
	if name == "" {
		return true
	}

	if unicode.IsDigit(rune(name[0])) {
		return true
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '$' {
			return true
		}
	}

	return false
}

// identifier turns a qualified schema name into a TypeScript identifier:
// "api::Pet" becomes "api_Pet".
func identifier(name string) string {
	name = strings.ReplaceAll(name, "::", "_")
	if name == "" {
		return "_"
	}
	var b strings.Builder
	for i, r := range name {
		switch {
		case i == 0 && unicode.IsDigit(r):
			b.WriteRune('_')
			b.WriteRune(r)
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return escapeReservedWord(b.String())
}

// propertyName quotes name if it is not a valid bare property key.
func propertyName(name string) string {
	if needsQuoting(name) {
		return strconv.Quote(name)
	}
	return name
}
