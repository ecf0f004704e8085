// Package template substitutes {{name}} placeholders from a session's
// variable bag into message texts.
package template

import (
	"fmt"
	"regexp"
	"strconv"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([\w.]+)\s*\}\}`)

// Render replaces every {{name}} placeholder in input with the string form of
// the matching variable. Placeholders without a matching variable are left
// intact. Render never fails.
func Render(input string, variables map[string]any) string {
	if len(variables) == 0 && !placeholderPattern.MatchString(input) {
		return input
	}

	return placeholderPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]

		value, ok := variables[name]
		if !ok {
			return match
		}

		return format(value)
	})
}

func format(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
