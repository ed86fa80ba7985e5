// Package formula turns natural-language descriptions of amortization rules
// into arithmetic formulas over the engine's input variables, and validates
// the generated output before it is handed back.
package formula

import (
	"fmt"
	"regexp"
	"strings"
)

// AllowedVariables are the only identifiers a generated formula may
// reference, besides the arithmetic helpers in allowedFunctions.
var AllowedVariables = []string{
	"totalAmount",
	"capPercent",
	"term",
	"amortizationFrequency",
	"payrollClassification",
}

var allowedFunctions = map[string]bool{
	"min":   true,
	"max":   true,
	"round": true,
	"floor": true,
	"ceil":  true,
	"abs":   true,
}

var forbiddenKeywords = []string{
	"import", "exec", "eval", "open", "system", "subprocess",
	"lambda", "__", "os.", "sys.", "require", "process",
	"delete", "drop", "insert", "update", "select",
}

var identifierPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// Validate checks a formula against the allowed variable set. It returns nil
// for a safe formula and a descriptive error otherwise; it never panics on
// arbitrary input.
func Validate(formula string) error {
	trimmed := strings.TrimSpace(formula)
	if trimmed == "" {
		return fmt.Errorf("formula is empty")
	}

	lower := strings.ToLower(trimmed)
	for _, kw := range forbiddenKeywords {
		if strings.Contains(lower, kw) {
			return fmt.Errorf("formula contains forbidden keyword %q", kw)
		}
	}

	depth := 0
	for _, r := range trimmed {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("formula has unbalanced parentheses")
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("formula has unbalanced parentheses")
	}

	allowed := make(map[string]bool, len(AllowedVariables))
	for _, v := range AllowedVariables {
		allowed[v] = true
	}
	for _, ident := range identifierPattern.FindAllString(trimmed, -1) {
		if allowed[ident] || allowedFunctions[ident] {
			continue
		}
		return fmt.Errorf("formula references unknown identifier %q", ident)
	}

	return nil
}
