package sql

import (
	"fmt"
	"strings"
)

// CheckSyntax applies lightweight structural checks: the statement must be
// non-empty, start with a recognized verb, and have balanced quotes and
// parentheses. It is not a full parser; the database is the final authority,
// but catching obvious breakage here keeps repair prompts concrete.
func CheckSyntax(sqlQuery string) error {
	trimmed := strings.TrimSpace(sqlQuery)
	if trimmed == "" {
		return fmt.Errorf("statement is empty")
	}

	if DetectStatementType(trimmed) == TypeUnknown {
		first := strings.Fields(strings.ToUpper(trimmed))[0]
		return fmt.Errorf("statement does not start with a recognized SQL verb (got %q)", first)
	}

	if hasUnterminatedLiteral(trimmed) {
		return fmt.Errorf("unterminated string literal")
	}

	stripped, _ := stripStringLiterals(trimmed)

	depth := 0
	for _, c := range stripped {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("unbalanced parentheses")
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("unbalanced parentheses")
	}

	return nil
}

func hasUnterminatedLiteral(sqlQuery string) bool {
	inString := false
	runes := []rune(sqlQuery)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '\'' {
			continue
		}
		if inString && i+1 < len(runes) && runes[i+1] == '\'' {
			i++ // escaped quote stays inside the literal
			continue
		}
		inString = !inString
	}
	return inString
}
