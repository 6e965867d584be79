// Package sql provides static analysis for generated statements: type
// detection, normalization, syntax checks, the security scan, and table
// reference extraction.
package sql

import (
	"errors"
	"strings"
)

// ErrMultipleStatements means the text holds more than one statement. The
// engine only ever executes a single SELECT, so stacked statements are
// rejected before any other check runs.
var ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")

// ValidationResult carries the normalized statement or the normalization
// failure.
type ValidationResult struct {
	NormalizedSQL string
	Error         error
}

// ValidateAndNormalize trims the statement, strips one trailing semicolon,
// and rejects anything that still contains a semicolon outside string
// literals. Generated statements routinely end in ";", so that one is
// cosmetic; any other semicolon is a stacking attempt.
func ValidateAndNormalize(statement string) ValidationResult {
	statement = strings.TrimSpace(statement)
	if statement == "" {
		return ValidationResult{NormalizedSQL: statement}
	}

	normalized := stripTrailingSemicolon(statement)

	if hasSemicolonOutsideStrings(normalized) {
		return ValidationResult{Error: ErrMultipleStatements}
	}
	return ValidationResult{NormalizedSQL: normalized}
}

// hasSemicolonOutsideStrings scans the statement with a small quote-state
// machine. Semicolons inside single-quoted literals or double-quoted
// identifiers are data, not statement separators. Both SQL doubled quotes
// ('') and backslash escapes stay inside the literal.
func hasSemicolonOutsideStrings(statement string) bool {
	const (
		outside = iota
		inLiteral
		inIdentifier
	)

	state := outside
	prev := rune(0)

	for _, c := range statement {
		switch state {
		case outside:
			switch c {
			case ';':
				return true
			case '\'':
				state = inLiteral
			case '"':
				state = inIdentifier
			}
		case inLiteral:
			// A doubled quote ('') exits here and re-enters on the next rune,
			// which nets out to staying inside the literal.
			if c == '\'' && prev != '\\' {
				state = outside
			}
		case inIdentifier:
			if c == '"' && prev != '\\' {
				state = outside
			}
		}
		prev = c
	}
	return false
}

// stripTrailingSemicolon removes at most one trailing semicolon plus
// surrounding trailing whitespace.
func stripTrailingSemicolon(statement string) string {
	statement = strings.TrimRight(statement, " \t\n\r")
	if strings.HasSuffix(statement, ";") {
		statement = strings.TrimSuffix(statement, ";")
		statement = strings.TrimRight(statement, " \t\n\r")
	}
	return statement
}
