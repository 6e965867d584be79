package sql

import (
	"fmt"
	"regexp"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"
)

// SecurityFinding is one violation of the read-only/injection-safety
// contract. Any finding is terminal for the statement; security failures are
// never auto-repaired.
type SecurityFinding struct {
	Rule    string
	Message string
}

func (f SecurityFinding) String() string {
	return fmt.Sprintf("%s: %s", f.Rule, f.Message)
}

// forbiddenKeywords are DDL/DML verbs that must never appear anywhere in a
// generated statement, even inside subqueries.
var forbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "CREATE", "ALTER", "DROP",
	"TRUNCATE", "GRANT", "REVOKE", "EXEC", "EXECUTE", "MERGE",
}

var forbiddenKeywordPatterns = compileKeywordPatterns(forbiddenKeywords)

func compileKeywordPatterns(keywords []string) map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(keywords))
	for _, kw := range keywords {
		patterns[kw] = regexp.MustCompile(`(?i)\b` + kw + `\b`)
	}
	return patterns
}

var (
	lineCommentPattern  = regexp.MustCompile(`--`)
	blockCommentPattern = regexp.MustCompile(`/\*`)
)

// ScanSecurity applies the security layer to a candidate statement: it must
// begin with SELECT, contain no write/DDL verbs, no comments, no stacked
// statements, and no injection fingerprints in its string literals. The scan
// strips string literals before keyword matching so a legitimate literal like
// 'updated' does not trip the UPDATE rule.
func ScanSecurity(sqlQuery string) []SecurityFinding {
	var findings []SecurityFinding

	trimmed := strings.TrimSpace(sqlQuery)
	if trimmed == "" {
		return []SecurityFinding{{Rule: "empty", Message: "statement is empty"}}
	}

	if DetectStatementType(trimmed) != TypeSelect {
		findings = append(findings, SecurityFinding{
			Rule:    "select_only",
			Message: "statement must be a single SELECT",
		})
	}

	stripped, literals := stripStringLiterals(trimmed)

	for _, kw := range forbiddenKeywords {
		if forbiddenKeywordPatterns[kw].MatchString(stripped) {
			findings = append(findings, SecurityFinding{
				Rule:    "forbidden_keyword",
				Message: fmt.Sprintf("forbidden keyword %s", kw),
			})
		}
	}

	if lineCommentPattern.MatchString(stripped) {
		findings = append(findings, SecurityFinding{
			Rule:    "comment",
			Message: "inline comments (--) are not allowed",
		})
	}
	if blockCommentPattern.MatchString(stripped) {
		findings = append(findings, SecurityFinding{
			Rule:    "comment",
			Message: "block comments (/* */) are not allowed",
		})
	}

	if hasSemicolonOutsideStrings(trimmed) {
		findings = append(findings, SecurityFinding{
			Rule:    "stacked_statements",
			Message: "multiple statements are not allowed",
		})
	}

	// String literals are the one place attacker-controlled text can survive
	// generation intact, so each one goes through libinjection.
	for _, lit := range literals {
		if isSQLi, fingerprint := libinjection.IsSQLi(lit); isSQLi {
			findings = append(findings, SecurityFinding{
				Rule:    "injection",
				Message: fmt.Sprintf("injection pattern in string literal (fingerprint %s)", fingerprint),
			})
		}
	}

	return findings
}

// stripStringLiterals removes single-quoted literal contents from the
// statement, returning the stripped text and the extracted literals. SQL
// standard doubled quotes ('') stay inside the literal.
func stripStringLiterals(sqlQuery string) (string, []string) {
	var out strings.Builder
	var literals []string
	var current strings.Builder

	inString := false
	runes := []rune(sqlQuery)

	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if inString {
			if c == '\'' {
				if i+1 < len(runes) && runes[i+1] == '\'' {
					current.WriteRune('\'')
					i++
					continue
				}
				inString = false
				literals = append(literals, current.String())
				current.Reset()
				out.WriteString("''")
				continue
			}
			current.WriteRune(c)
			continue
		}
		if c == '\'' {
			inString = true
			continue
		}
		out.WriteRune(c)
	}

	// Unterminated literal: the quote structure is broken, so the literal
	// boundary cannot be trusted. The dangling text is scanned both as a
	// literal and as code.
	if inString {
		literals = append(literals, current.String())
		out.WriteString(current.String())
	}

	return out.String(), literals
}
