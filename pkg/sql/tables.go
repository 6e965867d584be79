package sql

import (
	"regexp"
	"strings"
)

// tableRefPattern matches the identifier after FROM or JOIN. Subqueries
// (open paren) deliberately do not match; their inner FROM/JOIN clauses are
// matched on their own.
var tableRefPattern = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+([a-zA-Z_][a-zA-Z0-9_]*(?:\.[a-zA-Z_][a-zA-Z0-9_]*)?)`)

// ExtractTableRefs returns the distinct table names referenced by FROM and
// JOIN clauses, lowercased, schema qualifiers stripped, in first-appearance
// order. This is a heuristic extractor for the validator's table-existence
// layer: it assumes the statement already passed the syntax and security
// layers.
func ExtractTableRefs(sqlQuery string) []string {
	stripped, _ := stripStringLiterals(sqlQuery)

	matches := tableRefPattern.FindAllStringSubmatch(stripped, -1)
	seen := make(map[string]bool, len(matches))
	var refs []string

	for _, m := range matches {
		name := strings.ToLower(m[1])
		if idx := strings.LastIndexByte(name, '.'); idx >= 0 {
			name = name[idx+1:]
		}
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		refs = append(refs, name)
	}

	return refs
}

// cteNamePattern matches CTE names declared in a WITH clause so they are not
// mistaken for unknown tables.
var cteNamePattern = regexp.MustCompile(`(?i)\b(?:WITH|,)\s*([a-zA-Z_][a-zA-Z0-9_]*)\s+AS\s*\(`)

// ExtractCTENames returns the lowercased CTE names declared by the statement.
func ExtractCTENames(sqlQuery string) []string {
	stripped, _ := stripStringLiterals(sqlQuery)

	matches := cteNamePattern.FindAllStringSubmatch(stripped, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.ToLower(m[1]))
	}
	return names
}
