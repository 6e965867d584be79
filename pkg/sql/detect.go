package sql

import (
	"regexp"
	"strings"
)

// StatementType represents the type of SQL statement.
type StatementType string

const (
	TypeSelect  StatementType = "SELECT"
	TypeInsert  StatementType = "INSERT"
	TypeUpdate  StatementType = "UPDATE"
	TypeDelete  StatementType = "DELETE"
	TypeCall    StatementType = "CALL"
	TypeDDL     StatementType = "DDL"     // CREATE, ALTER, DROP, TRUNCATE
	TypeUnknown StatementType = "UNKNOWN" // unrecognized or blocked statement types
)

// modifyingCTEPattern matches CTEs that contain data-modifying operations,
// e.g. WITH deleted AS (DELETE FROM t RETURNING *) SELECT * FROM deleted.
var modifyingCTEPattern = regexp.MustCompile(`(?i)\bAS\s*\(\s*(INSERT|UPDATE|DELETE)\b`)

// DetectStatementType determines the statement type from the first keyword.
// WITH is treated as SELECT unless a CTE body modifies data.
func DetectStatementType(sqlQuery string) StatementType {
	normalized := strings.ToUpper(strings.TrimSpace(sqlQuery))

	switch {
	case strings.HasPrefix(normalized, "SELECT"):
		return TypeSelect

	case strings.HasPrefix(normalized, "WITH"):
		if modifyingCTEPattern.MatchString(sqlQuery) {
			return TypeUnknown
		}
		return TypeSelect

	case strings.HasPrefix(normalized, "INSERT"):
		return TypeInsert

	case strings.HasPrefix(normalized, "UPDATE"):
		return TypeUpdate

	case strings.HasPrefix(normalized, "DELETE"):
		return TypeDelete

	case strings.HasPrefix(normalized, "CALL"):
		return TypeCall

	case strings.HasPrefix(normalized, "CREATE"),
		strings.HasPrefix(normalized, "ALTER"),
		strings.HasPrefix(normalized, "DROP"),
		strings.HasPrefix(normalized, "TRUNCATE"):
		return TypeDDL

	// Transaction control is out of scope for a read-only pipeline.
	case strings.HasPrefix(normalized, "BEGIN"),
		strings.HasPrefix(normalized, "COMMIT"),
		strings.HasPrefix(normalized, "ROLLBACK"),
		strings.HasPrefix(normalized, "SAVEPOINT"):
		return TypeUnknown

	default:
		return TypeUnknown
	}
}

// IsReadOnly reports whether the statement type is safe for the executor.
func IsReadOnly(t StatementType) bool {
	return t == TypeSelect
}
