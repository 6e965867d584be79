package models

// GeneratedSQL is the generator's provisional output. Nothing about it is
// trusted until the validator confirms it.
type GeneratedSQL struct {
	Statement      string
	TargetDatabase string
	ElapsedMs      int64
}

// ValidationErrorClass distinguishes repairable findings from terminal ones.
type ValidationErrorClass string

const (
	ValidationSyntax       ValidationErrorClass = "syntax"
	ValidationSecurity     ValidationErrorClass = "security"
	ValidationUnknownTable ValidationErrorClass = "unknown_table"
	ValidationSemantic     ValidationErrorClass = "semantic"
)

// ValidationError is one finding from a validation layer.
type ValidationError struct {
	Class   ValidationErrorClass
	Message string
}

func (e ValidationError) String() string {
	return string(e.Class) + ": " + e.Message
}

// ValidationResult is the validator's verdict after the bounded repair loop.
// If any error is security-class, IsValid is false regardless of the other
// layers and the statement never reaches the executor.
type ValidationResult struct {
	IsValid        bool
	Statement      string // possibly repaired
	Errors         []ValidationError
	Warnings       []string
	RepairAttempts int
	ElapsedMs      int64
}

// HasSecurityError reports whether any finding is security-class.
func (r ValidationResult) HasSecurityError() bool {
	for _, e := range r.Errors {
		if e.Class == ValidationSecurity {
			return true
		}
	}
	return false
}
