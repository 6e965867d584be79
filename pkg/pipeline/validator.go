package pipeline

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/datasage-io/datasage-engine/pkg/llm"
	"github.com/datasage-io/datasage-engine/pkg/logging"
	"github.com/datasage-io/datasage-engine/pkg/models"
	"github.com/datasage-io/datasage-engine/pkg/prompts"
	"github.com/datasage-io/datasage-engine/pkg/retry"
	sqlpkg "github.com/datasage-io/datasage-engine/pkg/sql"
)

// SQLValidator runs the layered static checks with a bounded repair loop.
type SQLValidator interface {
	// ValidateAndRepair checks syntax, security, table existence, and
	// semantic plausibility, repairing repairable findings at most
	// maxRepairs times. Security findings are terminal and never repaired.
	ValidateAndRepair(ctx context.Context, question, statement string, essential []models.TableDescriptor) models.ValidationResult
}

type sqlValidator struct {
	client         llm.LLMClient
	circuitBreaker *llm.CircuitBreaker
	knownTables    map[string]bool
	dialect        string
	maxRepairs     int
	logger         *zap.Logger
}

// NewSQLValidator creates the validator. knownTables is the broader known
// schema (lowercased bare table names) backing the table-existence layer.
func NewSQLValidator(client llm.LLMClient, cb *llm.CircuitBreaker, knownTables map[string]bool, dialect string, maxRepairs int, logger *zap.Logger) SQLValidator {
	return &sqlValidator{
		client:         client,
		circuitBreaker: cb,
		knownTables:    knownTables,
		dialect:        dialect,
		maxRepairs:     maxRepairs,
		logger:         logger.Named("sql-validator"),
	}
}

var _ SQLValidator = (*sqlValidator)(nil)

func (v *sqlValidator) ValidateAndRepair(ctx context.Context, question, statement string, essential []models.TableDescriptor) models.ValidationResult {
	start := time.Now()

	current := statement
	var warnings []string
	var lastErrors []models.ValidationError
	attempts := 0

	for {
		errors, terminal, warn := v.runChecks(ctx, question, current, essential)
		warnings = append(warnings, warn...)

		if len(errors) == 0 {
			elapsed := time.Since(start)
			v.logger.Info("Statement validated",
				zap.Int("repair_attempts", attempts),
				zap.Duration("elapsed", elapsed))
			return models.ValidationResult{
				IsValid:        true,
				Statement:      current,
				Warnings:       warnings,
				RepairAttempts: attempts,
				ElapsedMs:      elapsed.Milliseconds(),
			}
		}

		lastErrors = errors

		if terminal {
			// Security failures are logged distinctly: they mean hostile
			// input or dangerous generation drift, and repairing an
			// injection-shaped statement is itself a risk.
			v.logger.Error("Statement rejected by security checks",
				zap.String("statement", logging.SanitizeStatement(current)),
				zap.Int("findings", len(errors)))
			break
		}

		if attempts >= v.maxRepairs {
			v.logger.Warn("Repair attempts exhausted",
				zap.Int("attempts", attempts),
				zap.Int("unresolved_errors", len(errors)))
			break
		}

		repaired, err := v.repair(ctx, question, current, errors, essential)
		if err != nil {
			v.logger.Warn("Repair call failed", zap.Error(err))
			break
		}
		attempts++

		if strings.TrimSpace(repaired) == strings.TrimSpace(current) {
			v.logger.Warn("Repair returned an unchanged statement, stopping")
			break
		}
		current = repaired
	}

	return models.ValidationResult{
		IsValid:        false,
		Statement:      current,
		Errors:         lastErrors,
		Warnings:       warnings,
		RepairAttempts: attempts,
		ElapsedMs:      time.Since(start).Milliseconds(),
	}
}

// runChecks applies the four layers in order. terminal is true when any
// finding is security-class.
func (v *sqlValidator) runChecks(ctx context.Context, question, statement string, essential []models.TableDescriptor) (errors []models.ValidationError, terminal bool, warnings []string) {
	// Layer 1: syntax.
	normalized := sqlpkg.ValidateAndNormalize(statement)
	if normalized.Error != nil {
		// Stacked statements are an injection shape, not a syntax slip.
		return []models.ValidationError{{
			Class:   models.ValidationSecurity,
			Message: normalized.Error.Error(),
		}}, true, nil
	}
	statement = normalized.NormalizedSQL

	// A recognized modifying verb is a policy violation, not a syntax slip.
	if t := sqlpkg.DetectStatementType(statement); !sqlpkg.IsReadOnly(t) && t != sqlpkg.TypeUnknown {
		return []models.ValidationError{{
			Class:   models.ValidationSecurity,
			Message: "statement must be a single SELECT, got " + string(t),
		}}, true, nil
	}

	if err := sqlpkg.CheckSyntax(statement); err != nil {
		// A malformed statement can still carry an injection payload
		// (unterminated-literal payloads). Scan it before offering repair; the
		// select_only rule is skipped here since malformed text has no
		// recognizable verb.
		for _, f := range sqlpkg.ScanSecurity(statement) {
			if f.Rule == "select_only" {
				continue
			}
			errors = append(errors, models.ValidationError{
				Class:   models.ValidationSecurity,
				Message: f.String(),
			})
		}
		if len(errors) > 0 {
			return errors, true, nil
		}
		return []models.ValidationError{{
			Class:   models.ValidationSyntax,
			Message: err.Error(),
		}}, false, nil
	}

	// Layer 2: security. Any finding is terminal.
	if findings := sqlpkg.ScanSecurity(statement); len(findings) > 0 {
		secErrors := make([]models.ValidationError, len(findings))
		for i, f := range findings {
			secErrors[i] = models.ValidationError{
				Class:   models.ValidationSecurity,
				Message: f.String(),
			}
		}
		return secErrors, true, nil
	}

	// Layer 3: table existence.
	allowed := make(map[string]bool, len(essential))
	for _, d := range essential {
		allowed[strings.ToLower(d.Table)] = true
	}
	for _, cte := range sqlpkg.ExtractCTENames(statement) {
		allowed[cte] = true
	}
	for _, ref := range sqlpkg.ExtractTableRefs(statement) {
		if allowed[ref] || v.knownTables[ref] {
			continue
		}
		errors = append(errors, models.ValidationError{
			Class:   models.ValidationUnknownTable,
			Message: "unknown table " + ref,
		})
	}
	if len(errors) > 0 {
		return errors, false, nil
	}

	// Layer 4: semantic plausibility, only once the cheap layers pass.
	semErrors, warn := v.semanticCheck(ctx, question, statement, essential)
	return semErrors, false, warn
}

type semanticResponse struct {
	Plausible bool     `json:"plausible"`
	Issues    []string `json:"issues"`
}

// semanticCheck judges whether the statement plausibly answers the question.
// Backend failure degrades to a warning: an unavailable judge must not block
// a statement that passed every static layer.
func (v *sqlValidator) semanticCheck(ctx context.Context, question, statement string, essential []models.TableDescriptor) ([]models.ValidationError, []string) {
	if allowed, err := v.circuitBreaker.Allow(); !allowed {
		v.logger.Warn("Circuit breaker prevented semantic check", zap.Error(err))
		return nil, []string{"semantic check skipped: reasoning backend unavailable"}
	}

	prompt := prompts.BuildSemanticCheckPrompt(question, statement, essential)
	system := prompts.SemanticCheckSystemMessage()

	var result *llm.GenerateResponseResult
	err := retry.DoIfRetryable(ctx, retry.DefaultConfig(), func() error {
		var callErr error
		result, callErr = v.client.GenerateResponse(ctx, prompt, system, 0, false)
		return callErr
	})
	if err != nil {
		v.circuitBreaker.RecordFailure()
		v.logger.Warn("Semantic check call failed", zap.Error(err))
		return nil, []string{"semantic check skipped: backend call failed"}
	}
	v.circuitBreaker.RecordSuccess()

	parsed, err := llm.ParseJSONResponse[semanticResponse](result.Content)
	if err != nil {
		v.logger.Warn("Unparseable semantic check response", zap.Error(err))
		return nil, []string{"semantic check skipped: unparseable response"}
	}

	if parsed.Plausible {
		return nil, nil
	}

	if len(parsed.Issues) == 0 {
		parsed.Issues = []string{"statement does not plausibly answer the question"}
	}
	errors := make([]models.ValidationError, len(parsed.Issues))
	for i, issue := range parsed.Issues {
		errors[i] = models.ValidationError{Class: models.ValidationSemantic, Message: issue}
	}
	return errors, nil
}

// repair asks the generation backend to revise the statement given the
// concrete error list.
func (v *sqlValidator) repair(ctx context.Context, question, statement string, errs []models.ValidationError, essential []models.TableDescriptor) (string, error) {
	if allowed, err := v.circuitBreaker.Allow(); !allowed {
		return "", err
	}

	prompt := prompts.BuildRepairPrompt(question, statement, errs, essential)
	system := prompts.GenerationSystemMessage(v.dialect)

	var result *llm.GenerateResponseResult
	err := retry.DoIfRetryable(ctx, retry.DefaultConfig(), func() error {
		var callErr error
		result, callErr = v.client.GenerateResponse(ctx, prompt, system, 0, false)
		return callErr
	})
	if err != nil {
		v.circuitBreaker.RecordFailure()
		return "", err
	}
	v.circuitBreaker.RecordSuccess()

	return prompts.StripSQLResponse(llm.StripThinking(result.Content)), nil
}
