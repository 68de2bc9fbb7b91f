package pipeline

import (
	"context"
	"fmt"

	"github.com/chartquery/chartquery/internal/logging"
	"github.com/chartquery/chartquery/internal/synthesis"
	"github.com/chartquery/chartquery/internal/types"
	"github.com/chartquery/chartquery/internal/verify"
)

// sqlSynthesizer, queryExecutor, and resultVerifier are the three stages the
// retry controller drives. The concrete implementations live in synthesis,
// store, and verify.
type sqlSynthesizer interface {
	Synthesize(ctx context.Context, req synthesis.Request) types.SQLSynthesisResult
}

type queryExecutor interface {
	Execute(ctx context.Context, query string, args ...any) ([]map[string]any, error)
}

type resultVerifier interface {
	Verify(ctx context.Context, req verify.Request) types.VerificationResult
}

// Controller runs the synthesize-execute-verify loop with a bounded number
// of retries. Verification never aborts the loop early with a failure: a
// rejected attempt feeds its issues back into the next synthesis, and when
// the budget runs out the last executable result is accepted anyway.
type Controller struct {
	synthesizer sqlSynthesizer
	executor    queryExecutor
	verifier    resultVerifier
	maxRetries  int
	threshold   int
	logger      *logging.Logger
}

// NewController creates a retry controller. maxRetries is the number of
// retries after the first attempt, so the controller makes at most
// maxRetries+1 attempts.
func NewController(synthesizer sqlSynthesizer, executor queryExecutor, verifier resultVerifier,
	maxRetries, threshold int, logger *logging.Logger,
) *Controller {
	return &Controller{
		synthesizer: synthesizer,
		executor:    executor,
		verifier:    verifier,
		maxRetries:  maxRetries,
		threshold:   threshold,
		logger:      logger,
	}
}

// Run executes the retry loop. The outcome's Attempt is 1-based: the attempt
// whose results were kept.
func (c *Controller) Run(ctx context.Context, req synthesis.Request, sink Sink) types.RetryOutcome {
	var (
		lastRows     []map[string]any
		lastSQL      types.SQLSynthesisResult
		lastVerify   types.VerificationResult
		lastErr      error
		haveExecuted bool
		stoppedAt    int
	)

	for attempt := 1; attempt <= c.maxRetries+1; attempt++ {
		sink.Send(ctx, Event{
			Type:     EventStatus,
			Stage:    StageSynthesis,
			Message:  fmt.Sprintf("generating SQL (attempt %d of %d)", attempt, c.maxRetries+1),
			Progress: attemptProgress(attempt, c.maxRetries+1, 0),
		})

		sqlResult := c.synthesizer.Synthesize(ctx, req)

		if err := synthesis.ValidateSQL(sqlResult.SQLQuery, req.Table); err != nil {
			c.logger.WithError(err).Warnf("attempt %d produced invalid SQL, substituting fallback", attempt)
			sqlResult = synthesis.FallbackResult(req)
		}

		sink.Send(ctx, Event{
			Type:     EventStatus,
			Stage:    StageExecution,
			Message:  "executing query",
			Progress: attemptProgress(attempt, c.maxRetries+1, 1),
		})

		rows, err := c.executor.Execute(ctx, sqlResult.SQLQuery)
		if err != nil {
			c.logger.WithError(err).Warnf("attempt %d execution failed", attempt)

			lastErr = err
			req.Feedback = &synthesis.Feedback{
				IssuesFound: []string{fmt.Sprintf("query failed to execute: %v", err)},
			}

			continue
		}

		haveExecuted = true
		lastRows = rows
		lastSQL = sqlResult
		lastErr = nil

		sink.Send(ctx, Event{
			Type:     EventStatus,
			Stage:    StageVerification,
			Message:  "verifying results",
			Progress: attemptProgress(attempt, c.maxRetries+1, 2),
		})

		verification := c.verifier.Verify(ctx, verify.Request{
			Query:    req.Query,
			SQLQuery: sqlResult.SQLQuery,
			Rows:     rows,
			Analysis: req.Analysis,
			Columns:  req.Columns,
		})
		lastVerify = verification

		if verification.IsValid && verification.ConfidenceScore >= c.threshold {
			return types.RetryOutcome{
				Success:      true,
				QueryResults: rows,
				SQLData:      sqlResult,
				Verification: verification,
				Attempt:      attempt,
				MaxRetries:   c.maxRetries,
			}
		}

		c.logger.WithFields(map[string]any{
			"attempt":    attempt,
			"confidence": verification.ConfidenceScore,
			"is_valid":   verification.IsValid,
		}).Info("verification rejected attempt")

		// The verifier can signal that retrying is pointless. Stop and
		// ship this attempt's data rather than burn the remaining budget.
		if !verification.ShouldRetry {
			stoppedAt = attempt
			break
		}

		req.Feedback = &synthesis.Feedback{
			IssuesFound: verification.IssuesFound,
			Suggestions: verification.Suggestions,
			ImprovedSQL: verification.ImprovedSQL,
		}
	}

	if haveExecuted {
		// Budget exhausted (or the verifier said stop) but we have data:
		// ship the last result rather than fail the request.
		attempt := c.maxRetries + 1
		if stoppedAt > 0 {
			attempt = stoppedAt
		}

		return types.RetryOutcome{
			Success:      true,
			QueryResults: lastRows,
			SQLData:      lastSQL,
			Verification: lastVerify,
			Attempt:      attempt,
			MaxRetries:   c.maxRetries,
		}
	}

	errMsg := "all attempts failed"
	if lastErr != nil {
		errMsg = lastErr.Error()
	}

	return types.RetryOutcome{
		Success:    false,
		Attempt:    c.maxRetries + 1,
		MaxRetries: c.maxRetries,
		Error:      errMsg,
	}
}

// attemptProgress spreads the 50-90 percent band across attempts and their
// three sub-stages.
func attemptProgress(attempt, totalAttempts, subStage int) int {
	const start, span = 50, 40

	perAttempt := span / totalAttempts
	if perAttempt == 0 {
		perAttempt = 1
	}

	progress := start + (attempt-1)*perAttempt + subStage*perAttempt/3
	if progress > start+span {
		progress = start + span
	}

	return progress
}
