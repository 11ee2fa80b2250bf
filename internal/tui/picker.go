package tui

import (
	"fmt"
	"log/slog"

	"github.com/lepinkainen/coverfetch/internal/book"
	"github.com/lepinkainen/coverfetch/internal/errors"
)

// CandidatePicker asks the operator which search candidate to try first.
type CandidatePicker struct{}

// Pick returns the chosen index. Skipping yields an error wrapping
// errors.ErrSkipped and stopping yields a StopProcessingError. A single
// candidate is picked without prompting.
func (CandidatePicker) Pick(query string, candidates []book.Candidate) (int, error) {
	if len(candidates) == 1 {
		slog.Debug("Auto-selected only candidate", "title", query, "subject", candidates[0].SubjectID)
		return 0, nil
	}

	selection, err := Select(query, candidates)
	if err != nil {
		return 0, fmt.Errorf("TUI selection failed: %w", err)
	}

	switch selection.Action {
	case ActionSelected:
		return selection.Index, nil
	case ActionStopped:
		return 0, errors.NewStopProcessingError("candidate selection stopped by user")
	default:
		slog.Debug("User skipped candidate selection", "title", query)
		return 0, fmt.Errorf("candidate selection for %q: %w", query, errors.ErrSkipped)
	}
}
