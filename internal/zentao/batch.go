package zentao

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

const (
	defaultBatchSize = 20
	maxBatchSize     = 500
)

// BatchItem records one successfully resolved bug.
type BatchItem struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// BatchError records one failed candidate.
type BatchError struct {
	ID    int64  `json:"id"`
	Error string `json:"error"`
}

// BatchOutcome partitions a list-then-resolve run. attempted = resolved +
// failed always holds; attempted never exceeds requested or the item cap.
type BatchOutcome struct {
	Requested int          `json:"requested"`
	Attempted int          `json:"attempted"`
	Resolved  int          `json:"resolved"`
	Failed    int          `json:"failed"`
	Success   []BatchItem  `json:"success"`
	Errors    []BatchError `json:"errors"`
}

// BatchResolveMyBugs lists matching bugs once, then resolves each candidate
// strictly sequentially. Sequential execution keeps the load inside the
// upstream's rate tolerance and makes per-item error attribution trivial.
// Per-item failures are recorded, not propagated; stopOnError halts the loop
// at the first failure.
func (c *Client) BatchResolveMyBugs(
	ctx context.Context,
	filter BugFilter,
	resolve ResolveOptions,
	maxItems int,
	stopOnError bool,
) (*BatchOutcome, error) {
	if maxItems <= 0 {
		maxItems = defaultBatchSize
	}
	if maxItems > maxBatchSize {
		maxItems = maxBatchSize
	}

	listing, err := c.MyBugs(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing batch candidates: %w", err)
	}

	candidates := listing.Bugs
	if len(candidates) > maxItems {
		candidates = candidates[:maxItems]
	}

	outcome := &BatchOutcome{
		Requested: listing.Matched,
		Success:   []BatchItem{},
		Errors:    []BatchError{},
	}

	logger := c.logger.With().Str("operation", "batch_resolve").Logger()
	for _, candidate := range candidates {
		id, ok := RecordID(candidate)
		if !ok {
			// A candidate without an ID fails without consuming a resolve call.
			outcome.Attempted++
			outcome.Failed++
			outcome.Errors = append(outcome.Errors, BatchError{Error: ErrMissingIdentifier.Error()})
			if stopOnError {
				break
			}
			continue
		}

		outcome.Attempted++
		if _, err := c.ResolveBug(ctx, id, resolve); err != nil {
			outcome.Failed++
			outcome.Errors = append(outcome.Errors, BatchError{ID: id, Error: err.Error()})
			logItemFailure(logger, id, err)
			if stopOnError {
				break
			}
			continue
		}
		outcome.Resolved++
		outcome.Success = append(outcome.Success, BatchItem{ID: id, Status: "resolved"})
	}

	logger.Info().
		Int("requested", outcome.Requested).
		Int("attempted", outcome.Attempted).
		Int("resolved", outcome.Resolved).
		Int("failed", outcome.Failed).
		Msg("batch resolve completed")
	return outcome, nil
}

func logItemFailure(logger zerolog.Logger, id int64, err error) {
	logger.Warn().Int64("bug", id).Err(err).Msg("batch item failed")
}
