package personalization

import (
	"context"
	"log/slog"
	"time"
)

// BatchOptions controls a batch recalculation run.
type BatchOptions struct {
	// BatchSize bounds how many user ids are loaded per page.
	BatchSize int
	// OnlyUninitialized restricts the run to users without a stored profile,
	// used for backfills.
	OnlyUninitialized bool
}

// BatchResult summarizes a batch recalculation run.
type BatchResult struct {
	Total    int           `json:"total"`
	Updated  int           `json:"updated"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// BatchCalculate recomputes preference profiles for all (or all
// uninitialized) users in bounded batches. A single user's failure is logged
// and counted but never aborts the run; only a failure to page user ids stops
// the batch, since that means the store itself is unreachable.
func (m *Model) BatchCalculate(ctx context.Context, opts BatchOptions) (*BatchResult, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}

	start := time.Now()
	result := &BatchResult{}
	afterID := ""

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		userIDs, err := m.prefs.ListUserIDs(ctx, opts.OnlyUninitialized, afterID, opts.BatchSize)
		if err != nil {
			return nil, err
		}
		if len(userIDs) == 0 {
			break
		}

		for _, userID := range userIDs {
			result.Total++

			profile, err := m.Calculate(ctx, userID)
			if err != nil {
				result.Failed++
				m.logger.ErrorContext(ctx, "preference recalculation failed for user",
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
				continue
			}
			if profile.IsEmpty() {
				result.Skipped++
				continue
			}
			result.Updated++
		}

		afterID = userIDs[len(userIDs)-1]
		if len(userIDs) < opts.BatchSize {
			break
		}
	}

	result.Duration = time.Since(start)

	m.logger.InfoContext(ctx, "preference batch recalculation finished",
		slog.Int("total", result.Total),
		slog.Int("updated", result.Updated),
		slog.Int("skipped", result.Skipped),
		slog.Int("failed", result.Failed),
		slog.Duration("duration", result.Duration),
	)

	return result, nil
}
