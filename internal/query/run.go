package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/tempo/internal/model"
	"github.com/roach88/tempo/internal/store"
)

// Run parses src once and evaluates it for each interval, returning one
// value per interval in request order.
//
// Each interval runs inside its own exclusive section of st, so other
// callers may interleave between intervals. The first error aborts the
// whole request; store unavailability is returned unchanged.
func Run(ctx context.Context, st *store.Store, src string, intervals []model.TimeInterval, opts ...Option) ([]Value, error) {
	prog, err := Parse(src)
	if err != nil {
		return nil, err
	}
	o := buildOptions(opts)

	results := make([]Value, 0, len(intervals))
	for i, interval := range intervals {
		start := time.Now()
		var result Value
		err := st.Do(ctx, func(tx *store.Tx) error {
			var err error
			result, err = Evaluate(tx.Context(), prog, interval, tx, opts...)
			return err
		})
		if err != nil {
			if store.IsUnavailable(err) {
				return nil, err
			}
			return nil, fmt.Errorf("interval %d (%s): %w", i, interval, err)
		}
		o.logger.Debug("query interval evaluated",
			"interval", interval.String(),
			"duration", time.Since(start),
		)
		results = append(results, result)
	}
	return results, nil
}

// JoinLines joins script lines the way query requests carry them.
func JoinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
