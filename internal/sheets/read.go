package sheets

import (
	"context"

	"amazon_rank_sync/internal/retry"
)

// ReadRanges reads ranges through svc, retrying transient failures per cfg.
func ReadRanges(ctx context.Context, svc Service, cfg retry.Config, ranges ...string) ([][][]interface{}, error) {
	values, err := retry.WithRetry(ctx, cfg, func(ctx context.Context) ([][][]interface{}, error) {
		return svc.ReadRanges(ctx, ranges)
	})
	if err != nil {
		return nil, &RangeReadError{Ranges: ranges, Err: err}
	}
	return values, nil
}

// ReadRange reads a single range and returns its rows.
func ReadRange(ctx context.Context, svc Service, cfg retry.Config, rng string) ([][]interface{}, error) {
	values, err := ReadRanges(ctx, svc, cfg, rng)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values[0], nil
}
