package metrics

import "codeberg.org/mutker/obsctl/internal/errors"

const (
	ErrInitMetrics        = errors.ErrInitMetrics
	ErrIncompatibleMetric = errors.ErrorCode("metrics_incompatible_collector")
)
