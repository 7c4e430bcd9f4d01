package models

import "errors"

// Contract violations. These indicate a caller bug, not bad market data.
var (
	ErrInvalidLookback = errors.New("lookback must be positive")
	ErrInvalidBasis    = errors.New("basis must be close or intraday")
	ErrInvalidSide     = errors.New("side must be high or low")
	ErrInvalidMetric   = errors.New("unknown breadth metric")
	ErrInvalidWindow   = errors.New("window days must be positive")
	ErrInvalidTopN     = errors.New("top n must be positive")
	ErrEmptyUniverse   = errors.New("universe has no symbols")
	ErrInvalidDays     = errors.New("days of history must be positive")
	ErrMisalignedRow   = errors.New("symbol row does not match the date axis")
)

// Upstream and lookup failures.
var (
	ErrRateLimited     = errors.New("upstream rate limited (429)")
	ErrUnknownUniverse = errors.New("unknown universe")
	ErrNoData          = errors.New("no bars returned")
)
