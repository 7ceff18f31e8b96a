package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrWarmupFailed is returned when every attempt of a run failed
	ErrWarmupFailed = errors.New("dashboard warmup failed")
)
