package model

import "errors"

// Error taxonomy for the ingest and sizing boundaries. All of these are
// returned as values so callers can log-and-continue per tick or signal
// without tearing down the pipeline.
var (
	// ErrInvalidData rejects a malformed tick: empty instrument, zero
	// timestamp, or non-positive price/volume.
	ErrInvalidData = errors.New("invalid tick data")

	// ErrOutOfOrder rejects a tick timestamped before the instrument
	// watermark minus the reordering window.
	ErrOutOfOrder = errors.New("tick out of order")

	// ErrInsufficientHistory is returned when a classifier or indicator is
	// queried before its warm-up window is satisfied. In the generator path
	// it is not a fault; it simply suppresses evaluation.
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrInvalidRiskParameters rejects non-positive sizing inputs. Never
	// silently clamped.
	ErrInvalidRiskParameters = errors.New("invalid risk parameters")
)
