package models

import (
	"errors"
	"fmt"
)

// Per-item failure classes. All are recoverable at batch level.
var (
	ErrDataUnavailable   = errors.New("data unavailable")
	ErrPreparationFailed = errors.New("preparation failed")
	ErrEmptyTrainingSet  = errors.New("empty training set")
	ErrTrainingFailed    = errors.New("training failed")
	ErrExportFailed      = errors.New("export failed")
)

// ErrEngineUnavailable marks a forecasting service that could not be reached.
var ErrEngineUnavailable = errors.New("forecast engine unavailable")

// ErrNoUsableData is returned by feature building when nothing survives cleaning.
var ErrNoUsableData = fmt.Errorf("%w: no usable data", ErrPreparationFailed)

// ErrEmptyForecast marks a forecast table with no rows on or after the cutoff.
var ErrEmptyForecast = errors.New("empty forecast")
