// Package fault defines the error taxonomy shared by the training driver.
//
// Callers classify failures with errors.Is against the sentinels below and
// get a stage-tagged diagnostic from StageError:
//
//	err := fault.At(fault.StageCheckpointSave, path, writeErr)
//	// checkpoint save: results/run/weights-1000: disk full
package fault

import (
	"errors"
	"fmt"
)

// Taxonomy sentinels.
var (
	ErrConfiguration      = errors.New("configuration error")
	ErrCheckpointFormat   = errors.New("checkpoint format error")
	ErrBenchmarkIntegrity = errors.New("benchmark integrity error")
	ErrDataset            = errors.New("dataset error")
)

// Stage names the part of a run that failed.
type Stage string

// Stages reported in user-visible diagnostics.
const (
	StageConfig            Stage = "config"
	StageDatasetLoad       Stage = "dataset load"
	StageRestore           Stage = "restore"
	StageValidate          Stage = "validate"
	StageTrainStep         Stage = "train step"
	StageEvaluate          Stage = "evaluate"
	StageBenchmarkEvaluate Stage = "benchmark evaluate"
	StageLogAppend         Stage = "log append"
	StagePlot              Stage = "plot"
	StageCheckpointSave    Stage = "checkpoint save"
	StagePublish           Stage = "publish"
)

// StageError attaches the failing stage and the offending path or value to an error.
type StageError struct {
	Stage Stage  // Stage that failed
	Path  string // Offending path or value (may be empty)
	Err   error  // Underlying cause
}

// Error implements the error interface.
func (e *StageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StageError) Unwrap() error {
	return e.Err
}

// At wraps err with stage and path. A nil err yields nil.
func At(stage Stage, path string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Path: path, Err: err}
}

// Configf returns an ErrConfiguration with a formatted detail message.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// Datasetf returns an ErrDataset with a formatted detail message.
func Datasetf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDataset, fmt.Sprintf(format, args...))
}

// StageOf reports the stage of the outermost StageError in err's chain.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
