package archive

import (
	"errors"
	"fmt"
)

// Stage names the archive step that failed.
type Stage string

const (
	StageCapability Stage = "capability"
	StageProbe      Stage = "probe"
	StageFetch      Stage = "fetch"
	StageExport     Stage = "export"
)

// ErrNotTextBased is returned for channels that have no readable message history.
var ErrNotTextBased = errors.New("channel does not support message history")

// StageError wraps the cause of a failed archive with the stage it failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("archive %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// FailedStage returns the stage of an archive error, or "" if err is not a StageError.
func FailedStage(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
