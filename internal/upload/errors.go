package upload

import (
	"errors"
	"fmt"
)

// ErrUploadFailed matches every *FailedError via errors.Is.
var ErrUploadFailed = errors.New("upload: failed")

// ErrTooLarge is returned before any stage runs when the payload exceeds the
// single-PUT limit.
var ErrTooLarge = errors.New("upload: payload exceeds single upload limit")

// FailedError reports the stage that aborted an upload and the attempt as it
// stood at that point. Err is the stage's own error.
type FailedError struct {
	Stage   Stage
	Attempt Attempt
	Err     error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("upload: %q failed at %s stage (attempt %s): %v",
		e.Attempt.FileName, e.Stage, e.Attempt.ID, e.Err)
}

// Is makes errors.Is(err, ErrUploadFailed) true for any FailedError.
func (e *FailedError) Is(target error) bool {
	return target == ErrUploadFailed
}

func (e *FailedError) Unwrap() error {
	return e.Err
}
