package engine

import (
	"errors"
	"fmt"
	"io/fs"
)

// Status is the numeric open status reported by an engine. Values follow the
// libzip error numbering so codes stay comparable across engines.
type Status int

const (
	StatusOK           Status = 0
	StatusRead         Status = 5
	StatusNoEnt        Status = 9
	StatusExists       Status = 10
	StatusOpen         Status = 11
	StatusNoZip        Status = 19
	StatusInconsistent Status = 21
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusRead:
		return "read error"
	case StatusNoEnt:
		return "no such file"
	case StatusExists:
		return "file already exists"
	case StatusOpen:
		return "can't open file"
	case StatusNoZip:
		return "not a zip archive"
	case StatusInconsistent:
		return "zip archive inconsistent"
	default:
		return fmt.Sprintf("status %d", int(s))
	}
}

// OpenError is returned when an engine cannot create or open an archive.
type OpenError struct {
	Path   string
	Status Status
	Err    error
}

func (e *OpenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("archive file %s could not be opened: %s (return code %d): %v", e.Path, e.Status, int(e.Status), e.Err)
	}
	return fmt.Sprintf("archive file %s could not be opened: %s (return code %d)", e.Path, e.Status, int(e.Status))
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// NewOpenError builds an OpenError, deriving the status from err when status
// is StatusOK.
func NewOpenError(path string, status Status, err error) *OpenError {
	if status == StatusOK {
		status = StatusFromError(err)
	}
	return &OpenError{Path: path, Status: status, Err: err}
}

// StatusFromError maps filesystem errors onto engine status codes.
func StatusFromError(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, fs.ErrNotExist):
		return StatusNoEnt
	case errors.Is(err, fs.ErrExist):
		return StatusExists
	default:
		return StatusOpen
	}
}
