package errors

import (
	"errors"
	"fmt"
)

// Kinded is implemented by every error type in this package
type Kinded interface {
	error
	Kind() ErrorType
}

// DirectoryNotFoundError is returned when the scan root does not exist or is not a directory
type DirectoryNotFoundError struct {
	Path  string
	Cause error
}

func (e *DirectoryNotFoundError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("directory not found: %s: %v", e.Path, e.Cause)
	}
	return fmt.Sprintf("directory not found: %s", e.Path)
}

func (e *DirectoryNotFoundError) Unwrap() error   { return e.Cause }
func (e *DirectoryNotFoundError) Kind() ErrorType { return ErrTypeNotFound }

// EmptySeriesError is returned when a price file yields no price rows
type EmptySeriesError struct {
	Path string
}

func (e *EmptySeriesError) Error() string {
	if e.Path == "" {
		return "empty price series"
	}
	return fmt.Sprintf("empty price series: %s has no price rows", e.Path)
}

func (e *EmptySeriesError) Kind() ErrorType { return ErrTypeEmptySeries }

// FileParseError identifies a row whose price field could not be read.
// Row is the 1-based line number in the file, the header being row 1.
type FileParseError struct {
	Path   string
	Row    int
	Column int
	Value  string
	Cause  error
}

func (e *FileParseError) Error() string {
	msg := fmt.Sprintf("parse %s: row %d", e.Path, e.Row)
	if e.Column >= 0 {
		msg += fmt.Sprintf(", column %d", e.Column)
	}
	if e.Value != "" {
		msg += fmt.Sprintf(": invalid price %q", e.Value)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *FileParseError) Unwrap() error   { return e.Cause }
func (e *FileParseError) Kind() ErrorType { return ErrTypeParsing }

// ConsistencyError reports an instrument name produced by more than one file.
// FirstWorker and SecondWorker are equal when both files belong to the same group.
type ConsistencyError struct {
	Instrument   string
	FirstWorker  int
	SecondWorker int
	Path         string
}

func (e *ConsistencyError) Error() string {
	msg := fmt.Sprintf("duplicate instrument %q reported by worker %d and worker %d",
		e.Instrument, e.FirstWorker, e.SecondWorker)
	if e.Path != "" {
		msg += fmt.Sprintf(" (%s)", e.Path)
	}
	return msg
}

func (e *ConsistencyError) Kind() ErrorType { return ErrTypeConsistency }

// WorkerFailure wraps the reason a worker stopped without delivering a result
type WorkerFailure struct {
	WorkerID int
	Cause    error
}

func (e *WorkerFailure) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("worker %d failed", e.WorkerID)
	}
	return fmt.Sprintf("worker %d failed: %v", e.WorkerID, e.Cause)
}

func (e *WorkerFailure) Unwrap() error   { return e.Cause }
func (e *WorkerFailure) Kind() ErrorType { return ErrTypeWorker }

// ErrNoResult is the cause of a WorkerFailure for a worker that exited without sending
var ErrNoResult = errors.New("worker exited without sending a result")

// Exit statuses used by cmd/volscan
const (
	ExitOK               = 0
	ExitFailure          = 1
	ExitUsage            = 2
	ExitDirectoryMissing = 3
	ExitInvalidInput     = 4
	ExitConsistency      = 5
	ExitWorkerFailure    = 6
)

// ExitCode maps an error chain to a process exit status.
// The innermost recognised cause wins, so a parse error raised inside a worker
// exits with ExitInvalidInput rather than ExitWorkerFailure.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var dirErr *DirectoryNotFoundError
	if errors.As(err, &dirErr) {
		return ExitDirectoryMissing
	}
	var parseErr *FileParseError
	var emptyErr *EmptySeriesError
	if errors.As(err, &parseErr) || errors.As(err, &emptyErr) {
		return ExitInvalidInput
	}
	var consErr *ConsistencyError
	if errors.As(err, &consErr) {
		return ExitConsistency
	}
	var workerErr *WorkerFailure
	if errors.As(err, &workerErr) {
		return ExitWorkerFailure
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case ErrTypeValidation, ErrTypeConfig:
			return ExitUsage
		}
	}
	return ExitFailure
}

// KindOf returns the type of the outermost typed error in the chain
func KindOf(err error) ErrorType {
	var k Kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return ""
}
