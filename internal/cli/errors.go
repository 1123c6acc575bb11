// Package cli provides shared configuration and utilities for the rpcrewrite CLI.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/buildledger/rpcrewrite"
)

// Process exit codes.
const (
	ExitSuccess       = 0
	ExitGeneral       = 1
	ExitConfig        = 2
	ExitSnapshotParse = 3
	ExitRewrite       = 4
)

// ExitError wraps an error with an exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitWithError prints the error and exits with the appropriate code.
func ExitWithError(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(ExitCode(err))
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitGeneral
}

// ConfigError creates an ExitError with ExitConfig code.
func ConfigError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitConfig, Message: msg, Err: err}
}

// SnapshotParseError creates an ExitError with ExitSnapshotParse code.
func SnapshotParseError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitSnapshotParse, Message: msg, Err: err}
}

// RewriteError creates an ExitError with ExitRewrite code.
func RewriteError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitRewrite, Message: msg, Err: err}
}

// GeneralError creates an ExitError with ExitGeneral code.
func GeneralError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitGeneral, Message: msg, Err: err}
}

// PipelineError classifies an error returned by the generator into an
// ExitError carrying the matching exit code.
func PipelineError(err error) *ExitError {
	switch {
	case rpcrewrite.IsStructuralErr(err):
		return SnapshotParseError("parsing snapshot", err)
	case rpcrewrite.IsMissingTableErr(err),
		rpcrewrite.IsNoopRewriteErr(err),
		rpcrewrite.IsInvalidMigrationErr(err):
		return RewriteError("rewriting functions", err)
	default:
		return GeneralError("generating migration", err)
	}
}
