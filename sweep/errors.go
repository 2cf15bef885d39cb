package sweep

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConfigurationError reports an invalid experiment configuration. It is raised
// before any simulator invocation.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func configErrorf(field, format string, args ...interface{}) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// SimulatorInvocationError reports a simulator process that failed or did not
// produce its result file. Fatal to the run.
type SimulatorInvocationError struct {
	ResultID string
	Output   string // combined stdout/stderr, may be empty
	Err      error
}

func (e *SimulatorInvocationError) Error() string {
	msg := fmt.Sprintf("simulator invocation for %s failed: %v", e.ResultID, e.Err)
	if e.Output != "" {
		msg += "\n" + e.Output
	}
	return msg
}

func (e *SimulatorInvocationError) Unwrap() error { return e.Err }

// MissingResultFileError reports a raw result file expected by aggregation that
// does not exist.
type MissingResultFileError struct {
	Path string
}

func (e *MissingResultFileError) Error() string {
	return fmt.Sprintf("missing result file %s", e.Path)
}

// MalformedRecordError reports a raw result row that is too short or holds a
// non-numeric value in a numeric column.
type MalformedRecordError struct {
	Path   string
	Line   int
	Column string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s:%d: column %s: %s", e.Path, e.Line, e.Column, e.Reason)
}

// RendererInvocationError reports a failed renderer run. It is only ever logged
// as a warning; aggregate files written before it stay valid.
type RendererInvocationError struct {
	Descriptor string
	Err        error
}

func (e *RendererInvocationError) Error() string {
	return fmt.Sprintf("rendering %s: %v", e.Descriptor, e.Err)
}

func (e *RendererInvocationError) Unwrap() error { return e.Err }

// IsFatal reports whether err must abort the run. Everything except renderer
// failures is fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var re *RendererInvocationError
	return !errors.As(err, &re)
}
