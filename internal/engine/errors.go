package engine

import "fmt"

// ConfigError reports a malformed or out-of-bounds configuration, raised
// before any scheduling work starts.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "config error: " + e.Msg }

func newConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// DataError reports a worker-data inconsistency discovered during the
// mandatory-lock phase: a mandatory date outside the horizon, overlapping
// mandatory dates for one worker, or two mutually-incompatible workers both
// mandatory on the same date.
type DataError struct {
	Msg string
}

func (e *DataError) Error() string { return "data error: " + e.Msg }

func newDataError(format string, args ...any) *DataError {
	return &DataError{Msg: fmt.Sprintf(format, args...)}
}

// SchedulerError reports an invariant violation found at the end of a run
// that repair() could not resolve.
type SchedulerError struct {
	Msg        string
	Violations []string
}

func (e *SchedulerError) Error() string {
	return fmt.Sprintf("scheduler error: %s (%d violation(s))", e.Msg, len(e.Violations))
}

func newSchedulerError(msg string, violations []string) *SchedulerError {
	return &SchedulerError{Msg: msg, Violations: violations}
}
