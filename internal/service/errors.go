package service

import (
	"errors"

	"github.com/kjstillabower/weather-dw-loader/internal/client"
	"github.com/kjstillabower/weather-dw-loader/internal/observability"
)

// TransportError means the report could not be fetched or decoded. Nothing was loaded.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "fetch report: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status of a non-200 response, or 0 when the
// request never got a response.
func (e *TransportError) StatusCode() int {
	var se *client.StatusError
	if errors.As(e.Err, &se) {
		return se.StatusCode
	}
	return 0
}

// TransformError means the report could not be turned into records. Nothing was loaded.
type TransformError struct {
	Err error
}

func (e *TransformError) Error() string { return "transform report: " + e.Err.Error() }
func (e *TransformError) Unwrap() error { return e.Err }

// LoadError means connecting, inserting or committing failed. The batch was rolled back.
type LoadError struct {
	Stage string // connect or insert
	Err   error
}

func (e *LoadError) Error() string { return "load " + e.Stage + ": " + e.Err.Error() }
func (e *LoadError) Unwrap() error { return e.Err }

// Outcome maps a Run error to its etlRunsTotal label.
func Outcome(err error) string {
	var (
		te *TransportError
		fe *TransformError
		le *LoadError
	)
	switch {
	case err == nil:
		return observability.OutcomeSuccess
	case errors.As(err, &te):
		return observability.OutcomeTransport
	case errors.As(err, &fe):
		return observability.OutcomeTransform
	case errors.As(err, &le):
		return observability.OutcomeLoad
	default:
		return observability.OutcomeLoad
	}
}
