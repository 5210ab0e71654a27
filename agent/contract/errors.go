package contract

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateTool   = errors.New("tool id already registered")
	ErrUnknownTool     = errors.New("tool not registered")
	ErrProfileNotFound = errors.New("user profile not found")

	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrValidation      = errors.New("validation failed")

	// Typed failures tools may return; the classifier maps anything
	// else to api_error.
	ErrRateLimited = errors.New("rate limited by upstream")
	ErrNoData      = errors.New("no data for request")
	ErrBadParams   = errors.New("parameters rejected by tool")
)

// MissingParameterError reports a required tool input that could not be
// resolved from the entity bag.
type MissingParameterError struct {
	Tool  string
	Field string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("tool %s: required parameter %q unresolved", e.Tool, e.Field)
}

// AsMissingParameter unwraps err to a MissingParameterError if present.
func AsMissingParameter(err error) (*MissingParameterError, bool) {
	var mpe *MissingParameterError
	if errors.As(err, &mpe) {
		return mpe, true
	}
	return nil, false
}
