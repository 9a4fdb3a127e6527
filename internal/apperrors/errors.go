// Package apperrors is the failure taxonomy returned across the analytics boundary.
//
// Every error is created with a correlation id so callers can match their logs
// with the entries written here.
package apperrors

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Kind failure category
type Kind string

const (
	KindInsufficientData   Kind = "INSUFFICIENT_DATA"
	KindCalculationFailure Kind = "CALCULATION_FAILURE"
	KindDatabaseOperation  Kind = "DATABASE_OPERATION_FAILED"
	KindBackgroundJob      Kind = "BACKGROUND_JOB_FAILED"
	KindInvalidInput       Kind = "INVALID_INPUT"
)

// Error tagged failure
type Error struct {
	Kind          Kind
	Op            string
	Message       string
	CorrelationID string
	// Required/Available are set for KindInsufficientData
	Required  int
	Available int
	Context   map[string]interface{}
	Err       error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return fmt.Sprintf("%s [%s] %s (correlation_id=%s)", e.Op, e.Kind, msg, e.CorrelationID)
}

func (e *Error) Unwrap() error { return e.Err }

// ClientCorrectable true for failures the caller can fix by changing the request
func (e *Error) ClientCorrectable() bool {
	return e.Kind == KindInsufficientData || e.Kind == KindInvalidInput
}

// Fields zap fields describing the error
func (e *Error) Fields() []zap.Field {
	fields := []zap.Field{
		zap.String("error_kind", string(e.Kind)),
		zap.String("operation", e.Op),
		zap.String("correlation_id", e.CorrelationID),
	}
	if e.Kind == KindInsufficientData {
		fields = append(fields, zap.Int("required", e.Required), zap.Int("available", e.Available))
	}
	if len(e.Context) > 0 {
		fields = append(fields, zap.Any("context", e.Context))
	}
	if e.Err != nil {
		fields = append(fields, zap.Error(e.Err))
	}
	return fields
}

func newError(kind Kind, op, msg string, ctx map[string]interface{}, err error) *Error {
	return &Error{
		Kind:          kind,
		Op:            op,
		Message:       msg,
		CorrelationID: uuid.NewString(),
		Context:       ctx,
		Err:           err,
	}
}

// InsufficientData fewer records than the operation needs
func InsufficientData(op string, required, available int, ctx map[string]interface{}) *Error {
	e := newError(KindInsufficientData, op,
		fmt.Sprintf("insufficient data: requires at least %d records, found %d", required, available), ctx, nil)
	e.Required = required
	e.Available = available
	return e
}

// CalculationFailure a derived value came out non-finite or otherwise invalid
func CalculationFailure(op, msg string, ctx map[string]interface{}) *Error {
	return newError(KindCalculationFailure, op, msg, ctx, nil)
}

// DatabaseFailure the store raised
func DatabaseFailure(op string, err error, ctx map[string]interface{}) *Error {
	return newError(KindDatabaseOperation, op, "database operation failed", ctx, err)
}

// BackgroundJobFailure a scheduled run failed
func BackgroundJobFailure(job string, err error) *Error {
	return newError(KindBackgroundJob, job, "background job failed", nil, err)
}

// InvalidInput request arguments rejected before any work
func InvalidInput(op, msg string, ctx map[string]interface{}) *Error {
	return newError(KindInvalidInput, op, msg, ctx, nil)
}

// As unwraps err into *Error
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err carries kind
func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

// KindOf returns the kind of err or "" for untagged errors
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return ""
}

// LogFields zap fields for any error; tagged errors get their full context
func LogFields(err error) []zap.Field {
	if appErr, ok := As(err); ok {
		return appErr.Fields()
	}
	return []zap.Field{zap.Error(err)}
}
