package qdrant

import (
	"errors"
	"fmt"
)

type OperationErrorCode string

const (
	OperationErrorValidation      OperationErrorCode = "validation_failed"
	OperationErrorEncodeFailed    OperationErrorCode = "encode_failed"
	OperationErrorDecodeFailed    OperationErrorCode = "decode_failed"
	OperationErrorTransportFailed OperationErrorCode = "transport_failed"
	OperationErrorTimeout         OperationErrorCode = "timeout"
	OperationErrorQueryFailed     OperationErrorCode = "query_failed"
)

type OperationError struct {
	Code       OperationErrorCode
	Operation  string
	StatusCode int
	Message    string
	Cause      error
}

func (e *OperationError) Error() string {
	if e == nil {
		return "qdrant operation failed"
	}
	if e.Message != "" {
		return fmt.Sprintf(
			"qdrant operation failed (op=%s code=%s status=%d): %s",
			e.Operation,
			e.Code,
			e.StatusCode,
			e.Message,
		)
	}
	if e.Cause != nil {
		return fmt.Sprintf(
			"qdrant operation failed (op=%s code=%s status=%d): %v",
			e.Operation,
			e.Code,
			e.StatusCode,
			e.Cause,
		)
	}
	return fmt.Sprintf(
		"qdrant operation failed (op=%s code=%s status=%d)",
		e.Operation,
		e.Code,
		e.StatusCode,
	)
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func opErr(op string, code OperationErrorCode, msg string, cause error) error {
	return &OperationError{
		Code:      code,
		Operation: op,
		Message:   msg,
		Cause:     cause,
	}
}

// IsUnavailable reports whether the error means the index cannot be
// reached right now, as opposed to a malformed request. The search
// adapter degrades to its catalog fallback on unavailable errors only.
func IsUnavailable(err error) bool {
	var oe *OperationError
	if !errors.As(err, &oe) {
		return false
	}
	switch oe.Code {
	case OperationErrorTransportFailed, OperationErrorTimeout:
		return true
	case OperationErrorQueryFailed:
		return oe.StatusCode >= 500 || oe.StatusCode == 0
	default:
		return false
	}
}
