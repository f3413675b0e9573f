package tserr

import (
	"errors"
	"fmt"
)

// Code identifies an error kind with a stable integer tag.
// Tags are part of the public contract and must not be renumbered.
type Code int

const (
	CodeOK Code = iota
	CodeInvalidArg
	CodeInvalidState
	CodeAlreadyExists
	CodeNotExist
	CodeDeviceNotExist
	CodeMeasurementNotExist
	CodeTableNotExist
	CodeColumnNotExist
	CodeInvalidDataPoint
	CodeFileReadErr
	CodeFileWriteErr
	CodeCorrupted
	CodeOOM
	CodeNoMoreData
	CodeNotSupported
	CodeUnsupportedOrder
	CodeStatisticsClassMismatch
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeInvalidArg:
		return "INVALID_ARG"
	case CodeInvalidState:
		return "INVALID_STATE"
	case CodeAlreadyExists:
		return "ALREADY_EXISTS"
	case CodeNotExist:
		return "NOT_EXIST"
	case CodeDeviceNotExist:
		return "DEVICE_NOT_EXIST"
	case CodeMeasurementNotExist:
		return "MEASUREMENT_NOT_EXIST"
	case CodeTableNotExist:
		return "TABLE_NOT_EXIST"
	case CodeColumnNotExist:
		return "COLUMN_NOT_EXIST"
	case CodeInvalidDataPoint:
		return "INVALID_DATA_POINT"
	case CodeFileReadErr:
		return "FILE_READ_ERR"
	case CodeFileWriteErr:
		return "FILE_WRITE_ERR"
	case CodeCorrupted:
		return "TSFILE_CORRUPTED"
	case CodeOOM:
		return "OOM"
	case CodeNoMoreData:
		return "NO_MORE_DATA"
	case CodeNotSupported:
		return "NOT_SUPPORTED"
	case CodeUnsupportedOrder:
		return "UNSUPPORTED_ORDER"
	case CodeStatisticsClassMismatch:
		return "STATISTICS_CLASS_MISMATCH"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(c))
	}
}

// Error is a coded error. Callers match with errors.Is against the
// package sentinels or inspect CodeOf(err).
type Error struct {
	Kind Code
	Msg  string
	Err  error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Msg == "" && e.Err == nil {
		return e.Kind.String()
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same code, so
// errors.Is(err, tserr.NotExist) works on wrapped instances.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return e.Kind == te.Kind
	}
	return false
}

// New creates a coded error with a formatted message.
func New(kind Code, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code to an underlying error.
func Wrap(kind Code, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the code from err, or CodeOK for nil and
// an untyped error maps to CodeInvalidState.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return CodeInvalidState
}

// Sentinels for errors.Is matching.
var (
	InvalidArg              = &Error{Kind: CodeInvalidArg}
	InvalidState            = &Error{Kind: CodeInvalidState}
	AlreadyExists           = &Error{Kind: CodeAlreadyExists}
	NotExist                = &Error{Kind: CodeNotExist}
	DeviceNotExist          = &Error{Kind: CodeDeviceNotExist}
	MeasurementNotExist     = &Error{Kind: CodeMeasurementNotExist}
	TableNotExist           = &Error{Kind: CodeTableNotExist}
	ColumnNotExist          = &Error{Kind: CodeColumnNotExist}
	InvalidDataPoint        = &Error{Kind: CodeInvalidDataPoint}
	FileReadErr             = &Error{Kind: CodeFileReadErr}
	FileWriteErr            = &Error{Kind: CodeFileWriteErr}
	Corrupted               = &Error{Kind: CodeCorrupted}
	NoMoreData              = &Error{Kind: CodeNoMoreData}
	NotSupported            = &Error{Kind: CodeNotSupported}
	UnsupportedOrder        = &Error{Kind: CodeUnsupportedOrder}
	StatisticsClassMismatch = &Error{Kind: CodeStatisticsClassMismatch}
)
