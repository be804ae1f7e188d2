package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ValentinKolb/dCDT/lib/cdt"
	"github.com/ValentinKolb/dCDT/lib/record"
)

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal (server) error.
	RetCUnsupportedOperation                // 2: Operation is not supported by underlying database.
	RetCInvalidOperation                    // 3: Invalid operation or parameter.
	RetCRecordNotFound                      // 4: The record does not exist.
	RetCBinNotFound                         // 5: The bin does not exist.
	RetCIndexOutOfRange                     // 6: A list or map index is out of range.
	RetCRankOutOfRange                      // 7: A rank is out of range.
	RetCTypeMismatch                        // 8: The bin or context step holds the wrong type.
	RetCElementNotFound                     // 9: A context step matched no element.
	RetCUDFError                            // 10: The UDF is unknown or failed.
	RetCClientError                         // 11: The client could not reach the server.
	RetCMaxErrorRate                        // 12: The client rejected the request after too many errors.
	RetCTimeout                             // 13: The request timed out.
)

var retCodeNames = [...]string{
	RetCSuccess:              "Success",
	RetCInternalError:        "InternalError",
	RetCUnsupportedOperation: "UnsupportedOperation",
	RetCInvalidOperation:     "InvalidOperation",
	RetCRecordNotFound:       "RecordNotFound",
	RetCBinNotFound:          "BinNotFound",
	RetCIndexOutOfRange:      "IndexOutOfRange",
	RetCRankOutOfRange:       "RankOutOfRange",
	RetCTypeMismatch:         "TypeMismatch",
	RetCElementNotFound:      "ElementNotFound",
	RetCUDFError:             "UDFError",
	RetCClientError:          "ClientError",
	RetCMaxErrorRate:         "MaxErrorRate",
	RetCTimeout:              "Timeout",
}

func (c RetCode) String() string {
	if int(c) < len(retCodeNames) {
		return retCodeNames[c]
	}
	return "Unknown"
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

var (
	// ErrClient is matched by errors with RetCClientError.
	ErrClient = errors.New("client error")
	// ErrMaxErrorRate is matched by errors with RetCMaxErrorRate.
	ErrMaxErrorRate = errors.New("max error rate exceeded")
	// ErrInternal is matched by errors with RetCInternalError.
	ErrInternal = errors.New("internal error")
	// ErrUnsupported is matched by errors with RetCUnsupportedOperation.
	ErrUnsupported = errors.New("unsupported operation")
)

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("StoreError (code %s): %s", e.Code, e.Msg)
}

// Unwrap returns the sentinel error of the code, so errors.Is works the same
// for errors created locally and errors rebuilt from an RPC response.
func (e *Error) Unwrap() error {
	switch e.Code {
	case RetCInternalError:
		return ErrInternal
	case RetCUnsupportedOperation:
		return ErrUnsupported
	case RetCInvalidOperation:
		return cdt.ErrInvalidParam
	case RetCRecordNotFound:
		return record.ErrRecordNotFound
	case RetCBinNotFound:
		return record.ErrBinNotFound
	case RetCIndexOutOfRange:
		return cdt.ErrIndexOutOfRange
	case RetCRankOutOfRange:
		return cdt.ErrRankOutOfRange
	case RetCTypeMismatch:
		return cdt.ErrTypeMismatch
	case RetCElementNotFound:
		return cdt.ErrElementNotFound
	case RetCUDFError:
		return record.ErrUDFNotFound
	case RetCClientError:
		return ErrClient
	case RetCMaxErrorRate:
		return ErrMaxErrorRate
	case RetCTimeout:
		return context.DeadlineExceeded
	default:
		return nil
	}
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// FromError converts err into an *Error. Errors that already are an *Error
// are returned as is; known sentinel errors get their matching code and
// everything else becomes RetCInternalError.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewError(CodeOf(err), err.Error())
}

// CodeOf returns the RetCode for err.
func CodeOf(err error) RetCode {
	var e *Error
	switch {
	case err == nil:
		return RetCSuccess
	case errors.As(err, &e):
		return e.Code
	case errors.Is(err, record.ErrRecordNotFound):
		return RetCRecordNotFound
	case errors.Is(err, record.ErrBinNotFound):
		return RetCBinNotFound
	case errors.Is(err, record.ErrUDFNotFound):
		return RetCUDFError
	case errors.Is(err, cdt.ErrIndexOutOfRange):
		return RetCIndexOutOfRange
	case errors.Is(err, cdt.ErrRankOutOfRange):
		return RetCRankOutOfRange
	case errors.Is(err, cdt.ErrTypeMismatch):
		return RetCTypeMismatch
	case errors.Is(err, cdt.ErrElementNotFound):
		return RetCElementNotFound
	case errors.Is(err, cdt.ErrInvalidParam),
		errors.Is(err, cdt.ErrUnsupportedValue),
		errors.Is(err, cdt.ErrMalformed):
		return RetCInvalidOperation
	case errors.Is(err, context.DeadlineExceeded):
		return RetCTimeout
	default:
		return RetCInternalError
	}
}

// IsClientError reports whether err was raised on the client side
// (the request may never have reached the server).
func IsClientError(err error) bool {
	switch CodeOf(err) {
	case RetCClientError, RetCMaxErrorRate, RetCTimeout:
		return true
	default:
		return false
	}
}
