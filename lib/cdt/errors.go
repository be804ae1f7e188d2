package cdt

import "errors"

// --------------------------------------------------------------------------
// Sentinel Errors
// --------------------------------------------------------------------------

// The errors returned by this package wrap one of the following sentinels,
// so callers can classify them with errors.Is.
var (
	ErrIndexOutOfRange  = errors.New("index out of range")
	ErrRankOutOfRange   = errors.New("rank out of range")
	ErrTypeMismatch     = errors.New("type mismatch")
	ErrInvalidParam     = errors.New("invalid parameter")
	ErrElementNotFound  = errors.New("element not found")
	ErrUnsupportedValue = errors.New("unsupported value type")
)
