package errors

import (
	"github.com/mezonai/cubix/jsonx"
)

// StackErrorCode represents standardized error codes for stack engine operations
type StackErrorCode string

const (
	// Structural violations
	ErrCodeInvalidFace  StackErrorCode = "invalid_face"
	ErrCodeInvalidCube  StackErrorCode = "invalid_cube"
	ErrCodeInvalidStack StackErrorCode = "invalid_stack"

	// Rejected input
	ErrCodeInvalidTransaction StackErrorCode = "invalid_transaction"

	// Persistence failures
	ErrCodeDatabase StackErrorCode = "database_error"
	ErrCodeIO       StackErrorCode = "io_error"
)

// Error message constants
const (
	ErrMsgInvalidFace     = "Face is invalid"
	ErrMsgInvalidCube     = "Cube is invalid"
	ErrMsgInvalidStack    = "Stack is invalid"
	ErrMsgDatabase        = "Database operation failed"
	ErrMsgIO              = "Filesystem operation failed"
	ErrMsgSlotOutOfRange  = "Slot index %d out of range [0,%d)"
	ErrMsgMalformedHash   = "Slot %d holds a malformed hash"
	ErrMsgUnpromoted      = "%s %d at level %d is complete but was never promoted"
	ErrMsgLevelMismatch   = "Stack stored under level %d reports level %d"
	ErrMsgBlocksAboveBase = "Level %d holds %d blocks, only level 0 may hold blocks"
	ErrMsgInvalidTx       = "Transaction is invalid"
	ErrMsgNotUTF8         = "%s entry %d is not valid UTF-8"
)

// StackError represents a standardized stack engine error
type StackError struct {
	Code    StackErrorCode `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
}

// Error implements the error interface
func (e *StackError) Error() string {
	out := struct {
		Code    StackErrorCode `json:"code"`
		Message string         `json:"message"`
		Cause   string         `json:"cause,omitempty"`
	}{Code: e.Code, Message: e.Message}
	if e.Err != nil {
		out.Cause = e.Err.Error()
	}
	b, _ := jsonx.Marshal(out)
	return string(b)
}

// Unwrap exposes the underlying cause
func (e *StackError) Unwrap() error {
	return e.Err
}

// Is matches any StackError carrying the same code, so sentinels work with errors.Is.
func (e *StackError) Is(target error) bool {
	t, ok := target.(*StackError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is checks
var (
	ErrInvalidFace  = &StackError{Code: ErrCodeInvalidFace, Message: ErrMsgInvalidFace}
	ErrInvalidCube  = &StackError{Code: ErrCodeInvalidCube, Message: ErrMsgInvalidCube}
	ErrInvalidStack = &StackError{Code: ErrCodeInvalidStack, Message: ErrMsgInvalidStack}
	ErrDatabase     = &StackError{Code: ErrCodeDatabase, Message: ErrMsgDatabase}
	ErrIO           = &StackError{Code: ErrCodeIO, Message: ErrMsgIO}

	ErrInvalidTransaction = &StackError{Code: ErrCodeInvalidTransaction, Message: ErrMsgInvalidTx}
)

// NewError creates a new StackError and returns it as error interface
func NewError(code StackErrorCode, message string) error {
	return &StackError{
		Code:    code,
		Message: message,
	}
}

// Wrap attaches a code and message to an underlying error. A nil cause yields nil.
func Wrap(code StackErrorCode, message string, cause error) error {
	if cause == nil {
		return nil
	}
	return &StackError{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// CodeOf returns the code of the first StackError in err's chain, or "" if there is none.
func CodeOf(err error) StackErrorCode {
	for err != nil {
		if se, ok := err.(*StackError); ok {
			return se.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
