package runtime

import (
	"errors"
	"fmt"

	"github.com/eigerco/hashmint/internal/store"
)

// Error is a rejection with a stable numeric code. Codes cross the wire,
// so a client can match a remote rejection against the same sentinel.
type Error struct {
	Code uint32
	Name string
	Msg  string
}

func NewError(code uint32, name, msg string) *Error {
	return &Error{Code: code, Name: name, Msg: msg}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Code, e.Msg)
}

// Is matches on code and name, which lets an error rebuilt from a wire
// response compare equal to the local sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Name == e.Name
}

// Instruction and account errors, numbered like the program framework the
// clients already understand.
var (
	ErrInstructionMissing           = NewError(100, "InstructionMissing", "8 byte instruction identifier not provided")
	ErrInstructionFallbackNotFound  = NewError(101, "InstructionFallbackNotFound", "Fallback functions are not supported")
	ErrInstructionDidNotDeserialize = NewError(102, "InstructionDidNotDeserialize", "The program could not deserialize the given instruction")
	ErrConstraintSeeds              = NewError(2006, "ConstraintSeeds", "A seeds constraint was violated")
	ErrConstraintAssociated         = NewError(2009, "ConstraintAssociated", "An associated constraint was violated")
	ErrAccountDiscriminatorMismatch = NewError(3002, "AccountDiscriminatorMismatch", "Account discriminator did not match what was expected")
	ErrAccountDidNotDeserialize     = NewError(3003, "AccountDidNotDeserialize", "Failed to deserialize the account")
	ErrAccountOwnedByWrongProgram   = NewError(3007, "AccountOwnedByWrongProgram", "The given account is owned by a different program than expected")
	ErrAccountNotInitialized        = NewError(3012, "AccountNotInitialized", "The program expected this account to be already initialized")
)

// Host errors.
var (
	ErrInternal           = NewError(9000, "InternalError", "internal error")
	ErrProgramNotFound    = NewError(9001, "ProgramNotFound", "no program is registered under the given id")
	ErrAccountNotDeclared = NewError(9002, "AccountNotDeclared", "instruction touched an account it did not declare")
	ErrArithmeticOverflow = NewError(9003, "ArithmeticOverflow", "arithmetic overflow")
)

// Code returns the wire code of err, zero for nil.
func Code(err error) uint32 {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if errors.Is(err, store.ErrAccountNotDeclared) {
		return ErrAccountNotDeclared.Code
	}
	return ErrInternal.Code
}

// AsError converts any error into a coded one, keeping coded errors as they are.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, store.ErrAccountNotDeclared) {
		return ErrAccountNotDeclared
	}
	return &Error{Code: ErrInternal.Code, Name: ErrInternal.Name, Msg: err.Error()}
}
