package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound    = errors.New("resource not found")
	ErrRunNotFound = fmt.Errorf("%w: run", ErrNotFound)

	// Program construction errors
	ErrInvalidProgram   = errors.New("invalid model program")
	ErrProgramTooLong   = fmt.Errorf("%w: too many instructions", ErrInvalidProgram)
	ErrEmptyProgram     = fmt.Errorf("%w: no instructions", ErrInvalidProgram)
	ErrUnknownOpcode    = fmt.Errorf("%w: unknown opcode", ErrInvalidProgram)
	ErrInputIndex       = fmt.Errorf("%w: input index out of range", ErrInvalidProgram)
	ErrStackOverflow    = fmt.Errorf("%w: stack depth exceeded", ErrInvalidProgram)
	ErrStackUnderflow   = fmt.Errorf("%w: stack underflow", ErrInvalidProgram)
	ErrUnbalancedResult = fmt.Errorf("%w: program must leave exactly one value", ErrInvalidProgram)

	// Input declaration errors
	ErrInvalidInput     = errors.New("invalid input declaration")
	ErrUnknownFamily    = fmt.Errorf("%w: unknown distribution family", ErrInvalidInput)
	ErrTooManyInputs    = fmt.Errorf("%w: too many inputs", ErrInvalidInput)
	ErrDuplicateInput   = fmt.Errorf("%w: duplicate input name", ErrInvalidInput)
	ErrInvalidParameter = fmt.Errorf("%w: invalid distribution parameter", ErrInvalidInput)

	// Seeding errors
	ErrDegenerateSeed = errors.New("degenerate generator state")
	ErrSeedMismatch   = errors.New("seed mismatch")

	// Wire layout errors
	ErrShortBuffer = errors.New("buffer too short")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("validation failed for %s: %s", field, reason)
}

func NewProgramError(sentinel error, at int, detail string) error {
	return fmt.Errorf("%w at instruction %d: %s", sentinel, at, detail)
}

func NewInputError(sentinel error, name string, detail string) error {
	return fmt.Errorf("%w for input %q: %s", sentinel, name, detail)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsProgramError(err error) bool {
	return errors.Is(err, ErrInvalidProgram)
}

func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
