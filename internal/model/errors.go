package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("complaint not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrConflict          = errors.New("version conflict")
	ErrValidation        = errors.New("validation failed")
	ErrTransient         = errors.New("transient store failure")
)

// TransitionError describes a rejected lifecycle edge.
type TransitionError struct {
	From   Status
	To     Status
	Action Action
	Reason string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("invalid transition %s -> %s (%s)", e.From, e.To, e.Action)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

type transientError struct {
	err error
}

func (e *transientError) Error() string {
	return fmt.Sprintf("%s: %v", ErrTransient, e.err)
}

func (e *transientError) Unwrap() error { return e.err }

func (e *transientError) Is(target error) bool {
	return target == ErrTransient
}

// Transient marks err as retryable. Nil stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	if IsTransient(err) {
		return err
	}
	return &transientError{err: err}
}

func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
