package session

import (
	"errors"
	"fmt"
)

// Failure classes. Wrapped errors keep these reachable through errors.Is.
var (
	ErrModelLoad       = errors.New("model load failed")
	ErrInvalidHandle   = errors.New("invalid or stale handle")
	ErrInvalidModel    = errors.New("invalid model handle")
	ErrContextCreate   = errors.New("context creation failed")
	ErrTokenization    = errors.New("tokenization failed")
	ErrDecode          = errors.New("decode failed")
	ErrCallbackBinding = errors.New("callback binding failed")
	ErrBusy            = errors.New("generation already in progress")
)

// Phase tells where a decode failed.
type Phase string

const (
	// PhasePrefill failures abort the call.
	PhasePrefill Phase = "prefill"
	// PhaseGeneration failures end the loop early but keep partial output.
	PhaseGeneration Phase = "generation"
)

// DecodeError is a backend evaluation failure.
type DecodeError struct {
	Phase Phase
	Pos   int
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode failed during %s at pos %d: %v", e.Phase, e.Pos, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrDecode) hold for every DecodeError.
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }
