package player

import (
	"errors"
	"fmt"
)

var (
	// ErrDecoder matches every *DecoderError.
	ErrDecoder = errors.New("decoder error")
	// ErrNotLoaded is returned by commands that need media while the engine is idle.
	ErrNotLoaded = errors.New("no media loaded")
	// ErrInvalidState is returned by commands the current state does not accept.
	ErrInvalidState = errors.New("invalid state")
	// ErrDisposed is returned by every command after Dispose.
	ErrDisposed = errors.New("engine disposed")
)

// DecoderError is a failure reported by the platform decoder.
type DecoderError struct {
	Op  string
	Err error
}

func (e *DecoderError) Error() string {
	return fmt.Sprintf("decoder: %s: %v", e.Op, e.Err)
}

func (e *DecoderError) Unwrap() error {
	return e.Err
}

func (e *DecoderError) Is(target error) bool {
	return target == ErrDecoder
}

func decoderError(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *DecoderError
	if errors.As(err, &de) {
		return err
	}
	return &DecoderError{Op: op, Err: err}
}

func invalidState(op string, s State) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidState, op, s)
}
