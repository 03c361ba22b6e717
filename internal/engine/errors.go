package engine

import (
	"errors"
	"fmt"

	"promptd/internal/provider"
)

// notLoadedError signals a generate call against an engine with no model.
type notLoadedError struct{}

func (notLoadedError) Error() string { return "no model loaded" }

func ErrNotLoaded() error { return notLoadedError{} }

// IsNotLoaded reports whether err indicates no model handle is loaded.
func IsNotLoaded(err error) bool {
	var e notLoadedError
	return errors.As(err, &e)
}

// tokenizeError signals the runtime tokenizer rejected the prompt.
type tokenizeError struct{ reason string }

func (e tokenizeError) Error() string { return "tokenization failed: " + e.reason }

func ErrTokenization(reason string) error { return tokenizeError{reason: reason} }

// IsTokenizationFailed reports whether err is a tokenizer rejection.
func IsTokenizationFailed(err error) bool {
	var e tokenizeError
	return errors.As(err, &e)
}

// contextOverflowError signals a prompt that fills or exceeds the context
// window. No decode is attempted in that case.
type contextOverflowError struct {
	requested int // prompt token count
	available int // context window size
}

func (e contextOverflowError) Error() string {
	return fmt.Sprintf("prompt of %d tokens does not fit context window of %d", e.requested, e.available)
}

func ErrContextOverflow(requested, available int) error {
	return contextOverflowError{requested: requested, available: available}
}

// IsContextOverflow reports whether err indicates the prompt cannot fit.
func IsContextOverflow(err error) bool {
	var e contextOverflowError
	return errors.As(err, &e)
}

// ContextOverflowSizes returns the prompt token count and context window
// carried by a context-overflow error.
func ContextOverflowSizes(err error) (requested, available int, ok bool) {
	var e contextOverflowError
	if errors.As(err, &e) {
		return e.requested, e.available, true
	}
	return 0, 0, false
}

// decodeError signals a nonzero status from the runtime decode step.
type decodeError struct{ code int }

func (e decodeError) Error() string { return fmt.Sprintf("decode failed with status %d", e.code) }

func ErrDecodeFailed(code int) error { return decodeError{code: code} }

// IsDecodeFailed reports whether err is a fatal decode status.
func IsDecodeFailed(err error) bool {
	var e decodeError
	return errors.As(err, &e)
}

// DecodeStatus returns the runtime status code carried by a decode error.
func DecodeStatus(err error) (int, bool) {
	var e decodeError
	if errors.As(err, &e) {
		return e.code, true
	}
	return 0, false
}

// abortedError signals a generation cancelled via Abort or context
// cancellation. It matches provider.ErrAborted through errors.Is.
type abortedError struct{}

func (abortedError) Error() string        { return "generation aborted" }
func (abortedError) Is(target error) bool { return target == provider.ErrAborted }

func ErrGenerationAborted() error { return abortedError{} }

// IsAborted reports whether err is a cancelled local generation.
func IsAborted(err error) bool {
	var e abortedError
	return errors.As(err, &e)
}

// runtimeUnavailableError signals a missing native runtime (e.g. a binary
// built without the 'llama' tag) so the HTTP layer can answer 503.
type runtimeUnavailableError struct{ msg string }

func (e runtimeUnavailableError) Error() string { return e.msg }

func ErrRuntimeUnavailable(msg string) error { return runtimeUnavailableError{msg: msg} }

// IsRuntimeUnavailable reports whether err indicates a missing native runtime.
func IsRuntimeUnavailable(err error) bool {
	var e runtimeUnavailableError
	return errors.As(err, &e)
}

// busyError signals the single in-flight slot could not be acquired within
// the queue wait. The HTTP layer maps it to 429.
type busyError struct{}

func (busyError) Error() string { return "engine busy: generation slot not acquired" }

func ErrBusy() error { return busyError{} }

// IsBusy reports whether err indicates admission backpressure.
func IsBusy(err error) bool {
	var e busyError
	return errors.As(err, &e)
}
