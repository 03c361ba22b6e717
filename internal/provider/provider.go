// Package provider defines the capability interface every generation backend
// implements, plus the cross-backend cancellation contract. Callers depend on
// this package only; they never see a concrete engine or client type.
package provider

import (
	"context"
	"errors"

	"promptd/pkg/types"
)

// TokenFunc receives successive text fragments during a generate call, in
// generation order. It is never invoked after Generate returns.
type TokenFunc func(fragment string)

// Provider is the sole generation capability surface. Exactly two
// implementations exist: the in-process engine and the cloud client.
type Provider interface {
	// ProviderName returns a stable display identity.
	ProviderName() string

	// Available reports whether a generate call can be served right now.
	// Local: a model handle is loaded. Cloud: a credential exists for this
	// provider. Never performs network I/O and never blocks.
	Available() bool

	// Generate runs one generation for prompt and returns the full generated
	// text. onToken may be nil; when set it is invoked zero or more times
	// with in-order fragments whose concatenation equals the returned text.
	// A cancelled call fails with an error matching ErrAborted, never with
	// success and never with a different kind.
	Generate(ctx context.Context, prompt string, params Params, onToken TokenFunc) (string, error)

	// Abort requests cancellation of any in-flight call on this instance.
	// Idempotent, non-blocking, and a no-op when nothing is in flight.
	Abort()
}

// Params aliases the wire-level sampling configuration so provider
// consumers and implementations agree on one type.
type Params = types.GenerationParams

// ErrAborted is the cross-backend cancellation sentinel. Both the local
// engine's and the cloud client's abort errors match it via errors.Is, while
// each keeps its own typed error for exact kind checks.
var ErrAborted = errors.New("generation aborted")

// IsAborted reports whether err represents a cancelled generation,
// regardless of which backend produced it.
func IsAborted(err error) bool { return errors.Is(err, ErrAborted) }
