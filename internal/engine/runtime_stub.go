//go:build !llama

package engine

// This file provides a stub runtime compiled when the 'llama' build tag is
// NOT set, keeping default builds and CI free of native library loading. The
// real runtime lives in runtime_yzma.go (tagged 'llama').

type stubRuntime struct{}

// NewRuntime returns the process-default runtime. Without the 'llama' build
// tag it refuses to load models instead of mocking inference.
func NewRuntime() Runtime { return stubRuntime{} }

func (stubRuntime) Load(path string, opts LoadOptions) (ModelHandle, error) {
	return nil, ErrRuntimeUnavailable("llama runtime not built (missing 'llama' build tag)")
}
