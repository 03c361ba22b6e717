package engine

// Token is an integer identifier in the model's vocabulary. Token sequences
// never leave this package; callers only see detokenized text.
type Token = int32

// LoadOptions configures model loading and the decoding context.
type LoadOptions struct {
	// ContextSize is the context window in tokens (prompt + generation).
	ContextSize int
	// BatchSize is the number of prompt tokens decoded per batch.
	BatchSize int
	// Threads is the CPU thread count. 0 lets the runtime decide.
	Threads int
	// GPULayers is the number of layers offloaded to GPU. 0 forces CPU.
	GPULayers int
}

// DefaultLoadOptions returns load options suitable for small local models.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		ContextSize: 4096,
		BatchSize:   512,
		Threads:     0,
		GPULayers:   0,
	}
}

// SamplerSpec describes the sampler chain for one generation session. The
// engine builds it from GenerationParams; the runtime turns it into its
// native chain. Order is fixed: repetition penalty first, then either greedy
// selection or top-k -> top-p -> temperature -> seeded random sampling.
type SamplerSpec struct {
	RepeatPenalty       float32
	RepeatPenaltyWindow int
	Greedy              bool
	TopK                int
	TopP                float32
	Temperature         float32
	Seed                uint32
}

// Runtime abstracts the native model runtime (llama.cpp via yzma in the real
// build). Tests substitute an in-memory fake.
type Runtime interface {
	// Load reads model weights from path and creates a decoding context.
	// Fails if the path is invalid or the format is unrecognized.
	Load(path string, opts LoadOptions) (ModelHandle, error)
}

// ModelHandle owns loaded weights and their decoding context (KV cache and
// sequence position). It is exclusively owned by one engine and is not safe
// for concurrent use; the engine's single in-flight slot provides the only
// required serialization.
type ModelHandle interface {
	// ContextSize returns the context window in tokens.
	ContextSize() int

	// Tokenize converts text to a token sequence, prepending the
	// beginning-of-sequence marker when addBOS is set.
	Tokenize(text string, addBOS bool) ([]Token, error)

	// Decode processes tokens at the current sequence position and advances
	// it, leaving the last token's logits ready for sampling. A nonzero
	// status (or an error) is fatal for the call.
	Decode(tokens []Token) (status int, err error)

	// ResetContext clears the KV cache and rewinds the sequence position to
	// zero. Every generate call starts from a clean context.
	ResetContext()

	// NewSampler builds a sampler chain for one session. The returned
	// sampler must be closed when the session ends.
	NewSampler(spec SamplerSpec) Sampler

	// IsEOG reports whether tok is an end-of-generation marker.
	IsEOG(tok Token) bool

	// TokenText renders tok's text into buf and returns the number of bytes
	// required. A return larger than len(buf) means buf was too small; call
	// again with a buffer of at least that size.
	TokenText(tok Token, buf []byte) (int, error)

	// Close frees the native resources behind the handle.
	Close()
}

// Sampler picks the next token from the logits of the last decoded position.
// Sampling feeds the chosen token back into the chain's penalty window, so
// callers only Sample and Close.
type Sampler interface {
	Sample() Token
	Close()
}
