package types

// GenerationParams carries the sampling configuration for one generation
// call. Pure data; providers read it, never mutate it.
type GenerationParams struct {
	// Maximum number of new tokens to generate. The local engine clamps this
	// to the remaining context budget.
	MaxTokens int `json:"max_tokens"`
	// Sampling temperature. 0 is a sentinel for deterministic (greedy)
	// sampling; in that mode all other sampler fields except RepeatPenalty
	// are ignored.
	Temperature float32 `json:"temperature"`
	// Nucleus sampling probability, in (0, 1].
	TopP float32 `json:"top_p"`
	// Top-K sampling: limit candidates to the K most likely tokens. Min 1.
	TopK int `json:"top_k"`
	// Repetition penalty applied over the most recent tokens. Min 1.
	RepeatPenalty float32 `json:"repeat_penalty"`
	// Number of most recent tokens the repetition penalty considers.
	RepeatPenaltyWindow int `json:"repeat_penalty_window"`
	// Random seed for the sampler. 0 means reseed with a fresh random value
	// on every call; any other value makes nonzero-temperature sampling
	// reproducible given identical model state and prompt.
	Seed uint32 `json:"seed,omitempty"`
}

// DefaultParams returns the stock sampling configuration.
func DefaultParams() GenerationParams {
	return GenerationParams{
		MaxTokens:           256,
		Temperature:         0.7,
		TopP:                0.9,
		TopK:                40,
		RepeatPenalty:       1.1,
		RepeatPenaltyWindow: 64,
	}
}

// DeterministicParams returns a preset that always picks the most likely
// token. Two calls against identical model state produce identical output.
func DeterministicParams() GenerationParams {
	p := DefaultParams()
	p.Temperature = 0
	p.TopP = 1
	p.TopK = 1
	return p
}

// Greedy reports whether the params select deterministic (arg-max) sampling.
func (p GenerationParams) Greedy() bool { return p.Temperature == 0 }

// Normalized returns a copy with out-of-range fields pulled back to sane
// values so a hand-built params value cannot confuse a sampler chain.
func (p GenerationParams) Normalized() GenerationParams {
	if p.MaxTokens <= 0 {
		p.MaxTokens = DefaultParams().MaxTokens
	}
	if p.Temperature < 0 {
		p.Temperature = 0
	}
	if p.TopP <= 0 || p.TopP > 1 {
		p.TopP = 1
	}
	if p.TopK < 1 {
		p.TopK = 1
	}
	if p.RepeatPenalty < 1 {
		p.RepeatPenalty = 1
	}
	if p.RepeatPenaltyWindow < 0 {
		p.RepeatPenaltyWindow = 0
	}
	return p
}
