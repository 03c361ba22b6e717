package types

// GenerateRequest represents a generation request payload.
type GenerateRequest struct {
	// Provider to generate with. If empty, the server default is used.
	// example: local
	Provider string `json:"provider,omitempty" example:"local"`
	// Required prompt text to generate a completion for.
	// example: Write a haiku about the ocean.
	Prompt string `json:"prompt" example:"Write a haiku about the ocean."`
	// Optional model name override for cloud providers.
	// example: anthropic/claude-3.5-sonnet
	Model string `json:"model,omitempty" example:"anthropic/claude-3.5-sonnet"`
	// Maximum number of new tokens to generate.
	// example: 128
	MaxTokens int `json:"max_tokens,omitempty" example:"128"`
	// Sampling temperature (higher = more random). 0 selects greedy sampling.
	// example: 0.7
	Temperature *float32 `json:"temperature,omitempty" example:"0.7"`
	// Nucleus sampling probability.
	// example: 0.9
	TopP float32 `json:"top_p,omitempty" example:"0.9"`
	// Top-K sampling: limit candidates to top K tokens.
	// example: 40
	TopK int `json:"top_k,omitempty" example:"40"`
	// Repeat penalty applied over the recent token window.
	// example: 1.1
	RepeatPenalty float32 `json:"repeat_penalty,omitempty" example:"1.1"`
	// Random seed for reproducibility; 0 or omitted reseeds per call.
	// example: 42
	Seed uint32 `json:"seed,omitempty" example:"42"`
}

// Params folds the request overrides into the default generation params.
// A nil Temperature keeps the default; an explicit 0 selects greedy mode.
func (r GenerateRequest) Params() GenerationParams {
	p := DefaultParams()
	if r.MaxTokens > 0 {
		p.MaxTokens = r.MaxTokens
	}
	if r.Temperature != nil {
		p.Temperature = *r.Temperature
	}
	if r.TopP > 0 {
		p.TopP = r.TopP
	}
	if r.TopK > 0 {
		p.TopK = r.TopK
	}
	if r.RepeatPenalty > 0 {
		p.RepeatPenalty = r.RepeatPenalty
	}
	p.Seed = r.Seed
	return p.Normalized()
}

// ProviderStatus summarizes one provider for GET /providers.
type ProviderStatus struct {
	// Provider display name.
	// example: local
	Name string `json:"name" example:"local"`
	// Whether the provider can serve a generate call right now. Local: a
	// model is loaded. Cloud: a credential exists for the provider.
	// example: true
	Available bool `json:"available" example:"true"`
	// True for the in-process engine, false for cloud clients.
	// example: true
	Local bool `json:"local" example:"true"`
	// Model the provider would use, when known.
	// example: tinyllama-q4
	Model string `json:"model,omitempty" example:"tinyllama-q4"`
}

// ProvidersResponse wraps the list returned by GET /providers.
type ProvidersResponse struct {
	// Configured providers in registration order.
	Providers []ProviderStatus `json:"providers"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	// List of discovered models.
	Models []Model `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// TokenLine is one NDJSON line of a streamed generation.
type TokenLine struct {
	// Text fragment for one generated token.
	// example: Hello
	Token string `json:"token" example:"Hello"`
}

// DoneLine is the final NDJSON line of a streamed generation.
type DoneLine struct {
	// Always true.
	Done bool `json:"done"`
	// Full generated text (concatenation of all token fragments).
	Content string `json:"content"`
	// Provider that served the call.
	Provider string `json:"provider"`
}
