package types

// Model represents a discoverable or loadable LLM model on disk.
type Model struct {
	// Stable identifier for the model.
	// example: tinyllama-q4
	ID string `json:"id" example:"tinyllama-q4"`
	// Human-friendly name.
	// example: TinyLlama (Q4)
	Name string `json:"name" example:"TinyLlama (Q4)"`
	// Absolute path to the model file on disk.
	// example: /home/user/models/TinyLlama.Q4_K_M.gguf
	Path string `json:"path" example:"/home/user/models/TinyLlama.Q4_K_M.gguf"`
}

// ProviderIdentity is the immutable descriptor of a cloud backend. A client
// is bound to one identity at construction and never mutates it.
type ProviderIdentity struct {
	// Display name, also used to address the provider over the API.
	// example: openrouter
	DisplayName string `json:"display_name" example:"openrouter"`
	// Chat-completion endpoint URL. Must be https.
	// example: https://openrouter.ai/api/v1/chat/completions
	EndpointURL string `json:"endpoint_url" example:"https://openrouter.ai/api/v1/chat/completions"`
	// Model name sent when the caller does not override it.
	// example: anthropic/claude-3.5-sonnet
	DefaultModelName string `json:"default_model" example:"anthropic/claude-3.5-sonnet"`
	// Key name looked up in the secret store at call time.
	// example: OPENROUTER_API_KEY
	SecretKeyName string `json:"secret_key_name" example:"OPENROUTER_API_KEY"`
}
