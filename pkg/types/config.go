package types

// AgentConfig is the provider configuration required to start a turn.
// A turn may not flip a chat to RUNNING unless the config is resolved.
type AgentConfig struct {
	Provider string `json:"provider"` // "openai" | "anthropic" | "deepseek"
	APIKey   string `json:"apiKey"`
	BaseURL  string `json:"baseURL"`
	Model    string `json:"model"`
}

// Resolved reports whether every required field is present.
func (c AgentConfig) Resolved() bool {
	return c.Provider != "" && c.APIKey != "" && c.BaseURL != "" && c.Model != ""
}

// Merge overlays per-connection overrides on top of the receiver. Empty
// override fields keep the session default; resolution order is override
// first, then default.
func (c AgentConfig) Merge(override AgentConfig) AgentConfig {
	out := c
	if override.Provider != "" {
		out.Provider = override.Provider
	}
	if override.APIKey != "" {
		out.APIKey = override.APIKey
	}
	if override.BaseURL != "" {
		out.BaseURL = override.BaseURL
	}
	if override.Model != "" {
		out.Model = override.Model
	}
	return out
}

// Config is the full server configuration.
type Config struct {
	// Agent is the default provider configuration for chat turns.
	Agent AgentConfig `json:"agent"`

	// Title is the provider configuration for title generation. Unset
	// fields fall back to Agent.
	Title AgentConfig `json:"title"`

	// DataDir is the root directory for durable chat records.
	DataDir string `json:"dataDir"`

	// Port is the HTTP listen port.
	Port int `json:"port"`

	// LogLevel is the minimum log level (debug, info, warn, error).
	LogLevel string `json:"logLevel"`
}

// TitleConfig returns the title-generation config with agent fallbacks
// applied.
func (c *Config) TitleConfig() AgentConfig {
	return c.Agent.Merge(c.Title)
}
