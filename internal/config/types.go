package config

// Config is the root configuration for leobot.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Bot      BotConfig      `yaml:"bot,omitempty"`
	Store    StoreConfig    `yaml:"store,omitempty"`
	Gateway  GatewayConfig  `yaml:"gateway,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
}

// TelegramConfig configures the chat transport.
type TelegramConfig struct {
	Token      string `yaml:"token"`                // bot token; supports ${ENV_VAR}
	TriggerBot string `yaml:"triggerBot"`           // username of the trusted trigger source, without @
	PollSecs   int    `yaml:"pollSecs,omitempty"`   // long-poll timeout seconds
}

// OpenAIConfig configures the completion service.
type OpenAIConfig struct {
	APIKey      string  `yaml:"apiKey"` // supports ${ENV_VAR}
	Model       string  `yaml:"model,omitempty"`
	BaseURL     string  `yaml:"baseUrl,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
	MaxTokens   int     `yaml:"maxTokens,omitempty"`
}

// BotConfig defines the conversation script.
type BotConfig struct {
	Greeting       string   `yaml:"greeting,omitempty"`
	Persona        string   `yaml:"persona,omitempty"`
	Instructions   string   `yaml:"instructions,omitempty"`
	TriggerPhrases []string `yaml:"triggerPhrases,omitempty"`
}

// StoreConfig selects the conversation store backend.
type StoreConfig struct {
	Backend string `yaml:"backend,omitempty"` // "memory" | "sqlite"
}

// GatewayConfig controls the read-only status server.
type GatewayConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Port    int    `yaml:"port,omitempty"`
	Bind    string `yaml:"bind,omitempty"` // listen host, defaults to 127.0.0.1
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File  string `yaml:"file,omitempty"`
}
