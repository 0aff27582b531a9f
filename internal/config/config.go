// Package config loads, validates, and defaults the leobot configuration.
package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Default trigger phrases inspected in messages from the trigger source.
// Matching is case-insensitive substring containment.
var defaultTriggerPhrases = []string{
	"взаимная симпатия",
	"ваша анкета понравилась",
	"вам понравилась",
	"симпатия",
	"понравилась кому то",
}

const (
	defaultGreeting     = "Привет, как дела?"
	defaultPersona      = "Ты дружелюбный и общительный парень, который ищет девушку. Ведешь себя естественно, проявляешь интерес к общению и заинтересован в знакомстве."
	defaultInstructions = "Веди диалог естественно, как обычный парень в реальной жизни. Задавай вопросы, проявляй интерес к собеседнице, будь дружелюбным и открытым. Не будь слишком навязчивым, но проявляй заинтересованность."
)

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Telegram: TelegramConfig{
			PollSecs: 10,
		},
		OpenAI: OpenAIConfig{
			Model:       "gpt-3.5-turbo",
			Temperature: 0.7,
			MaxTokens:   150,
		},
		Bot: BotConfig{
			Greeting:       defaultGreeting,
			Persona:        defaultPersona,
			Instructions:   defaultInstructions,
			TriggerPhrases: append([]string(nil), defaultTriggerPhrases...),
		},
		Store: StoreConfig{
			Backend: "memory",
		},
		Gateway: GatewayConfig{
			Port: 18790,
			Bind: "127.0.0.1",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// SystemPrompt composes the persona and instruction texts into the single
// system turn that seeds every dialogue history.
func (b BotConfig) SystemPrompt() string {
	return b.Persona + "\n\n" + b.Instructions
}
