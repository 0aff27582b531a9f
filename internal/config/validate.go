package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		issues = append(issues, ValidationIssue{
			Path:    "telegram.token",
			Message: "required",
		})
	}
	if strings.TrimSpace(cfg.Telegram.TriggerBot) == "" {
		issues = append(issues, ValidationIssue{
			Path:    "telegram.triggerBot",
			Message: "required: username of the trigger source",
		})
	}
	if cfg.Telegram.PollSecs < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "telegram.pollSecs",
			Message: fmt.Sprintf("must be non-negative, got %d", cfg.Telegram.PollSecs),
		})
	}

	if strings.TrimSpace(cfg.OpenAI.APIKey) == "" {
		issues = append(issues, ValidationIssue{
			Path:    "openai.apiKey",
			Message: "required",
		})
	}
	if cfg.OpenAI.Temperature < 0 || cfg.OpenAI.Temperature > 2 {
		issues = append(issues, ValidationIssue{
			Path:    "openai.temperature",
			Message: fmt.Sprintf("must be 0-2, got %g", cfg.OpenAI.Temperature),
		})
	}
	if cfg.OpenAI.MaxTokens < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "openai.maxTokens",
			Message: fmt.Sprintf("must be non-negative, got %d", cfg.OpenAI.MaxTokens),
		})
	}

	if len(cfg.Bot.TriggerPhrases) == 0 {
		issues = append(issues, ValidationIssue{
			Path:    "bot.triggerPhrases",
			Message: "at least one phrase required",
		})
	}

	validBackends := []string{"memory", "sqlite"}
	if cfg.Store.Backend != "" && !slices.Contains(validBackends, cfg.Store.Backend) {
		issues = append(issues, ValidationIssue{
			Path:    "store.backend",
			Message: fmt.Sprintf("must be one of %v, got %q", validBackends, cfg.Store.Backend),
		})
	}

	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Gateway.Port),
		})
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	return issues
}
