// Package config reads the relay's settings from the environment once at
// start-up.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"gemini-relay/internal/history"
)

const (
	DefaultTextModel    = "gemini-1.5-flash"
	DefaultMediaModel   = "gemini-2.0-flash"
	DefaultImageModel   = "gemini-2.0-flash-preview-image-generation"
	DefaultImageCommand = "/generate_image"
	DefaultParseMode    = "Markdown"

	// Parameter names below PARAM_PREFIX.
	TelegramKeyParam = "telegram-api-key"
	GeminiKeyParam   = "gemini-api-key"
)

type Config struct {
	TelegramToken string
	GeminiAPIKey  string
	ParamPrefix   string

	TextModel    string
	MediaModel   string
	ImageModel   string
	ImageCommand string
	SystemPrompt string
	Greeting     string

	MaxHistoryTurns int
	MaxTrackedChats int
	HistoryTable    string

	WebhookSecret   string
	NotifyOnFailure bool
	ParseMode       string
	LogLevel        slog.Level
}

// Load parses the environment through getenv. Secrets may be left empty when
// PARAM_PREFIX is set; ResolveSecrets fills them in afterwards.
func Load(getenv func(string) string) (Config, error) {
	if getenv == nil {
		return Config{}, errors.New("config: getenv must not be nil")
	}
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		TelegramToken: env("TELEGRAM_API_KEY", ""),
		GeminiAPIKey:  env("GEMINI_API_KEY", ""),
		ParamPrefix:   env("PARAM_PREFIX", ""),
		TextModel:     env("GEMINI_TEXT_MODEL", DefaultTextModel),
		MediaModel:    env("GEMINI_MEDIA_MODEL", DefaultMediaModel),
		ImageCommand:  env("IMAGE_COMMAND", DefaultImageCommand),
		SystemPrompt:  env("SYSTEM_PROMPT", ""),
		HistoryTable:  env("HISTORY_TABLE", ""),
		WebhookSecret: env("WEBHOOK_SECRET", ""),
	}
	cfg.ImageModel = env("GEMINI_IMAGE_MODEL", DefaultImageModel)
	// Lambda console values cannot hold line breaks, so a literal \n stands for one.
	cfg.Greeting = strings.ReplaceAll(env("GREETING", ""), `\n`, "\n")

	var errs []error
	var err error
	if cfg.ParseMode, err = parseMode(env("PARSE_MODE", DefaultParseMode)); err != nil {
		errs = append(errs, err)
	}
	if cfg.MaxHistoryTurns, err = envInt(getenv, "MAX_HISTORY_TURNS", history.DefaultMaxTurns); err != nil {
		errs = append(errs, err)
	}
	if minTurns := minHistoryTurns(cfg.SystemPrompt); err == nil && cfg.MaxHistoryTurns < minTurns {
		errs = append(errs, fmt.Errorf("config: MAX_HISTORY_TURNS must be at least %d, got %d", minTurns, cfg.MaxHistoryTurns))
	}
	if cfg.MaxTrackedChats, err = envInt(getenv, "MAX_TRACKED_CHATS", history.DefaultMaxChats); err != nil {
		errs = append(errs, err)
	}
	if cfg.NotifyOnFailure, err = envBool(getenv, "NOTIFY_ON_FAILURE", false); err != nil {
		errs = append(errs, err)
	}
	if v := env("LOG_LEVEL", ""); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, fmt.Errorf("config: LOG_LEVEL: %w", err))
		}
	}
	if !strings.HasPrefix(cfg.ImageCommand, "/") {
		errs = append(errs, fmt.Errorf("config: IMAGE_COMMAND %q must start with /", cfg.ImageCommand))
	}
	if cfg.ParamPrefix == "" {
		for _, key := range cfg.MissingSecrets() {
			errs = append(errs, fmt.Errorf("config: %s is required when PARAM_PREFIX is not set", secretEnv[key]))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SecretLookup fetches parameters by key relative to a configured prefix.
type SecretLookup interface {
	Lookup(ctx context.Context, keys ...string) (map[string]string, error)
}

// MissingSecrets lists the parameter keys of secrets not set in the
// environment.
func (c Config) MissingSecrets() []string {
	var keys []string
	if c.TelegramToken == "" {
		keys = append(keys, TelegramKeyParam)
	}
	if c.GeminiAPIKey == "" {
		keys = append(keys, GeminiKeyParam)
	}
	return keys
}

// ResolveSecrets loads the secrets missing from the environment through
// store. It does nothing when both are already set.
func (c *Config) ResolveSecrets(ctx context.Context, store SecretLookup) error {
	keys := c.MissingSecrets()
	if len(keys) == 0 {
		return nil
	}
	if store == nil {
		return fmt.Errorf("config: no secret store for %s", strings.Join(keys, ", "))
	}
	values, err := store.Lookup(ctx, keys...)
	if err != nil {
		return fmt.Errorf("config: resolve secrets: %w", err)
	}
	if c.TelegramToken == "" {
		c.TelegramToken = values[TelegramKeyParam]
	}
	if c.GeminiAPIKey == "" {
		c.GeminiAPIKey = values[GeminiKeyParam]
	}
	if missing := c.MissingSecrets(); len(missing) > 0 {
		return fmt.Errorf("config: secrets still missing: %s", strings.Join(missing, ", "))
	}
	return nil
}

// secretEnv names the environment variable that can hold each parameter.
var secretEnv = map[string]string{
	TelegramKeyParam: "TELEGRAM_API_KEY",
	GeminiKeyParam:   "GEMINI_API_KEY",
}

// minHistoryTurns is the smallest cap that keeps one question and its answer,
// plus the seeded system turn when there is one.
func minHistoryTurns(systemPrompt string) int {
	if systemPrompt != "" {
		return history.MinTurns + 1
	}
	return history.MinTurns
}

// parseMode accepts the Bot API parse modes; "none" sends plain text.
func parseMode(v string) (string, error) {
	switch strings.ToLower(v) {
	case "markdown":
		return "Markdown", nil
	case "markdownv2":
		return "MarkdownV2", nil
	case "html":
		return "HTML", nil
	case "none", "plain":
		return "", nil
	}
	return "", fmt.Errorf("config: PARSE_MODE %q is not one of Markdown, MarkdownV2, HTML, none", v)
}

func envInt(getenv func(string) string, key string, def int) (int, error) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %q is not an integer", key, v)
	}
	if n <= 0 {
		return 0, fmt.Errorf("config: %s must be positive, got %d", key, n)
	}
	return n, nil
}

func envBool(getenv func(string) string, key string, def bool) (bool, error) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s: %q is not a boolean", key, v)
	}
	return b, nil
}
