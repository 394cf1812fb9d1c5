// Package app wires configuration into a ready webhook handler. Both the
// Lambda entrypoint and the local dev server build through it.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"gemini-relay/handler"
	"gemini-relay/internal/config"
	"gemini-relay/internal/history"
	"gemini-relay/internal/integrations/gemini"
	"gemini-relay/internal/integrations/llm"
	"gemini-relay/internal/integrations/paramstore"
	"gemini-relay/internal/integrations/telegram"
	"gemini-relay/internal/usecase"
)

// NewLogger returns a JSON logger writing to stdout at the configured level.
func NewLogger(cfg config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
}

// NeedsAWS reports whether cfg refers to AWS resources: secrets held in SSM
// or a DynamoDB history table.
func NeedsAWS(cfg config.Config) bool {
	return cfg.HistoryTable != "" || (cfg.ParamPrefix != "" && len(cfg.MissingSecrets()) > 0)
}

// Build resolves secrets and constructs every client. AWS configuration is
// loaded only when NeedsAWS reports true.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*handler.Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var awsCfg aws.Config
	if NeedsAWS(cfg) {
		var err error
		if awsCfg, err = awsconfig.LoadDefaultConfig(ctx); err != nil {
			return nil, fmt.Errorf("app: load AWS config: %w", err)
		}
	}

	if len(cfg.MissingSecrets()) > 0 {
		store, err := paramstore.New(awsssm.NewFromConfig(awsCfg), cfg.ParamPrefix)
		if err != nil {
			return nil, fmt.Errorf("app: create parameter store: %w", err)
		}
		if err := cfg.ResolveSecrets(ctx, store); err != nil {
			return nil, err
		}
	}

	var store usecase.HistoryStore
	if cfg.HistoryTable != "" {
		dynamo, err := history.NewDynamo(awsdynamodb.NewFromConfig(awsCfg), cfg.HistoryTable, cfg.MaxHistoryTurns)
		if err != nil {
			return nil, fmt.Errorf("app: create dynamo history: %w", err)
		}
		store = dynamo
	} else {
		mem, err := history.NewMemory(cfg.MaxTrackedChats, cfg.MaxHistoryTurns)
		if err != nil {
			return nil, fmt.Errorf("app: create memory history: %w", err)
		}
		store = mem
	}

	messenger, err := telegram.New(cfg.TelegramToken, telegram.WithParseMode(cfg.ParseMode))
	if err != nil {
		return nil, fmt.Errorf("app: create telegram client: %w", err)
	}
	media, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("app: create gemini client: %w", err)
	}
	text, err := llm.NewGoogleAI(ctx, cfg.GeminiAPIKey, cfg.TextModel)
	if err != nil {
		return nil, fmt.Errorf("app: create text completer: %w", err)
	}

	svc, err := usecase.NewRelayService(messenger, text, media, store, usecase.Options{
		ImageCommand:    cfg.ImageCommand,
		MediaModel:      cfg.MediaModel,
		ImageModel:      cfg.ImageModel,
		SystemPrompt:    cfg.SystemPrompt,
		Greeting:        cfg.Greeting,
		NotifyOnFailure: cfg.NotifyOnFailure,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("app: create relay service: %w", err)
	}

	logger.Info("relay configured",
		"text_model", cfg.TextModel,
		"media_model", cfg.MediaModel,
		"image_model", cfg.ImageModel,
		"history_table", cfg.HistoryTable,
		"max_history_turns", cfg.MaxHistoryTurns,
		"max_tracked_chats", cfg.MaxTrackedChats,
	)
	return handler.NewHandler(svc,
		handler.WithWebhookSecret(cfg.WebhookSecret),
		handler.WithLogger(logger),
	)
}
