package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"gemini-relay/internal/app"
	"gemini-relay/internal/config"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load(os.Getenv)
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	// ---- Clients and handler ----
	h, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build relay", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}
