// Command devserver serves the webhook handler over plain HTTP for local
// testing, e.g. behind a tunnel registered as the bot's webhook.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v2"

	"gemini-relay/internal/app"
	"gemini-relay/internal/config"
)

func main() {
	cliApp := &cli.App{
		Name:  "devserver",
		Usage: "Serve the Telegram webhook locally",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Aliases: []string{"a"},
				Usage:   "Listen address",
				Value:   ":8080",
			},
			&cli.StringFlag{
				Name:    "path",
				Aliases: []string{"p"},
				Usage:   "Webhook path",
				Value:   "/api/telegram",
			},
			&cli.StringFlag{
				Name:    "env-file",
				Aliases: []string{"e"},
				Usage:   "Load environment from `FILE` when it exists",
				Value:   ".env",
			},
		},
		Action: run,
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if file := c.String("env-file"); file != "" {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}

	cfg, err := config.Load(os.Getenv)
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	h, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.Any(c.String("path"), proxy(h.Handle))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("devserver listening", "addr", c.String("addr"), "path", c.String("path"))
		errCh <- e.Start(c.String("addr"))
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
