// Package handler exposes the relay as an API Gateway proxy integration for
// Telegram webhooks.
package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"gemini-relay/internal/domain"
	"gemini-relay/internal/integrations/telegram"
	"gemini-relay/internal/usecase"
)

const (
	correlationHeader = "X-Correlation-Id"
	secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, msg domain.InboundMessage) error
}

type Option func(*Handler)

// WithWebhookSecret rejects updates whose secret token header does not match.
func WithWebhookSecret(secret string) Option {
	return func(h *Handler) {
		h.secret = secret
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

type Handler struct {
	dispatcher Dispatcher
	secret     string
	logger     *slog.Logger
}

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHandler(d Dispatcher, opts ...Option) (*Handler, error) {
	if d == nil {
		return nil, errors.New("handler: dispatcher must not be nil")
	}
	h := &Handler{dispatcher: d, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Handle processes one webhook delivery. Failures are reported through the
// response status; the returned error is always nil so the runtime does not
// retry the invocation.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := header(req, correlationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	logger := h.logger.With("correlation_id", correlationID)

	if req.HTTPMethod != http.MethodPost {
		return respond(http.StatusMethodNotAllowed, errorResponse{Error: "Method Not Allowed"}, correlationID), nil
	}
	if h.secret != "" && !secretMatches(header(req, secretTokenHeader), h.secret) {
		logger.Warn("webhook secret token mismatch")
		return respond(http.StatusUnauthorized, errorResponse{Error: "Unauthorized"}, correlationID), nil
	}

	var update tgbotapi.Update
	if err := json.Unmarshal([]byte(req.Body), &update); err != nil {
		logger.Warn("undecodable update", "err", err)
		return respond(http.StatusBadRequest, errorResponse{Error: "No message found"}, correlationID), nil
	}
	msg, ok := telegram.InboundMessage(update)
	if !ok {
		return respond(http.StatusBadRequest, errorResponse{Error: "No message found"}, correlationID), nil
	}

	if err := h.dispatcher.Dispatch(ctx, msg); err != nil {
		code, reason := string(usecase.ErrorPlatform), "unexpected_error"
		var ucErr *usecase.Error
		if errors.As(err, &ucErr) {
			code, reason = string(ucErr.Code), ucErr.Reason
		}
		logger.Error("error generating content",
			"code", code,
			"reason", reason,
			"chat_id", msg.ChatID,
			"update_id", update.UpdateID,
			"err", err,
		)
		return respond(http.StatusInternalServerError, errorResponse{Error: "Error generating content"}, correlationID), nil
	}

	logger.Info("update handled", "chat_id", msg.ChatID, "update_id", update.UpdateID)
	return respond(http.StatusOK, statusResponse{Status: "success"}, correlationID), nil
}

func respond(status int, body any, correlationID string) events.APIGatewayProxyResponse {
	b, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		b = []byte(`{"error":"Error generating content"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: correlationID,
		},
		Body: string(b),
	}
}

// header looks name up case-insensitively; API Gateway passes headers as sent.
func header(req events.APIGatewayProxyRequest, name string) string {
	for k, v := range req.Headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	for k, vs := range req.MultiValueHeaders {
		if strings.EqualFold(k, name) && len(vs) > 0 {
			return strings.TrimSpace(vs[0])
		}
	}
	return ""
}

func secretMatches(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
