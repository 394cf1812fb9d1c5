package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	defaultTimeout = 30 * time.Second

	// Bot API downloads are capped at 20 MB.
	maxFileBytes = 20 << 20

	photoFileName = "image.png"
)

// HTTPStatusError reports a failed file download. The URL is omitted because
// it embeds the bot token.
type HTTPStatusError struct {
	StatusCode int
	FilePath   string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("telegram: unexpected status %d downloading %s", e.StatusCode, e.FilePath)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client sends and edits chat messages, uploads photos and downloads
// attachments through the Telegram Bot API.
type Client struct {
	bot          *tgbotapi.BotAPI
	httpClient   *http.Client
	fileEndpoint string
	parseMode    string
}

type options struct {
	apiEndpoint  string
	fileEndpoint string
	httpClient   *http.Client
	parseMode    string
}

type Option func(*options)

// WithAPIEndpoint overrides the method endpoint format, which takes the token
// and the method name ("https://api.telegram.org/bot%s/%s").
func WithAPIEndpoint(endpoint string) Option {
	return func(o *options) {
		o.apiEndpoint = strings.TrimSpace(endpoint)
	}
}

// WithFileEndpoint overrides the download endpoint format, which takes the
// token and the file path.
func WithFileEndpoint(endpoint string) Option {
	return func(o *options) {
		o.fileEndpoint = strings.TrimSpace(endpoint)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *options) {
		o.httpClient = httpClient
	}
}

// WithParseMode sets the parse mode of sent and edited messages. An empty
// mode sends plain text.
func WithParseMode(mode string) Option {
	return func(o *options) {
		o.parseMode = mode
	}
}

// New creates a Client. It does not contact Telegram.
func New(token string, opts ...Option) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("telegram: bot token must not be empty")
	}
	o := options{
		apiEndpoint:  tgbotapi.APIEndpoint,
		fileEndpoint: tgbotapi.FileEndpoint,
		httpClient:   &http.Client{Timeout: defaultTimeout},
		parseMode:    tgbotapi.ModeMarkdown,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: defaultTimeout}
	}

	bot := &tgbotapi.BotAPI{Token: token, Client: o.httpClient, Buffer: 100}
	bot.SetAPIEndpoint(o.apiEndpoint)
	return &Client{
		bot:          bot,
		httpClient:   o.httpClient,
		fileEndpoint: o.fileEndpoint,
		parseMode:    o.parseMode,
	}, nil
}

// ctxDoer binds outgoing Bot API requests to the caller's context; the
// library itself builds requests without one.
type ctxDoer struct {
	ctx    context.Context
	client tgbotapi.HTTPClient
}

func (d ctxDoer) Do(req *http.Request) (*http.Response, error) {
	return d.client.Do(req.WithContext(d.ctx))
}

func (c *Client) botFor(ctx context.Context) *tgbotapi.BotAPI {
	b := *c.bot
	b.Client = ctxDoer{ctx: ctx, client: c.bot.Client}
	return &b
}

// SendMessage sends text to the chat and returns the new message id.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = c.parseMode
	sent, err := c.botFor(ctx).Send(msg)
	if err != nil {
		return 0, fmt.Errorf("telegram: sendMessage: %w", redactToken(err, c.bot.Token))
	}
	return sent.MessageID, nil
}

// EditMessage replaces the text of a message previously sent by the bot.
func (c *Client) EditMessage(ctx context.Context, chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = c.parseMode
	if _, err := c.botFor(ctx).Request(edit); err != nil {
		return fmt.Errorf("telegram: editMessageText: %w", redactToken(err, c.bot.Token))
	}
	return nil
}

// SendPhoto uploads image as a photo message.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, image []byte) error {
	if len(image) == 0 {
		return errors.New("telegram: sendPhoto: image is empty")
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: photoFileName, Bytes: image})
	if _, err := c.botFor(ctx).Send(photo); err != nil {
		return fmt.Errorf("telegram: sendPhoto: %w", redactToken(err, c.bot.Token))
	}
	return nil
}

// DownloadFile resolves fileID with getFile and streams its content into w.
func (c *Client) DownloadFile(ctx context.Context, fileID string, w io.Writer) error {
	if strings.TrimSpace(fileID) == "" {
		return errors.New("telegram: file id must not be empty")
	}
	file, err := c.botFor(ctx).GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return fmt.Errorf("telegram: getFile: %w", redactToken(err, c.bot.Token))
	}
	if file.FilePath == "" {
		return fmt.Errorf("telegram: getFile: no file path for %q", fileID)
	}

	url := fmt.Sprintf(c.fileEndpoint, c.bot.Token, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("telegram: create download request: %w", err)
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: download %s: %w", file.FilePath, redactToken(err, c.bot.Token))
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &HTTPStatusError{StatusCode: res.StatusCode, FilePath: file.FilePath}
	}
	if _, err := io.Copy(w, io.LimitReader(res.Body, maxFileBytes)); err != nil {
		return fmt.Errorf("telegram: download %s: %w", file.FilePath, err)
	}
	return nil
}

// tokenRedacted hides the bot token that transport errors quote as part of
// the request URL while keeping the cause inspectable.
type tokenRedacted struct {
	msg string
	err error
}

func (e *tokenRedacted) Error() string { return e.msg }

func (e *tokenRedacted) Unwrap() error { return e.err }

func redactToken(err error, token string) error {
	msg := err.Error()
	if !strings.Contains(msg, token) {
		return err
	}
	return &tokenRedacted{msg: strings.ReplaceAll(msg, token, "<redacted>"), err: err}
}
