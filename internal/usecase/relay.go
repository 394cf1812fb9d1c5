package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gemini-relay/internal/domain"
)

const (
	defaultAudioMIMEType = "audio/mpeg"

	modalityText  = "TEXT"
	modalityImage = "IMAGE"
)

type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) (int, error)
	EditMessage(ctx context.Context, chatID int64, messageID int, text string) error
	DownloadFile(ctx context.Context, fileID string, w io.Writer) error
	SendPhoto(ctx context.Context, chatID int64, image []byte) error
}

type TextCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type MediaGenerator interface {
	Generate(ctx context.Context, model string, parts []domain.Part, modalities ...string) ([]domain.Part, error)
}

type HistoryStore interface {
	Load(ctx context.Context, chatID int64) ([]domain.Turn, error)
	Save(ctx context.Context, chatID int64, turns []domain.Turn) error
	Delete(ctx context.Context, chatID int64) error
}

// Options tunes a RelayService. Zero values fall back to defaults.
type Options struct {
	ImageCommand    string
	MediaModel      string
	ImageModel      string
	SystemPrompt    string
	Greeting        string
	NotifyOnFailure bool
	TempDir         string
	Logger          *slog.Logger
}

// RelayService dispatches one inbound chat message: it runs commands, keeps
// the chat's conversation history and relays completions back to the chat.
type RelayService struct {
	messenger Messenger
	text      TextCompleter
	media     MediaGenerator
	history   HistoryStore
	locks     *chatLocks

	imageCommand    string
	mediaModel      string
	imageModel      string
	systemPrompt    string
	greeting        string
	notifyOnFailure bool
	tempDir         string
	logger          *slog.Logger
}

func NewRelayService(m Messenger, text TextCompleter, media MediaGenerator, h HistoryStore, opts Options) (*RelayService, error) {
	if m == nil {
		return nil, errors.New("usecase: messenger must not be nil")
	}
	if text == nil {
		return nil, errors.New("usecase: text completer must not be nil")
	}
	if media == nil {
		return nil, errors.New("usecase: media generator must not be nil")
	}
	if h == nil {
		return nil, errors.New("usecase: history store must not be nil")
	}
	if opts.MediaModel == "" {
		return nil, errors.New("usecase: media model must not be empty")
	}
	if opts.ImageModel == "" {
		opts.ImageModel = opts.MediaModel
	}
	if opts.ImageCommand == "" {
		opts.ImageCommand = defaultImageCommand
	}
	if opts.Greeting == "" {
		opts.Greeting = greetingText
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &RelayService{
		messenger:       m,
		text:            text,
		media:           media,
		history:         h,
		locks:           newChatLocks(),
		imageCommand:    opts.ImageCommand,
		mediaModel:      opts.MediaModel,
		imageModel:      opts.ImageModel,
		systemPrompt:    opts.SystemPrompt,
		greeting:        opts.Greeting,
		notifyOnFailure: opts.NotifyOnFailure,
		tempDir:         opts.TempDir,
		logger:          opts.Logger,
	}, nil
}

// Dispatch handles msg by the first matching rule: reset, start, image
// generation, audio attachment, plain text. Messages with neither text nor
// audio get an unsupported-type notice. Any failure is returned as *Error.
func (s *RelayService) Dispatch(ctx context.Context, msg domain.InboundMessage) error {
	cmd := ParseCommand(msg.Text, s.imageCommand)
	err := s.dispatch(ctx, msg, cmd)
	if err != nil && s.notifyOnFailure {
		s.apologize(ctx, msg.ChatID)
	}
	return err
}

func (s *RelayService) dispatch(ctx context.Context, msg domain.InboundMessage, cmd Command) error {
	switch cmd.Kind {
	case CommandReset:
		return s.reset(ctx, msg.ChatID)
	case CommandStart:
		return s.notify(ctx, msg.ChatID, s.greeting, "greeting_send_error")
	case CommandGenerateImage:
		return s.generateImage(ctx, msg.ChatID, cmd.Prompt)
	}
	if msg.Audio != nil && msg.Audio.FileID != "" {
		return s.summarizeAudio(ctx, msg.ChatID, *msg.Audio)
	}
	if cmd.Kind == CommandPlainText {
		return s.converse(ctx, msg.ChatID, cmd.Body)
	}
	return s.notify(ctx, msg.ChatID, unsupportedText, "unsupported_send_error")
}

func (s *RelayService) reset(ctx context.Context, chatID int64) error {
	unlock := s.locks.lock(chatID)
	err := s.history.Delete(ctx, chatID)
	unlock()
	if err != nil {
		return newError(ErrorState, "history_delete_error", err)
	}
	return s.notify(ctx, chatID, resetText, "reset_send_error")
}

func (s *RelayService) converse(ctx context.Context, chatID int64, text string) error {
	placeholderID, err := s.messenger.SendMessage(ctx, chatID, placeholderText)
	if err != nil {
		return newError(ErrorPlatform, "placeholder_send_error", err)
	}

	answer, err := s.appendExchange(ctx, chatID, text)
	if err != nil {
		return err
	}

	if err := s.messenger.EditMessage(ctx, chatID, placeholderID, displayText(answer, emptyResponseText)); err != nil {
		return newError(ErrorPlatform, "placeholder_edit_error", err)
	}
	return nil
}

// appendExchange records the user turn and the completion for it. The chat
// lock is held across the completion call so concurrent messages for the same
// chat cannot overwrite each other's turns.
func (s *RelayService) appendExchange(ctx context.Context, chatID int64, text string) (string, error) {
	unlock := s.locks.lock(chatID)
	defer unlock()

	history, err := s.history.Load(ctx, chatID)
	if err != nil {
		return "", newError(ErrorState, "history_load_error", err)
	}
	if len(history) == 0 && s.systemPrompt != "" {
		history = append(history, domain.Turn{Role: domain.RoleSystem, Content: s.systemPrompt})
	}
	history = append(history, domain.Turn{Role: domain.RoleUser, Content: text})

	answer, err := s.text.Complete(ctx, buildPrompt(history))
	if err != nil {
		return "", newError(ErrorCompletion, "text_completion_error", err)
	}
	history = append(history, domain.Turn{Role: domain.RoleAssistant, Content: answer})

	if err := s.history.Save(ctx, chatID, history); err != nil {
		return "", newError(ErrorState, "history_save_error", err)
	}
	return answer, nil
}

func (s *RelayService) generateImage(ctx context.Context, chatID int64, prompt string) error {
	if prompt == "" {
		return s.notify(ctx, chatID, emptyPromptText, "empty_prompt_send_error")
	}

	parts, err := s.media.Generate(ctx, s.imageModel, []domain.Part{domain.TextPart(prompt)}, modalityText, modalityImage)
	if err != nil {
		return newError(ErrorCompletion, "image_completion_error", err)
	}

	text := collectText(parts)
	fallback := emptyResponseText
	if blob := firstInlineData(parts); blob != nil {
		if s.sendImage(ctx, chatID, blob) {
			fallback = imageSentText
		}
	}
	return s.notify(ctx, chatID, displayText(text, fallback), "image_text_send_error")
}

// sendImage uploads blob as a photo. Failures are logged and reported as
// false so the caller can still deliver the text.
func (s *RelayService) sendImage(ctx context.Context, chatID int64, blob *domain.Blob) bool {
	if err := s.messenger.SendPhoto(ctx, chatID, blob.Data); err != nil {
		s.logger.Warn("photo upload failed", "chat_id", chatID, "mime_type", blob.MIMEType, "bytes", len(blob.Data), "err", err)
		return false
	}
	return true
}

func (s *RelayService) summarizeAudio(ctx context.Context, chatID int64, audio domain.Attachment) error {
	data, err := s.downloadAttachment(ctx, audio.FileID)
	if err != nil {
		return newError(ErrorAttachment, "audio_download_error", err)
	}

	mimeType := audio.MIMEType
	if mimeType == "" {
		mimeType = defaultAudioMIMEType
	}
	parts, err := s.media.Generate(ctx, s.mediaModel, []domain.Part{
		{InlineData: &domain.Blob{MIMEType: mimeType, Data: data}},
		domain.TextPart(audioInstruction),
	})
	if err != nil {
		return newError(ErrorCompletion, "audio_completion_error", err)
	}
	return s.notify(ctx, chatID, displayText(collectText(parts), emptyResponseText), "audio_summary_send_error")
}

// downloadAttachment buffers the file through a temp file that is removed
// before returning.
func (s *RelayService) downloadAttachment(ctx context.Context, fileID string) ([]byte, error) {
	f, err := os.CreateTemp(s.tempDir, "relay-attachment-*")
	if err != nil {
		return nil, fmt.Errorf("usecase: create temp file: %w", err)
	}
	defer func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}()

	if err := s.messenger.DownloadFile(ctx, fileID, f); err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("usecase: rewind temp file: %w", err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("usecase: read temp file: %w", err)
	}
	return data, nil
}

func (s *RelayService) notify(ctx context.Context, chatID int64, text, reason string) error {
	if _, err := s.messenger.SendMessage(ctx, chatID, text); err != nil {
		return newError(ErrorPlatform, reason, err)
	}
	return nil
}

func (s *RelayService) apologize(ctx context.Context, chatID int64) {
	if _, err := s.messenger.SendMessage(ctx, chatID, failureText); err != nil {
		s.logger.Warn("failure notice not delivered", "chat_id", chatID, "err", err)
	}
}
