package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"gemini-relay/internal/domain"
)

// InboundMessage converts the message of an update. It reports false when the
// update carries no message or the message has no chat.
func InboundMessage(update tgbotapi.Update) (domain.InboundMessage, bool) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return domain.InboundMessage{}, false
	}
	in := domain.InboundMessage{
		MessageID: msg.MessageID,
		ChatID:    msg.Chat.ID,
		Text:      msg.Text,
	}
	switch {
	case msg.Audio != nil:
		in.Audio = &domain.Attachment{FileID: msg.Audio.FileID, MIMEType: msg.Audio.MimeType}
	case msg.Voice != nil:
		in.Audio = &domain.Attachment{FileID: msg.Voice.FileID, MIMEType: msg.Voice.MimeType}
	}
	return in, true
}
