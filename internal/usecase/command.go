package usecase

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CommandKind enumerates the small command grammar understood by the relay.
type CommandKind int

const (
	CommandNone CommandKind = iota
	CommandReset
	CommandStart
	CommandGenerateImage
	CommandPlainText
)

func (k CommandKind) String() string {
	switch k {
	case CommandReset:
		return "reset"
	case CommandStart:
		return "start"
	case CommandGenerateImage:
		return "generate_image"
	case CommandPlainText:
		return "plain_text"
	default:
		return "none"
	}
}

const (
	resetCommand        = "/reset"
	startCommand        = "/start"
	defaultImageCommand = "/generate_image"
)

// Command is the parsed form of an inbound message text.
// Prompt is set for CommandGenerateImage, Body for CommandPlainText.
type Command struct {
	Kind   CommandKind
	Prompt string
	Body   string
}

// ParseCommand classifies text. Reset and start must stand alone; the image
// command must be followed by whitespace or end the text. Each command may
// carry Telegram's @BotName suffix. An empty imagePrefix falls back to
// /generate_image.
func ParseCommand(text, imagePrefix string) Command {
	if imagePrefix == "" {
		imagePrefix = defaultImageCommand
	}
	if rest, ok := matchCommand(text, resetCommand); ok && rest == "" {
		return Command{Kind: CommandReset}
	}
	if rest, ok := matchCommand(text, startCommand); ok && rest == "" {
		return Command{Kind: CommandStart}
	}
	if rest, ok := matchCommand(text, imagePrefix); ok {
		return Command{Kind: CommandGenerateImage, Prompt: rest}
	}
	if text != "" {
		return Command{Kind: CommandPlainText, Body: text}
	}
	return Command{Kind: CommandNone}
}

// matchCommand reports whether text starts with the command token name and
// returns the trimmed remainder. "/name@bot rest" matches as well.
func matchCommand(text, name string) (string, bool) {
	if !strings.HasPrefix(text, name) {
		return "", false
	}
	rest := text[len(name):]
	if strings.HasPrefix(rest, "@") {
		end := strings.IndexFunc(rest, unicode.IsSpace)
		if end < 0 {
			end = len(rest)
		}
		if end == 1 {
			return "", false
		}
		rest = rest[end:]
	}
	if rest == "" {
		return "", true
	}
	if r, _ := utf8.DecodeRuneInString(rest); !unicode.IsSpace(r) {
		return "", false
	}
	return strings.TrimSpace(rest), true
}
