package usecase

import (
	"strings"

	"gemini-relay/internal/domain"
)

const (
	greetingText      = "Hey there! 👋 I'm Gemini AI assistant, here to help you with anything you need. 😊\n\nFeel free to ask me anything. Send /reset to start a new conversation."
	resetText         = "Conversation reset. Start a new conversation by asking a question."
	placeholderText   = "Processing your request..."
	emptyPromptText   = "Please provide a description of the image you want, for example: /generate_image a lighthouse at dusk"
	unsupportedText   = "Sorry, I can only handle text messages and audio files."
	failureText       = "Sorry, something went wrong while generating a response. Please try again."
	emptyResponseText = "I couldn't come up with a response to that."
	imageSentText     = "Here is your generated image."
	audioInstruction  = "summarize the audio"
)

var roleLabels = map[string]string{
	domain.RoleSystem:    "System",
	domain.RoleUser:      "User",
	domain.RoleAssistant: "Assistant",
}

// buildPrompt renders the history as one line per turn, oldest first.
func buildPrompt(history []domain.Turn) string {
	lines := make([]string, 0, len(history))
	for _, t := range history {
		label, ok := roleLabels[t.Role]
		if !ok {
			label = t.Role
		}
		lines = append(lines, label+": "+t.Content)
	}
	return strings.Join(lines, "\n")
}

func collectText(parts []domain.Part) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String())
}

func firstInlineData(parts []domain.Part) *domain.Blob {
	for _, p := range parts {
		if p.InlineData != nil && len(p.InlineData.Data) > 0 {
			return p.InlineData
		}
	}
	return nil
}

// displayText guards against sending an empty message, which the platform rejects.
func displayText(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
