package domain

// InboundMessage is the platform-agnostic view of a chat message received
// through the webhook.
type InboundMessage struct {
	MessageID int
	ChatID    int64
	Text      string
	Audio     *Attachment
}

// Attachment references a binary file held by the messaging platform.
type Attachment struct {
	FileID   string
	MIMEType string
}
