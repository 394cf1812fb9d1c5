package domain

// Part is one element of a multimodal request or response: either a text
// fragment or inline binary data.
type Part struct {
	Text       string
	InlineData *Blob
}

// Blob carries inline binary data such as an audio clip or a generated image.
type Blob struct {
	MIMEType string
	Data     []byte
}

func TextPart(s string) Part {
	return Part{Text: s}
}
