package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"gemini-relay/internal/domain"
)

type wirePart struct {
	Text       string `json:"text"`
	InlineData *struct {
		MIMEType string `json:"mimeType"`
		Data     string `json:"data"`
	} `json:"inlineData"`
}

type wireRequest struct {
	Contents []struct {
		Role  string     `json:"role"`
		Parts []wirePart `json:"parts"`
	} `json:"contents"`
	GenerationConfig *struct {
		ResponseModalities []string `json:"responseModalities"`
	} `json:"generationConfig"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(), "test-key",
		WithBaseURL(srv.URL),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	)
	require.NoError(t, err)
	return c
}

func decodeRequest(t *testing.T, r *http.Request) wireRequest {
	t.Helper()
	body, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var in wireRequest
	require.NoError(t, json.Unmarshal(body, &in))
	return in
}

func TestNewClient_EmptyKey(t *testing.T) {
	_, err := NewClient(context.Background(), "  ")
	require.ErrorContains(t, err, "api key")
}

func TestGenerate_AudioRequestShape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-media:generateContent"), r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		in := decodeRequest(t, r)
		require.Nil(t, in.GenerationConfig)
		require.Len(t, in.Contents, 1)
		require.Equal(t, "user", in.Contents[0].Role)
		parts := in.Contents[0].Parts
		require.Len(t, parts, 2)
		require.Equal(t, "audio/ogg", parts[0].InlineData.MIMEType)
		require.Equal(t, base64.StdEncoding.EncodeToString([]byte("ABC")), parts[0].InlineData.Data)
		require.Equal(t, "summarize the audio", parts[1].Text)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"A memo."}]},"finishReason":"STOP"}]}`))
	})

	parts, err := c.Generate(context.Background(), "gemini-media", []domain.Part{
		{InlineData: &domain.Blob{MIMEType: "audio/ogg", Data: []byte("ABC")}},
		domain.TextPart("summarize the audio"),
	})
	require.NoError(t, err)
	require.Equal(t, []domain.Part{{Text: "A memo."}}, parts)
}

func TestGenerate_ImageModalities(t *testing.T) {
	png := []byte("\x89PNG fake")
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		in := decodeRequest(t, r)
		require.NotNil(t, in.GenerationConfig)
		require.Equal(t, []string{"TEXT", "IMAGE"}, in.GenerationConfig.ResponseModalities)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[
			{"text":"Here you go."},
			{"inlineData":{"mimeType":"image/png","data":"` + base64.StdEncoding.EncodeToString(png) + `"}}
		]}}]}`))
	})

	parts, err := c.Generate(context.Background(), "gemini-image", []domain.Part{domain.TextPart("a cat")}, "TEXT", "IMAGE")
	require.NoError(t, err)
	require.Len(t, parts, 2)
	require.Equal(t, "Here you go.", parts[0].Text)
	require.Equal(t, &domain.Blob{MIMEType: "image/png", Data: png}, parts[1].InlineData)
}

func TestGenerate_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`))
	})

	_, err := c.Generate(context.Background(), "m", []domain.Part{domain.TextPart("hi")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "gemini: generate")
	require.Contains(t, err.Error(), "429")
}

func TestGenerate_NoCandidates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := c.Generate(context.Background(), "m", []domain.Part{domain.TextPart("hi")})
	require.ErrorContains(t, err, "no candidates")
}

func TestGenerate_PromptBlocked(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
	})

	_, err := c.Generate(context.Background(), "m", []domain.Part{domain.TextPart("hi")})
	require.ErrorContains(t, err, "prompt blocked: SAFETY")
}

func TestGenerate_ContextDeadline(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Generate(ctx, "m", []domain.Part{domain.TextPart("hi")})
	require.ErrorContains(t, err, "gemini: generate")
}

func TestGenerate_ValidatesInput(t *testing.T) {
	c, err := NewClient(context.Background(), "k")
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "", []domain.Part{domain.TextPart("hi")})
	require.ErrorContains(t, err, "model")

	_, err = c.Generate(context.Background(), "m", nil)
	require.ErrorContains(t, err, "part")
}

func TestFromGenai_SkipsThoughtsAndEmptyParts(t *testing.T) {
	got := fromGenai([]*genai.Part{
		nil,
		{Text: "thinking...", Thought: true},
		{Text: ""},
		{Text: "answer"},
	})
	require.Equal(t, []domain.Part{{Text: "answer"}}, got)
}
