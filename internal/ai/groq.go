package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"storyia/internal/config"
)

const providerGroq = "groq"

// Model names used against the OpenAI-compatible Groq endpoint.
const (
	ModelChat          = "llama-3.3-70b-versatile"
	ModelChatFallback  = "llama-3.1-8b-instant"
	ModelSentiment     = "llama-3.1-70b-versatile"
	ModelVision        = "llama-3.2-90b-vision-preview"
	ModelFaceCount     = "llama-3.2-11b-vision-preview"
	ModelWhisper       = "whisper-large-v3"
	ModelProblemWriter = "llama-3.3-70b-versatile"
)

// Message is one chat-completions message. Content is either a string or a
// slice of ContentPart for vision requests.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ContentPart is a typed fragment of a multimodal message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

// ChatRequest is a chat-completions call. FallbackModel, when set, is tried
// once if Model answers with a non-2xx status.
type ChatRequest struct {
	Task          string
	Model         string
	FallbackModel string
	Messages      []Message
	MaxTokens     int
	Temperature   float64
	Timeout       time.Duration
}

type chatPayload struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

// ChatResult carries the extracted assistant text and the final response.
type ChatResult struct {
	Text     string
	Model    string
	Response Response
}

// OK reports a 2xx answer with a non-empty assistant message.
func (r ChatResult) OK() bool {
	return r.Response.OK() && strings.TrimSpace(r.Text) != ""
}

// Groq talks to an OpenAI-compatible chat, vision and transcription API.
type Groq struct {
	client *Client
	cfg    config.ProviderConfig
}

func NewGroq(client *Client, cfg config.ProviderConfig) *Groq {
	return &Groq{client: client, cfg: cfg}
}

// Configured reports whether an API key is present.
func (g *Groq) Configured() bool {
	return g != nil && g.cfg.Configured()
}

// Chat posts a chat completion. On a non-2xx status with a FallbackModel set,
// the request is repeated once with that model.
func (g *Groq) Chat(ctx context.Context, req ChatRequest) ChatResult {
	result := g.chatOnce(ctx, req, req.Model)
	if req.FallbackModel != "" && req.FallbackModel != req.Model &&
		result.Response.Err == nil && !result.Response.OK() {
		result = g.chatOnce(ctx, req, req.FallbackModel)
	}
	return result
}

func (g *Groq) chatOnce(ctx context.Context, req ChatRequest, model string) ChatResult {
	payload := chatPayload{
		Model:       model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	resp := g.client.PostJSON(ctx, Request{
		Provider: providerGroq,
		Task:     req.Task,
		URL:      g.cfg.APIBase + "/chat/completions",
		APIKey:   g.cfg.APIKey,
		Timeout:  req.Timeout,
	}, payload)

	result := ChatResult{Model: model, Response: resp}
	if resp.OK() {
		result.Text = ParseChatContent(resp.Body)
	}
	return result
}

// Transcribe uploads audio to the Whisper transcription endpoint and returns
// the response; the text is read with ParseTranscription.
func (g *Groq) Transcribe(ctx context.Context, filename string, audio []byte, timeout time.Duration) Response {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err == nil {
		_, err = part.Write(audio)
	}
	if err == nil {
		err = mw.WriteField("model", ModelWhisper)
	}
	if err == nil {
		err = mw.Close()
	}
	if err != nil {
		return Response{Err: err}
	}

	return g.client.Do(ctx, Request{
		Provider:    providerGroq,
		Task:        "transcription",
		Method:      http.MethodPost,
		URL:         g.cfg.APIBase + "/audio/transcriptions",
		APIKey:      g.cfg.APIKey,
		ContentType: mw.FormDataContentType(),
		Body:        buf.Bytes(),
		Timeout:     timeout,
	})
}

// ParseChatContent returns choices[0].message.content, or "" when the body
// is not a chat-completions answer.
func ParseChatContent(body []byte) string {
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content)
}

// ParseTranscription reads the "text" field of a transcription answer. Both
// the Whisper endpoint and the Hugging Face ASR models use this shape.
func ParseTranscription(body []byte) string {
	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	return strings.TrimSpace(parsed.Text)
}
