package ai

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

const (
	chatTimeout          = 30 * time.Second
	chatTemperature      = 0.5
	chatMaxTokens        = 512
	problemTimeout       = 15 * time.Second
	problemReplyPrefix   = "🤖\n\n"
	errChatNotConfigured = "chat provider is not configured"
)

// ChatInput is a chat proxy request. Prompt is used when Messages is empty.
type ChatInput struct {
	Messages    []Message `json:"messages"`
	Prompt      string    `json:"prompt"`
	Model       string    `json:"model"`
	Temperature *float64  `json:"temperature"`
	MaxTokens   *int      `json:"max_tokens"`
}

// ChatOutput is always returned with HTTP 200; Success is false when no
// reply could be obtained.
type ChatOutput struct {
	Reply   string          `json:"reply"`
	Raw     json.RawMessage `json:"raw,omitempty"`
	Model   string          `json:"model,omitempty"`
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
}

// Assistant proxies free chat and writes problem summaries.
type Assistant struct {
	groq    *Groq
	logger  *zap.Logger
	metrics fallbackRecorder
}

func NewAssistant(groq *Groq, logger *zap.Logger, m fallbackRecorder) *Assistant {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assistant{groq: groq, logger: logger, metrics: m}
}

// MessagesFor returns the conversation to send, or nil if in has none.
func (in ChatInput) MessagesFor() []Message {
	if len(in.Messages) > 0 {
		return in.Messages
	}
	if in.Prompt != "" {
		return []Message{{Role: "user", Content: in.Prompt}}
	}
	return nil
}

// Chat forwards the conversation. The default model falls back to the
// smaller instant model on an error status.
func (a *Assistant) Chat(ctx context.Context, in ChatInput) ChatOutput {
	if !a.groq.Configured() {
		return ChatOutput{Error: errChatNotConfigured}
	}

	req := ChatRequest{
		Task:        "chat",
		Model:       in.Model,
		Messages:    in.MessagesFor(),
		MaxTokens:   chatMaxTokens,
		Temperature: chatTemperature,
		Timeout:     chatTimeout,
	}
	if req.Model == "" || req.Model == ModelChat {
		req.Model = ModelChat
		req.FallbackModel = ModelChatFallback
	}
	if in.Temperature != nil {
		req.Temperature = *in.Temperature
	}
	if in.MaxTokens != nil && *in.MaxTokens > 0 {
		req.MaxTokens = *in.MaxTokens
	}

	res := a.groq.Chat(ctx, req)
	if !res.Response.OK() {
		a.logger.Warn("chat upstream error", zap.String("model", res.Model), zap.String("reason", res.Response.Reason()))
		return ChatOutput{Model: res.Model, Error: "upstream API error: " + res.Response.Reason()}
	}
	out := ChatOutput{Reply: res.Text, Model: res.Model, Success: true}
	if json.Valid(res.Response.Body) {
		out.Raw = res.Response.Body
	}
	return out
}

// SummarizeProblem writes an empathetic summary with one piece of advice.
// Without a usable answer the input is truncated instead.
func (a *Assistant) SummarizeProblem(ctx context.Context, input string) (string, bool) {
	if a.groq.Configured() {
		res := a.groq.Chat(ctx, ChatRequest{
			Task:  "problem_summary",
			Model: ModelProblemWriter,
			Messages: []Message{
				{Role: "system", Content: problemSummarySystem},
				{Role: "user", Content: input},
			},
			MaxTokens:   400,
			Temperature: 0.7,
			Timeout:     problemTimeout,
		})
		if res.OK() {
			return problemReplyPrefix + res.Text, true
		}
		a.logger.Info("using local fallback", zap.String("task", "problem_summary"), zap.String("reason", res.Response.Reason()))
	}
	if a.metrics != nil {
		a.metrics.RecordFallback("problem_summary")
	}
	return TruncateSummary(input), false
}
