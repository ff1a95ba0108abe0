package ai

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	transcribeTimeout = 60 * time.Second
	sentimentTimeout  = 30 * time.Second
	topicsTimeout     = 30 * time.Second
	summaryTimeout    = 60 * time.Second
)

// VocalAnalyzer runs the speech pipeline: transcription, sentiment,
// summary and topics. Every method returns a usable value.
type VocalAnalyzer struct {
	groq    *Groq
	hf      *HuggingFace
	logger  *zap.Logger
	metrics fallbackRecorder
}

type fallbackRecorder interface {
	RecordFallback(task string)
}

func NewVocalAnalyzer(groq *Groq, hf *HuggingFace, logger *zap.Logger, m fallbackRecorder) *VocalAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VocalAnalyzer{groq: groq, hf: hf, logger: logger, metrics: m}
}

func (v *VocalAnalyzer) fallback(task string, reason string) {
	v.logger.Info("using local fallback", zap.String("task", task), zap.String("reason", reason))
	if v.metrics != nil {
		v.metrics.RecordFallback(task)
	}
}

// Providers reports which speech providers are configured.
func (v *VocalAnalyzer) Providers() map[string]bool {
	return map[string]bool{
		"groq":        v.groq.Configured(),
		"huggingface": v.hf.Configured(),
	}
}

// Transcribe returns the recognized text, or a bracketed placeholder when
// no provider produced any.
func (v *VocalAnalyzer) Transcribe(ctx context.Context, filename string, audio []byte) string {
	var last Response
	tried := false

	if v.groq.Configured() {
		tried = true
		last = v.groq.Transcribe(ctx, filename, audio, transcribeTimeout)
		if last.OK() {
			if text := ParseTranscription(last.Body); text != "" {
				return text
			}
		}
	}
	if v.hf.Configured() {
		tried = true
		last = v.hf.InferRaw(ctx, "transcription", HFModelWhisper, audio, transcribeTimeout)
		if last.OK() {
			if text := ParseTranscription(last.Body); text != "" {
				return text
			}
		}
	}

	if !tried {
		v.fallback("transcription", "no provider configured")
		return PlaceholderNoProvider
	}
	v.fallback("transcription", last.Reason())
	return TranscriptionPlaceholder(last)
}

// Sentiment classifies text. Placeholders and failures are neutral/0.5.
func (v *VocalAnalyzer) Sentiment(ctx context.Context, text string) Sentiment {
	if IsPlaceholder(text) {
		return NeutralSentiment
	}

	if v.groq.Configured() {
		res := v.groq.Chat(ctx, ChatRequest{
			Task:        "sentiment",
			Model:       ModelSentiment,
			Messages:    []Message{{Role: "user", Content: SentimentPrompt(text)}},
			MaxTokens:   5,
			Temperature: 0,
			Timeout:     sentimentTimeout,
		})
		if res.OK() {
			return ParseSentiment(res.Text)
		}
	}

	if v.hf.Configured() {
		resp := v.hf.Infer(ctx, "sentiment", HFModelSentiment,
			map[string]string{"inputs": truncateRunes(text, hfSentimentInputLimit)}, sentimentTimeout)
		if resp.OK() {
			if s, ok := ParseHFSentiment(resp.Body); ok {
				return s
			}
		}
	}

	v.fallback("sentiment", "no usable provider answer")
	return NeutralSentiment
}

// Summarize condenses text. Without a summarization answer it truncates.
func (v *VocalAnalyzer) Summarize(ctx context.Context, text string) string {
	if !v.hf.Configured() || IsPlaceholder(text) {
		return TruncateSummary(text)
	}

	resp := v.hf.Infer(ctx, "summary", HFModelSummary, map[string]any{
		"inputs": truncateRunes(text, hfSummaryInputLimit),
		"parameters": map[string]any{
			"max_length": 130,
			"min_length": 30,
			"do_sample":  false,
		},
	}, summaryTimeout)
	if resp.OK() {
		if summary, ok := ParseHFSummary(resp.Body); ok {
			return summary
		}
	}
	v.fallback("summary", resp.Reason())
	return TruncateSummary(text)
}

// DetectTopics extracts topics, category, keywords and context.
func (v *VocalAnalyzer) DetectTopics(ctx context.Context, text string) Topics {
	if IsPlaceholder(text) {
		return EmptyTopics()
	}
	if v.groq.Configured() {
		res := v.groq.Chat(ctx, ChatRequest{
			Task:        "topics",
			Model:       ModelSentiment,
			Messages:    []Message{{Role: "user", Content: TopicsPrompt(text)}},
			MaxTokens:   300,
			Temperature: 0.3,
			Timeout:     topicsTimeout,
		})
		if res.OK() {
			return ParseTopics(res.Text)
		}
	}
	v.fallback("topics", "no usable provider answer")
	return LocalTopics(text)
}
