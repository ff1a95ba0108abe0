package ai

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"storyia/internal/config"
	"storyia/internal/metrics"
)

// Services bundles every AI task behind one value built from the config.
type Services struct {
	Vocal       *VocalAnalyzer
	Vision      *Vision
	Illustrator *Illustrator
	Recommender *Recommender
	Assistant   *Assistant
}

// NewServices wires the provider clients. httpClient is shared by all of
// them so tests can intercept every outbound call.
func NewServices(ctx context.Context, cfg *config.Config, httpClient *http.Client, logger *zap.Logger, m *metrics.AIMetrics) (*Services, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	client := NewClient(httpClient, logger, m)
	groq := NewGroq(client, cfg.Groq)
	hf := NewHuggingFace(client, cfg.HuggingFace)

	rec, err := NewRecommender(ctx, cfg.Gemini, httpClient, logger, m)
	if err != nil {
		return nil, err
	}
	return &Services{
		Vocal:       NewVocalAnalyzer(groq, hf, logger, m),
		Vision:      NewVision(groq, logger, m),
		Illustrator: NewIllustrator(client, cfg.AI, cfg.Pollinations.APIBase, hf, groq, logger, m),
		Recommender: rec,
		Assistant:   NewAssistant(groq, logger, m),
	}, nil
}
