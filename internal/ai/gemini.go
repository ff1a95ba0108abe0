package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"storyia/internal/config"
)

const (
	providerGemini   = "gemini"
	activitiesTask   = "activities"
	modelCacheKey    = "gemini_model"
	modelCacheTTL    = time.Hour
	activityTimeout  = 30 * time.Second
	generateAction   = "generateContent"
	geminiModelsPath = "models/"
)

// preferredModels is tried in order when the configured model is not listed.
var preferredModels = []string{
	"gemini-pro-latest",
	"gemini-flash-latest",
	"gemini-2.5-flash-lite",
	"gemma-3-27b-it",
	"gemma-3-12b-it",
}

type requestRecorder interface {
	fallbackRecorder
	RecordRequest(provider, task string, status int, seconds float64)
}

// Recommender suggests wellbeing activities for a journal entry, using
// Gemini when a key is configured and local rules otherwise.
type Recommender struct {
	client  *genai.Client
	cfg     config.GeminiConfig
	models  *cache.Cache
	logger  *zap.Logger
	metrics requestRecorder
}

// NewRecommender builds the Gemini client. Without an API key only the
// local rules are used.
func NewRecommender(ctx context.Context, cfg config.GeminiConfig, httpClient *http.Client, logger *zap.Logger, m requestRecorder) (*Recommender, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Recommender{
		cfg:     cfg,
		models:  cache.New(modelCacheTTL, 2*modelCacheTTL),
		logger:  logger,
		metrics: m,
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return r, nil
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.APIBase != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.APIBase}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	r.client = client
	return r, nil
}

func (r *Recommender) Configured() bool {
	return r != nil && r.client != nil
}

// Recommend returns suggestions and the source that produced them
// ("gemini" or "local").
func (r *Recommender) Recommend(ctx context.Context, in ActivityInput) ([]Activity, string) {
	if !r.Configured() {
		return LocalActivities(in), ProviderLocal
	}

	prompt := ActivitiesPrompt(in)
	primary := r.model(ctx)
	text, err := r.generate(ctx, primary, prompt)
	if err != nil && r.cfg.FallbackModel != "" && r.cfg.FallbackModel != primary {
		r.logger.Warn("gemini primary model failed", zap.String("model", primary), zap.Error(err))
		text, err = r.generate(ctx, r.cfg.FallbackModel, prompt)
	}
	if err == nil {
		if acts := ParseActivities(text); len(acts) > 0 {
			return acts, providerGemini
		}
		err = errors.New("no usable activities in answer")
	}

	r.logger.Info("using local fallback", zap.String("task", activitiesTask), zap.Error(err))
	if r.metrics != nil {
		r.metrics.RecordFallback(activitiesTask)
	}
	return LocalActivities(in), ProviderLocal
}

func (r *Recommender) generate(ctx context.Context, model, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, activityTimeout)
	defer cancel()

	start := time.Now()
	resp, err := r.client.Models.GenerateContent(ctx, model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr[float32](0.2),
			TopP:             genai.Ptr[float32](0.9),
			MaxOutputTokens:  450,
			ResponseMIMEType: "application/json",
		})
	r.record(err, time.Since(start))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("empty response from Gemini")
	}
	return text, nil
}

func (r *Recommender) record(err error, elapsed time.Duration) {
	if r.metrics == nil {
		return
	}
	status := http.StatusOK
	if err != nil {
		status = 0
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			status = apiErr.Code
		}
	}
	r.metrics.RecordRequest(providerGemini, activitiesTask, status, elapsed.Seconds())
}

// model returns the cached choice, listing the available models at most
// once per TTL. A failed listing falls back to the configured model and is
// not cached.
func (r *Recommender) model(ctx context.Context) string {
	if m, ok := r.models.Get(modelCacheKey); ok {
		return m.(string)
	}

	page, err := r.client.Models.List(ctx, nil)
	if err != nil {
		r.logger.Warn("gemini model listing failed", zap.Error(err))
		return r.cfg.Model
	}

	var usable []string
	for _, m := range page.Items {
		if m == nil || !supports(m.SupportedActions, generateAction) {
			continue
		}
		usable = append(usable, strings.TrimPrefix(m.Name, geminiModelsPath))
	}
	chosen := PickModel(usable, r.cfg.Model)
	r.models.Set(modelCacheKey, chosen, cache.DefaultExpiration)
	r.logger.Info("gemini model selected", zap.String("model", chosen))
	return chosen
}

func supports(actions []string, action string) bool {
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}

// PickModel chooses among models that support content generation: the
// configured one if listed, then the preference list, then the first.
// With nothing listed the configured model is returned as is.
func PickModel(available []string, configured string) string {
	if len(available) == 0 {
		return configured
	}
	has := make(map[string]bool, len(available))
	for _, m := range available {
		has[m] = true
	}
	if has[configured] {
		return configured
	}
	for _, m := range preferredModels {
		if has[m] {
			return m
		}
	}
	return available[0]
}
