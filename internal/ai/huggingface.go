package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"storyia/internal/config"
)

const providerHuggingFace = "huggingface"

// Hosted inference models.
const (
	HFModelWhisper   = "openai/whisper-small"
	HFModelSentiment = "cardiffnlp/twitter-roberta-base-sentiment-latest"
	HFModelSummary   = "facebook/bart-large-cnn"
	HFModelDiffusion = "stabilityai/stable-diffusion-2-1"
)

// HuggingFace calls the hosted inference API.
type HuggingFace struct {
	client *Client
	cfg    config.ProviderConfig
}

func NewHuggingFace(client *Client, cfg config.ProviderConfig) *HuggingFace {
	return &HuggingFace{client: client, cfg: cfg}
}

func (h *HuggingFace) Configured() bool {
	return h != nil && h.cfg.Configured()
}

func (h *HuggingFace) modelURL(model string) string {
	return h.cfg.APIBase + "/" + model
}

// Infer posts a JSON payload to model.
func (h *HuggingFace) Infer(ctx context.Context, task, model string, payload any, timeout time.Duration) Response {
	return h.client.PostJSON(ctx, Request{
		Provider: providerHuggingFace,
		Task:     task,
		URL:      h.modelURL(model),
		APIKey:   h.cfg.APIKey,
		Timeout:  timeout,
	}, payload)
}

// InferRaw posts raw bytes (audio) to model.
func (h *HuggingFace) InferRaw(ctx context.Context, task, model string, data []byte, timeout time.Duration) Response {
	return h.client.Do(ctx, Request{
		Provider:    providerHuggingFace,
		Task:        task,
		Method:      http.MethodPost,
		URL:         h.modelURL(model),
		APIKey:      h.cfg.APIKey,
		ContentType: "application/octet-stream",
		Body:        data,
		Timeout:     timeout,
	})
}

// hfLabels maps the cardiffnlp model's raw labels.
var hfLabels = map[string]string{
	"label_0":  SentimentNegative,
	"label_1":  SentimentNeutral,
	"label_2":  SentimentPositive,
	"negative": SentimentNegative,
	"neutral":  SentimentNeutral,
	"positive": SentimentPositive,
}

// ParseHFSentiment picks the highest scoring label from a text-classification
// answer. The body is either [[{label,score}...]] or [{label,score}...].
func ParseHFSentiment(body []byte) (Sentiment, bool) {
	type scored struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	}
	var nested [][]scored
	var flat []scored
	var items []scored
	if err := json.Unmarshal(body, &nested); err == nil && len(nested) > 0 {
		items = nested[0]
	} else if err := json.Unmarshal(body, &flat); err == nil {
		items = flat
	}
	if len(items) == 0 {
		return Sentiment{}, false
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
	best := items[0]
	label, ok := hfLabels[strings.ToLower(best.Label)]
	if !ok {
		label = SentimentNeutral
	}
	return Sentiment{Label: label, Score: best.Score}, true
}

// ParseHFSummary reads [0].summary_text from a summarization answer.
func ParseHFSummary(body []byte) (string, bool) {
	var parsed []struct {
		SummaryText string `json:"summary_text"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed) == 0 {
		return "", false
	}
	text := strings.TrimSpace(parsed[0].SummaryText)
	return text, text != ""
}
