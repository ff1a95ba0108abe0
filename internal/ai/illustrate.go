package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"storyia/internal/config"
	"storyia/internal/imaging"
)

// Image generation providers.
const (
	ProviderLocal        = "local"
	ProviderPollinations = "pollinations"
	ProviderHuggingFace  = "huggingface"
	ProviderOpenAI       = "openai"
	ProviderGroq         = "groq"
	ProviderGrok         = "grok"
	ProviderStability    = "stability"
	ProviderAuto         = "auto"
)

const (
	generationTimeout      = 60 * time.Second
	autoTimeout            = 30 * time.Second
	variationPollTimeout   = 45 * time.Second
	variationDiffusionTime = 60 * time.Second
)

// Illustration is a generated picture and how it was produced.
type Illustration struct {
	Data       []byte
	Ext        string
	Provider   string
	DurationMS int64
}

// Meta is the provenance reported to the client.
func (i Illustration) Meta() map[string]any {
	return map[string]any{"provider": i.Provider, "duration_ms": i.DurationMS}
}

// Illustrator turns text descriptions into images.
type Illustrator struct {
	client       *Client
	cfg          config.ImageGenConfig
	pollinations string
	hf           *HuggingFace
	groq         *Groq
	logger       *zap.Logger
	metrics      fallbackRecorder
	seed         func() int
}

func NewIllustrator(client *Client, cfg config.ImageGenConfig, pollinationsBase string, hf *HuggingFace, groq *Groq, logger *zap.Logger, m fallbackRecorder) *Illustrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Illustrator{
		client:       client,
		cfg:          cfg,
		pollinations: pollinationsBase,
		hf:           hf,
		groq:         groq,
		logger:       logger,
		metrics:      m,
		seed:         func() int { return rand.IntN(1_000_000) + 1 },
	}
}

// Local renders the placeholder picture.
func Local(description string) (Illustration, error) {
	data, err := imaging.EncodePNG(imaging.Placeholder(description))
	if err != nil {
		return Illustration{}, fmt.Errorf("render placeholder: %w", err)
	}
	return Illustration{Data: data, Ext: "png", Provider: ProviderLocal}, nil
}

func (il *Illustrator) local(task, description, reason string) (Illustration, error) {
	il.logger.Info("using local placeholder", zap.String("task", task), zap.String("reason", reason))
	if il.metrics != nil {
		il.metrics.RecordFallback(task)
	}
	return Local(description)
}

// Generate produces an image for description. An empty provider uses the
// configured one. Only an explicitly selected remote provider that fails
// returns an error; missing credentials degrade to the local placeholder.
func (il *Illustrator) Generate(ctx context.Context, description, provider string) (Illustration, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		provider = il.cfg.Provider
	}
	const task = "image_generation"

	switch provider {
	case ProviderPollinations:
		return il.pollinate(ctx, task, description, generationTimeout)
	case ProviderHuggingFace:
		key := il.diffusionKey()
		if key == "" {
			return il.local(task, description, "no huggingface key")
		}
		return il.diffuse(ctx, task, description, key, generationTimeout)
	case ProviderOpenAI:
		if !il.remoteConfigured() {
			return il.local(task, description, "no image api credentials")
		}
		return il.openAI(ctx, description)
	case ProviderStability:
		if !il.remoteConfigured() {
			return il.local(task, description, "no image api credentials")
		}
		return il.stability(ctx, description)
	case ProviderGroq, ProviderGrok:
		return il.enhancedLocal(ctx, description, provider)
	case ProviderAuto:
		return il.auto(ctx, description)
	}
	return Local(description)
}

func (il *Illustrator) remoteConfigured() bool {
	return strings.TrimSpace(il.cfg.APIKey) != "" && strings.TrimSpace(il.cfg.APIBase) != ""
}

// diffusionKey prefers a Hugging Face token in ai.api_key, then the
// huggingface section.
func (il *Illustrator) diffusionKey() string {
	if strings.HasPrefix(il.cfg.APIKey, "hf_") {
		return il.cfg.APIKey
	}
	if il.hf.Configured() {
		return il.hf.cfg.APIKey
	}
	return ""
}

func (il *Illustrator) auto(ctx context.Context, description string) (Illustration, error) {
	const task = "image_generation"
	if out, err := il.pollinate(ctx, task, description, autoTimeout); err == nil {
		return out, nil
	}
	if key := il.diffusionKey(); strings.HasPrefix(key, "hf_") {
		if out, err := il.diffuse(ctx, task, description, key, autoTimeout); err == nil {
			return out, nil
		}
	}
	return il.local(task, description, "auto providers exhausted")
}

func (il *Illustrator) pollinationsURL(prompt string) string {
	return fmt.Sprintf("%s/prompt/%s?width=512&height=512&seed=%d&nologo=true",
		il.pollinations, url.PathEscape(prompt), il.seed())
}

func (il *Illustrator) pollinate(ctx context.Context, task, prompt string, timeout time.Duration) (Illustration, error) {
	start := time.Now()
	resp := il.client.Do(ctx, Request{
		Provider: ProviderPollinations,
		Task:     task,
		Method:   http.MethodGet,
		URL:      il.pollinationsURL(prompt),
		Timeout:  timeout,
	})
	return imageBody(ProviderPollinations, resp, start)
}

func (il *Illustrator) diffuse(ctx context.Context, task, prompt, key string, timeout time.Duration) (Illustration, error) {
	start := time.Now()
	resp := il.client.PostJSON(ctx, Request{
		Provider: ProviderHuggingFace,
		Task:     task,
		URL:      il.hf.modelURL(HFModelDiffusion),
		APIKey:   key,
		Timeout:  timeout,
	}, map[string]string{"inputs": prompt})
	return imageBody(ProviderHuggingFace, resp, start)
}

// imageBody accepts a response whose body is a PNG, JPEG or WebP file.
func imageBody(provider string, resp Response, start time.Time) (Illustration, error) {
	if !resp.OK() {
		return Illustration{}, &ProviderError{Task: provider, Reason: resp.Reason()}
	}
	ext := imageExt(resp.Body)
	if ext == "" {
		return Illustration{}, &ProviderError{Task: provider, Reason: "response is not an image"}
	}
	return Illustration{Data: resp.Body, Ext: ext, Provider: provider, DurationMS: time.Since(start).Milliseconds()}, nil
}

func imageExt(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	}
	return ""
}

func (il *Illustrator) openAI(ctx context.Context, description string) (Illustration, error) {
	start := time.Now()
	resp := il.client.PostJSON(ctx, Request{
		Provider: ProviderOpenAI,
		Task:     "image_generation",
		URL:      strings.TrimRight(il.cfg.APIBase, "/") + "/images/generations",
		APIKey:   il.cfg.APIKey,
		Timeout:  generationTimeout,
	}, map[string]any{"prompt": description, "n": 1, "size": "512x512", "response_format": "b64_json"})
	if !resp.OK() {
		return Illustration{}, &ProviderError{Task: ProviderOpenAI, Reason: resp.Reason()}
	}
	var parsed struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &parsed); err != nil || len(parsed.Data) == 0 {
		return Illustration{}, &ProviderError{Task: ProviderOpenAI, Reason: "no image in response"}
	}
	return decodeB64Image(ProviderOpenAI, parsed.Data[0].B64JSON, start)
}

func (il *Illustrator) stability(ctx context.Context, description string) (Illustration, error) {
	start := time.Now()
	resp := il.client.PostJSON(ctx, Request{
		Provider: ProviderStability,
		Task:     "image_generation",
		URL:      strings.TrimRight(il.cfg.APIBase, "/") + "/v1/generation/stable-diffusion-v1-6/text-to-image",
		APIKey:   il.cfg.APIKey,
		Timeout:  generationTimeout,
	}, map[string]any{"text_prompts": []map[string]string{{"text": description}}})
	if !resp.OK() {
		return Illustration{}, &ProviderError{Task: ProviderStability, Reason: resp.Reason()}
	}
	var parsed struct {
		Artifacts []struct {
			Base64 string `json:"base64"`
		} `json:"artifacts"`
	}
	if err := json.Unmarshal(resp.Body, &parsed); err != nil || len(parsed.Artifacts) == 0 {
		return Illustration{}, &ProviderError{Task: ProviderStability, Reason: "no image in response"}
	}
	return decodeB64Image(ProviderStability, parsed.Artifacts[0].Base64, start)
}

func decodeB64Image(provider, b64 string, start time.Time) (Illustration, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil || len(data) == 0 {
		return Illustration{}, &ProviderError{Task: provider, Reason: "invalid base64 image"}
	}
	ext := imageExt(data)
	if ext == "" {
		ext = "png"
	}
	return Illustration{Data: data, Ext: ext, Provider: provider, DurationMS: time.Since(start).Milliseconds()}, nil
}

// enhancedLocal asks the chat model for a richer description and renders
// it as wrapped text.
func (il *Illustrator) enhancedLocal(ctx context.Context, description, provider string) (Illustration, error) {
	if !il.groq.Configured() {
		return il.local("image_generation", description, "no groq key")
	}
	res := il.groq.Chat(ctx, ChatRequest{
		Task:      "image_prompt",
		Model:     ModelChat,
		Messages:  []Message{{Role: "user", Content: IllustrationPrompt(description)}},
		MaxTokens: 200,
		Timeout:   generationTimeout,
	})
	if !res.OK() {
		return il.local("image_generation", description, res.Response.Reason())
	}
	data, err := imaging.EncodePNG(imaging.EnhancedPlaceholder(res.Text))
	if err != nil {
		return Illustration{}, fmt.Errorf("render enhanced placeholder: %w", err)
	}
	return Illustration{Data: data, Ext: "png", Provider: provider + "_ai_enhanced"}, nil
}

// Variation is a restyled copy of an uploaded image.
type Variation struct {
	Illustration
	Prompt string
}

// Description is the caption stored with the generated image.
func (v Variation) Description(style string) string {
	if v.Provider == ProviderLocal {
		return fmt.Sprintf("Variation (%s): Filtered version", style)
	}
	return fmt.Sprintf("Variation (%s): %s", style, v.Prompt)
}

// Vary tries Pollinations, then Stable Diffusion, then a local styled copy
// of src.
func (il *Illustrator) Vary(ctx context.Context, src image.Image, faceCount int, style string) (Variation, error) {
	const task = "variation"
	prompt := VariationPrompt(faceCount, style)

	if out, err := il.pollinate(ctx, task, prompt, variationPollTimeout); err == nil {
		return Variation{Illustration: out, Prompt: prompt}, nil
	}
	if key := il.diffusionKey(); key != "" {
		if out, err := il.diffuse(ctx, task, prompt, key, variationDiffusionTime); err == nil {
			return Variation{Illustration: out, Prompt: prompt}, nil
		}
	}

	il.logger.Info("using local variation", zap.String("style", style))
	if il.metrics != nil {
		il.metrics.RecordFallback(task)
	}
	data, err := imaging.EncodePNG(imaging.StyleVariation(src, style))
	if err != nil {
		return Variation{}, fmt.Errorf("encode variation: %w", err)
	}
	return Variation{Illustration: Illustration{Data: data, Ext: "png", Provider: ProviderLocal}, Prompt: prompt}, nil
}
