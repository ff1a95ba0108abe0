package ai

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"

	"storyia/internal/imaging"
)

// ErrNotConfigured is returned when a task's provider has no credentials.
var ErrNotConfigured = errors.New("provider not configured")

// ProviderError reports a provider call that produced no usable answer.
type ProviderError struct {
	Task   string
	Reason string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Task, e.Reason)
}

const (
	visionTimeout    = 60 * time.Second
	faceCountTimeout = 30 * time.Second
	describeTimeout  = 30 * time.Second
)

// Vision runs image understanding tasks against the Groq vision models.
type Vision struct {
	groq    *Groq
	logger  *zap.Logger
	metrics fallbackRecorder
}

func NewVision(groq *Groq, logger *zap.Logger, m fallbackRecorder) *Vision {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Vision{groq: groq, logger: logger, metrics: m}
}

func (v *Vision) Configured() bool {
	return v.groq.Configured()
}

func (v *Vision) fallback(task string, err error) {
	v.logger.Info("using local fallback", zap.String("task", task), zap.Error(err))
	if v.metrics != nil {
		v.metrics.RecordFallback(task)
	}
}

// ask sends prompt and img to model and returns the assistant text.
func (v *Vision) ask(ctx context.Context, task, model, prompt string, img image.Image, maxSide, maxTokens int, temperature float64, timeout time.Duration) (string, error) {
	if !v.groq.Configured() {
		return "", ErrNotConfigured
	}
	dataURL, err := imaging.VisionPayload(img, maxSide)
	if err != nil {
		return "", fmt.Errorf("%s: %w", task, err)
	}
	res := v.groq.Chat(ctx, ChatRequest{
		Task:  task,
		Model: model,
		Messages: []Message{{
			Role: "user",
			Content: []ContentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &ImageURL{URL: dataURL}},
			},
		}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Timeout:     timeout,
	})
	if !res.OK() {
		reason := res.Response.Reason()
		if res.Response.OK() {
			reason = "empty answer"
		}
		return "", &ProviderError{Task: task, Reason: reason}
	}
	return res.Text, nil
}

func (v *Vision) analyze(ctx context.Context, task, prompt string, img image.Image) (string, error) {
	text, err := v.ask(ctx, task, ModelVision, prompt, img, imaging.VisionMaxSide, 500, 0.3, visionTimeout)
	if err != nil {
		v.fallback(task, err)
	}
	return text, err
}

// Objects lists visible objects, people and animals.
func (v *Vision) Objects(ctx context.Context, img image.Image) (Objects, error) {
	text, err := v.analyze(ctx, "objects", ObjectsPrompt, img)
	if err != nil {
		return Objects{Objects: []string{}, Animals: []string{}}, err
	}
	return ParseObjects(text), nil
}

// Emotions reads per-person emotions and the overall mood.
func (v *Vision) Emotions(ctx context.Context, img image.Image) (Emotions, error) {
	text, err := v.analyze(ctx, "emotions", EmotionsPrompt, img)
	if err != nil {
		return Emotions{Emotions: []string{}, DominantEmotion: Unknown}, err
	}
	return ParseEmotions(text), nil
}

// Scene classifies the setting and suggests tags.
func (v *Vision) Scene(ctx context.Context, img image.Image) (Scene, error) {
	text, err := v.analyze(ctx, "scene", ScenePrompt, img)
	if err != nil {
		return ParseScene(""), err
	}
	return ParseScene(text), nil
}

// OCR extracts visible text.
func (v *Vision) OCR(ctx context.Context, img image.Image) (OCR, error) {
	text, err := v.analyze(ctx, "ocr", OCRPrompt, img)
	if err != nil {
		return OCR{}, err
	}
	return ParseOCR(text), nil
}

// Caption writes a short and a detailed caption.
func (v *Vision) Caption(ctx context.Context, img image.Image) (Caption, error) {
	text, err := v.analyze(ctx, "caption", CaptionPrompt, img)
	if err != nil {
		return Caption{}, err
	}
	return ParseCaption(text), nil
}

// CountFaces asks the small vision model how many faces are visible.
func (v *Vision) CountFaces(ctx context.Context, img image.Image) (int, error) {
	text, err := v.ask(ctx, "face_count", ModelFaceCount, FaceCountPrompt, img, imaging.FaceCountMaxSide, 10, 0, faceCountTimeout)
	if err != nil {
		v.fallback("face_count", err)
		return 0, err
	}
	return ParseFaceCount(text), nil
}

// Describe writes a poetic description from the stored face tags. The
// second result is false when the local description was used.
func (v *Vision) Describe(ctx context.Context, imageID int64, f FaceInfo) (string, bool, error) {
	if !v.groq.Configured() {
		return "", false, ErrNotConfigured
	}
	res := v.groq.Chat(ctx, ChatRequest{
		Task:  "describe",
		Model: ModelSentiment,
		Messages: []Message{
			{Role: "system", Content: describeSystem},
			{Role: "user", Content: DescribePrompt(f)},
		},
		MaxTokens:   250,
		Temperature: 0.7,
		Timeout:     describeTimeout,
	})
	if !res.OK() {
		v.fallback("describe", &ProviderError{Task: "describe", Reason: res.Response.Reason()})
		return DescribeFallback(imageID, f), false, nil
	}
	return res.Text, true, nil
}

// Enhance asks for JSON enhancement suggestions.
func (v *Vision) Enhance(ctx context.Context, f FaceInfo) (Enhancement, bool, error) {
	if !v.groq.Configured() {
		return Enhancement{}, false, ErrNotConfigured
	}
	res := v.groq.Chat(ctx, ChatRequest{
		Task:  "enhance",
		Model: ModelSentiment,
		Messages: []Message{
			{Role: "system", Content: enhanceSystem},
			{Role: "user", Content: EnhancePrompt(f)},
		},
		MaxTokens:   250,
		Temperature: 0.2,
		Timeout:     describeTimeout,
	})
	if !res.OK() {
		v.fallback("enhance", &ProviderError{Task: "enhance", Reason: res.Response.Reason()})
		return EnhanceFallback(f), false, nil
	}
	if e, ok := ParseEnhancement(res.Text); ok {
		return e, true, nil
	}
	v.fallback("enhance", &ProviderError{Task: "enhance", Reason: "answer is not JSON"})
	return EnhanceParseFallback(f), false, nil
}

// Location is a decimal-degree position.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// AnalysisSummary condenses a comprehensive analysis.
type AnalysisSummary struct {
	HasPeople       bool      `json:"has_people"`
	HasText         bool      `json:"has_text"`
	HasGPS          bool      `json:"has_gps"`
	SceneType       string    `json:"scene_type"`
	DominantEmotion string    `json:"dominant_emotion"`
	SuggestedTags   []string  `json:"suggested_tags"`
	Caption         string    `json:"caption"`
	Location        *Location `json:"location"`
}

// Analysis is the result of running every image task at once.
type Analysis struct {
	Success  bool            `json:"success"`
	Objects  Objects         `json:"objects"`
	Emotions Emotions        `json:"emotions"`
	Scene    Scene           `json:"scene"`
	Text     OCR             `json:"text"`
	Captions Caption         `json:"captions"`
	EXIF     imaging.EXIF    `json:"exif"`
	Summary  AnalysisSummary `json:"summary"`
	Errors   []string        `json:"errors,omitempty"`
}

// Comprehensive runs objects, emotions, scene, OCR and caption in turn and
// combines them with the EXIF data. Success is true when at least one
// task answered.
func (v *Vision) Comprehensive(ctx context.Context, img image.Image, exif imaging.EXIF) Analysis {
	var a Analysis
	var errs []error
	var err error

	a.Objects, err = v.Objects(ctx, img)
	errs = append(errs, err)
	a.Emotions, err = v.Emotions(ctx, img)
	errs = append(errs, err)
	a.Scene, err = v.Scene(ctx, img)
	errs = append(errs, err)
	a.Text, err = v.OCR(ctx, img)
	errs = append(errs, err)
	a.Captions, err = v.Caption(ctx, img)
	errs = append(errs, err)
	a.EXIF = exif

	for _, e := range errs {
		if e == nil {
			a.Success = true
			continue
		}
		a.Errors = append(a.Errors, e.Error())
	}

	a.Summary = AnalysisSummary{
		HasPeople:       a.Objects.PeopleCount > 0,
		HasText:         a.Text.HasText,
		HasGPS:          exif.HasGPS,
		SceneType:       a.Scene.SceneType,
		DominantEmotion: a.Emotions.DominantEmotion,
		SuggestedTags:   a.Scene.SuggestedTags,
		Caption:         a.Captions.Short,
	}
	if exif.HasGPS && exif.Latitude != nil && exif.Longitude != nil {
		a.Summary.Location = &Location{Latitude: *exif.Latitude, Longitude: *exif.Longitude}
	}
	return a
}
