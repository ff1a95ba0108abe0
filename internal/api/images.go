package api

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"storyia/internal/ai"
	"storyia/internal/imaging"
	"storyia/internal/models"
)

func (h *Handlers) UploadImage(w http.ResponseWriter, r *http.Request) {
	if !h.parseMultipart(w, r) {
		return
	}
	data, header, ok, err := formFile(r, "image")
	if err != nil || !ok {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	img, format, err := imaging.DecodeBytes(data)
	if errors.Is(err, imaging.ErrTooLarge) {
		writeError(w, http.StatusBadRequest, "Image dimensions are too large")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "Upload a valid image")
		return
	}
	ext := filepath.Ext(header.Filename)
	if ext == "" {
		ext = "." + format
	}

	ctx := r.Context()
	uid := userID(r)
	rel := uploadName(dirImages, uid, ext)
	if err := h.saveFile(rel, data); err != nil {
		h.logger.Error("failed to save image", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	thumbRel := path.Join(dirThumbnails, strings.TrimSuffix(path.Base(rel), path.Ext(rel))+".jpg")
	if thumb, err := imaging.Thumbnail(img); err != nil {
		h.logger.Warn("thumbnail failed", zap.String("image", rel), zap.Error(err))
		thumbRel = ""
	} else if err := h.saveFile(thumbRel, thumb); err != nil {
		h.logger.Warn("thumbnail not saved", zap.String("image", rel), zap.Error(err))
		thumbRel = ""
	}

	// Detection failures are already logged by Vision; the image is kept
	// with a zero count.
	count, _ := h.ai.Vision.CountFaces(ctx, img)
	m := models.ImageModel{UserID: uid, Image: rel, Thumbnail: thumbRel, Tags: models.Tags(ai.FaceTags(count))}
	if _, err := h.store.CreateImage(ctx, &m); err != nil {
		h.removeFiles(rel, thumbRel)
		h.storeError(w, err, "Image")
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *Handlers) ListImages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	images, err := h.store.ListImages(r.Context(), userID(r), models.ImageFilter{
		Search:   strings.TrimSpace(q.Get("search")),
		Quality:  strings.TrimSpace(q.Get("quality")),
		HasFaces: strings.TrimSpace(q.Get("has_faces")),
		SortBy:   q.Get("sort_by"),
	})
	if err != nil {
		h.storeError(w, err, "Image")
		return
	}
	writeJSON(w, http.StatusOK, images)
}

func (h *Handlers) ImageStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.ImageStats(r.Context(), userID(r))
	if err != nil {
		h.storeError(w, err, "Image")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// imageRow loads the caller's image named by the path.
func (h *Handlers) imageRow(w http.ResponseWriter, r *http.Request) (models.ImageModel, bool) {
	id, ok := pathID(w, r, "id", "Image")
	if !ok {
		return models.ImageModel{}, false
	}
	m, err := h.store.GetImage(r.Context(), userID(r), id)
	if err != nil {
		h.storeError(w, err, "Image")
		return m, false
	}
	return m, true
}

// loadImage loads the row together with the decoded file and its bytes.
func (h *Handlers) loadImage(w http.ResponseWriter, r *http.Request) (models.ImageModel, image.Image, []byte, bool) {
	m, ok := h.imageRow(w, r)
	if !ok {
		return m, nil, nil, false
	}
	data, err := h.readFile(m.Image)
	if err != nil {
		writeError(w, http.StatusNotFound, "Image file not found")
		return m, nil, nil, false
	}
	img, _, err := imaging.DecodeBytes(data)
	if err != nil {
		h.logger.Error("stored image does not decode", zap.Int64("image_id", m.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Could not read image")
		return m, nil, nil, false
	}
	return m, img, data, true
}

// mergeTags stores extra keys on the image, logging instead of failing the
// request that produced them.
func (h *Handlers) mergeTags(r *http.Request, m *models.ImageModel, tags models.Tags) {
	updated, err := h.store.MergeImageTags(r.Context(), userID(r), m.ID, tags)
	if err != nil {
		h.logger.Error("failed to merge image tags", zap.Int64("image_id", m.ID), zap.Error(err))
		return
	}
	*m = updated
}

func (h *Handlers) GetImage(w http.ResponseWriter, r *http.Request) {
	m, ok := h.imageRow(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// UpdateImageTags merges the body's keys into the stored tags.
func (h *Handlers) UpdateImageTags(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Image")
	if !ok {
		return
	}
	var body struct {
		Tags models.Tags `json:"tags"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	m, err := h.store.MergeImageTags(r.Context(), userID(r), id, body.Tags)
	if err != nil {
		h.storeError(w, err, "Image")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handlers) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Image")
	if !ok {
		return
	}
	m, err := h.store.DeleteImage(r.Context(), userID(r), id)
	if err != nil {
		h.storeError(w, err, "Image")
		return
	}
	h.removeFiles(m.Image, m.Thumbnail)
	writeMessage(w, "Image deleted successfully")
}

func notConfigured(w http.ResponseWriter, err error) bool {
	if errors.Is(err, ai.ErrNotConfigured) {
		writeError(w, http.StatusServiceUnavailable, "Groq API not configured")
		return true
	}
	return false
}

type facesResult struct {
	Success bool              `json:"success"`
	Error   string            `json:"error,omitempty"`
	Image   models.ImageModel `json:"image"`
	Tags    models.Tags       `json:"tags"`
}

// DetectFaces reruns face detection and merges the result into the tags. A
// provider failure stores a zero count and still answers 200.
func (h *Handlers) DetectFaces(w http.ResponseWriter, r *http.Request) {
	m, img, _, ok := h.loadImage(w, r)
	if !ok {
		return
	}
	count, err := h.ai.Vision.CountFaces(r.Context(), img)
	h.mergeTags(r, &m, models.Tags(ai.FaceTags(count)))
	writeJSON(w, http.StatusOK, facesResult{Success: err == nil, Error: errText(err), Image: m, Tags: m.Tags})
}

// AnalyzeImage runs every vision task and keeps the summary in the tags
// when the scene produced suggestions.
func (h *Handlers) AnalyzeImage(w http.ResponseWriter, r *http.Request) {
	m, img, data, ok := h.loadImage(w, r)
	if !ok {
		return
	}
	a := h.ai.Vision.Comprehensive(r.Context(), img, imaging.ReadEXIF(bytes.NewReader(data)))
	if a.Success && len(a.Summary.SuggestedTags) > 0 {
		h.mergeTags(r, &m, models.Tags{
			models.TagAITags:    a.Summary.SuggestedTags,
			models.TagSceneType: a.Summary.SceneType,
			models.TagHasPeople: a.Summary.HasPeople,
			models.TagHasText:   a.Summary.HasText,
			models.TagEmotion:   a.Summary.DominantEmotion,
		})
	}
	writeJSON(w, http.StatusOK, a)
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

type objectsResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	ai.Objects
}

type emotionsResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	ai.Emotions
}

type sceneResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	ai.Scene
}

type ocrResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	ai.OCR
}

type captionResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	ai.Caption
}

type exifResult struct {
	Success bool `json:"success"`
	imaging.EXIF
}

func (h *Handlers) DetectObjects(w http.ResponseWriter, r *http.Request) {
	_, img, _, ok := h.loadImage(w, r)
	if !ok {
		return
	}
	res, err := h.ai.Vision.Objects(r.Context(), img)
	writeJSON(w, http.StatusOK, objectsResult{Success: err == nil, Error: errText(err), Objects: res})
}

func (h *Handlers) DetectEmotions(w http.ResponseWriter, r *http.Request) {
	_, img, _, ok := h.loadImage(w, r)
	if !ok {
		return
	}
	res, err := h.ai.Vision.Emotions(r.Context(), img)
	writeJSON(w, http.StatusOK, emotionsResult{Success: err == nil, Error: errText(err), Emotions: res})
}

func (h *Handlers) ClassifyScene(w http.ResponseWriter, r *http.Request) {
	_, img, _, ok := h.loadImage(w, r)
	if !ok {
		return
	}
	res, err := h.ai.Vision.Scene(r.Context(), img)
	writeJSON(w, http.StatusOK, sceneResult{Success: err == nil, Error: errText(err), Scene: res})
}

func (h *Handlers) ExtractText(w http.ResponseWriter, r *http.Request) {
	m, img, _, ok := h.loadImage(w, r)
	if !ok {
		return
	}
	res, err := h.ai.Vision.OCR(r.Context(), img)
	if err == nil && res.HasText {
		h.mergeTags(r, &m, models.Tags{models.TagExtractedText: res.Text})
	}
	writeJSON(w, http.StatusOK, ocrResult{Success: err == nil, Error: errText(err), OCR: res})
}

func (h *Handlers) CaptionImage(w http.ResponseWriter, r *http.Request) {
	m, img, _, ok := h.loadImage(w, r)
	if !ok {
		return
	}
	res, err := h.ai.Vision.Caption(r.Context(), img)
	if err == nil {
		h.mergeTags(r, &m, models.Tags{
			models.TagAutoCaption:     res.Short,
			models.TagDetailedCaption: res.Detailed,
		})
	}
	writeJSON(w, http.StatusOK, captionResult{Success: err == nil, Error: errText(err), Caption: res})
}

func (h *Handlers) ImageEXIF(w http.ResponseWriter, r *http.Request) {
	m, ok := h.imageRow(w, r)
	if !ok {
		return
	}
	data, err := h.readFile(m.Image)
	if err != nil {
		writeError(w, http.StatusNotFound, "Image file not found")
		return
	}
	exif := imaging.ReadEXIF(bytes.NewReader(data))
	if exif.HasGPS && exif.Latitude != nil && exif.Longitude != nil {
		h.mergeTags(r, &m, models.Tags{
			models.TagGPSLatitude:  *exif.Latitude,
			models.TagGPSLongitude: *exif.Longitude,
		})
	}
	writeJSON(w, http.StatusOK, exifResult{Success: true, EXIF: exif})
}

func faceInfo(tags models.Tags) ai.FaceInfo {
	return ai.FaceInfo{
		ContainsFace: tags.String(models.TagContainsFace),
		Count:        tags.FaceCount(),
		Quality:      tags.String(models.TagQuality),
	}
}

func (h *Handlers) DescribeImage(w http.ResponseWriter, r *http.Request) {
	m, ok := h.imageRow(w, r)
	if !ok {
		return
	}
	text, generated, err := h.ai.Vision.Describe(r.Context(), m.ID, faceInfo(m.Tags))
	if err != nil {
		if !notConfigured(w, err) {
			writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"description": text, "ai_generated": generated})
}

func (h *Handlers) EnhanceImage(w http.ResponseWriter, r *http.Request) {
	m, ok := h.imageRow(w, r)
	if !ok {
		return
	}
	suggestions, generated, err := h.ai.Vision.Enhance(r.Context(), faceInfo(m.Tags))
	if err != nil {
		if !notConfigured(w, err) {
			writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions, "ai_generated": generated})
}

// saveGenerated stores data as a new generated image owned by the caller.
func (h *Handlers) saveGenerated(r *http.Request, description, ext string, data []byte) (models.GeneratedImage, error) {
	uid := userID(r)
	rel := uploadName(dirGenerated, uid, ext)
	if err := h.saveFile(rel, data); err != nil {
		return models.GeneratedImage{}, err
	}
	g := models.GeneratedImage{UserID: uid, Description: description, Image: rel}
	if _, err := h.store.CreateGenerated(r.Context(), &g); err != nil {
		h.removeFiles(rel)
		return g, fmt.Errorf("store generated image: %w", err)
	}
	return g, nil
}

type filterRequest struct {
	FilterType string   `json:"filter_type"`
	Filter     string   `json:"filter"`
	Value      *float64 `json:"value"`
	Intensity  *float64 `json:"intensity"`
}

// FilterImage applies a named filter and stores the output as a generated
// image.
func (h *Handlers) FilterImage(w http.ResponseWriter, r *http.Request) {
	m, img, _, ok := h.loadImage(w, r)
	if !ok {
		return
	}
	var req filterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.FilterType)
	if name == "" {
		name = strings.TrimSpace(req.Filter)
	}
	value := 1.0
	switch {
	case req.Value != nil:
		value = *req.Value
	case req.Intensity != nil:
		value = *req.Intensity
	}

	out, err := imaging.Apply(img, name, value)
	if err != nil {
		if errors.Is(err, imaging.ErrUnknownFilter) {
			writeError(w, http.StatusBadRequest, "Unknown filter type: "+name)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	data, err := imaging.EncodePNG(out)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	g, err := h.saveGenerated(r, fmt.Sprintf("Filtered: %s applied to image #%d", name, m.ID), "png", data)
	if err != nil {
		h.logger.Error("failed to save filtered image", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// VaryImage produces a restyled copy of the image.
func (h *Handlers) VaryImage(w http.ResponseWriter, r *http.Request) {
	m, img, _, ok := h.loadImage(w, r)
	if !ok {
		return
	}
	var req struct {
		Style string `json:"style"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	style := strings.TrimSpace(req.Style)
	if style == "" {
		style = "artistic"
	}

	v, err := h.ai.Illustrator.Vary(r.Context(), img, m.Tags.FaceCount(), style)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	g, err := h.saveGenerated(r, v.Description(style), v.Ext, v.Data)
	if err != nil {
		h.logger.Error("failed to save variation", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

type generateRequest struct {
	Description string `json:"description"`
	Provider    string `json:"provider"`
}

type generatedResponse struct {
	models.GeneratedImage
	Meta map[string]any `json:"meta"`
}

// GenerateImage illustrates a text description.
func (h *Handlers) GenerateImage(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		writeError(w, http.StatusBadRequest, "description is required")
		return
	}

	out, err := h.ai.Illustrator.Generate(r.Context(), description, req.Provider)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	g, err := h.saveGenerated(r, description, out.Ext, out.Data)
	if err != nil {
		h.logger.Error("failed to save generated image", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusCreated, generatedResponse{GeneratedImage: g, Meta: out.Meta()})
}

func (h *Handlers) ListGenerated(w http.ResponseWriter, r *http.Request) {
	gens, err := h.store.ListGenerated(r.Context(), userID(r))
	if err != nil {
		h.storeError(w, err, "Generated image")
		return
	}
	writeJSON(w, http.StatusOK, gens)
}

func (h *Handlers) DeleteGenerated(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Generated image")
	if !ok {
		return
	}
	g, err := h.store.DeleteGenerated(r.Context(), userID(r), id)
	if err != nil {
		h.storeError(w, err, "Generated image")
		return
	}
	h.removeFiles(g.Image)
	writeMessage(w, "Generated image deleted successfully")
}
