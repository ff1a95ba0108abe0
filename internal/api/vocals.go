package api

import (
	"bytes"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"storyia/internal/audio"
	"storyia/internal/models"
)

const errNoTranscription = "No transcription available. Please transcribe first."

func (h *Handlers) ListVocals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	notes, err := h.store.ListVocals(r.Context(), userID(r), models.VocalFilter{
		Category:  q.Get("category"),
		Sentiment: q.Get("sentiment"),
		Search:    q.Get("search"),
	})
	if err != nil {
		h.storeError(w, err, "Vocal note")
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// UploadVocal stores a recording. Without a duration field, WAV files are
// measured.
func (h *Handlers) UploadVocal(w http.ResponseWriter, r *http.Request) {
	if !h.parseMultipart(w, r) {
		return
	}
	data, header, ok, err := formFile(r, "audio_file")
	if err != nil || !ok {
		writeError(w, http.StatusBadRequest, "No audio file provided")
		return
	}
	if !audio.Allowed(header.Filename) {
		writeError(w, http.StatusBadRequest, "Unsupported audio format")
		return
	}

	var duration *float64
	if raw := strings.TrimSpace(r.FormValue("duration")); raw != "" {
		d, err := strconv.ParseFloat(raw, 64)
		if err != nil || d < 0 {
			writeFieldErrors(w, FieldErrors{"duration": "A valid number is required."})
			return
		}
		duration = &d
	} else if d, ok := audio.Duration(bytes.NewReader(data)); ok {
		duration = &d
	}

	uid := userID(r)
	rel := uploadName(dirVocals, uid, filepath.Ext(header.Filename))
	if err := h.saveFile(rel, data); err != nil {
		h.logger.Error("failed to save audio", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	v := models.VocalNote{UserID: uid, AudioFile: rel, Duration: duration, Topics: models.StringList{}, Keywords: models.StringList{}}
	if _, err := h.store.CreateVocal(r.Context(), &v); err != nil {
		h.removeFiles(rel)
		h.storeError(w, err, "Vocal note")
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handlers) vocal(w http.ResponseWriter, r *http.Request) (models.VocalNote, bool) {
	id, ok := pathID(w, r, "id", "Vocal note")
	if !ok {
		return models.VocalNote{}, false
	}
	v, err := h.store.GetVocal(r.Context(), userID(r), id)
	if err != nil {
		h.storeError(w, err, "Vocal note")
		return v, false
	}
	return v, true
}

// transcribed loads the note and answers 400 when it has no text yet.
func (h *Handlers) transcribed(w http.ResponseWriter, r *http.Request) (models.VocalNote, bool) {
	v, ok := h.vocal(w, r)
	if !ok {
		return v, false
	}
	if !v.HasTranscription() {
		writeError(w, http.StatusBadRequest, errNoTranscription)
		return v, false
	}
	return v, true
}

// vocalStep is a note as stored after a processing step. Provider failures
// degrade to fallback values, so a stored note always reports success.
type vocalStep struct {
	models.VocalNote
	Success bool `json:"success"`
}

// respondVocal answers with the note as stored after a step.
func (h *Handlers) respondVocal(w http.ResponseWriter, r *http.Request, id int64) {
	v, err := h.store.GetVocal(r.Context(), userID(r), id)
	if err != nil {
		h.storeError(w, err, "Vocal note")
		return
	}
	writeJSON(w, http.StatusOK, vocalStep{VocalNote: v, Success: true})
}

func (h *Handlers) GetVocal(w http.ResponseWriter, r *http.Request) {
	if v, ok := h.vocal(w, r); ok {
		writeJSON(w, http.StatusOK, v)
	}
}

func (h *Handlers) DeleteVocal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Vocal note")
	if !ok {
		return
	}
	v, err := h.store.DeleteVocal(r.Context(), userID(r), id)
	if err != nil {
		h.storeError(w, err, "Vocal note")
		return
	}
	h.removeFiles(v.AudioFile)
	writeMessage(w, "Vocal note deleted successfully")
}

// TranscribeVocal always stores what the analyzer returned, placeholders
// included, so the client can show why no text came back.
func (h *Handlers) TranscribeVocal(w http.ResponseWriter, r *http.Request) {
	v, ok := h.vocal(w, r)
	if !ok {
		return
	}
	data, err := h.readFile(v.AudioFile)
	if err != nil {
		writeError(w, http.StatusNotFound, "Audio file not found")
		return
	}
	text := h.ai.Vocal.Transcribe(r.Context(), path.Base(v.AudioFile), data)
	if err := h.store.SetTranscription(r.Context(), v.UserID, v.ID, text, time.Now()); err != nil {
		h.storeError(w, err, "Vocal note")
		return
	}
	h.respondVocal(w, r, v.ID)
}

func (h *Handlers) AnalyzeVocal(w http.ResponseWriter, r *http.Request) {
	v, ok := h.transcribed(w, r)
	if !ok {
		return
	}
	s := h.ai.Vocal.Sentiment(r.Context(), *v.Transcription)
	if err := h.store.SetSentiment(r.Context(), v.UserID, v.ID, s.Label, s.Score, time.Now()); err != nil {
		h.storeError(w, err, "Vocal note")
		return
	}
	h.respondVocal(w, r, v.ID)
}

func (h *Handlers) SummarizeVocal(w http.ResponseWriter, r *http.Request) {
	v, ok := h.transcribed(w, r)
	if !ok {
		return
	}
	summary := h.ai.Vocal.Summarize(r.Context(), *v.Transcription)
	if err := h.store.SetVocalSummary(r.Context(), v.UserID, v.ID, summary); err != nil {
		h.storeError(w, err, "Vocal note")
		return
	}
	h.respondVocal(w, r, v.ID)
}

func (h *Handlers) DetectVocalTopics(w http.ResponseWriter, r *http.Request) {
	v, ok := h.transcribed(w, r)
	if !ok {
		return
	}
	t := h.ai.Vocal.DetectTopics(r.Context(), *v.Transcription)
	err := h.store.SetTopics(r.Context(), v.UserID, v.ID, models.VocalTopics{
		Category: t.Category,
		Topics:   t.Topics,
		Keywords: t.Keywords,
		Context:  t.Context,
	})
	if err != nil {
		h.storeError(w, err, "Vocal note")
		return
	}
	h.respondVocal(w, r, v.ID)
}

func (h *Handlers) VocalStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.VocalStats(r.Context(), userID(r))
	if err != nil {
		h.storeError(w, err, "Vocal note")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// VocalProviders reports which speech providers are configured and which
// one transcription will use first.
func (h *Handlers) VocalProviders(w http.ResponseWriter, r *http.Request) {
	p := h.ai.Vocal.Providers()
	method := "placeholder_only"
	switch {
	case p["groq"]:
		method = "groq_whisper"
	case p["huggingface"]:
		method = "huggingface_whisper"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"groq_configured":      p["groq"],
		"hf_configured":        p["huggingface"],
		"transcription_method": method,
	})
}
