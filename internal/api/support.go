package api

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"storyia/internal/ai"
	"storyia/internal/models"
)

// requireText trims *s and records an error when it is empty or longer
// than max runes (max 0 means unbounded).
func requireText(fe FieldErrors, field string, s *string, max int) {
	*s = strings.TrimSpace(*s)
	switch {
	case *s == "":
		fe.add(field, "This field is required.")
	case max > 0 && utf8.RuneCountInString(*s) > max:
		fe.add(field, "Ensure this value is not too long.")
	}
}

func (h *Handlers) ListReclamations(w http.ResponseWriter, r *http.Request) {
	recs, err := h.store.ListReclamations(r.Context(), userID(r))
	if err != nil {
		h.storeError(w, err, "Reclamation")
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// CreateReclamation files a complaint labeled by the sentiment pipeline.
func (h *Handlers) CreateReclamation(w http.ResponseWriter, r *http.Request) {
	var rec models.Reclamation
	if !decodeJSON(w, r, &rec) {
		return
	}
	fe := FieldErrors{}
	requireText(fe, "name", &rec.Name, 80)
	requireText(fe, "number", &rec.Number, 32)
	requireText(fe, "subject", &rec.Subject, 120)
	requireText(fe, "message", &rec.Message, 0)
	if len(fe) > 0 {
		writeFieldErrors(w, fe)
		return
	}

	rec.ID, rec.UserID = 0, userID(r)
	rec.Sentiment = h.ai.Vocal.Sentiment(r.Context(), rec.Subject+"\n"+rec.Message).Label
	if _, err := h.store.CreateReclamation(r.Context(), &rec); err != nil {
		h.storeError(w, err, "Reclamation")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handlers) DeleteReclamation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Reclamation")
	if !ok {
		return
	}
	if err := h.store.DeleteReclamation(r.Context(), userID(r), id); err != nil {
		h.storeError(w, err, "Reclamation")
		return
	}
	writeMessage(w, "Reclamation deleted successfully")
}

func (h *Handlers) ListSummaries(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListSummaries(r.Context(), userID(r))
	if err != nil {
		h.storeError(w, err, "Summary")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handlers) CreateSummary(w http.ResponseWriter, r *http.Request) {
	var s models.Summarizer
	if !decodeJSON(w, r, &s) {
		return
	}
	fe := FieldErrors{}
	requireText(fe, "title", &s.Title, 200)
	requireText(fe, "user_input", &s.UserInput, 0)
	if len(fe) > 0 {
		writeFieldErrors(w, fe)
		return
	}

	s.ID, s.UserID, s.Summary = 0, userID(r), nil
	if _, err := h.store.CreateSummary(r.Context(), &s); err != nil {
		h.storeError(w, err, "Summary")
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

func (h *Handlers) GetSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Summary")
	if !ok {
		return
	}
	s, err := h.store.GetSummary(r.Context(), userID(r), id)
	if err != nil {
		h.storeError(w, err, "Summary")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handlers) DeleteSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Summary")
	if !ok {
		return
	}
	if err := h.store.DeleteSummary(r.Context(), userID(r), id); err != nil {
		h.storeError(w, err, "Summary")
		return
	}
	writeMessage(w, "Summary deleted successfully")
}

// GenerateSummary fills in the summary of a stored problem description.
func (h *Handlers) GenerateSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Summary")
	if !ok {
		return
	}
	ctx := r.Context()
	s, err := h.store.GetSummary(ctx, userID(r), id)
	if err != nil {
		h.storeError(w, err, "Summary")
		return
	}
	text, generated := h.ai.Assistant.SummarizeProblem(ctx, s.UserInput)
	if err := h.store.SetSummaryText(ctx, s.UserID, s.ID, text); err != nil {
		h.storeError(w, err, "Summary")
		return
	}
	s.Summary = &text
	writeJSON(w, http.StatusOK, map[string]any{
		"summary":      s,
		"ai_generated": generated,
	})
}

// Chat proxies a conversation to Groq. Provider trouble is reported in the
// body with success false, never as an HTTP error.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var in ai.ChatInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if len(in.Messages) == 0 && strings.TrimSpace(in.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt or messages is required")
		return
	}
	writeJSON(w, http.StatusOK, h.ai.Assistant.Chat(r.Context(), in))
}
