// Package api serves the JSON HTTP surface of the application.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"storyia/internal/ai"
	"storyia/internal/auth"
	"storyia/internal/config"
	"storyia/internal/middleware"
	"storyia/internal/store"
)

// Handlers carries the dependencies shared by every endpoint.
type Handlers struct {
	store     store.Store
	ai        *ai.Services
	signer    *auth.Signer
	uploadDir string
	maxUpload int64
	logger    *zap.Logger
}

func NewHandlers(s store.Store, services *ai.Services, cfg *config.Config, signer *auth.Signer, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		store:     s,
		ai:        services,
		signer:    signer,
		uploadDir: cfg.Upload.Dir,
		maxUpload: cfg.Upload.MaxBytes,
		logger:    logger.Named("api"),
	}
}

// Register adds every API and media route to mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/signup", h.Signup)
	mux.HandleFunc("POST /api/login", h.Login)
	mux.HandleFunc("POST /api/logout", h.Logout)
	mux.HandleFunc("GET /api/profile", h.GetProfile)
	mux.HandleFunc("PATCH /api/profile", h.UpdateProfile)
	mux.HandleFunc("DELETE /api/profile", h.DeleteAccount)
	mux.HandleFunc("POST /api/profile/photo", h.UploadPhoto)
	mux.HandleFunc("DELETE /api/profile/photo", h.DeletePhoto)
	mux.HandleFunc("POST /api/profile/password", h.ChangePassword)

	mux.HandleFunc("GET /api/journal", h.ListEntries)
	mux.HandleFunc("POST /api/journal", h.CreateEntry)
	mux.HandleFunc("GET /api/journal/tags", h.ListTags)
	mux.HandleFunc("GET /api/journal/{id}", h.GetEntry)
	mux.HandleFunc("PUT /api/journal/{id}", h.UpdateEntry)
	mux.HandleFunc("DELETE /api/journal/{id}", h.DeleteEntry)
	mux.HandleFunc("GET /api/journal/{id}/suggestions", h.Suggestions)
	mux.HandleFunc("POST /api/journal/{id}/media", h.AddMedia)
	mux.HandleFunc("DELETE /api/journal/{id}/media/{mediaID}", h.DeleteMedia)

	mux.HandleFunc("GET /api/images", h.ListImages)
	mux.HandleFunc("POST /api/images", h.UploadImage)
	mux.HandleFunc("GET /api/images/stats", h.ImageStats)
	mux.HandleFunc("POST /api/images/generate", h.GenerateImage)
	mux.HandleFunc("GET /api/images/generated", h.ListGenerated)
	mux.HandleFunc("DELETE /api/images/generated/{id}", h.DeleteGenerated)
	mux.HandleFunc("GET /api/images/{id}", h.GetImage)
	mux.HandleFunc("PATCH /api/images/{id}", h.UpdateImageTags)
	mux.HandleFunc("DELETE /api/images/{id}", h.DeleteImage)
	mux.HandleFunc("POST /api/images/{id}/faces", h.DetectFaces)
	mux.HandleFunc("POST /api/images/{id}/analyze", h.AnalyzeImage)
	mux.HandleFunc("POST /api/images/{id}/objects", h.DetectObjects)
	mux.HandleFunc("POST /api/images/{id}/emotions", h.DetectEmotions)
	mux.HandleFunc("POST /api/images/{id}/scene", h.ClassifyScene)
	mux.HandleFunc("POST /api/images/{id}/ocr", h.ExtractText)
	mux.HandleFunc("POST /api/images/{id}/caption", h.CaptionImage)
	mux.HandleFunc("POST /api/images/{id}/exif", h.ImageEXIF)
	mux.HandleFunc("POST /api/images/{id}/describe", h.DescribeImage)
	mux.HandleFunc("POST /api/images/{id}/enhance", h.EnhanceImage)
	mux.HandleFunc("POST /api/images/{id}/filter", h.FilterImage)
	mux.HandleFunc("POST /api/images/{id}/variation", h.VaryImage)

	mux.HandleFunc("GET /api/vocals", h.ListVocals)
	mux.HandleFunc("POST /api/vocals", h.UploadVocal)
	mux.HandleFunc("GET /api/vocals/stats", h.VocalStats)
	mux.HandleFunc("GET /api/vocals/providers", h.VocalProviders)
	mux.HandleFunc("GET /api/vocals/{id}", h.GetVocal)
	mux.HandleFunc("DELETE /api/vocals/{id}", h.DeleteVocal)
	mux.HandleFunc("POST /api/vocals/{id}/transcribe", h.TranscribeVocal)
	mux.HandleFunc("POST /api/vocals/{id}/analyze", h.AnalyzeVocal)
	mux.HandleFunc("POST /api/vocals/{id}/summarize", h.SummarizeVocal)
	mux.HandleFunc("POST /api/vocals/{id}/detect-topics", h.DetectVocalTopics)

	mux.HandleFunc("GET /api/reclamations", h.ListReclamations)
	mux.HandleFunc("POST /api/reclamations", h.CreateReclamation)
	mux.HandleFunc("DELETE /api/reclamations/{id}", h.DeleteReclamation)
	mux.HandleFunc("GET /api/summaries", h.ListSummaries)
	mux.HandleFunc("POST /api/summaries", h.CreateSummary)
	mux.HandleFunc("GET /api/summaries/{id}", h.GetSummary)
	mux.HandleFunc("DELETE /api/summaries/{id}", h.DeleteSummary)
	mux.HandleFunc("POST /api/summaries/{id}/generate", h.GenerateSummary)
	mux.HandleFunc("POST /api/chat", h.Chat)

	staff := middleware.RequireStaff(h.store)
	mux.Handle("GET /api/admin/users", staff(http.HandlerFunc(h.AdminListUsers)))
	mux.Handle("POST /api/admin/users", staff(http.HandlerFunc(h.AdminCreateUser)))
	mux.Handle("PATCH /api/admin/users/{id}", staff(http.HandlerFunc(h.AdminUpdateUser)))
	mux.Handle("DELETE /api/admin/users/{id}", staff(http.HandlerFunc(h.AdminDeleteUser)))
	mux.Handle("GET /api/admin/stats", staff(http.HandlerFunc(h.AdminStats)))

	mux.HandleFunc("GET /media/{path...}", h.ServeMedia)
}

// FieldErrors maps a request field to its validation message.
type FieldErrors map[string]string

func (fe FieldErrors) add(field, msg string) {
	if _, ok := fe[field]; !ok {
		fe[field] = msg
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func writeFieldErrors(w http.ResponseWriter, fe FieldErrors) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error":  "validation failed",
		"fields": fe,
	})
}

// decodeJSON reads the request body into v. An empty body leaves v
// untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeError(w, http.StatusBadRequest, "Invalid request body")
	return false
}

// storeError answers a failed store call. what names the missing entity.
func (h *Handlers) storeError(w http.ResponseWriter, err error, what string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, what+" not found")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("store call failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Database error")
	}
}

func isConflict(err error) bool {
	return errors.Is(err, store.ErrConflict)
}

func userID(r *http.Request) int64 {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}

// pathID parses a numeric path value. Anything else answers 404 with what.
func pathID(w http.ResponseWriter, r *http.Request, name, what string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, what+" not found")
		return 0, false
	}
	return id, true
}
