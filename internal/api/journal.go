package api

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"storyia/internal/ai"
	"storyia/internal/models"
)

const (
	maxTitleLength   = 200
	maxContentLength = 5000
	maxGratitude     = 3
	maxTagLength     = 50
	maxNewTags       = 10
)

// entryRequest is the create/update body: the entry fields plus new_tags,
// a comma-separated list of labels to create.
type entryRequest struct {
	models.JournalEntry
	NewTags string `json:"new_tags"`
}

// validateEntry normalizes req and returns the entry to store, or the
// field errors that prevent it.
func validateEntry(req entryRequest) (models.JournalEntry, FieldErrors) {
	e := req.JournalEntry
	e.ID, e.UserID, e.Media = 0, 0, nil
	fe := FieldErrors{}

	e.Title = strings.TrimSpace(e.Title)
	switch {
	case e.Title == "":
		fe.add("title", "This field is required.")
	case utf8.RuneCountInString(e.Title) > maxTitleLength:
		fe.add("title", "Ensure this value has at most 200 characters.")
	}

	e.EntryDate = strings.TrimSpace(e.EntryDate)
	if _, err := time.Parse(time.DateOnly, e.EntryDate); err != nil {
		fe.add("entry_date", "Enter a valid date (YYYY-MM-DD).")
	}

	for field, level := range map[string]*int{
		"main_mood_level": e.MainMoodLevel,
		"energy_level":    e.EnergyLevel,
		"sleep_quality":   e.SleepQuality,
	} {
		if level != nil && (*level < 1 || *level > 5) {
			fe.add(field, "Value out of range (1-5).")
		}
	}

	e.Content = strings.TrimSpace(e.Content)
	if utf8.RuneCountInString(e.Content) > maxContentLength {
		fe.add("content", "Content too long (max 5000 characters).")
	}

	var gratitude []string
	for _, line := range strings.Split(e.Gratitude, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			gratitude = append(gratitude, line)
		}
	}
	if len(gratitude) > maxGratitude {
		fe.add("gratitude", "Please list at most 3 things.")
	}
	e.Gratitude = strings.Join(gratitude, "\n")

	newTags, msg := splitNewTags(req.NewTags)
	if msg != "" {
		fe.add("new_tags", msg)
	}
	e.Tags = dedupeFold(append(cleanList(e.Tags), newTags...))
	for _, t := range e.Tags {
		if utf8.RuneCountInString(t) > maxTagLength {
			fe.add("tags", "Each tag must be at most 50 characters.")
		}
	}
	if len(e.Tags) == 0 {
		fe.add("tags", "Choose at least one tag or create one.")
	}
	e.Emotions = dedupeFold(cleanList(e.Emotions))
	e.People = dedupeFold(cleanList(e.People))

	for field, value := range map[string]*string{
		"mood":              &e.Mood,
		"time_of_day":       &e.TimeOfDay,
		"physical_health":   &e.PhysicalHealth,
		"location":          &e.Location,
		"weather":           &e.Weather,
		"season":            &e.Season,
		"physical_activity": &e.PhysicalActivity,
		"meditation":        &e.Meditation,
		"screen_time":       &e.ScreenTime,
		"meals_quality":     &e.MealsQuality,
	} {
		*value = strings.TrimSpace(*value)
		if !models.ValidChoice(field, *value) {
			fe.add(field, "Select a valid choice.")
		}
	}
	return e, fe
}

// splitNewTags parses the comma-separated new_tags field.
func splitNewTags(raw string) ([]string, string) {
	var names []string
	for _, n := range strings.Split(raw, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	names = dedupeFold(names)
	for _, n := range names {
		if utf8.RuneCountInString(n) > maxTagLength {
			return nil, "Each tag must be at most 50 characters."
		}
	}
	if len(names) > maxNewTags {
		return nil, "Please add at most 10 new tags at a time."
	}
	return names, ""
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// dedupeFold drops case-insensitive duplicates, keeping the first spelling.
func dedupeFold(in []string) []string {
	fold := cases.Fold()
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		key := fold.String(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func (h *Handlers) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.ListEntries(r.Context(), userID(r), strings.TrimSpace(r.URL.Query().Get("q")))
	if err != nil {
		h.storeError(w, err, "Entry")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handlers) GetEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Entry")
	if !ok {
		return
	}
	e, err := h.store.GetEntry(r.Context(), userID(r), id)
	if err != nil {
		h.storeError(w, err, "Entry")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// checkDuplicate adds a title error when the user already has an entry
// with the same date and title.
func (h *Handlers) checkDuplicate(r *http.Request, fe FieldErrors, e models.JournalEntry, exceptID int64) error {
	if _, bad := fe["entry_date"]; bad || e.Title == "" {
		return nil
	}
	exists, err := h.store.EntryExists(r.Context(), userID(r), e.EntryDate, e.Title, exceptID)
	if err != nil {
		return err
	}
	if exists {
		fe.add("title", "An entry with this date and title already exists.")
	}
	return nil
}

func (h *Handlers) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	e, fe := validateEntry(req)
	if err := h.checkDuplicate(r, fe, e, 0); err != nil {
		h.storeError(w, err, "Entry")
		return
	}
	if len(fe) > 0 {
		writeFieldErrors(w, fe)
		return
	}

	e.UserID = userID(r)
	id, err := h.store.CreateEntry(r.Context(), &e)
	if err != nil {
		if isConflict(err) {
			writeFieldErrors(w, FieldErrors{"title": "An entry with this date and title already exists."})
			return
		}
		h.storeError(w, err, "Entry")
		return
	}
	h.respondEntry(w, r, id, http.StatusCreated)
}

func (h *Handlers) respondEntry(w http.ResponseWriter, r *http.Request, id int64, status int) {
	e, err := h.store.GetEntry(r.Context(), userID(r), id)
	if err != nil {
		h.storeError(w, err, "Entry")
		return
	}
	writeJSON(w, status, e)
}

func (h *Handlers) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Entry")
	if !ok {
		return
	}
	existing, err := h.store.GetEntry(r.Context(), userID(r), id)
	if err != nil {
		h.storeError(w, err, "Entry")
		return
	}
	var req entryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	e, fe := validateEntry(req)
	if err := h.checkDuplicate(r, fe, e, id); err != nil {
		h.storeError(w, err, "Entry")
		return
	}
	if len(fe) > 0 {
		writeFieldErrors(w, fe)
		return
	}

	e.ID, e.UserID, e.CreatedAt = existing.ID, existing.UserID, existing.CreatedAt
	if err := h.store.UpdateEntry(r.Context(), e); err != nil {
		if isConflict(err) {
			writeFieldErrors(w, FieldErrors{"title": "An entry with this date and title already exists."})
			return
		}
		h.storeError(w, err, "Entry")
		return
	}
	h.respondEntry(w, r, id, http.StatusOK)
}

func (h *Handlers) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Entry")
	if !ok {
		return
	}
	files, err := h.store.DeleteEntry(r.Context(), userID(r), id)
	if err != nil {
		h.storeError(w, err, "Entry")
		return
	}
	h.removeFiles(files...)
	writeMessage(w, "Entry deleted successfully")
}

func (h *Handlers) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.store.ListTags(r.Context())
	if err != nil {
		h.storeError(w, err, "Tag")
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// Suggestions recommends activities for an entry with Gemini, falling back
// to local rules.
func (h *Handlers) Suggestions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Entry")
	if !ok {
		return
	}
	e, err := h.store.GetEntry(r.Context(), userID(r), id)
	if err != nil {
		h.storeError(w, err, "Entry")
		return
	}
	activities, source := h.ai.Recommender.Recommend(r.Context(), ai.ActivityInput{
		Mood:       e.Mood,
		Energy:     models.Level(e.EnergyLevel),
		Sleep:      models.Level(e.SleepQuality),
		Subject:    e.MainSubject,
		Content:    e.Content,
		Themes:     e.SecondaryThemes,
		Weather:    e.Weather,
		ScreenTime: e.ScreenTime,
		DailyGoal:  e.DailyGoal,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"activities": activities,
		"source":     source,
	})
}

// mediaKind guesses the media type from the upload's content type.
func mediaKind(contentType string) string {
	mt, _, _ := mime.ParseMediaType(contentType)
	switch {
	case strings.HasPrefix(mt, "image/"):
		return "photo"
	case strings.HasPrefix(mt, "video/"):
		return "video"
	case strings.HasPrefix(mt, "audio/"):
		return "audio"
	}
	return "other"
}

func (h *Handlers) AddMedia(w http.ResponseWriter, r *http.Request) {
	entryID, ok := pathID(w, r, "id", "Entry")
	if !ok {
		return
	}
	if !h.parseMultipart(w, r) {
		return
	}
	caption := strings.TrimSpace(r.FormValue("caption"))
	mediaType := strings.TrimSpace(r.FormValue("media_type"))
	data, header, present, err := formFile(r, "file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid file")
		return
	}
	if !present {
		msg := "This field is required."
		if caption != "" || mediaType != "" {
			msg = "Please choose a file for this media."
		}
		writeFieldErrors(w, FieldErrors{"file": msg})
		return
	}
	if mediaType == "" {
		mediaType = mediaKind(http.DetectContentType(data))
	}
	if !models.ValidChoice("media_type", mediaType) {
		writeFieldErrors(w, FieldErrors{"media_type": "Select a valid choice."})
		return
	}

	uid := userID(r)
	rel := uploadName(dirMedia, uid, filepath.Ext(header.Filename))
	if err := h.saveFile(rel, data); err != nil {
		h.logger.Error("failed to save media", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	m := models.MediaAsset{EntryID: entryID, File: rel, Caption: caption, MediaType: mediaType}
	if _, err := h.store.AddMedia(r.Context(), uid, &m); err != nil {
		h.removeFiles(rel)
		h.storeError(w, err, "Entry")
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *Handlers) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	entryID, ok := pathID(w, r, "id", "Entry")
	if !ok {
		return
	}
	mediaID, ok := pathID(w, r, "mediaID", "Media")
	if !ok {
		return
	}
	file, err := h.store.DeleteMedia(r.Context(), userID(r), entryID, mediaID)
	if err != nil {
		h.storeError(w, err, "Media")
		return
	}
	h.removeFiles(file)
	writeMessage(w, "Media deleted successfully")
}
