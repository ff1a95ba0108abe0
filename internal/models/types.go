package models

import (
	"time"
)

// User is an account together with its profile fields.
type User struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Password    string    `json:"-"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	IsStaff     bool      `json:"is_staff"`
	IsSuperuser bool      `json:"is_superuser"`
	BirthDate   *string   `json:"birth_date"`
	Photo       string    `json:"photo,omitempty"`
	DateJoined  time.Time `json:"date_joined"`
}

// Label kinds attached to journal entries.
const (
	LabelTag     = "tag"
	LabelEmotion = "emotion"
	LabelPerson  = "person"
)

// JournalEntry is one day's journal page. Dates are YYYY-MM-DD strings.
type JournalEntry struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	EntryDate string `json:"entry_date"`
	Mood      string `json:"mood"`
	TimeOfDay string `json:"time_of_day"`

	MainMoodLevel  *int   `json:"main_mood_level"`
	EnergyLevel    *int   `json:"energy_level"`
	SleepQuality   *int   `json:"sleep_quality"`
	PhysicalHealth string `json:"physical_health"`

	Location string `json:"location"`
	Weather  string `json:"weather"`
	Season   string `json:"season"`

	MainSubject     string `json:"main_subject"`
	SecondaryThemes string `json:"secondary_themes"`

	FavoriteMoment string `json:"favorite_moment"`
	Challenge      string `json:"challenge"`
	Achievement    string `json:"achievement"`
	Surprise       string `json:"surprise"`

	DailyGoal       string `json:"daily_goal"`
	Accomplishments string `json:"accomplishments"`
	LessonLearned   string `json:"lesson_learned"`
	Gratitude       string `json:"gratitude"`

	PhysicalActivity string `json:"physical_activity"`
	Meditation       string `json:"meditation"`
	ScreenTime       string `json:"screen_time"`
	MealsQuality     string `json:"meals_quality"`

	Tags     []string     `json:"tags"`
	Emotions []string     `json:"detailed_emotions"`
	People   []string     `json:"people_present"`
	Media    []MediaAsset `json:"media"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Labels returns the entry's labels keyed by kind.
func (e *JournalEntry) Labels() map[string][]string {
	return map[string][]string{
		LabelTag:     e.Tags,
		LabelEmotion: e.Emotions,
		LabelPerson:  e.People,
	}
}

// Level returns *p, or 0 when unset.
func Level(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// Choices lists the allowed values of each enumerated journal field.
var Choices = map[string][]string{
	"mood":              {"happy", "neutral", "sad", "angry", "excited", "tired"},
	"time_of_day":       {"morning", "noon", "afternoon", "evening", "night"},
	"physical_health":   {"good", "ok", "bad"},
	"location":          {"home", "work", "outside", "travel", "cafe", "nature"},
	"weather":           {"sunny", "cloudy", "rain", "storm", "snow"},
	"season":            {"spring", "summer", "autumn", "winter"},
	"physical_activity": {"none", "15m", "30m", "1h", "1h+"},
	"meditation":        {"no", "5m", "10m", "15m+"},
	"screen_time":       {"1-2h", "3-4h", "5h+"},
	"meals_quality":     {"excellent", "average", "poor"},
	"media_type":        {"photo", "video", "audio", "other"},
}

// ValidChoice reports whether value is allowed for field. Empty is allowed.
func ValidChoice(field, value string) bool {
	if value == "" {
		return true
	}
	for _, c := range Choices[field] {
		if c == value {
			return true
		}
	}
	return false
}

type MediaAsset struct {
	ID         int64     `json:"id"`
	EntryID    int64     `json:"entry_id"`
	File       string    `json:"file"`
	Caption    string    `json:"caption"`
	MediaType  string    `json:"media_type"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type ImageModel struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Image     string    `json:"image"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	Tags      Tags      `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

// GeneratedImage is the immutable output of a generation, filter or
// variation call.
type GeneratedImage struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	CreatedAt   time.Time `json:"created_at"`
}

// VocalNote is an uploaded voice recording. Every AI field is nil until its
// step has run.
type VocalNote struct {
	ID        int64    `json:"id"`
	UserID    int64    `json:"user_id"`
	AudioFile string   `json:"audio_file"`
	Duration  *float64 `json:"duration"`

	Transcription *string    `json:"transcription"`
	TranscribedAt *time.Time `json:"transcribed_at"`

	Sentiment      *string    `json:"sentiment"`
	SentimentScore *float64   `json:"sentiment_score"`
	AnalyzedAt     *time.Time `json:"analyzed_at"`

	Summary *string `json:"summary"`

	Category *string    `json:"category"`
	Topics   StringList `json:"topics"`
	Keywords StringList `json:"keywords"`
	Context  *string    `json:"context"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasTranscription reports whether the transcribe step produced text.
func (v *VocalNote) HasTranscription() bool {
	return v.Transcription != nil && *v.Transcription != ""
}

// VocalTopics is the output of topic detection as persisted.
type VocalTopics struct {
	Category string
	Topics   []string
	Keywords []string
	Context  string
}

type Reclamation struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Number    string    `json:"number"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	Sentiment string    `json:"sentiment"`
	CreatedAt time.Time `json:"created_at"`
}

// Summarizer holds a problem description and its generated summary.
type Summarizer struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	UserInput string    `json:"user_input"`
	Summary   *string   `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}
