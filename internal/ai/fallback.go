package ai

import (
	"fmt"
	"strings"
)

// Face detection tag values.
const (
	FaceNone     = "no_face"
	FaceSingle   = "contains_face"
	FaceMultiple = "multiple_faces"

	QualityGood   = "good"
	QualityMedium = "medium"
	QualityNone   = "none"
)

// FaceTags maps a face count to the detection tags stored on an image.
func FaceTags(count int) map[string]any {
	contains, quality := FaceNone, QualityNone
	switch {
	case count == 1:
		contains = FaceSingle
	case count > 1:
		contains = FaceMultiple
	}
	if count >= 1 {
		quality = QualityGood
		if count > 2 {
			quality = QualityMedium
		}
	}
	return map[string]any{
		"contains_face": contains,
		"count":         count,
		"quality":       quality,
		"method":        "ai",
	}
}

const summaryFallbackLimit = 200

// TruncateSummary is the pseudo-summary used when no summarizer answers.
func TruncateSummary(text string) string {
	if len([]rune(text)) <= summaryFallbackLimit {
		return text
	}
	return truncateRunes(text, summaryFallbackLimit) + "..."
}

// Transcription placeholders. They are bracketed so later steps can tell
// them apart from speech with IsPlaceholder.
const (
	PlaceholderEmpty        = "[No transcription returned by API]"
	PlaceholderModelLoading = "[Model is loading on Hugging Face servers. Please try again in 20-30 seconds.]"
	PlaceholderNoProvider   = "[Transcription unavailable - no speech-to-text provider is configured. The audio has been saved and you can try transcribing again later.]"
)

// TranscriptionPlaceholder describes a failed transcription response.
func TranscriptionPlaceholder(resp Response) string {
	switch {
	case resp.Err != nil:
		return fmt.Sprintf("[Transcription error: %s. The audio has been saved and you can try transcribing again later.]", truncateRunes(resp.Err.Error(), 200))
	case resp.Status == 503:
		return PlaceholderModelLoading
	case resp.OK():
		return PlaceholderEmpty
	}
	return fmt.Sprintf("[Transcription unavailable - API returned %d. The audio has been saved and you can try transcribing again later.]", resp.Status)
}

var stopwords = map[string]bool{}

func init() {
	for _, w := range strings.Fields("le la les un une des de du et ou mais donc car ni or je tu il elle nous vous ils elles " +
		"the a an and or but in on at to for of with by from is are was were be been being") {
		stopwords[w] = true
	}
}

// LocalTopics extracts keywords without a provider: whitespace-separated
// lowercase words longer than three letters that are not stopwords, in order
// of appearance. Punctuation stays attached and repeats are kept.
func LocalTopics(text string) Topics {
	keywords := []string{}
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if len([]rune(w)) <= 3 || stopwords[w] {
			continue
		}
		keywords = append(keywords, w)
		if len(keywords) == 10 {
			break
		}
	}
	topics := keywords
	if len(topics) > 3 {
		topics = topics[:3]
	}

	context := strings.TrimSpace(text)
	if len([]rune(context)) > 100 {
		context = truncateRunes(context, 100) + "..."
	}
	return Topics{
		Topics:   append([]string{}, topics...),
		Category: CategoryOther,
		Keywords: keywords,
		Context:  context,
	}
}

// EmptyTopics is the result for placeholder input.
func EmptyTopics() Topics {
	return Topics{Topics: []string{}, Keywords: []string{}, Category: CategoryOther, Context: "No context available"}
}

// DescribeFallback is the description used when the text model is unavailable.
func DescribeFallback(imageID int64, f FaceInfo) string {
	face := f.ContainsFace
	if face == "" {
		face = FaceNone
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Image #%d with %s. ", imageID, strings.ReplaceAll(face, "_", " "))
	if f.Count > 0 {
		fmt.Fprintf(&b, "Contains %d person(s). ", f.Count)
	}
	b.WriteString("A captured moment preserved in pixels.")
	return b.String()
}

// EnhanceParseFallback is used when the model answered but not with JSON.
func EnhanceParseFallback(f FaceInfo) Enhancement {
	return Enhancement{
		Brightness:     "Adjust based on lighting conditions",
		Contrast:       "Enhance to make subjects stand out",
		Composition:    "Follow rule of thirds",
		OverallQuality: qualityLabel(f.Quality),
	}
}

// EnhanceFallback is used when the model could not be reached.
func EnhanceFallback(f FaceInfo) Enhancement {
	return Enhancement{
		Brightness:     "Optimize lighting for better visibility",
		Contrast:       "Increase contrast to enhance depth",
		Composition:    "Consider rule of thirds for balance",
		OverallQuality: qualityLabel(f.Quality) + " - Good baseline",
	}
}

func qualityLabel(q string) string {
	if q == "" {
		return Unknown
	}
	return q
}

const maxLocalActivities = 5

// LocalActivities derives suggestions from the journal fields alone.
func LocalActivities(in ActivityInput) []Activity {
	var out []Activity
	add := func(label, cat, why string, minutes int) {
		out = append(out, Activity{Label: label, Category: cat, Why: why, DurationMin: minutes})
	}

	switch {
	case in.Energy <= 2 && in.Sleep <= 2:
		add("Watch a relaxing film", "leisure", "Low energy and poor sleep call for an easy evening.", 90)
		add("10-minute guided meditation", defaultActivityCat, "Helps you recover calm and prepare for better sleep.", 10)
	case in.Energy >= 4 && in.Sleep >= 3:
		add("30-minute workout", defaultActivityCat, "Your energy is high: use it for a good session of exercise.", 30)
		add("Pomodoro on your goal task", "productivity", "Good energy is the moment to move a priority forward.", 25)
	default:
		add("15-20 minute walk", defaultActivityCat, "A short walk lifts mood and energy gently.", 20)
	}

	weather := strings.ToLower(in.Weather)
	if weather == "sunny" && in.Energy >= 3 {
		add("Outing to a park or café", "social", "The sun is out: get some fresh air and see people.", 30)
	}
	if weather == "rain" || weather == "storm" {
		add("Reading with a hot drink", "leisure", "A cosy indoor activity suits the weather.", 20)
	}
	if in.ScreenTime == "5h+" {
		add("Screen-free activity", defaultActivityCat, "You spent a lot of time on screens today.", 30)
	}

	themes := strings.ToLower(in.Themes)
	for _, k := range []string{"stress", "anx", "pressure", "fatigue"} {
		if strings.Contains(themes, k) {
			add("4-4-4-4 box breathing", defaultActivityCat, "A quick way to lower stress and tension.", 5)
			break
		}
	}
	if goal := strings.TrimSpace(in.DailyGoal); goal != "" {
		add("Take a small step toward your goal", "productivity", "Keep momentum on: "+truncateRunes(goal, 60), 15)
	}

	seen := map[string]bool{}
	deduped := out[:0]
	for _, a := range out {
		if seen[a.Label] {
			continue
		}
		seen[a.Label] = true
		deduped = append(deduped, a)
	}
	if len(deduped) > maxLocalActivities {
		deduped = deduped[:maxLocalActivities]
	}
	return deduped
}
