package ai

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Sentiment labels.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Sentiment is a label with a confidence score in [0,1].
type Sentiment struct {
	Label string  `json:"sentiment"`
	Score float64 `json:"score"`
}

// NeutralSentiment is the value used whenever classification is not possible.
var NeutralSentiment = Sentiment{Label: SentimentNeutral, Score: 0.5}

// ParseSentiment reads a one-word sentiment reply.
func ParseSentiment(text string) Sentiment {
	word := strings.ToLower(strings.TrimSpace(text))
	word = strings.NewReplacer(".", "", "!", "").Replace(word)
	switch {
	case strings.Contains(word, SentimentPositive):
		return Sentiment{Label: SentimentPositive, Score: 0.85}
	case strings.Contains(word, SentimentNegative):
		return Sentiment{Label: SentimentNegative, Score: 0.85}
	case strings.Contains(word, SentimentNeutral):
		return Sentiment{Label: SentimentNeutral, Score: 0.75}
	}
	return NeutralSentiment
}

// Vocal note categories.
var Categories = []string{"work", "personal", "idea", "problem", "project", "meeting", "reminder", "other"}

const CategoryOther = "other"

func validCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// Topics is the result of topic detection.
type Topics struct {
	Topics   []string `json:"topics"`
	Category string   `json:"category"`
	Keywords []string `json:"keywords"`
	Context  string   `json:"context"`
}

// ParseTopics reads the Topics/Category/Keywords/Context layout. A missing
// Context line yields the whole reply.
func ParseTopics(text string) Topics {
	out := Topics{Topics: []string{}, Keywords: []string{}, Category: CategoryOther}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Topics:"):
			out.Topics = splitList(strings.TrimPrefix(line, "Topics:"))
		case strings.HasPrefix(line, "Category:"):
			c := strings.ToLower(strings.Trim(strings.TrimSpace(strings.TrimPrefix(line, "Category:")), "[]"))
			if validCategory(c) {
				out.Category = c
			}
		case strings.HasPrefix(line, "Keywords:"):
			out.Keywords = splitList(strings.TrimPrefix(line, "Keywords:"))
		case strings.HasPrefix(line, "Context:"):
			out.Context = strings.Trim(strings.TrimSpace(strings.TrimPrefix(line, "Context:")), "[]")
		}
	}
	if out.Context == "" {
		out.Context = strings.TrimSpace(text)
	}
	return out
}

// splitList splits "[a, b, c]" or "a, b, c" and drops empty items.
func splitList(s string) []string {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	items := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

var digitsRe = regexp.MustCompile(`\d+`)

// firstNumber returns the first run of digits in s, or 0.
func firstNumber(s string) int {
	m := digitsRe.FindString(s)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

// Objects is the result of object detection.
type Objects struct {
	Objects     []string `json:"objects"`
	PeopleCount int      `json:"people_count"`
	Animals     []string `json:"animals"`
	Description string   `json:"description"`
}

func ParseObjects(text string) Objects {
	out := Objects{Objects: []string{}, Animals: []string{}, Description: text}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Objects:"):
			out.Objects = splitList(strings.TrimPrefix(line, "Objects:"))
		case strings.HasPrefix(line, "People:"):
			out.PeopleCount = firstNumber(line)
		case strings.HasPrefix(line, "Animals:"):
			if a := strings.Trim(strings.TrimSpace(strings.TrimPrefix(line, "Animals:")), "[]"); a != "" {
				out.Animals = append(out.Animals, a)
			}
		}
	}
	return out
}

// Emotions is the result of emotion analysis.
type Emotions struct {
	Emotions        []string `json:"emotions"`
	DominantEmotion string   `json:"dominant_emotion"`
	Description     string   `json:"description"`
}

func ParseEmotions(text string) Emotions {
	out := Emotions{Emotions: []string{}, DominantEmotion: SentimentNeutral, Description: text}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Overall mood:"):
			if mood := strings.TrimSpace(strings.TrimPrefix(line, "Overall mood:")); mood != "" {
				out.DominantEmotion = strings.ToLower(strings.Trim(mood, "[]"))
			}
		case strings.Contains(line, "Person") && strings.Contains(line, ":"):
			_, after, _ := strings.Cut(line, ":")
			if e := strings.ToLower(strings.Trim(strings.TrimSpace(after), "[]")); e != "" {
				out.Emotions = append(out.Emotions, e)
			}
		}
	}
	return out
}

// Scene is the result of scene recognition.
type Scene struct {
	SceneType     string   `json:"scene_type"`
	TimeOfDay     string   `json:"time_of_day"`
	Weather       string   `json:"weather"`
	Activity      string   `json:"activity"`
	SuggestedTags []string `json:"suggested_tags"`
}

const Unknown = "unknown"

func ParseScene(text string) Scene {
	out := Scene{SceneType: Unknown, TimeOfDay: Unknown, Weather: Unknown, Activity: Unknown, SuggestedTags: []string{}}
	value := func(line, prefix string) string {
		return strings.Trim(strings.TrimSpace(strings.TrimPrefix(line, prefix)), "[]")
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Scene:"):
			if v := value(line, "Scene:"); v != "" {
				out.SceneType = v
			}
		case strings.HasPrefix(line, "Time:"):
			if v := value(line, "Time:"); v != "" {
				out.TimeOfDay = v
			}
		case strings.HasPrefix(line, "Weather:"):
			if v := value(line, "Weather:"); v != "" {
				out.Weather = v
			}
		case strings.HasPrefix(line, "Activity:"):
			if v := value(line, "Activity:"); v != "" {
				out.Activity = v
			}
		case strings.HasPrefix(line, "Tags:"):
			out.SuggestedTags = splitList(strings.TrimPrefix(line, "Tags:"))
		}
	}
	return out
}

// OCR is the result of text extraction.
type OCR struct {
	Text    string `json:"text"`
	HasText bool   `json:"has_text"`
}

const noTextFound = "no text found"

func ParseOCR(text string) OCR {
	text = strings.TrimSpace(strings.Replace(text, "Extracted text:", "", 1))
	return OCR{Text: text, HasText: text != "" && strings.ToLower(text) != noTextFound}
}

// Caption holds the short and detailed captions.
type Caption struct {
	Short    string `json:"short_caption"`
	Detailed string `json:"detailed_caption"`
}

func ParseCaption(text string) Caption {
	var out Caption
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Short:"):
			out.Short = strings.Trim(strings.TrimSpace(strings.TrimPrefix(line, "Short:")), "[]")
		case strings.HasPrefix(line, "Detailed:"):
			out.Detailed = strings.Trim(strings.TrimSpace(strings.TrimPrefix(line, "Detailed:")), "[]")
		}
	}
	if out.Short == "" {
		out.Short = truncateRunes(text, 100)
	}
	if out.Detailed == "" {
		out.Detailed = text
	}
	return out
}

// ParseFaceCount reads the first number in a face-count reply.
func ParseFaceCount(text string) int {
	return firstNumber(text)
}

var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ExtractJSON strips Markdown fences and returns the outermost {...} object
// in text, or "" when none exists.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// Activity is one suggested wellbeing activity.
type Activity struct {
	Label       string `json:"label"`
	Category    string `json:"category"`
	Why         string `json:"why"`
	DurationMin int    `json:"duration_min"`
}

const (
	maxGeminiActivities = 3
	defaultActivityCat  = "wellbeing"
	defaultActivityMin  = 20
)

// ParseActivities decodes {"activities":[...]}. Items need a label longer
// than 3 characters and a reason; at most three are kept.
func ParseActivities(text string) []Activity {
	raw := ExtractJSON(text)
	if raw == "" {
		return nil
	}
	var parsed struct {
		Activities []struct {
			Label       string          `json:"label"`
			Category    string          `json:"category"`
			Why         string          `json:"why"`
			DurationMin json.RawMessage `json:"duration_min"`
		} `json:"activities"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil
	}

	var out []Activity
	for _, a := range parsed.Activities {
		label := strings.TrimSpace(a.Label)
		why := strings.TrimSpace(a.Why)
		if len([]rune(label)) <= 3 || why == "" {
			continue
		}
		cat := strings.TrimSpace(a.Category)
		if cat == "" {
			cat = defaultActivityCat
		}
		out = append(out, Activity{Label: label, Category: cat, Why: why, DurationMin: parseDuration(a.DurationMin)})
		if len(out) == maxGeminiActivities {
			break
		}
	}
	return out
}

// parseDuration accepts 15, 15.0 or "15".
func parseDuration(raw json.RawMessage) int {
	if len(raw) == 0 {
		return defaultActivityMin
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil && f > 0 {
		return int(f)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n := firstNumber(s); n > 0 {
			return n
		}
	}
	return defaultActivityMin
}

// Enhancement holds photo improvement suggestions.
type Enhancement struct {
	Brightness     string `json:"brightness"`
	Contrast       string `json:"contrast"`
	Composition    string `json:"composition"`
	OverallQuality string `json:"overall_quality"`
}

// ParseEnhancement decodes the JSON suggestion object. ok is false when the
// reply holds no decodable object.
func ParseEnhancement(text string) (Enhancement, bool) {
	raw := ExtractJSON(text)
	if raw == "" {
		return Enhancement{}, false
	}
	var out Enhancement
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return Enhancement{}, false
	}
	return out, true
}

// IsPlaceholder reports whether text is a bracketed transcription placeholder
// rather than real speech.
func IsPlaceholder(text string) bool {
	t := strings.TrimSpace(text)
	return t == "" || (strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]"))
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
