package ai

import (
	"fmt"
	"strings"
)

// Character budgets for user content embedded in prompts.
const (
	sentimentInputLimit   = 1000
	topicsInputLimit      = 1000
	hfSentimentInputLimit = 512
	hfSummaryInputLimit   = 1024
	activityContentLimit  = 200
)

func SentimentPrompt(text string) string {
	return "Analyze the sentiment of the following text and respond with ONLY ONE WORD: positive, negative, or neutral.\n\n" +
		fmt.Sprintf("Text: %q\n\n", truncateRunes(text, sentimentInputLimit)) +
		"Sentiment (one word only):"
}

func TopicsPrompt(text string) string {
	return "Analyze this text and identify:\n" +
		"1. Main topics (list 2-5 topics)\n" +
		"2. Category (choose ONE: " + strings.Join(Categories, ", ") + ")\n" +
		"3. Keywords (list 5-10 important keywords)\n" +
		"4. Context (brief description of what this is about)\n\n" +
		fmt.Sprintf("Text: %q\n\n", truncateRunes(text, topicsInputLimit)) +
		"Format your response EXACTLY as:\n" +
		"Topics: [topic1, topic2, topic3]\n" +
		"Category: [category]\n" +
		"Keywords: [keyword1, keyword2, keyword3]\n" +
		"Context: [description]"
}

const (
	ObjectsPrompt = "Analyze this image and provide:\n" +
		"1. List all objects you can see (comma-separated)\n" +
		"2. Count of people in the image\n" +
		"3. Count of animals (specify type)\n" +
		"4. Brief description of the scene\n\n" +
		"Format your response as:\n" +
		"Objects: [list]\n" +
		"People: [number]\n" +
		"Animals: [type and number]\n" +
		"Scene: [description]"

	EmotionsPrompt = "Analyze the emotions of people in this image.\n" +
		"For each person visible, identify their emotion (happy, sad, neutral, surprised, angry, fearful, disgusted).\n" +
		"Also identify the overall mood of the image.\n\n" +
		"Format:\n" +
		"Person 1: [emotion]\n" +
		"Person 2: [emotion]\n" +
		"Overall mood: [description]"

	ScenePrompt = "Analyze this image and identify:\n" +
		"1. Scene type (indoor/outdoor, beach, office, home, party, nature, city, etc.)\n" +
		"2. Time of day (morning, afternoon, evening, night)\n" +
		"3. Weather (if outdoor)\n" +
		"4. Activity happening\n" +
		"5. Suggest 5-10 relevant tags for this image\n\n" +
		"Format:\n" +
		"Scene: [type]\n" +
		"Time: [time of day]\n" +
		"Weather: [weather]\n" +
		"Activity: [activity]\n" +
		"Tags: [tag1, tag2, tag3, ...]"

	OCRPrompt = "Extract ALL text visible in this image.\n" +
		"Include handwritten text, printed text, signs, labels, etc.\n" +
		"If there is no text, respond with \"No text found\".\n\n" +
		"Extracted text:"

	CaptionPrompt = "Generate two captions for this image:\n" +
		"1. A short caption (one sentence, 10-15 words)\n" +
		"2. A detailed caption (2-3 sentences describing the scene, mood, and context)\n\n" +
		"Format:\n" +
		"Short: [caption]\n" +
		"Detailed: [caption]"

	FaceCountPrompt = "Count human faces in this image. Reply with just a number."

	describeSystem = "You are a professional photographer and art critic with expertise in visual storytelling."
	enhanceSystem  = "You are a professional photographer and photo editor. Always respond with valid JSON only."
)

// FaceInfo is the face-detection part of an image's tags.
type FaceInfo struct {
	ContainsFace string
	Count        int
	Quality      string
}

// DescribeContext lists the phrases the description prompt is built from.
func DescribeContext(f FaceInfo) []string {
	var ctx []string
	switch {
	case f.ContainsFace == FaceSingle && f.Count == 1:
		ctx = append(ctx, "portrait of one person")
	case f.ContainsFace == FaceMultiple && f.Count > 1:
		ctx = append(ctx, fmt.Sprintf("group photo with %d people", f.Count))
	default:
		ctx = append(ctx, "scene or landscape")
	}
	switch f.Quality {
	case QualityGood:
		ctx = append(ctx, "high quality")
	case QualityMedium:
		ctx = append(ctx, "decent quality")
	}
	return ctx
}

func DescribePrompt(f FaceInfo) string {
	return fmt.Sprintf("You are a professional photographer. Describe an image that is a %s. "+
		"Write a vivid, poetic description in 3-4 sentences covering: the subjects, setting, lighting, mood, and artistic style. "+
		"Be specific and evocative.", strings.Join(DescribeContext(f), ", "))
}

func qualityPhrase(quality string) string {
	switch quality {
	case QualityGood:
		return "high quality"
	case QualityMedium:
		return "medium quality"
	case QualityNone:
		return "needs improvement"
	}
	return "unknown quality"
}

func EnhancePrompt(f FaceInfo) string {
	imageType := "landscape/scene"
	if f.Count > 0 {
		imageType = "portrait"
	}
	return fmt.Sprintf("Analyze this %s image (%s) and suggest photo enhancements. "+
		"Respond with a JSON object with exactly these keys: "+
		`"brightness", "contrast", "composition", "overall_quality". `+
		"Each value is one short, actionable sentence.", imageType, qualityPhrase(f.Quality))
}

// VariationPrompt builds the text-to-image prompt for a stylized variation.
func VariationPrompt(faceCount int, style string) string {
	subject := "image scene"
	if faceCount > 0 {
		subject = fmt.Sprintf("portrait of %d person(s)", faceCount)
	}
	return fmt.Sprintf("%s, %s style, high quality, detailed", subject, style)
}

// ActivityInput is the journal context sent to the recommender.
type ActivityInput struct {
	Mood       string
	Energy     int
	Sleep      int
	Subject    string
	Content    string
	Themes     string
	Weather    string
	ScreenTime string
	DailyGoal  string
}

func ActivitiesPrompt(in ActivityInput) string {
	subject := strings.TrimSpace(in.Subject)
	if subject == "" {
		subject = "General"
	}
	return "You are a wellbeing coach. Suggest 3 short, concrete activities for today based on this journal entry.\n" +
		fmt.Sprintf("Mood: %s\nEnergy: %d/5\nSleep quality: %d/5\nMain subject: %s\n", in.Mood, in.Energy, in.Sleep, subject) +
		fmt.Sprintf("Excerpt: %q\n\n", truncateRunes(in.Content, activityContentLimit)) +
		"Reply with JSON only, in this exact shape:\n" +
		`{"activities":[{"label":"...","category":"sport|relaxation|creativity|social","why":"...","duration_min":15}]}`
}

const problemSummarySystem = "You are an empathetic assistant. Summarize the problem and give one practical piece of advice."

func IllustrationPrompt(description string) string {
	return "Describe in vivid visual detail: " + description
}
