package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSentiment(t *testing.T) {
	tests := []struct {
		in   string
		want Sentiment
	}{
		{"Positive.", Sentiment{SentimentPositive, 0.85}},
		{"  negative!", Sentiment{SentimentNegative, 0.85}},
		{"neutral", Sentiment{SentimentNeutral, 0.75}},
		{"mixed feelings", NeutralSentiment},
		{"", NeutralSentiment},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseSentiment(tt.in), tt.in)
	}
}

func TestParseTopics(t *testing.T) {
	got := ParseTopics("Topics: [budget, planning, team]\nCategory: Work\nKeywords: [q3, budget, hiring, ,roadmap]\nContext: [Quarterly planning call]")
	assert.Equal(t, []string{"budget", "planning", "team"}, got.Topics)
	assert.Equal(t, "work", got.Category)
	assert.Equal(t, []string{"q3", "budget", "hiring", "roadmap"}, got.Keywords)
	assert.Equal(t, "Quarterly planning call", got.Context)
}

func TestParseTopics_MissingLabels(t *testing.T) {
	raw := "I could not find a structure here."
	got := ParseTopics(raw)
	assert.Empty(t, got.Topics)
	assert.Empty(t, got.Keywords)
	assert.Equal(t, CategoryOther, got.Category)
	assert.Equal(t, raw, got.Context)
}

func TestParseTopics_UnknownCategory(t *testing.T) {
	assert.Equal(t, CategoryOther, ParseTopics("Category: hobbies").Category)
	assert.Equal(t, "idea", ParseTopics("Category: [Idea]").Category)
}

func TestParseObjects(t *testing.T) {
	raw := "Objects: table, chair , laptop\nPeople: about 3 people\nAnimals: 1 dog\nScene: an office"
	got := ParseObjects(raw)
	assert.Equal(t, []string{"table", "chair", "laptop"}, got.Objects)
	assert.Equal(t, 3, got.PeopleCount)
	assert.Equal(t, []string{"1 dog"}, got.Animals)
	assert.Equal(t, raw, got.Description)

	empty := ParseObjects("nothing useful")
	assert.Empty(t, empty.Objects)
	assert.Zero(t, empty.PeopleCount)
	assert.Empty(t, empty.Animals)
}

func TestParseEmotions(t *testing.T) {
	got := ParseEmotions("Person 1: Happy\nPerson 2: [surprised]\nOverall mood: Cheerful")
	assert.Equal(t, []string{"happy", "surprised"}, got.Emotions)
	assert.Equal(t, "cheerful", got.DominantEmotion)

	assert.Equal(t, SentimentNeutral, ParseEmotions("no people").DominantEmotion)
}

func TestParseScene(t *testing.T) {
	got := ParseScene("Scene: beach\nTime: evening\nWeather: sunny\nActivity: surfing\nTags: [sea, sand, sunset]")
	assert.Equal(t, Scene{
		SceneType:     "beach",
		TimeOfDay:     "evening",
		Weather:       "sunny",
		Activity:      "surfing",
		SuggestedTags: []string{"sea", "sand", "sunset"},
	}, got)

	def := ParseScene("")
	assert.Equal(t, Unknown, def.SceneType)
	assert.Equal(t, Unknown, def.TimeOfDay)
	assert.Empty(t, def.SuggestedTags)
}

func TestParseOCR(t *testing.T) {
	got := ParseOCR("Extracted text: OPEN 24/7")
	assert.Equal(t, "OPEN 24/7", got.Text)
	assert.True(t, got.HasText)

	assert.False(t, ParseOCR("No text found").HasText)
	assert.False(t, ParseOCR("   ").HasText)
}

func TestParseCaption(t *testing.T) {
	got := ParseCaption("Short: A dog on a beach.\nDetailed: A golden dog runs along the shore at sunset.")
	assert.Equal(t, "A dog on a beach.", got.Short)
	assert.Equal(t, "A golden dog runs along the shore at sunset.", got.Detailed)

	long := "x"
	for len(long) < 150 {
		long += "x"
	}
	fb := ParseCaption(long)
	assert.Len(t, fb.Short, 100)
	assert.Equal(t, long, fb.Detailed)
}

func TestParseFaceCount(t *testing.T) {
	assert.Equal(t, 2, ParseFaceCount("2"))
	assert.Equal(t, 4, ParseFaceCount("I count 4 faces, maybe 5"))
	assert.Equal(t, 0, ParseFaceCount("none"))
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, ExtractJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":{"b":2}}`, ExtractJSON(`Sure! {"a":{"b":2}} hope it helps`))
	assert.Equal(t, "", ExtractJSON("no json"))
}

func TestParseActivities(t *testing.T) {
	raw := "```json\n" + `{"activities":[
		{"label":"Evening yoga","category":"sport","why":"Helps you unwind","duration_min":15},
		{"label":"Run","category":"sport","why":"too short a label","duration_min":30},
		{"label":"Call a friend","why":"Connection lifts mood","duration_min":"10 min"},
		{"label":"Sketch outside","category":"creativity","why":""},
		{"label":"Journal a page","category":"creativity","why":"Clears the head"},
		{"label":"Fourth valid one","category":"social","why":"Should be cut"}
	]}` + "\n```"
	got := ParseActivities(raw)
	assert.Equal(t, []Activity{
		{Label: "Evening yoga", Category: "sport", Why: "Helps you unwind", DurationMin: 15},
		{Label: "Call a friend", Category: "wellbeing", Why: "Connection lifts mood", DurationMin: 10},
		{Label: "Journal a page", Category: "creativity", Why: "Clears the head", DurationMin: 20},
	}, got)

	assert.Empty(t, ParseActivities("not json"))
	assert.Empty(t, ParseActivities(`{"activities": "nope"}`))
}

func TestParseEnhancement(t *testing.T) {
	got, ok := ParseEnhancement("```\n{\"brightness\":\"Lift shadows\",\"contrast\":\"Add punch\",\"composition\":\"Crop left\",\"overall_quality\":\"good\"}\n```")
	assert.True(t, ok)
	assert.Equal(t, "Lift shadows", got.Brightness)
	assert.Equal(t, "good", got.OverallQuality)

	_, ok = ParseEnhancement("brightness: more")
	assert.False(t, ok)
}

func TestIsPlaceholder(t *testing.T) {
	assert.True(t, IsPlaceholder(PlaceholderNoProvider))
	assert.True(t, IsPlaceholder("  "))
	assert.False(t, IsPlaceholder("I had a great day [really]!"))
}
