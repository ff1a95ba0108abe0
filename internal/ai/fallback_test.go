package ai

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFaceTags(t *testing.T) {
	tests := []struct {
		count    int
		contains string
		quality  string
	}{
		{0, FaceNone, QualityNone},
		{1, FaceSingle, QualityGood},
		{2, FaceMultiple, QualityGood},
		{3, FaceMultiple, QualityMedium},
	}
	for _, tt := range tests {
		tags := FaceTags(tt.count)
		assert.Equal(t, tt.contains, tags["contains_face"], tt.count)
		assert.Equal(t, tt.quality, tags["quality"], tt.count)
		assert.Equal(t, tt.count, tags["count"])
		assert.Equal(t, "ai", tags["method"])
	}
}

func TestTruncateSummary(t *testing.T) {
	assert.Equal(t, "short", TruncateSummary("short"))
	long := strings.Repeat("a", 250)
	got := TruncateSummary(long)
	assert.Equal(t, strings.Repeat("a", 200)+"...", got)
}

func TestTranscriptionPlaceholder(t *testing.T) {
	assert.Equal(t, PlaceholderModelLoading, TranscriptionPlaceholder(Response{Status: 503}))
	assert.Equal(t, PlaceholderEmpty, TranscriptionPlaceholder(Response{Status: 200}))
	assert.Contains(t, TranscriptionPlaceholder(Response{Status: 401}), "API returned 401")
	assert.Contains(t, TranscriptionPlaceholder(Response{Err: errors.New("dial tcp: refused")}), "Transcription error: dial tcp: refused")

	for _, p := range []string{
		TranscriptionPlaceholder(Response{Status: 500}),
		TranscriptionPlaceholder(Response{Err: errors.New("timeout")}),
	} {
		assert.True(t, IsPlaceholder(p), p)
	}
}

func TestLocalTopics(t *testing.T) {
	got := LocalTopics("The meeting with Marc about the budget and the budget review for next quarter")
	assert.Equal(t, []string{"meeting", "marc", "about", "budget", "budget", "review", "next", "quarter"}, got.Keywords)
	assert.Equal(t, []string{"meeting", "marc", "about"}, got.Topics)
	assert.Equal(t, CategoryOther, got.Category)
	assert.NotContains(t, got.Context, "...")

	punct := LocalTopics("Budget, budget! Then the budget.")
	assert.Equal(t, []string{"budget,", "budget!", "then", "budget."}, punct.Keywords)

	capped := LocalTopics(strings.Repeat("again ", 12))
	assert.Len(t, capped.Keywords, 10)
	assert.Equal(t, []string{"again", "again", "again"}, capped.Topics)

	long := LocalTopics(strings.Repeat("word ", 40))
	assert.True(t, strings.HasSuffix(long.Context, "..."))
	assert.Len(t, []rune(long.Context), 103)
}

func TestEmptyTopics(t *testing.T) {
	got := EmptyTopics()
	assert.Empty(t, got.Topics)
	assert.Equal(t, "other", got.Category)
	assert.Equal(t, "No context available", got.Context)
}

func TestDescribeFallback(t *testing.T) {
	assert.Equal(t,
		"Image #7 with multiple faces. Contains 3 person(s). A captured moment preserved in pixels.",
		DescribeFallback(7, FaceInfo{ContainsFace: FaceMultiple, Count: 3}))
	assert.Equal(t,
		"Image #2 with no face. A captured moment preserved in pixels.",
		DescribeFallback(2, FaceInfo{}))
}

func TestEnhanceFallbacks(t *testing.T) {
	f := FaceInfo{Quality: QualityGood}
	assert.Equal(t, "good - Good baseline", EnhanceFallback(f).OverallQuality)
	assert.Equal(t, "good", EnhanceParseFallback(f).OverallQuality)
	assert.Equal(t, "Follow rule of thirds", EnhanceParseFallback(f).Composition)
}

func labels(acts []Activity) []string {
	out := make([]string, len(acts))
	for i, a := range acts {
		out[i] = a.Label
	}
	return out
}

func TestLocalActivities(t *testing.T) {
	t.Run("tired and stressed in the rain", func(t *testing.T) {
		got := LocalActivities(ActivityInput{Energy: 1, Sleep: 2, Weather: "rain", Themes: "work pressure", ScreenTime: "5h+"})
		assert.Equal(t, []string{
			"Watch a relaxing film",
			"10-minute guided meditation",
			"Reading with a hot drink",
			"Screen-free activity",
			"4-4-4-4 box breathing",
		}, labels(got))
	})

	t.Run("energetic on a sunny day with a goal", func(t *testing.T) {
		got := LocalActivities(ActivityInput{Energy: 5, Sleep: 4, Weather: "sunny", DailyGoal: "Finish the report"})
		assert.Equal(t, []string{
			"30-minute workout",
			"Pomodoro on your goal task",
			"Outing to a park or café",
			"Take a small step toward your goal",
		}, labels(got))
		assert.Contains(t, got[3].Why, "Finish the report")
	})

	t.Run("default walk", func(t *testing.T) {
		got := LocalActivities(ActivityInput{Energy: 3, Sleep: 3})
		assert.Equal(t, []string{"15-20 minute walk"}, labels(got))
		assert.Equal(t, 20, got[0].DurationMin)
	})

	t.Run("capped at five", func(t *testing.T) {
		got := LocalActivities(ActivityInput{Energy: 1, Sleep: 1, Weather: "storm", Themes: "anxiety", ScreenTime: "5h+", DailyGoal: "rest"})
		assert.Len(t, got, maxLocalActivities)
	})
}
