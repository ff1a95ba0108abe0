package ai

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyia/internal/imaging"
)

// visionResponder answers by the prompt's first line, so one responder can
// serve every task of a comprehensive analysis.
func visionResponder(t *testing.T, answers map[string]string) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Content []ContentPart `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		require.NotEmpty(t, body.Messages)
		parts := body.Messages[0].Content
		require.Len(t, parts, 2)
		assert.True(t, strings.HasPrefix(parts[1].ImageURL.URL, "data:image/jpeg;base64,"))

		for prefix, answer := range answers {
			if strings.HasPrefix(parts[0].Text, prefix) {
				return httpmock.NewStringResponse(200, chatBody(answer)), nil
			}
		}
		return httpmock.NewStringResponse(500, "unexpected prompt"), nil
	}
}

func testImage() image.Image {
	return image.NewNRGBA(image.Rect(0, 0, 64, 48))
}

func TestVision_NotConfigured(t *testing.T) {
	client, _ := mockedClient(t)
	v := NewVision(NewGroq(client, groqConfig("")), nil, nil)

	objs, err := v.Objects(context.Background(), testImage())
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Empty(t, objs.Objects)

	emo, err := v.Emotions(context.Background(), testImage())
	assert.Error(t, err)
	assert.Equal(t, Unknown, emo.DominantEmotion)

	_, _, err = v.Describe(context.Background(), 1, FaceInfo{})
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, _, err = v.Enhance(context.Background(), FaceInfo{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestVision_CountFaces(t *testing.T) {
	client, mt := mockedClient(t)
	mt.RegisterResponder(http.MethodPost, testGroqBase+"/chat/completions", visionResponder(t, map[string]string{
		FaceCountPrompt: "3",
	}))
	v := NewVision(NewGroq(client, groqConfig("gsk_test")), nil, nil)

	n, err := v.CountFaces(context.Background(), testImage())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestVision_Comprehensive(t *testing.T) {
	client, mt := mockedClient(t)
	mt.RegisterResponder(http.MethodPost, testGroqBase+"/chat/completions", visionResponder(t, map[string]string{
		"Analyze this image and provide": "Objects: ball, towel\nPeople: 2\nAnimals: none",
		"Analyze the emotions":           "Person 1: happy\nPerson 2: happy\nOverall mood: joyful",
		"Analyze this image and identify": "Scene: beach\nTime: afternoon\nWeather: sunny\nActivity: playing\nTags: [summer, sea]",
		"Extract ALL text":               "No text found",
		"Generate two captions":          "Short: Friends at the beach.\nDetailed: Two friends play ball on a sunny beach.",
	}))
	v := NewVision(NewGroq(client, groqConfig("gsk_test")), nil, nil)

	lat, lon := 43.7, 7.26
	a := v.Comprehensive(context.Background(), testImage(), imaging.EXIF{Data: map[string]string{}, HasGPS: true, Latitude: &lat, Longitude: &lon})

	assert.True(t, a.Success)
	assert.Empty(t, a.Errors)
	assert.Equal(t, AnalysisSummary{
		HasPeople:       true,
		HasText:         false,
		HasGPS:          true,
		SceneType:       "beach",
		DominantEmotion: "joyful",
		SuggestedTags:   []string{"summer", "sea"},
		Caption:         "Friends at the beach.",
		Location:        &Location{Latitude: lat, Longitude: lon},
	}, a.Summary)
}

func TestVision_ComprehensiveAllFail(t *testing.T) {
	client, mt := mockedClient(t)
	mt.RegisterResponder(http.MethodPost, testGroqBase+"/chat/completions", httpmock.NewStringResponder(500, "down"))
	v := NewVision(NewGroq(client, groqConfig("gsk_test")), nil, nil)

	a := v.Comprehensive(context.Background(), testImage(), imaging.EXIF{Data: map[string]string{}})
	assert.False(t, a.Success)
	assert.Len(t, a.Errors, 5)
	assert.Equal(t, Unknown, a.Summary.SceneType)
	assert.Nil(t, a.Summary.Location)
}

func TestVision_DescribeAndEnhance(t *testing.T) {
	client, mt := mockedClient(t)
	v := NewVision(NewGroq(client, groqConfig("gsk_test")), nil, nil)
	faces := FaceInfo{ContainsFace: FaceSingle, Count: 1, Quality: QualityGood}

	mt.RegisterResponder(http.MethodPost, testGroqBase+"/chat/completions", httpmock.NewStringResponder(503, "busy"))
	desc, fromAI, err := v.Describe(context.Background(), 9, faces)
	require.NoError(t, err)
	assert.False(t, fromAI)
	assert.Equal(t, DescribeFallback(9, faces), desc)

	enh, fromAI, err := v.Enhance(context.Background(), faces)
	require.NoError(t, err)
	assert.False(t, fromAI)
	assert.Equal(t, EnhanceFallback(faces), enh)

	mt.RegisterResponder(http.MethodPost, testGroqBase+"/chat/completions", httpmock.NewStringResponder(200, chatBody("Brighten it a bit.")))
	enh, _, err = v.Enhance(context.Background(), faces)
	require.NoError(t, err)
	assert.Equal(t, EnhanceParseFallback(faces), enh)

	mt.RegisterResponder(http.MethodPost, testGroqBase+"/chat/completions", httpmock.NewStringResponder(200, chatBody("Soft light falls on a calm face.")))
	desc, fromAI, err = v.Describe(context.Background(), 9, faces)
	require.NoError(t, err)
	assert.True(t, fromAI)
	assert.Equal(t, "Soft light falls on a calm face.", desc)
}

func TestDescribeContext(t *testing.T) {
	assert.Equal(t, []string{"portrait of one person", "high quality"},
		DescribeContext(FaceInfo{ContainsFace: FaceSingle, Count: 1, Quality: QualityGood}))
	assert.Equal(t, []string{"group photo with 4 people", "decent quality"},
		DescribeContext(FaceInfo{ContainsFace: FaceMultiple, Count: 4, Quality: QualityMedium}))
	assert.Equal(t, []string{"scene or landscape"}, DescribeContext(FaceInfo{}))
}
