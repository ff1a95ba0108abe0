package api

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyia/internal/config"
	"storyia/internal/models"
)

// tinyPNG encodes a w x h gradient.
func tinyPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func chatCompletion(t *testing.T, content string) string {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
	})
	require.NoError(t, err)
	return string(body)
}

func (s *testServer) uploadImage(cookie *http.Cookie) models.ImageModel {
	s.t.Helper()
	rec := s.upload("/api/images", "image", "pic.png", tinyPNG(s.t, 32, 24), nil, cookie)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.ImageModel](s.t, rec)
}

func TestImageUploadAndTags(t *testing.T) {
	srv := newTestServer(t, nil)
	alice := srv.signup("alice")
	bob := srv.signup("bob")

	rec := srv.upload("/api/images", "", "", nil, nil, alice)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.upload("/api/images", "image", "notes.png", []byte("not an image"), nil, alice)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	img := srv.uploadImage(alice)
	assert.Equal(t, "no_face", img.Tags.String(models.TagContainsFace))
	assert.Equal(t, 0, img.Tags.FaceCount())
	assert.True(t, srv.exists(img.Image))
	require.NotEmpty(t, img.Thumbnail)
	assert.True(t, srv.exists(img.Thumbnail))

	path := fmt.Sprintf("/api/images/%d", img.ID)
	rec = srv.json(http.MethodPatch, path, map[string]any{"tags": map[string]any{"album": "holidays"}}, alice)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[models.ImageModel](t, rec)
	assert.Equal(t, "holidays", updated.Tags.String("album"))
	assert.Equal(t, "no_face", updated.Tags.String(models.TagContainsFace))

	rec = srv.json(http.MethodGet, path, nil, bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = srv.json(http.MethodPatch, path, map[string]any{"tags": map[string]any{"album": "mine"}}, bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.json(http.MethodGet, "/api/images", nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.ImageModel](t, rec), 1)
	rec = srv.json(http.MethodGet, "/api/images", nil, bob)
	assert.Empty(t, decode[[]models.ImageModel](t, rec))

	rec = srv.json(http.MethodGet, "/api/images/stats", nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[models.ImageStats](t, rec)
	assert.Equal(t, 1, stats.TotalImages)
	assert.Equal(t, 0, stats.GeneratedImages)

	rec = srv.json(http.MethodDelete, path, nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, srv.exists(img.Image))
	assert.False(t, srv.exists(img.Thumbnail))
	rec = srv.json(http.MethodGet, path, nil, alice)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImageTextTasksNeedGroq(t *testing.T) {
	srv := newTestServer(t, nil)
	cookie := srv.signup("alice")
	img := srv.uploadImage(cookie)

	for _, task := range []string{"describe", "enhance"} {
		rec := srv.json(http.MethodPost, fmt.Sprintf("/api/images/%d/%s", img.ID, task), nil, cookie)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, task)
	}

	rec := srv.json(http.MethodPost, fmt.Sprintf("/api/images/%d/objects", img.ID), nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, false, body["success"])
}

func TestUploadBodyIsCapped(t *testing.T) {
	srv := newTestServer(t, func(cfg *config.Config) { cfg.Upload.MaxBytes = 16 << 10 })
	cookie := srv.signup("alice")
	big := bytes.Repeat([]byte{0x42}, 32<<10)

	for path, field := range map[string]string{"/api/images": "image", "/api/vocals": "audio_file"} {
		rec := srv.upload(path, field, "big.bin", big, nil, cookie)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, path)
	}

	srv.uploadImage(cookie)
}

func TestImageUploadRejectsHugeDimensions(t *testing.T) {
	srv := newTestServer(t, nil)
	cookie := srv.signup("alice")

	data := tinyPNG(t, 2, 2)
	binary.BigEndian.PutUint32(data[16:20], 30000)
	binary.BigEndian.PutUint32(data[20:24], 30000)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))

	rec := srv.upload("/api/images", "image", "bomb.png", data, nil, cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Image dimensions are too large", decode[fieldErrorBody](t, rec).Error)

	rec = srv.json(http.MethodGet, "/api/images", nil, cookie)
	assert.Empty(t, decode[[]models.ImageModel](t, rec))
}

type facesBody struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Image   models.ImageModel `json:"image"`
	Tags    models.Tags       `json:"tags"`
}

func TestImageFacesWithoutGroq(t *testing.T) {
	srv := newTestServer(t, nil)
	cookie := srv.signup("alice")
	img := srv.uploadImage(cookie)

	rec := srv.json(http.MethodPost, fmt.Sprintf("/api/images/%d/faces", img.ID), nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[facesBody](t, rec)
	assert.False(t, body.Success)
	assert.NotEmpty(t, body.Error)
	assert.Equal(t, img.ID, body.Image.ID)
	assert.Equal(t, "no_face", body.Tags["contains_face"])
	assert.Equal(t, float64(0), body.Tags["count"])
}

func TestImageFacesProviderFailure(t *testing.T) {
	srv := newTestServer(t, withGroq)
	cookie := srv.signup("alice")
	srv.mock.RegisterResponder(http.MethodPost, testGroqBase+"/chat/completions",
		httpmock.NewStringResponder(http.StatusInternalServerError, `{"error":"boom"}`))
	img := srv.uploadImage(cookie)

	rec := srv.json(http.MethodPost, fmt.Sprintf("/api/images/%d/faces", img.ID), nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[facesBody](t, rec)
	assert.False(t, body.Success)
	assert.Contains(t, body.Error, "500")
	assert.Equal(t, "no_face", body.Tags["contains_face"])
	assert.Equal(t, "no_face", body.Image.Tags["contains_face"])
}

func TestImageFacesCounted(t *testing.T) {
	srv := newTestServer(t, withGroq)
	cookie := srv.signup("alice")
	img := srv.uploadImage(cookie)
	srv.mock.RegisterResponder(http.MethodPost, testGroqBase+"/chat/completions",
		httpmock.NewStringResponder(http.StatusOK, chatCompletion(t, "2")))

	rec := srv.json(http.MethodPost, fmt.Sprintf("/api/images/%d/faces", img.ID), nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[facesBody](t, rec)
	assert.True(t, body.Success)
	assert.Empty(t, body.Error)
	assert.Equal(t, "multiple_faces", body.Tags["contains_face"])
	assert.Equal(t, float64(2), body.Tags["count"])

	rec = srv.json(http.MethodGet, fmt.Sprintf("/api/images/%d", img.ID), nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "multiple_faces", decode[models.ImageModel](t, rec).Tags["contains_face"])
}

func TestImageDescribeFallsBackLocally(t *testing.T) {
	srv := newTestServer(t, withGroq)
	cookie := srv.signup("alice")
	img := srv.uploadImage(cookie)

	// Groq is configured but every call fails.
	rec := srv.json(http.MethodPost, fmt.Sprintf("/api/images/%d/describe", img.ID), nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[struct {
		Description string `json:"description"`
		AIGenerated bool   `json:"ai_generated"`
	}](t, rec)
	assert.NotEmpty(t, body.Description)
	assert.False(t, body.AIGenerated)
}

func TestImageCaptionMergesTags(t *testing.T) {
	srv := newTestServer(t, withGroq)
	cookie := srv.signup("alice")
	img := srv.uploadImage(cookie)

	srv.mock.RegisterResponder(http.MethodPost, testGroqBase+"/chat/completions",
		httpmock.NewStringResponder(http.StatusOK, chatCompletion(t, "Short: A gradient\nDetailed: A soft blue gradient fading to pink.")))

	rec := srv.json(http.MethodPost, fmt.Sprintf("/api/images/%d/caption", img.ID), nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[captionResult](t, rec)
	assert.True(t, res.Success)
	assert.Equal(t, "A gradient", res.Short)

	rec = srv.json(http.MethodGet, fmt.Sprintf("/api/images/%d", img.ID), nil, cookie)
	stored := decode[models.ImageModel](t, rec)
	assert.Equal(t, "A gradient", stored.Tags.String(models.TagAutoCaption))
	assert.Equal(t, "A soft blue gradient fading to pink.", stored.Tags.String(models.TagDetailedCaption))
	assert.Equal(t, "no_face", stored.Tags.String(models.TagContainsFace))
}

func TestImageFilterAndVariation(t *testing.T) {
	srv := newTestServer(t, nil)
	cookie := srv.signup("alice")
	img := srv.uploadImage(cookie)

	rec := srv.json(http.MethodPost, fmt.Sprintf("/api/images/%d/filter", img.ID), map[string]any{"filter_type": "grayscale"}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	g := decode[models.GeneratedImage](t, rec)
	assert.Equal(t, fmt.Sprintf("Filtered: grayscale applied to image #%d", img.ID), g.Description)
	assert.True(t, srv.exists(g.Image))

	rec = srv.json(http.MethodPost, fmt.Sprintf("/api/images/%d/filter", img.ID), map[string]any{"filter_type": "vaporwave"}, cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Unknown filter type: vaporwave", decode[fieldErrorBody](t, rec).Error)

	// Pollinations is unreachable, so the local style is used.
	rec = srv.json(http.MethodPost, fmt.Sprintf("/api/images/%d/variation", img.ID), map[string]any{}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	v := decode[models.GeneratedImage](t, rec)
	assert.Equal(t, "Variation (artistic): Filtered version", v.Description)

	rec = srv.json(http.MethodGet, "/api/images/generated", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.GeneratedImage](t, rec), 2)

	rec = srv.json(http.MethodGet, "/api/images/stats", nil, cookie)
	assert.Equal(t, 2, decode[models.ImageStats](t, rec).GeneratedImages)
}

func TestGenerateImage(t *testing.T) {
	srv := newTestServer(t, nil)
	cookie := srv.signup("alice")

	rec := srv.json(http.MethodPost, "/api/images/generate", map[string]any{"description": "  "}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.json(http.MethodPost, "/api/images/generate", map[string]any{"description": "a lighthouse at dusk"}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	g := decode[generatedResponse](t, rec)
	assert.Equal(t, "local", g.Meta["provider"])
	assert.Equal(t, "a lighthouse at dusk", g.Description)

	data, err := os.ReadFile(filepath.Join(srv.dir, filepath.FromSlash(g.Image)))
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(data))
	assert.NoError(t, err)

	rec = srv.json(http.MethodPost, "/api/images/generate", map[string]any{"description": "a lighthouse", "provider": "pollinations"}, cookie)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = srv.json(http.MethodDelete, fmt.Sprintf("/api/images/generated/%d", g.ID), nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, srv.exists(g.Image))
}

func TestImageEXIFWithoutMetadata(t *testing.T) {
	srv := newTestServer(t, nil)
	cookie := srv.signup("alice")
	img := srv.uploadImage(cookie)

	rec := srv.json(http.MethodPost, fmt.Sprintf("/api/images/%d/exif", img.ID), nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[exifResult](t, rec)
	assert.True(t, res.Success)
	assert.False(t, res.HasGPS)
	assert.Nil(t, res.Latitude)
}
