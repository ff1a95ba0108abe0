package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyia/internal/config"
)

const testPollinationsBase = "https://pollinations.test"

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newIllustrator(client *Client, cfg config.ImageGenConfig, hfKey, groqKey string) *Illustrator {
	il := NewIllustrator(client, cfg, testPollinationsBase,
		NewHuggingFace(client, hfConfig(hfKey)), NewGroq(client, groqConfig(groqKey)), nil, nil)
	il.seed = func() int { return 42 }
	return il
}

func TestGenerate_LocalNeverFails(t *testing.T) {
	client, mt := mockedClient(t)
	il := newIllustrator(client, config.ImageGenConfig{Provider: ProviderLocal}, "", "")

	out, err := il.Generate(context.Background(), strings.Repeat("A quiet lake at dawn. ", 20), "")
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, out.Provider)
	assert.Equal(t, "png", out.Ext)
	assert.Zero(t, mt.GetTotalCallCount())

	img, err := png.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, 640, img.Bounds().Dx())
	assert.Equal(t, 360, img.Bounds().Dy())
	assert.Equal(t, map[string]any{"provider": "local", "duration_ms": int64(0)}, out.Meta())
}

func TestGenerate_MissingCredentialsUsePlaceholder(t *testing.T) {
	client, _ := mockedClient(t)
	il := newIllustrator(client, config.ImageGenConfig{Provider: ProviderLocal}, "", "")

	for _, p := range []string{ProviderOpenAI, ProviderStability, ProviderHuggingFace, ProviderGroq} {
		out, err := il.Generate(context.Background(), "sunset", p)
		require.NoError(t, err, p)
		assert.Equal(t, ProviderLocal, out.Provider, p)
	}
}

func TestGenerate_Pollinations(t *testing.T) {
	client, mt := mockedClient(t)
	mt.RegisterResponder(http.MethodGet, testPollinationsBase+"/prompt/a%20red%20fox?width=512&height=512&seed=42&nologo=true",
		httpmock.NewBytesResponder(200, tinyPNG(t)))

	il := newIllustrator(client, config.ImageGenConfig{}, "", "")
	out, err := il.Generate(context.Background(), "a red fox", ProviderPollinations)
	require.NoError(t, err)
	assert.Equal(t, ProviderPollinations, out.Provider)
	assert.Equal(t, "png", out.Ext)
}

func TestGenerate_ExplicitRemoteFailureIsError(t *testing.T) {
	client, mt := mockedClient(t)
	mt.RegisterResponder(http.MethodGet, `=~^https://pollinations\.test/prompt/`, httpmock.NewStringResponder(500, "down"))

	il := newIllustrator(client, config.ImageGenConfig{}, "", "")
	_, err := il.Generate(context.Background(), "a red fox", ProviderPollinations)

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ProviderPollinations, perr.Task)
}

func TestGenerate_NonImageBodyIsError(t *testing.T) {
	client, mt := mockedClient(t)
	mt.RegisterResponder(http.MethodGet, `=~^https://pollinations\.test/prompt/`, httpmock.NewStringResponder(200, "<html>captcha</html>"))

	il := newIllustrator(client, config.ImageGenConfig{}, "", "")
	_, err := il.Generate(context.Background(), "a red fox", ProviderPollinations)
	assert.Error(t, err)
}

func TestGenerate_AutoWalksProviders(t *testing.T) {
	client, mt := mockedClient(t)
	mt.RegisterResponder(http.MethodGet, `=~^https://pollinations\.test/prompt/`, httpmock.NewStringResponder(502, "bad gateway"))
	mt.RegisterResponder(http.MethodPost, testHFBase+"/"+HFModelDiffusion, httpmock.NewBytesResponder(200, tinyPNG(t)))

	il := newIllustrator(client, config.ImageGenConfig{Provider: ProviderAuto, APIKey: "hf_abc"}, "", "")
	out, err := il.Generate(context.Background(), "mountains", "")
	require.NoError(t, err)
	assert.Equal(t, ProviderHuggingFace, out.Provider)

	// with both remote providers down auto still answers
	mt.RegisterResponder(http.MethodPost, testHFBase+"/"+HFModelDiffusion, httpmock.NewStringResponder(500, "err"))
	out, err = il.Generate(context.Background(), "mountains", "")
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, out.Provider)
}

func TestGenerate_OpenAI(t *testing.T) {
	client, mt := mockedClient(t)
	b64 := base64.StdEncoding.EncodeToString(tinyPNG(t))
	mt.RegisterResponder(http.MethodPost, "https://images.test/v1/images/generations",
		httpmock.NewStringResponder(200, `{"data":[{"b64_json":"`+b64+`"}]}`))

	il := newIllustrator(client, config.ImageGenConfig{APIKey: "sk-test", APIBase: "https://images.test/v1/"}, "", "")
	out, err := il.Generate(context.Background(), "a cat", ProviderOpenAI)
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, out.Provider)
	assert.Equal(t, tinyPNG(t), out.Data)
}

func TestGenerate_Stability(t *testing.T) {
	client, mt := mockedClient(t)
	b64 := base64.StdEncoding.EncodeToString(tinyPNG(t))
	mt.RegisterResponder(http.MethodPost, "https://stability.test/v1/generation/stable-diffusion-v1-6/text-to-image",
		httpmock.NewStringResponder(200, `{"artifacts":[{"base64":"`+b64+`"}]}`))

	il := newIllustrator(client, config.ImageGenConfig{APIKey: "sk-test", APIBase: "https://stability.test"}, "", "")
	out, err := il.Generate(context.Background(), "a cat", ProviderStability)
	require.NoError(t, err)
	assert.Equal(t, ProviderStability, out.Provider)
}

func TestGenerate_GroqEnhanced(t *testing.T) {
	client, mt := mockedClient(t)
	mt.RegisterResponder(http.MethodPost, testGroqBase+"/chat/completions",
		httpmock.NewStringResponder(200, chatBody("A vast turquoise lagoon under a pink sky with palm trees swaying.")))

	il := newIllustrator(client, config.ImageGenConfig{}, "", "gsk_test")
	out, err := il.Generate(context.Background(), "lagoon", ProviderGroq)
	require.NoError(t, err)
	assert.Equal(t, "groq_ai_enhanced", out.Provider)
}

func TestVary_LocalFallback(t *testing.T) {
	client, _ := mockedClient(t)
	il := newIllustrator(client, config.ImageGenConfig{}, "", "")

	src := image.NewNRGBA(image.Rect(0, 0, 800, 600))
	v, err := il.Vary(context.Background(), src, 2, "watercolor")
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, v.Provider)
	assert.Equal(t, "portrait of 2 person(s), watercolor style, high quality, detailed", v.Prompt)
	assert.Equal(t, "Variation (watercolor): Filtered version", v.Description("watercolor"))
}

func TestVary_Pollinations(t *testing.T) {
	client, mt := mockedClient(t)
	mt.RegisterResponder(http.MethodGet, `=~^https://pollinations\.test/prompt/image%20scene`, httpmock.NewBytesResponder(200, tinyPNG(t)))

	il := newIllustrator(client, config.ImageGenConfig{}, "", "")
	v, err := il.Vary(context.Background(), image.NewNRGBA(image.Rect(0, 0, 4, 4)), 0, "cartoon")
	require.NoError(t, err)
	assert.Equal(t, ProviderPollinations, v.Provider)
	assert.Equal(t, "Variation (cartoon): image scene, cartoon style, high quality, detailed", v.Description("cartoon"))
}
