package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"storyia/internal/ai"
	"storyia/internal/auth"
	"storyia/internal/config"
	"storyia/internal/middleware"
	"storyia/internal/models"
	"storyia/internal/store/sqlstore"
)

const (
	testPassword = "correct-horse-42"
	testGroqBase = "https://groq.test/v1"
)

type testServer struct {
	t       *testing.T
	store   *sqlstore.SQLStore
	handler http.Handler
	mock    *httpmock.MockTransport
	dir     string
}

// newTestServer wires the full handler chain over an in-memory store. No
// provider has credentials unless configure adds them; every outbound call
// goes to the returned mock transport.
func newTestServer(t *testing.T, configure func(*config.Config)) *testServer {
	t.Helper()
	cfg := config.Default()
	cfg.Upload.Dir = t.TempDir()
	if configure != nil {
		configure(cfg)
	}

	st, err := sqlstore.New("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := zaptest.NewLogger(t)
	mt := httpmock.NewMockTransport()
	services, err := ai.NewServices(context.Background(), cfg, &http.Client{Transport: mt}, logger, nil)
	require.NoError(t, err)

	signer := auth.NewSigner(cfg.Cookie)
	mux := http.NewServeMux()
	NewHandlers(st, services, cfg, signer, logger).Register(mux)

	return &testServer{
		t:       t,
		store:   st,
		handler: middleware.Auth(signer)(mux),
		mock:    mt,
		dir:     cfg.Upload.Dir,
	}
}

func withGroq(cfg *config.Config) {
	cfg.Groq = config.ProviderConfig{APIKey: "gsk-test", APIBase: testGroqBase}
}

func (s *testServer) do(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) json(method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, cookie)
}

// upload posts a multipart form with one file field and extra values.
func (s *testServer) upload(path, field, filename string, data []byte, values map[string]string, cookie *http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(s.t, err)
		_, err = fw.Write(data)
		require.NoError(s.t, err)
	}
	for k, v := range values {
		require.NoError(s.t, mw.WriteField(k, v))
	}
	require.NoError(s.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.do(req, cookie)
}

func authCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName && c.Value != "" {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", auth.CookieName)
	return nil
}

func (s *testServer) signup(username string) *http.Cookie {
	s.t.Helper()
	rec := s.json(http.MethodPost, "/api/signup", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": testPassword,
	}, nil)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return authCookie(s.t, rec)
}

// makeStaff promotes an account and returns it.
func (s *testServer) makeStaff(username string, superuser bool) models.User {
	s.t.Helper()
	ctx := context.Background()
	u, err := s.store.GetUserByUsername(ctx, username)
	require.NoError(s.t, err)
	u.IsStaff, u.IsSuperuser = true, superuser
	require.NoError(s.t, s.store.UpdateUser(ctx, u))
	return u
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type fieldErrorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

func (s *testServer) exists(rel string) bool {
	_, err := os.Stat(filepath.Join(s.dir, filepath.FromSlash(rel)))
	return err == nil
}

func TestSignupAndLogin(t *testing.T) {
	srv := newTestServer(t, nil)
	cookie := srv.signup("alice")

	rec := srv.json(http.MethodPost, "/api/signup", map[string]string{"username": "ALICE", "password": testPassword}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.json(http.MethodPost, "/api/signup", map[string]string{"username": "bob", "password": "12345678"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[fieldErrorBody](t, rec)
	assert.Equal(t, "validation failed", body.Error)
	assert.Equal(t, auth.ErrPasswordCommon.Error(), body.Fields["password"])

	rec = srv.json(http.MethodPost, "/api/login", map[string]string{"username": "alice", "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// email works as the login name
	rec = srv.json(http.MethodPost, "/api/login", map[string]string{"username": "alice@example.com", "password": testPassword}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	authCookie(t, rec)

	rec = srv.json(http.MethodGet, "/api/profile", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	u := decode[models.User](t, rec)
	assert.Equal(t, "alice", u.Username)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = srv.json(http.MethodGet, "/api/profile", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.json(http.MethodPost, "/api/logout", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Less(t, cleared[0].MaxAge, 0)
}

func TestUpdateProfile(t *testing.T) {
	srv := newTestServer(t, nil)
	cookie := srv.signup("alice")
	srv.signup("bob")

	cases := map[string]struct {
		body  map[string]any
		field string
	}{
		"short username":  {map[string]any{"username": "al"}, "username"},
		"bad characters":  {map[string]any{"username": "al ice"}, "username"},
		"taken username":  {map[string]any{"username": "BOB"}, "username"},
		"before 1900":     {map[string]any{"birth_date": "1899-12-31"}, "birth_date"},
		"in the future":   {map[string]any{"birth_date": "2999-01-01"}, "birth_date"},
		"not a date":      {map[string]any{"birth_date": "31/12/1990"}, "birth_date"},
		"invalid address": {map[string]any{"email": "nope"}, "email"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := srv.json(http.MethodPatch, "/api/profile", tc.body, cookie)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decode[fieldErrorBody](t, rec).Fields, tc.field)
		})
	}

	rec := srv.json(http.MethodPatch, "/api/profile", map[string]any{
		"username":   "alice.w",
		"birth_date": "1990-04-02",
		"first_name": " Alice ",
	}, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	u := decode[models.User](t, rec)
	assert.Equal(t, "alice.w", u.Username)
	assert.Equal(t, "Alice", u.FirstName)
	require.NotNil(t, u.BirthDate)
	assert.Equal(t, "1990-04-02", *u.BirthDate)
	assert.Equal(t, "alice@example.com", u.Email)
}

func TestProfilePhoto(t *testing.T) {
	srv := newTestServer(t, nil)
	cookie := srv.signup("alice")

	rec := srv.upload("/api/profile/photo", "photo", "me.txt", []byte("plain text, not a picture"), nil, cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.upload("/api/profile/photo", "photo", "me.png", tinyPNG(t, 8, 8), nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	u := decode[models.User](t, rec)
	assert.True(t, strings.HasPrefix(u.Photo, "profile_photos/"))
	assert.True(t, srv.exists(u.Photo))

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/media/"+u.Photo, nil), cookie)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = srv.json(http.MethodDelete, "/api/profile/photo", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, srv.exists(u.Photo))
}

func TestChangePassword(t *testing.T) {
	srv := newTestServer(t, nil)
	cookie := srv.signup("alice")

	rec := srv.json(http.MethodPost, "/api/profile/password", map[string]string{
		"current_password": "wrong",
		"new_password":     "another-secret-9",
		"confirm_password": "different-secret-9",
	}, cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decode[fieldErrorBody](t, rec).Fields
	assert.Equal(t, auth.ErrIncorrectPassword.Error(), fields["current_password"])
	assert.Equal(t, auth.ErrPasswordMismatch.Error(), fields["confirm_password"])

	rec = srv.json(http.MethodPost, "/api/profile/password", map[string]string{
		"current_password": testPassword,
		"new_password":     "another-secret-9",
		"confirm_password": "another-secret-9",
	}, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.json(http.MethodPost, "/api/login", map[string]string{"username": "alice", "password": testPassword}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = srv.json(http.MethodPost, "/api/login", map[string]string{"username": "alice", "password": "another-secret-9"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteAccountRemovesUploads(t *testing.T) {
	srv := newTestServer(t, nil)
	cookie := srv.signup("alice")

	rec := srv.upload("/api/vocals", "audio_file", "memo.wav", writeWAV(t, 1), nil, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	note := decode[models.VocalNote](t, rec)
	require.True(t, srv.exists(note.AudioFile))

	rec = srv.json(http.MethodDelete, "/api/profile", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, srv.exists(note.AudioFile))

	rec = srv.json(http.MethodPost, "/api/login", map[string]string{"username": "alice", "password": testPassword}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMediaIsOwnerOnly(t *testing.T) {
	srv := newTestServer(t, nil)
	alice := srv.signup("alice")
	bob := srv.signup("bob")

	rec := srv.upload("/api/images", "image", "pic.png", tinyPNG(t, 16, 16), nil, alice)
	require.Equal(t, http.StatusCreated, rec.Code)
	img := decode[models.ImageModel](t, rec)

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/media/"+img.Image, nil), alice)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = srv.do(httptest.NewRequest(http.MethodGet, "/media/"+img.Image, nil), bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = srv.do(httptest.NewRequest(http.MethodGet, "/media/"+img.Image, nil), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChat(t *testing.T) {
	srv := newTestServer(t, nil)
	cookie := srv.signup("alice")

	rec := srv.json(http.MethodPost, "/api/chat", map[string]any{}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// no key: still 200, with success false
	rec = srv.json(http.MethodPost, "/api/chat", map[string]any{"prompt": "hello"}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[ai.ChatOutput](t, rec)
	assert.False(t, out.Success)
	assert.NotEmpty(t, out.Error)
}
