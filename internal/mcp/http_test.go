package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storyia/internal/auth"
	"storyia/internal/config"
	"storyia/internal/middleware"
	"storyia/internal/models"
	"storyia/internal/store/sqlstore"
)

type rpcResponse struct {
	Result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	} `json:"result"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// newHTTPServer mounts the MCP endpoint behind cookie auth the way serve does.
func newHTTPServer(t *testing.T) (*httptest.Server, *sqlstore.SQLStore, *auth.Signer) {
	t.Helper()
	store, err := sqlstore.New("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	signer := auth.NewSigner(config.Default().Cookie)
	mux := http.NewServeMux()
	mux.Handle("/mcp", NewMCPServer(store).Handler())
	ts := httptest.NewServer(middleware.Auth(signer)(mux))
	t.Cleanup(ts.Close)
	return ts, store, signer
}

func callTool(t *testing.T, url string, cookie *http.Cookie, tool string, args map[string]any) (int, rpcResponse) {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params":  map[string]any{"name": tool, "arguments": args},
	})
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url+"/mcp", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}

	var out rpcResponse
	if resp.StatusCode == http.StatusOK {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("Response is not JSON-RPC: %v: %s", err, raw)
		}
	}
	return resp.StatusCode, out
}

func toolText(t *testing.T, out rpcResponse) string {
	t.Helper()
	if out.Error != nil {
		t.Fatalf("Unexpected JSON-RPC error: %s", out.Error.Message)
	}
	if len(out.Result.Content) == 0 {
		t.Fatalf("Expected tool content")
	}
	return out.Result.Content[0].Text
}

func TestMCPOverHTTPUsesCookieUser(t *testing.T) {
	ts, store, signer := newHTTPServer(t)
	ctx := context.Background()

	alice, err := store.CreateUser(ctx, &models.User{Username: "alice", Password: "hash"})
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	bob, err := store.CreateUser(ctx, &models.User{Username: "bob", Password: "hash"})
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	entry := models.JournalEntry{UserID: alice, Title: "Picnic", Content: "Sun and bread", EntryDate: "2026-05-01", Mood: "happy"}
	if _, err := store.CreateEntry(ctx, &entry); err != nil {
		t.Fatalf("Failed to create entry: %v", err)
	}

	may := map[string]any{"start_date": "2026-05-01T00:00:00Z", "end_date": "2026-05-31T23:59:59Z"}
	cookieFor := func(id int64) *http.Cookie {
		return &http.Cookie{Name: auth.CookieName, Value: signer.Sign(id)}
	}

	status, out := callTool(t, ts.URL, cookieFor(alice), "get_journal_entries", may)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	got := toolText(t, out)
	if !strings.Contains(got, "Found 1 journal entries") || !strings.Contains(got, "Picnic") {
		t.Errorf("Unexpected result for alice: %s", got)
	}

	status, out = callTool(t, ts.URL, cookieFor(bob), "get_journal_entries", may)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if got := toolText(t, out); !strings.Contains(got, "No journal entries found") {
		t.Errorf("Bob should not see alice's entries: %s", got)
	}

	status, out = callTool(t, ts.URL, cookieFor(bob), "get_vocal_notes", may)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if got := toolText(t, out); !strings.Contains(got, "No vocal notes found") {
		t.Errorf("Unexpected vocal result: %s", got)
	}
}

func TestMCPOverHTTPRequiresCookie(t *testing.T) {
	ts, _, signer := newHTTPServer(t)
	args := map[string]any{"start_date": "2026-05-01T00:00:00Z", "end_date": "2026-05-31T23:59:59Z"}

	for name, cookie := range map[string]*http.Cookie{
		"missing":  nil,
		"tampered": {Name: auth.CookieName, Value: signer.Sign(1) + "x"},
	} {
		status, _ := callTool(t, ts.URL, cookie, "get_journal_entries", args)
		if status != http.StatusUnauthorized {
			t.Errorf("%s cookie: expected 401, got %d", name, status)
		}
	}
}
