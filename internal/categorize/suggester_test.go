package categorize

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fintrack/internal/log"

	glang "google.golang.org/api/generativelanguage/v1beta"
	goption "google.golang.org/api/option"
)

func newGeminiTestServer(t *testing.T, status int, body string, gotPrompt *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1beta/models/gemini-2.5-flash:generateContent" {
			http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusNotFound)
			return
		}
		var req glang.GenerateContentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if gotPrompt != nil && len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
			*gotPrompt = req.Contents[0].Parts[0].Text
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestSuggester(t *testing.T, srv *httptest.Server) *GeminiSuggester {
	t.Helper()
	s, err := NewGeminiSuggester(context.Background(), "test-key", "", log.Discard(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewGeminiSuggester: %v", err)
	}
	return s
}

func TestGeminiSuggester_Suggest(t *testing.T) {
	var prompt string
	srv := newGeminiTestServer(t, http.StatusOK,
		`{"candidates":[{"content":{"role":"model","parts":[{"text":" Food\n"}]}}]}`, &prompt)
	s := newTestSuggester(t, srv)

	got, err := s.Suggest(context.Background(), "Pizza at Luigi's")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if got != "Food" {
		t.Errorf("Suggest = %q, want Food", got)
	}
	if !strings.Contains(prompt, "Pizza at Luigi's") || !strings.Contains(prompt, "Groceries") {
		t.Errorf("prompt misses description or categories: %q", prompt)
	}
	if strings.Contains(prompt, "Salary") {
		t.Errorf("prompt must not offer the income category: %q", prompt)
	}
}

func TestGeminiSuggester_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"no candidates", http.StatusOK, `{"candidates":[]}`, ErrEmptyAnswer},
		{"blank text", http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`, ErrEmptyAnswer},
		{"server error", http.StatusInternalServerError, `{"error":{"code":500,"message":"boom"}}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSuggester(t, newGeminiTestServer(t, tt.status, tt.body, nil))
			_, err := s.Suggest(context.Background(), "Something long")
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewGeminiSuggester_MissingKey(t *testing.T) {
	if _, err := NewGeminiSuggester(context.Background(), " ", "", nil); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
}
