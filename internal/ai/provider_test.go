package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGeminiGenerateParsesCandidates(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Contents) != 1 || req.Contents[0].Parts[0].Text != "hello" {
			t.Errorf("unexpected request %+v", req)
		}
		if req.SystemInstruction == nil {
			t.Errorf("expected system instruction")
		}
		_ = json.NewEncoder(w).Encode(geminiResponse{
			Candidates: []struct {
				Content geminiContent `json:"content"`
			}{
				{Content: geminiContent{Parts: []geminiPart{{Text: "hi there"}}}},
			},
		})
	}))
	defer server.Close()

	provider := NewGeminiProvider("test-key", "test-model")
	provider.baseURL = server.URL

	text, err := provider.Generate(context.Background(), "hello", "be nice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "hi there" {
		t.Fatalf("expected parsed candidate, got %q", text)
	}
	if !strings.Contains(gotPath, "test-model") {
		t.Fatalf("expected model in path, got %q", gotPath)
	}
}

func TestGeminiGenerateSurfacesAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	provider := NewGeminiProvider("test-key", "")
	provider.baseURL = server.URL

	if _, err := provider.Generate(context.Background(), "hello", ""); err == nil {
		t.Fatalf("expected error on non-200 response")
	}
}

func TestGeminiRequiresKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	provider := NewGeminiProvider("", "")
	if provider.Configured() {
		t.Fatalf("expected unconfigured provider without key")
	}
	if _, err := provider.Generate(context.Background(), "hello", ""); err == nil {
		t.Fatalf("expected error without key")
	}
}
