package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jllopis/fincrew/pkg/llm"
)

func TestChatAgainstCompatibleServer(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "deepseek-ai/deepseek-r1",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "Recommend accumulating"}}],
			"usage": {"prompt_tokens": 4, "completion_tokens": 2, "total_tokens": 6}
		}`))
	}))
	defer srv.Close()

	p := New(WithBaseURL(srv.URL), WithAPIKey("test-key"))
	req := llm.UserPrompt("advise")
	req.Temperature = 0.5
	req.TopP = 1
	req.MaxTokens = 1024
	resp, err := p.Chat(context.Background(), req)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "Recommend accumulating" {
		t.Fatalf("unexpected content %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 6 {
		t.Fatalf("unexpected usage %+v", resp.Usage)
	}
	if body["model"] != DefaultModel {
		t.Fatalf("expected default model, got %v", body["model"])
	}
	if body["max_tokens"] != float64(1024) {
		t.Fatalf("expected max_tokens 1024, got %v", body["max_tokens"])
	}
	if stream, ok := body["stream"]; ok && stream == true {
		t.Fatalf("request must not stream")
	}
}

func TestChatServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := New(WithBaseURL(srv.URL), WithAPIKey("bad"))
	if _, err := p.Chat(context.Background(), llm.UserPrompt("x")); err == nil {
		t.Fatalf("expected error")
	}
}
