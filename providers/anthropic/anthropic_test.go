package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jllopis/fincrew/pkg/llm"
)

func TestChat(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-20250514",
			"content": [{"type": "text", "text": "Low risk"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 3, "output_tokens": 2}
		}`))
	}))
	defer srv.Close()

	p := New(WithBaseURL(srv.URL), WithAPIKey("k"))
	req := llm.ChatRequest{Messages: []llm.Message{
		{Role: llm.RoleSystem, Content: "risk expert"},
		{Role: llm.RoleUser, Content: "assess"},
	}, MaxTokens: 512}
	resp, err := p.Chat(context.Background(), req)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "Low risk" {
		t.Fatalf("unexpected content %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 5 {
		t.Fatalf("unexpected usage %+v", resp.Usage)
	}
	if body["max_tokens"] != float64(512) {
		t.Fatalf("expected max_tokens 512, got %v", body["max_tokens"])
	}
	if _, ok := body["system"]; !ok {
		t.Fatalf("expected system prompt in request")
	}
}
