package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/akshaymalik1995/llm-agent/config"
	"github.com/akshaymalik1995/llm-agent/models"
)

func testLLMConfig(baseURL string) config.LLMConfig {
	return config.LLMConfig{
		APIKey:             "sk-test",
		Model:              "gpt-4o-mini",
		BaseURL:            baseURL,
		Temperature:        0.7,
		MaxContextTokens:   25000,
		ContextTokenBuffer: 2000,
		Timeout:            5 * time.Second,
	}
}

func TestCompleteSendsChatRequest(t *testing.T) {
	var captured map[string]interface{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header: %s", got)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "it is noon"}}]}`))
	}))
	defer ts.Close()

	c := NewOpenAIClient(testLLMConfig(ts.URL))
	out, err := c.Complete(context.Background(), "What time is it?", Options{
		SystemPrompt: "You are concise.",
		ForceJSON:    true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "it is noon" {
		t.Fatalf("unexpected completion: %q", out)
	}

	msgs, _ := captured["messages"].([]interface{})
	if len(msgs) != 2 {
		t.Fatalf("expected system + user messages, got %v", captured["messages"])
	}
	first, _ := msgs[0].(map[string]interface{})
	if first["role"] != "system" || first["content"] != "You are concise." {
		t.Fatalf("system prompt not sent: %v", first)
	}
	if rf, ok := captured["response_format"].(map[string]interface{}); !ok || rf["type"] != "json_object" {
		t.Fatalf("force_json not sent: %v", captured["response_format"])
	}
	if captured["model"] != "gpt-4o-mini" {
		t.Fatalf("model not sent: %v", captured["model"])
	}
}

func TestCompleteRateLimited(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	c := NewOpenAIClient(testLLMConfig(ts.URL))
	_, err := c.Complete(context.Background(), "hi", Options{})
	if err == nil {
		t.Fatalf("expected error")
	}
	if models.KindOf(err) != models.KindLLMRateLimited {
		t.Fatalf("expected llm_rate_limited, got %s", models.KindOf(err))
	}
}

func TestCompleteInvalidResponse(t *testing.T) {
	cases := []string{
		`not json`,
		`{"choices": []}`,
	}
	for _, body := range cases {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		c := NewOpenAIClient(testLLMConfig(ts.URL))
		_, err := c.Complete(context.Background(), "hi", Options{})
		ts.Close()
		if err == nil {
			t.Fatalf("expected error for %q", body)
		}
		if models.KindOf(err) != models.KindLLMInvalidResponse {
			t.Fatalf("expected llm_invalid_response for %q, got %s", body, models.KindOf(err))
		}
	}
}

func TestCompleteNetworkError(t *testing.T) {
	c := NewOpenAIClient(testLLMConfig("http://127.0.0.1:1"))
	_, err := c.Complete(context.Background(), "hi", Options{})
	if err == nil {
		t.Fatalf("expected error")
	}
	if models.KindOf(err) != models.KindLLMNetwork {
		t.Fatalf("expected llm_network, got %s", models.KindOf(err))
	}
}

func TestCompleteCancelled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Second)
	}))
	defer ts.Close()

	c := NewOpenAIClient(testLLMConfig(ts.URL))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Complete(ctx, "hi", Options{})
	if err == nil {
		t.Fatalf("expected error")
	}
	if models.KindOf(err) != models.KindLLMCancelled {
		t.Fatalf("expected llm_cancelled, got %s", models.KindOf(err))
	}
}
