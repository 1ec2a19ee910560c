package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCompleteParsesFirstChoice(t *testing.T) {
	var gotAuth string
	var gotBody struct {
		Model    string    `json:"model"`
		Messages []Message `json:"messages"`
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"  hello there  "}}]}`))
	}))
	defer ts.Close()

	client := NewOpenAIClient(ClientConfig{BaseURL: ts.URL, APIKey: "secret", Model: "test-model"})
	reply, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if reply != "hello there" {
		t.Fatalf("reply = %q", reply)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("authorization header = %q", gotAuth)
	}
	if gotBody.Model != "test-model" || len(gotBody.Messages) != 1 {
		t.Fatalf("request body = %+v", gotBody)
	}
}

func TestCompleteErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer ts.Close()

	client := NewOpenAIClient(ClientConfig{BaseURL: ts.URL, APIKey: "secret", Model: "test-model"})
	_, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("error = %v, want status 429 mention", err)
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer ts.Close()

	client := NewOpenAIClient(ClientConfig{BaseURL: ts.URL, APIKey: "secret", Model: "test-model"})
	_, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestCompleteHonorsTimeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer ts.Close()
	defer close(release)

	client := NewOpenAIClient(ClientConfig{BaseURL: ts.URL, APIKey: "secret", Model: "test-model", Timeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("timeout took %s", elapsed)
	}
}
