package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClassifyText(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"model": "llama3",
			"message": map[string]any{
				"role":    "assistant",
				"content": `{"emotions":[{"label":"anger","score":0.8},{"label":"neutral","score":0.2}]}`,
			},
			"done": true,
		})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL+"/api/chat", time.Second)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	scores, err := c.ClassifyText(context.Background(), "llama3", "classify", "I am furious")
	if err != nil {
		t.Fatalf("ClassifyText failed: %v", err)
	}
	if len(scores) != 2 || scores[0].Emotion != "anger" || scores[0].Confidence != 0.8 {
		t.Errorf("Unexpected scores %+v", scores)
	}
	if got["model"] != "llama3" {
		t.Errorf("Expected model llama3 in request, got %v", got["model"])
	}
}

func TestClassifyTextServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, time.Second)
	if _, err := c.ClassifyText(context.Background(), "missing", "p", "text"); err == nil {
		t.Error("Expected error from failing server")
	}
}

func TestNewClientInvalidURL(t *testing.T) {
	if _, err := NewClient("not a url", 0); err == nil {
		t.Error("Expected error for invalid URL")
	}
}
