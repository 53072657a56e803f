package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func completionBody(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(b)
}

func TestOpenAIClient_GenerateJSON_SendsSchemaAndHeaders(t *testing.T) {
	var got map[string]any
	var title, auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		title = r.Header.Get("X-Title")
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionBody(`{"reply":"hola","tone":"calm"}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(Options{BaseURL: srv.URL, APIKey: "k", Model: "test-model", AppName: "Unsent"}, nil)
	out, err := c.GenerateJSON(context.Background(), "prompt", JSONFormat{
		Name:   "reply",
		Schema: map[string]any{"type": "object"},
	})
	if err != nil {
		t.Fatalf("generate json: %v", err)
	}
	if out != `{"reply":"hola","tone":"calm"}` {
		t.Fatalf("unexpected output %q", out)
	}
	if title != "Unsent" || auth != "Bearer k" {
		t.Fatalf("unexpected headers title=%q auth=%q", title, auth)
	}
	if got["model"] != "test-model" {
		t.Fatalf("expected model in request, got %v", got["model"])
	}
	rf, _ := got["response_format"].(map[string]any)
	if rf["type"] != "json_schema" {
		t.Fatalf("expected json_schema response format, got %v", got["response_format"])
	}
}

func TestOpenAIClient_Generate_Errors(t *testing.T) {
	t.Run("status de error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":{"message":"bad","type":"invalid_request_error"}}`)
		}))
		defer srv.Close()

		c := NewOpenAIClient(Options{BaseURL: srv.URL, APIKey: "k", Model: "m"}, nil)
		if _, err := c.Generate(context.Background(), "hola"); err == nil || !strings.Contains(err.Error(), "status=400") {
			t.Fatalf("expected status error, got %v", err)
		}
	})

	t.Run("respuesta vacia", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, completionBody("   "))
		}))
		defer srv.Close()

		c := NewOpenAIClient(Options{BaseURL: srv.URL, APIKey: "k", Model: "m"}, nil)
		if _, err := c.Generate(context.Background(), "hola"); !errors.Is(err, ErrEmptyResponse) {
			t.Fatalf("expected ErrEmptyResponse, got %v", err)
		}
	})
}

type schemaSample struct {
	Items []string `json:"items" jsonschema:"required"`
	Inner struct {
		Flag bool `json:"flag"`
	} `json:"inner"`
}

func TestGenerateSchema_Strict(t *testing.T) {
	s := GenerateSchema[schemaSample]()
	if s["additionalProperties"] != false {
		t.Fatalf("expected additionalProperties=false, got %v", s["additionalProperties"])
	}
	req, _ := s["required"].([]string)
	if len(req) != 2 {
		t.Fatalf("expected every property required, got %v", s["required"])
	}
	props := s["properties"].(map[string]any)
	inner := props["inner"].(map[string]any)
	if inner["additionalProperties"] != false {
		t.Fatalf("expected nested object to be strict")
	}
	if _, ok := s["$schema"]; ok {
		t.Fatalf("expected $schema to be removed")
	}
}
