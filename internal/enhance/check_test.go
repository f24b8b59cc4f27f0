package enhance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTagsServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckConnection(t *testing.T) {
	srv := newTagsServer(t, `{"models": [{"name": "qwen3:4b"}, {"name": "llama3:latest"}]}`)
	ctx := context.Background()

	if err := CheckConnection(ctx, srv.URL, "qwen3:4b"); err != nil {
		t.Errorf("expected installed model, got %v", err)
	}
	if err := CheckConnection(ctx, srv.URL+"/", "llama3"); err != nil {
		t.Errorf("bare name should match :latest, got %v", err)
	}
	if err := CheckConnection(ctx, srv.URL, "mistral"); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("expected ErrModelNotFound, got %v", err)
	}
}

func TestCheckConnectionServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := CheckConnection(context.Background(), srv.URL, "qwen3:4b")
	if err == nil || errors.Is(err, ErrModelNotFound) {
		t.Errorf("expected server error, got %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), "ollama error 500") {
		t.Errorf("expected status in error, got %v", err)
	}
}

func TestListModels(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Method != http.MethodGet || r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"models": [{"name": "qwen3:4b", "size": 2500000000}, {"name": "llama3:latest"}]}`))
	}))
	defer srv.Close()

	models, err := ListModels(context.Background(), srv.URL+"/")
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if got := strings.Join(models, ","); got != "qwen3:4b,llama3:latest" {
		t.Errorf("models = %s", got)
	}
	if calls != 1 {
		t.Errorf("expected a single request, got %d", calls)
	}
}

func TestCheckConnectionUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if err := CheckConnection(context.Background(), url, "qwen3:4b"); err == nil {
		t.Error("expected error for unreachable server")
	}
}
