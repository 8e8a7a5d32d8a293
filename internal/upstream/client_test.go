package upstream

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestForwardRequestShape(t *testing.T) {
	var gotPath, gotRawURI, gotMethod, gotAuth, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRawURI = r.RequestURI
		gotMethod = r.Method
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk-secret", time.Second)

	t.Run("plain endpoint with body", func(t *testing.T) {
		resp, err := client.Forward(context.Background(), ChatCompletions, "", strings.NewReader(`{"model":"x"}`))
		if err != nil {
			t.Fatalf("forward: %v", err)
		}
		resp.Body.Close()

		if gotPath != "/chat/completions" || gotMethod != http.MethodPost {
			t.Fatalf("unexpected request: %s %s", gotMethod, gotPath)
		}
		if gotAuth != "Bearer sk-secret" {
			t.Fatalf("unexpected auth header: %q", gotAuth)
		}
		if gotContentType != "application/json" {
			t.Fatalf("unexpected content type: %q", gotContentType)
		}
	})

	t.Run("path parameter is escaped", func(t *testing.T) {
		resp, err := client.Forward(context.Background(), GetModel, "gpt-4o/../x", nil)
		if err != nil {
			t.Fatalf("forward: %v", err)
		}
		resp.Body.Close()

		if !strings.Contains(gotRawURI, "%2F") {
			t.Fatalf("path parameter not escaped: %s", gotRawURI)
		}
	})

	t.Run("no content type without body", func(t *testing.T) {
		resp, err := client.Forward(context.Background(), ListModels, "", nil)
		if err != nil {
			t.Fatalf("forward: %v", err)
		}
		resp.Body.Close()

		if gotMethod != http.MethodGet || gotPath != "/models" {
			t.Fatalf("unexpected request: %s %s", gotMethod, gotPath)
		}
		if gotContentType != "" {
			t.Fatalf("unexpected content type on GET: %q", gotContentType)
		}
	})
}

func TestForwardStreamsIncrementally(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: first\n")
		flusher.Flush()
		<-release
		io.WriteString(w, "data: second\n")
	}))
	defer srv.Close()
	defer close(release)

	client := NewClient(srv.URL, "sk-secret", 5*time.Second)
	resp, err := client.Forward(context.Background(), ChatCompletions, "", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	defer resp.Body.Close()

	// The first chunk must be readable before the server has finished the
	// body: the response is a live stream, not a buffered replay.
	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read first chunk: %v", err)
	}
	if line != "data: first\n" {
		t.Fatalf("unexpected first chunk: %q", line)
	}
	if resp.ContentType != "text/event-stream" {
		t.Fatalf("unexpected content type: %q", resp.ContentType)
	}
}

func TestForwardUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad request"}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk-secret", time.Second)
	_, err := client.Forward(context.Background(), Embeddings, "", strings.NewReader("{}"))

	var upErr *Error
	if !errors.As(err, &upErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if upErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", upErr.StatusCode)
	}
	if string(upErr.Body) != `{"error":{"message":"bad request"}}` {
		t.Fatalf("expected original body, got %s", upErr.Body)
	}
}

func TestForwardTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk-secret", 50*time.Millisecond)
	_, err := client.Forward(context.Background(), ListModels, "", nil)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestForwardContextCancellation(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	client := NewClient(srv.URL, "sk-secret", 5*time.Second)
	if _, err := client.Forward(ctx, ListModels, "", nil); err == nil {
		t.Fatal("expected error after context cancellation")
	}
}

func TestIsRestrictedModel(t *testing.T) {
	for _, name := range []string{"gpt-4o", "gpt-4", "gpt-3.5-turbo"} {
		if !IsRestrictedModel(name) {
			t.Fatalf("expected %s to be restricted", name)
		}
	}
	for _, name := range []string{"gpt-4o-mini", "text-embedding-3-small", ""} {
		if IsRestrictedModel(name) {
			t.Fatalf("did not expect %s to be restricted", name)
		}
	}
}
