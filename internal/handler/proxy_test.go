package handler

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type flushCountingWriter struct {
	*httptest.ResponseRecorder
	flushes int
}

func (w *flushCountingWriter) Flush() {
	w.flushes++
}

// chunkedReader yields one chunk per Read call, then the final error.
type chunkedReader struct {
	chunks []string
	final  error
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.final != nil {
			return 0, r.final
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	return n, nil
}

func TestStreamBody(t *testing.T) {
	t.Run("flushes after every chunk", func(t *testing.T) {
		w := &flushCountingWriter{ResponseRecorder: httptest.NewRecorder()}
		body := &chunkedReader{chunks: []string{"data: a\n", "data: b\n", "data: c\n"}}

		streamBody(w, body, "chat.completions")

		if got := w.Body.String(); got != "data: a\ndata: b\ndata: c\n" {
			t.Fatalf("unexpected body: %q", got)
		}
		if w.flushes != 3 {
			t.Fatalf("expected one flush per chunk, got %d", w.flushes)
		}
	})

	t.Run("mid-stream failure keeps delivered bytes", func(t *testing.T) {
		w := &flushCountingWriter{ResponseRecorder: httptest.NewRecorder()}
		body := &chunkedReader{
			chunks: []string{"data: partial\n"},
			final:  errors.New("connection reset"),
		}

		streamBody(w, body, "chat.completions")

		if got := w.Body.String(); !strings.HasPrefix(got, "data: partial\n") {
			t.Fatalf("delivered bytes must survive a mid-stream failure: %q", got)
		}
	})

	t.Run("works without a flusher", func(t *testing.T) {
		w := &plainWriter{}
		body := &chunkedReader{chunks: []string{"hello"}}

		streamBody(w, body, "models.list")

		if w.buf.String() != "hello" {
			t.Fatalf("unexpected body: %q", w.buf.String())
		}
	})
}

// plainWriter implements http.ResponseWriter without http.Flusher.
type plainWriter struct {
	buf strings.Builder
}

func (w *plainWriter) Header() http.Header         { return http.Header{} }
func (w *plainWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }
func (w *plainWriter) WriteHeader(int)             {}
