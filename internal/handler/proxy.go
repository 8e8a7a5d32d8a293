package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/openai-token-gateway/internal/middleware"
	"github.com/openai-token-gateway/internal/service"
	"github.com/openai-token-gateway/internal/upstream"
)

// proxyBodyLimit bounds inbound proxy request bodies. Fine-tuning and batch
// payloads reference uploaded files by ID, so bodies stay small.
const proxyBodyLimit = 4 << 20

// ProxyHandler serves the bearer-authenticated pass-through endpoints. Each
// route hands the raw body to the orchestrator and streams the upstream
// response back chunk by chunk.
type ProxyHandler struct {
	proxy   *service.ProxyService
	limiter *middleware.AuthAttemptLimiter
}

func NewProxyHandler(proxy *service.ProxyService, limiter *middleware.AuthAttemptLimiter) *ProxyHandler {
	return &ProxyHandler{proxy: proxy, limiter: limiter}
}

// Endpoint returns the handler for one upstream endpoint. paramKey names the
// chi URL parameter forwarded as the upstream path parameter, empty for
// endpoints without one.
func (h *ProxyHandler) Endpoint(ep upstream.Endpoint, paramKey string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawToken := middleware.BearerToken(r.Context())

		var payload []byte
		if r.Body != nil {
			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, proxyBodyLimit))
			if err != nil {
				RespondError(w, http.StatusBadRequest, "invalid_request", "Failed to read request body")
				return
			}
			if len(body) > 0 {
				payload = body
			}
		}

		var param string
		if paramKey != "" {
			param = chi.URLParam(r, paramKey)
		}

		start := time.Now()
		resp, err := h.proxy.Forward(r.Context(), rawToken, ep, param, payload)
		middleware.UpstreamDuration.WithLabelValues(ep.Name).Observe(time.Since(start).Seconds())

		attemptKey := middleware.ClientIPKey(r)
		if err != nil {
			h.noteFailure(attemptKey, err)
			service.RespondError(w, err)
			return
		}
		if h.limiter != nil {
			h.limiter.RegisterSuccess(attemptKey)
		}

		defer resp.Body.Close()
		if resp.ContentType != "" {
			w.Header().Set("Content-Type", resp.ContentType)
		}
		w.WriteHeader(resp.StatusCode)
		streamBody(w, resp.Body, ep.Name)
	}
}

func (h *ProxyHandler) noteFailure(attemptKey string, err error) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		return
	}
	switch svcErr.Kind {
	case service.ErrUnauthorized:
		if h.limiter != nil {
			h.limiter.RegisterFailure(attemptKey)
		}
	case service.ErrExhausted:
		middleware.QuotaExhausted.Inc()
	}
}

// streamBody copies the upstream body to the client, flushing after every
// chunk so token-by-token responses arrive incrementally. A mid-stream
// failure terminates the stream; bytes already sent are never rewritten.
func streamBody(w http.ResponseWriter, body io.Reader, endpoint string) {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 32<<10)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				// Client went away; the request context cancels the
				// upstream connection.
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			if err != io.EOF {
				log.Warn().Err(err).Str("endpoint", endpoint).Msg("upstream stream terminated")
			}
			return
		}
	}
}
