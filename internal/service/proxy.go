package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/openai-token-gateway/internal/model"
	"github.com/openai-token-gateway/internal/upstream"
)

// ProxyService composes the token authority, the upstream gateway and the
// usage ledger for one inbound call: authenticate, capability-check, forward,
// consume, record, then hand the upstream stream back to the caller.
type ProxyService struct {
	tokens  *TokenService
	ledger  *UsageLedger
	gateway *upstream.Client
}

// NewProxyService creates a new request orchestrator.
func NewProxyService(tokens *TokenService, ledger *UsageLedger, gateway *upstream.Client) *ProxyService {
	return &ProxyService{tokens: tokens, ledger: ledger, gateway: gateway}
}

// Forward runs the full per-call sequence. Authentication and capability
// failures return before any quota consumption or upstream traffic. Once the
// request has been dispatched upstream, one use is consumed regardless of the
// upstream outcome, and the call is recorded in the ledger. The returned
// response body streams the upstream bytes as they arrive; the caller must
// close it.
func (s *ProxyService) Forward(ctx context.Context, rawToken string, ep upstream.Endpoint, param string, payload []byte) (*upstream.Response, error) {
	auth, err := s.tokens.Authenticate(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	if err := s.checkCapabilities(auth, ep, payload); err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	resp, upErr := s.gateway.Forward(ctx, ep, param, body)

	// The dispatch decision has been made: consume one use whatever the
	// upstream outcome, and do not let a client disconnect cancel the
	// decrement (disconnects are not refunded).
	if _, cErr := s.tokens.Consume(context.WithoutCancel(ctx), auth.Token.Value, 1); cErr != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, cErr
	}

	s.ledger.Record(ctx, auth, ep.Name, string(payload), responseSummary(resp, upErr))

	if upErr != nil {
		return nil, mapUpstreamError(upErr)
	}
	return resp, nil
}

// checkCapabilities enforces per-resource gates before any upstream call:
// restricted chat models require the restricted-models flag, image generation
// the image flag. A gate failure consumes no quota.
func (s *ProxyService) checkCapabilities(auth *AuthorizedToken, ep upstream.Endpoint, payload []byte) error {
	switch ep.Name {
	case upstream.ChatCompletions.Name:
		if upstream.IsRestrictedModel(peekModel(payload)) && !auth.HasCapability(model.CapabilityRestrictedModels) {
			return NewForbidden("model_restricted", "This model is not available for use at this time")
		}
	case upstream.CreateImage.Name:
		if !auth.HasCapability(model.CapabilityImageGeneration) {
			return NewForbidden("image_generation_forbidden", "Image generation is not available for this user")
		}
	}
	return nil
}

// peekModel extracts the model selector from a request payload without
// otherwise parsing it; the body is forwarded as-is.
func peekModel(payload []byte) string {
	var probe struct {
		Model string `json:"model"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return ""
	}
	return probe.Model
}

func responseSummary(resp *upstream.Response, upErr error) string {
	if upErr == nil {
		return fmt.Sprintf(`{"status":%d,"content_type":%q}`, resp.StatusCode, resp.ContentType)
	}
	var ue *upstream.Error
	if errors.As(upErr, &ue) {
		return fmt.Sprintf(`{"status":%d,"body":%q}`, ue.StatusCode, ue.Body)
	}
	return fmt.Sprintf(`{"error":%q}`, upErr.Error())
}

func mapUpstreamError(err error) error {
	var ue *upstream.Error
	if errors.As(err, &ue) {
		return NewUpstream(ue.StatusCode, ue.Body)
	}
	if errors.Is(err, upstream.ErrTimeout) {
		return NewUpstreamTimeout("Upstream call timed out")
	}
	return NewInternal("upstream_unreachable", "Failed to reach upstream")
}
