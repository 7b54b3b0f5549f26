package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-passgate/passgate/internal/client"
	"github.com/go-passgate/passgate/internal/config"
)

// HTTPAPIAuthProvider delegates credential verification to an external
// HTTP API. Transient failures are retried by the injected client.
type HTTPAPIAuthProvider struct {
	config *config.Config
	client client.Doer
}

// NewHTTPAPIAuthProvider creates a new HTTP API authentication provider
func NewHTTPAPIAuthProvider(cfg *config.Config, c client.Doer) *HTTPAPIAuthProvider {
	return &HTTPAPIAuthProvider{
		config: cfg,
		client: c,
	}
}

// APIAuthRequest is the payload posted to the verification endpoint
type APIAuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// APIAuthResponse is the verification endpoint's reply. UserID is
// mandatory on success; it becomes the principal's external id.
type APIAuthResponse struct {
	Success  bool   `json:"success"`
	UserID   string `json:"user_id,omitempty"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Authenticate posts the credential pair to the remote verification API
func (p *HTTPAPIAuthProvider) Authenticate(
	ctx context.Context,
	username, password string,
) (*Result, error) {
	payload, err := json.Marshal(APIAuthRequest{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, p.config.HTTPAPIURL, bytes.NewReader(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHTTPAPIConnection, err)
	}
	req.Header.Set("Content-Type", "application/json")

	// Shared-secret headers are attached by the client wrapper.
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHTTPAPIConnection, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response", ErrHTTPAPIInvalidResp)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errorFromFailureBody(resp.StatusCode, body)
	}

	var reply APIAuthResponse
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHTTPAPIInvalidResp, err)
	}

	if !reply.Success {
		return nil, ErrHTTPAPIAuthFailed
	}

	if reply.UserID == "" {
		return nil, fmt.Errorf(
			"%w: external API returned success=true but missing user_id",
			ErrHTTPAPIInvalidResp,
		)
	}

	return &Result{
		Username:   username,
		ExternalID: reply.UserID,
		Email:      reply.Email,
		FullName:   reply.FullName,
		Success:    true,
	}, nil
}

// errorFromFailureBody turns a non-2xx reply into a typed error. A JSON
// body with a message means the API rejected the credentials; anything
// else is treated as a malformed response, with the body truncated so a
// misconfigured endpoint cannot flood the log.
func errorFromFailureBody(status int, body []byte) error {
	var reply APIAuthResponse
	if err := json.Unmarshal(body, &reply); err == nil && reply.Message != "" {
		return fmt.Errorf("%w: HTTP %d - %s", ErrHTTPAPIAuthFailed, status, reply.Message)
	}

	preview := string(body)
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}
	return fmt.Errorf("%w: HTTP %d - %s", ErrHTTPAPIInvalidResp, status, preview)
}

// Name returns provider name for logging
func (p *HTTPAPIAuthProvider) Name() string {
	return "http_api"
}
