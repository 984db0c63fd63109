// Package remote implements the serverless execution venue client.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/docquiz-core/internal/core/domain"
	"github.com/custodia-labs/docquiz-core/internal/core/ports/driven"
)

// Ensure FunctionExecutor implements the RemoteExecutor interface
var _ driven.RemoteExecutor = (*FunctionExecutor)(nil)

// DefaultSizeThreshold is the largest file eligible for the remote venue
// when no explicit threshold is configured.
const DefaultSizeThreshold = 5 * 1024 * 1024

// FunctionExecutor invokes a deployed processing function over HTTP. The
// function runs the same extract/chunk/embed pipeline against the shared
// database and sets the document's terminal status itself.
type FunctionExecutor struct {
	functionURL   string
	authToken     string
	enabled       bool
	sizeThreshold int64
	client        *http.Client
}

// FunctionConfig holds configuration for the remote function client
type FunctionConfig struct {
	// FunctionURL is the invocation endpoint of the deployed function
	FunctionURL string
	// AuthToken is sent as a bearer token on invocations (optional)
	AuthToken string
	// Enabled turns the remote venue on; when false every document is
	// processed locally regardless of size
	Enabled bool
	// SizeThreshold is the maximum file size in bytes eligible for remote
	// processing (defaults to DefaultSizeThreshold)
	SizeThreshold int64
	// Timeout bounds a single invocation (defaults to 45s). The
	// orchestrator applies its own tighter deadline on top.
	Timeout time.Duration
}

// NewFunctionExecutor creates a remote function client
func NewFunctionExecutor(cfg FunctionConfig) (*FunctionExecutor, error) {
	if cfg.Enabled && cfg.FunctionURL == "" {
		return nil, fmt.Errorf("function URL is required when remote execution is enabled")
	}
	if cfg.SizeThreshold <= 0 {
		cfg.SizeThreshold = DefaultSizeThreshold
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	return &FunctionExecutor{
		functionURL:   cfg.FunctionURL,
		authToken:     cfg.AuthToken,
		enabled:       cfg.Enabled,
		sizeThreshold: cfg.SizeThreshold,
		client:        &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type invokeRequest struct {
	DocumentSlug string `json:"document_slug"`
	Mode         string `json:"mode"`
}

// Invoke calls the remote function and returns its reported outcome
func (e *FunctionExecutor) Invoke(ctx context.Context, slug string, mode domain.ProcessMode) (*driven.InvokeResult, error) {
	body, err := json.Marshal(invokeRequest{DocumentSlug: slug, Mode: string(mode)})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal invoke request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.functionURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+e.authToken)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote invocation failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote venue returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result driven.InvokeResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse invoke result: %w", err)
	}
	return &result, nil
}

// Enabled reports whether the remote venue feature flag is on
func (e *FunctionExecutor) Enabled() bool { return e.enabled }

// SizeThreshold returns the maximum file size eligible for remote processing
func (e *FunctionExecutor) SizeThreshold() int64 { return e.sizeThreshold }
