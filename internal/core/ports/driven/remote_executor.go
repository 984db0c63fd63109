package driven

import (
	"context"

	"github.com/custodia-labs/docquiz-core/internal/core/domain"
)

// InvokeResult is the remote venue's response to a processing invocation
type InvokeResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// RemoteExecutor invokes the remote execution venue (a serverless function
// with a hard wall-clock limit). Implementations carry a caller-side timeout
// strictly shorter than the venue's own limit; on timeout or failure the
// orchestrator falls back to the local venue.
type RemoteExecutor interface {
	// Invoke runs the remote pipeline for a document. On success the remote
	// venue is expected to set the document's terminal status itself.
	Invoke(ctx context.Context, slug string, mode domain.ProcessMode) (*InvokeResult, error)

	// Enabled reports whether the remote venue feature flag is on
	Enabled() bool

	// SizeThreshold returns the maximum file size in bytes eligible for
	// remote processing
	SizeThreshold() int64
}
