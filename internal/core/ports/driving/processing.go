package driving

import (
	"context"

	"github.com/custodia-labs/docquiz-core/internal/core/domain"
)

// ProcessRequest asks for a document to be processed
type ProcessRequest struct {
	DocumentSlug string             `json:"document_slug"`
	Mode         domain.ProcessMode `json:"mode"`
}

// ProcessResponse is returned immediately after venue selection and
// initiation; completion is observed later via GetProcessingStatus.
type ProcessResponse struct {
	Accepted bool                   `json:"accepted"`
	Status   domain.DocumentStatus  `json:"status"`
	Venue    domain.ProcessingVenue `json:"venue"`
}

// ProcessingStatus reports the current pipeline state for a document
type ProcessingStatus struct {
	Status       domain.DocumentStatus        `json:"status"`
	ErrorMessage string                       `json:"error_message,omitempty"`
	Logs         []*domain.ProcessingLogEntry `json:"logs"`
}

// ProcessingService drives the per-document pipeline
type ProcessingService interface {
	// ProcessDocument validates the state transition, selects the execution
	// venue, initiates the run asynchronously, and returns immediately with
	// status processing. The caller must have verified ownership beforehand.
	ProcessDocument(ctx context.Context, req ProcessRequest) (*ProcessResponse, error)

	// GetProcessingStatus returns the document's status, error message, and
	// processing log entries
	GetProcessingStatus(ctx context.Context, slug string) (*ProcessingStatus, error)

	// Run executes the full extract/chunk/embed/persist pipeline for a
	// document, including the remote venue attempt and local fallback.
	// Invoked by the background worker, not by HTTP callers.
	Run(ctx context.Context, slug string, mode domain.ProcessMode) error
}
