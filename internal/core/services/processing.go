package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/docquiz-core/internal/core/domain"
	"github.com/custodia-labs/docquiz-core/internal/core/ports/driven"
	"github.com/custodia-labs/docquiz-core/internal/core/ports/driving"
)

// Ensure ProcessingOrchestrator implements ProcessingService
var _ driving.ProcessingService = (*ProcessingOrchestrator)(nil)

const (
	// processLockPrefix namespaces per-document processing locks
	processLockPrefix = "process:"

	// processLockTTL bounds how long a crashed run can hold its lock
	processLockTTL = 30 * time.Minute

	// embedBatchSize bounds texts per embedding provider call
	embedBatchSize = 64
)

// ProcessingOrchestrator drives the per-document pipeline:
// extract -> chunk -> embed -> persist. It selects the execution venue
// (remote function vs local worker), falls back from remote to local on any
// non-success outcome, and emits status plus log entries along the way.
type ProcessingOrchestrator struct {
	documentStore driven.DocumentStore
	chunkStore    driven.ChunkStore
	logStore      driven.ProcessingLogStore
	fileStore     driven.FileStore
	extractor     driven.TextExtractor
	splitter      driven.ChunkSplitter
	embedder      driven.EmbeddingService
	remote        driven.RemoteExecutor
	lock          driven.DistributedLock
	taskQueue     driven.TaskQueue
	logger        *slog.Logger

	// remoteTimeout is the client-side limit on the remote venue call,
	// strictly shorter than the venue's own wall-clock limit
	remoteTimeout time.Duration
}

// ProcessingConfig holds dependencies for ProcessingOrchestrator
type ProcessingConfig struct {
	DocumentStore driven.DocumentStore
	ChunkStore    driven.ChunkStore
	LogStore      driven.ProcessingLogStore
	FileStore     driven.FileStore
	Extractor     driven.TextExtractor
	Splitter      driven.ChunkSplitter
	Embedder      driven.EmbeddingService
	Remote        driven.RemoteExecutor
	Lock          driven.DistributedLock
	TaskQueue     driven.TaskQueue
	Logger        *slog.Logger
	RemoteTimeout time.Duration
}

// NewProcessingOrchestrator creates a new processing orchestrator
func NewProcessingOrchestrator(cfg ProcessingConfig) *ProcessingOrchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	remoteTimeout := cfg.RemoteTimeout
	if remoteTimeout <= 0 {
		remoteTimeout = 40 * time.Second
	}

	return &ProcessingOrchestrator{
		documentStore: cfg.DocumentStore,
		chunkStore:    cfg.ChunkStore,
		logStore:      cfg.LogStore,
		fileStore:     cfg.FileStore,
		extractor:     cfg.Extractor,
		splitter:      cfg.Splitter,
		embedder:      cfg.Embedder,
		remote:        cfg.Remote,
		lock:          cfg.Lock,
		taskQueue:     cfg.TaskQueue,
		logger:        logger,
		remoteTimeout: remoteTimeout,
	}
}

// ProcessDocument validates the state transition, marks the document
// processing, and enqueues the pipeline run. It returns immediately;
// completion is observed via GetProcessingStatus.
func (o *ProcessingOrchestrator) ProcessDocument(ctx context.Context, req driving.ProcessRequest) (*driving.ProcessResponse, error) {
	if !req.Mode.Valid() {
		return nil, fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidInput, req.Mode)
	}

	doc, err := o.documentStore.GetBySlug(ctx, req.DocumentSlug)
	if err != nil {
		return nil, err
	}

	if !doc.CanStartProcessing(req.Mode) {
		if doc.Status == domain.DocumentStatusProcessing {
			return nil, domain.ErrProcessingInProgress
		}
		return nil, fmt.Errorf("%w: document is %s", domain.ErrConflict, doc.Status)
	}

	// Mark processing before initiating; this also clears any prior error
	if err := o.documentStore.UpdateStatus(ctx, doc.Slug, domain.DocumentStatusProcessing, ""); err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	if err := o.taskQueue.Enqueue(ctx, domain.NewProcessDocumentTask(doc.Slug, req.Mode)); err != nil {
		// Roll the status back so the document is not stuck in processing
		_ = o.documentStore.UpdateStatus(ctx, doc.Slug, doc.Status, doc.ErrorMessage)
		return nil, fmt.Errorf("failed to enqueue processing: %w", err)
	}

	o.logger.Info("processing initiated",
		"document_slug", doc.Slug,
		"mode", req.Mode,
		"venue", o.selectVenue(doc),
	)

	return &driving.ProcessResponse{
		Accepted: true,
		Status:   domain.DocumentStatusProcessing,
		Venue:    o.selectVenue(doc),
	}, nil
}

// GetProcessingStatus returns the document's status and processing logs
func (o *ProcessingOrchestrator) GetProcessingStatus(ctx context.Context, slug string) (*driving.ProcessingStatus, error) {
	doc, err := o.documentStore.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	logs, err := o.logStore.ListBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to list processing logs: %w", err)
	}

	return &driving.ProcessingStatus{
		Status:       doc.Status,
		ErrorMessage: doc.ErrorMessage,
		Logs:         logs,
	}, nil
}

// selectVenue decides where the pipeline runs for a document. Remote is
// preferred when the feature flag is on and the file is small enough to
// finish within the remote venue's wall-clock limit.
func (o *ProcessingOrchestrator) selectVenue(doc *domain.Document) domain.ProcessingVenue {
	if o.remote != nil && o.remote.Enabled() && doc.FileSizeBytes <= o.remote.SizeThreshold() {
		return domain.VenueRemote
	}
	return domain.VenueLocal
}

// Run executes the full pipeline for a document. It is invoked by the
// background worker after ProcessDocument has enqueued the task.
func (o *ProcessingOrchestrator) Run(ctx context.Context, slug string, mode domain.ProcessMode) error {
	acquired, err := o.lock.Acquire(ctx, processLockPrefix+slug, processLockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire processing lock: %w", err)
	}
	if !acquired {
		return domain.ErrProcessingInProgress
	}
	defer func() {
		_ = o.lock.Release(context.WithoutCancel(ctx), processLockPrefix+slug)
	}()

	doc, err := o.documentStore.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}

	if o.selectVenue(doc) == domain.VenueRemote {
		if o.tryRemote(ctx, doc, mode) {
			// The remote venue sets the terminal status itself
			return nil
		}
		// Fallback to local is a normal operational mode, not an error.
		// Clear any error the failed remote attempt may have recorded.
		if err := o.documentStore.UpdateStatus(ctx, slug, domain.DocumentStatusProcessing, ""); err != nil {
			return fmt.Errorf("failed to reset status for fallback: %w", err)
		}
		doc, err = o.documentStore.GetBySlug(ctx, slug)
		if err != nil {
			return err
		}
	}

	return o.runLocal(ctx, doc, mode)
}

// tryRemote invokes the remote venue with a client-side timeout and reports
// whether the remote run succeeded. Any non-success outcome (timeout,
// network failure, explicit failure response) selects the local fallback.
func (o *ProcessingOrchestrator) tryRemote(ctx context.Context, doc *domain.Document, mode domain.ProcessMode) bool {
	remoteCtx, cancel := context.WithTimeout(ctx, o.remoteTimeout)
	defer cancel()

	result, err := o.remote.Invoke(remoteCtx, doc.Slug, mode)
	if err != nil {
		o.logger.Info("remote venue unavailable, falling back to local",
			"document_slug", doc.Slug,
			"error", err,
		)
		return false
	}
	if !result.Success {
		o.logger.Info("remote venue reported failure, falling back to local",
			"document_slug", doc.Slug,
			"remote_error", result.Error,
		)
		return false
	}
	return true
}

// runLocal executes extract -> chunk -> embed -> persist in process.
// Errors are caught per document: any stage failure terminates the run as
// failed and no partial chunk set is exposed as complete.
func (o *ProcessingOrchestrator) runLocal(ctx context.Context, doc *domain.Document, mode domain.ProcessMode) error {
	startTime := time.Now()

	if mode == domain.ProcessModeRetrain {
		if err := o.replaceChunks(ctx, doc); err != nil {
			return o.failRun(ctx, doc.Slug, domain.StagePersist, err)
		}
	}

	// Extract
	o.appendLog(ctx, domain.NewLogEntry(doc.Slug, domain.StageExtract, domain.LevelStarted, ""))
	data, err := o.fileStore.Download(ctx, doc.SourceFileRef)
	if err != nil {
		return o.failRun(ctx, doc.Slug, domain.StageExtract, fmt.Errorf("failed to read source file: %w", err))
	}
	pages, err := o.extractor.Extract(data)
	if err != nil {
		return o.failRun(ctx, doc.Slug, domain.StageExtract, err)
	}
	o.appendLogMeta(ctx, doc.Slug, domain.StageExtract, domain.LevelCompleted, "", map[string]string{
		"pages": strconv.Itoa(len(pages)),
	})

	// Chunk
	o.appendLog(ctx, domain.NewLogEntry(doc.Slug, domain.StageChunk, domain.LevelStarted, ""))
	texts := o.splitter.Split(joinPages(pages))
	if len(texts) == 0 {
		return o.failRun(ctx, doc.Slug, domain.StageChunk, fmt.Errorf("%w: no chunkable text", domain.ErrInvalidInput))
	}
	o.appendLogMeta(ctx, doc.Slug, domain.StageChunk, domain.LevelCompleted, "", map[string]string{
		"chunks": strconv.Itoa(len(texts)),
	})

	// Embed
	o.appendLog(ctx, domain.NewLogEntry(doc.Slug, domain.StageEmbed, domain.LevelStarted, ""))
	vectors, err := o.embedAll(ctx, doc.Slug, texts)
	if err != nil {
		return o.failRun(ctx, doc.Slug, domain.StageEmbed, err)
	}
	o.appendLog(ctx, domain.NewLogEntry(doc.Slug, domain.StageEmbed, domain.LevelCompleted, ""))

	// Persist
	o.appendLog(ctx, domain.NewLogEntry(doc.Slug, domain.StagePersist, domain.LevelStarted, ""))
	now := time.Now()
	chunks := make([]*domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = &domain.Chunk{
			ID:           domain.NewID(),
			DocumentID:   doc.ID,
			DocumentSlug: doc.Slug,
			Index:        i,
			Text:         text,
			Embedding:    vectors[i],
			CreatedAt:    now,
		}
	}
	if err := o.chunkStore.SaveBatch(ctx, chunks); err != nil {
		return o.failRun(ctx, doc.Slug, domain.StagePersist, fmt.Errorf("failed to save chunks: %w", err))
	}

	if err := o.documentStore.UpdateStatus(ctx, doc.Slug, domain.DocumentStatusReady, ""); err != nil {
		return fmt.Errorf("failed to mark document ready: %w", err)
	}
	o.appendLogMeta(ctx, doc.Slug, domain.StagePersist, domain.LevelCompleted, "", map[string]string{
		"chunks":           strconv.Itoa(len(chunks)),
		"duration_seconds": strconv.FormatFloat(time.Since(startTime).Seconds(), 'f', 1, 64),
	})

	o.logger.Info("document processed",
		"document_slug", doc.Slug,
		"mode", mode,
		"chunks", len(chunks),
		"duration", time.Since(startTime),
	)

	return nil
}

// replaceChunks deletes the document's existing chunks and verifies none
// remain before any new chunk is written. A non-zero residue aborts the
// retrain so readers never see a mix of old and new chunks.
func (o *ProcessingOrchestrator) replaceChunks(ctx context.Context, doc *domain.Document) error {
	deleted, err := o.chunkStore.DeleteBySlug(ctx, doc.Slug)
	if err != nil {
		return fmt.Errorf("failed to delete existing chunks: %w", err)
	}

	remaining, err := o.chunkStore.CountBySlug(ctx, doc.Slug)
	if err != nil {
		return fmt.Errorf("failed to verify chunk deletion: %w", err)
	}
	if remaining != 0 {
		return fmt.Errorf("%w: %d of %d", domain.ErrChunkResidue, remaining, deleted+remaining)
	}

	o.logger.Info("existing chunks replaced for retrain",
		"document_slug", doc.Slug,
		"deleted", deleted,
	)
	return nil
}

// embedAll embeds texts in bounded batches, emitting progress entries
func (o *ProcessingOrchestrator) embedAll(ctx context.Context, slug string, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := o.embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("%w: embedding failed: %v", domain.ErrProviderUnavailable, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("%w: embedding returned %d vectors for %d texts", domain.ErrProviderUnavailable, len(batch), end-start)
		}
		vectors = append(vectors, batch...)

		if end < len(texts) {
			o.appendLogMeta(ctx, slug, domain.StageEmbed, domain.LevelProgress, "", map[string]string{
				"embedded": strconv.Itoa(end),
				"total":    strconv.Itoa(len(texts)),
			})
		}
	}
	return vectors, nil
}

// failRun marks the document failed with a human-readable message and
// appends a failed log entry.
func (o *ProcessingOrchestrator) failRun(ctx context.Context, slug string, stage domain.ProcessingStage, err error) error {
	message := userFacingMessage(stage, err)

	o.logger.Error("processing failed",
		"document_slug", slug,
		"stage", stage,
		"error", err,
	)

	if updateErr := o.documentStore.UpdateStatus(ctx, slug, domain.DocumentStatusFailed, message); updateErr != nil {
		o.logger.Error("failed to record failure status", "document_slug", slug, "error", updateErr)
	}
	o.appendLog(ctx, domain.NewLogEntry(slug, stage, domain.LevelFailed, message))

	return err
}

// userFacingMessage turns an internal error into a message safe to show to
// the document owner.
func userFacingMessage(stage domain.ProcessingStage, err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("%s stage timed out", stage)
	case errors.Is(err, domain.ErrChunkResidue):
		return "could not replace existing chunks; retrain aborted"
	case errors.Is(err, domain.ErrInvalidInput):
		return err.Error()
	case errors.Is(err, domain.ErrProviderUnavailable):
		return fmt.Sprintf("%s stage failed: provider unavailable", stage)
	default:
		return fmt.Sprintf("%s stage failed", stage)
	}
}

func (o *ProcessingOrchestrator) appendLog(ctx context.Context, entry *domain.ProcessingLogEntry) {
	if err := o.logStore.Append(ctx, entry); err != nil {
		o.logger.Warn("failed to append processing log",
			"document_slug", entry.DocumentSlug,
			"stage", entry.Stage,
			"error", err,
		)
	}
}

func (o *ProcessingOrchestrator) appendLogMeta(ctx context.Context, slug string, stage domain.ProcessingStage, level domain.ProcessingLevel, message string, metadata map[string]string) {
	entry := domain.NewLogEntry(slug, stage, level, message)
	entry.Metadata = metadata
	o.appendLog(ctx, entry)
}

// joinPages concatenates page texts with page breaks preserved as blank lines
func joinPages(pages []domain.Page) string {
	var b strings.Builder
	for i, page := range pages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(page.Text)
	}
	return b.String()
}
