package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/custodia-labs/docquiz-core/internal/core/domain"
	"github.com/custodia-labs/docquiz-core/internal/core/ports/driven"
	"github.com/custodia-labs/docquiz-core/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/docquiz-core/internal/core/ports/driving"
)

type orchestratorFixture struct {
	orchestrator *ProcessingOrchestrator
	documents    *mocks.MockDocumentStore
	chunks       *mocks.MockChunkStore
	logs         *mocks.MockProcessingLogStore
	files        *mocks.MockFileStore
	embedder     *mocks.MockEmbeddingService
	remote       *mocks.MockRemoteExecutor
	lock         *mocks.MockDistributedLock
	queue        *mocks.MockTaskQueue
}

func newOrchestratorFixture() *orchestratorFixture {
	f := &orchestratorFixture{
		documents: mocks.NewMockDocumentStore(),
		chunks:    mocks.NewMockChunkStore(),
		logs:      mocks.NewMockProcessingLogStore(),
		files:     mocks.NewMockFileStore(),
		embedder:  mocks.NewMockEmbeddingService(),
		remote:    mocks.NewMockRemoteExecutor(),
		lock:      mocks.NewMockDistributedLock(),
		queue:     mocks.NewMockTaskQueue(),
	}
	f.orchestrator = NewProcessingOrchestrator(ProcessingConfig{
		DocumentStore: f.documents,
		ChunkStore:    f.chunks,
		LogStore:      f.logs,
		FileStore:     f.files,
		Extractor:     mocks.NewMockTextExtractor(),
		Splitter:      mocks.NewMockChunkSplitter(),
		Embedder:      f.embedder,
		Remote:        f.remote,
		Lock:          f.lock,
		TaskQueue:     f.queue,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		RemoteTimeout: 100 * time.Millisecond,
	})
	return f
}

func (f *orchestratorFixture) seedDocument(t *testing.T, status domain.DocumentStatus, content string) *domain.Document {
	t.Helper()
	doc := &domain.Document{
		ID:            domain.NewID(),
		Slug:          "intro-to-databases",
		Title:         "Intro to Databases",
		OwnerID:       "owner-1",
		Status:        status,
		SourceFileRef: "documents/intro-to-databases.pdf",
		FileSizeBytes: int64(len(content)),
		CreatedAt:     time.Now(),
	}
	if err := f.documents.Save(context.Background(), doc); err != nil {
		t.Fatalf("failed to seed document: %v", err)
	}
	if content != "" {
		if err := f.files.Upload(context.Background(), doc.SourceFileRef, []byte(content), "application/pdf"); err != nil {
			t.Fatalf("failed to seed file: %v", err)
		}
	}
	return doc
}

const sampleContent = "First paragraph about tables.\n\nSecond paragraph about indexes.\fThird paragraph about transactions.\n\nFourth paragraph about recovery."

func TestProcessDocumentInitial(t *testing.T) {
	f := newOrchestratorFixture()
	f.seedDocument(t, domain.DocumentStatusUploaded, sampleContent)

	resp, err := f.orchestrator.ProcessDocument(context.Background(), driving.ProcessRequest{
		DocumentSlug: "intro-to-databases",
		Mode:         domain.ProcessModeInitial,
	})
	if err != nil {
		t.Fatalf("ProcessDocument failed: %v", err)
	}
	if !resp.Accepted {
		t.Error("expected request to be accepted")
	}
	if resp.Status != domain.DocumentStatusProcessing {
		t.Errorf("expected status processing, got %s", resp.Status)
	}
	if resp.Venue != domain.VenueLocal {
		t.Errorf("expected local venue with remote disabled, got %s", resp.Venue)
	}

	doc, _ := f.documents.GetBySlug(context.Background(), "intro-to-databases")
	if doc.Status != domain.DocumentStatusProcessing {
		t.Errorf("expected document marked processing, got %s", doc.Status)
	}
	if f.queue.PendingCount() != 1 {
		t.Errorf("expected 1 enqueued task, got %d", f.queue.PendingCount())
	}
}

func TestProcessDocumentWhileProcessing(t *testing.T) {
	f := newOrchestratorFixture()
	f.seedDocument(t, domain.DocumentStatusProcessing, "")

	_, err := f.orchestrator.ProcessDocument(context.Background(), driving.ProcessRequest{
		DocumentSlug: "intro-to-databases",
		Mode:         domain.ProcessModeInitial,
	})
	if !errors.Is(err, domain.ErrProcessingInProgress) {
		t.Errorf("expected ErrProcessingInProgress, got %v", err)
	}
}

func TestProcessDocumentInitialOnReady(t *testing.T) {
	f := newOrchestratorFixture()
	f.seedDocument(t, domain.DocumentStatusReady, "")

	_, err := f.orchestrator.ProcessDocument(context.Background(), driving.ProcessRequest{
		DocumentSlug: "intro-to-databases",
		Mode:         domain.ProcessModeInitial,
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected ErrConflict for initial on ready document, got %v", err)
	}
}

func TestProcessDocumentRetrainOnReady(t *testing.T) {
	f := newOrchestratorFixture()
	f.seedDocument(t, domain.DocumentStatusReady, sampleContent)

	resp, err := f.orchestrator.ProcessDocument(context.Background(), driving.ProcessRequest{
		DocumentSlug: "intro-to-databases",
		Mode:         domain.ProcessModeRetrain,
	})
	if err != nil {
		t.Fatalf("retrain on ready document should be accepted: %v", err)
	}
	if !resp.Accepted {
		t.Error("expected retrain to be accepted")
	}
}

func TestProcessDocumentRetryAfterFailure(t *testing.T) {
	f := newOrchestratorFixture()
	f.seedDocument(t, domain.DocumentStatusFailed, sampleContent)

	resp, err := f.orchestrator.ProcessDocument(context.Background(), driving.ProcessRequest{
		DocumentSlug: "intro-to-databases",
		Mode:         domain.ProcessModeInitial,
	})
	if err != nil {
		t.Fatalf("retry after failure should be accepted: %v", err)
	}
	if resp.Status != domain.DocumentStatusProcessing {
		t.Errorf("expected status processing, got %s", resp.Status)
	}
}

func TestProcessDocumentInvalidMode(t *testing.T) {
	f := newOrchestratorFixture()
	f.seedDocument(t, domain.DocumentStatusUploaded, "")

	_, err := f.orchestrator.ProcessDocument(context.Background(), driving.ProcessRequest{
		DocumentSlug: "intro-to-databases",
		Mode:         domain.ProcessMode("turbo"),
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for unknown mode, got %v", err)
	}
}

func TestProcessDocumentNotFound(t *testing.T) {
	f := newOrchestratorFixture()

	_, err := f.orchestrator.ProcessDocument(context.Background(), driving.ProcessRequest{
		DocumentSlug: "no-such-document",
		Mode:         domain.ProcessModeInitial,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRunLocalPipeline(t *testing.T) {
	f := newOrchestratorFixture()
	f.seedDocument(t, domain.DocumentStatusProcessing, sampleContent)

	if err := f.orchestrator.Run(context.Background(), "intro-to-databases", domain.ProcessModeInitial); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	doc, _ := f.documents.GetBySlug(context.Background(), "intro-to-databases")
	if doc.Status != domain.DocumentStatusReady {
		t.Fatalf("expected document ready, got %s (error: %q)", doc.Status, doc.ErrorMessage)
	}

	chunks := f.chunks.ChunksFor("intro-to-databases")
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.Index != i {
			t.Errorf("expected contiguous indices, chunk %d has index %d", i, chunk.Index)
		}
		if len(chunk.Embedding) == 0 {
			t.Errorf("chunk %d has no embedding", i)
		}
	}

	for _, stage := range []domain.ProcessingStage{domain.StageExtract, domain.StageChunk, domain.StageEmbed, domain.StagePersist} {
		if n := len(f.logs.EntriesFor("intro-to-databases", stage, domain.LevelCompleted)); n != 1 {
			t.Errorf("expected 1 completed entry for stage %s, got %d", stage, n)
		}
	}
}

func TestRunRemoteSuccess(t *testing.T) {
	f := newOrchestratorFixture()
	doc := f.seedDocument(t, domain.DocumentStatusProcessing, sampleContent)

	f.remote.EnabledFlag = true
	f.remote.Threshold = doc.FileSizeBytes + 1
	f.remote.OnInvoke = func(ctx context.Context, slug string, mode domain.ProcessMode) {
		// The remote venue writes the terminal status itself
		_ = f.documents.UpdateStatus(ctx, slug, domain.DocumentStatusReady, "")
	}

	if err := f.orchestrator.Run(context.Background(), "intro-to-databases", domain.ProcessModeInitial); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if f.remote.Invokes() != 1 {
		t.Errorf("expected 1 remote invocation, got %d", f.remote.Invokes())
	}
	if f.embedder.Calls() != 0 {
		t.Errorf("local pipeline should not run after remote success, embedder called %d times", f.embedder.Calls())
	}

	updated, _ := f.documents.GetBySlug(context.Background(), "intro-to-databases")
	if updated.Status != domain.DocumentStatusReady {
		t.Errorf("expected document ready after remote run, got %s", updated.Status)
	}
}

func TestRunRemoteErrorFallsBackToLocal(t *testing.T) {
	f := newOrchestratorFixture()
	doc := f.seedDocument(t, domain.DocumentStatusProcessing, sampleContent)

	f.remote.EnabledFlag = true
	f.remote.Threshold = doc.FileSizeBytes + 1
	f.remote.InvokeErr = errors.New("connection refused")

	if err := f.orchestrator.Run(context.Background(), "intro-to-databases", domain.ProcessModeInitial); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	updated, _ := f.documents.GetBySlug(context.Background(), "intro-to-databases")
	if updated.Status != domain.DocumentStatusReady {
		t.Errorf("expected local fallback to complete the document, got %s", updated.Status)
	}
	if updated.ErrorMessage != "" {
		t.Errorf("fallback must not surface the remote failure, got %q", updated.ErrorMessage)
	}
	if f.embedder.Calls() == 0 {
		t.Error("expected local pipeline to run after remote failure")
	}
}

func TestRunRemoteFailureResponseFallsBackToLocal(t *testing.T) {
	f := newOrchestratorFixture()
	doc := f.seedDocument(t, domain.DocumentStatusProcessing, sampleContent)

	f.remote.EnabledFlag = true
	f.remote.Threshold = doc.FileSizeBytes + 1
	f.remote.Result = &driven.InvokeResult{Success: false, Error: "out of memory"}

	if err := f.orchestrator.Run(context.Background(), "intro-to-databases", domain.ProcessModeInitial); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	updated, _ := f.documents.GetBySlug(context.Background(), "intro-to-databases")
	if updated.Status != domain.DocumentStatusReady {
		t.Errorf("expected local fallback to complete the document, got %s", updated.Status)
	}
}

func TestRunLargeFileSkipsRemote(t *testing.T) {
	f := newOrchestratorFixture()
	doc := f.seedDocument(t, domain.DocumentStatusProcessing, sampleContent)

	f.remote.EnabledFlag = true
	f.remote.Threshold = doc.FileSizeBytes - 1

	if err := f.orchestrator.Run(context.Background(), "intro-to-databases", domain.ProcessModeInitial); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if f.remote.Invokes() != 0 {
		t.Errorf("file over threshold must not go remote, got %d invocations", f.remote.Invokes())
	}
	updated, _ := f.documents.GetBySlug(context.Background(), "intro-to-databases")
	if updated.Status != domain.DocumentStatusReady {
		t.Errorf("expected local run to complete the document, got %s", updated.Status)
	}
}

func TestRunRetrainReplacesChunks(t *testing.T) {
	f := newOrchestratorFixture()
	doc := f.seedDocument(t, domain.DocumentStatusProcessing, sampleContent)

	stale := []*domain.Chunk{
		{ID: domain.NewID(), DocumentID: doc.ID, DocumentSlug: doc.Slug, Index: 0, Text: "stale chunk"},
		{ID: domain.NewID(), DocumentID: doc.ID, DocumentSlug: doc.Slug, Index: 1, Text: "another stale chunk"},
	}
	if err := f.chunks.SaveBatch(context.Background(), stale); err != nil {
		t.Fatalf("failed to seed stale chunks: %v", err)
	}

	if err := f.orchestrator.Run(context.Background(), "intro-to-databases", domain.ProcessModeRetrain); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	chunks := f.chunks.ChunksFor("intro-to-databases")
	if len(chunks) != 4 {
		t.Fatalf("expected 4 fresh chunks, got %d", len(chunks))
	}
	for _, chunk := range chunks {
		if chunk.Text == "stale chunk" || chunk.Text == "another stale chunk" {
			t.Error("stale chunk survived retrain")
		}
	}
}

func TestRunRetrainAbortsOnResidue(t *testing.T) {
	f := newOrchestratorFixture()
	doc := f.seedDocument(t, domain.DocumentStatusProcessing, sampleContent)

	stale := []*domain.Chunk{
		{ID: domain.NewID(), DocumentID: doc.ID, DocumentSlug: doc.Slug, Index: 0, Text: "stale chunk"},
		{ID: domain.NewID(), DocumentID: doc.ID, DocumentSlug: doc.Slug, Index: 1, Text: "another stale chunk"},
	}
	if err := f.chunks.SaveBatch(context.Background(), stale); err != nil {
		t.Fatalf("failed to seed stale chunks: %v", err)
	}
	f.chunks.ResidueAfterDelete = 1

	err := f.orchestrator.Run(context.Background(), "intro-to-databases", domain.ProcessModeRetrain)
	if !errors.Is(err, domain.ErrChunkResidue) {
		t.Fatalf("expected ErrChunkResidue, got %v", err)
	}

	updated, _ := f.documents.GetBySlug(context.Background(), "intro-to-databases")
	if updated.Status != domain.DocumentStatusFailed {
		t.Errorf("expected document failed, got %s", updated.Status)
	}
	if updated.ErrorMessage == "" {
		t.Error("expected a user-facing error message")
	}
	if f.embedder.Calls() != 0 {
		t.Error("pipeline must not continue past a failed chunk replacement")
	}
}

func TestRunExtractFailure(t *testing.T) {
	f := newOrchestratorFixture()
	f.seedDocument(t, domain.DocumentStatusProcessing, "")
	// No file uploaded: the download fails in the extract stage

	err := f.orchestrator.Run(context.Background(), "intro-to-databases", domain.ProcessModeInitial)
	if err == nil {
		t.Fatal("expected Run to fail")
	}

	updated, _ := f.documents.GetBySlug(context.Background(), "intro-to-databases")
	if updated.Status != domain.DocumentStatusFailed {
		t.Errorf("expected document failed, got %s", updated.Status)
	}
	if n := len(f.logs.EntriesFor("intro-to-databases", domain.StageExtract, domain.LevelFailed)); n != 1 {
		t.Errorf("expected 1 failed extract entry, got %d", n)
	}
}

func TestRunEmbedFailure(t *testing.T) {
	f := newOrchestratorFixture()
	f.seedDocument(t, domain.DocumentStatusProcessing, sampleContent)
	f.embedder.EmbedErr = errors.New("model overloaded")

	err := f.orchestrator.Run(context.Background(), "intro-to-databases", domain.ProcessModeInitial)
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}

	updated, _ := f.documents.GetBySlug(context.Background(), "intro-to-databases")
	if updated.Status != domain.DocumentStatusFailed {
		t.Errorf("expected document failed, got %s", updated.Status)
	}
	if len(f.chunks.ChunksFor("intro-to-databases")) != 0 {
		t.Error("no chunks should be persisted when embedding fails")
	}
}

func TestRunLockContention(t *testing.T) {
	f := newOrchestratorFixture()
	f.seedDocument(t, domain.DocumentStatusProcessing, sampleContent)

	acquired, err := f.lock.Acquire(context.Background(), "process:intro-to-databases", time.Minute)
	if err != nil || !acquired {
		t.Fatalf("failed to pre-acquire lock: acquired=%v err=%v", acquired, err)
	}

	err = f.orchestrator.Run(context.Background(), "intro-to-databases", domain.ProcessModeInitial)
	if !errors.Is(err, domain.ErrProcessingInProgress) {
		t.Errorf("expected ErrProcessingInProgress on lock contention, got %v", err)
	}
}

func TestRunReleasesLock(t *testing.T) {
	f := newOrchestratorFixture()
	f.seedDocument(t, domain.DocumentStatusProcessing, sampleContent)

	if err := f.orchestrator.Run(context.Background(), "intro-to-databases", domain.ProcessModeInitial); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if f.lock.Held("process:intro-to-databases") {
		t.Error("lock must be released after the run")
	}
}

func TestGetProcessingStatus(t *testing.T) {
	f := newOrchestratorFixture()
	f.seedDocument(t, domain.DocumentStatusProcessing, sampleContent)

	if err := f.orchestrator.Run(context.Background(), "intro-to-databases", domain.ProcessModeInitial); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	status, err := f.orchestrator.GetProcessingStatus(context.Background(), "intro-to-databases")
	if err != nil {
		t.Fatalf("GetProcessingStatus failed: %v", err)
	}
	if status.Status != domain.DocumentStatusReady {
		t.Errorf("expected ready, got %s", status.Status)
	}
	if len(status.Logs) == 0 {
		t.Error("expected processing log entries")
	}
}
