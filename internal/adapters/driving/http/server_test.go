package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/custodia-labs/docquiz-core/internal/adapters/driven/auth"
	"github.com/custodia-labs/docquiz-core/internal/adapters/driven/filestore"
	"github.com/custodia-labs/docquiz-core/internal/core/domain"
	"github.com/custodia-labs/docquiz-core/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/docquiz-core/internal/core/services"
)

// stubVerifier maps fixed tokens to auth contexts
type stubVerifier struct {
	tokens map[string]*domain.AuthContext
}

func (v *stubVerifier) Verify(ctx context.Context, token string) (*domain.AuthContext, error) {
	if authCtx, ok := v.tokens[token]; ok {
		return authCtx, nil
	}
	return nil, domain.ErrTokenInvalid
}

type stubPinger struct{ err error }

func (p *stubPinger) Ping(ctx context.Context) error { return p.err }

type serverFixture struct {
	server    *Server
	files     *filestore.LocalStore
	documents *mocks.MockDocumentStore
	chunks    *mocks.MockChunkStore
	banks     *mocks.MockQuizBankStore
	attempts  *mocks.MockQuizAttemptStore
	queue     *mocks.MockTaskQueue
	generator *mocks.MockQuestionGenerator
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	files, err := filestore.NewLocalStore(t.TempDir(), "sign-secret", "http://localhost:8080")
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}

	f := &serverFixture{
		files:     files,
		documents: mocks.NewMockDocumentStore(),
		chunks:    mocks.NewMockChunkStore(),
		banks:     mocks.NewMockQuizBankStore(),
		attempts:  mocks.NewMockQuizAttemptStore(),
		queue:     mocks.NewMockTaskQueue(),
		generator: mocks.NewMockQuestionGenerator(),
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	logs := mocks.NewMockProcessingLogStore()

	docService := services.NewDocumentService(f.documents, f.chunks, files, logger)
	processing := services.NewProcessingOrchestrator(services.ProcessingConfig{
		DocumentStore: f.documents,
		ChunkStore:    f.chunks,
		LogStore:      logs,
		FileStore:     mocks.NewMockFileStore(),
		Extractor:     mocks.NewMockTextExtractor(),
		Splitter:      mocks.NewMockChunkSplitter(),
		Embedder:      mocks.NewMockEmbeddingService(),
		Remote:        mocks.NewMockRemoteExecutor(),
		Lock:          mocks.NewMockDistributedLock(),
		TaskQueue:     f.queue,
		Logger:        logger,
	})
	quiz := services.NewQuizGeneratorService(services.QuizConfig{
		DocumentStore: f.documents,
		ChunkStore:    f.chunks,
		BankStore:     f.banks,
		AttemptStore:  f.attempts,
		LogStore:      logs,
		Generator:     f.generator,
		Logger:        logger,
	})

	verifier := &stubVerifier{tokens: map[string]*domain.AuthContext{
		"owner-token":  {UserID: "owner-1", Email: "owner@example.com", Role: domain.RoleMember},
		"member-token": {UserID: "user-2", Email: "member@example.com", Role: domain.RoleMember},
		"admin-token":  {UserID: "admin-1", Email: "admin@example.com", Role: domain.RoleAdmin},
	}}

	f.server = NewServer(
		DefaultConfig(),
		docService,
		processing,
		quiz,
		verifier,
		auth.NewPermissionChecker(f.documents),
		f.queue,
		files,
		&stubPinger{},
		nil,
	)
	return f
}

func (f *serverFixture) seedDocument(t *testing.T, status domain.DocumentStatus) *domain.Document {
	t.Helper()
	doc := &domain.Document{
		ID:            domain.NewID(),
		Slug:          "operating-systems",
		Title:         "Operating Systems",
		OwnerID:       "owner-1",
		Status:        status,
		SourceFileRef: "documents/operating-systems.pdf",
		FileSizeBytes: 1024,
	}
	if err := f.documents.Save(context.Background(), doc); err != nil {
		t.Fatalf("failed to seed document: %v", err)
	}
	return doc
}

func (f *serverFixture) seedChunks(t *testing.T, doc *domain.Document, n int) {
	t.Helper()
	chunks := make([]*domain.Chunk, 0, n)
	for i := 0; i < n; i++ {
		chunks = append(chunks, &domain.Chunk{
			ID:           domain.NewID(),
			DocumentID:   doc.ID,
			DocumentSlug: doc.Slug,
			Index:        i,
			Text:         fmt.Sprintf("chunk %d", i),
		})
	}
	if err := f.chunks.SaveBatch(context.Background(), chunks); err != nil {
		t.Fatalf("failed to seed chunks: %v", err)
	}
}

func (f *serverFixture) do(t *testing.T, method, target, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *serverFixture) doJSON(t *testing.T, method, target, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}
	return f.do(t, method, target, token, body, "application/json")
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func multipartUpload(t *testing.T, fields map[string]string, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create file part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("failed to write file part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func TestHealth(t *testing.T) {
	f := newServerFixture(t)
	rec := f.do(t, http.MethodGet, "/health", "", nil, "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReady(t *testing.T) {
	f := newServerFixture(t)
	rec := f.do(t, http.MethodGet, "/ready", "", nil, "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["database"] != "ok" || body["queue"] != "ok" {
		t.Errorf("unexpected readiness body: %v", body)
	}
}

func TestUploadRequiresAuth(t *testing.T) {
	f := newServerFixture(t)
	rec := f.do(t, http.MethodPost, "/api/v1/documents", "", strings.NewReader(""), "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestUploadDocumentDispatchesProcessing(t *testing.T) {
	f := newServerFixture(t)

	buf, contentType := multipartUpload(t,
		map[string]string{"title": "Intro to Databases"},
		"intro.pdf", []byte("%PDF-1.7 content"))
	rec := f.do(t, http.MethodPost, "/api/v1/documents", "owner-token", buf, contentType)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	doc := body["document"].(map[string]any)
	if doc["slug"] != "intro-to-databases" {
		t.Errorf("unexpected slug %v", doc["slug"])
	}
	if doc["status"] != string(domain.DocumentStatusProcessing) {
		t.Errorf("expected processing status, got %v", doc["status"])
	}
	if f.queue.PendingCount() != 1 {
		t.Errorf("expected 1 queued task, got %d", f.queue.PendingCount())
	}
}

func TestUploadDocumentWithoutProcessing(t *testing.T) {
	f := newServerFixture(t)

	buf, contentType := multipartUpload(t,
		map[string]string{"title": "Intro to Databases", "process": "false"},
		"intro.pdf", []byte("content"))
	rec := f.do(t, http.MethodPost, "/api/v1/documents", "owner-token", buf, contentType)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if f.queue.PendingCount() != 0 {
		t.Errorf("no task should be queued, got %d", f.queue.PendingCount())
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	f := newServerFixture(t)
	rec := f.do(t, http.MethodGet, "/api/v1/documents/missing", "owner-token", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestListDocumentsScopedToOwner(t *testing.T) {
	f := newServerFixture(t)
	f.seedDocument(t, domain.DocumentStatusReady)

	rec := f.do(t, http.MethodGet, "/api/v1/documents", "owner-token", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if docs := body["documents"].([]any); len(docs) != 1 {
		t.Errorf("expected 1 document for owner, got %d", len(docs))
	}

	rec = f.do(t, http.MethodGet, "/api/v1/documents", "member-token", nil, "")
	body = decodeBody(t, rec)
	if docs, ok := body["documents"].([]any); ok && len(docs) != 0 {
		t.Errorf("expected 0 documents for non-owner, got %d", len(docs))
	}
}

func TestProcessDocumentForbiddenForNonOwner(t *testing.T) {
	f := newServerFixture(t)
	f.seedDocument(t, domain.DocumentStatusUploaded)

	rec := f.doJSON(t, http.MethodPost, "/api/v1/documents/operating-systems/process", "member-token",
		map[string]string{"mode": "initial"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestProcessDocumentAllowedForAdmin(t *testing.T) {
	f := newServerFixture(t)
	f.seedDocument(t, domain.DocumentStatusUploaded)

	rec := f.doJSON(t, http.MethodPost, "/api/v1/documents/operating-systems/process", "admin-token", nil)
	if rec.Code != http.StatusAccepted {
		t.Errorf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestProcessDocumentConflict(t *testing.T) {
	f := newServerFixture(t)
	f.seedDocument(t, domain.DocumentStatusReady)

	rec := f.doJSON(t, http.MethodPost, "/api/v1/documents/operating-systems/process", "owner-token",
		map[string]string{"mode": "initial"})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for initial run on ready document, got %d", rec.Code)
	}
}

func TestGenerateQuiz(t *testing.T) {
	f := newServerFixture(t)
	doc := f.seedDocument(t, domain.DocumentStatusReady)
	f.seedChunks(t, doc, 12)

	rec := f.doJSON(t, http.MethodPost, "/api/v1/documents/operating-systems/quiz", "owner-token", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["num_questions"] != float64(10) {
		t.Errorf("expected 10 questions for 12 chunks, got %v", body["num_questions"])
	}

	bank, err := f.banks.GetLatestBySlug(context.Background(), "operating-systems")
	if err != nil {
		t.Fatalf("bank not persisted: %v", err)
	}
	if bank.Status != domain.QuizBankStatusCompleted {
		t.Errorf("expected completed bank, got %s", bank.Status)
	}
}

func TestGenerateQuizAsync(t *testing.T) {
	f := newServerFixture(t)
	doc := f.seedDocument(t, domain.DocumentStatusReady)
	f.seedChunks(t, doc, 12)

	rec := f.doJSON(t, http.MethodPost, "/api/v1/documents/operating-systems/quiz", "owner-token",
		map[string]any{"async": true})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if f.queue.PendingCount() != 1 {
		t.Errorf("expected 1 queued task, got %d", f.queue.PendingCount())
	}
	if f.generator.Calls() != 0 {
		t.Error("async generation must not run inline")
	}
}

func TestGenerateQuizRequiresAuth(t *testing.T) {
	f := newServerFixture(t)
	rec := f.doJSON(t, http.MethodPost, "/api/v1/documents/operating-systems/quiz", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func seedCompletedBank(t *testing.T, f *serverFixture, doc *domain.Document, size int) *domain.QuizBank {
	t.Helper()
	bank := &domain.QuizBank{
		ID:           domain.NewID(),
		DocumentID:   doc.ID,
		DocumentSlug: doc.Slug,
		BankSize:     size,
		QuizSize:     domain.DefaultQuizSize,
		Status:       domain.QuizBankStatusCompleted,
		GeneratedAt:  time.Now().Add(-time.Hour),
		GeneratedBy:  doc.OwnerID,
	}
	if err := f.banks.Save(context.Background(), bank); err != nil {
		t.Fatalf("failed to seed bank: %v", err)
	}
	questions := make([]*domain.QuizQuestion, 0, size)
	for i := 0; i < size; i++ {
		questions = append(questions, &domain.QuizQuestion{
			ID:                 domain.NewID(),
			BankID:             bank.ID,
			Question:           fmt.Sprintf("question %d", i),
			Options:            []string{"a", "b", "c", "d"},
			CorrectAnswerIndex: i % 4,
		})
	}
	if err := f.banks.SaveQuestions(context.Background(), bank.ID, questions); err != nil {
		t.Fatalf("failed to seed questions: %v", err)
	}
	return bank
}

func TestGetQuizAnonymous(t *testing.T) {
	f := newServerFixture(t)
	doc := f.seedDocument(t, domain.DocumentStatusReady)
	seedCompletedBank(t, f, doc, 30)

	rec := f.do(t, http.MethodGet, "/api/v1/documents/operating-systems/quiz", "", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	questions := body["questions"].([]any)
	if len(questions) != domain.DefaultQuizSize {
		t.Errorf("expected %d sampled questions, got %d", domain.DefaultQuizSize, len(questions))
	}
	if strings.Contains(rec.Body.String(), "correct_answer_index") {
		t.Error("served questions must not reveal the correct answer")
	}
}

func TestGetQuizFullBankForAdmin(t *testing.T) {
	f := newServerFixture(t)
	doc := f.seedDocument(t, domain.DocumentStatusReady)
	seedCompletedBank(t, f, doc, 30)

	rec := f.do(t, http.MethodGet, "/api/v1/documents/operating-systems/quiz", "admin-token", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if questions := body["questions"].([]any); len(questions) != 30 {
		t.Errorf("admin should receive the full bank, got %d", len(questions))
	}
}

func TestGetQuizNoBank(t *testing.T) {
	f := newServerFixture(t)
	f.seedDocument(t, domain.DocumentStatusReady)

	rec := f.do(t, http.MethodGet, "/api/v1/documents/operating-systems/quiz", "", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without a bank, got %d", rec.Code)
	}
}

func TestRecordAttemptAnonymous(t *testing.T) {
	f := newServerFixture(t)
	doc := f.seedDocument(t, domain.DocumentStatusReady)
	seedCompletedBank(t, f, doc, 30)

	ids := make([]string, 10)
	for i := range ids {
		ids[i] = domain.NewID()
	}
	rec := f.doJSON(t, http.MethodPost, "/api/v1/documents/operating-systems/quiz/attempts", "",
		map[string]any{"score": 8, "question_ids": ids})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["score"] != float64(8) || body["total_questions"] != float64(10) {
		t.Errorf("unexpected attempt body: %v", body)
	}
}

func TestRecordAttemptScoreOutOfRange(t *testing.T) {
	f := newServerFixture(t)
	doc := f.seedDocument(t, domain.DocumentStatusReady)
	seedCompletedBank(t, f, doc, 30)

	ids := make([]string, 10)
	for i := range ids {
		ids[i] = domain.NewID()
	}
	rec := f.doJSON(t, http.MethodPost, "/api/v1/documents/operating-systems/quiz/attempts", "",
		map[string]any{"score": 11, "question_ids": ids})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestQuizStatisticsRequiresAuth(t *testing.T) {
	f := newServerFixture(t)
	rec := f.do(t, http.MethodGet, "/api/v1/documents/operating-systems/quiz/statistics", "", nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestServeSignedFile(t *testing.T) {
	f := newServerFixture(t)

	data := []byte("%PDF-1.7 stored file")
	if err := f.files.Upload(context.Background(), "documents/calculus.pdf", data, "application/pdf"); err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	signed, err := f.files.CreateSignedURL(context.Background(), "documents/calculus.pdf", time.Hour)
	if err != nil {
		t.Fatalf("failed to sign url: %v", err)
	}
	target := strings.TrimPrefix(signed, "http://localhost:8080")

	rec := f.do(t, http.MethodGet, target, "", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !bytes.Equal(rec.Body.Bytes(), data) {
		t.Error("served bytes differ from stored file")
	}

	rec = f.do(t, http.MethodGet, target+"tampered", "", nil, "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for tampered signature, got %d", rec.Code)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	f := newServerFixture(t)
	rec := f.do(t, http.MethodGet, "/api/v1/documents", "bogus-token", nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}
