package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/custodia-labs/docquiz-core/internal/core/domain"
	"github.com/custodia-labs/docquiz-core/internal/core/ports/driving"
)

// maxUploadBytes caps source file uploads at 50 MiB
const maxUploadBytes = 50 << 20

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse represents a simple status response
type StatusResponse struct {
	Status string `json:"status"`
}

// Health endpoints

// handleHealth returns liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady checks the database, queue, and optional Redis connections
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	healthy := true

	if err := s.db.Ping(r.Context()); err != nil {
		checks["database"] = err.Error()
		healthy = false
	} else {
		checks["database"] = "ok"
	}

	if err := s.taskQueue.Ping(r.Context()); err != nil {
		checks["queue"] = err.Error()
		healthy = false
	} else {
		checks["queue"] = "ok"
	}

	if s.redisClient != nil {
		if err := s.redisClient.Ping(r.Context()); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, checks)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Document endpoints

// handleUploadDocument accepts a multipart upload and, unless process=false,
// immediately dispatches the initial processing run
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read upload")
		return
	}
	if len(data) > maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "file exceeds upload limit")
		return
	}

	title := r.FormValue("title")
	if title == "" {
		title = strings.TrimSuffix(header.Filename, path.Ext(header.Filename))
	}

	doc, err := s.docService.Upload(r.Context(), driving.UploadRequest{
		Title:       title,
		OwnerID:     authCtx.UserID,
		Data:        data,
		ContentType: header.Header.Get("Content-Type"),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if r.FormValue("process") == "false" {
		writeJSON(w, http.StatusCreated, map[string]any{"document": doc})
		return
	}

	resp, err := s.processingService.ProcessDocument(r.Context(), driving.ProcessRequest{
		DocumentSlug: doc.Slug,
		Mode:         domain.ProcessModeInitial,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	doc.Status = resp.Status

	writeJSON(w, http.StatusAccepted, map[string]any{
		"document":   doc,
		"processing": resp,
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	docs, err := s.docService.ListByOwner(r.Context(), authCtx.UserID, limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docService.GetBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// handleGetDocumentChunks returns the extracted chunks; restricted to the
// document owner and admins since it exposes the full text
func (s *Server) handleGetDocumentChunks(w http.ResponseWriter, r *http.Request) {
	perm, ok := s.requireDocumentAdmin(w, r, r.PathValue("slug"))
	if !ok {
		return
	}

	result, err := s.docService.GetWithChunks(r.Context(), perm.Document.Slug)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleReplaceFile uploads a replacement source file for an existing
// document. The caller follows up with a retrain run.
func (s *Server) handleReplaceFile(w http.ResponseWriter, r *http.Request) {
	perm, ok := s.requireDocumentAdmin(w, r, r.PathValue("slug"))
	if !ok {
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read upload")
		return
	}
	if len(data) > maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "file exceeds upload limit")
		return
	}

	doc, err := s.docService.ReplaceFile(r.Context(), perm.Document.Slug, data, r.Header.Get("Content-Type"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Processing endpoints

type processRequestBody struct {
	Mode domain.ProcessMode `json:"mode"`
}

func (s *Server) handleProcessDocument(w http.ResponseWriter, r *http.Request) {
	perm, ok := s.requireDocumentAdmin(w, r, r.PathValue("slug"))
	if !ok {
		return
	}

	var body processRequestBody
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if body.Mode == "" {
		body.Mode = domain.ProcessModeInitial
	}

	resp, err := s.processingService.ProcessDocument(r.Context(), driving.ProcessRequest{
		DocumentSlug: perm.Document.Slug,
		Mode:         body.Mode,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleProcessingStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.processingService.GetProcessingStatus(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// Quiz endpoints

type generateQuizBody struct {
	RequestedQuestionCount *int `json:"requested_question_count,omitempty"`
	Async                  bool `json:"async,omitempty"`
}

// handleGenerateQuiz generates a question bank. With async=true the work is
// queued and picked up by the background worker instead of running inline.
func (s *Server) handleGenerateQuiz(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	slug := r.PathValue("slug")
	perm, err := s.permissions.Check(r.Context(), authCtx, slug)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "permission check failed")
		return
	}
	if perm.Document == nil {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}

	var body generateQuizBody
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if body.Async {
		task := domain.NewGenerateQuizTask(slug, authCtx.UserID, perm.Privilege())
		if err := s.taskQueue.Enqueue(r.Context(), task); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to queue generation")
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{
			"status":  "queued",
			"task_id": task.ID,
		})
		return
	}

	resp, err := s.quizService.GenerateQuiz(r.Context(), driving.GenerateQuizRequest{
		DocumentSlug:           slug,
		RequestedQuestionCount: body.RequestedQuestionCount,
		CallerID:               authCtx.UserID,
		Privilege:              perm.Privilege(),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	perm, err := s.permissions.Check(r.Context(), GetAuthContext(r.Context()), slug)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "permission check failed")
		return
	}

	wantAll := r.URL.Query().Get("all") == "true"
	resp, err := s.quizService.GetQuiz(r.Context(), slug, wantAll, perm.Privilege())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type recordAttemptBody struct {
	Score       int      `json:"score"`
	QuestionIDs []string `json:"question_ids,omitempty"`
}

func (s *Server) handleRecordAttempt(w http.ResponseWriter, r *http.Request) {
	var body recordAttemptBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var userID *string
	if authCtx := GetAuthContext(r.Context()); authCtx != nil {
		userID = &authCtx.UserID
	}

	resp, err := s.quizService.RecordAttempt(r.Context(), driving.RecordAttemptRequest{
		DocumentSlug: r.PathValue("slug"),
		UserID:       userID,
		Score:        body.Score,
		QuestionIDs:  body.QuestionIDs,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleQuizStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.quizService.GetStatistics(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// File serving

// handleServeFile serves a stored file when the HMAC signature checks out
func (s *Server) handleServeFile(w http.ResponseWriter, r *http.Request) {
	filePath := r.PathValue("path")
	expires, err := strconv.ParseInt(r.URL.Query().Get("expires"), 10, 64)
	if err != nil {
		writeError(w, http.StatusForbidden, "invalid signature")
		return
	}

	if err := s.signedFiles.VerifySignature(filePath, expires, r.URL.Query().Get("sig")); err != nil {
		writeError(w, http.StatusForbidden, "invalid signature")
		return
	}

	data, err := s.signedFiles.Download(r.Context(), filePath)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Helper functions

// requireDocumentAdmin resolves the document and rejects callers who are
// neither its owner nor an admin. Writes the error response itself.
func (s *Server) requireDocumentAdmin(w http.ResponseWriter, r *http.Request, slug string) (*domain.Permission, bool) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}

	perm, err := s.permissions.Check(r.Context(), authCtx, slug)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "permission check failed")
		return nil, false
	}
	if perm.Document == nil {
		writeError(w, http.StatusNotFound, "document not found")
		return nil, false
	}
	if !perm.Privilege().Elevated() {
		writeError(w, http.StatusForbidden, "document owner or admin required")
		return nil, false
	}
	return perm, true
}

// writeDomainError maps domain errors to HTTP status codes
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrTokenExpired), errors.Is(err, domain.ErrTokenInvalid), errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrProcessingInProgress),
		errors.Is(err, domain.ErrCooldownActive),
		errors.Is(err, domain.ErrNoChunks):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrProviderUnavailable):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
