package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/docquiz-core/internal/core/domain"
	"github.com/custodia-labs/docquiz-core/internal/core/ports/driven"
	"github.com/custodia-labs/docquiz-core/internal/core/ports/driving"
)

// Ensure QuizGeneratorService implements QuizService
var _ driving.QuizService = (*QuizGeneratorService)(nil)

// QuizGeneratorService generates question banks from a document's chunks,
// serves quizzes sampled from the latest bank, and records scored attempts.
type QuizGeneratorService struct {
	documentStore driven.DocumentStore
	chunkStore    driven.ChunkStore
	bankStore     driven.QuizBankStore
	attemptStore  driven.QuizAttemptStore
	logStore      driven.ProcessingLogStore
	generator     driven.QuestionGenerator
	logger        *slog.Logger

	// now is swappable for cooldown tests
	now func() time.Time
}

// QuizConfig holds dependencies for QuizGeneratorService
type QuizConfig struct {
	DocumentStore driven.DocumentStore
	ChunkStore    driven.ChunkStore
	BankStore     driven.QuizBankStore
	AttemptStore  driven.QuizAttemptStore
	LogStore      driven.ProcessingLogStore
	Generator     driven.QuestionGenerator
	Logger        *slog.Logger
}

// NewQuizGeneratorService creates a new quiz service
func NewQuizGeneratorService(cfg QuizConfig) *QuizGeneratorService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &QuizGeneratorService{
		documentStore: cfg.DocumentStore,
		chunkStore:    cfg.ChunkStore,
		bankStore:     cfg.BankStore,
		attemptStore:  cfg.AttemptStore,
		logStore:      cfg.LogStore,
		generator:     cfg.Generator,
		logger:        logger,
		now:           time.Now,
	}
}

// GenerateQuiz builds a new question bank for a ready document. The new bank
// supersedes any previous one; banks are never merged. Non-privileged callers
// are subject to the regeneration cooldown.
func (s *QuizGeneratorService) GenerateQuiz(ctx context.Context, req driving.GenerateQuizRequest) (*driving.GenerateQuizResponse, error) {
	doc, err := s.documentStore.GetBySlug(ctx, req.DocumentSlug)
	if err != nil {
		return nil, err
	}
	if doc.Status != domain.DocumentStatusReady {
		return nil, fmt.Errorf("%w: document is %s, not ready", domain.ErrConflict, doc.Status)
	}

	chunkCount, err := s.chunkStore.CountBySlug(ctx, doc.Slug)
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}
	if chunkCount == 0 {
		return nil, domain.ErrNoChunks
	}

	if err := s.checkCooldown(ctx, doc.Slug, req.Privilege); err != nil {
		return nil, err
	}

	questionCount, err := s.resolveQuestionCount(req.RequestedQuestionCount, chunkCount)
	if err != nil {
		return nil, err
	}

	sample, err := s.chunkStore.SampleBySlug(ctx, doc.Slug, domain.ChunkSampleSize(questionCount))
	if err != nil {
		return nil, fmt.Errorf("failed to sample chunks: %w", err)
	}
	chunkTexts := make([]string, len(sample))
	for i, chunk := range sample {
		chunkTexts[i] = chunk.Text
	}

	bank := &domain.QuizBank{
		ID:           domain.NewID(),
		DocumentID:   doc.ID,
		DocumentSlug: doc.Slug,
		QuizSize:     domain.DefaultQuizSize,
		Status:       domain.QuizBankStatusGenerating,
		GeneratedAt:  s.now(),
		GeneratedBy:  req.CallerID,
	}
	if err := s.bankStore.Save(ctx, bank); err != nil {
		return nil, fmt.Errorf("failed to create bank: %w", err)
	}

	s.appendLog(ctx, domain.NewLogEntry(doc.Slug, domain.StageQuiz, domain.LevelStarted, ""))

	questions, err := s.generateBatched(ctx, chunkTexts, questionCount)
	if err != nil {
		s.failBank(ctx, bank, err)
		return nil, err
	}

	if err := s.bankStore.SaveQuestions(ctx, bank.ID, questions); err != nil {
		err = fmt.Errorf("failed to save questions: %w", err)
		s.failBank(ctx, bank, err)
		return nil, err
	}

	bank.Status = domain.QuizBankStatusCompleted
	bank.BankSize = len(questions)
	if err := s.bankStore.Save(ctx, bank); err != nil {
		return nil, fmt.Errorf("failed to complete bank: %w", err)
	}

	if err := s.documentStore.SetQuizGenerated(ctx, doc.Slug, true); err != nil {
		s.logger.Warn("failed to flag document as quiz-generated", "document_slug", doc.Slug, "error", err)
	}

	s.appendLog(ctx, domain.NewLogEntry(doc.Slug, domain.StageQuiz, domain.LevelCompleted, ""))

	s.logger.Info("quiz bank generated",
		"document_slug", doc.Slug,
		"bank_id", bank.ID,
		"questions", len(questions),
		"requested", questionCount,
	)

	return &driving.GenerateQuizResponse{
		Success:      true,
		NumQuestions: len(questions),
	}, nil
}

// failBank marks the bank failed, recording a caller-safe error message on
// both the bank and the quiz log.
func (s *QuizGeneratorService) failBank(ctx context.Context, bank *domain.QuizBank, err error) {
	message := generationFailureMessage(err)
	bank.Status = domain.QuizBankStatusFailed
	bank.ErrorMessage = message
	if saveErr := s.bankStore.Save(ctx, bank); saveErr != nil {
		s.logger.Error("failed to record bank failure", "document_slug", bank.DocumentSlug, "error", saveErr)
	}
	s.appendLog(ctx, domain.NewLogEntry(bank.DocumentSlug, domain.StageQuiz, domain.LevelFailed, message))
}

// generationFailureMessage turns a generation error into a message safe to
// show callers, calling out timeouts explicitly.
func generationFailureMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "question generation timed out"
	case errors.Is(err, domain.ErrProviderUnavailable):
		return "question generation failed: provider unavailable"
	default:
		return "question generation failed"
	}
}

// checkCooldown rejects regeneration within the cooldown window. Only a
// completed bank starts the window; elevated callers bypass it.
func (s *QuizGeneratorService) checkCooldown(ctx context.Context, slug string, privilege domain.Privilege) error {
	if privilege.Elevated() {
		return nil
	}
	latest, err := s.bankStore.GetLatestCompletedBySlug(ctx, slug)
	if err != nil {
		// No completed bank means no cooldown
		return nil
	}
	elapsed := s.now().Sub(latest.GeneratedAt)
	if elapsed < domain.RegenerationCooldown {
		remaining := domain.RegenerationCooldown - elapsed
		return fmt.Errorf("%w: %s remaining", domain.ErrCooldownActive, remaining.Round(time.Hour))
	}
	return nil
}

// resolveQuestionCount validates an explicit count or derives one from the
// chunk count.
func (s *QuizGeneratorService) resolveQuestionCount(requested *int, chunkCount int) (int, error) {
	if requested == nil {
		return domain.QuestionCountForChunks(chunkCount), nil
	}
	if *requested < 1 || *requested > domain.MaxQuestionCount {
		return 0, fmt.Errorf("%w: question count must be between 1 and %d", domain.ErrInvalidInput, domain.MaxQuestionCount)
	}
	return *requested, nil
}

// generateBatched requests questions in batches of at most
// MaxQuestionsPerBatch. Malformed questions are dropped; a short batch is
// accepted rather than retried, so the final bank may be smaller than asked.
func (s *QuizGeneratorService) generateBatched(ctx context.Context, chunkTexts []string, total int) ([]*domain.QuizQuestion, error) {
	questions := make([]*domain.QuizQuestion, 0, total)
	for remaining := total; remaining > 0; {
		batch := remaining
		if batch > domain.MaxQuestionsPerBatch {
			batch = domain.MaxQuestionsPerBatch
		}

		generated, err := s.generator.GenerateQuestions(ctx, chunkTexts, batch)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
		}
		for _, q := range generated {
			if !q.Valid() {
				s.logger.Warn("dropping malformed generated question", "question", q.Question)
				continue
			}
			questions = append(questions, &domain.QuizQuestion{
				ID:                 domain.NewID(),
				Question:           q.Question,
				Options:            q.Options,
				CorrectAnswerIndex: q.CorrectAnswerIndex,
			})
		}

		remaining -= batch
	}

	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: generator produced no usable questions", domain.ErrProviderUnavailable)
	}
	return questions, nil
}

// GetQuiz serves questions from the latest completed bank. Elevated callers
// and explicit wantAll requests receive the full bank; everyone else gets a
// uniform random sample of quiz-size questions. The correct answer index is
// never included.
func (s *QuizGeneratorService) GetQuiz(ctx context.Context, slug string, wantAll bool, privilege domain.Privilege) (*driving.QuizResponse, error) {
	// A failed regeneration must not shadow an earlier completed bank, so
	// the lookup skips non-completed banks.
	bank, err := s.bankStore.GetLatestCompletedBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	var questions []*domain.QuizQuestion
	if wantAll || privilege.Elevated() {
		questions, err = s.bankStore.GetQuestions(ctx, bank.ID)
	} else {
		questions, err = s.bankStore.SampleQuestions(ctx, bank.ID, bank.QuizSize)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}

	served := make([]*driving.ServedQuestion, len(questions))
	ids := make([]string, len(questions))
	for i, q := range questions {
		served[i] = &driving.ServedQuestion{
			ID:       q.ID,
			Question: q.Question,
			Options:  q.Options,
		}
		ids[i] = q.ID
	}

	return &driving.QuizResponse{
		Questions:   served,
		QuestionIDs: ids,
		QuizSize:    len(served),
		BankSize:    bank.BankSize,
		GeneratedAt: bank.GeneratedAt,
	}, nil
}

// RecordAttempt persists a scored attempt. The document must exist; the bank
// is not required so attempts against a superseded bank still count.
// Anonymous attempts carry a nil user ID.
func (s *QuizGeneratorService) RecordAttempt(ctx context.Context, req driving.RecordAttemptRequest) (*driving.AttemptResponse, error) {
	if _, err := s.documentStore.GetBySlug(ctx, req.DocumentSlug); err != nil {
		return nil, err
	}

	total := len(req.QuestionIDs)
	if total == 0 {
		total = domain.DefaultQuizSize
	}
	if req.Score < 0 || req.Score > total {
		return nil, fmt.Errorf("%w: score %d out of range [0, %d]", domain.ErrInvalidInput, req.Score, total)
	}

	attempt := &domain.QuizAttempt{
		ID:           domain.NewID(),
		DocumentSlug: req.DocumentSlug,
		UserID:       req.UserID,
		Score:        req.Score,
		QuizSize:     total,
		QuestionIDs:  req.QuestionIDs,
		CompletedAt:  s.now(),
	}
	if err := s.attemptStore.Save(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to save attempt: %w", err)
	}

	return &driving.AttemptResponse{
		AttemptID:      attempt.ID,
		Score:          attempt.Score,
		TotalQuestions: attempt.QuizSize,
		CompletedAt:    attempt.CompletedAt,
	}, nil
}

// GetStatistics aggregates attempts for a document. Requires a bank to exist
// so the response can report bank size alongside attempt averages.
func (s *QuizGeneratorService) GetStatistics(ctx context.Context, slug string) (*driving.QuizStatistics, error) {
	bank, err := s.bankStore.GetLatestCompletedBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	agg, err := s.attemptStore.Aggregate(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate attempts: %w", err)
	}

	return &driving.QuizStatistics{
		DocumentSlug:    slug,
		BankSize:        bank.BankSize,
		TotalAttempts:   agg.TotalAttempts,
		AverageScore:    agg.AverageScore,
		AverageQuizSize: agg.AverageQuizSize,
		LastAttemptAt:   agg.LastAttemptAt,
	}, nil
}

func (s *QuizGeneratorService) appendLog(ctx context.Context, entry *domain.ProcessingLogEntry) {
	if err := s.logStore.Append(ctx, entry); err != nil {
		s.logger.Warn("failed to append processing log",
			"document_slug", entry.DocumentSlug,
			"error", err,
		)
	}
}
