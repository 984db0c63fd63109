package domain

import "time"

// ProcessMode selects how a processing run treats existing chunks
type ProcessMode string

const (
	// ProcessModeInitial is the first processing run after upload
	ProcessModeInitial ProcessMode = "initial"
	// ProcessModeRetrain replaces the chunk set for an existing document
	ProcessModeRetrain ProcessMode = "retrain"
)

// Valid reports whether the mode is a known processing mode
func (m ProcessMode) Valid() bool {
	return m == ProcessModeInitial || m == ProcessModeRetrain
}

// ProcessingStage identifies a pipeline stage in processing logs
type ProcessingStage string

const (
	StageExtract ProcessingStage = "extract"
	StageChunk   ProcessingStage = "chunk"
	StageEmbed   ProcessingStage = "embed"
	StagePersist ProcessingStage = "persist"
	StageQuiz    ProcessingStage = "quiz"
)

// ProcessingLevel classifies a processing log entry
type ProcessingLevel string

const (
	LevelStarted   ProcessingLevel = "started"
	LevelProgress  ProcessingLevel = "progress"
	LevelCompleted ProcessingLevel = "completed"
	LevelFailed    ProcessingLevel = "failed"
	LevelError     ProcessingLevel = "error"
)

// ProcessingLogEntry is an append-only record of a pipeline event.
// Entries are never mutated or deleted.
type ProcessingLogEntry struct {
	ID           string            `json:"id"`
	DocumentSlug string            `json:"document_slug"`
	Stage        ProcessingStage   `json:"stage"`
	Level        ProcessingLevel   `json:"level"`
	Message      string            `json:"message,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// NewLogEntry creates a processing log entry with a fresh ID and timestamp
func NewLogEntry(slug string, stage ProcessingStage, level ProcessingLevel, message string) *ProcessingLogEntry {
	return &ProcessingLogEntry{
		ID:           NewID(),
		DocumentSlug: slug,
		Stage:        stage,
		Level:        level,
		Message:      message,
		CreatedAt:    time.Now(),
	}
}

// ProcessingVenue identifies where the extract/chunk/embed work runs
type ProcessingVenue string

const (
	// VenueRemote is a serverless function with a hard wall-clock limit
	VenueRemote ProcessingVenue = "remote"
	// VenueLocal is the in-process pipeline with no comparable limit
	VenueLocal ProcessingVenue = "local"
)
