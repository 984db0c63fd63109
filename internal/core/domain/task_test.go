package domain

import "testing"

func TestNewProcessDocumentTask(t *testing.T) {
	task := NewProcessDocumentTask("doc-a", ProcessModeRetrain)

	if task.ID == "" {
		t.Error("expected non-empty task ID")
	}
	if task.Type != TaskTypeProcessDocument {
		t.Errorf("expected type %s, got %s", TaskTypeProcessDocument, task.Type)
	}
	if task.Status != TaskStatusPending {
		t.Errorf("expected pending status, got %s", task.Status)
	}
	if task.DocumentSlug() != "doc-a" {
		t.Errorf("expected slug doc-a, got %s", task.DocumentSlug())
	}
	if task.Mode() != ProcessModeRetrain {
		t.Errorf("expected retrain mode, got %s", task.Mode())
	}
}

func TestTaskModeDefaultsToInitial(t *testing.T) {
	task := NewTask(TaskTypeProcessDocument, map[string]string{"document_slug": "doc-a"})
	if task.Mode() != ProcessModeInitial {
		t.Errorf("expected initial mode default, got %s", task.Mode())
	}

	task.Payload["mode"] = "garbage"
	if task.Mode() != ProcessModeInitial {
		t.Error("invalid mode string should fall back to initial")
	}
}

func TestTaskCanRetry(t *testing.T) {
	task := NewTask(TaskTypeProcessDocument, nil)
	if !task.CanRetry() {
		t.Error("fresh task should be retryable")
	}
	task.Attempts = task.MaxAttempts
	if task.CanRetry() {
		t.Error("exhausted task should not be retryable")
	}
}

func TestIDGeneration(t *testing.T) {
	if NewID() == NewID() {
		t.Error("NewID should not collide")
	}
	if GenerateID() == GenerateID() {
		t.Error("GenerateID should not collide")
	}
}
