package store

import (
	"errors"
	"testing"

	"github.com/flightchat/backend/internal/models"
)

func TestMemoryFlightLogRepositoryLifecycle(t *testing.T) {
	repo := NewMemoryFlightLogRepository()

	if _, err := repo.GetByID("missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	log := &models.FlightLog{ID: "log-1", Filename: "flight.bin"}
	if err := repo.Save(log); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := repo.GetByID("log-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Filename != "flight.bin" {
		t.Errorf("Expected flight.bin, got %s", got.Filename)
	}

	logs, err := repo.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(logs) != 1 {
		t.Errorf("Expected 1 log, got %d", len(logs))
	}

	if err := repo.Delete("log-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := repo.Delete("log-1"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on repeat delete, got %v", err)
	}
}

func TestMemoryConversationRepositoryLifecycle(t *testing.T) {
	repo := NewMemoryConversationRepository()

	if _, err := repo.GetByID("missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	conv := &models.Conversation{ID: "c-1", State: models.StateNew}
	if err := repo.Save(conv); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := repo.GetByID("c-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.State != models.StateNew {
		t.Errorf("Expected state %s, got %s", models.StateNew, got.State)
	}

	if err := repo.Delete("c-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.GetByID("c-1"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}
