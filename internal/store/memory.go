package store

import (
	"sync"

	"github.com/flightchat/backend/internal/models"
)

// MemoryFlightLogRepository is the volatile in-process flight log store.
type MemoryFlightLogRepository struct {
	mu   sync.RWMutex
	logs map[string]*models.FlightLog
}

func NewMemoryFlightLogRepository() *MemoryFlightLogRepository {
	return &MemoryFlightLogRepository{
		logs: make(map[string]*models.FlightLog),
	}
}

func (r *MemoryFlightLogRepository) Save(log *models.FlightLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs[log.ID] = log
	return nil
}

func (r *MemoryFlightLogRepository) GetByID(fileID string) (*models.FlightLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	log, ok := r.logs[fileID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return log, nil
}

func (r *MemoryFlightLogRepository) Delete(fileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.logs[fileID]; !ok {
		return models.ErrNotFound
	}
	delete(r.logs, fileID)
	return nil
}

func (r *MemoryFlightLogRepository) List() ([]*models.FlightLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	logs := make([]*models.FlightLog, 0, len(r.logs))
	for _, log := range r.logs {
		logs = append(logs, log)
	}
	return logs, nil
}

// MemoryConversationRepository is the volatile in-process conversation store.
type MemoryConversationRepository struct {
	mu            sync.RWMutex
	conversations map[string]*models.Conversation
}

func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{
		conversations: make(map[string]*models.Conversation),
	}
}

func (r *MemoryConversationRepository) Save(conversation *models.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conversations[conversation.ID] = conversation
	return nil
}

func (r *MemoryConversationRepository) GetByID(conversationID string) (*models.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conv, ok := r.conversations[conversationID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return conv, nil
}

func (r *MemoryConversationRepository) Delete(conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conversations[conversationID]; !ok {
		return models.ErrNotFound
	}
	delete(r.conversations, conversationID)
	return nil
}
