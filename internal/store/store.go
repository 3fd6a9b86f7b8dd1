package store

import "github.com/flightchat/backend/internal/models"

// FlightLogRepository is the keyed store for parsed flight logs. Logs are
// immutable once saved; Delete is the eviction path.
type FlightLogRepository interface {
	Save(log *models.FlightLog) error
	GetByID(fileID string) (*models.FlightLog, error)
	Delete(fileID string) error
	List() ([]*models.FlightLog, error)
}

// ConversationRepository is the keyed store for dialogue state. Callers
// serialize writes per conversation ID; implementations only need to make
// individual Save/GetByID calls safe for concurrent use.
type ConversationRepository interface {
	Save(conversation *models.Conversation) error
	GetByID(conversationID string) (*models.Conversation, error)
	Delete(conversationID string) error
}
