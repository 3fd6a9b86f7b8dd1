package chat

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/flightchat/backend/internal/models"
	"github.com/flightchat/backend/internal/store"

	"github.com/google/uuid"
)

// ConversationManager owns dialogue state and turn-taking. Writes to one
// conversation are serialized through a per-ID mutex; the lock is never held
// across the reasoning call.
type ConversationManager struct {
	repo  store.ConversationRepository
	locks sync.Map // conversation ID -> *sync.Mutex
}

func NewConversationManager(repo store.ConversationRepository) *ConversationManager {
	return &ConversationManager{repo: repo}
}

// Resolve returns the conversation for the given ID, creating a new one when
// the ID is empty or unknown. A non-empty fileID explicitly (re)binds the
// conversation's active flight log; binding never changes otherwise.
func (cm *ConversationManager) Resolve(conversationID, fileID string) (*models.Conversation, error) {
	var conversation *models.Conversation

	if conversationID != "" {
		existing, err := cm.repo.GetByID(conversationID)
		if err == nil {
			conversation = existing
		} else if !errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("failed to resolve conversation: %w", err)
		}
	}

	if conversation == nil {
		now := time.Now().UTC()
		conversation = &models.Conversation{
			ID:        uuid.NewString(),
			State:     models.StateNew,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := cm.repo.Save(conversation); err != nil {
			return nil, fmt.Errorf("failed to create conversation: %w", err)
		}
	}

	if fileID != "" {
		var saveErr error
		cm.withLock(conversation.ID, func() {
			if fileID == conversation.FileID {
				return
			}
			conversation.FileID = fileID
			conversation.UpdatedAt = time.Now().UTC()
			saveErr = cm.repo.Save(conversation)
		})
		if saveErr != nil {
			return nil, fmt.Errorf("failed to rebind conversation: %w", saveErr)
		}
	}

	return conversation, nil
}

// AppendTurn appends one turn and applies the state transition: any turn
// moves NEW to ACTIVE; an agent turn moves to AWAITING_CLARIFICATION when it
// carries the clarification flag and back to ACTIVE when it does not.
func (cm *ConversationManager) AppendTurn(conversation *models.Conversation, role models.TurnRole, text string, clarification bool) {
	now := time.Now().UTC()
	conversation.Turns = append(conversation.Turns, models.Turn{
		Role:      role,
		Text:      text,
		Timestamp: now,
	})
	conversation.UpdatedAt = now

	if role == models.RoleAgent {
		if clarification {
			conversation.State = models.StateAwaitingClarification
		} else {
			conversation.State = models.StateActive
		}
		return
	}
	if conversation.State == models.StateNew {
		conversation.State = models.StateActive
	}
}

// CommitTurns appends the completed user/agent turn pair and persists the
// conversation, serialized per conversation ID. Turns are only committed
// after the reasoning call resolves, so an aborted attempt leaves no partial
// turn.
func (cm *ConversationManager) CommitTurns(conversation *models.Conversation, question, answer string, clarification bool) error {
	var saveErr error
	cm.withLock(conversation.ID, func() {
		cm.AppendTurn(conversation, models.RoleUser, question, false)
		cm.AppendTurn(conversation, models.RoleAgent, answer, clarification)
		saveErr = cm.repo.Save(conversation)
	})
	if saveErr != nil {
		return fmt.Errorf("failed to save conversation: %w", saveErr)
	}
	return nil
}

// Snapshot returns the bound flight log ID and a copy of the full turn
// sequence, read under the per-conversation lock so a concurrent commit
// cannot tear either. Bounding context size is the orchestrator's concern.
func (cm *ConversationManager) Snapshot(conversation *models.Conversation) (string, []models.Turn) {
	var fileID string
	var history []models.Turn
	cm.withLock(conversation.ID, func() {
		fileID = conversation.FileID
		history = make([]models.Turn, len(conversation.Turns))
		copy(history, conversation.Turns)
	})
	return fileID, history
}

// HistoryForReasoning returns the full, unredacted turn sequence.
func (cm *ConversationManager) HistoryForReasoning(conversation *models.Conversation) []models.Turn {
	_, history := cm.Snapshot(conversation)
	return history
}

func (cm *ConversationManager) withLock(conversationID string, fn func()) {
	muAny, _ := cm.locks.LoadOrStore(conversationID, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()
	fn()
}
