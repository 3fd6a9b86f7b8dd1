package store

import (
	"fmt"
	"os"
	"time"

	"github.com/flightchat/backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// conversationRecord is the durable row shape for a conversation.
type conversationRecord struct {
	ID        string `gorm:"primaryKey"`
	FileID    string
	State     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type turnRecord struct {
	ID             uint   `gorm:"primaryKey"`
	ConversationID string `gorm:"index;not null"`
	Seq            int    `gorm:"not null"`
	Role           string
	Text           string `gorm:"type:text"`
	Timestamp      time.Time
}

func (conversationRecord) TableName() string {
	return "conversations"
}

func (turnRecord) TableName() string {
	return "conversation_turns"
}

// Connect opens the configured Postgres database using the DB_* environment
// variables.
func Connect() (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Error),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// PostgresConversationRepository is the durable conversation store. Flight
// logs stay in memory (they are large, immutable, and rebuilt on upload);
// conversations survive restarts.
type PostgresConversationRepository struct {
	db *gorm.DB
}

func NewPostgresConversationRepository(db *gorm.DB) (*PostgresConversationRepository, error) {
	if err := db.AutoMigrate(&conversationRecord{}, &turnRecord{}); err != nil {
		return nil, fmt.Errorf("conversation migration failed: %w", err)
	}
	return &PostgresConversationRepository{db: db}, nil
}

func (r *PostgresConversationRepository) Save(conversation *models.Conversation) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		record := conversationRecord{
			ID:        conversation.ID,
			FileID:    conversation.FileID,
			State:     string(conversation.State),
			CreatedAt: conversation.CreatedAt,
			UpdatedAt: conversation.UpdatedAt,
		}
		if err := tx.Save(&record).Error; err != nil {
			return fmt.Errorf("failed to save conversation: %w", err)
		}

		// Turns are append-only: persist only the ones past the stored count.
		var stored int64
		if err := tx.Model(&turnRecord{}).Where("conversation_id = ?", conversation.ID).Count(&stored).Error; err != nil {
			return fmt.Errorf("failed to count turns: %w", err)
		}
		for seq := int(stored); seq < len(conversation.Turns); seq++ {
			turn := conversation.Turns[seq]
			rec := turnRecord{
				ConversationID: conversation.ID,
				Seq:            seq,
				Role:           string(turn.Role),
				Text:           turn.Text,
				Timestamp:      turn.Timestamp,
			}
			if err := tx.Create(&rec).Error; err != nil {
				return fmt.Errorf("failed to save turn: %w", err)
			}
		}
		return nil
	})
}

func (r *PostgresConversationRepository) GetByID(conversationID string) (*models.Conversation, error) {
	var record conversationRecord
	if err := r.db.First(&record, "id = ?", conversationID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	var turnRecords []turnRecord
	if err := r.db.Where("conversation_id = ?", conversationID).Order("seq").Find(&turnRecords).Error; err != nil {
		return nil, fmt.Errorf("failed to load turns: %w", err)
	}

	conversation := &models.Conversation{
		ID:        record.ID,
		FileID:    record.FileID,
		State:     models.ConversationState(record.State),
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
	for _, tr := range turnRecords {
		conversation.Turns = append(conversation.Turns, models.Turn{
			Role:      models.TurnRole(tr.Role),
			Text:      tr.Text,
			Timestamp: tr.Timestamp,
		})
	}
	return conversation, nil
}

func (r *PostgresConversationRepository) Delete(conversationID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", conversationID).Delete(&turnRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete turns: %w", err)
		}
		result := tx.Delete(&conversationRecord{}, "id = ?", conversationID)
		if result.Error != nil {
			return fmt.Errorf("failed to delete conversation: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return models.ErrNotFound
		}
		return nil
	})
}
