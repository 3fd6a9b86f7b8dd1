package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// Conversation store schema. The server also runs AutoMigrate on startup;
// this command exists for environments where the app user has no DDL rights.
var statements = []string{
	`CREATE TABLE IF NOT EXISTS conversations (
		id         TEXT PRIMARY KEY,
		file_id    TEXT,
		state      TEXT,
		created_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS conversation_turns (
		id              BIGSERIAL PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		seq             BIGINT NOT NULL,
		role            TEXT,
		text            TEXT,
		timestamp       TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_conversation_turns_conversation_id
		ON conversation_turns (conversation_id)`,
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	log.Println("Running database migrations...")
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	}
	log.Println("Database migrations completed successfully")
}
