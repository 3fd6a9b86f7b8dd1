package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/flightchat/backend/internal/analysis"
	"github.com/flightchat/backend/internal/inference"
	"github.com/flightchat/backend/internal/llm"
	"github.com/flightchat/backend/internal/logger"
	"github.com/flightchat/backend/internal/mavlink"
	"github.com/flightchat/backend/internal/models"
	"github.com/flightchat/backend/internal/store"
)

const (
	maxRetrievedMessages = 1000 // local retrieval bound
	maxSampleMessages    = 10   // forwarded to the reasoning capability

	defaultConfidence       = 0.8
	clarificationConfidence = 0.5

	reasoningAttempts = 3
	reasoningBackoff  = 500 * time.Millisecond
)

// Service is the query orchestrator: it binds a flight log and a
// conversation, runs inference and analysis, invokes the reasoning
// capability, and updates conversation state.
type Service struct {
	flightLogs    store.FlightLogRepository
	conversations *ConversationManager
	inference     *inference.Engine
	analyzer      *analysis.Analyzer
	summarizer    *analysis.Summarizer
	client        llm.Client
}

func NewService(flightLogs store.FlightLogRepository, conversations store.ConversationRepository, client llm.Client) *Service {
	return &Service{
		flightLogs:    flightLogs,
		conversations: NewConversationManager(conversations),
		inference:     inference.NewEngine(),
		analyzer:      analysis.NewAnalyzer(),
		summarizer:    analysis.NewSummarizer(),
		client:        client,
	}
}

// Ingest parses a raw log stream and registers the result in the store.
func (s *Service) Ingest(raw []byte, filename string) (*models.FlightLog, error) {
	log, err := mavlink.Parse(raw, filename)
	if err != nil {
		return nil, err
	}
	if err := s.flightLogs.Save(log); err != nil {
		return nil, fmt.Errorf("failed to store flight log: %w", err)
	}
	logger.WithFlightLog(log.ID, log.Filename).Infof("Flight log ingested: %d messages, %.1fs", log.MessageCount(), log.TimeRange.Duration)
	return log, nil
}

// Answer runs one question transaction. Errors carry stable kinds:
// ErrMissingContext when no flight log is bound, ErrNotFound for an unknown
// log, ErrReasoningUnavailable when the capability exhausts retries.
func (s *Service) Answer(ctx context.Context, question, conversationID, fileID string) (*models.QueryResult, error) {
	conversation, err := s.conversations.Resolve(conversationID, fileID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(question) == "" {
		return &models.QueryResult{
			Answer:         "Please enter a valid question.",
			ConversationID: conversation.ID,
			Confidence:     0.0,
			Sources:        []string{},
		}, nil
	}

	// Read the binding and the history in one locked snapshot; a concurrent
	// commit on the same conversation must not tear either.
	boundFileID, history := s.conversations.Snapshot(conversation)
	if boundFileID == "" {
		return nil, models.ErrMissingContext
	}

	flightLog, err := s.flightLogs.GetByID(boundFileID)
	if err != nil {
		return nil, err
	}

	types := s.inference.Infer(question)
	retrieved := s.retrieve(flightLog, types)

	anomaly := s.analyzer.Summarize(flightLog)
	summary := s.summarizer.Summarize(flightLog)

	samples := retrieved
	if len(samples) > maxSampleMessages {
		samples = samples[:maxSampleMessages]
	}
	system := buildSystemPrompt(summary, anomaly, samples, len(retrieved)) + "\n" + llm.EnvelopeInstructions

	response, err := s.invokeReasoning(ctx, llm.ChatRequest{
		System:   system,
		History:  history,
		Question: question,
	})
	if err != nil {
		return nil, err
	}

	// Turns are committed only after the capability call resolves, so a
	// cancelled request leaves no partial turn.
	if err := s.conversations.CommitTurns(conversation, question, response.Answer, response.NeedsClarification); err != nil {
		return nil, err
	}

	confidence := defaultConfidence
	if response.NeedsClarification {
		confidence = clarificationConfidence
	}
	if response.Confidence != nil {
		confidence = *response.Confidence
	}

	return &models.QueryResult{
		Answer:                response.Answer,
		ConversationID:        conversation.ID,
		Confidence:            confidence,
		Sources:               []string{fmt.Sprintf("Flight log: %s (%s)", flightLog.Filename, flightLog.ID)},
		RequiresClarification: response.NeedsClarification,
		ClarificationQuestion: response.ClarificationQuestion,
	}, nil
}

// GetTelemetrySummary returns both the aggregate and the anomaly views of a
// stored flight log.
func (s *Service) GetTelemetrySummary(fileID string) (*models.TelemetrySummary, *models.AnomalySummary, error) {
	flightLog, err := s.flightLogs.GetByID(fileID)
	if err != nil {
		return nil, nil, err
	}
	summary := s.summarizer.Summarize(flightLog)
	anomaly := s.analyzer.Summarize(flightLog)
	return &summary, anomaly, nil
}

// DeleteFlightLog evicts a log and invalidates its cached anomaly summary.
func (s *Service) DeleteFlightLog(fileID string) error {
	if err := s.flightLogs.Delete(fileID); err != nil {
		return err
	}
	s.analyzer.Invalidate(fileID)
	return nil
}

// retrieve pulls messages for the inferred types, bounded so the context
// assembly stays cheap even for large logs.
func (s *Service) retrieve(flightLog *models.FlightLog, types []string) []models.TelemetryMessage {
	var retrieved []models.TelemetryMessage
	for _, t := range types {
		for msg := range flightLog.MessagesOfType(t) {
			retrieved = append(retrieved, msg)
			if len(retrieved) >= maxRetrievedMessages {
				return retrieved
			}
		}
	}
	return retrieved
}

// invokeReasoning calls the capability with bounded retries and backoff for
// transient failures. Caller-input errors are never retried.
func (s *Service) invokeReasoning(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	var lastErr error
	backoff := reasoningBackoff
	for attempt := 1; attempt <= reasoningAttempts; attempt++ {
		response, err := s.client.Chat(ctx, req)
		if err == nil {
			return response, nil
		}
		lastErr = err

		if !llm.IsTransient(err) {
			break
		}
		logger.WithLLM(s.client.Name(), "chat").Warnf("Reasoning attempt %d/%d failed: %v", attempt, reasoningAttempts, err)
		if attempt == reasoningAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", models.ErrReasoningUnavailable, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("%w: %v", models.ErrReasoningUnavailable, lastErr)
}
