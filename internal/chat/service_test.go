package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/flightchat/backend/internal/llm"
	"github.com/flightchat/backend/internal/models"
	"github.com/flightchat/backend/internal/store"
)

// fakeClient is a scriptable reasoning capability: it fails the first
// failTransient calls with a retryable error, then returns the canned
// response.
type fakeClient struct {
	mu            sync.Mutex
	calls         int
	failTransient int
	permanentErr  error
	response      llm.ChatResponse
	lastRequest   llm.ChatRequest
}

func (f *fakeClient) Name() string { return "fake" }

func (f *fakeClient) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastRequest = req
	if f.permanentErr != nil {
		return nil, f.permanentErr
	}
	if f.calls <= f.failTransient {
		return nil, &llm.TransientError{Err: errors.New("capability overloaded")}
	}
	resp := f.response
	return &resp, nil
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func flightLogFixture() *models.FlightLog {
	return &models.FlightLog{
		ID:       "log-1",
		Filename: "flight.bin",
		Messages: []models.TelemetryMessage{
			{Type: models.TypeGPSRawInt, Timestamp: 0.0, Fields: map[string]any{"fix_type": 3.0, "alt": 50.0}},
			{Type: models.TypeGPSRawInt, Timestamp: 1.0, Fields: map[string]any{"fix_type": 1.0, "alt": 55.0}},
			{Type: models.TypeGPSRawInt, Timestamp: 2.0, Fields: map[string]any{"fix_type": 3.0, "alt": 60.0}},
			{Type: models.TypeBatteryStatus, Timestamp: 3.0, Fields: map[string]any{"temperature": 85.0}},
		},
		TimeRange: models.TimeRange{Start: 0.0, End: 3.0, Duration: 3.0},
	}
}

func newServiceFixture(t *testing.T, client llm.Client) (*Service, store.ConversationRepository) {
	t.Helper()
	flightLogs := store.NewMemoryFlightLogRepository()
	if err := flightLogs.Save(flightLogFixture()); err != nil {
		t.Fatalf("failed to seed flight log: %v", err)
	}
	conversations := store.NewMemoryConversationRepository()
	return NewService(flightLogs, conversations, client), conversations
}

func TestAnswerAssemblesAnomalyContext(t *testing.T) {
	t.Setenv("ANOMALY_BATTERY_TEMP_LIMIT", "80")

	client := &fakeClient{response: llm.ChatResponse{Answer: "The battery peaked at 85.0C during the flight."}}
	service, conversations := newServiceFixture(t, client)

	result, err := service.Answer(context.Background(), "Were there any battery problems?", "", "log-1")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}

	if result.Answer != "The battery peaked at 85.0C during the flight." {
		t.Errorf("Unexpected answer: %q", result.Answer)
	}
	if result.Confidence != 0.8 {
		t.Errorf("Expected default confidence 0.8, got %v", result.Confidence)
	}
	if result.RequiresClarification {
		t.Error("Expected no clarification request")
	}
	if len(result.Sources) != 1 || !strings.Contains(result.Sources[0], "flight.bin") {
		t.Errorf("Expected the flight log as source, got %v", result.Sources)
	}

	// The capability must see the anomaly findings, not raw payloads alone.
	system := client.lastRequest.System
	if !strings.Contains(system, "85.0") {
		t.Errorf("Expected battery temperature in system context, got:\n%s", system)
	}
	if !strings.Contains(system, llm.EnvelopeInstructions) {
		t.Error("Expected reply envelope instructions in system context")
	}

	// Both turns committed after the call resolved.
	conversation, err := conversations.GetByID(result.ConversationID)
	if err != nil {
		t.Fatalf("Conversation not persisted: %v", err)
	}
	if len(conversation.Turns) != 2 {
		t.Fatalf("Expected 2 turns, got %d", len(conversation.Turns))
	}
	if conversation.Turns[0].Role != models.RoleUser || conversation.Turns[1].Role != models.RoleAgent {
		t.Error("Expected user turn followed by agent turn")
	}
	if conversation.State != models.StateActive {
		t.Errorf("Expected state %s, got %s", models.StateActive, conversation.State)
	}
}

func TestAnswerEmptyQuestionShortCircuits(t *testing.T) {
	client := &fakeClient{}
	service, _ := newServiceFixture(t, client)

	result, err := service.Answer(context.Background(), "   ", "", "log-1")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if result.Answer != "Please enter a valid question." {
		t.Errorf("Unexpected answer: %q", result.Answer)
	}
	if result.Confidence != 0.0 {
		t.Errorf("Expected confidence 0.0, got %v", result.Confidence)
	}
	if result.ConversationID == "" {
		t.Error("Expected a conversation ID even for an empty question")
	}
	if client.callCount() != 0 {
		t.Errorf("Expected no capability calls, got %d", client.callCount())
	}
}

func TestAnswerWithoutBoundFlightLog(t *testing.T) {
	service, _ := newServiceFixture(t, &fakeClient{})

	_, err := service.Answer(context.Background(), "How high did it fly?", "", "")
	if !errors.Is(err, models.ErrMissingContext) {
		t.Errorf("Expected ErrMissingContext, got %v", err)
	}
}

func TestAnswerUnknownFlightLog(t *testing.T) {
	service, _ := newServiceFixture(t, &fakeClient{})

	_, err := service.Answer(context.Background(), "How high did it fly?", "", "no-such-log")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestAnswerRetriesTransientFailures(t *testing.T) {
	client := &fakeClient{
		failTransient: 2,
		response:      llm.ChatResponse{Answer: "Recovered."},
	}
	service, _ := newServiceFixture(t, client)

	result, err := service.Answer(context.Background(), "What was the maximum altitude?", "", "log-1")
	if err != nil {
		t.Fatalf("Answer failed after retries: %v", err)
	}
	if result.Answer != "Recovered." {
		t.Errorf("Unexpected answer: %q", result.Answer)
	}
	if client.callCount() != 3 {
		t.Errorf("Expected 3 attempts, got %d", client.callCount())
	}
}

func TestAnswerReasoningExhaustion(t *testing.T) {
	client := &fakeClient{failTransient: 100}
	service, conversations := newServiceFixture(t, client)

	// Pin the conversation identity first so the failed transaction below can
	// be inspected.
	opening, err := service.Answer(context.Background(), "", "", "log-1")
	if err != nil {
		t.Fatalf("Failed to open conversation: %v", err)
	}

	result, err := service.Answer(context.Background(), "What happened?", opening.ConversationID, "")
	if !errors.Is(err, models.ErrReasoningUnavailable) {
		t.Fatalf("Expected ErrReasoningUnavailable, got %v", err)
	}
	if result != nil {
		t.Error("Expected nil result on exhaustion")
	}
	if client.callCount() != 3 {
		t.Errorf("Expected 3 attempts, got %d", client.callCount())
	}

	// A failed transaction commits nothing.
	conversation, err := conversations.GetByID(opening.ConversationID)
	if err != nil {
		t.Fatalf("Conversation not persisted: %v", err)
	}
	if len(conversation.Turns) != 0 {
		t.Errorf("Expected no committed turns, got %d", len(conversation.Turns))
	}
}

func TestAnswerDoesNotRetryPermanentFailures(t *testing.T) {
	client := &fakeClient{permanentErr: errors.New("model not found")}
	service, _ := newServiceFixture(t, client)

	_, err := service.Answer(context.Background(), "What happened?", "", "log-1")
	if !errors.Is(err, models.ErrReasoningUnavailable) {
		t.Fatalf("Expected ErrReasoningUnavailable, got %v", err)
	}
	if client.callCount() != 1 {
		t.Errorf("Expected a single attempt, got %d", client.callCount())
	}
}

func TestAnswerClarificationFlow(t *testing.T) {
	client := &fakeClient{response: llm.ChatResponse{
		Answer:                "Which part of the flight do you mean?",
		NeedsClarification:    true,
		ClarificationQuestion: "Which part of the flight do you mean?",
	}}
	service, conversations := newServiceFixture(t, client)

	result, err := service.Answer(context.Background(), "Was it ok?", "", "log-1")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if !result.RequiresClarification {
		t.Error("Expected clarification request")
	}
	if result.ClarificationQuestion != "Which part of the flight do you mean?" {
		t.Errorf("Unexpected clarification question: %q", result.ClarificationQuestion)
	}
	if result.Confidence != 0.5 {
		t.Errorf("Expected clarification confidence 0.5, got %v", result.Confidence)
	}

	conversation, err := conversations.GetByID(result.ConversationID)
	if err != nil {
		t.Fatalf("Conversation not persisted: %v", err)
	}
	if conversation.State != models.StateAwaitingClarification {
		t.Errorf("Expected state %s, got %s", models.StateAwaitingClarification, conversation.State)
	}

	// Answering the clarification resumes the dialogue.
	client.response = llm.ChatResponse{Answer: "During cruise everything was nominal."}
	followup, err := service.Answer(context.Background(), "During cruise", result.ConversationID, "")
	if err != nil {
		t.Fatalf("Followup failed: %v", err)
	}
	if followup.RequiresClarification {
		t.Error("Expected followup to resolve the clarification")
	}

	conversation, _ = conversations.GetByID(result.ConversationID)
	if conversation.State != models.StateActive {
		t.Errorf("Expected state %s after resolution, got %s", models.StateActive, conversation.State)
	}
	if len(conversation.Turns) != 4 {
		t.Errorf("Expected 4 turns, got %d", len(conversation.Turns))
	}
}

func TestAnswerConcurrentOnOneConversation(t *testing.T) {
	client := &fakeClient{response: llm.ChatResponse{Answer: "Altitude peaked at 120m."}}
	service, conversations := newServiceFixture(t, client)

	opening, err := service.Answer(context.Background(), "", "", "log-1")
	if err != nil {
		t.Fatalf("Failed to open conversation: %v", err)
	}

	const callers = 8
	const rounds = 20
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				if _, err := service.Answer(context.Background(), "What was the maximum altitude?", opening.ConversationID, ""); err != nil {
					t.Errorf("Answer failed: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	conversation, err := conversations.GetByID(opening.ConversationID)
	if err != nil {
		t.Fatalf("Conversation not persisted: %v", err)
	}
	if len(conversation.Turns) != callers*rounds*2 {
		t.Fatalf("Expected %d turns, got %d", callers*rounds*2, len(conversation.Turns))
	}
	// Every commit is a user/agent pair; interleaved partial writes would
	// break the alternation.
	for i, turn := range conversation.Turns {
		expected := models.RoleUser
		if i%2 == 1 {
			expected = models.RoleAgent
		}
		if turn.Role != expected {
			t.Fatalf("Turn %d: expected role %s, got %s", i, expected, turn.Role)
		}
	}
}

func TestAnswerExplicitConfidenceWins(t *testing.T) {
	confidence := 0.95
	client := &fakeClient{response: llm.ChatResponse{Answer: "Sure.", Confidence: &confidence}}
	service, _ := newServiceFixture(t, client)

	result, err := service.Answer(context.Background(), "How was the GPS?", "", "log-1")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if result.Confidence != 0.95 {
		t.Errorf("Expected confidence 0.95, got %v", result.Confidence)
	}
}

func TestDeleteFlightLogInvalidatesAnalysis(t *testing.T) {
	service, _ := newServiceFixture(t, &fakeClient{})

	if err := service.DeleteFlightLog("log-1"); err != nil {
		t.Fatalf("DeleteFlightLog failed: %v", err)
	}
	if _, _, err := service.GetTelemetrySummary("log-1"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := service.DeleteFlightLog("log-1"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on repeat delete, got %v", err)
	}
}
