package llm

import "testing"

func TestParseEnvelopeWellFormed(t *testing.T) {
	raw := `{"answer": "Max altitude was 120m.", "confidence": 0.9, "needs_clarification": false, "clarification_question": ""}`

	resp := ParseEnvelope(raw)
	if resp.Answer != "Max altitude was 120m." {
		t.Errorf("Unexpected answer: %q", resp.Answer)
	}
	if resp.Confidence == nil || *resp.Confidence != 0.9 {
		t.Errorf("Expected confidence 0.9, got %v", resp.Confidence)
	}
	if resp.NeedsClarification {
		t.Error("Expected no clarification flag")
	}
}

func TestParseEnvelopeClarification(t *testing.T) {
	raw := `{"answer": "I need more detail.", "needs_clarification": true, "clarification_question": "Which battery cell do you mean?"}`

	resp := ParseEnvelope(raw)
	if !resp.NeedsClarification {
		t.Error("Expected clarification flag")
	}
	if resp.ClarificationQuestion != "Which battery cell do you mean?" {
		t.Errorf("Unexpected clarification question: %q", resp.ClarificationQuestion)
	}
	if resp.Confidence != nil {
		t.Errorf("Expected no confidence supplied, got %v", *resp.Confidence)
	}
}

func TestParseEnvelopeStripsMarkdownFences(t *testing.T) {
	raw := "```json\n{\"answer\": \"Flight lasted 210 seconds.\", \"needs_clarification\": false}\n```"

	resp := ParseEnvelope(raw)
	if resp.Answer != "Flight lasted 210 seconds." {
		t.Errorf("Unexpected answer: %q", resp.Answer)
	}
}

func TestParseEnvelopeFallsBackToPlainText(t *testing.T) {
	tests := []string{
		"The maximum altitude was 120 meters.",
		"{not valid json",
	}
	for _, raw := range tests {
		resp := ParseEnvelope(raw)
		if resp.Answer != raw {
			t.Errorf("Expected raw text fallback for %q, got %q", raw, resp.Answer)
		}
		if resp.NeedsClarification {
			t.Errorf("Plain text must not set the clarification flag: %q", raw)
		}
	}
}

func TestParseEnvelopeClarificationQuestionDefaultsToAnswer(t *testing.T) {
	raw := `{"answer": "Could you tell me the battery ID?", "needs_clarification": true}`

	resp := ParseEnvelope(raw)
	if resp.ClarificationQuestion != "Could you tell me the battery ID?" {
		t.Errorf("Expected clarification question to default to answer, got %q", resp.ClarificationQuestion)
	}
}
