package llm

import (
	"encoding/json"
	"strings"
)

// EnvelopeInstructions is appended to every system prompt so the model
// replies with a machine-readable envelope instead of free-form markers.
const EnvelopeInstructions = `
Respond with a single JSON object in exactly this shape:

{
  "answer": "your answer text",
  "confidence": 0.0,
  "needs_clarification": false,
  "clarification_question": ""
}

Set "needs_clarification" to true and fill "clarification_question" when the
provided telemetry is insufficient to answer. Output valid JSON only, no
markdown fences, no extra text.`

type replyEnvelope struct {
	Answer                string   `json:"answer"`
	Confidence            *float64 `json:"confidence"`
	NeedsClarification    bool     `json:"needs_clarification"`
	ClarificationQuestion string   `json:"clarification_question"`
}

// ParseEnvelope interprets a raw model reply. Markdown code fences are
// stripped before decoding. A reply that is not the expected envelope
// degrades to a plain answer with no confidence and no clarification flag.
func ParseEnvelope(raw string) *ChatResponse {
	clean := strings.TrimSpace(raw)

	if strings.HasPrefix(clean, "```json") {
		clean = strings.TrimPrefix(clean, "```json")
	}
	if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```")
	}
	if strings.HasSuffix(clean, "```") {
		clean = strings.TrimSuffix(clean, "```")
	}
	clean = strings.TrimSpace(clean)

	if !strings.HasPrefix(clean, "{") {
		return &ChatResponse{Answer: strings.TrimSpace(raw)}
	}

	var env replyEnvelope
	if err := json.Unmarshal([]byte(clean), &env); err != nil {
		return &ChatResponse{Answer: strings.TrimSpace(raw)}
	}

	resp := &ChatResponse{
		Answer:                strings.TrimSpace(env.Answer),
		Confidence:            env.Confidence,
		NeedsClarification:    env.NeedsClarification,
		ClarificationQuestion: strings.TrimSpace(env.ClarificationQuestion),
	}
	if resp.Answer == "" {
		resp.Answer = strings.TrimSpace(raw)
	}
	if resp.NeedsClarification && resp.ClarificationQuestion == "" {
		resp.ClarificationQuestion = resp.Answer
	}
	return resp
}
