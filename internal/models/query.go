package models

// QueryResult is the immutable outcome of one answer transaction.
type QueryResult struct {
	Answer                string   `json:"answer"`
	ConversationID        string   `json:"conversationId"`
	Confidence            float64  `json:"confidence"` // 0.0 to 1.0
	Sources               []string `json:"sources"`
	RequiresClarification bool     `json:"requiresClarification"`
	ClarificationQuestion string   `json:"clarificationQuestion,omitempty"`
}
