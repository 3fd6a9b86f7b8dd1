package analysis

import (
	"sort"

	"github.com/flightchat/backend/internal/models"
)

// Summarizer computes cheap aggregate statistics over a flight log. It is
// pure and recomputed per call; unlike the anomaly analyzer there is no
// caching requirement.
type Summarizer struct{}

func NewSummarizer() *Summarizer {
	return &Summarizer{}
}

// Summarize returns the aggregate view of one flight log.
func (s *Summarizer) Summarize(log *models.FlightLog) models.TelemetrySummary {
	types := log.TypesPresent()
	sort.Strings(types)

	return models.TelemetrySummary{
		FileID:        log.ID,
		Filename:      log.Filename,
		TotalMessages: log.MessageCount(),
		MessageTypes:  types,
		TimeRange:     log.TimeRange,
	}
}
