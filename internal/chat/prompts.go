package chat

import (
	"fmt"
	"strings"

	"github.com/flightchat/backend/internal/models"
)

// systemPromptHeader frames the assistant role for every reasoning call.
const systemPromptHeader = `You are a professional MAVLink telemetry analysis assistant.
Your task is to help users analyze flight log data and answer questions about flight parameters, states, and events.

Guidelines:
1. Base answers on the provided telemetry data and keep them accurate.
2. If data is insufficient, request clarification instead of guessing.
3. Use professional terminology but keep answers easy to understand.
4. If anomalies or errors are detected, clearly call them out.

Reference: https://ardupilot.org/plane/docs/logmessages.html`

// buildSystemPrompt assembles the bounded context document: telemetry
// summary, anomaly hints, and a small sample of the retrieved messages.
func buildSystemPrompt(summary models.TelemetrySummary, anomaly *models.AnomalySummary, samples []models.TelemetryMessage, totalRetrieved int) string {
	var b strings.Builder
	b.WriteString(systemPromptHeader)

	b.WriteString("\n\nCurrent flight log info:\n")
	fmt.Fprintf(&b, "- Filename: %s\n", summary.Filename)
	fmt.Fprintf(&b, "- Total messages: %d\n", summary.TotalMessages)
	if len(summary.MessageTypes) > 0 {
		fmt.Fprintf(&b, "- Message types: %s\n", strings.Join(summary.MessageTypes, ", "))
	}
	fmt.Fprintf(&b, "- Time range: %.1f - %.1f (%.1f seconds)\n",
		summary.TimeRange.Start, summary.TimeRange.End, summary.TimeRange.Duration)

	b.WriteString("\nAnomaly summary (heuristic, use as hints for reasoning):\n")
	fmt.Fprintf(&b, "- Status: %s\n", anomaly.Status)
	fmt.Fprintf(&b, "- GPS loss events: %d, RC loss events: %d, high-severity errors: %d, battery excursions: %d\n",
		anomaly.GPSLossCount, anomaly.RCLossCount, anomaly.ErrorCount, anomaly.BatteryExcurs)
	if anomaly.BatteryTemp != nil {
		fmt.Fprintf(&b, "- Battery temp max: %.1fC\n", *anomaly.BatteryTemp)
	}
	if anomaly.Altitude.Valid {
		fmt.Fprintf(&b, "- Altitude range: min=%.1fm, max=%.1fm\n", anomaly.Altitude.Min, anomaly.Altitude.Max)
	}
	for _, ex := range anomaly.Examples {
		fmt.Fprintf(&b, "- Example: %s @ %.1fs: %s\n", ex.Category, ex.Timestamp, ex.Detail)
	}
	if len(anomaly.Notes) > 0 {
		fmt.Fprintf(&b, "- Notes: %s\n", strings.Join(anomaly.Notes, " | "))
	}

	if len(samples) > 0 {
		fmt.Fprintf(&b, "\nSample telemetry (%d of %d retrieved messages):\n", len(samples), totalRetrieved)
		for _, msg := range samples {
			fmt.Fprintf(&b, "- %s @ %.1fs: %v\n", msg.Type, msg.Timestamp, msg.Fields)
		}
	}

	b.WriteString(`
Use the telemetry summary and anomaly summary to:
- Look for sudden changes in altitude, battery temperature, or inconsistent GPS fix.
- Cross-check high-severity STATUSTEXT messages and RC signal quality issues.
- If evidence is insufficient, ask clarifying questions instead of guessing.`)

	return b.String()
}
