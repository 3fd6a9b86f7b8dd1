package analysis

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/flightchat/backend/internal/logger"
	"github.com/flightchat/backend/internal/models"

	"golang.org/x/sync/singleflight"
)

const maxAnomalyExamples = 5

// Message types the heuristics read. A log containing none of these yields
// an insufficient-data summary.
var anomalyInputTypes = []string{
	models.TypeGPSRawInt,
	models.TypeGlobalPosInt,
	models.TypeRCChannels,
	models.TypeBatteryStatus,
	models.TypeStatusText,
}

// Analyzer computes heuristic anomaly summaries, memoized per flight log ID.
// Concurrent first requests for the same ID collapse into one computation.
type Analyzer struct {
	batteryTempLimit float64 // degC
	rcRSSIFloor      float64
	severityFloor    float64 // STATUSTEXT numeric severity at or above counts

	mu       sync.RWMutex
	cache    map[string]*models.AnomalySummary
	group    singleflight.Group
	computes atomic.Int64
}

// NewAnalyzer returns an analyzer with thresholds from the environment or
// defaults (battery 60 degC, RSSI floor 50, severity 4).
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		batteryTempLimit: envFloat("ANOMALY_BATTERY_TEMP_LIMIT", 60),
		rcRSSIFloor:      envFloat("ANOMALY_RC_RSSI_FLOOR", 50),
		severityFloor:    envFloat("ANOMALY_SEVERITY_FLOOR", 4),
		cache:            make(map[string]*models.AnomalySummary),
	}
}

func envFloat(key string, def float64) float64 {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v
		}
	}
	return def
}

// Summarize returns the cached anomaly summary for the log, computing it on
// first request. It never fails for a structurally valid flight log.
func (a *Analyzer) Summarize(log *models.FlightLog) *models.AnomalySummary {
	a.mu.RLock()
	cached, ok := a.cache[log.ID]
	a.mu.RUnlock()
	if ok {
		return cached
	}

	v, _, _ := a.group.Do(log.ID, func() (any, error) {
		a.mu.RLock()
		cached, ok := a.cache[log.ID]
		a.mu.RUnlock()
		if ok {
			return cached, nil
		}

		summary := a.compute(log)
		a.mu.Lock()
		a.cache[log.ID] = summary
		a.mu.Unlock()

		logger.WithFlightLog(log.ID, log.Filename).Debugf(
			"Anomaly summary computed: status=%s gps_loss=%d rc_loss=%d errors=%d",
			summary.Status, summary.GPSLossCount, summary.RCLossCount, summary.ErrorCount)
		return summary, nil
	})
	return v.(*models.AnomalySummary)
}

// Invalidate drops the cached summary for a log, or all summaries when
// fileID is empty.
func (a *Analyzer) Invalidate(fileID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if fileID == "" {
		a.cache = make(map[string]*models.AnomalySummary)
		return
	}
	delete(a.cache, fileID)
}

// Computations returns how many times a summary has actually been computed.
func (a *Analyzer) Computations() int64 {
	return a.computes.Load()
}

func (a *Analyzer) compute(log *models.FlightLog) *models.AnomalySummary {
	a.computes.Add(1)

	summary := &models.AnomalySummary{FileID: log.ID}

	hasInput := false
	present := make(map[string]bool)
	for _, t := range log.TypesPresent() {
		present[t] = true
	}
	for _, t := range anomalyInputTypes {
		if present[t] {
			hasInput = true
			break
		}
	}
	if !hasInput {
		summary.Status = models.AnomalyStatusInsufficientData
		summary.Notes = append(summary.Notes, "No telemetry relevant to anomaly heuristics available.")
		return summary
	}

	addExample := func(category string, ts float64, detail string) {
		if len(summary.Examples) < maxAnomalyExamples {
			summary.Examples = append(summary.Examples, models.AnomalyEvent{
				Category:  category,
				Timestamp: ts,
				Detail:    detail,
			})
		}
	}

	// GPS fix loss: count transitions into a degraded/no-fix state.
	gpsOK := true
	for msg := range log.MessagesOfType(models.TypeGPSRawInt) {
		fix, ok := msg.Float("fix_type")
		if !ok {
			continue
		}
		lost := fix < 2
		if lost && gpsOK {
			summary.GPSLossCount++
			if summary.GPSLossFirst == nil {
				ts := msg.Timestamp
				summary.GPSLossFirst = &ts
			}
			addExample("gps_loss", msg.Timestamp, fmt.Sprintf("GPS fix lost (fix_type=%.0f)", fix))
		}
		gpsOK = !lost

		if alt, ok := msg.Float("alt"); ok {
			trackAltitude(&summary.Altitude, alt)
		}
	}

	for msg := range log.MessagesOfType(models.TypeGlobalPosInt) {
		if alt, ok := msg.Float("alt"); ok {
			trackAltitude(&summary.Altitude, alt)
		}
	}

	// RC link loss: count transitions into a no-input/weak-signal state.
	rcOK := true
	for msg := range log.MessagesOfType(models.TypeRCChannels) {
		rssi, ok := msg.Float("rssi")
		if !ok {
			continue
		}
		lost := rssi < a.rcRSSIFloor
		if lost && rcOK {
			summary.RCLossCount++
			if summary.RCLossFirst == nil {
				ts := msg.Timestamp
				summary.RCLossFirst = &ts
			}
			addExample("rc_loss", msg.Timestamp, fmt.Sprintf("RC signal lost (rssi=%.0f)", rssi))
		}
		rcOK = !lost
	}

	// Battery temperature excursions and observed maximum.
	for msg := range log.MessagesOfType(models.TypeBatteryStatus) {
		temp, ok := msg.Float("temperature")
		if !ok {
			continue
		}
		if summary.BatteryTemp == nil || temp > *summary.BatteryTemp {
			t := temp
			summary.BatteryTemp = &t
		}
		if temp >= a.batteryTempLimit {
			summary.BatteryExcurs++
			addExample("battery_overheat", msg.Timestamp, fmt.Sprintf("Battery temperature high (%.1fC)", temp))
		}
	}

	// High-severity status text events.
	for msg := range log.MessagesOfType(models.TypeStatusText) {
		sev, ok := msg.Float("severity")
		if !ok || sev < a.severityFloor {
			continue
		}
		summary.ErrorCount++
		text, _ := msg.Text("text")
		addExample("status_error", msg.Timestamp, fmt.Sprintf("Severity %.0f: %s", sev, text))
	}

	if summary.GPSLossCount > 0 || summary.RCLossCount > 0 ||
		summary.ErrorCount > 0 || summary.BatteryExcurs > 0 {
		summary.Status = models.AnomalyStatusDetected
		summary.Notes = append(summary.Notes, "Heuristic findings included; verify with downstream reasoning.")
	} else {
		summary.Status = models.AnomalyStatusNominal
		summary.Notes = append(summary.Notes, "No obvious anomalies detected by heuristics.")
	}

	sort.SliceStable(summary.Examples, func(i, j int) bool {
		return summary.Examples[i].Timestamp < summary.Examples[j].Timestamp
	})
	return summary
}

func trackAltitude(r *models.AltitudeRange, alt float64) {
	if !r.Valid {
		r.Min, r.Max, r.Valid = alt, alt, true
		return
	}
	if alt < r.Min {
		r.Min = alt
	}
	if alt > r.Max {
		r.Max = alt
	}
}
