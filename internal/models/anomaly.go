package models

// AnomalyStatus is the overall verdict of the heuristic analyzer.
type AnomalyStatus string

const (
	AnomalyStatusNominal          AnomalyStatus = "nominal"
	AnomalyStatusDetected         AnomalyStatus = "anomalies-detected"
	AnomalyStatusInsufficientData AnomalyStatus = "insufficient-data"
)

// AnomalyEvent is one representative example of a detected pattern.
type AnomalyEvent struct {
	Category  string  `json:"category"`
	Timestamp float64 `json:"timestamp"`
	Detail    string  `json:"detail"`
}

// AltitudeRange is min/max altitude in meters; Valid is false when no
// position messages were present.
type AltitudeRange struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Valid bool    `json:"valid"`
}

// AnomalySummary is the cached heuristic digest of one flight log. It is a
// deterministic function of the log's content and is advisory only: the
// reasoning capability draws conclusions, not this structure.
type AnomalySummary struct {
	FileID        string         `json:"fileId"`
	Status        AnomalyStatus  `json:"status"`
	GPSLossCount  int            `json:"gpsLossCount"`
	GPSLossFirst  *float64       `json:"gpsLossFirst,omitempty"`
	RCLossCount   int            `json:"rcLossCount"`
	RCLossFirst   *float64       `json:"rcLossFirst,omitempty"`
	ErrorCount    int            `json:"errorCount"` // high-severity STATUSTEXT
	BatteryTemp   *float64       `json:"batteryTempMax,omitempty"`
	BatteryExcurs int            `json:"batteryExcursions"`
	Altitude      AltitudeRange  `json:"altitudeRange"`
	Examples      []AnomalyEvent `json:"examples"`
	Notes         []string       `json:"notes"`
}
