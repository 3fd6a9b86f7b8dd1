package inference

import (
	"strings"

	"github.com/flightchat/backend/internal/models"
)

// keywordRule maps question vocabulary to the message types that carry the
// relevant telemetry. Rules are matched in declaration order so results are
// deterministic: no numeric scoring, ranking is insertion order.
type keywordRule struct {
	keywords []string
	types    []string
}

var defaultRules = []keywordRule{
	{[]string{"altitude", "alt", "height", "position", "climb"},
		[]string{models.TypeGlobalPosInt, models.TypeGPSRawInt}},
	{[]string{"gps", "fix", "satellite", "signal"},
		[]string{models.TypeGPSRawInt}},
	{[]string{"battery", "temp", "temperature", "voltage", "power"},
		[]string{models.TypeBatteryStatus}},
	{[]string{"error", "critical", "warning", "failure", "failsafe"},
		[]string{models.TypeStatusText}},
	{[]string{"rc", "radio", "remote", "rssi"},
		[]string{models.TypeRCChannels}},
	{[]string{"attitude", "roll", "pitch", "yaw"},
		[]string{models.TypeAttitude}},
	{[]string{"speed", "airspeed", "groundspeed", "throttle"},
		[]string{models.TypeVFRHUD}},
	{[]string{"mode", "armed", "disarmed"},
		[]string{models.TypeHeartbeat}},
}

// Engine maps free-text questions to ranked message type tags. It is purely
// functional and safe for concurrent use.
type Engine struct {
	rules        []keywordRule
	defaultTypes []string
}

// NewEngine returns an engine with the built-in keyword table and the broad
// default set used when no keyword matches.
func NewEngine() *Engine {
	return &Engine{
		rules: defaultRules,
		defaultTypes: []string{
			models.TypeGlobalPosInt,
			models.TypeGPSRawInt,
			models.TypeStatusText,
		},
	}
}

// Infer returns the message types relevant to the question, duplicates
// removed, first-seen order preserved. A question matching no keyword
// returns the configured default set so retrieval is never silently empty.
func (e *Engine) Infer(question string) []string {
	words := tokenize(question)

	var types []string
	seen := make(map[string]bool)
	for _, rule := range e.rules {
		if !matchesAny(words, rule.keywords) {
			continue
		}
		for _, t := range rule.types {
			if !seen[t] {
				seen[t] = true
				types = append(types, t)
			}
		}
	}

	if len(types) == 0 {
		return append([]string(nil), e.defaultTypes...)
	}
	return types
}

// DefaultTypes returns the configured fallback set.
func (e *Engine) DefaultTypes() []string {
	return append([]string(nil), e.defaultTypes...)
}

func tokenize(question string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	}) {
		words[w] = true
	}
	return words
}

func matchesAny(words map[string]bool, keywords []string) bool {
	for _, kw := range keywords {
		if words[kw] {
			return true
		}
	}
	return false
}
