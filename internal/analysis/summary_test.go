package analysis

import (
	"reflect"
	"testing"

	"github.com/flightchat/backend/internal/models"
)

func TestSummarize(t *testing.T) {
	log := testLog("log-summary",
		gpsMsg(0, 3, 10),
		batteryMsg(5, 40),
		gpsMsg(12, 3, 30),
	)

	summary := NewSummarizer().Summarize(log)

	if summary.FileID != "log-summary" {
		t.Errorf("Expected file ID log-summary, got %s", summary.FileID)
	}
	if summary.Filename != "log-summary.bin" {
		t.Errorf("Expected filename log-summary.bin, got %s", summary.Filename)
	}
	if summary.TotalMessages != 3 {
		t.Errorf("Expected 3 messages, got %d", summary.TotalMessages)
	}

	expectedTypes := []string{models.TypeBatteryStatus, models.TypeGPSRawInt}
	if !reflect.DeepEqual(summary.MessageTypes, expectedTypes) {
		t.Errorf("Expected sorted types %v, got %v", expectedTypes, summary.MessageTypes)
	}

	if summary.TimeRange.Start != 0 || summary.TimeRange.End != 12 || summary.TimeRange.Duration != 12 {
		t.Errorf("Unexpected time range: %+v", summary.TimeRange)
	}
}

func TestSummarizeEmptyLog(t *testing.T) {
	summary := NewSummarizer().Summarize(testLog("log-none"))

	if summary.TotalMessages != 0 {
		t.Errorf("Expected 0 messages, got %d", summary.TotalMessages)
	}
	if len(summary.MessageTypes) != 0 {
		t.Errorf("Expected no types, got %v", summary.MessageTypes)
	}
}
