package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ryosukesatoh/channel-digest/internal/config"
	"github.com/ryosukesatoh/channel-digest/internal/store"
	"github.com/ryosukesatoh/channel-digest/internal/window"
)

func TestPrintWindow(t *testing.T) {
	end := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer

	printWindow(&buf, window.Bounds(end, time.Hour), []store.Record{
		{Timestamp: end.Add(-time.Minute), Source: "amitsegal", Text: "breaking"},
	})

	out := buf.String()
	assert.Contains(t, out, "Window 2025-03-10T11:00:00Z .. 2025-03-10T12:00:00Z: 1 records")
	assert.Contains(t, out, "amitsegal")
	assert.Contains(t, out, "breaking")
}

func TestPrintEmptyWindow(t *testing.T) {
	var buf bytes.Buffer
	printWindow(&buf, window.Bounds(time.Now(), time.Hour), nil)
	assert.Contains(t, buf.String(), ": 0 records")
}

func TestBuildSchedule(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	sched, err := buildSchedule(&config.Config{SummaryPeriodMinutes: 180})
	assert.NoError(t, err)
	assert.True(t, sched.Next(base).Equal(base.Add(3*time.Hour)))

	sched, err = buildSchedule(&config.Config{SummaryPeriodMinutes: 180, Schedule: "0 * * * *"})
	assert.NoError(t, err)
	assert.True(t, sched.Next(base.Add(10*time.Minute)).Equal(base.Add(time.Hour)))
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	logger := newLogger(config.LogConfig{Level: "chatty", Format: "json"})
	assert.Equal(t, "info", logger.GetLevel().String())
}
