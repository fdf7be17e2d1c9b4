package logging

import (
	"bytes"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewWithOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(&buf, "debug", "json")
	assert.Equal(t, log.DebugLevel, logger.GetLevel())

	logger.WithField("component", "test").Debug("hello")
	assert.Contains(t, buf.String(), `"component":"test"`)
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}

func TestNewWithOutputBadLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(&buf, "loud", "text")
	assert.Equal(t, log.InfoLevel, logger.GetLevel())
}

func TestAlertLogKeepsMostRecent(t *testing.T) {
	alerts := NewAlertLog(Discard(), 2)
	alerts.Alert("Phantom Wallet", "one")
	alerts.Alert("Phantom Wallet", "two")
	alerts.Alert("Phantom Wallet", "three")

	got := alerts.Drain()
	assert.Equal(t, []Alert{
		{Title: "Phantom Wallet", Message: "two"},
		{Title: "Phantom Wallet", Message: "three"},
	}, got)
	assert.Empty(t, alerts.Drain())
}
