package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
)

// New builds a logrus logger writing to stderr.
// format is "json" or "text"; an unknown level falls back to info.
func New(level, format string) *log.Logger {
	return NewWithOutput(os.Stderr, level, format)
}

// NewWithOutput is New with an explicit writer
func NewWithOutput(out io.Writer, level, format string) *log.Logger {
	logger := log.New()
	logger.SetOutput(out)

	lvl, err := log.ParseLevel(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level '%s', defaulting to 'info'\n", level)
		lvl = log.InfoLevel
	}
	logger.SetLevel(lvl)

	if format == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// Discard returns a logger that drops everything, for tests
func Discard() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

// Notifier surfaces a user-facing alert
type Notifier interface {
	Alert(title, message string)
}

// Alert is one surfaced message
type Alert struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// AlertLog logs every alert and keeps the most recent ones for polling clients
type AlertLog struct {
	logger *log.Entry
	max    int

	mu     sync.Mutex
	alerts []Alert
}

// NewAlertLog keeps up to max alerts
func NewAlertLog(logger *log.Logger, max int) *AlertLog {
	if max <= 0 {
		max = 20
	}
	return &AlertLog{
		logger: logger.WithField("component", "alerts"),
		max:    max,
	}
}

func (a *AlertLog) Alert(title, message string) {
	a.logger.WithFields(log.Fields{"title": title, "message": message}).Warn("user alert")

	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, Alert{Title: title, Message: message})
	if len(a.alerts) > a.max {
		a.alerts = a.alerts[len(a.alerts)-a.max:]
	}
}

// Drain returns and forgets the buffered alerts
func (a *AlertLog) Drain() []Alert {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.alerts
	a.alerts = nil
	return out
}
