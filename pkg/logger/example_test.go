package logger_test

import (
	"errors"

	"github.com/wonny/creditgate/pkg/config"
	"github.com/wonny/creditgate/pkg/logger"
)

// Example_basic demonstrates basic logger usage
func Example_basic() {
	log := logger.New(&config.Config{
		Env:       "development",
		LogLevel:  "info",
		LogFormat: "console",
	})

	log.Debug("This won't appear (level is info)")
	log.Info("Screener started")
	log.WithField("attempt", 3).Warn("Retrying Tradier request")
}

// Example_withFields demonstrates structured logging with fields
func Example_withFields() {
	log := logger.New(&config.Config{
		Env:       "production",
		LogLevel:  "info",
		LogFormat: "json",
	})

	log.WithField("module", "scan").WithFields(map[string]interface{}{
		"date":         "2025-06-02",
		"qualified":    4,
		"system_state": "RISK_ON",
	}).Info("Scan completed")
}

// Example_withError demonstrates error logging
func Example_withError() {
	log := logger.New(&config.Config{
		Env:       "production",
		LogLevel:  "error",
		LogFormat: "json",
	})

	err := errors.New("tradier: 429 too many requests")
	log.WithError(err).
		WithFields(map[string]interface{}{
			"symbol":      "SPY",
			"retry_count": 3,
		}).
		Error("Failed to fetch history")
}
