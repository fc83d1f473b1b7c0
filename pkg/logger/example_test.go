package logger_test

import (
	"errors"

	"github.com/wonny/vaxtrack/pkg/config"
	"github.com/wonny/vaxtrack/pkg/logger"
)

// Example_withFields demonstrates structured logging with fields
func Example_withFields() {
	cfg := &config.Config{
		Env:       "production",
		LogLevel:  "info",
		LogFormat: "json",
	}

	log := logger.New(cfg).Module("report")

	log.WithFields(map[string]interface{}{
		"report":   "top_vaccinated",
		"entities": 10,
	}).Info("report built")
}

// Example_withError demonstrates error logging
func Example_withError() {
	cfg := &config.Config{
		Env:       "development",
		LogLevel:  "debug",
		LogFormat: "console",
	}

	log := logger.New(cfg)

	err := errors.New("missing column: people_vaccinated")
	log.WithError(err).
		WithField("path", "data/owid-covid-data.csv").
		Error("Failed to parse dataset")
}
