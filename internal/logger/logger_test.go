package logger_test

import (
	"bytes"
	"testing"

	"codeberg.org/mutker/obsctl/internal/errors"
	"codeberg.org/mutker/obsctl/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logger.DebugLevel, logger.ParseLevel("DEBUG"))
	assert.Equal(t, logger.WarnLevel, logger.ParseLevel("warning"))
	assert.Equal(t, logger.ErrorLevel, logger.ParseLevel("error"))
	assert.Equal(t, logger.InfoLevel, logger.ParseLevel(""))
	assert.Equal(t, logger.InfoLevel, logger.ParseLevel("nonsense"))
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "warn")
	defer logger.InitWithWriter(&bytes.Buffer{}, "info")

	logger.Info().Msg("hidden")
	logger.Warn().Str("source", "dome").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"source":"dome"`)
	assert.Contains(t, out, "shown")
}

func TestErrorWithCode(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "debug")
	defer logger.InitWithWriter(&bytes.Buffer{}, "info")

	logger.Default().ErrorWithCode(errors.New().New(errors.ErrWeatherFetch)).Msg("weather")

	assert.Contains(t, buf.String(), `"error_code":"weather_fetch_failed"`)
}
