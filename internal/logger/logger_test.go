package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel("development", ""))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("production", ""))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("production", "WARN"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("production", "loud"))
}

func TestNewAppliesLevel(t *testing.T) {
	log := New("production", "error")
	assert.Equal(t, zerolog.ErrorLevel, log.GetLevel())
}
