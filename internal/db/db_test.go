package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	gormlogger "gorm.io/gorm/logger"
)

func TestGormLogLevel(t *testing.T) {
	tests := []struct {
		env, level string
		want       gormlogger.LogLevel
	}{
		{"development", "", gormlogger.Info},
		{"production", "", gormlogger.Warn},
		{"production", "debug", gormlogger.Info},
		{"development", "error", gormlogger.Error},
		{"production", "disabled", gormlogger.Silent},
		{"production", " INFO ", gormlogger.Warn},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, gormLogLevel(tt.env, tt.level), "%s/%q", tt.env, tt.level)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	for i, stmt := range migrationStatements {
		assert.Regexp(t, `(?is)^\s*(CREATE (EXTENSION|TABLE|UNIQUE INDEX|INDEX) IF NOT EXISTS|CREATE OR REPLACE FUNCTION|DO \$\$)`, stmt, "statement %d", i+1)
	}
}
