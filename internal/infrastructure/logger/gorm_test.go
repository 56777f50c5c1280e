package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func query(sql string) func() (string, int64) {
	return func() (string, int64) { return sql, 1 }
}

func TestGormLogger_Trace(t *testing.T) {
	tests := []struct {
		name    string
		level   gormlogger.LogLevel
		begin   time.Time
		err     error
		wantMsg string
		wantLvl zapcore.Level
	}{
		{"error", gormlogger.Error, time.Now(), errors.New("deadlock"), "SQL Error", zapcore.ErrorLevel},
		{"slow", gormlogger.Warn, time.Now().Add(-time.Second), nil, "Slow SQL", zapcore.WarnLevel},
		{"normal", gormlogger.Info, time.Now(), nil, "SQL Query", zapcore.DebugLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			gl := NewGormLogger(zap.New(core), tt.level)

			gl.Trace(WithRequestID(context.Background(), "req-7"), tt.begin, query("SELECT 1"), tt.err)

			entries := recorded.All()
			assert.Len(t, entries, 1)
			assert.Equal(t, tt.wantMsg, entries[0].Message)
			assert.Equal(t, tt.wantLvl, entries[0].Level)
			assert.Equal(t, "req-7", entries[0].ContextMap()["request_id"])
		})
	}
}

func TestGormLogger_Trace_Suppressed(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Error)

	gl.Trace(context.Background(), time.Now(), query("SELECT 1"), gormlogger.ErrRecordNotFound)
	gl.Trace(context.Background(), time.Now(), query("SELECT 1"), nil)
	gl.LogMode(gormlogger.Silent).Trace(context.Background(), time.Now(), query("SELECT 1"), errors.New("x"))

	assert.Zero(t, recorded.Len())
}

func TestGormLogger_Options(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Warn,
		WithSlowThreshold(0),
		WithIgnoreRecordNotFoundError(false),
	)

	gl.Trace(context.Background(), time.Now().Add(-time.Hour), query("SELECT 1"), nil)
	assert.Zero(t, recorded.Len())

	gl.Trace(context.Background(), time.Now(), query("SELECT 1"), gormlogger.ErrRecordNotFound)
	assert.Equal(t, 1, recorded.Len())

	gl.Warn(context.Background(), "pool %d", 3)
	assert.Equal(t, "pool 3", recorded.All()[1].Message)
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("unknown"))
}
