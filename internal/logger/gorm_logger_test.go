package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func observedGormLogger() (*GormLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core)), logs
}

func sqlOf(sql string) func() (string, int64) {
	return func() (string, int64) { return sql, 0 }
}

func TestGormLoggerSkipsRecordNotFound(t *testing.T) {
	g, logs := observedGormLogger()
	g.Trace(context.Background(), time.Now(), sqlOf("SELECT * FROM escrow_accounts"), gorm.ErrRecordNotFound)
	assert.Equal(t, 0, logs.Len())
}

func TestGormLoggerWritesQueryErrors(t *testing.T) {
	g, logs := observedGormLogger()
	g.Trace(context.Background(), time.Now(), sqlOf("INSERT INTO payment_intents"), errors.New("UNIQUE constraint failed"))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "gorm", entries[0].LoggerName)
	assert.Equal(t, "INSERT INTO payment_intents", entries[0].ContextMap()["sql"])
}

func TestGormLoggerWarnsOnSlowQuery(t *testing.T) {
	g, logs := observedGormLogger()
	g.Trace(context.Background(), time.Now().Add(-time.Second), sqlOf("SELECT 1"), nil)

	require.Equal(t, 1, logs.FilterMessage("slow query").Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
}

func TestGormLoggerSilentMode(t *testing.T) {
	g, logs := observedGormLogger()
	silent := g.LogMode(gormlogger.Silent)
	silent.Trace(context.Background(), time.Now().Add(-time.Second), sqlOf("SELECT 1"), errors.New("boom"))
	silent.Error(context.Background(), "failed %s", "x")
	assert.Equal(t, 0, logs.Len())
	assert.Equal(t, gormlogger.Warn, g.LogLevel)
}
