package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/piriven/piriven_backend/internal/logger"
)

func observed(t *testing.T) (context.Context, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := logger.WithLogger(context.Background(), zap.New(core).With(zap.String("request_id", "req-1")))
	return ctx, logs
}

func TestQueryLoggerTrace(t *testing.T) {
	sql := func() (string, int64) { return "SELECT 1", 1 }

	ctx, logs := observed(t)
	l := newQueryLogger(gormlogger.Warn)
	l.Trace(ctx, time.Now(), sql, nil)
	require.Zero(t, logs.Len(), "fast queries are quiet at warn")

	l.Trace(ctx, time.Now(), sql, gorm.ErrRecordNotFound)
	require.Zero(t, logs.Len(), "missing rows are not failures")

	l.Trace(ctx, time.Now(), sql, errors.New("disk I/O error"))
	l.Trace(ctx, time.Now().Add(-time.Second), sql, nil)
	entries := logs.TakeAll()
	require.Len(t, entries, 2)
	require.Equal(t, "query failed", entries[0].Message)
	require.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	require.Equal(t, "SELECT 1", entries[0].ContextMap()["sql"])
	require.Equal(t, "req-1", entries[0].ContextMap()["request_id"])
	require.Equal(t, "slow query", entries[1].Message)

	l.LogMode(gormlogger.Info).Trace(ctx, time.Now(), sql, nil)
	require.Equal(t, "query", logs.TakeAll()[0].Message)

	l.LogMode(gormlogger.Silent).Trace(ctx, time.Now(), sql, errors.New("boom"))
	require.Zero(t, logs.Len())
}

func TestQueryLoggerMessages(t *testing.T) {
	ctx, logs := observed(t)
	l := newQueryLogger(gormlogger.Warn)

	l.Info(ctx, "migrated %d tables", 3)
	l.Warn(ctx, "duplicated %s", "index")
	l.Error(ctx, "failed %s", "ping")
	entries := logs.TakeAll()
	require.Len(t, entries, 2)
	require.Equal(t, "duplicated index", entries[0].Message)
	require.Equal(t, "failed ping", entries[1].Message)
}
