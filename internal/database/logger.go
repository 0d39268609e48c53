package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/piriven/piriven_backend/internal/logger"
)

const slowQuery = 200 * time.Millisecond

// queryLogger sends gorm output to the zap logger carried by the query
// context, so statements share the request id of the request that ran them.
type queryLogger struct {
	level gormlogger.LogLevel
}

func newQueryLogger(level gormlogger.LogLevel) gormlogger.Interface {
	return &queryLogger{level: level}
}

func (l *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &queryLogger{level: level}
}

func (l *queryLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		logger.Info(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *queryLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		logger.Warn(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *queryLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		logger.Error(ctx, fmt.Sprintf(msg, args...))
	}
}

// Trace logs failed statements as errors, slow ones as warnings and, at the
// Info level, everything else as debug. Missing rows are not failures.
func (l *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	fields := func() []zap.Field {
		sql, rows := fc()
		return []zap.Field{zap.String("sql", sql), zap.Int64("rows", rows), zap.Duration("elapsed", elapsed)}
	}
	switch {
	case err != nil && l.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		logger.Error(ctx, "query failed", append(fields(), zap.Error(err))...)
	case elapsed > slowQuery && l.level >= gormlogger.Warn:
		logger.Warn(ctx, "slow query", fields()...)
	case l.level >= gormlogger.Info:
		logger.Debug(ctx, "query", fields()...)
	}
}
