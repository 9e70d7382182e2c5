package db

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Logger sends gorm's output through logrus. Statements are logged at debug,
// slow ones at warn and failures at error. Record-not-found is not a failure.
type Logger struct {
	log   logrus.FieldLogger
	level logger.LogLevel
	slow  time.Duration
}

func NewLogger(log logrus.FieldLogger, slow time.Duration) *Logger {
	return &Logger{log: log.WithField("component", "gorm"), level: logger.Warn, slow: slow}
}

func (l *Logger) LogMode(level logger.LogLevel) logger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *Logger) Info(_ context.Context, msg string, args ...any) {
	if l.level >= logger.Info {
		l.log.Infof(msg, args...)
	}
}

func (l *Logger) Warn(_ context.Context, msg string, args ...any) {
	if l.level >= logger.Warn {
		l.log.Warnf(msg, args...)
	}
}

func (l *Logger) Error(_ context.Context, msg string, args ...any) {
	if l.level >= logger.Error {
		l.log.Errorf(msg, args...)
	}
}

func (l *Logger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.log.WithFields(logrus.Fields{"sql": sql, "rows": rows, "duration_ms": elapsed.Milliseconds()}).
			WithError(err).Error("query failed")
	case l.slow > 0 && elapsed > l.slow && l.level >= logger.Warn:
		sql, rows := fc()
		l.log.WithFields(logrus.Fields{"sql": sql, "rows": rows, "duration_ms": elapsed.Milliseconds()}).
			Warn("slow query")
	case l.level >= logger.Info:
		sql, rows := fc()
		l.log.WithFields(logrus.Fields{"sql": sql, "rows": rows, "duration_ms": elapsed.Milliseconds()}).
			Debug("query")
	}
}
