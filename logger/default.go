package logger

import "sync/atomic"

type holder struct{ Logger }

var defLogger atomic.Pointer[holder]

func init() {
	defLogger.Store(&holder{NewSlog(InfoLevel, false)})
}

// SetDefault replaces the package default logger. Components created afterwards
// without a logger option log through l; existing ones keep their logger.
func SetDefault(l Logger) {
	if l == nil {
		return
	}
	defLogger.Store(&holder{l})
}

// GetLogger returns the package default logger. Components fall back to it
// when no logger option is supplied.
func GetLogger() Logger {
	return defLogger.Load().Logger
}

// SetLevel changes the level of the package default logger.
func SetLevel(level Level) {
	GetLogger().SetLevel(level)
}

// With returns the default logger with keyValues attached.
func With(keyValues ...any) Logger {
	return GetLogger().With(keyValues...)
}

func Debug(msg string, keysAndValues ...any) { GetLogger().Debug(msg, keysAndValues...) }

func Info(msg string, keysAndValues ...any) { GetLogger().Info(msg, keysAndValues...) }

func Warn(msg string, keysAndValues ...any) { GetLogger().Warn(msg, keysAndValues...) }

func Error(msg string, keysAndValues ...any) { GetLogger().Error(msg, keysAndValues...) }

func Fatal(msg string, keysAndValues ...any) { GetLogger().Fatal(msg, keysAndValues...) }
