package logger

import "sync/atomic"

type holder struct{ l Logger }

var defLogger atomic.Value

func init() {
	defLogger.Store(holder{NewSlog(InfoLevel, false)})
}

// GetLogger returns the package-level default logger, used by every component
// that was not given a logger through its WithLogger option.
func GetLogger() Logger {
	return defLogger.Load().(holder).l //nolint:forcetypeassert
}

// SetDefault replaces the package-level default logger. A nil l is ignored.
//
// Components capture the default when they are created, so SetDefault should be
// called before opening transports or creating senders.
func SetDefault(l Logger) {
	if l == nil {
		return
	}
	defLogger.Store(holder{l})
}

// SetLevel sets the level of the default logger.
func SetLevel(level Level) {
	GetLogger().SetLevel(level)
}

// With returns a child of the default logger.
func With(keyValues ...any) Logger {
	return GetLogger().With(keyValues...)
}
