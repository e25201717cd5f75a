package logger

import "sync/atomic"

var loggerPtr atomic.Pointer[Logger]

func setLogger(l *Logger) {
	loggerPtr.Store(l)
}

func closeLogger() error {
	logger := loggerPtr.Swap(nil)
	if logger == nil {
		return nil
	}
	return logger.Close()
}

func activeLogger() *Logger {
	return loggerPtr.Load()
}

func logDebug(msg string, kv ...any) {
	if logger := activeLogger(); logger != nil {
		logger.Debug(msg, kv...)
	}
}

func logInfo(msg string, kv ...any) {
	if logger := activeLogger(); logger != nil {
		logger.Info(msg, kv...)
	}
}

func logWarn(msg string, kv ...any) {
	if logger := activeLogger(); logger != nil {
		logger.Warn(msg, kv...)
	}
}

func logError(msg string, kv ...any) {
	if logger := activeLogger(); logger != nil {
		logger.Error(msg, kv...)
	}
}

func SetLogger(l *Logger) { setLogger(l) }

func CloseLogger() error { return closeLogger() }

func ActiveLogger() *Logger { return activeLogger() }

func LogDebug(msg string, kv ...any) { logDebug(msg, kv...) }

func LogInfo(msg string, kv ...any) { logInfo(msg, kv...) }

func LogWarn(msg string, kv ...any) { logWarn(msg, kv...) }

func LogError(msg string, kv ...any) { logError(msg, kv...) }
