package executor

import ilogger "promptbatch/internal/logger"

func logDebug(msg string, kv ...any) { ilogger.LogDebug(msg, kv...) }

func logInfo(msg string, kv ...any) { ilogger.LogInfo(msg, kv...) }

func logWarn(msg string, kv ...any) { ilogger.LogWarn(msg, kv...) }

func logError(msg string, kv ...any) { ilogger.LogError(msg, kv...) }
