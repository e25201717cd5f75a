package budget

import ilogger "promptbatch/internal/logger"

func logDebug(msg string, kv ...any) { ilogger.LogDebug(msg, kv...) }

func logInfo(msg string, kv ...any) { ilogger.LogInfo(msg, kv...) }
