package provider

import ilogger "promptbatch/internal/logger"

func logDebug(msg string, kv ...any) { ilogger.LogDebug(msg, kv...) }

func logWarn(msg string, kv ...any) { ilogger.LogWarn(msg, kv...) }
