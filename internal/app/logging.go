package app

import ilogger "promptbatch/internal/logger"

func logInfo(msg string, kv ...any) { ilogger.LogInfo(msg, kv...) }

func logWarn(msg string, kv ...any) { ilogger.LogWarn(msg, kv...) }

func logError(msg string, kv ...any) { ilogger.LogError(msg, kv...) }
