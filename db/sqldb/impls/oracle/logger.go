package oracle

import (
	"fmt"
	"log"
	"sync/atomic"
)

type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

var logLevel atomic.Int32

func init() {
	logLevel.Store(int32(LogLevelInfo))
}

// SetLogLevel overrides the level for the oracle adapter, default is INFO.
// Every native call outcome is logged at DEBUG. It may be called while
// clients are running.
func SetLogLevel(lv LogLevel) {
	logLevel.Store(int32(lv))
}

// GetLogLevel returns the current level.
func GetLogLevel() LogLevel {
	return LogLevel(logLevel.Load())
}

func enabled(lv LogLevel) bool {
	return GetLogLevel() <= lv
}

func logDebug(format string, v ...any) {
	if enabled(LogLevelDebug) {
		log.Printf("[DEBUG][oracle] %s", fmt.Sprintf(format, v...))
	}
}

func logInfo(format string, v ...any) {
	if enabled(LogLevelInfo) {
		log.Printf("[INFO][oracle] %s", fmt.Sprintf(format, v...))
	}
}

func logWarn(format string, v ...any) {
	if enabled(LogLevelWarn) {
		log.Printf("[WARN][oracle] %s", fmt.Sprintf(format, v...))
	}
}

func logError(format string, v ...any) {
	if enabled(LogLevelError) {
		log.Printf("[ERROR][oracle] %s", fmt.Sprintf(format, v...))
	}
}
