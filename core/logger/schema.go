package logger

import "strings"

const (
	// LevelDebug represents the debug severity level name.
	LevelDebug = "DEBUG"
	// LevelInfo represents the info severity level name.
	LevelInfo = "INFO"
	// LevelWarn represents the warning severity level name.
	LevelWarn = "WARN"
	// LevelError represents the error severity level name.
	LevelError = "ERROR"
)

var allowedLevels = map[string]string{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

// status values are free-form but these spellings are canonical.
var allowedStatus = map[string]string{
	"ok":           "ok",
	"error":        "error",
	"fail":         "fail",
	"retry":        "retry",
	"rejected":     "rejected",
	"rate_limited": "rate_limited",
	"cancelled":    "cancelled",
}

// outcome describes how a provider call ended; unknown values are dropped.
var allowedOutcome = map[string]string{
	"ok":        "ok",
	"timeout":   "timeout",
	"network":   "network",
	"quota":     "quota",
	"malformed": "malformed",
	"unknown":   "unknown",
}

func normalizeLevel(level string) string {
	if level == "" {
		return LevelInfo
	}
	if mapped, ok := allowedLevels[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

func normalizeStatus(status string) string {
	status = strings.ToLower(strings.TrimSpace(status))
	if mapped, ok := allowedStatus[status]; ok {
		return mapped
	}
	return status
}

func normalizeOutcome(outcome string) (string, bool) {
	v, ok := allowedOutcome[strings.ToLower(strings.TrimSpace(outcome))]
	return v, ok
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"channel",
	"user_id",
	"rule",
	"decision",
	"provider",
	"candidate",
	"outcome",
	"duration_ms",
	"method",
	"path",
	"http_code",
	"events",
	"messages",
	"mode",
	"listen",
	"driver",
	"db",
	"host",
	"port",
	"err",
	"err_kind",
	"retryable",
	"attempt",
	"attempts",
	"backoff_ms",
	"queue_len",
}
