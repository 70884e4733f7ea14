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

var allowedStatus = map[string]struct{}{
	"ok":           {},
	"fail":         {},
	"skip":         {},
	"retry":        {},
	"rejected":     {},
	"rate_limited": {},
	"cancelled":    {},
}

var allowedOutcome = map[string]struct{}{
	"ok":           {},
	"fail":         {},
	"cancelled":    {},
	"rejected":     {},
	"rate_limited": {},
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

// normalizeEnum lowercases v and reports whether it belongs to the allowed set.
func normalizeEnum(v string, allowed map[string]struct{}) (string, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "", false
	}
	_, ok := allowed[v]
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
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"cb_key",
	"state",
	"from",
	"to",
	"branch",
	"service",
	"lead_id",
	"lead_ref",
	"files",
	"outcome",
	"duration_ms",
	"messages",
	"kb",
	"count",
	"payload",
	"lang",
	"username",
	"mode",
	"listen",
	"public_url",
	"driver",
	"db",
	"host",
	"port",
	"action",
	"endpoint",
	"err",
	"err_code",
	"error_kind",
	"cause",
	"attempt",
	"attempts",
	"elapsed_ms",
}
