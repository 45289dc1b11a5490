package logger

// Logger exposes logging methods for common severity levels. The core
// packages depend only on this interface; the zerolog-backed
// implementation lives in infra/logger.
type Logger interface {
	Debugf(format string, args ...any)
	// Debugw logs a message with structured fields.
	Debugw(msg string, fields map[string]any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}
