package port

// Logger is the slice of a structured logger the core needs. *slog.Logger
// satisfies it as-is.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
