package logging

import "github.com/arloliu/insitu/types"

// fieldLogger prepends fixed key-value pairs to every record.
type fieldLogger struct {
	next   types.Logger
	fields []any
}

// WithFields returns a logger that adds keysAndValues to every record of l.
//
// Example:
//
//	logger = logging.WithFields(logger, "rank", group.Rank())
func WithFields(l types.Logger, keysAndValues ...any) types.Logger {
	if len(keysAndValues) == 0 {
		return l
	}
	if s, ok := l.(*SlogLogger); ok {
		return s.With(keysAndValues...)
	}

	return &fieldLogger{next: OrNop(l), fields: keysAndValues}
}

func (l *fieldLogger) merge(keysAndValues []any) []any {
	out := make([]any, 0, len(l.fields)+len(keysAndValues))
	out = append(out, l.fields...)

	return append(out, keysAndValues...)
}

func (l *fieldLogger) Debug(msg string, keysAndValues ...any) {
	l.next.Debug(msg, l.merge(keysAndValues)...)
}

func (l *fieldLogger) Info(msg string, keysAndValues ...any) {
	l.next.Info(msg, l.merge(keysAndValues)...)
}

func (l *fieldLogger) Warn(msg string, keysAndValues ...any) {
	l.next.Warn(msg, l.merge(keysAndValues)...)
}

func (l *fieldLogger) Error(msg string, keysAndValues ...any) {
	l.next.Error(msg, l.merge(keysAndValues)...)
}

func (l *fieldLogger) Fatal(msg string, keysAndValues ...any) {
	l.next.Fatal(msg, l.merge(keysAndValues)...)
}
