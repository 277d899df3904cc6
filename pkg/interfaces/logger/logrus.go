package logger

import "github.com/sirupsen/logrus"

// Logrus forwards the Logger contract to a logrus entry.
type Logrus struct {
	entry *logrus.Entry
}

var _ Logger = (*Logrus)(nil)

// NewLogrus wraps the provided logrus logger. A nil logger uses the
// logrus standard logger.
func NewLogrus(base *logrus.Logger) *Logrus {
	if base == nil {
		base = logrus.StandardLogger()
	}
	return &Logrus{entry: logrus.NewEntry(base)}
}

func (l *Logrus) With(fields ...Field) Logger {
	return &Logrus{entry: l.entry.WithFields(toLogrusFields(fields))}
}

func (l *Logrus) Debug(msg string, fields ...Field) {
	l.entry.WithFields(toLogrusFields(fields)).Debug(msg)
}

func (l *Logrus) Info(msg string, fields ...Field) {
	l.entry.WithFields(toLogrusFields(fields)).Info(msg)
}

func (l *Logrus) Warn(msg string, fields ...Field) {
	l.entry.WithFields(toLogrusFields(fields)).Warn(msg)
}

func (l *Logrus) Error(msg string, fields ...Field) {
	l.entry.WithFields(toLogrusFields(fields)).Error(msg)
}

func toLogrusFields(fields []Field) logrus.Fields {
	if len(fields) == 0 {
		return nil
	}
	out := make(logrus.Fields, len(fields))
	for _, field := range fields {
		out[field.Key] = field.Value
	}
	return out
}
