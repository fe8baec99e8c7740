package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldAPI is the structured log field key for the analysis service URL.
	FieldAPI = "api"
	// FieldSession is the structured log field key for the session kind.
	FieldSession = "session"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts key/value pairs into zap fields, dropping entries
// with an empty key or value.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		value := strings.TrimSpace(field.Value)
		if key == "" || value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches fields to logger, falling back to a no-op logger when
// logger is nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// WithClientFields tags every entry with the service URL and session kind.
func WithClientFields(logger *zap.Logger, apiURL, session string) *zap.Logger {
	return WithFields(logger, StringFields(
		StringField{Key: FieldAPI, Value: apiURL},
		StringField{Key: FieldSession, Value: session},
	)...)
}
