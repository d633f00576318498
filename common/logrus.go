/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package common

import (
	"github.com/sirupsen/logrus"
)

// LogrusLogger routes library logging through a logrus logger, so that
// applications already standardized on logrus get a single log stream.
type LogrusLogger struct {
	backend *logrus.Logger
}

// NewLogrusLogger wraps `backend` as a Logger. A nil backend uses the
// logrus standard logger.
func NewLogrusLogger(backend *logrus.Logger) *LogrusLogger {
	if backend == nil {
		backend = logrus.StandardLogger()
	}
	return &LogrusLogger{backend: backend}
}

// IsLogLevel returns true if the backend would emit messages of `level`.
func (l *LogrusLogger) IsLogLevel(level LogLevel) bool {
	return l.backend.IsLevelEnabled(logrusLevel(level))
}

// Error logs error message.
func (l *LogrusLogger) Error(format string, args ...interface{}) {
	l.backend.Errorf(format, args...)
}

// Warning logs warning message.
func (l *LogrusLogger) Warning(format string, args ...interface{}) {
	l.backend.Warnf(format, args...)
}

// Notice logs notice message. Logrus has no notice level; info is the
// closest match.
func (l *LogrusLogger) Notice(format string, args ...interface{}) {
	l.backend.Infof(format, args...)
}

// Info logs info message.
func (l *LogrusLogger) Info(format string, args ...interface{}) {
	l.backend.Infof(format, args...)
}

// Debug logs debug message.
func (l *LogrusLogger) Debug(format string, args ...interface{}) {
	l.backend.Debugf(format, args...)
}

// Trace logs trace message.
func (l *LogrusLogger) Trace(format string, args ...interface{}) {
	l.backend.Tracef(format, args...)
}

func logrusLevel(level LogLevel) logrus.Level {
	switch level {
	case LogLevelError:
		return logrus.ErrorLevel
	case LogLevelWarning:
		return logrus.WarnLevel
	case LogLevelNotice, LogLevelInfo:
		return logrus.InfoLevel
	case LogLevelDebug:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}
