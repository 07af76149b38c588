package services

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Security event types.
const (
	EventLoginSuccess = "login_success"
	EventLoginFailure = "login_failure"
	EventLogout       = "logout"
	EventRegister     = "register"
	EventAccessDenied = "access_denied"
)

// SecurityLogger appends authentication events to their own log file, apart
// from the application log. Secrets are never passed to it.
type SecurityLogger struct {
	log  *logrus.Logger
	file *os.File
}

// NewSecurityLogger opens path for appending. An empty path discards events.
func NewSecurityLogger(path string) (*SecurityLogger, error) {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05"})
	if path == "" {
		l.SetOutput(io.Discard)
		return &SecurityLogger{log: l}, nil
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	l.SetOutput(file)
	return &SecurityLogger{log: l, file: file}, nil
}

// NewSecurityLoggerTo writes events to w.
func NewSecurityLoggerTo(w io.Writer) *SecurityLogger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetOutput(w)
	return &SecurityLogger{log: l}
}

// LogSecurityEvent records one event for username from ipAddress.
func (sl *SecurityLogger) LogSecurityEvent(eventType, username, ipAddress string) {
	if sl == nil {
		return
	}
	entry := sl.log.WithFields(logrus.Fields{
		"event": eventType,
		"user":  username,
		"ip":    ipAddress,
	})
	switch eventType {
	case EventLoginFailure, EventAccessDenied:
		entry.Warn(eventType)
	default:
		entry.Info(eventType)
	}
}

// Close closes the log file.
func (sl *SecurityLogger) Close() error {
	if sl == nil || sl.file == nil {
		return nil
	}
	return sl.file.Close()
}
