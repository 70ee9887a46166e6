package radiowave

import (
	"fmt"
	"strings"
	"time"
)

// Logger is the logging contract used across the package. It matches the
// method set of glog.Logger so a named child logger can be passed directly.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// StorageConfig holds the persistence options consumed by Storage
type StorageConfig interface {
	GetDialect() string
	GetHost() string
	GetPort() int
	GetDatabase() string
	GetUser() string
	GetPassword() string
	GetStoragePath() string
	GetMaxOpenConns() int
	GetMaxIdleConns() int
	GetConnMaxIdleTime() time.Duration
	GetDebug() bool
}

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Print("[ERR] RADIOWAVE " + formatLine(msg, args...))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Print("[WRN] RADIOWAVE " + formatLine(msg, args...))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Print("[INF] RADIOWAVE " + formatLine(msg, args...))
}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Print("[DBG] RADIOWAVE " + formatLine(msg, args...))
}

// formatLine renders slog style key/value pairs after the message.
func formatLine(msg string, args ...any) string {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
			continue
		}
		fmt.Fprintf(&b, " %v", args[i])
	}
	return newline(b.String())
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}

// DefaultLogger returns the logger used when a component is not given one.
func DefaultLogger() Logger {
	return defLogger{}
}
