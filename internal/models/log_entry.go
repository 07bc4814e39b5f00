package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// LogLevel orders ledger log severities: None < Info < Error < Debug.
// A higher configured level admits more entries.
type LogLevel int

const (
	LogLevelNone LogLevel = iota
	LogLevelInfo
	LogLevelError
	LogLevelDebug
)

var logLevelNames = [...]string{"None", "Info", "Error", "Debug"}

func (l LogLevel) String() string {
	if l < LogLevelNone || l > LogLevelDebug {
		return fmt.Sprintf("LogLevel(%d)", int(l))
	}
	return logLevelNames[l]
}

// ParseLogLevel parses a level name, case-insensitively.
func ParseLogLevel(s string) (LogLevel, error) {
	for i, name := range logLevelNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return LogLevel(i), nil
		}
	}
	return LogLevelNone, fmt.Errorf("unknown log level %q", s)
}

func (l LogLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *LogLevel) UnmarshalText(b []byte) error {
	v, err := ParseLogLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// Value stores the level by name.
func (l LogLevel) Value() (driver.Value, error) {
	return l.String(), nil
}

func (l *LogLevel) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return l.UnmarshalText([]byte(v))
	case []byte:
		return l.UnmarshalText(v)
	case nil:
		*l = LogLevelNone
		return nil
	}
	return fmt.Errorf("cannot scan %T into LogLevel", src)
}

// LogEntry is one diagnostic line on a payment request.
type LogEntry struct {
	ID        int       `db:"id" json:"id"`
	RequestID int       `db:"request_id" json:"-"`
	Level     LogLevel  `db:"level" json:"level"`
	Message   string    `db:"message" json:"message"`
	Timestamp time.Time `db:"logged_at" json:"timestamp"`
}
