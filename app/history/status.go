package history

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Status is the outcome of a run
type Status struct {
	name  string
	value int
}

// run statuses
var (
	StatusRunning = Status{name: "running", value: 0}
	StatusPassed  = Status{name: "passed", value: 1}
	StatusFailed  = Status{name: "failed", value: 2}
	StatusError   = Status{name: "error", value: 3}
)

// StatusValues lists all statuses in declaration order
var StatusValues = []Status{StatusRunning, StatusPassed, StatusFailed, StatusError}

// String returns the lower-case name
func (s Status) String() string { return s.name }

// Index returns the numeric value
func (s Status) Index() int { return s.value }

// ParseStatus converts a name into a Status, case-insensitive
func ParseStatus(v string) (Status, error) {
	for _, s := range StatusValues {
		if strings.EqualFold(s.name, strings.TrimSpace(v)) {
			return s, nil
		}
	}
	return Status{}, fmt.Errorf("invalid status %q", v)
}

// MarshalText implements encoding.TextMarshaler
func (s Status) MarshalText() ([]byte, error) { return []byte(s.name), nil }

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Status) UnmarshalText(data []byte) error {
	v, err := ParseStatus(string(data))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Value implements driver.Valuer, statuses are stored by name
func (s Status) Value() (driver.Value, error) { return s.name, nil }

// Scan implements sql.Scanner
func (s *Status) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return s.UnmarshalText([]byte(v))
	case []byte:
		return s.UnmarshalText(v)
	case nil:
		*s = StatusRunning
		return nil
	default:
		return fmt.Errorf("can't scan %T into status", src)
	}
}
