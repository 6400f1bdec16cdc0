package ledger

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// timestampLayout keeps microsecond precision, matching what older ledger
// writers produced.
const timestampLayout = "2006-01-02T15:04:05.999999Z07:00"

// Layouts accepted on read. Layouts without a zone are interpreted in
// time.Local. Fractional seconds are accepted by every layout.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	time.DateOnly,
}

// Timestamp is an instant persisted as an ISO-8601 string.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t, dropping sub-microsecond precision so that the value
// survives a save/load cycle unchanged.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.Truncate(time.Microsecond)}
}

// MarshalJSON encodes the timestamp as an ISO-8601 string.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(timestampLayout))
}

// UnmarshalJSON accepts ISO-8601 strings with or without a zone offset.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	parsed, err := ParseTimestamp(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTimestamp parses an ISO-8601 string in any of the supported layouts.
func ParseTimestamp(raw string) (Timestamp, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Timestamp{}, nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return NewTimestamp(parsed), nil
		}
	}
	return Timestamp{}, fmt.Errorf("timestamp: unsupported format %q", raw)
}

// Record is the pack state of one client.
type Record struct {
	Sessions        int        `json:"sessions"`
	LastPaymentDate Timestamp  `json:"last_payment_date"`
	LastAttendance  *Timestamp `json:"last_attendance,omitempty"`
	Phone           string     `json:"phone"`
	Notes           string     `json:"notes"`
}

// Ledger maps client names to their records.
type Ledger map[string]Record

// Names returns client names in collation order.
func (l Ledger) Names() []string {
	names := make([]string, 0, len(l))
	for name := range l {
		names = append(names, name)
	}
	SortNames(names)
	return names
}

// TotalSessions sums the remaining balance across all clients.
func (l Ledger) TotalSessions() int {
	total := 0
	for _, rec := range l {
		total += rec.Sessions
	}
	return total
}

// SortNames sorts client names in place using Russian collation, which also
// orders Latin names alphabetically.
func SortNames(names []string) {
	collate.New(language.Russian).SortStrings(names)
}
