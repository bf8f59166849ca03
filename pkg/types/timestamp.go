package types

import (
	"fmt"
	"time"
)

// layoutNaive is RFC 3339 without the offset suffix. Index values parsed
// from it are treated as UTC wall-clock but flagged as unzoned.
const layoutNaive = "2006-01-02T15:04:05"

// Timestamp is a point in time that remembers whether its source carried an
// explicit UTC offset. Periodic index policies that require timezone-aware
// data reject unzoned values instead of guessing.
type Timestamp struct {
	Time  time.Time
	Zoned bool
}

// ZonedTime builds a timezone-aware timestamp.
func ZonedTime(t time.Time) Timestamp { return Timestamp{Time: t, Zoned: true} }

// NaiveTime builds a timestamp whose source had no offset. The wall-clock
// fields are kept in UTC.
func NaiveTime(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC(), Zoned: false}
}

// ParseTimestamp parses an RFC 3339 string, or the same layout without an
// offset. The returned Timestamp records which form was seen.
func ParseTimestamp(s string) (Timestamp, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Timestamp{Time: t, Zoned: true}, nil
	}
	if t, err := time.Parse(layoutNaive, s); err == nil {
		return Timestamp{Time: t.UTC(), Zoned: false}, nil
	}
	return Timestamp{}, fmt.Errorf("cannot parse timestamp %q", s)
}

// String renders RFC 3339 for zoned values and the offset-free layout
// otherwise, so round-tripping preserves zonedness.
func (ts Timestamp) String() string {
	if ts.Zoned {
		return ts.Time.Format(time.RFC3339)
	}
	return ts.Time.Format(layoutNaive)
}

// Add returns the timestamp shifted by d, preserving zonedness.
func (ts Timestamp) Add(d time.Duration) Timestamp {
	return Timestamp{Time: ts.Time.Add(d), Zoned: ts.Zoned}
}

// Before reports whether ts is strictly earlier than o.
func (ts Timestamp) Before(o Timestamp) bool { return ts.Time.Before(o.Time) }

// Sub returns the duration ts − o.
func (ts Timestamp) Sub(o Timestamp) time.Duration { return ts.Time.Sub(o.Time) }

// Equal reports instant equality, ignoring zonedness.
func (ts Timestamp) Equal(o Timestamp) bool { return ts.Time.Equal(o.Time) }
