// Package timestamp provides the wire timestamp formats used by the
// protocol adapters. The ActivityPub reference fixtures pin a naive ISO
// format with second precision and no zone designator; inbound parsing is
// lenient and also accepts RFC3339.
package timestamp

import (
	"time"
)

// WireFormat is the outbound timestamp layout: naive ISO-8601 seconds.
const WireFormat = "2006-01-02T15:04:05"

// inboundLayouts are tried in order when parsing wire timestamps.
var inboundLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	WireFormat,
	"2006-01-02T15:04:05.999999", // naive with fractional seconds
}

// Format renders a timestamp in the outbound wire layout. Zero times render
// as the empty string so adapters can omit the field.
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(WireFormat)
}

// Parse reads a wire timestamp, accepting RFC3339 and naive ISO layouts.
// Returns the zero time when s is empty or matches no layout; absent
// timestamps are filled in at entity construction, not here.
func Parse(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range inboundLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
