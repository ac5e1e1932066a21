package timestamp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	published := time.Date(2019, 4, 27, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2019-04-27T00:00:00", Format(published))
}

func TestFormat_ZeroTime(t *testing.T) {
	assert.Equal(t, "", Format(time.Time{}))
}

func TestFormat_ConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("EET", 2*60*60)
	published := time.Date(2019, 8, 5, 2, 0, 0, 0, loc)
	assert.Equal(t, "2019-08-05T00:00:00", Format(published))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Time
	}{
		{"naive iso", "2019-04-27T00:00:00", time.Date(2019, 4, 27, 0, 0, 0, 0, time.UTC)},
		{"rfc3339", "2019-04-27T00:00:00Z", time.Date(2019, 4, 27, 0, 0, 0, 0, time.UTC)},
		{"rfc3339 with offset", "2019-04-27T02:00:00+02:00", time.Date(2019, 4, 27, 0, 0, 0, 0, time.UTC)},
		{"empty", "", time.Time{}},
		{"garbage", "yesterday", time.Time{}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, Parse(test.input))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	published := time.Date(2019, 8, 5, 12, 30, 45, 0, time.UTC)
	assert.Equal(t, published, Parse(Format(published)))
}
