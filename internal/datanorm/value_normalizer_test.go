package datanorm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
	}{
		{"rfc3339", "2024-01-15T14:30:00Z"},
		{"rfc3339 offset", "2024-01-15T09:30:00-05:00"},
		{"sql datetime", "2024-01-15 14:30:00"},
		{"postgres timestamptz", "2024-01-15 14:30:00+00"},
		{"us with meridiem", "1/15/2024 2:30 PM"},
		{"short year", "1/15/24 14:30"},
		{"month name", "Jan 15, 2024 2:30 PM"},
		{"unix seconds text", "1705329000"},
		{"unix millis text", "1705329000000"},
		{"unix seconds number", float64(1705329000)},
		{"unix millis int64", int64(1705329000000)},
		{"time value", want.In(time.FixedZone("CET", 3600))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseTimestamp(tt.in)
			assert.True(t, ok)
			assert.True(t, want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseTimestamp_DateOnly(t *testing.T) {
	for _, in := range []any{"2024-01-15", "01/15/2024", "20240115", float64(45306), "45306"} {
		got, ok := parseTimestamp(in)
		assert.True(t, ok, "%v", in)
		assert.Equal(t, 2024, got.Year(), "%v", in)
		assert.Equal(t, time.January, got.Month(), "%v", in)
		assert.Equal(t, 15, got.Day(), "%v", in)
	}
}

func TestParseTimestamp_Malformed(t *testing.T) {
	for _, in := range []any{"", "yesterday-ish", "13/45/2024", nil, float64(-3), time.Time{}} {
		_, ok := parseTimestamp(in)
		assert.False(t, ok, "%v", in)
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in   any
		want time.Duration
	}{
		{"10:30:00", 10*time.Hour + 30*time.Minute},
		{"10:30", 10*time.Hour + 30*time.Minute},
		{"3:05 PM", 15*time.Hour + 5*time.Minute},
		{"3:05 pm", 15*time.Hour + 5*time.Minute},
		{"12:00:30AM", 30 * time.Second},
		{0.5, 12 * time.Hour},
		{"0.25", 6 * time.Hour},
		{time.Date(1899, 12, 30, 9, 15, 0, 0, time.UTC), 9*time.Hour + 15*time.Minute},
	}
	for _, tt := range tests {
		got, ok := parseTimeOfDay(tt.in)
		assert.True(t, ok, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}

	for _, bad := range []any{"", "25:00", "noon", 1.5, -0.1} {
		_, ok := parseTimeOfDay(bad)
		assert.False(t, ok, "%v", bad)
	}
}

func TestParseDurationSeconds(t *testing.T) {
	tests := []struct {
		in   any
		want int
	}{
		{"150", 150},
		{" 45 ", 45},
		{"90.4", 90},
		{"2:30", 150},
		{"01:02:03", 3723},
		{"4m32s", 272},
		{"4m 32s", 272},
		{"1h 5m", 3900},
		{"45 sec", 45},
		{"45 seconds", 45},
		{"2 mins", 120},
		{"1.5 min", 90},
		{float64(300), 300},
		{7, 7},
		{90 * time.Second, 90},
	}
	for _, tt := range tests {
		got, ok := parseDurationSeconds(tt.in)
		assert.True(t, ok, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}

	for _, in := range []any{"-5", -5, "abc", "1:75", "1:2:3:4", "", "five minutes"} {
		_, ok := parseDurationSeconds(in)
		assert.False(t, ok, "%v", in)
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   any
		want int
	}{
		{"3", 3},
		{"1,234", 1234},
		{float64(2), 2},
		{"2.6", 3},
		{12, 12},
	}
	for _, tt := range tests {
		got, ok := parseCount(tt.in)
		assert.True(t, ok, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}

	for _, in := range []any{"-1", -1, "x", "", nil} {
		_, ok := parseCount(in)
		assert.False(t, ok, "%v", in)
	}
}

func TestNormalizeIP(t *testing.T) {
	assert.Equal(t, "69.191.211.207", normalizeIP(" 69.191.211.207 "))
	assert.Equal(t, "10.0.0.1", normalizeIP("10.0.0.1:8080"))
	assert.Equal(t, "2001:db8::1", normalizeIP("[2001:db8::1]:443"))
	assert.Equal(t, "2001:db8::1", normalizeIP("[2001:db8::1]"))
	assert.Equal(t, "10.0.0.1", normalizeIP("::ffff:10.0.0.1"))
	assert.Equal(t, "unknown", normalizeIP("unknown"))
	assert.Equal(t, "", normalizeIP(nil))
}

func TestNormalizeLocation(t *testing.T) {
	assert.Equal(t, "San Francisco, Ca", normalizeLocation("san francisco, ca"))
	assert.Equal(t, "Austin, TX", normalizeLocation("AUSTIN, TX"))
	assert.Equal(t, "USA", normalizeLocation("USA"))
	assert.Equal(t, "New York", normalizeLocation("NEW YORK"))
	assert.Equal(t, "Frankfurt am Main", normalizeLocation("Frankfurt am Main"))
	assert.Equal(t, "London, UK", normalizeLocation("  London,   UK "))
	assert.Equal(t, "", normalizeLocation(nil))
}

func TestNormalizeDomain(t *testing.T) {
	assert.Equal(t, "www.example.com", normalizeDomain("https://WWW.Example.com/path?x=1"))
	assert.Equal(t, "example.com", normalizeDomain("example.com:8443"))
	assert.Equal(t, "example.com", normalizeDomain("example.com."))
	assert.Equal(t, "", normalizeDomain(""))
}
