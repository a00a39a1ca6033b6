package datanorm

import (
	"fmt"
	"math"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// timestampLayouts are tried in order after RFC3339 and numeric forms fail.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/06 15:04",
	"1/2/06 3:04 PM",
	"01/02/2006",
	"1/2/2006",
	"1/2/06",
	"02-Jan-2006 15:04:05",
	"02-Jan-06",
	"Jan 2, 2006 3:04 PM",
	"Jan 2, 2006 15:04",
	"Jan 2, 2006",
	"January 2, 2006 3:04 PM",
	"January 2, 2006",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.ANSIC,
	"20060102",
}

// Numeric timestamp ranges.
const (
	unixMillisFloor  = 1e11 // 1973-03-03 in ms
	unixSecondsFloor = 1e8  // 1973-03-03 in s
	excelSerialCeil  = 1e5  // 2173-10-14
)

// stringValue renders a scalar cell as trimmed text.
func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []byte:
		return strings.TrimSpace(string(t))
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// isBlank reports whether a cell carries no value.
func isBlank(v any) bool {
	return stringValue(v) == ""
}

// normalizeIP trims an address and strips brackets or a port when the
// remainder parses. Anything else is returned trimmed.
func normalizeIP(v any) string {
	s := stringValue(v)
	if s == "" {
		return ""
	}
	if ap, err := netip.ParseAddrPort(s); err == nil {
		return ap.Addr().Unmap().String()
	}
	trimmed := strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	if addr, err := netip.ParseAddr(trimmed); err == nil {
		return addr.Unmap().String()
	}
	return s
}

// parseTimestamp accepts time.Time, Unix seconds or milliseconds, Excel
// serial dates and the textual layouts above. The result is in UTC.
func parseTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, false
		}
		return t.UTC(), true
	case *time.Time:
		if t == nil || t.IsZero() {
			return time.Time{}, false
		}
		return t.UTC(), true
	case int:
		return timestampFromNumber(float64(t))
	case int64:
		return timestampFromNumber(float64(t))
	case float64:
		return timestampFromNumber(t)
	}

	s := stringValue(v)
	if s == "" {
		return time.Time{}, false
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), true
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil && !strings.ContainsAny(s, "eE") {
		if len(s) == 8 && !strings.Contains(s, ".") {
			if ts, err := time.ParseInLocation("20060102", s, time.UTC); err == nil {
				return ts, true
			}
		}
		return timestampFromNumber(n)
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

func timestampFromNumber(n float64) (time.Time, bool) {
	switch {
	case math.IsNaN(n) || math.IsInf(n, 0) || n <= 0:
		return time.Time{}, false
	case n >= unixMillisFloor:
		return time.UnixMilli(int64(n)).UTC(), true
	case n >= unixSecondsFloor:
		sec, frac := math.Modf(n)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
	case n < excelSerialCeil:
		ts, err := excelize.ExcelDateToTime(n, false)
		if err != nil {
			return time.Time{}, false
		}
		return ts.UTC(), true
	default:
		return time.Time{}, false
	}
}

// parseCount parses a non-negative whole count. Fractions are rounded and
// thousands separators are ignored.
func parseCount(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, t >= 0
	case int64:
		return int(t), t >= 0
	case float64:
		return countFromFloat(t)
	}
	s := strings.ReplaceAll(stringValue(v), ",", "")
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, n >= 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return countFromFloat(f)
}

func countFromFloat(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > math.MaxInt32 {
		return 0, false
	}
	return int(math.Round(f)), true
}

// durationUnits maps trailing unit words to seconds.
var durationUnits = []struct {
	suffix  string
	seconds float64
}{
	{"seconds", 1}, {"second", 1}, {"secs", 1}, {"sec", 1},
	{"minutes", 60}, {"minute", 60}, {"mins", 60}, {"min", 60},
	{"hours", 3600}, {"hour", 3600}, {"hrs", 3600}, {"hr", 3600},
}

// parseDurationSeconds accepts plain seconds, "mm:ss", "hh:mm:ss", Go
// duration strings ("4m32s", "4m 32s") and "<n> sec|min|hr" forms.
func parseDurationSeconds(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, t >= 0
	case int64:
		return int(t), t >= 0
	case float64:
		return countFromFloat(t)
	case time.Duration:
		return countFromFloat(t.Seconds())
	}

	s := strings.ToLower(stringValue(v))
	if s == "" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return countFromFloat(f)
	}
	if strings.Contains(s, ":") {
		return clockSeconds(s)
	}
	if d, err := time.ParseDuration(strings.ReplaceAll(s, " ", "")); err == nil {
		return countFromFloat(d.Seconds())
	}
	for _, u := range durationUnits {
		if rest, ok := strings.CutSuffix(s, u.suffix); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
			if err != nil {
				return 0, false
			}
			return countFromFloat(f * u.seconds)
		}
	}
	return 0, false
}

// clockSeconds parses "mm:ss" or "hh:mm:ss".
func clockSeconds(s string) (int, bool) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	total := 0
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return 0, false
		}
		if i > 0 && n >= 60 {
			return 0, false
		}
		total = total*60 + n
	}
	return total, true
}

var clockLayouts = []string{
	"15:04:05.999999999",
	"15:04:05",
	"15:04",
	"3:04:05 PM",
	"3:04 PM",
	"3:04:05PM",
	"3:04PM",
}

// parseTimeOfDay parses a clock time into the offset from midnight. It
// accepts the clock part of a time.Time, an Excel day fraction in [0, 1)
// and 24-hour or AM/PM text.
func parseTimeOfDay(v any) (time.Duration, bool) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return 0, false
		}
		return sinceMidnight(t), true
	case float64:
		return dayFraction(t)
	}

	s := strings.ToUpper(stringValue(v))
	if s == "" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return dayFraction(f)
	}
	for _, layout := range clockLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return sinceMidnight(ts), true
		}
	}
	return 0, false
}

func sinceMidnight(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second + time.Duration(t.Nanosecond())
}

func dayFraction(f float64) (time.Duration, bool) {
	if math.IsNaN(f) || f < 0 || f >= 1 {
		return 0, false
	}
	return time.Duration(math.Round(f*86400)) * time.Second, true
}

// normalizeLocation title-cases text that arrives all-lower or all-upper.
// In all-upper text, short codes after a comma ("AUSTIN, TX") and a lone
// code ("USA") keep their case.
func normalizeLocation(v any) string {
	s := collapseSpaces(stringValue(v))
	if s == "" {
		return ""
	}
	upper := s == strings.ToUpper(s)
	if !upper && s != strings.ToLower(s) {
		return s
	}
	caser := cases.Title(language.English)
	words := strings.Split(s, " ")
	for i, w := range words {
		if upper && isShortCode(w) && (len(words) == 1 || (i > 0 && strings.HasSuffix(words[i-1], ","))) {
			continue
		}
		words[i] = caser.String(w)
	}
	return strings.Join(words, " ")
}

func isShortCode(w string) bool {
	letters := strings.Trim(w, ",.;")
	return len(letters) > 0 && len(letters) <= 3
}

// normalizeDomain lowercases a host and strips any scheme, path or port.
func normalizeDomain(v any) string {
	s := strings.ToLower(stringValue(v))
	if s == "" {
		return ""
	}
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if host, _, ok := strings.Cut(s, ":"); ok {
		s = host
	}
	return strings.TrimSuffix(s, ".")
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
