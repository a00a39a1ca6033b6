package visitor

import "time"

// SessionKey returns the key used to group a record into a session: the
// session id when present, otherwise the IP address. It is empty for a
// record with neither, which belongs to no session.
func SessionKey(r Record) string {
	switch {
	case r.f.SessionID != "":
		return "session:" + r.f.SessionID
	case r.f.IPAddress != "":
		return "ip:" + r.f.IPAddress
	default:
		return ""
	}
}

type sessionTotals struct {
	rows     int
	duration int
	first    time.Time
	last     time.Time
}

// Sessionize groups records by SessionKey and returns one derived copy per
// input record, in input order. Each copy carries its group's page-view count
// (the number of rows in the group) and its summed per-row duration, and is
// reclassified. When a group reports no duration at all, the span between its
// earliest and latest known timestamps is used instead. Records without a
// session key are returned unchanged.
func Sessionize(records []Record) ([]Record, error) {
	totals := make(map[string]*sessionTotals, len(records))
	for _, r := range records {
		key := SessionKey(r)
		if key == "" {
			continue
		}
		t, ok := totals[key]
		if !ok {
			t = &sessionTotals{}
			totals[key] = t
		}
		t.rows++
		t.duration += r.f.SessionDurationSeconds
		if r.TimestampKnown() {
			ts := r.f.TimestampUTC
			if t.first.IsZero() || ts.Before(t.first) {
				t.first = ts
			}
			if t.last.IsZero() || ts.After(t.last) {
				t.last = ts
			}
		}
	}

	out := make([]Record, 0, len(records))
	for _, r := range records {
		t, ok := totals[SessionKey(r)]
		if !ok {
			out = append(out, r)
			continue
		}
		duration := t.duration
		if duration == 0 && !t.first.IsZero() {
			duration = int(t.last.Sub(t.first) / time.Second)
		}
		derived, err := r.WithEngagement(t.rows, duration)
		if err != nil {
			return nil, err
		}
		out = append(out, derived)
	}
	return out, nil
}
