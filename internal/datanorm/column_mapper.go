package datanorm

import "strings"

// CanonicalField is a visitor field that spreadsheet columns are resolved to.
type CanonicalField string

const (
	FieldPageViews CanonicalField = "page_view_count"
	FieldDuration  CanonicalField = "session_duration_seconds"
	FieldTimestamp CanonicalField = "timestamp_utc"
	// FieldTimeOfDay is a clock column that completes a date-only timestamp.
	FieldTimeOfDay CanonicalField = "time_of_day"
	FieldReferrer  CanonicalField = "referrer_url"
	FieldUserAgent CanonicalField = "user_agent"
	FieldSession   CanonicalField = "session_id"
	FieldIP        CanonicalField = "ip_address"
	FieldPage      CanonicalField = "page_url"
	FieldDomain    CanonicalField = "domain"
	FieldLocation  CanonicalField = "location"
	FieldCompany   CanonicalField = "company"
)

// Rule resolves one canonical field to an unclaimed column whose normalized
// name contains a synonym and none of the exclusions. Synonyms are listed in
// priority order; for each synonym, columns are scanned in source order.
// Optional fields produce no issue when unresolved. A DateOnly rule is only
// tried when the timestamp resolved to a column naming a date and no time.
type Rule struct {
	Field    CanonicalField
	Synonyms []string
	Exclude  []string
	Optional bool
	DateOnly bool
}

// DefaultRules is the ordered rule table. Earlier rules claim columns first,
// so "Pages Viewed" is taken for page views before the page rule sees it and
// an explicit "Duration" column wins over a generic "Time" column. Next to a
// "Date" column, a generic "Time" column is the clock time of the visit and
// never a duration.
var DefaultRules = []Rule{
	{Field: FieldPageViews, Synonyms: []string{"pageviews", "page views", "page_views", "pages viewed", "pages"}},
	{Field: FieldDuration, Synonyms: []string{"duration", "time on", "time spent"}},
	{Field: FieldTimestamp, Synonyms: []string{"stamp", "date", "time"}, Exclude: []string{"zone"}},
	{Field: FieldTimeOfDay, Synonyms: []string{"time"}, Exclude: []string{"stamp", "zone", "time on", "time spent"}, Optional: true, DateOnly: true},
	{Field: FieldDuration, Synonyms: []string{"time"}, Exclude: []string{"stamp", "zone"}},
	{Field: FieldReferrer, Synonyms: []string{"refer"}, Optional: true},
	{Field: FieldUserAgent, Synonyms: []string{"agent", "browser"}, Optional: true},
	{Field: FieldSession, Synonyms: []string{"session"}, Optional: true},
	{Field: FieldIP, Synonyms: []string{"ip", "address"}, Exclude: []string{"email", "zip", "description"}},
	{Field: FieldPage, Synonyms: []string{"page", "url", "path"}},
	{Field: FieldDomain, Synonyms: []string{"domain", "host"}, Optional: true},
	{Field: FieldLocation, Synonyms: []string{"location", "city", "region", "country"}, Optional: true},
	{Field: FieldCompany, Synonyms: []string{"company", "organization", "organisation"}, Optional: true},
}

// ColumnMapping is the resolved mapping for one header.
type ColumnMapping struct {
	FieldIdx map[CanonicalField]int // canonical field -> column index
	Claimed  map[int]CanonicalField // column index -> canonical field
	RawNames []string
	// Unresolved lists required fields that no column matched, in rule order.
	Unresolved []CanonicalField
}

// Column returns the index and raw name resolved for f.
func (m *ColumnMapping) Column(f CanonicalField) (int, string, bool) {
	idx, ok := m.FieldIdx[f]
	if !ok {
		return -1, "", false
	}
	return idx, m.RawNames[idx], true
}

// MapColumns resolves header against DefaultRules.
func MapColumns(header []string) *ColumnMapping {
	return MapColumnsWith(header, DefaultRules)
}

// MapColumnsWith resolves header against an ordered rule table.
func MapColumnsWith(header []string, rules []Rule) *ColumnMapping {
	m := &ColumnMapping{
		FieldIdx: make(map[CanonicalField]int, len(rules)),
		Claimed:  make(map[int]CanonicalField, len(header)),
		RawNames: header,
	}

	normalized := make([]string, len(header))
	loose := make([]string, len(header))
	for i, h := range header {
		normalized[i] = normalizeHeader(h)
		loose[i] = separatorsToSpaces(normalized[i])
	}

	required := make(map[CanonicalField]bool, len(rules))
	var order []CanonicalField
	for _, r := range rules {
		if _, seen := required[r.Field]; !seen {
			order = append(order, r.Field)
		}
		required[r.Field] = required[r.Field] || !r.Optional

		if _, done := m.FieldIdx[r.Field]; done {
			continue
		}
		if r.DateOnly && !m.dateOnlyTimestamp(normalized) {
			continue
		}
		if col, ok := r.resolve(normalized, loose, m.Claimed); ok {
			m.FieldIdx[r.Field] = col
			m.Claimed[col] = r.Field
		}
	}

	for _, f := range order {
		if _, ok := m.FieldIdx[f]; !ok && required[f] {
			m.Unresolved = append(m.Unresolved, f)
		}
	}
	return m
}

func (m *ColumnMapping) dateOnlyTimestamp(normalized []string) bool {
	idx, ok := m.FieldIdx[FieldTimestamp]
	if !ok {
		return false
	}
	name := normalized[idx]
	return strings.Contains(name, "date") && !strings.Contains(name, "time") && !strings.Contains(name, "stamp")
}

// resolve tries synonyms in priority order; for each synonym, columns are
// scanned in source order.
func (r Rule) resolve(normalized, loose []string, claimed map[int]CanonicalField) (int, bool) {
	for _, syn := range r.Synonyms {
		for col := range normalized {
			if _, taken := claimed[col]; taken {
				continue
			}
			if r.excluded(normalized[col]) {
				continue
			}
			if strings.Contains(normalized[col], syn) || strings.Contains(loose[col], syn) {
				return col, true
			}
		}
	}
	return -1, false
}

func (r Rule) excluded(name string) bool {
	if name == "" {
		return true
	}
	for _, ex := range r.Exclude {
		if strings.Contains(name, ex) {
			return true
		}
	}
	return false
}

// normalizeHeader lowercases and trims a header, dropping surrounding quotes.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Trim(h, "\"'")
}

func separatorsToSpaces(h string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' || r == '-' || r == '.' {
			return ' '
		}
		return r
	}, h)
}
