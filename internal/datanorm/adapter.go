package datanorm

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/visitor-insights/internal/pkg/logger"
	"github.com/ignite/visitor-insights/internal/visitor"
)

// storeIDNamespace seeds the name-based ids of store rows without an id.
var storeIDNamespace = uuid.MustParse("4f0c3f6e-2b1d-5c7a-9e3b-7a6d1c2e8f90")

// Adapter turns raw spreadsheet and store rows into classified visitor
// records. It holds no mutable state and is safe for concurrent use.
type Adapter struct {
	rules            []Rule
	defaultPageViews int
	defaultTimestamp time.Time
	workers          int
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithRules replaces the column resolution rule table.
func WithRules(rules []Rule) Option {
	return func(a *Adapter) { a.rules = rules }
}

// WithDefaultPageViews sets the page-view count used when a spreadsheet row
// has no page-view column. Negative values are ignored.
func WithDefaultPageViews(n int) Option {
	return func(a *Adapter) {
		if n >= 0 {
			a.defaultPageViews = n
		}
	}
}

// WithDefaultTimestamp sets the timestamp used when a row's timestamp is
// missing or malformed. Without it, such rows carry visitor.UnknownTime.
func WithDefaultTimestamp(t time.Time) Option {
	return func(a *Adapter) { a.defaultTimestamp = t.UTC() }
}

// WithWorkers bounds AdaptAll's concurrency.
func WithWorkers(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.workers = n
		}
	}
}

// NewAdapter returns an adapter using DefaultRules, one page view per row
// and four workers unless overridden.
func NewAdapter(opts ...Option) *Adapter {
	a := &Adapter{
		rules:            DefaultRules,
		defaultPageViews: 1,
		workers:          4,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Adapt converts one row of either shape. Issues carry row.Source.
func (a *Adapter) Adapt(row Row) (visitor.Record, []Issue) {
	var (
		rec    visitor.Record
		issues []Issue
	)
	if row.Store != nil {
		rec, issues = a.FromStoreRow(row.Index, *row.Store, row.Enrichment)
	} else {
		rec, issues = a.FromSpreadsheetRow(row.Index, row.Fields)
	}
	for i := range issues {
		issues[i].Source = row.Source
	}
	return rec, issues
}

// FromSpreadsheetRow resolves fields of a free-text row through the rule
// table. It never fails: unresolved or malformed fields fall back to
// defaults and are reported as issues.
func (a *Adapter) FromSpreadsheetRow(index int, fs RawFieldSet) (visitor.Record, []Issue) {
	m := MapColumnsWith(fs.Names(), a.rules)

	var issues []Issue
	for _, f := range m.Unresolved {
		issues = append(issues, Issue{Row: index, Kind: IssueUnresolvedField, Field: f})
		logger.Debug("datanorm: unresolved field", "row", index, "field", f)
	}

	value := func(f CanonicalField) (any, string, bool) {
		idx, ok := m.FieldIdx[f]
		if !ok || idx >= len(fs) {
			return nil, "", false
		}
		return fs[idx].Value, fs[idx].Name, true
	}
	raw := func(f CanonicalField) any {
		v, _, _ := value(f)
		return v
	}
	text := func(f CanonicalField) string { return stringValue(raw(f)) }

	f := visitor.Fields{
		ID:                     strconv.Itoa(index + 1),
		IPAddress:              normalizeIP(raw(FieldIP)),
		TimestampUTC:           a.defaultTimestamp,
		PageURL:                text(FieldPage),
		ReferrerURL:            text(FieldReferrer),
		UserAgent:              text(FieldUserAgent),
		SessionID:              text(FieldSession),
		Domain:                 normalizeDomain(raw(FieldDomain)),
		Location:               normalizeLocation(raw(FieldLocation)),
		Company:                collapseSpaces(text(FieldCompany)),
		PageViewCount:          a.defaultPageViews,
		SessionDurationSeconds: 0,
	}

	if v, col, ok := value(FieldTimestamp); ok && !isBlank(v) {
		if ts, ok := parseTimestamp(v); ok {
			f.TimestampUTC = ts
			if clock, col, ok := value(FieldTimeOfDay); ok && !isBlank(clock) {
				if d, ok := parseTimeOfDay(clock); ok {
					if sinceMidnight(ts) == 0 {
						f.TimestampUTC = ts.Add(d)
					}
				} else {
					issues = append(issues, malformed(index, IssueMalformedTimestamp, FieldTimeOfDay, col, clock))
				}
			}
		} else {
			issues = append(issues, malformed(index, IssueMalformedTimestamp, FieldTimestamp, col, v))
		}
	}
	if v, col, ok := value(FieldPageViews); ok && !isBlank(v) {
		if n, ok := parseCount(v); ok {
			f.PageViewCount = n
		} else {
			f.PageViewCount = 0
			issues = append(issues, malformed(index, IssueMalformedNumber, FieldPageViews, col, v))
		}
	}
	if v, col, ok := value(FieldDuration); ok && !isBlank(v) {
		if n, ok := parseDurationSeconds(v); ok {
			f.SessionDurationSeconds = n
		} else {
			issues = append(issues, malformed(index, IssueMalformedNumber, FieldDuration, col, v))
		}
	}

	return a.build(f), issues
}

// FromStoreRow normalizes identity, timestamp and URL fields of a store row.
// Engagement inputs come only from enrich; a nil enrich yields tier Low.
func (a *Adapter) FromStoreRow(index int, sr StoreRow, enrich *Enrichment) (visitor.Record, []Issue) {
	var issues []Issue

	f := visitor.Fields{
		IPAddress:    normalizeIP(sr.VisitorIP),
		TimestampUTC: a.defaultTimestamp,
		PageURL:      deref(sr.PageURL),
		ReferrerURL:  deref(sr.ReferralURL),
		UserAgent:    deref(sr.UserAgent),
		Domain:       normalizeDomain(deref(sr.Domain)),
	}

	if ts, ok := parseTimestamp(sr.DateTimeUTC); ok {
		f.TimestampUTC = ts
	} else {
		issues = append(issues, malformed(index, IssueMalformedTimestamp, FieldTimestamp, "date_time_utc", sr.DateTimeUTC))
	}

	if id := deref(sr.ID); id != "" {
		f.ID = id
	} else {
		f.ID = uuid.NewSHA1(storeIDNamespace, []byte(f.IPAddress+"|"+sr.DateTimeUTC)).String()
	}

	if enrich != nil {
		if enrich.PageViewCount != nil {
			if *enrich.PageViewCount >= 0 {
				f.PageViewCount = *enrich.PageViewCount
			} else {
				issues = append(issues, malformed(index, IssueMalformedNumber, FieldPageViews, "", *enrich.PageViewCount))
			}
		}
		if enrich.SessionDurationSeconds != nil {
			if *enrich.SessionDurationSeconds >= 0 {
				f.SessionDurationSeconds = *enrich.SessionDurationSeconds
			} else {
				issues = append(issues, malformed(index, IssueMalformedNumber, FieldDuration, "", *enrich.SessionDurationSeconds))
			}
		}
	}

	return a.build(f), issues
}

// AdaptAll adapts rows with a bounded worker pool. Records keep the input
// order; issues are ordered by row position. A canceled context stops
// scheduling and the rows adapted so far are returned with ctx.Err().
func (a *Adapter) AdaptAll(ctx context.Context, rows []Row) (Result, error) {
	start := time.Now()
	records := make([]visitor.Record, len(rows))
	issues := make([][]Issue, len(rows))

	sem := make(chan struct{}, a.workers)
	var wg sync.WaitGroup
	scheduled := 0
	for i := range rows {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		scheduled++
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			records[i], issues[i] = a.Adapt(rows[i])
		}(i)
	}
	wg.Wait()

	res := Result{Records: records[:scheduled]}
	for _, is := range issues[:scheduled] {
		res.Issues = append(res.Issues, is...)
	}
	res.Duration = time.Since(start)

	if len(res.Issues) > 0 {
		logger.Info("datanorm: adapted batch with issues", "rows", scheduled, "issues", len(res.Issues))
	}
	if scheduled < len(rows) {
		return res, ctx.Err()
	}
	return res, nil
}

// build classifies f. Inputs are non-negative by construction, so the
// classifier cannot reject them.
func (a *Adapter) build(f visitor.Fields) visitor.Record {
	rec, err := visitor.New(f)
	if err != nil {
		f.PageViewCount, f.SessionDurationSeconds = 0, 0
		rec, _ = visitor.New(f)
	}
	return rec
}

func malformed(row int, kind IssueKind, field CanonicalField, col string, v any) Issue {
	return Issue{Row: row, Kind: kind, Field: field, Column: col, Value: stringValue(v)}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
