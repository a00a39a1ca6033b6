package datanorm

import (
	"fmt"
	"sort"
	"time"

	"github.com/ignite/visitor-insights/internal/visitor"
)

// Column is one named value of a spreadsheet-shaped row.
type Column struct {
	Name  string
	Value any
}

// RawFieldSet is a spreadsheet-shaped row. Column order is the source column
// order and decides which column wins when several match a rule.
type RawFieldSet []Column

// FieldsFromMap builds a RawFieldSet with keys in lexicographic order.
func FieldsFromMap(m map[string]any) RawFieldSet {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fs := make(RawFieldSet, 0, len(keys))
	for _, k := range keys {
		fs = append(fs, Column{Name: k, Value: m[k]})
	}
	return fs
}

// FieldsFromRecord zips a header with one data row. Missing trailing cells
// are empty strings.
func FieldsFromRecord(header, record []string) RawFieldSet {
	fs := make(RawFieldSet, len(header))
	for i, h := range header {
		var v string
		if i < len(record) {
			v = record[i]
		}
		fs[i] = Column{Name: h, Value: v}
	}
	return fs
}

// Names returns the column names in order.
func (fs RawFieldSet) Names() []string {
	names := make([]string, len(fs))
	for i, c := range fs {
		names[i] = c.Name
	}
	return names
}

// StoreRow is a row of the remote visitors table. visitor_ip and
// date_time_utc are always present; the rest may be null.
type StoreRow struct {
	ID          *string `json:"id,omitempty"`
	VisitorIP   string  `json:"visitor_ip"`
	DateTimeUTC string  `json:"date_time_utc"`
	Domain      *string `json:"domain,omitempty"`
	RequestType *string `json:"request_type,omitempty"`
	PageURL     *string `json:"page_url,omitempty"`
	ReferralURL *string `json:"referral_url,omitempty"`
	UserAgent   *string `json:"user_agent,omitempty"`
}

// Enrichment carries engagement inputs computed outside the adapter.
// Nil fields mean "not supplied".
type Enrichment struct {
	PageViewCount          *int
	SessionDurationSeconds *int
}

// Row is one input to the adapter: exactly one of Fields or Store is set.
type Row struct {
	// Index is the row's zero-based position in its source.
	Index      int
	Fields     RawFieldSet
	Store      *StoreRow
	Enrichment *Enrichment
	// Source names where the row came from; it is copied onto the row's
	// issues.
	Source string
}

// SpreadsheetRow wraps a RawFieldSet at a position.
func SpreadsheetRow(index int, fs RawFieldSet) Row {
	return Row{Index: index, Fields: fs}
}

// StoreShapedRow wraps a StoreRow at a position.
func StoreShapedRow(index int, sr StoreRow) Row {
	return Row{Index: index, Store: &sr}
}

// IssueKind classifies a non-fatal adapter problem.
type IssueKind string

const (
	IssueUnresolvedField    IssueKind = "unresolved_field"
	IssueMalformedTimestamp IssueKind = "malformed_timestamp"
	IssueMalformedNumber    IssueKind = "malformed_number"
)

// Issue records a degraded value. Rows with issues are still produced.
type Issue struct {
	Source string         `json:"source,omitempty"`
	Row    int            `json:"row"`
	Kind   IssueKind      `json:"kind"`
	Field  CanonicalField `json:"field"`
	Column string         `json:"column,omitempty"`
	Value  string         `json:"value,omitempty"`
}

func (i Issue) String() string {
	prefix := fmt.Sprintf("row %d", i.Row)
	if i.Source != "" {
		prefix = i.Source + " " + prefix
	}
	switch i.Kind {
	case IssueUnresolvedField:
		return fmt.Sprintf("%s: no column for %s", prefix, i.Field)
	default:
		return fmt.Sprintf("%s: %s in column %q for %s: %q", prefix, i.Kind, i.Column, i.Field, i.Value)
	}
}

// Result is the outcome of adapting a batch.
type Result struct {
	Records  []visitor.Record `json:"records"`
	Issues   []Issue          `json:"issues"`
	Duration time.Duration    `json:"-"`
}
