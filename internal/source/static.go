package source

import (
	"context"

	"github.com/ignite/visitor-insights/internal/datanorm"
)

// Static serves a fixed set of rows.
type Static struct {
	name string
	rows []datanorm.Row
}

// NewStatic wraps rows. The slice is copied.
func NewStatic(name string, rows []datanorm.Row) *Static {
	cp := make([]datanorm.Row, len(rows))
	copy(cp, rows)
	return &Static{name: name, rows: cp}
}

func (s *Static) Name() string { return s.name }

// Fetch returns a fresh copy of the rows on every call.
func (s *Static) Fetch(ctx context.Context) ([]datanorm.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]datanorm.Row, len(s.rows))
	copy(out, s.rows)
	return tag(out, s.name), nil
}

// Demo returns a sample feed for running without any backing store.
// Tiers are never stored; they come from the classifier like any other
// source.
func Demo() *Static {
	type demo struct {
		ip, company, location, browser, page string
		pages                                int
		duration                             string
		ts                                   string
	}
	visits := []demo{
		{"69.191.211.207", "Microsoft Corporation", "Redmond, WA", "Chrome", "/products/knowledge-management", 12, "8m 45s", "2024-01-15T14:30:00Z"},
		{"180.179.180.41", "Salesforce Inc", "San Francisco, CA", "Chrome", "/solutions/crm-integration", 8, "5m 32s", "2024-01-15T12:10:00Z"},
		{"3.141.5.27", "Amazon Web Services", "Seattle, WA", "Chrome", "/demo", 15, "12m 18s", "2024-01-15T15:05:00Z"},
		{"80.246.241.14", "Deutsche Bank AG", "Frankfurt, Germany", "Firefox", "/pricing", 6, "3m 21s", "2024-01-15T10:45:00Z"},
		{"162.249.164.251", "JPMorgan Chase", "New York, NY", "Chrome", "/resources/customer-analytics", 9, "7m 15s", "2024-01-15T13:20:00Z"},
		{"151.101.193.140", "", "", "Safari", "/about", 2, "0:45", "2024-01-15T16:00:00Z"},
		{"104.16.123.96", "", "", "Edge", "/integrations", 3, "1m 50s", "2024-01-15T16:20:00Z"},
	}

	rows := make([]datanorm.Row, len(visits))
	for i, v := range visits {
		rows[i] = datanorm.SpreadsheetRow(i, datanorm.RawFieldSet{
			{Name: "Visitor IP", Value: v.ip},
			{Name: "Company", Value: v.company},
			{Name: "Domain", Value: "www.egain.com"},
			{Name: "Page URL", Value: v.page},
			{Name: "Pages Viewed", Value: v.pages},
			{Name: "Duration", Value: v.duration},
			{Name: "Visit Time", Value: v.ts},
			{Name: "Location", Value: v.location},
			{Name: "Browser", Value: v.browser},
		})
	}
	return NewStatic("demo", rows)
}
