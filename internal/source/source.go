// Package source fetches raw visitor rows from the places they live:
// in-memory demo data, spreadsheet exports on disk or in object storage,
// the visitors table in Postgres or Snowflake, and Supabase's REST API.
// Every source returns datanorm rows; classification happens downstream.
package source

import (
	"context"

	"github.com/ignite/visitor-insights/internal/datanorm"
)

// Source is a bulk visitor feed.
type Source interface {
	// Name identifies the source in logs and issue reports.
	Name() string
	// Fetch returns the current rows. Row indexes are zero-based positions
	// in the returned slice.
	Fetch(ctx context.Context) ([]datanorm.Row, error)
}

// tag renumbers rows and stamps them with the source name, replacing
// whatever the reader recorded.
func tag(rows []datanorm.Row, name string) []datanorm.Row {
	for i := range rows {
		rows[i].Index = i
		rows[i].Source = name
	}
	return rows
}
