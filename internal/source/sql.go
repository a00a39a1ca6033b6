package source

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"

	"github.com/ignite/visitor-insights/internal/datanorm"
)

// Dialect selects placeholder syntax for the visitors query.
type Dialect int

const (
	// Postgres uses $n placeholders (lib/pq).
	Postgres Dialect = iota
	// Snowflake uses ? placeholders (gosnowflake).
	Snowflake
)

func (d Dialect) String() string {
	if d == Snowflake {
		return "snowflake"
	}
	return "postgres"
}

func (d Dialect) placeholder(n int) string {
	if d == Snowflake {
		return "?"
	}
	return "$" + strconv.Itoa(n)
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*){0,2}$`)

// SQL reads the visitors table, newest first.
type SQL struct {
	db      *sql.DB
	dialect Dialect
	table   string
	limit   int
}

// NewSQL creates a table source. limit <= 0 reads every row.
func NewSQL(db *sql.DB, dialect Dialect, table string, limit int) (*SQL, error) {
	if table == "" {
		table = "visitors"
	}
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("source: invalid table name %q", table)
	}
	return &SQL{db: db, dialect: dialect, table: table, limit: limit}, nil
}

func (s *SQL) Name() string { return s.dialect.String() + ":" + s.table }

func (s *SQL) query() (string, []any) {
	q := "SELECT id, visitor_ip, date_time_utc, domain, request_type, page_url, referral_url, user_agent FROM " +
		s.table + " ORDER BY date_time_utc DESC"
	if s.limit > 0 {
		return q + " LIMIT " + s.dialect.placeholder(1), []any{s.limit}
	}
	return q, nil
}

func (s *SQL) Fetch(ctx context.Context) ([]datanorm.Row, error) {
	q, args := s.query()
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.Name(), err)
	}
	defer rows.Close()

	var out []datanorm.Row
	for rows.Next() {
		var id, ip, ts, domain, reqType, page, ref, ua sql.NullString
		if err := rows.Scan(&id, &ip, &ts, &domain, &reqType, &page, &ref, &ua); err != nil {
			return nil, fmt.Errorf("scan visitor row: %w", err)
		}
		sr := datanorm.StoreRow{
			ID:          nullable(id),
			VisitorIP:   ip.String,
			DateTimeUTC: ts.String,
			Domain:      nullable(domain),
			RequestType: nullable(reqType),
			PageURL:     nullable(page),
			ReferralURL: nullable(ref),
			UserAgent:   nullable(ua),
		}
		out = append(out, datanorm.StoreShapedRow(len(out), sr))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate visitor rows: %w", err)
	}
	return tag(out, s.Name()), nil
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
