package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/ignite/visitor-insights/internal/company"
)

// CompanyRepo implements company.Directory against the companies table.
type CompanyRepo struct{ db *sql.DB }

// NewCompanyRepo creates a Postgres-backed company directory.
func NewCompanyRepo(db *sql.DB) *CompanyRepo { return &CompanyRepo{db: db} }

func (r *CompanyRepo) LookupByIP(ctx context.Context, ip string) (*company.Company, error) {
	c := &company.Company{}
	err := r.db.QueryRowContext(ctx, `
		SELECT name, COALESCE(domain,''), COALESCE(industry,''), COALESCE(location,''), ip_addresses
		FROM companies
		WHERE $1 = ANY(ip_addresses)
		ORDER BY name
		LIMIT 1
	`, ip).Scan(&c.Name, &c.Domain, &c.Industry, &c.Location, pq.Array(&c.IPAddresses))
	if err == sql.ErrNoRows {
		return nil, company.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup company by ip: %w", err)
	}
	return c, nil
}

func (r *CompanyRepo) List(ctx context.Context, limit int) ([]company.Company, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, COALESCE(domain,''), COALESCE(industry,''), COALESCE(location,''), ip_addresses
		FROM companies
		ORDER BY name
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	var out []company.Company
	for rows.Next() {
		var c company.Company
		if err := rows.Scan(&c.Name, &c.Domain, &c.Industry, &c.Location, pq.Array(&c.IPAddresses)); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Upsert inserts c or merges its addresses into the existing row of the same name.
func (r *CompanyRepo) Upsert(ctx context.Context, c company.Company) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO companies (name, domain, industry, location, ip_addresses)
		VALUES ($1, NULLIF($2,''), NULLIF($3,''), NULLIF($4,''), $5)
		ON CONFLICT (name) DO UPDATE SET
			domain = COALESCE(EXCLUDED.domain, companies.domain),
			industry = COALESCE(EXCLUDED.industry, companies.industry),
			location = COALESCE(EXCLUDED.location, companies.location),
			ip_addresses = ARRAY(SELECT DISTINCT unnest(companies.ip_addresses || EXCLUDED.ip_addresses))
	`, c.Name, c.Domain, c.Industry, c.Location, pq.Array(c.IPAddresses))
	if err != nil {
		return fmt.Errorf("upsert company %s: %w", c.Name, err)
	}
	return nil
}
