package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/visitor-insights/internal/company"
)

var companyCols = []string{"name", "domain", "industry", "location", "ip_addresses"}

func TestCompanyRepo_LookupByIP(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT name, .* FROM companies\s+WHERE \$1 = ANY\(ip_addresses\)`).
		WithArgs("3.141.5.27").
		WillReturnRows(sqlmock.NewRows(companyCols).
			AddRow("Amazon Web Services", "aws.amazon.com", "Cloud", "Seattle, WA", "{3.141.5.27,3.141.5.28}"))

	c, err := NewCompanyRepo(db).LookupByIP(context.Background(), "3.141.5.27")
	require.NoError(t, err)
	assert.Equal(t, "Amazon Web Services", c.Name)
	assert.Equal(t, "Seattle, WA", c.Location)
	assert.Equal(t, []string{"3.141.5.27", "3.141.5.28"}, c.IPAddresses)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompanyRepo_LookupByIP_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM companies`).WithArgs("10.0.0.1").WillReturnRows(sqlmock.NewRows(companyCols))

	_, err = NewCompanyRepo(db).LookupByIP(context.Background(), "10.0.0.1")
	assert.ErrorIs(t, err, company.ErrNotFound)

	// a resolver treats the miss as Unknown
	name, err := company.NewDirectoryResolver(NewCompanyRepo(db)).Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, company.Unknown, name)
}

func TestCompanyRepo_LookupByIP_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("relation \"companies\" does not exist")
	mock.ExpectQuery(`FROM companies`).WillReturnError(boom)

	_, err = NewCompanyRepo(db).LookupByIP(context.Background(), "1.1.1.1")
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "lookup company by ip")
}

func TestCompanyRepo_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM companies\s+ORDER BY name\s+LIMIT \$1`).
		WithArgs(500).
		WillReturnRows(sqlmock.NewRows(companyCols).
			AddRow("Cloudflare", "", "", "", "{104.16.132.229}").
			AddRow("Google LLC", "google.com", "Technology", "", "{}"))

	list, err := NewCompanyRepo(db).List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, []string{"104.16.132.229"}, list[0].IPAddresses)
	assert.Empty(t, list[1].IPAddresses)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompanyRepo_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	c := company.Company{Name: "Fastly CDN", Domain: "fastly.com", IPAddresses: []string{"151.101.193.140"}}
	mock.ExpectExec(`INSERT INTO companies`).
		WithArgs(c.Name, c.Domain, "", "", pq.Array(c.IPAddresses)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewCompanyRepo(db).Upsert(context.Background(), c))
	require.NoError(t, mock.ExpectationsWereMet())
}
