package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/visitor-insights/internal/datanorm"
	"github.com/ignite/visitor-insights/internal/engagement"
)

var visitorCols = []string{"id", "visitor_ip", "date_time_utc", "domain", "request_type", "page_url", "referral_url", "user_agent"}

func TestSQL_Postgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id, visitor_ip, date_time_utc, .* FROM visitors ORDER BY date_time_utc DESC LIMIT \$1`).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows(visitorCols).
			AddRow("a1", "69.191.211.207", ts, "www.egain.com", "GET", "/products", nil, "Mozilla/5.0").
			AddRow(nil, "3.141.5.27", "2024-01-15T13:00:00Z", nil, nil, nil, nil, nil))

	src, err := NewSQL(db, Postgres, "", 50)
	require.NoError(t, err)
	assert.Equal(t, "postgres:visitors", src.Name())

	rows, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NoError(t, mock.ExpectationsWereMet())

	first := rows[0].Store
	require.NotNil(t, first)
	assert.Equal(t, "a1", *first.ID)
	assert.Equal(t, "69.191.211.207", first.VisitorIP)
	assert.Nil(t, first.ReferralURL)
	assert.Equal(t, "/products", *first.PageURL)

	second := rows[1].Store
	assert.Nil(t, second.ID)
	assert.Nil(t, second.Domain)
	assert.Equal(t, 1, rows[1].Index)

	res, err := datanorm.NewAdapter().AdaptAll(context.Background(), rows)
	require.NoError(t, err)
	assert.Empty(t, res.Issues)
	assert.True(t, ts.Equal(res.Records[0].TimestampUTC()))
	// store rows carry no engagement inputs
	assert.Equal(t, engagement.Low, res.Records[0].EngagementTier())
}

func TestSQL_SnowflakeNoLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM WEB\.VISITORS ORDER BY date_time_utc DESC$`).
		WillReturnRows(sqlmock.NewRows(visitorCols))

	src, err := NewSQL(db, Snowflake, "WEB.VISITORS", 0)
	require.NoError(t, err)
	assert.Equal(t, "snowflake:WEB.VISITORS", src.Name())

	rows, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQL_SnowflakePlaceholder(t *testing.T) {
	src, err := NewSQL(nil, Snowflake, "VISITORS", 10)
	require.NoError(t, err)
	q, args := src.query()
	assert.Contains(t, q, "LIMIT ?")
	assert.Equal(t, []any{10}, args)
}

func TestSQL_InvalidTable(t *testing.T) {
	for _, name := range []string{"visitors; DROP TABLE x", "a.b.c.d", "1visitors", "vis-itors"} {
		_, err := NewSQL(nil, Postgres, name, 0)
		assert.Error(t, err, name)
	}
}

func TestSQL_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM visitors`).WillReturnError(errors.New("connection reset"))

	src, err := NewSQL(db, Postgres, "visitors", 0)
	require.NoError(t, err)
	_, err = src.Fetch(context.Background())
	assert.ErrorContains(t, err, "connection reset")
}
