package datanorm

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ignite/visitor-insights/internal/engagement"
)

const sampleCSV = "\xEF\xBB\xBFCompany,Visitor IP Address,Time,Duration (sec),Page URL\n" +
	"Microsoft Corporation,69.191.211.207,2024-01-15 14:30:00,320,/products\n" +
	"\n" +
	"Fastly CDN,151.101.193.140,2024-01-15 15:00:00,45\n"

func TestReadCSV(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader(sampleCSV), "visitors.csv")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 0, rows[0].Index)
	assert.Equal(t, 1, rows[1].Index)
	assert.Equal(t, "visitors.csv", rows[0].Source)
	assert.Equal(t, "Company", rows[0].Fields[0].Name)
	assert.Equal(t, "", rows[1].Fields[4].Value, "short rows are padded")

	res, err := NewAdapter().AdaptAll(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, res.Records, 2)

	assert.Equal(t, "69.191.211.207", res.Records[0].IPAddress())
	assert.Equal(t, engagement.High, res.Records[0].EngagementTier())
	assert.Equal(t, "/products", res.Records[0].PageURL())
	assert.Equal(t, "2", res.Records[1].ID())
	assert.Equal(t, engagement.Low, res.Records[1].EngagementTier())
}

func TestReadCSV_Empty(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader(""), "empty.csv")
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = ReadCSV(strings.NewReader("IP,Page\n"), "header-only.csv")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Company", "IP Address", "Timestamp", "Pages Viewed", "Page", "Time Spent"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Deutsche Bank AG", "80.246.241.14", "2024-02-01T09:00:00Z", 12, "/pricing", "1:10"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]any{"Meta", "173.252.74.22", "2024-02-01T10:00:00Z", 2, "/about", "0:30"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	rows, err := ReadFile("export.xlsx", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	rec, issues := NewAdapter().Adapt(rows[0])
	assert.Empty(t, issues)
	assert.Equal(t, "80.246.241.14", rec.IPAddress())
	assert.Equal(t, 12, rec.PageViewCount())
	assert.Equal(t, 70, rec.SessionDurationSeconds())
	assert.Equal(t, engagement.High, rec.EngagementTier())
	assert.Equal(t, "Deutsche Bank AG", rec.Company())

	rec, _ = NewAdapter().Adapt(rows[1])
	assert.Equal(t, "2", rec.ID())
	assert.Equal(t, "/about", rec.PageURL())
}

func TestReadFile_Unsupported(t *testing.T) {
	_, err := ReadFile("visitors.json", strings.NewReader("[]"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestStripBOM_ShortInput(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader("ip"), "tiny.csv")
	require.NoError(t, err)
	assert.Empty(t, rows)
}
