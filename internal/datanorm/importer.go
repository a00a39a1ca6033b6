package datanorm

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX.
var ErrUnsupportedFormat = errors.New("datanorm: unsupported file format")

// ReadFile parses a spreadsheet export by file extension (.csv, .xlsx, .xlsm).
func ReadFile(name string, r io.Reader) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return ReadCSV(r, name)
	case ".xlsx", ".xlsm":
		return ReadXLSX(r, name)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
}

// ReadCSV reads a header row followed by data rows. Short rows are padded,
// blank rows are skipped and a UTF-8 BOM is ignored.
func ReadCSV(r io.Reader, source string) ([]Row, error) {
	reader := csv.NewReader(stripBOM(r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		if blankRecord(record) {
			continue
		}
		row := SpreadsheetRow(len(rows), FieldsFromRecord(header, record))
		row.Source = source
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadXLSX reads the first worksheet. The first non-blank row is the header.
// Cell values are the formatted text Excel would display.
func ReadXLSX(r io.Reader, source string) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	var header []string
	var rows []Row
	for _, record := range records {
		if blankRecord(record) {
			continue
		}
		if header == nil {
			header = record
			continue
		}
		row := SpreadsheetRow(len(rows), FieldsFromRecord(header, record))
		row.Source = source
		rows = append(rows, row)
	}
	return rows, nil
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// stripBOM wraps a reader to strip a UTF-8 BOM if present.
func stripBOM(r io.Reader) io.Reader {
	buf := make([]byte, 3)
	n, err := io.ReadFull(r, buf)
	if err != nil || n < 3 {
		return io.MultiReader(strings.NewReader(string(buf[:n])), r)
	}
	if buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF {
		return r
	}
	return io.MultiReader(strings.NewReader(string(buf[:n])), r)
}
