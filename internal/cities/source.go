package cities

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Source produces the raw city records for a Store.
type Source interface {
	// ID identifies the source for memoization; equal IDs must yield equal data.
	ID() string
	Load(ctx context.Context) ([]City, error)
}

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// SourceFromPath picks a file source by extension.
func SourceFromPath(path, sheet string) (Source, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return &CSVSource{Path: path}, nil
	case ".xlsx", ".xlsm":
		return &XLSXSource{Path: path, Sheet: sheet}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// CSVSource reads a comma separated file with a header row.
type CSVSource struct {
	Path string
}

func (s *CSVSource) ID() string {
	return "csv:" + s.Path
}

func (s *CSVSource) Load(ctx context.Context) ([]City, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, &DataLoadError{Source: s.Path, Err: err}
	}
	defer f.Close()

	return ReadCSV(ctx, s.Path, f)
}

// ReadCSV parses CSV content from r. name is used in error messages.
func ReadCSV(ctx context.Context, name string, r io.Reader) ([]City, error) {
	reader := bufio.NewReader(r)
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, &DataLoadError{Source: name, Err: fmt.Errorf("failed to read csv: %w", err)}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return ParseRows(name, records)
}

// XLSXSource reads a worksheet from an Excel workbook. An empty Sheet means the first sheet.
type XLSXSource struct {
	Path  string
	Sheet string
}

func (s *XLSXSource) ID() string {
	return "xlsx:" + s.Path + "#" + s.Sheet
}

func (s *XLSXSource) Load(ctx context.Context) ([]City, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, &DataLoadError{Source: s.Path, Err: err}
	}
	defer f.Close()

	return ReadXLSX(ctx, s.Path, s.Sheet, f)
}

// ReadXLSX parses the named sheet (or the first one) of a workbook read from r.
func ReadXLSX(ctx context.Context, name, sheet string, r io.Reader) ([]City, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &DataLoadError{Source: name, Err: fmt.Errorf("failed to open xlsx: %w", err)}
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, &DataLoadError{Source: name, Err: errors.New("workbook has no sheets")}
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &DataLoadError{Source: name, Err: fmt.Errorf("failed to read rows from sheet %q: %w", sheet, err)}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return ParseRows(name, rows)
}

// StaticSource serves a fixed slice of cities.
type StaticSource struct {
	Name   string
	Cities []City
}

func (s *StaticSource) ID() string {
	return "static:" + s.Name
}

func (s *StaticSource) Load(ctx context.Context) ([]City, error) {
	return s.Cities, nil
}
