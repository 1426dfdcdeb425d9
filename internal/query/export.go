package query

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

const (
	ExportCSV  = "csv"
	ExportXLSX = "xlsx"
)

var ErrUnknownExportFormat = errors.New("unknown export format")

var exportHeader = []string{"city", "country", "capital", "population", "lat", "lng"}

// ContentType returns the MIME type for an export format.
func ContentType(format string) (string, error) {
	switch format {
	case ExportCSV:
		return "text/csv", nil
	case ExportXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownExportFormat, format)
	}
}

// Export writes the result in a layout the dataset loader can read back.
func Export(w io.Writer, format string, result *Result) error {
	switch format {
	case ExportCSV:
		return writeCSV(w, result)
	case ExportXLSX:
		return writeXLSX(w, result)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownExportFormat, format)
	}
}

func exportRow(name, country string, capital bool, population int64, lat, lon float64) []string {
	return []string{
		name,
		country,
		strconv.FormatBool(capital),
		strconv.FormatInt(population, 10),
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lon, 'f', -1, 64),
	}
}

func writeCSV(w io.Writer, result *Result) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, c := range result.Cities {
		if err := writer.Write(exportRow(c.Name, c.Country, c.IsCapital, c.Population, c.Latitude, c.Longitude)); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeXLSX(w io.Writer, result *Result) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Cities"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open stream writer: %w", err)
	}

	header := make([]interface{}, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write xlsx header: %w", err)
	}

	for i, c := range result.Cities {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{c.Name, c.Country, strconv.FormatBool(c.IsCapital), c.Population, c.Latitude, c.Longitude}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write xlsx row %d: %w", i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush xlsx: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}
