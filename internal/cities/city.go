package cities

import (
	"errors"
	"fmt"
)

// City is one row of the world-cities dataset. Values are immutable once loaded.
type City struct {
	Name       string  `json:"name"`
	Country    string  `json:"country"`
	IsCapital  bool    `json:"is_capital"`
	Population int64   `json:"population"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
}

var (
	// ErrUnsupportedFormat is returned when a dataset path has an unknown extension.
	ErrUnsupportedFormat = errors.New("unsupported dataset format")

	ErrMissingHeader = errors.New("dataset has no header row")
)

// DataLoadError describes a dataset that could not be turned into city records.
// Row is the 1-based data row, or 0 when the problem is in the header or the file itself.
type DataLoadError struct {
	Source string
	Row    int
	Column string
	Err    error
}

func (e *DataLoadError) Error() string {
	switch {
	case e.Row > 0 && e.Column != "":
		return fmt.Sprintf("load %s: row %d, column %q: %v", e.Source, e.Row, e.Column, e.Err)
	case e.Row > 0:
		return fmt.Sprintf("load %s: row %d: %v", e.Source, e.Row, e.Err)
	case e.Column != "":
		return fmt.Sprintf("load %s: column %q: %v", e.Source, e.Column, e.Err)
	default:
		return fmt.Sprintf("load %s: %v", e.Source, e.Err)
	}
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}
