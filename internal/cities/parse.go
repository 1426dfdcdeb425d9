package cities

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	ColumnName       = "name"
	ColumnCountry    = "country"
	ColumnCapital    = "capital"
	ColumnPopulation = "population"
	ColumnLatitude   = "latitude"
	ColumnLongitude  = "longitude"
)

// columnAliases maps lowercased header names onto canonical columns.
var columnAliases = map[string]string{
	"name":       ColumnName,
	"city":       ColumnName,
	"city_ascii": ColumnName,
	"country":    ColumnCountry,
	"capital":    ColumnCapital,
	"is_capital": ColumnCapital,
	"population": ColumnPopulation,
	"lat":        ColumnLatitude,
	"latitude":   ColumnLatitude,
	"lng":        ColumnLongitude,
	"lon":        ColumnLongitude,
	"longitude":  ColumnLongitude,
}

var requiredColumns = []string{
	ColumnName,
	ColumnCountry,
	ColumnCapital,
	ColumnPopulation,
	ColumnLatitude,
	ColumnLongitude,
}

// ParseRows converts a header row plus data rows into cities. Blank rows are skipped.
func ParseRows(source string, rows [][]string) ([]City, error) {
	if len(rows) == 0 {
		return nil, &DataLoadError{Source: source, Err: ErrMissingHeader}
	}

	index, err := mapHeader(rows[0])
	if err != nil {
		var loadErr *DataLoadError
		if errors.As(err, &loadErr) {
			loadErr.Source = source
		}
		return nil, err
	}

	cities := make([]City, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}

		city, err := parseRow(row, index)
		if err != nil {
			var loadErr *DataLoadError
			if errors.As(err, &loadErr) {
				loadErr.Source = source
				loadErr.Row = i + 1
			}
			return nil, err
		}
		cities = append(cities, city)
	}

	return cities, nil
}

func mapHeader(header []string) (map[string]int, error) {
	index := make(map[string]int, len(requiredColumns))
	for i, raw := range header {
		name := strings.ToLower(strings.TrimSpace(raw))
		canonical, ok := columnAliases[name]
		if !ok {
			continue
		}
		if _, seen := index[canonical]; seen {
			continue
		}
		index[canonical] = i
	}

	for _, column := range requiredColumns {
		if _, ok := index[column]; !ok {
			return nil, &DataLoadError{Column: column, Err: errors.New("required column missing")}
		}
	}
	return index, nil
}

func parseRow(row []string, index map[string]int) (City, error) {
	cell := func(column string) string {
		i := index[column]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	city := City{
		Name:    cell(ColumnName),
		Country: cell(ColumnCountry),
	}
	if city.Name == "" {
		return City{}, &DataLoadError{Column: ColumnName, Err: errors.New("empty city name")}
	}
	if city.Country == "" {
		return City{}, &DataLoadError{Column: ColumnCountry, Err: errors.New("empty country")}
	}

	var err error
	if city.IsCapital, err = ParseCapital(cell(ColumnCapital)); err != nil {
		return City{}, &DataLoadError{Column: ColumnCapital, Err: err}
	}
	if city.Population, err = ParsePopulation(cell(ColumnPopulation)); err != nil {
		return City{}, &DataLoadError{Column: ColumnPopulation, Err: err}
	}
	if city.Latitude, err = parseCoordinate(cell(ColumnLatitude), 90); err != nil {
		return City{}, &DataLoadError{Column: ColumnLatitude, Err: err}
	}
	if city.Longitude, err = parseCoordinate(cell(ColumnLongitude), 180); err != nil {
		return City{}, &DataLoadError{Column: ColumnLongitude, Err: err}
	}

	return city, nil
}

// ParseCapital accepts boolean spellings and the world-cities capital classes
// (primary is a national capital; admin and minor are not).
func ParseCapital(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "y", "primary":
		return true, nil
	case "false", "0", "no", "n", "admin", "minor", "":
		return false, nil
	default:
		return false, fmt.Errorf("invalid capital flag %q", raw)
	}
}

// ParsePopulation accepts non-negative integers, including floats with no fractional part.
func ParsePopulation(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("empty population")
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative population %d", n)
		}
		return n, nil
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid population %q", raw)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("population %q is not a whole number", raw)
	}
	if f < 0 {
		return 0, fmt.Errorf("negative population %q", raw)
	}
	if f >= math.MaxInt64 {
		return 0, fmt.Errorf("population %q out of range", raw)
	}
	return int64(f), nil
}

func parseCoordinate(raw string, limit float64) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid coordinate %q", raw)
	}
	if math.IsNaN(v) || v < -limit || v > limit {
		return 0, fmt.Errorf("coordinate %v outside [-%v, %v]", v, limit, limit)
	}
	return v, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
