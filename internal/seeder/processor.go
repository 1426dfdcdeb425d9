package seeder

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/demodash/backend/internal/cities"
)

// RowIssue records a scraped row that could not be turned into a city
type RowIssue struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// TableProcessor cleans scraped table cells into the column layout the city
// loader reads.
type TableProcessor struct {
	multiWhitespace *regexp.Regexp
	htmlTags        *regexp.Regexp
	footnotes       *regexp.Regexp
	parenthetical   *regexp.Regexp
	coordinate      *regexp.Regexp
}

func NewTableProcessor() *TableProcessor {
	return &TableProcessor{
		multiWhitespace: regexp.MustCompile(`\s+`),
		htmlTags:        regexp.MustCompile(`<[^>]*>`),
		footnotes:       regexp.MustCompile(`\[[^\]]*\]`),
		parenthetical:   regexp.MustCompile(`\([^)]*\)`),
		coordinate:      regexp.MustCompile(`^(-?[0-9]+(?:\.[0-9]+)?)\s*°?\s*([NSEWnsew])?$`),
	}
}

// headerAliases covers column titles seen on scraped pages that the loader does not know.
var headerAliases = map[string]string{
	"city_name":        "city",
	"municipality":     "city",
	"country_name":     "country",
	"nation":           "country",
	"pop":              "population",
	"population_total": "population",
	"capital_city":     "capital",
	"status":           "capital",
	"long":             "lng",
}

// CleanCell removes markup and footnote markers and collapses whitespace
func (tp *TableProcessor) CleanCell(cell string) string {
	cell = tp.htmlTags.ReplaceAllString(cell, "")
	cell = tp.footnotes.ReplaceAllString(cell, "")
	cell = strings.ReplaceAll(cell, "\u00a0", " ")
	cell = tp.multiWhitespace.ReplaceAllString(cell, " ")
	return strings.TrimSpace(cell)
}

// NormalizeHeader turns "Population (2023)[1]" into "population"
func (tp *TableProcessor) NormalizeHeader(header string) string {
	header = tp.parenthetical.ReplaceAllString(tp.CleanCell(header), "")
	header = strings.ToLower(strings.TrimSpace(header))
	header = strings.Trim(header, "?:.")
	header = strings.Join(strings.Fields(header), "_")
	if alias, ok := headerAliases[header]; ok {
		return alias
	}
	return header
}

// NormalizePopulation strips thousands separators: "37,400,068" becomes "37400068".
// Placeholders such as "n/a" or a dash become empty.
func (tp *TableProcessor) NormalizePopulation(cell string) string {
	cell = tp.CleanCell(cell)
	switch strings.ToLower(cell) {
	case "", "-", "–", "—", "n/a", "na", "unknown", "?":
		return ""
	}

	replacer := strings.NewReplacer(",", "", " ", "", "_", "", "'", "", "\u202f", "", "\u00a0", "")
	return replacer.Replace(cell)
}

// NormalizeCapital maps scraped markers onto the loader's capital spellings
func (tp *TableProcessor) NormalizeCapital(cell string) string {
	switch strings.ToLower(tp.CleanCell(cell)) {
	case "✓", "✔", "x", "*", "capital", "national capital", "yes", "true", "primary":
		return "true"
	case "", "-", "–", "—", "no", "false", "regional capital", "admin", "minor":
		return "false"
	default:
		return tp.CleanCell(cell)
	}
}

// NormalizeCoordinate accepts decimal degrees with an optional hemisphere
// suffix: "33.87°S" becomes "-33.87".
func (tp *TableProcessor) NormalizeCoordinate(cell string) string {
	cell = tp.CleanCell(cell)
	m := tp.coordinate.FindStringSubmatch(cell)
	if m == nil {
		return cell
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return cell
	}
	switch strings.ToUpper(m[2]) {
	case "S", "W":
		value = -value
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// Process normalizes a scraped table (header first) and parses each row on its
// own, so one malformed row is reported instead of failing the whole import.
func (tp *TableProcessor) Process(source string, rows [][]string) ([]cities.City, []RowIssue, error) {
	if len(rows) == 0 {
		return nil, nil, &cities.DataLoadError{Source: source, Err: cities.ErrMissingHeader}
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = tp.NormalizeHeader(h)
	}

	// Validates the header once; an empty body parses to no cities.
	if _, err := cities.ParseRows(source, [][]string{header}); err != nil {
		return nil, nil, err
	}

	var (
		out    []cities.City
		issues []RowIssue
	)
	for i, row := range rows[1:] {
		cleaned := tp.normalizeRow(header, row)
		parsed, err := cities.ParseRows(source, [][]string{header, cleaned})
		if err != nil {
			var loadErr *cities.DataLoadError
			if errors.As(err, &loadErr) {
				loadErr.Row = i + 1
			}
			issues = append(issues, RowIssue{Row: i + 1, Reason: err.Error()})
			continue
		}
		out = append(out, parsed...)
	}

	if len(out) == 0 {
		return nil, issues, &cities.DataLoadError{Source: source, Err: fmt.Errorf("no usable rows in %d scraped", len(rows)-1)}
	}
	return out, issues, nil
}

func (tp *TableProcessor) normalizeRow(header, row []string) []string {
	cleaned := make([]string, len(row))
	for i, cell := range row {
		column := ""
		if i < len(header) {
			column = header[i]
		}

		switch column {
		case "population":
			cleaned[i] = tp.NormalizePopulation(cell)
		case "capital", "is_capital":
			cleaned[i] = tp.NormalizeCapital(cell)
		case "lat", "latitude", "lng", "lon", "longitude":
			cleaned[i] = tp.NormalizeCoordinate(cell)
		default:
			cleaned[i] = tp.CleanCell(cell)
		}
	}
	return cleaned
}
