package query

import (
	"fmt"
	"strconv"
)

// TableData is the paged city table.
type TableData struct {
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Offset  int        `json:"offset"`
	Limit   int        `json:"limit"`
	Total   int        `json:"total"`
	Summary *TableSum  `json:"summary,omitempty"`
}

type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`  // "text", "number", "bool"
	Align string `json:"align"` // "left", "right"
}

// TableSum is the totals row. It always covers the whole result, not the page.
type TableSum struct {
	Label  string            `json:"label"`
	Values map[string]string `json:"values"`
}

// MapPoint is one marker on the map view.
type MapPoint struct {
	Name       string  `json:"name"`
	Country    string  `json:"country"`
	Latitude   float64 `json:"lat"`
	Longitude  float64 `json:"lon"`
	Population int64   `json:"population"`
	IsCapital  bool    `json:"is_capital"`
}

var tableColumns = []Column{
	{Key: "name", Label: "City", Type: "text", Align: "left"},
	{Key: "country", Label: "Country", Type: "text", Align: "left"},
	{Key: "population", Label: "Population", Type: "number", Align: "right"},
	{Key: "is_capital", Label: "Capital", Type: "bool", Align: "left"},
	{Key: "latitude", Label: "Latitude", Type: "number", Align: "right"},
	{Key: "longitude", Label: "Longitude", Type: "number", Align: "right"},
}

// BuildTable renders result rows [offset, offset+limit). A limit of zero or less means all remaining rows.
func BuildTable(result *Result, offset, limit int) *TableData {
	if offset < 0 {
		offset = 0
	}
	if offset > result.Count {
		offset = result.Count
	}
	end := result.Count
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	columns := make([]Column, len(tableColumns))
	copy(columns, tableColumns)

	rows := make([][]string, 0, end-offset)
	for _, c := range result.Cities[offset:end] {
		rows = append(rows, []string{
			c.Name,
			c.Country,
			strconv.FormatInt(c.Population, 10),
			strconv.FormatBool(c.IsCapital),
			strconv.FormatFloat(c.Latitude, 'f', 4, 64),
			strconv.FormatFloat(c.Longitude, 'f', 4, 64),
		})
	}

	return &TableData{
		Columns: columns,
		Rows:    rows,
		Offset:  offset,
		Limit:   limit,
		Total:   result.Count,
		Summary: &TableSum{
			Label: fmt.Sprintf("Total (%d cities)", result.Count),
			Values: map[string]string{
				"population": FormatInt(result.TotalPopulation),
			},
		},
	}
}

func MapPoints(result *Result) []MapPoint {
	points := make([]MapPoint, 0, len(result.Cities))
	for _, c := range result.Cities {
		points = append(points, MapPoint{
			Name:       c.Name,
			Country:    c.Country,
			Latitude:   c.Latitude,
			Longitude:  c.Longitude,
			Population: c.Population,
			IsCapital:  c.IsCapital,
		})
	}
	return points
}
