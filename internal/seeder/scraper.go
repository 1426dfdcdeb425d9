package seeder

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

var ErrTableNotFound = errors.New("no table matched the selector")

// ScrapeOptions configures the collector
type ScrapeOptions struct {
	UserAgent string
	Timeout   time.Duration
	Delay     time.Duration
}

func DefaultScrapeOptions() ScrapeOptions {
	return ScrapeOptions{
		UserAgent: "demodash-seeder/1.0",
		Timeout:   30 * time.Second,
		Delay:     time.Second,
	}
}

// TableScraper downloads a page and extracts the first HTML table matching a selector
type TableScraper struct {
	opts   ScrapeOptions
	logger *logrus.Logger
}

func NewTableScraper(opts ScrapeOptions, logger *logrus.Logger) *TableScraper {
	return &TableScraper{
		opts:   opts,
		logger: logger,
	}
}

// Scrape visits pageURL and returns the matched table as rows of cell text, header first
func (s *TableScraper) Scrape(ctx context.Context, pageURL, selector string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// A fresh collector per page so visited-URL state does not leak between runs.
	c := colly.NewCollector(
		colly.UserAgent(s.opts.UserAgent),
	)
	c.SetRequestTimeout(s.opts.Timeout)
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       s.opts.Delay,
	}); err != nil {
		return nil, fmt.Errorf("failed to configure collector: %w", err)
	}

	var (
		rows          [][]string
		processingErr error
	)

	c.OnHTML(selector, func(e *colly.HTMLElement) {
		if rows != nil {
			return
		}
		rows = ExtractTable(e.DOM)
		s.logger.WithFields(logrus.Fields{
			"url":  pageURL,
			"rows": len(rows),
		}).Debug("Table extracted")
	})

	c.OnError(func(r *colly.Response, err error) {
		processingErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
	})

	if err := c.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("failed to visit page: %w", err)
	}
	c.Wait()

	if processingErr != nil {
		return nil, fmt.Errorf("processing error: %w", processingErr)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, selector)
	}

	return rows, nil
}

// ExtractTable reads a table selection into rows of cell text. Footnote
// superscripts and hidden sort keys are dropped, and cells spanning several
// columns are repeated so columns stay aligned.
func ExtractTable(table *goquery.Selection) [][]string {
	table = table.Clone()
	table.Find("sup, .sortkey, .reference, style, script").Remove()

	var rows [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		// rows of nested tables
		if tr.ParentsFiltered("table").Length() > 1 {
			return
		}

		var cells []string
		tr.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
			text := strings.TrimSpace(cell.Text())
			span := 1
			if raw, ok := cell.Attr("colspan"); ok {
				if n, err := strconv.Atoi(raw); err == nil && n > 1 {
					span = n
				}
			}
			for i := 0; i < span && i < 16; i++ {
				cells = append(cells, text)
			}
		})
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	})
	return rows
}
