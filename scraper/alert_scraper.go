// grbwatch/scraper/alert_scraper.go
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gewnthar/grbwatch/models"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "scraper")

const userAgent = "grbwatch/1.0 (+https://github.com/gewnthar/grbwatch)"

// FetchAlertTable downloads the Swift GRB listing at pageURL and parses the
// first table on the page. There is no retry; any failure is returned.
func FetchAlertTable(ctx context.Context, pageURL string, timeout time.Duration) (*models.AlertTable, error) {
	log.Infof("Fetching alert listing from %s", pageURL)

	client := http.Client{Timeout: timeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", pageURL, err)
	}
	req.Header.Set("User-Agent", userAgent)

	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get URL %s: %w", pageURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get URL %s: status code %d", pageURL, res.StatusCode)
	}

	table, err := ParseAlertTable(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse alert listing from %s: %w", pageURL, err)
	}
	log.Infof("Parsed %d alerts from %s", len(table.Alerts), pageURL)
	return table, nil
}

// ParseAlertTable turns raw listing HTML into alerts. Only the first <table>
// is read. Header labels are normalized, repeated header rows are dropped and
// rows without a trigger id are skipped.
func ParseAlertTable(r io.Reader) (*models.AlertTable, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	first := doc.Find("table").First()
	if first.Length() == 0 {
		return nil, fmt.Errorf("no table found in page")
	}

	grid := expandTable(first)
	headerRows := grid.headerRowCount()
	columns := grid.columnNames(headerRows)

	trigCol := -1
	for i, name := range columns {
		if name == models.ColTrig {
			trigCol = i
			break
		}
	}
	if trigCol < 0 {
		return nil, fmt.Errorf("no %q column in table header %v", models.ColTrig, columns)
	}

	records := [][]string{columns}
	for i := headerRows; i < len(grid.rows); i++ {
		row := grid.rows[i]
		switch {
		case grid.header[i], row[trigCol] == models.ColTrig:
			continue
		case row[trigCol] == "":
			log.Debugf("Skipping table row %d without a trigger id", i+1)
			continue
		}
		records = append(records, row)
	}

	return models.DecodeAlertTable(&recordReader{records: records})
}

// recordReader feeds in-memory records to a csvutil decoder.
type recordReader struct {
	records [][]string
	next    int
}

func (r *recordReader) Read() ([]string, error) {
	if r.next >= len(r.records) {
		return nil, io.EOF
	}
	rec := r.records[r.next]
	r.next++
	return rec, nil
}
