// grbwatch/models/alert_codec.go
package models

import (
	"errors"
	"fmt"
	"io"

	"github.com/jszwec/csvutil"
)

// DecodeAlertTable reads a header record followed by data records. Columns
// matching an Alert csv tag fill the typed fields, the rest go to Extra.
// An empty input yields an empty table.
func DecodeAlertTable(r csvutil.Reader) (*AlertTable, error) {
	table := &AlertTable{}

	decoder, err := csvutil.NewDecoder(r)
	if errors.Is(err, io.EOF) {
		return table, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder for alert table: %w", err)
	}
	header := decoder.Header()

	known := make(map[string]bool, len(KnownColumns))
	for _, c := range KnownColumns {
		known[c] = true
	}
	for _, c := range header {
		if !known[c] {
			table.ExtraColumns = append(table.ExtraColumns, c)
		}
	}

	for {
		var alert Alert
		if err := decoder.Decode(&alert); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to decode alert row %d: %w", len(table.Alerts)+1, err)
		}

		if unused := decoder.Unused(); len(unused) > 0 {
			record := decoder.Record()
			alert.Extra = make(map[string]string, len(unused))
			for _, i := range unused {
				alert.Extra[header[i]] = record[i]
			}
		}
		table.Alerts = append(table.Alerts, alert)
	}

	return table, nil
}

// EncodeAlertTable writes the header (typed columns, then ExtraColumns) and
// one record per alert to w.
func EncodeAlertTable(w csvutil.Writer, t *AlertTable) error {
	encoder := csvutil.NewEncoder(&extraColumnWriter{w: w, table: t})

	if len(t.Alerts) == 0 {
		if err := encoder.EncodeHeader(Alert{}); err != nil {
			return fmt.Errorf("failed to encode alert table header: %w", err)
		}
		return nil
	}
	for i, alert := range t.Alerts {
		if err := encoder.Encode(alert); err != nil {
			return fmt.Errorf("failed to encode alert row %d (trigger %s): %w", i+1, alert.Trig, err)
		}
	}
	return nil
}

// extraColumnWriter appends the untyped columns to every record produced by
// the csvutil encoder. The first record written is the header.
type extraColumnWriter struct {
	w     csvutil.Writer
	table *AlertTable
	n     int
}

func (e *extraColumnWriter) Write(record []string) error {
	defer func() { e.n++ }()
	if len(e.table.ExtraColumns) == 0 {
		return e.w.Write(record)
	}

	out := make([]string, 0, len(record)+len(e.table.ExtraColumns))
	out = append(out, record...)
	if e.n == 0 {
		out = append(out, e.table.ExtraColumns...)
		return e.w.Write(out)
	}

	extra := e.table.Alerts[e.n-1].Extra
	for _, col := range e.table.ExtraColumns {
		out = append(out, extra[col])
	}
	return e.w.Write(out)
}
