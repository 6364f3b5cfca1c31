// grbwatch/models/alert.go
package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Column names of the Swift GRB listing after header normalization.
const (
	ColTrig   = "Trig"
	ColDate   = "Date yy/mm/dd"
	ColTime   = "Time UT"
	ColBATRA  = "BAT RA"
	ColBATDec = "BAT Dec"
	ColXRTRA  = "XRT RA"
	ColXRTDec = "XRT Dec"
)

// KnownColumns lists the typed Alert columns in the order they are written.
var KnownColumns = []string{ColTrig, ColDate, ColTime, ColBATRA, ColBATDec, ColXRTRA, ColXRTDec}

// Alert is one row of the Swift GRB listing. Every value is kept as text;
// the trigger id is only parsed as an integer when the store is written.
type Alert struct {
	Trig   string `csv:"Trig" json:"trig"`
	Date   string `csv:"Date yy/mm/dd" json:"date"`
	Time   string `csv:"Time UT" json:"time"`
	BATRA  string `csv:"BAT RA" json:"bat_ra"`
	BATDec string `csv:"BAT Dec" json:"bat_dec"`
	XRTRA  string `csv:"XRT RA" json:"xrt_ra"`
	XRTDec string `csv:"XRT Dec" json:"xrt_dec"`

	// Scraped columns without a typed field, keyed by normalized header.
	Extra map[string]string `csv:"-" json:"extra,omitempty"`
}

// TriggerNumber parses the trigger id as an integer.
func (a Alert) TriggerNumber() (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(a.Trig))
	if err != nil {
		return 0, fmt.Errorf("trigger id %q is not an integer: %w", a.Trig, err)
	}
	return n, nil
}

// HasBATPosition reports whether both BAT coordinates are present.
func (a Alert) HasBATPosition() bool {
	return a.BATRA != "" && a.BATDec != ""
}

// HasXRTPosition reports whether both XRT coordinates are present.
func (a Alert) HasXRTPosition() bool {
	return a.XRTRA != "" && a.XRTDec != ""
}

// AlertTable is an ordered set of alerts plus the names of the untyped
// columns carried in Alert.Extra, in first-seen order.
type AlertTable struct {
	ExtraColumns []string `json:"extra_columns,omitempty"`
	Alerts       []Alert  `json:"alerts"`
}

// Columns returns the full header: typed columns first, then extras.
func (t *AlertTable) Columns() []string {
	cols := make([]string, 0, len(KnownColumns)+len(t.ExtraColumns))
	cols = append(cols, KnownColumns...)
	return append(cols, t.ExtraColumns...)
}

// AddColumns registers extra column names not seen before.
func (t *AlertTable) AddColumns(names ...string) {
	seen := make(map[string]bool, len(t.ExtraColumns))
	for _, c := range t.ExtraColumns {
		seen[c] = true
	}
	for _, n := range names {
		if !seen[n] {
			t.ExtraColumns = append(t.ExtraColumns, n)
			seen[n] = true
		}
	}
}

// Append adds alerts to the end of the table.
func (t *AlertTable) Append(alerts ...Alert) {
	t.Alerts = append(t.Alerts, alerts...)
}

// Find returns every alert whose trigger id equals trig.
func (t *AlertTable) Find(trig string) []Alert {
	var out []Alert
	for _, a := range t.Alerts {
		if a.Trig == trig {
			out = append(out, a)
		}
	}
	return out
}

// TriggerIDs returns the set of trigger ids in the table.
func (t *AlertTable) TriggerIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(t.Alerts))
	for _, a := range t.Alerts {
		ids[a.Trig] = struct{}{}
	}
	return ids
}

// SortByTrigger orders alerts ascending by integer trigger id. It fails
// without reordering if any id is not an integer.
func (t *AlertTable) SortByTrigger() error {
	nums := make(map[string]int, len(t.Alerts))
	for _, a := range t.Alerts {
		n, err := a.TriggerNumber()
		if err != nil {
			return err
		}
		nums[a.Trig] = n
	}
	sort.SliceStable(t.Alerts, func(i, j int) bool {
		return nums[t.Alerts[i].Trig] < nums[t.Alerts[j].Trig]
	})
	return nil
}
