package models

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortByTrigger(t *testing.T) {
	table := &AlertTable{Alerts: []Alert{{Trig: "1002"}, {Trig: "99"}, {Trig: "1001"}}}

	require.NoError(t, table.SortByTrigger())

	var got []string
	for _, a := range table.Alerts {
		got = append(got, a.Trig)
	}
	assert.Equal(t, []string{"99", "1001", "1002"}, got)
}

func TestSortByTriggerRejectsNonInteger(t *testing.T) {
	table := &AlertTable{Alerts: []Alert{{Trig: "1002"}, {Trig: "abc"}}}

	err := table.SortByTrigger()
	require.Error(t, err)
	assert.Equal(t, "1002", table.Alerts[0].Trig, "order must be untouched on error")
}

func TestFindAndTriggerIDs(t *testing.T) {
	table := &AlertTable{Alerts: []Alert{{Trig: "1"}, {Trig: "2"}, {Trig: "2"}}}

	assert.Len(t, table.Find("2"), 2)
	assert.Empty(t, table.Find("3"))
	assert.Equal(t, map[string]struct{}{"1": {}, "2": {}}, table.TriggerIDs())
}

func TestAddColumnsKeepsFirstSeenOrder(t *testing.T) {
	table := &AlertTable{ExtraColumns: []string{"GRB"}}
	table.AddColumns("T90", "GRB", "Fluence")
	assert.Equal(t, []string{"GRB", "T90", "Fluence"}, table.ExtraColumns)
	assert.Equal(t, append(append([]string{}, KnownColumns...), "GRB", "T90", "Fluence"), table.Columns())
}

func TestDecodeAlertTableSplitsExtraColumns(t *testing.T) {
	input := "GRB,Trig,Date yy/mm/dd,Time UT,BAT RA,BAT Dec,T90\n" +
		"250101A,1001,25/01/01,01:02:03,150.0,20.0,12.5\n" +
		"250102A,1002,25/01/02,04:05:06,,,\n"

	table, err := DecodeAlertTable(csv.NewReader(strings.NewReader(input)))
	require.NoError(t, err)

	assert.Equal(t, []string{"GRB", "T90"}, table.ExtraColumns)
	require.Len(t, table.Alerts, 2)
	first := table.Alerts[0]
	assert.Equal(t, "1001", first.Trig)
	assert.Equal(t, "25/01/01", first.Date)
	assert.Equal(t, "150.0", first.BATRA)
	assert.True(t, first.HasBATPosition())
	assert.False(t, first.HasXRTPosition())
	assert.Equal(t, map[string]string{"GRB": "250101A", "T90": "12.5"}, first.Extra)
	assert.False(t, table.Alerts[1].HasBATPosition())
}

func TestDecodeAlertTableEmptyInput(t *testing.T) {
	table, err := DecodeAlertTable(csv.NewReader(strings.NewReader("")))
	require.NoError(t, err)
	assert.Empty(t, table.Alerts)
}

func TestEncodeAlertTableAppendsExtras(t *testing.T) {
	table := &AlertTable{
		ExtraColumns: []string{"GRB"},
		Alerts: []Alert{
			{Trig: "1001", BATRA: "150.0", Extra: map[string]string{"GRB": "250101A"}},
			{Trig: "1002"},
		},
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	require.NoError(t, EncodeAlertTable(w, table))
	w.Flush()
	require.NoError(t, w.Error())

	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Trig,Date yy/mm/dd,Time UT,BAT RA,BAT Dec,XRT RA,XRT Dec,GRB", lines[0])
	assert.Equal(t, "1001,,,150.0,,,,250101A", lines[1])
	assert.Equal(t, "1002,,,,,,,", lines[2])

	decoded, err := DecodeAlertTable(csv.NewReader(strings.NewReader(sb.String())))
	require.NoError(t, err)
	assert.Equal(t, table.ExtraColumns, decoded.ExtraColumns)
	assert.Equal(t, "250101A", decoded.Alerts[0].Extra["GRB"])
}

func TestEncodeAlertTableHeaderOnly(t *testing.T) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	require.NoError(t, EncodeAlertTable(w, &AlertTable{}))
	w.Flush()
	assert.Equal(t, strings.Join(KnownColumns, ",")+"\n", sb.String())
}
