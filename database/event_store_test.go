package database

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gewnthar/grbwatch/config"
	"github.com/gewnthar/grbwatch/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadEventsMissingFile(t *testing.T) {
	_, err := ReadEvents(filepath.Join(t.TempDir(), "swift_bat.dat"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEventsFileNotFound))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestWriteReadRoundTripSortsByTrigger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swift_bat.dat")
	table := &models.AlertTable{
		ExtraColumns: []string{"GRB"},
		Alerts: []models.Alert{
			{Trig: "1003", Date: "25/01/03", Time: "10:00:00", BATRA: "150.0", BATDec: "20.0", Extra: map[string]string{"GRB": "GRB 250103A"}},
			{Trig: "1001", Date: "25/01/01", Time: "08:00:00"},
			{Trig: "999", Date: "24/12/31", XRTRA: "10.5", XRTDec: "-5.25"},
		},
	}

	require.NoError(t, WriteEvents(path, table))

	got, err := ReadEvents(path)
	require.NoError(t, err)
	require.Len(t, got.Alerts, 3)

	var ids []string
	for _, a := range got.Alerts {
		ids = append(ids, a.Trig)
	}
	assert.Equal(t, []string{"999", "1001", "1003"}, ids)
	assert.Equal(t, []string{"GRB"}, got.ExtraColumns)
	assert.Equal(t, "GRB 250103A", got.Alerts[2].Extra["GRB"])
	assert.Equal(t, "", got.Alerts[1].BATRA)
	assert.Equal(t, "-5.25", got.Alerts[0].XRTDec)
	assert.Equal(t, "150.0", got.Alerts[2].BATRA)
}

func TestWriteEventsFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swift_bat.dat")
	table := &models.AlertTable{Alerts: []models.Alert{{Trig: "1001", Date: "25/01/01", Time: `say "hi"`}}}

	require.NoError(t, WriteEvents(path, table))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `Trig "Date yy/mm/dd" "Time UT" "BAT RA" "BAT Dec" "XRT RA" "XRT Dec"`, lines[0])
	assert.Equal(t, `1001 25/01/01 "say ""hi""" "" "" "" ""`, lines[1])

	got, err := ReadEvents(path)
	require.NoError(t, err)
	assert.Equal(t, `say "hi"`, got.Alerts[0].Time)
}

func TestWriteEventsRejectsNonIntegerTrigger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swift_bat.dat")
	require.NoError(t, os.WriteFile(path, []byte("Trig\n5\n"), 0644))

	err := WriteEvents(path, &models.AlertTable{Alerts: []models.Alert{{Trig: "GRB"}}})
	require.Error(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Trig\n5\n", string(raw), "store must be untouched")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestReadEventsToleratesAlignedColumnsAndComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swift_bat.dat")
	content := "# written by hand\n" +
		"Trig   \"Date yy/mm/dd\"  \"BAT RA\"\n" +
		"1001   25/01/01         150.0\n" +
		"1002   25/01/02         \"\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	got, err := ReadEvents(path)
	require.NoError(t, err)
	require.Len(t, got.Alerts, 2)
	assert.Equal(t, "150.0", got.Alerts[0].BATRA)
	assert.Equal(t, "", got.Alerts[1].BATRA)
	assert.Equal(t, "25/01/02", got.Alerts[1].Date)
}

func TestReadEventsTrailingWhitespaceAndTabs(t *testing.T) {
	cases := map[string]string{
		"trailing space": "Trig \"BAT RA\" \n1001 150.0 \n1002 \"\"\t\n",
		"tab separated":  "Trig\t\"BAT RA\"\n1001\t150.0\n1002\t\"\"\n",
		"mixed and CRLF": "Trig \t \"BAT RA\"\r\n\n1001\t  150.0\r\n1002 \"\"\r\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "swift_bat.dat")
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))

			got, err := ReadEvents(path)
			require.NoError(t, err)
			require.Len(t, got.Alerts, 2)
			assert.Equal(t, "1001", got.Alerts[0].Trig)
			assert.Equal(t, "150.0", got.Alerts[0].BATRA)
			assert.Equal(t, "", got.Alerts[1].BATRA)
		})
	}
}

func TestSplitTableLine(t *testing.T) {
	fields, err := splitTableLine(`1001  "Date yy/mm/dd"	"say ""hi"""  ""`)
	require.NoError(t, err)
	assert.Equal(t, []string{"1001", "Date yy/mm/dd", `say "hi"`, ""}, fields)

	_, err = splitTableLine(`1001 "open`)
	assert.Error(t, err)

	_, err = splitTableLine(`10"01 x`)
	assert.Error(t, err)

	_, err = splitTableLine(`"a"b`)
	assert.Error(t, err)
}

func TestQuoteField(t *testing.T) {
	cases := map[string]string{
		"":         `""`,
		"150.0":    "150.0",
		"a b":      `"a b"`,
		"#1":       `"#1"`,
		`x"y`:      `"x""y"`,
		"25/01/01": "25/01/01",
	}
	for in, want := range cases {
		assert.Equal(t, want, quoteField(in), "input %q", in)
	}
}

func TestArchiveArgs(t *testing.T) {
	args, err := archiveArgs(models.Alert{Trig: "1001", Date: "25/01/01", Extra: map[string]string{"GRB": "250101A"}})
	require.NoError(t, err)
	require.Len(t, args, 8)
	assert.Equal(t, 1001, args[0])
	assert.Equal(t, `{"GRB":"250101A"}`, args[7])

	args, err = archiveArgs(models.Alert{Trig: "1002"})
	require.NoError(t, err)
	assert.Nil(t, args[7])

	_, err = archiveArgs(models.Alert{Trig: "n/a"})
	require.Error(t, err)
}

func TestArchiveAlertsRequiresConnection(t *testing.T) {
	DB = nil
	err := ArchiveAlerts([]models.Alert{{Trig: "1"}})
	require.Error(t, err)
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: "3306", User: "u", Password: "p", DBName: "grb"})
	assert.Equal(t, "u:p@tcp(db:3306)/grb?parseTime=true", dsn)
}
