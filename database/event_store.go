// grbwatch/database/event_store.go
package database

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gewnthar/grbwatch/models"
	"github.com/sirupsen/logrus"
)

// ErrEventsFileNotFound is returned by ReadEvents when the store does not exist.
var ErrEventsFileNotFound = errors.New("events file not found")

var log = logrus.WithField("component", "database")

// ReadEvents loads the whitespace-delimited event table at path.
func ReadEvents(path string) (*models.AlertTable, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrEventsFileNotFound, path, err)
		}
		return nil, fmt.Errorf("failed to open events file %s: %w", path, err)
	}
	defer file.Close()

	table, err := models.DecodeAlertTable(newTableReader(file))
	if err != nil {
		return nil, fmt.Errorf("failed to read events file %s: %w", path, err)
	}
	log.Debugf("Loaded %d events from %s", len(table.Alerts), path)
	return table, nil
}

// WriteEvents sorts the table by integer trigger id and replaces the file at
// path with it. The table is written to a temporary file in the same
// directory and renamed over the old one.
func WriteEvents(path string, table *models.AlertTable) error {
	if err := table.SortByTrigger(); err != nil {
		return fmt.Errorf("failed to sort events for %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary events file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	buf := bufio.NewWriter(tmp)
	if err := models.EncodeAlertTable(&tableWriter{w: buf}, table); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode events for %s: %w", path, err)
	}
	if err := buf.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush events file %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close events file %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace events file %s: %w", path, err)
	}

	log.Infof("Wrote %d events to %s", len(table.Alerts), path)
	return nil
}

// tableReader yields the rows of a whitespace-delimited table. Fields are
// separated by runs of spaces or tabs, may be double-quoted (with "" as an
// escaped quote) and blank or '#' comment lines are skipped. Empty values
// must therefore be written as "".
type tableReader struct {
	scanner *bufio.Scanner
	line    int
}

func newTableReader(r io.Reader) *tableReader {
	return &tableReader{scanner: bufio.NewScanner(r)}
}

func (t *tableReader) Read() ([]string, error) {
	for t.scanner.Scan() {
		t.line++
		text := strings.TrimRight(t.scanner.Text(), "\r")
		trimmed := strings.TrimLeft(text, " \t")
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		fields, err := splitTableLine(trimmed)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", t.line, err)
		}
		return fields, nil
	}
	if err := t.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func splitTableLine(line string) ([]string, error) {
	var fields []string
	i := 0
	for {
		for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
			i++
		}
		if i >= len(line) {
			return fields, nil
		}

		if line[i] != '"' {
			start := i
			for i < len(line) && line[i] != ' ' && line[i] != '\t' {
				if line[i] == '"' {
					return nil, fmt.Errorf("bare quote in unquoted field at column %d", i+1)
				}
				i++
			}
			fields = append(fields, line[start:i])
			continue
		}

		var b strings.Builder
		i++
		for {
			if i >= len(line) {
				return nil, fmt.Errorf("unterminated quoted field")
			}
			if line[i] == '"' {
				if i+1 < len(line) && line[i+1] == '"' {
					b.WriteByte('"')
					i += 2
					continue
				}
				i++
				break
			}
			b.WriteByte(line[i])
			i++
		}
		if i < len(line) && line[i] != ' ' && line[i] != '\t' {
			return nil, fmt.Errorf("unexpected character after quoted field at column %d", i+1)
		}
		fields = append(fields, b.String())
	}
}

// tableWriter writes records in the format newTableReader accepts.
type tableWriter struct {
	w io.Writer
}

func (t *tableWriter) Write(record []string) error {
	fields := make([]string, len(record))
	for i, field := range record {
		fields[i] = quoteField(field)
	}
	_, err := io.WriteString(t.w, strings.Join(fields, " ")+"\n")
	return err
}

func quoteField(field string) string {
	if field != "" && !strings.ContainsAny(field, " \t\"\r\n") && !strings.HasPrefix(field, "#") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}
