package ledger

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Columns is the fixed export header. Columns other than the risk number,
// cause, submitter, date and grade are left blank for manual completion.
var Columns = []string{
	"Risk Number",
	"Project",
	"Track",
	"Cause",
	"Effect",
	"Impact",
	"Prioritization",
	"Owner",
	"Mitigations",
	"Submitted By",
	"Date Submitted",
	"Notes",
	"Final Grade",
}

const dateLayout = "2006-01-02"

// Rows renders the header followed by one row per entry.
func (l *Ledger) Rows() [][]string {
	entries := l.Entries()
	rows := make([][]string, 0, len(entries)+1)
	rows = append(rows, append([]string(nil), Columns...))
	for _, entry := range entries {
		rows = append(rows, entryRow(entry))
	}
	return rows
}

func entryRow(entry Entry) []string {
	row := make([]string, len(Columns))
	row[0] = strconv.Itoa(entry.Sequence)
	row[3] = entry.Statement
	row[9] = entry.SubmittedBy
	row[10] = entry.CreatedAt.Format(dateLayout)
	row[12] = entry.Grade.String()
	return row
}

// WriteCSV writes the export with standard CSV quoting, so statements that
// contain commas, quotes or newlines survive a round trip.
func (l *Ledger) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.WriteAll(l.Rows()); err != nil {
		return fmt.Errorf("write risk export: %w", err)
	}
	return nil
}

// Export returns the CSV document as bytes.
func (l *Ledger) Export() ([]byte, error) {
	var buf bytes.Buffer
	if err := l.WriteCSV(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Filename names an export produced on day.
func Filename(day time.Time) string {
	return fmt.Sprintf("ruffie-risks-%s.csv", day.Format(dateLayout))
}
