package report

import (
	"encoding/csv"
	"io"
	"strconv"
)

var csvHeader = []string{"date", "day", "class", "session_id", "student_id", "student", "status", "assigned", "inferred"}

// WriteCSV writes entries as CSV with a header row.
func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, e := range entries {
		row := []string{
			string(e.Date),
			string(e.Day),
			e.ClassName,
			e.SessionID,
			e.StudentID,
			e.StudentName,
			string(e.Status),
			strconv.FormatBool(e.Assigned),
			strconv.FormatBool(e.Inferred),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
