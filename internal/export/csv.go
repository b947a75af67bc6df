package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"paydue/internal/core"
)

var csvHeader = []string{"Title", "Amount", "Due Date", "Status", "Notes", "Created At"}

// WriteCSV renders the payments as an RFC 4180 table, one row each.
func WriteCSV(w io.Writer, payments []core.Payment) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, p := range payments {
		record := []string{
			p.Title,
			p.Amount.String(),
			p.DueDate.Format("2006-01-02"),
			string(p.Status),
			p.Notes,
			p.CreatedAt.Format("2006-01-02"),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
