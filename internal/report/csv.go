package report

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV exports every stored ticket line as one CSV row, in ticket and
// document order, for analysis outside the tool.
func (r *Report) WriteCSV(w io.Writer) error {
	tickets, err := r.db.ListTickets()
	if err != nil {
		return fmt.Errorf("listing tickets: %w", err)
	}

	cw := csv.NewWriter(w)
	header := []string{"ticket", "fecha", "tienda", "codigo_postal", "producto", "cantidad", "precio_unitario", "importe", "es_peso"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, t := range tickets {
		for _, line := range t.Lines {
			weighted := "0"
			if line.Weighted {
				weighted = "1"
			}
			row := []string{
				t.Number,
				t.Timestamp.Format("2006-01-02 15:04"),
				t.Store,
				t.PostalCode,
				line.Description,
				line.Quantity.String(),
				line.UnitPrice.String(),
				line.Amount.String(),
				weighted,
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("writing csv row: %w", err)
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}
