package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/financial-reconciliation-engine/internal/domain/audit"
)

func (e *Exporter) writeCSV(w io.Writer, report *audit.TrailReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := cw.WriteAll(e.rows(report)); err != nil {
		return fmt.Errorf("failed to write csv rows: %w", err)
	}
	return nil
}
