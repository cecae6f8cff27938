package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/financial-reconciliation-engine/internal/domain/reconciliation"
)

const (
	outputText = "text"
	outputJSON = "json"
)

func (a *App) validateOutput() error {
	if a.output != outputText && a.output != outputJSON {
		return fmt.Errorf("unsupported output %q, expected text or json", a.output)
	}
	return nil
}

// render writes v as indented JSON, or calls text to print the human form
func (a *App) render(v any, text func(w *tabwriter.Writer)) error {
	if a.output == outputJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	text(w)
	return w.Flush()
}

func (a *App) printAlerts(w *tabwriter.Writer, alerts []*reconciliation.DiscrepancyAlert) {
	if len(alerts) == 0 {
		fmt.Fprintln(w, "No discrepancies")
		return
	}
	fmt.Fprintln(w, "ALERT\tACCOUNT\tEXPECTED\tACTUAL\tDIFFERENCE\tSEVERITY\tSTATUS")
	for _, alert := range alerts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			alert.ID,
			alert.AccountID,
			a.formatter().Format(alert.ExpectedAmount),
			a.formatter().Format(alert.ActualAmount),
			a.formatter().Format(alert.Difference),
			alert.Severity,
			alert.Status,
		)
	}
}

func printPage(w *tabwriter.Writer, page, limit, total int) {
	fmt.Fprintf(w, "\nPage %d, %d per page, %d total\n", page, limit, total)
}
