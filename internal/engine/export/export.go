// Package export encodes audit trail reports for download. JSON keeps the structured
// report; CSV and XLSX flatten it into one row per transaction or discrepancy followed
// by the summary counters.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/financial-reconciliation-engine/internal/currency"
	"github.com/financial-reconciliation-engine/internal/domain/audit"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Row kinds in the tabular encodings
const (
	RowTransaction = "TRANSACTION"
	RowDiscrepancy = "DISCREPANCY"
	RowSummary     = "SUMMARY"
)

var header = []string{
	"record_type", "id", "account_id", "kind", "status",
	"amount", "expected", "actual", "reference", "created_at",
}

// ErrUnsupportedFormat is returned for an unknown export format
type ErrUnsupportedFormat struct {
	Format string
}

func (e ErrUnsupportedFormat) Error() string {
	return fmt.Sprintf("unsupported export format %q: expected json, csv or xlsx", e.Format)
}

// ParseFormat defaults to JSON when text is empty
func ParseFormat(text string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(text))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", ErrUnsupportedFormat{Format: text}
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json; charset=utf-8"
	}
}

// FileName names the download for report
func (f Format) FileName(report *audit.TrailReport) string {
	return fmt.Sprintf("audit-trail_%s_%s.%s",
		report.Period.Start.Format("20060102"),
		report.Period.End.Format("20060102"),
		string(f),
	)
}

// Exporter renders amounts with its formatter. Amounts in the JSON form stay machine readable.
type Exporter struct {
	formatter currency.Formatter
}

func NewExporter(formatter currency.Formatter) *Exporter {
	return &Exporter{formatter: formatter}
}

func (e *Exporter) Write(w io.Writer, format Format, report *audit.TrailReport) error {
	switch format {
	case FormatJSON, "":
		return e.writeJSON(w, report)
	case FormatCSV:
		return e.writeCSV(w, report)
	case FormatXLSX:
		return e.writeXLSX(w, report)
	default:
		return ErrUnsupportedFormat{Format: string(format)}
	}
}

type jsonReport struct {
	*audit.TrailReport
	Currency       string `json:"currency"`
	FormattedTotal string `json:"formatted_total_amount"`
}

func (e *Exporter) writeJSON(w io.Writer, report *audit.TrailReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{
		TrailReport:    report,
		Currency:       e.formatter.Code,
		FormattedTotal: e.formatter.Format(report.Summary.TotalAmount),
	})
}

// rows flattens report into header-aligned rows
func (e *Exporter) rows(report *audit.TrailReport) [][]string {
	rows := make([][]string, 0, len(report.Transactions)+len(report.Discrepancies)+3)

	for _, t := range report.Transactions {
		amount := t.Amount
		if parsed, err := t.ParsedAmount(); err == nil {
			amount = e.formatter.Format(parsed)
		}
		reference := ""
		if t.Reference != nil {
			reference = *t.Reference
		}
		rows = append(rows, []string{
			RowTransaction,
			t.ID.String(),
			t.AccountID.String(),
			string(t.Type),
			string(t.Status),
			amount,
			"",
			"",
			reference,
			t.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	for _, a := range report.Discrepancies {
		rows = append(rows, []string{
			RowDiscrepancy,
			a.ID.String(),
			a.AccountID.String(),
			string(a.Severity),
			string(a.Status),
			e.formatter.Format(a.Difference),
			e.formatter.Format(a.ExpectedAmount),
			e.formatter.Format(a.ActualAmount),
			a.RecordID.String(),
			a.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	summary := report.Summary
	rows = append(rows,
		summaryRow("transaction_count", strconv.Itoa(summary.TransactionCount)),
		summaryRow("total_amount", e.formatter.Format(summary.TotalAmount)),
		summaryRow("discrepancy_count", strconv.Itoa(summary.DiscrepancyCount)),
	)
	return rows
}

func summaryRow(name, value string) []string {
	row := make([]string, len(header))
	row[0] = RowSummary
	row[3] = name
	row[5] = value
	return row
}
