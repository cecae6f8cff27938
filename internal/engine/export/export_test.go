package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/financial-reconciliation-engine/internal/currency"
	"github.com/financial-reconciliation-engine/internal/domain/audit"
	"github.com/financial-reconciliation-engine/internal/domain/ledger"
	"github.com/financial-reconciliation-engine/internal/domain/reconciliation"
	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleReport() *audit.TrailReport {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	reference := "INV-1001"

	transactions := []*ledger.Transaction{
		{
			ID:        uuid.New(),
			AccountID: uuid.New(),
			Amount:    "1250000.50",
			Type:      shared.TransactionTypeCredit,
			Reference: &reference,
			Status:    shared.TransactionStatusCompleted,
			CreatedAt: start.Add(48 * time.Hour),
		},
		{
			ID:        uuid.New(),
			AccountID: uuid.New(),
			Amount:    "12,5O",
			Type:      shared.TransactionTypeDebit,
			Status:    shared.TransactionStatusCompleted,
			CreatedAt: start.Add(72 * time.Hour),
		},
	}
	alerts := []*reconciliation.DiscrepancyAlert{
		{
			ID:             uuid.New(),
			RecordID:       uuid.New(),
			AccountID:      uuid.New(),
			ExpectedAmount: currency.MustParse("5500.00"),
			ActualAmount:   currency.MustParse("3500.00"),
			Difference:     currency.MustParse("-2000.00"),
			Severity:       reconciliation.SeverityMedium,
			Status:         reconciliation.AlertStatusOpen,
			CreatedAt:      start.Add(96 * time.Hour),
		},
	}

	report, _ := audit.BuildTrailReport(audit.Period{Start: start, End: end}, transactions, alerts)
	return report
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected Format
		wantErr  bool
	}{
		{input: "", expected: FormatJSON},
		{input: "json", expected: FormatJSON},
		{input: " CSV ", expected: FormatCSV},
		{input: "xlsx", expected: FormatXLSX},
		{input: "pdf", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			format, err := ParseFormat(tc.input)
			if tc.wantErr {
				var formatErr ErrUnsupportedFormat
				assert.ErrorAs(t, err, &formatErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, format)
		})
	}
}

func TestFormat_Download(t *testing.T) {
	report := sampleReport()

	assert.Equal(t, "audit-trail_20240301_20240401.csv", FormatCSV.FileName(report))
	assert.Equal(t, "text/csv; charset=utf-8", FormatCSV.ContentType())
	assert.Contains(t, FormatXLSX.ContentType(), "spreadsheetml")
	assert.Contains(t, FormatJSON.ContentType(), "application/json")
}

func TestExporter_JSON(t *testing.T) {
	report := sampleReport()
	var buf bytes.Buffer

	require.NoError(t, NewExporter(currency.DefaultFormatter).Write(&buf, FormatJSON, report))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "BDT", decoded["currency"])
	assert.Equal(t, "৳1,250,000.50", decoded["formatted_total_amount"])
	assert.Len(t, decoded["transactions"], 2)
	assert.Len(t, decoded["discrepancies"], 1)

	summary := decoded["summary"].(map[string]interface{})
	assert.Equal(t, "1250000.50", summary["total_amount"])
	assert.EqualValues(t, 2, summary["transaction_count"])
	assert.EqualValues(t, 1, summary["discrepancy_count"])
}

func TestExporter_CSV(t *testing.T) {
	report := sampleReport()
	var buf bytes.Buffer

	require.NoError(t, NewExporter(currency.DefaultFormatter).Write(&buf, FormatCSV, report))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1+2+1+3)

	assert.Equal(t, header, records[0])

	credit := records[1]
	assert.Equal(t, RowTransaction, credit[0])
	assert.Equal(t, "CREDIT", credit[3])
	assert.Equal(t, "৳1,250,000.50", credit[5])
	assert.Equal(t, "INV-1001", credit[8])

	malformed := records[2]
	assert.Equal(t, "12,5O", malformed[5], "unparseable amounts are exported as stored")

	discrepancy := records[3]
	assert.Equal(t, RowDiscrepancy, discrepancy[0])
	assert.Equal(t, "MEDIUM", discrepancy[3])
	assert.Equal(t, "OPEN", discrepancy[4])
	assert.Equal(t, "-৳2,000.00", discrepancy[5])
	assert.Equal(t, "৳5,500.00", discrepancy[6])
	assert.Equal(t, "৳3,500.00", discrepancy[7])

	assert.Equal(t, []string{RowSummary, "", "", "transaction_count", "", "2", "", "", "", ""}, records[4])
	assert.Equal(t, "৳1,250,000.50", records[5][5])
	assert.Equal(t, "1", records[6][5])
}

func TestExporter_XLSX(t *testing.T) {
	report := sampleReport()
	var buf bytes.Buffer

	require.NoError(t, NewExporter(currency.NewFormatter("$", "USD")).Write(&buf, FormatXLSX, report))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 7)
	assert.Equal(t, header, rows[0])
	assert.Equal(t, "$1,250,000.50", rows[1][5])
	assert.Equal(t, RowDiscrepancy, rows[3][0])
	assert.Equal(t, "-$2,000.00", rows[3][5])
	assert.Equal(t, "discrepancy_count", rows[6][3])
}

func TestExporter_UnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	err := NewExporter(currency.DefaultFormatter).Write(&buf, Format("pdf"), sampleReport())

	var formatErr ErrUnsupportedFormat
	assert.ErrorAs(t, err, &formatErr)
	assert.Zero(t, buf.Len())
}
