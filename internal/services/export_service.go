package services

import (
	"bytes"
	"fmt"
	"time"

	"github.com/baitool/camt053/internal/models"
	"github.com/baitool/camt053/internal/observability/metrics"
	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

// Export formats
const (
	FormatXML  = "xml"
	FormatJSON = "json"
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
)

// ExportService renders human readable statement copies
type ExportService struct{}

func NewExportService() *ExportService {
	return &ExportService{}
}

// Export renders doc as pdf or xlsx and returns the bytes with their content type
func (s *ExportService) Export(doc models.StatementDocument, format string) ([]byte, string, error) {
	start := time.Now()

	var (
		data        []byte
		contentType string
		err         error
	)
	switch format {
	case FormatPDF:
		data, err = BuildStatementPDF(doc)
		contentType = "application/pdf"
	case FormatXLSX:
		data, err = BuildStatementXLSX(doc)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return nil, "", fmt.Errorf("unsupported export format %q", format)
	}

	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ObserveStatementExport(format, result, time.Since(start))
	return data, contentType, err
}

// BuildStatementPDF renders a one table PDF of the statement
func BuildStatementPDF(doc models.StatementDocument) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Arial", "B", 14)
	pdf.AddPage()

	pdf.Cell(0, 8, "Bank Statement")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Account: %s", doc.Account.IBAN))
	pdf.Ln(5)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Owner: %s", doc.Account.Name)))
	pdf.Ln(5)
	from, to := doc.Period()
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s", periodText(from, to)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Message: %s", doc.MessageID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", doc.CreatedAt.Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.Cell(0, 6, fmt.Sprintf("Opening balance (%s): %s", doc.Account.Currency, doc.Opening.SignedAmount().StringFixed(2)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Closing balance (%s): %s", doc.Account.Currency, doc.Closing.SignedAmount().StringFixed(2)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(30, 6, "Booked", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Value", "1", 0, "C", false, 0, "")
	pdf.CellFormat(95, 6, "Description", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Amount", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, tx := range doc.Transactions {
		pdf.CellFormat(30, 6, tx.BookingDate.String(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, tx.ValueDate.String(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(95, 6, tr(truncateRunes(entryDescription(tx), 55)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 6, tx.SignedAmount().StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// BuildStatementXLSX renders a summary sheet and an entries sheet
func BuildStatementXLSX(doc models.StatementDocument) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "summary"
	entriesSheet := "entries"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(entriesSheet); err != nil {
		return nil, err
	}

	from, to := doc.Period()
	w := &sheetWriter{f: f}
	w.set(summarySheet, "A1", "Bank Statement")
	w.set(summarySheet, "A3", "Account")
	w.set(summarySheet, "B3", doc.Account.IBAN)
	w.set(summarySheet, "A4", "Owner")
	w.set(summarySheet, "B4", doc.Account.Name)
	w.set(summarySheet, "A5", "Period")
	w.set(summarySheet, "B5", periodText(from, to))
	w.set(summarySheet, "A6", "Message")
	w.set(summarySheet, "B6", doc.MessageID)
	w.set(summarySheet, "A7", "Currency")
	w.set(summarySheet, "B7", doc.Account.Currency)
	w.set(summarySheet, "A8", "Opening balance")
	w.set(summarySheet, "B8", doc.Opening.SignedAmount().InexactFloat64())
	w.set(summarySheet, "A9", "Closing balance")
	w.set(summarySheet, "B9", doc.Closing.SignedAmount().InexactFloat64())
	w.set(summarySheet, "A10", "Entries")
	w.set(summarySheet, "B10", len(doc.Transactions))

	for col, header := range []string{"Id", "Booked", "Value", "Indicator", "Amount", "Counterparty", "Remittance"} {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		w.set(entriesSheet, cell, header)
	}
	for i, tx := range doc.Transactions {
		row := i + 2
		w.set(entriesSheet, fmt.Sprintf("A%d", row), tx.ID)
		w.set(entriesSheet, fmt.Sprintf("B%d", row), tx.BookingDate.String())
		w.set(entriesSheet, fmt.Sprintf("C%d", row), tx.ValueDate.String())
		w.set(entriesSheet, fmt.Sprintf("D%d", row), string(tx.Indicator))
		w.set(entriesSheet, fmt.Sprintf("E%d", row), tx.SignedAmount().InexactFloat64())
		w.set(entriesSheet, fmt.Sprintf("F%d", row), counterparty(tx))
		w.set(entriesSheet, fmt.Sprintf("G%d", row), tx.RemittanceInfo)
	}
	if w.err != nil {
		return nil, w.err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetWriter sets cell values and keeps the first error
type sheetWriter struct {
	f   *excelize.File
	err error
}

func (w *sheetWriter) set(sheet, cell string, value any) {
	if w.err != nil {
		return
	}
	if err := w.f.SetCellValue(sheet, cell, value); err != nil {
		w.err = fmt.Errorf("failed to write %s!%s: %w", sheet, cell, err)
	}
}

func counterparty(tx models.Transaction) string {
	if tx.Indicator == models.Credit {
		return tx.DebtorName
	}
	return tx.CreditorName
}

func entryDescription(tx models.Transaction) string {
	name := counterparty(tx)
	switch {
	case name != "" && tx.RemittanceInfo != "":
		return name + " / " + tx.RemittanceInfo
	case name != "":
		return name
	default:
		return tx.RemittanceInfo
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
