package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Letterhead is the organisation block printed at the top of a receipt.
type Letterhead struct {
	Name    string
	Address string
	Phone   string
	Email   string
	Website string
}

// ReceiptLine is a label/value row in the receipt body.
type ReceiptLine struct {
	Label string
	Value string
}

// ReceiptDocument is the fully formatted content of one receipt.
type ReceiptDocument struct {
	Letterhead    Letterhead
	Title         string
	ReceiptNumber string
	Date          string
	Lines         []ReceiptLine
	Summary       []ReceiptLine
	AmountInWords string
	Footer        string
}

// PDFExporter renders receipts into A5 PDF documents.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// RenderReceipt lays out the letterhead, the transaction rows and the balance summary.
func (e *PDFExporter) RenderReceipt(doc ReceiptDocument) ([]byte, error) {
	if doc.ReceiptNumber == "" {
		return nil, fmt.Errorf("receipt number required")
	}
	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()
	width, _ := pdf.GetPageSize()
	contentWidth := width - 20
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(contentWidth, 8, tr(doc.Letterhead.Name), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 8)
	for _, line := range nonEmpty(doc.Letterhead.Address, joinNonEmpty(" | ", doc.Letterhead.Phone, doc.Letterhead.Email, doc.Letterhead.Website)) {
		pdf.CellFormat(contentWidth, 4, tr(line), "", 1, "C", false, 0, "")
	}
	pdf.Ln(3)
	pdf.Line(10, pdf.GetY(), width-10, pdf.GetY())
	pdf.Ln(3)

	title := doc.Title
	if title == "" {
		title = "Fee Receipt"
	}
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(contentWidth, 7, strings.ToUpper(tr(title)), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	half := contentWidth / 2
	pdf.CellFormat(half, 6, "Receipt No: "+doc.ReceiptNumber, "", 0, "L", false, 0, "")
	pdf.CellFormat(half, 6, "Date: "+doc.Date, "", 1, "R", false, 0, "")
	pdf.Ln(2)

	writeRows(pdf, tr, doc.Lines, contentWidth)
	if len(doc.Summary) > 0 {
		pdf.Ln(3)
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(contentWidth, 6, "Account Summary", "", 1, "L", false, 0, "")
		writeRows(pdf, tr, doc.Summary, contentWidth)
	}

	if doc.AmountInWords != "" {
		pdf.Ln(3)
		pdf.SetFont("Arial", "I", 9)
		pdf.MultiCell(contentWidth, 5, tr("Amount in words: "+doc.AmountInWords), "", "L", false)
	}
	if doc.Footer != "" {
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 7)
		pdf.MultiCell(contentWidth, 4, tr(doc.Footer), "", "C", false)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(pdf *gofpdf.Fpdf, tr func(string) string, rows []ReceiptLine, width float64) {
	labelWidth := width * 0.4
	for _, row := range rows {
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(labelWidth, 7, tr(row.Label), "1", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(width-labelWidth, 7, tr(row.Value), "1", 1, "L", false, 0, "")
	}
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func joinNonEmpty(sep string, values ...string) string {
	return strings.Join(nonEmpty(values...), sep)
}
