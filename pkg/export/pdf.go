package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Receipt holds the fields printed on a proof-of-payment document.
type Receipt struct {
	Organization  string
	ReceiptNumber string
	IssuedOn      string
	StudentName   string
	StudentEmail  string
	CourseTitle   string
	ClassDate     string
	PaymentMethod string
	Status        string
	TotalAmount   string
	AmountPaid    string
	Instructions  string
}

// PDFExporter renders rosters and receipts.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a landscape roster table with an optional title.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
		pdf.Ln(3)
	}

	width, _ := pdf.GetPageSize()
	colWidth := (width - 20) / float64(len(data.Headers))

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, strings.ToUpper(header), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, row := range data.Rows {
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, 7, truncate(row[header], 40), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	return output(pdf)
}

// RenderReceipt renders a single-page receipt.
func (e *PDFExporter) RenderReceipt(r Receipt) ([]byte, error) {
	if r.ReceiptNumber == "" {
		return nil, fmt.Errorf("receipt number required")
	}
	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(12, 14, 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, r.Organization, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 7, "Payment Receipt "+r.ReceiptNumber, "", 1, "C", false, 0, "")
	pdf.Ln(6)

	lines := [][2]string{
		{"Issued", r.IssuedOn},
		{"Student", r.StudentName},
		{"Email", r.StudentEmail},
		{"Course", r.CourseTitle},
		{"Class date", r.ClassDate},
		{"Method", r.PaymentMethod},
		{"Status", r.Status},
		{"Total", r.TotalAmount},
		{"Paid", r.AmountPaid},
	}
	for _, line := range lines {
		if line[1] == "" {
			continue
		}
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(32, 7, line[0], "", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 7, line[1], "", 1, "", false, 0, "")
	}

	if r.Instructions != "" {
		pdf.Ln(6)
		pdf.SetFont("Arial", "I", 9)
		pdf.MultiCell(0, 5, r.Instructions, "", "", false)
	}

	return output(pdf)
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max-3]) + "..."
}
