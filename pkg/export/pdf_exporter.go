package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders request claim slips as PDF documents.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// SlipField is a labelled value printed on a request slip.
type SlipField struct {
	Label string
	Value string
}

// RenderSlip produces a single-page claim slip for a document request,
// handed to the requester as proof for pickup at the registrar's office.
func (e *PDFExporter) RenderSlip(heading, subheading string, fields []SlipField, footnote string) ([]byte, error) {
	if heading == "" {
		return nil, fmt.Errorf("slip requires a heading")
	}
	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(12, 14, 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 9, heading, "", 1, "C", false, 0, "")
	if subheading != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, subheading, "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	for _, f := range fields {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(48, 7, f.Label, "", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 7, f.Value, "", "", false)
	}

	if footnote != "" {
		pdf.Ln(6)
		pdf.SetFont("Arial", "I", 8)
		pdf.MultiCell(0, 5, footnote, "", "", false)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render slip: %w", err)
	}
	return buf.Bytes(), nil
}
