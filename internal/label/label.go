// Package label renders shipment records into a printable PDF document, one
// label page per record.
package label

import (
	"fmt"
	"io"
	"os"

	"github.com/Saraahamrr/bulk-shipping-platform/pkg/shipment"
	"github.com/go-pdf/fpdf"
	"github.com/oklog/ulid/v2"
)

// Renderer produces label documents in one of the three supported page
// formats. Tracking numbers are synthetic, generated per render; they are
// not stable across re-renders and are not reconciled with the backend.
type Renderer struct {
	format shipment.LabelFormat
}

// NewRenderer creates a renderer for the given page format.
func NewRenderer(format shipment.LabelFormat) *Renderer {
	return &Renderer{format: format}
}

// Render writes a document with one page per record to w. Any malformed
// record aborts the whole render; no partial output reaches the sink.
func (r *Renderer) Render(records []shipment.ShipmentRecord, w io.Writer) error {
	if len(records) == 0 {
		return shipment.ErrNoRecords
	}

	pdf, pageW := r.newDocument()
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return fmt.Errorf("record %d (order %s): %w", records[i].ID, records[i].OrderNo, err)
		}
		r.renderPage(pdf, pageW, &records[i])
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("rendering labels: %w", err)
	}
	return pdf.Output(w)
}

// RenderFile renders to a file. The file path is the only difference from
// Render; the pages are identical.
func (r *Renderer) RenderFile(records []shipment.ShipmentRecord, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := r.Render(records, f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// newDocument creates the PDF sized for the renderer's format and returns
// the usable page width in inches.
func (r *Renderer) newDocument() (*fpdf.Fpdf, float64) {
	switch r.format {
	case shipment.Format4x6:
		pdf := fpdf.NewCustom(&fpdf.InitType{
			OrientationStr: "P",
			UnitStr:        "in",
			Size:           fpdf.SizeType{Wd: 4, Ht: 6},
		})
		pdf.SetMargins(0.25, 0.25, 0.25)
		pdf.SetAutoPageBreak(false, 0)
		return pdf, 4
	case shipment.FormatA4:
		pdf := fpdf.New("P", "in", "A4", "")
		pdf.SetMargins(0.75, 0.75, 0.75)
		pdf.SetAutoPageBreak(false, 0)
		return pdf, 8.27
	default:
		pdf := fpdf.New("P", "in", "Letter", "")
		pdf.SetMargins(0.75, 0.75, 0.75)
		pdf.SetAutoPageBreak(false, 0)
		return pdf, 8.5
	}
}

// renderPage draws one label: header, from/to blocks, package and
// declared-value lines, a decorative bar pattern, and the tracking number.
func (r *Renderer) renderPage(pdf *fpdf.Fpdf, pageW float64, rec *shipment.ShipmentRecord) {
	small := r.format == shipment.Format4x6
	left, _, right, _ := pdf.GetMargins()
	usable := pageW - left - right

	titleSize, bodySize, lineH := 16.0, 11.0, 0.22
	if small {
		titleSize, bodySize, lineH = 12.0, 8.0, 0.16
	}

	pdf.AddPage()

	// Header
	pdf.SetFont("Helvetica", "B", titleSize)
	pdf.CellFormat(usable, lineH*1.4, "SHIPPING LABEL", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", bodySize)
	service := rec.ShippingService
	if service == "" {
		service = "unassigned"
	}
	pdf.CellFormat(usable, lineH, fmt.Sprintf("Service: %s    Order: %s", service, rec.OrderNo), "", 1, "C", false, 0, "")
	pdf.Ln(lineH * 0.5)

	// From block
	pdf.SetFont("Helvetica", "B", bodySize)
	pdf.CellFormat(usable, lineH, "FROM", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", bodySize)
	for _, line := range fromLines(rec) {
		pdf.CellFormat(usable, lineH, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(lineH * 0.5)

	// To block
	pdf.SetFont("Helvetica", "B", bodySize+2)
	pdf.CellFormat(usable, lineH*1.2, "TO", "", 1, "L", false, 0, "")
	for _, line := range toLines(rec) {
		pdf.CellFormat(usable, lineH*1.2, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(lineH * 0.5)

	// Package and declared value
	pdf.SetFont("Helvetica", "", bodySize)
	pdf.CellFormat(usable, lineH, "Package: "+rec.FormatPackageDetails(), "", 1, "L", false, 0, "")
	pdf.CellFormat(usable, lineH, "Declared value: "+rec.ShippingPrice.String(), "", 1, "L", false, 0, "")
	if rec.ItemSKU != "" {
		pdf.CellFormat(usable, lineH, "SKU: "+rec.ItemSKU, "", 1, "L", false, 0, "")
	}
	pdf.Ln(lineH)

	// Decorative bar pattern plus the synthetic tracking number.
	tracking := "BSP" + ulid.Make().String()
	drawBars(pdf, left, pdf.GetY(), usable, lineH*2.2, tracking)
	pdf.SetY(pdf.GetY() + lineH*2.4)
	pdf.SetFont("Courier", "", bodySize)
	pdf.CellFormat(usable, lineH, tracking, "", 1, "C", false, 0, "")
}

// drawBars draws a barcode-like pattern. Bar widths are derived from the
// tracking string so every label looks distinct; the pattern is decorative,
// not scannable.
func drawBars(pdf *fpdf.Fpdf, x, y, width, height float64, seed string) {
	pdf.SetFillColor(0, 0, 0)
	unit := width / float64(len(seed)*3)
	pos := x
	for _, c := range seed {
		barW := unit * (1 + float64(int(c)%3))
		pdf.Rect(pos, y, barW, height, "F")
		pos += barW + unit
		if pos > x+width {
			break
		}
	}
}

func fromLines(rec *shipment.ShipmentRecord) []string {
	if rec.FromFirstName == "" {
		return []string{"Not provided"}
	}
	lines := []string{
		rec.FromFirstName + " " + rec.FromLastName,
		rec.FromAddress,
	}
	if rec.FromAddress2 != "" {
		lines = append(lines, rec.FromAddress2)
	}
	lines = append(lines, fmt.Sprintf("%s, %s %s", rec.FromCity, rec.FromState, rec.FromZip))
	return lines
}

func toLines(rec *shipment.ShipmentRecord) []string {
	lines := []string{
		rec.ToFirstName + " " + rec.ToLastName,
		rec.ToAddress,
	}
	if rec.ToAddress2 != "" {
		lines = append(lines, rec.ToAddress2)
	}
	lines = append(lines, fmt.Sprintf("%s, %s %s", rec.ToCity, rec.ToState, rec.ToZip))
	return lines
}
