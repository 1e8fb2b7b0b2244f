package render

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"

	"github.com/campuspulse/report-server/internal/report"
)

// renderPDF emits the paginated-document format. Charts are rasterized to
// PNG and embedded; tables are drawn as bordered grids that flow across
// pages.
func (r *Renderer) renderPDF(tpl report.Template, data *report.DataBundle) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(data.Title, false)
	pdf.AddPage()

	for i, sec := range tpl.Sections {
		switch sec.Kind {
		case report.SectionHeader:
			title := sec.Title
			if data.Title != "" {
				title = data.Title
			}
			pdf.SetFont("Helvetica", "B", 18)
			pdf.CellFormat(0, 12, title, "", 1, "C", false, 0, "")
			pdf.Ln(4)

		case report.SectionSummary:
			writePDFSectionTitle(pdf, sec.Title)
			pdf.SetFont("Helvetica", "", 11)
			for _, kv := range summaryRows(data.Summary) {
				pdf.SetFont("Helvetica", "B", 11)
				pdf.CellFormat(60, 7, kv[0], "", 0, "L", false, 0, "")
				pdf.SetFont("Helvetica", "", 11)
				pdf.CellFormat(0, 7, kv[1], "", 1, "L", false, 0, "")
			}
			pdf.Ln(4)

		case report.SectionChart:
			series, ok := data.Series[sec.DataField]
			if !ok {
				continue
			}
			png, err := renderChartPNG(sec.Chart, sec.Title, series)
			if err != nil {
				return nil, err
			}
			if png == nil {
				r.logger.Debug("skipping empty chart series", zap.String("field", sec.DataField))
				continue
			}
			name := fmt.Sprintf("chart-%d", i)
			opts := fpdf.ImageOptions{ImageType: "PNG"}
			pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
			writePDFSectionTitle(pdf, sec.Title)
			pdf.ImageOptions(name, 25, pdf.GetY(), 160, 0, true, opts, 0, "")
			pdf.Ln(6)

		case report.SectionTable:
			writePDFSectionTitle(pdf, sec.Title)
			writePDFTable(pdf, data.Tables[sec.DataField])
			pdf.Ln(4)

		case report.SectionText, report.SectionRecommendations:
			txt := sectionText(sec, data)
			if txt == "" {
				continue
			}
			writePDFSectionTitle(pdf, sec.Title)
			pdf.SetFont("Helvetica", "", 11)
			pdf.MultiCell(0, 6, txt, "", "L", false)
			pdf.Ln(4)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writePDFSectionTitle(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.Ln(1)
}

func writePDFTable(pdf *fpdf.Fpdf, tbl report.Table) {
	if len(tbl.Columns) == 0 {
		return
	}
	usable := 190.0
	colWidth := usable / float64(len(tbl.Columns))

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(221, 235, 247)
	for _, col := range tbl.Columns {
		pdf.CellFormat(colWidth, 7, col, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, row := range tbl.Rows {
		for c := range tbl.Columns {
			var cell string
			if c < len(row) {
				cell = row[c]
			}
			pdf.CellFormat(colWidth, 7, cell, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
}
