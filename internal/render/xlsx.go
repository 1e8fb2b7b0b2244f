package render

import (
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/campuspulse/report-server/internal/report"
	"github.com/campuspulse/report-server/internal/scoring"
)

// renderXLSX emits the spreadsheet-workbook format: one sheet per rendered
// section, a styled header row on tables, conditional fill on grade columns
// and native chart objects for chart sections.
func (r *Renderer) renderXLSX(tpl report.Template, data *report.DataBundle) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	sheetCount := 0
	addSheet := func(title string) (string, error) {
		sheetCount++
		name := sheetName(sheetCount, title)
		if sheetCount == 1 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return "", fmt.Errorf("rename first sheet: %w", err)
			}
			return name, nil
		}
		if _, err := f.NewSheet(name); err != nil {
			return "", fmt.Errorf("create sheet %q: %w", name, err)
		}
		return name, nil
	}

	for _, sec := range tpl.Sections {
		switch sec.Kind {
		case report.SectionHeader:
			title := sec.Title
			if data.Title != "" {
				title = data.Title
			}
			sheet, err := addSheet("Overview")
			if err != nil {
				return nil, err
			}
			f.SetCellValue(sheet, "A1", title)
			f.SetCellStyle(sheet, "A1", "A1", headerStyle)
			f.SetColWidth(sheet, "A", "A", 60)

		case report.SectionSummary:
			sheet, err := addSheet(sec.Title)
			if err != nil {
				return nil, err
			}
			f.SetCellValue(sheet, "A1", "Metric")
			f.SetCellValue(sheet, "B1", "Value")
			f.SetCellStyle(sheet, "A1", "B1", headerStyle)
			for i, kv := range summaryRows(data.Summary) {
				f.SetCellValue(sheet, fmt.Sprintf("A%d", i+2), kv[0])
				f.SetCellValue(sheet, fmt.Sprintf("B%d", i+2), kv[1])
			}
			f.SetColWidth(sheet, "A", "B", 24)

		case report.SectionChart:
			series, ok := data.Series[sec.DataField]
			if !ok {
				continue
			}
			sheet, err := addSheet(sec.Title)
			if err != nil {
				return nil, err
			}
			if err := writeXLSXChart(f, sheet, headerStyle, sec, series); err != nil {
				r.logger.Warn("native chart skipped", zap.String("sheet", sheet), zap.Error(err))
			}

		case report.SectionTable:
			sheet, err := addSheet(sec.Title)
			if err != nil {
				return nil, err
			}
			if err := writeXLSXTable(f, sheet, headerStyle, data.Tables[sec.DataField]); err != nil {
				return nil, err
			}

		case report.SectionText, report.SectionRecommendations:
			txt := sectionText(sec, data)
			if txt == "" {
				continue
			}
			sheet, err := addSheet(sec.Title)
			if err != nil {
				return nil, err
			}
			f.SetCellValue(sheet, "A1", sec.Title)
			f.SetCellStyle(sheet, "A1", "A1", headerStyle)
			f.SetCellValue(sheet, "A2", txt)
			f.SetColWidth(sheet, "A", "A", 80)
		}
	}

	if sheetCount == 0 {
		// Workbooks cannot be empty; leave the default sheet in place.
		f.SetCellValue("Sheet1", "A1", data.Title)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetName builds a unique sheet name within the 31-char xlsx limit.
func sheetName(index int, title string) string {
	name := fmt.Sprintf("%d %s", index, title)
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}

func writeXLSXTable(f *excelize.File, sheet string, headerStyle int, tbl report.Table) error {
	for c, col := range tbl.Columns {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return fmt.Errorf("table header cell: %w", err)
		}
		f.SetCellValue(sheet, cell, col)
	}
	last, err := excelize.CoordinatesToCellName(len(tbl.Columns), 1)
	if err != nil {
		return fmt.Errorf("table header range: %w", err)
	}
	f.SetCellStyle(sheet, "A1", last, headerStyle)

	gradeCol := -1
	for c, col := range tbl.Columns {
		if col == "Grade" {
			gradeCol = c
		}
	}

	for rIdx, row := range tbl.Rows {
		for c := range tbl.Columns {
			if c >= len(row) {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, rIdx+2)
			if err != nil {
				return fmt.Errorf("table cell: %w", err)
			}
			f.SetCellValue(sheet, cell, row[c])
		}
	}

	if gradeCol >= 0 && len(tbl.Rows) > 0 {
		if err := applyGradeFormatting(f, sheet, gradeCol, len(tbl.Rows)); err != nil {
			return err
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(tbl.Columns))
	if err == nil {
		f.SetColWidth(sheet, "A", lastCol, 22)
	}
	return nil
}

// applyGradeFormatting colors the grade column: green for A+/A, red for F.
func applyGradeFormatting(f *excelize.File, sheet string, gradeCol, rowCount int) error {
	good, err := f.NewConditionalStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C6EFCE"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create grade style: %w", err)
	}
	bad, err := f.NewConditionalStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"FFC7CE"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create grade style: %w", err)
	}

	first, err := excelize.CoordinatesToCellName(gradeCol+1, 2)
	if err != nil {
		return fmt.Errorf("grade range start: %w", err)
	}
	lastCell, err := excelize.CoordinatesToCellName(gradeCol+1, rowCount+1)
	if err != nil {
		return fmt.Errorf("grade range end: %w", err)
	}
	area := fmt.Sprintf("%s:%s", first, lastCell)

	opts := []excelize.ConditionalFormatOptions{
		{Type: "cell", Criteria: "==", Format: &good, Value: fmt.Sprintf("%q", string(scoring.GradeAPlus))},
		{Type: "cell", Criteria: "==", Format: &good, Value: fmt.Sprintf("%q", string(scoring.GradeA))},
		{Type: "cell", Criteria: "==", Format: &bad, Value: fmt.Sprintf("%q", string(scoring.GradeF))},
	}
	if err := f.SetConditionalFormat(sheet, area, opts); err != nil {
		return fmt.Errorf("set grade conditional format: %w", err)
	}
	return nil
}

// writeXLSXChart writes the series data into the sheet and attaches a native
// chart object referencing it.
func writeXLSXChart(f *excelize.File, sheet string, headerStyle int, sec report.SectionConfig, series report.ChartSeries) error {
	n := len(series.Labels)
	if len(series.Values) < n {
		n = len(series.Values)
	}
	f.SetCellValue(sheet, "A1", "Label")
	f.SetCellValue(sheet, "B1", "Value")
	f.SetCellStyle(sheet, "A1", "B1", headerStyle)
	for i := 0; i < n; i++ {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", i+2), series.Labels[i])
		f.SetCellValue(sheet, fmt.Sprintf("B%d", i+2), series.Values[i])
	}
	if n == 0 {
		return nil
	}

	var chartType excelize.ChartType
	switch sec.Chart {
	case report.ChartBar:
		chartType = excelize.Col
	case report.ChartLine:
		chartType = excelize.Line
	case report.ChartPie:
		chartType = excelize.Pie
	default:
		return fmt.Errorf("unknown chart type %q", sec.Chart)
	}

	return f.AddChart(sheet, "D2", &excelize.Chart{
		Type: chartType,
		Series: []excelize.ChartSeries{{
			Name:       sec.Title,
			Categories: fmt.Sprintf("'%s'!$A$2:$A$%d", sheet, n+1),
			Values:     fmt.Sprintf("'%s'!$B$2:$B$%d", sheet, n+1),
		}},
		Title: []excelize.RichTextRun{{Text: sec.Title}},
	})
}
