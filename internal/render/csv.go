package render

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/campuspulse/report-server/internal/report"
)

// renderCSV emits the delimited-text format: a flat dump of every section in
// template order, tables as grids, summary metrics appended as metric/value
// rows. Sections are separated by a blank record.
func (r *Renderer) renderCSV(tpl report.Template, data *report.DataBundle) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	first := true
	writeGap := func() {
		if !first {
			_ = w.Write([]string{})
		}
		first = false
	}

	for _, sec := range tpl.Sections {
		switch sec.Kind {
		case report.SectionHeader:
			writeGap()
			title := sec.Title
			if data.Title != "" {
				title = data.Title
			}
			if err := w.Write([]string{title}); err != nil {
				return nil, fmt.Errorf("write csv header: %w", err)
			}

		case report.SectionSummary:
			writeGap()
			_ = w.Write([]string{sec.Title})
			_ = w.Write([]string{"metric", "value"})
			for _, kv := range summaryRows(data.Summary) {
				_ = w.Write([]string{kv[0], kv[1]})
			}

		case report.SectionTable:
			writeGap()
			tbl := data.Tables[sec.DataField]
			_ = w.Write([]string{sec.Title})
			_ = w.Write(tbl.Columns)
			for _, row := range tbl.Rows {
				_ = w.Write(row)
			}

		case report.SectionChart:
			series, ok := data.Series[sec.DataField]
			if !ok {
				continue
			}
			writeGap()
			_ = w.Write([]string{sec.Title})
			_ = w.Write([]string{"label", "value"})
			for i, label := range series.Labels {
				if i >= len(series.Values) {
					break
				}
				_ = w.Write([]string{label, fmt.Sprintf("%.2f", series.Values[i])})
			}

		case report.SectionText, report.SectionRecommendations:
			txt := sectionText(sec, data)
			if txt == "" {
				continue
			}
			writeGap()
			_ = w.Write([]string{sec.Title})
			_ = w.Write([]string{txt})
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
