// Package render turns a report template plus a data bundle into artifact
// bytes in one of the supported output formats. Renderers are stateless;
// identical (template, bundle, format) inputs produce identical output,
// byte-for-byte for the text formats.
package render

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/campuspulse/report-server/internal/report"
	"github.com/campuspulse/report-server/internal/scoring"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported output format")
	ErrDataMissing       = errors.New("render data missing")
)

type Renderer struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{logger: logger.Named("render")}
}

// Render produces the artifact for one report. The whole render is
// all-or-nothing: any missing required section data aborts before a single
// byte is emitted, so callers never see a partial document.
func (r *Renderer) Render(tpl report.Template, data *report.DataBundle, format report.OutputFormat) ([]byte, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: nil data bundle", ErrDataMissing)
	}
	if err := checkRequiredData(tpl, data); err != nil {
		return nil, err
	}

	switch format {
	case report.FormatPDF:
		return r.renderPDF(tpl, data)
	case report.FormatXLSX:
		return r.renderXLSX(tpl, data)
	case report.FormatCSV:
		return r.renderCSV(tpl, data)
	case report.FormatJSON:
		return r.renderJSON(tpl, data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// checkRequiredData validates the bundle against the template up front.
// Summary and table sections hard-require their data; chart and text
// sections degrade gracefully and are skipped at render time instead.
func checkRequiredData(tpl report.Template, data *report.DataBundle) error {
	for _, sec := range tpl.Sections {
		switch sec.Kind {
		case report.SectionSummary:
			if data.Summary == nil {
				return fmt.Errorf("%w: section %q needs summary metrics", ErrDataMissing, sec.Title)
			}
		case report.SectionTable:
			tbl, ok := data.Tables[sec.DataField]
			if !ok {
				return fmt.Errorf("%w: section %q needs table %q", ErrDataMissing, sec.Title, sec.DataField)
			}
			if len(tbl.Columns) == 0 {
				return fmt.Errorf("%w: table %q has no columns", ErrDataMissing, sec.DataField)
			}
		}
	}
	return nil
}

// sectionText resolves the text for a text or recommendations section:
// bundle text under DataField wins, the template body is the fallback.
// Empty result means the section is skipped.
func sectionText(sec report.SectionConfig, data *report.DataBundle) string {
	if txt, ok := data.Texts[sec.DataField]; ok && txt != "" {
		return txt
	}
	return sec.Body
}

// gradeOrder fixes the histogram iteration order across formats.
var gradeOrder = []scoring.Grade{
	scoring.GradeAPlus, scoring.GradeA, scoring.GradeBPlus, scoring.GradeB,
	scoring.GradeC, scoring.GradeD, scoring.GradeF,
}

// summaryRows flattens summary metrics into ordered key/value pairs shared
// by every format, grade histogram included. Order is fixed so text formats
// stay deterministic.
func summaryRows(s *scoring.SectionSummaryMetrics) [][2]string {
	rows := [][2]string{
		{"Total Responses", fmt.Sprintf("%d", s.TotalResponses)},
		{"Average Score", fmt.Sprintf("%.2f", s.AverageScore)},
		{"Highest Score", fmt.Sprintf("%.2f", s.Highest)},
		{"Lowest Score", fmt.Sprintf("%.2f", s.Lowest)},
	}
	for _, g := range gradeOrder {
		if n, ok := s.GradeDistribution[g]; ok && n > 0 {
			rows = append(rows, [2]string{fmt.Sprintf("Grade %s", g), fmt.Sprintf("%d", n)})
		}
	}
	return rows
}
