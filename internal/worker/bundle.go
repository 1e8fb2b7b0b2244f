package worker

import (
	"fmt"
	"sort"
	"strings"

	"github.com/campuspulse/report-server/internal/report"
	"github.com/campuspulse/report-server/internal/repository/models"
	"github.com/campuspulse/report-server/internal/scoring"
)

// BuildBundle assembles the render input for one request from its feedback
// rows: summary metrics from the scoring engine, the response table, chart
// series and the comments text. Everything is ordered deterministically so
// the same rows always render to the same artifact.
func BuildBundle(req *models.ReportRequest, rows []scoring.FacultyFeedback) *report.DataBundle {
	summary := scoring.Aggregate(rows)

	bundle := &report.DataBundle{
		Title:   bundleTitle(req),
		Summary: &summary,
		Tables:  map[string]report.Table{report.FieldFeedbackTable: feedbackTable(rows)},
		Series:  map[string]report.ChartSeries{},
		Texts:   map[string]string{},
		Meta: map[string]string{
			"request_id":  req.ID,
			"report_type": req.ReportType,
			"requester":   req.Requester,
		},
	}

	if dist := gradeSeries(summary); len(dist.Labels) > 0 {
		bundle.Series[report.FieldGradeDistribution] = dist
	}
	if byFaculty := facultySeries(rows); len(byFaculty.Labels) > 0 {
		bundle.Series[report.FieldScoreByFaculty] = byFaculty
	}
	if comments := collectComments(rows); comments != "" {
		bundle.Texts[report.FieldComments] = comments
	}

	return bundle
}

func bundleTitle(req *models.ReportRequest) string {
	section := req.Parameters["section"]
	semester := req.Parameters["semester"]
	year := req.Parameters["academic_year"]
	if section == "" {
		return fmt.Sprintf("Feedback Report (%s)", req.ReportType)
	}
	return fmt.Sprintf("Feedback Report: Section %s, %s %s", section, semester, year)
}

func feedbackTable(rows []scoring.FacultyFeedback) report.Table {
	tbl := report.Table{
		Columns: []string{"Faculty", "Subject", "Weighted Score", "Grade"},
	}
	for _, row := range rows {
		tbl.Rows = append(tbl.Rows, []string{
			row.FacultyName,
			row.Subject,
			fmt.Sprintf("%.2f", row.WeightedScore),
			string(row.Grade),
		})
	}
	return tbl
}

var gradeOrder = []scoring.Grade{
	scoring.GradeAPlus, scoring.GradeA, scoring.GradeBPlus, scoring.GradeB,
	scoring.GradeC, scoring.GradeD, scoring.GradeF,
}

func gradeSeries(summary scoring.SectionSummaryMetrics) report.ChartSeries {
	var series report.ChartSeries
	for _, g := range gradeOrder {
		if n, ok := summary.GradeDistribution[g]; ok && n > 0 {
			series.Labels = append(series.Labels, string(g))
			series.Values = append(series.Values, float64(n))
		}
	}
	return series
}

// facultySeries averages per-faculty scores for the bar chart, sorted by
// faculty name for stable output.
func facultySeries(rows []scoring.FacultyFeedback) report.ChartSeries {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, row := range rows {
		sums[row.FacultyName] += row.WeightedScore
		counts[row.FacultyName]++
	}

	names := make([]string, 0, len(sums))
	for name := range sums {
		names = append(names, name)
	}
	sort.Strings(names)

	var series report.ChartSeries
	for _, name := range names {
		series.Labels = append(series.Labels, name)
		series.Values = append(series.Values, sums[name]/float64(counts[name]))
	}
	return series
}

func collectComments(rows []scoring.FacultyFeedback) string {
	var parts []string
	for _, row := range rows {
		if c := strings.TrimSpace(row.Comments); c != "" {
			parts = append(parts, fmt.Sprintf("%s (%s): %s", row.FacultyName, row.Subject, c))
		}
	}
	return strings.Join(parts, "\n")
}
