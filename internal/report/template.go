package report

// Report types known to the pipeline. Submission validates against these;
// each maps to a built-in template below.
const (
	TypeFacultyPerformance = "faculty-performance"
	TypeSectionSummary     = "section-summary"
)

// Bundle field names the built-in templates bind their sections to. The
// worker populates the bundle under the same names.
const (
	FieldFeedbackTable     = "feedback"
	FieldGradeDistribution = "grade_distribution"
	FieldScoreByFaculty    = "score_by_faculty"
	FieldComments          = "comments"
	FieldRecommendations   = "recommendations"
)

var builtinTemplates = map[string]Template{
	TypeFacultyPerformance: {
		Name:    TypeFacultyPerformance,
		Version: 2,
		Sections: []SectionConfig{
			{Kind: SectionHeader, Title: "Faculty Performance Report"},
			{Kind: SectionSummary, Title: "Overall Performance"},
			{Kind: SectionChart, Title: "Score by Faculty", DataField: FieldScoreByFaculty, Chart: ChartBar},
			{Kind: SectionChart, Title: "Grade Distribution", DataField: FieldGradeDistribution, Chart: ChartPie},
			{Kind: SectionTable, Title: "Individual Responses", DataField: FieldFeedbackTable},
			{Kind: SectionText, Title: "Student Comments", DataField: FieldComments},
			{Kind: SectionRecommendations, Title: "Recommendations", DataField: FieldRecommendations,
				Body: "Review individual responses for faculty scoring below grade C."},
		},
	},
	TypeSectionSummary: {
		Name:    TypeSectionSummary,
		Version: 1,
		Sections: []SectionConfig{
			{Kind: SectionHeader, Title: "Section Summary Report"},
			{Kind: SectionSummary, Title: "Section Metrics"},
			{Kind: SectionChart, Title: "Grade Distribution", DataField: FieldGradeDistribution, Chart: ChartBar},
			{Kind: SectionTable, Title: "Responses", DataField: FieldFeedbackTable},
		},
	},
}

// TemplateFor returns the current built-in template for a report type.
func TemplateFor(reportType string) (Template, bool) {
	tpl, ok := builtinTemplates[reportType]
	return tpl, ok
}

// KnownType reports whether reportType has a registered template.
func KnownType(reportType string) bool {
	_, ok := builtinTemplates[reportType]
	return ok
}
