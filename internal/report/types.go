// Package report defines the data contracts shared by the queue, the worker
// and the renderer: output formats, report templates and the data bundle a
// template renders from.
package report

import "github.com/campuspulse/report-server/internal/scoring"

// OutputFormat selects the artifact encoding, independent of the template.
type OutputFormat string

const (
	FormatPDF  OutputFormat = "pdf"  // paginated document
	FormatXLSX OutputFormat = "xlsx" // spreadsheet workbook
	FormatCSV  OutputFormat = "csv"  // delimited text
	FormatJSON OutputFormat = "json" // structured data, machine consumption
)

// Valid reports whether f is a supported output format.
func (f OutputFormat) Valid() bool {
	switch f {
	case FormatPDF, FormatXLSX, FormatCSV, FormatJSON:
		return true
	}
	return false
}

// ContentType returns the MIME type artifacts of this format are stored under.
func (f OutputFormat) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatCSV:
		return "text/csv"
	case FormatJSON:
		return "application/json"
	}
	return "application/octet-stream"
}

// Extension returns the file extension (without dot) for the format.
func (f OutputFormat) Extension() string {
	return string(f)
}

// SectionKind tags a template section with the visual primitive it renders.
type SectionKind string

const (
	SectionHeader          SectionKind = "header"
	SectionSummary         SectionKind = "summary"
	SectionChart           SectionKind = "chart"
	SectionTable           SectionKind = "table"
	SectionText            SectionKind = "text"
	SectionRecommendations SectionKind = "recommendations"
)

// ChartType selects the chart rendering for chart sections.
type ChartType string

const (
	ChartBar  ChartType = "bar"
	ChartLine ChartType = "line"
	ChartPie  ChartType = "pie"
)

// SectionConfig is one section of a report template. Kind decides which of
// the remaining fields apply: chart and table sections consume the bundle
// entry named by DataField, text sections fall back to Body when the bundle
// carries no text under DataField.
type SectionConfig struct {
	Kind      SectionKind `json:"kind"`
	Title     string      `json:"title"`
	DataField string      `json:"data_field,omitempty"`
	Chart     ChartType   `json:"chart,omitempty"`
	Body      string      `json:"body,omitempty"`
}

// Template is an ordered list of sections. Templates are operator-owned
// configuration: versioned, read-only to the pipeline.
type Template struct {
	Name     string          `json:"name"`
	Version  int             `json:"version"`
	Sections []SectionConfig `json:"sections"`
}

// Table is a named tabular dataset in a data bundle.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// ChartSeries is a named label/value series in a data bundle. Labels and
// Values are index-aligned.
type ChartSeries struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// DataBundle carries everything a template render consumes. It is assembled
// by the worker before rendering; the renderer never fetches data itself,
// which keeps identical bundles rendering to identical bytes.
type DataBundle struct {
	Title   string                           `json:"title"`
	Summary *scoring.SectionSummaryMetrics   `json:"summary,omitempty"`
	Tables  map[string]Table                 `json:"tables,omitempty"`
	Series  map[string]ChartSeries           `json:"series,omitempty"`
	Texts   map[string]string                `json:"texts,omitempty"`
	Meta    map[string]string                `json:"meta,omitempty"`
}
