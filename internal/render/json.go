package render

import (
	"encoding/json"
	"fmt"

	"github.com/campuspulse/report-server/internal/report"
)

const generatorName = "campuspulse-report-server"

// jsonDocument is the structured-data artifact: the full render input echoed
// back plus generation metadata. Meant for machine consumption and for
// debugging what a visual format was rendered from.
type jsonDocument struct {
	Generator string             `json:"generator"`
	Template  report.Template    `json:"template"`
	Data      *report.DataBundle `json:"data"`
}

// renderJSON marshals the input verbatim. encoding/json sorts map keys, so
// identical inputs always produce identical bytes.
func (r *Renderer) renderJSON(tpl report.Template, data *report.DataBundle) ([]byte, error) {
	doc := jsonDocument{
		Generator: generatorName,
		Template:  tpl,
		Data:      data,
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal structured-data artifact: %w", err)
	}
	return append(out, '\n'), nil
}
