package dataset

import (
	"fmt"
	"strings"

	"github.com/louisbranch/budgetstory/internal/services/story/layout"
)

// Paragraph is one classified budget speech paragraph.
type Paragraph struct {
	Year         int    `json:"year"`
	Text         string `json:"text"`
	FMName       string `json:"fm_name"`
	PrimaryType  string `json:"primary_type"`
	PrimaryValue string `json:"primary_value"`
}

// VizData is the paragraph document.
type VizData struct {
	Paragraphs []Paragraph `json:"paragraphs"`
}

func parseViz(data []byte) (VizData, error) {
	var viz VizData
	if err := decodeDocument(VizFile, data, &viz); err != nil {
		return VizData{}, err
	}
	if viz.Paragraphs == nil {
		return VizData{}, invalid(VizFile, "paragraphs missing")
	}
	for i, p := range viz.Paragraphs {
		if p.Year <= 0 {
			return VizData{}, invalid(VizFile, "paragraph %d: year %d", i, p.Year)
		}
	}
	return viz, nil
}

// Records converts paragraphs into layout records, keeping only promises and
// obligations addressed to citizens or firms. Order is preserved.
func (v VizData) Records() []layout.Record {
	records := make([]layout.Record, 0, len(v.Paragraphs))
	for _, p := range v.Paragraphs {
		record := layout.Record{
			Year:         p.Year,
			Text:         p.Text,
			SpeakerName:  p.FMName,
			PrimaryType:  layout.Type(strings.ToLower(strings.TrimSpace(p.PrimaryType))),
			PrimaryValue: layout.Value(strings.ToLower(strings.TrimSpace(p.PrimaryValue))),
		}
		if !record.Eligible() {
			continue
		}
		records = append(records, record)
	}
	return records
}

// ParseCategory maps a combined classifier label such as "promise_citizen"
// or "demand_firm" to a record type and value. "neutral" maps to none.
func ParseCategory(label string) (layout.Type, layout.Value, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "promise_citizen":
		return layout.TypePromise, layout.ValueCitizen, nil
	case "promise_firm":
		return layout.TypePromise, layout.ValueFirm, nil
	case "demand_citizen", "obligation_citizen":
		return layout.TypeObligation, layout.ValueCitizen, nil
	case "demand_firm", "obligation_firm":
		return layout.TypeObligation, layout.ValueFirm, nil
	case "neutral", "none", "":
		return layout.TypeNone, layout.ValueNone, nil
	default:
		return layout.TypeNone, layout.ValueNone, fmt.Errorf("unknown category %q", label)
	}
}
