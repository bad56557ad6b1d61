package layout

import (
	"math"
	"sort"

	"github.com/louisbranch/budgetstory/internal/services/story/viewport"
)

// YearGap is the unscaled gap reserved after every year band.
const YearGap = 2.0

// LabelYears are the years that receive an axis label when present.
var LabelYears = []int{1965, 1980, 2000, 2020, 2026}

// Status describes the outcome of a layout pass.
type Status int

const (
	// StatusOK means at least one band was produced.
	StatusOK Status = iota
	// StatusEmpty means there was nothing to place or nowhere to place it.
	// It is a valid outcome, not an error.
	StatusEmpty
)

func (s Status) String() string {
	if s == StatusEmpty {
		return "empty"
	}
	return "ok"
}

// YearBand is the horizontal span allocated to one year.
type YearBand struct {
	Year   int     `json:"year"`
	Start  float64 `json:"start"`
	Center float64 `json:"center"`
	End    float64 `json:"end"`
	Width  float64 `json:"width"`
}

// YearLabel anchors an axis label under the lowest record of its year.
type YearLabel struct {
	Year int     `json:"year"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type yearGroup struct {
	year    int
	records []int
	raw     float64
}

// Compute runs a full layout pass over records for a window of the given
// configuration. Input records are never modified; the result carries fresh
// copies of every eligible record, each one positioned.
func Compute(records []Record, cfg viewport.Config) Result {
	availableWidth, availableHeight := cfg.DrawingArea()
	out := Result{
		Status:   StatusEmpty,
		DotSize:  cfg.DotSize,
		DotGap:   cfg.DotGap,
		Baseline: cfg.Margin.Top + math.Max(availableHeight, 0)*0.5,
		Left:     cfg.Margin.Left,
		Right:    cfg.Margin.Left + math.Max(availableWidth, 0),
		Top:      cfg.Margin.Top,
		Bottom:   cfg.Margin.Top + math.Max(availableHeight, 0),
	}

	eligible := make([]Record, 0, len(records))
	for _, record := range records {
		if !record.Eligible() {
			continue
		}
		record.Seq = len(eligible)
		record.clearPosition()
		eligible = append(eligible, record)
	}
	if len(eligible) == 0 || availableWidth <= 0 {
		out.index()
		return out
	}

	pitch := cfg.Pitch()
	maxCols := cfg.MaxCols
	if maxCols < 1 {
		maxCols = 1
	}

	groups := groupByYear(eligible)
	total := 0.0
	for i := range groups {
		cols := len(groups[i].records)
		if cols > maxCols {
			cols = maxCols
		}
		groups[i].raw = float64(cols)*pitch + YearGap
		total += groups[i].raw
	}
	if total <= 0 {
		out.index()
		return out
	}
	scale := availableWidth / total
	scaledGap := YearGap * scale

	bands := make([]YearBand, 0, len(groups))
	cursor := cfg.Margin.Left
	for _, group := range groups {
		scaled := group.raw * scale
		band := YearBand{
			Year:   group.year,
			Start:  cursor,
			Center: cursor + scaled/2,
			End:    cursor + scaled - scaledGap,
		}
		band.Width = band.End - band.Start
		bands = append(bands, band)
		cursor += scaled
	}

	for i, group := range groups {
		placeBand(eligible, group.records, bands[i], out.Baseline, cfg)
	}

	out.Status = StatusOK
	out.Records = eligible
	out.Bands = bands
	out.Labels = yearLabels(eligible, bands, cfg)
	out.index()
	return out
}

func groupByYear(records []Record) []yearGroup {
	byYear := map[int]int{}
	var groups []yearGroup
	for i, record := range records {
		idx, ok := byYear[record.Year]
		if !ok {
			idx = len(groups)
			byYear[record.Year] = idx
			groups = append(groups, yearGroup{year: record.Year})
		}
		groups[idx].records = append(groups[idx].records, i)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].year < groups[j].year })
	return groups
}

// placeBand positions one year's records. The column count is derived from
// the band's final width, not from the provisional count used for sizing.
func placeBand(records []Record, members []int, band YearBand, baseline float64, cfg viewport.Config) {
	pitch := cfg.Pitch()
	cols := int(math.Floor(band.Width / pitch))
	if cols < 1 {
		cols = 1
	}
	offsetX := (band.Width - float64(cols)*pitch) / 2

	var promises, obligations []int
	for _, idx := range members {
		switch records[idx].PrimaryType {
		case TypePromise:
			promises = append(promises, idx)
		case TypeObligation:
			obligations = append(obligations, idx)
		}
	}
	byBaselineRank := func(class []int) {
		sort.SliceStable(class, func(i, j int) bool {
			return baselineRank(records[class[i]].PrimaryValue) < baselineRank(records[class[j]].PrimaryValue)
		})
	}
	byBaselineRank(promises)
	byBaselineRank(obligations)

	// Each row is filled across the band before the stack grows outward.
	for slot, idx := range promises {
		row, col := slot/cols, slot%cols
		x := band.Start + offsetX + float64(col)*pitch + cfg.DotSize/2
		records[idx].place(x, baseline-cfg.DotSize-float64(row)*pitch)
	}
	for slot, idx := range obligations {
		row, col := slot/cols, slot%cols
		x := band.Start + offsetX + float64(col)*pitch + cfg.DotSize/2
		records[idx].place(x, baseline+cfg.DotSize+float64(row)*pitch)
	}
}

func yearLabels(records []Record, bands []YearBand, cfg viewport.Config) []YearLabel {
	lowest := map[int]float64{}
	for _, record := range records {
		if !record.Positioned {
			continue
		}
		if y, ok := lowest[record.Year]; !ok || record.Y > y {
			lowest[record.Year] = record.Y
		}
	}
	bandByYear := make(map[int]YearBand, len(bands))
	for _, band := range bands {
		bandByYear[band.Year] = band
	}
	var labels []YearLabel
	for _, year := range LabelYears {
		band, ok := bandByYear[year]
		if !ok {
			continue
		}
		y, ok := lowest[year]
		if !ok {
			continue
		}
		labels = append(labels, YearLabel{
			Year: year,
			X:    band.Center,
			Y:    y + cfg.DotSize/2 + cfg.YearLabelPadding,
		})
	}
	return labels
}
