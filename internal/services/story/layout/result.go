package layout

import "math"

// Result is the output of one full layout pass. A Result is never updated
// in place; every pass produces a new one.
type Result struct {
	Status   Status      `json:"status"`
	Records  []Record    `json:"records"`
	Bands    []YearBand  `json:"bands"`
	Labels   []YearLabel `json:"labels"`
	DotSize  float64     `json:"dot_size"`
	DotGap   float64     `json:"dot_gap"`
	Baseline float64     `json:"baseline"`
	Left     float64     `json:"left"`
	Right    float64     `json:"right"`
	Top      float64     `json:"top"`
	Bottom   float64     `json:"bottom"`

	bandIndex map[int]int
}

func (r *Result) index() {
	r.bandIndex = make(map[int]int, len(r.Bands))
	for i, band := range r.Bands {
		r.bandIndex[band.Year] = i
	}
}

// Empty reports whether the pass produced no bands.
func (r Result) Empty() bool {
	return len(r.Bands) == 0
}

// Band returns the band for year.
func (r Result) Band(year int) (YearBand, bool) {
	if r.bandIndex == nil {
		for _, band := range r.Bands {
			if band.Year == year {
				return band, true
			}
		}
		return YearBand{}, false
	}
	idx, ok := r.bandIndex[year]
	if !ok {
		return YearBand{}, false
	}
	return r.Bands[idx], true
}

// BandsCovering returns the horizontal extent of every band whose year lies
// in [startYear, endYear]. ok is false when no band falls in the range.
func (r Result) BandsCovering(startYear, endYear int) (minStart, maxEnd float64, ok bool) {
	if startYear > endYear {
		startYear, endYear = endYear, startYear
	}
	minStart = math.Inf(1)
	maxEnd = math.Inf(-1)
	for _, band := range r.Bands {
		if band.Year < startYear || band.Year > endYear {
			continue
		}
		ok = true
		minStart = math.Min(minStart, band.Start)
		maxEnd = math.Max(maxEnd, band.End)
	}
	if !ok {
		return 0, 0, false
	}
	return minStart, maxEnd, true
}

// YearSpan returns the earliest and latest years with a band.
func (r Result) YearSpan() (first, last int, ok bool) {
	if len(r.Bands) == 0 {
		return 0, 0, false
	}
	return r.Bands[0].Year, r.Bands[len(r.Bands)-1].Year, true
}

// Record returns the positioned record with the given sequence number.
func (r Result) Record(seq int) (Record, bool) {
	if seq < 0 || seq >= len(r.Records) {
		return Record{}, false
	}
	return r.Records[seq], true
}

// MarshalText renders the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
