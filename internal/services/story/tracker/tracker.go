// Package tracker follows which narrative section sits in the middle of the
// viewport and derives the highlight, header and progress for it.
package tracker

import (
	"math"

	"github.com/louisbranch/budgetstory/internal/services/story/layout"
)

const (
	// RootMargin is the fraction trimmed from both the top and the bottom
	// of the viewport when testing whether a section is active.
	RootMargin = 0.35
	// NavLine is the viewport fraction a nav section's top must pass to
	// become the active navigation item.
	NavLine = 0.4

	// ActiveOpacity and InactiveOpacity apply to records inside and outside
	// the active year range.
	ActiveOpacity   = 1.0
	InactiveOpacity = 0.12
	// HighlightOpacity is the overlay opacity while a range is highlighted.
	HighlightOpacity = 0.03
	// ExploreOpacity applies to every record while exploring.
	ExploreOpacity = 0.9

	// FallbackFirstYear and FallbackLastYear bound progress when the layout
	// has fewer than two years.
	FallbackFirstYear = 1965
	FallbackLastYear  = 2026
)

// Section is a narrative section as far as tracking is concerned.
type Section struct {
	ID         string `json:"id"`
	YearRange  [2]int `json:"year_range"`
	Type       string `json:"type"`
	EraLabel   string `json:"era_label,omitempty"`
	HeaderText string `json:"header_text,omitempty"`
	Title      string `json:"title,omitempty"`
}

// Covers reports whether year lies in the section's declared range.
func (s Section) Covers(year int) bool {
	start, end := s.YearRange[0], s.YearRange[1]
	if start > end {
		start, end = end, start
	}
	return year >= start && year <= end
}

// Rect is a section's vertical extent relative to the top of the viewport.
type Rect struct {
	ID     string  `json:"id"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// VisibleRatio returns how much of the section is inside a viewport of the
// given height.
func (r Rect) VisibleRatio(viewportHeight float64) float64 {
	height := r.Bottom - r.Top
	if height <= 0 {
		return 0
	}
	visible := math.Min(r.Bottom, viewportHeight) - math.Max(r.Top, 0)
	if visible <= 0 {
		return 0
	}
	return math.Min(visible/height, 1)
}

// Snapshot is the geometry of the narrative at one scroll position.
type Snapshot struct {
	ViewportHeight float64 `json:"viewport_height"`
	Sections       []Rect  `json:"sections"`
}

// Find returns the rect for id.
func (s Snapshot) Find(id string) (Rect, bool) {
	for _, rect := range s.Sections {
		if rect.ID == id {
			return rect, true
		}
	}
	return Rect{}, false
}

// Header is the sticky header content.
type Header struct {
	Era     string `json:"era"`
	Context string `json:"context"`
}

// Highlight is the overlay spanning the active year bands.
type Highlight struct {
	Visible bool    `json:"visible"`
	X       float64 `json:"x"`
	Width   float64 `json:"width"`
	Opacity float64 `json:"opacity"`
}

// Activation is everything the presentation layer needs to show a section.
type Activation struct {
	Section   Section   `json:"section"`
	Opacity   []float64 `json:"opacity"`
	Highlight Highlight `json:"highlight"`
	Header    Header    `json:"header"`
	Progress  float64   `json:"progress"`
}

// Tracker remembers the active section. It is not safe for concurrent use.
type Tracker struct {
	sections []Section
	byID     map[string]int
	current  string
}

// New returns a tracker over the static section list.
func New(sections []Section) *Tracker {
	byID := make(map[string]int, len(sections))
	for i, section := range sections {
		if _, exists := byID[section.ID]; !exists {
			byID[section.ID] = i
		}
	}
	return &Tracker{sections: sections, byID: byID}
}

// Section returns the section with the given id.
func (t *Tracker) Section(id string) (Section, bool) {
	idx, ok := t.byID[id]
	if !ok {
		return Section{}, false
	}
	return t.sections[idx], true
}

// Current returns the active section id, empty before the first activation.
func (t *Tracker) Current() string {
	return t.current
}

// Observe picks the active section for snap. It reports the section and true
// only when the active section changed.
func (t *Tracker) Observe(snap Snapshot) (Section, bool) {
	id, ok := t.activeID(snap)
	if !ok || id == t.current {
		return Section{}, false
	}
	t.current = id
	section, _ := t.Section(id)
	return section, true
}

// Reset forgets the active section.
func (t *Tracker) Reset() {
	t.current = ""
}

// activeID returns the known section overlapping the middle band of the
// viewport the most. Ties go to the section listed first.
func (t *Tracker) activeID(snap Snapshot) (string, bool) {
	if snap.ViewportHeight <= 0 {
		return "", false
	}
	bandTop := snap.ViewportHeight * RootMargin
	bandBottom := snap.ViewportHeight * (1 - RootMargin)
	bestID := ""
	bestOverlap := 0.0
	for _, rect := range snap.Sections {
		if _, known := t.byID[rect.ID]; !known {
			continue
		}
		overlap := math.Min(rect.Bottom, bandBottom) - math.Max(rect.Top, bandTop)
		if rect.Bottom < bandTop || rect.Top > bandBottom {
			continue
		}
		// A zero-height intersection on the band edge still counts.
		if overlap < 0 {
			overlap = 0
		}
		if bestID == "" || overlap > bestOverlap {
			bestID = rect.ID
			bestOverlap = overlap
		}
	}
	return bestID, bestID != ""
}

// Activate derives the visual state for section over the live layout.
func Activate(section Section, result layout.Result) Activation {
	activation := Activation{
		Section:  section,
		Opacity:  make([]float64, len(result.Records)),
		Header:   HeaderFor(section),
		Progress: Progress(section, result),
	}
	for i, record := range result.Records {
		if section.Covers(record.Year) {
			activation.Opacity[i] = ActiveOpacity
		} else {
			activation.Opacity[i] = InactiveOpacity
		}
	}
	if minStart, maxEnd, ok := result.BandsCovering(section.YearRange[0], section.YearRange[1]); ok {
		activation.Highlight = Highlight{
			Visible: true,
			X:       minStart,
			Width:   maxEnd - minStart,
			Opacity: HighlightOpacity,
		}
	}
	return activation
}

// HeaderFor returns the header text for section.
func HeaderFor(section Section) Header {
	era := section.HeaderText
	if era == "" {
		era = section.EraLabel
	}
	return Header{Era: era, Context: section.Title}
}

// Progress is the position of the section's range midpoint along the years
// covered by the layout, clamped to [0, 1].
func Progress(section Section, result layout.Result) float64 {
	first, last, ok := result.YearSpan()
	if !ok || last <= first {
		first, last = FallbackFirstYear, FallbackLastYear
	}
	mid := float64(section.YearRange[0]+section.YearRange[1]) / 2
	progress := (mid - float64(first)) / float64(last-first)
	return math.Max(0, math.Min(1, progress))
}

// ActiveNav returns the last nav section whose top has crossed NavLine.
// Sections absent from snap are skipped.
func ActiveNav(snap Snapshot, navIDs []string) string {
	line := snap.ViewportHeight * NavLine
	active := ""
	for _, id := range navIDs {
		rect, ok := snap.Find(id)
		if !ok {
			continue
		}
		if rect.Top <= line {
			active = id
		}
	}
	return active
}
