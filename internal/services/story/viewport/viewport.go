// Package viewport maps the reader's window size to the drawing
// configuration used by the layout engine and the interaction components.
package viewport

// Width thresholds (inclusive) for the narrower tiers.
const (
	MobileMaxWidth      = 768
	SmallMobileMaxWidth = 480
)

// Tier is a viewport size category.
type Tier int

const (
	TierDesktop Tier = iota
	TierMobile
	TierSmallMobile
)

func (t Tier) String() string {
	switch t {
	case TierMobile:
		return "mobile"
	case TierSmallMobile:
		return "small-mobile"
	default:
		return "desktop"
	}
}

// Margins are the chart margins in pixels.
type Margins struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// FontSizes are label sizes in pixels.
type FontSizes struct {
	Year   float64 `json:"year"`
	Legend float64 `json:"legend"`
	Event  float64 `json:"event"`
}

// Config is the complete drawing configuration for one viewport size.
type Config struct {
	Width            float64   `json:"width"`
	Height           float64   `json:"height"`
	Tier             Tier      `json:"-"`
	DotSize          float64   `json:"dot_size"`
	DotGap           float64   `json:"dot_gap"`
	Margin           Margins   `json:"margin"`
	MaxCols          int       `json:"max_cols"`
	IsMobile         bool      `json:"is_mobile"`
	IsSmallMobile    bool      `json:"is_small_mobile"`
	HideAnnotations  bool      `json:"hide_annotations"`
	HideLegend       bool      `json:"hide_legend"`
	YearLabelPadding float64   `json:"year_label_padding"`
	FontSize         FontSizes `json:"font_size"`
}

// TierFor returns the tier for a window width.
func TierFor(width float64) Tier {
	switch {
	case width <= SmallMobileMaxWidth:
		return TierSmallMobile
	case width <= MobileMaxWidth:
		return TierMobile
	default:
		return TierDesktop
	}
}

// ConfigFor returns the configuration for a window of the given size. It is
// pure and always returns a complete configuration.
func ConfigFor(width, height float64) Config {
	tier := TierFor(width)
	cfg := Config{
		Width:            width,
		Height:           height,
		Tier:             tier,
		DotSize:          3.3,
		DotGap:           0.6,
		Margin:           Margins{Top: 240, Right: 25, Bottom: 50, Left: 25},
		MaxCols:          6,
		YearLabelPadding: 15,
		FontSize:         FontSizes{Year: 10, Legend: 10.5, Event: 9},
	}
	switch tier {
	case TierMobile:
		cfg.DotSize = 2.8
		cfg.DotGap = 0.4
		cfg.Margin = Margins{Top: 30, Right: 10, Bottom: 40, Left: 10}
		cfg.MaxCols = 5
		cfg.FontSize = FontSizes{Year: 8, Legend: 9, Event: 8}
	case TierSmallMobile:
		cfg.DotSize = 2.2
		cfg.DotGap = 0.3
		cfg.Margin = Margins{Top: 20, Right: 10, Bottom: 30, Left: 10}
		cfg.MaxCols = 4
		cfg.FontSize = FontSizes{Year: 7, Legend: 8, Event: 7}
	}
	if tier != TierDesktop {
		cfg.IsMobile = true
		cfg.HideAnnotations = true
		cfg.HideLegend = true
		cfg.YearLabelPadding = 12
	}
	cfg.IsSmallMobile = tier == TierSmallMobile
	return cfg
}

// DrawingArea returns the width and height left for records once margins are
// removed. Either value may be zero or negative for tiny windows.
func (c Config) DrawingArea() (width, height float64) {
	return c.Width - c.Margin.Left - c.Margin.Right, c.Height - c.Margin.Top - c.Margin.Bottom
}

// Pitch is the distance between neighbouring record cells.
func (c Config) Pitch() float64 {
	return c.DotSize + c.DotGap
}

// HitRadius is the pointer tolerance around a record centre.
func (c Config) HitRadius() float64 {
	return 1.5 * c.DotSize
}
