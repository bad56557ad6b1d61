package session

import (
	"log"
	"time"

	"github.com/louisbranch/budgetstory/internal/services/story/hover"
	"github.com/louisbranch/budgetstory/internal/services/story/layout"
	"github.com/louisbranch/budgetstory/internal/services/story/mode"
	"github.com/louisbranch/budgetstory/internal/services/story/tracker"
	"github.com/louisbranch/budgetstory/internal/services/story/viewport"
	"golang.org/x/text/language"
)

// ExploreSectionID is the id of the section that hosts free exploration.
const ExploreSectionID = "explore"

// ResizeDebounce is the default quiet period before a resize recomputes the
// layout.
const ResizeDebounce = 250 * time.Millisecond

// Options configure a Controller.
type Options struct {
	Sections       []tracker.Section
	NavIDs         []string
	ExploreID      string
	Thresholds     mode.Thresholds
	ResizeDebounce time.Duration
	HideDelay      time.Duration
	Language       language.Tag
	Logger         *log.Logger
	Hooks          Hooks
}

// Hooks are the notifications a presentation layer subscribes to. Every
// hook runs on the session's execution context.
type Hooks struct {
	OnLayout         func(layout.Result, viewport.Config)
	OnSectionActive  func(tracker.Activation)
	OnModeChanged    func(mode.Mode, mode.Reason)
	OnRecordHovered  func(record layout.Record, ok bool)
	OnRecordSelected func(record layout.Record, ok bool)
	OnPanel          func(hover.Panel)
	OnNavActive      func(sectionID string)
	OnScrollTo       func(sectionID string)
}

func (o Options) withDefaults() Options {
	if o.ExploreID == "" {
		o.ExploreID = ExploreSectionID
	}
	if o.Thresholds == (mode.Thresholds{}) {
		o.Thresholds = mode.DefaultThresholds()
	}
	if o.ResizeDebounce <= 0 {
		o.ResizeDebounce = ResizeDebounce
	}
	if o.HideDelay <= 0 {
		o.HideDelay = hover.HideDelay
	}
	if o.Language == language.Und {
		o.Language = language.AmericanEnglish
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}
