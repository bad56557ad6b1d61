// Package hover coordinates pointer highlighting and the pinned detail panel
// while a session is exploring.
package hover

import (
	"math"
	"time"

	"github.com/louisbranch/budgetstory/internal/services/story/layout"
	"github.com/louisbranch/budgetstory/internal/services/story/schedule"
)

// HideDelay is how long the panel lingers after the pointer leaves every
// record.
const HideDelay = 150 * time.Millisecond

// HitRadiusFactor scales the dot size into the pointer tolerance.
const HitRadiusFactor = 1.5

// Panel is the detail panel state.
type Panel struct {
	Visible  bool          `json:"visible"`
	Pinned   bool          `json:"pinned"`
	Record   layout.Record `json:"record"`
	Category Category      `json:"category"`
}

// Hooks receive highlight and selection changes. A false ok means the
// highlight or selection was cleared.
type Hooks struct {
	OnHover  func(record layout.Record, ok bool)
	OnSelect func(record layout.Record, ok bool)
}

// Coordinator owns the highlighted record and the pin. It must only be used
// from the scheduler's execution context.
type Coordinator struct {
	sched     schedule.Scheduler
	hideDelay time.Duration
	hooks     Hooks

	enabled  bool
	attached bool
	result   layout.Result
	originX  float64
	originY  float64

	hovered int
	pinned  bool

	hideTimer schedule.Timer
	hideGen   uint64
}

// New returns a detached, disabled coordinator.
func New(sched schedule.Scheduler, hideDelay time.Duration, hooks Hooks) *Coordinator {
	if hideDelay <= 0 {
		hideDelay = HideDelay
	}
	return &Coordinator{sched: sched, hideDelay: hideDelay, hooks: hooks, hovered: -1}
}

// Attach makes result the hit-test target. Pointer coordinates are measured
// from the container origin.
func (c *Coordinator) Attach(result layout.Result, originX, originY float64) {
	c.Detach()
	c.result = result
	c.originX = originX
	c.originY = originY
	c.attached = true
}

// SetOrigin moves the container origin without touching highlight or pin.
func (c *Coordinator) SetOrigin(originX, originY float64) {
	c.originX = originX
	c.originY = originY
}

// Detach drops the hit-test target together with any highlight, pin or
// pending hide.
func (c *Coordinator) Detach() {
	c.clear()
	c.result = layout.Result{}
	c.attached = false
}

// Attached reports whether a layout is attached.
func (c *Coordinator) Attached() bool {
	return c.attached
}

// SetEnabled turns pointer handling on or off. Disabling clears all state.
func (c *Coordinator) SetEnabled(enabled bool) {
	if !enabled {
		c.clear()
	}
	c.enabled = enabled
}

// Enabled reports whether pointer handling is on.
func (c *Coordinator) Enabled() bool {
	return c.enabled
}

// Move handles pointer movement at container coordinates (x, y).
func (c *Coordinator) Move(x, y float64) {
	if !c.enabled || !c.attached || c.pinned {
		return
	}
	seq, ok := c.Nearest(x, y)
	if !ok {
		c.Leave()
		return
	}
	c.cancelHide()
	c.highlight(seq)
}

// Leave handles the pointer leaving every record.
func (c *Coordinator) Leave() {
	if !c.enabled || c.pinned || c.hovered < 0 || c.hideTimer != nil {
		return
	}
	c.hideGen++
	gen := c.hideGen
	c.hideTimer = c.sched.AfterFunc(c.hideDelay, func() {
		if gen != c.hideGen {
			return
		}
		c.hideTimer = nil
		if c.pinned {
			return
		}
		c.unhighlight()
	})
}

// Click handles a click or tap. insidePanel marks clicks on the detail panel
// itself, which never change the pin.
func (c *Coordinator) Click(x, y float64, insidePanel bool) {
	if !c.enabled || !c.attached || insidePanel {
		return
	}
	seq, ok := c.Nearest(x, y)
	if !ok {
		c.Unpin()
		return
	}
	c.cancelHide()
	repin := c.pinned && c.hovered == seq
	c.highlight(seq)
	c.pinned = true
	if !repin {
		c.emitSelect(true)
	}
}

// Unpin releases the pin and hides the panel.
func (c *Coordinator) Unpin() {
	if !c.pinned {
		return
	}
	c.pinned = false
	c.cancelHide()
	c.emitSelect(false)
	c.unhighlight()
}

// Clear drops highlight and pin, emitting the matching hooks.
func (c *Coordinator) Clear() {
	c.clear()
}

func (c *Coordinator) clear() {
	c.cancelHide()
	if c.pinned {
		c.pinned = false
		c.emitSelect(false)
	}
	c.unhighlight()
}

// Nearest returns the record closest to container point (x, y) within the
// hit radius. Equal distances resolve to the earlier record.
func (c *Coordinator) Nearest(x, y float64) (int, bool) {
	if !c.attached {
		return -1, false
	}
	lx, ly := x-c.originX, y-c.originY
	radius := HitRadiusFactor * c.result.DotSize
	best := -1
	bestDist := math.Inf(1)
	for i, record := range c.result.Records {
		if !record.Positioned {
			continue
		}
		d := math.Hypot(record.X-lx, record.Y-ly)
		if d > radius {
			continue
		}
		if d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best, best >= 0
}

// Hovered returns the highlighted record.
func (c *Coordinator) Hovered() (layout.Record, bool) {
	if c.hovered < 0 {
		return layout.Record{}, false
	}
	return c.result.Records[c.hovered], true
}

// Pinned reports whether the panel is pinned.
func (c *Coordinator) Pinned() bool {
	return c.pinned
}

// HidePending reports whether the panel is about to hide.
func (c *Coordinator) HidePending() bool {
	return c.hideTimer != nil
}

// Panel returns the detail panel state.
func (c *Coordinator) Panel() Panel {
	record, ok := c.Hovered()
	if !ok {
		return Panel{}
	}
	category, _ := CategoryFor(record)
	return Panel{Visible: true, Pinned: c.pinned, Record: record, Category: category}
}

func (c *Coordinator) highlight(seq int) {
	if seq == c.hovered {
		return
	}
	c.hovered = seq
	if c.hooks.OnHover != nil {
		c.hooks.OnHover(c.result.Records[seq], true)
	}
}

func (c *Coordinator) unhighlight() {
	if c.hovered < 0 {
		return
	}
	c.hovered = -1
	if c.hooks.OnHover != nil {
		c.hooks.OnHover(layout.Record{}, false)
	}
}

func (c *Coordinator) emitSelect(ok bool) {
	if c.hooks.OnSelect == nil {
		return
	}
	if !ok {
		c.hooks.OnSelect(layout.Record{}, false)
		return
	}
	c.hooks.OnSelect(c.result.Records[c.hovered], true)
}

func (c *Coordinator) cancelHide() {
	if c.hideTimer == nil {
		return
	}
	c.hideGen++
	c.hideTimer = schedule.StopTimer(c.hideTimer)
}
