// Package session composes layout, tracking, mode and hover into one story
// session driven by a single execution context.
package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/louisbranch/budgetstory/internal/platform/errors"
	"github.com/louisbranch/budgetstory/internal/platform/i18n/catalog"
	"github.com/louisbranch/budgetstory/internal/platform/otel"
	"github.com/louisbranch/budgetstory/internal/services/story/hover"
	"github.com/louisbranch/budgetstory/internal/services/story/layout"
	"github.com/louisbranch/budgetstory/internal/services/story/mode"
	"github.com/louisbranch/budgetstory/internal/services/story/schedule"
	"github.com/louisbranch/budgetstory/internal/services/story/tracker"
	"github.com/louisbranch/budgetstory/internal/services/story/viewport"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/text/message"
)

// liveLayout is the layout currently wired to hit-testing. It is released
// before the next one is attached.
type liveLayout struct {
	result layout.Result
	cfg    viewport.Config
}

// Controller is one story session. Every method must run on the session's
// scheduler; the controller holds no locks.
type Controller struct {
	id      string
	sched   schedule.Scheduler
	opts    Options
	printer *message.Printer

	records []layout.Record
	live    *liveLayout
	count   int
	originX float64
	originY float64

	machine *mode.Machine
	tracker *tracker.Tracker
	hover   *hover.Coordinator
	resize  *schedule.Debouncer

	snapshot  tracker.Snapshot
	navActive string
	degraded  error
	closed    bool
}

// New creates a session over records. Records outside the four categories
// are skipped by layout.
func New(sched schedule.Scheduler, records []layout.Record, opts Options) *Controller {
	opts = opts.withDefaults()
	c := &Controller{
		id:      uuid.NewString(),
		sched:   sched,
		opts:    opts,
		printer: catalog.Default().Printer(opts.Language),
		records: append([]layout.Record(nil), records...),
		tracker: tracker.New(opts.Sections),
		resize:  schedule.NewDebouncer(sched, opts.ResizeDebounce),
	}
	c.machine = mode.New(sched, opts.Thresholds, mode.Hooks{
		OnEnter: c.enteredExplore,
		OnExit:  c.exitedExplore,
	})
	c.hover = hover.New(sched, opts.HideDelay, hover.Hooks{
		OnHover:  c.recordHovered,
		OnSelect: c.recordSelected,
	})
	if _, ok := c.tracker.Section(opts.ExploreID); !ok {
		c.degraded = errors.WithMetadata(errors.CodeMountMissing, "explore section missing", map[string]string{
			"section": opts.ExploreID,
		})
		c.machine.Disable()
		opts.Logger.Printf("session=%s degraded: %v; exploration disabled", c.id, c.degraded)
	}
	return c
}

// ID returns the session identifier.
func (c *Controller) ID() string {
	return c.id
}

// Degraded returns the mount error that disabled exploration, if any.
func (c *Controller) Degraded() error {
	return c.degraded
}

// Relayout discards the live layout and computes a new one for cfg.
func (c *Controller) Relayout(records []layout.Record, cfg viewport.Config) layout.Result {
	if c.closed {
		return layout.Result{}
	}
	_, span := otel.Tracer("story/session").Start(context.Background(), "session.relayout")
	defer span.End()

	c.resize.Cancel()
	c.release()
	if records != nil {
		c.records = append(c.records[:0:0], records...)
	}
	result := layout.Compute(c.records, cfg)
	c.count++
	c.live = &liveLayout{result: result, cfg: cfg}
	c.hover.Attach(result, c.originX, c.originY)

	span.SetAttributes(
		attribute.String("session.id", c.id),
		attribute.String("viewport.tier", cfg.Tier.String()),
		attribute.Float64("viewport.width", cfg.Width),
		attribute.Int("layout.records", len(result.Records)),
		attribute.Int("layout.bands", len(result.Bands)),
	)
	if result.Empty() {
		c.opts.Logger.Printf("session=%s relayout=%d width=%.0f empty layout", c.id, c.count, cfg.Width)
	}

	if c.opts.Hooks.OnLayout != nil {
		c.opts.Hooks.OnLayout(result, cfg)
	}
	c.reapply()
	return result
}

// release detaches the live layout from hit-testing and clears whatever
// referenced it.
func (c *Controller) release() {
	if c.live == nil {
		return
	}
	c.hover.Detach()
	c.live = nil
}

// Resize schedules a debounced relayout for a window of the given size.
// Bursts collapse into one recompute.
func (c *Controller) Resize(width, height float64) {
	if c.closed {
		return
	}
	cfg := viewport.ConfigFor(width, height)
	c.resize.Trigger(func() {
		c.Relayout(nil, cfg)
	})
}

// SetOrigin moves the chart container origin used for pointer mapping.
func (c *Controller) SetOrigin(x, y float64) {
	c.originX, c.originY = x, y
	c.hover.SetOrigin(x, y)
}

// Scroll feeds the section geometry at the current scroll position.
func (c *Controller) Scroll(snap tracker.Snapshot) {
	if c.closed {
		return
	}
	c.snapshot = snap
	if section, changed := c.tracker.Observe(snap); changed && c.machine.Mode() == mode.Narrative {
		c.activate(section)
	}
	if rect, ok := snap.Find(c.opts.ExploreID); ok {
		c.machine.ObserveExplore(rect.VisibleRatio(snap.ViewportHeight), rect.Bottom, snap.ViewportHeight)
	}
	if len(c.opts.NavIDs) > 0 {
		if nav := tracker.ActiveNav(snap, c.opts.NavIDs); nav != c.navActive {
			c.navActive = nav
			if c.opts.Hooks.OnNavActive != nil {
				c.opts.Hooks.OnNavActive(nav)
			}
		}
	}
}

// Wheel feeds a wheel event.
func (c *Controller) Wheel(deltaY float64) {
	if !c.closed {
		c.machine.Wheel(deltaY)
	}
}

// TouchStart feeds the start of a touch.
func (c *Controller) TouchStart(y float64) {
	if !c.closed {
		c.machine.TouchStart(y)
	}
}

// TouchEnd feeds the end of a touch.
func (c *Controller) TouchEnd(y float64) {
	if !c.closed {
		c.machine.TouchEnd(y)
	}
}

// Key feeds a key press.
func (c *Controller) Key(name string) {
	if !c.closed {
		c.machine.Key(name)
	}
}

// ExitExplore leaves explore through the exit control.
func (c *Controller) ExitExplore() bool {
	if c.closed {
		return false
	}
	return c.machine.Exit()
}

// NavigateTo leaves explore, if needed, and asks the presentation layer to
// scroll to the section.
func (c *Controller) NavigateTo(sectionID string) error {
	if c.closed {
		return nil
	}
	if _, ok := c.tracker.Section(sectionID); !ok {
		return errors.WithMetadata(errors.CodeNotFound, "unknown section", map[string]string{"section": sectionID})
	}
	c.machine.Exit()
	if c.opts.Hooks.OnScrollTo != nil {
		c.opts.Hooks.OnScrollTo(sectionID)
	}
	return nil
}

// PointerMove feeds pointer movement in container coordinates.
func (c *Controller) PointerMove(x, y float64) {
	if !c.closed {
		c.hover.Move(x, y)
	}
}

// PointerLeave feeds the pointer leaving the records.
func (c *Controller) PointerLeave() {
	if !c.closed {
		c.hover.Leave()
	}
}

// Click feeds a click or tap.
func (c *Controller) Click(x, y float64, insidePanel bool) {
	if !c.closed {
		c.hover.Click(x, y, insidePanel)
	}
}

// Unpin closes a pinned panel.
func (c *Controller) Unpin() {
	if !c.closed {
		c.hover.Unpin()
	}
}

// CurrentMode returns the interaction mode.
func (c *Controller) CurrentMode() mode.Mode {
	return c.machine.Mode()
}

// Layout returns the live layout. ok is false before the first relayout.
func (c *Controller) Layout() (layout.Result, bool) {
	if c.live == nil {
		return layout.Result{}, false
	}
	return c.live.result, true
}

// RelayoutCount returns how many layout passes ran.
func (c *Controller) RelayoutCount() int {
	return c.count
}

// ActiveSection returns the section the tracker considers active.
func (c *Controller) ActiveSection() string {
	return c.tracker.Current()
}

// Panel returns the detail panel state.
func (c *Controller) Panel() hover.Panel {
	return c.localizedPanel()
}

// localizedPanel swaps the category label for the session's locale.
func (c *Controller) localizedPanel() hover.Panel {
	panel := c.hover.Panel()
	if panel.Category.Key != "" {
		panel.Category.Label = c.printer.Sprintf(catalog.TagKey(panel.Category.Key))
	}
	return panel
}

// Activation returns what the presentation layer should currently show.
func (c *Controller) Activation() (tracker.Activation, bool) {
	if c.live == nil {
		return tracker.Activation{}, false
	}
	if c.machine.Mode() == mode.Explore {
		return c.exploreActivation(), true
	}
	section, ok := c.tracker.Section(c.tracker.Current())
	if !ok {
		return tracker.Activation{}, false
	}
	return tracker.Activate(section, c.live.result), true
}

// Reset returns the session to its initial narrative state and keeps the
// live layout.
func (c *Controller) Reset() {
	c.resize.Cancel()
	c.hover.Clear()
	c.hover.SetEnabled(false)
	c.machine.Reset()
	c.tracker.Reset()
	c.snapshot = tracker.Snapshot{}
	c.navActive = ""
	if c.degraded != nil {
		c.machine.Disable()
	}
}

// Close releases every resource and cancels pending timers. Later calls are
// ignored.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	c.resize.Cancel()
	c.hover.SetEnabled(false)
	c.release()
	c.machine.Disable()
	c.closed = true
}

func (c *Controller) enteredExplore(reason mode.Reason) {
	c.hover.SetEnabled(true)
	if c.opts.Hooks.OnModeChanged != nil {
		c.opts.Hooks.OnModeChanged(mode.Explore, reason)
	}
	if c.live != nil && c.opts.Hooks.OnSectionActive != nil {
		c.opts.Hooks.OnSectionActive(c.exploreActivation())
	}
}

func (c *Controller) exitedExplore(reason mode.Reason) {
	c.hover.SetEnabled(false)
	if c.opts.Hooks.OnModeChanged != nil {
		c.opts.Hooks.OnModeChanged(mode.Narrative, reason)
	}
	if section, ok := c.tracker.Section(c.tracker.Current()); ok {
		c.activate(section)
	}
}

// reapply re-emits the active state against a fresh layout.
func (c *Controller) reapply() {
	if c.opts.Hooks.OnSectionActive == nil || c.live == nil {
		return
	}
	if activation, ok := c.Activation(); ok {
		c.opts.Hooks.OnSectionActive(activation)
	}
}

func (c *Controller) activate(section tracker.Section) {
	if c.live == nil || c.opts.Hooks.OnSectionActive == nil {
		return
	}
	c.opts.Hooks.OnSectionActive(tracker.Activate(section, c.live.result))
}

// exploreActivation is the explore-mode view: every record lit, no range
// highlight and the exploration instructions in the header.
func (c *Controller) exploreActivation() tracker.Activation {
	section, _ := c.tracker.Section(c.opts.ExploreID)
	opacity := make([]float64, len(c.live.result.Records))
	for i := range opacity {
		opacity[i] = tracker.ExploreOpacity
	}
	instructions := catalog.KeyExploreHover
	if c.live.cfg.IsMobile {
		instructions = catalog.KeyExploreTap
	}
	return tracker.Activation{
		Section:  section,
		Opacity:  opacity,
		Header:   tracker.Header{Era: c.printer.Sprintf(catalog.KeyExploreEra), Context: c.printer.Sprintf(instructions)},
		Progress: tracker.Progress(section, c.live.result),
	}
}

func (c *Controller) recordHovered(record layout.Record, ok bool) {
	if c.opts.Hooks.OnRecordHovered != nil {
		c.opts.Hooks.OnRecordHovered(record, ok)
	}
	c.emitPanel()
}

func (c *Controller) recordSelected(record layout.Record, ok bool) {
	if c.opts.Hooks.OnRecordSelected != nil {
		c.opts.Hooks.OnRecordSelected(record, ok)
	}
	c.emitPanel()
}

func (c *Controller) emitPanel() {
	if c.opts.Hooks.OnPanel != nil {
		c.opts.Hooks.OnPanel(c.localizedPanel())
	}
}

// String identifies the session in logs.
func (c *Controller) String() string {
	return fmt.Sprintf("session(%s)", c.id)
}
