// Package mode implements the narrative/explore interaction state machine.
//
// Entering explore is driven by the visibility of the explore section.
// Leaving it takes deliberate user intent: an upward wheel gesture, a
// downward swipe, Escape or the exit control. Losing visibility never
// exits. Every explicit exit starts a cooldown during which visibility
// cannot re-enter explore.
package mode

import (
	"time"

	"github.com/louisbranch/budgetstory/internal/services/story/schedule"
)

// Mode is the interaction mode of a session.
type Mode int

const (
	Narrative Mode = iota
	Explore
)

func (m Mode) String() string {
	if m == Explore {
		return "explore"
	}
	return "narrative"
}

// MarshalText renders the mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Reason names what caused a transition.
type Reason string

const (
	ReasonVisible Reason = "visible"
	ReasonPassed  Reason = "passed"
	ReasonWheel   Reason = "wheel"
	ReasonSwipe   Reason = "swipe"
	ReasonEscape  Reason = "escape"
	ReasonControl Reason = "control"
)

// KeyEscape is the key name that exits explore.
const KeyEscape = "Escape"

// Thresholds tune the entry and exit gestures.
type Thresholds struct {
	EntryDebounce  time.Duration
	VisibleRatio   float64
	PassedFraction float64
	WheelDistance  float64
	WheelWindow    time.Duration
	WheelIdle      time.Duration
	SwipeDistance  float64
	SwipeWindow    time.Duration
	Cooldown       time.Duration
}

// DefaultThresholds returns the tuned production values.
func DefaultThresholds() Thresholds {
	return Thresholds{
		EntryDebounce:  300 * time.Millisecond,
		VisibleRatio:   0.5,
		PassedFraction: 0.3,
		WheelDistance:  120,
		WheelWindow:    800 * time.Millisecond,
		WheelIdle:      250 * time.Millisecond,
		SwipeDistance:  50,
		SwipeWindow:    500 * time.Millisecond,
		Cooldown:       1500 * time.Millisecond,
	}
}

// Hooks receive transitions. Each hook runs once per actual transition.
type Hooks struct {
	OnEnter func(Reason)
	OnExit  func(Reason)
}

// Machine is the mode state machine. It must only be used from the
// scheduler's execution context.
type Machine struct {
	sched      schedule.Scheduler
	thresholds Thresholds
	hooks      Hooks

	mode     Mode
	disabled bool

	entryTimer schedule.Timer
	entryGen   uint64
	lastRatio  float64

	cooldownUntil time.Time

	wheelTotal float64
	wheelStart time.Time
	wheelLast  time.Time

	touching     bool
	touchStartY  float64
	touchStartAt time.Time
}

// New returns a machine in narrative mode.
func New(sched schedule.Scheduler, thresholds Thresholds, hooks Hooks) *Machine {
	return &Machine{sched: sched, thresholds: thresholds, hooks: hooks}
}

// Mode returns the current mode.
func (m *Machine) Mode() Mode {
	return m.mode
}

// Disabled reports whether exploration has been turned off.
func (m *Machine) Disabled() bool {
	return m.disabled
}

// EntryPending reports whether a debounced entry is scheduled.
func (m *Machine) EntryPending() bool {
	return m.entryTimer != nil
}

// InCooldown reports whether visibility-driven entry is suppressed.
func (m *Machine) InCooldown() bool {
	return m.sched.Now().Before(m.cooldownUntil)
}

// ObserveExplore feeds the explore section's geometry: its visible ratio and
// its bottom edge relative to a viewport of the given height.
func (m *Machine) ObserveExplore(ratio, bottom, viewportHeight float64) {
	m.lastRatio = ratio
	if m.disabled || m.mode == Explore {
		return
	}
	if m.InCooldown() {
		m.cancelEntry()
		return
	}
	if ratio >= m.thresholds.VisibleRatio {
		if m.entryTimer == nil {
			m.scheduleEntry()
		}
		return
	}
	m.cancelEntry()
	if viewportHeight > 0 && bottom < viewportHeight*m.thresholds.PassedFraction {
		m.enter(ReasonPassed)
	}
}

func (m *Machine) scheduleEntry() {
	m.entryGen++
	gen := m.entryGen
	m.entryTimer = m.sched.AfterFunc(m.thresholds.EntryDebounce, func() {
		if gen != m.entryGen {
			return
		}
		m.entryTimer = nil
		if m.disabled || m.InCooldown() || m.lastRatio < m.thresholds.VisibleRatio {
			return
		}
		m.enter(ReasonVisible)
	})
}

func (m *Machine) cancelEntry() {
	if m.entryTimer == nil {
		return
	}
	m.entryGen++
	m.entryTimer = schedule.StopTimer(m.entryTimer)
}

// Wheel feeds a wheel event. Negative deltaY scrolls up.
func (m *Machine) Wheel(deltaY float64) {
	if m.mode != Explore {
		m.resetWheel()
		return
	}
	if deltaY >= 0 {
		m.resetWheel()
		return
	}
	now := m.sched.Now()
	if m.wheelTotal > 0 {
		if now.Sub(m.wheelLast) > m.thresholds.WheelIdle || now.Sub(m.wheelStart) > m.thresholds.WheelWindow {
			m.resetWheel()
		}
	}
	if m.wheelTotal == 0 {
		m.wheelStart = now
	}
	m.wheelTotal += -deltaY
	m.wheelLast = now
	if m.wheelTotal > m.thresholds.WheelDistance {
		m.exit(ReasonWheel)
	}
}

// WheelTotal returns the upward distance accumulated so far.
func (m *Machine) WheelTotal() float64 {
	return m.wheelTotal
}

func (m *Machine) resetWheel() {
	m.wheelTotal = 0
	m.wheelStart = time.Time{}
	m.wheelLast = time.Time{}
}

// TouchStart records where a touch began.
func (m *Machine) TouchStart(y float64) {
	if m.mode != Explore {
		m.touching = false
		return
	}
	m.touching = true
	m.touchStartY = y
	m.touchStartAt = m.sched.Now()
}

// TouchEnd completes a touch. A quick downward swipe exits explore.
func (m *Machine) TouchEnd(y float64) {
	if !m.touching {
		return
	}
	m.touching = false
	if m.mode != Explore {
		return
	}
	elapsed := m.sched.Now().Sub(m.touchStartAt)
	if y-m.touchStartY > m.thresholds.SwipeDistance && elapsed <= m.thresholds.SwipeWindow {
		m.exit(ReasonSwipe)
	}
}

// Key feeds a key press by name.
func (m *Machine) Key(name string) {
	if name == KeyEscape {
		m.exit(ReasonEscape)
	}
}

// Exit leaves explore through the exit control. It reports whether a
// transition happened.
func (m *Machine) Exit() bool {
	return m.exit(ReasonControl)
}

// Disable turns exploration off for good and cancels any pending entry.
func (m *Machine) Disable() {
	m.disabled = true
	m.cancelEntry()
}

// Reset returns to narrative mode without running hooks and forgets all
// gesture and cooldown state.
func (m *Machine) Reset() {
	m.cancelEntry()
	m.mode = Narrative
	m.lastRatio = 0
	m.cooldownUntil = time.Time{}
	m.resetWheel()
	m.touching = false
}

func (m *Machine) enter(reason Reason) bool {
	if m.mode == Explore || m.disabled {
		return false
	}
	m.cancelEntry()
	m.mode = Explore
	m.resetWheel()
	m.touching = false
	if m.hooks.OnEnter != nil {
		m.hooks.OnEnter(reason)
	}
	return true
}

func (m *Machine) exit(reason Reason) bool {
	if m.mode != Explore {
		return false
	}
	m.mode = Narrative
	m.cancelEntry()
	m.resetWheel()
	m.touching = false
	m.cooldownUntil = m.sched.Now().Add(m.thresholds.Cooldown)
	if m.hooks.OnExit != nil {
		m.hooks.OnExit(reason)
	}
	return true
}
