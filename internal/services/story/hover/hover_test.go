package hover

import (
	"testing"
	"time"

	"github.com/louisbranch/budgetstory/internal/services/story/layout"
	"github.com/louisbranch/budgetstory/internal/services/story/schedule"
)

type hookLog struct {
	hovers  []int
	selects []int
}

func recordAt(seq int, x, y float64, typ layout.Type, value layout.Value) layout.Record {
	return layout.Record{
		Seq: seq, Year: 1990 + seq, Text: "paragraph", SpeakerName: "Minister",
		PrimaryType: typ, PrimaryValue: value, X: x, Y: y, Positioned: true,
	}
}

func testResult() layout.Result {
	return layout.Result{
		Status:  layout.StatusOK,
		DotSize: 4,
		Records: []layout.Record{
			recordAt(0, 10, 10, layout.TypePromise, layout.ValueCitizen),
			recordAt(1, 16, 10, layout.TypeObligation, layout.ValueFirm),
			recordAt(2, 100, 100, layout.TypePromise, layout.ValueFirm),
		},
	}
}

func newTestCoordinator(t *testing.T) (*Coordinator, *schedule.Manual, *hookLog) {
	t.Helper()
	clock := schedule.NewManual(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	log := &hookLog{}
	seqOf := func(record layout.Record, ok bool) int {
		if !ok {
			return -1
		}
		return record.Seq
	}
	c := New(clock, HideDelay, Hooks{
		OnHover:  func(r layout.Record, ok bool) { log.hovers = append(log.hovers, seqOf(r, ok)) },
		OnSelect: func(r layout.Record, ok bool) { log.selects = append(log.selects, seqOf(r, ok)) },
	})
	// Container origin sits at (5, 5).
	c.Attach(testResult(), 5, 5)
	c.SetEnabled(true)
	return c, clock, log
}

func TestNearest(t *testing.T) {
	t.Parallel()

	c, _, _ := newTestCoordinator(t)
	tests := []struct {
		name  string
		x, y  float64
		want  int
		found bool
	}{
		{name: "on record", x: 15, y: 15, want: 0, found: true},
		{name: "closer to second", x: 20, y: 15, want: 1, found: true},
		{name: "equal distance prefers earlier", x: 18, y: 15, want: 0, found: true},
		{name: "outside radius", x: 60, y: 60, want: -1, found: false},
		{name: "radius edge", x: 111, y: 105, want: 2, found: true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := c.Nearest(tc.x, tc.y)
			if got != tc.want || ok != tc.found {
				t.Fatalf("Nearest(%v, %v) = %d, %t, want %d, %t", tc.x, tc.y, got, ok, tc.want, tc.found)
			}
		})
	}
}

func TestMoveHighlightsOneRecord(t *testing.T) {
	t.Parallel()

	c, _, log := newTestCoordinator(t)
	c.Move(15, 15)
	c.Move(15.5, 15)
	c.Move(21, 15)
	if want := []int{0, 1}; !equalInts(log.hovers, want) {
		t.Fatalf("hovers = %v, want %v", log.hovers, want)
	}
	panel := c.Panel()
	if !panel.Visible || panel.Record.Seq != 1 || panel.Category.Label != "Asks of firms" {
		t.Fatalf("panel = %+v", panel)
	}
}

func TestLeaveHidesAfterDelay(t *testing.T) {
	t.Parallel()

	c, clock, log := newTestCoordinator(t)
	c.Move(15, 15)
	c.Move(60, 60)
	if !c.HidePending() {
		t.Fatal("HidePending() = false after leaving")
	}
	clock.Advance(149 * time.Millisecond)
	if _, ok := c.Hovered(); !ok {
		t.Fatal("panel hidden before delay")
	}
	clock.Advance(time.Millisecond)
	if _, ok := c.Hovered(); ok {
		t.Fatal("panel still visible after delay")
	}
	if want := []int{0, -1}; !equalInts(log.hovers, want) {
		t.Fatalf("hovers = %v, want %v", log.hovers, want)
	}
}

func TestReenterCancelsHide(t *testing.T) {
	t.Parallel()

	c, clock, log := newTestCoordinator(t)
	c.Move(15, 15)
	c.Leave()
	clock.Advance(100 * time.Millisecond)
	c.Move(15, 15)
	clock.Advance(time.Second)
	if _, ok := c.Hovered(); !ok {
		t.Fatal("re-entered record was hidden")
	}
	if want := []int{0}; !equalInts(log.hovers, want) {
		t.Fatalf("hovers = %v, want %v", log.hovers, want)
	}
}

func TestClickPinsAndOutsideClickUnpins(t *testing.T) {
	t.Parallel()

	c, clock, log := newTestCoordinator(t)
	c.Click(15, 15, false)
	if !c.Pinned() {
		t.Fatal("Pinned() = false after click")
	}
	c.Move(105, 105)
	c.Leave()
	clock.Advance(time.Second)
	if rec, ok := c.Hovered(); !ok || rec.Seq != 0 {
		t.Fatalf("pinned panel changed: %+v %t", rec, ok)
	}
	c.Click(200, 200, true)
	if !c.Pinned() {
		t.Fatal("click inside panel unpinned")
	}
	c.Click(200, 200, false)
	if c.Pinned() || c.Panel().Visible {
		t.Fatalf("panel = %+v after outside click", c.Panel())
	}
	if want := []int{0, -1}; !equalInts(log.selects, want) {
		t.Fatalf("selects = %v, want %v", log.selects, want)
	}
}

func TestClickAnotherRecordRepins(t *testing.T) {
	t.Parallel()

	c, _, log := newTestCoordinator(t)
	c.Click(15, 15, false)
	c.Click(15, 15, false)
	c.Click(105, 105, false)
	if want := []int{0, 2}; !equalInts(log.selects, want) {
		t.Fatalf("selects = %v, want %v", log.selects, want)
	}
	c.Unpin()
	c.Unpin()
	if want := []int{0, 2, -1}; !equalInts(log.selects, want) {
		t.Fatalf("selects = %v, want %v", log.selects, want)
	}
}

func TestDisabledIgnoresPointer(t *testing.T) {
	t.Parallel()

	c, _, log := newTestCoordinator(t)
	c.Click(15, 15, false)
	c.SetEnabled(false)
	if c.Pinned() {
		t.Fatal("disable kept the pin")
	}
	c.Move(15, 15)
	c.Click(15, 15, false)
	if want := []int{0, -1}; !equalInts(log.hovers, want) {
		t.Fatalf("hovers = %v, want %v", log.hovers, want)
	}
}

func TestDetachClearsPendingHide(t *testing.T) {
	t.Parallel()

	c, clock, log := newTestCoordinator(t)
	c.Move(15, 15)
	c.Leave()
	c.Detach()
	if c.HidePending() || c.Attached() {
		t.Fatal("detach left state behind")
	}
	if clock.Pending() != 0 {
		t.Fatalf("Pending() = %d, want 0", clock.Pending())
	}
	c.Move(15, 15)
	if want := []int{0, -1}; !equalInts(log.hovers, want) {
		t.Fatalf("hovers = %v, want %v", log.hovers, want)
	}
}

func TestCategoryFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ   layout.Type
		value layout.Value
		label string
		color string
	}{
		{layout.TypePromise, layout.ValueCitizen, "Promises to you", "#C44F4F"},
		{layout.TypePromise, layout.ValueFirm, "Promises to firms", "#E89898"},
		{layout.TypeObligation, layout.ValueCitizen, "Asks of you", "#2B4460"},
		{layout.TypeObligation, layout.ValueFirm, "Asks of firms", "#6B8CAE"},
	}
	for _, tc := range tests {
		got, ok := CategoryFor(layout.Record{PrimaryType: tc.typ, PrimaryValue: tc.value})
		if !ok || got.Label != tc.label || got.Color != tc.color {
			t.Fatalf("CategoryFor(%s, %s) = %+v, %t", tc.typ, tc.value, got, ok)
		}
	}
	if _, ok := CategoryFor(layout.Record{PrimaryType: layout.TypePromise}); ok {
		t.Fatal("CategoryFor(no value) ok = true")
	}
}

func equalInts(got, want []int) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
