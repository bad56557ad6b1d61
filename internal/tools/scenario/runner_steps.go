package scenario

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/louisbranch/budgetstory/internal/services/story/dataset"
	"github.com/louisbranch/budgetstory/internal/services/story/layout"
	"github.com/louisbranch/budgetstory/internal/services/story/session"
	"github.com/louisbranch/budgetstory/internal/services/story/tracker"
	"github.com/louisbranch/budgetstory/internal/services/story/viewport"
)

func (r *Runner) runStep(ctx context.Context, state *scenarioState, step Step) error {
	switch step.Kind {
	case "records":
		return r.runRecordsStep(state, step.Args)
	case "sections":
		return r.runSectionsStep(state, step.Args)
	case "dataset":
		return r.runDatasetStep(ctx, state, step.Args)
	case "resize":
		return r.runResizeStep(state, step.Args)
	case "relayout":
		return r.runRelayoutStep(state, step.Args)
	case "wait":
		ms, ok := numberArg(step.Args, "ms")
		if !ok || ms < 0 {
			return r.failf("wait requires a non-negative duration")
		}
		fired := state.clock.Advance(time.Duration(ms * float64(time.Millisecond)))
		r.logf("wait %vms fired=%d", ms, fired)
		return nil
	case "scroll":
		return r.runScrollStep(state, step.Args)
	case "explore_visible":
		return r.runExploreVisibleStep(state, step.Args)
	case "wheel":
		delta, _ := numberArg(step.Args, "delta")
		r.ensureSession(state).Wheel(delta)
		return nil
	case "touch_start":
		y, _ := numberArg(step.Args, "y")
		r.ensureSession(state).TouchStart(y)
		return nil
	case "touch_end":
		y, _ := numberArg(step.Args, "y")
		r.ensureSession(state).TouchEnd(y)
		return nil
	case "key":
		r.ensureSession(state).Key(stringArg(step.Args, "key"))
		return nil
	case "exit":
		r.ensureSession(state).ExitExplore()
		return nil
	case "navigate":
		return r.runNavigateStep(state, step.Args)
	case "pointer":
		x, _ := numberArg(step.Args, "x")
		y, _ := numberArg(step.Args, "y")
		r.ensureSession(state).PointerMove(x, y)
		return nil
	case "pointer_record":
		record, err := r.recordArg(state, step.Args)
		if err != nil {
			return err
		}
		r.ensureSession(state).PointerMove(record.X, record.Y)
		return nil
	case "leave":
		r.ensureSession(state).PointerLeave()
		return nil
	case "click":
		x, _ := numberArg(step.Args, "x")
		y, _ := numberArg(step.Args, "y")
		inside, _ := step.Args["inside_panel"].(bool)
		r.ensureSession(state).Click(x, y, inside)
		return nil
	case "click_record":
		record, err := r.recordArg(state, step.Args)
		if err != nil {
			return err
		}
		r.ensureSession(state).Click(record.X, record.Y, false)
		return nil
	case "unpin":
		r.ensureSession(state).Unpin()
		return nil
	case "expect_mode":
		want := stringArg(step.Args, "mode")
		if got := r.ensureSession(state).CurrentMode().String(); got != want {
			return r.assertf("mode = %s, want %s", got, want)
		}
		return nil
	case "expect_section":
		want := stringArg(step.Args, "section")
		if got := r.ensureSession(state).ActiveSection(); got != want {
			return r.assertf("active section = %q, want %q", got, want)
		}
		return nil
	case "expect_relayouts":
		want, _ := numberArg(step.Args, "count")
		if got := r.ensureSession(state).RelayoutCount(); float64(got) != want {
			return r.assertf("relayouts = %d, want %v", got, want)
		}
		return nil
	case "expect_hover":
		return r.runExpectHoverStep(state, step.Args)
	case "expect_pinned":
		want, _ := step.Args["pinned"].(bool)
		if got := r.ensureSession(state).Panel().Pinned; got != want {
			return r.assertf("pinned = %t, want %t", got, want)
		}
		return nil
	default:
		return r.failf("unknown step kind %q", step.Kind)
	}
}

func (r *Runner) runRecordsStep(state *scenarioState, args map[string]any) error {
	if state.session != nil {
		return r.failf("records must be declared before the session starts")
	}
	items, ok := args["items"].([]any)
	if !ok {
		return r.failf("records requires a list")
	}
	records := make([]layout.Record, 0, len(items))
	for i, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			return r.failf("record %d must be a table", i+1)
		}
		year, ok := numberArg(fields, "year")
		if !ok {
			return r.failf("record %d requires a year", i+1)
		}
		record := layout.Record{
			Year:         int(year),
			Text:         stringArg(fields, "text"),
			SpeakerName:  stringArg(fields, "speaker"),
			PrimaryType:  layout.Type(stringArg(fields, "type")),
			PrimaryValue: layout.Value(stringArg(fields, "value")),
		}
		if category := stringArg(fields, "category"); category != "" {
			kind, value, err := dataset.ParseCategory(category)
			if err != nil {
				return r.failf("record %d: %v", i+1, err)
			}
			record.PrimaryType, record.PrimaryValue = kind, value
		}
		records = append(records, record)
	}
	state.records = records
	return nil
}

func (r *Runner) runSectionsStep(state *scenarioState, args map[string]any) error {
	if state.session != nil {
		return r.failf("sections must be declared before the session starts")
	}
	items, ok := args["items"].([]any)
	if !ok {
		return r.failf("sections requires a list")
	}
	sections := make([]tracker.Section, 0, len(items))
	for i, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			return r.failf("section %d must be a table", i+1)
		}
		id := stringArg(fields, "id")
		if id == "" {
			return r.failf("section %d requires an id", i+1)
		}
		years, _ := fields["years"].([]any)
		if len(years) != 2 {
			return r.failf("section %q requires years = {first, last}", id)
		}
		start, okStart := numberValue(years[0])
		end, okEnd := numberValue(years[1])
		if !okStart || !okEnd {
			return r.failf("section %q years must be numbers", id)
		}
		sections = append(sections, tracker.Section{
			ID:         id,
			YearRange:  [2]int{int(start), int(end)},
			Type:       stringArg(fields, "type"),
			EraLabel:   stringArg(fields, "era"),
			HeaderText: stringArg(fields, "header"),
			Title:      stringArg(fields, "title"),
		})
	}
	state.sections = sections
	return nil
}

func (r *Runner) runDatasetStep(ctx context.Context, state *scenarioState, args map[string]any) error {
	if state.session != nil {
		return r.failf("dataset must be loaded before the session starts")
	}
	dir := stringArg(args, "dir")
	if dir == "" {
		return r.failf("dataset requires a directory")
	}
	if !filepath.IsAbs(dir) && r.baseDir != "" {
		dir = filepath.Join(r.baseDir, dir)
	}
	loadCtx, cancel := context.WithTimeout(ctx, r.datasetLoad)
	defer cancel()
	bundle, err := dataset.Load(loadCtx, os.DirFS(dir))
	if err != nil {
		return fmt.Errorf("load dataset %s: %w", dir, err)
	}
	state.records = bundle.Viz.Records()
	state.sections = bundle.Story.TrackerSections()
	state.navIDs = bundle.Story.NavIDs()
	r.logf("dataset %s: %d records %d sections", dir, len(state.records), len(state.sections))
	return nil
}

func (r *Runner) runResizeStep(state *scenarioState, args map[string]any) error {
	width, okW := numberArg(args, "width")
	height, okH := numberArg(args, "height")
	if !okW || !okH || width < 0 || height < 0 {
		return r.failf("resize requires a non-negative width and height")
	}
	r.ensureSession(state).Resize(width, height)
	return nil
}

func (r *Runner) runRelayoutStep(state *scenarioState, args map[string]any) error {
	width, okW := numberArg(args, "width")
	height, okH := numberArg(args, "height")
	if !okW || !okH || width < 0 || height < 0 {
		return r.failf("relayout requires a non-negative width and height")
	}
	result := r.ensureSession(state).Relayout(nil, viewport.ConfigFor(width, height))
	r.logf("relayout %vx%v status=%s records=%d", width, height, result.Status, len(result.Records))
	return nil
}

// scroll takes {viewport = h, sections = {{id = ..., top = ..., bottom = ...}}}.
func (r *Runner) runScrollStep(state *scenarioState, args map[string]any) error {
	fields, ok := args["items"].(map[string]any)
	if !ok {
		return r.failf("scroll requires a table with viewport and sections")
	}
	height, ok := numberArg(fields, "viewport")
	if !ok || height < 0 {
		return r.failf("scroll requires a non-negative viewport height")
	}
	snap := tracker.Snapshot{ViewportHeight: height}
	rects, _ := fields["sections"].([]any)
	for i, item := range rects {
		rect, ok := item.(map[string]any)
		if !ok {
			return r.failf("scroll section %d must be a table", i+1)
		}
		top, _ := numberArg(rect, "top")
		bottom, _ := numberArg(rect, "bottom")
		snap.Sections = append(snap.Sections, tracker.Rect{ID: stringArg(rect, "id"), Top: top, Bottom: bottom})
	}
	r.ensureSession(state).Scroll(snap)
	return nil
}

// explore_visible takes {viewport = h, top = y, bottom = y} for the explore
// section alone.
func (r *Runner) runExploreVisibleStep(state *scenarioState, args map[string]any) error {
	fields, ok := args["items"].(map[string]any)
	if !ok {
		return r.failf("explore_visible requires a table")
	}
	height, ok := numberArg(fields, "viewport")
	if !ok || height < 0 {
		return r.failf("explore_visible requires a non-negative viewport height")
	}
	top, _ := numberArg(fields, "top")
	bottom, _ := numberArg(fields, "bottom")
	r.ensureSession(state).Scroll(tracker.Snapshot{
		ViewportHeight: height,
		Sections:       []tracker.Rect{{ID: session.ExploreSectionID, Top: top, Bottom: bottom}},
	})
	return nil
}

func (r *Runner) runNavigateStep(state *scenarioState, args map[string]any) error {
	id := stringArg(args, "section")
	err := r.ensureSession(state).NavigateTo(id)
	if expectErr, _ := args["expect_error"].(bool); expectErr {
		if err == nil {
			return r.assertf("navigate %q succeeded, want error", id)
		}
		return nil
	}
	if err != nil {
		return r.assertf("navigate %q: %v", id, err)
	}
	if n := len(state.scrolls); n == 0 || state.scrolls[n-1] != id {
		return r.assertf("navigate %q did not request a scroll", id)
	}
	return nil
}

func (r *Runner) runExpectHoverStep(state *scenarioState, args map[string]any) error {
	panel := r.ensureSession(state).Panel()
	visible, _ := args["visible"].(bool)
	if panel.Visible != visible {
		return r.assertf("panel visible = %t, want %t", panel.Visible, visible)
	}
	if !visible {
		return nil
	}
	seq, ok := numberArg(args, "seq")
	if ok && float64(panel.Record.Seq) != seq {
		return r.assertf("panel record = %d, want %v", panel.Record.Seq, seq)
	}
	return nil
}

func (r *Runner) recordArg(state *scenarioState, args map[string]any) (layout.Record, error) {
	seq, ok := numberArg(args, "seq")
	if !ok {
		return layout.Record{}, r.failf("record seq is required")
	}
	result, ok := r.ensureSession(state).Layout()
	if !ok {
		return layout.Record{}, r.failf("no layout yet; resize and wait first")
	}
	record, ok := result.Record(int(seq))
	if !ok || !record.Positioned {
		return layout.Record{}, r.failf("record %v is not positioned", seq)
	}
	return record, nil
}

func numberArg(args map[string]any, key string) (float64, bool) {
	return numberValue(args[key])
}

func numberValue(v any) (float64, bool) {
	switch value := v.(type) {
	case int:
		return float64(value), true
	case float64:
		return value, true
	default:
		return 0, false
	}
}

func stringArg(args map[string]any, key string) string {
	value, _ := args[key].(string)
	return value
}
