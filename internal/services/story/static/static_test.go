package static

import (
	"io/fs"
	"strings"
	"testing"
)

func TestFSContainsClientAssets(t *testing.T) {
	for _, name := range []string{ClientScript, "story.css"} {
		data, err := fs.ReadFile(FS(), name)
		if err != nil {
			t.Fatalf("ReadFile(%s) error = %v", name, err)
		}
		if len(data) == 0 {
			t.Fatalf("%s is empty", name)
		}
	}
}

func TestClientSpeaksSessionFrames(t *testing.T) {
	data, err := fs.ReadFile(FS(), ClientScript)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	for _, frame := range []string{`"resize"`, `"scroll"`, `"wheel"`, `"pointer_move"`, `"navigate"`, "scroll_to"} {
		if !strings.Contains(string(data), frame) {
			t.Fatalf("client does not reference frame %s", frame)
		}
	}
}

func TestClientRedrawsLayoutInChartCoordinates(t *testing.T) {
	t.Parallel()

	data, err := fs.ReadFile(FS(), ClientScript)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	script := string(data)
	tests := []struct {
		name    string
		snippet string
		want    bool
	}{
		{name: "viewBox follows layout viewport", snippet: `"viewBox"`, want: true},
		{name: "dots take record fills", snippet: `result.fills`, want: true},
		{name: "pointer mapped per event", snippet: `localPoint(e)`, want: true},
		{name: "no cached origin frame", snippet: `send("origin"`, want: false},
		{name: "no raw client coordinates sent", snippet: `x: e.clientX, y: e.clientY`, want: false},
	}
	for _, tc := range tests {
		if got := strings.Contains(script, tc.snippet); got != tc.want {
			t.Fatalf("%s: contains %q = %t, want %t", tc.name, tc.snippet, got, tc.want)
		}
	}
}
