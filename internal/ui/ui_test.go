package ui

import (
	"bytes"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"

	"baml/internal/driver"
	"baml/internal/viz"
)

var ansi = regexp.MustCompile("\x1b\\[[0-9;]*m")

func plain(s string) string { return ansi.ReplaceAllString(s, "") }

func TestVizTree(t *testing.T) {
	nodes := []viz.NodeMeta{
		{NodeID: 0, LogFilterKey: "main|root:0", Type: viz.NodeFunctionRoot, Label: "main"},
		{NodeID: 1, LogFilterKey: "main|root:0|hdr:setup:0", ParentLogFilterKey: "main|root:0", Type: viz.NodeHeader, Label: "setup", HeaderLevel: 1},
		{NodeID: 2, LogFilterKey: "main|root:0|hdr:setup:0|loop:for:0", ParentLogFilterKey: "main|root:0|hdr:setup:0", Type: viz.NodeLoop, Label: "for"},
		{NodeID: 3, LogFilterKey: "main|root:0|hdr:done:1", ParentLogFilterKey: "main|root:0", Type: viz.NodeHeader, Label: "done", HeaderLevel: 2},
	}
	want := strings.Join([]string{
		"function_root main",
		"├─ # setup",
		"│  └─ loop for",
		"└─ ## done",
		"",
	}, "\n")
	if got := plain(VizTree(nodes)); got != want {
		t.Errorf("tree:\n%s\nwant:\n%s", got, want)
	}
}

func TestVizEventLine(t *testing.T) {
	ev := viz.ExecEvent{Event: viz.Exit, NodeID: 4, NodeType: viz.NodeBranchArm, Label: "if x"}
	if got := plain(VizEventLine(2, "main", ev)); got != "    ← branch_arm if x main#4" {
		t.Errorf("line = %q", got)
	}
}

func TestProgressModelTracksFiles(t *testing.T) {
	events := make(chan driver.Event)
	m := NewProgressModel("test", []string{"a.baml", "b.baml"}, events).(*progressModel)

	m.applyEvent(driver.Event{File: "a.baml", Stage: driver.StageCompile, Status: driver.StatusWorking})
	if m.items[0].status != "compiling" {
		t.Errorf("status = %q", m.items[0].status)
	}
	m.applyEvent(driver.Event{File: "a.baml", Stage: driver.StageRun, Status: driver.StatusDone, Elapsed: time.Second})
	m.applyEvent(driver.Event{File: "b.baml", Stage: driver.StageRun, Status: driver.StatusError})
	m.applyEvent(driver.Event{File: "unknown.baml", Stage: driver.StageRun, Status: driver.StatusDone})
	if m.items[0].status != "done" || m.items[1].status != "error" {
		t.Errorf("items = %+v", m.items)
	}
	if p := m.percent(); p != 1.0 {
		t.Errorf("percent = %v", p)
	}
	view := plain(m.View())
	if !strings.Contains(view, "a.baml 1s") {
		t.Errorf("view:\n%s", view)
	}
}

func TestPlainProgress(t *testing.T) {
	events := make(chan driver.Event, 4)
	events <- driver.Event{File: "a.baml", Stage: driver.StageCompile, Status: driver.StatusWorking}
	events <- driver.Event{File: "a.baml", Stage: driver.StageRun, Status: driver.StatusDone, Elapsed: 2 * time.Millisecond}
	events <- driver.Event{File: "b.baml", Stage: driver.StageRun, Status: driver.StatusError, Elapsed: time.Millisecond}
	close(events)

	var buf bytes.Buffer
	PlainProgress(&buf, events)
	want := "ok    a.baml (2ms)\nFAIL  b.baml (1ms)\n"
	if buf.String() != want {
		t.Errorf("got %q", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("verylongname.baml", 10); got != "verylon..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("日本語ファイル.baml", 9); got != "日本語..." || runewidth.StringWidth(got) > 9 {
		t.Errorf("wide truncate = %q", got)
	}
	if got := truncate("abcdef", 3); got != "abc" {
		t.Errorf("narrow truncate = %q", got)
	}
}
