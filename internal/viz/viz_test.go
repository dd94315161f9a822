package viz

import (
	"slices"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestSegments(t *testing.T) {
	tests := []struct {
		seg  PathSegment
		want string
	}{
		{PathSegment{Kind: NodeFunctionRoot}, "root:0"},
		{PathSegment{Kind: NodeHeader, Slug: "setup", Ordinal: 2}, "hdr:setup:2"},
		{PathSegment{Kind: NodeLoop, Slug: "while-a-b"}, "loop:while-a-b:0"},
		{PathSegment{Kind: NodeBranchArm, Slug: "else", Ordinal: 1}, "arm:else:1"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.seg.Encode(); got != tt.want {
				t.Fatalf("Encode = %q", got)
			}
			back, ok := ParseSegment(tt.want)
			if !ok || back != tt.seg {
				t.Errorf("ParseSegment = %+v, %v", back, ok)
			}
		})
	}

	for _, bad := range []string{"", "nope:1", "hdr:x", "loop:a:x", "root"} {
		if seg, ok := ParseSegment(bad); ok {
			t.Errorf("ParseSegment(%q) = %+v", bad, seg)
		}
	}
}

func TestEncodeSegments(t *testing.T) {
	key := EncodeSegments("main", []PathSegment{
		{Kind: NodeFunctionRoot},
		{Kind: NodeHeader, Slug: "setup"},
	})
	if key != "main|root:0|hdr:setup:0" {
		t.Fatalf("key = %q", key)
	}
	last, ok := LastSegment(key)
	if !ok || last.Kind != NodeHeader || last.Slug != "setup" {
		t.Errorf("LastSegment = %+v, %v", last, ok)
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Load the Data!": "load-the-data",
		"  x  ":          "x",
		"héllo":          "h-llo",
		"a--b__c":        "a-b-c",
		"!!":             "",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
	if got := SlugOr("!!", "scope"); got != "scope" {
		t.Errorf("SlugOr = %q", got)
	}
}

func TestEventJSON(t *testing.T) {
	ev := EventFor(NodeMeta{NodeID: 3, LogFilterKey: "f|root:0|loop:for-x:1", Type: NodeLoop, Label: "for x"}, Exit)
	if ev.Segment != (PathSegment{Kind: NodeLoop, Slug: "for-x", Ordinal: 1}) {
		t.Fatalf("segment = %+v", ev.Segment)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"event":"exit"`, `"node_type":"loop"`, `"slug":"for-x"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("%s missing %s", data, want)
		}
	}

	var back ExecEvent
	if err := json.Unmarshal([]byte(`{"event":"sideways"}`), &back); err == nil {
		t.Error("unknown delta accepted")
	}

	broken := EventFor(NodeMeta{LogFilterKey: "f|???"}, Enter)
	if broken.Segment.Kind != NodeFunctionRoot {
		t.Errorf("fallback segment = %+v", broken.Segment)
	}
}

func enterEv(id uint32, typ NodeType, slug string, level uint8) ExecEvent {
	return ExecEvent{Event: Enter, NodeID: id, NodeType: typ, Segment: PathSegment{Kind: typ, Slug: slug}, HeaderLevel: level}
}

func exitEv(ev ExecEvent) ExecEvent {
	ev.Event = Exit
	return ev
}

func TestReducer(t *testing.T) {
	var r Reducer
	root := enterEv(0, NodeFunctionRoot, "", 0)
	a := enterEv(1, NodeHeader, "a", 1)
	sub := enterEv(2, NodeHeader, "sub", 2)
	b := enterEv(3, NodeHeader, "b", 1)

	r.Apply("main", root)
	r.Apply("main", a)
	if ups := r.Apply("main", sub); len(ups) != 1 || ups[0].LogFilterKey != "main|root:0|hdr:a:0|hdr:sub:0" {
		t.Fatalf("nested header = %+v", ups)
	}

	// a sibling header closes both open headers first
	ups := r.Apply("main", b)
	want := []Update{
		{NodeID: 2, LogFilterKey: "main|root:0|hdr:a:0|hdr:sub:0", State: Completed},
		{NodeID: 1, LogFilterKey: "main|root:0|hdr:a:0", State: Completed},
		{NodeID: 3, LogFilterKey: "main|root:0|hdr:b:0", State: Running},
	}
	if !slices.Equal(ups, want) {
		t.Fatalf("updates = %+v", ups)
	}

	ups = r.Apply("helper", root)
	if len(ups) != 1 || ups[0].LogFilterKey != "helper|root:0" {
		t.Fatalf("call = %+v", ups)
	}
	if keys := r.Keys(); !slices.Equal(keys, []string{"main|root:0", "main|root:0|hdr:b:0", "helper|root:0"}) {
		t.Fatalf("keys = %v", keys)
	}
	if ups := r.Apply("helper", exitEv(root)); len(ups) != 1 || ups[0].LogFilterKey != "helper|root:0" {
		t.Fatalf("return = %+v", ups)
	}

	if ups := r.Apply("main", exitEv(enterEv(9, NodeLoop, "nope", 0))); ups != nil {
		t.Errorf("unmatched exit = %+v", ups)
	}

	ups = r.Apply("main", exitEv(root))
	if len(ups) != 2 || ups[0].NodeID != 3 || ups[1].NodeID != 0 || ups[1].State != Completed {
		t.Errorf("unwind = %+v", ups)
	}
	if len(r.Stack()) != 0 {
		t.Errorf("stack = %+v", r.Stack())
	}
}
