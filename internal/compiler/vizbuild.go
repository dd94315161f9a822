package compiler

import (
	"math"
	"strconv"

	"fortio.org/safecast"

	"baml/internal/viz"
)

type vizFrame struct {
	typ      viz.NodeType
	level    int
	segment  viz.PathSegment
	key      string
	node     int
	ordinals [6]uint16
}

// vizBuilder assigns node ids in pre-order while codegen walks the body.
// Frames mirror the lexical nesting of the nodes entered so far.
type vizBuilder struct {
	function string
	frames   []vizFrame
	nodes    []viz.NodeMeta
}

func newVizBuilder(function string) *vizBuilder {
	b := &vizBuilder{function: function}
	seg := viz.PathSegment{Kind: viz.NodeFunctionRoot}
	key := viz.EncodeSegments(function, []viz.PathSegment{seg})
	b.nodes = append(b.nodes, viz.NodeMeta{
		NodeID:       0,
		LogFilterKey: key,
		Type:         viz.NodeFunctionRoot,
		Label:        function,
	})
	b.frames = append(b.frames, vizFrame{typ: viz.NodeFunctionRoot, segment: seg, key: key})
	return b
}

var fallbackSlugs = [...]string{
	viz.NodeHeader:      "header-",
	viz.NodeBranchGroup: "if-",
	viz.NodeBranchArm:   "branch-arm-",
	viz.NodeLoop:        "loop-",
	viz.NodeOtherScope:  "other-scope-",
}

func (b *vizBuilder) depth() int { return len(b.frames) }

// push adds a child of the innermost frame and enters it.
func (b *vizBuilder) push(typ viz.NodeType, label string, level int) int {
	parent := &b.frames[len(b.frames)-1]
	ordinal := parent.ordinals[typ]
	parent.ordinals[typ]++

	seg := viz.PathSegment{
		Kind:    typ,
		Slug:    viz.SlugOr(label, fallbackSlugs[typ]+strconv.Itoa(int(ordinal))),
		Ordinal: ordinal,
	}
	segments := make([]viz.PathSegment, 0, len(b.frames)+1)
	for _, f := range b.frames {
		segments = append(segments, f.segment)
	}
	segments = append(segments, seg)
	key := viz.EncodeSegments(b.function, segments)

	id := len(b.nodes)
	meta := viz.NodeMeta{
		NodeID:             uint32(id),
		LogFilterKey:       key,
		ParentLogFilterKey: parent.key,
		Type:               typ,
		Label:              label,
	}
	if typ == viz.NodeHeader {
		lvl, err := safecast.Conv[uint8](level)
		if err != nil {
			lvl = math.MaxUint8
		}
		meta.HeaderLevel = lvl
	}
	b.nodes = append(b.nodes, meta)
	b.frames = append(b.frames, vizFrame{typ: typ, level: level, segment: seg, key: key, node: id})
	return id
}

// popTo drops frames above depth and returns their nodes, innermost first.
func (b *vizBuilder) popTo(depth int) []int {
	var out []int
	for len(b.frames) > depth {
		out = append(out, b.frames[len(b.frames)-1].node)
		b.frames = b.frames[:len(b.frames)-1]
	}
	return out
}

// openAbove lists the nodes of the frames above depth, innermost first,
// and leaves the frames in place.
func (b *vizBuilder) openAbove(depth int) []int {
	var out []int
	for i := len(b.frames) - 1; i >= max(depth, 0); i-- {
		out = append(out, b.frames[i].node)
	}
	return out
}

// popHeaders closes the header frames nested deeper than level.
func (b *vizBuilder) popHeaders(level int) []int {
	var out []int
	for len(b.frames) > 1 {
		top := b.frames[len(b.frames)-1]
		if top.typ != viz.NodeHeader || top.level <= level {
			break
		}
		out = append(out, top.node)
		b.frames = b.frames[:len(b.frames)-1]
	}
	return out
}
