// Package viz describes the control-flow structure of compiled functions and
// the enter/exit event stream the VM produces while running them.
//
// Every function owns a pre-order list of nodes (function root, headers,
// branch groups and arms, loops, other scopes). A node is identified across
// runs by its log filter key: the function name followed by the encoded path
// segments of its lexical ancestors, e.g. "main|root:0|hdr:setup:0|loop:while-a-b:0".
package viz

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// NodeType is the structural kind of a viz node.
type NodeType uint8

const (
	NodeFunctionRoot NodeType = iota
	NodeHeader
	NodeBranchGroup
	NodeBranchArm
	NodeLoop
	NodeOtherScope
)

var nodeTypeNames = [...]string{
	NodeFunctionRoot: "function_root",
	NodeHeader:       "header_context_enter",
	NodeBranchGroup:  "branch_group",
	NodeBranchArm:    "branch_arm",
	NodeLoop:         "loop",
	NodeOtherScope:   "other_scope",
}

func (t NodeType) String() string {
	if int(t) < len(nodeTypeNames) {
		return nodeTypeNames[t]
	}
	return "NodeType(" + strconv.Itoa(int(t)) + ")"
}

func (t NodeType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *NodeType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for i, name := range nodeTypeNames {
		if name == s {
			*t = NodeType(i)
			return nil
		}
	}
	return fmt.Errorf("viz: unknown node type %q", s)
}

// segment tags, indexed by NodeType.
var segmentTags = [...]string{
	NodeFunctionRoot: "root",
	NodeHeader:       "hdr",
	NodeBranchGroup:  "bg",
	NodeBranchArm:    "arm",
	NodeLoop:         "loop",
	NodeOtherScope:   "scope",
}

// PathSegment is one lexical step of a log filter key. Root segments carry no
// slug.
type PathSegment struct {
	Kind    NodeType `json:"kind"`
	Slug    string   `json:"slug,omitempty"`
	Ordinal uint16   `json:"ordinal"`
}

// Encode renders the segment as "root:N" or "<tag>:<slug>:N".
func (s PathSegment) Encode() string {
	tag := segmentTags[s.Kind]
	if s.Kind == NodeFunctionRoot {
		return tag + ":" + strconv.Itoa(int(s.Ordinal))
	}
	return tag + ":" + s.Slug + ":" + strconv.Itoa(int(s.Ordinal))
}

func (s PathSegment) String() string { return s.Encode() }

// ParseSegment is the inverse of Encode.
func ParseSegment(encoded string) (PathSegment, bool) {
	parts := strings.Split(encoded, ":")
	if len(parts) == 0 {
		return PathSegment{}, false
	}
	kind := -1
	for i, tag := range segmentTags {
		if tag == parts[0] {
			kind = i
			break
		}
	}
	if kind < 0 {
		return PathSegment{}, false
	}
	seg := PathSegment{Kind: NodeType(kind)}
	ordIdx := 2
	if seg.Kind == NodeFunctionRoot {
		ordIdx = 1
	} else {
		if len(parts) < 3 {
			return PathSegment{}, false
		}
		seg.Slug = parts[1]
	}
	if len(parts) <= ordIdx {
		return PathSegment{}, false
	}
	n, err := strconv.ParseUint(parts[ordIdx], 10, 16)
	if err != nil {
		return PathSegment{}, false
	}
	seg.Ordinal = uint16(n)
	return seg, true
}

// LastSegment parses the final segment of a log filter key.
func LastSegment(logFilterKey string) (PathSegment, bool) {
	last := logFilterKey
	if i := strings.LastIndexByte(logFilterKey, '|'); i >= 0 {
		last = logFilterKey[i+1:]
	}
	return ParseSegment(last)
}

// EncodeSegments joins a function name and its segments into a log filter key.
func EncodeSegments(function string, segments []PathSegment) string {
	var sb strings.Builder
	sb.WriteString(function)
	for _, s := range segments {
		sb.WriteByte('|')
		sb.WriteString(s.Encode())
	}
	return sb.String()
}

// Slugify lowercases ASCII alphanumerics and collapses every other run of
// characters into a single dash.
func Slugify(input string) string {
	var sb strings.Builder
	sb.Grow(len(input))
	lastDash := false
	for _, r := range input {
		switch {
		case r < 0x80 && (r >= 'a' && r <= 'z' || r >= '0' && r <= '9'):
			sb.WriteRune(r)
			lastDash = false
		case r >= 'A' && r <= 'Z':
			sb.WriteRune(r + ('a' - 'A'))
			lastDash = false
		default:
			if !lastDash {
				sb.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(sb.String(), "-")
}

// SlugOr returns Slugify(label), or fallback when that is empty.
func SlugOr(label, fallback string) string {
	if s := Slugify(label); s != "" {
		return s
	}
	return fallback
}

// NodeMeta is the static description of one node, stored on the compiled
// function. VizEnter/VizExit operands index into the function's node list.
type NodeMeta struct {
	NodeID             uint32   `json:"node_id" msgpack:"id"`
	LogFilterKey       string   `json:"log_filter_key" msgpack:"key"`
	ParentLogFilterKey string   `json:"parent_log_filter_key,omitempty" msgpack:"parent"`
	Type               NodeType `json:"node_type" msgpack:"type"`
	Label              string   `json:"label" msgpack:"label"`
	// HeaderLevel is zero for non-header nodes.
	HeaderLevel uint8 `json:"header_level,omitempty" msgpack:"level"`
}

// Delta says whether execution enters or leaves a node.
type Delta uint8

const (
	Enter Delta = iota
	Exit
)

func (d Delta) String() string {
	if d == Exit {
		return "exit"
	}
	return "enter"
}

func (d Delta) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Delta) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "enter":
		*d = Enter
	case "exit":
		*d = Exit
	default:
		return fmt.Errorf("viz: unknown delta %q", s)
	}
	return nil
}

// ExecEvent is emitted by the VM for every executed VizEnter/VizExit.
type ExecEvent struct {
	Event       Delta       `json:"event"`
	NodeID      uint32      `json:"node_id"`
	NodeType    NodeType    `json:"node_type"`
	Segment     PathSegment `json:"path_segment"`
	Label       string      `json:"label"`
	HeaderLevel uint8       `json:"header_level,omitempty"`
}

// EventFor builds the event for node in direction d. A key whose last segment
// does not parse falls back to the function root segment.
func EventFor(node NodeMeta, d Delta) ExecEvent {
	seg, ok := LastSegment(node.LogFilterKey)
	if !ok {
		seg = PathSegment{Kind: NodeFunctionRoot}
	}
	return ExecEvent{
		Event:       d,
		NodeID:      node.NodeID,
		NodeType:    node.Type,
		Segment:     seg,
		Label:       node.Label,
		HeaderLevel: node.HeaderLevel,
	}
}
