// Package watch maintains the reachability graph behind `watch let`.
//
// Nodes are local variable slots and heap objects; edges are bindings,
// instance fields, array elements and map entries. Every watched root keeps
// the set of nodes it reaches, with an inverse index so that the question
// asked on every store ("does this node matter to anyone, and to whom?") is a
// map lookup.
//
// Linking an edge only has to propagate forward from the new child: whatever
// a root reached before is still reachable. Unlinking is different, the child
// may still be reachable through another path, so every root that reached it
// is traversed again from scratch.
package watch

import (
	"fmt"
	"slices"

	"baml/internal/bytecode"
)

// NodeKind distinguishes stack slots from heap objects.
type NodeKind uint8

const (
	NodeLocal NodeKind = iota
	NodeObject
)

// NodeID identifies a node of the graph. Index is an absolute stack index
// for locals and an object index for heap objects.
type NodeID struct {
	Kind  NodeKind
	Index int
}

func Local(stackIndex int) NodeID { return NodeID{Kind: NodeLocal, Index: stackIndex} }

func Object(idx bytecode.ObjectIndex) NodeID { return NodeID{Kind: NodeObject, Index: int(idx)} }

func (n NodeID) String() string {
	if n.Kind == NodeLocal {
		return fmt.Sprintf("local(%d)", n.Index)
	}
	return fmt.Sprintf("object(%d)", n.Index)
}

// less orders locals before objects, each by index.
func (n NodeID) less(o NodeID) bool {
	if n.Kind != o.Kind {
		return n.Kind < o.Kind
	}
	return n.Index < o.Index
}

// PathKind labels an edge.
type PathKind uint8

const (
	PathBinding PathKind = iota
	PathField
	PathIndex
	PathKey
)

// Path is the label of a parent to child edge.
type Path struct {
	Kind  PathKind
	Index int
	Key   string
}

var Binding = Path{Kind: PathBinding}

func Field(i int) Path { return Path{Kind: PathField, Index: i} }

func Index(i int) Path { return Path{Kind: PathIndex, Index: i} }

func Key(k string) Path { return Path{Kind: PathKey, Key: k} }

// FilterKind selects when a root emits.
type FilterKind uint8

const (
	// FilterDefault emits when the value differs from the last assigned one.
	FilterDefault FilterKind = iota
	// FilterManual only emits through $watch.notify().
	FilterManual
	// FilterPaused never emits.
	FilterPaused
	// FilterFunction asks a user predicate.
	FilterFunction
)

type Filter struct {
	Kind     FilterKind
	Function bytecode.ObjectIndex
}

// RootState is what the VM keeps for each watched variable.
type RootState struct {
	Value        bytecode.Value
	LastAssigned *bytecode.Value
	LastNotified *bytecode.Value
	Channel      string
	Filter       Filter
}

type edge struct {
	path Path
	node NodeID
}

type nodeSet map[NodeID]struct{}

// Graph is the watch dependency graph. The zero value is not usable, call
// New.
type Graph struct {
	children map[NodeID]map[edge]struct{}
	parents  map[NodeID]map[edge]struct{}

	reachableFromRoot map[NodeID]nodeSet
	rootsReaching     map[NodeID]nodeSet

	roots map[NodeID]*RootState
}

func New() *Graph {
	return &Graph{
		children:          make(map[NodeID]map[edge]struct{}),
		parents:           make(map[NodeID]map[edge]struct{}),
		reachableFromRoot: make(map[NodeID]nodeSet),
		rootsReaching:     make(map[NodeID]nodeSet),
		roots:             make(map[NodeID]*RootState),
	}
}

// addEdge only records the edge; LinkEdge propagates reachability.
func (g *Graph) addEdge(parent NodeID, path Path, child NodeID) {
	out := g.children[parent]
	if out == nil {
		out = make(map[edge]struct{})
		g.children[parent] = out
	}
	out[edge{path, child}] = struct{}{}

	in := g.parents[child]
	if in == nil {
		in = make(map[edge]struct{})
		g.parents[child] = in
	}
	in[edge{path, parent}] = struct{}{}
}

func (g *Graph) bfs(start NodeID) nodeSet {
	visited := nodeSet{start: {}}
	queue := []NodeID{start}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for e := range g.children[node] {
			if _, seen := visited[e.node]; !seen {
				visited[e.node] = struct{}{}
				queue = append(queue, e.node)
			}
		}
	}
	return visited
}

func (g *Graph) markReaching(node, root NodeID) {
	set := g.rootsReaching[node]
	if set == nil {
		set = make(nodeSet)
		g.rootsReaching[node] = set
	}
	set[root] = struct{}{}
}

func (g *Graph) unmarkReaching(node, root NodeID) {
	set, ok := g.rootsReaching[node]
	if !ok {
		return
	}
	delete(set, root)
	if len(set) == 0 {
		delete(g.rootsReaching, node)
	}
}

// RegisterRoot makes root a watched node and computes what it reaches.
func (g *Graph) RegisterRoot(root NodeID, state RootState) {
	st := state
	g.roots[root] = &st
	reachable := g.bfs(root)
	for node := range reachable {
		g.markReaching(node, root)
	}
	g.reachableFromRoot[root] = reachable
}

// UnregisterRoot drops a root, typically when its variable leaves scope.
func (g *Graph) UnregisterRoot(root NodeID) {
	delete(g.roots, root)
	reachable, ok := g.reachableFromRoot[root]
	if !ok {
		return
	}
	delete(g.reachableFromRoot, root)
	for node := range reachable {
		g.unmarkReaching(node, root)
	}
}

// LinkEdge adds parent.path -> child. When child is a heap object its own
// object graph is tracked first, then every root reaching parent extends its
// reachable set through child.
func (g *Graph) LinkEdge(parent NodeID, path Path, child NodeID, objects []bytecode.Object) {
	if child.Kind == NodeObject {
		g.TrackDependencies(bytecode.Obj(bytecode.ObjectIndex(child.Index)), objects)
	}
	g.addEdge(parent, path, child)

	for _, root := range g.RootsReaching(parent) {
		reachable := g.reachableFromRoot[root]
		if reachable == nil {
			reachable = make(nodeSet)
			g.reachableFromRoot[root] = reachable
		}
		queue := []NodeID{child}
		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			if _, seen := reachable[node]; seen {
				continue
			}
			reachable[node] = struct{}{}
			g.markReaching(node, root)
			for e := range g.children[node] {
				queue = append(queue, e.node)
			}
		}
	}
}

// UnlinkEdge removes parent.path -> child and recomputes reachability of
// every root that reached child.
func (g *Graph) UnlinkEdge(parent NodeID, path Path, child NodeID) {
	if out, ok := g.children[parent]; ok {
		delete(out, edge{path, child})
		if len(out) == 0 {
			delete(g.children, parent)
		}
	}
	if in, ok := g.parents[child]; ok {
		delete(in, edge{path, parent})
		if len(in) == 0 {
			delete(g.parents, child)
		}
	}

	for _, root := range g.RootsReaching(child) {
		still := g.bfs(root)
		for node := range g.reachableFromRoot[root] {
			if _, ok := still[node]; !ok {
				g.unmarkReaching(node, root)
			}
		}
		g.reachableFromRoot[root] = still
	}
}

// Root returns the state of a watched root.
func (g *Graph) Root(node NodeID) (*RootState, bool) {
	st, ok := g.roots[node]
	return st, ok
}

// IsWatched reports whether any root reaches node.
func (g *Graph) IsWatched(node NodeID) bool {
	_, ok := g.rootsReaching[node]
	return ok
}

// RootsReaching returns the roots that reach node, locals first, each kind
// in index order.
func (g *Graph) RootsReaching(node NodeID) []NodeID {
	set := g.rootsReaching[node]
	if len(set) == 0 {
		return nil
	}
	out := make([]NodeID, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b NodeID) int {
		switch {
		case a.less(b):
			return -1
		case b.less(a):
			return 1
		}
		return 0
	})
	return out
}

// TrackDependencies walks the object graph under v and records an edge for
// every object reference found in instances, arrays and maps. It declares no
// root.
func (g *Graph) TrackDependencies(v bytecode.Value, objects []bytecode.Object) {
	stack := []bytecode.Value{v}
	visited := make(map[bytecode.ObjectIndex]struct{})

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		idx, ok := cur.AsObject()
		if !ok || int(idx) < 0 || int(idx) >= len(objects) {
			continue
		}
		if _, seen := visited[idx]; seen {
			continue
		}
		visited[idx] = struct{}{}
		node := Object(idx)

		link := func(path Path, child bytecode.Value) {
			if c, ok := child.AsObject(); ok {
				g.addEdge(node, path, Object(c))
				stack = append(stack, child)
			}
		}

		switch obj := objects[idx].(type) {
		case *bytecode.Instance:
			for i, f := range obj.Fields {
				link(Field(i), f)
			}
		case *bytecode.Array:
			for i, el := range obj.Items {
				link(Index(i), el)
			}
		case *bytecode.Map:
			obj.Each(func(k string, val bytecode.Value) bool {
				link(Key(k), val)
				return true
			})
		}
	}
}
