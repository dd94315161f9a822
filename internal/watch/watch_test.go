package watch_test

import (
	"testing"

	"baml/internal/bytecode"
	"baml/internal/watch"
)

func rootState() watch.RootState {
	return watch.RootState{Value: bytecode.Int(0), Channel: "test"}
}

func pool(n int) []bytecode.Object {
	out := make([]bytecode.Object, n)
	for i := range out {
		out[i] = &bytecode.String{}
	}
	return out
}

func expectRoots(t *testing.T, g *watch.Graph, node watch.NodeID, want int) {
	t.Helper()
	if got := len(g.RootsReaching(node)); got != want {
		t.Errorf("%s reached by %d roots, want %d", node, got, want)
	}
}

func TestRegisterRoot(t *testing.T) {
	g := watch.New()
	v := watch.Local(0)
	g.RegisterRoot(v, rootState())

	if _, ok := g.Root(v); !ok {
		t.Fatal("root not registered")
	}
	expectRoots(t, g, v, 1)
	if !g.IsWatched(v) {
		t.Error("root must watch itself")
	}
}

func TestLinkUnlink(t *testing.T) {
	g := watch.New()
	v := watch.Local(0)
	obj := watch.Object(0)

	g.RegisterRoot(v, rootState())
	g.LinkEdge(v, watch.Binding, obj, pool(1))
	expectRoots(t, g, v, 1)
	expectRoots(t, g, obj, 1)

	g.UnlinkEdge(v, watch.Binding, obj)
	expectRoots(t, g, v, 1)
	expectRoots(t, g, obj, 0)
	if g.IsWatched(obj) {
		t.Error("unlinked object still watched")
	}
}

func TestCycle(t *testing.T) {
	g := watch.New()
	a, b := watch.Object(0), watch.Object(1)
	root := watch.Local(0)

	g.LinkEdge(a, watch.Field(0), b, pool(2))
	g.LinkEdge(b, watch.Field(0), a, pool(2))
	g.RegisterRoot(root, rootState())
	g.LinkEdge(root, watch.Binding, a, pool(2))

	expectRoots(t, g, a, 1)
	expectRoots(t, g, b, 1)

	g.UnlinkEdge(root, watch.Binding, a)
	expectRoots(t, g, a, 0)
	expectRoots(t, g, b, 0)
}

func TestMultipleRoots(t *testing.T) {
	g := watch.New()
	v1, v2 := watch.Local(0), watch.Local(1)
	obj := watch.Object(0)

	g.RegisterRoot(v1, rootState())
	g.RegisterRoot(v2, rootState())
	g.LinkEdge(v1, watch.Binding, obj, pool(1))
	g.LinkEdge(v2, watch.Binding, obj, pool(1))
	expectRoots(t, g, obj, 2)

	g.UnlinkEdge(v1, watch.Binding, obj)
	expectRoots(t, g, obj, 1)

	g.UnregisterRoot(v2)
	expectRoots(t, g, obj, 0)
}

func TestDeepChain(t *testing.T) {
	g := watch.New()
	v := watch.Local(0)
	o1, o2, o3 := watch.Object(0), watch.Object(1), watch.Object(2)

	g.RegisterRoot(v, rootState())
	g.LinkEdge(v, watch.Binding, o1, pool(3))
	g.LinkEdge(o1, watch.Field(0), o2, pool(3))
	g.LinkEdge(o2, watch.Field(0), o3, pool(3))
	for _, n := range []watch.NodeID{o1, o2, o3} {
		expectRoots(t, g, n, 1)
	}

	g.UnlinkEdge(o1, watch.Field(0), o2)
	expectRoots(t, g, o1, 1)
	expectRoots(t, g, o2, 0)
	expectRoots(t, g, o3, 0)
}

func TestAlternativePathKeepsReachability(t *testing.T) {
	g := watch.New()
	root := watch.Local(0)
	p, c, z := watch.Object(0), watch.Object(1), watch.Object(2)
	objs := pool(3)

	g.RegisterRoot(root, rootState())
	g.LinkEdge(root, watch.Binding, p, objs)
	g.LinkEdge(p, watch.Field(0), c, objs)
	g.LinkEdge(p, watch.Field(1), z, objs)
	g.LinkEdge(z, watch.Field(0), c, objs)

	g.UnlinkEdge(p, watch.Field(0), c)
	expectRoots(t, g, c, 1)
}

func TestTrackDependencies(t *testing.T) {
	// 0: instance{1}, 1: array[2], 2: map{"k": 0}
	m := bytecode.NewMap(1)
	m.Set("k", bytecode.Obj(0))
	objs := []bytecode.Object{
		&bytecode.Instance{Fields: []bytecode.Value{bytecode.Obj(1), bytecode.Int(3)}},
		&bytecode.Array{Items: []bytecode.Value{bytecode.Obj(2)}},
		m,
	}

	g := watch.New()
	root := watch.Local(4)
	g.RegisterRoot(root, rootState())
	g.LinkEdge(root, watch.Binding, watch.Object(0), objs)

	for i := range objs {
		expectRoots(t, g, watch.Object(bytecode.ObjectIndex(i)), 1)
	}
}

func TestRootsReachingOrder(t *testing.T) {
	g := watch.New()
	obj := watch.Object(9)
	for _, i := range []int{5, 1, 3} {
		r := watch.Local(i)
		g.RegisterRoot(r, rootState())
		g.LinkEdge(r, watch.Binding, obj, pool(10))
	}
	got := g.RootsReaching(obj)
	want := []watch.NodeID{watch.Local(1), watch.Local(3), watch.Local(5)}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("order = %v, want %v", got, want)
			break
		}
	}
}
