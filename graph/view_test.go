package graph

import (
	"context"
	"testing"

	"github.com/mohitkumar/orchy-console/command"
	"github.com/mohitkumar/orchy-console/model"
	"github.com/mohitkumar/orchy-console/persistence/memory"
	"github.com/stretchr/testify/require"
)

func node(id, typ string) model.Entity {
	return model.Entity{"id": id, "type": typ, "name": "n-" + id}
}

func rel(id, source, target, relType string) model.Entity {
	return model.Entity{"id": id, "type": "Rel", "sourceId": source, "targetId": target, "relType": relType}
}

func TestDrawNodeIsIdempotent(t *testing.T) {
	v := NewView(memory.NewStore(), Options{Seed: 1})
	var added int
	v.Subscribe(func(ev GraphEvent) {
		if ev.Kind == NODE_ADDED {
			added++
		}
	})

	require.True(t, v.DrawNode(node("a", "User")))
	require.False(t, v.DrawNode(node("a", "User")))
	require.Len(t, v.Snapshot().Nodes, 1)
	require.Equal(t, 1, added)

	require.True(t, v.DropNode("a"))
	require.True(t, v.DrawNode(node("a", "User")))
	require.Equal(t, 2, added)
}

func TestNodeColorsAndPosition(t *testing.T) {
	v := NewView(memory.NewStore(), Options{Seed: 1, CameraRatio: 4})
	palette := Palette()
	require.Len(t, palette, 949)
	require.Equal(t, "rgb(20,30,100)", palette[0])

	v.DrawNode(node("a", "User"))
	v.DrawNode(node("b", "Group"))
	v.DrawNode(node("c", "User"), model.Position{X: 3, Y: 7})
	v.DrawNode(model.Entity{"id": "0123456789", "type": "Group"})

	snap := v.Snapshot()
	require.Equal(t, palette[0], snap.Nodes[1].Color)
	require.Equal(t, palette[1], snap.Nodes[2].Color)
	require.Equal(t, palette[0], snap.Nodes[3].Color)
	require.Equal(t, model.Position{X: 3, Y: 7}, snap.Nodes[3].Position)
	require.Equal(t, "01234…", snap.Nodes[0].Label)
	require.Equal(t, NODE_SIZE, snap.Nodes[1].Size)
	require.Less(t, snap.Nodes[1].Position.X, 1.0/8)
}

func TestNodeLabel(t *testing.T) {
	scenarios := map[string]struct {
		entity model.Entity
		want   string
	}{
		"name wins":            {entity: model.Entity{"id": "0123456789", "name": "alice", "tag": "t"}, want: "alice"},
		"tag without name":     {entity: model.Entity{"id": "0123456789", "tag": "t"}, want: "t"},
		"short id":             {entity: model.Entity{"id": "abc"}, want: "abc"},
		"multi byte id":        {entity: model.Entity{"id": "äöüßéèê"}, want: "äöüßé…"},
		"five runes untouched": {entity: model.Entity{"id": "äöüßé"}, want: "äöüßé"},
	}
	for name, sc := range scenarios {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, sc.want, nodeLabel(sc.entity))
		})
	}
}

func TestDrawRelNeedsEndpoints(t *testing.T) {
	v := NewView(memory.NewStore(), Options{Seed: 1})
	require.False(t, v.DrawRel(rel("r1", "a", "b", "KNOWS")))

	v.DrawNode(node("a", "User"))
	v.DrawNode(node("b", "User"))
	require.True(t, v.DrawRel(rel("r1", "a", "b", "KNOWS")))
	require.False(t, v.DrawRel(rel("r1", "a", "b", "KNOWS")))
	require.True(t, v.DrawRel(rel("r2", "b", "a", "LIKES")))

	snap := v.Snapshot()
	require.Len(t, snap.Edges, 2)
	require.Equal(t, 0, snap.Edges[0].Count)
	require.Equal(t, PARALLEL_EDGE_OFFSET, snap.Edges[1].Count)
	require.Equal(t, DEFAULT_REL_COLOR, snap.Edges[0].Color)
	require.Equal(t, "KNOWS", snap.Edges[0].Label)
	require.Equal(t, map[string]int{"KNOWS": 1, "LIKES": 1}, v.RelationshipTypes())
}

func TestProcessQueryResultsDrawsNodesFirst(t *testing.T) {
	v := NewView(memory.NewStore(), Options{Seed: 1})
	drawn := v.ProcessQueryResults([]model.Entity{
		rel("r1", "a", "b", "KNOWS"),
		node("a", "User"),
		node("b", "User"),
		node("a", "User"),
	})
	require.Equal(t, 3, drawn)
	snap := v.Snapshot()
	require.Len(t, snap.Nodes, 2)
	require.Len(t, snap.Edges, 1)
}

func TestHiddenAndFilteredTypes(t *testing.T) {
	v := NewView(memory.NewStore(), Options{Seed: 1})
	v.DrawNode(node("a", "User"))
	v.DrawNode(node("b", "Group"))
	v.DrawRel(rel("r1", "a", "b", "MEMBER"))

	v.SetNodeTypeHidden("User", true)
	v.DrawNode(node("c", "User"))
	v.SetRelTypeHidden("MEMBER", true)
	snap := v.Snapshot()
	require.True(t, snap.Nodes[0].Hidden)
	require.False(t, snap.Nodes[1].Hidden)
	require.True(t, snap.Nodes[2].Hidden)
	require.True(t, snap.Edges[0].Hidden)

	v.FilterNodeType("Group", true)
	require.False(t, v.DrawNode(node("d", "Group")))
	snap = v.Snapshot()
	require.Len(t, snap.Nodes, 2)
	require.Empty(t, snap.Edges)

	v.FilterNodeType("Group", false)
	require.True(t, v.DrawNode(node("d", "Group")))

	require.True(t, v.HideNode("d"))
	require.False(t, v.HideNode("missing"))
}

func TestLoadTypeAndExpand(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	for _, e := range []model.Entity{
		node("a", "User"), node("b", "User"), node("g", "Group"),
		rel("r1", "a", "g", "MEMBER"), rel("r2", "g", "b", "OWNS"),
	} {
		_, err := store.Create(ctx, e)
		require.NoError(t, err)
	}
	v := NewView(store, Options{Seed: 1})

	n, err := v.LoadType(ctx, "Group", 10)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	n, err = v.Expand(ctx, "g")
	require.NoError(t, err)
	require.Equal(t, 4, n)
	snap := v.Snapshot()
	require.Len(t, snap.Nodes, 3)
	require.Len(t, snap.Edges, 2)

	n, err = v.Expand(ctx, "g")
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestCreateAndDeleteEntity(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	v := NewView(store, Options{Seed: 1})

	_, err := v.CreateNode(ctx, "")
	require.ErrorAs(t, err, &command.ValidationError{})

	a, err := v.CreateNode(ctx, "User")
	require.NoError(t, err)
	b, err := v.CreateNode(ctx, "User", model.Position{X: 1, Y: 1})
	require.NoError(t, err)
	r, err := store.Create(ctx, rel("r1", a.ID(), b.ID(), "KNOWS"))
	require.NoError(t, err)
	require.True(t, v.DrawRel(r))

	scenarios := map[string]struct {
		id        string
		wantNodes int
		wantEdges int
	}{
		"relationship": {id: "r1", wantNodes: 2, wantEdges: 0},
		"node":         {id: a.ID(), wantNodes: 1, wantEdges: 0},
	}
	for _, name := range []string{"relationship", "node"} {
		sc := scenarios[name]
		t.Run(name, func(t *testing.T) {
			require.NoError(t, v.DeleteEntity(ctx, sc.id))
			snap := v.Snapshot()
			require.Len(t, snap.Nodes, sc.wantNodes)
			require.Len(t, snap.Edges, sc.wantEdges)
			_, err := store.Get(ctx, sc.id)
			require.ErrorAs(t, err, &command.NotFoundError{})
		})
	}
}

func TestDropNodeDropsEdges(t *testing.T) {
	v := NewView(memory.NewStore(), Options{Seed: 1})
	var dropped []EventKind
	v.Subscribe(func(ev GraphEvent) {
		if ev.Kind == EDGE_DROPPED || ev.Kind == NODE_DROPPED {
			dropped = append(dropped, ev.Kind)
		}
	})
	v.DrawNode(node("a", "User"))
	v.DrawNode(node("b", "User"))
	v.DrawRel(rel("r1", "a", "b", "KNOWS"))

	require.True(t, v.DropNode("a"))
	require.False(t, v.DropNode("a"))
	require.Equal(t, []EventKind{EDGE_DROPPED, NODE_DROPPED}, dropped)
}

func TestSavedQueries(t *testing.T) {
	v := NewView(memory.NewStore(), Options{})
	require.True(t, v.SaveQuery("MATCH (n) RETURN n", "cypher", nil))
	require.True(t, v.SaveQuery("/User", "rest", nil))
	require.False(t, v.SaveQuery("MATCH (n) RETURN n", "cypher", nil))
	require.True(t, v.SaveQuery("MATCH (n) RETURN n", "cypher", map[string]any{"x": 1}))

	saved := v.SavedQueries()
	require.Len(t, saved, 3)
	require.Equal(t, "MATCH (n) RETURN n", saved[0].Query)
	require.Equal(t, "/User", saved[1].Query)

	require.True(t, v.RemoveSavedQuery(1))
	require.False(t, v.RemoveSavedQuery(5))
	require.Len(t, v.SavedQueries(), 2)
}

func TestClearResetsState(t *testing.T) {
	v := NewView(memory.NewStore(), Options{Seed: 1})
	var cleared bool
	v.Subscribe(func(ev GraphEvent) { cleared = cleared || ev.Kind == GRAPH_CLEARED })
	v.DrawNode(node("a", "User"))
	v.SetNodeTypeHidden("User", true)
	v.FilterNodeType("Group", true)

	v.Clear()
	require.True(t, cleared)
	require.Empty(t, v.Snapshot().Nodes)
	require.Empty(t, v.NodeTypes())
	require.True(t, v.DrawNode(node("a", "User")))
	require.True(t, v.DrawNode(node("g", "Group")))
	require.False(t, v.Snapshot().Nodes[0].Hidden)
}
