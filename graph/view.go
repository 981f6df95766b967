package graph

import (
	"context"
	"fmt"
	"math/rand"
	"reflect"
	"sync"
	"time"

	"github.com/mohitkumar/orchy-console/command"
	"github.com/mohitkumar/orchy-console/logger"
	"github.com/mohitkumar/orchy-console/model"
	"github.com/mohitkumar/orchy-console/render"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const NODE_SIZE = 20
const REL_SIZE = 40
const PARALLEL_EDGE_OFFSET = 15
const DEFAULT_REL_COLOR = "#cccccc"
const DEFAULT_PAGE_SIZE = 100

var NODE_PROJECTION = []string{"id", "type", "name", "color", "tag"}
var DELETE_PROJECTION = []string{"id", "type", "name", "sourceId", "targetId"}

type EventKind string

const NODE_ADDED EventKind = "nodeAdded"
const NODE_UPDATED EventKind = "nodeUpdated"
const NODE_DROPPED EventKind = "nodeDropped"
const EDGE_ADDED EventKind = "edgeAdded"
const EDGE_UPDATED EventKind = "edgeUpdated"
const EDGE_DROPPED EventKind = "edgeDropped"
const GRAPH_CLEARED EventKind = "cleared"

type GraphEvent struct {
	Kind EventKind   `json:"kind"`
	Node *model.Node `json:"node,omitempty"`
	Edge *model.Edge `json:"edge,omitempty"`
}

type SavedQuery struct {
	Kind   string         `json:"kind"`
	Query  string         `json:"query"`
	Params map[string]any `json:"params,omitempty"`
}

type Snapshot struct {
	Nodes []model.Node `json:"nodes"`
	Edges []model.Edge `json:"edges"`
}

type Options struct {
	CameraRatio float64
	Seed        int64
}

// View is one graph exploration panel. Node and relationship ids pass through
// render sets so an entity is drawn at most once until it is dropped.
type View struct {
	svc  command.Service
	opts Options

	mu              sync.Mutex
	nodeIds         *render.Set
	relIds          *render.Set
	nodes           map[string]*model.Node
	edges           map[string]*model.Edge
	palette         []string
	colors          map[string]string
	filteredTypes   map[string]bool
	hiddenNodeTypes map[string]bool
	hiddenRelTypes  map[string]bool
	savedQueries    []SavedQuery
	rnd             *rand.Rand

	subMu   sync.RWMutex
	subs    map[int]func(GraphEvent)
	nextSub int
}

func NewView(svc command.Service, opts Options) *View {
	if opts.CameraRatio <= 0 {
		opts.CameraRatio = 1
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	v := &View{
		svc:     svc,
		opts:    opts,
		nodeIds: render.NewSet(),
		relIds:  render.NewSet(),
		rnd:     rand.New(rand.NewSource(opts.Seed)),
		subs:    make(map[int]func(GraphEvent)),
	}
	v.reset()
	return v
}

// Palette returns the type colors in assignment order.
func Palette() []string {
	steps := []int{21, 53, 31}
	colors := make([]string, 0, 949)
	for i := 50; i < 999; i++ {
		colors = append(colors, fmt.Sprintf("rgb(%d,%d,%d)",
			(steps[i%3]*i)%255, (steps[(i+1)%3]*i)%255, (steps[(i+2)%3]*i)%255))
	}
	return colors
}

func (v *View) reset() {
	v.nodeIds.Clear()
	v.relIds.Clear()
	v.nodes = make(map[string]*model.Node)
	v.edges = make(map[string]*model.Edge)
	v.palette = Palette()
	v.colors = make(map[string]string)
	v.filteredTypes = make(map[string]bool)
	v.hiddenNodeTypes = make(map[string]bool)
	v.hiddenRelTypes = make(map[string]bool)
}

func (v *View) SetCameraRatio(ratio float64) {
	if ratio <= 0 {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.opts.CameraRatio = ratio
}

func (v *View) colorFor(nodeType string) string {
	if c, ok := v.colors[nodeType]; ok {
		return c
	}
	c := v.palette[len(v.colors)%len(v.palette)]
	v.colors[nodeType] = c
	return c
}

func (v *View) randomPosition() model.Position {
	ratio := v.opts.CameraRatio
	scale := func(r float64) float64 {
		if ratio > 1 {
			return r / (2 * ratio)
		}
		return r * ratio
	}
	return model.Position{X: scale(v.rnd.Float64()), Y: scale(v.rnd.Float64())}
}

func nodeLabel(e model.Entity) string {
	if name := e.String("name"); name != "" {
		return name
	}
	if tag := e.String("tag"); tag != "" {
		return tag
	}
	id := []rune(e.ID())
	if len(id) > 5 {
		return string(id[:5]) + "…"
	}
	return string(id)
}

// DrawNode adds e to the graph. It returns false when the node is already drawn
// or its type is filtered. An explicit non-zero position wins over a random one.
func (v *View) DrawNode(e model.Entity, pos ...model.Position) bool {
	v.mu.Lock()
	node, ok := v.drawNode(e, pos...)
	v.mu.Unlock()
	if ok {
		v.publish(GraphEvent{Kind: NODE_ADDED, Node: node})
	}
	return ok
}

func (v *View) drawNode(e model.Entity, pos ...model.Position) (*model.Node, bool) {
	id := e.ID()
	if id == "" || v.filteredTypes[e.Type()] {
		return nil, false
	}
	if !v.nodeIds.TryAdd(id) {
		return nil, false
	}
	p := v.randomPosition()
	if len(pos) > 0 {
		if pos[0].X != 0 {
			p.X = pos[0].X
		}
		if pos[0].Y != 0 {
			p.Y = pos[0].Y
		}
	}
	node := &model.Node{
		Id:       id,
		Label:    nodeLabel(e),
		Position: p,
		Size:     NODE_SIZE,
		Color:    v.colorFor(e.Type()),
		NodeType: e.Type(),
		Name:     e.String("name"),
		Hidden:   v.hiddenNodeTypes[e.Type()],
	}
	v.nodes[id] = node
	copied := *node
	return &copied, true
}

// DrawRel adds a relationship between two drawn nodes. Parallel edges are
// offset by their count.
func (v *View) DrawRel(e model.Entity) bool {
	v.mu.Lock()
	edge, ok := v.drawRel(e)
	v.mu.Unlock()
	if ok {
		v.publish(GraphEvent{Kind: EDGE_ADDED, Edge: edge})
	}
	return ok
}

func (v *View) drawRel(e model.Entity) (*model.Edge, bool) {
	id := e.ID()
	source, target := e.String("sourceId"), e.String("targetId")
	if id == "" || !v.nodeIds.Contains(source) || !v.nodeIds.Contains(target) {
		return nil, false
	}
	if !v.relIds.TryAdd(id) {
		return nil, false
	}
	relName := e.String("relType")
	edge := &model.Edge{
		Id:      id,
		Label:   relName,
		Source:  source,
		Target:  target,
		Size:    REL_SIZE,
		Color:   DEFAULT_REL_COLOR,
		RelType: e.Type(),
		RelName: relName,
		Hidden:  v.hiddenRelTypes[relName],
		Count:   v.parallelEdges(source, target) * PARALLEL_EDGE_OFFSET,
	}
	v.edges[id] = edge
	copied := *edge
	return &copied, true
}

func (v *View) parallelEdges(source, target string) int {
	n := 0
	for _, edge := range v.edges {
		if (edge.Source == source && edge.Target == target) || (edge.Source == target && edge.Target == source) {
			n++
		}
	}
	return n
}

// ProcessQueryResults draws the nodes of a result first, then its relationships.
func (v *View) ProcessQueryResults(entities []model.Entity) int {
	var rels []model.Entity
	drawn := 0
	for _, e := range entities {
		if e.IsRelationship() {
			rels = append(rels, e)
			continue
		}
		if v.DrawNode(e) {
			drawn++
		}
	}
	for _, r := range rels {
		if v.DrawRel(r) {
			drawn++
		}
	}
	return drawn
}

func (v *View) LoadType(ctx context.Context, nodeType string, pageSize int) (int, error) {
	if pageSize <= 0 {
		pageSize = DEFAULT_PAGE_SIZE
	}
	result, err := v.svc.Query(ctx, command.Query{Type: nodeType, PageSize: pageSize, Page: 1, Exact: true})
	if err != nil {
		return 0, err
	}
	return v.ProcessQueryResults(result), nil
}

// Expand draws every neighbour of a node along with the connecting relationships.
func (v *View) Expand(ctx context.Context, nodeId string) (int, error) {
	var rels []model.Entity
	for _, key := range []string{"sourceId", "targetId"} {
		result, err := v.svc.Query(ctx, command.Query{Properties: map[string]any{key: nodeId}, Exact: true})
		if err != nil {
			return 0, err
		}
		for _, r := range result {
			if r.IsRelationship() {
				rels = append(rels, r)
			}
		}
	}
	drawn := 0
	for _, r := range rels {
		other := r.String("targetId")
		if other == nodeId {
			other = r.String("sourceId")
		}
		if v.nodeIds.Contains(other) {
			continue
		}
		n, err := v.svc.Get(ctx, other, NODE_PROJECTION...)
		if err != nil {
			logger.Warn("error loading neighbour", zap.String("id", other), zap.Error(err))
			continue
		}
		if v.DrawNode(n) {
			drawn++
		}
	}
	for _, r := range rels {
		if v.DrawRel(r) {
			drawn++
		}
	}
	return drawn, nil
}

func (v *View) CreateNode(ctx context.Context, nodeType string, pos ...model.Position) (model.Entity, error) {
	if nodeType == "" {
		return nil, command.ValidationError{Message: "type is required"}
	}
	created, err := v.svc.Create(ctx, map[string]any{model.TYPE_KEY: nodeType})
	if err != nil {
		return nil, err
	}
	e, err := v.svc.Get(ctx, created.ID(), NODE_PROJECTION...)
	if err != nil {
		return nil, err
	}
	v.DrawNode(e, pos...)
	return e, nil
}

// DeleteEntity deletes a node or relationship on the backend and drops it from the graph.
func (v *View) DeleteEntity(ctx context.Context, id string) error {
	e, err := v.svc.Get(ctx, id, DELETE_PROJECTION...)
	if err != nil {
		return err
	}
	if err := v.svc.DeleteNode(ctx, id); err != nil {
		return err
	}
	if e.IsRelationship() || v.relIds.Contains(id) {
		v.DropEdge(id)
		return nil
	}
	v.DropNode(id)
	return nil
}

func (v *View) HideNode(id string) bool {
	v.mu.Lock()
	node, ok := v.nodes[id]
	if ok {
		node.Hidden = true
	}
	var copied model.Node
	if ok {
		copied = *node
	}
	v.mu.Unlock()
	if ok {
		v.publish(GraphEvent{Kind: NODE_UPDATED, Node: &copied})
	}
	return ok
}

// DropNode removes a node and every edge attached to it.
func (v *View) DropNode(id string) bool {
	v.mu.Lock()
	node, ok := v.nodes[id]
	if !ok {
		v.mu.Unlock()
		return false
	}
	var events []GraphEvent
	for _, edgeId := range v.sortedEdgeIds() {
		edge := v.edges[edgeId]
		if edge.Source == id || edge.Target == id {
			events = append(events, GraphEvent{Kind: EDGE_DROPPED, Edge: v.dropEdge(edgeId)})
		}
	}
	delete(v.nodes, id)
	v.nodeIds.Remove(id)
	events = append(events, GraphEvent{Kind: NODE_DROPPED, Node: node})
	v.mu.Unlock()
	for _, ev := range events {
		v.publish(ev)
	}
	return true
}

func (v *View) DropEdge(id string) bool {
	v.mu.Lock()
	edge := v.dropEdge(id)
	v.mu.Unlock()
	if edge == nil {
		return false
	}
	v.publish(GraphEvent{Kind: EDGE_DROPPED, Edge: edge})
	return true
}

func (v *View) dropEdge(id string) *model.Edge {
	edge, ok := v.edges[id]
	if !ok {
		return nil
	}
	delete(v.edges, id)
	v.relIds.Remove(id)
	return edge
}

func (v *View) sortedEdgeIds() []string {
	ids := maps.Keys(v.edges)
	slices.Sort(ids)
	return ids
}

func (v *View) sortedNodeIds() []string {
	ids := maps.Keys(v.nodes)
	slices.Sort(ids)
	return ids
}

// SetNodeTypeHidden toggles visibility of every drawn node of the type and of nodes drawn later.
func (v *View) SetNodeTypeHidden(nodeType string, hidden bool) {
	v.mu.Lock()
	if hidden {
		v.hiddenNodeTypes[nodeType] = true
	} else {
		delete(v.hiddenNodeTypes, nodeType)
	}
	var events []GraphEvent
	for _, id := range v.sortedNodeIds() {
		node := v.nodes[id]
		if node.NodeType == nodeType && node.Hidden != hidden {
			node.Hidden = hidden
			copied := *node
			events = append(events, GraphEvent{Kind: NODE_UPDATED, Node: &copied})
		}
	}
	v.mu.Unlock()
	for _, ev := range events {
		v.publish(ev)
	}
}

func (v *View) SetRelTypeHidden(relType string, hidden bool) {
	v.mu.Lock()
	if hidden {
		v.hiddenRelTypes[relType] = true
	} else {
		delete(v.hiddenRelTypes, relType)
	}
	var events []GraphEvent
	for _, id := range v.sortedEdgeIds() {
		edge := v.edges[id]
		if edge.RelName == relType && edge.Hidden != hidden {
			edge.Hidden = hidden
			copied := *edge
			events = append(events, GraphEvent{Kind: EDGE_UPDATED, Edge: &copied})
		}
	}
	v.mu.Unlock()
	for _, ev := range events {
		v.publish(ev)
	}
}

// FilterNodeType stops a type from being drawn and drops the nodes of that type already drawn.
func (v *View) FilterNodeType(nodeType string, filtered bool) {
	v.mu.Lock()
	if !filtered {
		delete(v.filteredTypes, nodeType)
		v.mu.Unlock()
		return
	}
	v.filteredTypes[nodeType] = true
	var drop []string
	for _, id := range v.sortedNodeIds() {
		if v.nodes[id].NodeType == nodeType {
			drop = append(drop, id)
		}
	}
	v.mu.Unlock()
	for _, id := range drop {
		v.DropNode(id)
	}
}

// RelationshipTypes counts drawn edges per relationship name.
func (v *View) RelationshipTypes() map[string]int {
	v.mu.Lock()
	defer v.mu.Unlock()
	counts := make(map[string]int)
	for _, edge := range v.edges {
		counts[edge.RelName]++
	}
	return counts
}

// NodeTypes returns the color assigned to every node type seen so far.
func (v *View) NodeTypes() map[string]string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return maps.Clone(v.colors)
}

func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	snap := Snapshot{
		Nodes: make([]model.Node, 0, len(v.nodes)),
		Edges: make([]model.Edge, 0, len(v.edges)),
	}
	for _, id := range v.sortedNodeIds() {
		snap.Nodes = append(snap.Nodes, *v.nodes[id])
	}
	for _, id := range v.sortedEdgeIds() {
		snap.Edges = append(snap.Edges, *v.edges[id])
	}
	return snap
}

// SaveQuery keeps a query for replay, newest first. A query with the same text and
// params is stored once.
func (v *View) SaveQuery(query string, kind string, params map[string]any) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, q := range v.savedQueries {
		if q.Query == query && reflect.DeepEqual(q.Params, params) {
			return false
		}
	}
	v.savedQueries = slices.Insert(v.savedQueries, 0, SavedQuery{Kind: kind, Query: query, Params: params})
	return true
}

func (v *View) RemoveSavedQuery(index int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if index < 0 || index >= len(v.savedQueries) {
		return false
	}
	v.savedQueries = slices.Delete(v.savedQueries, index, index+1)
	return true
}

func (v *View) SavedQueries() []SavedQuery {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.savedQueries)
}

// Clear resets the drawn graph together with colors and hidden and filtered types.
func (v *View) Clear() {
	v.mu.Lock()
	v.reset()
	v.mu.Unlock()
	v.publish(GraphEvent{Kind: GRAPH_CLEARED})
}

// Dispose unloads the view and removes all subscribers.
func (v *View) Dispose() {
	v.Clear()
	v.subMu.Lock()
	v.subs = make(map[int]func(GraphEvent))
	v.subMu.Unlock()
}

func (v *View) Subscribe(fn func(GraphEvent)) func() {
	v.subMu.Lock()
	defer v.subMu.Unlock()
	id := v.nextSub
	v.nextSub++
	v.subs[id] = fn
	return func() {
		v.subMu.Lock()
		defer v.subMu.Unlock()
		delete(v.subs, id)
	}
}

func (v *View) publish(ev GraphEvent) {
	v.subMu.RLock()
	subs := maps.Values(v.subs)
	v.subMu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}
