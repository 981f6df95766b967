package bpmn

import (
	"sync"
	"time"

	"github.com/mohitkumar/orchy-console/model"
)

type RowEventKind string

const ROW_INSERTED RowEventKind = "inserted"
const ROW_REPLACED RowEventKind = "replaced"
const ROW_REMOVED RowEventKind = "removed"
const ROWS_CLEARED RowEventKind = "cleared"
const ROWS_RESET RowEventKind = "reset"

// Row is the rendered state of one running process instance.
type Row struct {
	Id                 string              `json:"id"`
	Type               string              `json:"type"`
	Status             model.ProcessStatus `json:"status"`
	AwaitingUserAction bool                `json:"awaitingUserAction"`
	Seq                uint64              `json:"seq"`
	UpdatedAt          time.Time           `json:"updatedAt"`
}

type RowEvent struct {
	Kind  RowEventKind `json:"kind"`
	Index int          `json:"index"`
	Row   Row          `json:"row"`
	Rows  []Row        `json:"rows,omitempty"`
}

// Rows is the running process table. Each process id owns one slot and updates
// replace the slot in place.
type Rows struct {
	mu      sync.RWMutex
	order   []string
	rows    map[string]Row
	subs    map[int]func(RowEvent)
	nextSub int
}

func NewRows() *Rows {
	return &Rows{
		rows: make(map[string]Row),
		subs: make(map[int]func(RowEvent)),
	}
}

func (r *Rows) indexOf(id string) int {
	for i, existing := range r.order {
		if existing == id {
			return i
		}
	}
	return -1
}

func (r *Rows) Prepend(row Row) {
	r.insert(row, true)
}

func (r *Rows) Append(row Row) {
	r.insert(row, false)
}

func (r *Rows) insert(row Row, front bool) {
	r.mu.Lock()
	if _, ok := r.rows[row.Id]; ok {
		r.mu.Unlock()
		r.Apply(row)
		return
	}
	r.rows[row.Id] = row
	index := len(r.order)
	if front {
		r.order = append([]string{row.Id}, r.order...)
		index = 0
	} else {
		r.order = append(r.order, row.Id)
	}
	subs := r.subscribers()
	r.mu.Unlock()
	notify(subs, RowEvent{Kind: ROW_INSERTED, Index: index, Row: row})
}

// Apply replaces the slot of row.Id. Rows without a slot are ignored, and so is
// a row whose sequence is older than the one already shown.
func (r *Rows) Apply(row Row) bool {
	r.mu.Lock()
	current, ok := r.rows[row.Id]
	if !ok || row.Seq < current.Seq {
		r.mu.Unlock()
		return false
	}
	r.rows[row.Id] = row
	index := r.indexOf(row.Id)
	subs := r.subscribers()
	r.mu.Unlock()
	notify(subs, RowEvent{Kind: ROW_REPLACED, Index: index, Row: row})
	return true
}

func (r *Rows) Remove(id string) {
	r.mu.Lock()
	row, ok := r.rows[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	index := r.indexOf(id)
	delete(r.rows, id)
	r.order = append(r.order[:index], r.order[index+1:]...)
	subs := r.subscribers()
	r.mu.Unlock()
	notify(subs, RowEvent{Kind: ROW_REMOVED, Index: index, Row: row})
}

func (r *Rows) Get(id string) (Row, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[id]
	return row, ok
}

func (r *Rows) List() []Row {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Row, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.rows[id])
	}
	return out
}

func (r *Rows) Clear() {
	r.mu.Lock()
	r.order = nil
	r.rows = make(map[string]Row)
	subs := r.subscribers()
	r.mu.Unlock()
	notify(subs, RowEvent{Kind: ROWS_CLEARED, Index: -1})
}

// Reset rebuilds the table from a listing, in listing order. A listed row does not
// replace a slot holding a newer sequence. Rows missing from the listing are dropped
// unless keep reports true for them; kept rows stay in front, in their current order.
func (r *Rows) Reset(listed []Row, keep func(id string) bool) []Row {
	r.mu.Lock()
	inListing := make(map[string]bool, len(listed))
	for _, row := range listed {
		inListing[row.Id] = true
	}
	order := make([]string, 0, len(listed))
	rows := make(map[string]Row, len(listed))
	for _, id := range r.order {
		if !inListing[id] && keep != nil && keep(id) {
			order = append(order, id)
			rows[id] = r.rows[id]
		}
	}
	for _, row := range listed {
		if _, dup := rows[row.Id]; dup {
			continue
		}
		if current, ok := r.rows[row.Id]; ok && current.Seq > row.Seq {
			row = current
		}
		order = append(order, row.Id)
		rows[row.Id] = row
	}
	r.order = order
	r.rows = rows
	out := make([]Row, 0, len(order))
	for _, id := range order {
		out = append(out, rows[id])
	}
	subs := r.subscribers()
	r.mu.Unlock()
	notify(subs, RowEvent{Kind: ROWS_RESET, Index: -1, Rows: out})
	return out
}

// Subscribe registers fn for every row change and returns a function that removes it.
func (r *Rows) Subscribe(fn func(RowEvent)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, id)
	}
}

func (r *Rows) subscribers() []func(RowEvent) {
	subs := make([]func(RowEvent), 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []func(RowEvent), ev RowEvent) {
	for _, fn := range subs {
		fn(ev)
	}
}
