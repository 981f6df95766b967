package bpmn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRowsReplaceInPlace(t *testing.T) {
	rows := NewRows()
	var events []RowEvent
	unsubscribe := rows.Subscribe(func(ev RowEvent) { events = append(events, ev) })

	rows.Append(Row{Id: "a", Seq: 1})
	rows.Append(Row{Id: "b", Seq: 1})
	rows.Prepend(Row{Id: "c", Seq: 1})
	require.True(t, rows.Apply(Row{Id: "a", Type: "T", Seq: 2}))

	list := rows.List()
	require.Len(t, list, 3)
	require.Equal(t, "c", list[0].Id)
	require.Equal(t, "a", list[1].Id)
	require.Equal(t, "T", list[1].Type)
	require.Equal(t, ROW_REPLACED, events[3].Kind)
	require.Equal(t, 1, events[3].Index)

	unsubscribe()
	rows.Remove("c")
	require.Len(t, events, 4)
}

func TestRowsIgnoreStaleAndUnknown(t *testing.T) {
	rows := NewRows()
	rows.Append(Row{Id: "a", Type: "new", Seq: 5})

	require.False(t, rows.Apply(Row{Id: "a", Type: "old", Seq: 4}))
	require.False(t, rows.Apply(Row{Id: "missing", Seq: 9}))
	r, ok := rows.Get("a")
	require.True(t, ok)
	require.Equal(t, "new", r.Type)
	_, ok = rows.Get("missing")
	require.False(t, ok)
}

func TestRowsDuplicateInsertReplaces(t *testing.T) {
	rows := NewRows()
	rows.Append(Row{Id: "a", Seq: 1})
	rows.Prepend(Row{Id: "a", Type: "T", Seq: 2})
	require.Len(t, rows.List(), 1)
	require.Equal(t, "T", rows.List()[0].Type)

	rows.Remove("a")
	rows.Remove("a")
	require.Empty(t, rows.List())

	rows.Append(Row{Id: "b"})
	rows.Clear()
	require.Empty(t, rows.List())
}

func TestRowsReset(t *testing.T) {
	rows := NewRows()
	rows.Append(Row{Id: "gone", Seq: 1})
	rows.Append(Row{Id: "watched", Seq: 1})
	rows.Append(Row{Id: "fresh", Type: "polled", Seq: 9})
	var events []RowEvent
	rows.Subscribe(func(ev RowEvent) { events = append(events, ev) })

	out := rows.Reset([]Row{
		{Id: "fresh", Type: "listed", Seq: 5},
		{Id: "added", Seq: 5},
	}, func(id string) bool { return id == "watched" })

	ids := []string{}
	for _, r := range out {
		ids = append(ids, r.Id)
	}
	require.Equal(t, []string{"watched", "fresh", "added"}, ids)
	require.Equal(t, out, rows.List())
	fresh, _ := rows.Get("fresh")
	require.Equal(t, "polled", fresh.Type)
	_, ok := rows.Get("gone")
	require.False(t, ok)
	require.Len(t, events, 1)
	require.Equal(t, ROWS_RESET, events[0].Kind)
	require.Len(t, events[0].Rows, 3)
}
