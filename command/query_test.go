package command

import (
	"testing"

	"github.com/mohitkumar/orchy-console/model"
	"github.com/stretchr/testify/require"
)

func entities() []model.Entity {
	return []model.Entity{
		{"id": "1", "type": "SchemaNode", "name": "Order", "category": "orders", "implementsInterfaces": ""},
		{"id": "2", "type": "SchemaNode", "name": "Invoice", "category": "billing", "implementsInterfaces": "Inactive"},
		{"id": "3", "type": "SchemaNode", "name": "approve order", "category": "orders"},
		{"id": "4", "type": "Process", "name": "p", "createdDate": 30.0},
		{"id": "5", "type": "Process", "name": "q", "createdDate": 10.0},
		{"id": "6", "type": "Process", "name": "r"},
	}
}

func ids(list []model.Entity) []string {
	out := make([]string, 0, len(list))
	for _, e := range list {
		out = append(out, e.ID())
	}
	return out
}

func TestApply(t *testing.T) {
	for scenario, tc := range map[string]struct {
		query Query
		want  []string
	}{
		"type filter": {
			query: Query{Type: "Process"},
			want:  []string{"4", "5", "6"},
		},
		"empty type matches all": {
			query: Query{},
			want:  []string{"1", "2", "3", "4", "5", "6"},
		},
		"exact property": {
			query: Query{Type: "SchemaNode", Properties: map[string]any{"category": "orders"}, Exact: true, Sort: "name", Order: ORDER_ASC},
			want:  []string{"1", "3"},
		},
		"inexact is case insensitive substring": {
			query: Query{Type: "SchemaNode", Properties: map[string]any{"name": "ORDER"}},
			want:  []string{"1", "3"},
		},
		"empty value matches missing or empty": {
			query: Query{Type: "SchemaNode", Properties: map[string]any{"implementsInterfaces": ""}, Exact: true},
			want:  []string{"1", "3"},
		},
		"numeric sort descending puts missing last": {
			query: Query{Type: "Process", Sort: "createdDate", Order: ORDER_DESC},
			want:  []string{"4", "5", "6"},
		},
		"numeric sort ascending": {
			query: Query{Type: "Process", Sort: "createdDate", Order: ORDER_ASC},
			want:  []string{"5", "4", "6"},
		},
		"paging": {
			query: Query{PageSize: 2, Page: 2},
			want:  []string{"3", "4"},
		},
		"page past the end": {
			query: Query{PageSize: 4, Page: 3},
			want:  []string{},
		},
	} {
		t.Run(scenario, func(t *testing.T) {
			require.Equal(t, tc.want, ids(Apply(entities(), tc.query)))
		})
	}
}
