package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProject(t *testing.T) {
	e := Entity{"id": "1", "type": "Order", "name": "n", "info": map[string]any{"finished": true}, "tag": "x"}

	scenarios := map[string]struct {
		fields []string
		want   Entity
	}{
		"subset keeps id and type": {fields: []string{"name"}, want: Entity{"id": "1", "type": "Order", "name": "n"}},
		"missing field is skipped": {fields: []string{"color"}, want: Entity{"id": "1", "type": "Order"}},
		"empty copies everything":  {fields: nil, want: e},
	}
	for name, sc := range scenarios {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, sc.want, e.Project(sc.fields))
		})
	}
}

func TestIsRelationship(t *testing.T) {
	require.True(t, Entity{"relType": "KNOWS"}.IsRelationship())
	require.True(t, Entity{"sourceId": "a", "targetId": "b"}.IsRelationship())
	require.False(t, Entity{"sourceId": "a"}.IsRelationship())
	require.False(t, Entity{"id": "a", "type": "User"}.IsRelationship())
}

func TestParseFields(t *testing.T) {
	require.Equal(t, []string{"id", "type", "info"}, ParseFields(" id, type ,info,"))
	require.Nil(t, ParseFields(" "))
}

func TestStepFromEntity(t *testing.T) {
	s, err := StepFromEntity(Entity{
		"id":          "s2",
		"name":        "Review",
		"relatedFrom": []any{map[string]any{"sourceId": "s1"}},
		"schemaMethods": []any{
			map[string]any{"name": "action", "source": "a()"},
		},
	})
	require.NoError(t, err)
	parent, ok := s.ParentId()
	require.True(t, ok)
	require.Equal(t, "s1", parent)
	require.Equal(t, "Review", s.Label())
	require.Equal(t, "a()", s.Action())
	require.Equal(t, "", s.CanBeExecuted())
}

func TestAwaitingUserAction(t *testing.T) {
	step := "s1"
	require.True(t, ProcessStatus{CurrentStepId: &step, Suspended: true}.AwaitingUserAction())
	require.False(t, ProcessStatus{CurrentStepId: &step, Suspended: true, Finished: true}.AwaitingUserAction())
	require.False(t, ProcessStatus{Suspended: true}.AwaitingUserAction())
	require.False(t, ProcessStatus{CurrentStepId: &step}.AwaitingUserAction())
}
