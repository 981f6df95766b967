package redis

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/mohitkumar/orchy-console/command"
	"github.com/mohitkumar/orchy-console/util"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *redisEntityStore {
	conf := Config{
		Addrs:          []string{"localhost:6379"},
		Namespace:      "test-" + util.NewId(),
		PartitionCount: 4,
	}
	store, err := NewRedisEntityStore(context.Background(), conf)
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		keys, _ := store.redisClient.Keys(ctx, conf.Namespace+":*").Result()
		if len(keys) > 0 {
			store.redisClient.Del(ctx, keys...)
		}
		store.Close()
	})
	return store
}

func TestRedisEntityStore(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T, store *redisEntityStore){
		"create get and project":       testCreateGet,
		"set properties":               testSetProperties,
		"query by type and property":   testQuery,
		"delete removes relationships": testDeleteCascade,
		"unknown id is not found":      testNotFound,
		"concurrent updates all land":  testConcurrentSetProperties,
		"moving endpoints reindexes":   testMoveRelationship,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t, newTestStore(t))
		})
	}
}

func testCreateGet(t *testing.T, store *redisEntityStore) {
	ctx := context.Background()
	e, err := store.Create(ctx, map[string]any{"type": "Process", "name": "p", "info": map[string]any{"finished": false}})
	require.NoError(t, err)

	got, err := store.Get(ctx, e.ID(), "info")
	require.NoError(t, err)
	require.Equal(t, e.ID(), got.ID())
	require.Equal(t, "Process", got.Type())
	require.False(t, got.Has("name"))
	require.Equal(t, map[string]any{"finished": false}, got["info"])
}

func testSetProperties(t *testing.T, store *redisEntityStore) {
	ctx := context.Background()
	e, err := store.Create(ctx, map[string]any{"type": "Step", "isSuspended": true})
	require.NoError(t, err)
	require.NoError(t, store.SetProperty(ctx, e.ID(), "isSuspended", false))

	got, err := store.Get(ctx, e.ID())
	require.NoError(t, err)
	require.False(t, got.Bool("isSuspended"))
}

func testQuery(t *testing.T, store *redisEntityStore) {
	ctx := context.Background()
	for _, name := range []string{"b", "a"} {
		_, err := store.Create(ctx, map[string]any{"type": "SchemaNode", "name": name, "category": "x"})
		require.NoError(t, err)
	}
	_, err := store.Create(ctx, map[string]any{"type": "Process", "name": "c"})
	require.NoError(t, err)

	res, err := store.Query(ctx, command.Query{Type: "SchemaNode", Sort: "name", Order: command.ORDER_ASC, Properties: map[string]any{"category": "x"}, Exact: true})
	require.NoError(t, err)
	require.Len(t, res, 2)
	require.Equal(t, "a", res[0].String("name"))
	require.Equal(t, "b", res[1].String("name"))

	all, err := store.Query(ctx, command.Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func testDeleteCascade(t *testing.T, store *redisEntityStore) {
	ctx := context.Background()
	a, _ := store.Create(ctx, map[string]any{"type": "Person"})
	b, _ := store.Create(ctx, map[string]any{"type": "Person"})
	rel, err := store.Create(ctx, map[string]any{"type": "KNOWS", "relType": "KNOWS", "sourceId": a.ID(), "targetId": b.ID()})
	require.NoError(t, err)

	require.NoError(t, store.DeleteNode(ctx, a.ID()))
	_, err = store.Get(ctx, rel.ID())
	require.ErrorAs(t, err, &command.NotFoundError{})

	rels, err := store.Query(ctx, command.Query{Type: "KNOWS"})
	require.NoError(t, err)
	require.Empty(t, rels)
}

func testConcurrentSetProperties(t *testing.T, store *redisEntityStore) {
	ctx := context.Background()
	e, err := store.Create(ctx, map[string]any{"type": "Process"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- store.SetProperty(ctx, e.ID(), fmt.Sprintf("k%d", i), i)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := store.Get(ctx, e.ID())
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		require.True(t, got.Has(fmt.Sprintf("k%d", i)))
	}
}

func testMoveRelationship(t *testing.T, store *redisEntityStore) {
	ctx := context.Background()
	a, _ := store.Create(ctx, map[string]any{"type": "Person"})
	b, _ := store.Create(ctx, map[string]any{"type": "Person"})
	c, _ := store.Create(ctx, map[string]any{"type": "Person"})
	rel, err := store.Create(ctx, map[string]any{"type": "KNOWS", "relType": "KNOWS", "sourceId": a.ID(), "targetId": b.ID()})
	require.NoError(t, err)

	require.NoError(t, store.SetProperty(ctx, rel.ID(), "targetId", c.ID()))
	members, err := store.redisClient.SMembers(ctx, store.relKey(b.ID())).Result()
	require.NoError(t, err)
	require.Empty(t, members)
	members, err = store.redisClient.SMembers(ctx, store.relKey(c.ID())).Result()
	require.NoError(t, err)
	require.Equal(t, []string{rel.ID()}, members)

	require.NoError(t, store.DeleteNode(ctx, c.ID()))
	_, err = store.Get(ctx, rel.ID())
	require.ErrorAs(t, err, &command.NotFoundError{})
}

func testNotFound(t *testing.T, store *redisEntityStore) {
	_, err := store.Get(context.Background(), "missing")
	require.ErrorAs(t, err, &command.NotFoundError{})
}

func TestRingIsStable(t *testing.T) {
	r := newRing(8)
	p := r.GetPartition("abc")
	require.GreaterOrEqual(t, p, 0)
	require.Less(t, p, 8)
	for i := 0; i < 10; i++ {
		require.Equal(t, p, r.GetPartition("abc"))
	}
}
