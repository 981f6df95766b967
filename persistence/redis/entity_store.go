package redis

import (
	"context"
	"errors"
	"time"

	rd "github.com/go-redis/redis/v9"
	"github.com/mohitkumar/orchy-console/command"
	"github.com/mohitkumar/orchy-console/logger"
	"github.com/mohitkumar/orchy-console/model"
	"github.com/mohitkumar/orchy-console/persistence"
	"github.com/mohitkumar/orchy-console/util"
	"go.uber.org/zap"
)

const ENTITY_KEY string = "ENTITY"
const TYPE_INDEX_KEY string = "TYPE"
const ALL_INDEX_KEY string = "ALL"
const REL_INDEX_KEY string = "REL"
const MAX_TX_RETRIES = 10

var _ command.Service = new(redisEntityStore)

type redisEntityStore struct {
	*baseDao
	encoderDecoder util.EncoderDecoder[map[string]any]
}

// NewRedisEntityStore connects to redis and returns a command service backed by it.
func NewRedisEntityStore(ctx context.Context, conf Config) (*redisEntityStore, error) {
	store := &redisEntityStore{
		baseDao:        newBaseDao(conf),
		encoderDecoder: util.NewJsonEncoderDecoder[map[string]any](),
	}
	if err := store.ping(ctx, conf.ConnectRetries); err != nil {
		store.Close()
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return store, nil
}

func (r *redisEntityStore) entityKey(id string) string {
	return r.getPartitionKey(ENTITY_KEY, id)
}

func (r *redisEntityStore) typeKey(typ string) string {
	return r.getNamespaceKey(TYPE_INDEX_KEY, typ)
}

func (r *redisEntityStore) relKey(nodeId string) string {
	return r.getNamespaceKey(REL_INDEX_KEY, nodeId)
}

func (r *redisEntityStore) load(ctx context.Context, id string) (model.Entity, error) {
	return r.loadWith(ctx, r.redisClient, id)
}

type hashGetter interface {
	HGet(ctx context.Context, key, field string) *rd.StringCmd
}

func (r *redisEntityStore) loadWith(ctx context.Context, client hashGetter, id string) (model.Entity, error) {
	val, err := client.HGet(ctx, r.entityKey(id), id).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, command.NotFoundError{Id: id}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	e, err := r.encoderDecoder.Decode([]byte(val))
	if err != nil {
		return nil, err
	}
	return model.Entity(*e), nil
}

func (r *redisEntityStore) save(ctx context.Context, pipe rd.Pipeliner, e model.Entity) error {
	data, err := r.encoderDecoder.Encode(e)
	if err != nil {
		return err
	}
	return pipe.HSet(ctx, r.entityKey(e.ID()), []string{e.ID(), string(data)}).Err()
}

func (r *redisEntityStore) Get(ctx context.Context, id string, fields ...string) (model.Entity, error) {
	e, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.Project(fields), nil
}

func (r *redisEntityStore) Query(ctx context.Context, q command.Query) ([]model.Entity, error) {
	index := r.getNamespaceKey(ALL_INDEX_KEY)
	if q.Type != "" {
		index = r.typeKey(q.Type)
	}
	ids, err := r.redisClient.ZRange(ctx, index, 0, -1).Result()
	if err != nil && !errors.Is(err, rd.Nil) {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	if len(ids) == 0 {
		return []model.Entity{}, nil
	}
	pipe := r.redisClient.Pipeline()
	cmds := make([]*rd.StringCmd, 0, len(ids))
	for _, id := range ids {
		cmds = append(cmds, pipe.HGet(ctx, r.entityKey(id), id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, rd.Nil) {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	entities := make([]model.Entity, 0, len(ids))
	for i, cmd := range cmds {
		val, err := cmd.Result()
		if err != nil {
			logger.Debug("dangling index entry", zap.String("id", ids[i]), zap.Error(err))
			continue
		}
		e, err := r.encoderDecoder.Decode([]byte(val))
		if err != nil {
			logger.Error("error decoding entity", zap.String("id", ids[i]), zap.Error(err))
			continue
		}
		entities = append(entities, model.Entity(*e))
	}
	return command.Apply(entities, q), nil
}

func (r *redisEntityStore) Create(ctx context.Context, attrs map[string]any) (model.Entity, error) {
	e := util.DeepCopy(attrs)
	if e.Type() == "" {
		return nil, command.ValidationError{Message: "type is required"}
	}
	if e.ID() == "" {
		e[model.ID_KEY] = util.NewId()
	}
	now := time.Now()
	if !e.Has("createdDate") {
		e["createdDate"] = now.UnixMilli()
	}
	exists, err := r.redisClient.HExists(ctx, r.entityKey(e.ID()), e.ID()).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	if exists {
		return nil, command.ValidationError{Message: "duplicate id " + e.ID()}
	}
	member := rd.Z{Score: float64(now.UnixNano()), Member: e.ID()}
	_, err = r.redisClient.TxPipelined(ctx, func(pipe rd.Pipeliner) error {
		if err := r.save(ctx, pipe, e); err != nil {
			return err
		}
		pipe.ZAdd(ctx, r.getNamespaceKey(ALL_INDEX_KEY), member)
		pipe.ZAdd(ctx, r.typeKey(e.Type()), member)
		if e.IsRelationship() {
			pipe.SAdd(ctx, r.relKey(e.String("sourceId")), e.ID())
			pipe.SAdd(ctx, r.relKey(e.String("targetId")), e.ID())
		}
		return nil
	})
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return e, nil
}

func (r *redisEntityStore) SetProperty(ctx context.Context, id string, key string, value any) error {
	return r.SetProperties(ctx, id, map[string]any{key: value})
}

// SetProperties merges attrs into the stored entity. The entity hash is watched, so a
// concurrent writer makes the transaction retry instead of losing its update. Type and
// relationship endpoint changes move the index entries along.
func (r *redisEntityStore) SetProperties(ctx context.Context, id string, attrs map[string]any) error {
	if _, ok := attrs[model.ID_KEY]; ok {
		return command.ValidationError{Message: "id can not be changed"}
	}
	key := r.entityKey(id)
	for i := 0; i < MAX_TX_RETRIES; i++ {
		err := r.redisClient.Watch(ctx, func(tx *rd.Tx) error {
			return r.setProperties(ctx, tx, id, attrs)
		}, key)
		if errors.Is(err, rd.TxFailedErr) {
			logger.Debug("entity changed during update, retrying", zap.String("id", id), zap.Int("attempt", i+1))
			continue
		}
		return err
	}
	return persistence.StorageLayerError{Message: "too many concurrent updates of " + id}
}

func (r *redisEntityStore) setProperties(ctx context.Context, tx *rd.Tx, id string, attrs map[string]any) error {
	e, err := r.loadWith(ctx, tx, id)
	if err != nil {
		return err
	}
	old := e.Copy()
	for k, v := range util.DeepCopy(attrs) {
		e[k] = v
	}
	if e.Type() == "" {
		return command.ValidationError{Message: "type is required"}
	}
	_, err = tx.TxPipelined(ctx, func(pipe rd.Pipeliner) error {
		if err := r.save(ctx, pipe, e); err != nil {
			return err
		}
		if old.Type() != e.Type() {
			pipe.ZRem(ctx, r.typeKey(old.Type()), id)
			pipe.ZAdd(ctx, r.typeKey(e.Type()), rd.Z{Score: float64(time.Now().UnixNano()), Member: id})
		}
		r.moveRelIndex(ctx, pipe, id, old, e)
		return nil
	})
	if err != nil {
		if errors.Is(err, rd.TxFailedErr) {
			return err
		}
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

// moveRelIndex keeps the REL sets in line with the endpoints of a changed relationship.
func (r *redisEntityStore) moveRelIndex(ctx context.Context, pipe rd.Pipeliner, id string, old, updated model.Entity) {
	endpoints := func(e model.Entity) map[string]bool {
		if !e.IsRelationship() {
			return nil
		}
		return map[string]bool{e.String("sourceId"): true, e.String("targetId"): true}
	}
	before, after := endpoints(old), endpoints(updated)
	for nodeId := range before {
		if nodeId != "" && !after[nodeId] {
			pipe.SRem(ctx, r.relKey(nodeId), id)
		}
	}
	for nodeId := range after {
		if nodeId != "" && !before[nodeId] {
			pipe.SAdd(ctx, r.relKey(nodeId), id)
		}
	}
}

// DeleteNode removes the entity, its index entries and every relationship attached to it.
func (r *redisEntityStore) DeleteNode(ctx context.Context, id string) error {
	e, err := r.load(ctx, id)
	if err != nil {
		return err
	}
	doomed := []model.Entity{e}
	relIds, err := r.redisClient.SMembers(ctx, r.relKey(id)).Result()
	if err != nil && !errors.Is(err, rd.Nil) {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	for _, relId := range relIds {
		rel, err := r.load(ctx, relId)
		if err != nil {
			continue
		}
		doomed = append(doomed, rel)
	}
	_, err = r.redisClient.TxPipelined(ctx, func(pipe rd.Pipeliner) error {
		for _, d := range doomed {
			pipe.HDel(ctx, r.entityKey(d.ID()), d.ID())
			pipe.ZRem(ctx, r.getNamespaceKey(ALL_INDEX_KEY), d.ID())
			pipe.ZRem(ctx, r.typeKey(d.Type()), d.ID())
			if d.IsRelationship() {
				pipe.SRem(ctx, r.relKey(d.String("sourceId")), d.ID())
				pipe.SRem(ctx, r.relKey(d.String("targetId")), d.ID())
			}
		}
		pipe.Del(ctx, r.relKey(id))
		return nil
	})
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}
