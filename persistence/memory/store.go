package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mohitkumar/orchy-console/command"
	"github.com/mohitkumar/orchy-console/model"
	"github.com/mohitkumar/orchy-console/util"
)

var _ command.Service = new(Store)

// Store is an in-memory command service, used for development and tests.
type Store struct {
	mu       sync.RWMutex
	entities map[string]model.Entity
	order    []string
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		entities: make(map[string]model.Entity),
		now:      time.Now,
	}
}

func (s *Store) Get(ctx context.Context, id string, fields ...string) (model.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	if !ok {
		return nil, command.NotFoundError{Id: id}
	}
	return util.DeepCopy(e).Project(fields), nil
}

func (s *Store) Query(ctx context.Context, q command.Query) ([]model.Entity, error) {
	s.mu.RLock()
	all := make([]model.Entity, 0, len(s.order))
	for _, id := range s.order {
		all = append(all, util.DeepCopy(s.entities[id]))
	}
	s.mu.RUnlock()
	return command.Apply(all, q), nil
}

func (s *Store) Create(ctx context.Context, attrs map[string]any) (model.Entity, error) {
	e := util.DeepCopy(attrs)
	if e.Type() == "" {
		return nil, command.ValidationError{Message: "type is required"}
	}
	if e.ID() == "" {
		e[model.ID_KEY] = util.NewId()
	}
	if !e.Has("createdDate") {
		e["createdDate"] = s.now().UnixMilli()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entities[e.ID()]; exists {
		return nil, command.ValidationError{Message: "duplicate id " + e.ID()}
	}
	s.entities[e.ID()] = e
	s.order = append(s.order, e.ID())
	return util.DeepCopy(e), nil
}

func (s *Store) SetProperty(ctx context.Context, id string, key string, value any) error {
	return s.SetProperties(ctx, id, map[string]any{key: value})
}

func (s *Store) SetProperties(ctx context.Context, id string, attrs map[string]any) error {
	if _, ok := attrs[model.ID_KEY]; ok {
		return command.ValidationError{Message: "id can not be changed"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[id]
	if !ok {
		return command.NotFoundError{Id: id}
	}
	for k, v := range util.DeepCopy(attrs) {
		e[k] = v
	}
	return nil
}

// DeleteNode removes the entity and every relationship that points at it.
func (s *Store) DeleteNode(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[id]; !ok {
		return command.NotFoundError{Id: id}
	}
	remove := map[string]bool{id: true}
	for otherId, e := range s.entities {
		if e.IsRelationship() && (e.String("sourceId") == id || e.String("targetId") == id) {
			remove[otherId] = true
		}
	}
	order := s.order[:0]
	for _, existing := range s.order {
		if remove[existing] {
			delete(s.entities, existing)
			continue
		}
		order = append(order, existing)
	}
	s.order = order
	return nil
}
