package render

import (
	c "github.com/patrickmn/go-cache"
)

// Set records which entity ids currently have a visual element.
// Every draw path must go through TryAdd before creating one.
type Set struct {
	cache *c.Cache
}

func NewSet() *Set {
	return &Set{
		cache: c.New(c.NoExpiration, 0),
	}
}

// TryAdd marks id as present. It returns false when id was already present.
func (s *Set) TryAdd(id string) bool {
	return s.cache.Add(id, struct{}{}, c.NoExpiration) == nil
}

func (s *Set) Remove(id string) {
	s.cache.Delete(id)
}

func (s *Set) Contains(id string) bool {
	_, found := s.cache.Get(id)
	return found
}

func (s *Set) Clear() {
	s.cache.Flush()
}

func (s *Set) Len() int {
	return s.cache.ItemCount()
}

func (s *Set) Ids() []string {
	items := s.cache.Items()
	ids := make([]string, 0, len(items))
	for k := range items {
		ids = append(ids, k)
	}
	return ids
}
