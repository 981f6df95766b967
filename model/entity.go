package model

import (
	"fmt"
	"strings"
)

const ID_KEY = "id"
const TYPE_KEY = "type"

// Entity is a backend record as returned by the command service.
type Entity map[string]any

func (e Entity) ID() string {
	return e.String(ID_KEY)
}

func (e Entity) Type() string {
	return e.String(TYPE_KEY)
}

func (e Entity) String(key string) string {
	v, ok := e[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func (e Entity) Bool(key string) bool {
	switch v := e[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}

func (e Entity) Has(key string) bool {
	_, ok := e[key]
	return ok
}

// IsRelationship reports whether the entity is an edge rather than a node.
func (e Entity) IsRelationship() bool {
	if e.Has("relType") {
		return true
	}
	return e.String("sourceId") != "" && e.String("targetId") != ""
}

// Project returns a shallow copy holding only the given top-level fields.
// id and type are always kept. An empty field list copies everything.
func (e Entity) Project(fields []string) Entity {
	out := make(Entity, len(fields)+2)
	if len(fields) == 0 {
		for k, v := range e {
			out[k] = v
		}
		return out
	}
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if v, ok := e[f]; ok {
			out[f] = v
		}
	}
	if v, ok := e[ID_KEY]; ok {
		out[ID_KEY] = v
	}
	if v, ok := e[TYPE_KEY]; ok {
		out[TYPE_KEY] = v
	}
	return out
}

func (e Entity) Copy() Entity {
	return e.Project(nil)
}

// ParseFields splits a comma separated projection such as "id,type,info".
func ParseFields(projection string) []string {
	if strings.TrimSpace(projection) == "" {
		return nil
	}
	parts := strings.Split(projection, ",")
	fields := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			fields = append(fields, p)
		}
	}
	return fields
}
