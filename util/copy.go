package util

import "github.com/mohitkumar/orchy-console/model"

// DeepCopy copies nested maps and slices so stored entities are never shared with callers.
func DeepCopy(src map[string]any) model.Entity {
	if src == nil {
		return nil
	}
	out := make(model.Entity, len(src))
	for k, v := range src {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case model.Entity:
		return map[string]any(DeepCopy(t))
	case map[string]any:
		return map[string]any(DeepCopy(t))
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = copyValue(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = map[string]any(DeepCopy(item))
		}
		return out
	}
	return v
}
