package hierarchy

import (
	"sort"

	"github.com/mohitkumar/orchy-console/model"
)

// MaxDepth bounds the parent walk so malformed or cyclic input still terminates.
const MaxDepth = 100

type Leveled struct {
	model.Step
	Level int
}

func Index(steps []model.Step) map[string]model.Step {
	index := make(map[string]model.Step, len(steps))
	for _, s := range steps {
		index[s.Id] = s
	}
	return index
}

// ComputeDepth walks the first backward relation of each step up to the root.
// A root has depth 1. A parent missing from index ends the walk.
func ComputeDepth(index map[string]model.Step, step model.Step) int {
	current := step
	level := 1
	for level < MaxDepth {
		parentId, ok := current.ParentId()
		if !ok {
			break
		}
		level++
		parent, found := index[parentId]
		if !found {
			break
		}
		current = parent
	}
	return level
}

// SortByDepth orders steps by ascending depth. Steps at the same depth keep their input order.
func SortByDepth(steps []model.Step) []Leveled {
	index := Index(steps)
	out := make([]Leveled, 0, len(steps))
	for _, s := range steps {
		out = append(out, Leveled{Step: s, Level: ComputeDepth(index, s)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Level < out[j].Level
	})
	return out
}
