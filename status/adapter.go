package status

import (
	"strings"

	"github.com/mohitkumar/orchy-console/model"
	"github.com/oliveagle/jsonpath"
)

// Adapter maps the backend projection of a process instance onto ProcessStatus.
// Each field is a list of jsonpath expressions. The first one that resolves wins.
type Adapter struct {
	CurrentStep []string
	Finished    []string
	Suspended   []string
}

func Default() *Adapter {
	return &Adapter{
		CurrentStep: []string{
			"$.info.currentStep",
			"$.status.currentStep",
			"$.info.currentStepId",
			"$.status.currentStepId",
		},
		Finished: []string{
			"$.info.finished",
			"$.status.finished",
			"$.info.isFinished",
			"$.status.isFinished",
		},
		Suspended: []string{
			"$.info.suspended",
			"$.status.suspended",
			"$.info.isSuspended",
			"$.status.isSuspended",
		},
	}
}

func lookup(data map[string]any, paths []string) (any, bool) {
	for _, p := range paths {
		v, err := jsonpath.JsonPathLookup(data, p)
		if err == nil && v != nil {
			return v, true
		}
	}
	return nil, false
}

func (a *Adapter) Status(e model.Entity) model.ProcessStatus {
	data := map[string]any(e)
	var st model.ProcessStatus
	if v, ok := lookup(data, a.CurrentStep); ok {
		if id := stepId(v); id != "" {
			st.CurrentStepId = &id
		}
	}
	if v, ok := lookup(data, a.Finished); ok {
		st.Finished = truthy(v)
	}
	if v, ok := lookup(data, a.Suspended); ok {
		st.Suspended = truthy(v)
	}
	return st
}

// Fields lists the top-level fields the adapter reads, for use as a Get projection.
func (a *Adapter) Fields() []string {
	seen := map[string]bool{}
	fields := []string{model.ID_KEY, model.TYPE_KEY}
	for _, group := range [][]string{a.CurrentStep, a.Finished, a.Suspended} {
		for _, p := range group {
			f := topLevel(p)
			if f == "" || seen[f] {
				continue
			}
			seen[f] = true
			fields = append(fields, f)
		}
	}
	return fields
}

func topLevel(path string) string {
	p := strings.TrimPrefix(path, "$.")
	if i := strings.IndexAny(p, ".["); i >= 0 {
		p = p[:i]
	}
	return p
}

func stepId(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		return model.Entity(t).ID()
	case model.Entity:
		return t.ID()
	}
	return ""
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(t, "true")
	}
	return false
}
