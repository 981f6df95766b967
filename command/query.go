package command

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mohitkumar/orchy-console/model"
)

// Apply filters, sorts and pages entities the way every store answers a Query.
func Apply(entities []model.Entity, q Query) []model.Entity {
	matched := make([]model.Entity, 0, len(entities))
	for _, e := range entities {
		if Matches(e, q) {
			matched = append(matched, e)
		}
	}
	Sort(matched, q.Sort, q.Order)
	return Page(matched, q.PageSize, q.Page)
}

func Matches(e model.Entity, q Query) bool {
	if q.Type != "" && e.Type() != q.Type {
		return false
	}
	for key, want := range q.Properties {
		if !matchValue(e[key], want, q.Exact) {
			return false
		}
	}
	return true
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	return false
}

func matchValue(have any, want any, exact bool) bool {
	if isEmpty(want) {
		return isEmpty(have)
	}
	if have == nil {
		return false
	}
	ws, wantString := want.(string)
	hs, haveString := have.(string)
	if wantString && haveString {
		if exact {
			return hs == ws
		}
		return strings.Contains(strings.ToLower(hs), strings.ToLower(ws))
	}
	return fmt.Sprintf("%v", have) == fmt.Sprintf("%v", want)
}

func Sort(entities []model.Entity, field string, order Order) {
	if field == "" {
		return
	}
	desc := strings.EqualFold(string(order), string(ORDER_DESC))
	sort.SliceStable(entities, func(i, j int) bool {
		a, aok := entities[i][field]
		b, bok := entities[j][field]
		if !aok || a == nil {
			return false
		}
		if !bok || b == nil {
			return true
		}
		c := compare(a, b)
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func compare(a, b any) int {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
}

// Page returns the 1-based page of the given size. A size of zero or less disables paging.
func Page(entities []model.Entity, pageSize int, page int) []model.Entity {
	if pageSize <= 0 {
		return entities
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(entities) {
		return []model.Entity{}
	}
	end := start + pageSize
	if end > len(entities) {
		end = len(entities)
	}
	return entities[start:end]
}
