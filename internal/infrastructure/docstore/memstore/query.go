package memstore

import (
	"sort"
	"strings"

	"snappin/internal/infrastructure/docstore"
)

// evaluate runs q against the current documents. Callers hold s.mu.
func (s *Store) evaluate(q docstore.Query) []*docstore.Document {
	type hit struct {
		path string
		rec  *record
	}

	var hits []hit
	for path, r := range s.docs {
		col, _ := docstore.Parent(path)
		if col != q.Collection {
			continue
		}
		if !matches(r.data, q) {
			continue
		}
		hits = append(hits, hit{path: path, rec: r})
	}

	sort.Slice(hits, func(i, j int) bool {
		return less(hits[i].path, hits[i].rec.data, hits[j].path, hits[j].rec.data, q.Orders)
	})

	out := make([]*docstore.Document, 0, len(hits))
	for _, h := range hits {
		if len(q.StartAfter) > 0 && !after(h.rec.data, q) {
			continue
		}
		out = append(out, s.snapshot(h.path, h.rec))
		if q.LimitN > 0 && len(out) == q.LimitN {
			break
		}
	}
	return out
}

func matches(data map[string]any, q docstore.Query) bool {
	for _, f := range q.Filters {
		if !matchFilter(data, f) {
			return false
		}
	}
	// Firestore leaves out documents that lack an order-by field.
	for _, o := range q.Orders {
		if _, ok := docstore.Lookup(data, o.Path); !ok {
			return false
		}
	}
	return true
}

func matchFilter(data map[string]any, f docstore.Filter) bool {
	v, ok := docstore.Lookup(data, f.Path)
	if !ok {
		return false
	}
	want := docstore.Normalize(f.Value)

	switch f.Op {
	case docstore.OpEqual:
		return docstore.Equal(v, want)
	case docstore.OpNotEqual:
		return v != nil && !docstore.Equal(v, want)
	case docstore.OpLess:
		return docstore.SameType(v, want) && docstore.Compare(v, want) < 0
	case docstore.OpLessEqual:
		return docstore.SameType(v, want) && docstore.Compare(v, want) <= 0
	case docstore.OpGreater:
		return docstore.SameType(v, want) && docstore.Compare(v, want) > 0
	case docstore.OpGreaterEqual:
		return docstore.SameType(v, want) && docstore.Compare(v, want) >= 0
	case docstore.OpArrayContains:
		arr, ok := v.([]any)
		return ok && containsValue(arr, want)
	case docstore.OpIn:
		options, ok := want.([]any)
		return ok && containsValue(options, v)
	}
	return false
}

func less(pathA string, a map[string]any, pathB string, b map[string]any, orders []docstore.Order) bool {
	for _, o := range orders {
		va, _ := docstore.Lookup(a, o.Path)
		vb, _ := docstore.Lookup(b, o.Path)
		c := docstore.Compare(va, vb)
		if c == 0 {
			continue
		}
		if o.Dir == docstore.Desc {
			return c > 0
		}
		return c < 0
	}
	// Ties break on the document id, in the direction of the last order.
	c := strings.Compare(pathA, pathB)
	if len(orders) > 0 && orders[len(orders)-1].Dir == docstore.Desc {
		return c > 0
	}
	return c < 0
}

// after reports whether data sorts strictly after the cursor values.
func after(data map[string]any, q docstore.Query) bool {
	for i, cursor := range q.StartAfter {
		if i >= len(q.Orders) {
			break
		}
		o := q.Orders[i]
		v, _ := docstore.Lookup(data, o.Path)
		c := docstore.Compare(v, docstore.Normalize(cursor))
		if c == 0 {
			continue
		}
		if o.Dir == docstore.Desc {
			return c < 0
		}
		return c > 0
	}
	return false
}
