package memstore

import (
	"time"

	"snappin/internal/infrastructure/docstore"
)

type writeKind int

const (
	writeCreate writeKind = iota
	writeSet
	writeUpdate
	writeDelete
)

type write struct {
	kind    writeKind
	path    string
	data    map[string]any
	merge   bool
	updates []docstore.Update
}

// apply returns the record that results from applying w on top of existing.
// A nil record means the document no longer exists.
func (w write) apply(existing *record, now time.Time) (*record, error) {
	switch w.kind {
	case writeDelete:
		return nil, nil

	case writeCreate:
		if existing != nil {
			return nil, docstore.ErrAlreadyExists
		}
		return &record{data: resolveMap(nil, w.data, now, false), createTime: now, updateTime: now}, nil

	case writeSet:
		next := &record{createTime: now, updateTime: now}
		var base map[string]any
		if existing != nil {
			next.createTime = existing.createTime
			base = docstore.DeepCopy(existing.data).(map[string]any)
		}
		if w.merge {
			next.data = resolveMap(base, w.data, now, true)
		} else {
			next.data = resolveMap(nil, w.data, now, false)
		}
		return next, nil

	case writeUpdate:
		if existing == nil {
			return nil, docstore.ErrNotFound
		}
		data := docstore.DeepCopy(existing.data).(map[string]any)
		for _, u := range w.updates {
			setPath(data, u.Path, u.Value, now)
		}
		return &record{data: data, createTime: existing.createTime, updateTime: now}, nil
	}
	return existing, nil
}

// resolveMap writes src into dst, resolving sentinels against the values
// already in dst. With merge set, nested maps are merged key by key;
// otherwise they replace what was there.
func resolveMap(dst, src map[string]any, now time.Time, merge bool) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		v = docstore.Normalize(v)
		if nested, ok := v.(map[string]any); ok {
			var base map[string]any
			if merge {
				base, _ = dst[k].(map[string]any)
			}
			dst[k] = resolveMap(base, nested, now, merge)
			continue
		}
		cur, exists := dst[k]
		resolved, remove := resolve(cur, exists, v, now)
		if remove {
			delete(dst, k)
			continue
		}
		dst[k] = resolved
	}
	return dst
}

// setPath assigns v at path, creating intermediate maps as Firestore does
// for dotted field updates.
func setPath(data map[string]any, path docstore.FieldPath, v any, now time.Time) {
	if len(path) == 0 {
		return
	}
	m := data
	for _, part := range path[:len(path)-1] {
		next, ok := m[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[part] = next
		}
		m = next
	}

	leaf := path[len(path)-1]
	v = docstore.Normalize(v)
	if nested, ok := v.(map[string]any); ok {
		m[leaf] = resolveMap(nil, nested, now, false)
		return
	}
	cur, exists := m[leaf]
	resolved, remove := resolve(cur, exists, v, now)
	if remove {
		delete(m, leaf)
		return
	}
	m[leaf] = resolved
}

func resolve(cur any, exists bool, v any, now time.Time) (any, bool) {
	switch t := v.(type) {
	case docstore.IncrementOp:
		switch n := cur.(type) {
		case int64:
			return n + t.N, false
		case float64:
			return n + float64(t.N), false
		}
		return t.N, false

	case docstore.ArrayUnionOp:
		var out []any
		if arr, ok := cur.([]any); ok && exists {
			out = append(out, arr...)
		}
		for _, e := range t.Elems {
			e = docstore.Normalize(e)
			if !containsValue(out, e) {
				out = append(out, e)
			}
		}
		if out == nil {
			out = []any{}
		}
		return out, false
	}

	if docstore.IsServerTimestamp(v) {
		return now, false
	}
	if docstore.IsDeleteField(v) {
		return nil, true
	}
	return v, false
}

func containsValue(arr []any, v any) bool {
	for _, e := range arr {
		if docstore.Equal(e, v) {
			return true
		}
	}
	return false
}
