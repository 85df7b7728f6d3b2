package firestore

import (
	fs "cloud.google.com/go/firestore"

	"snappin/internal/infrastructure/docstore"
)

// encodeValue swaps docstore write sentinels for their Firestore
// counterparts. Everything else goes through as a normalized value.
func encodeValue(v any) any {
	switch t := v.(type) {
	case docstore.IncrementOp:
		return fs.Increment(t.N)
	case docstore.ArrayUnionOp:
		elems := make([]interface{}, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = encodeValue(e)
		}
		return fs.ArrayUnion(elems...)
	case map[string]any:
		return encodeMap(t)
	case []any:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = encodeValue(e)
		}
		return out
	}
	switch {
	case docstore.IsServerTimestamp(v):
		return fs.ServerTimestamp
	case docstore.IsDeleteField(v):
		return fs.Delete
	}

	n := docstore.Normalize(v)
	switch n.(type) {
	case map[string]any, []any:
		return encodeValue(n)
	}
	return n
}

func encodeMap(data map[string]any) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = encodeValue(v)
	}
	return out
}

func encodeUpdates(updates []docstore.Update) []fs.Update {
	out := make([]fs.Update, len(updates))
	for i, u := range updates {
		out[i] = fs.Update{FieldPath: fs.FieldPath(u.Path), Value: encodeValue(u.Value)}
	}
	return out
}
