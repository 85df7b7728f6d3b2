package docstore

type Direction int

const (
	Asc Direction = iota
	Desc
)

// Filter operators understood by every backend.
const (
	OpEqual         = "=="
	OpNotEqual      = "!="
	OpLess          = "<"
	OpLessEqual     = "<="
	OpGreater       = ">"
	OpGreaterEqual  = ">="
	OpArrayContains = "array-contains"
	OpIn            = "in"
)

type Filter struct {
	Path  FieldPath
	Op    string
	Value any
}

type Order struct {
	Path FieldPath
	Dir  Direction
}

// Query is an immutable description of a collection query. Builder
// methods return modified copies.
type Query struct {
	Collection string
	Filters    []Filter
	Orders     []Order
	LimitN     int
	StartAfter []any
}

func Collection(path string) Query {
	return Query{Collection: path}
}

func (q Query) Where(dotted, op string, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Path: ParseField(dotted), Op: op, Value: value})
	return q
}

func (q Query) OrderBy(dotted string, dir Direction) Query {
	q.Orders = append(append([]Order(nil), q.Orders...), Order{Path: ParseField(dotted), Dir: dir})
	return q
}

func (q Query) Limit(n int) Query {
	q.LimitN = n
	return q
}

// After positions the query after the document whose order-by values are
// given, one value per OrderBy clause.
func (q Query) After(values ...any) Query {
	q.StartAfter = append([]any(nil), values...)
	return q
}
