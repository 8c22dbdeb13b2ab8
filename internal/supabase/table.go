package supabase

import "context"

// Selection is one read against the access-log table
type Selection struct {
	Table      string
	Columns    []string // empty selects every column
	Predicates []Predicate
	OrderBy    string
	Desc       bool
	Offset     int
	Limit      int
	Count      bool // also report the exact total matching the predicates
}

// Table reads rows from the hosted log table. Rows carry snake_case keys.
// total is -1 unless Count was requested.
type Table interface {
	Select(ctx context.Context, sel Selection) (rows []map[string]any, total int64, err error)
}
