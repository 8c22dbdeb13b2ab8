package supabase

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// SQLTable reads the table over a direct Postgres connection
type SQLTable struct {
	db *sql.DB
}

// OpenSQL connects to the project's database with a postgres:// DSN
func OpenSQL(dsn string) (*SQLTable, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &SQLTable{db: db}, nil
}

// NewSQLTable wraps an existing handle
func NewSQLTable(db *sql.DB) *SQLTable {
	return &SQLTable{db: db}
}

// Close releases the connection pool
func (t *SQLTable) Close() error {
	return t.db.Close()
}

// Select implements Table
func (t *SQLTable) Select(ctx context.Context, sel Selection) ([]map[string]any, int64, error) {
	from := quoteTable(sel.Table)
	where, args := whereClause(sel.Predicates)

	total := int64(-1)
	if sel.Count {
		row := t.db.QueryRowContext(ctx, "SELECT count(*) FROM "+from+where, args...)
		if err := row.Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("supabase: count rows: %w", err)
		}
	}

	columns := "*"
	if len(sel.Columns) > 0 {
		quoted := make([]string, len(sel.Columns))
		for i, c := range sel.Columns {
			quoted[i] = pq.QuoteIdentifier(c)
		}
		columns = strings.Join(quoted, ", ")
	}

	var b strings.Builder
	b.WriteString("SELECT " + columns + " FROM " + from + where)
	if sel.OrderBy != "" {
		b.WriteString(" ORDER BY " + pq.QuoteIdentifier(sel.OrderBy))
		if sel.Desc {
			b.WriteString(" DESC")
		} else {
			b.WriteString(" ASC")
		}
	}
	if sel.Limit > 0 {
		b.WriteString(" LIMIT " + strconv.Itoa(sel.Limit))
	}
	if sel.Offset > 0 {
		b.WriteString(" OFFSET " + strconv.Itoa(sel.Offset))
	}

	rows, err := t.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("supabase: query rows: %w", err)
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func whereClause(preds []Predicate) (string, []any) {
	if len(preds) == 0 {
		return "", nil
	}
	conds := make([]string, 0, len(preds))
	var args []any
	for _, pred := range preds {
		col := pq.QuoteIdentifier(pred.Column)
		if pred.Op == OpNotNull {
			conds = append(conds, col+" IS NOT NULL")
			continue
		}
		args = append(args, pred.Value)
		conds = append(conds, col+" "+sqlOperator(pred.Op)+" $"+strconv.Itoa(len(args)))
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func sqlOperator(op Op) string {
	switch op {
	case OpILike:
		return "ILIKE"
	case OpGte:
		return ">="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	default:
		return "="
	}
}

// quoteTable quotes each part of a possibly schema-qualified name
func quoteTable(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("supabase: read columns: %w", err)
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("supabase: scan row: %w", err)
		}
		rec := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				rec[c] = string(b)
				continue
			}
			rec[c] = values[i]
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("supabase: iterate rows: %w", err)
	}
	return out, nil
}
