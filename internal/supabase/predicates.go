package supabase

import (
	"strconv"
	"strings"
	"time"

	"github.com/vietdv277/logmux/internal/query"
	"github.com/vietdv277/logmux/pkg/types"
)

// Op is a predicate operator understood by every table backend
type Op string

const (
	OpEq      Op = "eq"
	OpILike   Op = "ilike"
	OpGte     Op = "gte"
	OpLt      Op = "lt"
	OpLte     Op = "lte"
	OpNotNull Op = "notnull"
)

// Predicate is one column condition. Value is a string, int64 or time.Time.
type Predicate struct {
	Column string
	Op     Op
	Value  any
}

// Table columns in snake_case
const (
	ColID             = "id"
	ColAppName        = "app_name"
	ColURL            = "url"
	ColMethod         = "method"
	ColStatus         = "response_status"
	ColRequestTime    = "request_time"
	ColResponseTime   = "response_time"
	ColProcessingTime = "processing_time_ms"
	ColServerName     = "server_name"
	ColRemoteAddr     = "remote_addr"
)

// StatsColumns is the projection aggregated client-side for stats
var StatsColumns = []string{ColID, ColStatus, ColMethod, ColAppName, ColProcessingTime}

var sortColumns = map[types.SortField]string{
	types.SortRequestTime:    ColRequestTime,
	types.SortResponseTime:   ColResponseTime,
	types.SortProcessingTime: ColProcessingTime,
	types.SortStatus:         ColStatus,
	types.SortURL:            ColURL,
	types.SortMethod:         ColMethod,
	types.SortAppName:        ColAppName,
	types.SortServerName:     ColServerName,
	types.SortRemoteAddr:     ColRemoteAddr,
}

// SortColumn maps a sort field to its column, request_time when unknown
func SortColumn(field types.SortField) string {
	if col, ok := sortColumns[field]; ok {
		return col
	}
	return ColRequestTime
}

// BuildPredicates translates the shared filter set into table predicates
// with the same semantics the in-memory engine applies.
func BuildPredicates(f types.Filters) []Predicate {
	var preds []Predicate

	if f.AppName != "" {
		preds = append(preds, Predicate{ColAppName, OpEq, f.AppName})
	}
	if f.URL != "" {
		preds = append(preds, Predicate{ColURL, OpILike, likeValue(f.URL)})
	}
	if f.Method != "" {
		// ILIKE without wildcards is a case-insensitive equality
		preds = append(preds, Predicate{ColMethod, OpILike, f.Method})
	}
	if lo, hi, ok := query.StatusRange(f.StatusCode); ok {
		if hi-lo == 1 {
			preds = append(preds, Predicate{ColStatus, OpEq, int64(lo)})
		} else {
			preds = append(preds,
				Predicate{ColStatus, OpGte, int64(lo)},
				Predicate{ColStatus, OpLt, int64(hi)},
			)
		}
	}
	preds = append(preds, rangePredicates(types.TimeRange{Start: f.StartTime, End: f.EndTime})...)
	if f.MinProcessingTimeMs != nil {
		preds = append(preds, Predicate{ColProcessingTime, OpGte, *f.MinProcessingTimeMs})
	}
	if f.RemoteAddr != "" {
		preds = append(preds, Predicate{ColRemoteAddr, OpILike, "%" + f.RemoteAddr + "%"})
	}
	if f.ServerName != "" {
		preds = append(preds, Predicate{ColServerName, OpILike, "%" + f.ServerName + "%"})
	}
	return preds
}

func rangePredicates(r types.TimeRange) []Predicate {
	var preds []Predicate
	if r.Start != nil {
		preds = append(preds, Predicate{ColRequestTime, OpGte, r.Start.UTC()})
	}
	if r.End != nil {
		preds = append(preds, Predicate{ColRequestTime, OpLte, r.End.UTC()})
	}
	return preds
}

// likeValue keeps a pattern that already carries % and wraps a plain
// needle for substring matching.
func likeValue(pattern string) string {
	if strings.Contains(pattern, "%") {
		return pattern
	}
	return "%" + pattern + "%"
}

// formatValue renders a predicate value as text
func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return ""
	}
}
