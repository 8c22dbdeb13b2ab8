package logfile

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vietdv277/logmux/pkg/types"
)

// timeLayouts are tried in order when a timestamp arrives as text.
// Layouts without a zone are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// NormalizeRecord converts a decoded record into a LogEntry. Every field is
// looked up by its camelCase name first and its snake_case name second.
// Missing values become nil, except method ("GET"), status (0) and
// processing time (0). A missing id is replaced by a fresh UUID.
func NormalizeRecord(rec map[string]any) types.LogEntry {
	e := types.LogEntry{
		ID:               stringVal(field(rec, "id", "id")),
		AppName:          optString(field(rec, "appName", "app_name")),
		URL:              stringVal(field(rec, "url", "url")),
		Method:           stringVal(field(rec, "method", "method")),
		QueryParams:      queryParams(field(rec, "queryParams", "query_params")),
		RequestHeaders:   headers(field(rec, "requestHeaders", "request_headers")),
		RequestBody:      optString(field(rec, "requestBody", "request_body")),
		ResponseStatus:   int(intVal(field(rec, "responseStatus", "response_status"))),
		ResponseType:     optString(field(rec, "responseContentType", "response_content_type")),
		ResponseBody:     optString(field(rec, "responseBody", "response_body")),
		RequestTime:      timeVal(field(rec, "requestTime", "request_time")),
		ResponseTime:     timeVal(field(rec, "responseTime", "response_time")),
		ProcessingTimeMs: intVal(field(rec, "processingTimeMs", "processing_time_ms")),
		ServerName:       optString(field(rec, "serverName", "server_name")),
		RemoteAddr:       optString(field(rec, "remoteAddr", "remote_addr")),
	}

	if v := field(rec, "serverPort", "server_port"); v != nil {
		if port, ok := toInt(v); ok {
			e.ServerPort = types.IntPtr(int(port))
		}
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Method == "" {
		e.Method = "GET"
	}
	return e
}

func field(rec map[string]any, camel, snake string) any {
	if v, ok := rec[camel]; ok && v != nil {
		return v
	}
	if v, ok := rec[snake]; ok {
		return v
	}
	return nil
}

func stringVal(v any) string {
	if s := optString(v); s != nil {
		return *s
	}
	return ""
}

func optString(v any) *string {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return &x
	case []byte:
		s := string(x)
		return &s
	case json.Number:
		s := x.String()
		return &s
	case time.Time:
		s := x.Format(time.RFC3339Nano)
		return &s
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return nil
		}
		s := string(b)
		return &s
	default:
		s := fmt.Sprint(x)
		return &s
	}
}

func intVal(v any) int64 {
	n, _ := toInt(v)
	return n
}

func toInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case float64:
		return int64(math.Round(x)), true
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, true
		}
		if f, err := x.Float64(); err == nil {
			return int64(math.Round(f)), true
		}
	case []byte:
		return toInt(string(x))
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(math.Round(f)), true
		}
	}
	return 0, false
}

func timeVal(v any) time.Time {
	switch x := v.(type) {
	case time.Time:
		return x
	case []byte:
		return parseTime(string(x))
	case string:
		return parseTime(x)
	case json.Number, float64, int64:
		// Numeric timestamps are epoch milliseconds
		if ms, ok := toInt(x); ok {
			return time.UnixMilli(ms).UTC()
		}
	}
	return time.Time{}
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC()
	}
	return time.Time{}
}

// decodeEmbedded turns an embedded JSON string into a structured value.
// Structured values pass through; anything undecodable yields nil.
func decodeEmbedded(v any) any {
	var raw string
	switch x := v.(type) {
	case string:
		raw = x
	case []byte:
		raw = string(x)
	default:
		return v
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var out any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func queryParams(v any) map[string][]string {
	m, ok := decodeEmbedded(v).(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string][]string, len(m))
	for k, val := range m {
		switch x := val.(type) {
		case []any:
			vals := make([]string, 0, len(x))
			for _, item := range x {
				if s := optString(item); s != nil {
					vals = append(vals, *s)
				}
			}
			out[k] = vals
		case nil:
			out[k] = []string{}
		default:
			out[k] = []string{stringVal(x)}
		}
	}
	return out
}

func headers(v any) map[string]string {
	m, ok := decodeEmbedded(v).(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, val := range m {
		switch x := val.(type) {
		case []any:
			// Repeated header names keep the last value
			if len(x) > 0 {
				out[k] = stringVal(x[len(x)-1])
			}
		case nil:
			out[k] = ""
		default:
			out[k] = stringVal(x)
		}
	}
	return out
}
