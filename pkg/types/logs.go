package types

import "time"

// LogEntry represents one recorded HTTP transaction
type LogEntry struct {
	ID               string              `json:"id"`
	AppName          *string             `json:"appName,omitempty"`
	URL              string              `json:"url"`
	Method           string              `json:"method"`
	QueryParams      map[string][]string `json:"queryParams,omitempty"`
	RequestHeaders   map[string]string   `json:"requestHeaders,omitempty"`
	RequestBody      *string             `json:"requestBody,omitempty"`
	ResponseStatus   int                 `json:"responseStatus"`
	ResponseType     *string             `json:"responseContentType,omitempty"`
	ResponseBody     *string             `json:"responseBody,omitempty"`
	RequestTime      time.Time           `json:"requestTime"`
	ResponseTime     time.Time           `json:"responseTime"`
	ProcessingTimeMs int64               `json:"processingTimeMs"`
	ServerName       *string             `json:"serverName,omitempty"`
	ServerPort       *int                `json:"serverPort,omitempty"`
	RemoteAddr       *string             `json:"remoteAddr,omitempty"`

	// Provenance, set only by the merge orchestrator
	SourceID    string `json:"sourceId,omitempty"`
	SourceName  string `json:"sourceName,omitempty"`
	SourceColor string `json:"sourceColor,omitempty"`
}

// App returns the application name or an empty string
func (e *LogEntry) App() string {
	return deref(e.AppName)
}

// Server returns the server name or an empty string
func (e *LogEntry) Server() string {
	return deref(e.ServerName)
}

// Remote returns the remote client address or an empty string
func (e *LogEntry) Remote() string {
	return deref(e.RemoteAddr)
}

// PagedResult is the page shape returned by every adapter
type PagedResult struct {
	Content       []LogEntry `json:"content"`
	Page          int        `json:"page"`
	Size          int        `json:"size"`
	TotalElements int64      `json:"totalElements"`
	TotalPages    int        `json:"totalPages"`
}

// Stats holds aggregate statistics over a set of entries
type Stats struct {
	TotalCount          int64            `json:"totalCount"`
	AvgProcessingTimeMs float64          `json:"avgProcessingTimeMs"`
	MaxProcessingTimeMs int64            `json:"maxProcessingTimeMs"`
	P99ProcessingTimeMs int64            `json:"p99ProcessingTimeMs"`
	CountByStatus       map[string]int64 `json:"countByStatus"`
	CountByMethod       map[string]int64 `json:"countByMethod"`
	CountByAppName      map[string]int64 `json:"countByAppName"`
}

// SourceError describes a failed source inside a merged query
type SourceError struct {
	SourceID   string `json:"sourceId"`
	SourceName string `json:"sourceName"`
	Message    string `json:"errorMessage"`
}

// MergedPage is one page of results merged across several sources
type MergedPage struct {
	Content       []LogEntry    `json:"content"`
	Page          int           `json:"page"`
	Size          int           `json:"size"`
	TotalElements int64         `json:"totalElements"`
	TotalPages    int           `json:"totalPages"`
	Errors        []SourceError `json:"perSourceErrors"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StrPtr returns a pointer to s
func StrPtr(s string) *string { return &s }

// IntPtr returns a pointer to i
func IntPtr(i int) *int { return &i }
