package types

import (
	"strconv"
	"time"
)

// Filters holds the predicate set shared by every adapter.
// Empty strings and nil pointers mean "no filter".
type Filters struct {
	AppName             string     `json:"appName,omitempty"`
	URL                 string     `json:"url,omitempty"`
	Method              string     `json:"method,omitempty"`
	StatusCode          string     `json:"statusCode,omitempty"`
	StartTime           *time.Time `json:"startTime,omitempty"`
	EndTime             *time.Time `json:"endTime,omitempty"`
	MinProcessingTimeMs *int64     `json:"minProcessingTimeMs,omitempty"`
	RemoteAddr          string     `json:"remoteAddr,omitempty"`
	ServerName          string     `json:"serverName,omitempty"`
}

// SortField names a sortable entry field
type SortField string

const (
	SortRequestTime    SortField = "requestTime"
	SortResponseTime   SortField = "responseTime"
	SortProcessingTime SortField = "processingTimeMs"
	SortStatus         SortField = "responseStatus"
	SortURL            SortField = "url"
	SortMethod         SortField = "method"
	SortAppName        SortField = "appName"
	SortServerName     SortField = "serverName"
	SortRemoteAddr     SortField = "remoteAddr"
)

// SortDir is ASC or DESC
type SortDir string

const (
	Asc  SortDir = "ASC"
	Desc SortDir = "DESC"
)

// Sort is a field plus a direction
type Sort struct {
	Field SortField `json:"field"`
	Dir   SortDir   `json:"dir"`
}

// DefaultSort is newest first
var DefaultSort = Sort{Field: SortRequestTime, Dir: Desc}

// DefaultPageSize is used when a query does not set Size
const DefaultPageSize = 50

// Query bundles filters, sort and pagination for one fetch.
// Tick is advanced by a manual refresh and makes the query distinct
// from an otherwise identical earlier one.
type Query struct {
	Filters Filters `json:"filters"`
	Sort    Sort    `json:"sort"`
	Page    int     `json:"page"`
	Size    int     `json:"size"`
	Tick    int64   `json:"tick"`
}

// Normalize fills in default sort and size
func (q Query) Normalize() Query {
	if q.Sort.Field == "" {
		q.Sort.Field = DefaultSort.Field
	}
	if q.Sort.Dir != Asc {
		q.Sort.Dir = Desc
	}
	if q.Size <= 0 {
		q.Size = DefaultPageSize
	}
	if q.Page < 0 {
		q.Page = 0
	}
	return q
}

// TimeRange bounds stats queries; either end may be nil
type TimeRange struct {
	Start *time.Time `json:"startTime,omitempty"`
	End   *time.Time `json:"endTime,omitempty"`
}

// StatsQuery is the input of a stats fetch
type StatsQuery struct {
	Range TimeRange `json:"range"`
	Tick  int64     `json:"tick"`
}

// TotalPages computes ceil(total/size), zero for an empty size
func TotalPages(total int64, size int) int {
	if size <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

// StatusKey renders a status code as a stats map key
func StatusKey(status int) string {
	return strconv.Itoa(status)
}
