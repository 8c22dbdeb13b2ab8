package logfile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietdv277/logmux/pkg/types"
)

func TestParseNDJSONSkipsInvalidLines(t *testing.T) {
	data := []byte(`{"id":"a","url":"/api/users","responseStatus":200}
{not json
{"id":"c","url":"/api/orders","responseStatus":404}
`)
	entries := ParseNDJSON(data)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].ID)
	assert.Equal(t, "c", entries[1].ID)
	assert.Equal(t, 404, entries[1].ResponseStatus)
}

func TestParseNDJSONBlankLinesAndNonObjects(t *testing.T) {
	data := []byte("\n\n[1,2,3]\n   \n{\"id\":\"x\"}\r\n{\"id\":\"1\"} garbage\n{\"id\":\"2\"}{\"id\":\"3\"}\n")
	entries := ParseNDJSON(data)
	require.Len(t, entries, 1)
	assert.Equal(t, "x", entries[0].ID)
}

func TestSplitCSVLineQuotedField(t *testing.T) {
	fields, err := SplitCSVLine(`id,"a,""b""",tail`)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", `a,"b"`, "tail"}, fields)
}

func TestParseCSV(t *testing.T) {
	data := []byte(`id,url,method,response_status,processing_time_ms,request_body,query_params
1,/api/users,POST,201,15,"a,""b""","{""page"":[""1"",""2""]}"
short
2,/api/orders,,500,,,
`)
	entries := ParseCSV(data)
	require.Len(t, entries, 2)

	first := entries[0]
	assert.Equal(t, "1", first.ID)
	assert.Equal(t, "POST", first.Method)
	assert.Equal(t, 201, first.ResponseStatus)
	assert.Equal(t, int64(15), first.ProcessingTimeMs)
	require.NotNil(t, first.RequestBody)
	assert.Equal(t, `a,"b"`, *first.RequestBody)
	assert.Equal(t, []string{"1", "2"}, first.QueryParams["page"])

	second := entries[1]
	assert.Equal(t, "GET", second.Method)
	assert.Equal(t, int64(0), second.ProcessingTimeMs)
	assert.Nil(t, second.RequestBody)
	assert.Nil(t, second.QueryParams)
}

func TestParseCSVHeaderOnly(t *testing.T) {
	assert.Empty(t, ParseCSV([]byte("id,url\n")))
	assert.Empty(t, ParseCSV(nil))
}

func TestNormalizeRecordPrefersCamelCase(t *testing.T) {
	e := NormalizeRecord(map[string]any{
		"appName":        "billing",
		"app_name":       "ignored",
		"server_name":    "edge-1",
		"serverPort":     float64(8443),
		"requestTime":    "2024-05-01T10:00:00Z",
		"response_time":  "2024-05-01 10:00:00.250+00",
		"requestHeaders": `{"X-Trace":"abc","Accept":["text/html","application/json"]}`,
	})

	assert.Equal(t, "billing", e.App())
	assert.Equal(t, "edge-1", e.Server())
	require.NotNil(t, e.ServerPort)
	assert.Equal(t, 8443, *e.ServerPort)
	assert.True(t, e.RequestTime.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))
	assert.True(t, e.ResponseTime.Equal(time.Date(2024, 5, 1, 10, 0, 0, 250_000_000, time.UTC)))
	assert.Equal(t, "abc", e.RequestHeaders["X-Trace"])
	assert.Equal(t, "application/json", e.RequestHeaders["Accept"])
}

func TestNormalizeRecordDefaults(t *testing.T) {
	e := NormalizeRecord(map[string]any{"query_params": "{broken"})
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "GET", e.Method)
	assert.Equal(t, 0, e.ResponseStatus)
	assert.Nil(t, e.AppName)
	assert.Nil(t, e.QueryParams)
	assert.True(t, e.RequestTime.IsZero())
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name, format, want string
	}{
		{"logs-2024.csv", "", types.FormatCSV},
		{"logs-2024.CSV", types.FormatNDJSON, types.FormatCSV},
		{"logs.ndjson", types.FormatCSV, types.FormatNDJSON},
		{"logs.jsonl", "", types.FormatNDJSON},
		{"content", types.FormatCSV, types.FormatCSV},
		{"content", "", types.FormatNDJSON},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectFormat(tt.name, tt.format), tt.name)
	}
}

func TestIsLogFile(t *testing.T) {
	assert.True(t, IsLogFile("a.csv", ""))
	assert.True(t, IsLogFile("a.json", ""))
	assert.False(t, IsLogFile("a.txt", ""))
	assert.False(t, IsLogFile("a.json", types.FormatCSV))
	assert.True(t, IsLogFile("a.ndjson", types.FormatNDJSON))
	assert.False(t, IsLogFile("a.csv", types.FormatNDJSON))
}
