package types

import "time"

// SourceType discriminates the four kinds of log source
type SourceType string

const (
	SourceAPI        SourceType = "api"
	SourceSupabase   SourceType = "supabase"
	SourceSupabaseS3 SourceType = "supabase-s3"
	SourceFile       SourceType = "file"
)

// SourceTypes lists every supported kind in display order
var SourceTypes = []SourceType{SourceAPI, SourceSupabase, SourceSupabaseS3, SourceFile}

// Valid reports whether t is one of the known kinds
func (t SourceType) Valid() bool {
	for _, s := range SourceTypes {
		if s == t {
			return true
		}
	}
	return false
}

// File encodings understood by the batch-file sources
const (
	FormatNDJSON = "ndjson"
	FormatCSV    = "csv"
)

// DefaultMaxFiles caps how many batch files are loaded when a source does not say
const DefaultMaxFiles = 10

// LogSource is one configured origin of log entries.
// Only the fields relevant to Type are populated.
type LogSource struct {
	ID      string     `json:"id" yaml:"id"`
	Name    string     `json:"name" yaml:"name"`
	Type    SourceType `json:"type" yaml:"type"`
	Enabled bool       `json:"enabled" yaml:"enabled"`
	Color   string     `json:"color" yaml:"color"`

	// api, file
	BaseURL  string `json:"baseUrl,omitempty" yaml:"base_url,omitempty"`
	BasePath string `json:"basePath,omitempty" yaml:"base_path,omitempty"`
	APIKey   string `json:"apiKey,omitempty" yaml:"api_key,omitempty"`

	// supabase, supabase-s3
	ProjectURL string `json:"projectUrl,omitempty" yaml:"project_url,omitempty"`
	AccessKey  string `json:"accessKey,omitempty" yaml:"access_key,omitempty"`

	// supabase
	Table       string `json:"table,omitempty" yaml:"table,omitempty"`
	DatabaseURL string `json:"databaseUrl,omitempty" yaml:"database_url,omitempty"`

	// supabase-s3
	Bucket      string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Prefix      string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	AccessKeyID string `json:"accessKeyId,omitempty" yaml:"access_key_id,omitempty"`
	Region      string `json:"region,omitempty" yaml:"region,omitempty"`

	// file (file mode), supabase-s3
	Directory  string `json:"directory,omitempty" yaml:"directory,omitempty"`
	FileFormat string `json:"fileFormat,omitempty" yaml:"file_format,omitempty"`
	MaxFiles   int    `json:"maxFiles,omitempty" yaml:"max_files,omitempty"`

	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
}

// FileMode reports whether a file source lists and downloads batch files
// instead of talking to the paginated REST backend.
func (s *LogSource) FileMode() bool {
	return s.Type == SourceFile && (s.Directory != "" || s.FileFormat != "")
}

// FileLimit returns MaxFiles or the default when unset
func (s *LogSource) FileLimit() int {
	if s.MaxFiles > 0 {
		return s.MaxFiles
	}
	return DefaultMaxFiles
}

// Palette is the fixed set of display colors handed out to new sources
var Palette = []string{
	"#3b82f6", // blue
	"#10b981", // emerald
	"#f59e0b", // amber
	"#ef4444", // red
	"#8b5cf6", // violet
	"#ec4899", // pink
	"#06b6d4", // cyan
	"#84cc16", // lime
}

// NextColor picks the first palette color not already in use.
// Once every color is taken it cycles by the number of sources.
func NextColor(existing []LogSource) string {
	used := make(map[string]bool, len(existing))
	for _, s := range existing {
		used[s.Color] = true
	}
	for _, c := range Palette {
		if !used[c] {
			return c
		}
	}
	return Palette[len(existing)%len(Palette)]
}

// FileInfo describes one batch file available from a file-backed source
type FileInfo struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}
