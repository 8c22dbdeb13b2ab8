package config

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/vietdv277/logmux/pkg/provider"
	"github.com/vietdv277/logmux/pkg/types"
)

// DocumentVersion is the export format version
const DocumentVersion = 1

// ImportMode selects how imported sources combine with existing ones
type ImportMode string

const (
	// ImportMerge adds sources whose id is not present yet
	ImportMerge ImportMode = "merge"
	// ImportReplace discards every existing source first
	ImportReplace ImportMode = "replace"
)

// Document is the export/import file
type Document struct {
	Version    int               `json:"version"`
	ExportedAt time.Time         `json:"exportedAt"`
	Sources    []types.LogSource `json:"sources"`
}

// ImportResult counts what an import did
type ImportResult struct {
	Added   int
	Skipped int
}

// Export renders every source as an indented JSON document
func (s *Store) Export() ([]byte, error) {
	s.mu.Lock()
	doc := Document{
		Version:    DocumentVersion,
		ExportedAt: s.now().UTC(),
		Sources:    slices.Clone(s.cfg.Sources),
	}
	s.mu.Unlock()

	if doc.Sources == nil {
		doc.Sources = []types.LogSource{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export: %w", err)
	}
	return data, nil
}

// ParseDocument decodes and validates an export document. Every source must
// carry an id, a name and a type; one bad element rejects the document.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse import document: %w", err)
	}
	if doc.Version > DocumentVersion {
		return nil, fmt.Errorf("unsupported document version %d", doc.Version)
	}
	if doc.Sources == nil {
		return nil, fmt.Errorf("%w: document has no sources array", provider.ErrInvalidSource)
	}
	for i, src := range doc.Sources {
		if src.ID == "" || src.Name == "" || src.Type == "" {
			return nil, fmt.Errorf("%w: source %d needs an id, name and type", provider.ErrInvalidSource, i)
		}
	}
	return &doc, nil
}

// Import applies an export document. Imported sources keep their ids,
// colors and creation times.
func (s *Store) Import(data []byte, mode ImportMode) (ImportResult, error) {
	doc, err := ParseDocument(data)
	if err != nil {
		return ImportResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var res ImportResult
	switch mode {
	case ImportReplace:
		s.cfg.Sources = slices.Clone(doc.Sources)
		res.Added = len(doc.Sources)
		s.cfg.Selected = slices.DeleteFunc(s.cfg.Selected, func(id string) bool {
			return !slices.ContainsFunc(s.cfg.Sources, func(src types.LogSource) bool { return src.ID == id })
		})
	case ImportMerge, "":
		for _, src := range doc.Sources {
			if slices.ContainsFunc(s.cfg.Sources, func(existing types.LogSource) bool { return existing.ID == src.ID }) {
				res.Skipped++
				continue
			}
			s.cfg.Sources = append(s.cfg.Sources, src)
			res.Added++
		}
	default:
		return ImportResult{}, fmt.Errorf("unknown import mode %q", mode)
	}

	if err := s.save(); err != nil {
		return ImportResult{}, err
	}
	return res, nil
}
