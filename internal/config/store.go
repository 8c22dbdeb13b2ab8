package config

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietdv277/logmux/pkg/provider"
	"github.com/vietdv277/logmux/pkg/types"
)

// Store is the persisted source registry. Every mutation is written back
// to the config file before it returns.
type Store struct {
	mu   sync.Mutex
	path string
	cfg  *Config
	now  func() time.Time
}

// StoreOption customizes a Store
type StoreOption func(*Store)

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// Open loads the store backed by path
func Open(path string, opts ...StoreOption) (*Store, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the backing file
func (s *Store) Path() string {
	return s.path
}

// Defaults returns the configured defaults
func (s *Store) Defaults() Defaults {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.cfg.Defaults
}

// Sources returns every configured source in creation order
func (s *Store) Sources() []types.LogSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.cfg.Sources)
}

// Selected returns the ids in the active selection
func (s *Store) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.cfg.Selected)
}

// Active returns the sources that are both selected and enabled
func (s *Store) Active() []types.LogSource {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []types.LogSource
	for _, src := range s.cfg.Sources {
		if src.Enabled && slices.Contains(s.cfg.Selected, src.ID) {
			out = append(out, src)
		}
	}
	return out
}

// Get finds a source by id, or by name when no id matches
func (s *Store) Get(ref string) (types.LogSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(ref)
	if i < 0 {
		return types.LogSource{}, fmt.Errorf("source %q not found", ref)
	}
	return s.cfg.Sources[i], nil
}

func (s *Store) indexOf(ref string) int {
	for i, src := range s.cfg.Sources {
		if src.ID == ref {
			return i
		}
	}
	for i, src := range s.cfg.Sources {
		if strings.EqualFold(src.Name, ref) {
			return i
		}
	}
	return -1
}

// Validate checks the fields every source needs
func Validate(src types.LogSource) error {
	if strings.TrimSpace(src.Name) == "" {
		return fmt.Errorf("%w: name is required", provider.ErrInvalidSource)
	}
	if !src.Type.Valid() {
		return fmt.Errorf("%w: unsupported type %q", provider.ErrInvalidSource, src.Type)
	}
	if src.FileFormat != "" && src.FileFormat != types.FormatNDJSON && src.FileFormat != types.FormatCSV {
		return fmt.Errorf("%w: unsupported file format %q", provider.ErrInvalidSource, src.FileFormat)
	}
	return nil
}

// Add stores a new source with a fresh id, a palette color and a creation
// time, and adds it to the selection.
func (s *Store) Add(src types.LogSource) (types.LogSource, error) {
	if err := Validate(src); err != nil {
		return types.LogSource{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	src.ID = uuid.NewString()
	if src.Color == "" {
		src.Color = types.NextColor(s.cfg.Sources)
	}
	src.CreatedAt = s.now().UTC()

	s.cfg.Sources = append(s.cfg.Sources, src)
	s.cfg.Selected = append(s.cfg.Selected, src.ID)
	if err := s.save(); err != nil {
		return types.LogSource{}, err
	}
	return src, nil
}

// Update applies edit to the source and returns its state before and after.
// The id, type and creation time cannot be edited.
func (s *Store) Update(ref string, edit func(*types.LogSource)) (before, after types.LogSource, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(ref)
	if i < 0 {
		return before, after, fmt.Errorf("source %q not found", ref)
	}
	before = s.cfg.Sources[i]
	after = before
	edit(&after)
	after.ID, after.Type, after.CreatedAt = before.ID, before.Type, before.CreatedAt

	if err := Validate(after); err != nil {
		return before, after, err
	}
	s.cfg.Sources[i] = after
	if err := s.save(); err != nil {
		return before, after, err
	}
	return before, after, nil
}

// Remove deletes the source and drops it from the selection
func (s *Store) Remove(ref string) (types.LogSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(ref)
	if i < 0 {
		return types.LogSource{}, fmt.Errorf("source %q not found", ref)
	}
	removed := s.cfg.Sources[i]
	s.cfg.Sources = slices.Delete(s.cfg.Sources, i, i+1)
	s.cfg.Selected = slices.DeleteFunc(s.cfg.Selected, func(id string) bool { return id == removed.ID })

	if err := s.save(); err != nil {
		return types.LogSource{}, err
	}
	return removed, nil
}

// Select replaces the selection. Every reference must resolve.
func (s *Store) Select(refs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		i := s.indexOf(ref)
		if i < 0 {
			return fmt.Errorf("source %q not found", ref)
		}
		if id := s.cfg.Sources[i].ID; !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	s.cfg.Selected = ids
	return s.save()
}

func (s *Store) save() error {
	return SaveConfig(s.path, s.cfg)
}
