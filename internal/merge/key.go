package merge

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"

	"github.com/vietdv277/logmux/pkg/types"
)

// QueryKey identifies a merged query: the selected source ids in order plus
// the normalized query, tick included.
func QueryKey(sources []types.LogSource, q types.Query) string {
	ids := make([]string, len(sources))
	for i, s := range sources {
		ids[i] = s.ID
	}
	b, _ := json.Marshal(struct {
		Sources []string    `json:"sources"`
		Query   types.Query `json:"query"`
	}{ids, q.Normalize()})
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:12])
}

// Tracker remembers the most recently issued query key so results of
// superseded queries can be dropped when they arrive.
type Tracker struct {
	mu      sync.Mutex
	current string
}

// Begin marks key as the current query
func (t *Tracker) Begin(key string) {
	t.mu.Lock()
	t.current = key
	t.mu.Unlock()
}

// Current reports whether key is still the current query
func (t *Tracker) Current(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return key == t.current
}
