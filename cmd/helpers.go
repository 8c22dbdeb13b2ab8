package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/vietdv277/logmux/internal/app"
	"github.com/vietdv277/logmux/pkg/types"
)

// signalContext is cancelled on Ctrl-C or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseTimeFlag accepts RFC3339, a plain date, or a duration meaning that
// long before now ("15m", "2h").
func parseTimeFlag(value string, now time.Time) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if d, err := time.ParseDuration(value); err == nil {
		t := now.Add(-d)
		return &t, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid time %q: use RFC3339, YYYY-MM-DD or a duration like 30m", value)
}

// selectSources resolves refs, or falls back to the active sources
func selectSources(a *app.App, refs []string) ([]types.LogSource, error) {
	if len(refs) == 0 {
		return a.Store.Active(), nil
	}
	out := make([]types.LogSource, 0, len(refs))
	for _, ref := range refs {
		src, err := a.Store.Get(ref)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}
