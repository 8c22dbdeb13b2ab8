package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vietdv277/logmux/internal/merge"
	"github.com/vietdv277/logmux/pkg/types"
)

// FetchFunc runs one merged query
type FetchFunc func(ctx context.Context, q types.Query) *types.MergedPage

type pageMsg struct {
	key  string
	page *types.MergedPage
}

type refreshMsg struct{}

// LiveModel is a bubbletea view that re-runs a merged query on demand and
// on a fixed interval. Results of superseded queries are discarded.
type LiveModel struct {
	ctx      context.Context
	fetch    FetchFunc
	sources  []types.LogSource
	query    types.Query
	interval time.Duration
	tracker  *merge.Tracker

	page     *types.MergedPage
	loading  bool
	quitting bool
	updated  time.Time
}

// NewLiveModel creates a live view. A zero interval disables auto refresh.
func NewLiveModel(ctx context.Context, sources []types.LogSource, q types.Query, interval time.Duration, fetch FetchFunc) LiveModel {
	return LiveModel{
		ctx:      ctx,
		fetch:    fetch,
		sources:  sources,
		query:    q.Normalize(),
		interval: interval,
		tracker:  &merge.Tracker{},
		loading:  true,
	}
}

// Query returns the query the view currently shows
func (m LiveModel) Query() types.Query {
	return m.query
}

// Page returns the last applied result
func (m LiveModel) Page() *types.MergedPage {
	return m.page
}

// Init implements tea.Model
func (m LiveModel) Init() tea.Cmd {
	return tea.Batch(m.load(), m.schedule())
}

func (m LiveModel) load() tea.Cmd {
	key := merge.QueryKey(m.sources, m.query)
	m.tracker.Begin(key)
	ctx, fetch, q := m.ctx, m.fetch, m.query
	return func() tea.Msg {
		return pageMsg{key: key, page: fetch(ctx, q)}
	}
}

func (m LiveModel) schedule() tea.Cmd {
	if m.interval <= 0 {
		return nil
	}
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return refreshMsg{} })
}

// Update implements tea.Model
func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case pageMsg:
		if !m.tracker.Current(msg.key) {
			return m, nil
		}
		m.page = msg.page
		m.loading = false
		m.updated = time.Now()
		return m, nil

	case refreshMsg:
		m.query.Tick++
		m.loading = true
		return m, tea.Batch(m.load(), m.schedule())

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.quitting = true
			return m, tea.Quit
		case "r":
			m.query.Tick++
			m.loading = true
			return m, m.load()
		case "n", "right":
			if m.page != nil && m.query.Page+1 < m.page.TotalPages {
				m.query.Page++
				m.loading = true
				return m, m.load()
			}
		case "p", "left":
			if m.query.Page > 0 {
				m.query.Page--
				m.loading = true
				return m, m.load()
			}
		}
	}
	return m, nil
}

// View implements tea.Model
func (m LiveModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	status := "loading..."
	if !m.loading && m.page != nil {
		status = "updated " + m.updated.Format("15:04:05")
	}
	sb.WriteString(HeaderStyle.Render(fmt.Sprintf(" logmux live  %d sources  refresh #%d", len(m.sources), m.query.Tick)))
	sb.WriteString("  " + MutedStyle.Render(status) + "\n")

	if m.page != nil {
		sb.WriteString(RenderEntries(m.page))
	}
	sb.WriteString(HintStyle.Render("  [r:refresh] [n:next] [p:prev] [q:quit]"))
	sb.WriteString("\n")
	return sb.String()
}

// RunLive starts the live view and blocks until the user quits
func RunLive(ctx context.Context, sources []types.LogSource, q types.Query, interval time.Duration, fetch FetchFunc) error {
	p := tea.NewProgram(NewLiveModel(ctx, sources, q, interval, fetch), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running live view: %w", err)
	}
	return nil
}
