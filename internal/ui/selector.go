package ui

import (
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/vietdv277/logmux/pkg/types"
)

const (
	listHeight    = 8
	minWidth      = 60
	maxWidth      = 120
	colWidthCheck = 4
	colWidthType  = 12
)

// SelectorModel is the bubbletea model for picking the active sources
type SelectorModel struct {
	sources      []types.LogSource
	filtered     []types.LogSource
	checked      map[string]bool
	cursor       int
	offset       int
	search       string
	quitting     bool
	cancelled    bool
	termWidth    int
	contentWidth int
}

// NewSelectorModel creates a selector with preselected ids checked
func NewSelectorModel(sources []types.LogSource, preselected []string) SelectorModel {
	m := SelectorModel{
		sources:   sources,
		filtered:  sources,
		checked:   make(map[string]bool),
		termWidth: 80,
	}
	for _, id := range preselected {
		m.checked[id] = true
	}
	m.calculateWidths()
	return m
}

func (m *SelectorModel) calculateWidths() {
	m.contentWidth = min(max(m.termWidth-2, minWidth), maxWidth)
}

// Init implements tea.Model
func (m SelectorModel) Init() tea.Cmd {
	return tea.WindowSize()
}

// Update implements tea.Model
func (m SelectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.termWidth = msg.Width
		m.calculateWidths()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			m.cancelled = true
			return m, tea.Quit

		case tea.KeyEnter:
			m.quitting = true
			return m, tea.Quit

		case tea.KeySpace, tea.KeyTab:
			if len(m.filtered) > 0 {
				id := m.filtered[m.cursor].ID
				m.checked[id] = !m.checked[id]
			}

		case tea.KeyUp:
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}

		case tea.KeyDown:
			if m.cursor < len(m.filtered)-1 {
				m.cursor++
				if m.cursor >= m.offset+listHeight {
					m.offset = m.cursor - listHeight + 1
				}
			}

		case tea.KeyBackspace:
			if len(m.search) > 0 {
				m.search = m.search[:len(m.search)-1]
				m.filterSources()
			}

		case tea.KeyRunes:
			m.search += string(msg.Runes)
			m.filterSources()
		}
	}

	return m, nil
}

func (m *SelectorModel) filterSources() {
	if m.search == "" {
		m.filtered = m.sources
	} else {
		q := strings.ToLower(m.search)
		m.filtered = nil
		for _, src := range m.sources {
			if strings.Contains(strings.ToLower(src.Name), q) ||
				strings.Contains(string(src.Type), q) {
				m.filtered = append(m.filtered, src)
			}
		}
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = max(len(m.filtered)-1, 0)
	}
	m.offset = 0
}

// Selected returns the checked ids in configuration order
func (m SelectorModel) Selected() []string {
	var ids []string
	for _, src := range m.sources {
		if m.checked[src.ID] {
			ids = append(ids, src.ID)
		}
	}
	return ids
}

// View implements tea.Model
func (m SelectorModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	w := m.contentWidth
	blank := BorderStyle.Render(Vertical) + strings.Repeat(" ", w) + BorderStyle.Render(Vertical) + "\n"

	sb.WriteString(BorderStyle.Render(TopLeft + strings.Repeat(Horizontal, w) + TopRight))
	sb.WriteString("\n")

	sb.WriteString(BorderStyle.Render(Vertical))
	sb.WriteString(NameStyle.Render(padRight(" > "+m.search, w)))
	sb.WriteString(BorderStyle.Render(Vertical))
	sb.WriteString("\n")
	sb.WriteString(blank)

	end := min(m.offset+listHeight, len(m.filtered))
	for i := m.offset; i < end; i++ {
		sb.WriteString(m.renderRow(i))
	}
	for i := end - m.offset; i < listHeight; i++ {
		sb.WriteString(blank)
	}

	sb.WriteString(BorderStyle.Render(BottomLeft + strings.Repeat(Horizontal, w) + BottomRight))
	sb.WriteString("\n")

	count := fmt.Sprintf("  %d/%d sources, %d selected", len(m.filtered), len(m.sources), len(m.Selected()))
	hints := "[Space:toggle] [Enter:confirm] [Esc:cancel]"
	sb.WriteString(count)
	if pad := w + 2 - runewidth.StringWidth(count) - runewidth.StringWidth(hints); pad > 0 {
		sb.WriteString(strings.Repeat(" ", pad))
	}
	sb.WriteString(HintStyle.Render(hints))
	sb.WriteString("\n")

	return sb.String()
}

func (m SelectorModel) renderRow(idx int) string {
	src := m.filtered[idx]
	w := m.contentWidth

	cursor := "   "
	if idx == m.cursor {
		cursor = " > "
	}
	check := "[ ]"
	if m.checked[src.ID] {
		check = "[x]"
	}
	state := ""
	if !src.Enabled {
		state = " (disabled)"
	}

	nameWidth := max(w-3-colWidthCheck-colWidthType-2, 10)
	line := cursor +
		IDStyle.Render(padRight(check, colWidthCheck)) +
		SourceStyle(src.Color).Render(padRight(src.Name+state, nameWidth)) + "  " +
		MutedStyle.Render(padRight(string(src.Type), colWidthType))

	plain := 3 + colWidthCheck + nameWidth + 2 + colWidthType
	if plain < w {
		line += strings.Repeat(" ", w-plain)
	}
	return BorderStyle.Render(Vertical) + line + BorderStyle.Render(Vertical) + "\n"
}

// SelectSources displays an interactive multi-select and returns the
// checked source ids
func SelectSources(sources []types.LogSource, preselected []string) ([]string, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no sources configured")
	}

	p := tea.NewProgram(NewSelectorModel(sources, slices.Clone(preselected)))
	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("error running selector: %w", err)
	}

	result := finalModel.(SelectorModel)
	if result.cancelled {
		return nil, fmt.Errorf("selection cancelled")
	}
	return result.Selected(), nil
}
