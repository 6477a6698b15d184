package cli

import (
	"fmt"
	"sort"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/arksynth/arksynth/internal/loaders"
)

// pickerGroup is one story group as the picker displays it: an id, a
// label, and its episode ids in render order.
type pickerGroup struct {
	id       string
	label    string
	episodes []string
}

var (
	pickerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#7D56F4")).
				MarginBottom(1)

	pickerCursorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#7D56F4")).
				Bold(true)

	pickerDimStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#555555"))

	pickerHelpStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#626262")).
				MarginTop(1)

	pickerSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#04B575")).
				Bold(true)
)

// pickerPane tracks which list the picker is currently navigating.
type pickerPane int

const (
	paneGroups pickerPane = iota
	paneEpisodes
)

type pickerModel struct {
	groups       []pickerGroup
	pane         pickerPane
	groupCursor  int
	episodeCursor int

	episodeID string
	groupID   string
	confirmed bool
	cancelled bool
}

func newPickerModel(groups []pickerGroup) pickerModel {
	return pickerModel{groups: groups}
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "ctrl+c", "q":
		m.cancelled = true
		return m, tea.Quit
	case "esc":
		if m.pane == paneEpisodes {
			m.pane = paneGroups
			return m, nil
		}
		m.cancelled = true
		return m, tea.Quit
	case "up", "k":
		m.moveCursor(-1)
	case "down", "j":
		m.moveCursor(1)
	case "g":
		if len(m.groups) == 0 {
			return m, nil
		}
		m.groupID = m.groups[m.groupCursor].id
		m.confirmed = true
		return m, tea.Quit
	case "enter":
		if m.pane == paneGroups {
			if len(m.groups) == 0 {
				return m, nil
			}
			m.pane = paneEpisodes
			m.episodeCursor = 0
			return m, nil
		}
		group := m.groups[m.groupCursor]
		if m.episodeCursor < len(group.episodes) {
			m.episodeID = group.episodes[m.episodeCursor]
			m.confirmed = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *pickerModel) moveCursor(delta int) {
	if m.pane == paneGroups {
		n := len(m.groups)
		if n == 0 {
			return
		}
		m.groupCursor = (m.groupCursor + delta + n) % n
		return
	}
	n := len(m.groups[m.groupCursor].episodes)
	if n == 0 {
		return
	}
	m.episodeCursor = (m.episodeCursor + delta + n) % n
}

func (m pickerModel) View() string {
	var out string
	switch m.pane {
	case paneGroups:
		out += pickerTitleStyle.Render("Select a story group") + "\n"
		for i, g := range m.groups {
			line := fmt.Sprintf("%s (%d episodes)", g.label, len(g.episodes))
			out += renderPickerLine(line, i == m.groupCursor) + "\n"
		}
		out += pickerHelpStyle.Render("↑/↓ move · enter open group · g render whole group · q quit")
	case paneEpisodes:
		group := m.groups[m.groupCursor]
		out += pickerTitleStyle.Render(fmt.Sprintf("%s — select an episode", group.label)) + "\n"
		for i, ep := range group.episodes {
			out += renderPickerLine(ep, i == m.episodeCursor) + "\n"
		}
		out += pickerHelpStyle.Render("↑/↓ move · enter render episode · g render whole group · esc back · q quit")
	}
	return out
}

func renderPickerLine(label string, selected bool) string {
	if selected {
		return pickerCursorStyle.Render("> ") + pickerSelectedStyle.Render(label)
	}
	return pickerDimStyle.Render("  " + label)
}

// loadPickerGroups derives the group/episode listing the picker displays
// from the same review table the Story Index builds its own grouping
// from, since Index exposes lookups by id rather than a full listing.
func loadPickerGroups(l *loaders.Loaders) ([]pickerGroup, error) {
	tables, err := l.Index().Tables()
	if err != nil {
		return nil, err
	}

	type accum struct {
		label    string
		episodes []string
		sorts    []int
	}
	byGroup := make(map[string]*accum)
	for id, rev := range tables.Reviews {
		a, ok := byGroup[rev.GroupID]
		if !ok {
			a = &accum{label: rev.GroupID}
			byGroup[rev.GroupID] = a
		}
		a.episodes = append(a.episodes, id)
		a.sorts = append(a.sorts, rev.StorySort)
	}

	groups := make([]pickerGroup, 0, len(byGroup))
	for id, a := range byGroup {
		order := make([]int, len(a.episodes))
		for i := range order {
			order[i] = i
		}
		sort.Slice(order, func(i, j int) bool { return a.sorts[order[i]] < a.sorts[order[j]] })
		episodes := make([]string, len(a.episodes))
		for i, idx := range order {
			episodes[i] = a.episodes[idx]
		}
		groups = append(groups, pickerGroup{id: id, label: a.label, episodes: episodes})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].id < groups[j].id })
	return groups, nil
}

// runInteractivePicker launches the Bubble Tea group/episode picker and
// returns whichever the user selected: an episode id with groupID empty,
// or a group id with episodeID empty.
func runInteractivePicker(gameDataDir, voiceMapPath, modelsRoot string) (episodeID, groupID string, err error) {
	l := loaders.New(gameDataDir, voiceMapPath, modelsRoot)
	groups, err := loadPickerGroups(l)
	if err != nil {
		return "", "", err
	}

	p := tea.NewProgram(newPickerModel(groups), tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return "", "", fmt.Errorf("picker error: %w", err)
	}

	final := result.(pickerModel)
	if final.cancelled || !final.confirmed {
		return "", "", fmt.Errorf("no episode or group selected")
	}
	return final.episodeID, final.groupID, nil
}
