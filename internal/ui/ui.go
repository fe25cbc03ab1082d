package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/trax/internal/engine"
	"github.com/desertthunder/trax/internal/models"
	"github.com/desertthunder/trax/internal/requests"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	CatalogView ViewState = iota
	RequestsView
	StatsView
)

type snapshotMsg struct {
	tracks []models.Track
	tally  []requests.TallyEntry
	stats  engine.Stats
}

// Model represents the TUI application state.
type Model struct {
	engine      *engine.Engine
	view        ViewState
	width       int
	height      int
	trackList   list.Model
	requestList list.Model
	stats       engine.Stats
	loaded      bool
	help        help.Model
	keys        keyMap
}

// NewModel creates a new TUI model over a running engine.
func NewModel(eng *engine.Engine) *Model {
	trackList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	trackList.Title = "Catalog"
	requestList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	requestList.Title = "Pending Requests"

	return &Model{
		engine:      eng,
		view:        CatalogView,
		trackList:   trackList,
		requestList: requestList,
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

// Init loads the first snapshot from the engine.
func (m *Model) Init() tea.Cmd {
	return m.loadSnapshot()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.trackList.SetSize(msg.Width-4, msg.Height-8)
		m.requestList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.view = (m.view + 1) % 3
			return m, nil
		case "r":
			return m, m.loadSnapshot()
		}
		return m.updateLists(msg)

	case snapshotMsg:
		trackItems := make([]list.Item, len(msg.tracks))
		for i, track := range msg.tracks {
			trackItems[i] = trackItem{track: track}
		}
		m.trackList = list.New(trackItems, list.NewDefaultDelegate(), 0, 0)
		m.trackList.Title = fmt.Sprintf("Catalog (%d tracks)", len(msg.tracks))

		requestItems := make([]list.Item, len(msg.tally))
		for i, entry := range msg.tally {
			requestItems[i] = requestItem{entry: entry}
		}
		m.requestList = list.New(requestItems, list.NewDefaultDelegate(), 0, 0)
		m.requestList.Title = fmt.Sprintf("Pending Requests (%d)", len(msg.tally))

		m.stats = msg.stats
		m.loaded = true
		if m.width > 0 {
			m.trackList.SetSize(m.width-4, m.height-8)
			m.requestList.SetSize(m.width-4, m.height-8)
		}
		return m, nil
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if !m.loaded {
		return styles.help.Render("Loading...")
	}

	switch m.view {
	case CatalogView:
		return m.renderList(m.trackList)
	case RequestsView:
		return m.renderList(m.requestList)
	case StatsView:
		return m.renderStats()
	default:
		return ""
	}
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case CatalogView:
		m.trackList, cmd = m.trackList.Update(msg)
	case RequestsView:
		m.requestList, cmd = m.requestList.Update(msg)
	}
	return m, cmd
}

func (m *Model) loadSnapshot() tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg{
			tracks: m.engine.Tracks(),
			tally:  m.engine.MissingTally(),
			stats:  m.engine.Summary(),
		}
	}
}

func (m *Model) renderList(l list.Model) string {
	helpView := m.help.ShortHelpView(m.keys.ShortHelp())
	return fmt.Sprintf("%s\n\n%s", l.View(), helpView)
}

func (m *Model) renderStats() string {
	title := styles.title.Render("Library Stats")
	info := fmt.Sprintf(
		"\nUsers: %s\nTracks: %s\nPending requests: %s\nRevenue: %s",
		styles.ok.Render(fmt.Sprintf("%d", m.stats.Users)),
		styles.ok.Render(fmt.Sprintf("%d", m.stats.Tracks)),
		styles.warn.Render(fmt.Sprintf("%d", m.stats.PendingRequests)),
		styles.ok.Render(fmt.Sprintf("₹%.2f", m.stats.Revenue)),
	)

	helpView := m.help.ShortHelpView(m.keys.ShortHelp())
	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}
