// Package tui is a terminal browser for the species catalog. It drives the
// same view-state transitions as the web UI.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hpungsan/fishfacts/internal/catalog"
	"github.com/hpungsan/fishfacts/internal/species"
)

// fetchedMsg carries an upstream response back to Update, tagged with the
// generation of the request that produced it.
type fetchedMsg struct {
	gen     uint64
	op      catalog.Op
	query   string
	records []species.Record
	err     error
}

// Model is the bubbletea model for the catalog browser.
type Model struct {
	ctx     context.Context
	fetcher catalog.Fetcher

	state   catalog.ViewState
	input   textinput.Model
	table   table.Model
	spinner spinner.Model
	styles  styles

	searching bool // search input has focus
	width     int
	height    int
}

// New creates a browser whose initial load is already in flight; Init
// issues the fetch.
func New(ctx context.Context, fetcher catalog.Fetcher) Model {
	ti := textinput.New()
	ti.Placeholder = "Search Fish"
	ti.CharLimit = 100
	ti.Width = 40

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Species", Width: 32},
			{Title: "Calories", Width: 10},
			{Title: "Fat", Width: 10},
			{Title: "Serving Size", Width: 14},
		}),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:     ctx,
		fetcher: fetcher,
		state:   catalog.Begin(catalog.ViewState{Records: []species.Record{}}),
		input:   ti,
		table:   t,
		spinner: sp,
		styles:  defaultStyles(),
	}
}

// State exposes the current view state.
func (m Model) State() catalog.ViewState {
	return m.state
}

// Init starts the initial load.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetch(m.state.Generation, catalog.OpLoad, ""), m.spinner.Tick)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if h := msg.Height - 10; h > 3 {
			m.table.SetHeight(h)
		}
		return m, nil

	case fetchedMsg:
		return m.applyFetch(msg), nil

	case spinner.TickMsg:
		if !m.state.Loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateBrowse(msg)
	}

	return m, nil
}

// updateSearch handles keys while the search input has focus.
func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.searching = false
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		m.searching = false
		m.input.Blur()
		return m.startSearch(m.input.Value())
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.state = catalog.SetQuery(m.state, m.input.Value())
	return m, cmd
}

// updateBrowse handles keys while the table has focus.
func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "q", "esc":
		return m, tea.Quit
	case "/":
		m.searching = true
		return m, m.input.Focus()
	case "1", "2", "3", "4":
		m.state = catalog.Sort(m.state, species.SortKeys[key[0]-'1'])
		m.syncRows()
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) startSearch(query string) (tea.Model, tea.Cmd) {
	m.state = catalog.SetQuery(m.state, query)
	m.state = catalog.Begin(m.state)
	return m, tea.Batch(m.fetch(m.state.Generation, catalog.OpSearch, query), m.spinner.Tick)
}

func (m Model) applyFetch(msg fetchedMsg) Model {
	if msg.gen != m.state.Generation {
		return m
	}
	if msg.err != nil {
		m.state = catalog.Fail(m.state, msg.gen, msg.op)
	} else {
		m.state = catalog.Complete(m.state, msg.gen, msg.op, msg.records, msg.query)
	}
	if msg.op == catalog.OpSearch {
		m.input.SetValue(m.state.Query)
	}
	m.syncRows()
	return m
}

func (m *Model) syncRows() {
	rows := make([]table.Row, len(m.state.Records))
	for i, rec := range m.state.Records {
		rows[i] = table.Row{rec.Name(), rec.Calories(), rec.FatTotal(), rec.ServingWeight()}
	}
	m.table.SetRows(rows)
	m.table.GotoTop()
}

func (m Model) fetch(gen uint64, op catalog.Op, query string) tea.Cmd {
	ctx, fetcher := m.ctx, m.fetcher
	return func() tea.Msg {
		records, err := fetcher.FetchSpecies(ctx)
		return fetchedMsg{gen: gen, op: op, query: query, records: records, err: err}
	}
}

// View renders the browser.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(m.styles.title.Render("Fish Nutrition Search"))
	sb.WriteString("\n\n")

	inputStyle := m.styles.input
	if m.searching {
		inputStyle = inputStyle.BorderForeground(m.styles.accent)
	}
	sb.WriteString(inputStyle.Render(m.input.View()))
	sb.WriteString("\n")
	sb.WriteString(m.renderSortBar())
	sb.WriteString("\n\n")

	switch msg := m.state.Message(); {
	case m.state.Loading:
		sb.WriteString(m.spinner.View() + " " + m.styles.message.Render(msg))
	case msg != "":
		sb.WriteString(m.styles.message.Render(msg))
	default:
		sb.WriteString(m.table.View())
	}
	sb.WriteString("\n")

	if footer := m.state.Footer(); footer != "" {
		sb.WriteString(m.styles.muted.Render(footer))
		sb.WriteString("\n")
	}

	sb.WriteString(m.styles.muted.Render("[/] Search  [1-4] Sort  [q] Quit"))
	return sb.String()
}

func (m Model) renderSortBar() string {
	parts := make([]string, len(species.SortKeys))
	for i, key := range species.SortKeys {
		label := fmt.Sprintf("%d %s", i+1, key)
		if key == m.state.Sort {
			parts[i] = m.styles.selected.Render(label)
		} else {
			parts[i] = m.styles.muted.Render(label)
		}
	}
	return "Sort: " + strings.Join(parts, "  ")
}

type styles struct {
	accent   lipgloss.Color
	title    lipgloss.Style
	input    lipgloss.Style
	message  lipgloss.Style
	muted    lipgloss.Style
	selected lipgloss.Style
}

func defaultStyles() styles {
	accent := lipgloss.Color("39")
	return styles{
		accent: accent,
		title:  lipgloss.NewStyle().Bold(true).Foreground(accent),
		input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		message:  lipgloss.NewStyle().Italic(true),
		muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		selected: lipgloss.NewStyle().Foreground(accent).Bold(true).Underline(true),
	}
}

// Run starts the browser on the terminal and blocks until the user quits.
func Run(ctx context.Context, fetcher catalog.Fetcher) error {
	p := tea.NewProgram(New(ctx, fetcher), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
