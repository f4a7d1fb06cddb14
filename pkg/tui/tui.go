package tui

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	textinput "github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/unowned-ai/quire/pkg/entries"
	"github.com/unowned-ai/quire/pkg/query"
)

const (
	viewPublished = iota
	viewDrafts
)

var viewNames = []string{"Published", "Drafts"}

type model struct {
	svc      *query.Service
	pageSize int

	results []query.Result
	query   string // active search; empty while browsing a view

	columnFocus int // 0 = views, 1 = entries
	width       int // Current terminal width (for layout)
	height      int // Current terminal height
	err         error

	dbFilename string

	quitting bool

	viewCursor  int // Index of selected view
	entryCursor int // Index of selected entry

	searching   bool
	searchInput textinput.Model

	entryDeleting         bool
	entryDeleteConfirmIdx int // 0 = "Yes" selected, 1 = "No"
}

// Initialize TUI model
func initModel(db *sql.DB, svc *query.Service, pageSize int) model {
	_, file := getDbPragmaList(db)

	search := textinput.New()
	search.Placeholder = "search terms"
	search.CharLimit = 256

	return model{
		svc:         svc,
		pageSize:    pageSize,
		results:     []query.Result{},
		dbFilename:  filepath.Base(file),
		searchInput: search,
	}
}

func (m model) Init() tea.Cmd {
	return m.reload()
}

func (m model) page() entries.Page {
	return entries.Page{Limit: m.pageSize}
}

// reload re-runs whatever produced the current entry list.
func (m model) reload() tea.Cmd {
	if m.query != "" {
		return searchEntries(m.svc, m.query, m.page())
	}
	return listEntries(m.svc, m.viewCursor == viewDrafts, m.page())
}

func (m model) selected() (query.Result, bool) {
	if m.entryCursor < 0 || m.entryCursor >= len(m.results) {
		return query.Result{}, false
	}
	return m.results[m.entryCursor], true
}

// Processes events like window resize, errors, loaded data, and key presses
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case error:
		m.err = msg
		return m, nil

	case entriesMsg:
		m.err = nil
		m.results = msg.results
		m.query = msg.query
		m.entryCursor = 0
		return m, nil

	case entryUpdatedMsg:
		m.err = nil
		// A publish toggle moves the entry to the other view.
		return m, m.reload()

	case entryDeletedMsg:
		m.err = nil
		for i, r := range m.results {
			if r.ID == msg.id {
				m.results = append(m.results[:i], m.results[i+1:]...)
				break
			}
		}
		if m.entryCursor >= len(m.results) && m.entryCursor > 0 {
			m.entryCursor--
		}
		if len(m.results) == 0 {
			m.columnFocus = 0
		}
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			switch msg.Type {
			case tea.KeyEnter:
				m.searching = false
				m.searchInput.Blur()
				m.query = strings.TrimSpace(m.searchInput.Value())
				m.columnFocus = 1
				return m, m.reload()

			case tea.KeyEsc:
				m.searching = false
				m.searchInput.Blur()
				return m, nil
			}

			var cmd tea.Cmd
			m.searchInput, cmd = m.searchInput.Update(msg)
			return m, cmd
		}

		if m.entryDeleting {
			switch msg.String() {
			case "up", "k":
				m.entryDeleteConfirmIdx = 0

			case "down", "j":
				m.entryDeleteConfirmIdx = 1

			case "enter":
				m.entryDeleting = false
				entry, ok := m.selected()
				if m.entryDeleteConfirmIdx == 0 && ok {
					return m, deleteEntry(m.svc, entry.ID)
				}

			case "esc":
				m.entryDeleting = false
			}
			return m, nil
		}

		// Root Navigation Mode
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			// Exit alt screen before quitting so the goodbye message displays
			return m, tea.Sequence(tea.ExitAltScreen, tea.Quit)

		case "up", "k":
			if m.columnFocus == 0 && m.viewCursor > 0 {
				m.viewCursor--
				m.query = ""
				return m, m.reload()
			}
			if m.columnFocus == 1 && m.entryCursor > 0 {
				m.entryCursor--
			}

		case "down", "j":
			if m.columnFocus == 0 && m.viewCursor < len(viewNames)-1 {
				m.viewCursor++
				m.query = ""
				return m, m.reload()
			}
			if m.columnFocus == 1 && m.entryCursor < len(m.results)-1 {
				m.entryCursor++
			}

		case "right", "l":
			if m.columnFocus == 0 && len(m.results) > 0 {
				m.columnFocus = 1
				m.entryCursor = 0
			}

		case "left", "h":
			m.columnFocus = 0

		case "/":
			m.searching = true
			m.searchInput.SetValue(m.query)
			cmd := m.searchInput.Focus()
			return m, cmd

		case "esc":
			if m.query != "" {
				m.query = ""
				return m, m.reload()
			}

		case "p":
			if entry, ok := m.selected(); ok && m.columnFocus == 1 {
				return m, togglePublished(m.svc, entry.Entry)
			}

		case "d":
			if _, ok := m.selected(); ok && m.columnFocus == 1 {
				m.entryDeleteConfirmIdx = 1
				m.entryDeleting = true
			}
		}
	}

	return m, nil
}

// Assembles the UI string for each frame
func (m model) View() string {
	if m.quitting {
		return "Closing quire.\n"
	}

	titleBar := titleStyle.Width(m.width).Render("Quire - entries and drafts")

	// Column widths: 20% views, 35% entries, the rest for the entry itself.
	leftWidth := m.width / 5
	middleWidth := m.width * 35 / 100
	rightWidth := m.width - leftWidth - middleWidth
	bordersAndPaddingWidth := 4
	panelHeight := m.height - 3

	m.searchInput.Width = middleWidth - bordersAndPaddingWidth

	// Left column: views and database info
	var leftBuilder strings.Builder
	leftBuilder.WriteString(subtitleStyle.Render("  Views"))
	leftBuilder.WriteString("\n\n")
	for i, name := range viewNames {
		pointer := "  "
		itemStyle := inactiveStyle
		if i == m.viewCursor && m.query == "" {
			itemStyle = selectedStyle
			if m.columnFocus == 0 {
				pointer = "> "
			}
		}
		leftBuilder.WriteString(pointer + itemStyle.Render(name) + "\n")
	}
	databaseStatus := 0
	if m.dbFilename != "" {
		databaseStatus = 1
	}
	leftBuilder.WriteString("\nDatabase file:\n" + TextStatusColorize(m.dbFilename, databaseStatus) + "\n")

	// Middle column: entries or search results
	var middleBuilder strings.Builder
	middleTitle := "  Entries"
	if m.query != "" {
		middleTitle = fmt.Sprintf("  Search: %s", m.query)
	}
	middleBuilder.WriteString(subtitleStyle.Render(truncate(middleTitle, middleWidth-bordersAndPaddingWidth)))
	middleBuilder.WriteString("\n")
	if m.searching {
		middleBuilder.WriteString(m.searchInput.View())
	}
	middleBuilder.WriteString("\n")

	if len(m.results) == 0 {
		middleBuilder.WriteString("  No entries.\n")
	}
	for i, r := range m.results {
		pointer := "  "
		itemStyle := inactiveStyle
		if i == m.entryCursor && m.columnFocus == 1 {
			pointer = "> "
			itemStyle = selectedStyle
		}
		label := r.Title
		if !r.Published {
			label = "[draft] " + label
		}
		availableWidth := middleWidth - len(pointer) - bordersAndPaddingWidth - 1
		middleBuilder.WriteString(pointer + itemStyle.Render(truncate(label, availableWidth)) + "\n")
	}

	// Right column: entry details or delete confirmation
	var rightBuilder strings.Builder
	entry, ok := m.selected()
	switch {
	case m.entryDeleting && ok:
		rightBuilder.WriteString(subtitleStyle.Render("Delete Entry") + "\n\n")
		rightBuilder.WriteString("Title: " + errorStyle.Render(entry.Title) + "\n\n")
		yesOpt, noOpt := "Yes", "No"
		if m.entryDeleteConfirmIdx == 0 {
			yesOpt = dangerSelectedStyle.Render(" >" + yesOpt)
			noOpt = inactiveStyle.Render("  " + noOpt)
		} else {
			yesOpt = inactiveStyle.Render("  " + yesOpt)
			noOpt = selectedStyle.Render(" >" + noOpt)
		}
		rightBuilder.WriteString(fmt.Sprintf("%s\n%s\n\n", yesOpt, noOpt))
		rightBuilder.WriteString("(enter to confirm, esc to cancel, up/down to switch)")
	case ok && m.columnFocus == 1:
		rightBuilder.WriteString(subtitleStyle.Render("Entry") + "\n\n")
		rightBuilder.WriteString(lipgloss.NewStyle().Bold(true).Render(labelStyle.Render("Title: ")+textStyle.Render(entry.Title)) + "\n")
		rightBuilder.WriteString(labelStyle.Render("Slug: ") + metaStyle.Render(entry.Slug) + "\n")
		state := TextStatusColorize("draft", 2)
		if entry.Published {
			state = TextStatusColorize("published", 1)
		}
		rightBuilder.WriteString(labelStyle.Render("State: ") + state + "\n")
		rightBuilder.WriteString(labelStyle.Render("Date: ") + metaStyle.Render(entry.Timestamp.Local().Format("2006-01-02 15:04")) + "\n")
		if entry.Score != nil {
			rightBuilder.WriteString(labelStyle.Render("Score: ") + metaStyle.Render(fmt.Sprintf("%.4f", *entry.Score)) + "\n")
		}
		rightBuilder.WriteString("\n" + textStyle.Render(entry.Content))
	default:
		rightBuilder.WriteString(subtitleStyle.Render("Entry") + "\n\n")
		rightBuilder.WriteString("Select an entry to view details.")
	}

	leftPanel := panelStyle.Width(leftWidth).Height(panelHeight).Render(leftBuilder.String())
	middlePanel := panelStyle.Width(middleWidth).Height(panelHeight).Render(middleBuilder.String())
	rightPanel := lipgloss.NewStyle().Padding(0, 2).Width(rightWidth).Height(panelHeight).Render(rightBuilder.String())

	columns := lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, middlePanel, rightPanel)

	footerText := "\n↑/↓ to navigate • / to search • p to publish/unpublish • d to delete • q to quit"
	if m.err != nil {
		footerText = "\n" + errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}
	footerBar := footerStyle.Width(m.width).Render(footerText)

	return titleBar + "\n\n" + columns + footerBar
}

// ShowTUI starts the entry browser on db. pageSize bounds every listing.
func ShowTUI(db *sql.DB, svc *query.Service, pageSize int) error {
	p := tea.NewProgram(initModel(db, svc, pageSize), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
