package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/unklstewy/ivao-tracker/internal/tracker"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type boardMsg struct{ board *tracker.Board }

type errMsg struct{ err error }

// updateMsg is produced only by waitForUpdate; handling it re-arms the waiter.
type updateMsg struct {
	board *tracker.Board
	err   error
}

type tickMsg time.Time

type model struct {
	source   boardSource
	updates  <-chan struct{}
	interval time.Duration

	board *tracker.Board
	err   error
	width int
}

func newModel(source boardSource, updates <-chan struct{}, interval time.Duration) model {
	return model{source: source, updates: updates, interval: interval}
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{fetchBoard(m.source, false)}
	if m.updates != nil {
		cmds = append(cmds, waitForUpdate(m.source, m.updates))
	} else {
		cmds = append(cmds, tick(m.interval))
	}
	return tea.Batch(cmds...)
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForUpdate blocks until the scheduler publishes, then reads the board.
func waitForUpdate(source boardSource, updates <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return nil
		}
		b, err := source.Latest(context.Background())
		return updateMsg{board: b, err: err}
	}
}

func fetchBoard(source boardSource, force bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		var (
			b   *tracker.Board
			err error
		)
		if force {
			b, err = source.Refresh(ctx)
		} else {
			b, err = source.Latest(ctx)
		}
		if err != nil {
			return errMsg{err}
		}
		return boardMsg{b}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "r":
			return m, fetchBoard(m.source, true)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case boardMsg:
		m.board = msg.board
		m.err = nil

	case errMsg:
		m.err = msg.err

	case updateMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.board = msg.board
			m.err = nil
		}
		return m, waitForUpdate(m.source, m.updates)

	case tickMsg:
		return m, tea.Batch(fetchBoard(m.source, false), tick(m.interval))
	}

	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("IVAO Pilot Tracker"))
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n\n")

	board := m.board
	if board == nil {
		board = &tracker.Board{}
	}

	b.WriteString(renderTable("Departures", "No departures", tracker.Departure, board.Departures))
	b.WriteString("\n")
	b.WriteString(renderTable("Arrivals", "No arrivals", tracker.Arrival, board.Arrivals))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("r: refresh now • q: quit"))
	b.WriteString("\n")

	return b.String()
}

func (m model) statusLine() string {
	if m.err != nil {
		return errStyle.Render(fmt.Sprintf("✗ %v", m.err))
	}
	if m.board == nil || m.board.Upstream == tracker.UpstreamPending {
		return helpStyle.Render("Waiting for first refresh...")
	}

	at := m.board.GeneratedAt.UTC().Format("15:04:05 UTC")
	if m.board.Upstream != tracker.UpstreamOK {
		return warnStyle.Render(fmt.Sprintf("⚠ Feed %s at %s", m.board.Upstream, at))
	}
	return okStyle.Render(fmt.Sprintf("✓ Updated %s • %d departures • %d arrivals",
		at, len(m.board.Departures), len(m.board.Arrivals)))
}

// renderTable lays out rows in the column order of the direction.
func renderTable(title, empty string, dir tracker.Direction, rows []tracker.Row) string {
	headers := tracker.Headers(dir)

	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, r.Cells())
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range cells {
		for i, c := range row {
			if w := lipgloss.Width(c); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(title))
	b.WriteString("\n")

	line := make([]string, len(headers))
	for i, h := range headers {
		line[i] = lipgloss.NewStyle().Width(widths[i] + 2).Render(h)
	}
	b.WriteString(headerStyle.Render(strings.Join(line, "")))
	b.WriteString("\n")

	if len(cells) == 0 {
		b.WriteString(helpStyle.Render("  " + empty))
		b.WriteString("\n")
		return b.String()
	}

	for _, row := range cells {
		for i, c := range row {
			line[i] = lipgloss.NewStyle().Width(widths[i] + 2).Render(c)
		}
		b.WriteString(strings.Join(line, ""))
		b.WriteString("\n")
	}

	return b.String()
}
