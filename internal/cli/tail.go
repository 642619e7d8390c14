package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sandguard/sandguard/internal/audit"
)

// TailCommand runs the live audit viewer over today's log file.
func TailCommand(args []string, configPath string) int {
	a, err := loadApp(configPath, nil)
	if err != nil {
		return fail("%v", err)
	}
	defer a.close()

	model := newTailModel(a.writer.PathFor(time.Now()))
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fail("tail viewer: %v", err)
	}
	return 0
}

var (
	tailHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	tailFooterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	rejectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444"))

	approvedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	tailMetaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

type tailTickMsg struct{}

func tailTick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tailTickMsg{}
	})
}

type tailModel struct {
	path    string
	view    viewport.Model
	entries []audit.Entry
	lines   int // raw lines consumed, including unparseable ones
	ready   bool
	width   int
	height  int
}

func newTailModel(path string) tailModel {
	return tailModel{path: path}
}

func (m tailModel) Init() tea.Cmd {
	return tailTick()
}

func (m tailModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tailTickMsg:
		if m.reload() && m.ready {
			m.view.SetContent(m.renderEntries())
			m.view.GotoBottom()
		}
		return m, tailTick()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.view = viewport.New(msg.Width, msg.Height-3)
			m.view.SetContent(m.renderEntries())
			m.view.GotoBottom()
			m.ready = true
		} else {
			m.view.Width = msg.Width
			m.view.Height = msg.Height - 3
		}
	}

	var cmd tea.Cmd
	m.view, cmd = m.view.Update(msg)
	return m, cmd
}

// reload re-reads the log file, reporting whether new lines appeared.
func (m *tailModel) reload() bool {
	f, err := os.Open(m.path)
	if err != nil {
		return false
	}
	defer f.Close() //nolint:errcheck

	var entries []audit.Entry
	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines++
		entry, err := audit.ParseLine(scanner.Bytes())
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if lines == m.lines {
		return false
	}
	m.entries = entries
	m.lines = lines
	return true
}

func (m tailModel) renderEntries() string {
	if len(m.entries) == 0 {
		return tailMetaStyle.Render("waiting for audit entries...")
	}
	var b strings.Builder
	for _, e := range m.entries {
		style := rejectedStyle
		if strings.HasSuffix(e.Action, ".approved") {
			style = approvedStyle
		}
		b.WriteString(fmt.Sprintf("%s %s %s\n    %s %s\n",
			tailMetaStyle.Render(e.Time.Format("15:04:05")),
			style.Render(e.Action),
			tailMetaStyle.Render("["+e.Caller+"]"),
			e.Target,
			tailMetaStyle.Render("· "+e.Reason),
		))
	}
	return b.String()
}

func (m tailModel) View() string {
	if !m.ready {
		return "loading..."
	}
	header := tailHeaderStyle.Render("sandguard audit · " + m.path)
	footer := tailFooterStyle.Render(fmt.Sprintf("%d entries · q to quit", len(m.entries)))
	return header + "\n" + m.view.View() + "\n" + footer
}
