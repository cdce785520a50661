// Package tui is the interactive remediation review. Findings are
// presented one at a time with highlighted context; the user accepts,
// relabels, or skips each one, and the recorded decisions drive the
// remediation engine afterwards.
package tui

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/enveil/enveil/internal/remediate"
	"github.com/enveil/enveil/internal/types"
)

var (
	cardStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true)

	matchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	statusStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("7"))

	sevHighStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	sevMedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	sevLowStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func severityText(s types.Severity) string {
	switch s {
	case types.SevHigh:
		return sevHighStyle.Render("HIGH")
	case types.SevMed:
		return sevMedStyle.Render("MED")
	case types.SevLow:
		return sevLowStyle.Render("LOW")
	default:
		return string(s)
	}
}

// Model steps through findings collecting one Resolution per finding.
type Model struct {
	findings []types.Finding
	contents map[string][]byte // file contents keyed by finding path
	idx      int

	decisions map[string]remediate.Resolution // keyed by Finding.SpanKey()

	labelInput textinput.Model
	editing    bool

	aborted bool
	done    bool
	width   int
	height  int
}

// NewModel builds the review model. contents maps each finding's path to
// the file bytes used for the context preview.
func NewModel(findings []types.Finding, contents map[string][]byte) Model {
	ti := textinput.New()
	ti.Placeholder = "TEMPLATE_KEY"
	ti.CharLimit = 64
	ti.Width = 40
	ti.Prompt = "label: "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	return Model{
		findings:   findings,
		contents:   contents,
		decisions:  make(map[string]remediate.Resolution, len(findings)),
		labelInput: ti,
		done:       len(findings) == 0,
	}
}

// Decisions returns the collected resolutions keyed by finding span.
func (m Model) Decisions() map[string]remediate.Resolution { return m.decisions }

// Aborted reports whether the user quit without finishing the review.
func (m Model) Aborted() bool { return m.aborted }

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.done {
			return m, tea.Quit
		}
		if m.editing {
			return m.updateEditing(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.aborted = true
			return m, tea.Quit
		case "a", "enter", "y":
			m.decide(remediate.Resolution{Action: remediate.Accept})
			return m.advance()
		case "s", "n":
			m.decide(remediate.Resolution{Action: remediate.Skip})
			return m.advance()
		case "e":
			m.editing = true
			m.labelInput.SetValue(m.suggestedLabel())
			m.labelInput.Focus()
			return m, textinput.Blink
		case "A":
			for ; m.idx < len(m.findings); m.idx++ {
				m.decisions[m.findings[m.idx].SpanKey()] = remediate.Resolution{Action: remediate.Accept}
			}
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		label := strings.TrimSpace(m.labelInput.Value())
		m.editing = false
		m.labelInput.Blur()
		m.decide(remediate.Resolution{Action: remediate.Accept, Label: label})
		return m.advance()
	case "esc":
		m.editing = false
		m.labelInput.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.labelInput, cmd = m.labelInput.Update(msg)
	return m, cmd
}

func (m *Model) decide(r remediate.Resolution) {
	m.decisions[m.findings[m.idx].SpanKey()] = r
}

func (m Model) advance() (tea.Model, tea.Cmd) {
	m.idx++
	if m.idx >= len(m.findings) {
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) suggestedLabel() string {
	return remediate.DeriveLabel(m.findings[m.idx])
}

func (m Model) View() string {
	if m.done || m.idx >= len(m.findings) {
		accepted := 0
		for _, d := range m.decisions {
			if d.Action == remediate.Accept {
				accepted++
			}
		}
		return fmt.Sprintf("Review complete: %d accepted, %d skipped.\n", accepted, len(m.decisions)-accepted)
	}

	f := m.findings[m.idx]
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Secret %d of %d", m.idx+1, len(m.findings))))
	b.WriteString("\n\n")

	detail := fmt.Sprintf("%s  %s  %s:%d  confidence %.2f",
		severityText(f.Severity), f.Rule, f.Path, f.Line, f.Confidence)
	b.WriteString(detail)
	b.WriteString("\n\n")

	b.WriteString(m.preview(f))
	b.WriteString("\n")

	b.WriteString("match: ")
	b.WriteString(matchStyle.Render(f.Match))
	b.WriteString("\n")
	b.WriteString("label: ")
	b.WriteString(labelStyle.Render(m.suggestedLabel()))
	b.WriteString("\n")

	card := cardStyle.Render(b.String())

	var footer string
	if m.editing {
		footer = m.labelInput.View() + "\n" + statusStyle.Render(" enter: accept with label | esc: cancel ")
	} else {
		footer = statusStyle.Render(" a: accept | e: edit label | s: skip | A: accept all | q: abort ")
	}
	return card + "\n" + footer + "\n"
}

// preview renders the finding line with up to two lines of context either
// side, syntax highlighted when chroma knows the file type.
func (m Model) preview(f types.Finding) string {
	content, ok := m.contents[f.Path]
	if !ok {
		return dimStyle.Render("(no preview available)")
	}
	lines := strings.Split(string(content), "\n")
	start := f.Line - 3
	if start < 0 {
		start = 0
	}
	end := f.Line + 2
	if end > len(lines) {
		end = len(lines)
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		prefix := "  "
		line := lines[i]
		if i == f.Line-1 {
			prefix = "> "
			line = highlightLine(line, f.Path)
		} else {
			line = dimStyle.Render(line)
		}
		b.WriteString(fmt.Sprintf("%s%4d │ %s\n", prefix, i+1, line))
	}
	return b.String()
}

func highlightLine(line string, filename string) string {
	lexer := lexers.Match(filename)
	if lexer == nil {
		ext := filepath.Ext(filename)
		if ext != "" {
			lexer = lexers.Match("file" + ext)
		}
	}
	if lexer == nil {
		return line // No highlighting for unknown file types
	}

	lexer = chroma.Coalesce(lexer)

	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		return line
	}

	iterator, err := lexer.Tokenise(nil, line)
	if err != nil {
		return line
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return line
	}
	return strings.TrimRight(buf.String(), "\n")
}
