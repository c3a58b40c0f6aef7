// Package tui is the interactive terminal chat. Replies stream into the
// viewport piece by piece; finished replies are rendered as markdown.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"edgegen/internal/session"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7B68EE"))

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00D4FF"))

	botStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7FFF00"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Italic(true)
)

type streamTokenMsg struct{ token string }

type streamDoneMsg struct {
	result session.Result
	err    error
}

// Options configures the chat model.
type Options struct {
	Title  string
	System string
}

// ChatModel is the bubbletea model for the chat screen.
type ChatModel struct {
	ctx    context.Context
	engine Engine
	opts   Options

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	turns      []Turn
	partial    string
	stream     <-chan session.Event
	cancel     context.CancelFunc
	generating bool
	lastStats  string
	err        error
	ready      bool
}

// NewChatModel returns a chat bound to engine.
func NewChatModel(ctx context.Context, engine Engine, opts Options) ChatModel {
	ta := textarea.New()
	ta.Placeholder = "Send a message..."
	ta.Focus()
	ta.Prompt = "❯ "
	ta.CharLimit = 8000
	ta.SetWidth(80)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	s := spinner.New()
	s.Spinner = spinner.Dot

	if opts.Title == "" {
		opts.Title = "edgegen"
	}
	r, _ := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))

	return ChatModel{
		ctx:      ctx,
		engine:   engine,
		opts:     opts,
		viewport: viewport.New(80, 20),
		textarea: ta,
		spinner:  s,
		renderer: r,
	}
}

func (m ChatModel) Init() tea.Cmd { return textarea.Blink }

// waitForEvent reads one event off the stream.
func waitForEvent(ch <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return streamDoneMsg{err: context.Canceled}
		}
		if ev.Done {
			return streamDoneMsg{result: ev.Result, err: ev.Err}
		}
		return streamTokenMsg{token: ev.Text}
	}
}

func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-8, 3)
		m.textarea.SetWidth(max(msg.Width-4, 10))
		if r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(max(msg.Width-4, 20))); err == nil {
			m.renderer = r
		}
		m.ready = true
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			if m.generating {
				m.engine.Stop()
			}
			m.endStream()
			return m, tea.Quit
		case tea.KeyEsc:
			if m.generating {
				m.engine.Stop()
			}
			return m, nil
		case tea.KeyCtrlL:
			if !m.generating {
				m.turns = nil
				m.lastStats = ""
				m.err = nil
				m.refresh()
			}
			return m, nil
		case tea.KeyEnter:
			if m.generating {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			m.textarea.Reset()
			m.turns = append(m.turns, Turn{Role: "user", Content: input})
			m.partial = ""
			m.err = nil
			m.generating = true
			sctx, cancel := context.WithCancel(m.ctx)
			m.cancel = cancel
			m.stream = m.engine.Stream(sctx, ChatML(m.opts.System, m.turns))
			m.refresh()
			return m, tea.Batch(waitForEvent(m.stream), m.spinner.Tick)
		}

	case streamTokenMsg:
		m.partial += msg.token
		m.refresh()
		return m, waitForEvent(m.stream)

	case streamDoneMsg:
		m.generating = false
		m.endStream()
		if reply := m.partial; reply != "" {
			m.turns = append(m.turns, Turn{Role: "assistant", Content: reply})
		}
		m.partial = ""
		m.err = msg.err
		if msg.err == nil {
			m.lastStats = formatStats(msg.result)
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.generating {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// endStream releases the per-reply context. A producer still blocked on
// send observes the cancel and exits even though nobody reads the channel.
func (m *ChatModel) endStream() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.stream = nil
}

func formatStats(r session.Result) string {
	return fmt.Sprintf("%d tokens | %.1f tok/s | first token %s | %s",
		r.Tokens, r.TokensPerSecond, r.TimeToFirst.Truncate(time.Millisecond), r.FinishReason)
}

func (m *ChatModel) render(md string) string {
	if m.renderer == nil {
		return md
	}
	out, err := m.renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

func (m *ChatModel) refresh() {
	var sb strings.Builder
	for _, t := range m.turns {
		if t.Role == "user" {
			sb.WriteString(userStyle.Render("You") + "\n" + t.Content + "\n\n")
			continue
		}
		sb.WriteString(botStyle.Render("Assistant") + "\n" + m.render(t.Content) + "\n\n")
	}
	if m.generating {
		sb.WriteString(botStyle.Render("Assistant") + "\n" + m.partial)
		sb.WriteString("\n" + m.spinner.View() + helpStyle.Render(" generating (esc to stop)"))
	} else if m.err != nil {
		sb.WriteString(errorStyle.Render("Error: " + m.err.Error()))
	} else if m.lastStats != "" {
		sb.WriteString(statsStyle.Render(m.lastStats))
	}
	m.viewport.SetContent(sb.String())
	m.viewport.GotoBottom()
}

func (m ChatModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(m.opts.Title) + "\n")
	sb.WriteString(m.viewport.View() + "\n\n")
	sb.WriteString(m.textarea.View() + "\n")
	sb.WriteString(helpStyle.Render("Enter: send | Esc: stop | Ctrl+L: clear | Ctrl+C: exit"))
	return sb.String()
}

// Run starts the chat on the terminal and blocks until the user exits.
func Run(ctx context.Context, engine Engine, opts Options) error {
	p := tea.NewProgram(NewChatModel(ctx, engine, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if cm, ok := final.(ChatModel); ok {
		cm.endStream()
	}
	return err
}
