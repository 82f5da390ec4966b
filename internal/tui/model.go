package tui

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"courseguide/internal/domain"
	"courseguide/internal/service"
)

// Port is the TUI-facing subset of the turn controller.
type Port interface {
	Submit(text string) error
	StartVoiceInput() error
	CancelVoiceSubmit() bool
	Clear()
	Events() <-chan service.Event
	LoadErr() error
	VoiceAvailable() bool
}

// eventMsg wraps a controller event for the Bubble Tea loop.
type eventMsg struct{ event service.Event }

// Model is the Bubble Tea model for the chat window.
type Model struct {
	port     Port
	course   string
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	messages []domain.Message
	status   string
	severity domain.Severity

	busy         bool
	pendingVoice bool
	confirmClear bool
	showSources  bool
	lastTurn     domain.Turn
	cursor       int
	ready        bool
}

// New creates a new TUI model instance.
func New(port Port, course string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the course and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	m := Model{
		port:     port,
		course:   course,
		input:    ti,
		viewport: vp,
		spinner:  sp,
		status:   "Ready",
		severity: domain.SeveritySuccess,
	}
	if port.LoadErr() != nil {
		m.status = "Embeddings not loaded"
		m.severity = domain.SeverityError
	}
	return m
}

// Init starts the cursor blink, the spinner and the event pump.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitForEvent(m.port.Events()))
}

func waitForEvent(events <-chan service.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return eventMsg{event: ev}
	}
}

// Update handles key, window and controller events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, bh := boxStyle.GetFrameSize()
		reserved := 3 + 2*bh + 1 // header, warning, status + two boxes + help
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved)
		m.input.Width = max(10, msg.Width-6)
		m.refresh()
		return m, nil
	case eventMsg:
		m.apply(msg.event)
		return m, waitForEvent(m.port.Events())
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if m.confirmClear {
			m.confirmClear = false
			if msg.String() == "y" || msg.String() == "Y" {
				m.port.Clear()
			} else {
				m.setStatus("Clear cancelled", domain.SeverityInfo)
			}
			return m, nil
		}
		switch msg.String() {
		case "enter":
			if err := m.port.Submit(m.input.Value()); err == nil {
				m.input.Reset()
				m.pendingVoice = false
			}
			return m, nil
		case "ctrl+r":
			if err := m.port.StartVoiceInput(); errors.Is(err, domain.ErrCaptureBusy) {
				m.setStatus("Already listening", domain.SeverityWarning)
			}
			return m, nil
		case "esc":
			if m.port.CancelVoiceSubmit() {
				m.input.Reset()
				m.pendingVoice = false
			}
			return m, nil
		case "ctrl+l":
			m.confirmClear = true
			m.setStatus("Clear chat history? (y/n)", domain.SeverityWarning)
			return m, nil
		case "tab":
			m.showSources = !m.showSources
			m.refresh()
			return m, nil
		case "down":
			if m.showSources && len(m.lastTurn.Retrieval) > 0 {
				m.cursor = (m.cursor + 1) % len(m.lastTurn.Retrieval)
				m.refresh()
				return m, nil
			}
		case "up":
			if m.showSources && len(m.lastTurn.Retrieval) > 0 {
				m.cursor = (m.cursor - 1 + len(m.lastTurn.Retrieval)) % len(m.lastTurn.Retrieval)
				m.refresh()
				return m, nil
			}
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) apply(ev service.Event) {
	switch ev := ev.(type) {
	case service.MessageEvent:
		m.messages = append(m.messages, ev.Message)
		if ev.Message.Sender == domain.SenderUser && m.pendingVoice {
			m.input.Reset()
			m.pendingVoice = false
		}
	case service.StatusEvent:
		m.setStatus(ev.Text, ev.Severity)
	case service.TurnEvent:
		m.busy = !ev.Turn.Status.Terminal()
		if ev.Turn.Status.Terminal() {
			m.lastTurn = ev.Turn
			m.cursor = 0
		}
	case service.VoiceEvent:
		m.input.SetValue(ev.Text)
		m.input.CursorEnd()
		m.pendingVoice = true
	case service.ClearedEvent:
		m.messages = nil
	}
	m.refresh()
}

func (m *Model) setStatus(text string, severity domain.Severity) {
	m.status = text
	m.severity = severity
}

func (m *Model) refresh() {
	if m.showSources {
		m.viewport.SetContent(m.renderSources())
		m.viewport.GotoTop()
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// View renders the chat window.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render("Course Guide: " + m.course))
	b.WriteString("\n")
	if err := m.port.LoadErr(); err != nil {
		b.WriteString(warningStyle.Render("Warning: " + err.Error() + ". Questions are disabled."))
	}
	b.WriteString("\n")
	b.WriteString(boxStyle.Render(m.viewport.View()))
	b.WriteString("\n")
	b.WriteString(boxStyle.Render(m.input.View()))
	b.WriteString("\n")
	status := statusStyle(m.severity).Render(m.status)
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	b.WriteString(status)
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help()))
	return b.String()
}

func (m Model) help() string {
	keys := []string{"enter ask"}
	if m.port.VoiceAvailable() {
		keys = append(keys, "ctrl+r speak", "esc cancel voice")
	}
	keys = append(keys, "tab sources", "ctrl+l clear", "ctrl+c quit")
	return strings.Join(keys, " • ")
}

func (m Model) renderTranscript() string {
	if len(m.messages) == 0 {
		return mutedStyle.Render("Ask a question about the course videos.")
	}
	width := max(20, m.viewport.Width-2)
	parts := make([]string, 0, len(m.messages))
	for _, msg := range m.messages {
		head := senderStyle(msg.Sender).Render(msg.Sender.String()) + mutedStyle.Render(" "+msg.At.Format("15:04"))
		body := lipgloss.NewStyle().Width(width).Render(msg.Text)
		parts = append(parts, head+"\n"+body)
	}
	return strings.Join(parts, "\n\n")
}

func (m Model) renderSources() string {
	results := m.lastTurn.Retrieval
	if len(results) == 0 {
		return "No sources yet."
	}
	r := results[m.cursor]
	title := fmt.Sprintf("Source %d/%d  score=%.3f", m.cursor+1, len(results), r.Score)
	video := fmt.Sprintf("Video %d: %s  [%s]", r.Chunk.Number, r.Chunk.Title, r.Chunk.Span())
	body := highlightBestSentence(r.Chunk.Text, m.lastTurn.Query.Text)
	return title + "\n" + headerStyle.Render(video) + "\n\n" + body
}

var (
	boxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	headerStyle    = lipgloss.NewStyle().Bold(true)
	warningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`[^.!?]+(?:[.!?]+|$)`)
)

func senderStyle(s domain.Sender) lipgloss.Style {
	switch s {
	case domain.SenderUser:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	case domain.SenderAssistant:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
}

func statusStyle(s domain.Severity) lipgloss.Style {
	switch s {
	case domain.SeverityBusy:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	case domain.SeveritySuccess:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	case domain.SeverityWarning:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	case domain.SeverityError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
}

// highlightBestSentence emphasises the sentence sharing the most words with query.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		score := tokenOverlapScore(qTokens, s)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
