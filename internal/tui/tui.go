package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/f3rmion/webreader/internal/backend"
	"github.com/f3rmion/webreader/internal/clipboard"
	"github.com/f3rmion/webreader/internal/highlight"
	"github.com/f3rmion/webreader/internal/reader"
	"github.com/f3rmion/webreader/internal/recent"
	"github.com/f3rmion/webreader/internal/speech"
	"github.com/sirupsen/logrus"
)

const (
	fontStep     = 1
	speedStep    = 0.1
	sidebarWidth = 36
)

// fetchResultMsg carries the outcome of a backend request.
type fetchResultMsg struct {
	result reader.Result
}

// speechEventMsg carries one event from the synthesizer.
type speechEventMsg struct {
	event speech.Event
}

// Clipboard messages
type clearCopiedMsg struct{}

func clearCopiedAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearCopiedMsg{}
	})
}

// waitForEvent reads the next speech event. Update re-arms it after every
// event; it stops when the channel closes.
func waitForEvent(events <-chan speech.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return speechEventMsg{event: ev}
	}
}

// Model is the Bubble Tea model for Web Reader.
type Model struct {
	ctx    context.Context
	shell  *reader.Shell
	hl     *highlight.Highlighter
	events <-chan speech.Event
	log    logrus.FieldLogger

	input   textinput.Model
	content viewport.Model

	// Follow-along mode: the highlighter reads the content word by word.
	follow         bool
	followSpeaking bool

	copied   bool
	copyErr  error
	showHelp bool

	width  int
	height int
	ready  bool
}

// New creates the TUI model. synth may be nil.
func New(ctx context.Context, shell *reader.Shell, synth speech.Synthesizer, log logrus.FieldLogger) Model {
	if log == nil {
		log = logrus.StandardLogger()
	}

	ti := textinput.New()
	ti.Placeholder = "https://example.com"
	ti.CharLimit = 2048
	ti.Width = 50
	ti.PromptStyle = lipgloss.NewStyle().Foreground(ColorSecondary)
	ti.TextStyle = lipgloss.NewStyle().Foreground(ColorAccent)
	ti.SetValue(shell.Session().URL)

	var events <-chan speech.Event
	if synth != nil {
		events = synth.Events()
	}

	return Model{
		ctx:     ctx,
		shell:   shell,
		hl:      highlight.New(synth, log),
		events:  events,
		log:     log,
		input:   ti,
		content: viewport.New(60, 10),
	}
}

// Init announces the reader and starts listening for speech events.
func (m Model) Init() tea.Cmd {
	m.shell.Start()
	return tea.Batch(textinput.Blink, waitForEvent(m.events))
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case fetchResultMsg:
		m.stopFollow()
		m.shell.Complete(msg.result)
		m.refreshContent()
		m.content.GotoTop()
		return m, nil

	case speechEventMsg:
		m.shell.HandleEvent(msg.event)
		m.hl.HandleEvent(msg.event)
		if m.follow && !m.hl.Active() {
			m.follow = false
		}
		m.refreshContent()
		return m, waitForEvent(m.events)

	case clearCopiedMsg:
		m.copied = false
		m.copyErr = nil
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		return m, nil
	}

	var cmd tea.Cmd
	if m.shell.Session().Focus == reader.URLInput {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Help overlay - any key closes it
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	focus := m.shell.Session().Focus
	key := msg.String()

	// Global keys
	switch key {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "tab":
		m.stopFollow()
		m.shell.FocusNext()
		return m, m.syncFocus()
	case "shift+tab":
		m.stopFollow()
		m.shell.FocusPrev()
		return m, m.syncFocus()
	case "ctrl+p":
		m.togglePause()
		return m, nil
	case "ctrl+y":
		return m.copySummary()
	case "alt+1", "alt+2", "alt+3", "alt+4", "alt+5":
		return m.openRecent(int(key[len(key)-1] - '1'))
	}

	if focus == reader.URLInput {
		if key == "enter" {
			return m.begin(backend.ActionNone)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.shell.SetURL(m.input.Value())
		return m, cmd
	}

	switch key {
	case "q":
		return m, tea.Quit
	case "?":
		m.showHelp = true
		return m, nil
	}

	switch focus {
	case reader.ReadButton:
		if key == "enter" || key == " " {
			return m.begin(backend.ActionRead)
		}
	case reader.SummarizeButton:
		if key == "enter" || key == " " {
			return m.begin(backend.ActionSummarize)
		}
	case reader.FontSlider:
		switch key {
		case "left", "h", "down":
			m.stopFollow()
			m.shell.HandleFontSizeChange(m.shell.Session().FontSize - fontStep)
		case "right", "l", "up":
			m.stopFollow()
			m.shell.HandleFontSizeChange(m.shell.Session().FontSize + fontStep)
		}
	case reader.SpeedSlider:
		switch key {
		case "left", "h", "down":
			m.changeSpeed(-speedStep)
		case "right", "l", "up":
			m.changeSpeed(speedStep)
		}
	case reader.OutputText:
		switch key {
		case "f":
			m.toggleFollow()
			m.refreshContent()
			return m, nil
		case "enter", " ":
			m.stopFollow()
			m.shell.ReadContent()
			return m, nil
		}
		var cmd tea.Cmd
		m.content, cmd = m.content.Update(msg)
		return m, cmd
	case reader.PauseButton:
		if key == "enter" || key == " " {
			m.togglePause()
		}
	}

	return m, nil
}

// begin announces a request and returns the command that performs it.
func (m Model) begin(action backend.Action) (tea.Model, tea.Cmd) {
	m.stopFollow()
	req := m.shell.Begin(action)
	return m, m.fetch(req)
}

func (m Model) openRecent(i int) (tea.Model, tea.Cmd) {
	links := m.shell.RecentLinks()
	if i < 0 || i >= len(links) {
		return m, nil
	}
	m.stopFollow()
	req := m.shell.SelectRecent(links[i].URL)
	m.input.SetValue(req.URL)
	return m, m.fetch(req)
}

// fetch runs req off the UI goroutine.
func (m Model) fetch(req reader.Request) tea.Cmd {
	shell, ctx := m.shell, m.ctx
	return func() tea.Msg {
		return fetchResultMsg{result: shell.Fetch(ctx, req)}
	}
}

func (m *Model) syncFocus() tea.Cmd {
	if m.shell.Session().Focus == reader.URLInput {
		return m.input.Focus()
	}
	m.input.Blur()
	return nil
}

func (m *Model) togglePause() {
	if m.follow {
		m.followSpeaking = !m.followSpeaking
		m.hl.Sync(m.shell.Session().Summary, m.followSpeaking, m.shell.Session().SpeechSpeed)
		return
	}
	m.shell.HandlePause()
}

func (m *Model) changeSpeed(delta float64) {
	speed := m.shell.Session().SpeechSpeed + delta
	if m.follow {
		speed = m.shell.SetSpeed(speed)
		m.hl.Sync(m.shell.Session().Summary, m.followSpeaking, speed)
		return
	}
	m.shell.HandleSpeedChange(speed)
}

func (m *Model) toggleFollow() {
	if m.follow {
		m.stopFollow()
		return
	}
	summary := m.shell.Session().Summary
	if summary == "" {
		return
	}
	m.shell.StopSpeaking()
	m.follow = true
	m.followSpeaking = true
	m.hl.Sync(summary, true, m.shell.Session().SpeechSpeed)
}

func (m *Model) stopFollow() {
	if !m.follow {
		return
	}
	m.hl.Stop()
	m.follow = false
	m.followSpeaking = false
}

func (m Model) copySummary() (tea.Model, tea.Cmd) {
	summary := m.shell.Session().Summary
	if summary == "" {
		return m, nil
	}
	if err := clipboard.Write(summary); err != nil {
		m.log.WithError(err).Warn("copying summary")
		m.copyErr = err
	} else {
		m.copied = true
	}
	return m, clearCopiedAfter(2 * time.Second)
}

// resize lays out the content viewport for the window size.
func (m *Model) resize() {
	w := m.mainWidth() - 4
	if w < 20 {
		w = 20
	}
	h := m.height - 26
	if h < 4 {
		h = 4
	}
	m.content.Width = w
	m.content.Height = h
	m.refreshContent()
}

func (m Model) mainWidth() int {
	w := m.width - sidebarWidth - 2
	if w < 40 {
		w = 40
	}
	return w
}

// refreshContent renders the summary into the viewport.
func (m *Model) refreshContent() {
	summary := m.shell.Session().Summary
	switch {
	case m.follow:
		m.content.SetContent(m.hl.View(m.content.Width))
	case summary == "":
		m.content.SetContent(HelpStyle.Render("Processed content appears here."))
	default:
		m.content.SetContent(wordWrap(summary, m.content.Width))
	}
}

func recentLabel(i int, l recent.Link) string {
	return fmt.Sprintf("alt+%d %s", i+1, l.Label)
}
