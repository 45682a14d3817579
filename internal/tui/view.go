package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/f3rmion/webreader/internal/config"
	"github.com/f3rmion/webreader/internal/reader"
	"github.com/f3rmion/webreader/internal/tui/bigchar"
	"github.com/mattn/go-runewidth"
)

const sliderWidth = 24

// View renders the UI.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	main := ContentStyle.
		Width(m.mainWidth()).
		Render(m.renderMain())

	return lipgloss.JoinHorizontal(lipgloss.Top, main, m.renderSidebar())
}

func (m Model) renderMain() string {
	sess := m.shell.Session()
	var b strings.Builder

	// Header
	b.WriteString(TitleStyle.Render(" Web Reader "))
	b.WriteString("  ")
	b.WriteString(SubtitleStyle.Render("Listen to any web page"))
	b.WriteString("\n\n")

	// URL input
	b.WriteString(m.label("Enter Website URL", reader.URLInput))
	b.WriteString("\n")
	inputBox := InputBoxStyle
	if sess.Focus == reader.URLInput {
		inputBox = InputBoxFocusedStyle
	}
	b.WriteString(inputBox.Render(m.input.View()))
	b.WriteString("\n")

	// Buttons
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		m.button("Read URL", reader.ReadButton, true),
		m.button("Summarize URL", reader.SummarizeButton, true),
	))
	b.WriteString("\n\n")

	// Sliders
	b.WriteString(m.label("Font Size : ", reader.FontSlider))
	b.WriteString(ValueStyle.Render(strconv.Itoa(sess.FontSize)))
	b.WriteString("\n")
	b.WriteString(slider(float64(sess.FontSize), config.MinFontSize, config.MaxFontSize, sess.Focus == reader.FontSlider))
	b.WriteString("\n")

	b.WriteString(m.label("Speech Speed : ", reader.SpeedSlider))
	b.WriteString(ValueStyle.Render(strconv.FormatFloat(sess.SpeechSpeed, 'f', -1, 64)))
	b.WriteString("\n")
	b.WriteString(slider(sess.SpeechSpeed, config.MinSpeechRate, config.MaxSpeechRate, sess.Focus == reader.SpeedSlider))
	b.WriteString("\n\n")

	// Content
	b.WriteString(m.renderContent())
	b.WriteString("\n")

	// Pause button
	b.WriteString(m.button(m.pauseLabel(), reader.PauseButton, m.shell.Enabled(reader.PauseButton)))
	b.WriteString("\n\n")

	// Status
	if status := m.renderStatus(); status != "" {
		b.WriteString(status)
		b.WriteString("\n")
	}

	b.WriteString(HelpStyle.Render(m.helpLine()))
	return b.String()
}

func (m Model) renderContent() string {
	sess := m.shell.Session()
	var b strings.Builder

	b.WriteString(m.label("Content", reader.OutputText))
	if m.follow {
		b.WriteString("  " + SubtitleStyle.Render("follow along"))
	}
	b.WriteString("\n")

	var inner strings.Builder
	if word := m.currentWord(); word != "" {
		rows := bigchar.RowsForFontSize(sess.FontSize)
		if art := bigchar.Cached(word, rows, m.content.Width); art != "" {
			inner.WriteString(BigWordStyle.Render(art))
			inner.WriteString("\n")
		}
	}

	body := m.content.View()
	if strings.HasPrefix(sess.Summary, "Error: ") && !m.follow {
		body = ErrorStyle.Render(wordWrap(sess.Summary, m.content.Width))
	}
	inner.WriteString(body)

	box := ContentBoxStyle
	if sess.Focus == reader.OutputText {
		box = ContentBoxFocusedStyle
	}
	b.WriteString(box.Width(m.content.Width + 2).Render(inner.String()))
	return b.String()
}

// currentWord is the word being spoken, shown in large type.
func (m Model) currentWord() string {
	if m.follow {
		words := m.hl.Words()
		if i := m.hl.Index(); i >= 0 && i < len(words) {
			return words[i]
		}
		return ""
	}
	return m.shell.CurrentWord()
}

func (m Model) pauseLabel() string {
	if m.follow {
		if m.followSpeaking {
			return "Pause"
		}
		return "Resume"
	}
	return m.shell.PauseLabel()
}

func (m Model) renderStatus() string {
	var parts []string
	if m.shell.Loading() {
		parts = append(parts, LoadingStyle.Render("Processing..."))
	}
	if m.copied {
		parts = append(parts, CopiedStyle.Render("Copied!"))
	}
	if m.copyErr != nil {
		parts = append(parts, ErrorStyle.Render("Copy failed: "+m.copyErr.Error()))
	}
	return strings.Join(parts, "  ")
}

func (m Model) helpLine() string {
	parts := []string{"tab: next", "shift+tab: prev"}
	switch m.shell.Session().Focus {
	case reader.URLInput:
		parts = append(parts, "enter: process")
	case reader.ReadButton, reader.SummarizeButton, reader.PauseButton:
		parts = append(parts, "enter: press")
	case reader.FontSlider, reader.SpeedSlider:
		parts = append(parts, "←/→: adjust")
	case reader.OutputText:
		parts = append(parts, "↑/↓: scroll", "f: follow along", "enter: read")
	}
	parts = append(parts, "ctrl+p: pause", "?: help", "esc: quit")
	return strings.Join(parts, " • ")
}

// renderSidebar renders the recent links.
func (m Model) renderSidebar() string {
	var items []string

	items = append(items, SidebarTitleStyle.Render("Recent Links"))

	links := m.shell.RecentLinks()
	if len(links) == 0 {
		items = append(items, SidebarURLStyle.Render("Nothing read yet"))
	}
	for i, l := range links {
		items = append(items, SidebarItemStyle.Render(recentLabel(i, l)))
		items = append(items, SidebarURLStyle.Render(runewidth.Truncate(l.URL, sidebarWidth-6, "…")))
	}

	items = append(items, SidebarHelpStyle.Render("alt+N: summarize again"))

	return SidebarStyle.
		Width(sidebarWidth).
		Height(max(m.height-2, 0)).
		Render(lipgloss.JoinVertical(lipgloss.Left, items...))
}

func (m Model) label(text string, e reader.Element) string {
	if m.shell.Session().Focus == e {
		return FocusMarkerStyle.Render("▸ ") + LabelStyle.Foreground(ColorAccent).Render(text)
	}
	return "  " + LabelStyle.Render(text)
}

func (m Model) button(text string, e reader.Element, enabled bool) string {
	switch {
	case !enabled:
		return ButtonDisabledStyle.Render(text)
	case m.shell.Session().Focus == e:
		return ButtonFocusedStyle.Render(text)
	default:
		return ButtonStyle.Render(text)
	}
}

// slider draws a horizontal track with a knob at value.
func slider(value, lo, hi float64, focused bool) string {
	pos := 0
	if hi > lo {
		pos = int((value - lo) / (hi - lo) * float64(sliderWidth-1))
	}
	pos = min(max(pos, 0), sliderWidth-1)

	fill := SliderFillStyle
	if focused {
		fill = SliderFocusedFillStyle
	}
	return "  " + fill.Render(strings.Repeat("━", pos)+"●") +
		SliderTrackStyle.Render(strings.Repeat("─", sliderWidth-1-pos))
}

// renderHelp renders the help overlay.
func (m Model) renderHelp() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary).
		MarginBottom(1)

	sectionStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorSecondary).
		MarginTop(1)

	keyStyle := lipgloss.NewStyle().
		Foreground(ColorAccent).
		Width(12)

	descStyle := lipgloss.NewStyle().
		Foreground(ColorText)

	row := func(key, desc string) string {
		return keyStyle.Render(key) + descStyle.Render(desc) + "\n"
	}

	helpText := titleStyle.Render("Web Reader") + "\n\n"

	helpText += sectionStyle.Render("Global Keys") + "\n"
	helpText += row("tab", "Next control")
	helpText += row("shift+tab", "Previous control")
	helpText += row("ctrl+p", "Pause or resume speech")
	helpText += row("ctrl+y", "Copy content to clipboard")
	helpText += row("alt+1-5", "Summarize a recent link")
	helpText += row("?", "Show this help")
	helpText += row("esc", "Quit")

	helpText += sectionStyle.Render("Controls") + "\n"
	helpText += row("enter", "Process URL / press button")
	helpText += row("←/→", "Adjust font size or speed")

	helpText += sectionStyle.Render("Content") + "\n"
	helpText += row("↑/↓", "Scroll")
	helpText += row("enter", "Read content aloud")
	helpText += row("f", "Follow along word by word")

	helpText += "\n" + lipgloss.NewStyle().
		Foreground(ColorMuted).
		Italic(true).
		Render("Press any key to close")

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorSecondary).
		Padding(1, 2).
		Width(50)

	helpBox := boxStyle.Render(helpText)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, helpBox)
}

func wordWrap(s string, width int) string {
	if width <= 0 {
		width = 60
	}

	var out []string
	for _, para := range strings.Split(s, "\n") {
		var lines []string
		var line strings.Builder
		lineWidth := 0

		for _, word := range strings.Fields(para) {
			w := runewidth.StringWidth(word)
			if lineWidth+w+1 > width && lineWidth > 0 {
				lines = append(lines, line.String())
				line.Reset()
				lineWidth = 0
			}
			if lineWidth > 0 {
				line.WriteString(" ")
				lineWidth++
			}
			line.WriteString(word)
			lineWidth += w
		}
		if line.Len() > 0 || len(lines) == 0 {
			lines = append(lines, line.String())
		}
		out = append(out, lines...)
	}

	return strings.Join(out, "\n")
}

func (m Model) String() string {
	sess := m.shell.Session()
	return fmt.Sprintf("tui.Model{focus: %s, url: %q, follow: %v}", sess.Focus, sess.URL, m.follow)
}
