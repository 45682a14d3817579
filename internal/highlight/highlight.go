// Package highlight reads a block of text aloud and marks the word that is
// estimated to be spoken.
package highlight

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/f3rmion/webreader/internal/speech"
	"github.com/mattn/go-runewidth"
	"github.com/sirupsen/logrus"
)

// charsPerWord is the fixed word width used to map a boundary's character
// index to a word index.
const charsPerWord = 5

var (
	wordStyle      = lipgloss.NewStyle()
	highlightStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#F4D03F")).
			Foreground(lipgloss.Color("#000000"))
)

// Highlighter drives a single utterance for its text.
type Highlighter struct {
	synth speech.Synthesizer
	log   logrus.FieldLogger

	text  string
	words []string
	index int

	utterance *speech.Utterance
	state     speech.State
}

// New creates a highlighter speaking through synth, which may be nil.
func New(synth speech.Synthesizer, log logrus.FieldLogger) *Highlighter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Highlighter{synth: synth, log: log}
}

// Sync brings speech in line with text, the speaking flag and rate. While
// speaking is false the utterance is paused, not discarded. A new text
// starts over.
func (h *Highlighter) Sync(text string, speaking bool, rate float64) {
	if text != h.text {
		h.discard()
		h.text = text
		h.words = strings.Fields(text)
		h.index = 0
	}

	if h.synth == nil {
		return
	}

	if !speaking {
		if h.state.Phase == speech.Speaking {
			h.synth.Pause()
			h.state = h.state.Pause()
		}
		return
	}

	if h.utterance == nil {
		h.synth.Cancel()
		u := speech.NewUtterance(text, rate)
		if err := h.synth.Speak(u); err != nil {
			h.log.WithError(err).Warn("speaking highlighted text")
			return
		}
		h.utterance = u
		h.state = speech.SpeakingState(u, true)
		return
	}

	if rate != h.utterance.Rate() {
		h.utterance.SetRate(rate)
		h.state.Rate = rate
		if h.state.Phase == speech.Speaking {
			h.synth.Pause()
		}
	}
	h.synth.Resume()
	h.state = h.state.Resume()
}

// Stop cancels the utterance and resets the highlight.
func (h *Highlighter) Stop() {
	h.discard()
	h.index = 0
}

// HandleEvent moves the highlight on word boundaries and resets it when the
// utterance ends. Events for other utterances are ignored.
func (h *Highlighter) HandleEvent(ev speech.Event) {
	if !h.state.Owns(ev) {
		return
	}

	switch ev.Kind {
	case speech.BoundaryEvent:
		if ev.Name != "word" {
			return
		}
		h.index = min(ev.CharIndex/charsPerWord, len(h.words)-1)
		if h.index < 0 {
			h.index = 0
		}
	case speech.EndEvent:
		h.index = 0
		h.utterance = nil
		h.state = speech.IdleState
	}
}

// Index returns the highlighted word index.
func (h *Highlighter) Index() int { return h.index }

// Words returns the whitespace-split words of the text.
func (h *Highlighter) Words() []string { return h.words }

// State returns the speech state of the highlighter's utterance.
func (h *Highlighter) State() speech.State { return h.state }

// Active reports whether the highlighter holds an utterance.
func (h *Highlighter) Active() bool { return h.utterance != nil }

// View renders the words wrapped to width, with the current word marked.
func (h *Highlighter) View(width int) string {
	if width <= 0 {
		width = 80
	}

	var b strings.Builder
	col := 0
	for i, w := range h.words {
		ww := runewidth.StringWidth(w)
		if col > 0 && col+1+ww > width {
			b.WriteByte('\n')
			col = 0
		} else if col > 0 {
			b.WriteByte(' ')
			col++
		}

		style := wordStyle
		if i == h.index {
			style = highlightStyle
		}
		b.WriteString(style.Render(w))
		col += ww
	}
	return b.String()
}

func (h *Highlighter) discard() {
	if h.utterance != nil && h.synth != nil {
		h.synth.Cancel()
	}
	h.utterance = nil
	h.state = speech.IdleState
}
