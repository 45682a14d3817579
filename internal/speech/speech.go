// Package speech wraps a text-to-speech capability behind an injectable
// interface with explicit start, cancel, pause and resume operations.
package speech

import (
	"errors"
	"sync"
	"sync/atomic"
	"unicode"
)

// ErrUnavailable is returned when no speech engine can be used.
var ErrUnavailable = errors.New("speech synthesis unavailable")

var nextUtteranceID atomic.Uint64

// Utterance is a single piece of text submitted for speaking. Its rate may
// be changed while it is being spoken; engines pick the new rate up on the
// next resume.
type Utterance struct {
	ID   uint64
	Text string

	mu   sync.Mutex
	rate float64
}

// NewUtterance creates an utterance with a process-unique ID.
func NewUtterance(text string, rate float64) *Utterance {
	return &Utterance{
		ID:   nextUtteranceID.Add(1),
		Text: text,
		rate: rate,
	}
}

// Rate returns the current speaking rate (1.0 is normal speed).
func (u *Utterance) Rate() float64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.rate
}

// SetRate changes the speaking rate.
func (u *Utterance) SetRate(rate float64) {
	u.mu.Lock()
	u.rate = rate
	u.mu.Unlock()
}

// EventKind distinguishes speech events.
type EventKind int

const (
	// BoundaryEvent reports that speaking reached a word boundary.
	BoundaryEvent EventKind = iota
	// EndEvent reports that an utterance finished. Cancelled utterances
	// produce no end event.
	EndEvent
)

func (k EventKind) String() string {
	switch k {
	case BoundaryEvent:
		return "boundary"
	case EndEvent:
		return "end"
	default:
		return "unknown"
	}
}

// Event is emitted by a Synthesizer while it speaks.
type Event struct {
	Kind        EventKind
	UtteranceID uint64
	Name        string // boundary type, always "word"
	CharIndex   int    // rune offset into the utterance text
	Err         error  // set on EndEvent when playback failed
}

// Synthesizer is the platform speech capability. At most one utterance is
// spoken at a time.
type Synthesizer interface {
	// Speak starts speaking u. Callers cancel any prior utterance first.
	Speak(u *Utterance) error
	// Cancel stops the current utterance without emitting an end event.
	Cancel()
	// Pause suspends the current utterance.
	Pause()
	// Resume continues a paused utterance, applying any rate change.
	Resume()
	// Speaking reports whether an utterance is in progress, paused or not.
	Speaking() bool
	// Paused reports whether the current utterance is paused.
	Paused() bool
	// Events delivers boundary and end events.
	Events() <-chan Event
	// Close releases the engine.
	Close() error
}

// Phase is the coarse state of speech from a caller's point of view.
type Phase int

const (
	Idle Phase = iota
	Speaking
	Paused
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Speaking:
		return "speaking"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// State tags the utterance a caller is tracking. UtteranceID and Rate are
// zero when Phase is Idle. Continuous marks long-form reading as opposed to
// short announcements.
type State struct {
	Phase       Phase
	UtteranceID uint64
	Rate        float64
	Continuous  bool
}

// IdleState is the zero state.
var IdleState = State{}

// SpeakingState returns the state for an utterance that just started.
func SpeakingState(u *Utterance, continuous bool) State {
	return State{Phase: Speaking, UtteranceID: u.ID, Rate: u.Rate(), Continuous: continuous}
}

// Pause moves Speaking to Paused. Other phases are returned unchanged.
func (s State) Pause() State {
	if s.Phase == Speaking {
		s.Phase = Paused
	}
	return s
}

// Resume moves Paused to Speaking. Other phases are returned unchanged.
func (s State) Resume() State {
	if s.Phase == Paused {
		s.Phase = Speaking
	}
	return s
}

// Owns reports whether ev belongs to the tracked utterance.
func (s State) Owns(ev Event) bool {
	return s.Phase != Idle && ev.UtteranceID == s.UtteranceID
}

// WordStarts returns the rune offsets at which each word of text begins.
func WordStarts(text string) []int {
	var starts []int
	inWord := false
	i := 0
	for _, r := range text {
		space := unicode.IsSpace(r)
		if !space && !inWord {
			starts = append(starts, i)
		}
		inWord = !space
		i++
	}
	return starts
}
