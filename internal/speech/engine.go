package speech

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Playback is one run of a voice over a piece of text.
type Playback interface {
	Pause() error
	Resume() error
	// Stop ends playback early. Done is closed afterwards and Err is nil.
	Stop() error
	// Done is closed when playback ends.
	Done() <-chan struct{}
	// Err reports why playback failed. Only valid after Done is closed.
	Err() error
	// Position estimates how much of the text has been spoken, in [0, 1].
	Position() float64
}

// Voice produces audio for text. Start must not block on synthesis.
type Voice interface {
	Name() string
	Available() bool
	Start(ctx context.Context, text string, rate float64) (Playback, error)
	Close() error
}

const (
	eventBuffer  = 64
	tickInterval = 50 * time.Millisecond
)

// Engine implements Synthesizer on top of a Voice. It keeps one job per
// utterance, estimates word boundaries from playback position, and
// restarts the voice from the current word when a paused utterance is
// resumed at a different rate.
type Engine struct {
	voice    Voice
	log      logrus.FieldLogger
	events   chan Event
	closed   chan struct{}
	interval time.Duration

	closeOnce sync.Once

	mu  sync.Mutex
	job *job
}

var _ Synthesizer = (*Engine)(nil)

// job is the state of the utterance being spoken.
type job struct {
	u      *Utterance
	text   []rune
	words  []int // rune offsets of word starts
	next   int   // index into words of the next boundary to report
	base   int   // rune offset the current playback started at
	rate   float64
	pb     Playback
	paused bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewEngine creates an engine speaking through voice.
func NewEngine(voice Voice, log logrus.FieldLogger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{
		voice:    voice,
		log:      log.WithField("voice", voice.Name()),
		events:   make(chan Event, eventBuffer),
		closed:   make(chan struct{}),
		interval: tickInterval,
	}
}

// Speak starts speaking u, cancelling whatever was being spoken.
func (e *Engine) Speak(u *Utterance) error {
	if !e.voice.Available() {
		return ErrUnavailable
	}
	e.Cancel()

	ctx, cancel := context.WithCancel(context.Background())
	text := []rune(u.Text)
	j := &job{
		u:      u,
		text:   text,
		words:  WordStarts(u.Text),
		rate:   u.Rate(),
		ctx:    ctx,
		cancel: cancel,
	}

	pb, err := e.voice.Start(ctx, u.Text, j.rate)
	if err != nil {
		cancel()
		return fmt.Errorf("starting %s voice: %w", e.voice.Name(), err)
	}
	j.pb = pb

	e.mu.Lock()
	stale := e.job
	e.job = j
	e.mu.Unlock()
	if stale != nil {
		stale.stop()
	}

	e.log.WithFields(logrus.Fields{"utterance": u.ID, "rate": j.rate, "runes": len(j.text)}).Debug("speaking")

	go e.watch(j, pb)
	go e.tick(j)
	return nil
}

// Cancel stops the current utterance. No end event is emitted.
func (e *Engine) Cancel() {
	e.mu.Lock()
	j := e.job
	e.job = nil
	e.mu.Unlock()

	if j != nil {
		e.log.WithField("utterance", j.u.ID).Debug("cancelled")
		j.stop()
	}
}

// Pause suspends the current utterance.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	j := e.job
	if j == nil || j.paused {
		return
	}
	if err := j.pb.Pause(); err != nil {
		e.log.WithError(err).Warn("pausing speech")
		return
	}
	j.paused = true
}

// Resume continues the current utterance. If its rate changed while it
// was paused, the voice is restarted from the word being spoken.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()

	j := e.job
	if j == nil || !j.paused {
		return
	}

	if rate := j.u.Rate(); rate != j.rate {
		err := e.restartLocked(j, rate)
		if err == nil {
			j.paused = false
			return
		}
		e.log.WithError(err).Warn("applying new speech rate")
	}

	if err := j.pb.Resume(); err != nil {
		e.log.WithError(err).Warn("resuming speech")
		return
	}
	j.paused = false
}

// Speaking reports whether an utterance is in progress.
func (e *Engine) Speaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.job != nil
}

// Paused reports whether the current utterance is paused.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.job != nil && e.job.paused
}

// Events delivers boundary and end events.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Close cancels speech and releases the voice.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.Cancel()
		close(e.closed)
		err = e.voice.Close()
	})
	return err
}

// restartLocked replaces j's playback with one starting at the word being
// spoken, at the new rate.
func (e *Engine) restartLocked(j *job, rate float64) error {
	base := j.base
	if j.next > 0 {
		base = j.words[j.next-1]
	}

	pb, err := e.voice.Start(j.ctx, string(j.text[base:]), rate)
	if err != nil {
		return err
	}

	old := j.pb
	j.pb = pb
	j.base = base
	j.rate = rate
	if err := old.Stop(); err != nil {
		e.log.WithError(err).Debug("stopping replaced playback")
	}

	e.log.WithFields(logrus.Fields{"utterance": j.u.ID, "rate": rate, "from": base}).Debug("restarted at new rate")

	go e.watch(j, pb)
	return nil
}

// watch waits for pb to finish and ends the job if pb is still current.
func (e *Engine) watch(j *job, pb Playback) {
	<-pb.Done()

	e.mu.Lock()
	if e.job != j || j.pb != pb {
		e.mu.Unlock()
		return
	}
	e.job = nil
	e.mu.Unlock()

	j.cancel()

	err := pb.Err()
	if err != nil {
		e.log.WithError(err).WithField("utterance", j.u.ID).Warn("speech playback failed")
	}
	e.emit(Event{Kind: EndEvent, UtteranceID: j.u.ID, Err: err})
}

// tick reports word boundaries as playback advances.
func (e *Engine) tick(j *job) {
	t := time.NewTicker(e.interval)
	defer t.Stop()

	for {
		select {
		case <-j.ctx.Done():
			return
		case <-t.C:
		}

		e.mu.Lock()
		if e.job != j {
			e.mu.Unlock()
			return
		}
		events := j.boundaries()
		e.mu.Unlock()

		for _, ev := range events {
			e.emit(ev)
		}
	}
}

func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	case <-e.closed:
	}
}

// boundaries returns the boundary events for words reached since the last
// call. The caller holds the engine lock.
func (j *job) boundaries() []Event {
	pos := j.pb.Position()
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	reached := j.base + int(pos*float64(len(j.text)-j.base))

	var events []Event
	for j.next < len(j.words) && j.words[j.next] <= reached {
		events = append(events, Event{
			Kind:        BoundaryEvent,
			UtteranceID: j.u.ID,
			Name:        "word",
			CharIndex:   j.words[j.next],
		})
		j.next++
	}
	return events
}

func (j *job) stop() {
	j.cancel()
	_ = j.pb.Stop()
}
