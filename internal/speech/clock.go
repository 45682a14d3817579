package speech

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"
)

// baseWordsPerMinute is the speaking speed at rate 1.0.
const baseWordsPerMinute = 175

// EstimateDuration guesses how long text takes to speak at rate.
func EstimateDuration(text string, rate float64) time.Duration {
	if rate <= 0 {
		rate = 1
	}
	words := len(WordStarts(text))
	if words == 0 && utf8.RuneCountInString(text) > 0 {
		words = 1
	}
	minutes := float64(words) / (baseWordsPerMinute * rate)
	return time.Duration(minutes * float64(time.Minute))
}

// clock measures speaking time against an expected total, excluding pauses.
type clock struct {
	now func() time.Time

	mu      sync.Mutex
	total   time.Duration
	spent   time.Duration
	started time.Time // zero while paused
}

func newClock(total time.Duration, now func() time.Time) *clock {
	if now == nil {
		now = time.Now
	}
	return &clock{now: now, total: total, started: now()}
}

func (c *clock) pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started.IsZero() {
		c.spent += c.now().Sub(c.started)
		c.started = time.Time{}
	}
}

func (c *clock) resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started.IsZero() {
		c.started = c.now()
	}
}

func (c *clock) position() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.total <= 0 {
		return 1
	}
	spent := c.spent
	if !c.started.IsZero() {
		spent += c.now().Sub(c.started)
	}
	pos := float64(spent) / float64(c.total)
	if pos > 1 {
		return 1
	}
	return pos
}

// SilentVoice "speaks" for the estimated duration without producing audio.
// It drives highlighting when no audio device is wanted.
type SilentVoice struct{}

// NewSilentVoice creates a silent voice.
func NewSilentVoice() *SilentVoice {
	return &SilentVoice{}
}

func (SilentVoice) Name() string    { return "silent" }
func (SilentVoice) Available() bool { return true }
func (SilentVoice) Close() error    { return nil }

// Start begins a timed playback of text.
func (SilentVoice) Start(ctx context.Context, text string, rate float64) (Playback, error) {
	p := &timedPlayback{
		clock: newClock(EstimateDuration(text, rate), nil),
		done:  make(chan struct{}),
		stop:  make(chan struct{}),
	}
	go p.run(ctx)
	return p, nil
}

// timedPlayback finishes when its clock reaches the end.
type timedPlayback struct {
	clock    *clock
	done     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

func (p *timedPlayback) run(ctx context.Context) {
	defer close(p.done)

	t := time.NewTicker(10 * time.Millisecond)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-t.C:
			if p.clock.position() >= 1 {
				return
			}
		}
	}
}

func (p *timedPlayback) Pause() error  { p.clock.pause(); return nil }
func (p *timedPlayback) Resume() error { p.clock.resume(); return nil }
func (p *timedPlayback) Err() error    { return nil }

func (p *timedPlayback) Stop() error {
	p.stopOnce.Do(func() { close(p.stop) })
	return nil
}

func (p *timedPlayback) Done() <-chan struct{} { return p.done }
func (p *timedPlayback) Position() float64     { return p.clock.position() }
