package highlight

import (
	"strings"
	"testing"

	"github.com/f3rmion/webreader/internal/speech"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSynth struct {
	calls   []string
	spoken  []*speech.Utterance
	current *speech.Utterance
}

func (f *fakeSynth) Speak(u *speech.Utterance) error {
	f.calls = append(f.calls, "speak")
	f.spoken = append(f.spoken, u)
	f.current = u
	return nil
}

func (f *fakeSynth) Cancel()                     { f.calls = append(f.calls, "cancel"); f.current = nil }
func (f *fakeSynth) Pause()                      { f.calls = append(f.calls, "pause") }
func (f *fakeSynth) Resume()                     { f.calls = append(f.calls, "resume") }
func (f *fakeSynth) Speaking() bool              { return f.current != nil }
func (f *fakeSynth) Paused() bool                { return false }
func (f *fakeSynth) Events() <-chan speech.Event { return nil }
func (f *fakeSynth) Close() error                { return nil }

const fiveWords = "one two three four five"

func boundary(u *speech.Utterance, charIndex int) speech.Event {
	return speech.Event{Kind: speech.BoundaryEvent, UtteranceID: u.ID, Name: "word", CharIndex: charIndex}
}

func TestSync_StartsOneUtterance(t *testing.T) {
	synth := &fakeSynth{}
	h := New(synth, nil)

	h.Sync(fiveWords, true, 1.2)
	h.Sync(fiveWords, true, 1.2)

	require.Len(t, synth.spoken, 1)
	assert.Equal(t, fiveWords, synth.spoken[0].Text)
	assert.Equal(t, 1.2, synth.spoken[0].Rate())
	assert.Equal(t, []string{"cancel", "speak", "resume"}, synth.calls)
	assert.Equal(t, speech.Speaking, h.State().Phase)
	assert.True(t, h.Active())
}

func TestHandleEvent_WordIndex(t *testing.T) {
	synth := &fakeSynth{}
	h := New(synth, nil)
	h.Sync(fiveWords, true, 1)
	u := synth.spoken[0]

	h.HandleEvent(boundary(u, 12))
	assert.Equal(t, 2, h.Index())
	assert.Equal(t, "three", h.Words()[h.Index()])

	h.HandleEvent(boundary(u, 500))
	assert.Equal(t, 4, h.Index())
}

func TestHandleEvent_IgnoresOtherUtterances(t *testing.T) {
	synth := &fakeSynth{}
	h := New(synth, nil)
	h.Sync(fiveWords, true, 1)
	u := synth.spoken[0]

	h.HandleEvent(speech.Event{Kind: speech.BoundaryEvent, UtteranceID: u.ID + 1, Name: "word", CharIndex: 12})
	assert.Equal(t, 0, h.Index())

	h.HandleEvent(speech.Event{Kind: speech.EndEvent, UtteranceID: u.ID + 1})
	assert.True(t, h.Active())
}

func TestHandleEvent_EndResets(t *testing.T) {
	synth := &fakeSynth{}
	h := New(synth, nil)
	h.Sync(fiveWords, true, 1)
	u := synth.spoken[0]

	h.HandleEvent(boundary(u, 8))
	h.HandleEvent(speech.Event{Kind: speech.EndEvent, UtteranceID: u.ID})

	assert.Equal(t, 0, h.Index())
	assert.False(t, h.Active())
	assert.Equal(t, speech.Idle, h.State().Phase)

	h.Sync(fiveWords, true, 1)
	assert.Len(t, synth.spoken, 2, "speaking again after the end starts a new utterance")
}

func TestSync_PausesWithoutDiscarding(t *testing.T) {
	synth := &fakeSynth{}
	h := New(synth, nil)
	h.Sync(fiveWords, true, 1)

	synth.calls = nil
	h.Sync(fiveWords, false, 1)
	assert.Equal(t, []string{"pause"}, synth.calls)
	assert.Equal(t, speech.Paused, h.State().Phase)
	assert.True(t, h.Active())

	synth.calls = nil
	h.Sync(fiveWords, true, 1)
	assert.Equal(t, []string{"resume"}, synth.calls)
	assert.Equal(t, speech.Speaking, h.State().Phase)
	assert.Len(t, synth.spoken, 1)
}

func TestSync_NotSpeakingWithoutUtteranceDoesNothing(t *testing.T) {
	synth := &fakeSynth{}
	h := New(synth, nil)

	h.Sync(fiveWords, false, 1)
	assert.Empty(t, synth.calls)
	assert.Equal(t, []string{"one", "two", "three", "four", "five"}, h.Words())
}

func TestSync_RateChangeAppliedOnResume(t *testing.T) {
	synth := &fakeSynth{}
	h := New(synth, nil)
	h.Sync(fiveWords, true, 1)
	u := synth.spoken[0]

	synth.calls = nil
	h.Sync(fiveWords, true, 1.5)

	assert.Equal(t, 1.5, u.Rate())
	assert.Equal(t, []string{"pause", "resume"}, synth.calls)
	assert.Equal(t, 1.5, h.State().Rate)
}

func TestSync_TextChangeStartsOver(t *testing.T) {
	synth := &fakeSynth{}
	h := New(synth, nil)
	h.Sync(fiveWords, true, 1)
	h.HandleEvent(boundary(synth.spoken[0], 12))

	h.Sync("alpha beta", true, 1)

	require.Len(t, synth.spoken, 2)
	assert.Equal(t, "alpha beta", synth.spoken[1].Text)
	assert.Equal(t, 0, h.Index())
	assert.Equal(t, []string{"alpha", "beta"}, h.Words())
	assert.Equal(t, synth.spoken[1].ID, h.State().UtteranceID)
}

func TestSync_NilSynthesizer(t *testing.T) {
	h := New(nil, nil)
	h.Sync(fiveWords, true, 1)
	assert.False(t, h.Active())
	assert.Len(t, h.Words(), 5)
}

func TestStop(t *testing.T) {
	synth := &fakeSynth{}
	h := New(synth, nil)
	h.Sync(fiveWords, true, 1)

	h.Stop()
	assert.False(t, h.Active())
	assert.Equal(t, "cancel", synth.calls[len(synth.calls)-1])
}

func TestView_WrapsAndMarksCurrentWord(t *testing.T) {
	synth := &fakeSynth{}
	h := New(synth, nil)
	h.Sync(fiveWords, true, 1)
	h.HandleEvent(boundary(synth.spoken[0], 12))

	out := h.View(9)
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, out, "three")
	assert.Contains(t, out, highlightStyle.Render("three"))
}
