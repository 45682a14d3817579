package reader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/f3rmion/webreader/internal/backend"
	"github.com/f3rmion/webreader/internal/config"
	"github.com/f3rmion/webreader/internal/speech"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetchCall struct {
	url    string
	action backend.Action
}

type fakeFetcher struct {
	summary string
	err     error
	calls   []fetchCall
}

func (f *fakeFetcher) Process(_ context.Context, pageURL string, action backend.Action) (string, error) {
	f.calls = append(f.calls, fetchCall{url: pageURL, action: action})
	if f.err != nil {
		return "", f.err
	}
	return f.summary, nil
}

// fakeSynth records calls. It speaks until the test ends the utterance.
type fakeSynth struct {
	spoken  []*speech.Utterance
	calls   []string
	current *speech.Utterance
	paused  bool
	events  chan speech.Event
}

func newFakeSynth() *fakeSynth {
	return &fakeSynth{events: make(chan speech.Event, 8)}
}

func (f *fakeSynth) Speak(u *speech.Utterance) error {
	f.calls = append(f.calls, "speak")
	f.spoken = append(f.spoken, u)
	f.current = u
	f.paused = false
	return nil
}

func (f *fakeSynth) Cancel() {
	f.calls = append(f.calls, "cancel")
	f.current = nil
	f.paused = false
}

func (f *fakeSynth) Pause() {
	f.calls = append(f.calls, "pause")
	if f.current != nil {
		f.paused = true
	}
}

func (f *fakeSynth) Resume() {
	f.calls = append(f.calls, "resume")
	f.paused = false
}

func (f *fakeSynth) Speaking() bool              { return f.current != nil }
func (f *fakeSynth) Paused() bool                { return f.paused }
func (f *fakeSynth) Events() <-chan speech.Event { return f.events }
func (f *fakeSynth) Close() error                { return nil }

// end finishes the current utterance and returns its end event.
func (f *fakeSynth) end() speech.Event {
	u := f.current
	f.current = nil
	f.paused = false
	return speech.Event{Kind: speech.EndEvent, UtteranceID: u.ID}
}

func (f *fakeSynth) texts() []string {
	out := make([]string, len(f.spoken))
	for i, u := range f.spoken {
		out[i] = u.Text
	}
	return out
}

func (f *fakeSynth) last() *speech.Utterance {
	return f.spoken[len(f.spoken)-1]
}

func (f *fakeSynth) resetCalls() {
	f.calls = nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestShell(t *testing.T) (*Shell, *fakeFetcher, *fakeSynth) {
	t.Helper()
	f := &fakeFetcher{summary: "Hello world"}
	synth := newFakeSynth()
	return New(f, synth, config.Default(), quietLogger()), f, synth
}

func TestNew_Defaults(t *testing.T) {
	s, _, _ := newTestShell(t)
	sess := s.Session()

	assert.Equal(t, 20, sess.FontSize)
	assert.Equal(t, 1.0, sess.SpeechSpeed)
	assert.Equal(t, speech.Idle, sess.Speech.Phase)
	assert.Equal(t, NoFocus, sess.Focus)
	assert.Empty(t, s.RecentLinks())
}

func TestStart_Announces(t *testing.T) {
	s, _, synth := newTestShell(t)
	s.Start()
	assert.Equal(t, []string{LoadedMessage}, synth.texts())
}

func TestHandleURLAction_Success(t *testing.T) {
	s, f, synth := newTestShell(t)
	s.SetURL("https://example.com/a")

	s.HandleURLAction(context.Background(), backend.ActionRead)

	assert.Equal(t, []fetchCall{{url: "https://example.com/a", action: backend.ActionRead}}, f.calls)
	assert.Equal(t, "Hello world", s.Session().Summary)
	assert.Equal(t, []string{ReadingMessage, "Hello world"}, synth.texts())

	sess := s.Session()
	assert.Equal(t, speech.Speaking, sess.Speech.Phase)
	assert.True(t, sess.Speech.Continuous)
	assert.Equal(t, synth.last().ID, sess.Speech.UtteranceID)

	links := s.RecentLinks()
	require.Len(t, links, 1)
	assert.Equal(t, "https://example.com/a", links[0].URL)
	assert.Equal(t, "Example.com", links[0].Label)
	assert.False(t, s.Loading())
}

func TestHandleURLAction_SummarizeAlsoReads(t *testing.T) {
	s, _, synth := newTestShell(t)
	s.SetURL("https://example.com")

	s.HandleURLAction(context.Background(), backend.ActionSummarize)
	assert.Equal(t, []string{SummarizingMessage, "Hello world"}, synth.texts())
}

func TestHandleURLAction_Failure(t *testing.T) {
	s, f, synth := newTestShell(t)
	f.err = errors.New("Network Error")
	s.SetURL("https://example.com")

	s.HandleURLAction(context.Background(), backend.ActionRead)

	assert.Equal(t, "Error: Network Error", s.Session().Summary)
	assert.Equal(t, []string{ReadingMessage, FailedMessage}, synth.texts())
	assert.False(t, s.Session().Speech.Continuous)
	assert.Empty(t, s.RecentLinks())
}

func TestHandleURLAction_StatusError(t *testing.T) {
	s, f, _ := newTestShell(t)
	f.err = &backend.StatusError{StatusCode: 500, Detail: "boom"}

	s.HandleURLAction(context.Background(), backend.ActionRead)
	assert.Equal(t, "Error: request failed with status code 500: boom", s.Session().Summary)
}

func TestProcessURL_BaseCall(t *testing.T) {
	s, f, synth := newTestShell(t)
	s.SetURL("https://example.com")

	s.ProcessURL(context.Background())

	require.Len(t, f.calls, 1)
	assert.Equal(t, backend.ActionNone, f.calls[0].action)
	assert.Equal(t, ProcessingMessage, synth.texts()[0])
	assert.Len(t, s.RecentLinks(), 1)
}

func TestRecentLinks_UniqueCappedMostRecentFirst(t *testing.T) {
	s, _, _ := newTestShell(t)
	ctx := context.Background()

	for i := 1; i <= 7; i++ {
		s.SetURL(fmt.Sprintf("https://site%d.com", i))
		s.HandleURLAction(ctx, backend.ActionRead)
	}
	links := s.RecentLinks()
	require.Len(t, links, 5)
	assert.Equal(t, "https://site7.com", links[0].URL)
	assert.Equal(t, "https://site3.com", links[4].URL)

	s.SetURL("https://site5.com")
	s.HandleURLAction(ctx, backend.ActionRead)

	links = s.RecentLinks()
	require.Len(t, links, 5)
	assert.Equal(t, "https://site5.com", links[0].URL)

	count := 0
	for _, l := range links {
		if l.URL == "https://site5.com" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestAsyncFormUsesSubmittedURL(t *testing.T) {
	s, f, _ := newTestShell(t)
	s.SetURL("https://first.com")

	req := s.Begin(backend.ActionRead)
	assert.True(t, s.Loading())

	s.SetURL("https://edited-meanwhile.com")
	s.Complete(s.Fetch(context.Background(), req))

	assert.Equal(t, "https://first.com", f.calls[0].url)
	assert.Equal(t, "https://first.com", s.RecentLinks()[0].URL)
	assert.False(t, s.Loading())
}

func TestHandleRecentLinkClick(t *testing.T) {
	s, f, synth := newTestShell(t)
	s.SetURL("https://other.com")

	s.HandleRecentLinkClick(context.Background(), "https://clicked.com")

	assert.Equal(t, "https://clicked.com", s.Session().URL)
	assert.Equal(t, []fetchCall{{url: "https://clicked.com", action: backend.ActionSummarize}}, f.calls)
	assert.Equal(t, SummarizingMessage, synth.texts()[0])
}

func TestHandleFontSizeChange(t *testing.T) {
	s, _, synth := newTestShell(t)

	s.HandleFontSizeChange(24)
	assert.Equal(t, 24, s.Session().FontSize)

	s.HandleFontSizeChange(99)
	assert.Equal(t, 32, s.Session().FontSize)

	s.HandleFontSizeChange(3)
	assert.Equal(t, 12, s.Session().FontSize)

	assert.Equal(t, []string{"Font size set to 24", "Font size set to 32", "Font size set to 12"}, synth.texts())
}

func TestHandleSpeedChange_AnnouncesWhenIdle(t *testing.T) {
	s, _, synth := newTestShell(t)

	s.HandleSpeedChange(1.5)
	s.HandleSpeedChange(5)
	s.HandleSpeedChange(0.1)
	s.HandleSpeedChange(1)

	assert.Equal(t, 1.0, s.Session().SpeechSpeed)
	assert.Equal(t, []string{
		"Speech speed set to 1.5",
		"Speech speed set to 2",
		"Speech speed set to 0.5",
		"Speech speed set to 1",
	}, synth.texts())
}

func TestHandleSpeedChange_AppliesToContinuousReading(t *testing.T) {
	s, _, synth := newTestShell(t)
	s.HandleURLAction(context.Background(), backend.ActionRead)
	reading := synth.last()
	synth.resetCalls()

	s.HandleSpeedChange(1.7)

	assert.Equal(t, []string{"pause", "resume"}, synth.calls)
	assert.Equal(t, 1.7, reading.Rate())
	assert.Equal(t, 1.7, s.Session().Speech.Rate)
	assert.Equal(t, reading, synth.last(), "no announcement while reading")
	assert.False(t, synth.paused)
}

func TestHandleSpeedChange_KeepsPausedReadingPaused(t *testing.T) {
	s, _, synth := newTestShell(t)
	s.HandleURLAction(context.Background(), backend.ActionRead)
	s.HandlePause()
	synth.resetCalls()

	s.HandleSpeedChange(0.8)

	assert.Equal(t, []string{"pause", "resume", "pause"}, synth.calls)
	assert.True(t, synth.paused)
	assert.True(t, s.Session().IsPaused())
}

func TestSetSpeed_IsSilent(t *testing.T) {
	s, _, synth := newTestShell(t)

	assert.Equal(t, 2.0, s.SetSpeed(3))
	assert.Equal(t, 2.0, s.Session().SpeechSpeed)
	assert.Empty(t, synth.spoken)
}

func TestHandlePause(t *testing.T) {
	s, _, synth := newTestShell(t)

	s.HandlePause()
	assert.Empty(t, synth.calls, "no-op while nothing is spoken")
	assert.False(t, s.Session().IsPaused())

	s.HandleURLAction(context.Background(), backend.ActionRead)
	assert.Equal(t, "Pause", s.PauseLabel())

	s.HandlePause()
	assert.True(t, s.Session().IsPaused())
	assert.True(t, synth.paused)
	assert.Equal(t, "Resume", s.PauseLabel())

	s.HandlePause()
	assert.False(t, s.Session().IsPaused())
	assert.False(t, synth.paused)
	assert.Equal(t, speech.Speaking, s.Session().Speech.Phase)
}

func TestHandleEvent_EndResetsState(t *testing.T) {
	s, _, synth := newTestShell(t)
	s.HandleURLAction(context.Background(), backend.ActionRead)
	s.HandlePause()

	s.HandleEvent(synth.end())

	sess := s.Session()
	assert.Equal(t, speech.IdleState, sess.Speech)
	assert.False(t, sess.IsPaused())
	assert.Empty(t, s.CurrentWord())
}

func TestHandleEvent_IgnoresStaleUtterances(t *testing.T) {
	s, _, synth := newTestShell(t)
	s.HandleURLAction(context.Background(), backend.ActionRead)
	old := synth.last()

	s.HandleFontSizeChange(22)

	s.HandleEvent(speech.Event{Kind: speech.EndEvent, UtteranceID: old.ID})
	assert.Equal(t, speech.Speaking, s.Session().Speech.Phase)
	assert.Equal(t, synth.last().ID, s.Session().Speech.UtteranceID)
}

func TestHandleEvent_BoundaryTracksCurrentWord(t *testing.T) {
	s, f, synth := newTestShell(t)
	f.summary = "one two three"
	s.HandleURLAction(context.Background(), backend.ActionRead)

	s.HandleEvent(speech.Event{Kind: speech.BoundaryEvent, UtteranceID: synth.last().ID, Name: "word", CharIndex: 8})
	assert.Equal(t, "three", s.CurrentWord())

	s.HandleEvent(speech.Event{Kind: speech.BoundaryEvent, UtteranceID: synth.last().ID + 100, CharIndex: 4})
	assert.Equal(t, "three", s.CurrentWord())
}

func TestFocusNext_CyclesAndSkipsDisabledPauseButton(t *testing.T) {
	s, _, synth := newTestShell(t)

	var got []Element
	for i := 0; i < 7; i++ {
		got = append(got, s.FocusNext())
		s.HandleEvent(synth.end())
	}
	assert.Equal(t, []Element{
		URLInput, ReadButton, SummarizeButton, FontSlider, SpeedSlider, OutputText, URLInput,
	}, got)

	assert.Equal(t, []string{
		"Enter the URL in this input box",
		"Read URL button",
		"Summarize URL button",
		"Adjust font size using the slider or left right arrow keys",
		"Adjust speech speed using the slider, or left right arrow keys",
		EmptyContentMessage,
		"Enter the URL in this input box",
	}, synth.texts())
}

func TestFocusNext_IncludesPauseButtonWhileSpeaking(t *testing.T) {
	s, _, _ := newTestShell(t)
	s.HandleURLAction(context.Background(), backend.ActionRead)

	s.SetFocus(SpeedSlider)
	// Focusing the output area re-reads the summary, so speech continues.
	assert.Equal(t, OutputText, s.FocusNext())
	assert.Equal(t, PauseButton, s.FocusNext())
	assert.True(t, s.Speaking())
	assert.Equal(t, URLInput, s.FocusNext())
}

func TestFocusPrev_Wraps(t *testing.T) {
	s, _, synth := newTestShell(t)

	assert.Equal(t, URLInput, s.FocusPrev(), "focus outside the list goes to the first element")
	s.HandleEvent(synth.end())
	assert.Equal(t, OutputText, s.FocusPrev())
	s.HandleEvent(synth.end())
	assert.Equal(t, SpeedSlider, s.FocusPrev())
}

func TestFocusOutputText_ReadsSummary(t *testing.T) {
	s, _, synth := newTestShell(t)
	s.HandleURLAction(context.Background(), backend.ActionRead)
	s.HandleEvent(synth.end())

	s.SetFocus(OutputText)

	assert.Equal(t, "Hello world", synth.last().Text)
	assert.True(t, s.Session().Speech.Continuous)
}

func TestFocusPauseButton_AnnouncesThenRestartsReading(t *testing.T) {
	s, f, synth := newTestShell(t)
	f.summary = "a long article"
	s.HandleURLAction(context.Background(), backend.ActionRead)

	s.SetFocus(PauseButton)
	assert.Equal(t, PauseButtonMessage, synth.last().Text)
	assert.False(t, s.Session().Speech.Continuous)

	s.HandleEvent(synth.end())

	assert.Equal(t, "a long article", synth.last().Text)
	assert.True(t, s.Session().Speech.Continuous)
	assert.Equal(t, synth.last().ID, s.Session().Speech.UtteranceID)
}

func TestStopSpeaking(t *testing.T) {
	s, _, synth := newTestShell(t)
	s.HandleURLAction(context.Background(), backend.ActionRead)

	s.StopSpeaking()
	assert.False(t, synth.Speaking())
	assert.Equal(t, speech.IdleState, s.Session().Speech)
}

func TestNilSynthesizerSkipsSpeech(t *testing.T) {
	f := &fakeFetcher{summary: "text"}
	s := New(f, nil, nil, quietLogger())

	s.Start()
	s.SetURL("https://example.com")
	s.HandleURLAction(context.Background(), backend.ActionRead)
	s.HandlePause()
	s.HandleSpeedChange(1.2)
	s.FocusNext()

	assert.Equal(t, "text", s.Session().Summary)
	assert.Equal(t, speech.IdleState, s.Session().Speech)
	assert.Len(t, s.RecentLinks(), 1)
}

func TestElementID(t *testing.T) {
	assert.Equal(t, "url-input", URLInput.ID())
	assert.Equal(t, "pause-button", PauseButton.String())
	assert.Equal(t, "none", NoFocus.ID())
}
