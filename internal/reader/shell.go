// Package reader holds the Web Reader session: the URL and content being
// read, display and speech settings, recent links and keyboard focus. It
// talks to the backend service and the speech synthesizer and knows
// nothing about how it is rendered.
package reader

import (
	"context"
	"strconv"
	"unicode"

	"github.com/f3rmion/webreader/internal/backend"
	"github.com/f3rmion/webreader/internal/config"
	"github.com/f3rmion/webreader/internal/recent"
	"github.com/f3rmion/webreader/internal/speech"
	"github.com/sirupsen/logrus"
)

// Spoken messages.
const (
	LoadedMessage       = "Web Reader loaded. Use the sliders to adjust font size or speech speed."
	ProcessingMessage   = "Processing the URL. Please wait."
	ReadingMessage      = "Reading the URL. Please wait."
	SummarizingMessage  = "Summarizing the URL. Please wait."
	FailedMessage       = "Failed to process the URL. Please try again."
	EmptyContentMessage = "This is the output content area. It is read-only."
	PauseButtonMessage  = "Pause button"
)

// Fetcher turns a page URL into text. *backend.Client implements it.
type Fetcher interface {
	Process(ctx context.Context, pageURL string, action backend.Action) (string, error)
}

// Session is a snapshot of the reader's state.
type Session struct {
	URL         string
	Summary     string
	FontSize    int
	SpeechSpeed float64
	Speech      speech.State
	Focus       Element
}

// IsPaused reports whether speech is paused.
func (s Session) IsPaused() bool {
	return s.Speech.Phase == speech.Paused
}

// Request is a backend call that has been announced but not yet made.
type Request struct {
	URL    string
	Action backend.Action
}

// Result is the outcome of a Request.
type Result struct {
	Request Request
	Summary string
	Err     error
}

// Shell owns the session and reacts to user actions. It is not safe for
// concurrent use; Fetch is the only method that may run off the caller's
// goroutine.
type Shell struct {
	fetcher Fetcher
	synth   speech.Synthesizer
	log     logrus.FieldLogger

	session Session
	recent  *recent.List

	// continuous is the long-form utterance being read, if any.
	continuous *speech.Utterance
	// resumeText is read continuously once the pause button announcement ends.
	resumeText string
	charIndex  int
	inFlight   int
}

// New creates a shell. synth may be nil, in which case nothing is spoken.
func New(fetcher Fetcher, synth speech.Synthesizer, cfg *config.Config, log logrus.FieldLogger) *Shell {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Shell{
		fetcher: fetcher,
		synth:   synth,
		log:     log,
		session: Session{
			FontSize:    config.ClampFontSize(cfg.FontSize),
			SpeechSpeed: config.ClampSpeechRate(cfg.SpeechRate),
			Speech:      speech.IdleState,
			Focus:       NoFocus,
		},
		recent: recent.NewList(recent.DefaultLimit),
	}
}

// Session returns a copy of the current state.
func (s *Shell) Session() Session {
	return s.session
}

// RecentLinks returns the recent links, most recent first.
func (s *Shell) RecentLinks() []recent.Link {
	return s.recent.Links()
}

// Loading reports whether any backend request is outstanding.
func (s *Shell) Loading() bool {
	return s.inFlight > 0
}

// Speaking reports whether the synthesizer is speaking, paused or not.
func (s *Shell) Speaking() bool {
	return s.synth != nil && s.synth.Speaking()
}

// PauseLabel is the caption of the pause button.
func (s *Shell) PauseLabel() string {
	if s.session.IsPaused() {
		return "Resume"
	}
	return "Pause"
}

// SetURL updates the URL field.
func (s *Shell) SetURL(url string) {
	s.session.URL = url
}

// Start announces that the reader is ready.
func (s *Shell) Start() {
	s.speak(LoadedMessage)
}

// ProcessURL sends the current URL to the service without an action.
func (s *Shell) ProcessURL(ctx context.Context) {
	s.HandleURLAction(ctx, backend.ActionNone)
}

// HandleURLAction sends the current URL to the service and reads the
// result aloud.
func (s *Shell) HandleURLAction(ctx context.Context, action backend.Action) {
	s.Complete(s.Fetch(ctx, s.Begin(action)))
}

// HandleRecentLinkClick loads url into the URL field and summarizes it.
func (s *Shell) HandleRecentLinkClick(ctx context.Context, url string) {
	s.Complete(s.Fetch(ctx, s.SelectRecent(url)))
}

// SelectRecent is the first half of HandleRecentLinkClick.
func (s *Shell) SelectRecent(url string) Request {
	s.SetURL(url)
	return s.Begin(backend.ActionSummarize)
}

// Begin announces a backend call for the current URL.
func (s *Shell) Begin(action backend.Action) Request {
	switch action {
	case backend.ActionRead:
		s.speak(ReadingMessage)
	case backend.ActionSummarize:
		s.speak(SummarizingMessage)
	default:
		s.speak(ProcessingMessage)
	}
	s.inFlight++
	return Request{URL: s.session.URL, Action: action}
}

// Fetch performs req. It does not touch the session.
func (s *Shell) Fetch(ctx context.Context, req Request) Result {
	summary, err := s.fetcher.Process(ctx, req.URL, req.Action)
	return Result{Request: req, Summary: summary, Err: err}
}

// Complete stores the outcome of a request. On success the text is read
// aloud and the URL becomes the most recent link. On failure the error is
// shown and a failure notice is spoken.
func (s *Shell) Complete(res Result) {
	if s.inFlight > 0 {
		s.inFlight--
	}

	log := s.log.WithFields(logrus.Fields{"url": res.Request.URL, "action": string(res.Request.Action)})
	if res.Err != nil {
		log.WithError(res.Err).Warn("processing url failed")
		s.session.Summary = "Error: " + res.Err.Error()
		s.speak(FailedMessage)
		return
	}

	log.WithField("chars", len(res.Summary)).Info("url processed")
	s.session.Summary = res.Summary
	s.speakContinuous(res.Summary)
	s.recent.Add(res.Request.URL)
}

// HandlePause toggles pause while something is being spoken.
func (s *Shell) HandlePause() {
	if !s.Speaking() {
		return
	}
	if s.session.IsPaused() {
		s.synth.Resume()
		s.session.Speech = s.session.Speech.Resume()
		return
	}
	s.synth.Pause()
	s.session.Speech = s.session.Speech.Pause()
}

// HandleFontSizeChange sets and announces the font size.
func (s *Shell) HandleFontSizeChange(size int) {
	size = config.ClampFontSize(size)
	s.session.FontSize = size
	s.speak("Font size set to " + strconv.Itoa(size))
}

// HandleSpeedChange sets the speech rate. A continuous reading in progress
// picks up the new rate; otherwise the new rate is announced.
func (s *Shell) HandleSpeedChange(rate float64) {
	rate = config.ClampSpeechRate(rate)
	s.session.SpeechSpeed = rate

	if s.continuous != nil && s.Speaking() {
		s.continuous.SetRate(rate)
		s.session.Speech.Rate = rate

		wasPaused := s.session.IsPaused()
		s.synth.Pause()
		s.synth.Resume()
		if wasPaused {
			s.synth.Pause()
		}
		return
	}

	s.speak("Speech speed set to " + strconv.FormatFloat(rate, 'f', -1, 64))
}

// SetSpeed stores a clamped speech rate without speaking it and returns
// the stored value.
func (s *Shell) SetSpeed(rate float64) float64 {
	s.session.SpeechSpeed = config.ClampSpeechRate(rate)
	return s.session.SpeechSpeed
}

// FocusNext moves focus forward through FocusOrder, wrapping around.
func (s *Shell) FocusNext() Element {
	return s.SetFocus(nextFocus(FocusOrder, s.session.Focus, 1, s.Enabled))
}

// FocusPrev moves focus backward through FocusOrder, wrapping around.
func (s *Shell) FocusPrev() Element {
	return s.SetFocus(nextFocus(FocusOrder, s.session.Focus, -1, s.Enabled))
}

// Enabled reports whether e can take focus. The pause button is disabled
// while nothing is being spoken.
func (s *Shell) Enabled(e Element) bool {
	if e == PauseButton {
		return s.Speaking()
	}
	return true
}

// SetFocus focuses e and speaks its description.
func (s *Shell) SetFocus(e Element) Element {
	if e == s.session.Focus {
		return e
	}
	s.session.Focus = e

	switch e {
	case NoFocus:
	case OutputText:
		s.ReadContent()
	case PauseButton:
		s.focusPauseButton()
	default:
		s.speak(focusLabels[e])
	}
	return e
}

// ReadContent reads the content area aloud, or says that it is empty.
func (s *Shell) ReadContent() {
	if s.session.Summary != "" {
		s.speakContinuous(s.session.Summary)
		return
	}
	s.speak(EmptyContentMessage)
}

// focusPauseButton interrupts a continuous reading to name the button,
// then reads the interrupted text again.
func (s *Shell) focusPauseButton() {
	var interrupted string
	if s.continuous != nil && s.Speaking() {
		interrupted = s.continuous.Text
	}
	s.speak(PauseButtonMessage)
	if s.session.Speech.Phase != speech.Idle {
		s.resumeText = interrupted
	}
}

// StopSpeaking cancels whatever the shell is saying.
func (s *Shell) StopSpeaking() {
	if s.synth != nil {
		s.synth.Cancel()
	}
	s.reset()
}

// HandleEvent applies a speech event. Events for utterances the shell is
// not tracking are ignored.
func (s *Shell) HandleEvent(ev speech.Event) {
	if !s.session.Speech.Owns(ev) {
		return
	}

	switch ev.Kind {
	case speech.BoundaryEvent:
		s.charIndex = ev.CharIndex
	case speech.EndEvent:
		text := s.resumeText
		s.reset()
		if text != "" {
			s.speakContinuous(text)
		}
	}
}

// CurrentWord returns the word of the continuous reading being spoken.
func (s *Shell) CurrentWord() string {
	if s.continuous == nil {
		return ""
	}
	return wordAt(s.continuous.Text, s.charIndex)
}

func (s *Shell) reset() {
	s.session.Speech = speech.IdleState
	s.continuous = nil
	s.resumeText = ""
	s.charIndex = 0
}

// speak says a short announcement, replacing anything being spoken.
func (s *Shell) speak(text string) {
	s.say(text, false)
}

// speakContinuous reads text as the current long-form utterance.
func (s *Shell) speakContinuous(text string) {
	s.say(text, true)
}

func (s *Shell) say(text string, continuous bool) {
	if s.synth == nil {
		return
	}
	s.synth.Cancel()
	s.reset()

	u := speech.NewUtterance(text, s.session.SpeechSpeed)
	if err := s.synth.Speak(u); err != nil {
		s.log.WithError(err).Warn("speaking failed")
		return
	}

	s.session.Speech = speech.SpeakingState(u, continuous)
	if continuous {
		s.continuous = u
	}
}

// wordAt returns the whitespace-delimited word containing rune offset idx.
func wordAt(text string, idx int) string {
	runes := []rune(text)
	if idx < 0 || idx >= len(runes) {
		return ""
	}
	start, end := idx, idx
	for start > 0 && !unicode.IsSpace(runes[start-1]) {
		start--
	}
	for end < len(runes) && !unicode.IsSpace(runes[end]) {
		end++
	}
	return string(runes[start:end])
}
