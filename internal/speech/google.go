package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/gordonklaus/portaudio"
	"github.com/hajimehoshi/go-mp3"
	"github.com/sirupsen/logrus"
)

const (
	maxChunkSize    = 1000
	framesPerBuffer = 1024
	outputChannels  = 2 // go-mp3 always decodes to 16-bit stereo
	defaultLanguage = "en-US"
)

// GoogleVoice synthesizes with Google Cloud Text-to-Speech and plays the
// result on the default audio device.
type GoogleVoice struct {
	client   *texttospeech.Client
	language string
	name     string
	log      logrus.FieldLogger

	closeOnce sync.Once
}

// NewGoogleVoice connects to Cloud TTS using application default
// credentials and initializes the audio device.
func NewGoogleVoice(ctx context.Context, language, name string, log logrus.FieldLogger) (*GoogleVoice, error) {
	if language == "" {
		language = defaultLanguage
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating TTS client: %w", err)
	}
	if err := portaudio.Initialize(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("initializing audio: %w", err)
	}

	return &GoogleVoice{
		client:   client,
		language: language,
		name:     name,
		log:      log,
	}, nil
}

func (v *GoogleVoice) Name() string    { return "google" }
func (v *GoogleVoice) Available() bool { return v.client != nil }

// Close releases the client and the audio device.
func (v *GoogleVoice) Close() error {
	var err error
	v.closeOnce.Do(func() {
		err = v.client.Close()
		if termErr := portaudio.Terminate(); termErr != nil && err == nil {
			err = termErr
		}
	})
	return err
}

// Start synthesizes text chunk by chunk and plays each chunk as it arrives.
func (v *GoogleVoice) Start(ctx context.Context, text string, rate float64) (Playback, error) {
	chunks := splitTextIntoChunks(text, maxChunkSize)
	if len(chunks) == 0 {
		return nil, errors.New("nothing to speak")
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &audioPlayback{
		cancel: cancel,
		done:   make(chan struct{}),
		wake:   make(chan struct{}),
	}
	go p.run(ctx, v, chunks, rate)
	return p, nil
}

func (v *GoogleVoice) synthesize(ctx context.Context, chunk string, rate float64) ([]byte, error) {
	req := texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: chunk},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: v.language,
			Name:         v.name,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			SpeakingRate:  rate,
		},
	}

	resp, err := v.client.SynthesizeSpeech(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("synthesizing speech: %w", err)
	}
	return resp.AudioContent, nil
}

// splitTextIntoChunks groups words into chunks of at most maxChunkSize bytes.
func splitTextIntoChunks(text string, maxChunkSize int) []string {
	var chunks []string
	var chunk strings.Builder

	for _, word := range strings.Fields(text) {
		if chunk.Len() > 0 && chunk.Len()+len(word)+1 > maxChunkSize {
			chunks = append(chunks, chunk.String())
			chunk.Reset()
		}
		if chunk.Len() > 0 {
			chunk.WriteByte(' ')
		}
		chunk.WriteString(word)
	}
	if chunk.Len() > 0 {
		chunks = append(chunks, chunk.String())
	}
	return chunks
}

// audioPlayback plays synthesized chunks through portaudio.
type audioPlayback struct {
	cancel context.CancelFunc
	done   chan struct{}

	position atomic.Uint64 // math.Float64bits of the fraction played

	mu      sync.Mutex
	paused  bool
	wake    chan struct{} // closed on resume
	stopped bool
	err     error
}

func (p *audioPlayback) run(ctx context.Context, v *GoogleVoice, chunks []string, rate float64) {
	defer close(p.done)

	total := 0
	for _, c := range chunks {
		total += utf8.RuneCountInString(c)
	}

	spoken := 0
	for i, chunk := range chunks {
		audio, err := v.synthesize(ctx, chunk, rate)
		if err != nil {
			p.fail(ctx, err)
			return
		}

		size := utf8.RuneCountInString(chunk)
		progress := func(frac float64) {
			p.setPosition((float64(spoken) + frac*float64(size)) / float64(total))
		}
		if err := p.play(ctx, audio, progress); err != nil {
			p.fail(ctx, err)
			return
		}

		spoken += size
		v.log.WithFields(logrus.Fields{"chunk": i + 1, "chunks": len(chunks)}).Debug("chunk played")
	}
	p.setPosition(1)
}

// play decodes one MP3 chunk and writes it to a fresh output stream.
func (p *audioPlayback) play(ctx context.Context, audio []byte, progress func(float64)) error {
	dec, err := mp3.NewDecoder(bytes.NewReader(audio))
	if err != nil {
		return fmt.Errorf("decoding mp3: %w", err)
	}

	buf := make([]int16, framesPerBuffer*outputChannels)
	stream, err := portaudio.OpenDefaultStream(0, outputChannels, float64(dec.SampleRate()), framesPerBuffer, buf)
	if err != nil {
		return fmt.Errorf("opening audio stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("starting audio stream: %w", err)
	}
	defer stream.Stop()

	length := dec.Length()
	var played int64
	raw := make([]byte, len(buf)*2)

	for {
		if err := p.waitWhilePaused(ctx, stream); err != nil {
			return err
		}

		n, err := io.ReadFull(dec, raw)
		if n > 0 {
			samples := n / 2
			for i := 0; i < samples; i++ {
				buf[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
			}
			clear(buf[samples:])

			if werr := stream.Write(); werr != nil && !errors.Is(werr, portaudio.OutputUnderflowed) {
				return fmt.Errorf("writing audio: %w", werr)
			}

			played += int64(n)
			if length > 0 {
				progress(math.Min(float64(played)/float64(length), 1))
			}
		}

		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			progress(1)
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading mp3: %w", err)
		}
	}
}

// waitWhilePaused blocks while the playback is paused, stopping the stream
// so the device goes quiet.
func (p *audioPlayback) waitWhilePaused(ctx context.Context, stream *portaudio.Stream) error {
	p.mu.Lock()
	if !p.paused {
		p.mu.Unlock()
		return ctx.Err()
	}
	wake := p.wake
	p.mu.Unlock()

	if err := stream.Stop(); err != nil {
		return fmt.Errorf("stopping audio stream: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-wake:
	}

	if err := stream.Start(); err != nil {
		return fmt.Errorf("restarting audio stream: %w", err)
	}
	return nil
}

func (p *audioPlayback) fail(ctx context.Context, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped || ctx.Err() != nil {
		return
	}
	p.err = err
}

func (p *audioPlayback) setPosition(pos float64) {
	p.position.Store(math.Float64bits(pos))
}

func (p *audioPlayback) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused {
		p.paused = true
		p.wake = make(chan struct{})
	}
	return nil
}

func (p *audioPlayback) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused {
		p.paused = false
		close(p.wake)
	}
	return nil
}

func (p *audioPlayback) Stop() error {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
	p.cancel()
	return nil
}

func (p *audioPlayback) Done() <-chan struct{} { return p.done }

func (p *audioPlayback) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *audioPlayback) Position() float64 {
	return math.Float64frombits(p.position.Load())
}
