package speech

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// CommandVoice speaks through a local TTS program such as espeak-ng or say.
type CommandVoice struct {
	program string
	path    string
	voice   string
}

// commandCandidates lists the programs tried in order, per platform.
func commandCandidates() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"say", "espeak-ng", "espeak"}
	default:
		return []string{"espeak-ng", "espeak"}
	}
}

// NewCommandVoice finds a TTS program. If program is empty the platform
// defaults are tried. voice is passed through to the program when set.
func NewCommandVoice(program, voice string) (*CommandVoice, error) {
	candidates := commandCandidates()
	if program != "" {
		candidates = []string{program}
	}

	for _, name := range candidates {
		path, err := exec.LookPath(name)
		if err != nil {
			continue
		}
		return &CommandVoice{program: name, path: path, voice: voice}, nil
	}
	return nil, fmt.Errorf("no speech program found (tried %s): %w", strings.Join(candidates, ", "), ErrUnavailable)
}

func (v *CommandVoice) Name() string    { return v.program }
func (v *CommandVoice) Available() bool { return v.path != "" }
func (v *CommandVoice) Close() error    { return nil }

// args builds the program's arguments for rate. Text is always read from stdin.
func (v *CommandVoice) args(rate float64) []string {
	wpm := strconv.Itoa(int(baseWordsPerMinute * rate))
	base := v.program
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}

	switch base {
	case "say":
		args := []string{"-r", wpm}
		if v.voice != "" {
			args = append(args, "-v", v.voice)
		}
		return append(args, "-f", "-")
	default:
		args := []string{"-s", wpm}
		if v.voice != "" {
			args = append(args, "-v", v.voice)
		}
		return append(args, "--stdin")
	}
}

// Start runs the program on text.
func (v *CommandVoice) Start(ctx context.Context, text string, rate float64) (Playback, error) {
	cmd := exec.CommandContext(ctx, v.path, v.args(rate)...)
	cmd.Stdin = strings.NewReader(text)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("running %s: %w", v.program, err)
	}

	p := &commandPlayback{
		cmd:   cmd,
		clock: newClock(EstimateDuration(text, rate), nil),
		done:  make(chan struct{}),
	}
	go p.wait()
	return p, nil
}

// commandPlayback tracks a running TTS process. Position comes from the
// estimated duration since the program reports no progress.
type commandPlayback struct {
	cmd   *exec.Cmd
	clock *clock
	done  chan struct{}

	mu      sync.Mutex
	stopped bool
	err     error
}

func (p *commandPlayback) wait() {
	err := p.cmd.Wait()

	p.mu.Lock()
	if !p.stopped && err != nil {
		p.err = fmt.Errorf("%s exited: %w", p.cmd.Path, err)
	}
	p.mu.Unlock()

	close(p.done)
}

func (p *commandPlayback) Pause() error {
	if err := suspend(p.cmd.Process); err != nil {
		return err
	}
	p.clock.pause()
	return nil
}

func (p *commandPlayback) Resume() error {
	if err := resume(p.cmd.Process); err != nil {
		return err
	}
	p.clock.resume()
	return nil
}

func (p *commandPlayback) Stop() error {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	default:
	}

	// A stopped process ignores SIGKILL until continued on some systems.
	_ = resume(p.cmd.Process)
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, errProcessDone) {
		return fmt.Errorf("killing %s: %w", p.cmd.Path, err)
	}
	return nil
}

func (p *commandPlayback) Done() <-chan struct{} { return p.done }

func (p *commandPlayback) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *commandPlayback) Position() float64 {
	select {
	case <-p.done:
		return 1
	default:
	}
	return p.clock.position()
}
