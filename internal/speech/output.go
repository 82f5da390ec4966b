// Package speech reads answers aloud. At most one utterance is synthesized
// or played at a time; requests arriving meanwhile are dropped, never queued.
package speech

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// State is the lifecycle of the single speech job.
type State int32

const (
	Idle State = iota
	Synthesizing
	Playing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Synthesizing:
		return "synthesizing"
	case Playing:
		return "playing"
	}
	return "unknown"
}

// Synthesizer writes spoken audio for text to the file at out.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, out string) error
}

// Player plays an audio file and returns once playback has finished.
type Player interface {
	Play(ctx context.Context, path string) error
}

// Output is the speech side channel. Failures are logged and never surfaced
// to the transcript.
type Output struct {
	synth   Synthesizer
	player  Player
	logger  *zap.Logger
	tempDir string

	state  atomic.Int32
	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
}

// Option customises an Output.
type Option func(*Output)

// WithTempDir places the temporary audio files in dir instead of os.TempDir().
func WithTempDir(dir string) Option {
	return func(o *Output) { o.tempDir = dir }
}

// NewOutput creates a speech output.
func NewOutput(synth Synthesizer, player Player, logger *zap.Logger, opts ...Option) *Output {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)
	o := &Output{
		synth:  synth,
		player: player,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		group:  group,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Speak starts reading text aloud on a worker goroutine. It returns false
// without doing anything when another utterance is still active.
func (o *Output) Speak(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	if !o.state.CompareAndSwap(int32(Idle), int32(Synthesizing)) {
		o.logger.Debug("speech request dropped", zap.Stringer("state", o.State()))
		return false
	}
	o.group.Go(func() error {
		o.run(text)
		return nil
	})
	return true
}

// State returns the current job state.
func (o *Output) State() State { return State(o.state.Load()) }

// Wait blocks until the active utterance, if any, has finished.
func (o *Output) Wait() { _ = o.group.Wait() }

// Close stops any playback in progress and waits for the worker to exit.
func (o *Output) Close() error {
	o.cancel()
	return o.group.Wait()
}

func (o *Output) run(text string) {
	defer o.state.Store(int32(Idle))
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("speech worker panicked", zap.Any("panic", r))
		}
	}()

	path, err := o.tempFile()
	if err != nil {
		o.logger.Warn("TTS error", zap.Error(err))
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			o.logger.Warn("removing temporary audio failed", zap.String("path", path), zap.Error(err))
		}
	}()

	if err := o.synth.Synthesize(o.ctx, text, path); err != nil {
		o.logger.Warn("TTS error", zap.Error(err))
		return
	}
	o.state.Store(int32(Playing))
	if err := o.player.Play(o.ctx, path); err != nil {
		o.logger.Warn("audio playback failed", zap.String("path", path), zap.Error(err))
		return
	}
	o.logger.Debug("speech finished", zap.Int("chars", len(text)))
}

func (o *Output) tempFile() (string, error) {
	f, err := os.CreateTemp(o.tempDir, "courseguide-*.mp3")
	if err != nil {
		return "", fmt.Errorf("creating temporary audio file: %w", err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("closing temporary audio file: %w", err)
	}
	return path, nil
}
