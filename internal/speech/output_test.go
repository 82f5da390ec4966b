package speech

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"
)

type fakeSynth struct {
	mu    sync.Mutex
	calls int
	paths []string
	err   error
}

func (f *fakeSynth) Synthesize(ctx context.Context, text, out string) error {
	f.mu.Lock()
	f.calls++
	f.paths = append(f.paths, out)
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(out, []byte("ID3"), 0o600)
}

type fakePlayer struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
	release chan struct{}
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{started: make(chan struct{}, 8), release: make(chan struct{})}
}

func (f *fakePlayer) Play(ctx context.Context, path string) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if _, err := os.Stat(path); err != nil {
		return err
	}
	f.started <- struct{}{}
	select {
	case <-f.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected temporary audio to be removed, found %d files", len(entries))
	}
}

func TestOutput_SecondSpeakIsDropped(t *testing.T) {
	dir := t.TempDir()
	synth := &fakeSynth{}
	player := newFakePlayer()
	out := NewOutput(synth, player, nil, WithTempDir(dir))

	if !out.Speak("first answer") {
		t.Fatal("first Speak should start")
	}
	select {
	case <-player.started:
	case <-time.After(2 * time.Second):
		t.Fatal("playback never started")
	}
	if out.State() != Playing {
		t.Errorf("expected playing, got %s", out.State())
	}
	if out.Speak("second answer") {
		t.Error("second Speak should be dropped while playing")
	}

	close(player.release)
	out.Wait()

	if synth.calls != 1 || player.calls != 1 {
		t.Errorf("expected one synthesis and one playback, got %d and %d", synth.calls, player.calls)
	}
	if out.State() != Idle {
		t.Errorf("expected idle after playback, got %s", out.State())
	}
	assertEmptyDir(t, dir)
}

func TestOutput_SynthesisFailureCleansUp(t *testing.T) {
	dir := t.TempDir()
	synth := &fakeSynth{err: errors.New("no network")}
	player := newFakePlayer()
	out := NewOutput(synth, player, nil, WithTempDir(dir))

	if !out.Speak("answer") {
		t.Fatal("Speak should start")
	}
	out.Wait()

	if player.calls != 0 {
		t.Error("player must not run after failed synthesis")
	}
	if out.State() != Idle {
		t.Errorf("expected idle, got %s", out.State())
	}
	assertEmptyDir(t, dir)

	// a later answer is spoken normally
	synth.err = nil
	close(player.release)
	if !out.Speak("next answer") {
		t.Fatal("Speak after failure should start")
	}
	out.Wait()
	if player.calls != 1 {
		t.Errorf("expected one playback, got %d", player.calls)
	}
	assertEmptyDir(t, dir)
}

func TestOutput_BlankTextIgnored(t *testing.T) {
	synth := &fakeSynth{}
	out := NewOutput(synth, newFakePlayer(), nil, WithTempDir(t.TempDir()))
	if out.Speak("   ") {
		t.Error("blank text should not be spoken")
	}
	out.Wait()
	if synth.calls != 0 {
		t.Error("synthesizer should not be called")
	}
}

func TestOutput_CloseStopsPlayback(t *testing.T) {
	dir := t.TempDir()
	player := newFakePlayer()
	out := NewOutput(&fakeSynth{}, player, nil, WithTempDir(dir))
	out.Speak("answer")
	<-player.started

	done := make(chan struct{})
	go func() {
		out.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not stop playback")
	}
	assertEmptyDir(t, dir)
}
