// Package service sequences question/answer turns. It owns the single
// in-flight turn, runs the pipeline on worker goroutines and reports progress
// to the interactive surface as events.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"courseguide/internal/domain"
	"courseguide/internal/prompt"
	"courseguide/internal/retriever"
)

// DefaultVoiceSubmitDelay is how long a captured utterance is shown before it
// is submitted.
const DefaultVoiceSubmitDelay = time.Second

const eventBuffer = 256

// Dependencies are the collaborators of a TurnController. Store may be nil
// when LoadErr is set. Speaker and Listener are optional.
type Dependencies struct {
	Store     retriever.Source
	LoadErr   error
	Embedder  domain.Embedder
	Generator domain.Generator
	Prompts   *prompt.Builder
	Speaker   domain.Speaker
	Listener  domain.Listener
}

// Option customises a TurnController.
type Option func(*TurnController)

// WithTopK sets the number of chunks retrieved per question.
func WithTopK(k int) Option {
	return func(c *TurnController) { c.topK = k }
}

// WithVoiceSubmitDelay sets the pause between a voice capture and its submission.
func WithVoiceSubmitDelay(d time.Duration) Option {
	return func(c *TurnController) { c.voiceDelay = d }
}

// WithClock replaces time.Now for message and query timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *TurnController) { c.now = now }
}

// TurnController is the turn state machine. Submit, StartVoiceInput,
// CancelVoiceSubmit and Clear may be called from the UI goroutine; none of
// them block on network or audio I/O.
type TurnController struct {
	deps       Dependencies
	topK       int
	voiceDelay time.Duration
	now        func() time.Time
	logger     *zap.Logger

	active    atomic.Bool
	capturing atomic.Bool

	mu          sync.Mutex
	current     domain.Turn
	transcript  []domain.Message
	voiceCancel chan struct{}

	events  chan Event
	outMu   sync.Mutex
	outbox  []Event
	outWake chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewTurnController creates a controller. Call Close to stop its workers.
func NewTurnController(deps Dependencies, logger *zap.Logger, opts ...Option) *TurnController {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Prompts == nil {
		deps.Prompts = prompt.NewBuilder("")
	}
	if deps.Store == nil && deps.LoadErr == nil {
		deps.LoadErr = errors.New("no chunk store configured")
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &TurnController{
		deps:       deps,
		topK:       retriever.DefaultTopK,
		voiceDelay: DefaultVoiceSubmitDelay,
		now:        time.Now,
		logger:     logger,
		events:     make(chan Event, eventBuffer),
		outWake:    make(chan struct{}, 1),
		ctx:        ctx,
		cancel:     cancel,
		group:      &errgroup.Group{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.group.Go(c.pump)
	return c
}

// Events returns the channel the interactive surface drains.
func (c *TurnController) Events() <-chan Event { return c.events }

// LoadErr returns the chunk store load failure, if any.
func (c *TurnController) LoadErr() error { return c.deps.LoadErr }

// VoiceAvailable reports whether StartVoiceInput can succeed.
func (c *TurnController) VoiceAvailable() bool { return c.deps.Listener != nil }

// State returns the status of the running turn, or TurnIdle.
func (c *TurnController) State() domain.TurnStatus {
	if !c.active.Load() {
		return domain.TurnIdle
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.Status
}

// LastTurn returns a snapshot of the most recent turn.
func (c *TurnController) LastTurn() domain.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Transcript returns a copy of the chat so far.
func (c *TurnController) Transcript() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Message, len(c.transcript))
	copy(out, c.transcript)
	return out
}

// Submit starts answering text. It returns domain.ErrEmptyQuery,
// domain.ErrStoreUnavailable or domain.ErrBusy without changing state when
// the question cannot be taken.
func (c *TurnController) Submit(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		c.Notify("Please enter a question", domain.SeverityWarning)
		return domain.ErrEmptyQuery
	}
	if c.deps.LoadErr != nil {
		c.Notify("Embeddings not loaded", domain.SeverityError)
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, c.deps.LoadErr)
	}
	if !c.active.CompareAndSwap(false, true) {
		c.Notify("Processing, please wait", domain.SeverityWarning)
		return domain.ErrBusy
	}

	now := c.now()
	turn := domain.Turn{
		ID:     uuid.NewString(),
		Query:  domain.Query{Text: text, SubmittedAt: now},
		Status: domain.TurnSubmitted,
	}
	c.addMessage(domain.SenderUser, text)
	c.publish(&turn)
	c.logger.Info("turn submitted", zap.String("turn", turn.ID), zap.Int("chars", len(text)))

	c.group.Go(func() error {
		c.run(turn)
		return nil
	})
	return nil
}

func (c *TurnController) run(turn domain.Turn) {
	start := c.now()
	finished := false
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("turn worker panicked", zap.String("turn", turn.ID), zap.Any("panic", r))
			if !finished {
				c.fail(&turn, fmt.Errorf("internal error: %v", r))
			} else if c.active.Load() {
				c.finish(&turn)
			}
		}
	}()

	answer, err := c.answer(&turn)
	finished = true
	if err != nil {
		c.fail(&turn, err)
		return
	}
	turn.Answer = answer
	turn.Status = domain.TurnCompleted
	c.addMessage(domain.SenderAssistant, answer)
	c.Notify("Ready", domain.SeveritySuccess)
	if c.deps.Speaker != nil && !c.deps.Speaker.Speak(answer) {
		c.logger.Debug("answer not spoken", zap.String("turn", turn.ID))
	}
	c.logger.Info("turn completed", zap.String("turn", turn.ID), zap.Duration("took", c.now().Sub(start)))
	c.finish(&turn)
}

func (c *TurnController) answer(turn *domain.Turn) (string, error) {
	turn.Status = domain.TurnEmbedding
	c.publish(turn)
	c.Notify("Searching...", domain.SeverityBusy)
	vectors, err := c.deps.Embedder.Embed(c.ctx, []string{turn.Query.Text})
	if err != nil {
		return "", err
	}
	if len(vectors) != 1 {
		return "", &domain.EmbeddingServiceError{Err: fmt.Errorf("got %d embeddings for 1 input", len(vectors))}
	}

	turn.Status = domain.TurnRetrieving
	c.publish(turn)
	results, err := retriever.Rank(vectors[0], c.deps.Store, c.topK)
	if err != nil {
		return "", err
	}
	turn.Retrieval = results
	turn.Prompt = c.deps.Prompts.Build(turn.Query.Text, results)

	turn.Status = domain.TurnGenerating
	c.publish(turn)
	c.Notify("Generating response...", domain.SeverityBusy)
	return c.deps.Generator.Generate(c.ctx, turn.Prompt)
}

func (c *TurnController) fail(turn *domain.Turn, err error) {
	turn.Err = err
	turn.Status = domain.TurnFailed
	c.logger.Warn("turn failed", zap.String("turn", turn.ID), zap.Error(err))
	c.addMessage(domain.SenderSystem, "Error: "+err.Error())
	c.Notify("Error occurred", domain.SeverityError)
	c.finish(turn)
}

// finish records the terminal turn, releases the guard and then announces
// the terminal snapshot.
func (c *TurnController) finish(turn *domain.Turn) {
	c.mu.Lock()
	c.current = *turn
	c.mu.Unlock()
	c.active.Store(false)
	c.emit(TurnEvent{Turn: *turn})
}

func (c *TurnController) publish(turn *domain.Turn) {
	c.mu.Lock()
	c.current = *turn
	c.mu.Unlock()
	c.emit(TurnEvent{Turn: *turn})
}

// StartVoiceInput listens for one utterance on a worker and submits its
// transcription after the voice submit delay.
func (c *TurnController) StartVoiceInput() error {
	if c.deps.Listener == nil {
		c.Notify("Voice input is not available", domain.SeverityWarning)
		return domain.ErrVoiceUnavailable
	}
	if !c.capturing.CompareAndSwap(false, true) {
		return domain.ErrCaptureBusy
	}
	cancel := make(chan struct{})
	c.mu.Lock()
	c.voiceCancel = cancel
	c.mu.Unlock()

	c.Notify("Listening...", domain.SeverityBusy)
	c.group.Go(func() error {
		defer c.capturing.Store(false)
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("voice worker panicked", zap.Any("panic", r))
				c.Notify(fmt.Sprintf("Error: %v", r), domain.SeverityError)
			}
		}()
		c.captureVoice(cancel)
		return nil
	})
	return nil
}

// CancelVoiceSubmit stops a captured utterance from being submitted. It
// reports whether a pending submission was cancelled.
func (c *TurnController) CancelVoiceSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.voiceCancel == nil {
		return false
	}
	close(c.voiceCancel)
	c.voiceCancel = nil
	return true
}

func (c *TurnController) captureVoice(cancel chan struct{}) {
	defer c.clearVoiceCancel(cancel)

	text, err := c.deps.Listener.Capture(c.ctx)
	if err != nil {
		c.logger.Info("voice capture failed", zap.Error(err))
		c.Notify(voiceFailure(err), domain.SeverityError)
		return
	}
	c.emit(VoiceEvent{Text: text})
	c.Notify("Voice captured", domain.SeveritySuccess)

	timer := time.NewTimer(c.voiceDelay)
	defer timer.Stop()
	select {
	case <-c.ctx.Done():
		return
	case <-cancel:
		c.Notify("Voice input cancelled", domain.SeverityInfo)
		return
	case <-timer.C:
	}
	c.clearVoiceCancel(cancel)
	if err := c.Submit(text); err != nil {
		c.logger.Info("voice question rejected", zap.Error(err))
	}
}

func (c *TurnController) clearVoiceCancel(cancel chan struct{}) {
	c.mu.Lock()
	if c.voiceCancel == cancel {
		c.voiceCancel = nil
	}
	c.mu.Unlock()
}

func voiceFailure(err error) string {
	var timeout *domain.TimeoutError
	var unrecognized *domain.UnrecognizedError
	switch {
	case errors.As(err, &timeout):
		return "Timeout - No speech detected"
	case errors.As(err, &unrecognized):
		return "Could not understand"
	}
	return "Error: " + err.Error()
}

// Clear empties the transcript.
func (c *TurnController) Clear() {
	c.mu.Lock()
	c.transcript = nil
	c.mu.Unlock()
	c.emit(ClearedEvent{})
	c.Notify("Chat cleared", domain.SeverityInfo)
}

// Notify posts a status line.
func (c *TurnController) Notify(text string, severity domain.Severity) {
	c.emit(StatusEvent{Text: text, Severity: severity})
}

func (c *TurnController) addMessage(sender domain.Sender, text string) {
	msg := domain.Message{Sender: sender, Text: text, At: c.now()}
	c.mu.Lock()
	c.transcript = append(c.transcript, msg)
	c.mu.Unlock()
	c.emit(MessageEvent{Message: msg})
}

// emit queues ev without blocking. Submit and Clear run on the UI goroutine,
// which is also the one draining Events.
func (c *TurnController) emit(ev Event) {
	c.outMu.Lock()
	c.outbox = append(c.outbox, ev)
	c.outMu.Unlock()
	select {
	case c.outWake <- struct{}{}:
	default:
	}
}

// pump moves queued events to the events channel in order.
func (c *TurnController) pump() error {
	for {
		select {
		case <-c.outWake:
		case <-c.ctx.Done():
			return nil
		}
		for {
			c.outMu.Lock()
			if len(c.outbox) == 0 {
				c.outMu.Unlock()
				break
			}
			ev := c.outbox[0]
			c.outbox = c.outbox[1:]
			c.outMu.Unlock()
			select {
			case c.events <- ev:
			case <-c.ctx.Done():
				return nil
			}
		}
	}
}

// Close cancels in-flight work and waits for the workers to return.
func (c *TurnController) Close() error {
	c.cancel()
	return c.group.Wait()
}
