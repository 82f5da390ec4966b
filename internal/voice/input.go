// Package voice records one spoken question from the microphone and turns it
// into text.
package voice

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"courseguide/internal/domain"
)

const (
	frameDuration = 30 * time.Millisecond
	preRollFrames = 10
	// stallSlack is added to each listening stage before a silent stream is
	// treated as stalled.
	stallSlack = time.Second
)

var errStalled = errors.New("microphone stopped delivering audio")

// Microphone opens a stream of signed 16-bit little-endian mono PCM.
type Microphone interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Transcriber converts a WAV recording to text.
type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte) (string, error)
}

// Config controls capture timing and the speech detector.
type Config struct {
	SampleRate  int
	Calibration time.Duration
	Timeout     time.Duration
	PhraseLimit time.Duration
	Silence     time.Duration
	// EnergyRatio multiplies the ambient noise level to get the speech threshold.
	EnergyRatio float64
	// MinEnergy is the lowest threshold used, whatever the ambient level.
	MinEnergy float64
}

func (c *Config) applyDefaults() {
	if c.SampleRate <= 0 {
		c.SampleRate = 16000
	}
	if c.Calibration <= 0 {
		c.Calibration = 500 * time.Millisecond
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.PhraseLimit <= 0 {
		c.PhraseLimit = 10 * time.Second
	}
	if c.Silence <= 0 {
		c.Silence = 800 * time.Millisecond
	}
	if c.EnergyRatio <= 0 {
		c.EnergyRatio = 1.5
	}
	if c.MinEnergy <= 0 {
		c.MinEnergy = 300
	}
}

// Input implements domain.Listener.
type Input struct {
	mic         Microphone
	transcriber Transcriber
	cfg         Config
	logger      *zap.Logger
}

// NewInput creates a voice input. Zero config fields take their defaults.
func NewInput(mic Microphone, transcriber Transcriber, cfg Config, logger *zap.Logger) *Input {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Input{mic: mic, transcriber: transcriber, cfg: cfg, logger: logger}
}

func frames(d time.Duration) int {
	n := int((d + frameDuration - 1) / frameDuration)
	if n < 1 {
		n = 1
	}
	return n
}

// Capture records one phrase and returns its transcription. It fails with
// *domain.TimeoutError, *domain.UnrecognizedError or *domain.DeviceError.
func (in *Input) Capture(ctx context.Context) (string, error) {
	stream, err := in.mic.Open(ctx)
	if err != nil {
		return "", &domain.DeviceError{Err: err}
	}
	defer stream.Close()

	pcm, err := in.record(ctx, stream)
	if err != nil {
		return "", err
	}
	in.logger.Debug("phrase recorded",
		zap.Duration("length", time.Duration(len(pcm)/2)*time.Second/time.Duration(in.cfg.SampleRate)))

	text, err := in.transcriber.Transcribe(ctx, EncodeWAV(pcm, in.cfg.SampleRate))
	if err != nil {
		var unrecognized *domain.UnrecognizedError
		if errors.As(err, &unrecognized) || ctx.Err() != nil {
			return "", err
		}
		return "", &domain.DeviceError{Err: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &domain.UnrecognizedError{}
	}
	return text, nil
}

// record calibrates against ambient noise, waits for speech onset and
// returns the phrase as raw PCM. Frame counts bound each stage while audio
// flows; a watchdog closes the stream if it stops delivering data.
func (in *Input) record(ctx context.Context, stream io.ReadCloser) ([]byte, error) {
	fr := &frameReader{
		ctx: ctx,
		r:   stream,
		buf: make([]byte, in.cfg.SampleRate*int(frameDuration/time.Millisecond)/1000*2),
	}
	fr.watchdog = time.AfterFunc(in.cfg.Calibration+in.cfg.Timeout+stallSlack, func() {
		fr.stalled.Store(true)
		stream.Close()
	})
	defer fr.watchdog.Stop()
	stop := context.AfterFunc(ctx, func() { stream.Close() })
	defer stop()

	var noise float64
	calibration := frames(in.cfg.Calibration)
	for i := 0; i < calibration; i++ {
		_, e, err := fr.next()
		if err != nil {
			return nil, in.waitErr(ctx, fmt.Errorf("calibrating: %w", err))
		}
		noise += e
	}
	noise /= float64(calibration)
	threshold := math.Max(noise*in.cfg.EnergyRatio, in.cfg.MinEnergy)
	in.logger.Debug("ambient noise calibrated", zap.Float64("noise", noise), zap.Float64("threshold", threshold))

	// a few frames before onset keep the first syllable intact
	var preRoll [][]byte
	for waited := 0; waited < frames(in.cfg.Timeout); waited++ {
		frame, e, err := fr.next()
		if err != nil {
			return nil, in.waitErr(ctx, fmt.Errorf("waiting for speech: %w", err))
		}
		if e >= threshold {
			if fr.watchdog.Stop() {
				fr.watchdog.Reset(in.cfg.PhraseLimit + stallSlack)
			}
			var phrase []byte
			for _, f := range preRoll {
				phrase = append(phrase, f...)
			}
			return in.phrase(fr, append(phrase, frame...), threshold)
		}
		preRoll = append(preRoll, frame)
		if len(preRoll) > preRollFrames {
			preRoll = preRoll[1:]
		}
	}
	return nil, &domain.TimeoutError{Waited: in.cfg.Timeout.String()}
}

// waitErr maps a read failure before speech onset. A stalled stream counts
// as no speech.
func (in *Input) waitErr(ctx context.Context, err error) error {
	if ctx.Err() == nil && errors.Is(err, errStalled) {
		in.logger.Warn("microphone stalled before speech", zap.Error(err))
		return &domain.TimeoutError{Waited: in.cfg.Timeout.String()}
	}
	return deviceErr(ctx, err)
}

// phrase keeps recording until the phrase limit or a run of trailing silence.
// The end of the stream also ends the phrase.
func (in *Input) phrase(fr *frameReader, phrase []byte, threshold float64) ([]byte, error) {
	limit := frames(in.cfg.PhraseLimit)
	silenceLimit := frames(in.cfg.Silence)
	for spoken, silent := 1, 0; spoken < limit && silent < silenceLimit; spoken++ {
		frame, e, err := fr.next()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return nil, deviceErr(fr.ctx, fmt.Errorf("recording phrase: %w", err))
		}
		phrase = append(phrase, frame...)
		if e < threshold {
			silent++
		} else {
			silent = 0
		}
	}
	return phrase, nil
}

type frameReader struct {
	ctx      context.Context
	r        io.Reader
	buf      []byte
	watchdog *time.Timer
	stalled  atomic.Bool
}

func (f *frameReader) next() ([]byte, float64, error) {
	if err := f.ctx.Err(); err != nil {
		return nil, 0, err
	}
	if _, err := io.ReadFull(f.r, f.buf); err != nil {
		if f.ctx.Err() != nil {
			return nil, 0, f.ctx.Err()
		}
		if f.stalled.Load() {
			return nil, 0, errStalled
		}
		return nil, 0, err
	}
	frame := append([]byte(nil), f.buf...)
	return frame, rms(frame), nil
}

func deviceErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &domain.DeviceError{Err: err}
}

// rms returns the root-mean-square amplitude of little-endian int16 samples.
func rms(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}
