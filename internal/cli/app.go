package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"courseguide/internal/chunkstore"
	"courseguide/internal/config"
	"courseguide/internal/domain"
	"courseguide/internal/embedding"
	"courseguide/internal/generation"
	"courseguide/internal/logging"
	"courseguide/internal/prompt"
	"courseguide/internal/service"
	"courseguide/internal/speech"
	"courseguide/internal/voice"
	"courseguide/internal/watch"
)

type appOptions struct {
	speech bool
	voice  bool
	watch  bool
}

// app is the assembled process: store, model clients, audio and the turn
// controller, constructed once and shared by reference.
type app struct {
	cfg        *config.AppConfig
	logger     *zap.Logger
	store      *chunkstore.Store
	embedder   *embedding.Client
	speech     *speech.Output
	controller *service.TurnController
	stopWatch  context.CancelFunc
}

func newApp(cfg *config.AppConfig, opts appOptions) (*app, error) {
	logger, err := logging.New(cfg.Log.Debug, cfg.Log.File)
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	a := &app{cfg: cfg, logger: logger}

	deps := service.Dependencies{
		Prompts: prompt.NewBuilder(cfg.Prompt.Course),
	}
	store, err := chunkstore.Load(cfg.Artifact.Path, chunkstore.WithFormat(cfg.Artifact.Format))
	if err != nil {
		// the chat window still starts; questions are rejected until restart
		logger.Error("chunk artifact not loaded", zap.Error(err))
		deps.LoadErr = err
	} else {
		logger.Info("chunk artifact loaded",
			zap.String("path", store.Path()),
			zap.Int("chunks", store.Size()),
			zap.Int("dimension", store.Dimension()),
			zap.Strings("videos", store.Titles()),
		)
		a.store = store
		deps.Store = store
	}

	a.embedder = embedding.NewClient(embedding.Config{
		BaseURL: cfg.Embedder.BaseURL,
		Model:   cfg.Embedder.Model,
		Timeout: cfg.Embedder.Timeout(),
	}, logger.Named("embedding"))
	deps.Embedder = a.embedder
	deps.Generator = generation.NewClient(generation.Config{
		BaseURL: cfg.Generator.BaseURL,
		Model:   cfg.Generator.Model,
		Timeout: cfg.Generator.Timeout(),
	}, logger.Named("generation"))

	if opts.speech {
		synth, err := newSynthesizer(cfg.Speech)
		if err != nil {
			return nil, err
		}
		a.speech = speech.NewOutput(synth, speech.NewCommandPlayer(cfg.Speech.Player), logger.Named("speech"))
		deps.Speaker = a.speech
	}
	if opts.voice {
		v := cfg.Voice
		deps.Listener = voice.NewInput(
			voice.NewCommandMicrophone(v.Recorder, v.SampleRate),
			voice.NewWhisperTranscriber(voice.WhisperConfig{
				BaseURL:  v.Transcriber.BaseURL,
				Model:    v.Transcriber.Model,
				Language: v.Transcriber.Language,
				Timeout:  time.Duration(v.Transcriber.TimeoutSecs) * time.Second,
			}),
			voice.Config{
				SampleRate:  v.SampleRate,
				Calibration: time.Duration(v.CalibrationMS) * time.Millisecond,
				Timeout:     time.Duration(v.TimeoutSecs) * time.Second,
				PhraseLimit: time.Duration(v.PhraseLimitSecs) * time.Second,
				Silence:     time.Duration(v.SilenceMS) * time.Millisecond,
			},
			logger.Named("voice"),
		)
	}

	a.controller = service.NewTurnController(deps, logger.Named("turn"),
		service.WithTopK(cfg.Retrieval.TopK),
		service.WithVoiceSubmitDelay(time.Duration(cfg.Voice.SubmitDelayMS)*time.Millisecond),
	)

	if opts.watch && a.store != nil {
		ctx, cancel := context.WithCancel(context.Background())
		a.stopWatch = cancel
		err := watch.Artifact(ctx, cfg.Artifact.Path, logger.Named("watch"), func() {
			a.controller.Notify("Chunk artifact changed on disk; restart to reload", domain.SeverityWarning)
		})
		if err != nil {
			logger.Warn("artifact watch unavailable", zap.Error(err))
		}
	}
	return a, nil
}

func newSynthesizer(cfg config.SpeechConfig) (speech.Synthesizer, error) {
	switch cfg.Type {
	case "command", "":
		return speech.NewCommandSynthesizer(cfg.Command, cfg.Voice), nil
	case "http":
		if cfg.HTTP == nil {
			return nil, errors.New("http speech config missing")
		}
		return speech.NewHTTPSynthesizer(speech.HTTPConfig{
			BaseURL: cfg.HTTP.BaseURL,
			Model:   cfg.HTTP.Model,
			Voice:   cfg.Voice,
			APIKey:  os.Getenv(cfg.HTTP.APIKeyEnv),
			Timeout: time.Duration(cfg.HTTP.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown speech synthesizer: %s", cfg.Type)
	}
}

// Close stops the watcher and the workers and flushes the log.
func (a *app) Close() {
	if a.stopWatch != nil {
		a.stopWatch()
	}
	if a.controller != nil {
		a.controller.Close()
	}
	if a.speech != nil {
		a.speech.Close()
	}
	a.logger.Sync()
}
