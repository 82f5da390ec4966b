package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ArtifactConfig locates the precomputed chunk table.
type ArtifactConfig struct {
	Path string `yaml:"path"`
	// Format is json, bolt or sqlite; empty means guess from the extension.
	Format string `yaml:"format"`
	Watch  bool   `yaml:"watch"`
}

// OllamaConfig holds connection details for an Ollama-compatible model endpoint.
type OllamaConfig struct {
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// Timeout returns the request timeout.
func (c OllamaConfig) Timeout() time.Duration { return time.Duration(c.TimeoutSecs) * time.Second }

// RetrievalConfig configures chunk ranking.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// PromptConfig configures the grounding prompt.
type PromptConfig struct {
	Course string `yaml:"course"`
}

// HTTPSynthesizerConfig contains connection details for an OpenAI-compatible speech endpoint.
type HTTPSynthesizerConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// SpeechConfig selects and configures text-to-speech.
type SpeechConfig struct {
	Enabled bool     `yaml:"enabled"`
	Type    string   `yaml:"type"`
	Voice   string   `yaml:"voice"`
	Command []string `yaml:"command,omitempty"`
	// Player plays the synthesized file; {file} is replaced by its path.
	Player []string               `yaml:"player,omitempty"`
	HTTP   *HTTPSynthesizerConfig `yaml:"http,omitempty"`
}

// TranscriberConfig contains connection details for a whisper-compatible endpoint.
type TranscriberConfig struct {
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	Language    string `yaml:"language"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// VoiceConfig configures microphone capture.
type VoiceConfig struct {
	Enabled         bool              `yaml:"enabled"`
	Recorder        []string          `yaml:"recorder,omitempty"`
	SampleRate      int               `yaml:"sample_rate"`
	CalibrationMS   int               `yaml:"calibration_ms"`
	TimeoutSecs     int               `yaml:"timeout_secs"`
	PhraseLimitSecs int               `yaml:"phrase_limit_secs"`
	SilenceMS       int               `yaml:"silence_ms"`
	SubmitDelayMS   int               `yaml:"submit_delay_ms"`
	Transcriber     TranscriberConfig `yaml:"transcriber"`
}

// LogConfig configures the log file.
type LogConfig struct {
	Debug bool   `yaml:"debug"`
	File  string `yaml:"file"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Artifact  ArtifactConfig  `yaml:"artifact"`
	Embedder  OllamaConfig    `yaml:"embedder"`
	Generator OllamaConfig    `yaml:"generator"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Prompt    PromptConfig    `yaml:"prompt"`
	Speech    SpeechConfig    `yaml:"speech"`
	Voice     VoiceConfig     `yaml:"voice"`
	Log       LogConfig       `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	cfg := switchDefaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(cfg)
	return cfg, nil
}

// LoadDefault tries ./courseguide.yaml first, then ~/.config/courseguide/config.yaml.
// If neither exists, it writes defaults to ~/.config/courseguide/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "courseguide.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "courseguide", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := switchDefaults()
	applyConfigDefaults(cfg)
	return cfg
}

// switchDefaults holds the boolean defaults, which cannot be told apart from
// an explicit false after unmarshalling.
func switchDefaults() *AppConfig {
	return &AppConfig{
		Artifact: ArtifactConfig{Watch: true},
		Speech:   SpeechConfig{Enabled: true},
		Voice:    VoiceConfig{Enabled: true},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Artifact.Path == "" {
		cfg.Artifact.Path = "embeddings.json"
	}
	if cfg.Embedder.BaseURL == "" {
		cfg.Embedder.BaseURL = "http://localhost:11434"
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = "bge-m3"
	}
	if cfg.Embedder.TimeoutSecs == 0 {
		cfg.Embedder.TimeoutSecs = 60
	}
	if cfg.Generator.BaseURL == "" {
		cfg.Generator.BaseURL = cfg.Embedder.BaseURL
	}
	if cfg.Generator.Model == "" {
		cfg.Generator.Model = "llama3.2"
	}
	if cfg.Generator.TimeoutSecs == 0 {
		cfg.Generator.TimeoutSecs = 300
	}
	if cfg.Retrieval.TopK <= 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Prompt.Course == "" {
		cfg.Prompt.Course = "Sigma web development"
	}
	if cfg.Speech.Type == "" {
		cfg.Speech.Type = "command"
	}
	if cfg.Speech.Voice == "" {
		cfg.Speech.Voice = "en-IN-NeerjaNeural"
	}
	if cfg.Speech.Type == "http" {
		if cfg.Speech.HTTP == nil {
			cfg.Speech.HTTP = &HTTPSynthesizerConfig{}
		}
		if cfg.Speech.HTTP.BaseURL == "" {
			cfg.Speech.HTTP.BaseURL = "http://localhost:8880"
		}
		if cfg.Speech.HTTP.APIKeyEnv == "" {
			cfg.Speech.HTTP.APIKeyEnv = "TTS_API_KEY"
		}
		if cfg.Speech.HTTP.Model == "" {
			cfg.Speech.HTTP.Model = "tts-1"
		}
		if cfg.Speech.HTTP.TimeoutSecs == 0 {
			cfg.Speech.HTTP.TimeoutSecs = 60
		}
	}
	if cfg.Voice.SampleRate == 0 {
		cfg.Voice.SampleRate = 16000
	}
	if cfg.Voice.CalibrationMS == 0 {
		cfg.Voice.CalibrationMS = 500
	}
	if cfg.Voice.TimeoutSecs == 0 {
		cfg.Voice.TimeoutSecs = 5
	}
	if cfg.Voice.PhraseLimitSecs == 0 {
		cfg.Voice.PhraseLimitSecs = 10
	}
	if cfg.Voice.SilenceMS == 0 {
		cfg.Voice.SilenceMS = 800
	}
	if cfg.Voice.SubmitDelayMS == 0 {
		cfg.Voice.SubmitDelayMS = 1000
	}
	if cfg.Voice.Transcriber.BaseURL == "" {
		cfg.Voice.Transcriber.BaseURL = "http://localhost:8000"
	}
	if cfg.Voice.Transcriber.Model == "" {
		cfg.Voice.Transcriber.Model = "whisper-1"
	}
	if cfg.Voice.Transcriber.Language == "" {
		cfg.Voice.Transcriber.Language = "en"
	}
	if cfg.Voice.Transcriber.TimeoutSecs == 0 {
		cfg.Voice.Transcriber.TimeoutSecs = 30
	}
	if cfg.Log.File == "" {
		cfg.Log.File = "courseguide.log"
	}
}
