package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"courseguide/internal/config"
	"courseguide/internal/tui"
)

var (
	cfgFile      string
	cfg          *config.AppConfig
	artifactPath string
	noSpeech     bool
	noVoice      bool
	debug        bool
)

var rootCmd = &cobra.Command{
	Use:   "courseguide",
	Short: "Ask questions about the course videos",
	Long: `courseguide answers questions about a video course. It finds the subtitle
chunks closest to your question, asks a local Ollama model to answer from them
and tells you which video and timestamp to watch. Answers are read aloud and
questions can be spoken.

Example usage:
  courseguide                                # Open the chat window
  courseguide ask "Where is flexbox taught?" # Answer one question
  courseguide search "css grid"              # Show the matching chunks
  courseguide inspect                        # Validate the chunk artifact`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, _, err = config.LoadDefault()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if artifactPath != "" {
			cfg.Artifact.Path = artifactPath
		}
		if noSpeech {
			cfg.Speech.Enabled = false
		}
		if noVoice {
			cfg.Voice.Enabled = false
		}
		if debug {
			cfg.Log.Debug = true
		}
		return nil
	},
	RunE: runChat,
}

// Execute runs the command line.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./courseguide.yaml or ~/.config/courseguide/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&artifactPath, "artifact", "a", "", "chunk artifact to load (overrides artifact.path)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log at debug level")
	rootCmd.Flags().BoolVar(&noSpeech, "no-speech", false, "do not read answers aloud")
	rootCmd.Flags().BoolVar(&noVoice, "no-voice", false, "disable voice questions")
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg, appOptions{
		speech: cfg.Speech.Enabled,
		voice:  cfg.Voice.Enabled,
		watch:  cfg.Artifact.Watch,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	m := tui.New(a.controller, cfg.Prompt.Course)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("chat window failed: %w", err)
	}
	return nil
}
