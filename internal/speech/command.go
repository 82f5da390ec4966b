package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultVoice is the neural voice used by the default synthesizer.
const DefaultVoice = "en-IN-NeerjaNeural"

// DefaultSynthCommand writes an MP3 for {text} in {voice} to {out}.
var DefaultSynthCommand = []string{"edge-tts", "--voice", "{voice}", "--text", "{text}", "--write-media", "{out}"}

// DefaultPlayCommand plays {file} without a window and exits when done.
var DefaultPlayCommand = []string{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", "{file}"}

// CommandSynthesizer runs an external text-to-speech program.
type CommandSynthesizer struct {
	Args  []string
	Voice string
}

// NewCommandSynthesizer returns a synthesizer for the argv template args.
// Empty values fall back to the defaults.
func NewCommandSynthesizer(args []string, voice string) *CommandSynthesizer {
	if len(args) == 0 {
		args = DefaultSynthCommand
	}
	if voice == "" {
		voice = DefaultVoice
	}
	return &CommandSynthesizer{Args: args, Voice: voice}
}

func (s *CommandSynthesizer) Synthesize(ctx context.Context, text, out string) error {
	argv := expand(s.Args, map[string]string{"text": text, "voice": s.Voice, "out": out})
	return runCommand(ctx, argv)
}

// CommandPlayer plays audio through an external program; playback is
// complete when the program exits.
type CommandPlayer struct {
	Args []string
}

// NewCommandPlayer returns a player for the argv template args.
func NewCommandPlayer(args []string) *CommandPlayer {
	if len(args) == 0 {
		args = DefaultPlayCommand
	}
	return &CommandPlayer{Args: args}
}

func (p *CommandPlayer) Play(ctx context.Context, path string) error {
	return runCommand(ctx, expand(p.Args, map[string]string{"file": path}))
}

func expand(tmpl []string, vars map[string]string) []string {
	argv := make([]string, len(tmpl))
	for i, arg := range tmpl {
		for k, v := range vars {
			arg = strings.ReplaceAll(arg, "{"+k+"}", v)
		}
		argv[i] = arg
	}
	return argv
}

func runCommand(ctx context.Context, argv []string) error {
	if len(argv) == 0 || argv[0] == "" {
		return errors.New("empty command")
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", argv[0], err, msg)
		}
		return fmt.Errorf("%s: %w", argv[0], err)
	}
	return nil
}
