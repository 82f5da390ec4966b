package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// DefaultRecordCommand streams 16-bit mono PCM at {rate} Hz to stdout (SoX).
var DefaultRecordCommand = []string{"rec", "-q", "-t", "raw", "-b", "16", "-e", "signed-integer", "-c", "1", "-r", "{rate}", "-"}

// CommandMicrophone records through an external program writing raw PCM to stdout.
type CommandMicrophone struct {
	Args       []string
	SampleRate int
}

// NewCommandMicrophone returns a microphone for the argv template args.
func NewCommandMicrophone(args []string, sampleRate int) *CommandMicrophone {
	if len(args) == 0 {
		args = DefaultRecordCommand
	}
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return &CommandMicrophone{Args: args, SampleRate: sampleRate}
}

func (m *CommandMicrophone) Open(ctx context.Context) (io.ReadCloser, error) {
	if len(m.Args) == 0 || m.Args[0] == "" {
		return nil, errors.New("empty record command")
	}
	argv := make([]string, len(m.Args))
	for i, a := range m.Args {
		argv[i] = strings.ReplaceAll(a, "{rate}", strconv.Itoa(m.SampleRate))
	}
	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%s: %w", argv[0], err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("starting %s: %w", argv[0], err)
	}
	return &recording{ReadCloser: stdout, cmd: cmd, cancel: cancel}, nil
}

// recording stops the recorder process when closed.
type recording struct {
	io.ReadCloser
	cmd    *exec.Cmd
	cancel context.CancelFunc
	once   sync.Once
}

// Close may be called more than once and from another goroutine than the reader.
func (r *recording) Close() error {
	r.once.Do(func() {
		r.cancel()
		// the recorder is killed, so its exit status carries no information
		_ = r.cmd.Wait()
	})
	return nil
}
