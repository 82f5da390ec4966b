package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_WritesToFile(t *testing.T) {
	for _, debug := range []bool{false, true} {
		path := filepath.Join(t.TempDir(), "logs", "courseguide.log")
		logger, err := New(debug, path)
		if err != nil {
			t.Fatalf("New(%v) failed: %v", debug, err)
		}
		logger.Info("turn completed")
		logger.Debug("debug detail")
		logger.Sync()

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("log file missing: %v", err)
		}
		if !strings.Contains(string(data), "turn completed") {
			t.Errorf("log file lacks info entry: %s", data)
		}
		if got := strings.Contains(string(data), "debug detail"); got != debug {
			t.Errorf("debug=%v but debug entry present=%v", debug, got)
		}
	}
}
