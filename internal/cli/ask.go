package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"courseguide/internal/domain"
	"courseguide/internal/service"
)

var (
	askSpeak   bool
	askSources bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question and exit",
	Long: `Answer a single question without opening the chat window.

Examples:
  courseguide ask "What is CSS?"
  courseguide ask --speak --sources "How do I center a div?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().BoolVar(&askSpeak, "speak", false, "read the answer aloud")
	askCmd.Flags().BoolVar(&askSources, "sources", false, "list the chunks the answer is based on")
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg, appOptions{speech: askSpeak && cfg.Speech.Enabled})
	if err != nil {
		return err
	}
	defer a.Close()

	turn, err := askOnce(a.controller, strings.Join(args, " "))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, turn.Answer)
	if askSources {
		fmt.Fprintln(out)
		printResults(out, turn.Retrieval)
	}
	if a.speech != nil {
		a.speech.Wait()
	}
	return nil
}

// askOnce submits question and blocks until its turn is terminal.
func askOnce(c *service.TurnController, question string) (domain.Turn, error) {
	if err := c.Submit(question); err != nil {
		return domain.Turn{}, err
	}
	for ev := range c.Events() {
		te, ok := ev.(service.TurnEvent)
		if !ok || !te.Turn.Status.Terminal() {
			continue
		}
		if te.Turn.Status == domain.TurnFailed {
			return te.Turn, te.Turn.Err
		}
		return te.Turn, nil
	}
	return domain.Turn{}, fmt.Errorf("controller stopped before answering")
}
