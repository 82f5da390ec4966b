package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"courseguide/internal/domain"
	"courseguide/internal/retriever"
)

var (
	searchTopK int
	searchJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search <question>",
	Short: "Show the chunks closest to a question",
	Long: `Rank the subtitle chunks against a question without generating an answer.

Examples:
  courseguide search "css grid"
  courseguide search "promises" --top-k 10 --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.controller.LoadErr(); err != nil {
		return err
	}

	topK := cfg.Retrieval.TopK
	if searchTopK > 0 {
		topK = searchTopK
	}
	query := strings.Join(args, " ")
	vectors, err := a.embedder.Embed(context.Background(), []string{query})
	if err != nil {
		return err
	}
	results, err := retriever.Rank(vectors[0], a.store, topK)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if searchJSON {
		return writeJSON(out, results)
	}
	printResults(out, results)
	return nil
}

type resultJSON struct {
	Rank   int     `json:"rank"`
	Score  float64 `json:"score"`
	Title  string  `json:"title"`
	Number int     `json:"number"`
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Text   string  `json:"text"`
}

func writeJSON(w io.Writer, results []domain.ScoredChunk) error {
	rows := make([]resultJSON, len(results))
	for i, r := range results {
		rows[i] = resultJSON{
			Rank:   i + 1,
			Score:  r.Score,
			Title:  r.Chunk.Title,
			Number: r.Chunk.Number,
			Start:  r.Chunk.Start,
			End:    r.Chunk.End,
			Text:   r.Chunk.Text,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func printResults(w io.Writer, results []domain.ScoredChunk) {
	for i, r := range results {
		fmt.Fprintf(w, "%d. [%.3f] Video %d: %s (%s)\n", i+1, r.Score, r.Chunk.Number, r.Chunk.Title, r.Chunk.Span())
		fmt.Fprintf(w, "   %s\n", strings.TrimSpace(r.Chunk.Text))
	}
}
