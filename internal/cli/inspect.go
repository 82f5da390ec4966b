package cli

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"courseguide/internal/chunkstore"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [artifact]",
	Short: "Validate the chunk artifact and summarise it",
	Long: `Load the chunk artifact, check every row and print what it contains.

Examples:
  courseguide inspect
  courseguide inspect embeddings.sqlite`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := cfg.Artifact.Path
	format := cfg.Artifact.Format
	if len(args) > 0 {
		path = args[0]
		format = ""
	}
	if format == "" {
		format = chunkstore.FormatFromPath(path)
	}
	out := cmd.OutOrStdout()

	var bar *progressbar.ProgressBar
	store, err := chunkstore.Load(path,
		chunkstore.WithFormat(format),
		chunkstore.WithProgress(func(done, total int) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetWriter(cmd.ErrOrStderr()),
					progressbar.OptionEnableColorCodes(true),
					progressbar.OptionSetWidth(40),
					progressbar.OptionShowCount(),
					progressbar.OptionSetDescription("[cyan]Validating[reset]"),
					progressbar.OptionSetTheme(progressbar.Theme{
						Saucer:        "[green]=[reset]",
						SaucerHead:    "[green]>[reset]",
						SaucerPadding: " ",
						BarStart:      "[",
						BarEnd:        "]",
					}),
					progressbar.OptionOnCompletion(func() {
						fmt.Fprintln(cmd.ErrOrStderr())
					}),
				)
			}
			bar.Set(done)
		}),
	)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Artifact:   %s (%s)\n", store.Path(), format)
	fmt.Fprintf(out, "Chunks:     %d\n", store.Size())
	fmt.Fprintf(out, "Dimension:  %d\n", store.Dimension())
	titles := store.Titles()
	fmt.Fprintf(out, "Videos:     %d\n", len(titles))
	for _, t := range titles {
		fmt.Fprintf(out, "  - %s\n", t)
	}
	return nil
}
