package commands

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/smellmark/internal/logger"
	"github.com/jmylchreest/smellmark/pkg/hook"
)

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Highlight markers in one rendered HTML page",
	Long: `Read a rendered HTML page from a file, or stdin when no file or "-" is
given, and write it with every marker converted.

Examples:
  smellmark render _site/posts/smells.html
  jekyll build --quiet && smellmark render < page.html > page.out.html
  smellmark render post.html --excerpt --stats`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	flags := renderCmd.Flags()
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.Bool("stats", false, "print marker statistics to stderr")
	flags.Bool("excerpt", false, "write only the page excerpt")
	flags.String("excerpt-separator", hook.DefaultExcerptSeparator, "marker that ends the excerpt")
}

func runRender(cmd *cobra.Command, args []string) error {
	registry, err := hooks()
	if err != nil {
		return err
	}

	name := "-"
	if len(args) == 1 {
		name = args[0]
	}
	input, err := readInput(cmd, name)
	if err != nil {
		return err
	}

	separator, _ := cmd.Flags().GetString("excerpt-separator")
	page := hook.NewPage(name, string(input))
	page.Excerpt = hook.ExcerptFromOutput(page.Output, separator)

	if err := registry.Trigger(context.Background(), hook.PostRender, page); err != nil {
		return err
	}
	for _, w := range page.Warnings {
		logger.Warn("marker warning", "path", name, "warning", w.String())
	}

	out := page.Output
	if excerptOnly, _ := cmd.Flags().GetBool("excerpt"); excerptOnly {
		if page.Excerpt == nil {
			return errors.New("page has no excerpt separator " + separator)
		}
		out = page.Excerpt.Output
	}

	outputPath, _ := cmd.Flags().GetString("output")
	if err := writeOutput(cmd, outputPath, out); err != nil {
		return err
	}

	if showStats, _ := cmd.Flags().GetBool("stats"); showStats {
		logInfo(cmd, "%s", strings.TrimSuffix(page.Stats.String(), "\n"))
	}
	return nil
}

// readInput reads name, or stdin when name is "-".
func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(name)
}

// writeOutput writes content to path, or stdout when path is empty.
func writeOutput(cmd *cobra.Command, path, content string) error {
	if path == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), content)
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		logger.Error("failed to write output", "path", path, "error", err)
		return err
	}
	logger.Debug("output written", "path", path, "bytes", len(content))
	return nil
}
