package commands

import (
	"context"
	"errors"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/smellmark/internal/logger"
	"github.com/jmylchreest/smellmark/internal/site"
	"github.com/jmylchreest/smellmark/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Keep a site's output directory highlighted as it is rebuilt",
	Long: `Process a rendered site once, then watch it and re-process HTML files
as the site generator writes them. Runs until interrupted.

Examples:
  jekyll build --watch &
  smellmark watch _site`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	flags := watchCmd.Flags()
	addSiteFlags(flags)
	flags.Duration("debounce", watcher.DefaultDebounce, "quiet period before changed files are processed")
	flags.Bool("initial", true, "process the whole site before watching")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	registry, err := hooks()
	if err != nil {
		return err
	}
	root := filepath.Clean(args[0])
	proc, err := site.New(root, siteConfig(cmd), registry)
	if err != nil {
		return err
	}

	if initial, _ := cmd.Flags().GetBool("initial"); initial {
		report, err := proc.Run(ctx)
		if err != nil {
			return ignoreCanceled(err)
		}
		logInfo(cmd, "%s", report)
	}

	filter := func(path string) bool {
		rel, err := filepath.Rel(root, path)
		return err == nil && proc.Match(rel)
	}
	handler := func(ctx context.Context, paths []string) error {
		report, err := proc.ProcessFiles(ctx, paths)
		if err != nil {
			return err
		}
		for _, f := range report.Files {
			if f.Changed || f.Error != "" {
				logInfo(cmd, "%s", f)
			}
		}
		return report.Err()
	}

	debounce, _ := cmd.Flags().GetDuration("debounce")
	w, err := watcher.New(root, debounce, filter, handler)
	if err != nil {
		return err
	}

	logger.Info("watching", "root", root, "debounce", debounce)
	return ignoreCanceled(w.Run(ctx))
}

// ignoreCanceled treats an interrupt as a clean exit.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
