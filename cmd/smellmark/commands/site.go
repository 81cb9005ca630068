package commands

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jmylchreest/smellmark/internal/logger"
	"github.com/jmylchreest/smellmark/internal/output"
	"github.com/jmylchreest/smellmark/internal/site"
)

var siteCmd = &cobra.Command{
	Use:   "site <dir>",
	Short: "Highlight markers in every page of a built site",
	Long: `Walk a rendered site directory and rewrite, in place, every selected
HTML file that contains markers. Files without markers are never written.

Examples:
  smellmark site _site
  smellmark site public --exclude "drafts/*" --dry-run
  smellmark site _site --format json --report smells.json`,
	Args: cobra.ExactArgs(1),
	RunE: runSite,
}

func init() {
	rootCmd.AddCommand(siteCmd)

	flags := siteCmd.Flags()
	addSiteFlags(flags)
	flags.Bool("dry-run", false, "report changes without writing")
	flags.String("format", "text", "report format: text, json, jsonl, yaml")
	flags.String("report", "", "report file (default: stdout)")
}

// addSiteFlags registers the file selection flags shared by site, watch and
// check.
func addSiteFlags(flags *pflag.FlagSet) {
	flags.StringSlice("include", nil, "glob of files to process (default *.html, *.htm)")
	flags.StringSlice("exclude", nil, "glob of files or directories to skip (default .git, node_modules)")
	flags.IntP("concurrency", "c", 0, "files processed at once (default 4)")
}

// siteConfig builds the site configuration from the site.* config keys,
// overridden by flags the user set.
func siteConfig(cmd *cobra.Command) site.Config {
	cfg := site.DefaultConfig()
	if v := viper.GetStringSlice("site.include"); len(v) > 0 {
		cfg.Include = v
	}
	if v := viper.GetStringSlice("site.exclude"); len(v) > 0 {
		cfg.Exclude = v
	}
	if v := viper.GetInt("site.concurrency"); v > 0 {
		cfg.Concurrency = v
	}

	flags := cmd.Flags()
	if flags.Changed("include") {
		cfg.Include, _ = flags.GetStringSlice("include")
	}
	if flags.Changed("exclude") {
		cfg.Exclude, _ = flags.GetStringSlice("exclude")
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Lookup("dry-run") != nil {
		cfg.DryRun, _ = flags.GetBool("dry-run")
	}
	return cfg
}

func runSite(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	registry, err := hooks()
	if err != nil {
		return err
	}
	proc, err := site.New(args[0], siteConfig(cmd), registry)
	if err != nil {
		return err
	}

	formatStr, _ := cmd.Flags().GetString("format")
	format, err := output.ParseFormat(formatStr)
	if err != nil {
		return err
	}

	report, err := proc.Run(ctx)
	if err != nil {
		logger.Error("site processing failed", "root", args[0], "error", err)
		return err
	}

	reportPath, _ := cmd.Flags().GetString("report")
	var w io.Writer = cmd.OutOrStdout()
	if reportPath != "" {
		f, err := os.Create(reportPath)
		if err != nil {
			logger.Error("failed to create report file", "path", reportPath, "error", err)
			return err
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	if err := writeSiteReport(w, format, report); err != nil {
		return err
	}
	logInfo(cmd, "%s", report)
	return report.Err()
}

// writeSiteReport writes the report. Text output lists only files that
// changed or failed; the other formats carry the whole report.
func writeSiteReport(w io.Writer, format output.Format, report *site.Report) error {
	writer, err := output.NewWriter(w, format)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatText:
		for _, f := range report.Files {
			if f.Changed || f.Error != "" {
				if err := writer.Write(f); err != nil {
					return err
				}
			}
		}
	case output.FormatJSONL:
		for _, f := range report.Files {
			if err := writer.Write(f); err != nil {
				return err
			}
		}
	default:
		if err := writer.Write(report); err != nil {
			return err
		}
	}
	return writer.Flush()
}
