// Package commands implements the CLI commands for smellmark.
package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/smellmark/internal/logger"
	"github.com/jmylchreest/smellmark/pkg/hook"
	"github.com/jmylchreest/smellmark/pkg/smell"
)

var rootCmd = &cobra.Command{
	Use:   "smellmark",
	Short: "Turn code smell markers into highlight spans in rendered HTML",
	Long: `Smellmark rewrites smell markers left in syntax-highlighted code blocks.

Wrap a region of a fenced code block in "!!name!!" and "!!end!!". After
the site is rendered, smellmark turns each marker token into
<span class=name> and </span> so the region can be styled.

Examples:
  # Highlight a single rendered page
  smellmark render _site/posts/smells.html -o out.html

  # Rewrite every page of a built site in place
  smellmark site _site

  # Keep a site's output directory highlighted while the generator runs
  smellmark watch _site

  # Audit a deployed blog for markers that were never converted
  smellmark check --url https://blog.example.com --crawl --max-depth 2`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configErr != nil {
			return configErr
		}
		logger.Init(logger.Options{
			Debug: viper.GetBool("debug"),
			Quiet: viper.GetBool("quiet"),
			JSON:  viper.GetBool("log_json"),
		})
		return nil
	},
}

// configErr holds the failure of the last initConfig run.
var configErr error

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default $HOME/.smellmark.yaml or ./.smellmark.yaml)")
	flags.Bool("debug", false, "enable debug logging")
	flags.BoolP("quiet", "q", false, "suppress progress output")
	flags.Bool("log-json", false, "write logs as JSON")
	flags.String("preset", "", "highlighter preset: rouge, chroma")

	bindFlags()
}

// bindFlags binds the global flags to their viper keys.
func bindFlags() {
	flags := rootCmd.PersistentFlags()
	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("debug", flags.Lookup("debug"))
	_ = viper.BindPFlag("quiet", flags.Lookup("quiet"))
	_ = viper.BindPFlag("log_json", flags.Lookup("log-json"))
	_ = viper.BindPFlag("smell.preset", flags.Lookup("preset"))
}

func initConfig() {
	configErr = nil

	cfgFile := viper.GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".smellmark")
		viper.SetConfigType("yaml")
	}

	// SMELLMARK_SMELL_TOKEN_CLASS sets smell.token_class
	viper.SetEnvPrefix("SMELLMARK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// A missing default config file is fine. An explicit one must exist,
	// and any file that exists must parse.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		configErr = fmt.Errorf("reading config: %w", err)
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// smellConfig builds the highlighter configuration from the preset and the
// smell.* keys of the config file and environment.
func smellConfig() (*smell.Config, error) {
	cfg, err := smell.Preset(viper.GetString("smell.preset"))
	if err != nil {
		return nil, err
	}
	cfg = cfg.Merge(&smell.Config{
		TokenClass: viper.GetString("smell.token_class"),
		EndName:    viper.GetString("smell.end_name"),
		OpenTag:    viper.GetString("smell.open_tag"),
		CloseTag:   viper.GetString("smell.close_tag"),
	})
	if viper.IsSet("smell.warn_residual") {
		cfg.WarnResidual = viper.GetBool("smell.warn_residual")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("highlighter config",
		"token_class", cfg.TokenClass,
		"end_name", cfg.EndName,
		"open_tag", cfg.OpenTag,
		"close_tag", cfg.CloseTag)
	return cfg, nil
}

// hooks returns the default hook registry for the configured highlighter.
func hooks() (*hook.Registry, error) {
	cfg, err := smellConfig()
	if err != nil {
		return nil, err
	}
	return hook.Default(smell.New(cfg)), nil
}

// logInfo prints an info message to stderr (unless quiet mode).
func logInfo(cmd *cobra.Command, format string, args ...any) {
	if !viper.GetBool("quiet") {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
	}
}
