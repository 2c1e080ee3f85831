package cmd

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/pagelume/internal/config"
	"github.com/conneroisu/pagelume/internal/errors"
	"github.com/conneroisu/pagelume/internal/logging"
)

var (
	cfgFile string
	// configReadErr holds a failure to read an existing or explicitly named
	// config file; commands report it when they load the configuration.
	configReadErr error
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pagelume",
	Short: "Preview and build HTML, SCSS and JavaScript components",
	Long: `Pagelume discovers components laid out as <type>/<variation> directories,
compiles their SCSS and scripts, renders their templates with field defaults
and serves live previews that reload as files change.

Quick Start:
  pagelume init --example         Lay out a new project
  pagelume create hero/dark       Create a component
  pagelume serve                  Start the preview server
  pagelume list                   List all components
  pagelume build                  Compile every component
  pagelume render card/basic      Render one component to stdout`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is .pagelume.yml, can also use PAGELUME_CONFIG_FILE env var)")
	flags.StringP("components", "c", "components", "components root directory")
	flags.StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "pretty", "log format (pretty, text, json)")

	_ = viper.BindPFlag("components.dir", flags.Lookup("components"))
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log.format", flags.Lookup("log-format"))
}

// initConfig selects the config file: --config first, then
// PAGELUME_CONFIG_FILE, then .pagelume.yml in the working directory.
// A missing default file is not an error.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("PAGELUME_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".pagelume")
	}

	viper.SetEnvPrefix("PAGELUME")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	configReadErr = nil
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			configReadErr = err
		}
	}
}

// loadConfig returns the validated configuration, or an error carrying
// suggestions for fixing it.
func loadConfig() (*config.Config, error) {
	if configReadErr != nil {
		return nil, configError(configReadErr)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, configError(err)
	}

	result := config.ValidateConfigWithDetails(cfg)
	if result.HasErrors() {
		return nil, errors.NewEnhancedError(
			"Invalid configuration\n"+result.String(),
			errors.NewConfigError("configuration failed validation", nil),
			errors.ConfigurationError(result.String(), viper.ConfigFileUsed()),
		)
	}
	return cfg, nil
}

func configError(err error) error {
	return errors.NewEnhancedError(
		"Failed to load configuration",
		errors.NewConfigError(err.Error(), err),
		errors.ConfigurationError(err.Error(), viper.ConfigFileUsed()),
	)
}

// reportWarnings logs every configuration warning.
func reportWarnings(ctx context.Context, logger logging.Logger, cfg *config.Config) {
	for _, w := range config.ValidateConfigWithDetails(cfg).Warnings {
		logger.Warn(ctx, nil, w.Message, "field", w.Field, "value", w.Value)
	}
}

func newLogger(cfg *config.Config, out io.Writer) logging.Logger {
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: out,
	})
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
