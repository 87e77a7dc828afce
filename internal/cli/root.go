package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ppiankov/spaneval/internal/model"
)

// Version is the released version, overridden at link time
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "spaneval",
	Short: "spaneval - score model annotations of argumentative discourse units",
	Long: `spaneval evaluates discourse units (Lead, Position, Claim, Counterclaim,
Rebuttal, Evidence, Concluding Statement) that a language model marked up in
student essays.

Model outputs are parsed in one of three annotation grammars, every span is
located in the essay text, verbatim or by bounded approximate search, and the
located units are scored against ground truth with the micro F1 of the
Feedback Prize competition, per span and per word.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "spaneval %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.spaneval/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	setDefaults(viper.GetViper(), model.DefaultConfig())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".spaneval"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// SPANEVAL_LOCATE_FUZZY_FACTOR overrides locate.fuzzy_factor
	viper.SetEnvPrefix("SPANEVAL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every configuration key so that environment
// variables can override keys absent from the config file
func setDefaults(v *viper.Viper, cfg *model.Config) {
	v.SetDefault("parse.grammar", cfg.Parse.Grammar)
	v.SetDefault("parse.duplicates", cfg.Parse.Duplicates)
	v.SetDefault("parse.normalize_output", cfg.Parse.NormalizeOutput)
	v.SetDefault("locate.fuzzy_factor", cfg.Locate.FuzzyFactor)
	v.SetDefault("locate.repair_tolerance", cfg.Locate.RepairTolerance)
	v.SetDefault("concurrency.workers", cfg.Concurrency.Workers)
	v.SetDefault("concurrency.partition_size", cfg.Concurrency.PartitionSize)
	v.SetDefault("cache.enabled", cfg.Cache.Enabled)
	v.SetDefault("cache.dir", cfg.Cache.Dir)
	v.SetDefault("cache.memory_ttl", cfg.Cache.MemoryTTL)
	v.SetDefault("cache.disk_ttl", cfg.Cache.DiskTTL)
	v.SetDefault("output.dir", cfg.Output.Dir)
	v.SetDefault("output.formats", cfg.Output.Formats)
	v.SetDefault("output.verbose", cfg.Output.Verbose)
}

// loadConfig resolves the configuration from flags, environment, config file
// and defaults, and validates it
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the run logger; verbose enables debug output
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}
