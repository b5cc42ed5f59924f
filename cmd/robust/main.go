// Command robust computes Huber-White robust variance estimates for
// fitted Cox proportional hazards and multinomial logistic regression
// models stored in a SQLite relation store.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

var (
	dbPath      string
	cfgPath     string
	quiet       bool
	modelTable  string
	outputTable string

	logLevel zap.AtomicLevel
	logger   *zap.Logger
)

func applyFileConfig(fc *fileConfig) {
	if modelTable == "" {
		modelTable = fc.Model
	}
	if outputTable == "" {
		outputTable = fc.Output
	}
}

// fileConfig holds the optional yaml configuration file contents.
// Command-line flags take precedence over file values.
type fileConfig struct {
	DB     string `yaml:"db"`
	Model  string `yaml:"model_table"`
	Output string `yaml:"output_table"`
}

func loadFileConfig(path string) (*fileConfig, error) {

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file: %w", err)
	}

	fc := &fileConfig{}
	if err := yaml.Unmarshal(b, fc); err != nil {
		return nil, fmt.Errorf("cannot parse config file: %w", err)
	}

	return fc, nil
}

var rootCmd = &cobra.Command{
	Use:           "robust",
	Short:         "Robust (sandwich) variance estimation for fitted regression models",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {

		logLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = logLevel

		var err error
		logger, err = cfg.Build()
		if err != nil {
			return err
		}

		if cfgPath != "" {
			fc, err := loadFileConfig(cfgPath)
			if err != nil {
				return err
			}
			if dbPath == "" {
				dbPath = fc.DB
			}
			applyFileConfig(fc)
		}

		if dbPath == "" {
			return fmt.Errorf("no database given; use --db or a config file")
		}

		return nil
	},
}

// quietScope lowers the diagnostic verbosity to warnings and returns a
// function restoring the previous level.  The restore runs on every
// exit path of the caller.
func quietScope() func() {
	prev := logLevel.Level()
	if quiet {
		logLevel.SetLevel(zapcore.WarnLevel)
	}
	return func() { logLevel.SetLevel(prev) }
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the SQLite database")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a yaml config file")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress informational messages during the run")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "robust: %v\n", err)
		os.Exit(1)
	}
}
