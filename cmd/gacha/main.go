// Package main is the gacha-lab command line: one-shot calculations from a
// workspace document and the HTTP/WebSocket server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gacha-lab/internal/config"
	"gacha-lab/internal/logging"
)

var (
	// Global flags
	configPath string
	envFile    string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "gacha",
	Short: "gacha-lab - material allocation calculator for gacha categories",
	Long: `gacha-lab ranks gacha categories by expected value and by a
risk-reward score, and recommends how to spread a material budget across them.

Configuration is read from --config (YAML) with GACHA_* environment overrides.
A .env file in the working directory is loaded first and never overrides
variables that are already set.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnvFile(envFile); err != nil {
			return err
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger, err = logging.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the effective configuration to a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigInit,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (YAML); defaults apply when empty or missing")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before the config")

	computeCmd.Flags().StringVarP(&computeInput, "input", "i", "-", "Workspace document (JSON); - reads stdin")
	computeCmd.Flags().StringVarP(&computeFormat, "format", "f", config.FormatMarkdown, "Output format: json, markdown, csv")

	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(computeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if err := cfg.Save(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
	return nil
}
