package cmd

import (
	"fmt"
	"os"

	"github.com/kris-hansen/scrollystory/utils/config"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "scrollystory",
	Short: "Turn CSV data into scrollytelling HTML stories",
	Long: `scrollystory profiles a CSV dataset, asks an OpenAI-compatible model to write
a self-contained scrollytelling page with D3.js and Scrollama, and saves the
resulting HTML document.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.Verbose = verbose || debug
		config.Debug = debug
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug output (implies --verbose)")
}

func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadEnv reads the environment file; a missing file yields an empty configuration
func loadEnv() (*config.EnvConfig, error) {
	envPath := config.GetEnvPath()
	config.DebugLog("Loading environment configuration from %s", envPath)
	envConfig, err := config.LoadOrEmpty(envPath)
	if err != nil {
		return nil, fmt.Errorf("error loading environment configuration: %w", err)
	}
	return envConfig, nil
}
