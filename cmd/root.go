package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "yachay",
	Short: "Quechua vocabulary learning companion",
	Long: "Yachay keeps your Quechua practice sessions and progress in sync with the\n" +
		"learning server, and queues progress locally while you are offline.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Path to config file (overrides YACHAY_CONFIG env var)")
	pf.String("db", "", "Path to database file (overrides YACHAY_DB env var)")
	pf.String("api-url", "", "Base URL of the learning server (overrides YACHAY_API_URL env var)")
	pf.Bool("offline", false, "Work offline: never contact the server")
	pf.String("log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(abandonCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(serveDevCmd)
	rootCmd.AddCommand(versionCmd)
}
