package main

import (
	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-classroom/internal/config"
)

var rootCmd = &cobra.Command{
	Use:          "classroomd",
	Short:        "MindEngage classroom server",
	Long:         "Serves lessons and auto-grades student answers (multiple-choice, math expressions, open-ended keywords).",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a config file (yaml/json/toml); environment variables override it")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(gradeCmd)
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}
