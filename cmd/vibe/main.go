package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chess10kp/vibe/internal/config"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "vibe",
	Short: "Search-driven app launcher with gesture shortcuts and delayed launches",
	Long: `vibe indexes the applications of every configured profile, filters them
as you type, launches apps bound to gestures and holds apps in the delay
set behind a cancelable countdown.

Run "vibe serve" for the headless daemon driven over the IPC socket, or
"vibe tui" for the terminal front end.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tuiCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
