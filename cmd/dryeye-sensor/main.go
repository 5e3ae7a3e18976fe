// Command dryeye-sensor measures blink behaviour from facial landmark frames
// and classifies dry-eye risk over fixed-length sessions.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is the main Cobra command. Without a subcommand it runs the daemon.
var rootCmd = &cobra.Command{
	Use:   "dryeye-sensor",
	Short: "Blink-rate dry eye risk monitor",
	Long: `dryeye-sensor consumes eye landmark frames from an MQTT topic, detects
complete and incomplete blinks, and classifies each session's blink rate into a
dry-eye risk level. Results are published to MQTT, optionally to a Redis stream,
and served over HTTP.

Examples:
  dryeye-sensor run --auto-start
  dryeye-sensor replay session.jsonl --duration 60
  dryeye-sensor classify 9.5`,
	SilenceUsage: true,
	RunE:         runDaemonCmd,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFileFlag, "env-file", ".env", "Optional .env file to load before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level override (debug, info, warn, error)")
	addRunFlags(rootCmd)
	rootCmd.AddCommand(runCmd, replayCmd, classifyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
