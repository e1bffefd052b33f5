package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	logLevel string
	pretty   bool
)

// rootCmd is the starcipher entrypoint; it serves the API by default.
var rootCmd = &cobra.Command{
	Use:   "starcipher",
	Short: "Catch the star, decode the message",
	Long: `starcipher guards an encoded message behind a timed star-catching challenge.

Run "starcipher serve" for the HTTP/WebSocket API, "starcipher play" for the
terminal client, or "starcipher reveal" to decode text directly.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(os.Getenv("LOG_LEVEL"))
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "human-readable console logs")
	rootCmd.AddCommand(serveCmd, playCmd, revealCmd, concealCmd)
}

// setupLogging applies the level from --log-level, falling back to env.
func setupLogging(env string) {
	level := logLevel
	if level == "" {
		level = env
	}
	if lvl, err := zerolog.ParseLevel(level); err == nil && level != "" {
		zerolog.SetGlobalLevel(lvl)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
