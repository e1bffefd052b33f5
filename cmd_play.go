package main

import (
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/robalobadob/starcipher/internal/config"
	"github.com/robalobadob/starcipher/internal/game"
	"github.com/robalobadob/starcipher/internal/messages"
	"github.com/robalobadob/starcipher/internal/tui"
)

var playMotion string

var playCmd = &cobra.Command{
	Use:   "play [text...]",
	Short: "Play a challenge in the terminal",
	Long: `Starts a challenge locally. Steer the cursor onto the star and press
space to catch it; clear every level to decode the message.

The arguments, joined by spaces, are the encoded message to guard. Without
arguments a message is picked from the built-in list (or MESSAGES_FILE).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		// logs would tear the alt screen
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)

		gcfg, err := cfg.Game(playMotion)
		if err != nil {
			return err
		}
		input := strings.Join(args, " ")
		if input == "" {
			if err := messages.Init(cfg.MessagesFile); err != nil {
				return err
			}
			input = messages.Random()
		}
		return tui.Run(game.NewSession(input, gcfg))
	},
}

func init() {
	playCmd.Flags().StringVar(&playMotion, "motion", "", "star motion: jump or bounce (overrides MOTION)")
}
