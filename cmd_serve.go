package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/starcipher/assets"
	"github.com/robalobadob/starcipher/internal/config"
	"github.com/robalobadob/starcipher/internal/database"
	"github.com/robalobadob/starcipher/internal/httpserver"
	"github.com/robalobadob/starcipher/internal/messages"
	"github.com/robalobadob/starcipher/internal/store"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "listen port (overrides PORT)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)
	if servePort != "" {
		cfg.Port = servePort
	}

	if err := messages.Init(cfg.MessagesFile); err != nil {
		return err
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(db, assets.Migrations()); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mem := store.NewMemoryStore()
	go store.Janitor(ctx, mem, time.Minute, cfg.SessionTTL)

	srv := httpserver.New(cfg, mem, db)
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Int("messages", messages.Stats()).Msg("starting starcipher")
		errc <- srv.Start(":" + cfg.Port)
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
