package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dmid-labs/scangate/cmd/scangate/di"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the scangate server",
	Long: `Start the gateway that authenticates callers and forwards scan
requests to the downstream AI scanning API.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	// Determine config path; empty means environment-only configuration.
	configPath := cfgFile
	if configPath == "" {
		configPath = findConfigFile()
	}

	container, err := di.NewContainer(configPath)
	if err != nil {
		log.Error().Err(err).Msg("failed to create container")
		return err
	}

	cfgSvc, err := di.Invoke[*di.ConfigService](container)
	if err != nil {
		log.Error().Err(err).Str("path", configPath).Msg("failed to load config")
		return err
	}

	loggerSvc, err := di.Invoke[*di.LoggerService](container)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize logger")
		return err
	}
	log.Logger = *loggerSvc.Logger
	zerolog.DefaultContextLogger = loggerSvc.Logger

	serverSvc, err := di.Invoke[*di.ServerService](container)
	if err != nil {
		log.Error().Err(err).Msg("failed to build server")
		return err
	}

	// Background services
	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()
	cfgSvc.StartWatching(watchCtx)
	di.MustInvoke[*di.ProbeService](container).Start()

	// Graceful shutdown on SIGINT/SIGTERM
	done := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Info().Msg("shutting down...")
		cancelWatch()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := container.ShutdownWithContext(ctx); err != nil {
			log.Error().Err(err).Msg("shutdown error")
		}

		close(done)
	}()

	log.Info().
		Str("listen", cfgSvc.Get().Server.Listen).
		Str("downstream", cfgSvc.Get().Downstream.URL).
		Str("auth_mode", cfgSvc.Get().Auth.GetEffectiveMode()).
		Msg("starting scangate")

	if err := serverSvc.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server error")
		return err
	}

	<-done
	log.Info().Msg("server stopped")

	return nil
}
