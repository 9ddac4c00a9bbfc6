package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/skyezerfox/moss/config"
	"github.com/skyezerfox/moss/registry"
	"github.com/skyezerfox/moss/status"
	"github.com/skyezerfox/moss/web"
)

var cfg *config.Config

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	v := viper.GetViper()
	config.Setup(v, ".")
	if err := config.Read(v); err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	var err error
	cfg, err = config.FromViper(v)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid config")
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)
}

func main() {
	reg, err := registry.New(cfg.Servers)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid server list")
	}
	log.Debug().Msgf("Have %d servers in the catalogue", reg.Len())

	client := status.NewClient(cfg.Status.APIURL, cfg.Status.UserAgent, cfg.Status.Timeout)
	controller := status.NewController(client)

	handler := web.New(reg, controller, web.Options{
		CheckRate:  cfg.HTTP.CheckRate,
		CheckBurst: cfg.HTTP.CheckBurst,
		TrustProxy: cfg.HTTP.TrustProxy,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           handler.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr()).Str("status_api", cfg.Status.APIURL).Msg("Starting status page...")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Err(err).Msg("HTTP server shutdown error")
	}
	handler.Hub().Close()
	controller.Wait()

	log.Info().Msg("Stopped")
}
