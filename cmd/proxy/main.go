package main

import (
	"os"
	"runtime"

	log "github.com/sirupsen/logrus"

	"bulletforce_proxy/internal/config"
	"bulletforce_proxy/internal/game"
	"bulletforce_proxy/internal/server"
)

func main() {
	optimizeRuntime()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	setupLogging(cfg)

	log.WithFields(log.Fields{
		"host": cfg.Proxy.Host,
		"port": cfg.Proxy.Port,
	}).Info("starting bullet force websocket proxy")

	state := game.NewHaxState()
	state.Flags = game.FeatureFlags{
		ShowMobileGames:   cfg.Features.ShowMobileGames,
		ShowOtherVersions: cfg.Features.ShowOtherVersions,
		StripPasswords:    cfg.Features.StripPasswords,
	}

	proxyServer := server.New(cfg, state)
	if err := proxyServer.Start(); err != nil {
		log.WithError(err).Fatal("failed to start server")
	}
}

func setupLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func optimizeRuntime() {
	if os.Getenv("GOMAXPROCS") == "" {
		runtime.GOMAXPROCS(runtime.NumCPU())
	}
}
