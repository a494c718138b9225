package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/rs/zerolog"

	"github.com/tmuthoni/studyshelf/catalog"
	"github.com/tmuthoni/studyshelf/config"
	"github.com/tmuthoni/studyshelf/ratings"
	"github.com/tmuthoni/studyshelf/registry"
	"github.com/tmuthoni/studyshelf/server"
	"github.com/tmuthoni/studyshelf/store"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		log.Println("received interrupt, shutting down")
		cancel()
	}()

	cfg, err := config.ReadConfig()
	if err != nil {
		log.Panicf("failed to read config: %s", err)
	}

	client, err := catalog.NewClient(cfg.API.BaseURL, cfg.API.Token, cfg.API.Timeout)
	if err != nil {
		log.Panicf("failed to create catalog client: %s", err)
	}

	registrationStore, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Panicf("failed to create registration store: %s", err)
	}

	tracker := registry.NewTracker(client, registrationStore, cfg.Registry.PageSize)
	if err := tracker.Load(ctx); err != nil {
		// fallback already exhausted, starting with an empty set
		log.Printf("failed to load registrations: %s", err)
	}

	aggregator := ratings.NewAggregator(client)

	srv := server.NewServer(cfg.Server.Addr, client, client, tracker, aggregator)
	if err := srv.Start(ctx); err != nil {
		log.Panicf("Server failure: %s", err)
	}
}
