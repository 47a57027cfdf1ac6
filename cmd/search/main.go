package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/timmy/reelvault/internal/app"
	"github.com/timmy/reelvault/internal/config"
	"github.com/timmy/reelvault/internal/logger"
	"github.com/timmy/reelvault/internal/service"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		Output:      os.Stderr, // stdout carries the response
		ServiceName: "reelvault-search",
	})
	logger.SetDefaultLogger(appLogger)

	keyword := flag.String("keyword", "", "Keyword to search for")
	more := flag.String("more", "", "Load the next page of this search id instead of starting a new search")
	tiktok := flag.Bool("tiktok", true, "Query TikTok")
	youtube := flag.Bool("youtube", false, "Query YouTube")
	instagram := flag.Bool("instagram", false, "Query Instagram")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Queued downloads are signalled through the configured trigger; with the local
	// trigger they only run while this process is alive.
	components, err := app.New(ctx, cfg)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize components")
	}
	defer components.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	// Only flags given on the command line override the stored selection on -more.
	selection := &service.PlatformSelection{}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "tiktok":
			selection.TikTok = tiktok
		case "youtube":
			selection.YouTube = youtube
		case "instagram":
			selection.Instagram = instagram
		}
	})

	var resp *service.SearchResponse
	if *more != "" {
		appLogger.WithField("search_id", *more).Info("Loading next page")
		resp, err = components.Search.LoadMore(ctx, *more, selection)
	} else {
		if *keyword == "" {
			appLogger.Fatal("Either -keyword or -more is required")
		}
		appLogger.WithFields(logger.Fields{
			"keyword":   *keyword,
			"tiktok":    *tiktok,
			"youtube":   *youtube,
			"instagram": *instagram,
		}).Info("Starting search")
		resp, err = components.Search.Search(ctx, service.SearchRequest{
			Keyword: *keyword,
			Platforms: &service.PlatformSelection{
				TikTok:    tiktok,
				YouTube:   youtube,
				Instagram: instagram,
			},
			RequestedBy: "cli",
		})
	}
	if err != nil {
		appLogger.WithError(err).Fatal("Search failed")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		appLogger.WithError(err).Fatal("Failed to print response")
	}
	appLogger.WithFields(logger.Fields{
		"search_id":   resp.SearchID,
		"media":       len(resp.Media),
		"queued_jobs": resp.QueuedJobs,
	}).Info("Search completed")
}
