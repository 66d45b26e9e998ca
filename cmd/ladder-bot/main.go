package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/Showdown-LadderTracker-bot/internal/archive"
	"github.com/park285/Showdown-LadderTracker-bot/internal/bot"
	appcfg "github.com/park285/Showdown-LadderTracker-bot/internal/config"
	"github.com/park285/Showdown-LadderTracker-bot/internal/eventloop"
	"github.com/park285/Showdown-LadderTracker-bot/internal/ident"
	"github.com/park285/Showdown-LadderTracker-bot/internal/ladderapi"
	"github.com/park285/Showdown-LadderTracker-bot/internal/msgcat"
	"github.com/park285/Showdown-LadderTracker-bot/internal/obslog"
	"github.com/park285/Showdown-LadderTracker-bot/internal/showdown"
	"github.com/park285/Showdown-LadderTracker-bot/internal/tracker"
)

func main() {
	// a missing .env is fine; the environment may already be set
	_ = godotenv.Load()

	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	var ladders tracker.LadderSource = ladderapi.NewClient(cfg.LadderBaseURL, ladderapi.WithTimeout(cfg.PullTimeout))
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis url error: %v", err)
		}
		rdb = redis.NewClient(opt)
		ladders = ladderapi.NewCache(rdb, ladders, cfg.LadderCacheTTL)
		logger.Info("ladder_cache_enabled", zap.Duration("ttl", cfg.LadderCacheTTL))
	}

	var arch tracker.Archive
	var repo *archive.Repository
	if cfg.DatabaseURL != "" {
		repo, err = archive.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("archive init error: %v", err)
		}
		arch = repo
	}

	loop := eventloop.New()

	var sd *showdown.Client
	dispatcher := bot.New(loop, cat, bot.Options{
		Prefix: cfg.BotPrefix,
		Self:   func() ident.ID { return sd.Self() },
		Out:    func(room string) tracker.Announcer { return sd.Room(room) },
	})
	sd = showdown.NewClient(showdown.Config{
		URL:          cfg.ShowdownWSURL,
		LoginURL:     cfg.ShowdownLoginURL,
		Username:     cfg.Username,
		Password:     cfg.Password,
		Rooms:        cfg.Rooms,
		SendInterval: cfg.SendInterval,
		DryRun:       cfg.DryRun,
	}, dispatcher.HandleChat)

	initial := tracker.TrackingConfig{
		Format:    ident.Normalize(cfg.DefaultFormat),
		Prefix:    ident.Normalize(cfg.DefaultPrefix),
		MinRating: cfg.DefaultRating,
	}
	opts := tracker.Options{
		Tick:         cfg.TickInterval,
		PullTimeout:  cfg.PullTimeout,
		DeadlineLead: cfg.DeadlineLead,
		TopSize:      cfg.TopSize,
	}
	for _, room := range cfg.Rooms {
		dispatcher.Add(tracker.New(room, initial, tracker.Deps{
			Runtime: loop,
			Ladders: ladders,
			Battles: sd.Battles(),
			Out:     sd.Room(room),
			Msgs:    cat,
			Archive: arch,
		}, opts))
	}

	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		loop.Run(loopCtx)
		close(loopDone)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	sdDone := make(chan error, 1)
	go func() { sdDone <- sd.Run(ctx) }()
	logger.Info("bot_started", zap.Strings("rooms", cfg.Rooms), zap.String("prefix", cfg.BotPrefix))

	<-ctx.Done()
	logger.Info("bot_stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := loop.Do(shutdownCtx, dispatcher.Shutdown); err != nil {
		logger.Warn("tracker_shutdown_error", zap.Error(err))
	}
	stopLoop()
	<-loopDone
	loop.Wait()
	if err := <-sdDone; err != nil {
		logger.Warn("showdown_close_error", zap.Error(err))
	}

	if rdb != nil {
		_ = rdb.Close()
	}
	if repo != nil {
		_ = repo.Close()
	}
}
