package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/ffcommunity/likebot/internal/bot"
	"github.com/ffcommunity/likebot/internal/config"
	"github.com/ffcommunity/likebot/internal/freefire"
	"github.com/ffcommunity/likebot/internal/health"
	"github.com/ffcommunity/likebot/internal/like"
	"github.com/ffcommunity/likebot/internal/logger"
	"github.com/ffcommunity/likebot/internal/ratelimit"
	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := mainE(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func mainE() error {
	_ = godotenv.Load()

	fs := ff.NewFlagSet("likebot")
	var (
		apiURL         = fs.StringLong("api-url", "", "Base URL of the like API")
		discordToken   = fs.StringLong("discord-token", "", "Discord bot token")
		guildID        = fs.StringLong("guild-id", "", "Guild for command registration (empty registers globally)")
		configFile     = fs.StringLong("config-file", "like_channels.json", "Path to the per-guild config file")
		adminIDs       = fs.StringLong("admin-ids", "", "Comma-separated user IDs allowed to run admin commands")
		replayInterval = fs.DurationLong("replay-interval", like.DefaultReplayInterval, "Auto-like sweep interval")
		healthPort     = fs.IntLong("health-port", 8081, "Health check port")
		metricsPort    = fs.IntLong("metrics-port", 9090, "Prometheus metrics port")
	)

	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVars()); err != nil {
		fmt.Printf("%s\n", ffhelp.Flags(fs))
		return fmt.Errorf("parsing flags: %w", err)
	}

	if *apiURL == "" {
		return errors.New("api-url is required")
	}
	if *discordToken == "" {
		return errors.New("discord-token is required")
	}

	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := config.Load(*configFile, log)
	if err != nil {
		return fmt.Errorf("loading config store: %w", err)
	}
	log.InfoContext(ctx, "config store loaded", "path", *configFile)

	limiter := ratelimit.NewDefault()
	client := freefire.NewClient(*apiURL)
	scheduler := like.NewScheduler(log, store, limiter, client)
	replay := like.NewReplay(log, store, client, *replayInterval)

	dg, err := discordgo.New("Bot " + *discordToken)
	if err != nil {
		return fmt.Errorf("creating Discord session: %w", err)
	}

	var admins []string
	if *adminIDs != "" {
		admins = strings.Split(*adminIDs, ",")
	}

	b := bot.New(log, bot.NewDiscordSession(dg), scheduler, store, limiter, bot.Config{
		GuildID:  *guildID,
		AdminIDs: admins,
	})

	healthServer := health.New(*healthPort)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return b.Run(ctx)
	})

	g.Go(func() error {
		select {
		case <-b.Ready():
		case <-ctx.Done():
			return nil
		}
		return replay.Run(ctx)
	})

	g.Go(func() error {
		log.InfoContext(ctx, "starting health server", "port", *healthPort)
		return healthServer.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return healthServer.Shutdown(shutdownCtx)
	})

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: fmt.Sprintf(":%d", *metricsPort), Handler: metricsMux}
	g.Go(func() error {
		log.InfoContext(ctx, "starting metrics server", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("shut down complete")
	return nil
}
