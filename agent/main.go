package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aimeeyu8/Tastebuddy/chat"
	"github.com/aimeeyu8/Tastebuddy/config"
	"github.com/aimeeyu8/Tastebuddy/events"
	"github.com/aimeeyu8/Tastebuddy/filter"
	"github.com/aimeeyu8/Tastebuddy/history"
	"github.com/aimeeyu8/Tastebuddy/llm"
	"github.com/aimeeyu8/Tastebuddy/search"
	"github.com/aimeeyu8/Tastebuddy/strategy"
	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("agent stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	sqliteDb, err := sql.Open("sqlite3", cfg.History.ChatDB)
	if err != nil {
		return err
	}
	defer sqliteDb.Close()

	parserLLM, err := llm.NewModel(cfg.LLM, cfg.LLM.ParserModel)
	if err != nil {
		return err
	}
	contextLLM, err := llm.NewModel(cfg.LLM, cfg.LLM.ContextModel)
	if err != nil {
		return err
	}

	var cache search.Cache
	if cfg.Postgres.Enabled {
		pg, err := search.NewPgCache(cfg.Postgres.ConnStr(), cfg.Postgres.CacheTTL)
		if err != nil {
			return err
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		cache = pg
	}

	searchClient, err := search.NewClient(cfg.SerpAPI, cache, logger)
	if err != nil {
		return err
	}

	convLog, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}

	th, err := thresholds(cfg.Harmony)
	if err != nil {
		return err
	}

	opts := chat.Options{
		Thresholds:      th,
		Mention:         cfg.Harmony.Mention,
		DefaultLocation: cfg.DefaultLocation,
		SearchLimit:     cfg.SerpAPI.SearchLimit,
		Log:             convLog,
		Logger:          logger,
	}

	var nc *events.Client
	if cfg.Nats.Enabled {
		nc, err = events.NewClient(cfg.Nats, logger)
		if err != nil {
			return err
		}
		defer nc.Close()
		opts.Publisher = nc
	}

	svc := chat.NewService(
		llm.NewExtractor(parserLLM, cfg.DefaultLocation, logger),
		searchClient,
		filter.NewAllergenFilter(searchClient, cfg.Filter.AllergenThreshold, cfg.Filter.MenuConcurrency, logger),
		llm.NewReplier(contextLLM, sqliteDb, logger),
		opts,
	)

	hub := NewHub(logger)
	defer hub.Close()

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    cfg.Server.Address(),
		Handler: NewServer(svc, hub, logger).Handler(),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting agent", "addr", srv.Addr, "llm", cfg.LLM.Provider, "postgres", cfg.Postgres.Enabled, "nats", cfg.Nats.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if nc != nil {
		pool := events.NewWorkerPool(gctx, cfg.Nats.Workers, cfg.Nats.QueueSize, inboundHandler(svc), logger)
		g.Go(func() error {
			defer pool.Wait()
			defer pool.Stop()
			return nc.Subscribe(gctx, cfg.Nats.InboundSubject, pool)
		})
	}

	return g.Wait()
}

// inboundHandler feeds NATS chat messages into the same pipeline as
// POST /chat. Validation failures are acked since a redelivery cannot fix
// them.
func inboundHandler(svc *chat.Service) events.Handler {
	return func(ctx context.Context, data []byte) error {
		msg, err := events.DecodeInbound(data)
		if err != nil {
			slog.Warn("dropping inbound message", "error", err)
			return nil
		}

		_, err = svc.HandleMessage(ctx, msg.Group, chat.Input{
			UserID:   msg.UserID,
			UserName: msg.UserName,
			Message:  msg.Message,
		})
		if errors.Is(err, chat.ErrEmptyMessage) || errors.Is(err, chat.ErrMissingUser) {
			slog.Warn("dropping inbound message", "group", msg.Group, "error", err)
			return nil
		}
		return err
	}
}

func thresholds(h config.Harmony) (strategy.Thresholds, error) {
	th := strategy.DefaultThresholds()
	if h.ConflictThreshold > 0 {
		th.Conflict = h.ConflictThreshold
	}
	if h.LurkerRatio > 0 {
		th.LurkerRatio = h.LurkerRatio
	}
	if h.SummaryAfter > 0 {
		th.SummaryAfter = h.SummaryAfter
	}
	if h.DefaultStrategy != "" {
		def, err := strategy.ParseStrategy(h.DefaultStrategy)
		if err != nil {
			return strategy.Thresholds{}, err
		}
		th.Default = def
	}
	return th, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
