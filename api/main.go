package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DeafMist/govsite-search/backend/internal/config"
	"github.com/DeafMist/govsite-search/backend/internal/elasticsearch"
	"github.com/DeafMist/govsite-search/backend/internal/logger"
	"github.com/DeafMist/govsite-search/backend/internal/search"
	"github.com/DeafMist/govsite-search/backend/internal/stats"
)

func main() {
	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	srv := &server{log: log, cfg: cfg}
	if cfg.SearchEnabled {
		esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.Indices, log)
		if err != nil {
			log.Error("init elasticsearch", slog.Any("err", err))
			os.Exit(1)
		}
		srv.health = esClient
		srv.search = search.New(esClient, cfg.MergeWindow, log)
		srv.stats = stats.New(esClient, log)
	} else {
		log.Warn("search disabled, serving empty results")
	}

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           newRouter(srv),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.SearchTimeout + 10*time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		log.Info("api server starting",
			slog.String("addr", cfg.BindAddr),
			slog.Bool("search_enabled", cfg.SearchEnabled),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}
