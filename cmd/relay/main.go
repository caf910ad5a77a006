package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Jed556/Gallery-Epic-Scraper/config"
	"github.com/Jed556/Gallery-Epic-Scraper/relay"
	"github.com/Jed556/Gallery-Epic-Scraper/scraper"
)

func main() {
	addrDefault := ":3001"
	if value, ok := config.EnvString("RELAY_ADDR"); ok {
		addrDefault = value
	}

	addr := flag.String("addr", addrDefault, "Listen address")
	origins := flag.String("origins", "http://localhost:3000,http://127.0.0.1:3000", "Comma-separated allowed CORS origins")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	server := relay.New(relay.Options{
		AllowedOrigins: splitOrigins(*origins),
		Metrics:        scraper.NewMetrics(),
	})

	httpServer := &http.Server{
		Addr:    *addr,
		Handler: server.Router(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("relay listening", slog.String("addr", *addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("relay server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("relay shutdown failed", slog.Any("error", err))
	}
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
