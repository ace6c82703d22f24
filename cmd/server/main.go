package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/atmx/greeks-engine/internal/calc"
	"github.com/atmx/greeks-engine/internal/config"
	"github.com/atmx/greeks-engine/internal/metrics"
)

func main() {
	configPath := flag.String("config", os.Getenv("GREEKS_CONFIG"), "path to TOML configuration file (optional)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// --- Configuration ---
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "path", *configPath, "err", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))

	surface, err := cfg.VolSurface()
	if err != nil {
		slog.Error("invalid volatility surface", "err", err)
		os.Exit(1)
	}
	if !surface.ArbitrageFree() {
		slog.Warn("volatility surface admits static arbitrage", "slices", surface.Len())
	}

	// --- Calculator ---
	calcSvc := calc.NewService(calc.OptionsFrom(cfg), surface)
	stream := calc.NewStream(calcSvc, cfg.Stream)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout.Duration))
	r.Use(metrics.Middleware)
	r.Use(cors(cfg.Server.CORSOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"greeks-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Live calculator: one quote per request frame.
		r.Get("/ws", stream.HandleWS)

		// Single-option snapshots.
		r.Post("/price", calcSvc.Price)
		r.Post("/greeks", calcSvc.Greeks)
		r.Post("/advice", calcSvc.Advice)
		r.Post("/batch", calcSvc.Batch)

		// Chart series.
		r.Post("/curves/spot", calcSvc.SpotCurve)
		r.Post("/curves/decay", calcSvc.DecayCurve)
		r.Post("/curves/strikes", calcSvc.StrikeCurve)
		r.Post("/curves/smile", calcSvc.Smile)
		r.Get("/surface", calcSvc.Surface)

		// Positions and listed contracts.
		r.Post("/strategy/payoff", calcSvc.Payoff)
		r.Post("/contracts/{symbol}/quote", calcSvc.ContractQuote)
	})

	// --- Server ---
	port := strconv.Itoa(cfg.Server.Port)
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		IdleTimeout:  cfg.Server.IdleTimeout.Duration,
	}

	go func() {
		slog.Info("greeks-engine listening", "port", port, "surface_slices", surface.Len())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
	defer cancel()

	slog.Info("shutting down greeks-engine...", "live_sessions", stream.Clients())
	stream.Close()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("greeks-engine stopped")
}

// cors allows browser calculators on the configured origins. "*" allows any.
func cors(origins []string) func(http.Handler) http.Handler {
	anyOrigin := slices.Contains(origins, "*")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case anyOrigin:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin != "" && slices.Contains(origins, origin):
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
