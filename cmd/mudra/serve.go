package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/observe"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
)

func runServe(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("serve", stderr)
	configPath := fs.String("config", "", "path to the YAML configuration file")
	addr := fs.String("addr", "", "listen address (overrides server.listen_addr)")
	webDir := fs.String("web", "", "directory of static files to serve (overrides server.static_dir)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fail(stderr, "%v", err)
	}
	if *addr != "" {
		cfg.Server.ListenAddr = *addr
	}
	if *webDir == "" {
		*webDir = cfg.Server.StaticDir
	}
	if *webDir == "" {
		*webDir = findWebDir()
	}

	logger := newLogger(cfg.Server.LogLevel, stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.New(cfg.Server.DBPath)
	if err != nil {
		logger.Error("failed to initialize store", "path", cfg.Server.DBPath, "err", err)
		return 1
	}
	defer st.Close()

	metrics := observe.Discard()
	var metricsHandler http.Handler
	if cfg.Server.Metrics {
		shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
		if err != nil {
			logger.Error("failed to initialize metrics", "err", err)
			return 1
		}
		defer shutdown(context.Background())
		metrics = observe.DefaultMetrics()
		metricsHandler = observe.Handler()
	}

	recognizer := app.NewRecognizer(cfg.ScorePolicy())
	if err := loadInitialBank(recognizer, cfg, st); err != nil {
		logger.Error("failed to load model bank", "err", err)
		return 1
	}
	if recognizer.Ready() {
		logger.Info("model bank loaded", "source", recognizer.Source(), "classes", len(recognizer.Matcher().Bank()))
	} else {
		logger.Warn("no model bank loaded; train one with POST /api/banks")
	}

	srv := server.New(server.Config{
		StaticDir:      *webDir,
		Store:          st,
		Recognizer:     recognizer,
		Trainer:        gesture.NewTrainer(cfg.TrainOptions(), logger),
		Capture:        cfg.Capture,
		Metrics:        metrics,
		MetricsHandler: metricsHandler,
		Logger:         logger,
	})
	hs := srv.HTTPServer(cfg.Server.ListenAddr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- hs.ListenAndServe()
	}()

	logger.Info("mudra listening",
		"addr", cfg.Server.ListenAddr,
		"db", cfg.Server.DBPath,
		"static", *webDir,
		"metrics", cfg.Server.Metrics,
	)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			return 1
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutdown signal received, stopping")
	if err := hs.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "err", err)
		return 1
	}
	return 0
}

// loadInitialBank installs the configured bank file, or the most recently
// trained bank in the store.
func loadInitialBank(r *app.Recognizer, cfg *config.Config, st *store.Store) error {
	if cfg.Model.BankPath != "" {
		return r.LoadFile(cfg.Model.BankPath)
	}

	b, err := st.Banks().Latest()
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	bank, err := b.Models()
	if err != nil {
		return err
	}
	r.Set(bank, b.Names, b.ID)
	return nil
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.mudra/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".mudra", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
