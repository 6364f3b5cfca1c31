// grbwatch/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gewnthar/grbwatch/astro"
	"github.com/gewnthar/grbwatch/config"
	"github.com/gewnthar/grbwatch/database"
	"github.com/gewnthar/grbwatch/handlers"
	"github.com/gewnthar/grbwatch/logging"
	"github.com/gewnthar/grbwatch/metrics"
	"github.com/gewnthar/grbwatch/models"
	"github.com/gewnthar/grbwatch/notifier"
	"github.com/gewnthar/grbwatch/scraper"
	"github.com/gewnthar/grbwatch/services"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "main")

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to config.yaml (default: $GRBWATCH_CONFIG, ./config.yaml, ./config/config.yaml)")
	flag.Parse()

	if err := config.LoadConfig(*configPath); err != nil {
		log.Errorf("Error loading configuration: %v", err)
		return 1
	}
	cfg := &config.AppConfig

	closer, err := logging.Setup(cfg.Logging)
	if err != nil {
		log.Errorf("Error configuring logging: %v", err)
		return 1
	}
	defer closer.Close()

	log.Infof("Configuration loaded. Source: %s, events file: %s", cfg.Source.URL, cfg.Store.EventsFile)

	if cfg.Database.Enabled() {
		if err := database.InitDB(cfg.Database); err != nil {
			log.Errorf("Error initializing database: %v", err)
			return 1
		}
		defer database.CloseDB()
	}

	recorder := metrics.New()
	updater := newUpdater(cfg, recorder)

	if cfg.Server.Port == "" {
		return runOnce(updater, recorder, cfg.Metrics.Textfile)
	}
	if err := serve(cfg, updater, recorder); err != nil {
		log.Errorf("Error starting server: %v", err)
		return 1
	}
	return 0
}

func newUpdater(cfg *config.Config, recorder *metrics.Recorder) *services.Updater {
	var download astro.DownloadFunc
	if !cfg.DustMap.NoFetch {
		download = scraper.DownloadFile
	}

	updater := &services.Updater{
		EventsFile: cfg.Store.EventsFile,
		Fetch: func(ctx context.Context) (*models.AlertTable, error) {
			return scraper.FetchAlertTable(ctx, cfg.Source.URL, cfg.Source.Timeout)
		},
		NewNotifier: func(ctx context.Context) (notifier.Notifier, error) {
			return buildNotifier(ctx, cfg)
		},
		Enricher: &services.Enricher{
			SourceURL:     cfg.Source.URL,
			LightCurveURL: cfg.Source.LightCurveURL,
			Dust:          astro.NewSFDMap(cfg.DustMap.Dir, cfg.DustMap.URLTemplate, download),
		},
		DuplicatePolicy: cfg.Notify.DuplicatePolicy,
		Metrics:         recorder,
	}
	if cfg.Database.Enabled() {
		updater.Archive = database.ArchiveAlerts
	}
	return updater
}

// buildNotifier resolves the Slack token and channel, and adds the Telegram
// mirror when configured.
func buildNotifier(ctx context.Context, cfg *config.Config) (notifier.Notifier, error) {
	token, err := notifier.LoadToken(cfg.Notify.Slack.TokenFile)
	if err != nil {
		return nil, err
	}
	slackCfg := cfg.Notify.Slack
	slackCfg.Token = token

	slack, err := notifier.NewSlack(ctx, slackCfg)
	if err != nil {
		return nil, err
	}
	sinks := notifier.Multi{slack}

	if cfg.Notify.Telegram.Enabled() {
		tg, err := notifier.NewTelegram(cfg.Notify.Telegram)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, tg)
	}
	return sinks, nil
}

func runOnce(updater *services.Updater, recorder *metrics.Recorder, textfile string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := 0
	res, err := updater.UpdateEvents(ctx)
	switch {
	case err != nil:
		log.Errorf("Update failed: %v", err)
		code = 1
	case res.StoreMissing:
		log.Info("Nothing to do without an events file")
	default:
		log.Infof("Update finished: fetched=%d new=%d notified=%d skipped=%d",
			res.Fetched, res.New, res.Notified, res.Skipped)
	}

	if textfile != "" {
		if err := recorder.WriteTextfile(textfile); err != nil {
			log.Errorf("%v", err)
		}
	}
	return code
}

func serve(cfg *config.Config, updater *services.Updater, recorder *metrics.Recorder) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", handlers.HealthHandler(updater))
	mux.HandleFunc("/api/events", handlers.EventsHandler(cfg.Store.EventsFile))
	mux.HandleFunc("/api/admin/update", handlers.UpdateHandler(updater))
	mux.Handle("/metrics", recorder.Handler())

	if cfg.Server.PollInterval > 0 {
		go poll(ctx, updater, cfg.Server.PollInterval)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Infof("Server starting on http://localhost%s", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("Server stopped")
	return nil
}

func poll(ctx context.Context, updater *services.Updater, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		res, err := updater.UpdateEvents(ctx)
		if err != nil {
			log.Errorf("Scheduled update failed: %v", err)
		} else if res.New > 0 {
			log.Infof("Scheduled update: %d new, %d notified", res.New, res.Notified)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
