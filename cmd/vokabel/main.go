package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/spf13/pflag"

	"github.com/pendlerapp/vokabel/internal/config"
	"github.com/pendlerapp/vokabel/internal/deck"
	"github.com/pendlerapp/vokabel/internal/importer"
	"github.com/pendlerapp/vokabel/internal/scheduler"
	"github.com/pendlerapp/vokabel/internal/storage"
	"github.com/pendlerapp/vokabel/internal/web"
)

func main() {
	// 1. Define and parse command-line flags
	flags := pflag.NewFlagSet("vokabel", pflag.ExitOnError)
	cfgFile := flags.String("config", "", "Path to a YAML config file")
	flags.String("db", "vokabel.db", "Path to the SQLite database file")
	flags.String("listen", ":8484", "HTTP listen address")
	flags.String("repos_dir", "repos", "Directory for cloned git deck sources")
	flags.Duration("sync_interval", 0, "Periodic deck source sync interval (0 disables)")
	addSource := flags.String("add-source", "", "Register a deck source (path or git URL), sync it and exit")
	runSync := flags.Bool("sync", false, "Sync all deck sources and exit")
	importPath := flags.String("import", "", "Import an .xlsx or .csv word list and exit")
	flags.Parse(os.Args[1:])

	cfg, err := config.Load(flags, *cfgFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Open the database
	db, err := storage.Open(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	slog.Info("Database opened", "path", cfg.DB)

	sched := scheduler.New(db)

	// 3. One-shot modes
	switch {
	case *addSource != "":
		if err := addNewSource(db, sched, cfg, *addSource); err != nil {
			log.Fatalf("Failed to add source: %v", err)
		}
		return
	case *runSync:
		if err := deck.SyncAll(db, sched, cfg.ReposDir); err != nil {
			log.Fatalf("Sync failed: %v", err)
		}
		return
	case *importPath != "":
		result, err := importer.ImportFile(*importPath, sched, importer.DefaultConfig())
		if err != nil {
			log.Fatalf("Import failed: %v", err)
		}
		fmt.Printf("Processed %d rows: %d accepted, %d rejected.\n",
			result.TotalProcessed, result.Accepted, len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("- %s\n", e)
		}
		return
	}

	// 4. Serve the review API
	serve(db, sched, cfg)
}

func addNewSource(db *storage.DB, sched *scheduler.Scheduler, cfg config.Config, path string) error {
	existing, err := db.FindSourceByPath(path)
	if err != nil {
		return err
	}
	if existing != nil {
		slog.Info("Source already registered", "path", path)
	} else {
		sourceType := deck.DetectType(path)
		if _, err := db.InsertSource(path, sourceType); err != nil {
			return err
		}
		slog.Info("Source registered", "path", path, "type", sourceType)
	}
	return deck.SyncAll(db, sched, cfg.ReposDir)
}

func serve(db *storage.DB, sched *scheduler.Scheduler, cfg config.Config) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Periodic source sync, if configured.
	var cron *gocron.Scheduler
	if cfg.SyncInterval > 0 {
		cron = gocron.NewScheduler(time.Local)
		_, err := cron.Every(cfg.SyncInterval).Do(func() {
			if err := deck.SyncAll(db, sched, cfg.ReposDir); err != nil {
				slog.Error("Periodic sync failed", "error", err)
			}
		})
		if err != nil {
			log.Fatalf("Failed to schedule periodic sync: %v", err)
		}
		cron.StartAsync()
		slog.Info("Periodic sync scheduled", "interval", cfg.SyncInterval)
	}

	srv := &http.Server{
		Addr:         cfg.Listen,
		Handler:      web.NewServer(sched, db, cfg.ReposDir),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("Review server listening", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	sig := <-sigChan
	slog.Info("Shutting down", "signal", sig.String())

	if cron != nil {
		cron.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
	}
	slog.Info("Server stopped")
}
