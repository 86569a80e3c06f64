// Bulk ingestion tool. From-file mode loads a GeoJSON station collection
// and a flat schedule listing; from-live mode re-fetches every known train
// from the enquiry site with polite request spacing.
//
// Usage:
//
//	import -stations data/stations.json -schedules data/schedules.json
//	import -refresh
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"traintracker/internal/config"
	"traintracker/internal/db"
	"traintracker/internal/ingest"
	"traintracker/internal/live"
)

func main() {
	stationsPath := flag.String("stations", "", "Path to GeoJSON station file")
	schedulesPath := flag.String("schedules", "", "Path to flat schedule listing")
	refresh := flag.Bool("refresh", false, "Refresh all known trains from the live source")
	flag.Parse()

	if *stationsPath == "" && *schedulesPath == "" && !*refresh {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.Load()

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	if *stationsPath != "" || *schedulesPath != "" {
		if err := runFileImport(ctx, store, *stationsPath, *schedulesPath); err != nil {
			log.Fatalf("Import failed: %v", err)
		}
	}

	if *refresh {
		if err := runRefresh(ctx, store, cfg); err != nil {
			log.Fatalf("Refresh failed: %v", err)
		}
	}
}

func runFileImport(ctx context.Context, store db.Store, stationsPath, schedulesPath string) error {
	startedAt := time.Now()
	runID, err := store.RecordIngestRun(ctx, "file", startedAt)
	if err != nil {
		return err
	}

	imported := 0
	if stationsPath != "" {
		log.Printf("Importing stations from %s...", stationsPath)
		n, err := ingest.ImportStations(ctx, store, stationsPath)
		if err != nil {
			return err
		}
		log.Printf("Imported %d stations", n)
		imported += n
	}

	if schedulesPath != "" {
		log.Printf("Importing schedules from %s...", schedulesPath)
		trains, stops, err := ingest.ImportSchedules(ctx, store, schedulesPath)
		if err != nil {
			return err
		}
		log.Printf("Imported %d trains, %d stops", trains, stops)
		imported += stops
	}

	if err := store.FinishIngestRun(ctx, runID, imported, imported, 0); err != nil {
		return err
	}
	log.Printf("Import complete in %v", time.Since(startedAt).Round(time.Millisecond))
	return nil
}

func runRefresh(ctx context.Context, store db.Store, cfg *config.Config) error {
	client := live.NewClient(cfg.EnquiryURL, cfg.EnquiryTimeout)
	sweeper := ingest.NewSweeper(store, client, cfg.FetchDelay)

	log.Printf("Starting live refresh (delay %v between requests)...", cfg.FetchDelay)
	tally, err := sweeper.Run(ctx)
	if err != nil {
		return err
	}
	log.Printf("Refresh done: %d processed, %d succeeded, %d failed",
		tally.Processed, tally.Succeeded, tally.Failed)
	return nil
}

// openStore picks Postgres when DATABASE_URL is set, SQLite otherwise
func openStore(cfg *config.Config) (db.Store, error) {
	if cfg.DatabaseURL != "" {
		return db.OpenPostgres(context.Background(), cfg.DatabaseURL)
	}
	return db.OpenSQLite(cfg.DatabasePath)
}
