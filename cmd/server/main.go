package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"traintracker/internal/api"
	"traintracker/internal/config"
	"traintracker/internal/db"
	"traintracker/internal/live"
	"traintracker/internal/resolve"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	liveClient := live.NewClient(cfg.EnquiryURL, cfg.EnquiryTimeout)
	resolver := resolve.New(store, liveClient)

	trainHandler := api.NewTrainHandler(resolver, store)
	healthHandler := api.NewHealthHandler(store)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", healthHandler.Health)
	r.Get("/api/trains", trainHandler.Search)
	r.Get("/api/train/{trainNo}", trainHandler.GetTrain)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Train tracker API listening on :%s", cfg.Port)
		log.Println("  GET /api/trains?q=&limit=")
		log.Println("  GET /api/train/{trainNo}")
		log.Println("  GET /health")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

// openStore picks Postgres when DATABASE_URL is set, SQLite otherwise
func openStore(cfg *config.Config) (db.Store, error) {
	if cfg.DatabaseURL != "" {
		log.Println("Using Postgres store")
		return db.OpenPostgres(context.Background(), cfg.DatabaseURL)
	}
	log.Printf("Using SQLite store: %s", cfg.DatabasePath)
	return db.OpenSQLite(cfg.DatabasePath)
}
