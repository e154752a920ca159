package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/banshee-data/mosaic.offsets/internal/api"
	"github.com/banshee-data/mosaic.offsets/internal/config"
	"github.com/banshee-data/mosaic.offsets/internal/db"
	"github.com/banshee-data/mosaic.offsets/internal/offsets"
)

// newHTTPServer wires the API around store. store may be nil.
func newHTTPServer(addr string, cfg *config.OffsetConfig, store api.RunStore) *http.Server {
	pipeline := offsets.NewPipeline(offsets.NewConfig(cfg))
	return &http.Server{
		Addr:              addr,
		Handler:           api.NewServer(pipeline, store, cfg).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to JSON configuration file")
	listen := fs.String("listen", "", "Listen address (default from config, else :8080)")
	dbPath := fs.String("db", "", "Run database path (default from config)")
	noDB := fs.Bool("no-db", false, "Do not record runs")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *listen == "" {
		*listen = cfg.GetListen()
	}
	if *dbPath == "" {
		*dbPath = cfg.GetDBPath()
	}

	var store api.RunStore
	if !*noDB {
		database, err := db.NewDB(*dbPath)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()
		store = database
	}

	server := newHTTPServer(*listen, cfg, store)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", *listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	log.Printf("Graceful shutdown complete")
	return nil
}
