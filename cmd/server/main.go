package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/asaphhq/asaph/internal/api"
	"github.com/asaphhq/asaph/internal/config"
	"github.com/asaphhq/asaph/internal/server"
	"github.com/asaphhq/asaph/internal/stats"
	"github.com/asaphhq/asaph/internal/store"
	_ "github.com/lib/pq"
)

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dataFile       string
	dsn            string
	allowedOrigins stringSliceFlag
	iceServers     stringSliceFlag
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&dataFile, "data-file", "data/asaph.json", "path of the JSON state snapshot")
	flag.StringVar(&dsn, "dsn", "", "postgres connection string (replaces -data-file)")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Var(&iceServers, "ice-servers", "comma-separated list of ICE server URLs handed to clients")
	flag.Parse()

	if dsn != "" {
		dataFile = ""
	}

	logger := log.New(os.Stderr, "[asaph] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dataFile, dsn, allowedOrigins, iceServers)
	if err != nil {
		logger.Fatal("config: ", err)
	}

	var snap store.Snapshotter
	if cfg.DatabaseDSN != "" {
		pgSnap, err := store.NewPgSnapshotStore(cfg.DatabaseDSN)
		if err != nil {
			logger.Fatal("db open: ", err)
		}
		defer func() {
			if err := pgSnap.Close(); err != nil {
				logger.Println("db close: ", err)
			}
		}()
		snap = pgSnap
	} else {
		snap = store.NewFileSnapshotStore(cfg.DataFile)
	}

	st, err := store.NewStore(logger, snap)
	if err != nil {
		logger.Fatal("store: ", err)
	}
	st.Start()

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	hub := server.NewHub(logger, st, statsUpdater)

	app := api.NewAsaphApp(mux, logger, hub, st, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go hub.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := app.Shutdown(shutDownCtx); err != nil {
		logger.Println("HTTP server shutdown:", err)
	}

	logger.Println("shutting down hub...")
	if err := hub.Shutdown(shutDownCtx); err != nil {
		logger.Println("hub shutdown:", err)
	}

	logger.Println("flushing state...")
	st.Stop()

	logger.Println("shutdown complete")
}
