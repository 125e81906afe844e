package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"github.com/3ll3d00d/jriver-bridge/browse"
	"github.com/3ll3d00d/jriver-bridge/config"
	"github.com/3ll3d00d/jriver-bridge/coordinator"
	"github.com/3ll3d00d/jriver-bridge/db"
	"github.com/3ll3d00d/jriver-bridge/events"
	"github.com/3ll3d00d/jriver-bridge/history"
	"github.com/3ll3d00d/jriver-bridge/mcws"
	"github.com/3ll3d00d/jriver-bridge/migrations"
	"github.com/3ll3d00d/jriver-bridge/notify"
	"github.com/3ll3d00d/jriver-bridge/routes"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println(err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.GetLogLevel(),
	}))
	slog.SetDefault(logger)

	host := cfg.MediaServer.Host
	port := cfg.MediaServer.Port
	macAddresses := cfg.MACAddressList()
	if host == "" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		info, err := mcws.ResolveAccessKey(ctx, cfg.MediaServer.AccessKey)
		cancel()
		if err != nil {
			slog.With(slog.String("error", err.Error())).Error("Failed to resolve access key")
			os.Exit(1)
		}
		if len(info.LocalIPs) > 0 {
			host = info.LocalIPs[0]
		} else {
			host = info.IP
		}
		port = info.Port
		if len(macAddresses) == 0 {
			macAddresses = info.MACAddresses
		}
		slog.With(
			slog.String("host", host),
			slog.Int("port", port),
		).Info("Resolved media server from access key")
	}

	client := mcws.NewMediaServer(mcws.Options{
		Host:     host,
		Port:     port,
		SSL:      cfg.MediaServer.SSL,
		Username: cfg.MediaServer.Username,
		Password: cfg.MediaServer.Password,
		Timeout:  cfg.Timeout(),
	})
	defer client.Close()

	database, err := db.Initialize(cfg.Bridge.DbPath)
	if err != nil {
		slog.With(slog.String("error", err.Error())).Error("Failed to open database")
		os.Exit(1)
	}
	defer database.Close()

	goose.SetBaseFS(migrations.GetMigrations())
	if err := goose.SetDialect("sqlite3"); err != nil {
		panic(err)
	}
	if err := goose.Up(database.DB, "."); err != nil {
		panic(err)
	}

	store := history.NewStore(database)
	stream := events.NewServer()
	defer stream.Close()
	notifier := notify.New(cfg.Pushover.Token, cfg.Pushover.Recipient)
	recorder := history.NewRecorder(store, logger)

	coord := coordinator.New(client,
		coordinator.WithLogger(logger),
		coordinator.WithExtraFields(cfg.ExtraFieldList()),
		coordinator.WithConfiguredPaths(browse.ParsePathsFromText(cfg.BrowsePathList())),
		coordinator.WithOnChange(func(prev, next *coordinator.Snapshot) {
			recorder.OnChange(prev, next)
			if events.Changed(prev, next) {
				stream.PublishSnapshot(next)
			}
		}),
		coordinator.WithOnReauthRequired(func(cause error) {
			notifier.ReauthRequired(host, cause)
		}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := coord.Refresh(ctx); err != nil {
		slog.With(slog.String("error", err.Error())).Warn("Initial poll failed, will keep retrying")
	}
	cancel()

	scheduler, err := SetupInBackground(coord, store)
	if err != nil {
		slog.With(slog.String("error", err.Error())).Error("Failed to set up background jobs")
		os.Exit(1)
	}
	scheduler.Start()

	router := routes.Register(http.NewServeMux(), coord, client, store, stream, macAddresses)

	server := &http.Server{Addr: cfg.Bridge.BindAddress, Handler: router}
	go func() {
		slog.With(slog.String("addr", cfg.Bridge.BindAddress)).Info("jriver-bridge is running")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.With(slog.String("error", err.Error())).Error("Server failed")
			os.Exit(1)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	fmt.Println("Gracefully shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.With(slog.String("error", err.Error())).Error("Failed to shut down cleanly")
	}
	if err := scheduler.Shutdown(); err != nil {
		slog.With(slog.String("error", err.Error())).Error("Failed to stop background jobs")
	}
	fmt.Println("jriver-bridge has successfully shut down.")
}
