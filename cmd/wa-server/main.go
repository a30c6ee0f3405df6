package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"
	"wabrowser/lib/browser"
	"wabrowser/lib/configutil"
	"wabrowser/lib/scrapers/whatsapp"
	"wabrowser/lib/serviceutil"
	"wabrowser/lib/sqliteutil"
	"wabrowser/lib/telemetry"
	"wabrowser/services/gateway"
	"wabrowser/services/history"
	historydb "wabrowser/services/history/db"
	"wabrowser/services/watcher"
)

type Config struct {
	Port int `json:"port"`
	// browser profile directory, the WhatsApp login lives here
	UserDataDir string `json:"user_data_dir"`
	Headless    bool   `json:"headless"`
	// optional path to the chrome binary
	ChromePath string `json:"chrome_path"`
	HistoryDb  string `json:"history_db"`
	// seconds between chat list polls
	WatchInterval int  `json:"watch_interval"`
	Verbose       bool `json:"verbose"`
	// minutes to wait for the QR scan on a fresh profile
	LoginTimeout int `json:"login_timeout"`
}

func main() {
	ctx := serviceutil.SignalContext()

	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	if config.Port == 0 {
		config.Port = 8080
	}
	if config.UserDataDir == "" {
		config.UserDataDir = "user_data"
	}
	if config.HistoryDb == "" {
		config.HistoryDb = "history.db"
	}
	if config.LoginTimeout == 0 {
		config.LoginTimeout = 5
	}

	telemetry.InitSlog(config.Verbose)
	err = telemetry.SetupFromEnv(ctx, "wa-server")
	if err != nil && !os.IsNotExist(err) {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer telemetry.Shutdown(context.Background())
	telemetry.InstrumentPerfStats(ctx)

	session, err := browser.Launch(ctx, browser.Options{
		UserDataDir: config.UserDataDir,
		Headless:    config.Headless,
		ExecPath:    config.ChromePath,
	})
	if err != nil {
		serviceutil.Fatal("failed to launch browser", err)
	}
	defer session.Close()

	wa := whatsapp.NewClient(session, whatsapp.ClientOptions{})

	loginCtx, cancelLogin := context.WithTimeout(ctx, time.Duration(config.LoginTimeout)*time.Minute)
	err = wa.Login(loginCtx)
	cancelLogin()
	if err != nil {
		serviceutil.Fatal("failed to log into whatsapp web", err)
	}

	db, err := sqliteutil.OpenDB(historydb.Schema, config.HistoryDb)
	if err != nil {
		serviceutil.Fatal("failed to open history database", err)
	}
	defer db.Close()
	archive := history.NewService(db)

	seenStore, err := watcher.OpenSeenStore(
		filepath.Join(filepath.Dir(config.UserDataDir), "watcher_seen"),
	)
	if err != nil {
		serviceutil.Fatal("failed to open watcher store", err)
	}
	defer seenStore.Close()

	watch := watcher.NewService(wa, wa, seenStore, watcher.Options{
		Interval: time.Duration(config.WatchInterval) * time.Second,
	})
	go watch.Run(ctx)

	svc := gateway.NewService(wa, &archive, watch)
	go serviceutil.StartHttpServer(config.Port, svc.Router())

	<-ctx.Done()
	slog.Info("shutting down")
}
