package main

import (
	"embed"
	"fmt"
	"log/slog"
	"os"

	"github.com/wailsapp/wails/v2"
	wailslogger "github.com/wailsapp/wails/v2/pkg/logger"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"github.com/chazu/burl/pkg/config"
	"github.com/chazu/burl/pkg/kernel/backend"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, "burl:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(logger)

	k, err := backend.New(cfg.Kernel, logger)
	if err != nil {
		logger.Error("kernel", "err", err)
		os.Exit(1)
	}

	app := NewApp(cfg, k, logger)

	err = wails.Run(&options.App{
		Title:       "burl",
		Width:       cfg.Window.Width,
		Height:      cfg.Window.Height,
		AssetServer: &assetserver.Options{Assets: assets},
		OnStartup:   app.startup,
		OnShutdown:  app.shutdown,
		Bind:        []interface{}{app},
		Logger:      wailslogger.NewDefaultLogger(),
		LogLevel:    wailsLevel(cfg.Log.SlogLevel()),
	})
	if err != nil {
		logger.Error("wails", "err", err)
		os.Exit(1)
	}
}

// wailsLevel maps a slog level onto the Wails runtime logger.
func wailsLevel(l slog.Level) wailslogger.LogLevel {
	switch {
	case l <= slog.LevelDebug:
		return wailslogger.DEBUG
	case l <= slog.LevelInfo:
		return wailslogger.INFO
	case l <= slog.LevelWarn:
		return wailslogger.WARNING
	default:
		return wailslogger.ERROR
	}
}
