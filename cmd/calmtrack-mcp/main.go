package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"github.com/claude/calmtrack/internal/app"
	"github.com/claude/calmtrack/internal/config"
	"github.com/claude/calmtrack/internal/mcp"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (local mode)")
	serverURL := flag.String("server", "", "CalmTrack server URL for remote mode (e.g. https://calmtrack.tail1234.ts.net)")
	login := flag.String("login", mcp.DefaultLogin, "login to analyze in local mode")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("calmtrack-mcp", Version)
		return
	}

	// stdout carries the protocol.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var ds mcp.DataSource
	if *serverURL != "" {
		ds = mcp.NewHTTPClient(*serverURL)
		log.Info("MCP remote mode", "server", *serverURL)
	} else {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			log.Warn("failed to load .env", "error", err)
		}
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		a, err := app.Build(context.Background(), cfg, log)
		if err != nil {
			log.Error("startup failed", "error", err)
			os.Exit(1)
		}
		defer a.Close()
		ds = a.Insights
		log.Info("MCP local mode", "login", *login)
	}

	s := mcp.New(ds, Version, log)
	err := server.ServeStdio(s, server.WithStdioContextFunc(func(ctx context.Context) context.Context {
		return mcp.WithLogin(ctx, *login)
	}))
	if err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
