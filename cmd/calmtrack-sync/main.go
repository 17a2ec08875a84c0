package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/claude/calmtrack/internal/app"
	"github.com/claude/calmtrack/internal/config"
	"github.com/claude/calmtrack/internal/insights"
)

// Version is set at build time via -ldflags.
var Version = "dev"

type summary struct {
	mu      sync.Mutex
	logins  int
	synced  int
	failed  int
	days    int
	genuine int
}

func (s *summary) record(res *insights.SyncResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.failed++
		return
	}
	s.synced++
	s.days += res.ProcessedRecords
	s.genuine += res.RealDataDays
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	login := flag.String("login", "", "sync only this login")
	dryRun := flag.Bool("dry-run", false, "list the logins that would be synced and exit")
	workers := flag.Int("workers", 2, "logins synced concurrently")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("calmtrack-sync", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	logins, err := selectLogins(ctx, a, *login)
	if err != nil {
		log.Error("listing connected logins", "error", err)
		os.Exit(1)
	}
	if len(logins) == 0 {
		log.Info("no connected logins, nothing to sync")
		return
	}

	if *dryRun {
		log.Info("DRY RUN mode: no data will be fetched or stored")
		for _, l := range logins {
			fmt.Println(l)
		}
		return
	}

	sum := &summary{logins: len(logins)}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, *workers))
	for _, l := range logins {
		g.Go(func() error {
			res, err := a.Insights.Sync(gctx, l, l)
			sum.record(res, err)
			if err != nil {
				log.Error("sync failed", "login", l, "error", err)
				return nil
			}
			log.Info("synced", "login", l, "days", res.ProcessedRecords, "real_days", res.RealDataDays, "fallbacks", res.Fallbacks)
			return nil
		})
	}
	_ = g.Wait()

	printSummary(sum)
	if sum.failed > 0 {
		os.Exit(1)
	}
}

// selectLogins returns only, or every login with a stored token.
func selectLogins(ctx context.Context, a *app.App, only string) ([]string, error) {
	if only != "" {
		return []string{only}, nil
	}
	records, err := a.Tokens.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, r := range records {
		if r.Connected {
			out = append(out, r.Login)
		}
	}
	return out, nil
}

func printSummary(s *summary) {
	fmt.Println()
	fmt.Println("=== Sync Summary ===")
	fmt.Printf("  Logins:        %d\n", s.logins)
	fmt.Printf("  Synced:        %d\n", s.synced)
	fmt.Printf("  Failed:        %d\n", s.failed)
	fmt.Printf("  Days:          %d\n", s.days)
	fmt.Printf("  Real days:     %d\n", s.genuine)
	fmt.Println()
}
