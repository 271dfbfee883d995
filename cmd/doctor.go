package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"runtime"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/musebot/internal/config"
	"github.com/nextlevelbuilder/musebot/internal/features"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check system environment and configuration health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("musebot doctor")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND, using defaults)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}

	fmt.Println()
	fmt.Println("  Feature API:")
	if cfg.Features.APIKey == "" {
		fmt.Println("    Key:      MISSING (set MUSEBOT_DEEPAI_KEY)")
	} else {
		fmt.Println("    Key:      configured")
		client := features.NewClient(cfg.Features.APIKey, cfg.Features.APIBase)
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if pingErr := client.Ping(ctx); pingErr != nil {
			fmt.Printf("    Reach:    FAILED (%s)\n", pingErr)
		} else {
			fmt.Println("    Reach:    OK")
		}
		cancel()
	}

	fmt.Println()
	fmt.Println("  Database:")
	if cfg.Database.PostgresDSN != "" {
		db, dbErr := sql.Open("pgx", cfg.Database.PostgresDSN)
		if dbErr != nil {
			fmt.Printf("    Postgres: OPEN FAILED (%s)\n", dbErr)
		} else if pingErr := db.Ping(); pingErr != nil {
			fmt.Printf("    Postgres: CONNECT FAILED (%s)\n", pingErr)
			db.Close()
		} else {
			fmt.Println("    Postgres: OK")
			db.Close()
		}
	} else {
		fmt.Printf("    SQLite:   %s\n", cfg.Database.SQLitePath)
	}

	fmt.Println()
	fmt.Println("  Channels:")
	checkChannel("Telegram", cfg.Telegram.Enabled, cfg.Telegram.Token != "")
	checkChannel("Discord", cfg.Discord.Enabled, cfg.Discord.Token != "")

	fmt.Println()
	fmt.Println("  Dispatch:")
	fmt.Printf("    Limiter:  %d requests per %s\n", cfg.Dispatch.LimiterCapacity, cfg.Dispatch.LimiterWindow())
	fmt.Printf("    Cache:    TTL %s, %d entries per user\n", cfg.Dispatch.CacheTTL(), cfg.Dispatch.CacheMaxEntries)
	fmt.Printf("    Drain:    every %s, budget %d\n", cfg.Dispatch.DrainInterval(), cfg.Dispatch.DrainBudget)
}

func checkChannel(name string, enabled, hasToken bool) {
	switch {
	case !enabled:
		fmt.Printf("    %-9s disabled\n", name+":")
	case !hasToken:
		fmt.Printf("    %-9s enabled, NO TOKEN\n", name+":")
	default:
		fmt.Printf("    %-9s ready\n", name+":")
	}
}
