package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"meal-prep-planner/internal/app"
	"meal-prep-planner/internal/config"
	"meal-prep-planner/internal/logger"
	"meal-prep-planner/internal/planner"

	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl := logger.New(logger.Config{Level: cfg.LogLevel, Format: "console"})
	defer zl.Sync()

	ctx := context.Background()
	application, err := app.New(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("failed to initialize application", zap.Error(err))
	}
	defer application.Close()

	if err := run(ctx, application, cfg, os.Args[1], os.Args[2:]); err != nil {
		zl.Error("command failed", zap.String("command", os.Args[1]), zap.Error(err))
		application.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, application *app.App, cfg *config.Config, command string, args []string) error {
	switch command {
	case "seed":
		n, err := application.Seed(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Seeded %d recipes.\n", n)

	case "migrate-recipes":
		n, err := application.MigrateRecipes(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Migration complete. Migrated %d new recipes to the database.\n", n)

	case "plan":
		planCmd := flag.NewFlagSet("plan", flag.ExitOnError)
		start := planCmd.String("start", "", "First day of the plan (YYYY-MM-DD), next Monday when empty")
		cuisines := planCmd.String("cuisine", "", "Comma separated cuisine preferences")
		maxPrep := planCmd.Int("max-prep", 0, "Maximum prep plus cook minutes, 0 for no limit")
		planCmd.Parse(args)

		startDate := planner.GetNextMonday(time.Now())
		if *start != "" {
			parsed, err := planner.ParseStartDate(*start)
			if err != nil {
				return err
			}
			startDate = parsed
		}

		req := planner.Request{StartDate: startDate, MaxPrepTime: *maxPrep}
		for _, c := range strings.Split(*cuisines, ",") {
			if c = strings.TrimSpace(c); c != "" {
				req.CuisinePreferences = append(req.CuisinePreferences, c)
			}
		}
		if _, err := application.GenerateMealPlan(ctx, req, os.Stdout); err != nil {
			return err
		}

	case "metrics-cleanup":
		cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cleanupCmd.Int("days", cfg.MetricsRetainDays, "Keep records for the last N days")
		cleanupCmd.Parse(args)

		removed, err := application.CleanupMetrics(ctx, *days)
		if err != nil {
			return err
		}
		fmt.Printf("Successfully removed %d old metric records.\n", removed)

	case "metrics":
		report, err := application.UsageReport(ctx, 7)
		if err != nil {
			return err
		}
		fmt.Println(report)

	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
	return nil
}

func printUsage() {
	fmt.Println("Usage: meal-prep-planner <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  seed               Write the sample recipes into an empty recipe store")
	fmt.Println("  migrate-recipes    Copy recipes from the JSON file into the database")
	fmt.Println("  plan               Print a weekly meal plan and grocery list")
	fmt.Println("                     [-start YYYY-MM-DD] [-cuisine a,b] [-max-prep N]")
	fmt.Println("  metrics-cleanup    Remove old metric records [-days N]")
	fmt.Println("  metrics            Print generator usage for the last 7 days")
}
