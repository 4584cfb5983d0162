package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"meal-prep-planner/internal/config"
	"meal-prep-planner/internal/metrics"
	"meal-prep-planner/internal/planner"
	"meal-prep-planner/internal/recipe"
	"meal-prep-planner/internal/shopping"

	"go.uber.org/zap"
)

// Seed writes the bundled sample recipes into the active store when it is empty.
// It reports how many recipes were written.
func (a *App) Seed(ctx context.Context) (int, error) {
	samples, err := recipe.SampleRecipes()
	if err != nil {
		return 0, fmt.Errorf("failed to load sample recipes: %w", err)
	}

	if a.cfg.RecipeStore != config.StoreSQLite {
		written, err := a.fileStore.Seed(samples)
		if err != nil {
			return 0, fmt.Errorf("failed to seed %s: %w", a.fileStore.Path(), err)
		}
		if !written {
			a.logger.Info("recipe file already exists, skipping seed", zap.String("path", a.fileStore.Path()))
			return 0, nil
		}
		a.logger.Info("seeded recipe file", zap.String("path", a.fileStore.Path()), zap.Int("count", len(samples)))
		return len(samples), nil
	}

	n, err := a.recipeRepo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		a.logger.Info("recipe table not empty, skipping seed", zap.Int("count", n))
		return 0, nil
	}
	for _, r := range samples {
		if err := a.recipeRepo.Save(ctx, r); err != nil {
			return 0, fmt.Errorf("failed to seed recipe %s: %w", r.ID, err)
		}
	}
	a.logger.Info("seeded recipe table", zap.Int("count", len(samples)))
	return len(samples), nil
}

// MigrateRecipes copies recipes from the JSON file into SQLite, keeping ids.
// Recipes already in the database are left untouched.
func (a *App) MigrateRecipes(ctx context.Context) (int, error) {
	if !a.fileStore.Exists() {
		return 0, fmt.Errorf("recipe file %s does not exist", a.fileStore.Path())
	}

	existing, err := a.recipeRepo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list existing recipes in DB: %w", err)
	}
	inDB := make(map[string]bool, len(existing))
	for _, r := range existing {
		inDB[r.ID] = true
	}

	fileRecipes, err := a.fileStore.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list recipes from file storage: %w", err)
	}
	a.logger.Info("starting recipe migration",
		zap.Int("file_recipes", len(fileRecipes)),
		zap.Int("db_recipes", len(existing)),
	)

	migrated := 0
	for _, r := range fileRecipes {
		if inDB[r.ID] {
			a.logger.Debug("recipe already in DB, skipping", zap.String("id", r.ID), zap.String("name", r.Name))
			continue
		}
		if err := a.recipeRepo.Save(ctx, r); err != nil {
			return migrated, fmt.Errorf("failed to migrate recipe %s: %w", r.ID, err)
		}
		migrated++
	}
	a.logger.Info("recipe migration complete", zap.Int("migrated", migrated))
	return migrated, nil
}

// GenerateMealPlan generates a plan and prints it with its grocery list to w.
func (a *App) GenerateMealPlan(ctx context.Context, req planner.Request, w io.Writer) ([]planner.DayPlan, error) {
	plan, err := a.mealPlanner.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to generate plan: %w", err)
	}
	a.collector.PlanGenerated()

	fmt.Fprintln(w, "=== WEEKLY MEAL PLAN ===")
	for _, day := range plan {
		fmt.Fprintf(w, "%s\n", day.Date)
		printSlot(w, "Breakfast", day.Breakfast)
		printSlot(w, "Lunch", day.Lunch)
		printSlot(w, "Dinner", day.Dinner)
		for i := range day.Snacks {
			printSlot(w, "Snack", &day.Snacks[i])
		}
	}

	fmt.Fprintln(w, "\n=== SHOPPING LIST ===")
	for _, item := range shopping.FromPlan(plan) {
		if item.Count > 1 {
			fmt.Fprintf(w, "- %s (x%d)\n", item.Name, item.Count)
			continue
		}
		fmt.Fprintf(w, "- %s\n", item.Name)
	}
	return plan, nil
}

func printSlot(w io.Writer, label string, r *recipe.Recipe) {
	if r == nil {
		fmt.Fprintf(w, "  %-10s -\n", label+":")
		return
	}
	fmt.Fprintf(w, "  %-10s %s (%d min)\n", label+":", r.Name, r.TotalTime())
}

// CleanupMetrics deletes execution metrics older than days.
func (a *App) CleanupMetrics(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, fmt.Errorf("days must be positive, got %d", days)
	}
	removed, err := a.metricsStore.Cleanup(ctx, days)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up metrics: %w", err)
	}
	a.logger.Info("removed old metric records", zap.Int64("removed", removed), zap.Int("retain_days", days))
	return removed, nil
}

// UsageReport summarises generator token usage for the last days plus process health.
func (a *App) UsageReport(ctx context.Context, days int) (string, error) {
	usage, err := a.metricsStore.GetDailyUsage(ctx, days)
	if err != nil {
		return "", fmt.Errorf("failed to fetch usage: %w", err)
	}
	return FormatUsageReport(usage, metrics.GetSysHealth(a.dataPath())), nil
}

// FormatUsageReport renders daily usage and health as Telegram markdown.
func FormatUsageReport(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		fmt.Fprintf(&sb, "• *%s*: %d tokens (%d execs)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution)
	}

	sb.WriteString("\n🧠 *System Health*\n")
	fmt.Fprintf(&sb, "• Status: %s\n", health.Status)
	fmt.Fprintf(&sb, "• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB)
	fmt.Fprintf(&sb, "• Goroutines: %d\n", health.Goroutines)
	fmt.Fprintf(&sb, "• Disk Data: %s\n", health.DataDiskSize)
	return sb.String()
}
