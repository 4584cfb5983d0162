package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"meal-prep-planner/internal/chat"
	"meal-prep-planner/internal/clipper"
	"meal-prep-planner/internal/config"
	"meal-prep-planner/internal/llm"
	"meal-prep-planner/internal/metrics"
	"meal-prep-planner/internal/planner"
	"meal-prep-planner/internal/recipe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T, store string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		APIPrefix:         "/api",
		RecipeStore:       store,
		RecipeDataPath:    filepath.Join(dir, "recipes.json"),
		DatabasePath:      filepath.Join(dir, "meal_prep.db"),
		JWTSecret:         "test-secret",
		TokenTTL:          time.Hour,
		ChatProvider:      config.ProviderGemini,
		ChatTimeout:       time.Second,
		LLMRequestsPerMin: 15,
		UserStore:         config.UserStoreMemory,
	}
}

func newTestApp(t *testing.T, store string) *App {
	t.Helper()
	a, err := New(context.Background(), testConfig(t, store), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestSeed(t *testing.T) {
	ctx := context.Background()

	for _, store := range []string{config.StoreFile, config.StoreSQLite} {
		t.Run(store, func(t *testing.T) {
			a := newTestApp(t, store)

			n, err := a.Seed(ctx)
			require.NoError(t, err)
			assert.Equal(t, 12, n)

			recipes, err := a.Recipes().List(ctx)
			require.NoError(t, err)
			assert.Len(t, recipes, 12)

			n, err = a.Seed(ctx)
			require.NoError(t, err)
			assert.Zero(t, n, "second seed must not write")
		})
	}
}

func TestMigrateRecipes(t *testing.T) {
	ctx := context.Background()

	t.Run("CopiesFileRecipesOnce", func(t *testing.T) {
		a := newTestApp(t, config.StoreFile)
		_, err := a.Seed(ctx)
		require.NoError(t, err)

		migrated, err := a.MigrateRecipes(ctx)
		require.NoError(t, err)
		assert.Equal(t, 12, migrated)

		fromDB, err := a.recipeRepo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, fromDB, 12)

		fromFile, err := a.fileStore.Get(ctx, fromDB[0].ID)
		require.NoError(t, err)
		assert.Equal(t, fromFile, fromDB[0])

		migrated, err = a.MigrateRecipes(ctx)
		require.NoError(t, err)
		assert.Zero(t, migrated)
	})

	t.Run("MissingFile", func(t *testing.T) {
		a := newTestApp(t, config.StoreFile)
		_, err := a.MigrateRecipes(ctx)
		assert.ErrorContains(t, err, "does not exist")
	})
}

func TestGenerateMealPlan(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, config.StoreFile)
	_, err := a.Seed(ctx)
	require.NoError(t, err)

	var out bytes.Buffer
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	plan, err := a.GenerateMealPlan(ctx, planner.Request{StartDate: start}, &out)
	require.NoError(t, err)
	require.Len(t, plan, planner.PlanDays)

	text := out.String()
	assert.True(t, strings.HasPrefix(text, "=== WEEKLY MEAL PLAN ==="))
	assert.Contains(t, text, "2024-03-04")
	assert.Contains(t, text, "2024-03-10")
	assert.Contains(t, text, "=== SHOPPING LIST ===")
	assert.Contains(t, text, plan[0].Breakfast.Name)
}

func TestMetricsCommands(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, config.StoreFile)

	err := a.MetricsStore().RecordUsage(ctx, "Chat", llm.TokenUsage{PromptTokens: 10, CompletionTokens: 5, Model: "m"}, 20*time.Millisecond)
	require.NoError(t, err)
	err = a.MetricsStore().Record(ctx, metrics.ExecutionMetric{
		AgentName: "Clipper",
		Timestamp: time.Now().UTC().AddDate(0, 0, -60),
	})
	require.NoError(t, err)

	t.Run("UsageReport", func(t *testing.T) {
		report, err := a.UsageReport(ctx, 7)
		require.NoError(t, err)
		assert.Contains(t, report, "15 tokens (1 execs)")
		assert.Contains(t, report, "System Health")
	})

	t.Run("Cleanup", func(t *testing.T) {
		removed, err := a.CleanupMetrics(ctx, 30)
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)

		_, err = a.CleanupMetrics(ctx, 0)
		assert.Error(t, err)
	})
}

func TestFormatUsageReport(t *testing.T) {
	report := FormatUsageReport(nil, metrics.SysHealth{Status: "ok", Goroutines: 3, DataDiskSize: "1.0 KB"})
	assert.Contains(t, report, "_No data yet_")
	assert.Contains(t, report, "• Goroutines: 3")
	assert.Contains(t, report, "• Disk Data: 1.0 KB")
}

func TestGeneratorOptions(t *testing.T) {
	t.Run("Gemini", func(t *testing.T) {
		cfg := testConfig(t, config.StoreFile)
		cfg.GeminiModel = "gemini-2.0-flash"
		a := &App{cfg: cfg}

		chatOpts, clipOpts := a.generatorOptions()
		assert.Equal(t, chat.SystemPrompt, chatOpts.SystemInstruction)
		assert.Equal(t, clipper.SystemPrompt, clipOpts.SystemInstruction)
		assert.NotEmpty(t, chatOpts.SystemInstruction)
		assert.NotEmpty(t, clipOpts.SystemInstruction)
		assert.Equal(t, "gemini-2.0-flash", chatOpts.Model)
		assert.Equal(t, "gemini-2.0-flash", clipOpts.Model)
		assert.True(t, clipOpts.JSONOutput)
		assert.False(t, chatOpts.JSONOutput)
	})

	t.Run("Groq", func(t *testing.T) {
		cfg := testConfig(t, config.StoreFile)
		cfg.ChatProvider = config.ProviderGroq
		cfg.GroqModel = "llama-3.3-70b-versatile"
		a := &App{cfg: cfg}

		chatOpts, clipOpts := a.generatorOptions()
		assert.Equal(t, "llama-3.3-70b-versatile", chatOpts.Model)
		assert.Equal(t, "llama-3.3-70b-versatile", clipOpts.Model)
		assert.Equal(t, chat.SystemPrompt, chatOpts.SystemInstruction)
	})
}

func TestRouterWiring(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, config.StoreSQLite)
	_, err := a.Seed(ctx)
	require.NoError(t, err)

	router := a.Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/recipes?mealType=snack", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"mealType":"snack"`)
	assert.NotContains(t, w.Body.String(), `"mealType":"dinner"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	assert.False(t, a.Clipper().Enabled())
	reply, err := a.Chat().Respond(ctx, "any recipe ideas?", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, reply.Message)
	assert.LessOrEqual(t, len(reply.SuggestedRecipes), 2)
	for _, r := range reply.SuggestedRecipes {
		assert.NotEqual(t, recipe.Recipe{}, r)
	}
}
