// Package app wires configuration, storage, generators and services together
// and implements the batch commands shared by the binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"meal-prep-planner/internal/api"
	"meal-prep-planner/internal/auth"
	"meal-prep-planner/internal/chat"
	"meal-prep-planner/internal/clipper"
	"meal-prep-planner/internal/config"
	"meal-prep-planner/internal/database"
	"meal-prep-planner/internal/llm"
	"meal-prep-planner/internal/metrics"
	"meal-prep-planner/internal/planner"
	"meal-prep-planner/internal/recipe"
	"meal-prep-planner/internal/storage"
	"meal-prep-planner/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	chatTemperature    = 0.7
	chatMaxTokens      = 1000
	clipperTemperature = 0.1
)

// App holds the application's dependencies.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	db           *database.DB
	fileStore    *storage.RecipeStore
	recipeRepo   *recipe.Repository
	recipes      recipe.Store
	redis        *redis.Client
	users        *user.Directory
	tokens       *auth.TokenIssuer
	metricsStore *metrics.Store
	collector    *metrics.Collector

	mealPlanner   *planner.Planner
	chat          *chat.Responder
	recipeClipper *clipper.Clipper
	closers       []llm.Closer
}

// New builds the application from cfg. Close releases what it opened.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		cfg:       cfg,
		logger:    logger,
		collector: metrics.NewCollector(),
	}

	db, err := database.NewDB(cfg.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.db = db
	a.metricsStore = metrics.NewStore(db.SQL)
	a.recipeRepo = recipe.NewRepository(db.SQL)

	fileStore, err := storage.NewRecipeStore(cfg.RecipeDataPath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize recipe store: %w", err)
	}
	a.fileStore = fileStore

	switch cfg.RecipeStore {
	case config.StoreSQLite:
		a.recipes = a.recipeRepo
	default:
		a.recipes = fileStore
	}

	var userStore user.Store = user.NewMemoryStore()
	if cfg.UserStore == config.UserStoreRedis {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		userStore = user.NewRedisStore(a.redis)
	}
	a.tokens = auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	a.users = user.NewDirectory(userStore, a.tokens, logger.Named("user"))

	seed := uint64(time.Now().UnixNano())
	a.mealPlanner = planner.NewPlanner(a.recipes, rand.New(rand.NewPCG(seed, seed>>1)))

	chatGen, clipGen, err := a.newGenerators(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.chat = chat.NewResponder(chat.Options{
		Generator: chatGen,
		Recipes:   a.recipes,
		Rand:      rand.New(rand.NewPCG(seed>>2, seed>>3)),
		Timeout:   cfg.ChatTimeout,
		Usage:     a.metricsStore,
		Observer:  a.collector,
		Logger:    logger.Named("chat"),
	})
	a.recipeClipper = clipper.NewClipper(a.recipes, clipGen, a.metricsStore, logger.Named("clipper"))

	logger.Info("application initialized",
		zap.String("recipe_store", cfg.RecipeStore),
		zap.String("user_store", cfg.UserStore),
		zap.Bool("chat_enabled", chatGen != nil),
	)
	return a, nil
}

// newGenerators builds the chat and extraction generators for the configured
// provider. Both are nil when no API key is set. They share one rate budget.
func (a *App) newGenerators(ctx context.Context) (llm.TextGenerator, llm.TextGenerator, error) {
	if !a.cfg.ChatEnabled() {
		return nil, nil, nil
	}

	chatOpts, clipOpts := a.generatorOptions()

	var chatGen, clipGen llm.TextGenerator
	switch a.cfg.ChatProvider {
	case config.ProviderGroq:
		chatGen = llm.NewGroqClient(a.cfg.GroqAPIKey, chatOpts)
		clipGen = llm.NewGroqClient(a.cfg.GroqAPIKey, clipOpts)
	default:
		gemini, err := llm.NewGeminiClient(ctx, a.cfg.GeminiAPIKey, chatOpts)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
		}
		extractor, err := llm.NewGeminiClient(ctx, a.cfg.GeminiAPIKey, clipOpts)
		if err != nil {
			gemini.Close()
			return nil, nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
		}
		chatGen, clipGen = gemini, extractor
	}

	limited := llm.NewRateLimited(chatGen, a.cfg.LLMRequestsPerMin)
	shared := limited.Share(clipGen)
	a.closers = append(a.closers, limited, shared)
	return limited, shared, nil
}

// generatorOptions returns the chat and extraction settings for the configured provider.
func (a *App) generatorOptions() (llm.Options, llm.Options) {
	chatOpts := llm.Options{
		SystemInstruction: chat.SystemPrompt,
		Temperature:       chatTemperature,
		MaxOutputTokens:   chatMaxTokens,
	}
	clipOpts := llm.Options{
		SystemInstruction: clipper.SystemPrompt,
		Temperature:       clipperTemperature,
		JSONOutput:        true,
	}
	model := a.cfg.GeminiModel
	if a.cfg.ChatProvider == config.ProviderGroq {
		model = a.cfg.GroqModel
	}
	chatOpts.Model, clipOpts.Model = model, model
	return chatOpts, clipOpts
}

// Router returns the HTTP API.
func (a *App) Router() *gin.Engine {
	return api.NewRouter(api.Deps{
		Recipes:     a.recipes,
		Users:       a.users,
		Tokens:      a.tokens,
		Planner:     a.mealPlanner,
		Chat:        a.chat,
		Clipper:     a.recipeClipper,
		Collector:   a.collector,
		Logger:      a.logger.Named("api"),
		Prefix:      a.cfg.APIPrefix,
		CORSOrigins: a.cfg.CORSOrigins,
		DataPath:    a.dataPath(),
	})
}

// dataPath is the file backing the active recipe store.
func (a *App) dataPath() string {
	if a.cfg.RecipeStore == config.StoreSQLite {
		return a.cfg.DatabasePath
	}
	return a.cfg.RecipeDataPath
}

func (a *App) Recipes() recipe.Store         { return a.recipes }
func (a *App) Planner() *planner.Planner     { return a.mealPlanner }
func (a *App) Chat() *chat.Responder         { return a.chat }
func (a *App) Clipper() *clipper.Clipper     { return a.recipeClipper }
func (a *App) MetricsStore() *metrics.Store  { return a.metricsStore }
func (a *App) Collector() *metrics.Collector { return a.collector }

// Close releases generators, the redis client and the database.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, err)
		}
		a.redis = nil
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, err)
		}
		a.db = nil
	}
	return errors.Join(errs...)
}
