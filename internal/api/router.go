// Package api exposes the meal prep components over HTTP.
package api

import (
	"meal-prep-planner/internal/auth"
	"meal-prep-planner/internal/chat"
	"meal-prep-planner/internal/clipper"
	"meal-prep-planner/internal/metrics"
	"meal-prep-planner/internal/planner"
	"meal-prep-planner/internal/recipe"
	"meal-prep-planner/internal/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const DefaultPrefix = "/api"

// Deps are the components served by the router.
type Deps struct {
	Recipes   recipe.Store
	Users     *user.Directory
	Tokens    *auth.TokenIssuer
	Planner   *planner.Planner
	Chat      *chat.Responder
	Clipper   *clipper.Clipper
	Collector *metrics.Collector
	Logger    *zap.Logger

	// Prefix mounts the API routes, DefaultPrefix when empty.
	Prefix      string
	CORSOrigins []string
	// DataPath is reported by /health.
	DataPath string
}

// Handler serves the API routes.
type Handler struct {
	recipes   recipe.Store
	users     *user.Directory
	planner   *planner.Planner
	chat      *chat.Responder
	clipper   *clipper.Clipper
	collector *metrics.Collector
	logger    *zap.Logger
	dataPath  string
}

// NewRouter builds the gin engine with middleware, API routes and operational endpoints.
func NewRouter(deps Deps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	collector := deps.Collector
	if collector == nil {
		collector = metrics.NewCollector()
	}
	prefix := deps.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	h := &Handler{
		recipes:   deps.Recipes,
		users:     deps.Users,
		planner:   deps.Planner,
		chat:      deps.Chat,
		clipper:   deps.Clipper,
		collector: collector,
		logger:    logger,
		dataPath:  deps.DataPath,
	}

	r := gin.New()
	r.Use(Recovery(logger), RequestLogger(logger), CORS(deps.CORSOrigins), collector.GinMiddleware())

	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(collector.Handler()))

	api := r.Group(prefix)
	api.POST("/login", h.login)
	api.POST("/signup", h.signup)

	api.GET("/chat", h.chatQuery)
	api.POST("/chat", h.chatMessage)

	api.GET("/recipes", h.listRecipes)
	api.GET("/recipes/:id", h.getRecipe)
	api.POST("/recipes", h.createRecipe)
	api.PUT("/recipes/:id", h.updateRecipe)
	api.DELETE("/recipes/:id", h.deleteRecipe)

	private := api.Group("", auth.RequireAuth(deps.Tokens))
	private.GET("/user/profile", h.getProfile)
	private.PUT("/user/profile", h.updateProfile)
	private.POST("/recipes/import", h.importRecipe)
	private.GET("/grocery-list", h.groceryForRecipes)
	private.POST("/grocery-list", h.groceryForPlan)
	private.POST("/meal-plan/generate", h.generatePlan)
	private.POST("/meal-plan/swap", h.swapMeal)
	private.POST("/meal-plan/add-recipe", h.addToPlan)

	return r
}
