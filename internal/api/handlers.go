package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"meal-prep-planner/internal/auth"
	"meal-prep-planner/internal/metrics"
	"meal-prep-planner/internal/planner"
	"meal-prep-planner/internal/recipe"
	"meal-prep-planner/internal/shopping"
	"meal-prep-planner/internal/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) health(c *gin.Context) {
	status := metrics.GetSysHealth(h.dataPath)
	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.abort(c, bindError(err))
		return
	}

	session, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.collector.AuthAttempt("login", "failure")
		h.fail(c, err, "Login failed")
		return
	}
	h.collector.AuthAttempt("login", "success")
	c.JSON(http.StatusOK, session)
}

func (h *Handler) signup(c *gin.Context) {
	var req signupRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.abort(c, bindError(err))
		return
	}

	session, err := h.users.Signup(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.collector.AuthAttempt("signup", "failure")
		h.fail(c, err, "Signup failed")
		return
	}
	h.collector.AuthAttempt("signup", "success")
	c.JSON(http.StatusCreated, session)
}

func (h *Handler) getProfile(c *gin.Context) {
	email, _ := auth.Subject(c)
	profile, err := h.users.Profile(c.Request.Context(), email)
	if err != nil {
		h.fail(c, err, "Failed to retrieve profile")
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *Handler) updateProfile(c *gin.Context) {
	var patch user.ProfilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		h.abort(c, bindError(err))
		return
	}

	email, _ := auth.Subject(c)
	profile, err := h.users.UpdateProfile(c.Request.Context(), email, patch)
	if err != nil {
		h.fail(c, err, "Failed to update profile")
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *Handler) chatQuery(c *gin.Context) {
	h.respondChat(c, chatRequest{Message: c.Query("message"), ChatID: c.Query("chatId")})
}

func (h *Handler) chatMessage(c *gin.Context) {
	var req chatRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.abort(c, bindError(err))
		return
	}
	h.respondChat(c, req)
}

func (h *Handler) respondChat(c *gin.Context, req chatRequest) {
	reply, err := h.chat.Respond(c.Request.Context(), req.Message, req.History)
	if err != nil {
		h.fail(c, err, "I'm sorry, I encountered an error while processing your request. Please try again later.")
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (h *Handler) listRecipes(c *gin.Context) {
	recipes, err := h.recipes.List(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to retrieve recipes")
		return
	}
	if mt := c.Query("mealType"); mt != "" {
		recipes = recipe.FilterByMealType(recipes, recipe.MealType(strings.ToLower(mt)))
	}
	c.JSON(http.StatusOK, recipes)
}

func (h *Handler) getRecipe(c *gin.Context) {
	r, err := h.recipes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to retrieve recipe")
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *Handler) createRecipe(c *gin.Context) {
	var fields recipe.Fields
	if err := c.ShouldBindJSON(&fields); err != nil {
		h.abort(c, bindError(err))
		return
	}

	created, err := h.recipes.Create(c.Request.Context(), fields)
	if err != nil {
		h.fail(c, err, "Failed to create recipe")
		return
	}
	h.collector.RecipeMutated("create")
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) updateRecipe(c *gin.Context) {
	var fields recipe.Fields
	if err := c.ShouldBindJSON(&fields); err != nil {
		h.abort(c, bindError(err))
		return
	}

	updated, err := h.recipes.Update(c.Request.Context(), c.Param("id"), fields)
	if err != nil {
		h.fail(c, err, "Failed to update recipe")
		return
	}
	h.collector.RecipeMutated("update")
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) deleteRecipe(c *gin.Context) {
	if err := h.recipes.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err, "Failed to delete recipe")
		return
	}
	h.collector.RecipeMutated("delete")
	c.JSON(http.StatusOK, messageResponse{Message: "Recipe deleted successfully"})
}

func (h *Handler) importRecipe(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.abort(c, bindError(err))
		return
	}

	created, err := h.clipper.ClipURL(c.Request.Context(), req.URL)
	if err != nil {
		h.fail(c, err, "Failed to import recipe")
		return
	}
	h.collector.RecipeMutated("import")
	c.JSON(http.StatusCreated, created)
}

// groceryForRecipes aggregates the recipes named in recipeIds, or every stored recipe.
func (h *Handler) groceryForRecipes(c *gin.Context) {
	ctx := c.Request.Context()

	var recipes []recipe.Recipe
	ids := splitIDs(c.Query("recipeIds"))
	if len(ids) == 0 {
		all, err := h.recipes.List(ctx)
		if err != nil {
			h.fail(c, err, "Failed to build grocery list")
			return
		}
		recipes = all
	}
	for _, id := range ids {
		r, err := h.recipes.Get(ctx, id)
		if err != nil {
			h.fail(c, err, "Failed to build grocery list")
			return
		}
		recipes = append(recipes, r)
	}
	c.JSON(http.StatusOK, shopping.Build(recipes))
}

func (h *Handler) groceryForPlan(c *gin.Context) {
	var req groceryPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.abort(c, bindError(err))
		return
	}
	c.JSON(http.StatusOK, shopping.FromPlan(req.Plan))
}

func (h *Handler) generatePlan(c *gin.Context) {
	var req generatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.abort(c, bindError(err))
		return
	}

	start, err := planner.ParseStartDate(req.StartDate)
	if err != nil {
		h.fail(c, err, "Failed to generate meal plan")
		return
	}

	plan, err := h.planner.Generate(c.Request.Context(), planner.Request{
		StartDate:          start,
		CuisinePreferences: req.CuisinePreferences,
		MaxPrepTime:        req.MaxPrepTime,
		SeasonalOnly:       req.SeasonalOnly,
	})
	if err != nil {
		h.fail(c, err, "Failed to generate meal plan")
		return
	}

	email, _ := auth.Subject(c)
	h.logger.Info("Generated meal plan", zap.String("user", email), zap.String("start", plan[0].Date))
	h.collector.PlanGenerated()
	c.JSON(http.StatusOK, plan)
}

func (h *Handler) swapMeal(c *gin.Context) {
	var req swapMealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.abort(c, bindError(err))
		return
	}

	replacement, err := h.planner.Swap(c.Request.Context(), planner.SwapRequest{
		Plan:     req.CurrentPlan,
		DayIndex: *req.DayIndex,
		MealType: req.MealType,
		RecipeID: req.RecipeID,
	})
	if err != nil {
		h.collector.MealSwapped(mealLabel(req.MealType), "failed")
		h.fail(c, err, "Failed to swap meal")
		return
	}
	h.collector.MealSwapped(mealLabel(req.MealType), "swapped")
	c.JSON(http.StatusOK, replacement)
}

func (h *Handler) addToPlan(c *gin.Context) {
	var req addRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.abort(c, bindError(err))
		return
	}

	err := h.planner.AddToPlan(planner.AddRequest{
		Recipe:   req.Recipe,
		DayIndex: req.DayIndex,
		MealType: req.MealType,
	})
	if err != nil {
		h.fail(c, err, "Failed to add recipe to meal plan")
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "Recipe added to meal plan"})
}

// bindOptionalJSON binds the body when present, leaving missing fields to the component's own checks.
func bindOptionalJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// mealLabel bounds the metric label to known meal types.
func mealLabel(m recipe.MealType) string {
	m = recipe.MealType(strings.ToLower(string(m)))
	if !m.Valid() {
		return "unknown"
	}
	return string(m)
}

func splitIDs(raw string) []string {
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
