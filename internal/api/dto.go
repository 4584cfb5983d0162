package api

import (
	"meal-prep-planner/internal/chat"
	"meal-prep-planner/internal/planner"
	"meal-prep-planner/internal/recipe"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type chatRequest struct {
	Message string         `json:"message"`
	ChatID  string         `json:"chatId"`
	History []chat.Message `json:"history"`
}

type importRequest struct {
	URL string `json:"url" binding:"required"`
}

type generatePlanRequest struct {
	StartDate          string   `json:"startDate" binding:"required"`
	CuisinePreferences []string `json:"cuisinePreferences"`
	MaxPrepTime        int      `json:"maxPrepTime" binding:"gte=0"`
	SeasonalOnly       bool     `json:"seasonalOnly"`
}

type swapMealRequest struct {
	DayIndex    *int              `json:"dayIndex" binding:"required"`
	MealType    recipe.MealType   `json:"mealType" binding:"required"`
	CurrentPlan []planner.DayPlan `json:"currentPlan" binding:"required"`
	RecipeID    string            `json:"recipeId"`
}

type addRecipeRequest struct {
	Recipe   *recipe.Recipe  `json:"recipe" binding:"required"`
	DayIndex *int            `json:"dayIndex" binding:"required"`
	MealType recipe.MealType `json:"mealType" binding:"required"`
}

type groceryPlanRequest struct {
	Plan []planner.DayPlan `json:"plan" binding:"required"`
}

type messageResponse struct {
	Message string `json:"message"`
}
