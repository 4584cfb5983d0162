package planner

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"

	"meal-prep-planner/internal/recipe"
)

var (
	ErrInvalidRequest = errors.New("invalid meal plan request")
	ErrNoAlternative  = errors.New("no alternative recipe available")
)

// Planner builds weekly plans by random selection over the recipe store.
type Planner struct {
	recipes recipe.Store

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPlanner creates a new Planner. rng is owned by the Planner afterwards.
func NewPlanner(recipes recipe.Store, rng *rand.Rand) *Planner {
	return &Planner{recipes: recipes, rng: rng}
}

// Generate builds a PlanDays-long plan starting at req.StartDate.
// When the filters leave nothing, the full collection is used instead.
func (p *Planner) Generate(ctx context.Context, req Request) ([]DayPlan, error) {
	if req.StartDate.IsZero() {
		return nil, fmt.Errorf("%w: start date is required", ErrInvalidRequest)
	}
	if req.MaxPrepTime < 0 {
		return nil, fmt.Errorf("%w: maxPrepTime must not be negative", ErrInvalidRequest)
	}

	all, err := p.recipes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipes for plan: %w", err)
	}

	pool := filterRecipes(all, req.CuisinePreferences, req.MaxPrepTime)
	if len(pool) == 0 {
		pool = all
	}

	breakfasts := recipe.FilterByMealType(pool, recipe.Breakfast)
	lunches := recipe.FilterByMealType(pool, recipe.Lunch)
	dinners := recipe.FilterByMealType(pool, recipe.Dinner)
	snacks := recipe.FilterByMealType(pool, recipe.Snack)

	p.mu.Lock()
	defer p.mu.Unlock()

	plan := make([]DayPlan, 0, PlanDays)
	for i := 0; i < PlanDays; i++ {
		plan = append(plan, DayPlan{
			Date:      req.StartDate.AddDate(0, 0, i).Format(DateLayout),
			Breakfast: p.pickLocked(breakfasts),
			Lunch:     p.pickLocked(lunches),
			Dinner:    p.pickLocked(dinners),
			Snacks:    p.sampleLocked(snacks, MaxSnacks),
		})
	}
	return plan, nil
}

// Swap returns a replacement for one slot of req.Plan. The store is never mutated.
func (p *Planner) Swap(ctx context.Context, req SwapRequest) (recipe.Recipe, error) {
	mealType := recipe.MealType(strings.ToLower(string(req.MealType)))
	if !mealType.Valid() {
		return recipe.Recipe{}, fmt.Errorf("%w: mealType must be one of breakfast, lunch, dinner, snack", ErrInvalidRequest)
	}
	if req.DayIndex < 0 || req.DayIndex >= len(req.Plan) {
		return recipe.Recipe{}, fmt.Errorf("%w: dayIndex %d is outside the plan", ErrInvalidRequest, req.DayIndex)
	}

	if req.RecipeID != "" {
		r, err := p.recipes.Get(ctx, req.RecipeID)
		if err != nil {
			return recipe.Recipe{}, fmt.Errorf("failed to load replacement recipe: %w", err)
		}
		return r, nil
	}

	all, err := p.recipes.List(ctx)
	if err != nil {
		return recipe.Recipe{}, fmt.Errorf("failed to load recipes for swap: %w", err)
	}

	exclude := req.Plan[req.DayIndex].slotIDs(mealType)
	var candidates []recipe.Recipe
	for _, r := range recipe.FilterByMealType(all, mealType) {
		if !slices.Contains(exclude, r.ID) {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return recipe.Recipe{}, ErrNoAlternative
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return *p.pickLocked(candidates), nil
}

// AddToPlan validates the request. Plans live on the client, so nothing is stored.
func (p *Planner) AddToPlan(req AddRequest) error {
	if req.Recipe == nil || req.DayIndex == nil || req.MealType == "" {
		return fmt.Errorf("%w: recipe, dayIndex and mealType are required", ErrInvalidRequest)
	}
	if !recipe.MealType(strings.ToLower(string(req.MealType))).Valid() {
		return fmt.Errorf("%w: mealType must be one of breakfast, lunch, dinner, snack", ErrInvalidRequest)
	}
	if *req.DayIndex < 0 || *req.DayIndex >= PlanDays {
		return fmt.Errorf("%w: dayIndex must be between 0 and %d", ErrInvalidRequest, PlanDays-1)
	}
	return nil
}

func filterRecipes(all []recipe.Recipe, cuisines []string, maxPrepTime int) []recipe.Recipe {
	wanted := make(map[string]struct{}, len(cuisines))
	for _, c := range cuisines {
		wanted[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}

	var out []recipe.Recipe
	for _, r := range all {
		if len(wanted) > 0 {
			if _, ok := wanted[strings.ToLower(r.Cuisine)]; !ok {
				continue
			}
		}
		if maxPrepTime > 0 && r.TotalTime() > maxPrepTime {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (p *Planner) pickLocked(from []recipe.Recipe) *recipe.Recipe {
	if len(from) == 0 {
		return nil
	}
	r := from[p.rng.IntN(len(from))]
	return &r
}

func (p *Planner) sampleLocked(from []recipe.Recipe, n int) []recipe.Recipe {
	n = min(n, len(from))
	out := make([]recipe.Recipe, 0, n)
	for _, i := range p.rng.Perm(len(from))[:n] {
		out = append(out, from[i])
	}
	return out
}
