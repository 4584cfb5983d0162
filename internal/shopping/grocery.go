// Package shopping aggregates the ingredients of a set of recipes into a grocery list.
package shopping

import (
	"slices"
	"strings"

	"meal-prep-planner/internal/planner"
	"meal-prep-planner/internal/recipe"
)

// Item is one grocery list line.
type Item struct {
	Name      string   `json:"name"`
	Count     int      `json:"count"`
	RecipeIDs []string `json:"recipeIds"`
}

// Build merges ingredients case-insensitively, keeping first-seen order and spelling.
func Build(recipes []recipe.Recipe) []Item {
	items := []Item{}
	index := map[string]int{}

	for _, r := range recipes {
		for _, ingredient := range r.Ingredients {
			name := strings.TrimSpace(ingredient)
			if name == "" {
				continue
			}
			key := strings.ToLower(name)

			i, ok := index[key]
			if !ok {
				index[key] = len(items)
				items = append(items, Item{Name: name, Count: 1, RecipeIDs: []string{r.ID}})
				continue
			}
			items[i].Count++
			if !slices.Contains(items[i].RecipeIDs, r.ID) {
				items[i].RecipeIDs = append(items[i].RecipeIDs, r.ID)
			}
		}
	}
	return items
}

// FromPlan builds the grocery list for every recipe placed in days.
func FromPlan(days []planner.DayPlan) []Item {
	var recipes []recipe.Recipe
	for _, d := range days {
		recipes = append(recipes, d.Recipes()...)
	}
	return Build(recipes)
}
