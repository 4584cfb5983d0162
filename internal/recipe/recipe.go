package recipe

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound           = errors.New("recipe not found")
	ErrInvalid            = errors.New("invalid recipe")
	ErrStorageUnavailable = errors.New("recipe storage unavailable")
)

// MealType is the slot a recipe fills in a day plan.
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
	Snack     MealType = "snack"
)

// MealTypes lists the valid meal types in plan order.
var MealTypes = []MealType{Breakfast, Lunch, Dinner, Snack}

func (m MealType) Valid() bool {
	switch m {
	case Breakfast, Lunch, Dinner, Snack:
		return true
	}
	return false
}

// Recipe is a stored recipe as served by the API.
type Recipe struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	Description     string             `json:"description"`
	Ingredients     []string           `json:"ingredients"`
	Instructions    []string           `json:"instructions"`
	PrepTime        int                `json:"prepTime"`
	CookTime        int                `json:"cookTime"`
	Servings        int                `json:"servings"`
	NutritionalInfo map[string]float64 `json:"nutritionalInfo"`
	Cuisine         string             `json:"cuisine"`
	MealType        MealType           `json:"mealType"`
	Tags            []string           `json:"tags"`
}

// TotalTime is prep plus cook time in minutes.
func (r Recipe) TotalTime() int {
	return r.PrepTime + r.CookTime
}

// Fields is a partial recipe. Nil fields are absent.
type Fields struct {
	Name            *string             `json:"name"`
	Description     *string             `json:"description"`
	Ingredients     *[]string           `json:"ingredients"`
	Instructions    *[]string           `json:"instructions"`
	PrepTime        *int                `json:"prepTime"`
	CookTime        *int                `json:"cookTime"`
	Servings        *int                `json:"servings"`
	NutritionalInfo *map[string]float64 `json:"nutritionalInfo"`
	Cuisine         *string             `json:"cuisine"`
	MealType        *MealType           `json:"mealType"`
	Tags            *[]string           `json:"tags"`
}

// Validate checks the numeric bounds and the meal type of the provided fields.
func (f Fields) Validate() error {
	if f.PrepTime != nil && *f.PrepTime < 0 {
		return fmt.Errorf("%w: prepTime must not be negative", ErrInvalid)
	}
	if f.CookTime != nil && *f.CookTime < 0 {
		return fmt.Errorf("%w: cookTime must not be negative", ErrInvalid)
	}
	if f.Servings != nil && *f.Servings < 1 {
		return fmt.Errorf("%w: servings must be at least 1", ErrInvalid)
	}
	if f.MealType != nil && *f.MealType != "" && !MealType(strings.ToLower(string(*f.MealType))).Valid() {
		return fmt.Errorf("%w: mealType must be one of breakfast, lunch, dinner, snack", ErrInvalid)
	}
	return nil
}

// New builds a recipe with the given id, defaulting every absent field.
func New(id string, f Fields) Recipe {
	r := Recipe{
		ID:              id,
		Ingredients:     []string{},
		Instructions:    []string{},
		Servings:        1,
		NutritionalInfo: map[string]float64{},
		Tags:            []string{},
	}
	f.Apply(&r)
	return r
}

// Apply copies every provided field onto r. The id is never touched.
func (f Fields) Apply(r *Recipe) {
	if f.Name != nil {
		r.Name = *f.Name
	}
	if f.Description != nil {
		r.Description = *f.Description
	}
	if f.Ingredients != nil {
		r.Ingredients = nonNil(*f.Ingredients)
	}
	if f.Instructions != nil {
		r.Instructions = nonNil(*f.Instructions)
	}
	if f.PrepTime != nil {
		r.PrepTime = *f.PrepTime
	}
	if f.CookTime != nil {
		r.CookTime = *f.CookTime
	}
	if f.Servings != nil {
		r.Servings = *f.Servings
	}
	if f.NutritionalInfo != nil {
		r.NutritionalInfo = *f.NutritionalInfo
		if r.NutritionalInfo == nil {
			r.NutritionalInfo = map[string]float64{}
		}
	}
	if f.Cuisine != nil {
		r.Cuisine = *f.Cuisine
	}
	if f.MealType != nil {
		r.MealType = MealType(strings.ToLower(string(*f.MealType)))
	}
	if f.Tags != nil {
		r.Tags = uniqueTags(*f.Tags)
	}
}

// FieldsOf returns a Fields value with every field of r set.
func FieldsOf(r Recipe) Fields {
	return Fields{
		Name:            &r.Name,
		Description:     &r.Description,
		Ingredients:     &r.Ingredients,
		Instructions:    &r.Instructions,
		PrepTime:        &r.PrepTime,
		CookTime:        &r.CookTime,
		Servings:        &r.Servings,
		NutritionalInfo: &r.NutritionalInfo,
		Cuisine:         &r.Cuisine,
		MealType:        &r.MealType,
		Tags:            &r.Tags,
	}
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func uniqueTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Store is the recipe collection contract shared by the file and SQLite backends.
type Store interface {
	List(ctx context.Context) ([]Recipe, error)
	Get(ctx context.Context, id string) (Recipe, error)
	Create(ctx context.Context, f Fields) (Recipe, error)
	Update(ctx context.Context, id string, f Fields) (Recipe, error)
	Delete(ctx context.Context, id string) error
}

// FilterByMealType returns the recipes whose meal type is m.
func FilterByMealType(recipes []Recipe, m MealType) []Recipe {
	var out []Recipe
	for _, r := range recipes {
		if r.MealType == m {
			out = append(out, r)
		}
	}
	return out
}
