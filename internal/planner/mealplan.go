package planner

import (
	"fmt"
	"strings"
	"time"

	"meal-prep-planner/internal/recipe"
)

// DateLayout is the calendar date format used in plans.
const DateLayout = "2006-01-02"

// PlanDays is the length of a generated plan.
const PlanDays = 7

// MaxSnacks caps the snacks placed on a single day.
const MaxSnacks = 2

// DayPlan is one day of a generated plan. Empty slots are nil.
type DayPlan struct {
	Date      string          `json:"date"`
	Breakfast *recipe.Recipe  `json:"breakfast"`
	Lunch     *recipe.Recipe  `json:"lunch"`
	Dinner    *recipe.Recipe  `json:"dinner"`
	Snacks    []recipe.Recipe `json:"snacks"`
}

// Recipes returns every recipe placed on the day, snacks last.
func (d DayPlan) Recipes() []recipe.Recipe {
	var out []recipe.Recipe
	for _, slot := range []*recipe.Recipe{d.Breakfast, d.Lunch, d.Dinner} {
		if slot != nil {
			out = append(out, *slot)
		}
	}
	return append(out, d.Snacks...)
}

// slotIDs returns the ids currently occupying the slot for m.
func (d DayPlan) slotIDs(m recipe.MealType) []string {
	var slot *recipe.Recipe
	switch m {
	case recipe.Breakfast:
		slot = d.Breakfast
	case recipe.Lunch:
		slot = d.Lunch
	case recipe.Dinner:
		slot = d.Dinner
	case recipe.Snack:
		ids := make([]string, 0, len(d.Snacks))
		for _, s := range d.Snacks {
			ids = append(ids, s.ID)
		}
		return ids
	}
	if slot == nil {
		return nil
	}
	return []string{slot.ID}
}

// Request holds the generation filters.
type Request struct {
	StartDate          time.Time
	CuisinePreferences []string
	// MaxPrepTime bounds prep plus cook minutes. Zero disables the filter.
	MaxPrepTime int
	// SeasonalOnly is accepted for API compatibility; recipes carry no seasonal data.
	SeasonalOnly bool
}

// SwapRequest asks for a replacement recipe in one slot of an existing plan.
type SwapRequest struct {
	Plan     []DayPlan
	DayIndex int
	MealType recipe.MealType
	// RecipeID, when set, names the replacement explicitly.
	RecipeID string
}

// AddRequest places a known recipe into a plan slot.
type AddRequest struct {
	Recipe   *recipe.Recipe
	DayIndex *int
	MealType recipe.MealType
}

// ParseStartDate accepts YYYY-MM-DD or an RFC 3339 timestamp and returns the calendar date.
func ParseStartDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: start date is required", ErrInvalidRequest)
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: start date %q is not YYYY-MM-DD", ErrInvalidRequest, s)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// GetNextMonday returns the date of the next Monday after t.
func GetNextMonday(t time.Time) time.Time {
	daysUntil := (8 - int(t.Weekday())) % 7
	if daysUntil == 0 {
		daysUntil = 7
	}
	next := t.AddDate(0, 0, daysUntil)
	return time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, t.Location())
}
