// Package recipetest provides recipe fixtures for tests.
package recipetest

import (
	"meal-prep-planner/internal/recipe"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

var cuisines = []string{"Italian", "Mediterranean", "Mexican", "Asian", "American"}

// Factory builds deterministic fake recipes from a seed.
type Factory struct {
	faker *gofakeit.Faker
}

// NewFactory creates a Factory seeded with seed.
func NewFactory(seed int64) *Factory {
	return &Factory{faker: gofakeit.New(seed)}
}

// Fields returns a fully populated recipe payload for the given meal type.
func (f *Factory) Fields(mealType recipe.MealType) recipe.Fields {
	r := f.Recipe(mealType)
	return recipe.FieldsOf(r)
}

// Recipe returns a recipe with a fresh id for the given meal type.
func (f *Factory) Recipe(mealType recipe.MealType) recipe.Recipe {
	ingredients := make([]string, f.faker.Number(2, 6))
	for i := range ingredients {
		ingredients[i] = f.faker.Fruit()
	}
	instructions := make([]string, f.faker.Number(1, 4))
	for i := range instructions {
		instructions[i] = f.faker.Sentence(6)
	}

	return recipe.Recipe{
		ID:           uuid.NewString(),
		Name:         f.faker.Dinner(),
		Description:  f.faker.Sentence(10),
		Ingredients:  ingredients,
		Instructions: instructions,
		PrepTime:     f.faker.Number(0, 30),
		CookTime:     f.faker.Number(0, 60),
		Servings:     f.faker.Number(1, 6),
		NutritionalInfo: map[string]float64{
			"calories": float64(f.faker.Number(100, 800)),
			"protein":  float64(f.faker.Number(2, 50)),
		},
		Cuisine:  cuisines[f.faker.Number(0, len(cuisines)-1)],
		MealType: mealType,
		Tags:     []string{f.faker.Adjective()},
	}
}

// Collection returns perMeal recipes for each meal type.
func (f *Factory) Collection(perMeal int) []recipe.Recipe {
	var out []recipe.Recipe
	for _, m := range recipe.MealTypes {
		for i := 0; i < perMeal; i++ {
			out = append(out, f.Recipe(m))
		}
	}
	return out
}
