package recipe

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed sample_recipes.json
var sampleRecipes []byte

// SampleRecipes returns the bundled demo collection used to seed an empty store.
func SampleRecipes() ([]Recipe, error) {
	var recipes []Recipe
	if err := json.Unmarshal(sampleRecipes, &recipes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sample recipes: %w", err)
	}
	return recipes, nil
}
