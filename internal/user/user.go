package user

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrMissingFields      = errors.New("required fields missing")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("user already exists")
	ErrInvalidDietType    = errors.New("invalid diet type")
)

// DietType is the user's declared diet.
type DietType string

const (
	DietNone        DietType = "none"
	DietVegetarian  DietType = "vegetarian"
	DietVegan       DietType = "vegan"
	DietKeto        DietType = "keto"
	DietPaleo       DietType = "paleo"
	DietPescatarian DietType = "pescatarian"
)

func (d DietType) Valid() bool {
	switch d {
	case DietNone, DietVegetarian, DietVegan, DietKeto, DietPaleo, DietPescatarian:
		return true
	}
	return false
}

// DietaryGoals are daily targets. Zero means unset.
type DietaryGoals struct {
	Calories float64 `json:"calories,omitempty"`
	Protein  float64 `json:"protein,omitempty"`
	Fat      float64 `json:"fat,omitempty"`
	Carbs    float64 `json:"carbs,omitempty"`
}

type Preferences struct {
	CuisinePreferences      []string `json:"cuisinePreferences"`
	UseFrozenIngredients    bool     `json:"useFrozenIngredients"`
	SeasonalIngredientsOnly bool     `json:"seasonalIngredientsOnly"`
}

// Profile is the public view of a user. It never carries the password.
type Profile struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	DietaryGoals DietaryGoals `json:"dietaryGoals"`
	DietType     DietType     `json:"dietType"`
	Allergies    []string     `json:"allergies"`
	Preferences  Preferences  `json:"preferences"`
}

// Account is a stored user. Passwords are kept in plain text; this is a demo directory.
type Account struct {
	Profile
	Password string `json:"password"`
}

// ProfilePatch lists the fields a user may change. Nil fields are left untouched.
type ProfilePatch struct {
	Name         *string       `json:"name"`
	DietaryGoals *DietaryGoals `json:"dietaryGoals"`
	DietType     *DietType     `json:"dietType"`
	Allergies    *[]string     `json:"allergies"`
	Preferences  *Preferences  `json:"preferences"`
}

func (p ProfilePatch) validate() error {
	if p.DietType != nil && !p.DietType.Valid() {
		return fmt.Errorf("%w: dietType must be one of none, vegetarian, vegan, keto, paleo, pescatarian", ErrInvalidDietType)
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return fmt.Errorf("%w: name must not be empty", ErrMissingFields)
	}
	return nil
}

func (p ProfilePatch) apply(profile *Profile) {
	if p.Name != nil {
		profile.Name = strings.TrimSpace(*p.Name)
	}
	if p.DietaryGoals != nil {
		profile.DietaryGoals = *p.DietaryGoals
	}
	if p.DietType != nil {
		profile.DietType = *p.DietType
	}
	if p.Allergies != nil {
		profile.Allergies = *p.Allergies
		if profile.Allergies == nil {
			profile.Allergies = []string{}
		}
	}
	if p.Preferences != nil {
		profile.Preferences = *p.Preferences
		if profile.Preferences.CuisinePreferences == nil {
			profile.Preferences.CuisinePreferences = []string{}
		}
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
