package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"meal-prep-planner/internal/recipe"

	"github.com/google/uuid"
)

// RecipeStore keeps the whole recipe collection in a single JSON file.
// Every mutation reads the file, changes the slice and rewrites the file.
type RecipeStore struct {
	path string
	mu   sync.Mutex
}

// NewRecipeStore creates a new RecipeStore and ensures the parent directory exists.
// The file itself is not created; use Seed for that.
func NewRecipeStore(path string) (*RecipeStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory for %s: %w", path, err)
	}
	return &RecipeStore{path: path}, nil
}

// Path returns the backing file.
func (s *RecipeStore) Path() string {
	return s.path
}

// Exists checks if the backing file exists.
func (s *RecipeStore) Exists() bool {
	_, err := os.Stat(s.path)
	return !os.IsNotExist(err)
}

// Seed writes recipes to the backing file unless it already exists.
// It reports whether anything was written.
func (s *RecipeStore) Seed(recipes []recipe.Recipe) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Exists() {
		return false, nil
	}
	if err := s.saveLocked(recipes); err != nil {
		return false, err
	}
	return true, nil
}

func (s *RecipeStore) List(ctx context.Context) ([]recipe.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *RecipeStore) Get(ctx context.Context, id string) (recipe.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recipes, err := s.loadLocked()
	if err != nil {
		return recipe.Recipe{}, err
	}
	for _, r := range recipes {
		if r.ID == id {
			return r, nil
		}
	}
	return recipe.Recipe{}, recipe.ErrNotFound
}

func (s *RecipeStore) Create(ctx context.Context, f recipe.Fields) (recipe.Recipe, error) {
	if err := f.Validate(); err != nil {
		return recipe.Recipe{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recipes, err := s.loadLocked()
	if err != nil {
		return recipe.Recipe{}, err
	}

	rec := recipe.New(uuid.NewString(), f)
	if err := s.saveLocked(append(recipes, rec)); err != nil {
		return recipe.Recipe{}, err
	}
	return rec, nil
}

func (s *RecipeStore) Update(ctx context.Context, id string, f recipe.Fields) (recipe.Recipe, error) {
	if err := f.Validate(); err != nil {
		return recipe.Recipe{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recipes, err := s.loadLocked()
	if err != nil {
		return recipe.Recipe{}, err
	}
	for i := range recipes {
		if recipes[i].ID != id {
			continue
		}
		f.Apply(&recipes[i])
		if err := s.saveLocked(recipes); err != nil {
			return recipe.Recipe{}, err
		}
		return recipes[i], nil
	}
	return recipe.Recipe{}, recipe.ErrNotFound
}

func (s *RecipeStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recipes, err := s.loadLocked()
	if err != nil {
		return err
	}

	kept := make([]recipe.Recipe, 0, len(recipes))
	for _, r := range recipes {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(recipes) {
		return recipe.ErrNotFound
	}
	return s.saveLocked(kept)
}

func (s *RecipeStore) loadLocked() ([]recipe.Recipe, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: recipe file %s does not exist", recipe.ErrStorageUnavailable, s.path)
		}
		return nil, fmt.Errorf("%w: failed to read recipe file: %w", recipe.ErrStorageUnavailable, err)
	}

	var recipes []recipe.Recipe
	if err := json.Unmarshal(data, &recipes); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal recipe file: %w", recipe.ErrStorageUnavailable, err)
	}
	if recipes == nil {
		recipes = []recipe.Recipe{}
	}
	return recipes, nil
}

func (s *RecipeStore) saveLocked(recipes []recipe.Recipe) error {
	if recipes == nil {
		recipes = []recipe.Recipe{}
	}
	data, err := json.MarshalIndent(recipes, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal recipes: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("%w: failed to write recipe file: %w", recipe.ErrStorageUnavailable, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("%w: failed to replace recipe file: %w", recipe.ErrStorageUnavailable, err)
	}
	return nil
}
