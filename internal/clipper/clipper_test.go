package clipper

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"meal-prep-planner/internal/llm"
	"meal-prep-planner/internal/recipe"
	"meal-prep-planner/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockTextGenerator struct {
	response string
	err      error
	prompt   string
}

func (m *mockTextGenerator) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	m.prompt = prompt
	if m.err != nil {
		return llm.ContentResponse{}, m.err
	}
	return llm.ContentResponse{
		Content: m.response,
		Usage:   llm.TokenUsage{PromptTokens: 100, CompletionTokens: 40, Model: "mock"},
	}, nil
}

type usageSpy struct{ calls int }

func (u *usageSpy) RecordUsage(ctx context.Context, agentName string, usage llm.TokenUsage, latency time.Duration) error {
	u.calls++
	return nil
}

func newStore(t *testing.T) *storage.RecipeStore {
	t.Helper()
	store, err := storage.NewRecipeStore(filepath.Join(t.TempDir(), "recipes.json"))
	require.NoError(t, err)
	_, err = store.Seed([]recipe.Recipe{})
	require.NoError(t, err)
	return store
}

// newLocalClipper returns a Clipper that may fetch from httptest servers on loopback.
func newLocalClipper(recipes recipe.Store, textGen llm.TextGenerator, usage UsageRecorder) *Clipper {
	c := NewClipper(recipes, textGen, usage, nil)
	c.allowPrivate = true
	return c
}

func pageServer(t *testing.T, status int, body string) *httptest.Server {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestFetchAndCleanHTML(t *testing.T) {
	ts := pageServer(t, http.StatusOK, `
		<html>
			<head><script>alert('bad');</script></head>
			<body>
				<nav>Home | About</nav>
				<h1>Tasty Recipe</h1>
				<div class="ads">Buy stuff!</div>
				<p>Mix flour and water.</p>
				<script>more_bad_stuff()</script>
				<footer>Copyright 2024</footer>
			</body>
		</html>`)

	c := newLocalClipper(newStore(t), &mockTextGenerator{}, nil)
	text, err := c.fetchAndCleanHTML(context.Background(), ts.URL)
	require.NoError(t, err)

	assert.NotContains(t, text, "alert('bad')")
	assert.NotContains(t, text, "Buy stuff!")
	assert.NotContains(t, text, "Copyright 2024")
	assert.NotContains(t, text, "Home | About")
	assert.Contains(t, text, "Tasty Recipe Mix flour and water.")
}

func TestClipURL(t *testing.T) {
	ctx := context.Background()
	page := pageServer(t, http.StatusOK, "<html><body><h1>Apple Pie</h1><p>Apples, sugar.</p></body></html>")

	t.Run("Success", func(t *testing.T) {
		store := newStore(t)
		gen := &mockTextGenerator{response: "```json\n" + `{"name":"Apple Pie","ingredients":["4 apples","1 cup sugar"],"instructions":["Bake"],"prepTime":20,"cookTime":45,"servings":0,"cuisine":"American","mealType":"Snack","tags":["dessert"]}` + "\n```"}
		usage := &usageSpy{}
		c := newLocalClipper(store, gen, usage)

		created, err := c.ClipURL(ctx, page.URL)
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "Apple Pie", created.Name)
		assert.Equal(t, recipe.Snack, created.MealType)
		assert.Equal(t, 1, created.Servings)
		assert.Equal(t, []string{"dessert", "imported"}, created.Tags)
		assert.Equal(t, "Imported from "+page.URL, created.Description)
		assert.Equal(t, 1, usage.calls)
		assert.Contains(t, gen.prompt, "Apples, sugar.")
		assert.Contains(t, gen.prompt, page.URL)
		assert.NotContains(t, gen.prompt, "recipe extraction expert")
		assert.Contains(t, SystemPrompt, `"mealType"`)

		stored, err := store.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created, stored)
	})

	t.Run("Unavailable", func(t *testing.T) {
		c := newLocalClipper(newStore(t), nil, nil)
		assert.False(t, c.Enabled())

		_, err := c.ClipURL(ctx, page.URL)
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("InvalidURL", func(t *testing.T) {
		c := NewClipper(newStore(t), &mockTextGenerator{}, nil, nil)
		for _, u := range []string{"", "ftp://example.com/x", "not a url"} {
			_, err := c.ClipURL(ctx, u)
			assert.ErrorIs(t, err, ErrInvalidURL, u)
		}
	})

	t.Run("InternalAddress", func(t *testing.T) {
		store := newStore(t)
		c := NewClipper(store, &mockTextGenerator{}, nil, nil)
		for _, u := range []string{
			page.URL,
			"http://127.0.0.1/recipe",
			"http://localhost:8080/recipe",
			"http://10.0.0.5/recipe",
			"http://192.168.1.1/recipe",
			"http://169.254.169.254/latest/meta-data/",
			"http://[::1]/recipe",
			"http://0.0.0.0/recipe",
		} {
			_, err := c.ClipURL(ctx, u)
			assert.ErrorIs(t, err, ErrInvalidURL, u)
		}

		all, err := store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("PageNotFound", func(t *testing.T) {
		missing := pageServer(t, http.StatusNotFound, "nope")
		c := newLocalClipper(newStore(t), &mockTextGenerator{}, nil)

		_, err := c.ClipURL(ctx, missing.URL)
		assert.ErrorIs(t, err, ErrFetch)
	})

	t.Run("GeneratorError", func(t *testing.T) {
		c := newLocalClipper(newStore(t), &mockTextGenerator{err: errors.New("quota")}, nil)

		_, err := c.ClipURL(ctx, page.URL)
		assert.ErrorIs(t, err, ErrExtraction)
	})

	t.Run("MalformedResponse", func(t *testing.T) {
		c := newLocalClipper(newStore(t), &mockTextGenerator{response: "Sorry, I can't"}, nil)

		_, err := c.ClipURL(ctx, page.URL)
		assert.ErrorIs(t, err, ErrExtraction)
	})

	t.Run("NoRecipeOnPage", func(t *testing.T) {
		c := newLocalClipper(newStore(t), &mockTextGenerator{response: `{"name":"","ingredients":[]}`}, nil)

		_, err := c.ClipURL(ctx, page.URL)
		assert.ErrorIs(t, err, ErrExtraction)
	})

	t.Run("InvalidExtractedRecipe", func(t *testing.T) {
		store := newStore(t)
		c := newLocalClipper(store, &mockTextGenerator{response: `{"name":"X","ingredients":["a"],"prepTime":-5}`}, nil)

		_, err := c.ClipURL(ctx, page.URL)
		assert.ErrorIs(t, err, ErrExtraction)
		assert.ErrorIs(t, err, recipe.ErrInvalid)

		all, err := store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func TestCheckDialAddr(t *testing.T) {
	c := NewClipper(newStore(t), &mockTextGenerator{}, nil, nil)

	for _, addr := range []string{"127.0.0.1:80", "10.1.2.3:443", "172.16.0.1:80", "169.254.169.254:80", "[::1]:80", "[fe80::1]:80"} {
		assert.ErrorIs(t, c.checkDialAddr("tcp", addr, nil), errBlockedAddress, addr)
	}
	assert.NoError(t, c.checkDialAddr("tcp", "93.184.216.34:443", nil))
	assert.NoError(t, c.checkDialAddr("tcp", "[2606:2800:220:1::1]:443", nil))
}

func TestFetchRefusesInternalDial(t *testing.T) {
	target := pageServer(t, http.StatusOK, "<html><body>secret</body></html>")
	c := NewClipper(newStore(t), &mockTextGenerator{}, nil, nil)

	// fetchAndCleanHTML skips URL validation, leaving the dial hook as the guard.
	_, err := c.fetchAndCleanHTML(context.Background(), target.URL)
	assert.ErrorIs(t, err, errBlockedAddress)
}

func TestFetchLimitsPageSize(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>"))
		w.Write(bytes.Repeat([]byte("a "), maxPageBytes))
		w.Write([]byte("</p><p>tail marker</p></body></html>"))
	}))
	t.Cleanup(ts.Close)
	c := newLocalClipper(newStore(t), &mockTextGenerator{}, nil)

	text, err := c.fetchAndCleanHTML(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.NotContains(t, text, "tail marker")
	assert.LessOrEqual(t, len([]rune(text)), maxContentRunes)
}
