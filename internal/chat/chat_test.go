package chat

import (
	"context"
	"errors"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"meal-prep-planner/internal/llm"
	"meal-prep-planner/internal/recipe"
	"meal-prep-planner/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubGenerator struct {
	content string
	err     error
	delay   time.Duration
	prompts []string
}

func (s *stubGenerator) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	s.prompts = append(s.prompts, prompt)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return llm.ContentResponse{}, ctx.Err()
		}
	}
	if s.err != nil {
		return llm.ContentResponse{}, s.err
	}
	return llm.ContentResponse{
		Content: s.content,
		Usage:   llm.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15, Model: "stub"},
	}, nil
}

type usageSpy struct {
	agents []string
}

func (u *usageSpy) RecordUsage(ctx context.Context, agentName string, usage llm.TokenUsage, latency time.Duration) error {
	u.agents = append(u.agents, agentName)
	return nil
}

type observerSpy struct {
	sources []string
	calls   int
}

func (o *observerSpy) ChatAnswered(source string) { o.sources = append(o.sources, source) }

func (o *observerSpy) GeneratorCall(latency time.Duration, promptTokens, completionTokens int) {
	o.calls++
}

type brokenStore struct{ recipe.Store }

func (brokenStore) List(ctx context.Context) ([]recipe.Recipe, error) {
	return nil, recipe.ErrStorageUnavailable
}

func newSampleStore(t *testing.T) recipe.Store {
	t.Helper()
	store, err := storage.NewRecipeStore(filepath.Join(t.TempDir(), "recipes.json"))
	require.NoError(t, err)
	samples, err := recipe.SampleRecipes()
	require.NoError(t, err)
	_, err = store.Seed(samples)
	require.NoError(t, err)
	return store
}

func newResponder(t *testing.T, gen llm.TextGenerator, opts ...func(*Options)) *Responder {
	o := Options{
		Generator: gen,
		Recipes:   newSampleStore(t),
		Rand:      rand.New(rand.NewPCG(1, 2)),
		Logger:    zap.NewNop(),
	}
	for _, fn := range opts {
		fn(&o)
	}
	return NewResponder(o)
}

func TestRespond(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyMessage", func(t *testing.T) {
		_, err := newResponder(t, nil).Respond(ctx, "   ", nil)
		assert.ErrorIs(t, err, ErrEmptyMessage)
	})

	t.Run("CannedWithoutGenerator", func(t *testing.T) {
		obs := &observerSpy{}
		r := newResponder(t, nil, func(o *Options) { o.Observer = obs })

		reply, err := r.Respond(ctx, "hello", nil)
		require.NoError(t, err)
		assert.Equal(t, CannedReply, reply.Message)
		assert.Len(t, reply.SuggestedRecipes, 2)
		assert.NotEqual(t, reply.SuggestedRecipes[0].ID, reply.SuggestedRecipes[1].ID)
		assert.Equal(t, []string{"canned"}, obs.sources)
	})

	t.Run("GeneratedWithSuggestions", func(t *testing.T) {
		gen := &stubGenerator{content: "Try this:\n- oats\n- milk"}
		usage := &usageSpy{}
		obs := &observerSpy{}
		r := newResponder(t, gen, func(o *Options) {
			o.Usage = usage
			o.Observer = obs
		})

		reply, err := r.Respond(ctx, "Any BREAKFAST ideas?", []Message{{Role: "user", Content: "hi"}})
		require.NoError(t, err)
		assert.Equal(t, "Try this:\n\n* oats\n\n* milk", reply.Message)
		assert.Len(t, reply.SuggestedRecipes, 2)
		assert.Equal(t, []string{"Chat"}, usage.agents)
		assert.Equal(t, 1, obs.calls)
		assert.Equal(t, []string{"generated"}, obs.sources)

		require.Len(t, gen.prompts, 1)
		assert.Contains(t, gen.prompts[0], "User message: Any BREAKFAST ideas?")
		assert.NotContains(t, gen.prompts[0], "meal planning assistant")
		assert.Contains(t, SystemPrompt, "meal planning assistant")
	})

	t.Run("GeneratedWithoutKeyword", func(t *testing.T) {
		r := newResponder(t, &stubGenerator{content: "Hello!"})

		reply, err := r.Respond(ctx, "how are you", nil)
		require.NoError(t, err)
		assert.Equal(t, "Hello!", reply.Message)
		assert.NotNil(t, reply.SuggestedRecipes)
		assert.Empty(t, reply.SuggestedRecipes)
	})

	t.Run("GeneratorFailure", func(t *testing.T) {
		obs := &observerSpy{}
		r := newResponder(t, &stubGenerator{err: errors.New("quota exceeded")}, func(o *Options) { o.Observer = obs })

		reply, err := r.Respond(ctx, "recipe please", nil)
		require.NoError(t, err)
		assert.Equal(t, FallbackReply, reply.Message)
		assert.Empty(t, reply.SuggestedRecipes)
		assert.Equal(t, []string{"fallback"}, obs.sources)
	})

	t.Run("GeneratorTimeout", func(t *testing.T) {
		r := newResponder(t, &stubGenerator{content: "late", delay: time.Second}, func(o *Options) {
			o.Timeout = 20 * time.Millisecond
		})

		reply, err := r.Respond(ctx, "meal ideas", nil)
		require.NoError(t, err)
		assert.Equal(t, FallbackReply, reply.Message)
	})

	t.Run("StoreFailureYieldsNoSuggestions", func(t *testing.T) {
		r := newResponder(t, nil, func(o *Options) { o.Recipes = brokenStore{} })

		reply, err := r.Respond(ctx, "recipe", nil)
		require.NoError(t, err)
		assert.Equal(t, CannedReply, reply.Message)
		assert.Empty(t, reply.SuggestedRecipes)
	})
}

func TestFormatReply(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Dashes", "- a\n\n- b", "* a\n\n* b"},
		{"Bullets", "• a", "* a"},
		{"SingleNewline", "a\nb", "a\n\nb"},
		{"ParagraphsKept", "a\n\nb\n\n\nc", "a\n\nb\n\n\nc"},
		{"NumberedLists", "Steps: 1) chop 12) serve", "Steps: 1. chop 12. serve"},
		{"Plain", "Hello", "Hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatReply(tt.in))
		})
	}

	t.Run("TruncatesAtParagraph", func(t *testing.T) {
		first := strings.Repeat("a", 1000)
		in := first + "\n\n" + strings.Repeat("b", 1000)

		out := FormatReply(in)
		assert.Equal(t, first+truncatedMarker, out)
	})

	t.Run("TruncatesWithoutParagraph", func(t *testing.T) {
		out := FormatReply(strings.Repeat("x", 2000))
		assert.Equal(t, strings.Repeat("x", 1500)+"..."+truncatedMarker, out)
	})

	t.Run("CountsRunes", func(t *testing.T) {
		in := strings.Repeat("é", 1500)
		assert.Equal(t, in, FormatReply(in))
	})
}
