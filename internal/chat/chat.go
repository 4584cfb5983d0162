package chat

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"text/template"
	"time"

	"meal-prep-planner/internal/llm"
	"meal-prep-planner/internal/recipe"

	"go.uber.org/zap"
)

// SystemPrompt sets the role and output format of the generator.
//
//go:embed system_prompt.md
var SystemPrompt string

//go:embed chat_prompt.md
var chatPrompt string

var promptTemplate = template.Must(template.New("Chat").Parse(chatPrompt))

var ErrEmptyMessage = errors.New("message is required")

const (
	CannedReply = "I'm a meal prep assistant. I can help you plan meals, suggest recipes, and provide nutritional information. What would you like to know?"

	FallbackReply = `# Meal Planning Assistant

I'm having trouble connecting to my knowledge base right now. As a meal planning assistant, I can help with recipes, nutrition advice, and meal prep tips.

## What I Can Help With

* **Recipe suggestions** based on your preferences and dietary needs
* **Nutritional information** about various foods
* **Meal planning tips** to save time and eat healthier
* **Cooking techniques** to improve your meals

Could you try asking your question in a different way?`

	DefaultTimeout = 20 * time.Second
	maxSuggestions = 2
	agentName      = "Chat"
)

var recipeKeywords = []string{"recipe", "meal", "cook", "prepare", "breakfast", "lunch", "dinner", "ingredients"}

// Message is one turn of a conversation as sent by clients.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Reply struct {
	Message          string          `json:"message"`
	SuggestedRecipes []recipe.Recipe `json:"suggestedRecipes"`
}

// UsageRecorder persists token usage of generator calls.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, agentName string, usage llm.TokenUsage, latency time.Duration) error
}

// Observer receives counters for each answered message.
type Observer interface {
	ChatAnswered(source string)
	GeneratorCall(latency time.Duration, promptTokens, completionTokens int)
}

// Options configures a Responder. Generator, Usage and Observer are optional.
type Options struct {
	Generator llm.TextGenerator
	Recipes   recipe.Store
	Rand      *rand.Rand
	Timeout   time.Duration
	Usage     UsageRecorder
	Observer  Observer
	Logger    *zap.Logger
}

// Responder answers chat messages.
type Responder struct {
	generator llm.TextGenerator
	recipes   recipe.Store
	timeout   time.Duration
	usage     UsageRecorder
	observer  Observer
	logger    *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewResponder(opts Options) *Responder {
	r := &Responder{
		generator: opts.Generator,
		recipes:   opts.Recipes,
		timeout:   opts.Timeout,
		usage:     opts.Usage,
		observer:  opts.Observer,
		logger:    opts.Logger,
		rng:       opts.Rand,
	}
	if r.timeout <= 0 {
		r.timeout = DefaultTimeout
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.rng == nil {
		r.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	return r
}

// Respond answers message. History is accepted for API compatibility and not forwarded.
func (r *Responder) Respond(ctx context.Context, message string, history []Message) (Reply, error) {
	if strings.TrimSpace(message) == "" {
		return Reply{}, ErrEmptyMessage
	}

	if r.generator == nil {
		r.observe("canned")
		return Reply{Message: CannedReply, SuggestedRecipes: r.suggest(ctx)}, nil
	}

	prompt, err := buildPrompt(message)
	if err != nil {
		return Reply{}, err
	}

	genCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	resp, err := r.generator.GenerateContent(genCtx, prompt)
	latency := time.Since(start)
	if err != nil {
		r.logger.Warn("Chat generator failed", zap.Error(err), zap.Duration("latency", latency))
		r.observe("fallback")
		return Reply{Message: FallbackReply, SuggestedRecipes: []recipe.Recipe{}}, nil
	}

	r.recordUsage(ctx, resp.Usage, latency)
	r.observe("generated")

	reply := Reply{Message: FormatReply(resp.Content), SuggestedRecipes: []recipe.Recipe{}}
	if isRecipeRelated(message) {
		reply.SuggestedRecipes = r.suggest(ctx)
	}
	return reply, nil
}

func (r *Responder) recordUsage(ctx context.Context, usage llm.TokenUsage, latency time.Duration) {
	if r.observer != nil {
		r.observer.GeneratorCall(latency, usage.PromptTokens, usage.CompletionTokens)
	}
	if r.usage == nil {
		return
	}
	if err := r.usage.RecordUsage(ctx, agentName, usage, latency); err != nil {
		r.logger.Warn("Failed to record chat usage", zap.Error(err))
	}
}

func (r *Responder) observe(source string) {
	if r.observer != nil {
		r.observer.ChatAnswered(source)
	}
}

// suggest picks up to two distinct random recipes. Store failures yield none.
func (r *Responder) suggest(ctx context.Context) []recipe.Recipe {
	if r.recipes == nil {
		return []recipe.Recipe{}
	}
	all, err := r.recipes.List(ctx)
	if err != nil {
		r.logger.Warn("Failed to load recipes for suggestions", zap.Error(err))
		return []recipe.Recipe{}
	}

	n := min(maxSuggestions, len(all))
	r.mu.Lock()
	idx := r.rng.Perm(len(all))[:n]
	r.mu.Unlock()

	out := make([]recipe.Recipe, 0, n)
	for _, i := range idx {
		out = append(out, all[i])
	}
	return out
}

func isRecipeRelated(message string) bool {
	lower := strings.ToLower(message)
	for _, k := range recipeKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func buildPrompt(message string) (string, error) {
	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, struct{ Message string }{message}); err != nil {
		return "", fmt.Errorf("failed to build chat prompt: %w", err)
	}
	return buf.String(), nil
}
