package clipper

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"text/template"
	"time"

	"meal-prep-planner/internal/llm"
	"meal-prep-planner/internal/recipe"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// SystemPrompt sets the role and output format of the generator.
//
//go:embed system_prompt.md
var SystemPrompt string

//go:embed extractor_prompt.md
var extractorPrompt string

var promptTemplate = template.Must(template.New("Extractor").Parse(extractorPrompt))

var (
	ErrUnavailable = errors.New("recipe import is not configured")
	ErrInvalidURL  = errors.New("invalid recipe url")
	ErrFetch       = errors.New("failed to fetch recipe page")
	ErrExtraction  = errors.New("failed to extract recipe")

	errBlockedAddress = errors.New("address is not publicly routable")
)

const (
	fetchTimeout    = 15 * time.Second
	dialTimeout     = 5 * time.Second
	maxPageBytes    = 2 << 20
	maxContentRunes = 20000
	agentName       = "Clipper"
)

// UsageRecorder persists token usage of generator calls.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, agentName string, usage llm.TokenUsage, latency time.Duration) error
}

// Clipper imports recipes from web pages into the recipe store.
type Clipper struct {
	recipes    recipe.Store
	textGen    llm.TextGenerator
	usage      UsageRecorder
	httpClient *http.Client
	logger     *zap.Logger

	// allowPrivate lets fetches reach loopback and private networks.
	allowPrivate bool
}

// ExtractedRecipe is the JSON shape requested from the text generator.
type ExtractedRecipe struct {
	Name            string             `json:"name"`
	Description     string             `json:"description"`
	Ingredients     []string           `json:"ingredients"`
	Instructions    []string           `json:"instructions"`
	PrepTime        int                `json:"prepTime"`
	CookTime        int                `json:"cookTime"`
	Servings        int                `json:"servings"`
	Cuisine         string             `json:"cuisine"`
	MealType        string             `json:"mealType"`
	Tags            []string           `json:"tags"`
	NutritionalInfo map[string]float64 `json:"nutritionalInfo"`
}

// NewClipper creates a Clipper. textGen and usage may be nil; without a generator every import fails with ErrUnavailable.
func NewClipper(recipes recipe.Store, textGen llm.TextGenerator, usage UsageRecorder, logger *zap.Logger) *Clipper {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Clipper{
		recipes: recipes,
		textGen: textGen,
		usage:   usage,
		logger:  logger,
	}
	// Every dial is checked, so redirects and DNS answers pointing inside the network are refused too.
	dialer := &net.Dialer{Timeout: dialTimeout, Control: c.checkDialAddr}
	c.httpClient = &http.Client{
		Timeout: fetchTimeout,
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: dialTimeout,
		},
	}
	return c
}

// Enabled reports whether a text generator is configured.
func (c *Clipper) Enabled() bool {
	return c.textGen != nil
}

// ClipURL fetches the page, extracts a recipe with the text generator and stores it.
func (c *Clipper) ClipURL(ctx context.Context, rawURL string) (recipe.Recipe, error) {
	if !c.Enabled() {
		return recipe.Recipe{}, ErrUnavailable
	}
	rawURL = strings.TrimSpace(rawURL)
	if err := c.validateURL(rawURL); err != nil {
		return recipe.Recipe{}, err
	}

	content, err := c.fetchAndCleanHTML(ctx, rawURL)
	if err != nil {
		return recipe.Recipe{}, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	extracted, err := c.extract(ctx, rawURL, content)
	if err != nil {
		return recipe.Recipe{}, err
	}

	fields := extracted.toFields(rawURL)
	if err := fields.Validate(); err != nil {
		return recipe.Recipe{}, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	created, err := c.recipes.Create(ctx, fields)
	if err != nil {
		return recipe.Recipe{}, fmt.Errorf("failed to save imported recipe: %w", err)
	}

	c.logger.Info("Imported recipe",
		zap.String("id", created.ID),
		zap.String("name", created.Name),
		zap.String("url", rawURL),
	)
	return created, nil
}

func (c *Clipper) extract(ctx context.Context, rawURL, content string) (ExtractedRecipe, error) {
	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, struct{ URL, Content string }{rawURL, content}); err != nil {
		return ExtractedRecipe{}, fmt.Errorf("failed to build extractor prompt: %w", err)
	}

	start := time.Now()
	resp, err := c.textGen.GenerateContent(ctx, buf.String())
	if err != nil {
		return ExtractedRecipe{}, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	if c.usage != nil {
		if err := c.usage.RecordUsage(ctx, agentName, resp.Usage, time.Since(start)); err != nil {
			c.logger.Warn("Failed to record extractor usage", zap.Error(err))
		}
	}

	var extracted ExtractedRecipe
	if err := json.Unmarshal([]byte(stripCodeFence(resp.Content)), &extracted); err != nil {
		return ExtractedRecipe{}, fmt.Errorf("%w: failed to parse response: %w", ErrExtraction, err)
	}
	if strings.TrimSpace(extracted.Name) == "" || len(extracted.Ingredients) == 0 {
		return ExtractedRecipe{}, fmt.Errorf("%w: no recipe found on page", ErrExtraction)
	}
	return extracted, nil
}

func (c *Clipper) fetchAndCleanHTML(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "meal-prep-planner/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", err
	}

	// Drop page chrome to save tokens.
	doc.Find("script, style, nav, footer, iframe, .ads, #ads").Remove()

	text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	if r := []rune(text); len(r) > maxContentRunes {
		text = string(r[:maxContentRunes])
	}
	return text, nil
}

func (e ExtractedRecipe) toFields(sourceURL string) recipe.Fields {
	description := strings.TrimSpace(e.Description)
	if description == "" {
		description = "Imported from " + sourceURL
	}
	mealType := recipe.MealType(strings.ToLower(strings.TrimSpace(e.MealType)))
	servings := max(e.Servings, 1)
	tags := append(append([]string{}, e.Tags...), "imported")

	f := recipe.Fields{
		Name:         &e.Name,
		Description:  &description,
		Ingredients:  &e.Ingredients,
		Instructions: &e.Instructions,
		PrepTime:     &e.PrepTime,
		CookTime:     &e.CookTime,
		Servings:     &servings,
		Cuisine:      &e.Cuisine,
		Tags:         &tags,
	}
	if mealType != "" {
		f.MealType = &mealType
	}
	if len(e.NutritionalInfo) > 0 {
		f.NutritionalInfo = &e.NutritionalInfo
	}
	return f
}

func (c *Clipper) validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	if c.allowPrivate {
		return nil
	}
	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	if ip := net.ParseIP(host); ip != nil && isInternalIP(ip) {
		return fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	return nil
}

func (c *Clipper) checkDialAddr(network, address string, _ syscall.RawConn) error {
	if c.allowPrivate {
		return nil
	}
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || isInternalIP(ip) {
		return fmt.Errorf("%w: %s", errBlockedAddress, host)
	}
	return nil
}

func isInternalIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast()
}

// stripCodeFence removes a markdown code fence some models wrap JSON in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
