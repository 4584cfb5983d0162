// Package telegram serves the meal prep assistant over a Telegram webhook.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"meal-prep-planner/internal/chat"
	"meal-prep-planner/internal/planner"
	"meal-prep-planner/internal/recipe"
	"meal-prep-planner/internal/shopping"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	usageReportDays = 7
	messageTimeout  = 2 * time.Minute
)

const helpText = `👋 I'm your meal prep assistant.

• Ask me anything about cooking or nutrition.
• Send a recipe link to save it to your collection.
• /plan [cuisines] [max minutes] builds next week's plan, e.g. /plan italian,mexican 30`

// Sender is the part of the Telegram API the bot talks to.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	HandleUpdate(r *http.Request) (*tgbotapi.Update, error)
}

// ChatResponder answers free-text messages.
type ChatResponder interface {
	Respond(ctx context.Context, message string, history []chat.Message) (chat.Reply, error)
}

// RecipeClipper imports a recipe from a URL.
type RecipeClipper interface {
	ClipURL(ctx context.Context, rawURL string) (recipe.Recipe, error)
}

// PlanGenerator builds weekly meal plans.
type PlanGenerator interface {
	Generate(ctx context.Context, req planner.Request) ([]planner.DayPlan, error)
}

// UsageReporter renders the admin usage report.
type UsageReporter interface {
	UsageReport(ctx context.Context, days int) (string, error)
}

// Options configures the bot's collaborators and access list.
type Options struct {
	// AllowedUserIDs lists who may talk to the bot. Empty denies everyone.
	AllowedUserIDs []int64
	AdminID        int64

	Chat    ChatResponder
	Clipper RecipeClipper
	Planner PlanGenerator
	Usage   UsageReporter
	Logger  *zap.Logger
}

// Bot routes Telegram messages to chat, the clipper and the planner.
type Bot struct {
	api     Sender
	allowed map[int64]bool
	adminID int64
	chat    ChatResponder
	clipper RecipeClipper
	planner PlanGenerator
	usage   UsageReporter
	logger  *zap.Logger
	now     func() time.Time
}

// NewBot authorizes against the Telegram API and points its webhook at webhookURL.
func NewBot(token, webhookURL string, opts Options) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	b := newBot(api, opts)
	b.logger.Info("authorized on telegram", zap.String("account", api.Self.UserName))

	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %s: %w", webhookURL, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", webhookURL, err)
	}
	b.logger.Info("webhook set", zap.String("description", resp.Description))
	return b, nil
}

func newBot(api Sender, opts Options) *Bot {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	allowed := make(map[int64]bool, len(opts.AllowedUserIDs))
	for _, id := range opts.AllowedUserIDs {
		allowed[id] = true
	}
	return &Bot{
		api:     api,
		allowed: allowed,
		adminID: opts.AdminID,
		chat:    opts.Chat,
		clipper: opts.Clipper,
		planner: opts.Planner,
		usage:   opts.Usage,
		logger:  logger,
		now:     time.Now,
	}
}

// RegisterHandlers mounts the webhook and a liveness probe on mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		b.logger.Warn("failed to parse update", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if !b.allowed[msg.From.ID] {
		b.logger.Warn("unauthorized access attempt",
			zap.Int64("user_id", msg.From.ID),
			zap.String("username", msg.From.UserName),
		)
		return
	}

	// Telegram retries slow webhooks, so the work runs after the response.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), messageTimeout)
		defer cancel()
		b.processMessage(ctx, msg)
	}()
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)

	switch {
	case msg.IsCommand():
		switch msg.Command() {
		case "start", "help":
			b.send(tgbotapi.NewMessage(msg.Chat.ID, helpText))
		case "metrics":
			b.handleMetrics(ctx, msg)
		case "plan":
			b.handlePlan(ctx, msg.Chat.ID, msg.CommandArguments())
		default:
			b.send(tgbotapi.NewMessage(msg.Chat.ID, "Unknown command. Try /help."))
		}
	case strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://"):
		b.handleClip(ctx, msg.Chat.ID, text)
	default:
		b.handleChat(ctx, msg.Chat.ID, text)
	}
}

func (b *Bot) handleChat(ctx context.Context, chatID int64, text string) {
	reply, err := b.chat.Respond(ctx, text, nil)
	if err != nil {
		b.logger.Error("chat failed", zap.Error(err))
		b.send(tgbotapi.NewMessage(chatID, chat.FallbackReply))
		return
	}
	// Replies use "*" bullets, which legacy Markdown would read as bold markers.
	b.send(tgbotapi.NewMessage(chatID, formatChatReply(reply)))
}

func (b *Bot) handleClip(ctx context.Context, chatID int64, url string) {
	status := tgbotapi.NewMessage(chatID, "✂️ *Clipping recipe...*\n(Extracting and saving to your collection)")
	status.ParseMode = tgbotapi.ModeMarkdown
	sent, err := b.api.Send(status)
	if err != nil {
		b.logger.Error("failed to send status message", zap.Error(err))
		return
	}

	var text string
	saved, err := b.clipper.ClipURL(ctx, url)
	if err != nil {
		b.logger.Warn("failed to clip recipe", zap.String("url", url), zap.Error(err))
		safeErr := strings.ReplaceAll(err.Error(), "`", "'")
		text = fmt.Sprintf("❌ *Error clipping recipe:*\n```\n%s\n```", safeErr)
	} else {
		text = formatClipped(saved)
	}
	edit := tgbotapi.NewEditMessageText(chatID, sent.MessageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	b.send(edit)
}

func (b *Bot) handlePlan(ctx context.Context, chatID int64, args string) {
	req := parsePlanArgs(args)
	req.StartDate = planner.GetNextMonday(b.now())

	plan, err := b.planner.Generate(ctx, req)
	if err != nil {
		b.logger.Error("failed to generate plan", zap.Error(err))
		b.send(tgbotapi.NewMessage(chatID, "❌ Could not generate a plan right now. Please try again later."))
		return
	}

	planText, shoppingText := formatPlanMarkdownParts(plan)
	planMsg := tgbotapi.NewMessage(chatID, planText)
	planMsg.ParseMode = tgbotapi.ModeMarkdown
	b.send(planMsg)

	shoppingMsg := tgbotapi.NewMessage(chatID, shoppingText)
	shoppingMsg.ParseMode = tgbotapi.ModeMarkdown
	b.send(shoppingMsg)
}

func (b *Bot) handleMetrics(ctx context.Context, msg *tgbotapi.Message) {
	if b.adminID == 0 || msg.From.ID != b.adminID {
		denied := tgbotapi.NewMessage(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		denied.ParseMode = tgbotapi.ModeMarkdown
		b.send(denied)
		return
	}

	report, err := b.usage.UsageReport(ctx, usageReportDays)
	if err != nil {
		b.logger.Error("failed to build usage report", zap.Error(err))
		b.send(tgbotapi.NewMessage(msg.Chat.ID, "❌ Error fetching metrics."))
		return
	}
	out := tgbotapi.NewMessage(msg.Chat.ID, report)
	out.ParseMode = tgbotapi.ModeMarkdown
	b.send(out)
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.logger.Error("failed to send telegram message", zap.Error(err))
	}
}

// parsePlanArgs reads "/plan italian,mexican 30": a number is the prep limit,
// everything else is a comma separated cuisine list.
func parsePlanArgs(args string) planner.Request {
	var req planner.Request
	for _, field := range strings.Fields(args) {
		if n, err := strconv.Atoi(field); err == nil && n >= 0 {
			req.MaxPrepTime = n
			continue
		}
		for _, c := range strings.Split(field, ",") {
			if c = strings.TrimSpace(c); c != "" {
				req.CuisinePreferences = append(req.CuisinePreferences, c)
			}
		}
	}
	return req
}

func formatChatReply(reply chat.Reply) string {
	if len(reply.SuggestedRecipes) == 0 {
		return reply.Message
	}
	var sb strings.Builder
	sb.WriteString(reply.Message)
	sb.WriteString("\n\nYou might like:\n")
	for _, r := range reply.SuggestedRecipes {
		fmt.Fprintf(&sb, "• %s (%d mins)\n", r.Name, r.TotalTime())
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatClipped(r recipe.Recipe) string {
	return fmt.Sprintf("✅ *Recipe Saved!*\n\n*Name:* %s\n*Meal:* %s\n*Time:* %d mins\n*ID:* `%s`",
		escapeMarkdown(r.Name), escapeMarkdown(string(r.MealType)), r.TotalTime(), r.ID)
}

// escapeMarkdown quotes user supplied text for ModeMarkdown messages.
func escapeMarkdown(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func formatPlanMarkdownParts(plan []planner.DayPlan) (string, string) {
	var pb strings.Builder
	pb.WriteString("📅 *Weekly Meal Plan*\n\n")

	total := 0
	for _, day := range plan {
		label := day.Date
		if d, err := time.Parse(planner.DateLayout, day.Date); err == nil {
			label = d.Format("Monday") + " " + day.Date
		}
		fmt.Fprintf(&pb, "*%s*\n", label)

		slots := []struct {
			name string
			r    *recipe.Recipe
		}{
			{"Breakfast", day.Breakfast},
			{"Lunch", day.Lunch},
			{"Dinner", day.Dinner},
		}
		for _, s := range slots {
			if s.r == nil {
				continue
			}
			fmt.Fprintf(&pb, "%s: %s (%d mins)\n", s.name, escapeMarkdown(s.r.Name), s.r.TotalTime())
			total += s.r.TotalTime()
		}
		for _, snack := range day.Snacks {
			fmt.Fprintf(&pb, "Snack: %s (%d mins)\n", escapeMarkdown(snack.Name), snack.TotalTime())
			total += snack.TotalTime()
		}
		pb.WriteString("\n")
	}
	fmt.Fprintf(&pb, "⏱ *Total Prep:* %d mins", total)

	var sb strings.Builder
	sb.WriteString("🛒 *Shopping List*\n\n")
	for _, item := range shopping.FromPlan(plan) {
		if item.Count > 1 {
			fmt.Fprintf(&sb, "• %s (x%d)\n", escapeMarkdown(item.Name), item.Count)
			continue
		}
		fmt.Fprintf(&sb, "• %s\n", escapeMarkdown(item.Name))
	}
	return pb.String(), sb.String()
}
