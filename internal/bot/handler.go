// internal/bot/handler.go
package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"telegram-community-bot/internal/database"
	"telegram-community-bot/internal/logger"
	"telegram-community-bot/internal/models"
	"telegram-community-bot/internal/profile"
	"telegram-community-bot/internal/question"
	"telegram-community-bot/internal/telegram"
	"telegram-community-bot/internal/weather"
)

// Handler receives inbound updates and drives them through the command
// table. Each update is processed end-to-end on one worker with its own
// persistence session; the only shared state is the backing store.
type Handler struct {
	db       *database.DB
	client   telegram.Client
	registry *profile.Registry
	backend  *question.Repo[models.BackendQuestion]
	frontend *question.Repo[models.FrontendQuestion]
	weather  *weather.Service
	log      *logger.Logger

	admin   string
	botName string
	botID   int64
	workers int

	routes []route
}

func NewHandler(db *database.DB, client telegram.Client, weatherSvc *weather.Service,
	baseLog *logger.Logger, admin, botName string, botID int64, workers int) *Handler {

	if workers < 1 {
		workers = 1
	}
	h := &Handler{
		db:       db,
		client:   client,
		registry: profile.NewRegistry(baseLog),
		backend:  question.NewRepo[models.BackendQuestion](baseLog),
		frontend: question.NewRepo[models.FrontendQuestion](baseLog),
		weather:  weatherSvc,
		log:      baseLog.With("component", "dispatch"),
		admin:    admin,
		botName:  botName,
		botID:    botID,
		workers:  workers,
	}
	h.routes = h.buildRoutes()
	return h
}

// Registry exposes the member registry for startup maintenance.
func (h *Handler) Registry() *profile.Registry {
	return h.registry
}

// Run consumes the update channel until ctx is cancelled or the channel
// closes, fanning updates out to a bounded worker pool. A failing
// update never stops the loop.
func (h *Handler) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) error {
	var g errgroup.Group
	g.SetLimit(h.workers)

	for {
		select {
		case <-ctx.Done():
			_ = g.Wait()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return g.Wait()
			}
			g.Go(func() error {
				h.HandleUpdate(ctx, update)
				return nil
			})
		}
	}
}

// HandleUpdate processes one inbound update: open a fresh unit-of-work,
// upsert the sender, then route. Every failure is absorbed here.
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("panic while handling update", "update_id", update.UpdateID, "panic", r)
		}
	}()

	tx := h.db.Session(ctx)

	switch {
	case update.Message != nil:
		h.handleMessage(ctx, tx, update.Message)
	case update.ChatMember != nil:
		h.handleChatMemberUpdated(ctx, tx, update.ChatMember)
	default:
		h.log.Debug("unhandled update type", "update_id", update.UpdateID)
	}
}

func (h *Handler) handleMessage(ctx context.Context, tx *gorm.DB, msg *tgbotapi.Message) {
	if msg.From != nil && msg.From.ID == h.botID {
		return
	}

	// The sender is registered before any command runs, so even pure
	// chatter from an unseen user creates a member row.
	if msg.From != nil && !msg.From.IsBot {
		id := profile.Identity{ID: msg.From.ID, Username: msg.From.UserName, FirstName: msg.From.FirstName}
		if _, err := h.registry.Upsert(ctx, tx, id, "Newbie-Developer"); err != nil {
			h.log.Error("sender registration failed", "user_id", msg.From.ID, "error", err)
			h.reply(ctx, msg.Chat.ID, "An error occurred while saving changes.")
			return
		}
	}

	switch {
	case len(msg.NewChatMembers) > 0:
		h.welcomeNewMembers(ctx, tx, msg)
	case msg.LeftChatMember != nil:
		h.farewellMember(ctx, msg)
	case msg.Text != "":
		h.routeText(ctx, tx, msg)
	}
}

func (h *Handler) welcomeNewMembers(ctx context.Context, tx *gorm.DB, msg *tgbotapi.Message) {
	for _, member := range msg.NewChatMembers {
		if member.ID == h.botID || member.IsBot {
			continue
		}
		id := profile.Identity{ID: member.ID, Username: member.UserName, FirstName: member.FirstName}
		if _, err := h.registry.Upsert(ctx, tx, id, "Member"); err != nil {
			h.log.Error("new member registration failed", "user_id", member.ID, "error", err)
			continue
		}
		h.reply(ctx, msg.Chat.ID, fmt.Sprintf(
			"Welcome, %s!\nCan you please introduce yourself?\nIf you have any questions, feel free to ask.",
			displayName(&member)))
	}
}

func (h *Handler) farewellMember(ctx context.Context, msg *tgbotapi.Message) {
	left := msg.LeftChatMember
	if left.ID == h.botID {
		return
	}
	h.reply(ctx, msg.Chat.ID, fmt.Sprintf("%s left the chat. We hope they return soon!", displayName(left)))
}

func (h *Handler) handleChatMemberUpdated(ctx context.Context, tx *gorm.DB, upd *tgbotapi.ChatMemberUpdated) {
	oldStatus := upd.OldChatMember.Status
	newStatus := upd.NewChatMember.Status
	user := upd.NewChatMember.User
	if user == nil || user.ID == h.botID {
		return
	}
	chatID := upd.Chat.ID

	h.log.Info("chat member status changed",
		"user_id", user.ID, "old_status", oldStatus, "new_status", newStatus, "chat_id", chatID)

	switch {
	case newStatus == "member" && oldStatus != "member":
		id := profile.Identity{ID: user.ID, Username: user.UserName, FirstName: user.FirstName}
		if _, err := h.registry.Upsert(ctx, tx, id, "Member"); err != nil {
			h.log.Error("joining member registration failed", "user_id", user.ID, "error", err)
		}
		h.reply(ctx, chatID, fmt.Sprintf("Welcome %s!", displayName(user)))
	case newStatus == "left" || newStatus == "kicked":
		h.reply(ctx, chatID, fmt.Sprintf("%s has left the chat.", displayName(user)))
	}
}

func displayName(user *tgbotapi.User) string {
	if user.UserName != "" {
		return "@" + user.UserName
	}
	return user.FirstName
}
