// internal/bot/router.go
package bot

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"

	"telegram-community-bot/internal/models"
	"telegram-community-bot/internal/profile"
	"telegram-community-bot/internal/question"
)

// handlerFunc is the single capability every command implements.
type handlerFunc func(ctx context.Context, tx *gorm.DB, msg *tgbotapi.Message) error

// route is one entry of the static command table. Resolution scans the
// table in declaration order; the first prefix match wins.
type route struct {
	prefix    string
	adminOnly bool
	run       handlerFunc
}

// usageError aborts a command before any mutation and carries the hint
// the user gets back.
type usageError struct {
	hint string
}

func (e usageError) Error() string {
	return "usage: " + e.hint
}

// buildRoutes assembles the command table once at startup. Order
// mirrors the command surface; admin-only gating lives here, never
// inside individual handlers.
func (h *Handler) buildRoutes() []route {
	return []route{
		{prefix: "/start", run: h.cmdStart},
		{prefix: "/commands", run: h.cmdStart},
		{prefix: "/profile", run: h.cmdProfile},
		{prefix: "/addbackendquestion", adminOnly: true, run: h.cmdAddBackendQuestion},
		{prefix: "/backendquestions", run: h.cmdListBackendQuestions},
		{prefix: "/givebackendquestion", run: h.cmdGiveBackendQuestion},
		{prefix: "/addfrontendquestion", adminOnly: true, run: h.cmdAddFrontendQuestion},
		{prefix: "/frontendquestions", run: h.cmdListFrontendQuestions},
		{prefix: "/givefrontendquestion", run: h.cmdGiveFrontendQuestion},
		{prefix: "/createquiz", run: h.cmdCreateQuiz},
		{prefix: "/rate", run: h.cmdRate, adminOnly: true},
		{prefix: "/setrole", run: h.cmdSetRole, adminOnly: true},
		{prefix: "/ban", run: h.cmdBan, adminOnly: true},
		{prefix: "/unban", run: h.cmdUnban, adminOnly: true},
		{prefix: "/finduser", run: h.cmdFindUser},
		{prefix: "/weather", run: h.cmdWeather},
		{prefix: "/findrole", run: h.cmdFindRole},
		{prefix: "/showallroles", run: h.cmdShowAllRoles},
		{prefix: "/cleanup", adminOnly: true, run: h.cmdCleanup},
		{prefix: "/registerall", adminOnly: true, run: h.cmdRegisterAll},
	}
}

// normalizeCommand lowercases the first token and strips the @botname
// suffix Telegram appends in group chats.
func (h *Handler) normalizeCommand(text string) string {
	token := strings.ToLower(strings.Fields(text)[0])
	return strings.TrimSuffix(token, "@"+strings.ToLower(h.botName))
}

func (h *Handler) isAdmin(user *tgbotapi.User) bool {
	return user != nil && strings.EqualFold(user.UserName, h.admin)
}

// routeText resolves and executes the command for one text message.
// A bare trigger word greets; unmatched text is logged without a reply
// to avoid noise over conversational chatter.
func (h *Handler) routeText(ctx context.Context, tx *gorm.DB, msg *tgbotapi.Message) {
	trimmed := strings.TrimSpace(msg.Text)
	if trimmed == "" {
		return
	}

	if strings.EqualFold(trimmed, "bot") || strings.EqualFold(trimmed, "бот") {
		h.greet(ctx, msg)
		return
	}

	token := h.normalizeCommand(trimmed)
	for _, rt := range h.routes {
		if !strings.HasPrefix(token, rt.prefix) {
			continue
		}
		if rt.adminOnly && !h.isAdmin(msg.From) {
			h.reply(ctx, msg.Chat.ID, "You do not have permission to use this command.")
			return
		}
		if err := rt.run(ctx, tx, msg); err != nil {
			h.replyForError(ctx, msg.Chat.ID, msg.Text, err)
		}
		return
	}

	if strings.HasPrefix(token, "/") {
		h.log.Warn("unknown command received", "text", msg.Text)
	}
}

// replyForError terminates a failed invocation with the user-visible
// message for its error class. Cancellation produces no partial reply.
func (h *Handler) replyForError(ctx context.Context, chatID int64, commandText string, err error) {
	var usage usageError
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		h.log.Warn("command abandoned on shutdown", "text", commandText)
	case errors.As(err, &usage):
		h.reply(ctx, chatID, usage.hint)
	case errors.Is(err, profile.ErrNotFound):
		h.reply(ctx, chatID, "Profile not found.")
	case errors.Is(err, profile.ErrAmbiguous):
		h.reply(ctx, chatID, "Multiple profiles share that username. Run /cleanup to merge duplicates first.")
	case errors.Is(err, profile.ErrSweepRunning):
		h.reply(ctx, chatID, "Cleanup is already running.")
	case errors.Is(err, question.ErrNoQuestions):
		h.reply(ctx, chatID, "No questions found.")
	default:
		h.log.Error("command failed", "text", commandText, "error", err)
		h.reply(ctx, chatID, "An error occurred while processing the command.")
	}
}

// resolveTarget picks the target member for an admin or lookup command.
// Two mutually exclusive shapes: the command is a reply to the target's
// message and carries exactly payloadCount extra tokens, or it names
// the target with an @username token followed by the payload. Any other
// token count aborts with the usage hint before touching state.
func (h *Handler) resolveTarget(ctx context.Context, tx *gorm.DB, msg *tgbotapi.Message, payloadCount int, usage string) (*models.Member, []string, error) {
	fields := strings.Fields(msg.Text)

	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil {
		if len(fields) != 1+payloadCount {
			return nil, nil, usageError{hint: usage}
		}
		member, err := h.registry.GetByID(ctx, tx, msg.ReplyToMessage.From.ID)
		if err != nil {
			return nil, nil, err
		}
		return member, fields[1:], nil
	}

	if len(fields) != 2+payloadCount {
		return nil, nil, usageError{hint: usage}
	}
	username := strings.TrimPrefix(fields[1], "@")
	if username == "" {
		return nil, nil, usageError{hint: usage}
	}
	member, err := h.registry.GetByUsername(ctx, tx, username)
	if err != nil {
		return nil, nil, err
	}
	return member, fields[2:], nil
}
