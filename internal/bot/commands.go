// internal/bot/commands.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"

	"telegram-community-bot/internal/models"
	"telegram-community-bot/internal/profile"
	"telegram-community-bot/internal/question"
	"telegram-community-bot/internal/quiz"
	"telegram-community-bot/internal/telegram"
)

const commandList = "Hi, here are my commands:\n" +
	"/profile\n" +
	"/givebackendquestion\n" +
	"/backendquestions\n" +
	"/givefrontendquestion\n" +
	"/frontendquestions\n" +
	"/createquiz | question | correct_option_id | option1 | option2\n" +
	"/finduser @username\n" +
	"/findrole role\n" +
	"/showallroles\n" +
	"/weather place"

// reply sends plain text and logs delivery failures; a lost reply never
// fails the command that produced it.
func (h *Handler) reply(ctx context.Context, chatID int64, text string) {
	if err := h.client.SendText(ctx, chatID, text); err != nil {
		h.log.Error("reply failed", "chat_id", chatID, "error", err)
	}
}

func (h *Handler) greet(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat.IsPrivate() {
		h.reply(ctx, msg.Chat.ID, "Hi! How can I help you?")
		return
	}
	h.reply(ctx, msg.Chat.ID, "How can I assist you?")
}

func (h *Handler) cmdStart(ctx context.Context, _ *gorm.DB, msg *tgbotapi.Message) error {
	h.reply(ctx, msg.Chat.ID, commandList)
	return nil
}

func (h *Handler) cmdProfile(ctx context.Context, tx *gorm.DB, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	member, err := h.registry.GetByID(ctx, tx, msg.From.ID)
	if err != nil {
		return err
	}
	h.reply(ctx, msg.Chat.ID, formatProfile(member))
	return nil
}

func formatProfile(member *models.Member) string {
	return fmt.Sprintf("User profile %s:\nSocial rating: %d\nUser role: %s",
		member.DisplayName(), member.Rating, member.Role)
}

func (h *Handler) cmdAddBackendQuestion(ctx context.Context, tx *gorm.DB, msg *tgbotapi.Message) error {
	return addQuestion(h, ctx, tx, msg, h.backend, "/addbackendquestion")
}

func (h *Handler) cmdAddFrontendQuestion(ctx context.Context, tx *gorm.DB, msg *tgbotapi.Message) error {
	return addQuestion(h, ctx, tx, msg, h.frontend, "/addfrontendquestion")
}

func addQuestion[T models.Question](h *Handler, ctx context.Context, tx *gorm.DB, msg *tgbotapi.Message, repo *question.Repo[T], name string) error {
	parts := strings.Split(msg.Text, "|")
	if len(parts) != 3 {
		return usageError{hint: fmt.Sprintf("Invalid command format. Use: %s | [question] | [answer]", name)}
	}
	if _, err := repo.Add(ctx, tx, strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2])); err != nil {
		return err
	}
	h.reply(ctx, msg.Chat.ID, "Question and answer added successfully.")
	return nil
}

func (h *Handler) cmdListBackendQuestions(ctx context.Context, tx *gorm.DB, msg *tgbotapi.Message) error {
	return listQuestions(h, ctx, tx, msg, h.backend)
}

func (h *Handler) cmdListFrontendQuestions(ctx context.Context, tx *gorm.DB, msg *tgbotapi.Message) error {
	return listQuestions(h, ctx, tx, msg, h.frontend)
}

func listQuestions[T models.Question](h *Handler, ctx context.Context, tx *gorm.DB, msg *tgbotapi.Message, repo *question.Repo[T]) error {
	texts, err := repo.List(ctx, tx)
	if err != nil {
		return err
	}
	if len(texts) == 0 {
		h.reply(ctx, msg.Chat.ID, "No questions found.")
		return nil
	}

	var b strings.Builder
	b.WriteString("List of questions:")
	for _, text := range texts {
		b.WriteString("\n- ")
		b.WriteString(text)
	}
	h.reply(ctx, msg.Chat.ID, b.String())
	return nil
}

func (h *Handler) cmdGiveBackendQuestion(ctx context.Context, tx *gorm.DB, msg *tgbotapi.Message) error {
	return giveQuestion(h, ctx, tx, msg, h.backend)
}

func (h *Handler) cmdGiveFrontendQuestion(ctx context.Context, tx *gorm.DB, msg *tgbotapi.Message) error {
	return giveQuestion(h, ctx, tx, msg, h.frontend)
}

func giveQuestion[T models.Question](h *Handler, ctx context.Context, tx *gorm.DB, msg *tgbotapi.Message, repo *question.Repo[T]) error {
	item, err := repo.Random(ctx, tx)
	if err != nil {
		return err
	}
	row := models.QuestionRow(*item)
	if err := h.client.SendMarkdownV2(ctx, msg.Chat.ID, telegram.FormatQA(row.QuestionText, row.Answer)); err != nil {
		h.log.Error("quiz question delivery failed", "chat_id", msg.Chat.ID, "error", err)
	}
	return nil
}

func (h *Handler) cmdCreateQuiz(ctx context.Context, _ *gorm.DB, msg *tgbotapi.Message) error {
	parsed, err := quiz.Parse(msg.Text)
	switch {
	case errors.Is(err, quiz.ErrBadFormat):
		return usageError{hint: "Invalid command format. Use: /createquiz | <question> | <correct_option_id> | <option1> | <option2> | ..."}
	case errors.Is(err, quiz.ErrBadCorrectOption):
		return usageError{hint: "Invalid correct option ID."}
	case err != nil:
		return err
	}
	return h.client.SendQuiz(ctx, msg.Chat.ID, parsed.Question, parsed.Options, parsed.CorrectIndex)
}

func (h *Handler) cmdRate(ctx context.Context, tx *gorm.DB, msg *tgbotapi.Message) error {
	const usage = "Invalid command format. Use: /rate [username] [score] " +
		"or reply to the user's message with the command /rate [score]"

	target, payload, err := h.resolveTarget(ctx, tx, msg, 1, usage)
	if err != nil {
		return err
	}
	score, err := strconv.Atoi(payload[0])
	if err != nil {
		return usageError{hint: usage}
	}

	updated, err := h.registry.AdjustRating(ctx, tx, target.ID, score)
	if err != nil {
		return err
	}
	h.reply(ctx, msg.Chat.ID, fmt.Sprintf("Social rating of user %s is now %d.",
		updated.DisplayName(), updated.Rating))
	return nil
}

func (h *Handler) cmdSetRole(ctx context.Context, tx *gorm.DB, msg *tgbotapi.Message) error {
	const usage = "Invalid command format. Use: /setrole [username] [role] " +
		"or reply to the user's message with the command /setrole [role]"

	target, payload, err := h.resolveTarget(ctx, tx, msg, 1, usage)
	if err != nil {
		return err
	}

	updated, err := h.registry.SetRole(ctx, tx, target.ID, payload[0])
	if err != nil {
		return err
	}
	h.reply(ctx, msg.Chat.ID, fmt.Sprintf("Role of user %s is now %s.",
		updated.DisplayName(), updated.Role))
	return nil
}

func (h *Handler) cmdBan(ctx context.Context, tx *gorm.DB, msg *tgbotapi.Message) error {
	const usage = "Invalid command format. Use: /ban [username] " +
		"or reply to the user's message with the command /ban"

	target, _, err := h.resolveTarget(ctx, tx, msg, 0, usage)
	if err != nil {
		return err
	}
	if err := h.client.BanMember(ctx, msg.Chat.ID, target.ID); err != nil {
		h.log.Error("ban failed", "user_id", target.ID, "error", err)
		h.reply(ctx, msg.Chat.ID, "An error occurred while trying to ban the user.")
		return nil
	}
	h.reply(ctx, msg.Chat.ID, "User has been banned.")
	return nil
}

func (h *Handler) cmdUnban(ctx context.Context, tx *gorm.DB, msg *tgbotapi.Message) error {
	const usage = "Invalid command format. Use: /unban [username] " +
		"or reply to the user's message with the command /unban"

	target, _, err := h.resolveTarget(ctx, tx, msg, 0, usage)
	if err != nil {
		return err
	}
	if err := h.client.UnbanMember(ctx, msg.Chat.ID, target.ID); err != nil {
		h.log.Error("unban failed", "user_id", target.ID, "error", err)
		h.reply(ctx, msg.Chat.ID, "An error occurred while trying to unban the user.")
		return nil
	}
	h.reply(ctx, msg.Chat.ID, "User has been unbanned.")
	return nil
}

func (h *Handler) cmdFindUser(ctx context.Context, tx *gorm.DB, msg *tgbotapi.Message) error {
	target, _, err := h.resolveTarget(ctx, tx, msg, 0, "Invalid command format. Use: /finduser @username")
	if err != nil {
		return err
	}
	h.reply(ctx, msg.Chat.ID, formatProfile(target))
	return nil
}

func (h *Handler) cmdFindRole(ctx context.Context, tx *gorm.DB, msg *tgbotapi.Message) error {
	fields := strings.Fields(msg.Text)
	if len(fields) != 2 {
		return usageError{hint: "Please provide a role. Example: /findrole Python-Developer"}
	}
	role := fields[1]

	members, err := h.registry.ListByRole(ctx, tx, role)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		h.reply(ctx, msg.Chat.ID, fmt.Sprintf("No users found with role %s.", role))
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found the following users with role %s:", role)
	for _, m := range members {
		fmt.Fprintf(&b, "\n%s - %s", m.DisplayName(), m.FirstName)
	}
	h.reply(ctx, msg.Chat.ID, b.String())
	return nil
}

func (h *Handler) cmdShowAllRoles(ctx context.Context, tx *gorm.DB, msg *tgbotapi.Message) error {
	roles, err := h.registry.AllRoles(ctx, tx)
	if err != nil {
		return err
	}
	if len(roles) == 0 {
		h.reply(ctx, msg.Chat.ID, "No roles assigned yet.")
		return nil
	}
	h.reply(ctx, msg.Chat.ID, "Available roles:\n- "+strings.Join(roles, "\n- "))
	return nil
}

func (h *Handler) cmdWeather(ctx context.Context, _ *gorm.DB, msg *tgbotapi.Message) error {
	fields := strings.Fields(msg.Text)
	if len(fields) < 2 {
		return usageError{hint: "Please provide a location. Example: /weather London"}
	}
	location := strings.Join(fields[1:], " ")

	forecast, err := h.weather.Forecast(ctx, location, 3)
	if err != nil {
		h.log.Error("weather lookup failed", "location", location, "error", err)
		h.reply(ctx, msg.Chat.ID, "Failed to fetch weather data. Please try again later.")
		return nil
	}
	h.reply(ctx, msg.Chat.ID, forecast)
	return nil
}

func (h *Handler) cmdCleanup(ctx context.Context, tx *gorm.DB, msg *tgbotapi.Message) error {
	h.reply(ctx, msg.Chat.ID, "Starting cleanup...")
	merged, err := h.registry.Deduplicate(ctx, tx)
	if err != nil {
		return err
	}
	h.reply(ctx, msg.Chat.ID, fmt.Sprintf("Cleanup completed. Merged %d duplicate profiles.", merged))
	return nil
}

func (h *Handler) cmdRegisterAll(ctx context.Context, tx *gorm.DB, msg *tgbotapi.Message) error {
	if msg.Chat.IsPrivate() {
		h.reply(ctx, msg.Chat.ID, "This command only works in group chats.")
		return nil
	}

	admins, err := h.client.Administrators(ctx, msg.Chat.ID)
	if err != nil {
		return fmt.Errorf("fetch chat administrators: %w", err)
	}
	ids := make([]profile.Identity, 0, len(admins))
	for _, admin := range admins {
		if admin.IsBot {
			continue
		}
		ids = append(ids, profile.Identity{ID: admin.ID, Username: admin.UserName, FirstName: admin.FirstName})
	}

	count, err := h.registry.RegisterAdministrators(ctx, tx, ids)
	if err != nil {
		return err
	}
	h.reply(ctx, msg.Chat.ID, fmt.Sprintf("Registered %d chat administrators.", count))
	return nil
}
