// internal/telegram/markdown.go
package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// FormatQA renders a question with a spoiler-wrapped answer for
// MarkdownV2 delivery. User-supplied text is escaped; the surrounding
// bold and spoiler markers are ours.
func FormatQA(question, answer string) string {
	return fmt.Sprintf("*Question:* %s\n*Answer:* ||%s||",
		tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, question),
		tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, answer),
	)
}
