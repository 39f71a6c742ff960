// internal/bot/commands_test.go
package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-community-bot/internal/models"
	"telegram-community-bot/internal/weather"
)

func seedMember(t *testing.T, h *Handler, user *tgbotapi.User) {
	t.Helper()
	handle(h, groupMessage(user, "hello"))
}

func memberByID(t *testing.T, h *Handler, id int64) *models.Member {
	t.Helper()
	member, err := h.registry.GetByID(context.Background(), h.db.Session(context.Background()), id)
	if err != nil {
		t.Fatalf("load member %d: %v", id, err)
	}
	return member
}

func TestPermissionGateDeniesNonAdmin(t *testing.T) {
	h, client, _ := newTestHandler(t)

	target := &tgbotapi.User{ID: 300, UserName: "x", FirstName: "X"}
	seedMember(t, h, target)

	handle(h, groupMessage(normalUser, "/rate @x 5"))

	if got := client.lastText(t); got != "You do not have permission to use this command." {
		t.Fatalf("unexpected reply: %q", got)
	}
	if member := memberByID(t, h, target.ID); member.Rating != 30 {
		t.Fatalf("rating must be unchanged after denial, got %d", member.Rating)
	}
}

func TestRateExplicitUsername(t *testing.T) {
	h, client, _ := newTestHandler(t)

	target := &tgbotapi.User{ID: 300, UserName: "x", FirstName: "X"}
	seedMember(t, h, target)

	handle(h, groupMessage(adminUser, "/rate @x 5"))

	if got := client.lastText(t); got != "Social rating of user @x is now 35." {
		t.Fatalf("unexpected reply: %q", got)
	}
	if member := memberByID(t, h, target.ID); member.Rating != 35 {
		t.Fatalf("expected rating 35, got %d", member.Rating)
	}
}

func TestRateMalformedArguments(t *testing.T) {
	h, client, _ := newTestHandler(t)

	handle(h, groupMessage(adminUser, "/rate"))
	if got := client.lastText(t); !strings.HasPrefix(got, "Invalid command format. Use: /rate") {
		t.Fatalf("expected usage hint, got %q", got)
	}

	seedMember(t, h, &tgbotapi.User{ID: 300, UserName: "x", FirstName: "X"})
	handle(h, groupMessage(adminUser, "/rate @x notanumber"))
	if got := client.lastText(t); !strings.HasPrefix(got, "Invalid command format. Use: /rate") {
		t.Fatalf("expected usage hint for bad score, got %q", got)
	}
}

func TestReplyBasedSetRoleTargetsRepliedAuthor(t *testing.T) {
	h, client, _ := newTestHandler(t)

	target := &tgbotapi.User{ID: 300, UserName: "x", FirstName: "X"}
	seedMember(t, h, target)
	seedMember(t, h, adminUser)

	msg := groupMessage(adminUser, "/setrole Senior-Developer")
	msg.ReplyToMessage = groupMessage(target, "some earlier message")
	handle(h, msg)

	if got := client.lastText(t); got != "Role of user @x is now Senior-Developer." {
		t.Fatalf("unexpected reply: %q", got)
	}
	if member := memberByID(t, h, target.ID); member.Role != "Senior-Developer" {
		t.Fatalf("target role not changed, got %q", member.Role)
	}
	if member := memberByID(t, h, adminUser.ID); member.Role == "Senior-Developer" {
		t.Fatal("sender role must not change on reply-based setrole")
	}
}

func TestSetRoleUnknownTarget(t *testing.T) {
	h, client, _ := newTestHandler(t)

	handle(h, groupMessage(adminUser, "/setrole @ghost Admin"))
	if got := client.lastText(t); got != "Profile not found." {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestFindUserAmbiguousLegacyRows(t *testing.T) {
	h, client, db := newTestHandler(t)

	rows := []models.Member{
		{ID: 10, Username: "twin", Rating: 30, Role: "Member"},
		{ID: 11, Username: "twin", Rating: 30, Role: "Member"},
	}
	for i := range rows {
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	handle(h, groupMessage(normalUser, "/finduser @twin"))
	if got := client.lastText(t); !strings.HasPrefix(got, "Multiple profiles share that username.") {
		t.Fatalf("expected ambiguity reply, got %q", got)
	}
}

func TestFindUserShowsProfile(t *testing.T) {
	h, client, _ := newTestHandler(t)

	target := &tgbotapi.User{ID: 300, UserName: "x", FirstName: "X"}
	seedMember(t, h, target)

	handle(h, groupMessage(normalUser, "/finduser @x"))
	want := "User profile @x:\nSocial rating: 30\nUser role: Newbie-Developer"
	if got := client.lastText(t); got != want {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestBanViaReply(t *testing.T) {
	h, client, _ := newTestHandler(t)

	target := &tgbotapi.User{ID: 300, UserName: "x", FirstName: "X"}
	seedMember(t, h, target)

	msg := groupMessage(adminUser, "/ban")
	msg.ReplyToMessage = groupMessage(target, "offending message")
	handle(h, msg)

	if got := client.lastText(t); got != "User has been banned." {
		t.Fatalf("unexpected reply: %q", got)
	}
	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.banned) != 1 || client.banned[0] != target.ID {
		t.Fatalf("expected ban of %d, got %v", target.ID, client.banned)
	}
}

func TestUnbanExplicit(t *testing.T) {
	h, client, _ := newTestHandler(t)

	target := &tgbotapi.User{ID: 300, UserName: "x", FirstName: "X"}
	seedMember(t, h, target)

	handle(h, groupMessage(adminUser, "/unban @x"))

	if got := client.lastText(t); got != "User has been unbanned." {
		t.Fatalf("unexpected reply: %q", got)
	}
	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.unbanned) != 1 || client.unbanned[0] != target.ID {
		t.Fatalf("expected unban of %d, got %v", target.ID, client.unbanned)
	}
}

func TestAddQuestionRequiresAdmin(t *testing.T) {
	h, client, _ := newTestHandler(t)

	handle(h, groupMessage(normalUser, "/addbackendquestion | Q | A"))
	if got := client.lastText(t); got != "You do not have permission to use this command." {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestAddThenGiveBackendQuestion(t *testing.T) {
	h, client, _ := newTestHandler(t)

	handle(h, groupMessage(adminUser,
		"/addbackendquestion | What is a closure? | A function bundled with its lexical scope"))
	if got := client.lastText(t); got != "Question and answer added successfully." {
		t.Fatalf("unexpected add reply: %q", got)
	}

	handle(h, groupMessage(normalUser, "/givebackendquestion"))

	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.markdown) != 1 {
		t.Fatalf("expected one markdown reply, got %d", len(client.markdown))
	}
	got := client.markdown[0].text
	if !strings.Contains(got, "What is a closure") || !strings.Contains(got, "lexical scope") {
		t.Fatalf("drawn question does not round-trip: %q", got)
	}
	if !strings.Contains(got, "||") {
		t.Fatalf("answer must be spoiler-wrapped: %q", got)
	}
}

func TestAddQuestionMalformed(t *testing.T) {
	h, client, _ := newTestHandler(t)

	handle(h, groupMessage(adminUser, "/addbackendquestion just some text"))
	if got := client.lastText(t); !strings.HasPrefix(got, "Invalid command format. Use: /addbackendquestion") {
		t.Fatalf("expected usage hint, got %q", got)
	}
}

func TestListQuestions(t *testing.T) {
	h, client, _ := newTestHandler(t)

	handle(h, groupMessage(normalUser, "/frontendquestions"))
	if got := client.lastText(t); got != "No questions found." {
		t.Fatalf("expected empty reply, got %q", got)
	}

	handle(h, groupMessage(adminUser, "/addfrontendquestion | What is hoisting? | Declarations move to scope top"))
	handle(h, groupMessage(normalUser, "/frontendquestions"))
	want := "List of questions:\n- What is hoisting?"
	if got := client.lastText(t); got != want {
		t.Fatalf("unexpected list: %q", got)
	}
}

func TestGiveQuestionEmptyCategory(t *testing.T) {
	h, client, _ := newTestHandler(t)

	handle(h, groupMessage(normalUser, "/givefrontendquestion"))
	if got := client.lastText(t); got != "No questions found." {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestCreateQuizSendsPoll(t *testing.T) {
	h, client, _ := newTestHandler(t)

	handle(h, groupMessage(normalUser, "/createquiz | Pick one | 1 | wrong | right"))

	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.quizzes) != 1 {
		t.Fatalf("expected one quiz, got %d", len(client.quizzes))
	}
	q := client.quizzes[0]
	if q.question != "Pick one" || q.correctIndex != 1 || len(q.options) != 2 {
		t.Fatalf("unexpected quiz: %+v", q)
	}
}

func TestCreateQuizMalformed(t *testing.T) {
	h, client, _ := newTestHandler(t)

	handle(h, groupMessage(normalUser, "/createquiz | too | few"))
	if got := client.lastText(t); !strings.HasPrefix(got, "Invalid command format. Use: /createquiz") {
		t.Fatalf("expected usage hint, got %q", got)
	}

	handle(h, groupMessage(normalUser, "/createquiz | q | 9 | a | b"))
	if got := client.lastText(t); got != "Invalid correct option ID." {
		t.Fatalf("expected correct-option error, got %q", got)
	}
}

func TestFindRole(t *testing.T) {
	h, client, _ := newTestHandler(t)

	handle(h, groupMessage(normalUser, "/findrole"))
	if got := client.lastText(t); !strings.HasPrefix(got, "Please provide a role.") {
		t.Fatalf("expected usage hint, got %q", got)
	}

	handle(h, groupMessage(normalUser, "/findrole Astronaut"))
	if got := client.lastText(t); got != "No users found with role Astronaut." {
		t.Fatalf("expected empty result reply, got %q", got)
	}

	target := &tgbotapi.User{ID: 300, UserName: "x", FirstName: "X"}
	seedMember(t, h, target)
	handle(h, groupMessage(adminUser, "/setrole @x Astronaut"))

	handle(h, groupMessage(normalUser, "/findrole astronaut"))
	got := client.lastText(t)
	if !strings.HasPrefix(got, "Found the following users with role astronaut:") || !strings.Contains(got, "@x") {
		t.Fatalf("unexpected findrole reply: %q", got)
	}
}

func TestShowAllRoles(t *testing.T) {
	h, client, _ := newTestHandler(t)

	seedMember(t, h, normalUser)
	target := &tgbotapi.User{ID: 300, UserName: "x", FirstName: "X"}
	seedMember(t, h, target)
	handle(h, groupMessage(adminUser, "/setrole @x Senior-Developer"))

	handle(h, groupMessage(normalUser, "/showallroles"))
	got := client.lastText(t)
	if !strings.HasPrefix(got, "Available roles:") ||
		!strings.Contains(got, "Newbie-Developer") ||
		!strings.Contains(got, "Senior-Developer") {
		t.Fatalf("unexpected roles reply: %q", got)
	}
}

func TestCleanupMergesLegacyDuplicates(t *testing.T) {
	h, client, db := newTestHandler(t)

	rows := []models.Member{
		{ID: 10, Username: "dup", Rating: 10, Role: "Member"},
		{ID: 11, Username: "dup", Rating: 7, Role: "Member"},
	}
	for i := range rows {
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	handle(h, groupMessage(adminUser, "/cleanup"))

	if got := client.lastText(t); got != "Cleanup completed. Merged 1 duplicate profiles." {
		t.Fatalf("unexpected cleanup reply: %q", got)
	}
	if member := memberByID(t, h, 10); member.Rating != 17 {
		t.Fatalf("expected merged rating 17, got %d", member.Rating)
	}
}

func TestRegisterAllRegistersAdministrators(t *testing.T) {
	h, client, _ := newTestHandler(t)
	client.admins = []tgbotapi.User{
		{ID: 100, UserName: "admin", FirstName: "Admin"},
		{ID: 500, UserName: "cochair", FirstName: "Co"},
		{ID: testBotID, UserName: testBotName, IsBot: true},
	}

	handle(h, groupMessage(adminUser, "/registerall"))

	if got := client.lastText(t); got != "Registered 2 chat administrators." {
		t.Fatalf("unexpected reply: %q", got)
	}
	if member := memberByID(t, h, 500); member.Role != "Admin" {
		t.Fatalf("expected Admin role, got %q", member.Role)
	}
}

func TestWeatherCommand(t *testing.T) {
	h, client, _ := newTestHandler(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"location": {"name": "Bishkek"}, "forecast": {"forecastday": [
			{"date": "2024-08-01", "day": {"avgtemp_c": 30, "condition": {"text": "Sunny"}}}
		]}}`))
	}))
	defer server.Close()
	h.weather = weather.NewServiceWithBaseURL("key", server.URL)

	handle(h, groupMessage(normalUser, "/weather"))
	if got := client.lastText(t); !strings.HasPrefix(got, "Please provide a location.") {
		t.Fatalf("expected usage hint, got %q", got)
	}

	handle(h, groupMessage(normalUser, "/weather Bishkek"))
	got := client.lastText(t)
	if !strings.HasPrefix(got, "Weather forecast for Bishkek:") || !strings.Contains(got, "Sunny") {
		t.Fatalf("unexpected forecast reply: %q", got)
	}
}

func TestWeatherFailureIsOpaque(t *testing.T) {
	h, client, _ := newTestHandler(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()
	h.weather = weather.NewServiceWithBaseURL("key", server.URL)

	handle(h, groupMessage(normalUser, "/weather Atlantis"))
	if got := client.lastText(t); got != "Failed to fetch weather data. Please try again later." {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestProfileCommand(t *testing.T) {
	h, client, _ := newTestHandler(t)

	handle(h, groupMessage(normalUser, "/profile"))
	want := "User profile @mallory:\nSocial rating: 30\nUser role: Newbie-Developer"
	if got := client.lastText(t); got != want {
		t.Fatalf("unexpected profile reply: %q", got)
	}
}
