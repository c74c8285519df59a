package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/gommon/log"

	"bus-checkin/internal/models"
)

// Backend answers the read-only bot commands
type Backend interface {
	ListByBus(ctx context.Context, busNumber string) ([]models.PublicUser, error)
	MonthlySummary(ctx context.Context, userID string, month, year int) (*models.MonthlySummary, error)
}

const commandTimeout = 10 * time.Second

var (
	bot          *tgbotapi.BotAPI
	targetChatID int64
	backend      Backend
	location     = time.Local
	nowFunc      = time.Now
)

// SetBackend sets the services used by /roster and /summary
func SetBackend(b Backend) {
	backend = b
}

// SetLocation sets the zone /summary uses for the current month
func SetLocation(loc *time.Location) {
	if loc != nil {
		location = loc
	}
}

// Init initializes the Telegram Bot
func Init(token string, authorizedChatIDStr string) error {
	if token == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN not set")
	}

	var err error
	bot, err = tgbotapi.NewBotAPI(token)
	if err != nil {
		return err
	}

	bot.Debug = false
	log.Infof("Authorized on account %s", bot.Self.UserName)

	if authorizedChatIDStr != "" {
		id, err := strconv.ParseInt(authorizedChatIDStr, 10, 64)
		if err == nil {
			targetChatID = id
		}
	}

	return nil
}

// StartPolling starts the update loop
func StartPolling() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := bot.GetUpdatesChan(u)

	go func() {
		for update := range updates {
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}

			msg := tgbotapi.NewMessage(update.Message.Chat.ID, "")
			msg.ParseMode = "Markdown"
			msg.Text = handleCommand(update.Message.Command(), update.Message.CommandArguments(), update.Message.Chat.ID)

			if _, err := bot.Send(msg); err != nil {
				log.Warnf("Bot send error: %v", err)
			}
		}
	}()
}

// StopPolling stops receiving updates
func StopPolling() {
	if bot != nil {
		bot.StopReceivingUpdates()
	}
}

func handleCommand(command, args string, chatID int64) string {
	switch command {
	case "start":
		return "🚌 *Bus check-in*\n\n" +
			"*Commands:*\n" +
			"/roster <bus> - riders on a bus\n" +
			"/summary <userId> [month] [year] - monthly attendance\n" +
			"/getid - this chat's id"

	case "getid":
		return fmt.Sprintf("Chat ID: `%d`", chatID)

	case "roster":
		if !authorized(chatID) {
			return unauthorizedReply
		}
		return handleRoster(strings.Fields(args))

	case "summary":
		if !authorized(chatID) {
			return unauthorizedReply
		}
		return handleSummary(strings.Fields(args))
	}
	return "Unknown command, use /start"
}

const unauthorizedReply = "⛔ This chat is not authorized"

// authorized reports whether chatID is the configured admin chat.
// Rider data is never served when no admin chat is configured.
func authorized(chatID int64) bool {
	return targetChatID != 0 && chatID == targetChatID
}

// escape makes a value safe to place outside entities in a Markdown message.
func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func handleRoster(args []string) string {
	if len(args) != 1 {
		return "Usage: `/roster <bus>`"
	}
	if backend == nil {
		return "❌ Service unavailable"
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	users, err := backend.ListByBus(ctx, args[0])
	if err != nil {
		return "❌ Error: " + escape(err.Error())
	}
	if len(users) == 0 {
		return fmt.Sprintf("No riders on bus `%s`", args[0])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🚌 Bus `%s` (%d riders)\n", args[0], len(users))
	for _, u := range users {
		mark := "⬜"
		if u.AttendanceStatus == models.StatusPresent {
			mark = "✅"
		}
		fmt.Fprintf(&b, "%s %s (`%s`)\n", mark, escape(u.Name), u.UserID)
	}
	return b.String()
}

func handleSummary(args []string) string {
	if len(args) < 1 || len(args) > 3 {
		return "Usage: `/summary <userId> [month] [year]`"
	}
	if backend == nil {
		return "❌ Service unavailable"
	}

	now := nowFunc().In(location)
	month, year := int(now.Month()), now.Year()
	var err error
	if len(args) > 1 {
		if month, err = strconv.Atoi(args[1]); err != nil {
			return "❌ month must be a number"
		}
	}
	if len(args) > 2 {
		if year, err = strconv.Atoi(args[2]); err != nil {
			return "❌ year must be a number"
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	summary, err := backend.MonthlySummary(ctx, args[0], month, year)
	if err != nil {
		return "❌ Error: " + escape(err.Error())
	}
	return fmt.Sprintf("📅 `%s` %02d/%d\nPresent: %d\nAbsent: %d\nDays: %d",
		summary.UserID, summary.Month, summary.Year, summary.PresentDays, summary.AbsentDays, summary.TotalDays)
}

// SendNotification sends message to admin
func SendNotification(message string) {
	if bot == nil || targetChatID == 0 {
		return
	}
	msg := tgbotapi.NewMessage(targetChatID, message)
	msg.ParseMode = "Markdown"
	if _, err := bot.Send(msg); err != nil {
		log.Warnf("Failed to send: %v", err)
	}
}

// SendPersonalNotification sends to specific user
func SendPersonalNotification(chatID int64, message string) {
	if bot == nil {
		return
	}
	msg := tgbotapi.NewMessage(chatID, message)
	msg.ParseMode = "Markdown"
	if _, err := bot.Send(msg); err != nil {
		log.Warnf("Failed to send to %d: %v", chatID, err)
	}
}
