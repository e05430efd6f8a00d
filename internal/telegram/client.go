// Package telegram provides a client for sending notifications via Telegram Bot API.
// It formats due and overdue reminders into human-readable messages and handles
// delivery with retry logic for reliability.
//
// Messages use MarkdownV2, so every piece of user text (event names in
// particular) goes through escapeMarkdownV2.
package telegram

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/everyday/internal/reminder"
	"github.com/rewired-gh/everyday/internal/stats"
)

// sender is the part of the bot API the client uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client handles Telegram notifications
type Client struct {
	bot            sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
	sleep          func(time.Duration)
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return newClient(bot, chatID, maxRetries, retryDelayBase)
}

func newClient(bot sender, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
		sleep:          time.Sleep,
	}, nil
}

// Send sends a notification listing the given reminders
func (c *Client) Send(reminders []reminder.Reminder, now time.Time) error {
	if len(reminders) == 0 {
		return nil
	}
	return c.sendText(formatMessage(reminders, now))
}

// SendError reports a failed scan cycle.
func (c *Client) SendError(err error) error {
	text := "⚠️ *Reminder scan failed*\n\n" + escapeMarkdownV2(err.Error())
	return c.sendText(text)
}

// SendRecovery reports that scanning works again after failures cycles.
func (c *Client) SendRecovery(failures int) error {
	text := fmt.Sprintf("✅ *Reminder scan recovered* after %d failed %s",
		failures, plural(failures, "cycle", "cycles"))
	return c.sendText(text)
}

func (c *Client) sendText(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	// Send with retry
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		if i < c.maxRetries-1 {
			c.sleep(c.retryDelayBase * time.Duration(i+1))
		}
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

// formatMessage formats reminders into a Telegram message
func formatMessage(reminders []reminder.Reminder, now time.Time) string {
	var b strings.Builder
	b.WriteString("⏰ *Everyday reminders*\n\n")
	fmt.Fprintf(&b, "📅 Checked: %s\n\n", escapeMarkdownV2(now.Format("2006-01-02 15:04")))

	for i, r := range reminders {
		st := r.Stats
		fmt.Fprintf(&b, "%d\\. *%s*\n", i+1, escapeMarkdownV2(r.Event.Name))

		switch r.Status {
		case reminder.StatusOverdue:
			late := math.Abs(*st.DueInDays)
			fmt.Fprintf(&b, "   🔴 Overdue by %s\n", escapeMarkdownV2(stats.FormatInterval(&late, st.Unit)))
		case reminder.StatusDueSoon:
			fmt.Fprintf(&b, "   🟡 Due in %s\n", escapeMarkdownV2(st.FormatDueIn()))
		}

		if st.LastDate != nil {
			ago := now.Sub(*st.LastDate)
			if ago < 0 {
				ago = 0
			}
			fmt.Fprintf(&b, "   🕒 Last: %s\n", escapeMarkdownV2(stats.ReadableAgo(ago, st.Unit)))
		}
		fmt.Fprintf(&b, "   🔁 Cycle: %s\n\n", escapeMarkdownV2(st.FormatCycle()))
	}

	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	// Characters that need escaping in MarkdownV2:
	// _ * [ ] ( ) ~ ` > # + - = | { } . ! \
	var b strings.Builder
	b.Grow(len(text))
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
