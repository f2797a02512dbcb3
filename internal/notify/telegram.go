// Package notify sends Telegram digests when events change phase: an event
// entering the imminent window or going live produces one alert, deduplicated
// per (event, phase) within a cooldown so restarts and overlapping polls do
// not spam the chat.
package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/Azevedu-Apps/pogo-events/internal/classifier"
	"github.com/Azevedu-Apps/pogo-events/internal/logger"
	"github.com/Azevedu-Apps/pogo-events/internal/models"
)

// Alert is one phase transition worth announcing.
type Alert struct {
	ID      string
	Event   models.Event
	Phase   classifier.Bucket // Live or Imminent
	Created time.Time
}

// sender abstracts the Telegram bot API for tests.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier formats and delivers alerts.
type Notifier struct {
	bot        sender
	chatID     int64
	cooldown   time.Duration
	retryDelay time.Duration

	// sent tracks the last delivery per event+phase for cooldown dedupe.
	sent map[string]time.Time
}

// New creates a Notifier backed by the Telegram Bot API.
func New(botToken, chatID string, cooldown time.Duration) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}
	if cooldown <= 0 {
		cooldown = 6 * time.Hour
	}
	return &Notifier{
		bot:        bot,
		chatID:     chatIDInt,
		cooldown:   cooldown,
		retryDelay: time.Second,
		sent:       make(map[string]time.Time),
	}, nil
}

// CollectAlerts compares a classified result against the cooldown ledger and
// returns the alerts due now: every live or imminent event not announced in
// its current phase within the cooldown window.
func (n *Notifier) CollectAlerts(r classifier.Ranked, now time.Time) []Alert {
	var alerts []Alert
	consider := func(events []models.Event, phase classifier.Bucket) {
		for _, e := range events {
			key := e.ID + "|" + phase.String()
			if last, ok := n.sent[key]; ok && now.Sub(last) < n.cooldown {
				continue
			}
			alerts = append(alerts, Alert{
				ID:      uuid.New().String(),
				Event:   e,
				Phase:   phase,
				Created: now,
			})
		}
	}
	consider(r.Live, classifier.Live)
	consider(r.Imminent, classifier.Imminent)
	return alerts
}

// Send delivers one digest message covering all alerts, retrying up to three
// times, and records the deliveries for cooldown dedupe only on success.
func (n *Notifier) Send(alerts []Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	msg := tgbotapi.NewMessage(n.chatID, formatDigest(alerts))
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < 3; i++ {
		_, err := n.bot.Send(msg)
		if err == nil {
			for _, a := range alerts {
				n.sent[a.Event.ID+"|"+a.Phase.String()] = a.Created
				logger.Debug("notified %s (%s), alert %s", a.Event.ID, a.Phase, a.ID)
			}
			return nil
		}
		lastErr = err
		time.Sleep(n.retryDelay * time.Duration(i+1))
	}
	return fmt.Errorf("failed to send digest after 3 retries: %w", lastErr)
}

// formatDigest renders alerts as a MarkdownV2 message.
func formatDigest(alerts []Alert) string {
	var b strings.Builder
	b.WriteString("*Pokémon GO event update*\n\n")

	for _, a := range alerts {
		name := escapeMarkdownV2(a.Event.Name)
		switch a.Phase {
		case classifier.Live:
			until := escapeMarkdownV2(a.Event.End.Format("15:04"))
			fmt.Fprintf(&b, "🔴 *%s* is live now \\(until %s\\)\n", name, until)
		default:
			starts := escapeMarkdownV2(a.Event.Start.Format("Mon 15:04"))
			fmt.Fprintf(&b, "🕑 *%s* starts %s\n", name, starts)
		}
		if a.Event.Type != "" {
			fmt.Fprintf(&b, "    %s\n", escapeMarkdownV2(a.Event.Type))
		}
	}
	return b.String()
}

// escapeMarkdownV2 escapes the special characters of Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	for _, r := range text {
		switch r {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
