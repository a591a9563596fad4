// Package telegram delivers municipal notifications through the Telegram
// Bot API: one message when a complaint is filed, another when the
// scheduler escalates it.
package telegram

import (
	"context"
	"fmt"
	"log"

	"civicgo/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier sends complaint notifications to a configured municipal chat.
type Notifier struct {
	BotAPI *tgbotapi.BotAPI
	ChatID int64
}

// NewNotifier authorizes the bot and targets chatID.
func NewNotifier(token string, chatID int64) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	log.Printf("Authorized municipal notifier on account %s", bot.Self.UserName)

	return &Notifier{BotAPI: bot, ChatID: chatID}, nil
}

// NotifyNewComplaint announces a freshly filed complaint.
func (n *Notifier) NotifyNewComplaint(ctx context.Context, c *models.Complaint) error {
	text := fmt.Sprintf(
		"New complaint #%d: %s\nCategory: %s, severity: %s\nLocation: %s (%s)\nResolve by: %s",
		c.ID, c.Title, c.IssueType, c.Severity, c.Address, c.City,
		c.EscalationDeadline.Format("2006-01-02 15:04"),
	)
	return n.send(ctx, text)
}

// NotifyEscalation announces a complaint that blew its SLA deadline.
func (n *Notifier) NotifyEscalation(ctx context.Context, c *models.Complaint) error {
	text := fmt.Sprintf(
		"Complaint #%d ESCALATED: %s\nCategory: %s, severity: %s\nLocation: %s (%s)\nFiled: %s, deadline was %s",
		c.ID, c.Title, c.IssueType, c.Severity, c.Address, c.City,
		c.CreatedAt.Format("2006-01-02 15:04"),
		c.EscalationDeadline.Format("2006-01-02 15:04"),
	)
	return n.send(ctx, text)
}

// send respects the caller's deadline: the Bot API client has no context
// support, so the call runs in a goroutine and the result is raced against
// ctx.
func (n *Notifier) send(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(n.ChatID, text)

	done := make(chan error, 1)
	go func() {
		_, err := n.BotAPI.Send(msg)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
