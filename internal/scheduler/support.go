package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"shopbot/internal/models"
	"shopbot/internal/telegram"
)

// TicketSender delivers one support ticket to one operator chat. The admin
// bot implements it with an inline block-user button attached.
type TicketSender interface {
	SendSupportTicket(chatID int64, ticket models.SupportRequest) error
}

type SupportSource interface {
	SupportRequests(ctx context.Context) ([]models.SupportRequest, error)
	DeleteSupportRequest(ctx context.Context, id int64) error
}

// SupportNotifier drains the support inbox to every operator. Tickets are
// deleted after the delivery attempt whether or not any send succeeded, so
// each ticket is announced at most once.
type SupportNotifier struct {
	Store    SupportSource
	Sender   TicketSender
	AdminIDs []int64
	Delay    time.Duration
	Logger   zerolog.Logger
}

func (n *SupportNotifier) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := n.RunCycle(ctx); err != nil {
				if errors.Is(err, telegram.ErrConflict) {
					n.Logger.Error().Err(err).Msg("support loop stopped: another bot instance is polling")
					return
				}
				n.Logger.Error().Err(err).Msg("support cycle failed")
			}
		}
	}
}

func (n *SupportNotifier) RunCycle(ctx context.Context) error {
	tickets, err := n.Store.SupportRequests(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch support tickets: %w", err)
	}

	for _, ticket := range tickets {
		for _, adminID := range n.AdminIDs {
			if err := n.Sender.SendSupportTicket(adminID, ticket); err != nil {
				if errors.Is(err, telegram.ErrConflict) {
					return err
				}
				n.Logger.Warn().Err(err).
					Int64("ticket_id", ticket.ID).
					Int64("admin_id", adminID).
					Msg("failed to deliver support ticket to operator")
			}
			n.pause(ctx)
		}
		if err := n.Store.DeleteSupportRequest(ctx, ticket.ID); err != nil {
			return fmt.Errorf("failed to delete delivered ticket %d: %w", ticket.ID, err)
		}
	}
	return nil
}

func (n *SupportNotifier) pause(ctx context.Context) {
	if n.Delay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(n.Delay):
	}
}
