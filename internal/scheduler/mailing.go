// Package scheduler runs the background delivery loops: scheduled mailings
// and the support-ticket inbox.
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

// Sender is the slice of the transport the delivery loops need.
type Sender interface {
	SendMessage(chatID int64, text string) error
}

type MailingSource interface {
	DueMailings(ctx context.Context, now time.Time) ([]models.Mailing, error)
	SetMailingStatus(ctx context.Context, id int64, status string) error
	UserIDs(ctx context.Context) ([]int64, error)
}

// Mailer delivers due mailings to every known user. A mailing with no
// recipients fails; one delivered to at least one user completes.
type Mailer struct {
	Store  MailingSource
	Sender Sender
	Delay  time.Duration
	Now    func() time.Time
	Logger zerolog.Logger
}

// Run polls for due mailings until the context is cancelled. A transport
// conflict stops the loop: a second consumer on the same token would corrupt
// both processes.
func (m *Mailer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.RunCycle(ctx); err != nil {
				if errors.Is(err, telegram.ErrConflict) {
					m.Logger.Error().Err(err).Msg("mailing loop stopped: another bot instance is polling")
					return
				}
				m.Logger.Error().Err(err).Msg("mailing cycle failed")
			}
		}
	}
}

// RunCycle processes every mailing that has come due.
func (m *Mailer) RunCycle(ctx context.Context) error {
	now := m.now()
	mailings, err := m.Store.DueMailings(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to fetch due mailings: %w", err)
	}

	for _, mailing := range mailings {
		if err := m.deliver(ctx, mailing); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mailer) deliver(ctx context.Context, mailing models.Mailing) error {
	userIDs, err := m.Store.UserIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list mailing recipients: %w", err)
	}
	if len(userIDs) == 0 {
		m.Logger.Warn().Int64("mailing_id", mailing.ID).Msg("mailing has no recipients")
		return m.Store.SetMailingStatus(ctx, mailing.ID, models.MailingFailed)
	}

	delivered := 0
	for _, userID := range userIDs {
		if err := m.Sender.SendMessage(userID, mailing.Content); err != nil {
			if errors.Is(err, telegram.ErrConflict) {
				return err
			}
			m.Logger.Warn().Err(err).
				Int64("mailing_id", mailing.ID).
				Int64("user_id", userID).
				Msg("failed to deliver mailing to user")
		} else {
			delivered++
		}
		m.pause(ctx)
	}

	status := models.MailingCompleted
	if delivered == 0 {
		status = models.MailingFailed
	}
	if err := m.Store.SetMailingStatus(ctx, mailing.ID, status); err != nil {
		return fmt.Errorf("failed to finalize mailing %d: %w", mailing.ID, err)
	}
	m.Logger.Info().
		Int64("mailing_id", mailing.ID).
		Int("delivered", delivered).
		Int("recipients", len(userIDs)).
		Str("status", status).
		Msg("mailing processed")
	return nil
}

func (m *Mailer) pause(ctx context.Context) {
	if m.Delay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(m.Delay):
	}
}

func (m *Mailer) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}
