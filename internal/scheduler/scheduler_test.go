package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopbot/internal/models"
	"shopbot/internal/telegram"
)

type mockMailingSource struct {
	DueMailingsFunc      func(ctx context.Context, now time.Time) ([]models.Mailing, error)
	SetMailingStatusFunc func(ctx context.Context, id int64, status string) error
	UserIDsFunc          func(ctx context.Context) ([]int64, error)

	statuses map[int64]string
}

func (m *mockMailingSource) DueMailings(ctx context.Context, now time.Time) ([]models.Mailing, error) {
	if m.DueMailingsFunc != nil {
		return m.DueMailingsFunc(ctx, now)
	}
	return nil, nil
}

func (m *mockMailingSource) SetMailingStatus(ctx context.Context, id int64, status string) error {
	if m.SetMailingStatusFunc != nil {
		return m.SetMailingStatusFunc(ctx, id, status)
	}
	if m.statuses == nil {
		m.statuses = make(map[int64]string)
	}
	m.statuses[id] = status
	return nil
}

func (m *mockMailingSource) UserIDs(ctx context.Context) ([]int64, error) {
	if m.UserIDsFunc != nil {
		return m.UserIDsFunc(ctx)
	}
	return nil, nil
}

type mockSender struct {
	SendMessageFunc func(chatID int64, text string) error
	sent            []int64
}

func (m *mockSender) SendMessage(chatID int64, text string) error {
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(chatID, text)
	}
	m.sent = append(m.sent, chatID)
	return nil
}

func newMailer(store *mockMailingSource, sender *mockSender) *Mailer {
	return &Mailer{
		Store:  store,
		Sender: sender,
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func TestMailerCompletesWhenAnyRecipientReached(t *testing.T) {
	store := &mockMailingSource{
		DueMailingsFunc: func(ctx context.Context, now time.Time) ([]models.Mailing, error) {
			return []models.Mailing{{ID: 1, Content: "привет"}}, nil
		},
		UserIDsFunc: func(ctx context.Context) ([]int64, error) {
			return []int64{100, 200, 300}, nil
		},
	}
	sender := &mockSender{
		SendMessageFunc: func(chatID int64, text string) error {
			if chatID == 200 {
				return errors.New("blocked by user")
			}
			return nil
		},
	}
	m := newMailer(store, sender)

	require.NoError(t, m.RunCycle(context.Background()))
	assert.Equal(t, models.MailingCompleted, store.statuses[1])
}

func TestMailerFailsWithNoRecipients(t *testing.T) {
	store := &mockMailingSource{
		DueMailingsFunc: func(ctx context.Context, now time.Time) ([]models.Mailing, error) {
			return []models.Mailing{{ID: 2, Content: "привет"}}, nil
		},
	}
	sender := &mockSender{}
	m := newMailer(store, sender)

	require.NoError(t, m.RunCycle(context.Background()))
	assert.Equal(t, models.MailingFailed, store.statuses[2])
	assert.Empty(t, sender.sent)
}

func TestMailerFailsWhenAllSendsFail(t *testing.T) {
	store := &mockMailingSource{
		DueMailingsFunc: func(ctx context.Context, now time.Time) ([]models.Mailing, error) {
			return []models.Mailing{{ID: 3, Content: "привет"}}, nil
		},
		UserIDsFunc: func(ctx context.Context) ([]int64, error) {
			return []int64{100, 200}, nil
		},
	}
	sender := &mockSender{
		SendMessageFunc: func(chatID int64, text string) error {
			return errors.New("blocked by user")
		},
	}
	m := newMailer(store, sender)

	require.NoError(t, m.RunCycle(context.Background()))
	assert.Equal(t, models.MailingFailed, store.statuses[3])
}

func TestMailerConflictAbortsCycleWithoutFinalizing(t *testing.T) {
	store := &mockMailingSource{
		DueMailingsFunc: func(ctx context.Context, now time.Time) ([]models.Mailing, error) {
			return []models.Mailing{{ID: 4, Content: "привет"}}, nil
		},
		UserIDsFunc: func(ctx context.Context) ([]int64, error) {
			return []int64{100, 200}, nil
		},
	}
	sender := &mockSender{
		SendMessageFunc: func(chatID int64, text string) error {
			return telegram.ErrConflict
		},
	}
	m := newMailer(store, sender)

	err := m.RunCycle(context.Background())
	assert.ErrorIs(t, err, telegram.ErrConflict)
	assert.Empty(t, store.statuses, "an aborted mailing stays scheduled for the next run")
}

type mockSupportSource struct {
	tickets []models.SupportRequest
	deleted []int64
}

func (m *mockSupportSource) SupportRequests(ctx context.Context) ([]models.SupportRequest, error) {
	return m.tickets, nil
}

func (m *mockSupportSource) DeleteSupportRequest(ctx context.Context, id int64) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type mockTicketSender struct {
	SendSupportTicketFunc func(chatID int64, ticket models.SupportRequest) error
	sent                  []int64
}

func (m *mockTicketSender) SendSupportTicket(chatID int64, ticket models.SupportRequest) error {
	if m.SendSupportTicketFunc != nil {
		return m.SendSupportTicketFunc(chatID, ticket)
	}
	m.sent = append(m.sent, chatID)
	return nil
}

func TestSupportNotifierFansOutToAllOperators(t *testing.T) {
	store := &mockSupportSource{
		tickets: []models.SupportRequest{
			{ID: 1, UserID: 100, Username: "ivan", Content: "где мой заказ?"},
			{ID: 2, UserID: 200, Username: "anna", Content: "не работает промокод"},
		},
	}
	sender := &mockTicketSender{}
	n := &SupportNotifier{Store: store, Sender: sender, AdminIDs: []int64{10, 20}, Logger: zerolog.Nop()}

	require.NoError(t, n.RunCycle(context.Background()))
	assert.Equal(t, []int64{10, 20, 10, 20}, sender.sent)
	assert.Equal(t, []int64{1, 2}, store.deleted)
}

func TestSupportNotifierDeletesTicketEvenWhenDeliveryFails(t *testing.T) {
	store := &mockSupportSource{
		tickets: []models.SupportRequest{{ID: 1, UserID: 100, Content: "помогите"}},
	}
	sender := &mockTicketSender{
		SendSupportTicketFunc: func(chatID int64, ticket models.SupportRequest) error {
			return errors.New("chat not found")
		},
	}
	n := &SupportNotifier{Store: store, Sender: sender, AdminIDs: []int64{10}, Logger: zerolog.Nop()}

	require.NoError(t, n.RunCycle(context.Background()))
	assert.Equal(t, []int64{1}, store.deleted)
}

func TestSupportNotifierConflictAbortsBeforeDelete(t *testing.T) {
	store := &mockSupportSource{
		tickets: []models.SupportRequest{{ID: 1, UserID: 100, Content: "помогите"}},
	}
	sender := &mockTicketSender{
		SendSupportTicketFunc: func(chatID int64, ticket models.SupportRequest) error {
			return telegram.ErrConflict
		},
	}
	n := &SupportNotifier{Store: store, Sender: sender, AdminIDs: []int64{10}, Logger: zerolog.Nop()}

	err := n.RunCycle(context.Background())
	assert.ErrorIs(t, err, telegram.ErrConflict)
	assert.Empty(t, store.deleted)
}
