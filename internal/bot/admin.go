package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"shopbot/internal/config"
	"shopbot/internal/flow"
	"shopbot/internal/models"
	"shopbot/internal/service"
	"shopbot/internal/session"
	"shopbot/internal/telegram"
)

const (
	menuAddProduct    = "➕ Добавить товар"
	menuDeleteProduct = "🗑 Удалить товар"
	menuCategories    = "🗂 Категории"
	menuPromotions    = "📣 Акции"
	menuAddPromotion  = "➕ Добавить акцию"
	menuPromoCodes    = "🎟 Промокоды"
	menuAddPromoCode  = "➕ Добавить промокод"
	menuMailings      = "📬 Рассылки"
	menuAddMailing    = "➕ Новая рассылка"
	menuSupportInbox  = "📨 Обращения"
	menuStats         = "📊 Статистика"
	menuExport        = "📤 Выгрузить в таблицу"
	menuSettings      = "⚙️ Настройки"

	msgAdminMenu    = "Панель администратора. Выберите действие:"
	msgNotAllowed   = "Этот бот доступен только администраторам."
	msgSomethingOff = "Что-то пошло не так. Попробуйте ещё раз."
)

var adminMenu = []string{
	menuAddProduct, menuDeleteProduct, menuCategories,
	menuPromotions, menuAddPromotion,
	menuPromoCodes, menuAddPromoCode,
	menuMailings, menuAddMailing,
	menuSupportInbox,
	menuStats, menuExport, menuSettings,
}

// AdminBot is the operator console: catalog and promo management through
// wizards, moderation, mailings and analytics.
type AdminBot struct {
	client   *telegram.Client
	svc      *service.AdminService
	engine   *flow.Engine
	sessions session.Store
	cfg      *config.Config
	logger   zerolog.Logger
}

func NewAdminBot(client *telegram.Client, svc *service.AdminService, engine *flow.Engine, sessions session.Store, cfg *config.Config, logger zerolog.Logger) *AdminBot {
	return &AdminBot{
		client:   client,
		svc:      svc,
		engine:   engine,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
	}
}

func (b *AdminBot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	var err error
	switch {
	case update.CallbackQuery != nil:
		err = b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		err = b.handleMessage(ctx, update.Message)
	default:
		return
	}
	if err != nil {
		b.logger.Error().Err(err).Msg("admin update failed")
	}
}

func (b *AdminBot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	userID := msg.From.ID
	if !b.cfg.IsAdmin(userID) {
		return b.client.SendMessage(msg.Chat.ID, msgNotAllowed)
	}

	text := msg.Text
	if text == "/start" || isAdminMenuButton(text) {
		if err := b.sessions.Delete(ctx, userID); err != nil {
			b.logger.Warn().Err(err).Int64("user_id", userID).Msg("failed to drop session")
		}
		return b.handleMenu(ctx, msg.Chat.ID, text)
	}

	state, err := b.sessions.Get(ctx, userID)
	if err != nil {
		return err
	}
	if state == nil {
		return b.sendMenu(msg.Chat.ID)
	}

	in := flow.Input{Text: text, PhotoID: photoID(msg), ChoiceID: menuChoiceID(text)}
	out, err := b.engine.Advance(ctx, state, in)
	if err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Str("step", string(state.Step)).Msg("wizard turn failed")
		if delErr := b.sessions.Delete(ctx, userID); delErr != nil {
			b.logger.Warn().Err(delErr).Int64("user_id", userID).Msg("failed to drop session")
		}
		return b.client.SendMessage(msg.Chat.ID, msgSomethingOff)
	}
	return b.renderOutcome(ctx, msg.Chat.ID, userID, out)
}

func (b *AdminBot) handleMenu(ctx context.Context, chatID int64, text string) error {
	switch text {
	case "/start":
		return b.sendMenu(chatID)
	case menuAddProduct:
		return b.startWizard(ctx, chatID, flow.KindProduct)
	case menuAddPromotion:
		return b.startWizard(ctx, chatID, flow.KindPromotion)
	case menuAddPromoCode:
		return b.startWizard(ctx, chatID, flow.KindPromoCode)
	case menuAddMailing:
		return b.startWizard(ctx, chatID, flow.KindMailing)
	case menuDeleteProduct:
		return b.listProductsForDeletion(ctx, chatID)
	case menuCategories:
		return b.listCategories(ctx, chatID)
	case menuPromotions:
		return b.listPromotions(ctx, chatID)
	case menuPromoCodes:
		return b.listPromoCodes(ctx, chatID)
	case menuMailings:
		return b.listMailings(ctx, chatID)
	case menuSupportInbox:
		return b.listSupportTickets(ctx, chatID)
	case menuStats:
		return b.sendStats(ctx, chatID)
	case menuExport:
		return b.exportStats(ctx, chatID)
	case menuSettings:
		return b.sendSettings(ctx, chatID)
	}
	return b.sendMenu(chatID)
}

func (b *AdminBot) sendMenu(chatID int64) error {
	return b.client.SendWithKeyboard(chatID, msgAdminMenu, adminMenu)
}

func (b *AdminBot) startWizard(ctx context.Context, chatID int64, kind flow.Kind) error {
	out, err := b.engine.Start(ctx, kind)
	if err != nil {
		return err
	}
	return b.renderOutcome(ctx, chatID, chatID, out)
}

// renderOutcome persists or drops the session per the wizard's verdict and
// sends the next prompt.
func (b *AdminBot) renderOutcome(ctx context.Context, chatID, userID int64, out flow.Outcome) error {
	if out.Next != nil {
		if err := b.sessions.Put(ctx, userID, out.Next); err != nil {
			return err
		}
		return b.client.SendWithKeyboard(chatID, out.Reply, out.Options)
	}

	if err := b.sessions.Delete(ctx, userID); err != nil {
		b.logger.Warn().Err(err).Int64("user_id", userID).Msg("failed to drop session")
	}
	if err := b.client.SendMessage(chatID, out.Reply); err != nil {
		return err
	}
	return b.sendMenu(chatID)
}

func (b *AdminBot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if err := b.client.AnswerCallback(cb.ID); err != nil {
		b.logger.Warn().Err(err).Msg("failed to answer callback")
	}
	if !b.cfg.IsAdmin(cb.From.ID) {
		return nil
	}
	chatID := cb.Message.Chat.ID

	action, err := DecodeAction(cb.Data)
	if err != nil {
		b.logger.Warn().Str("data", cb.Data).Msg("unknown admin callback")
		return nil
	}

	switch action.Kind {
	case ActionDeleteProduct:
		if err := b.svc.DeleteProduct(ctx, action.ID); err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return b.client.SendMessage(chatID, "Товар уже удалён.")
			}
			return err
		}
		return b.client.SendMessage(chatID, "Товар удалён ✅")
	case ActionDeleteCategory:
		if err := b.svc.DeleteCategory(ctx, action.ID); err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return b.client.SendMessage(chatID, "Категория уже удалена.")
			}
			return err
		}
		return b.client.SendMessage(chatID, "Категория и её товары удалены ✅")
	case ActionDeletePromotion:
		if err := b.svc.DeletePromotion(ctx, action.ID); err != nil && !errors.Is(err, service.ErrNotFound) {
			return err
		}
		return b.client.SendMessage(chatID, "Акция удалена ✅")
	case ActionDeletePromoCode:
		if err := b.svc.DeactivatePromoCode(ctx, action.ID); err != nil && !errors.Is(err, service.ErrNotFound) {
			return err
		}
		return b.client.SendMessage(chatID, "Промокод отключён ✅")
	case ActionDeleteMailing:
		if err := b.svc.DeleteMailing(ctx, action.ID); err != nil && !errors.Is(err, service.ErrNotFound) {
			return err
		}
		return b.client.SendMessage(chatID, "Рассылка отменена ✅")
	case ActionDeleteTicket:
		if err := b.svc.DeleteSupportTicket(ctx, action.ID); err != nil {
			return err
		}
		return b.client.SendMessage(chatID, "Обращение закрыто ✅")
	case ActionBlockUser:
		if err := b.svc.BlockUser(ctx, action.ID); err != nil {
			return err
		}
		return b.client.SendMessage(chatID, fmt.Sprintf("Пользователь %d заблокирован 🚫", action.ID))
	case ActionToggleKeyboard:
		restricted, err := b.svc.KeyboardRestricted(ctx)
		if err != nil {
			return err
		}
		if err := b.svc.SetKeyboardRestricted(ctx, !restricted); err != nil {
			return err
		}
		return b.sendSettings(ctx, chatID)
	case ActionBackToMain:
		return b.sendMenu(chatID)
	}
	b.logger.Warn().Str("data", cb.Data).Msg("unhandled admin callback")
	return nil
}

func (b *AdminBot) listProductsForDeletion(ctx context.Context, chatID int64) error {
	products, err := b.svc.Products(ctx)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		return b.client.SendMessage(chatID, "Товаров пока нет.")
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(products))
	for _, p := range products {
		label := fmt.Sprintf("%s — %.2f ₽", p.Name, p.Price)
		data := Action{Kind: ActionDeleteProduct, ID: p.ID}.Encode()
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, data)))
	}
	return b.client.SendInline(chatID, "Выберите товар для удаления:", tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *AdminBot) listCategories(ctx context.Context, chatID int64) error {
	categories, err := b.svc.Categories(ctx)
	if err != nil {
		return err
	}
	if len(categories) == 0 {
		return b.client.SendMessage(chatID, "Категорий пока нет.")
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(categories))
	for _, c := range categories {
		count, err := b.svc.ProductCount(ctx, c.ID)
		if err != nil {
			return err
		}
		label := fmt.Sprintf("🗑 %s (%d)", c.Name, count)
		data := Action{Kind: ActionDeleteCategory, ID: c.ID}.Encode()
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, data)))
	}
	return b.client.SendInline(chatID, "Категории. Нажмите, чтобы удалить вместе с товарами:",
		tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *AdminBot) listPromotions(ctx context.Context, chatID int64) error {
	promotions, err := b.svc.Promotions(ctx)
	if err != nil {
		return err
	}
	if len(promotions) == 0 {
		return b.client.SendMessage(chatID, "Акций пока нет.")
	}
	for _, p := range promotions {
		text := fmt.Sprintf("%s\n%s\nС %s по %s",
			p.Name, p.Description, p.StartDate.Format("02.01.2006"), p.EndDate.Format("02.01.2006"))
		keyboard := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить", Action{Kind: ActionDeletePromotion, ID: p.ID}.Encode())))
		if err := b.client.SendInline(chatID, text, keyboard); err != nil {
			return err
		}
	}
	return nil
}

func (b *AdminBot) listPromoCodes(ctx context.Context, chatID int64) error {
	codes, err := b.svc.PromoCodes(ctx)
	if err != nil {
		return err
	}
	if len(codes) == 0 {
		return b.client.SendMessage(chatID, "Промокодов пока нет.")
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(codes))
	for _, c := range codes {
		label := fmt.Sprintf("%s — %d%% на %s", c.Code, c.DiscountPercentage, c.ProductName)
		data := Action{Kind: ActionDeletePromoCode, ID: c.ID}.Encode()
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, data)))
	}
	return b.client.SendInline(chatID, "Промокоды. Нажмите, чтобы удалить:",
		tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *AdminBot) listMailings(ctx context.Context, chatID int64) error {
	mailings, err := b.svc.Mailings(ctx)
	if err != nil {
		return err
	}
	if len(mailings) == 0 {
		return b.client.SendMessage(chatID, "Рассылок пока нет.")
	}
	for _, m := range mailings {
		text := fmt.Sprintf("#%d [%s] на %s\n\n%s",
			m.ID, mailingStatusLabel(m.Status), m.SendAt.Format("02.01.2006 15:04"), m.Content)
		if m.Status != models.MailingScheduled {
			if err := b.client.SendMessage(chatID, text); err != nil {
				return err
			}
			continue
		}
		keyboard := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Отменить", Action{Kind: ActionDeleteMailing, ID: m.ID}.Encode())))
		if err := b.client.SendInline(chatID, text, keyboard); err != nil {
			return err
		}
	}
	return nil
}

// listSupportTickets shows the pending inbox in creation order, each ticket
// with close and block buttons.
func (b *AdminBot) listSupportTickets(ctx context.Context, chatID int64) error {
	tickets, err := b.svc.SupportTickets(ctx)
	if err != nil {
		return err
	}
	if len(tickets) == 0 {
		return b.client.SendMessage(chatID, "Обращений пока нет.")
	}
	for _, ticket := range tickets {
		text := supportTicketText(ticket)
		keyboard := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Закрыть",
				Action{Kind: ActionDeleteTicket, ID: ticket.ID}.Encode()),
			tgbotapi.NewInlineKeyboardButtonData("🚫 Заблокировать",
				Action{Kind: ActionBlockUser, ID: ticket.UserID, Extra: ticket.ID}.Encode())))
		if err := b.client.SendInline(chatID, text, keyboard); err != nil {
			return err
		}
	}
	return nil
}

func mailingStatusLabel(status string) string {
	switch status {
	case models.MailingScheduled:
		return "запланирована"
	case models.MailingCompleted:
		return "отправлена"
	case models.MailingFailed:
		return "не доставлена"
	}
	return status
}

func (b *AdminBot) sendStats(ctx context.Context, chatID int64) error {
	metrics, err := b.svc.MetricsBundle(ctx)
	if err != nil {
		return err
	}
	userCount, err := b.svc.UserCount(ctx)
	if err != nil {
		return err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 Статистика за 30 дней\n\nПользователей: %d\n", userCount)

	sb.WriteString("\nПродажи по дням:\n")
	if len(metrics.Sales) == 0 {
		sb.WriteString("  нет данных\n")
	}
	for _, s := range metrics.Sales {
		fmt.Fprintf(&sb, "  %s — %d\n", s.Date, s.TotalSales)
	}

	sb.WriteString("\nПопулярные товары:\n")
	if len(metrics.TopProducts) == 0 {
		sb.WriteString("  нет данных\n")
	}
	for _, p := range metrics.TopProducts {
		fmt.Fprintf(&sb, "  %s — %d\n", p.ProductName, p.TotalSold)
	}

	return b.client.SendMessage(chatID, sb.String())
}

func (b *AdminBot) exportStats(ctx context.Context, chatID int64) error {
	_, err := b.svc.ExportMetrics(ctx)
	if err != nil {
		if errors.Is(err, service.ErrNoSpreadsheet) {
			return b.client.SendMessage(chatID, "Таблица для выгрузки не настроена.")
		}
		return err
	}
	return b.client.SendMessage(chatID, "Статистика выгружена в таблицу ✅")
}

func (b *AdminBot) sendSettings(ctx context.Context, chatID int64) error {
	restricted, err := b.svc.KeyboardRestricted(ctx)
	if err != nil {
		return err
	}
	stateLabel := "для всех"
	toggleLabel := "Ограничить администраторами"
	if restricted {
		stateLabel = "только для администраторов"
		toggleLabel = "Открыть для всех"
	}
	text := fmt.Sprintf("⚙️ Настройки\n\nКлавиатура магазина: %s", stateLabel)
	keyboard := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(toggleLabel, Action{Kind: ActionToggleKeyboard}.Encode())))
	return b.client.SendInline(chatID, text, keyboard)
}

// SendSupportTicket delivers one ticket to one operator with a block button
// attached. It satisfies the support loop's sender contract.
func (b *AdminBot) SendSupportTicket(chatID int64, ticket models.SupportRequest) error {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🚫 Заблокировать",
			Action{Kind: ActionBlockUser, ID: ticket.UserID, Extra: ticket.ID}.Encode())))
	return b.client.SendInline(chatID, supportTicketText(ticket), keyboard)
}

func supportTicketText(ticket models.SupportRequest) string {
	from := fmt.Sprintf("id %d", ticket.UserID)
	if ticket.Username != "" {
		from = fmt.Sprintf("@%s (%d)", ticket.Username, ticket.UserID)
	}
	return fmt.Sprintf("📩 Обращение #%d\nОт: %s\nКогда: %s\n\n%s",
		ticket.ID, from, ticket.CreatedAt.Format("02.01.2006 15:04"), ticket.Content)
}

func isAdminMenuButton(text string) bool {
	for _, item := range adminMenu {
		if item == text {
			return true
		}
	}
	return false
}

// photoID picks the largest rendition of an attached photo.
func photoID(msg *tgbotapi.Message) string {
	if len(msg.Photo) == 0 {
		return ""
	}
	return msg.Photo[len(msg.Photo)-1].FileID
}

// menuChoiceID recovers the id from option labels shaped like "5. Кеды".
func menuChoiceID(text string) int64 {
	head, _, ok := strings.Cut(text, ".")
	if !ok {
		return 0
	}
	id, err := strconv.ParseInt(strings.TrimSpace(head), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
