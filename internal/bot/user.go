package bot

import (
	"context"
	"errors"
	"fmt"
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
	menuCatalog = "🛍 Каталог"
	menuCart    = "🛒 Корзина"
	menuOffers  = "📣 Акции"
	menuPromo   = "🎟 Промокод"
	menuSupport = "🆘 Поддержка"

	msgWelcome       = "Добро пожаловать в магазин! Выберите действие:"
	msgWelcomeBare   = "Добро пожаловать в магазин!"
	msgCartEmpty     = "Ваша корзина пуста."
	msgNoCategories  = "Каталог пока пуст."
	msgNoOffers      = "Активных акций сейчас нет."
	msgAskPromo      = "Введите промокод:"
	msgAskSupport    = "Опишите вашу проблему, и мы свяжемся с вами:"
	msgSupportFiled  = "Обращение отправлено. Мы ответим вам в ближайшее время ✅"
	msgPromoNoMatch  = "Промокод не подходит ни к одному товару в корзине."
	msgPromoCartNeed = "Сначала добавьте товары в корзину."
)

var userMenu = []string{menuCatalog, menuCart, menuOffers, menuPromo, menuSupport}

// one-step storefront dialogues, kept in the same session store as the
// admin wizards
const (
	kindAwaitPromo   flow.Kind = "await_promo"
	kindAwaitSupport flow.Kind = "await_support"
)

// UserBot is the customer storefront: catalog browsing, cart, promotions,
// promo codes and support.
type UserBot struct {
	client   *telegram.Client
	svc      *service.UserService
	sessions session.Store
	cfg      *config.Config
	logger   zerolog.Logger
}

func NewUserBot(client *telegram.Client, svc *service.UserService, sessions session.Store, cfg *config.Config, logger zerolog.Logger) *UserBot {
	return &UserBot{
		client:   client,
		svc:      svc,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
	}
}

func (b *UserBot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	var err error
	switch {
	case update.ChatJoinRequest != nil:
		err = b.handleJoinRequest(ctx, update.ChatJoinRequest)
	case update.CallbackQuery != nil:
		err = b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		err = b.handleMessage(ctx, update.Message)
	default:
		return
	}
	if err != nil {
		b.logger.Error().Err(err).Msg("storefront update failed")
	}
}

func (b *UserBot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	if err := b.svc.Register(ctx, userID, msg.From.UserName); err != nil {
		if errors.Is(err, service.ErrUserBlocked) {
			return nil
		}
		return err
	}

	text := msg.Text
	if text == "/start" || isUserMenuButton(text) {
		if err := b.sessions.Delete(ctx, userID); err != nil {
			b.logger.Warn().Err(err).Int64("user_id", userID).Msg("failed to drop session")
		}
		return b.handleMenu(ctx, chatID, userID, text)
	}

	state, err := b.sessions.Get(ctx, userID)
	if err != nil {
		return err
	}
	if state != nil {
		return b.handleDialogue(ctx, chatID, userID, state, msg)
	}
	return b.sendMenu(ctx, chatID, userID)
}

func (b *UserBot) handleMenu(ctx context.Context, chatID, userID int64, text string) error {
	switch text {
	case "/start":
		return b.sendMenu(ctx, chatID, userID)
	case menuCatalog:
		return b.sendCategories(ctx, chatID)
	case menuCart:
		return b.sendCart(ctx, chatID, userID)
	case menuOffers:
		return b.sendPromotions(ctx, chatID)
	case menuPromo:
		if err := b.sessions.Put(ctx, userID, &flow.State{Kind: kindAwaitPromo}); err != nil {
			return err
		}
		return b.client.SendWithKeyboard(chatID, msgAskPromo, []string{flow.Back})
	case menuSupport:
		if err := b.sessions.Put(ctx, userID, &flow.State{Kind: kindAwaitSupport}); err != nil {
			return err
		}
		return b.client.SendWithKeyboard(chatID, msgAskSupport, []string{flow.Back})
	}
	return b.sendMenu(ctx, chatID, userID)
}

func (b *UserBot) handleDialogue(ctx context.Context, chatID, userID int64, state *flow.State, msg *tgbotapi.Message) error {
	if err := b.sessions.Delete(ctx, userID); err != nil {
		b.logger.Warn().Err(err).Int64("user_id", userID).Msg("failed to drop session")
	}
	if msg.Text == flow.Back {
		return b.sendMenu(ctx, chatID, userID)
	}

	switch state.Kind {
	case kindAwaitPromo:
		return b.applyPromo(ctx, chatID, userID, msg.Text)
	case kindAwaitSupport:
		if strings.TrimSpace(msg.Text) == "" {
			if err := b.sessions.Put(ctx, userID, state); err != nil {
				return err
			}
			return b.client.SendWithKeyboard(chatID, msgAskSupport, []string{flow.Back})
		}
		if err := b.svc.CreateSupportRequest(ctx, userID, msg.From.UserName, msg.Text); err != nil {
			return err
		}
		if err := b.client.SendMessage(chatID, msgSupportFiled); err != nil {
			return err
		}
		return b.sendMenu(ctx, chatID, userID)
	}
	return b.sendMenu(ctx, chatID, userID)
}

func (b *UserBot) applyPromo(ctx context.Context, chatID, userID int64, code string) error {
	promo, productName, err := b.svc.ApplyPromoCode(ctx, userID, code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCartEmpty):
			return b.client.SendMessage(chatID, msgPromoCartNeed)
		case errors.Is(err, service.ErrPromoNotApplicable):
			return b.client.SendMessage(chatID, msgPromoNoMatch)
		}
		return err
	}
	text := fmt.Sprintf("Промокод %s применён: скидка %d%% на «%s» ✅",
		promo.Code, promo.DiscountPercentage, productName)
	return b.client.SendMessage(chatID, text)
}

func (b *UserBot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if err := b.client.AnswerCallback(cb.ID); err != nil {
		b.logger.Warn().Err(err).Msg("failed to answer callback")
	}
	userID := cb.From.ID
	chatID := cb.Message.Chat.ID

	blocked, err := b.svc.IsBlocked(ctx, userID)
	if err != nil {
		return err
	}
	if blocked {
		return nil
	}

	action, err := DecodeAction(cb.Data)
	if err != nil {
		b.logger.Warn().Str("data", cb.Data).Msg("unknown storefront callback")
		return nil
	}

	switch action.Kind {
	case ActionCategory:
		return b.sendProducts(ctx, chatID, action.ID)
	case ActionProduct:
		return b.sendProductCard(ctx, chatID, action.ID)
	case ActionAddToCart:
		product, err := b.svc.AddToCart(ctx, userID, action.ID)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return b.client.SendMessage(chatID, "Этот товар больше недоступен.")
			}
			return err
		}
		return b.client.SendMessage(chatID, fmt.Sprintf("«%s» добавлен в корзину 🛒", product.Name))
	case ActionClearCart:
		if err := b.svc.ClearCart(ctx, userID); err != nil {
			return err
		}
		return b.client.SendMessage(chatID, "Корзина очищена.")
	case ActionBackToMain:
		return b.sendCategories(ctx, chatID)
	}
	b.logger.Warn().Str("data", cb.Data).Msg("unhandled storefront callback")
	return nil
}

func (b *UserBot) sendMenu(ctx context.Context, chatID, userID int64) error {
	restricted, err := b.svc.KeyboardRestricted(ctx)
	if err != nil {
		return err
	}
	if restricted && !b.cfg.IsAdmin(userID) {
		return b.client.SendMessage(chatID, msgWelcomeBare)
	}
	return b.client.SendWithKeyboard(chatID, msgWelcome, userMenu)
}

func (b *UserBot) sendCategories(ctx context.Context, chatID int64) error {
	categories, err := b.svc.Categories(ctx)
	if err != nil {
		return err
	}
	if len(categories) == 0 {
		return b.client.SendMessage(chatID, msgNoCategories)
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(categories))
	for _, c := range categories {
		data := Action{Kind: ActionCategory, ID: c.ID}.Encode()
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(c.Name, data)))
	}
	return b.client.SendInline(chatID, "Выберите категорию:", tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *UserBot) sendProducts(ctx context.Context, chatID, categoryID int64) error {
	category, err := b.svc.CategoryByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return b.client.SendMessage(chatID, "Этой категории больше нет.")
		}
		return err
	}
	products, err := b.svc.ProductsByCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		return b.client.SendMessage(chatID, "В этой категории пока нет товаров.")
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(products)+1)
	for _, p := range products {
		label := fmt.Sprintf("%s — %.2f ₽", p.Name, p.Price)
		data := Action{Kind: ActionProduct, ID: p.ID}.Encode()
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, data)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(flow.Back, Action{Kind: ActionBackToMain}.Encode())))
	title := fmt.Sprintf("Товары в категории «%s»:", category.Name)
	return b.client.SendInline(chatID, title, tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *UserBot) sendProductCard(ctx context.Context, chatID, productID int64) error {
	product, err := b.svc.ProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return b.client.SendMessage(chatID, "Этот товар больше недоступен.")
		}
		return err
	}

	caption := productCaption(product)
	if product.PhotoPath != "" {
		if err := b.client.SendPhotoFile(chatID, product.PhotoPath, caption); err != nil {
			b.logger.Warn().Err(err).Int64("product_id", productID).Msg("failed to send product photo")
			if err := b.client.SendMessage(chatID, caption); err != nil {
				return err
			}
		}
	} else {
		if err := b.client.SendMessage(chatID, caption); err != nil {
			return err
		}
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🛒 В корзину", Action{Kind: ActionAddToCart, ID: product.ID}.Encode()),
		tgbotapi.NewInlineKeyboardButtonData(flow.Back, Action{Kind: ActionCategory, ID: product.CategoryID}.Encode())))
	return b.client.SendInline(chatID, "Добавить товар в корзину?", keyboard)
}

func productCaption(p *models.Product) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n%s\n", p.Name, p.Description)
	if p.Size != "" {
		fmt.Fprintf(&sb, "Размер: %s\n", p.Size)
	}
	if p.Material != "" {
		fmt.Fprintf(&sb, "Материал: %s\n", p.Material)
	}
	fmt.Fprintf(&sb, "Цена: %.2f ₽", p.Price)
	return sb.String()
}

func (b *UserBot) sendCart(ctx context.Context, chatID, userID int64) error {
	items, err := b.svc.Cart(ctx, userID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return b.client.SendMessage(chatID, msgCartEmpty)
	}

	var sb strings.Builder
	sb.WriteString("🛒 Ваша корзина:\n\n")
	for i, item := range items {
		if item.DiscountPercentage > 0 {
			fmt.Fprintf(&sb, "%d. %s — %.2f ₽ (скидка %d%%, было %.2f ₽)\n",
				i+1, item.ProductName, item.FinalPrice(), item.DiscountPercentage, item.Price)
		} else {
			fmt.Fprintf(&sb, "%d. %s — %.2f ₽\n", i+1, item.ProductName, item.Price)
		}
	}
	fmt.Fprintf(&sb, "\nИтого: %.2f ₽", service.CartTotal(items))

	keyboard := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🗑 Очистить корзину", Action{Kind: ActionClearCart}.Encode())))
	return b.client.SendInline(chatID, sb.String(), keyboard)
}

func (b *UserBot) sendPromotions(ctx context.Context, chatID int64) error {
	promotions, err := b.svc.ActivePromotions(ctx)
	if err != nil {
		return err
	}
	if len(promotions) == 0 {
		return b.client.SendMessage(chatID, msgNoOffers)
	}
	for _, p := range promotions {
		text := fmt.Sprintf("📣 %s\n%s\nДействует до %s", p.Name, p.Description, p.EndDate.Format("02.01.2006"))
		if p.ImageRef != "" {
			if err := b.client.SendPhotoID(chatID, p.ImageRef, text); err != nil {
				b.logger.Warn().Err(err).Int64("promotion_id", p.ID).Msg("failed to send promotion image")
				if err := b.client.SendMessage(chatID, text); err != nil {
					return err
				}
			}
			continue
		}
		if err := b.client.SendMessage(chatID, text); err != nil {
			return err
		}
	}
	return nil
}

// handleJoinRequest auto-approves channel join requests from everyone except
// blocked users, and keeps an audit trail either way.
func (b *UserBot) handleJoinRequest(ctx context.Context, req *tgbotapi.ChatJoinRequest) error {
	userID := req.From.ID
	blocked, err := b.svc.IsBlocked(ctx, userID)
	if err != nil {
		return err
	}

	status := "approved"
	if blocked {
		status = "declined"
		if err := b.client.DeclineJoinRequest(req.Chat.ID, userID); err != nil {
			return err
		}
	} else {
		if err := b.client.ApproveJoinRequest(req.Chat.ID, userID); err != nil {
			return err
		}
	}

	if err := b.svc.LogJoinRequest(ctx, userID, req.From.UserName, status); err != nil {
		return err
	}
	b.logger.Info().Int64("user_id", userID).Str("status", status).Msg("join request handled")
	return nil
}

func isUserMenuButton(text string) bool {
	for _, item := range userMenu {
		if item == text {
			return true
		}
	}
	return false
}
