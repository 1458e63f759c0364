package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"shopbot/internal/models"
	"shopbot/internal/store"
)

var (
	ErrUserBlocked        = errors.New("service: user is blocked")
	ErrPromoNotApplicable = errors.New("service: promo code does not match any cart line")
	ErrCartEmpty          = errors.New("service: cart is empty")
)

// StorefrontStore is the slice of the store the storefront needs.
// *store.DBStore satisfies it; tests use a fake.
type StorefrontStore interface {
	IsBlocked(ctx context.Context, userID int64) (bool, error)
	UpsertUser(ctx context.Context, telegramID int64, username string) error
	Categories(ctx context.Context) ([]models.Category, error)
	CategoryByID(ctx context.Context, id int64) (*models.Category, error)
	ProductsByCategory(ctx context.Context, categoryID int64) ([]models.Product, error)
	ProductByID(ctx context.Context, id int64) (*models.Product, error)
	ActivePromotions(ctx context.Context, day time.Time) ([]models.Promotion, error)
	AddCartItem(ctx context.Context, userID, productID int64) error
	CartItems(ctx context.Context, userID int64) ([]models.CartItem, error)
	ClearCart(ctx context.Context, userID int64) error
	ValidPromoCode(ctx context.Context, code string, productID int64, day time.Time) (*models.PromoCode, error)
	ApplyPromoToFirstMatch(ctx context.Context, userID, productID, promoCodeID int64) error
	CreateSupportRequest(ctx context.Context, r *models.SupportRequest) (int64, error)
	LogJoinRequest(ctx context.Context, userID int64, username, status string) error
	Setting(ctx context.Context, key string) (string, error)
}

// UserService backs the storefront: registration, browsing, cart, promo
// codes, support and channel join requests.
type UserService struct {
	db     StorefrontStore
	now    func() time.Time
	logger zerolog.Logger
}

func NewUserService(db StorefrontStore, logger zerolog.Logger) *UserService {
	return &UserService{db: db, now: time.Now, logger: logger}
}

// Register records the visitor unless they are banned.
func (s *UserService) Register(ctx context.Context, userID int64, username string) error {
	blocked, err := s.db.IsBlocked(ctx, userID)
	if err != nil {
		return err
	}
	if blocked {
		return ErrUserBlocked
	}
	return s.db.UpsertUser(ctx, userID, username)
}

func (s *UserService) IsBlocked(ctx context.Context, userID int64) (bool, error) {
	return s.db.IsBlocked(ctx, userID)
}

func (s *UserService) Categories(ctx context.Context) ([]models.Category, error) {
	return s.db.Categories(ctx)
}

func (s *UserService) CategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	category, err := s.db.CategoryByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return category, nil
}

func (s *UserService) ProductsByCategory(ctx context.Context, categoryID int64) ([]models.Product, error) {
	return s.db.ProductsByCategory(ctx, categoryID)
}

func (s *UserService) ProductByID(ctx context.Context, id int64) (*models.Product, error) {
	product, err := s.db.ProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return product, nil
}

// ActivePromotions lists promotions running today by local wall clock.
func (s *UserService) ActivePromotions(ctx context.Context) ([]models.Promotion, error) {
	return s.db.ActivePromotions(ctx, s.now())
}

func (s *UserService) AddToCart(ctx context.Context, userID, productID int64) (*models.Product, error) {
	product, err := s.ProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := s.db.AddCartItem(ctx, userID, productID); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *UserService) Cart(ctx context.Context, userID int64) ([]models.CartItem, error) {
	return s.db.CartItems(ctx, userID)
}

// CartTotal sums final line prices with any applied discounts.
func CartTotal(items []models.CartItem) float64 {
	var total float64
	for _, item := range items {
		total += item.FinalPrice()
	}
	return total
}

func (s *UserService) ClearCart(ctx context.Context, userID int64) error {
	return s.db.ClearCart(ctx, userID)
}

// ApplyPromoCode attaches a code to the first cart line it is valid for. The
// discount sticks to that line even if the code expires afterwards.
func (s *UserService) ApplyPromoCode(ctx context.Context, userID int64, rawCode string) (*models.PromoCode, string, error) {
	code := strings.ToUpper(strings.TrimSpace(rawCode))
	if code == "" {
		return nil, "", ErrPromoNotApplicable
	}

	items, err := s.db.CartItems(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if len(items) == 0 {
		return nil, "", ErrCartEmpty
	}

	today := s.now()
	for _, item := range items {
		if item.PromoCodeID != 0 {
			continue
		}
		promo, err := s.db.ValidPromoCode(ctx, code, item.ProductID, today)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, "", err
		}
		if err := s.db.ApplyPromoToFirstMatch(ctx, userID, item.ProductID, promo.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, "", err
		}
		s.logger.Info().Int64("user_id", userID).Str("code", code).Int64("product_id", item.ProductID).Msg("promo code applied")
		return promo, item.ProductName, nil
	}
	return nil, "", ErrPromoNotApplicable
}

func (s *UserService) CreateSupportRequest(ctx context.Context, userID int64, username, content string) error {
	_, err := s.db.CreateSupportRequest(ctx, &models.SupportRequest{
		UserID:   userID,
		Username: username,
		Content:  content,
	})
	if err != nil {
		return err
	}
	s.logger.Info().Int64("user_id", userID).Msg("support request filed")
	return nil
}

func (s *UserService) LogJoinRequest(ctx context.Context, userID int64, username, status string) error {
	return s.db.LogJoinRequest(ctx, userID, username, status)
}

func (s *UserService) KeyboardRestricted(ctx context.Context) (bool, error) {
	value, err := s.db.Setting(ctx, keyboardSetting)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return value == "1", nil
}
