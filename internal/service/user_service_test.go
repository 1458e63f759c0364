package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopbot/internal/models"
	"shopbot/internal/store"
)

type fakeStorefrontStore struct {
	IsBlockedFunc              func(ctx context.Context, userID int64) (bool, error)
	UpsertUserFunc             func(ctx context.Context, telegramID int64, username string) error
	CartItemsFunc              func(ctx context.Context, userID int64) ([]models.CartItem, error)
	ValidPromoCodeFunc         func(ctx context.Context, code string, productID int64, day time.Time) (*models.PromoCode, error)
	ApplyPromoToFirstMatchFunc func(ctx context.Context, userID, productID, promoCodeID int64) error

	applied []int64
}

func (f *fakeStorefrontStore) IsBlocked(ctx context.Context, userID int64) (bool, error) {
	if f.IsBlockedFunc != nil {
		return f.IsBlockedFunc(ctx, userID)
	}
	return false, nil
}

func (f *fakeStorefrontStore) UpsertUser(ctx context.Context, telegramID int64, username string) error {
	if f.UpsertUserFunc != nil {
		return f.UpsertUserFunc(ctx, telegramID, username)
	}
	return nil
}

func (f *fakeStorefrontStore) Categories(ctx context.Context) ([]models.Category, error) {
	return nil, nil
}

func (f *fakeStorefrontStore) CategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	return nil, store.ErrNotFound
}

func (f *fakeStorefrontStore) ProductsByCategory(ctx context.Context, categoryID int64) ([]models.Product, error) {
	return nil, nil
}

func (f *fakeStorefrontStore) ProductByID(ctx context.Context, id int64) (*models.Product, error) {
	return nil, store.ErrNotFound
}

func (f *fakeStorefrontStore) ActivePromotions(ctx context.Context, day time.Time) ([]models.Promotion, error) {
	return nil, nil
}

func (f *fakeStorefrontStore) AddCartItem(ctx context.Context, userID, productID int64) error {
	return nil
}

func (f *fakeStorefrontStore) CartItems(ctx context.Context, userID int64) ([]models.CartItem, error) {
	if f.CartItemsFunc != nil {
		return f.CartItemsFunc(ctx, userID)
	}
	return nil, nil
}

func (f *fakeStorefrontStore) ClearCart(ctx context.Context, userID int64) error {
	return nil
}

func (f *fakeStorefrontStore) ValidPromoCode(ctx context.Context, code string, productID int64, day time.Time) (*models.PromoCode, error) {
	if f.ValidPromoCodeFunc != nil {
		return f.ValidPromoCodeFunc(ctx, code, productID, day)
	}
	return nil, store.ErrNotFound
}

func (f *fakeStorefrontStore) ApplyPromoToFirstMatch(ctx context.Context, userID, productID, promoCodeID int64) error {
	if f.ApplyPromoToFirstMatchFunc != nil {
		return f.ApplyPromoToFirstMatchFunc(ctx, userID, productID, promoCodeID)
	}
	f.applied = append(f.applied, productID)
	return nil
}

func (f *fakeStorefrontStore) CreateSupportRequest(ctx context.Context, r *models.SupportRequest) (int64, error) {
	return 1, nil
}

func (f *fakeStorefrontStore) LogJoinRequest(ctx context.Context, userID int64, username, status string) error {
	return nil
}

func (f *fakeStorefrontStore) Setting(ctx context.Context, key string) (string, error) {
	return "", store.ErrNotFound
}

func newTestUserService(db *fakeStorefrontStore) *UserService {
	svc := NewUserService(db, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func cartOf(lines ...models.CartItem) func(ctx context.Context, userID int64) ([]models.CartItem, error) {
	return func(ctx context.Context, userID int64) ([]models.CartItem, error) {
		return lines, nil
	}
}

func TestApplyPromoCodeEmptyCart(t *testing.T) {
	db := &fakeStorefrontStore{}
	svc := newTestUserService(db)

	_, _, err := svc.ApplyPromoCode(context.Background(), 100, "SUMMER24")
	assert.ErrorIs(t, err, ErrCartEmpty)
	assert.Empty(t, db.applied)
}

func TestApplyPromoCodeNoMatchLeavesCartUntouched(t *testing.T) {
	db := &fakeStorefrontStore{
		CartItemsFunc: cartOf(
			models.CartItem{ID: 1, ProductID: 5, ProductName: "Кеды", Price: 1000},
			models.CartItem{ID: 2, ProductID: 6, ProductName: "Ремень", Price: 500},
		),
	}
	svc := newTestUserService(db)

	_, _, err := svc.ApplyPromoCode(context.Background(), 100, "EXPIRED")
	assert.ErrorIs(t, err, ErrPromoNotApplicable)
	assert.Empty(t, db.applied, "an invalid code must not touch any cart line")
}

func TestApplyPromoCodeFirstMatchingLineOnly(t *testing.T) {
	promo := &models.PromoCode{ID: 7, Code: "SUMMER24", ProductID: 5, DiscountPercentage: 15}
	db := &fakeStorefrontStore{
		CartItemsFunc: cartOf(
			models.CartItem{ID: 1, ProductID: 5, ProductName: "Кеды", Price: 1000},
			models.CartItem{ID: 2, ProductID: 5, ProductName: "Кеды", Price: 1000},
		),
		ValidPromoCodeFunc: func(ctx context.Context, code string, productID int64, day time.Time) (*models.PromoCode, error) {
			if productID == 5 {
				return promo, nil
			}
			return nil, store.ErrNotFound
		},
	}
	svc := newTestUserService(db)

	got, productName, err := svc.ApplyPromoCode(context.Background(), 100, "SUMMER24")
	require.NoError(t, err)
	assert.Equal(t, promo, got)
	assert.Equal(t, "Кеды", productName)
	assert.Equal(t, []int64{5}, db.applied, "only the first matching line takes the code")
}

func TestApplyPromoCodeSkipsLinesWithCodeAttached(t *testing.T) {
	promo := &models.PromoCode{ID: 7, Code: "SUMMER24", ProductID: 5, DiscountPercentage: 15}
	db := &fakeStorefrontStore{
		CartItemsFunc: cartOf(
			models.CartItem{ID: 1, ProductID: 5, ProductName: "Кеды", Price: 1000, PromoCodeID: 3},
			models.CartItem{ID: 2, ProductID: 6, ProductName: "Ремень", Price: 500},
		),
		ValidPromoCodeFunc: func(ctx context.Context, code string, productID int64, day time.Time) (*models.PromoCode, error) {
			if productID == 5 {
				return promo, nil
			}
			return nil, store.ErrNotFound
		},
	}
	svc := newTestUserService(db)

	_, _, err := svc.ApplyPromoCode(context.Background(), 100, "SUMMER24")
	assert.ErrorIs(t, err, ErrPromoNotApplicable,
		"a line that already holds a code is not a match even when the code fits its product")
	assert.Empty(t, db.applied)
}

func TestApplyPromoCodeNormalizesInput(t *testing.T) {
	var queried []string
	db := &fakeStorefrontStore{
		CartItemsFunc: cartOf(models.CartItem{ID: 1, ProductID: 5, ProductName: "Кеды", Price: 1000}),
		ValidPromoCodeFunc: func(ctx context.Context, code string, productID int64, day time.Time) (*models.PromoCode, error) {
			queried = append(queried, code)
			return nil, store.ErrNotFound
		},
	}
	svc := newTestUserService(db)

	_, _, err := svc.ApplyPromoCode(context.Background(), 100, "  summer24 ")
	assert.ErrorIs(t, err, ErrPromoNotApplicable)
	assert.Equal(t, []string{"SUMMER24"}, queried)
}

func TestRegisterRejectsBlockedUser(t *testing.T) {
	upserts := 0
	db := &fakeStorefrontStore{
		IsBlockedFunc: func(ctx context.Context, userID int64) (bool, error) {
			return true, nil
		},
		UpsertUserFunc: func(ctx context.Context, telegramID int64, username string) error {
			upserts++
			return nil
		},
	}
	svc := newTestUserService(db)

	err := svc.Register(context.Background(), 100, "ivan")
	assert.ErrorIs(t, err, ErrUserBlocked)
	assert.Zero(t, upserts)
}
