package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopbot/internal/models"
)

type fakeDirectory struct {
	CategoriesFunc     func(ctx context.Context) ([]models.Category, error)
	CategoryByNameFunc func(ctx context.Context, name string) (*models.Category, error)
	ProductsFunc       func(ctx context.Context) ([]models.Product, error)
	ProductByIDFunc    func(ctx context.Context, id int64) (*models.Product, error)
}

func (f *fakeDirectory) Categories(ctx context.Context) ([]models.Category, error) {
	if f.CategoriesFunc != nil {
		return f.CategoriesFunc(ctx)
	}
	return []models.Category{{ID: 1, Name: "Обувь"}}, nil
}

func (f *fakeDirectory) CategoryByName(ctx context.Context, name string) (*models.Category, error) {
	if f.CategoryByNameFunc != nil {
		return f.CategoryByNameFunc(ctx, name)
	}
	if name == "Обувь" {
		return &models.Category{ID: 1, Name: "Обувь"}, nil
	}
	return nil, nil
}

func (f *fakeDirectory) Products(ctx context.Context) ([]models.Product, error) {
	if f.ProductsFunc != nil {
		return f.ProductsFunc(ctx)
	}
	return []models.Product{{ID: 5, Name: "Кеды"}}, nil
}

func (f *fakeDirectory) ProductByID(ctx context.Context, id int64) (*models.Product, error) {
	if f.ProductByIDFunc != nil {
		return f.ProductByIDFunc(ctx, id)
	}
	if id == 5 {
		return &models.Product{ID: 5, Name: "Кеды"}, nil
	}
	return nil, errors.New("product not found")
}

type fakeCommitter struct {
	CreateProductFunc   func(ctx context.Context, draft ProductDraft) (int64, error)
	CreatePromotionFunc func(ctx context.Context, draft PromotionDraft) (int64, error)
	CreatePromoCodeFunc func(ctx context.Context, draft PromoCodeDraft) (int64, error)
	ScheduleMailingFunc func(ctx context.Context, content string, sendAt time.Time) (int64, error)

	Products   []ProductDraft
	Promotions []PromotionDraft
	PromoCodes []PromoCodeDraft
	Mailings   []time.Time
}

func (f *fakeCommitter) CreateProduct(ctx context.Context, draft ProductDraft) (int64, error) {
	if f.CreateProductFunc != nil {
		return f.CreateProductFunc(ctx, draft)
	}
	f.Products = append(f.Products, draft)
	return 10, nil
}

func (f *fakeCommitter) CreatePromotion(ctx context.Context, draft PromotionDraft) (int64, error) {
	if f.CreatePromotionFunc != nil {
		return f.CreatePromotionFunc(ctx, draft)
	}
	f.Promotions = append(f.Promotions, draft)
	return 11, nil
}

func (f *fakeCommitter) CreatePromoCode(ctx context.Context, draft PromoCodeDraft) (int64, error) {
	if f.CreatePromoCodeFunc != nil {
		return f.CreatePromoCodeFunc(ctx, draft)
	}
	f.PromoCodes = append(f.PromoCodes, draft)
	return 12, nil
}

func (f *fakeCommitter) ScheduleMailing(ctx context.Context, content string, sendAt time.Time) (int64, error) {
	if f.ScheduleMailingFunc != nil {
		return f.ScheduleMailingFunc(ctx, content, sendAt)
	}
	f.Mailings = append(f.Mailings, sendAt)
	return 13, nil
}

func newTestEngine(committer *fakeCommitter) *Engine {
	return &Engine{
		Directory: &fakeDirectory{},
		Committer: committer,
		Now: func() time.Time {
			return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		},
	}
}

func advanceText(t *testing.T, e *Engine, st *State, text string) Outcome {
	t.Helper()
	out, err := e.Advance(context.Background(), st, Input{Text: text})
	require.NoError(t, err)
	return out
}

func TestProductWizardHappyPath(t *testing.T) {
	committer := &fakeCommitter{}
	e := newTestEngine(committer)

	out, err := e.Start(context.Background(), KindProduct)
	require.NoError(t, err)
	require.NotNil(t, out.Next)
	assert.Equal(t, StepCategoryChoice, out.Next.Step)
	assert.Contains(t, out.Options, "Обувь")
	assert.Contains(t, out.Options, NewCategoryChoice)
	assert.Contains(t, out.Options, Back)

	st := out.Next
	out, err = e.Advance(context.Background(), st, Input{ChoiceID: 1})
	require.NoError(t, err)
	assert.Equal(t, StepProductName, st.Step)

	advanceText(t, e, st, "Кеды")
	advanceText(t, e, st, "Белые кеды")
	advanceText(t, e, st, "1999.90")
	advanceText(t, e, st, "42")
	advanceText(t, e, st, "Кожа")
	assert.Equal(t, StepProductPhoto, st.Step)

	out, err = e.Advance(context.Background(), st, Input{PhotoID: "file-abc"})
	require.NoError(t, err)
	assert.True(t, out.Done)
	assert.Nil(t, out.Next)

	require.Len(t, committer.Products, 1)
	draft := committer.Products[0]
	assert.Equal(t, int64(1), draft.CategoryID)
	assert.Equal(t, "Кеды", draft.Name)
	assert.Equal(t, 1999.90, draft.Price)
	assert.Equal(t, "file-abc", draft.PhotoFileID)
}

func TestProductWizardNewCategoryDeferredToCommit(t *testing.T) {
	committer := &fakeCommitter{}
	e := newTestEngine(committer)

	out, err := e.Start(context.Background(), KindProduct)
	require.NoError(t, err)
	st := out.Next

	advanceText(t, e, st, NewCategoryChoice)
	assert.Equal(t, StepCategoryName, st.Step)

	advanceText(t, e, st, "Аксессуары")
	assert.Equal(t, "Аксессуары", st.CategoryName)
	assert.Zero(t, st.CategoryID)
	assert.Equal(t, StepProductName, st.Step)

	advanceText(t, e, st, "Ремень")
	advanceText(t, e, st, "Кожаный ремень")
	advanceText(t, e, st, "990")
	advanceText(t, e, st, "M")
	advanceText(t, e, st, "Кожа")

	out, err = e.Advance(context.Background(), st, Input{PhotoID: "file-belt"})
	require.NoError(t, err)
	assert.True(t, out.Done)

	require.Len(t, committer.Products, 1)
	draft := committer.Products[0]
	assert.Equal(t, "Аксессуары", draft.CategoryName)
	assert.Zero(t, draft.CategoryID)
}

func TestProductWizardRejectsDuplicateCategoryName(t *testing.T) {
	e := newTestEngine(&fakeCommitter{})

	st := &State{Kind: KindProduct, Step: StepCategoryName}
	out := advanceText(t, e, st, "Обувь")
	assert.Equal(t, StepCategoryName, st.Step)
	assert.Equal(t, retryCategoryTaken, out.Reply)

	advanceText(t, e, st, "Аксессуары")
	assert.Equal(t, "Аксессуары", st.CategoryName)
	assert.Equal(t, StepProductName, st.Step)
}

func TestProductWizardRejectsBlankText(t *testing.T) {
	e := newTestEngine(&fakeCommitter{})
	st := &State{Kind: KindProduct, Step: StepProductName}

	out := advanceText(t, e, st, "   ")
	assert.Equal(t, StepProductName, st.Step)
	assert.Equal(t, retryEmpty, out.Reply)
	assert.Empty(t, st.Name)

	advanceText(t, e, st, "  Кеды  ")
	assert.Equal(t, "Кеды", st.Name)
	assert.Equal(t, StepProductDesc, st.Step)
}

func TestProductWizardRejectsUnknownCategoryID(t *testing.T) {
	e := newTestEngine(&fakeCommitter{})
	st := &State{Kind: KindProduct, Step: StepCategoryChoice}

	out, err := e.Advance(context.Background(), st, Input{ChoiceID: 99})
	require.NoError(t, err)
	assert.Equal(t, StepCategoryChoice, st.Step)
	assert.Equal(t, retryChoice, out.Reply)
	assert.Zero(t, st.CategoryID)

	_, err = e.Advance(context.Background(), st, Input{ChoiceID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.CategoryID)
	assert.Equal(t, StepProductName, st.Step)
}

func TestProductWizardCategoryRaceRewindsToNameStep(t *testing.T) {
	committer := &fakeCommitter{
		CreateProductFunc: func(ctx context.Context, draft ProductDraft) (int64, error) {
			return 0, ErrConflict
		},
	}
	e := newTestEngine(committer)
	st := &State{
		Kind: KindProduct, Step: StepProductPhoto,
		CategoryName: "Аксессуары", Name: "Ремень", Description: "Кожаный",
		Price: 990, Size: "M", Material: "Кожа",
	}

	out, err := e.Advance(context.Background(), st, Input{PhotoID: "file-belt"})
	require.NoError(t, err)
	assert.False(t, out.Done)
	assert.Equal(t, StepCategoryName, st.Step)
	assert.Equal(t, retryCategoryTaken, out.Reply)
}

func TestProductWizardRejectsBadPrice(t *testing.T) {
	e := newTestEngine(&fakeCommitter{})
	st := &State{Kind: KindProduct, Step: StepProductPrice}

	for _, bad := range []string{"abc", "0", "-5", ""} {
		out := advanceText(t, e, st, bad)
		assert.Equal(t, StepProductPrice, st.Step, "input %q", bad)
		assert.Equal(t, retryPrice, out.Reply, "input %q", bad)
	}

	advanceText(t, e, st, "10,50")
	assert.Equal(t, 10.50, st.Price)
	assert.Equal(t, StepProductSize, st.Step)
}

func TestProductWizardPhotoRequired(t *testing.T) {
	e := newTestEngine(&fakeCommitter{})
	st := &State{Kind: KindProduct, Step: StepProductPhoto}

	out := advanceText(t, e, st, "вот фото")
	assert.False(t, out.Done)
	assert.Equal(t, retryPhoto, out.Reply)
	assert.Equal(t, StepProductPhoto, st.Step)
}

func TestBackAbortsMidFlow(t *testing.T) {
	committer := &fakeCommitter{}
	e := newTestEngine(committer)
	st := &State{Kind: KindProduct, Step: StepProductPrice, Name: "Кеды"}

	out := advanceText(t, e, st, Back)
	assert.True(t, out.Aborted)
	assert.Nil(t, out.Next)
	assert.Empty(t, committer.Products)
}

func TestCancelCommandAbortsMidFlow(t *testing.T) {
	committer := &fakeCommitter{}
	e := newTestEngine(committer)
	st := &State{Kind: KindMailing, Step: StepMailTimer, Content: "Скидки!"}

	out := advanceText(t, e, st, CancelCommand)
	assert.True(t, out.Aborted)
	assert.Nil(t, out.Next)
	assert.Empty(t, committer.Mailings)
}

func TestBackAtFirstStepCancels(t *testing.T) {
	e := newTestEngine(&fakeCommitter{})

	for _, kind := range []Kind{KindProduct, KindPromotion, KindPromoCode, KindMailing} {
		out, err := e.Start(context.Background(), kind)
		require.NoError(t, err)

		out, err = e.Advance(context.Background(), out.Next, Input{Text: Back})
		require.NoError(t, err)
		assert.True(t, out.Aborted, "kind %s", kind)
		assert.Nil(t, out.Next, "kind %s", kind)
	}
}

func TestPromotionWizardHappyPath(t *testing.T) {
	committer := &fakeCommitter{}
	e := newTestEngine(committer)

	out, err := e.Start(context.Background(), KindPromotion)
	require.NoError(t, err)
	st := out.Next

	advanceText(t, e, st, "Летняя распродажа")
	advanceText(t, e, st, "Скидки на всё")
	advanceText(t, e, st, "none")
	advanceText(t, e, st, "2024-06-01")

	out = advanceText(t, e, st, "2024-06-30")
	assert.True(t, out.Done)

	require.Len(t, committer.Promotions, 1)
	promo := committer.Promotions[0]
	assert.Equal(t, "Летняя распродажа", promo.Name)
	assert.Empty(t, promo.ImageFileID)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), promo.EndDate)
}

func TestPromotionWizardImageNoneVariants(t *testing.T) {
	e := newTestEngine(&fakeCommitter{})

	for _, none := range []string{"none", "None", " NONE "} {
		st := &State{Kind: KindPromotion, Step: StepPromoImage, Name: "Акция"}
		advanceText(t, e, st, none)
		assert.Empty(t, st.ImageRef, "input %q", none)
		assert.Equal(t, StepPromoStart, st.Step, "input %q", none)
	}

	st := &State{Kind: KindPromotion, Step: StepPromoImage, Name: "Акция"}
	out := advanceText(t, e, st, "без картинки")
	assert.Equal(t, StepPromoImage, st.Step)
	assert.Equal(t, promptPromoImage, out.Reply)
}

func TestPromotionWizardRejectsEndBeforeStart(t *testing.T) {
	e := newTestEngine(&fakeCommitter{})
	st := &State{Kind: KindPromotion, Step: StepPromoEnd, Name: "Акция", StartDate: "2024-06-10"}

	out := advanceText(t, e, st, "2024-06-01")
	assert.False(t, out.Done)
	assert.Equal(t, retryDateEnd, out.Reply)
	assert.Equal(t, StepPromoEnd, st.Step)
}

func TestPromotionWizardRejectsPastStartDate(t *testing.T) {
	e := newTestEngine(&fakeCommitter{})
	st := &State{Kind: KindPromotion, Step: StepPromoStart, Name: "Акция"}

	out := advanceText(t, e, st, "2024-05-31")
	assert.Equal(t, retryDatePast, out.Reply)
	assert.Equal(t, StepPromoStart, st.Step)

	advanceText(t, e, st, "2024-06-01")
	assert.Equal(t, "2024-06-01", st.StartDate)
	assert.Equal(t, StepPromoEnd, st.Step)
}

func TestPromoCodeWizardHappyPath(t *testing.T) {
	committer := &fakeCommitter{}
	e := newTestEngine(committer)

	out, err := e.Start(context.Background(), KindPromoCode)
	require.NoError(t, err)
	st := out.Next

	advanceText(t, e, st, "summer24")
	assert.Equal(t, "SUMMER24", st.Code)

	out, err = e.Advance(context.Background(), st, Input{ChoiceID: 5})
	require.NoError(t, err)
	assert.Equal(t, StepCodeDiscount, st.Step)

	advanceText(t, e, st, "15")
	advanceText(t, e, st, "2024-06-01")
	out = advanceText(t, e, st, "2024-06-30")
	assert.True(t, out.Done)

	require.Len(t, committer.PromoCodes, 1)
	code := committer.PromoCodes[0]
	assert.Equal(t, "SUMMER24", code.Code)
	assert.Equal(t, int64(5), code.ProductID)
	assert.Equal(t, 15, code.Discount)
}

func TestPromoCodeWizardRejectsBadCode(t *testing.T) {
	e := newTestEngine(&fakeCommitter{})

	for _, bad := range []string{"лето", "SUM MER", "a-b", ""} {
		st := &State{Kind: KindPromoCode, Step: StepCodeValue}
		out := advanceText(t, e, st, bad)
		assert.Equal(t, StepCodeValue, st.Step, "input %q", bad)
		assert.Equal(t, retryCode, out.Reply, "input %q", bad)
	}
}

func TestPromoCodeWizardDuplicateRewindsToCodeStep(t *testing.T) {
	committer := &fakeCommitter{
		CreatePromoCodeFunc: func(ctx context.Context, draft PromoCodeDraft) (int64, error) {
			return 0, ErrConflict
		},
	}
	e := newTestEngine(committer)
	st := &State{
		Kind: KindPromoCode, Step: StepCodeEnd,
		Code: "SUMMER24", ProductID: 5, Discount: 15, StartDate: "2024-06-01",
	}

	out := advanceText(t, e, st, "2024-06-30")
	assert.False(t, out.Done)
	assert.Equal(t, StepCodeValue, st.Step)
	assert.Equal(t, msgCodeTaken, out.Reply)
}

func TestMailingWizardSchedulesRelativeToNow(t *testing.T) {
	committer := &fakeCommitter{}
	e := newTestEngine(committer)

	out, err := e.Start(context.Background(), KindMailing)
	require.NoError(t, err)
	st := out.Next

	advanceText(t, e, st, "Скидка 20% только сегодня!")

	for _, bad := range []string{"0", "-3", "час"} {
		out = advanceText(t, e, st, bad)
		assert.Equal(t, retryMinutes, out.Reply, "input %q", bad)
	}

	out = advanceText(t, e, st, "30")
	assert.True(t, out.Done)
	require.Len(t, committer.Mailings, 1)
	assert.Equal(t, time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC), committer.Mailings[0])
}
