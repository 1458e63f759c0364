package flow

import (
	"context"
	"time"

	"shopbot/internal/models"
)

// Back is the universal cancel signal: at any step it aborts the wizard,
// discarding everything collected so far.
const Back = "🔙 Назад"

// CancelCommand aborts a wizard the same way Back does.
const CancelCommand = "/cancel"

// NewCategoryChoice is the menu option that switches the product wizard into
// creating a category before the product itself.
const NewCategoryChoice = "Новая категория"

type Kind string

const (
	KindProduct   Kind = "product"
	KindPromotion Kind = "promotion"
	KindPromoCode Kind = "promo_code"
	KindMailing   Kind = "mailing"
)

type Step string

const (
	StepCategoryChoice Step = "category_choice"
	StepCategoryName   Step = "category_name"
	StepProductName    Step = "product_name"
	StepProductDesc    Step = "product_desc"
	StepProductPrice   Step = "product_price"
	StepProductSize    Step = "product_size"
	StepProductMat     Step = "product_material"
	StepProductPhoto   Step = "product_photo"

	StepPromoName  Step = "promo_name"
	StepPromoDesc  Step = "promo_desc"
	StepPromoImage Step = "promo_image"
	StepPromoStart Step = "promo_start"
	StepPromoEnd   Step = "promo_end"

	StepCodeValue    Step = "code_value"
	StepCodeProduct  Step = "code_product"
	StepCodeDiscount Step = "code_discount"
	StepCodeStart    Step = "code_start"
	StepCodeEnd      Step = "code_end"

	StepMailContent Step = "mail_content"
	StepMailTimer   Step = "mail_timer"
)

// State is everything a wizard has collected so far. It round-trips through
// the session store as JSON between updates.
type State struct {
	Kind Kind `json:"kind"`
	Step Step `json:"step"`

	CategoryID   int64  `json:"category_id,omitempty"`
	CategoryName string `json:"category_name,omitempty"`

	Name        string  `json:"name,omitempty"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price,omitempty"`
	Size        string  `json:"size,omitempty"`
	Material    string  `json:"material,omitempty"`

	ImageRef  string `json:"image_ref,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`

	Code      string `json:"code,omitempty"`
	ProductID int64  `json:"product_id,omitempty"`
	Discount  int    `json:"discount,omitempty"`

	Content string `json:"content,omitempty"`
}

// Input is one user turn, already lifted out of the transport update.
type Input struct {
	Text     string
	PhotoID  string
	ChoiceID int64
}

// Outcome tells the bot layer what to do after a turn: keep going with Next,
// or drop the session when the wizard finished or was cancelled.
type Outcome struct {
	Next    *State
	Reply   string
	Options []string
	Done    bool
	Aborted bool
}

// ProductDraft carries a fully collected product wizard. Exactly one of
// CategoryID and CategoryName is set: a name means the category itself is
// created as part of the commit.
type ProductDraft struct {
	CategoryID   int64
	CategoryName string

	Name        string
	Description string
	Price       float64
	Size        string
	Material    string
	PhotoFileID string
}

type PromotionDraft struct {
	Name        string
	Description string
	ImageFileID string
	StartDate   time.Time
	EndDate     time.Time
}

type PromoCodeDraft struct {
	Code      string
	ProductID int64
	Discount  int
	StartDate time.Time
	EndDate   time.Time
}

// Directory is the read side the wizards consult while collecting input.
type Directory interface {
	Categories(ctx context.Context) ([]models.Category, error)
	CategoryByName(ctx context.Context, name string) (*models.Category, error)
	Products(ctx context.Context) ([]models.Product, error)
	ProductByID(ctx context.Context, id int64) (*models.Product, error)
}

// Committer persists a finished wizard, exactly once, at the final step. An
// abandoned wizard leaves no rows behind.
type Committer interface {
	CreateProduct(ctx context.Context, draft ProductDraft) (int64, error)
	CreatePromotion(ctx context.Context, draft PromotionDraft) (int64, error)
	CreatePromoCode(ctx context.Context, draft PromoCodeDraft) (int64, error)
	ScheduleMailing(ctx context.Context, content string, sendAt time.Time) (int64, error)
}
