package models

import "time"

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Product struct {
	ID          int64   `json:"id"`
	CategoryID  int64   `json:"category_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Size        string  `json:"size"`
	Material    string  `json:"material"`
	PhotoPath   string  `json:"photo_path,omitempty"`
}

type Promotion struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ImageRef    string    `json:"image_ref,omitempty"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	CreatedAt   time.Time `json:"created_at"`
}

type PromoCode struct {
	ID                 int64     `json:"id"`
	Code               string    `json:"code"`
	ProductID          int64     `json:"product_id"`
	ProductName        string    `json:"product_name,omitempty"`
	DiscountPercentage int       `json:"discount_percentage"`
	StartDate          time.Time `json:"start_date"`
	EndDate            time.Time `json:"end_date"`
	CreatedAt          time.Time `json:"created_at"`
	IsActive           bool      `json:"is_active"`
}

// CartItem is a cart line joined with its product and, when a promo code has
// been applied, the code's discount details.
type CartItem struct {
	ID                 int64   `json:"id"`
	UserID             int64   `json:"user_id"`
	ProductID          int64   `json:"product_id"`
	ProductName        string  `json:"product_name"`
	Price              float64 `json:"price"`
	PromoCodeID        int64   `json:"promo_code_id,omitempty"`
	PromoCode          string  `json:"promo_code,omitempty"`
	DiscountPercentage int     `json:"discount_percentage,omitempty"`
}

// FinalPrice applies the sticky discount captured at promo-apply time.
func (c CartItem) FinalPrice() float64 {
	if c.PromoCodeID == 0 || c.DiscountPercentage == 0 {
		return c.Price
	}
	return c.Price * (1 - float64(c.DiscountPercentage)/100)
}

type User struct {
	TelegramID int64     `json:"telegram_id"`
	Username   string    `json:"username"`
	CreatedAt  time.Time `json:"created_at"`
}

type SupportRequest struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	MailingScheduled = "scheduled"
	MailingCompleted = "completed"
	MailingFailed    = "failed"
)

type Mailing struct {
	ID      int64     `json:"id"`
	Content string    `json:"content"`
	SendAt  time.Time `json:"send_at"`
	Status  string    `json:"status"`
}

type JoinRequest struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type SalesByDate struct {
	Date       string `json:"order_date"`
	TotalSales int    `json:"total_sales"`
}

type ProductSales struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	TotalSold   int    `json:"total_sold"`
}

type UserActivity struct {
	UserID      int64 `json:"user_id"`
	OrdersCount int   `json:"orders_count"`
}

// Metrics is the bundle handed to the spreadsheet exporter.
type Metrics struct {
	Sales       []SalesByDate  `json:"sales"`
	TopProducts []ProductSales `json:"top_products"`
	Users       []UserActivity `json:"users"`
}
