package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"shopbot/internal/flow"
	"shopbot/internal/media"
	"shopbot/internal/models"
	"shopbot/internal/store"
)

var (
	ErrNotFound       = errors.New("service: record not found")
	ErrNoSpreadsheet  = errors.New("service: analytics spreadsheet is not configured")
	ErrPromoCodeTaken = errors.New("service: promo code already exists")
	ErrCategoryTaken  = errors.New("service: category name already exists")
)

const (
	metricsWindow   = 30 * 24 * time.Hour
	topProductsMax  = 10
	keyboardSetting = "restrict_keyboard_to_admins"
)

// FileFetcher downloads an uploaded file by its transport file id.
type FileFetcher interface {
	FetchFile(ctx context.Context, fileID string) ([]byte, error)
}

// MetricsExporter pushes an analytics bundle to an external spreadsheet.
type MetricsExporter interface {
	Export(ctx context.Context, metrics models.Metrics) error
}

// AdminService backs the admin console: catalog management, promotions,
// promo codes, mailings, moderation and analytics. It is also the Directory
// and Committer the wizards run against.
type AdminService struct {
	db       *store.DBStore
	media    *media.Storage
	files    FileFetcher
	exporter MetricsExporter
	now      func() time.Time
	logger   zerolog.Logger
}

func NewAdminService(db *store.DBStore, mediaStore *media.Storage, files FileFetcher, exporter MetricsExporter, logger zerolog.Logger) *AdminService {
	return &AdminService{
		db:       db,
		media:    mediaStore,
		files:    files,
		exporter: exporter,
		now:      time.Now,
		logger:   logger,
	}
}

func (s *AdminService) Categories(ctx context.Context) ([]models.Category, error) {
	return s.db.Categories(ctx)
}

func (s *AdminService) CategoryByName(ctx context.Context, name string) (*models.Category, error) {
	return s.db.CategoryByName(ctx, name)
}

func (s *AdminService) Products(ctx context.Context) ([]models.Product, error) {
	return s.db.Products(ctx)
}

func (s *AdminService) ProductsByCategory(ctx context.Context, categoryID int64) ([]models.Product, error) {
	return s.db.ProductsByCategory(ctx, categoryID)
}

func (s *AdminService) ProductByID(ctx context.Context, id int64) (*models.Product, error) {
	product, err := s.db.ProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *AdminService) ProductCount(ctx context.Context, categoryID int64) (int, error) {
	return s.db.ProductCountInCategory(ctx, categoryID)
}

// CreateCategory inserts a category. A duplicate name is a conflict even here:
// the wizard step already rejects known names, so a duplicate at commit time
// means the name was taken in the race window and the admin must pick another.
func (s *AdminService) CreateCategory(ctx context.Context, name string) (int64, error) {
	id, err := s.db.CreateCategory(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return 0, fmt.Errorf("%w: %w", flow.ErrConflict, ErrCategoryTaken)
		}
		return 0, err
	}
	s.logger.Info().Int64("category_id", id).Str("name", name).Msg("category created")
	return id, nil
}

// CreateProduct inserts the product, creating its category first when the
// wizard collected a new name, then downloads and stores the photo. A failed
// photo leaves no half-made product behind: the row is rolled back and the
// wizard re-prompts.
func (s *AdminService) CreateProduct(ctx context.Context, draft flow.ProductDraft) (int64, error) {
	categoryID := draft.CategoryID
	if draft.CategoryName != "" {
		newID, err := s.CreateCategory(ctx, draft.CategoryName)
		if err != nil {
			return 0, err
		}
		categoryID = newID
	}

	id, err := s.db.CreateProduct(ctx, &models.Product{
		CategoryID:  categoryID,
		Name:        draft.Name,
		Description: draft.Description,
		Price:       draft.Price,
		Size:        draft.Size,
		Material:    draft.Material,
	})
	if err != nil {
		return 0, err
	}

	if err := s.attachPhoto(ctx, id, draft.PhotoFileID); err != nil {
		if delErr := s.db.DeleteProductCascade(ctx, id); delErr != nil {
			s.logger.Error().Err(delErr).Int64("product_id", id).Msg("failed to roll back product after photo failure")
		}
		return 0, err
	}

	s.logger.Info().Int64("product_id", id).Str("name", draft.Name).Msg("product created")
	return id, nil
}

func (s *AdminService) attachPhoto(ctx context.Context, productID int64, fileID string) error {
	data, err := s.files.FetchFile(ctx, fileID)
	if err != nil {
		return fmt.Errorf("failed to fetch product photo: %w", err)
	}
	path, err := s.media.SaveProductPhoto(productID, data)
	if err != nil {
		return err
	}
	if err := s.db.SetProductPhoto(ctx, productID, path); err != nil {
		return err
	}
	return nil
}

func (s *AdminService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.db.DeleteProductCascade(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if err := s.media.RemoveProductDir(id); err != nil {
		s.logger.Warn().Err(err).Int64("product_id", id).Msg("failed to remove product media")
	}
	s.logger.Info().Int64("product_id", id).Msg("product deleted")
	return nil
}

func (s *AdminService) DeleteCategory(ctx context.Context, id int64) error {
	productIDs, err := s.db.DeleteCategoryCascade(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	for _, productID := range productIDs {
		if err := s.media.RemoveProductDir(productID); err != nil {
			s.logger.Warn().Err(err).Int64("product_id", productID).Msg("failed to remove product media")
		}
	}
	s.logger.Info().Int64("category_id", id).Int("products", len(productIDs)).Msg("category deleted")
	return nil
}

func (s *AdminService) Promotions(ctx context.Context) ([]models.Promotion, error) {
	return s.db.Promotions(ctx)
}

// CreatePromotion stores the uploaded image's transport file id; promotions
// are re-sent by file id rather than kept on disk.
func (s *AdminService) CreatePromotion(ctx context.Context, draft flow.PromotionDraft) (int64, error) {
	id, err := s.db.CreatePromotion(ctx, &models.Promotion{
		Name:        draft.Name,
		Description: draft.Description,
		ImageRef:    draft.ImageFileID,
		StartDate:   draft.StartDate,
		EndDate:     draft.EndDate,
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info().Int64("promotion_id", id).Str("name", draft.Name).Msg("promotion created")
	return id, nil
}

func (s *AdminService) DeletePromotion(ctx context.Context, id int64) error {
	if err := s.db.DeletePromotion(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *AdminService) PromoCodes(ctx context.Context) ([]models.PromoCode, error) {
	return s.db.PromoCodes(ctx)
}

func (s *AdminService) CreatePromoCode(ctx context.Context, draft flow.PromoCodeDraft) (int64, error) {
	id, err := s.db.CreatePromoCode(ctx, &models.PromoCode{
		Code:               draft.Code,
		ProductID:          draft.ProductID,
		DiscountPercentage: draft.Discount,
		StartDate:          draft.StartDate,
		EndDate:            draft.EndDate,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return 0, fmt.Errorf("%w: %w", flow.ErrConflict, ErrPromoCodeTaken)
		}
		return 0, err
	}
	s.logger.Info().Int64("promo_code_id", id).Str("code", draft.Code).Msg("promo code created")
	return id, nil
}

// DeactivatePromoCode retires a code without deleting its row, so cart lines
// that already captured its discount keep pointing at it.
func (s *AdminService) DeactivatePromoCode(ctx context.Context, id int64) error {
	if err := s.db.DeactivatePromoCode(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *AdminService) Mailings(ctx context.Context) ([]models.Mailing, error) {
	return s.db.Mailings(ctx)
}

func (s *AdminService) ScheduleMailing(ctx context.Context, content string, sendAt time.Time) (int64, error) {
	id, err := s.db.ScheduleMailing(ctx, &models.Mailing{Content: content, SendAt: sendAt})
	if err != nil {
		return 0, err
	}
	s.logger.Info().Int64("mailing_id", id).Time("send_at", sendAt).Msg("mailing scheduled")
	return id, nil
}

func (s *AdminService) DeleteMailing(ctx context.Context, id int64) error {
	if err := s.db.DeleteMailing(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// SupportTickets lists the pending inbox in creation order, so an admin can
// browse tickets that predate the console or survived a delivery failure.
func (s *AdminService) SupportTickets(ctx context.Context) ([]models.SupportRequest, error) {
	return s.db.SupportRequests(ctx)
}

func (s *AdminService) DeleteSupportTicket(ctx context.Context, id int64) error {
	if err := s.db.DeleteSupportRequest(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("ticket_id", id).Msg("support ticket closed")
	return nil
}

// BlockUser bans a user and wipes everything they own. Repeat blocks are
// no-ops.
func (s *AdminService) BlockUser(ctx context.Context, userID int64) error {
	if err := s.db.BlockUserCascade(ctx, userID); err != nil {
		return err
	}
	s.logger.Info().Int64("user_id", userID).Msg("user blocked")
	return nil
}

func (s *AdminService) UserCount(ctx context.Context) (int, error) {
	return s.db.UserCount(ctx)
}

// MetricsBundle collects the last 30 days of activity.
func (s *AdminService) MetricsBundle(ctx context.Context) (models.Metrics, error) {
	since := s.now().Add(-metricsWindow)

	sales, err := s.db.SalesByDate(ctx, since)
	if err != nil {
		return models.Metrics{}, err
	}
	top, err := s.db.TopProducts(ctx, since, topProductsMax)
	if err != nil {
		return models.Metrics{}, err
	}
	users, err := s.db.UserActivity(ctx, since)
	if err != nil {
		return models.Metrics{}, err
	}
	return models.Metrics{Sales: sales, TopProducts: top, Users: users}, nil
}

// ExportMetrics pushes the current bundle to the configured spreadsheet.
func (s *AdminService) ExportMetrics(ctx context.Context) (models.Metrics, error) {
	metrics, err := s.MetricsBundle(ctx)
	if err != nil {
		return models.Metrics{}, err
	}
	if s.exporter == nil {
		return metrics, ErrNoSpreadsheet
	}
	if err := s.exporter.Export(ctx, metrics); err != nil {
		return metrics, err
	}
	s.logger.Info().Int("sales_rows", len(metrics.Sales)).Msg("metrics exported")
	return metrics, nil
}

func (s *AdminService) KeyboardRestricted(ctx context.Context) (bool, error) {
	value, err := s.db.Setting(ctx, keyboardSetting)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return value == "1", nil
}

func (s *AdminService) SetKeyboardRestricted(ctx context.Context, restricted bool) error {
	value := "0"
	if restricted {
		value = "1"
	}
	return s.db.SetSetting(ctx, keyboardSetting, value)
}
