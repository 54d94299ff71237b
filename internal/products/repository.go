package product

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wacka-accessories/wacka-backend/pkg/db/models"
)

// Repository wires together all product-related persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByIDs returns the products keyed by id. Missing ids are simply absent.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

// FindForCheckout reads products on the checkout transaction.
func (r *Repository) FindForCheckout(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	return r.WithTx(tx).FindByIDs(ctx, ids)
}

func (r *Repository) List(ctx context.Context, f ListFilters) ([]models.Product, error) {
	q := r.db.WithContext(ctx).Model(&models.Product{})
	if !f.IncludeInactive {
		q = q.Where("is_active = ?", true)
	}
	if c := strings.TrimSpace(f.Category); c != "" {
		q = q.Where("category = ?", c)
	}
	if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" {
		pattern := "%" + s + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	var out []models.Product
	err := q.Order("created_at DESC").Limit(f.Limit).Offset(f.Offset).Find(&out).Error
	return out, err
}

func (r *Repository) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Where("sku = ?", sku).Count(&count).Error
	return count > 0, err
}

func (r *Repository) Create(ctx context.Context, p *models.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(updates)
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

// CategoryCount is one row of the category rollup.
type CategoryCount struct {
	Category     string
	ProductCount int64
}

// CategoryCounts groups active products by category.
func (r *Repository) CategoryCounts(ctx context.Context) ([]CategoryCount, error) {
	var out []CategoryCount
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Select("category, COUNT(*) AS product_count").
		Where("is_active = ? AND category <> ''", true).
		Group("category").
		Order("category ASC").
		Scan(&out).Error
	return out, err
}

// ListRelated returns other active products sharing the category.
func (r *Repository) ListRelated(ctx context.Context, p *models.Product, limit int) ([]models.Product, error) {
	var out []models.Product
	err := r.db.WithContext(ctx).
		Where("category = ? AND is_active = ? AND id <> ?", p.Category, true, p.ID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
