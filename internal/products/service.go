package product

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/wacka-accessories/wacka-backend/pkg/db/models"
	dbtypes "github.com/wacka-accessories/wacka-backend/pkg/db/types"
	pkgerrors "github.com/wacka-accessories/wacka-backend/pkg/errors"
)

const (
	// DefaultLowStockThreshold applies when a new product omits one.
	DefaultLowStockThreshold = 10
	defaultRelatedLimit      = 4
	maxRelatedLimit          = 20
)

// Service exposes catalog reads and admin product management.
type Service interface {
	List(ctx context.Context, filters ListFilters) ([]ProductDTO, error)
	Get(ctx context.Context, id uuid.UUID, includeInactive bool) (*ProductDTO, error)
	Create(ctx context.Context, actorID uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	Categories(ctx context.Context) ([]CategoryDTO, error)
	Related(ctx context.Context, id uuid.UUID, limit int) ([]ProductDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// stockStore is the inventory surface the catalog needs.
type stockStore interface {
	Init(ctx context.Context, tx *gorm.DB, productID uuid.UUID, quantity, threshold int, actorID *uuid.UUID) error
	QuantitiesFor(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]int, error)
}

type service struct {
	repo  *Repository
	tx    txRunner
	stock stockStore
}

// NewService constructs a product service instance.
func NewService(repo *Repository, tx txRunner, stock stockStore) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock store required")
	}
	return &service{repo: repo, tx: tx, stock: stock}, nil
}

func (s *service) List(ctx context.Context, filters ListFilters) ([]ProductDTO, error) {
	if filters.Limit <= 0 || filters.Limit > 100 {
		filters.Limit = 50
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}
	rows, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return s.withStock(ctx, rows)
}

func (s *service) Get(ctx context.Context, id uuid.UUID, includeInactive bool) (*ProductDTO, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !p.IsActive && !includeInactive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	stock, err := s.stock.QuantitiesFor(ctx, []uuid.UUID{p.ID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
	}
	dto := toDTO(*p, stock[p.ID])
	return &dto, nil
}

// Create stores the product together with its inventory row.
func (s *service) Create(ctx context.Context, actorID uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	sku := strings.TrimSpace(input.SKU)
	if name == "" || sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and sku are required")
	}
	if err := validatePrices(input.Price, input.DiscountPrice); err != nil {
		return nil, err
	}
	if input.InitialStock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "initial_stock must be >= 0")
	}
	threshold := DefaultLowStockThreshold
	if input.LowStockThreshold != nil {
		if *input.LowStockThreshold < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "low_stock_threshold must be >= 0")
		}
		threshold = *input.LowStockThreshold
	}

	exists, err := s.repo.ExistsBySKU(ctx, sku)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check sku")
	}
	if exists {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product with this SKU already exists")
	}
	slug, err := s.uniqueSlug(ctx, name, sku)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:          name,
		Slug:          slug,
		Description:   strings.TrimSpace(input.Description),
		SKU:           sku,
		Category:      strings.TrimSpace(input.Category),
		Price:         input.Price,
		DiscountPrice: input.DiscountPrice,
		Images:        dbtypes.StringList(input.Images),
		IsActive:      true,
	}
	var actor *uuid.UUID
	if actorID != uuid.Nil {
		actor = &actorID
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
		}
		return s.stock.Init(ctx, tx, product.ID, input.InitialStock, threshold, actor)
	})
	if err != nil {
		return nil, err
	}
	dto := toDTO(*product, input.InitialStock)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Category != nil {
		updates["category"] = strings.TrimSpace(*input.Category)
	}
	if input.Price != nil || input.DiscountPrice != nil {
		current, err := s.Get(ctx, id, true)
		if err != nil {
			return nil, err
		}
		price := current.Price
		if input.Price != nil {
			price = *input.Price
		}
		discount := current.DiscountPrice
		if input.DiscountPrice != nil {
			discount = input.DiscountPrice
		}
		if err := validatePrices(price, discount); err != nil {
			return nil, err
		}
		updates["price"] = price
		updates["discount_price"] = discount
	}
	if input.Images != nil {
		updates["images"] = dbtypes.StringList(input.Images)
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) > 0 {
		found, err := s.repo.Update(ctx, id, updates)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
		}
		if !found {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
	}
	return s.Get(ctx, id, true)
}

// Deactivate hides the product from the catalog. Orders keep their snapshots.
func (s *service) Deactivate(ctx context.Context, id uuid.UUID) error {
	found, err := s.repo.Update(ctx, id, map[string]any{"is_active": false})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate product")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

// Categories lists the categories that have at least one active product.
func (s *service) Categories(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.CategoryCounts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, CategoryDTO{
			Slug:         row.Category,
			Name:         categoryName(row.Category),
			ProductCount: row.ProductCount,
		})
	}
	return out, nil
}

func (s *service) Related(ctx context.Context, id uuid.UUID, limit int) ([]ProductDTO, error) {
	if limit <= 0 {
		limit = defaultRelatedLimit
	}
	if limit > maxRelatedLimit {
		limit = maxRelatedLimit
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !p.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	rows, err := s.repo.ListRelated(ctx, p, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list related products")
	}
	return s.withStock(ctx, rows)
}

func (s *service) withStock(ctx context.Context, rows []models.Product) ([]ProductDTO, error) {
	ids := make([]uuid.UUID, 0, len(rows))
	for _, p := range rows {
		ids = append(ids, p.ID)
	}
	stock, err := s.stock.QuantitiesFor(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
	}
	out := make([]ProductDTO, 0, len(rows))
	for _, p := range rows {
		out = append(out, toDTO(p, stock[p.ID]))
	}
	return out, nil
}

// categoryName turns a category slug like "phone-cases" into "Phone Cases".
func categoryName(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' || unicode.IsSpace(r) })
	return cases.Title(language.English).String(strings.Join(words, " "))
}

func (s *service) uniqueSlug(ctx context.Context, name, sku string) (string, error) {
	slug := Slugify(name)
	if slug == "" {
		slug = Slugify(sku)
	}
	taken, err := s.repo.ExistsBySlug(ctx, slug)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check slug")
	}
	if taken {
		slug = slug + "-" + Slugify(sku)
	}
	return slug, nil
}

func validatePrices(price decimal.Decimal, discount *decimal.Decimal) error {
	if !price.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be greater than 0")
	}
	if discount != nil {
		if discount.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "discount_price must be >= 0")
		}
		if discount.GreaterThanOrEqual(price) {
			return pkgerrors.New(pkgerrors.CodeValidation, "discount_price must be below price")
		}
	}
	return nil
}

// Slugify lowercases s and joins its alphanumeric runs with hyphens.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if b.Len() > 0 && !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
