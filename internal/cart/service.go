package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/wacka-accessories/wacka-backend/pkg/db/models"
	pkgerrors "github.com/wacka-accessories/wacka-backend/pkg/errors"
)

type productLoader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type stockReader interface {
	QuantitiesFor(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]int, error)
}

// Service exposes the customer's cart. Stock checks here are advisory; the
// order service checks again at checkout.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*View, error)
	Add(ctx context.Context, userID uuid.UUID, input AddItemInput) (*View, error)
	Update(ctx context.Context, userID, productID uuid.UUID, input UpdateItemInput) (*View, error)
	Remove(ctx context.Context, userID, productID uuid.UUID) (*View, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo     *Repository
	products productLoader
	stock    stockReader
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo *Repository, products productLoader, stock stockReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock reader required")
	}
	return &service{repo: repo, products: products, stock: stock}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*View, error) {
	c, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return emptyView(), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return s.price(ctx, c.Items)
}

func (s *service) Add(ctx context.Context, userID uuid.UUID, input AddItemInput) (*View, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	products, err := s.products.FindByIDs(ctx, []uuid.UUID{input.ProductID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if p, ok := products[input.ProductID]; !ok || !p.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	available, err := s.available(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}

	c, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	existing := 0
	for _, item := range c.Items {
		if item.ProductID == input.ProductID {
			existing = item.Quantity
			break
		}
	}
	total := existing + input.Quantity
	if total > available {
		return nil, notEnoughStock(available)
	}
	if err := s.repo.SetItemQuantity(ctx, c.ID, input.ProductID, total); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart item")
	}
	return s.Get(ctx, userID)
}

func (s *service) Update(ctx context.Context, userID, productID uuid.UUID, input UpdateItemInput) (*View, error) {
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	available, err := s.available(ctx, productID)
	if err != nil {
		return nil, err
	}
	if input.Quantity > available {
		return nil, notEnoughStock(available)
	}
	c, err := s.loadExisting(ctx, userID)
	if err != nil {
		return nil, err
	}
	if input.Quantity == 0 {
		err = s.repo.DeleteItem(ctx, c.ID, productID)
	} else if hasProduct(c, productID) {
		err = s.repo.SetItemQuantity(ctx, c.ID, productID, input.Quantity)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
	}
	return s.Get(ctx, userID)
}

func (s *service) Remove(ctx context.Context, userID, productID uuid.UUID) (*View, error) {
	c, err := s.loadExisting(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteItem(ctx, c.ID, productID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}
	return s.Get(ctx, userID)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	c, err := s.loadExisting(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.repo.ClearItems(ctx, c.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *service) loadExisting(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	c, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return c, nil
}

func (s *service) available(ctx context.Context, productID uuid.UUID) (int, error) {
	quantities, err := s.stock.QuantitiesFor(ctx, []uuid.UUID{productID})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
	}
	return quantities[productID], nil
}

// price values each line at the product's current effective price. Lines
// whose product has vanished are skipped.
func (s *service) price(ctx context.Context, items []models.CartItem) (*View, error) {
	view := emptyView()
	if len(items) == 0 {
		return view, nil
	}
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	for _, item := range items {
		p, ok := products[item.ProductID]
		if !ok {
			continue
		}
		line := Line{
			ProductID:    p.ID,
			ProductName:  p.Name,
			ProductImage: p.Images.First(),
			Price:        p.EffectivePrice(),
			Quantity:     item.Quantity,
		}
		line.Subtotal = line.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		view.Items = append(view.Items, line)
		view.Total = view.Total.Add(line.Subtotal)
	}
	view.ItemCount = len(view.Items)
	return view, nil
}

func hasProduct(c *models.Cart, productID uuid.UUID) bool {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}

func notEnoughStock(available int) error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("Not enough stock. Available: %d", available)).
		WithDetails(map[string]any{"available": available})
}
