package services

import (
	"context"
	"errors"

	"go-storefront/apperrors"
	"go-storefront/logger"
	"go-storefront/models"
	"go-storefront/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Viewer identifies who looked at something. UserID wins over IP when set.
type Viewer struct {
	UserID string
	IP     string
}

// ViewService counts unique views of categories and products
type ViewService struct {
	views      repository.ViewRepository
	categories repository.CategoryRepository
	products   repository.ProductRepository
	log        *logger.Logger
}

func NewViewService(store *repository.Store, log *logger.Logger) *ViewService {
	return &ViewService{
		views:      store.Views,
		categories: store.Categories,
		products:   store.Products,
		log:        log.WithComponent("view_service"),
	}
}

// RecordCategoryView counts the viewer once per category. A first view also counts
// towards every ancestor. It reports whether this was the viewer's first view.
func (s *ViewService) RecordCategoryView(ctx context.Context, categoryID primitive.ObjectID, viewer Viewer) (bool, error) {
	if viewer.UserID == "" && viewer.IP == "" {
		return false, apperrors.BadRequest("Viewer could not be identified")
	}
	if _, err := s.categories.GetByID(ctx, categoryID); err != nil {
		return false, notFoundOr(err, apperrors.CodeNotFound, "Category not found")
	}

	var first bool
	var err error
	if viewer.UserID != "" {
		first, err = s.views.RecordUserView(ctx, viewer.UserID, models.ViewCategory, categoryID)
	} else {
		first, err = s.views.RecordCategoryIP(ctx, categoryID, viewer.IP)
	}
	if err != nil {
		return false, apperrors.Internal("Failed to record view", err)
	}
	if !first {
		return false, nil
	}

	visited := map[primitive.ObjectID]bool{}
	current := &categoryID
	for current != nil && !visited[*current] {
		visited[*current] = true
		if err := s.categories.IncrementViews(ctx, *current); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				break
			}
			return true, apperrors.Internal("Failed to count view", err)
		}
		c, err := s.categories.GetByID(ctx, *current)
		if err != nil {
			break
		}
		current = c.Parent
	}
	return true, nil
}

// RecordProductView counts a signed-in user's first view of a product
func (s *ViewService) RecordProductView(ctx context.Context, productID primitive.ObjectID, userID string) (bool, error) {
	if userID == "" {
		return false, apperrors.Unauthorized("Sign in required")
	}
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return false, notFoundOr(err, apperrors.CodeProductNotFound, "Product not found")
	}

	first, err := s.views.RecordUserView(ctx, userID, models.ViewProduct, productID)
	if err != nil {
		return false, apperrors.Internal("Failed to record view", err)
	}
	if first {
		if err := s.products.IncrementUniqueViews(ctx, productID); err != nil {
			return true, notFoundOr(err, apperrors.CodeProductNotFound, "Product not found")
		}
	}
	return first, nil
}
